package storage

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/meridian-ops/drverify/pkg/types"
)

var (
	// Bucket names
	bucketRuns       = []byte("runs")
	bucketResults    = []byte("results") // sub-bucket per run ID
	bucketPromotions = []byte("promotions")
)

// BoltJournal implements Journal using BoltDB
type BoltJournal struct {
	db *bolt.DB
}

// NewBoltJournal opens (or creates) the journal database in dataDir
func NewBoltJournal(dataDir string) (*BoltJournal, error) {
	dbPath := filepath.Join(dataDir, "drverify.db")

	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open journal database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketRuns, bucketResults, bucketPromotions} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltJournal{db: db}, nil
}

// Close closes the database
func (j *BoltJournal) Close() error {
	return j.db.Close()
}

func (j *BoltJournal) StartRun(run Run) error {
	return j.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRuns)
		data, err := json.Marshal(run)
		if err != nil {
			return err
		}
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		return b.Put(seqKey(seq), data)
	})
}

func (j *BoltJournal) LastRun() (Run, bool, error) {
	var run Run
	found := false
	err := j.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketRuns).Cursor()
		k, v := c.Last()
		if k == nil {
			return nil
		}
		found = true
		return json.Unmarshal(v, &run)
	})
	return run, found, err
}

func (j *BoltJournal) AppendResult(runID string, res types.ScenarioResult) error {
	return j.db.Update(func(tx *bolt.Tx) error {
		parent := tx.Bucket(bucketResults)
		b, err := parent.CreateBucketIfNotExists([]byte(runID))
		if err != nil {
			return err
		}
		data, err := json.Marshal(res)
		if err != nil {
			return err
		}
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		return b.Put(seqKey(seq), data)
	})
}

func (j *BoltJournal) Results(runID string) ([]types.ScenarioResult, error) {
	var results []types.ScenarioResult
	err := j.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketResults).Bucket([]byte(runID))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			var res types.ScenarioResult
			if err := json.Unmarshal(v, &res); err != nil {
				return err
			}
			results = append(results, res)
			return nil
		})
	})
	return results, err
}

func (j *BoltJournal) PutPromotion(rec types.PromotionRecord) error {
	return j.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketPromotions)
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		key := fmt.Sprintf("%s/%s", rec.ClusterID, rec.PromotedAt.UTC().Format(time.RFC3339Nano))
		return b.Put([]byte(key), data)
	})
}

func (j *BoltJournal) Promotions() ([]types.PromotionRecord, error) {
	var records []types.PromotionRecord
	err := j.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketPromotions)
		return b.ForEach(func(k, v []byte) error {
			var rec types.PromotionRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			records = append(records, rec)
			return nil
		})
	})
	return records, err
}

func (j *BoltJournal) UnrestoredPromotions() ([]types.PromotionRecord, error) {
	all, err := j.Promotions()
	if err != nil {
		return nil, err
	}
	var out []types.PromotionRecord
	for _, rec := range all {
		if rec.RestorationOutcome != types.RestorationSuccess {
			out = append(out, rec)
		}
	}
	return out, nil
}

func seqKey(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}
