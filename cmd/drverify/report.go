package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/meridian-ops/drverify/pkg/config"
	"github.com/meridian-ops/drverify/pkg/storage"
	"github.com/meridian-ops/drverify/pkg/types"
)

var topologyCmd = &cobra.Command{
	Use:   "topology",
	Short: "Inspect the topology registry",
}

var topologyShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Validate and print the loaded topology",
	RunE: func(cmd *cobra.Command, args []string) error {
		topo, err := config.LoadTopology(flagTopology)
		if err != nil {
			return err
		}
		for _, cluster := range topo.Clusters {
			fmt.Printf("%s  role=%s  peer_class=%s\n", cluster.ClusterID, cluster.Role, cluster.PeerClass)
			for _, node := range cluster.Nodes {
				fmt.Printf("  %s", node.Address)
				if node.Datacenter != "" {
					fmt.Printf("  (%s)", node.Datacenter)
				}
				fmt.Println()
			}
		}
		return nil
	},
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the journaled results of the last run",
	RunE: func(cmd *cobra.Command, args []string) error {
		journal, err := storage.NewBoltJournal(flagDataDir)
		if err != nil {
			return fmt.Errorf("open run journal: %w", err)
		}
		defer journal.Close()

		run, found, err := journal.LastRun()
		if err != nil {
			return err
		}
		if !found {
			fmt.Println("No runs recorded.")
			return nil
		}

		results, err := journal.Results(run.ID)
		if err != nil {
			return err
		}
		fmt.Printf("Run %s  started %s\n", run.ID, run.StartedAt.Format(time.RFC3339))
		for _, res := range results {
			line := fmt.Sprintf("  %-20s %s", res.Name, strings.ToUpper(string(res.Status)))
			if res.Reason != "" {
				line += "  " + res.Reason
			}
			fmt.Println(line)
		}

		// Unrestored promotions are the journal's reason to exist: surface
		// them on every report.
		pending, err := journal.UnrestoredPromotions()
		if err != nil {
			return err
		}
		for _, rec := range pending {
			if rec.RestorationOutcome == types.RestorationFailed {
				fmt.Printf("\nATTENTION: cluster %s promoted at %s; restoration FAILED, operator action required\n",
					rec.ClusterID, rec.PromotedAt.Format(time.RFC3339))
			} else {
				fmt.Printf("\nATTENTION: cluster %s promoted at %s; restoration still pending, operator action required\n",
					rec.ClusterID, rec.PromotedAt.Format(time.RFC3339))
			}
		}
		return nil
	},
}

func init() {
	topologyCmd.AddCommand(topologyShowCmd)
}
