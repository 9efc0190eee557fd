package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/meridian-ops/drverify/pkg/config"
	"github.com/meridian-ops/drverify/pkg/discover"
	"github.com/meridian-ops/drverify/pkg/log"
	"github.com/meridian-ops/drverify/pkg/metrics"
	"github.com/meridian-ops/drverify/pkg/mgmt"
	"github.com/meridian-ops/drverify/pkg/probe"
	"github.com/meridian-ops/drverify/pkg/promote"
	"github.com/meridian-ops/drverify/pkg/scenario"
	"github.com/meridian-ops/drverify/pkg/storage"
	"github.com/meridian-ops/drverify/pkg/types"
	"github.com/meridian-ops/drverify/pkg/workload"
)

var (
	flagSkipCrossRegion bool
	flagEnablePromotion bool
	flagNoCleanup       bool
	flagNamespace       string
	flagWorkloadDriver  string
	flagWorkloadTarget  string
	flagMessageCount    int
	flagRate            int
	flagMessageSize     int
	flagDuration        time.Duration
	flagThroughputFloor float64
	flagSchemaEndpoints []string
	flagStreamEndpoints []string
	flagFaultRunner     string
	flagMetricsAddr     string
	flagProbeTimeout    time.Duration
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Run verification scenarios against the replicated topology",
}

func init() {
	pf := verifyCmd.PersistentFlags()
	pf.BoolVar(&flagSkipCrossRegion, "skip-cross-region", false, "Skip scenarios against cross-region downstreams")
	pf.BoolVar(&flagEnablePromotion, "enable-promotion", false, "Allow the destructive promotion scenario")
	pf.BoolVar(&flagNoCleanup, "no-cleanup", false, "Leave test namespaces and entities in place")
	pf.StringVar(&flagNamespace, "namespace", "drverify", "Virtual namespace prefix for test artifacts")
	pf.StringVar(&flagWorkloadDriver, "workload-driver", "perf-driver", "Workload driver binary")
	pf.StringVar(&flagWorkloadTarget, "workload-target", "", "Data-plane URI handed to the workload driver")
	pf.IntVar(&flagMessageCount, "message-count", 100, "Expected replicated message count")
	pf.IntVar(&flagRate, "rate", 100, "Workload publish rate in msg/s")
	pf.IntVar(&flagMessageSize, "size", 1024, "Workload message size in bytes")
	pf.DurationVar(&flagDuration, "duration", 30*time.Second, "Workload duration per scenario")
	pf.Float64Var(&flagThroughputFloor, "throughput-floor", 1, "Minimum acceptable msg/s in the throughput scenario")
	pf.StringSliceVar(&flagSchemaEndpoints, "schema-endpoints", nil, "Upstream endpoints for the schema replication channel")
	pf.StringSliceVar(&flagStreamEndpoints, "stream-endpoints", nil, "Upstream endpoints for the stream replication channel")
	pf.StringVar(&flagFaultRunner, "fault-runner", "", "External fault-injection runner binary")
	pf.StringVar(&flagMetricsAddr, "metrics-addr", "", "Expose Prometheus metrics on this address during the run")
	pf.DurationVar(&flagProbeTimeout, "probe-timeout", 5*time.Second, "Per-node status probe timeout")

	for name, scenarios := range map[string][]scenario.Scenario{
		"connectivity": {scenario.Connectivity{}},
		"schema":       {scenario.SchemaReplication{}},
		"messages":     {scenario.MessageReplication{}},
		"lag":          {scenario.LagMeasurement{}},
		"throughput":   {scenario.Throughput{}},
		"failover":     {scenario.CarrierFailover{}},
		"promotion":    {scenario.Promotion{}},
		"all":          scenario.DefaultSequence(),
	} {
		scs := scenarios
		verifyCmd.AddCommand(&cobra.Command{
			Use:   name,
			Short: fmt.Sprintf("Run the %s scenario group", name),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runVerify(scs)
			},
		})
	}
}

func runVerify(scenarios []scenario.Scenario) error {
	failed, err := executeRun(scenarios)
	if err != nil {
		// Configuration problems abort the run before any scenario.
		return err
	}
	// Exit code is the failed-scenario count for automated gating.
	if failed > 125 {
		failed = 125
	}
	os.Exit(failed)
	return nil
}

func executeRun(scenarios []scenario.Scenario) (int, error) {
	env, journal, err := buildEnv()
	if err != nil {
		return 0, err
	}
	defer journal.Close()

	if flagMetricsAddr != "" {
		srv, errCh := metrics.Serve(flagMetricsAddr)
		defer srv.Close()
		go func() {
			if serr := <-errCh; serr != nil {
				logger := log.WithComponent("metrics")
				logger.Error().Err(serr).Msg("metrics listener failed")
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Every scenario's test entities live in a per-run namespace; deleting
	// it afterwards takes them with it.
	cleanup, err := env.PrepareArtifacts(ctx)
	if err != nil {
		return 0, err
	}
	defer cleanup()

	report := scenario.NewRunner(env, scenarios...).Run(ctx)
	printReport(report)
	return report.Failed(), nil
}

func buildEnv() (*scenario.Env, storage.Journal, error) {
	topo, err := config.LoadTopology(flagTopology)
	if err != nil {
		return nil, nil, err
	}
	creds, err := config.ResolveCredentials(flagUsername, flagPassword)
	if err != nil {
		return nil, nil, err
	}
	journal, err := storage.NewBoltJournal(flagDataDir)
	if err != nil {
		return nil, nil, &types.ConfigError{Reason: "open run journal", Err: err}
	}

	client := mgmt.NewClient(creds)
	prober := probe.NewProber(client, flagProbeTimeout)
	disc := discover.NewDiscoverer(prober)

	opts := scenario.DefaultOptions()
	opts.SkipCrossRegion = flagSkipCrossRegion
	opts.EnablePromotion = flagEnablePromotion
	opts.NoCleanup = flagNoCleanup
	opts.Namespace = flagNamespace
	opts.WorkloadTarget = flagWorkloadTarget
	opts.MessageCount = flagMessageCount
	opts.Rate = flagRate
	opts.MessageSize = flagMessageSize
	opts.WorkloadDuration = flagDuration
	opts.ThroughputFloor = flagThroughputFloor
	opts.FaultRunner = flagFaultRunner
	opts.UpstreamEndpoints = mgmt.UpstreamEndpoints{
		SchemaEndpoints: flagSchemaEndpoints,
		StreamEndpoints: flagStreamEndpoints,
	}

	env := &scenario.Env{
		Topology:   topo,
		Mgmt:       client,
		Discoverer: disc,
		Workload:   workload.NewRunner(flagWorkloadDriver),
		Machine:    promote.NewMachine(client, disc, journal, promote.DefaultConfig()),
		Journal:    journal,
		Opts:       opts,
	}
	return env, journal, nil
}

func printReport(report scenario.Report) {
	fmt.Println()
	fmt.Printf("Run %s\n", report.RunID)
	for _, res := range report.Results {
		line := fmt.Sprintf("  %-20s %s", res.Name, strings.ToUpper(string(res.Status)))
		if res.Reason != "" {
			line += "  " + res.Reason
		}
		fmt.Println(line)
		keys := make([]string, 0, len(res.Metrics))
		for k := range res.Metrics {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("      %s=%s\n", k, res.Metrics[k])
		}
	}
	fmt.Println()
	if report.Passed() {
		fmt.Println("Result: PASS")
	} else {
		fmt.Printf("Result: FAIL (%d scenario(s) failed)\n", report.Failed())
	}
}
