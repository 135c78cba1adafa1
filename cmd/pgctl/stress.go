package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuapare/pglist/internal/logger"
	"github.com/joshuapare/pglist/phys/sim"
	"github.com/joshuapare/pglist/phys/verify"
)

var (
	stressWorkers  int
	stressRounds   int
	stressMaxPages int
	stressBlocking bool
)

func init() {
	cmd := newStressCmd()
	cmd.Flags().IntVar(&stressWorkers, "workers", 4, "Concurrent allocating goroutines")
	cmd.Flags().IntVar(&stressRounds, "rounds", 100, "Requests per worker")
	cmd.Flags().IntVar(&stressMaxPages, "max-pages", 8, "Largest request in pages")
	cmd.Flags().BoolVar(&stressBlocking, "blocking", false, "Allow the reclaim fallback")
	rootCmd.AddCommand(cmd)
}

func newStressCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stress",
		Short: "Run concurrent random allocations",
		Long: `The stress command runs workers that allocate random constrained
page lists, verify each result and release it. At the end every page must be
free, resident or pinned again.

Example:
  pgctl stress --segment 0x0-4M --workers 8 --rounds 1000
  pgctl stress --cache 32 --blocking --fragment 5`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStress(cmd.Context())
		},
	}
}

type stressOutput struct {
	Requests  uint64 `json:"requests"`
	Succeeded uint64 `json:"succeeded"`
	Failed    uint64 `json:"failed"`
	Pages     uint64 `json:"pages"`
	Free      int    `json:"free"`
	Total     int    `json:"total"`
}

func runStress(ctx context.Context) error {
	mc, err := buildMachine()
	if err != nil {
		return err
	}
	defer mc.Close()

	before := mc.Accounted()
	res, err := mc.Stress(ctx, sim.StressOptions{
		Workers:  stressWorkers,
		Rounds:   stressRounds,
		MaxPages: stressMaxPages,
		Blocking: stressBlocking,
		Seed:     seed,
	})
	if err != nil {
		return err
	}

	logger.Info("pgctl: stress done",
		"requests", res.Requests, "succeeded", res.Succeeded, "failed", res.Failed, "pages", res.Pages)

	mc.Daemon.Wait()
	if err := verify.Manager(mc.Manager); err != nil {
		return fmt.Errorf("free lists inconsistent: %w", err)
	}
	if got := mc.Accounted(); got != before {
		return fmt.Errorf("%d pages accounted after stress, %d before", got, before)
	}

	if jsonOut {
		return printJSON(stressOutput{
			Requests:  res.Requests,
			Succeeded: res.Succeeded,
			Failed:    res.Failed,
			Pages:     res.Pages,
			Free:      mc.Manager.FreeCount(),
			Total:     mc.Layout.TotalPages(),
		})
	}
	printInfo("Requests: %d (%d succeeded, %d out of memory)\n", res.Requests, res.Succeeded, res.Failed)
	printInfo("Pages handed out: %d\n", res.Pages)
	printInfo("Free: %d of %d pages\n", mc.Manager.FreeCount(), mc.Layout.TotalPages())
	if verbose && !quiet {
		st := mc.Daemon.Stats()
		return newPrinter(os.Stdout).PrintStats(mc.Alloc.Stats(), &st)
	}
	return nil
}
