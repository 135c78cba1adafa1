package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuapare/pglist/internal/format"
	"github.com/joshuapare/pglist/internal/logger"
	"github.com/joshuapare/pglist/phys/pglist"
	"github.com/joshuapare/pglist/phys/verify"
)

var (
	allocSize       string
	allocLow        string
	allocHigh       string
	allocAlign      string
	allocBoundary   string
	allocMaxExtents int
	allocBlocking   bool
	allocRelease    bool
)

func init() {
	cmd := newAllocCmd()
	cmd.Flags().StringVar(&allocSize, "size", "4K", "Bytes to allocate")
	cmd.Flags().StringVar(&allocLow, "low", "", "Lowest acceptable address")
	cmd.Flags().StringVar(&allocHigh, "high", "", "End of the acceptable window (default unbounded)")
	cmd.Flags().StringVar(&allocAlign, "align", "", "Run alignment (default page size)")
	cmd.Flags().StringVar(&allocBoundary, "boundary", "", "Boundary no run may cross (default none)")
	cmd.Flags().IntVar(&allocMaxExtents, "max-extents", 1, "Tolerated number of discontiguous runs")
	cmd.Flags().BoolVar(&allocBlocking, "blocking", false, "Allow the reclaim fallback")
	cmd.Flags().BoolVar(&allocRelease, "release", false, "Release the pages and check the free count")
	rootCmd.AddCommand(cmd)
}

func newAllocCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "alloc",
		Short: "Allocate one constrained page list",
		Long: `The alloc command runs a single allocation against the machine
described by the global flags, verifies the result and prints its extents.

Example:
  pgctl alloc --size 16K --align 8K
  pgctl alloc --size 40K --boundary 64K --max-extents 10
  pgctl alloc --size 32K --cache 16 --blocking --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAlloc()
		},
	}
}

// allocRequest builds the request from the alloc flags.
func allocRequest(pageSize uint64) (pglist.Request, error) {
	size, err := format.ParseSize(allocSize)
	if err != nil {
		return pglist.Request{}, fmt.Errorf("--size: %w", err)
	}
	low, err := parseAddr(allocLow)
	if err != nil {
		return pglist.Request{}, fmt.Errorf("--low: %w", err)
	}
	high, err := parseAddr(allocHigh)
	if err != nil {
		return pglist.Request{}, fmt.Errorf("--high: %w", err)
	}
	align := pageSize
	if allocAlign != "" {
		if align, err = format.ParseSize(allocAlign); err != nil {
			return pglist.Request{}, fmt.Errorf("--align: %w", err)
		}
	}
	var boundary uint64
	if allocBoundary != "" {
		if boundary, err = format.ParseSize(allocBoundary); err != nil {
			return pglist.Request{}, fmt.Errorf("--boundary: %w", err)
		}
	}
	return pglist.Request{
		Size:       size,
		Low:        low,
		High:       high,
		Alignment:  align,
		Boundary:   boundary,
		MaxExtents: allocMaxExtents,
		Blocking:   allocBlocking,
	}, nil
}

func runAlloc() error {
	mc, err := buildMachine()
	if err != nil {
		return err
	}
	defer mc.Close()

	ps := mc.Layout.PageSize()
	req, err := allocRequest(ps)
	if err != nil {
		return err
	}
	strat, err := mc.Alloc.StrategyFor(req)
	if err != nil {
		return err
	}
	printVerbose("Strategy: %s\n", strat)

	before := mc.Manager.FreeCount()
	list, err := mc.Alloc.Alloc(req)
	if err != nil {
		logger.Warn("pgctl: alloc failed", "size", req.Size, "strategy", strat.String(), "err", err)
		return err
	}
	logger.Debug("pgctl: alloc", "pages", len(list), "extents", len(list.Extents()), "strategy", strat.String())

	err = verify.Result(list, verify.Constraints{
		PageSize:  ps,
		Pages:     int(format.Pages(req.Size, ps)),
		Low:       req.Low,
		High:      req.High,
		Alignment: req.Alignment,
		Boundary:  req.Boundary,
		Contig:    strat == pglist.StrategyContig,
	})
	if err != nil {
		return fmt.Errorf("result failed verification: %w", err)
	}

	p := newPrinter(os.Stdout)
	if !quiet || jsonOut {
		if !jsonOut {
			printInfo("Strategy: %s\n", strat)
		}
		if err := p.PrintList(list, ps); err != nil {
			return err
		}
	}

	if allocRelease {
		mc.Alloc.Release(list)
		mc.Daemon.Wait()
		if err := verify.Manager(mc.Manager); err != nil {
			return fmt.Errorf("free lists inconsistent after release: %w", err)
		}
		if mc.Accounted() != mc.Layout.TotalPages() {
			return fmt.Errorf("accounted %d pages after release, want %d", mc.Accounted(), mc.Layout.TotalPages())
		}
		printVerbose("Released %d pages (free %d, was %d before allocation)\n",
			len(list), mc.Manager.FreeCount(), before)
	}

	if verbose && !jsonOut {
		st := mc.Daemon.Stats()
		return p.PrintStats(mc.Alloc.Stats(), &st)
	}
	return nil
}
