package sim

import (
	"context"
	"math/rand"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"

	"github.com/joshuapare/pglist/phys"
	"github.com/joshuapare/pglist/phys/pglist"
	"github.com/joshuapare/pglist/phys/verify"
)

// StressOptions controls Stress.
type StressOptions struct {
	// Workers is the number of concurrent allocating goroutines.
	// Default: 4
	Workers int

	// Rounds is the number of requests per worker.
	// Default: 100
	Rounds int

	// MaxPages bounds the size of each request.
	// Default: 8
	MaxPages int

	// Hold is how many results a worker keeps before releasing the oldest.
	// Default: 2
	Hold int

	// Blocking allows the reclaim fallback.
	Blocking bool

	// Seed seeds the request generators; worker i uses Seed+i.
	Seed int64
}

// StressResult summarizes a Stress run.
type StressResult struct {
	Requests  uint64
	Succeeded uint64
	Failed    uint64 // ErrOutOfMemory
	Pages     uint64 // pages handed out in total
}

// Stress runs concurrent random allocations against the machine, verifying
// every result and releasing them all before returning. It stops at the
// first verification failure, unexpected error or cancellation of ctx.
func (mc *Machine) Stress(ctx context.Context, opts StressOptions) (StressResult, error) {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.Rounds <= 0 {
		opts.Rounds = 100
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = 8
	}
	if opts.Hold <= 0 {
		opts.Hold = 2
	}

	var requests, succeeded, failed, pages atomic.Uint64
	g, ctx := errgroup.WithContext(ctx)
	for w := range opts.Workers {
		g.Go(func() error {
			rng := rand.New(rand.NewSource(opts.Seed + int64(w)))
			var held []phys.PageList
			defer func() {
				for _, list := range held {
					mc.Alloc.Release(list)
				}
			}()

			for range opts.Rounds {
				if err := ctx.Err(); err != nil {
					return err
				}
				req, c := mc.randomRequest(rng, opts)
				requests.Add(1)
				list, err := mc.Alloc.Alloc(req)
				if errors.Is(err, pglist.ErrOutOfMemory) {
					failed.Add(1)
					if len(held) > 0 {
						mc.Alloc.Release(held[0])
						held = held[1:]
					}
					continue
				}
				if err != nil {
					return errors.Wrapf(err, "worker %d", w)
				}
				held = append(held, list)
				if err := verify.Result(list, c); err != nil {
					return errors.Wrapf(err, "worker %d", w)
				}
				succeeded.Add(1)
				pages.Add(uint64(len(list)))
				if len(held) > opts.Hold {
					mc.Alloc.Release(held[0])
					held = held[1:]
				}
			}
			return nil
		})
	}
	err := g.Wait()
	return StressResult{
		Requests:  requests.Load(),
		Succeeded: succeeded.Load(),
		Failed:    failed.Load(),
		Pages:     pages.Load(),
	}, err
}

// randomRequest draws a request and the constraints its result must meet.
func (mc *Machine) randomRequest(rng *rand.Rand, opts StressOptions) (pglist.Request, verify.Constraints) {
	ps := mc.Layout.PageSize()
	n := uint64(1 + rng.Intn(opts.MaxPages))
	req := pglist.Request{
		Size:       n*ps - uint64(rng.Int63n(int64(ps))),
		Alignment:  ps << rng.Intn(3),
		MaxExtents: rng.Intn(int(n) + 2),
		Blocking:   opts.Blocking,
	}
	if rng.Intn(4) == 0 {
		// Smallest power of two holding the request, or twice that.
		b := ps
		for b < n*ps {
			b <<= 1
		}
		req.Boundary = b << rng.Intn(2)
	}

	strat, _ := mc.Alloc.StrategyFor(req)
	c := verify.Constraints{
		PageSize:  ps,
		Pages:     int(n),
		Low:       req.Low,
		High:      req.High,
		Alignment: req.Alignment,
		Boundary:  req.Boundary,
		Contig:    strat == pglist.StrategyContig,
	}
	return req, c
}
