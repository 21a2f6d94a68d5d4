package task

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/danmuck/taskwire/internal/descriptor"
	"github.com/danmuck/taskwire/internal/observability"
	"github.com/danmuck/taskwire/internal/parcel"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// PoolConfig configures a Pool.
type PoolConfig struct {
	Size     int
	Registry *descriptor.Registry
	Pack     parcel.Options
	Limits   parcel.Limits
}

// Pool runs jobs on a bounded set of goroutines. Arguments cross into the
// worker as encoded parcels, so every argument type must be registered.
type Pool struct {
	reg    *descriptor.Registry
	pack   parcel.Options
	limits parcel.Limits
	sem    chan struct{}
}

func NewPool(cfg PoolConfig) (*Pool, error) {
	if cfg.Size <= 0 {
		return nil, ErrPoolSize
	}
	if cfg.Registry == nil {
		cfg.Registry = descriptor.Default()
	}
	if cfg.Limits.MaxPayloadBytes == 0 {
		cfg.Limits = parcel.DefaultLimits()
	}
	return &Pool{
		reg:    cfg.Registry,
		pack:   cfg.Pack,
		limits: cfg.Limits,
		sem:    make(chan struct{}, cfg.Size),
	}, nil
}

func (p *Pool) Name() string {
	return "pool"
}

// Run encodes the job arguments on the caller's goroutine, then decodes and
// executes on a pool goroutine once a worker is free.
func (p *Pool) Run(ctx context.Context, job Job) (Result, error) {
	start := time.Now()
	res := Result{Name: job.Name, Policy: p.Name()}
	if err := validate(job); err != nil {
		return res, err
	}
	frames, size, err := p.encode(job)
	if err != nil {
		return res, err
	}
	res.Bytes = size

	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		return res, ctx.Err()
	}

	done := make(chan error, 1)
	go func() {
		defer func() { <-p.sem }()
		done <- p.execute(ctx, job, frames)
	}()

	select {
	case err = <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}
	res.Elapsed = time.Since(start)
	observability.RecordTaskRun(p.Name(), err)
	return res, err
}

// RunAll runs jobs concurrently and waits for all of them. The first error
// cancels the jobs that have not started.
func (p *Pool) RunAll(ctx context.Context, jobs []Job) ([]Result, error) {
	results := make([]Result, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cap(p.sem))
	var mu sync.Mutex
	for i, job := range jobs {
		g.Go(func() error {
			res, err := p.Run(gctx, job)
			mu.Lock()
			results[i] = res
			mu.Unlock()
			if err != nil {
				return fmt.Errorf("task %q: %w", job.Name, err)
			}
			return nil
		})
	}
	err := g.Wait()
	return results, err
}

func (p *Pool) encode(job Job) ([][]byte, int, error) {
	frames := make([][]byte, 0, len(job.Args))
	total := 0
	for i, arg := range job.Args {
		opts := p.pack
		opts.Attrs = append([]parcel.Attr{
			parcel.StringAttr(parcel.AttrTask, job.Name),
			parcel.Uint64Attr(parcel.AttrSeq, uint64(i)),
		}, p.pack.Attrs...)
		data, err := parcel.PackSlot(p.reg, arg, opts)
		if err != nil {
			return nil, 0, fmt.Errorf("task %q arg %d: %w", job.Name, i, err)
		}
		frames = append(frames, data)
		total += len(data)
	}
	return frames, total, nil
}

func (p *Pool) execute(ctx context.Context, job Job, frames [][]byte) error {
	args := make([]*descriptor.Slot, 0, len(frames))
	defer func() { release(args) }()
	for i, data := range frames {
		_, slot, err := parcel.Unpack(data, p.reg, p.limits, p.pack.Version)
		if err != nil {
			return fmt.Errorf("task %q arg %d: %w", job.Name, i, err)
		}
		args = append(args, slot)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	log.Debug().Str("task", job.Name).Int("args", len(args)).Msg("pool job start")
	return job.Fn(ctx, args)
}
