package task

import (
	"context"
	"time"

	"github.com/danmuck/taskwire/internal/descriptor"
	"github.com/danmuck/taskwire/internal/observability"
)

// Inline runs jobs on the calling goroutine against descriptor clones of
// their arguments.
type Inline struct{}

func (Inline) Name() string {
	return "inline"
}

func (p Inline) Run(ctx context.Context, job Job) (Result, error) {
	start := time.Now()
	res := Result{Name: job.Name, Policy: p.Name()}
	if err := validate(job); err != nil {
		return res, err
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}

	args := make([]*descriptor.Slot, 0, len(job.Args))
	defer func() { release(args) }()
	for _, src := range job.Args {
		dst := sibling(src)
		dst.CloneFrom(src)
		args = append(args, dst)
	}

	err := job.Fn(ctx, args)
	res.Elapsed = time.Since(start)
	observability.RecordTaskRun(p.Name(), err)
	return res, err
}

// sibling allocates an empty slot able to hold a copy of src.
func sibling(src *descriptor.Slot) *descriptor.Slot {
	if src.Descriptor() == descriptor.Bytes() {
		return descriptor.NewBlobSlot(int(src.Size()))
	}
	return descriptor.NewSlot(src.Descriptor())
}
