package task

import (
	"context"
	"errors"
	"time"

	"github.com/danmuck/taskwire/internal/descriptor"
)

var (
	ErrNoFunc   = errors.New("task: job has no function")
	ErrDeadArg  = errors.New("task: argument slot holds no value")
	ErrNilSlot  = errors.New("task: nil argument slot")
	ErrPoolSize = errors.New("task: pool size must be positive")
)

// Func is the job body. args are owned by the policy and are destructed
// after Func returns; Func must not retain them.
type Func func(ctx context.Context, args []*descriptor.Slot) error

// Job is one unit of work with its arguments. The caller keeps ownership of
// Args; policies never mutate or destruct them.
type Job struct {
	Name string
	Args []*descriptor.Slot
	Fn   Func
}

type Result struct {
	Name    string
	Policy  string
	Elapsed time.Duration
	// Bytes is the encoded argument volume when the policy serializes.
	Bytes int
}

// Policy runs jobs somewhere.
type Policy interface {
	Name() string
	Run(ctx context.Context, job Job) (Result, error)
}

func validate(job Job) error {
	if job.Fn == nil {
		return ErrNoFunc
	}
	for _, arg := range job.Args {
		if arg == nil {
			return ErrNilSlot
		}
		if !arg.Live() {
			return ErrDeadArg
		}
	}
	return nil
}

func release(slots []*descriptor.Slot) {
	for _, s := range slots {
		if s != nil && s.Live() {
			s.Destruct()
		}
	}
}
