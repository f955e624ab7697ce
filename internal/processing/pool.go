package processing

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"fridgecam-go/internal/types"
)

var ErrPoolClosed = errors.New("processing pool closed")

// Processor is the unit of work a Pool runs on each frame.
type Processor interface {
	Process(ctx context.Context, frame types.RawFrame) (types.Result, error)
}

type job struct {
	ctx   context.Context
	frame types.RawFrame
	reply chan reply
}

type reply struct {
	result types.Result
	err    error
}

type PoolStats struct {
	Processed uint64
	Failed    uint64
	Nanos     uint64
}

// Pool runs frames on a fixed set of worker goroutines so decodes never
// execute on the request-handling goroutine.
type Pool struct {
	proc    Processor
	jobs    chan job
	results chan types.Result
	wg      sync.WaitGroup
	closed  atomic.Bool
	mu      sync.RWMutex

	processed atomic.Uint64
	failed    atomic.Uint64
	nanos     atomic.Uint64
}

func NewPool(proc Processor, workers int, queue int) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queue < 0 {
		queue = 0
	}
	p := &Pool{
		proc:    proc,
		jobs:    make(chan job, queue),
		results: make(chan types.Result, 128),
	}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}
	go func() {
		p.wg.Wait()
		close(p.results)
	}()
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for j := range p.jobs {
		start := time.Now()
		result, err := p.proc.Process(j.ctx, j.frame)
		p.nanos.Add(uint64(time.Since(start).Nanoseconds()))
		if err != nil {
			p.failed.Add(1)
		} else {
			p.processed.Add(1)
		}
		if j.reply != nil {
			j.reply <- reply{result: result, err: err}
		}
		select {
		case p.results <- result:
		default:
		}
	}
}

// Submit queues a frame and waits for its result.
func (p *Pool) Submit(ctx context.Context, frame types.RawFrame) (types.Result, error) {
	ch := make(chan reply, 1)
	if err := p.enqueue(ctx, job{ctx: ctx, frame: frame, reply: ch}); err != nil {
		return types.Result{}, err
	}
	select {
	case <-ctx.Done():
		return types.Result{}, ctx.Err()
	case r := <-ch:
		return r.result, r.err
	}
}

// Feed queues frames from in without waiting for results until in closes
// or ctx is done.
func (p *Pool) Feed(ctx context.Context, in <-chan types.RawFrame) {
	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-in:
			if !ok {
				return
			}
			if err := p.enqueue(ctx, job{ctx: ctx, frame: frame}); err != nil {
				return
			}
		}
	}
}

func (p *Pool) enqueue(ctx context.Context, j job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed.Load() {
		return ErrPoolClosed
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case p.jobs <- j:
		return nil
	}
}

// Results carries every finished result, dropped when nobody keeps up.
// It closes after Close once the workers drain.
func (p *Pool) Results() <-chan types.Result {
	return p.results
}

func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed.Swap(true) {
		return
	}
	close(p.jobs)
}

func (p *Pool) Stats() PoolStats {
	return PoolStats{
		Processed: p.processed.Load(),
		Failed:    p.failed.Load(),
		Nanos:     p.nanos.Load(),
	}
}
