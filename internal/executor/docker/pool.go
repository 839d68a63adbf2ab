package docker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrPoolClosed is returned by Acquire after Stop.
var ErrPoolClosed = errors.New("docker: container pool is closed")

// containerRuntime is the slice of the Docker API the pool needs. Containers are
// single-use: whoever acquires one removes it when done.
type containerRuntime interface {
	create(ctx context.Context) (string, error)
	remove(id string)
}

// Pool keeps a few idle containers started so a run only pays for `exec`.
//
// A single filler goroutine tops the pool up whenever Acquire takes a
// container, and retries on a ticker after a failed create.
type Pool struct {
	rt     containerRuntime
	size   int
	retry  time.Duration
	logger *slog.Logger

	warm   chan string
	wakeup chan struct{}
	done   chan struct{}
	wg     sync.WaitGroup

	startOnce sync.Once
	stopOnce  sync.Once
}

func newPool(rt containerRuntime, size int, logger *slog.Logger) *Pool {
	return &Pool{
		rt:     rt,
		size:   size,
		retry:  time.Second,
		logger: logger,
		warm:   make(chan string, size),
		wakeup: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// Start launches the filler goroutine. Calling it twice is a no-op.
func (p *Pool) Start() {
	p.startOnce.Do(func() {
		p.logger.Info("starting container pool", slog.Int("size", p.size))
		p.wg.Add(1)
		go p.fill()
	})
}

// Stop halts the filler and removes every idle container.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() {
		close(p.done)
		p.wg.Wait()
		for {
			select {
			case id := <-p.warm:
				p.rt.remove(id)
			default:
				p.logger.Info("container pool stopped")
				return
			}
		}
	})
}

// Acquire hands out an idle container, blocking until one is ready.
func (p *Pool) Acquire(ctx context.Context) (string, error) {
	select {
	case <-p.done:
		return "", ErrPoolClosed
	default:
	}

	select {
	case id := <-p.warm:
		p.signal()
		return id, nil
	case <-p.done:
		return "", ErrPoolClosed
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Release removes a used container. It never goes back into the pool.
func (p *Pool) Release(id string) {
	p.rt.remove(id)
}

// Idle reports how many containers are waiting.
func (p *Pool) Idle() int {
	return len(p.warm)
}

func (p *Pool) signal() {
	select {
	case p.wakeup <- struct{}{}:
	default:
	}
}

func (p *Pool) fill() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.retry)
	defer ticker.Stop()

	for {
		p.topUp()
		select {
		case <-p.done:
			return
		case <-p.wakeup:
		case <-ticker.C:
		}
	}
}

// topUp creates containers until the pool is full or a create fails.
func (p *Pool) topUp() {
	for len(p.warm) < p.size {
		select {
		case <-p.done:
			return
		default:
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		id, err := p.rt.create(ctx)
		cancel()
		if err != nil {
			p.logger.Error("failed to create warm container", slog.String("error", err.Error()))
			return
		}

		select {
		case p.warm <- id:
		case <-p.done:
			p.rt.remove(id)
			return
		}
	}
}
