package workerpool

import (
	"sync"
)

// Job is a unit of work run by the pool.
type Job func() error

// Pool runs jobs on a bounded number of goroutines. Jobs may be added at any
// point before Stop; Wait blocks until all added jobs have completed and
// returns the first error encountered, if any.
type Pool struct {
	jobs chan Job
	wg   sync.WaitGroup

	m    sync.Mutex
	err  error
	done chan struct{}
	once sync.Once
}

// New returns a pool that runs at most numGo jobs concurrently.
func New(numGo int) *Pool {
	if numGo < 1 {
		numGo = 1
	}

	p := &Pool{
		jobs: make(chan Job),
		done: make(chan struct{}),
	}

	for i := 0; i < numGo; i++ {
		go p.work()
	}

	return p
}

func (p *Pool) work() {
	for {
		select {
		case job, ok := <-p.jobs:
			if !ok {
				return
			}
			if err := job(); err != nil {
				p.m.Lock()
				if p.err == nil {
					p.err = err
				}
				p.m.Unlock()
			}
			p.wg.Done()
		case <-p.done:
			return
		}
	}
}

// Add enqueues jobs for execution. It must not be called after Stop.
func (p *Pool) Add(jobs []Job) {
	p.wg.Add(len(jobs))
	go func() {
		for _, job := range jobs {
			select {
			case p.jobs <- job:
			case <-p.done:
				p.wg.Done()
			}
		}
	}()
}

// Wait blocks until all added jobs have run, then returns the first error
// any job returned.
func (p *Pool) Wait() error {
	p.wg.Wait()

	p.m.Lock()
	defer p.m.Unlock()
	return p.err
}

// Stop shuts down the worker goroutines. Jobs that have not started are
// discarded.
func (p *Pool) Stop() {
	p.once.Do(func() {
		close(p.done)
	})
}
