// Package strand provides the serial execution context every
// game-state operation runs through: one goroutine drains a task queue,
// so at most one logical operation is in flight at a time and no model
// code needs locks.
package strand

import "sync"

// Strand is a single-goroutine serial executor.
type Strand struct {
	tasks chan func()

	closeOnce sync.Once
	done      chan struct{}
}

// New starts the strand goroutine.
func New() *Strand {
	s := &Strand{
		tasks: make(chan func(), 64),
		done:  make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *Strand) run() {
	defer close(s.done)
	for fn := range s.tasks {
		fn()
	}
}

// Do runs fn on the strand and blocks until it returned. Calls from
// within a strand task would deadlock; tasks must not re-enter.
func (s *Strand) Do(fn func()) {
	ran := make(chan struct{})
	s.tasks <- func() {
		defer close(ran)
		fn()
	}
	<-ran
}

// Post queues fn without waiting for it.
func (s *Strand) Post(fn func()) {
	s.tasks <- fn
}

// Close drains the queue and stops the goroutine. Submitting after
// Close panics, matching the shutdown ordering: stop intake first.
func (s *Strand) Close() {
	s.closeOnce.Do(func() { close(s.tasks) })
	<-s.done
}
