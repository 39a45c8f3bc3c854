package engine

import (
	"runtime"
	"sync"

	"github.com/pthm-cable/swarm/systems"
)

// serialThreshold is the minimum work-item count to use the worker pool.
// Below this, single-threaded is faster due to goroutine overhead.
const serialThreshold = 64

// span is a contiguous, group-aligned run of work items for one worker.
type span struct {
	start, end int
	kernel     func(i int)
}

// Dispatcher runs per-index kernels across a persistent worker pool. One
// Dispatch is one phase: it hands out work in runs aligned to the
// systems.GroupSize work-group boundary and returns only once every item has
// completed, so a finished Dispatch is the completion barrier between
// phases - the next phase can never observe a half-written array.
type Dispatcher struct {
	numWorkers int

	workChan chan span      // sends work to workers
	doneChan chan struct{}  // workers signal span completion
	stopChan chan struct{}  // signals workers to exit
	wg       sync.WaitGroup // tracks active workers
	running  bool
}

// NewDispatcher creates a dispatcher sized to the machine.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{numWorkers: runtime.GOMAXPROCS(0)}
}

// start launches the persistent worker goroutines.
func (d *Dispatcher) start() {
	if d.running {
		return
	}

	d.workChan = make(chan span, d.numWorkers)
	d.doneChan = make(chan struct{}, d.numWorkers)
	d.stopChan = make(chan struct{})
	d.running = true

	for i := 0; i < d.numWorkers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
}

// Stop signals all workers to exit and waits for them.
func (d *Dispatcher) Stop() {
	if !d.running {
		return
	}

	close(d.stopChan)
	d.wg.Wait()
	close(d.workChan)
	close(d.doneChan)
	d.running = false
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()

	for {
		select {
		case <-d.stopChan:
			return
		case s, ok := <-d.workChan:
			if !ok {
				return
			}
			for i := s.start; i < s.end; i++ {
				s.kernel(i)
			}
			d.doneChan <- struct{}{}
		}
	}
}

// Dispatch runs kernel once for every index in [0, n) and returns when all
// invocations are done.
func (d *Dispatcher) Dispatch(n int, kernel func(i int)) {
	if n <= 0 {
		return
	}
	if n < serialThreshold {
		for i := 0; i < n; i++ {
			kernel(i)
		}
		return
	}

	if !d.running {
		d.start()
	}

	// Split into group-aligned runs so a work group is never shared
	// between workers.
	groups := systems.NumGroups(n)
	groupsPerWorker := (groups + d.numWorkers - 1) / d.numWorkers

	dispatched := 0
	for w := 0; w < d.numWorkers; w++ {
		start := w * groupsPerWorker * systems.GroupSize
		end := start + groupsPerWorker*systems.GroupSize
		if end > n {
			end = n
		}
		if start >= end {
			continue
		}

		d.workChan <- span{start: start, end: end, kernel: kernel}
		dispatched++
	}

	for i := 0; i < dispatched; i++ {
		<-d.doneChan
	}
}
