package pool

import (
	"context"
	"sync"
)

// dispatcher hands out request ids for one execution and routes each response
// from the output channel back to the caller waiting on that id. When the
// output channel ends, every caller still waiting gets a not-running error.
type dispatcher struct {
	id      WorkerID
	mu      sync.Mutex
	nextID  uint64
	pending map[uint64]chan response
	closed  bool
}

func newDispatcher(id WorkerID, out Channel[response]) *dispatcher {
	d := &dispatcher{id: id, pending: make(map[uint64]chan response)}
	go d.run(out)
	return d
}

// register reserves an id. The returned channel receives exactly one response.
func (d *dispatcher) register() (uint64, <-chan response, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return 0, nil, notRunningError{id: d.id}
	}
	d.nextID++
	ch := make(chan response, 1)
	d.pending[d.nextID] = ch
	return d.nextID, ch, nil
}

// forget drops an id whose caller stopped waiting; a late response is discarded.
func (d *dispatcher) forget(id uint64) {
	d.mu.Lock()
	delete(d.pending, id)
	d.mu.Unlock()
}

func (d *dispatcher) inflight() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

func (d *dispatcher) run(out Channel[response]) {
	for {
		resp, err := out.Recv(context.Background())
		if err != nil {
			d.failAll()
			return
		}
		d.mu.Lock()
		ch, ok := d.pending[resp.ID]
		delete(d.pending, resp.ID)
		d.mu.Unlock()
		if ok {
			ch <- resp
		}
	}
}

func (d *dispatcher) failAll() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	for id, ch := range d.pending {
		ch <- response{ID: id, Err: notRunningError{id: d.id}}
		delete(d.pending, id)
	}
}
