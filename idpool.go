package spantree

import (
	"sync"

	"github.com/rs/xid"
)

// newXID is the default span id factory.
func newXID() string {
	return xid.New().String()
}

// idPool keeps a buffer of pre-generated span ids filled by a background goroutine.
type idPool struct {
	factory   func() string
	ids       chan string
	stopCh    chan struct{}
	closeOnce sync.Once
}

func newIDPool(capacity int, factory func() string) *idPool {
	if factory == nil {
		factory = newXID
	}
	p := &idPool{
		factory: factory,
		ids:     make(chan string, capacity),
		stopCh:  make(chan struct{}),
	}
	go p.refill()
	return p
}

// get takes a pooled id, generating one inline when the pool is empty.
func (p *idPool) get() string {
	select {
	case id := <-p.ids:
		return id
	default:
		return p.factory()
	}
}

func (p *idPool) refill() {
	for {
		id := p.factory()
		select {
		case p.ids <- id:
		case <-p.stopCh:
			return
		}
	}
}

// close stops the refill goroutine. Safe to call more than once.
func (p *idPool) close() {
	p.closeOnce.Do(func() {
		close(p.stopCh)
	})
}
