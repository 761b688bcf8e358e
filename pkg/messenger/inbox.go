package messenger

import (
	"sync"

	"github.com/openprojection/headunit-go/pkg/wire"
)

// inbox queues reassembled messages for one channel until Receive
// collects them. A failed inbox keeps delivering queued messages first
// and then returns its error to every further Receive.
type inbox struct {
	mu     sync.Mutex
	queue  []*wire.Message
	err    error
	notify chan struct{}
}

func newInbox() *inbox {
	return &inbox{notify: make(chan struct{}, 1)}
}

// signal posts a wakeup without blocking; a pending token is enough.
func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

func (ib *inbox) push(msg *wire.Message) {
	ib.mu.Lock()
	ib.queue = append(ib.queue, msg)
	ib.mu.Unlock()
	signal(ib.notify)
}

// fail marks the inbox broken. The first error sticks.
func (ib *inbox) fail(err error) {
	ib.mu.Lock()
	if ib.err == nil {
		ib.err = err
	}
	ib.mu.Unlock()
	signal(ib.notify)
}

// pop removes the oldest queued message, or reports the sticky error
// once the queue is drained.
func (ib *inbox) pop() (*wire.Message, error, bool) {
	ib.mu.Lock()
	defer ib.mu.Unlock()
	if len(ib.queue) > 0 {
		msg := ib.queue[0]
		ib.queue = ib.queue[1:]
		if len(ib.queue) > 0 || ib.err != nil {
			signal(ib.notify)
		}
		return msg, nil, true
	}
	if ib.err != nil {
		return nil, ib.err, true
	}
	return nil, nil, false
}
