// Package events allows for the registering and receiving of events.
package events

import (
	"fmt"
	"sync"
)

// messageBuffer is the number of events a receiver may fall behind before
// events are dropped for it. Websocket sends can take long.
const messageBuffer = 100

// receiver is one registered channel and the number of events it missed.
type receiver struct {
	ch      chan string
	dropped int
}

// Events maintains a mapping of unique id and channels so goroutines
// can register and receive events.
type Events struct {
	mu     sync.RWMutex
	m      map[string]*receiver
	closed bool
}

// New constructs an events for registering and receiving events.
func New() *Events {
	return &Events{
		m: make(map[string]*receiver),
	}
}

// Shutdown closes and removes all channels that were provided by the call
// to Acquire. Channels acquired afterwards are returned closed.
func (evt *Events) Shutdown() {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	for id, r := range evt.m {
		delete(evt.m, id)
		close(r.ch)
	}
	evt.closed = true
}

// Acquire takes a unique id and returns a channel that can be used
// to receive events.
func (evt *Events) Acquire(id string) <-chan string {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	if evt.closed {
		ch := make(chan string)
		close(ch)
		return ch
	}

	if r, exists := evt.m[id]; exists {
		return r.ch
	}

	r := receiver{ch: make(chan string, messageBuffer)}
	evt.m[id] = &r

	return r.ch
}

// Release closes and removes the channel that was provided by the call to
// Acquire. It returns the number of events the receiver missed.
func (evt *Events) Release(id string) (int, error) {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	r, exists := evt.m[id]
	if !exists {
		return 0, fmt.Errorf("id %q does not exist", id)
	}

	delete(evt.m, id)
	close(r.ch)

	return r.dropped, nil
}

// Count returns the number of registered receivers.
func (evt *Events) Count() int {
	evt.mu.RLock()
	defer evt.mu.RUnlock()

	return len(evt.m)
}

// Send signals a message to every registered channel. Send will not block
// waiting for a receiver on any given channel.
func (evt *Events) Send(s string) {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	for _, r := range evt.m {
		select {
		case r.ch <- s:
		default:
			r.dropped++
		}
	}
}
