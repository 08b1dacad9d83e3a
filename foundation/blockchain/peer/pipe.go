package peer

import (
	"sync"
)

// pipeEnd is one side of an in memory transport.
type pipeEnd struct {
	name   string
	in     <-chan []byte
	out    chan<- []byte
	closed chan struct{}
	once   *sync.Once
}

// Pipe returns the two ends of a synchronous in memory transport. A write
// blocks until the other end reads it. Closing either end closes both.
func Pipe() (Transport, Transport) {
	ab := make(chan []byte)
	ba := make(chan []byte)
	closed := make(chan struct{})
	var once sync.Once

	a := pipeEnd{name: "pipe:a", in: ba, out: ab, closed: closed, once: &once}
	b := pipeEnd{name: "pipe:b", in: ab, out: ba, closed: closed, once: &once}

	return &a, &b
}

// Read implements the Transport interface.
func (p *pipeEnd) Read() ([]byte, error) {
	select {
	case data := <-p.in:
		return data, nil
	case <-p.closed:
		return nil, ErrClosed
	}
}

// Write implements the Transport interface.
func (p *pipeEnd) Write(data []byte) error {
	select {
	case <-p.closed:
		return ErrClosed
	default:
	}

	select {
	case p.out <- data:
		return nil
	case <-p.closed:
		return ErrClosed
	}
}

// Close implements the Transport interface.
func (p *pipeEnd) Close() error {
	p.once.Do(func() {
		close(p.closed)
	})
	return nil
}

// RemoteAddr implements the Transport interface.
func (p *pipeEnd) RemoteAddr() string {
	return p.name
}
