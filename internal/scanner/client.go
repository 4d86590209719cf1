package scanner

import (
	"sync"
	"sync/atomic"
	"time"

	"ballotscan/internal/scanner/protocol"
)

// Matcher inspects one inbound packet for a pending call. Returning
// matched=true completes the call with value; returning matched=false asks
// the client to preserve the packet (in the unhandled queue, in arrival
// order) for a later call.
type Matcher func(protocol.Incoming) (value any, matched bool)

// Client is C11: it owns the outbound/ack/inbound queues conceptually
// (delegated to a Transport) plus an unhandled-packet queue, which has no
// size cap (every rejected packet is kept until a call or a drain takes it), and
// correlates requests with responses while preserving unsolicited events.
//
// A single logical caller is expected to drive a Client; it is not meant
// to be called concurrently from multiple goroutines.
type Client struct {
	transport *Transport

	mu        sync.Mutex
	unhandled []protocol.Incoming

	nextSeq uint64
}

// NewClient wraps an already-started Transport.
func NewClient(transport *Transport) *Client {
	return &Client{transport: transport}
}

func (c *Client) allocSeq() uint64 {
	return atomic.AddUint64(&c.nextSeq, 1)
}

// isUnsolicited reports whether a packet is one of the event/image
// notifications that may arrive at any time and must never be discarded
// by the stale-solicited sweep.
func isUnsolicited(p protocol.Incoming) bool {
	switch p.(type) {
	case protocol.Event, protocol.ImageData:
		return true
	default:
		return false
	}
}

// dropStaleSolicited discards every solicited (non-event, non-image)
// packet left over from an earlier aborted call, on the principle that at
// most one outstanding command expects a given response shape.
func (c *Client) dropStaleSolicited() {
	c.mu.Lock()
	defer c.mu.Unlock()

	kept := c.unhandled[:0]
	for _, p := range c.unhandled {
		if isUnsolicited(p) {
			kept = append(kept, p)
		}
	}
	c.unhandled = kept
}

// Call sends req and blocks until match accepts a response or deadline
// passes. It implements the full request-response contract: stale-sweep,
// send, await ack, then scan-unhandled-then-await-inbound against match.
func (c *Client) Call(req protocol.Outgoing, match Matcher, deadline time.Time) (any, error) {
	c.dropStaleSolicited()

	id := c.allocSeq()
	c.transport.Send(id, req)

	if err := c.awaitAck(id, deadline); err != nil {
		return nil, err
	}

	return c.recvMatching(match, deadline)
}

func (c *Client) awaitAck(id uint64, deadline time.Time) error {
	timer := time.NewTimer(time.Until(deadline))
	defer timer.Stop()

	for {
		select {
		case acked, ok := <-c.transport.Acks():
			if !ok {
				return newClientError(ErrUsb, nil)
			}
			if acked == id {
				return nil
			}
		case <-timer.C:
			return newClientError(ErrRecvTimeout, nil)
		}
	}
}

// recvMatching is non-lossy: any packet match rejects is pushed back into
// the unhandled queue in arrival order, so a later call can still find it.
func (c *Client) recvMatching(match Matcher, deadline time.Time) (any, error) {
	if value, ok := c.scanUnhandled(match); ok {
		return value, nil
	}

	timer := time.NewTimer(time.Until(deadline))
	defer timer.Stop()

	for {
		select {
		case p, ok := <-c.transport.Inbound():
			if !ok {
				return nil, newClientError(ErrUsb, nil)
			}
			if value, matched := match(p); matched {
				return value, nil
			}
			c.pushUnhandled(p)
		case <-timer.C:
			return nil, newClientError(ErrRecvTimeout, nil)
		}
	}
}

func (c *Client) scanUnhandled(match Matcher) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, p := range c.unhandled {
		if value, matched := match(p); matched {
			c.unhandled = append(c.unhandled[:i], c.unhandled[i+1:]...)
			return value, true
		}
	}
	return nil, false
}

func (c *Client) pushUnhandled(p protocol.Incoming) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unhandled = append(c.unhandled, p)
}

// DrainUnsolicited removes and returns every unsolicited event/image
// packet currently queued, for a caller that wants to process them out of
// band rather than via Call's matcher.
func (c *Client) DrainUnsolicited() []protocol.Incoming {
	c.mu.Lock()
	defer c.mu.Unlock()

	var drained []protocol.Incoming
	kept := c.unhandled[:0]
	for _, p := range c.unhandled {
		if isUnsolicited(p) {
			drained = append(drained, p)
		} else {
			kept = append(kept, p)
		}
	}
	c.unhandled = kept
	return drained
}
