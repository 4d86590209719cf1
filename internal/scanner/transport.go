package scanner

import (
	"errors"
	"io"
	"sync"

	"ballotscan/internal/scanner/protocol"
)

// Endpoints is the opaque byte-stream endpoint pair the USB host stack
// hands to this package: one outgoing bulk endpoint and two incoming ones
// (control responses and image data). Submitting the actual USB transfers
// is the caller's job; this package only frames and multiplexes bytes.
type Endpoints struct {
	Out       io.Writer
	InPrimary io.Reader
	InImage   io.Reader
}

type outboundFrame struct {
	id       uint64
	outgoing protocol.Outgoing
}

// Transport is C12: a worker that owns the claimed USB interface's three
// endpoints and multiplexes them onto channels, so the client above it is
// purely channel-driven and never touches USB directly.
type Transport struct {
	endpoints Endpoints

	outbound chan outboundFrame
	acks     chan uint64
	inbound  chan protocol.Incoming

	stop chan struct{}
	wg   sync.WaitGroup
}

// NewTransport constructs a Transport over the given endpoints. Call Start
// to begin pumping.
func NewTransport(endpoints Endpoints) *Transport {
	return &Transport{
		endpoints: endpoints,
		outbound:  make(chan outboundFrame, 16),
		acks:      make(chan uint64, 16),
		inbound:   make(chan protocol.Incoming, 64),
		stop:      make(chan struct{}),
	}
}

// Start launches the outbound pump and the two inbound poll loops.
func (t *Transport) Start() {
	t.wg.Add(3)
	go t.pumpOutbound()
	go t.pumpInbound(t.endpoints.InPrimary, false)
	go t.pumpInbound(t.endpoints.InImage, true)
}

// Stop signals all three workers to exit and joins them. In-flight reads
// on the endpoints unblock when the caller closes the underlying streams;
// Stop itself only stops new work from being queued.
func (t *Transport) Stop() {
	close(t.stop)
	t.wg.Wait()
}

// Send queues an outgoing message for transmission. The id surfaces on the
// Acks channel once the OUT transfer completes.
func (t *Transport) Send(id uint64, o protocol.Outgoing) {
	select {
	case t.outbound <- outboundFrame{id: id, outgoing: o}:
	case <-t.stop:
	}
}

// Acks reports the sequence id of every OUT transfer as it completes, in
// order.
func (t *Transport) Acks() <-chan uint64 { return t.acks }

// Inbound is the single scanner-to-host channel: both IN-primary and
// IN-image traffic lands here, in the order each endpoint produced it
// (cross-endpoint interleaving is not ordered beyond what the device
// itself provides).
func (t *Transport) Inbound() <-chan protocol.Incoming { return t.inbound }

func (t *Transport) pumpOutbound() {
	defer t.wg.Done()
	for {
		select {
		case <-t.stop:
			return
		case frame := <-t.outbound:
			_, err := t.endpoints.Out.Write(protocol.ToBytes(frame.outgoing))
			if err != nil {
				continue // a failed write gets no ack, so the caller's awaitAck times out
			}
			select {
			case t.acks <- frame.id:
			case <-t.stop:
				return
			}
		}
	}
}

func (t *Transport) pumpInbound(r io.Reader, isImage bool) {
	defer t.wg.Done()
	reader := protocol.NewFrameReader(r)
	for {
		select {
		case <-t.stop:
			return
		default:
		}

		body, err := reader.ReadFrame()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			continue
		}

		var incoming protocol.Incoming
		if isImage {
			incoming = protocol.ParseImageFrame(body)
		} else {
			incoming, err = protocol.Parse(body)
			if err != nil {
				continue
			}
		}

		select {
		case t.inbound <- incoming:
		case <-t.stop:
			return
		}
	}
}
