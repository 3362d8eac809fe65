package ethsniff

import (
	"net"
	"time"

	"github.com/google/gopacket/layers"

	"github.com/packetcap/go-ethsniff/frame"
)

// StartEvent is emitted once the channel is open, before the first receive.
type StartEvent struct {
	Interface   string
	IP          net.IP
	Promiscuous bool
}

// FrameEvent holds the header fields of one decoded frame. It holds no
// reference to the receive buffer.
type FrameEvent struct {
	Timestamp     time.Time
	Dst           frame.MAC
	Src           frame.MAC
	EtherType     layers.EthernetType
	Protocol      frame.Protocol
	Length        int
	PayloadLength int
}

// ErrorEvent is a recoverable failure inside the loop.
type ErrorEvent struct {
	Kind Kind
	Err  error
}

// StopEvent closes a run.
type StopEvent struct {
	Stats Stats
}

// Stats counts loop outcomes for one run.
type Stats struct {
	Frames        uint64
	ParseFailures uint64
	ReadFailures  uint64
}

// Reporter renders sniffer events. Calls come from the capture loop only.
type Reporter interface {
	Started(StartEvent)
	Frame(FrameEvent)
	Error(ErrorEvent)
	Stopped(StopEvent)
}

type nopReporter struct{}

func (nopReporter) Started(StartEvent) {}
func (nopReporter) Frame(FrameEvent)   {}
func (nopReporter) Error(ErrorEvent)   {}
func (nopReporter) Stopped(StopEvent)  {}
