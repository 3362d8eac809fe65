package ethsniff

import (
	"context"
	"os"

	"github.com/google/gopacket"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/packetcap/go-ethsniff/frame"
	"github.com/packetcap/go-ethsniff/iface"
	"github.com/packetcap/go-ethsniff/pcap"
	"github.com/packetcap/go-ethsniff/shutdown"
)

// State of a Sniffer run.
type State uint8

const (
	Initializing State = iota
	Running
	Draining
	Terminated
)

func (s State) String() string {
	switch s {
	case Initializing:
		return "initializing"
	case Running:
		return "running"
	case Draining:
		return "draining"
	case Terminated:
		return "terminated"
	default:
		return "invalid"
	}
}

// Channel is an open live capture. ReadPacketData blocks.
type Channel interface {
	gopacket.PacketDataSource
	Close() error
}

// Resolver picks the capture interface for an address.
type Resolver func(target string) (*iface.Interface, error)

// Opener opens a promiscuous Ethernet channel on ifc. Once ctx is done a
// pending ReadPacketData should return an error.
type Opener func(ctx context.Context, ifc *iface.Interface, snaplen int32) (Channel, error)

// OpenLive is the default Opener, backed by pcap.OpenLive.
func OpenLive(ctx context.Context, ifc *iface.Interface, snaplen int32) (Channel, error) {
	h, err := pcap.OpenLive(ctx, ifc.Name, snaplen, true)
	if err != nil {
		return nil, err
	}
	return h, nil
}

type Option func(*Sniffer)

// WithFlag shares an existing shutdown flag, e.g. to stop the run from code.
func WithFlag(f *shutdown.Flag) Option {
	return func(s *Sniffer) { s.flag = f }
}

func WithReporter(r Reporter) Option {
	return func(s *Sniffer) { s.reporter = r }
}

func WithResolver(r Resolver) Option {
	return func(s *Sniffer) { s.resolve = r }
}

func WithOpener(o Opener) Option {
	return func(s *Sniffer) { s.open = o }
}

// WithSnapLen sets the per-frame capture size; 0 keeps pcap.DefaultSnapLen.
func WithSnapLen(n int32) Option {
	return func(s *Sniffer) { s.snaplen = n }
}

// WithSignals replaces shutdown.DefaultSignals.
func WithSignals(sig ...os.Signal) Option {
	return func(s *Sniffer) { s.signals = sig }
}

// Sniffer captures on the interface owning one address. A Sniffer runs once.
type Sniffer struct {
	target   string
	snaplen  int32
	signals  []os.Signal
	flag     *shutdown.Flag
	reporter Reporter
	resolve  Resolver
	open     Opener
	state    State
	stats    Stats
	logger   *log.Entry
}

func New(target string, opts ...Option) *Sniffer {
	s := &Sniffer{
		target:   target,
		reporter: nopReporter{},
		resolve:  iface.Resolve,
		open:     OpenLive,
		logger:   log.WithField("target", target),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.flag == nil {
		s.flag = shutdown.NewFlag()
	}
	return s
}

func (s *Sniffer) State() State {
	return s.state
}

func (s *Sniffer) Stats() Stats {
	return s.stats
}

// Flag returns the shutdown flag observed by the loop.
func (s *Sniffer) Flag() *shutdown.Flag {
	return s.flag
}

func (s *Sniffer) transition(to State) {
	s.logger.WithFields(log.Fields{
		"from": s.state.String(),
		"to":   to.String(),
	}).Debug("state")
	s.state = to
}

// Run resolves the interface, installs the interrupt handler, opens the
// channel and captures until the shutdown flag is set. A startup failure is
// returned as *Error with a fatal Kind; a run ended by the flag returns nil.
func (s *Sniffer) Run() error {
	if s.state != Initializing {
		return errors.New("sniffer already ran")
	}

	ifc, err := s.resolve(s.target)
	if err != nil {
		s.state = Terminated
		return newError(InterfaceNotFound, err)
	}
	s.logger = s.logger.WithField("iface", ifc.Name)

	release, err := s.flag.Install(s.signals...)
	if err != nil {
		s.state = Terminated
		return newError(SignalHandlerSetupFailed, err)
	}
	defer release()

	ch, err := s.open(s.flag.Context(), ifc, s.snaplen)
	if err != nil {
		s.state = Terminated
		if errors.Is(err, pcap.ErrUnsupportedLinkType) {
			return newError(UnsupportedChannelType, err)
		}
		return newError(ChannelCreationFailed, err)
	}
	closed := false
	closeChannel := func() {
		if closed {
			return
		}
		closed = true
		if err := ch.Close(); err != nil {
			s.logger.WithError(err).Warn("closing channel")
		}
	}
	// released even when a reporter panics
	defer closeChannel()

	s.reporter.Started(StartEvent{
		Interface:   ifc.Name,
		IP:          ifc.PrimaryIP(),
		Promiscuous: true,
	})

	s.transition(Running)
	s.capture(ch)

	s.transition(Draining)
	closeChannel()
	s.reporter.Stopped(StopEvent{Stats: s.stats})

	s.transition(Terminated)
	return nil
}

func (s *Sniffer) capture(ch Channel) {
	for !s.flag.Stopped() {
		data, ci, err := ch.ReadPacketData()
		if err != nil {
			if s.flag.Stopped() {
				// the interrupt woke the receive
				s.logger.WithError(err).Debug("read ended by shutdown")
				return
			}
			s.stats.ReadFailures++
			s.reporter.Error(ErrorEvent{Kind: PacketReadFailed, Err: err})
			continue
		}
		s.handle(data, ci)
	}
}

func (s *Sniffer) handle(data []byte, ci gopacket.CaptureInfo) {
	f, err := frame.Decode(data)
	if err != nil {
		s.stats.ParseFailures++
		s.reporter.Error(ErrorEvent{Kind: FrameParseFailed, Err: err})
		return
	}
	s.stats.Frames++
	s.reporter.Frame(FrameEvent{
		Timestamp:     ci.Timestamp,
		Dst:           f.Dst,
		Src:           f.Src,
		EtherType:     f.EtherType,
		Protocol:      f.Protocol(),
		Length:        f.Length,
		PayloadLength: len(f.Payload),
	})
}
