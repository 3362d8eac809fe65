package ethsniff

import (
	"github.com/pkg/errors"
)

// Kind classifies sniffer failures.
type Kind uint8

const (
	KindUnknown Kind = iota
	// InterfaceNotFound no non-loopback interface owns the target address
	InterfaceNotFound
	// ChannelCreationFailed the live capture could not be opened
	ChannelCreationFailed
	// UnsupportedChannelType the opened channel is not Ethernet framed
	UnsupportedChannelType
	// SignalHandlerSetupFailed the interrupt handler could not be installed
	SignalHandlerSetupFailed
	// PacketReadFailed one receive failed while running
	PacketReadFailed
	// FrameParseFailed a received buffer is not a valid Ethernet frame
	FrameParseFailed
)

var kindNames = map[Kind]string{
	KindUnknown:              "unknown",
	InterfaceNotFound:        "interface not found",
	ChannelCreationFailed:    "channel creation failed",
	UnsupportedChannelType:   "unsupported channel type",
	SignalHandlerSetupFailed: "signal handler setup failed",
	PacketReadFailed:         "packet read failed",
	FrameParseFailed:         "frame parse failed",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return kindNames[KindUnknown]
}

// Fatal reports whether errors of this kind abort startup. The others are
// reported and the loop keeps going.
func (k Kind) Fatal() bool {
	switch k {
	case InterfaceNotFound, ChannelCreationFailed, UnsupportedChannelType, SignalHandlerSetupFailed:
		return true
	default:
		return false
	}
}

// Error carries a Kind and the underlying cause.
type Error struct {
	Kind Kind
	Err  error
}

func newError(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Cause is used by errors.Cause
func (e *Error) Cause() error {
	return e.Err
}

// KindOf returns the Kind of the first *Error in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
