package pcap

import (
	"context"
	"encoding/binary"
	"unsafe"

	"github.com/pkg/errors"
)

const (
	// DefaultSnapLen is used when OpenLive is given a non-positive snaplen.
	DefaultSnapLen int32 = 65535
)

var (
	// ErrUnsupportedLinkType the device does not deliver Ethernet framed packets
	ErrUnsupportedLinkType = errors.New("link type is not ethernet")
	// ErrInterrupted a pending read was woken because the handle context ended
	ErrInterrupted = errors.New("read interrupted")
	// ErrHandleClosed read on a closed handle
	ErrHandleClosed = errors.New("handle closed")
	ErrNotSupported = errors.New("live capture not supported on this platform")
)

// OpenLive open a live capture on device. Returns a Handle that implements
// https://godoc.org/github.com/google/gopacket#PacketDataSource so you can pass it there.
// ReadPacketData blocks until a packet arrives; once ctx is done a blocked or
// later read returns ErrInterrupted.
func OpenLive(ctx context.Context, device string, snaplen int32, promiscuous bool) (*Handle, error) {
	if snaplen <= 0 {
		snaplen = DefaultSnapLen
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return openLive(ctx, device, snaplen, promiscuous)
}

func interrupted(ctx context.Context) error {
	if cause := context.Cause(ctx); cause != nil {
		return errors.Wrap(ErrInterrupted, cause.Error())
	}
	return ErrInterrupted
}

// getEndianness discover the endianness of our current system
func getEndianness() (binary.ByteOrder, error) {
	buf := [2]byte{}
	*(*uint16)(unsafe.Pointer(&buf[0])) = uint16(0xABCD)

	switch buf {
	case [2]byte{0xCD, 0xAB}:
		return binary.LittleEndian, nil
	case [2]byte{0xAB, 0xCD}:
		return binary.BigEndian, nil
	default:
		return nil, errors.New("could not determine native endianness")
	}
}

// htons converts to network byte order regardless of host endianness
func htons(in uint16) uint16 {
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], in)
	return *(*uint16)(unsafe.Pointer(&buf[0]))
}
