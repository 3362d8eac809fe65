package frame

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/pkg/errors"
)

// HeaderSize is the size of an untagged Ethernet II header.
const HeaderSize = 14

var ErrTooShort = errors.New("ethernet frame shorter than header")

// MAC ethernet hardware address
type MAC [6]byte

func (addr MAC) String() string {
	return fmt.Sprintf(
		"%02x:%02x:%02x:%02x:%02x:%02x",
		addr[0], addr[1], addr[2],
		addr[3], addr[4], addr[5],
	)
}

// Hex returns the address as bare lowercase hex, e.g. 000c296810f2.
func (addr MAC) Hex() string {
	return hex.EncodeToString(addr[:])
}

// Frame is a decoded Ethernet header. Payload aliases the buffer given to
// DecodeFromBytes and is only valid while that buffer is.
type Frame struct {
	// Destination host address
	Dst MAC
	// Source host address
	Src MAC
	// IP? ARP? etc
	EtherType layers.EthernetType
	Payload   []byte
	// Length of the whole frame, header included
	Length int
}

// Decode parses data as an Ethernet frame.
func Decode(data []byte) (*Frame, error) {
	f := &Frame{}
	if err := f.DecodeFromBytes(data, gopacket.NilDecodeFeedback); err != nil {
		return nil, err
	}
	return f, nil
}

// DecodeFromBytes implements gopacket.DecodingLayer. The EtherType field is
// taken verbatim, 802.3 length values included.
func (f *Frame) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	if len(data) < HeaderSize {
		df.SetTruncated()
		return errors.Wrapf(ErrTooShort, "got %d bytes", len(data))
	}

	copy(f.Dst[:], data[0:6])
	copy(f.Src[:], data[6:12])
	f.EtherType = layers.EthernetType(binary.BigEndian.Uint16(data[12:14]))
	f.Payload = data[HeaderSize:]
	f.Length = len(data)

	return nil
}

func (f *Frame) CanDecode() gopacket.LayerClass {
	return layers.LayerTypeEthernet
}

func (f *Frame) NextLayerType() gopacket.LayerType {
	return f.EtherType.LayerType()
}

func (f *Frame) LayerPayload() []byte {
	return f.Payload
}

// Protocol payload label of the frame.
func (f *Frame) Protocol() Protocol {
	return Classify(f.EtherType)
}
