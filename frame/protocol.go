package frame

import "github.com/google/gopacket/layers"

// Protocol is a reporting label for an EtherType. It is never used to drop
// or route frames.
type Protocol string

const (
	ProtocolIPv4    Protocol = "IPv4"
	ProtocolIPv6    Protocol = "IPv6"
	ProtocolARP     Protocol = "ARP"
	ProtocolUnknown Protocol = "Unknown"
)

func Classify(t layers.EthernetType) Protocol {
	switch t {
	case layers.EthernetTypeIPv4:
		return ProtocolIPv4
	case layers.EthernetTypeIPv6:
		return ProtocolIPv6
	case layers.EthernetTypeARP:
		return ProtocolARP
	default:
		return ProtocolUnknown
	}
}
