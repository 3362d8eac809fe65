//go:build !linux && !darwin && !freebsd

package pcap

import (
	"context"

	"github.com/google/gopacket"
	"github.com/pkg/errors"
)

type Handle struct{}

func (h *Handle) ReadPacketData() (data []byte, ci gopacket.CaptureInfo, err error) {
	return nil, ci, ErrNotSupported
}

func (h *Handle) Close() error {
	return nil
}

func (h *Handle) LinkType() uint32 {
	return LinkTypeNull
}

func openLive(ctx context.Context, iface string, snaplen int32, promiscuous bool) (*Handle, error) {
	return nil, errors.Wrap(ErrNotSupported, iface)
}
