//go:build linux

package iface

import (
	"net"

	"github.com/pkg/errors"
	"github.com/vishvananda/netlink"
)

func list() ([]Interface, error) {
	links, err := netlink.LinkList()
	if err != nil {
		return nil, errors.Wrap(err, "netlink list")
	}

	out := make([]Interface, 0, len(links))
	for _, l := range links {
		addrs, err := netlink.AddrList(l, netlink.FAMILY_ALL)
		if err != nil {
			return nil, errors.Wrapf(err, "addr list %s", l.Attrs().Name)
		}
		out = append(out, fromNetlink(l, addrs))
	}
	return out, nil
}

func fromNetlink(l netlink.Link, addrs []netlink.Addr) Interface {
	attrs := l.Attrs()
	ifc := Interface{
		Name:     attrs.Name,
		Index:    attrs.Index,
		Loopback: attrs.Flags&net.FlagLoopback != 0,
		Up:       attrs.Flags&net.FlagUp != 0,
	}
	if len(attrs.HardwareAddr) > 0 {
		ifc.HardwareAddr = append(net.HardwareAddr(nil), attrs.HardwareAddr...)
	}
	for _, a := range addrs {
		if a.IPNet == nil {
			continue
		}
		ifc.Addrs = append(ifc.Addrs, a.IP)
	}
	return ifc
}
