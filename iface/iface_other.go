//go:build !linux

package iface

import (
	"net"

	"github.com/pkg/errors"
)

func list() ([]Interface, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, errors.WithStack(err)
	}

	out := make([]Interface, 0, len(ifaces))
	for _, ni := range ifaces {
		addrs, err := ni.Addrs()
		if err != nil {
			return nil, errors.Wrapf(err, "addrs %s", ni.Name)
		}
		out = append(out, fromNet(ni, addrs))
	}
	return out, nil
}

func fromNet(ni net.Interface, addrs []net.Addr) Interface {
	ifc := Interface{
		Name:         ni.Name,
		Index:        ni.Index,
		HardwareAddr: ni.HardwareAddr,
		Loopback:     ni.Flags&net.FlagLoopback != 0,
		Up:           ni.Flags&net.FlagUp != 0,
	}
	for _, a := range addrs {
		switch v := a.(type) {
		case *net.IPNet:
			ifc.Addrs = append(ifc.Addrs, v.IP)
		case *net.IPAddr:
			ifc.Addrs = append(ifc.Addrs, v.IP)
		}
	}
	return ifc
}
