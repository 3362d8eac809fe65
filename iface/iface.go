// Package iface enumerates host network adapters and picks the one that owns
// a given address.
package iface

import (
	"net"

	"github.com/pkg/errors"
)

var ErrNotFound = errors.New("no non-loopback interface owns address")

// Interface is a snapshot of one host adapter taken at enumeration time.
type Interface struct {
	Name         string
	Index        int
	HardwareAddr net.HardwareAddr
	Addrs        []net.IP
	Loopback     bool
	Up           bool
}

// PrimaryIP returns the first specified address of the interface, or nil.
func (i *Interface) PrimaryIP() net.IP {
	for _, ip := range i.Addrs {
		if !ip.IsUnspecified() {
			return ip
		}
	}
	return nil
}

// HasAddr reports whether one of the interface addresses renders exactly as
// target.
func (i *Interface) HasAddr(target string) bool {
	for _, ip := range i.Addrs {
		if ip.String() == target {
			return true
		}
	}
	return false
}

// Interfaces returns the host adapters in platform enumeration order.
func Interfaces() ([]Interface, error) {
	return list()
}

// Resolve selects the interface owning target among the host adapters.
func Resolve(target string) (*Interface, error) {
	all, err := Interfaces()
	if err != nil {
		return nil, errors.Wrap(err, "enumerate interfaces")
	}
	return ResolveFrom(all, target)
}

// ResolveFrom returns the first non-loopback interface in ifaces with an
// address equal to target. Matching is textual, so no prefix or subnet
// logic applies. Adapter up/down state is not consulted: a down adapter that
// owns the address is still selected.
func ResolveFrom(ifaces []Interface, target string) (*Interface, error) {
	for i := range ifaces {
		if ifaces[i].Loopback {
			continue
		}
		if ifaces[i].HasAddr(target) {
			found := ifaces[i]
			return &found, nil
		}
	}
	return nil, errors.Wrap(ErrNotFound, target)
}
