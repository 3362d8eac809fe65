package iface

import (
	"net"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ips(addrs ...string) []net.IP {
	out := make([]net.IP, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, net.ParseIP(a))
	}
	return out
}

func hostInterfaces() []Interface {
	return []Interface{
		{Name: "lo", Index: 1, Loopback: true, Up: true, Addrs: ips("127.0.0.1", "::1", "10.0.0.99")},
		{Name: "eth0", Index: 2, Up: true, Addrs: ips("10.16.26.148", "fe80::1")},
		{Name: "eth1", Index: 3, Up: false, Addrs: ips("192.168.1.10")},
		{Name: "wlan0", Index: 4, Up: true},
	}
}

func TestResolveFromSingleMatch(t *testing.T) {
	got, err := ResolveFrom(hostInterfaces(), "10.16.26.148")
	require.NoError(t, err)
	assert.Equal(t, "eth0", got.Name)
	assert.Equal(t, 2, got.Index)
}

func TestResolveFromLoopbackOnly(t *testing.T) {
	for _, target := range []string{"127.0.0.1", "10.0.0.99"} {
		got, err := ResolveFrom(hostInterfaces(), target)
		assert.Nil(t, got)
		assert.True(t, errors.Is(err, ErrNotFound), target)
	}
}

func TestResolveFromNoMatch(t *testing.T) {
	got, err := ResolveFrom(hostInterfaces(), "172.16.0.1")
	assert.Nil(t, got)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Contains(t, err.Error(), "172.16.0.1")

	_, err = ResolveFrom(nil, "10.16.26.148")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestResolveFromExactText(t *testing.T) {
	tests := []string{
		"10.16.26.14",
		"10.16.26.1480",
		"10.16.26.0/24",
		"010.016.026.148",
		" 10.16.26.148",
	}
	for _, target := range tests {
		_, err := ResolveFrom(hostInterfaces(), target)
		assert.True(t, errors.Is(err, ErrNotFound), "%q should not match", target)
	}
}

func TestResolveFromIgnoresUpState(t *testing.T) {
	got, err := ResolveFrom(hostInterfaces(), "192.168.1.10")
	require.NoError(t, err)
	assert.Equal(t, "eth1", got.Name)
	assert.False(t, got.Up)
}

func TestResolveFromFirstWins(t *testing.T) {
	ifaces := []Interface{
		{Name: "eth0", Addrs: ips("10.1.1.1")},
		{Name: "eth0.100", Addrs: ips("10.1.1.1")},
	}
	got, err := ResolveFrom(ifaces, "10.1.1.1")
	require.NoError(t, err)
	assert.Equal(t, "eth0", got.Name)
}

func TestResolveFromReturnsCopy(t *testing.T) {
	ifaces := hostInterfaces()
	got, err := ResolveFrom(ifaces, "10.16.26.148")
	require.NoError(t, err)
	got.Name = "changed"
	assert.Equal(t, "eth0", ifaces[1].Name)
}

func TestPrimaryIP(t *testing.T) {
	ifc := Interface{Addrs: ips("0.0.0.0", "10.16.26.148")}
	assert.Equal(t, "10.16.26.148", ifc.PrimaryIP().String())

	empty := Interface{}
	assert.Nil(t, empty.PrimaryIP())
}
