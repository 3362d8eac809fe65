//go:build linux

package pcap

import (
	"context"
	"net"
	"os"
	"path"
	"runtime"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func enableLogs() {
	log.SetReportCaller(true)
	log.SetLevel(log.TraceLevel)
	log.SetFormatter(&log.TextFormatter{
		DisableTimestamp: true,
		PadLevelText:     true,
		QuoteEmptyFields: true,
		CallerPrettyfier: func(f *runtime.Frame) (string, string) {
			s := strings.Split(f.Function, ".")
			funcName := s[len(s)-1] + "()"
			_, filename := path.Split(f.File)
			return funcName, filename + ":" + strconv.Itoa(f.Line)
		},
	})
}

func requireRoot(t *testing.T) {
	if os.Geteuid() != 0 {
		t.Skip("live capture needs CAP_NET_RAW")
	}
}

func loopbackName(t *testing.T) string {
	ifaces, err := net.Interfaces()
	require.NoError(t, err)
	for _, in := range ifaces {
		if in.Flags&net.FlagLoopback != 0 {
			return in.Name
		}
	}
	t.Skip("no loopback interface")
	return ""
}

func TestOpenLiveRejectsLoopback(t *testing.T) {
	requireRoot(t)
	enableLogs()

	h, err := OpenLive(context.Background(), loopbackName(t), 0, true)
	assert.Nil(t, h)
	assert.True(t, errors.Is(err, ErrUnsupportedLinkType), "got %v", err)
}

func TestCancelWakesPendingRead(t *testing.T) {
	requireRoot(t)
	enableLogs()

	ifaces, err := net.Interfaces()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var h *Handle
	for _, in := range ifaces {
		if in.Flags&net.FlagLoopback != 0 || in.Flags&net.FlagUp == 0 {
			continue
		}
		if h, err = OpenLive(ctx, in.Name, 1600, false); err == nil {
			t.Logf("capturing from interface '%s'", in.Name)
			break
		}
	}
	if h == nil {
		t.Skip("no ethernet interface to open")
	}
	defer h.Close()
	assert.Equal(t, LinkTypeEthernet, h.LinkType())
	assert.Equal(t, 1600, cap(h.buf))
	// opened with protocol 0, ETH_P_ALL only arrives with the bind
	sa, err := unix.Getsockname(h.fd)
	require.NoError(t, err)
	ll, ok := sa.(*unix.SockaddrLinklayer)
	require.True(t, ok)
	assert.Equal(t, htons(unix.ETH_P_ALL), ll.Protocol)
	assert.Equal(t, h.index, ll.Ifindex)

	done := make(chan error, 1)
	go func() {
		for {
			if _, _, err := h.ReadPacketData(); err != nil {
				done <- err
				return
			}
		}
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.True(t, errors.Is(err, ErrInterrupted), "got %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("read was not woken by cancel")
	}

	require.NoError(t, h.Close())
	assert.NoError(t, h.Close())
	_, _, err = h.ReadPacketData()
	assert.True(t, errors.Is(err, ErrHandleClosed))
}

// openDown opens the first non-loopback ethernet interface that is down.
func openDown(t *testing.T, ctx context.Context) *Handle {
	ifaces, err := net.Interfaces()
	require.NoError(t, err)
	for _, in := range ifaces {
		if in.Flags&net.FlagLoopback != 0 || in.Flags&net.FlagUp != 0 {
			continue
		}
		if h, err := OpenLive(ctx, in.Name, 1600, true); err == nil {
			t.Logf("capturing from down interface '%s'", in.Name)
			return h
		}
	}
	t.Skip("no down ethernet interface to open")
	return nil
}

func TestDownInterfaceReadBlocks(t *testing.T) {
	requireRoot(t)
	enableLogs()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := openDown(t, ctx)
	defer h.Close()

	errs := make(chan error, 16)
	go func() {
		for {
			_, _, err := h.ReadPacketData()
			if err == nil {
				continue
			}
			select {
			case errs <- err:
			default:
			}
			if errors.Is(err, ErrInterrupted) {
				return
			}
		}
	}()

	// a pending socket error is reported at most once, then reads block
	time.Sleep(300 * time.Millisecond)
	assert.LessOrEqual(t, len(errs), 1)

	cancel()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case err := <-errs:
			if errors.Is(err, ErrInterrupted) {
				return
			}
		case <-deadline:
			t.Fatal("read was not woken by cancel")
		}
	}
}
