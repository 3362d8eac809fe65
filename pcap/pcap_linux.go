//go:build linux

package pcap

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/gopacket"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	syscall "golang.org/x/sys/unix"
)

type Handle struct {
	context     context.Context
	stopWake    func() bool
	close       sync.Once
	mu          sync.Mutex
	closed      atomic.Bool
	promiscuous bool
	index       int
	snaplen     int32
	fd          int
	wake        [2]int
	pollfd      []syscall.PollFd
	// reused by every receive, frames are copied out of it
	buf      []byte
	linkType uint32
}

// ReadPacketData blocks until one packet is available and returns it in a
// buffer owned by the caller.
func (h *Handle) ReadPacketData() (data []byte, ci gopacket.CaptureInfo, err error) {
	if h.closed.Load() {
		return nil, ci, ErrHandleClosed
	}
	if err = h.wait(); err != nil {
		return nil, ci, err
	}

	// MSG_TRUNC makes packet sockets report the on-wire length
	read, _, err := syscall.Recvfrom(h.fd, h.buf, syscall.MSG_TRUNC)
	if err != nil {
		// a pending socket error such as ENETDOWN is returned and cleared here
		return nil, ci, errors.Wrap(err, "error reading")
	}
	caplen := read
	if caplen > len(h.buf) {
		caplen = len(h.buf)
	}
	data = make([]byte, caplen)
	copy(data, h.buf[:caplen])
	ci = gopacket.CaptureInfo{
		Timestamp:      time.Now(),
		CaptureLength:  caplen,
		Length:         read,
		InterfaceIndex: h.index,
	}
	return data, ci, nil
}

// wait polls the socket and the wake pipe until one of them is readable.
// POLLERR counts as readable: only a receive consumes the socket error, and
// polling again before that would return at once.
func (h *Handle) wait() error {
	for {
		h.pollfd[0].Revents = 0
		h.pollfd[1].Revents = 0
		_, err := syscall.Poll(h.pollfd, -1)
		if err == syscall.EINTR {
			// the runtime preempts with signals, poll is not restarted
			continue
		}
		if err != nil {
			return errors.Wrap(err, "error polling socket")
		}
		if h.pollfd[1].Revents != 0 {
			return interrupted(h.context)
		}
		ev := h.pollfd[0].Revents
		if ev&(syscall.POLLIN|syscall.POLLERR) != 0 {
			return nil
		}
		if ev&(syscall.POLLHUP|syscall.POLLNVAL) != 0 {
			return errors.Errorf("socket poll events %#x", ev)
		}
	}
}

// Close close sockets and release resources
// Close is idempotent, and uses sync.Once to ensure it only runs once.
func (h *Handle) Close() error {
	var err error
	h.close.Do(func() {
		if h.stopWake != nil {
			h.stopWake()
		}
		h.mu.Lock()
		defer h.mu.Unlock()
		h.closed.Store(true)
		err = syscall.Close(h.fd)
		_ = syscall.Close(h.wake[0])
		_ = syscall.Close(h.wake[1])
		log.WithField("index", h.index).Debug("handle closed")
	})
	return err
}

// LinkType return the link type, compliant with pcap-linktype(7) and http://www.tcpdump.org/linktypes.html.
func (h *Handle) LinkType() uint32 {
	return h.linkType
}

func (h *Handle) notify() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed.Load() {
		return
	}
	_, _ = syscall.Write(h.wake[1], []byte{1})
}

func openLive(ctx context.Context, iface string, snaplen int32, promiscuous bool) (handle *Handle, _ error) {
	logger := log.WithFields(log.Fields{
		"iface":       iface,
		"snaplen":     snaplen,
		"promiscuous": promiscuous,
	})
	logger.Debug("started")

	in, err := net.InterfaceByName(iface)
	if err != nil {
		return nil, errors.Wrapf(err, "unknown interface %s", iface)
	}

	// protocol 0 receives nothing until bind sets ETH_P_ALL for the one
	// interface, so no frames from other interfaces queue up in between
	fd, err := syscall.Socket(syscall.AF_PACKET, syscall.SOCK_RAW|syscall.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, errors.Wrap(err, "failed opening raw socket")
	}
	h := &Handle{
		context:     ctx,
		snaplen:     snaplen,
		buf:         make([]byte, snaplen),
		fd:          fd,
		index:       in.Index,
		promiscuous: promiscuous,
		wake:        [2]int{-1, -1},
	}
	fail := func(err error) (*Handle, error) {
		_ = syscall.Close(fd)
		if h.wake[0] >= 0 {
			_ = syscall.Close(h.wake[0])
			_ = syscall.Close(h.wake[1])
		}
		return nil, err
	}

	// create the sockaddr_ll and bind to it - remember to switch to network
	// byte order for the protocol
	sa := syscall.SockaddrLinklayer{
		Protocol: htons(syscall.ETH_P_ALL),
		Ifindex:  in.Index,
	}
	if err = syscall.Bind(fd, &sa); err != nil {
		return fail(errors.Wrapf(err, "failed to bind to %s", iface))
	}

	bound, err := syscall.Getsockname(fd)
	if err != nil {
		return fail(errors.Wrap(err, "getsockname"))
	}
	ll, ok := bound.(*syscall.SockaddrLinklayer)
	if !ok || ll.Hatype != syscall.ARPHRD_ETHER {
		var hatype uint16
		if ll != nil {
			hatype = ll.Hatype
		}
		return fail(errors.Wrapf(ErrUnsupportedLinkType, "%s has hardware type %d", iface, hatype))
	}
	h.linkType = LinkTypeEthernet

	if promiscuous {
		mreq := syscall.PacketMreq{
			Ifindex: int32(in.Index),
			Type:    syscall.PACKET_MR_PROMISC,
		}
		if err = syscall.SetsockoptPacketMreq(fd, syscall.SOL_PACKET, syscall.PACKET_ADD_MEMBERSHIP, &mreq); err != nil {
			return fail(errors.Wrapf(err, "failed to set promiscuous for %s", iface))
		}
	}

	if err = syscall.Pipe2(h.wake[:], syscall.O_NONBLOCK|syscall.O_CLOEXEC); err != nil {
		h.wake = [2]int{-1, -1}
		return fail(errors.Wrap(err, "wake pipe"))
	}
	h.pollfd = []syscall.PollFd{
		{Fd: int32(fd), Events: syscall.POLLIN},
		{Fd: int32(h.wake[0]), Events: syscall.POLLIN},
	}
	h.stopWake = context.AfterFunc(ctx, h.notify)

	logger.WithField("index", in.Index).Debug("opened")
	return h, nil
}
