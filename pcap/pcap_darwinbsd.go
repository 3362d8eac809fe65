//go:build darwin || freebsd

package pcap

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/google/gopacket"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

const (
	enable = 1
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
	pollfd      []unix.PollFd
	buf         []byte
	// unread bpf records in buf[offset:filled]
	offset   int
	filled   int
	endian   binary.ByteOrder
	linkType uint32
}

// ReadPacketData blocks until one packet is available and returns it in a
// buffer owned by the caller. One read of the bpf device may hold several
// records; they are handed out one per call.
func (h *Handle) ReadPacketData() (data []byte, ci gopacket.CaptureInfo, err error) {
	if h.closed.Load() {
		return nil, ci, ErrHandleClosed
	}
	if h.offset >= h.filled {
		if err = h.fill(); err != nil {
			return nil, ci, err
		}
	}

	// separate the header and packet body
	if h.filled-h.offset < unix.SizeofBpfHdr {
		h.offset = h.filled
		return nil, ci, errors.New("truncated bpf header")
	}
	hdr := unix.BpfHdr{}
	buf := bytes.NewBuffer(h.buf[h.offset : h.offset+unix.SizeofBpfHdr])
	if err = binary.Read(buf, h.endian, &hdr); err != nil {
		h.offset = h.filled
		return nil, ci, errors.Wrap(err, "error reading bpf header")
	}
	start := h.offset + int(hdr.Hdrlen)
	end := start + int(hdr.Caplen)
	if end > h.filled {
		h.offset = h.filled
		return nil, ci, errors.New("truncated bpf record")
	}
	h.offset += bpfWordAlign(int(hdr.Hdrlen) + int(hdr.Caplen))

	data = make([]byte, hdr.Caplen)
	copy(data, h.buf[start:end])
	ci = gopacket.CaptureInfo{
		Timestamp:      time.Unix(int64(hdr.Tstamp.Sec), int64(hdr.Tstamp.Usec)*1000),
		CaptureLength:  int(hdr.Caplen),
		Length:         int(hdr.Datalen),
		InterfaceIndex: h.index,
	}
	return data, ci, nil
}

func (h *Handle) fill() error {
	pfd := h.pollfd
	for {
		pfd[0].Revents = 0
		pfd[1].Revents = 0
		_, err := unix.Poll(pfd, -1)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return errors.Wrap(err, "error polling bpf device")
		}
		if pfd[1].Revents != 0 {
			return interrupted(h.context)
		}
		// POLLERR goes on to the read, which reports and clears the error
		if pfd[0].Revents&(unix.POLLIN|unix.POLLERR) != 0 {
			break
		}
		if pfd[0].Revents&(unix.POLLHUP|unix.POLLNVAL) != 0 {
			return errors.Errorf("bpf poll events %#x", pfd[0].Revents)
		}
	}

	read, err := unix.Read(h.fd, h.buf)
	if err != nil {
		return errors.Wrap(err, "error reading")
	}
	if read <= 0 {
		return errors.New("read no packets")
	}
	h.offset = 0
	h.filled = read
	return nil
}

func bpfWordAlign(x int) int {
	return (x + unix.BPF_ALIGNMENT - 1) &^ (unix.BPF_ALIGNMENT - 1)
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
		err = unix.Close(h.fd)
		_ = unix.Close(h.wake[0])
		_ = unix.Close(h.wake[1])
	})
	return err
}

func (h *Handle) notify() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed.Load() {
		return
	}
	_, _ = unix.Write(h.wake[1], []byte{1})
}

func openLive(ctx context.Context, iface string, snaplen int32, promiscuous bool) (handle *Handle, _ error) {
	var (
		fd  = -1
		err error
	)
	logger := log.WithFields(log.Fields{
		"iface":       iface,
		"snaplen":     snaplen,
		"promiscuous": promiscuous,
	})
	logger.Debug("started")
	h := &Handle{
		context:     ctx,
		snaplen:     snaplen,
		promiscuous: promiscuous,
	}
	in, err := net.InterfaceByName(iface)
	if err != nil {
		return nil, errors.Wrapf(err, "unknown interface %s", iface)
	}
	h.index = in.Index
	// we need to know our endianness
	endianness, err := getEndianness()
	if err != nil {
		return nil, err
	}
	h.endian = endianness

	// open the bpf device
	for i := 0; i < 255; i++ {
		dev := fmt.Sprintf("/dev/bpf%d", i)
		fd, err = unix.Open(dev, unix.O_RDWR|unix.O_CLOEXEC, 0000)
		if fd > -1 {
			break
		}
		if err != nil && err == unix.EBUSY {
			continue
		}
		return nil, errors.Wrapf(err, "error opening device %s", dev)
	}
	if fd <= -1 {
		return nil, errors.New("failed to get valid bpf device")
	}
	h.fd = fd
	fail := func(err error) (*Handle, error) {
		_ = unix.Close(fd)
		return nil, err
	}

	// set the options
	if err = SetBpfInterface(fd, iface); err != nil {
		return fail(errors.Wrap(err, "failed to set the BPF interface"))
	}
	if err = SetBpfHeadercmpl(fd, enable); err != nil {
		return fail(errors.Wrap(err, "failed to set the BPF header complete option"))
	}
	if err = SetBpfMonitor(fd, enable); err != nil {
		return fail(errors.Wrap(err, "failed to set the BPF monitor option"))
	}
	if err = SetBpfImmediate(fd, enable); err != nil {
		return fail(errors.Wrap(err, "failed to set the BPF immediate return option"))
	}
	linkType, err := getLinkType(fd)
	if err != nil {
		return fail(err)
	}
	if linkType != LinkTypeEthernet {
		return fail(errors.Wrapf(ErrUnsupportedLinkType, "%s has dlt %d", iface, linkType))
	}
	h.linkType = linkType
	if promiscuous {
		if err = SetBpfPromisc(fd); err != nil {
			return fail(errors.Wrapf(err, "failed to set promiscuous for %s", iface))
		}
	}
	size, err := BpfBuflen(fd)
	if err != nil {
		return fail(errors.Wrap(err, "failed to read buffer length"))
	}
	h.buf = make([]byte, size)

	if err = unix.Pipe(h.wake[:]); err != nil {
		return fail(errors.Wrap(err, "wake pipe"))
	}
	_ = unix.SetNonblock(h.wake[0], true)
	_ = unix.SetNonblock(h.wake[1], true)
	h.pollfd = []unix.PollFd{
		{Fd: int32(fd), Events: unix.POLLIN},
		{Fd: int32(h.wake[0]), Events: unix.POLLIN},
	}
	h.stopWake = context.AfterFunc(ctx, h.notify)

	logger.Debug("opened")
	return h, nil
}

// because they deprecated all of the below from "syscall" and redirected to "golang.org/x/net/bpf" but did not
// create a replacement. Sigh.

type ivalue struct {
	name  [unix.IFNAMSIZ]byte
	value int16
}

func SetBpfInterface(fd int, name string) error {
	var iv ivalue
	copy(iv.name[:], []byte(name))
	return ioctlPtr(fd, unix.BIOCSETIF, unsafe.Pointer(&iv))
}

func SetBpfHeadercmpl(fd, m int) error {
	return unix.IoctlSetPointerInt(fd, unix.BIOCSHDRCMPLT, m)
}

func SetBpfImmediate(fd, m int) error {
	return unix.IoctlSetPointerInt(fd, unix.BIOCIMMEDIATE, m)
}

func SetBpfMonitor(fd, m int) error {
	return unix.IoctlSetPointerInt(fd, unix.BIOCSSEESENT, m)
}

func SetBpfPromisc(fd int) error {
	return ioctlPtr(fd, unix.BIOCPROMISC, nil)
}

func BpfBuflen(fd int) (int, error) {
	return unix.IoctlGetInt(fd, unix.BIOCGBLEN)
}

func ioctlPtr(fd, arg int, valPtr unsafe.Pointer) error {
	//nolint:staticcheck // unix.SYS_IOCTL is deprecated, but golang does not provide a better alternative
	// as of this writing for passing pointers
	_, _, errno := unix.RawSyscall(unix.SYS_IOCTL, uintptr(fd), uintptr(arg), uintptr(valPtr))
	if errno != 0 {
		return fmt.Errorf("error: %d", errno)
	}
	return nil
}

func getLinkType(fd int) (uint32, error) {
	linkType, err := unix.IoctlGetInt(fd, unix.BIOCGDLT)
	if err != nil {
		return 0xffffffff, errors.Wrap(err, "failed to get link type")
	}
	return uint32(linkType), nil
}

// LinkType return the link type, compliant with pcap-linktype(7) and http://www.tcpdump.org/linktypes.html.
func (h *Handle) LinkType() uint32 {
	return h.linkType
}
