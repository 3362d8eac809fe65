package report

import (
	"bytes"
	"net"
	"testing"

	"github.com/google/gopacket/layers"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/packetcap/go-ethsniff"
	"github.com/packetcap/go-ethsniff/frame"
)

var (
	_ ethsniff.Reporter = (*Console)(nil)
	_ ethsniff.Reporter = (*Log)(nil)
)

func sampleFrame() ethsniff.FrameEvent {
	return ethsniff.FrameEvent{
		Dst:           frame.MAC{0x00, 0x0c, 0x29, 0x68, 0x10, 0xf2},
		Src:           frame.MAC{0x11, 0x22, 0x33, 0x44, 0x55, 0x66},
		EtherType:     layers.EthernetTypeIPv4,
		Protocol:      frame.ProtocolIPv4,
		Length:        74,
		PayloadLength: 60,
	}
}

func TestConsoleFrame(t *testing.T) {
	var out, errOut bytes.Buffer
	c := NewConsole(&out, &errOut)

	c.Frame(sampleFrame())

	s := out.String()
	assert.Contains(t, s, "000c296810f2 (00:0c:29:68:10:f2)")
	assert.Contains(t, s, "112233445566 (11:22:33:44:55:66)")
	assert.Contains(t, s, "0x0800")
	assert.Contains(t, s, "IPv4")
	assert.Contains(t, s, "74 bytes (header 14 + payload 60)")
	assert.Empty(t, errOut.String())
}

func TestConsoleUnknownProtocol(t *testing.T) {
	var out bytes.Buffer
	c := NewConsole(&out, &out)

	e := sampleFrame()
	e.EtherType = 0x88cc
	e.Protocol = frame.ProtocolUnknown
	c.Frame(e)

	assert.Contains(t, out.String(), "unknown protocol")
	assert.Contains(t, out.String(), "0x88cc")
}

func TestConsoleStartedAndStopped(t *testing.T) {
	var out bytes.Buffer
	c := NewConsole(&out, &out)

	c.Started(ethsniff.StartEvent{Interface: "eth0", IP: net.ParseIP("10.16.26.148"), Promiscuous: true})
	c.Stopped(ethsniff.StopEvent{Stats: ethsniff.Stats{Frames: 3, ParseFailures: 1}})

	s := out.String()
	assert.Contains(t, s, "eth0")
	assert.Contains(t, s, "10.16.26.148")
	assert.Contains(t, s, "promiscuous")
	assert.Contains(t, s, "3 frames, 1 parse errors, 0 read errors")
}

func TestConsoleError(t *testing.T) {
	var out, errOut bytes.Buffer
	c := NewConsole(&out, &errOut)

	c.Error(ethsniff.ErrorEvent{Kind: ethsniff.PacketReadFailed, Err: errors.New("device busy")})

	assert.Empty(t, out.String())
	assert.Contains(t, errOut.String(), "packet read failed: device busy")
}

func TestLogReporter(t *testing.T) {
	logger, hook := test.NewNullLogger()
	l := NewLog(logger)

	l.Frame(sampleFrame())
	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, log.InfoLevel, entry.Level)
	assert.Equal(t, "00:0c:29:68:10:f2", entry.Data["dst"])
	assert.Equal(t, "11:22:33:44:55:66", entry.Data["src"])
	assert.Equal(t, uint16(0x0800), entry.Data["ethertype"])
	assert.Equal(t, "IPv4", entry.Data["protocol"])
	assert.Equal(t, 60, entry.Data["payload"])

	l.Error(ethsniff.ErrorEvent{Kind: ethsniff.FrameParseFailed, Err: frame.ErrTooShort})
	entry = hook.LastEntry()
	assert.Equal(t, log.WarnLevel, entry.Level)
	assert.Equal(t, "frame parse failed", entry.Data["kind"])
	assert.Equal(t, frame.ErrTooShort, entry.Data[log.ErrorKey])

	l.Stopped(ethsniff.StopEvent{Stats: ethsniff.Stats{Frames: 1}})
	assert.Equal(t, uint64(1), hook.LastEntry().Data["frames"])
	assert.Len(t, hook.AllEntries(), 3)
}

func TestNewLogDefaultsToStandardLogger(t *testing.T) {
	l := NewLog(nil)
	assert.Equal(t, log.StandardLogger(), l.logger)
}
