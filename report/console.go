// Package report renders sniffer events for an operator.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/packetcap/go-ethsniff"
	"github.com/packetcap/go-ethsniff/frame"
)

const rule = "======================================"

// Console writes one decorated block per frame, like a terminal sniffer.
type Console struct {
	out    io.Writer
	errOut io.Writer

	title lipgloss.Style
	label lipgloss.Style
	warn  lipgloss.Style
	ok    lipgloss.Style
}

// NewConsole renders frames to out and recoverable errors to errOut. Colors
// follow what the writers support, so plain buffers get plain text.
func NewConsole(out, errOut io.Writer) *Console {
	r := lipgloss.NewRenderer(out)
	er := lipgloss.NewRenderer(errOut)
	return &Console{
		out:    out,
		errOut: errOut,
		title:  r.NewStyle().Bold(true),
		label:  r.NewStyle().Foreground(lipgloss.Color("6")),
		ok:     r.NewStyle().Foreground(lipgloss.Color("2")).Bold(true),
		warn:   er.NewStyle().Foreground(lipgloss.Color("3")),
	}
}

func (c *Console) Started(e ethsniff.StartEvent) {
	ip := "-"
	if e.IP != nil {
		ip = e.IP.String()
	}
	mode := "normal"
	if e.Promiscuous {
		mode = "promiscuous (all frames seen on the interface)"
	}

	var b strings.Builder
	fmt.Fprintln(&b, c.ok.Render("✅ sniffer started"))
	fmt.Fprintf(&b, "📌 %s %s\n", c.label.Render("interface:"), e.Interface)
	fmt.Fprintf(&b, "📌 %s %s\n", c.label.Render("address:"), ip)
	fmt.Fprintf(&b, "📌 %s %s\n", c.label.Render("mode:"), mode)
	fmt.Fprintln(&b, "ℹ️  press Ctrl+C to stop")
	fmt.Fprintln(&b)
	_, _ = io.WriteString(c.out, b.String())
}

func (c *Console) Frame(e ethsniff.FrameEvent) {
	label := string(e.Protocol)
	if e.Protocol == frame.ProtocolUnknown {
		label = "unknown protocol"
	}

	var b strings.Builder
	fmt.Fprintln(&b, rule)
	fmt.Fprintln(&b, c.title.Render("📦 ethernet frame"))
	fmt.Fprintf(&b, "  - %s %s (%s)\n", c.label.Render("dst:"), e.Dst.Hex(), e.Dst)
	fmt.Fprintf(&b, "  - %s %s (%s)\n", c.label.Render("src:"), e.Src.Hex(), e.Src)
	fmt.Fprintf(&b, "  - %s %#04x %s\n", c.label.Render("ethertype:"), uint16(e.EtherType), e.EtherType)
	fmt.Fprintf(&b, "  - %s %s\n", c.label.Render("payload:"), label)
	fmt.Fprintf(&b, "  - %s %d bytes (header %d + payload %d)\n",
		c.label.Render("length:"), e.Length, e.Length-e.PayloadLength, e.PayloadLength)
	fmt.Fprintln(&b, rule)
	fmt.Fprintln(&b)
	_, _ = io.WriteString(c.out, b.String())
}

func (c *Console) Error(e ethsniff.ErrorEvent) {
	msg := e.Kind.String()
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	_, _ = fmt.Fprintln(c.errOut, c.warn.Render("⚠️  "+msg))
}

func (c *Console) Stopped(e ethsniff.StopEvent) {
	_, _ = fmt.Fprintf(c.out, "👋 sniffer stopped, resources released (%d frames, %d parse errors, %d read errors)\n",
		e.Stats.Frames, e.Stats.ParseFailures, e.Stats.ReadFailures)
}
