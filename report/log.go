package report

import (
	log "github.com/sirupsen/logrus"

	"github.com/packetcap/go-ethsniff"
)

// Log emits each event as a structured logrus entry.
type Log struct {
	logger log.FieldLogger
}

// NewLog uses the standard logger when logger is nil.
func NewLog(logger log.FieldLogger) *Log {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Log{logger: logger}
}

func (l *Log) Started(e ethsniff.StartEvent) {
	l.logger.WithFields(log.Fields{
		"iface":       e.Interface,
		"ip":          e.IP.String(),
		"promiscuous": e.Promiscuous,
	}).Info("capture started")
}

func (l *Log) Frame(e ethsniff.FrameEvent) {
	l.logger.WithFields(log.Fields{
		"dst":       e.Dst.String(),
		"src":       e.Src.String(),
		"ethertype": uint16(e.EtherType),
		"protocol":  string(e.Protocol),
		"length":    e.Length,
		"payload":   e.PayloadLength,
	}).Info("frame")
}

func (l *Log) Error(e ethsniff.ErrorEvent) {
	l.logger.WithFields(log.Fields{
		"kind": e.Kind.String(),
	}).WithError(e.Err).Warn("recoverable error")
}

func (l *Log) Stopped(e ethsniff.StopEvent) {
	l.logger.WithFields(log.Fields{
		"frames":         e.Stats.Frames,
		"parse_failures": e.Stats.ParseFailures,
		"read_failures":  e.Stats.ReadFailures,
	}).Info("capture stopped")
}
