package main

import (
	"fmt"
	"io"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/packetcap/go-ethsniff"
	"github.com/packetcap/go-ethsniff/config"
	"github.com/packetcap/go-ethsniff/iface"
	"github.com/packetcap/go-ethsniff/report"
)

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var configFile string
	v := config.New()
	cmd := &cobra.Command{
		Use:           "ethsniff",
		Short:         "Capture ethernet frames on the interface owning the given IPv4 address",
		Long:          `Capture ethernet frames in promiscuous mode on the interface owning the given IPv4 address and print their header fields until interrupted`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(v, cmd.Flags(), configFile)
			if err != nil {
				log.Error(err)
				return err
			}
			setupLogging(cfg, stderr)

			if err := dumpInterfaces(cfg.ListInterfaces, stdout); err != nil {
				log.WithError(err).Error("listing interfaces")
				return err
			}
			if cfg.ListInterfaces {
				return nil
			}
			if err := cfg.Validate(); err != nil {
				log.Error(err)
				return err
			}

			var reporter ethsniff.Reporter = report.NewConsole(stdout, stderr)
			if cfg.Output == config.OutputLog {
				reporter = report.NewLog(log.StandardLogger())
			}

			sniffer := ethsniff.New(cfg.IP,
				ethsniff.WithReporter(reporter),
				ethsniff.WithSnapLen(cfg.SnapLen),
			)
			if err := sniffer.Run(); err != nil {
				log.WithField("kind", ethsniff.KindOf(err).String()).Error(err)
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringP("ip", "i", "", "IPv4 address of the interface to capture on, e.g. 10.16.26.148")
	cmd.Flags().String("output", config.OutputConsole, "frame output: console or log")
	cmd.Flags().Bool("debug", false, "print lots of debugging messages")
	cmd.Flags().String("log-format", "text", "log format: text or json")
	cmd.Flags().Int32("snaplen", 0, "bytes captured per frame, 0 for the default")
	cmd.Flags().Bool("list-interfaces", false, "print the host interfaces and exit")
	cmd.Flags().StringVar(&configFile, "config", "", "optional config file (yaml, json or toml)")
	return cmd
}

func setupLogging(cfg *config.Config, out io.Writer) {
	log.SetOutput(out)
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}
	if cfg.LogFormat == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}

// dumpInterfaces logs every enumerated interface at debug level, or prints
// them when toStdout is set.
func dumpInterfaces(toStdout bool, stdout io.Writer) error {
	if !toStdout && !log.IsLevelEnabled(log.DebugLevel) {
		return nil
	}
	all, err := iface.Interfaces()
	if err != nil {
		return err
	}
	for i, ifc := range all {
		if toStdout {
			fmt.Fprintf(stdout, "%d: name=%s index=%d up=%t loopback=%t ips=%v\n",
				i, ifc.Name, ifc.Index, ifc.Up, ifc.Loopback, ifc.Addrs)
			continue
		}
		log.WithFields(log.Fields{
			"n":        i,
			"name":     ifc.Name,
			"index":    ifc.Index,
			"up":       ifc.Up,
			"loopback": ifc.Loopback,
			"ips":      ifc.Addrs,
		}).Debug("interface")
	}
	return nil
}
