// Package config loads sniffer settings from flags, environment and an
// optional config file.
package config

import (
	"net"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const EnvPrefix = "ETHSNIFF"

const (
	OutputConsole = "console"
	OutputLog     = "log"
)

var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	// IP is the IPv4 address of the capture interface
	IP             string `mapstructure:"ip"`
	Output         string `mapstructure:"output"`
	Debug          bool   `mapstructure:"debug"`
	LogFormat      string `mapstructure:"log-format"`
	SnapLen        int32  `mapstructure:"snaplen"`
	ListInterfaces bool   `mapstructure:"list-interfaces"`
}

func Default() Config {
	return Config{
		Output:    OutputConsole,
		LogFormat: "text",
	}
}

// New returns a viper instance with defaults and env binding set up,
// e.g. ETHSNIFF_IP, ETHSNIFF_LOG_FORMAT.
func New() *viper.Viper {
	v := viper.New()
	d := Default()
	v.SetDefault("output", d.Output)
	v.SetDefault("log-format", d.LogFormat)
	v.SetDefault("snaplen", d.SnapLen)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// Load binds flags, reads file when not empty and decodes the result.
// Validation is left to the caller.
func Load(v *viper.Viper, flags *pflag.FlagSet, file string) (*Config, error) {
	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, errors.Wrap(err, "bind flags")
		}
	}
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config %s", file)
		}
		log.WithField("file", v.ConfigFileUsed()).Debug("config loaded")
	}

	cfg := Default()
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	return &cfg, nil
}

// Validate checks the settings the capture cannot start without.
func (c *Config) Validate() error {
	if c.IP == "" {
		return errors.Wrap(ErrInvalid, "ip is required")
	}
	ip := net.ParseIP(c.IP)
	if ip == nil || ip.To4() == nil || strings.Contains(c.IP, ":") {
		return errors.Wrapf(ErrInvalid, "ip %q is not an IPv4 address", c.IP)
	}
	switch c.Output {
	case OutputConsole, OutputLog:
	default:
		return errors.Wrapf(ErrInvalid, "output %q, want %s or %s", c.Output, OutputConsole, OutputLog)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return errors.Wrapf(ErrInvalid, "log-format %q, want text or json", c.LogFormat)
	}
	if c.SnapLen < 0 {
		return errors.Wrapf(ErrInvalid, "snaplen %d is negative", c.SnapLen)
	}
	return nil
}
