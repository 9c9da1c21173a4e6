package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/viper"
)

// Settings keys, shared by flags, FINCSV_* environment variables and the
// optional financecsv.yaml settings file.
const (
	KeyLogLevel  = "log.level"
	KeyLogFormat = "log.format"
	KeyCurrency  = "currency"
	KeyReport    = "report"
	KeyOut       = "out"
	KeyProgress  = "progress"
)

// Settings controls how a run behaves, independent of the rule config.
type Settings struct {
	LogLevel  log.Level
	LogFormat log.Formatter
	Currency  string
	Report    string // empty for no report
	OutDir    string // relative to the target directory unless absolute
	Progress  bool
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "text")
	v.SetDefault(KeyCurrency, "$")
	v.SetDefault(KeyReport, "")
	v.SetDefault(KeyOut, "out")
	v.SetDefault(KeyProgress, false)
}

// ReadSettings wires environment variables and the optional settings file
// into v and decodes the result. A missing settings file is not an error.
func ReadSettings(v *viper.Viper) (Settings, error) {
	v.SetEnvPrefix("FINCSV")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if v.ConfigFileUsed() == "" {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "financecsv"))
		}
		v.AddConfigPath(".")
		v.SetConfigName("financecsv")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Settings{}, fmt.Errorf("reading settings: %w", err)
		}
	}

	return DecodeSettings(v)
}

// DecodeSettings converts v's current values into Settings.
func DecodeSettings(v *viper.Viper) (Settings, error) {
	level, err := log.ParseLevel(v.GetString(KeyLogLevel))
	if err != nil {
		return Settings{}, fmt.Errorf("invalid log level %q", v.GetString(KeyLogLevel))
	}

	var format log.Formatter
	switch f := v.GetString(KeyLogFormat); f {
	case "text", "console":
		format = log.TextFormatter
	case "json":
		format = log.JSONFormatter
	case "logfmt":
		format = log.LogfmtFormatter
	default:
		return Settings{}, fmt.Errorf("invalid log format %q (want text, json or logfmt)", f)
	}

	out := v.GetString(KeyOut)
	if out == "" {
		return Settings{}, fmt.Errorf("output directory must not be empty")
	}

	return Settings{
		LogLevel:  level,
		LogFormat: format,
		Currency:  v.GetString(KeyCurrency),
		Report:    v.GetString(KeyReport),
		OutDir:    out,
		Progress:  v.GetBool(KeyProgress),
	}, nil
}
