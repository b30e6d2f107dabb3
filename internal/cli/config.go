package cli

import (
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/twpayne/go-vfs"

	"gopheros/kernel/kfmt"
)

const (
	configName = "gopheros"
	envPrefix  = "GOPHEROS"
)

// Config holds the settings shared by all gopheros commands.
type Config struct {
	Debug   bool   `mapstructure:"debug"`
	Quiet   bool   `mapstructure:"quiet"`
	Logfile string `mapstructure:"logfile"`

	RSDP RSDPConfig `mapstructure:"rsdp"`

	Console ConsoleConfig `mapstructure:"console"`

	Fs     vfs.FS      `mapstructure:"-"`
	Logger kfmt.Logger `mapstructure:"-"`
}

// RSDPConfig configures the rsdp command.
type RSDPConfig struct {
	// Images lists physical memory images as "path" or "path@base".
	Images []string `mapstructure:"images"`

	// Region describes a bootloader-supplied RSDP region inside the loaded
	// images. A zero region selects the BIOS area scan.
	Region RegionSpec `mapstructure:"region"`

	// Output is one of text, yaml or dump.
	Output string `mapstructure:"output"`
}

// ConsoleConfig configures the console command.
type ConsoleConfig struct {
	SchemeID uint32 `mapstructure:"scheme-id"`
}

// hexAddressHook decodes strings such as "0xe0000" or "917504" into unsigned
// integer fields. Empty strings decode to zero.
func hexAddressHook() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if from.Kind() != reflect.String {
			return data, nil
		}

		switch to.Kind() {
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		default:
			return data, nil
		}

		s := strings.TrimSpace(data.(string))
		if s == "" {
			return uint64(0), nil
		}

		v, err := strconv.ParseUint(s, 0, to.Bits())
		if err != nil {
			return nil, fmt.Errorf("invalid address %q: %w", s, err)
		}

		return v, nil
	}
}

// regionSpecHook decodes "BASE:SIZE" strings into a RegionSpec.
func regionSpecHook() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if from.Kind() != reflect.String || to != reflect.TypeOf(RegionSpec{}) {
			return data, nil
		}

		return ParseRegionSpec(data.(string))
	}
}

// ReadConfig loads the configuration from configDir/gopheros.yaml (if
// present), GOPHEROS_* environment variables and the flags bound to viper,
// then sets up the logger.
func ReadConfig(fs vfs.FS, configDir string, stderr io.Writer) (*Config, error) {
	cfg := &Config{Fs: fs}

	if configDir != "" {
		viper.AddConfigPath(configDir)
		viper.SetConfigType("yaml")
		viper.SetConfigName(configName)

		if err := viper.ReadInConfig(); err != nil {
			if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
				return nil, NewFromError(err, ExitCodeBadConfig)
			}
		}
	}

	// If we expect to override nested keys (console.scheme-id) from the
	// environment, both separators must map to underscores.
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	// AutomaticEnv only applies to keys viper already knows about.
	for _, key := range []string{"rsdp.images", "rsdp.region", "rsdp.output", "console.scheme-id"} {
		_ = viper.BindEnv(key)
	}

	err := viper.Unmarshal(cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		regionSpecHook(),
		hexAddressHook(),
		mapstructure.StringToSliceHookFunc(","),
	)))
	if err != nil {
		return nil, NewFromError(err, ExitCodeBadConfig)
	}
	cfg.Fs = fs

	logger, err := newLogger(cfg, stderr)
	if err != nil {
		return nil, err
	}
	cfg.Logger = logger

	return cfg, nil
}

func newLogger(cfg *Config, stderr io.Writer) (kfmt.Logger, error) {
	logger := kfmt.NewLogger()

	// Set formatter so both file and stderr format are equal
	logger.SetFormatter(&logrus.TextFormatter{
		DisableColors: true,
		FullTimestamp: true,
	})

	if cfg.Debug {
		logger.SetLevel(kfmt.DebugLevel())
	}

	var out io.Writer = stderr
	if cfg.Quiet {
		out = ioutil.Discard
	}

	if cfg.Logfile != "" {
		f, err := cfg.Fs.OpenFile(cfg.Logfile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, NewFromError(fmt.Errorf("could not open %s for logging: %w", cfg.Logfile, err), ExitCodeBadConfig)
		}

		if cfg.Quiet { // if quiet is set, only log to the file
			out = f
		} else {
			out = io.MultiWriter(stderr, f)
		}
	}

	logger.SetOutput(out)
	return logger, nil
}
