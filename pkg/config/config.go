package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/pkg/errors"
)

const EnvPrefix = "LINKDUPE_"

type Configuration struct {
	DryRun        bool   `koanf:"dry_run"`
	VerifyContent bool   `koanf:"verify_content"`
	MinSize       string `koanf:"min_size"`
	IgnoreSmall   bool   `koanf:"ignore_small"`
	Workers       int    `koanf:"workers"`
	OpenRate      int    `koanf:"open_rate"`

	Signature     SignatureConfig     `koanf:"signature"`
	Canonical     CanonicalConfig     `koanf:"canonical"`
	Filters       FilterConfiguration `koanf:"filters"`
	Notifications NotificationsConfig `koanf:"notifications"`
}

type SignatureConfig struct {
	Strategy string `koanf:"strategy"`
	Window   int64  `koanf:"window"`
	Samples  int    `koanf:"samples"`
}

type CanonicalConfig struct {
	Order []string `koanf:"order"`
}

type FilterConfiguration struct {
	// Exclude holds expressions evaluated against every file.
	Exclude []string `koanf:"exclude"`
	// ExcludePaths holds regular expressions matched against full paths.
	ExcludePaths []string `koanf:"exclude_paths"`
}

var (
	Config *Configuration
	K      = koanf.New(".")
)

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"dry_run":            false,
		"verify_content":     false,
		"min_size":           "1",
		"ignore_small":       false,
		"workers":            0,
		"open_rate":          0,
		"signature.strategy": "adaptive",
		"signature.window":   4096,
		"signature.samples":  4,
		"canonical.order":    []string{"links", "mtime", "path"},
	}
}

// Init loads the configuration file, if present, and the environment into
// the package level Config.
func Init(configFilePath string) error {
	cfg, err := load(K, configFilePath)
	if err != nil {
		return err
	}
	Config = cfg
	return nil
}

// Load reads configuration from defaults, configFilePath and the environment,
// in that order of precedence.
func Load(configFilePath string) (*Configuration, error) {
	return load(koanf.New("."), configFilePath)
}

func load(k *koanf.Koanf, configFilePath string) (*Configuration, error) {
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, errors.Wrap(err, "load defaults")
	}

	if configFilePath != "" {
		if _, err := os.Stat(configFilePath); err == nil {
			if err := k.Load(file.Provider(configFilePath), yaml.Parser()); err != nil {
				return nil, errors.Wrapf(err, "load config file %q", configFilePath)
			}
		} else if !os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "stat config file %q", configFilePath)
		}
	}

	// LINKDUPE_SIGNATURE__STRATEGY=sparse sets signature.strategy
	err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
	}), nil)
	if err != nil {
		return nil, errors.Wrap(err, "load environment")
	}

	cfg := &Configuration{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}

	if _, err := cfg.MinSizeBytes(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// MinSizeBytes parses MinSize, accepting plain byte counts and units such as
// "512KiB" or "1 MB".
func (c *Configuration) MinSizeBytes() (int64, error) {
	if strings.TrimSpace(c.MinSize) == "" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(c.MinSize)
	if err != nil {
		return 0, errors.Wrapf(err, "parse min_size %q", c.MinSize)
	}
	return int64(n), nil
}

// GetDefaultConfigDirectory returns the directory holding filename: the
// working directory when it already contains the file, the user config
// directory otherwise.
func GetDefaultConfigDirectory(app string, filename string) string {
	if _, err := os.Stat(filename); err == nil {
		if wd, err := os.Getwd(); err == nil {
			return wd
		}
	}

	dir, err := os.UserConfigDir()
	if err != nil {
		return "."
	}
	return filepath.Join(dir, app)
}
