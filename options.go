package pooledredis

import (
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/mediocregopher/pooledredis/trace"
)

// Options are used to tune a Client and its Pool. All fields are optional.
type Options struct {
	// PoolMaxSize is the most Handles the Client will have open at once.
	// Defaults to 10.
	PoolMaxSize int

	// PoolMinSize is the number of Handles kept open even when idle. Defaults
	// to 2 (or PoolMaxSize, if that is smaller), or pass -1 for none.
	PoolMinSize int

	// PoolIdleTimeout is how long a Handle above PoolMinSize may sit idle
	// before being closed. Defaults to 60 seconds, or pass -1 to never close
	// idle Handles.
	PoolIdleTimeout time.Duration

	// PoolRefillInterval is how often the Pool tops itself back up to
	// PoolMinSize. Defaults to 1 second, or pass -1 to disable.
	PoolRefillInterval time.Duration

	// PoolLazyWarmup lets the Client be created even if the first PoolMinSize
	// Handles can't be, leaving them to be created as they are needed.
	PoolLazyWarmup bool

	// Auth is passed through to the HandleFunc as the password to
	// authenticate with, unless the ConnConfig already has one.
	Auth string

	// Dial is used to create each Handle. Defaults to DialRedigo.
	Dial HandleFunc

	// Logger receives log entries for the Client's Pool events and for
	// failures to acquire a Handle. Defaults to logrus.StandardLogger().
	Logger logrus.FieldLogger

	// PoolTrace, if given, is called in addition to the logging of Pool
	// events.
	PoolTrace trace.PoolTrace
}

func (o Options) withDefaults() Options {
	if o.PoolMaxSize == 0 {
		o.PoolMaxSize = 10
	}
	if o.PoolMinSize == 0 {
		o.PoolMinSize = 2
		if o.PoolMaxSize > 0 && o.PoolMaxSize < o.PoolMinSize {
			o.PoolMinSize = o.PoolMaxSize
		}
	} else if o.PoolMinSize < 0 {
		o.PoolMinSize = 0
	}
	if o.PoolIdleTimeout == 0 {
		o.PoolIdleTimeout = 60 * time.Second
	}
	if o.Dial == nil {
		o.Dial = DialRedigo
	}
	if o.Logger == nil {
		o.Logger = logrus.StandardLogger()
	}
	return o
}

func (o Options) poolConfig(cc ConnConfig) PoolConfig {
	return PoolConfig{
		MinSize:               o.PoolMinSize,
		MaxSize:               o.PoolMaxSize,
		IdleTimeout:           o.PoolIdleTimeout,
		RefillInterval:        o.PoolRefillInterval,
		ContinueOnWarmupError: o.PoolLazyWarmup,
		Addr:                  cc.Addr(),
		Trace:                 chainPoolTrace(LogPoolTrace(o.Logger), o.PoolTrace),
	}
}

// fileOptions is the on-disk form of Options. Durations are strings like
// "90s", as understood by time.ParseDuration.
type fileOptions struct {
	PoolMaxSize        int    `toml:"pool_max_size" yaml:"pool_max_size"`
	PoolMinSize        int    `toml:"pool_min_size" yaml:"pool_min_size"`
	PoolIdleTimeout    string `toml:"pool_idle_timeout" yaml:"pool_idle_timeout"`
	PoolRefillInterval string `toml:"pool_refill_interval" yaml:"pool_refill_interval"`
	PoolLazyWarmup     bool   `toml:"pool_lazy_warmup" yaml:"pool_lazy_warmup"`
	Auth               string `toml:"auth" yaml:"auth"`
}

func parseFileDuration(name, s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	} else if s == "-1" {
		return -1, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, ErrConfiguration.Wrap(err, "parsing %s", name)
	}
	return d, nil
}

// LoadOptionsFile reads Options from a TOML (".toml") or YAML (".yaml",
// ".yml") file, e.g.:
//
//	pool_max_size = 20
//	pool_min_size = 4
//	pool_idle_timeout = "5m"
//	auth = "secret"
//
// Fields which can't be expressed in a file (Dial, Logger, PoolTrace) are left
// empty, for the caller to fill in.
func LoadOptionsFile(path string) (Options, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Options{}, ErrConfiguration.Wrap(err, "reading options file")
	}
	return parseOptions(filepath.Ext(path), b)
}

func parseOptions(ext string, b []byte) (Options, error) {
	var fo fileOptions
	var err error
	switch ext {
	case ".toml":
		err = toml.Unmarshal(b, &fo)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &fo)
	default:
		return Options{}, ErrConfiguration.New("unknown options file extension %q", ext)
	}
	if err != nil {
		return Options{}, ErrConfiguration.Wrap(err, "decoding options file")
	}

	o := Options{
		PoolMaxSize:    fo.PoolMaxSize,
		PoolMinSize:    fo.PoolMinSize,
		PoolLazyWarmup: fo.PoolLazyWarmup,
		Auth:           fo.Auth,
	}
	if o.PoolIdleTimeout, err = parseFileDuration("pool_idle_timeout", fo.PoolIdleTimeout); err != nil {
		return Options{}, err
	}
	if o.PoolRefillInterval, err = parseFileDuration("pool_refill_interval", fo.PoolRefillInterval); err != nil {
		return Options{}, err
	}
	return o, nil
}
