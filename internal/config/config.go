// Package config loads settings from defaults, an optional TOML/YAML/JSON
// file, SKYPASS_* environment variables and caller overrides, in increasing
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strings"
	"time"

	"github.com/spf13/cast"
	"github.com/spf13/viper"

	"github.com/smurphboy/Sat-Track/internal/transform"
)

// EnvPrefix prefixes every environment variable, e.g. SKYPASS_TLE_PATH.
const EnvPrefix = "SKYPASS"

// Keys. Nested keys map to environment variables with dots replaced by
// underscores: observer.lat is SKYPASS_OBSERVER_LAT.
const (
	KeyTLEPath         = "tle_path"
	KeySatellite       = "satellite"
	KeyObserverLat     = "observer.lat"
	KeyObserverLon     = "observer.lon"
	KeyObserverAlt     = "observer.alt"
	KeyMinElevation    = "min_elevation"
	KeyWindow          = "window"
	KeyStep            = "step"
	KeySearchStep      = "search_step"
	KeyHTTPAddr        = "http.addr"
	KeyAuthEnabled     = "auth.enabled"
	KeyAuthToken       = "auth.token"
	KeyRateLimit       = "rate_limit"
	KeyRateBurst       = "rate_burst"
	KeyTrustProxy      = "trust_proxy"
	KeyCacheMaxEntries = "cache.max_entries"
	KeyMaxSamples      = "max_samples"
	KeyReloadInterval  = "reload_interval"
	KeyLogLevel        = "log_level"
	KeyStreamMax       = "stream.max_concurrent"
	KeyStreamKeepalive = "stream.keepalive_interval"
	KeyStreamBandwidth = "stream.bandwidth_limit"
	KeyWorkers         = "workers"
)

// Config is the resolved configuration shared by the CLI and the service.
type Config struct {
	TLEPath   string
	Satellite string

	ObserverLat float64
	ObserverLon float64
	ObserverAlt float64
	hasObserver bool

	// MinElevation is nil when no layer set it. Nothing defaults it.
	MinElevation *float64

	Window     time.Duration
	Step       time.Duration
	SearchStep time.Duration
	Workers    int

	HTTPAddr        string
	AuthEnabled     bool
	AuthToken       string
	RateLimit       float64
	RateBurst       int
	TrustProxy      bool
	CacheMaxEntries int
	MaxSamples      int
	ReloadInterval  time.Duration

	StreamMaxConcurrent     int
	StreamKeepaliveInterval time.Duration
	StreamBandwidthLimit    int

	LogLevel slog.Level
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyWindow, "48h")
	v.SetDefault(KeyStep, "1s")
	v.SetDefault(KeySearchStep, "10s")
	v.SetDefault(KeyWorkers, 0)
	v.SetDefault(KeyHTTPAddr, ":8080")
	v.SetDefault(KeyAuthEnabled, false)
	v.SetDefault(KeyRateLimit, 5.0)
	v.SetDefault(KeyRateBurst, 20)
	v.SetDefault(KeyTrustProxy, false)
	v.SetDefault(KeyCacheMaxEntries, 256)
	v.SetDefault(KeyMaxSamples, 86400)
	v.SetDefault(KeyReloadInterval, "5m")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyStreamMax, 10)
	v.SetDefault(KeyStreamKeepalive, "30s")
	v.SetDefault(KeyStreamBandwidth, 1048576)
}

// Load resolves the configuration. file may be empty, in which case
// SKYPASS_CONFIG names the optional file. overrides (typically explicitly
// set command-line flags) win over every other layer.
func Load(file string, overrides map[string]any) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file == "" {
		file = os.Getenv(EnvPrefix + "_CONFIG")
	}
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", file, err)
		}
	}
	for k, val := range overrides {
		v.Set(k, val)
	}

	return decode(v)
}

// decoder collects per-key conversion errors so every bad key is reported.
type decoder struct {
	v    *viper.Viper
	errs []error
}

func (d *decoder) fail(key string, err error) {
	d.errs = append(d.errs, fmt.Errorf("%s: %w", key, err))
}

func (d *decoder) str(key string) string {
	s, err := cast.ToStringE(d.v.Get(key))
	if err != nil {
		d.fail(key, err)
	}
	return strings.TrimSpace(s)
}

func (d *decoder) float(key string) float64 {
	f, err := cast.ToFloat64E(d.v.Get(key))
	if err != nil {
		d.fail(key, err)
	}
	return f
}

func (d *decoder) int(key string) int {
	n, err := cast.ToIntE(d.v.Get(key))
	if err != nil {
		d.fail(key, err)
	}
	return n
}

func (d *decoder) bool(key string) bool {
	b, err := cast.ToBoolE(d.v.Get(key))
	if err != nil {
		d.fail(key, err)
	}
	return b
}

func (d *decoder) duration(key string) time.Duration {
	dur, err := cast.ToDurationE(d.v.Get(key))
	if err != nil {
		d.fail(key, err)
	}
	return dur
}

func decode(v *viper.Viper) (*Config, error) {
	d := &decoder{v: v}
	cfg := &Config{
		TLEPath:                 d.str(KeyTLEPath),
		Satellite:               d.str(KeySatellite),
		Window:                  d.duration(KeyWindow),
		Step:                    d.duration(KeyStep),
		SearchStep:              d.duration(KeySearchStep),
		Workers:                 d.int(KeyWorkers),
		HTTPAddr:                d.str(KeyHTTPAddr),
		AuthEnabled:             d.bool(KeyAuthEnabled),
		AuthToken:               d.str(KeyAuthToken),
		RateLimit:               d.float(KeyRateLimit),
		RateBurst:               d.int(KeyRateBurst),
		TrustProxy:              d.bool(KeyTrustProxy),
		CacheMaxEntries:         d.int(KeyCacheMaxEntries),
		MaxSamples:              d.int(KeyMaxSamples),
		ReloadInterval:          d.duration(KeyReloadInterval),
		StreamMaxConcurrent:     d.int(KeyStreamMax),
		StreamKeepaliveInterval: d.duration(KeyStreamKeepalive),
		StreamBandwidthLimit:    d.int(KeyStreamBandwidth),
	}

	// The observer is all-or-nothing: lat and lon together, alt optional.
	if v.IsSet(KeyObserverLat) || v.IsSet(KeyObserverLon) {
		if !v.IsSet(KeyObserverLat) || !v.IsSet(KeyObserverLon) {
			d.fail("observer", errors.New("lat and lon must be set together"))
		}
		cfg.ObserverLat = d.float(KeyObserverLat)
		cfg.ObserverLon = d.float(KeyObserverLon)
		cfg.ObserverAlt = d.float(KeyObserverAlt)
		cfg.hasObserver = true
	}

	if v.IsSet(KeyMinElevation) {
		el := d.float(KeyMinElevation)
		cfg.MinElevation = &el
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(d.str(KeyLogLevel))); err != nil {
		d.fail(KeyLogLevel, err)
	}

	if err := errors.Join(d.errs...); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	if c.hasObserver {
		if err := transform.NewObserver(c.ObserverLat, c.ObserverLon, c.ObserverAlt).Validate(); err != nil {
			errs = append(errs, fmt.Errorf("observer: %w", err))
		}
	}
	if c.MinElevation != nil && (math.IsNaN(*c.MinElevation) || *c.MinElevation < -90 || *c.MinElevation > 90) {
		errs = append(errs, fmt.Errorf("%s: %v outside [-90, 90]", KeyMinElevation, *c.MinElevation))
	}
	positive := []struct {
		key string
		val time.Duration
	}{
		{KeyWindow, c.Window},
		{KeyStep, c.Step},
		{KeySearchStep, c.SearchStep},
		{KeyReloadInterval, c.ReloadInterval},
		{KeyStreamKeepalive, c.StreamKeepaliveInterval},
	}
	for _, p := range positive {
		if p.val <= 0 {
			errs = append(errs, fmt.Errorf("%s: must be positive, got %s", p.key, p.val))
		}
	}
	if c.SearchStep > 0 && c.SearchStep < time.Second {
		errs = append(errs, fmt.Errorf("%s: must be at least 1s, got %s", KeySearchStep, c.SearchStep))
	}
	if c.Step > 0 && c.Step%time.Second != 0 {
		errs = append(errs, fmt.Errorf("%s: must be a whole number of seconds, got %s", KeyStep, c.Step))
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("%s: must not be negative", KeyWorkers))
	}
	if c.RateLimit <= 0 || c.RateBurst < 1 {
		errs = append(errs, fmt.Errorf("%s/%s: must be positive", KeyRateLimit, KeyRateBurst))
	}
	if c.MaxSamples < 1 || c.CacheMaxEntries < 1 || c.StreamMaxConcurrent < 1 || c.StreamBandwidthLimit < 1 {
		errs = append(errs, fmt.Errorf("%s, %s, %s and %s must be positive",
			KeyMaxSamples, KeyCacheMaxEntries, KeyStreamMax, KeyStreamBandwidth))
	}
	if c.AuthEnabled && c.AuthToken == "" {
		errs = append(errs, fmt.Errorf("%s: required when %s is true", KeyAuthToken, KeyAuthEnabled))
	}
	return errors.Join(errs...)
}

// Observer returns the configured observer, or false if none is set.
func (c *Config) Observer() (transform.Observer, bool) {
	if !c.hasObserver {
		return transform.Observer{}, false
	}
	return transform.NewObserver(c.ObserverLat, c.ObserverLon, c.ObserverAlt), true
}

// RequireRun checks the settings a one-shot prediction cannot do without.
func (c *Config) RequireRun() error {
	var errs []error
	if c.TLEPath == "" {
		errs = append(errs, fmt.Errorf("%s: required", KeyTLEPath))
	}
	if c.Satellite == "" {
		errs = append(errs, fmt.Errorf("%s: required", KeySatellite))
	}
	if !c.hasObserver {
		errs = append(errs, errors.New("observer: lat and lon required"))
	}
	if c.MinElevation == nil {
		errs = append(errs, fmt.Errorf("%s: required", KeyMinElevation))
	}
	return errors.Join(errs...)
}

// Logger builds the JSON logger at the configured level.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: c.LogLevel}))
}
