// Package conf loads and validates vendora-edge configuration.
package conf

import (
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/vendora/vendora-edge/internal/errors"
)

// EndpointSettings maps a sync tag to the first-party write endpoint its
// queued payloads are replayed against.
type EndpointSettings struct {
	Path   string `mapstructure:"path"`
	Method string `mapstructure:"method"`
	// PerItem appends the queued item's ID to Path on replay
	// (e.g. PUT /api/products/{id}).
	PerItem bool `mapstructure:"peritem"`
}

// SyncSettings holds the fixed background-sync tag mapping.
type SyncSettings struct {
	Enabled  bool             `mapstructure:"enabled"`
	Orders   EndpointSettings `mapstructure:"orders"`
	Products EndpointSettings `mapstructure:"products"`
}

// PushSettings configures the MQTT push channel.
type PushSettings struct {
	Enabled  bool   `mapstructure:"enabled"`
	Broker   string `mapstructure:"broker"`
	Topic    string `mapstructure:"topic"`
	ClientID string `mapstructure:"clientid"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// NotifySettings configures notification presentation and outbound delivery.
type NotifySettings struct {
	Enabled      bool     `mapstructure:"enabled"`
	DefaultBody  string   `mapstructure:"defaultbody"`
	Icon         string   `mapstructure:"icon"`
	Badge        string   `mapstructure:"badge"`
	Vibration    []int    `mapstructure:"vibration"`
	ShoutrrrURLs []string `mapstructure:"shoutrrrurls"`
}

// SentrySettings configures error telemetry.
type SentrySettings struct {
	DSN string `mapstructure:"dsn"`
}

// TimeoutSettings groups the gateway's timing knobs.
type TimeoutSettings struct {
	Upstream Duration `mapstructure:"upstream"`
	Shutdown Duration `mapstructure:"shutdown"`
	HotTTL   Duration `mapstructure:"hotttl"`
}

// Settings is the root configuration for the gateway process.
type Settings struct {
	Listen     string `mapstructure:"listen"`
	Upstream   string `mapstructure:"upstream"`
	Generation string `mapstructure:"generation"`
	CachePath  string `mapstructure:"cachepath"`
	LogLevel   string `mapstructure:"loglevel"`

	// APIPrefix marks first-party data API requests (network-first).
	APIPrefix string `mapstructure:"apiprefix"`
	// BackendHost marks the hosted backend-as-a-service domain by substring.
	BackendHost string `mapstructure:"backendhost"`

	// Precache is the shell manifest fetched at install time.
	Precache []string `mapstructure:"precache"`
	// StaticSuffixes is the cache-first file-extension allow-list.
	StaticSuffixes []string `mapstructure:"staticsuffixes"`
	// OfflinePath is the offline-fallback document route.
	OfflinePath string `mapstructure:"offlinepath"`

	Sync     SyncSettings    `mapstructure:"sync"`
	Push     PushSettings    `mapstructure:"push"`
	Notify   NotifySettings  `mapstructure:"notify"`
	Sentry   SentrySettings  `mapstructure:"sentry"`
	Timeouts TimeoutSettings `mapstructure:"timeouts"`
}

// DefaultPrecache lists the shell routes cached eagerly at install.
var DefaultPrecache = []string{
	"/",
	"/dashboard",
	"/products",
	"/orders",
	"/auth",
	"/offline.html",
	"/manifest.webmanifest",
	"/favicon.ico",
}

// DefaultStaticSuffixes is the static-asset extension allow-list.
var DefaultStaticSuffixes = []string{
	".js", ".css", ".png", ".jpg", ".jpeg", ".svg", ".gif", ".webp",
	".ico", ".woff", ".woff2", ".ttf",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("listen", ":8480")
	v.SetDefault("upstream", "http://localhost:3000")
	v.SetDefault("generation", "v2")
	v.SetDefault("cachepath", "vendora-edge.db")
	v.SetDefault("loglevel", "info")
	v.SetDefault("apiprefix", "/api/")
	v.SetDefault("backendhost", "supabase.co")
	v.SetDefault("precache", DefaultPrecache)
	v.SetDefault("staticsuffixes", DefaultStaticSuffixes)
	v.SetDefault("offlinepath", "/offline.html")
	v.SetDefault("sync.enabled", true)
	v.SetDefault("sync.orders.path", "/api/orders")
	v.SetDefault("sync.orders.method", "POST")
	v.SetDefault("sync.orders.peritem", false)
	v.SetDefault("sync.products.path", "/api/products")
	v.SetDefault("sync.products.method", "PUT")
	v.SetDefault("sync.products.peritem", true)
	v.SetDefault("push.enabled", false)
	v.SetDefault("push.topic", "vendora/push")
	v.SetDefault("push.clientid", "vendora-edge")
	v.SetDefault("notify.enabled", true)
	v.SetDefault("notify.defaultbody", "New update from Vendora")
	v.SetDefault("notify.icon", "/icons/icon-192x192.png")
	v.SetDefault("notify.badge", "/icons/badge-72x72.png")
	v.SetDefault("notify.vibration", []int{100, 50, 100})
	v.SetDefault("timeouts.upstream", "30s")
	v.SetDefault("timeouts.shutdown", "10s")
	v.SetDefault("timeouts.hotttl", "1m")
}

// Load reads settings from the given YAML file (optional; "" skips file
// loading) with VENDORA_EDGE_* environment overrides on top of defaults.
func Load(path string) (*Settings, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("VENDORA_EDGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.New(err).
				Component("conf").
				Category(errors.CategoryConfig).
				Context("path", path).
				Build()
		}
	}

	var settings Settings
	if err := v.Unmarshal(&settings, viper.DecodeHook(DurationDecodeHook())); err != nil {
		return nil, errors.New(err).
			Component("conf").
			Category(errors.CategoryConfig).
			Context("operation", "unmarshal").
			Build()
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return &settings, nil
}

// Validate checks invariants the rest of the process relies on.
func (s *Settings) Validate() error {
	if s.Upstream == "" {
		return errors.Newf("upstream base URL is required").
			Component("conf").
			Category(errors.CategoryValidation).
			Context("field", "upstream").
			Build()
	}
	if s.Generation == "" {
		return errors.Newf("generation tag is required").
			Component("conf").
			Category(errors.CategoryValidation).
			Context("field", "generation").
			Build()
	}
	if s.Timeouts.Upstream.Std() <= 0 {
		s.Timeouts.Upstream = Duration(30 * time.Second)
	}
	if s.Timeouts.Shutdown.Std() <= 0 {
		s.Timeouts.Shutdown = Duration(10 * time.Second)
	}
	if s.Timeouts.HotTTL.Std() <= 0 {
		s.Timeouts.HotTTL = Duration(time.Minute)
	}
	return nil
}
