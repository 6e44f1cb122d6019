package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
)

var ErrInvalidConfig = errors.New("config: invalid config")

// Config is the kmlsync runtime configuration. File keys come from the toml
// tags; KMLSYNC_* environment variables override the file.
type Config struct {
	Name          string   `toml:"name" env:"KMLSYNC_NAME"`
	Addr          string   `toml:"addr" env:"KMLSYNC_ADDR"`
	Scheme        string   `toml:"scheme" env:"KMLSYNC_SCHEME"`
	Host          string   `toml:"host" env:"KMLSYNC_HOST"`
	MasterHref    string   `toml:"master_href" env:"KMLSYNC_MASTER_HREF"`
	UpdatePath    string   `toml:"update_path" env:"KMLSYNC_UPDATE_PATH"`
	MasterPath    string   `toml:"master_path" env:"KMLSYNC_MASTER_PATH"`
	ModifyPath    string   `toml:"modify_path" env:"KMLSYNC_MODIFY_PATH"`
	IndexPath     string   `toml:"index_path" env:"KMLSYNC_INDEX_PATH"`
	IndexFile     string   `toml:"index_file" env:"KMLSYNC_INDEX_FILE"`
	AssetPrefix   string   `toml:"asset_prefix" env:"KMLSYNC_ASSET_PREFIX"`
	SocketPath    string   `toml:"socket_path" env:"KMLSYNC_SOCKET_PATH"`
	MetricsPath   string   `toml:"metrics_path" env:"KMLSYNC_METRICS_PATH"`
	BusListenAddr string   `toml:"bus_listen_addr" env:"KMLSYNC_BUS_LISTEN_ADDR"`
	SceneActivity string   `toml:"scene_activity" env:"KMLSYNC_SCENE_ACTIVITY"`
	CorsOrigins   []string `toml:"cors_origins" env:"KMLSYNC_CORS_ORIGINS"`
}

// Default returns the configuration used for keys absent from file and env.
func Default() Config {
	return Config{
		Name:          "kmlsync",
		Addr:          ":8765",
		Scheme:        "http",
		Host:          "localhost",
		UpdatePath:    "/kml/update",
		MasterPath:    "/kml/master.kml",
		ModifyPath:    "/kml/modify",
		IndexPath:     "/",
		IndexFile:     "index.html",
		SocketPath:    "/ws",
		MetricsPath:   "/metrics",
		SceneActivity: "earth",
	}
}

// Load overlays the TOML file at path onto Default, then the environment,
// and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) != "" {
		var raw Config
		meta, err := toml.DecodeFile(path, &raw)
		if err != nil {
			return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
		}
		overlay(&cfg, raw, meta)
	}
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	cfg.normalize()
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ParseEnv applies KMLSYNC_* overrides to target.
func ParseEnv(target *Config) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

func overlay(cfg *Config, raw Config, meta toml.MetaData) {
	set := func(key string, dst *string, v string) {
		if meta.IsDefined(key) {
			*dst = strings.TrimSpace(v)
		}
	}
	set("name", &cfg.Name, raw.Name)
	set("addr", &cfg.Addr, raw.Addr)
	set("scheme", &cfg.Scheme, raw.Scheme)
	set("host", &cfg.Host, raw.Host)
	set("master_href", &cfg.MasterHref, raw.MasterHref)
	set("update_path", &cfg.UpdatePath, raw.UpdatePath)
	set("master_path", &cfg.MasterPath, raw.MasterPath)
	set("modify_path", &cfg.ModifyPath, raw.ModifyPath)
	set("index_path", &cfg.IndexPath, raw.IndexPath)
	set("index_file", &cfg.IndexFile, raw.IndexFile)
	set("asset_prefix", &cfg.AssetPrefix, raw.AssetPrefix)
	set("socket_path", &cfg.SocketPath, raw.SocketPath)
	set("metrics_path", &cfg.MetricsPath, raw.MetricsPath)
	set("bus_listen_addr", &cfg.BusListenAddr, raw.BusListenAddr)
	set("scene_activity", &cfg.SceneActivity, raw.SceneActivity)
	if meta.IsDefined("cors_origins") {
		cfg.CorsOrigins = append([]string(nil), raw.CorsOrigins...)
	}
}

func (c *Config) normalize() {
	c.Name = strings.TrimSpace(c.Name)
	c.Addr = strings.TrimSpace(c.Addr)
	c.Scheme = strings.TrimSpace(c.Scheme)
	c.Host = strings.TrimSpace(c.Host)
	c.MasterHref = strings.TrimSpace(c.MasterHref)
	origins := c.CorsOrigins[:0]
	for _, o := range c.CorsOrigins {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	c.CorsOrigins = origins
}

// Validate checks the fields the service cannot start without.
func Validate(cfg Config) error {
	if cfg.Name == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidConfig)
	}
	if cfg.Addr == "" {
		return fmt.Errorf("%w: missing addr", ErrInvalidConfig)
	}
	if _, _, err := net.SplitHostPort(cfg.Addr); err != nil {
		return fmt.Errorf("%w: addr %q: %v", ErrInvalidConfig, cfg.Addr, err)
	}
	if cfg.MasterHref == "" && cfg.Host == "" {
		return fmt.Errorf("%w: host required when master_href is unset", ErrInvalidConfig)
	}
	routes := []struct {
		key  string
		path string
	}{
		{"update_path", cfg.UpdatePath},
		{"master_path", cfg.MasterPath},
		{"modify_path", cfg.ModifyPath},
		{"index_path", cfg.IndexPath},
	}
	seen := map[string]string{"/health": "health"}
	for _, r := range routes {
		if !strings.HasPrefix(r.path, "/") {
			return fmt.Errorf("%w: %s must start with /", ErrInvalidConfig, r.key)
		}
		if prev, ok := seen[r.path]; ok {
			return fmt.Errorf("%w: %s duplicates %s (%s)", ErrInvalidConfig, r.key, prev, r.path)
		}
		seen[r.path] = r.key
	}
	for _, opt := range []struct {
		key  string
		path string
	}{
		{"socket_path", cfg.SocketPath},
		{"metrics_path", cfg.MetricsPath},
	} {
		if opt.path == "" {
			continue
		}
		if !strings.HasPrefix(opt.path, "/") {
			return fmt.Errorf("%w: %s must start with /", ErrInvalidConfig, opt.key)
		}
		if prev, ok := seen[opt.path]; ok {
			return fmt.Errorf("%w: %s duplicates %s (%s)", ErrInvalidConfig, opt.key, prev, opt.path)
		}
		seen[opt.path] = opt.key
	}
	return nil
}

// MasterURL is the href update documents target: master_href when set,
// otherwise scheme://host:port plus master_path with the port taken from addr.
func (c Config) MasterURL() string {
	if c.MasterHref != "" {
		return c.MasterHref
	}
	scheme := c.Scheme
	if scheme == "" {
		scheme = "http"
	}
	host := c.Host
	if _, port, err := net.SplitHostPort(c.Addr); err == nil && port != "" {
		if p, err := strconv.Atoi(port); err == nil && p > 0 {
			host = net.JoinHostPort(c.Host, port)
		}
	}
	return scheme + "://" + host + c.MasterPath
}
