package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. VALVE_API_BASE_URL.
const EnvPrefix = "VALVE"

// Client configures valvectl.
type Client struct {
	API      API      `mapstructure:"api"`
	Realtime Realtime `mapstructure:"realtime"`
	Store    Store    `mapstructure:"store"`
	MQTT     MQTT     `mapstructure:"mqtt"`
	Log      Log      `mapstructure:"log"`
}

type API struct {
	BaseURL string        `mapstructure:"base_url"` // scheme://host[:port], "/api" is appended
	Timeout time.Duration `mapstructure:"timeout"`
}

type Realtime struct {
	URL              string        `mapstructure:"url"` // empty: derived from api.base_url
	ReconnectDelay   time.Duration `mapstructure:"reconnect_delay"`
	HandshakeTimeout time.Duration `mapstructure:"handshake_timeout"`
}

type Store struct {
	Path   string `mapstructure:"path"`
	Secret string `mapstructure:"secret"`
}

type MQTT struct {
	Broker         string        `mapstructure:"broker"` // empty disables the MQTT path
	ClientID       string        `mapstructure:"client_id"`
	Username       string        `mapstructure:"username"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

type Log struct {
	Level string `mapstructure:"level"`
}

// Server configures the valved backend emulator.
type Server struct {
	Port      string    `mapstructure:"port"`
	DB        DB        `mapstructure:"db"`
	JWT       JWT       `mapstructure:"jwt"`
	Uploads   Uploads   `mapstructure:"uploads"`
	Scheduler Scheduler `mapstructure:"scheduler"`
	Log       Log       `mapstructure:"log"`
}

type DB struct {
	Path string `mapstructure:"path"`
}

type JWT struct {
	Secret string        `mapstructure:"secret"`
	TTL    time.Duration `mapstructure:"ttl"`
}

type Uploads struct {
	Dir string `mapstructure:"dir"`
}

type Scheduler struct {
	SyncInterval time.Duration `mapstructure:"sync_interval"`
}

func clientDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", "http://localhost:8080")
	v.SetDefault("api.timeout", 30*time.Second)
	v.SetDefault("realtime.url", "")
	v.SetDefault("realtime.reconnect_delay", 5*time.Second)
	v.SetDefault("realtime.handshake_timeout", 10*time.Second)
	v.SetDefault("store.path", "valvectl.db")
	v.SetDefault("store.secret", "")
	v.SetDefault("mqtt.broker", "")
	v.SetDefault("mqtt.client_id", "valvectl")
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.connect_timeout", 10*time.Second)
	v.SetDefault("log.level", "info")
}

func serverDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("db.path", "valved.db")
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.ttl", 24*time.Hour)
	v.SetDefault("uploads.dir", "uploads")
	v.SetDefault("scheduler.sync_interval", 30*time.Second)
	v.SetDefault("log.level", "info")
}

// LoadClient reads configs/valvectl.yml (or the explicit path) plus env overrides.
func LoadClient(path string) (Client, error) {
	v := newViper(clientDefaults)
	if err := readConfig(v, path, "valvectl"); err != nil {
		return Client{}, err
	}
	var cfg Client
	if err := v.Unmarshal(&cfg); err != nil {
		return Client{}, fmt.Errorf("decode client config: %w", err)
	}
	cfg.API.BaseURL = strings.TrimRight(cfg.API.BaseURL, "/")
	if cfg.Store.Secret == "" {
		return Client{}, errors.New("store.secret is required (set VALVE_STORE_SECRET)")
	}
	return cfg, nil
}

// LoadServer reads configs/valved.yml (or the explicit path) plus env overrides.
func LoadServer(path string) (Server, error) {
	v := newViper(serverDefaults)
	if err := readConfig(v, path, "valved"); err != nil {
		return Server{}, err
	}
	var cfg Server
	if err := v.Unmarshal(&cfg); err != nil {
		return Server{}, fmt.Errorf("decode server config: %w", err)
	}
	if cfg.JWT.Secret == "" {
		return Server{}, errors.New("jwt.secret is required (set VALVE_JWT_SECRET)")
	}
	return cfg, nil
}

func newViper(defaults func(*viper.Viper)) *viper.Viper {
	v := viper.New()
	defaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// readConfig loads an explicit file, or looks for configs/<name>.yml. A missing
// default file is fine; defaults and env still apply.
func readConfig(v *viper.Viper, path, name string) error {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %q: %w", path, err)
		}
		return nil
	}
	v.AddConfigPath("configs")
	v.AddConfigPath(".")
	v.SetConfigName(name)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config %s: %w", name, err)
	}
	return nil
}

// RealtimeURL returns the websocket endpoint, deriving it from the API base URL
// when not set explicitly.
func (c Client) RealtimeURL() string {
	if c.Realtime.URL != "" {
		return c.Realtime.URL
	}
	base := c.API.BaseURL
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base + "/api/ws"
}
