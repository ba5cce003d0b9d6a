package main

import (
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Server    string `toml:"server"`    // host:port, or ws(s):// URL for the websocket transport
	Transport string `toml:"transport"` // "tcp" (default) or "websocket"
	TLS       bool   `toml:"tls"`
	Nick      string `toml:"nick"`
	User      string `toml:"user"`
	RealName  string `toml:"real_name"`
	Password  string `toml:"password"` // TERN_PASSWORD env wins if set

	Channels []string `toml:"channels"` // joined automatically after connect
	Keywords []string `toml:"keywords"` // highlight keywords, own nick is implicit

	AutoReconnect  *bool `toml:"auto_reconnect"`  // nil = default (true)
	ReconnectDelay int   `toml:"reconnect_delay"` // seconds between retries
	PingTimeout    int   `toml:"ping_timeout"`    // seconds of silence before a keep-alive ping

	MaxMessages int    `toml:"max_messages"`
	Logging     *bool  `toml:"logging"` // nil = default (true)
	LogDir      string `toml:"log_dir"`
}

// AutoReconnectEnabled returns whether unsolicited disconnects schedule a retry.
func (c Config) AutoReconnectEnabled() bool {
	if c.AutoReconnect == nil {
		return true // enabled by default
	}
	return *c.AutoReconnect
}

// LoggingEnabled returns whether per-conversation chat logging is enabled.
func (c Config) LoggingEnabled() bool {
	if c.Logging == nil {
		return true // enabled by default
	}
	return *c.Logging
}

func (c Config) reconnectDelay() time.Duration {
	return time.Duration(c.ReconnectDelay) * time.Second
}

func (c Config) pingTimeout() time.Duration {
	return time.Duration(c.PingTimeout) * time.Second
}

func defaultConfig() Config {
	return Config{
		Server:         "irc.libera.chat:6697",
		TLS:            true,
		ReconnectDelay: 15,
		PingTimeout:    120,
		MaxMessages:    500,
	}
}

func configPath(flagPath string) string {
	if flagPath != "" {
		return flagPath
	}
	if p := os.Getenv("TERN_CONFIG"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.toml"
	}
	return filepath.Join(home, ".config", "tern", "config.toml")
}

func LoadConfig(flagPath string) (Config, error) {
	cfg := defaultConfig()

	path := configPath(flagPath)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return applyFixups(cfg), nil
		}
		return cfg, err
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}

	return applyFixups(cfg), nil
}

func applyFixups(cfg Config) Config {
	if cfg.MaxMessages <= 0 {
		cfg.MaxMessages = 500
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 15
	}
	if cfg.PingTimeout <= 0 {
		cfg.PingTimeout = 120
	}
	if cfg.Nick == "" {
		cfg.Nick = os.Getenv("USER")
	}
	if cfg.User == "" {
		cfg.User = cfg.Nick
	}
	if cfg.RealName == "" {
		cfg.RealName = cfg.Nick
	}
	if p := os.Getenv("TERN_PASSWORD"); p != "" {
		cfg.Password = p
	}
	if cfg.LogDir == "" {
		cfg.LogDir = filepath.Join(filepath.Dir(configPath("")), "logs")
	}
	return cfg
}
