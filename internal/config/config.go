package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"
)

// Default configuration values
const (
	DefaultAddr           = ":8080"
	DefaultPingInterval   = 10 * time.Second
	DefaultPingTimeout    = 15 * time.Second
	DefaultWriteWait      = 10 * time.Second
	DefaultMaxMessageSize = 4096
	DefaultSendBuffer     = 64
	DefaultRelayURL       = "ws://localhost:8080/ws"
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "text"
)

// Config holds application configuration
type Config struct {
	// Addr is the listen address of the relay server.
	Addr string

	// Heartbeat: a ping every PingInterval, a connection silent for
	// PingTimeout is considered dead.
	PingInterval time.Duration
	PingTimeout  time.Duration

	WriteWait      time.Duration
	MaxMessageSize int64
	SendBuffer     int

	// RelayURL is the websocket endpoint client commands connect to.
	RelayURL string

	LogLevel  string
	LogFormat string
}

// Options for loading config with CLI flag overrides. Zero values mean
// "not set on the command line".
type Options struct {
	Addr           string
	PingInterval   time.Duration
	PingTimeout    time.Duration
	WriteWait      time.Duration
	MaxMessageSize int64
	SendBuffer     int
	RelayURL       string
	LogLevel       string
	LogFormat      string
}

// Load reads configuration with the following priority:
// 1. CLI flags (passed via Options) - highest priority
// 2. Environment variables
// 3. Hardcoded defaults - lowest priority
func Load(opts Options) (*Config, error) {
	pingInterval, err := durationValue(opts.PingInterval, "PING_INTERVAL", DefaultPingInterval)
	if err != nil {
		return nil, err
	}

	pingTimeout, err := durationValue(opts.PingTimeout, "PING_TIMEOUT", DefaultPingTimeout)
	if err != nil {
		return nil, err
	}

	writeWait, err := durationValue(opts.WriteWait, "WRITE_WAIT", DefaultWriteWait)
	if err != nil {
		return nil, err
	}

	maxMessageSize, err := int64Value(opts.MaxMessageSize, "MAX_MESSAGE_SIZE", DefaultMaxMessageSize)
	if err != nil {
		return nil, err
	}

	sendBuffer, err := intValue(opts.SendBuffer, "SEND_BUFFER", DefaultSendBuffer)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Addr:           stringValue(opts.Addr, "ADDR", DefaultAddr),
		PingInterval:   pingInterval,
		PingTimeout:    pingTimeout,
		WriteWait:      writeWait,
		MaxMessageSize: maxMessageSize,
		SendBuffer:     sendBuffer,
		RelayURL:       stringValue(opts.RelayURL, "RELAY_URL", DefaultRelayURL),
		LogLevel:       stringValue(opts.LogLevel, "LOG_LEVEL", DefaultLogLevel),
		LogFormat:      stringValue(opts.LogFormat, "LOG_FORMAT", DefaultLogFormat),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would make the heartbeat or the queues unusable.
func (c *Config) Validate() error {
	switch {
	case c.PingInterval <= 0:
		return errors.New("ping interval must be positive")
	case c.PingTimeout <= c.PingInterval:
		return fmt.Errorf("ping timeout (%s) must be longer than ping interval (%s)", c.PingTimeout, c.PingInterval)
	case c.WriteWait <= 0:
		return errors.New("write wait must be positive")
	case c.MaxMessageSize <= 0:
		return errors.New("max message size must be positive")
	case c.SendBuffer <= 0:
		return errors.New("send buffer must be positive")
	}

	u, err := url.Parse(c.RelayURL)
	if err != nil {
		return fmt.Errorf("invalid relay URL: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("relay URL must use ws or wss, got %q", u.Scheme)
	}
	return nil
}

// RoomsURL returns the HTTP address of the room listing on the relay that
// RelayURL points at.
func (c *Config) RoomsURL() string {
	u, err := url.Parse(c.RelayURL)
	if err != nil {
		return ""
	}
	if u.Scheme == "wss" {
		u.Scheme = "https"
	} else {
		u.Scheme = "http"
	}
	u.Path = "/rooms"
	u.RawQuery = ""
	return u.String()
}

func stringValue(flag, env, def string) string {
	if flag != "" {
		return flag
	}
	if v := os.Getenv(env); v != "" {
		return v
	}
	return def
}

func durationValue(flag time.Duration, env string, def time.Duration) (time.Duration, error) {
	if flag != 0 {
		return flag, nil
	}
	if v := os.Getenv(env); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("parse %s: %w", env, err)
		}
		return d, nil
	}
	return def, nil
}

func intValue(flag int, env string, def int) (int, error) {
	if flag != 0 {
		return flag, nil
	}
	if v := os.Getenv(env); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("parse %s: %w", env, err)
		}
		return n, nil
	}
	return def, nil
}

func int64Value(flag int64, env string, def int64) (int64, error) {
	if flag != 0 {
		return flag, nil
	}
	if v := os.Getenv(env); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parse %s: %w", env, err)
		}
		return n, nil
	}
	return def, nil
}
