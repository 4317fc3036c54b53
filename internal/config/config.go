package config

import (
	"fmt"
	"time"
)

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`

	// Bounded buffer caps for room history and the notification stream.
	HistoryLimit      int `mapstructure:"history_limit" yaml:"history_limit"`
	NotificationLimit int `mapstructure:"notification_limit" yaml:"notification_limit"`
	BackfillLimit     int `mapstructure:"backfill_limit" yaml:"backfill_limit"`

	// EmptyRoomTTL controls eviction of rooms with no members. Zero keeps
	// empty rooms forever.
	EmptyRoomTTL time.Duration `mapstructure:"empty_room_ttl" yaml:"empty_room_ttl"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		LogLevel:          "info",
		HistoryLimit:      100,
		NotificationLimit: 1000,
		BackfillLimit:     10,
		EmptyRoomTTL:      0,
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.HistoryLimit != 0 {
		c.HistoryLimit = other.HistoryLimit
	}
	if other.NotificationLimit != 0 {
		c.NotificationLimit = other.NotificationLimit
	}
	if other.BackfillLimit != 0 {
		c.BackfillLimit = other.BackfillLimit
	}
	if other.EmptyRoomTTL != 0 {
		c.EmptyRoomTTL = other.EmptyRoomTTL
	}
}

// Validate rejects configurations the stores cannot operate with.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("addr must not be empty")
	}
	if c.HistoryLimit < 1 {
		return fmt.Errorf("history_limit must be positive, got %d", c.HistoryLimit)
	}
	if c.NotificationLimit < 1 {
		return fmt.Errorf("notification_limit must be positive, got %d", c.NotificationLimit)
	}
	if c.BackfillLimit < 0 {
		return fmt.Errorf("backfill_limit must not be negative, got %d", c.BackfillLimit)
	}
	if c.EmptyRoomTTL < 0 {
		return fmt.Errorf("empty_room_ttl must not be negative, got %s", c.EmptyRoomTTL)
	}
	return nil
}
