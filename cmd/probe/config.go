package main

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	URL         string        `envconfig:"PROBE_URL" default:"http://localhost:8080"`
	Secret      string        `envconfig:"PROBE_SECRET" required:"true"`
	Issuer      string        `envconfig:"PROBE_ISSUER"`
	UserID      string        `envconfig:"PROBE_USER_ID" default:"probe"`
	DisplayName string        `envconfig:"PROBE_DISPLAY_NAME" default:"probe"`
	Room        string        `envconfig:"PROBE_ROOM" default:"general"`
	Message     string        `envconfig:"PROBE_MESSAGE"`
	Listen      time.Duration `envconfig:"PROBE_LISTEN" default:"5s"`
	// PROBE_COLOURS enables colorized output for better readability
	Colours bool `envconfig:"PROBE_COLOURS" default:"true"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
