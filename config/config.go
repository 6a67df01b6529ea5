// Package config loads the dialogue-index YAML configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/BigYang-Web/dialogue-index/site"
)

// Config is the top-level configuration.
type Config struct {
	// Listen is the panel HTTP address.
	Listen string `yaml:"listen"`

	// PageURL is the chat page to attach to.
	PageURL string `yaml:"page_url"`

	Browser BrowserConfig `yaml:"browser"`

	// Debounce is the quiet interval after the last DOM mutation before an
	// extraction pass runs.
	Debounce time.Duration `yaml:"debounce"`

	// Highlight is the scroll-target flash duration.
	Highlight time.Duration `yaml:"highlight"`

	// Sites are custom provider rules, consulted before the built-in table
	// so a rule can override a stale built-in adapter.
	Sites []site.Rule `yaml:"sites"`
}

// BrowserConfig controls the Chrome attachment.
type BrowserConfig struct {
	// Remote is the WebSocket URL of an external Chrome. Empty launches a
	// local one.
	Remote string `yaml:"remote"`

	// Headful runs a visible Chrome, which is what you want when the page
	// needs a logged-in session.
	Headful bool `yaml:"headful"`
}

// LoadFile reads a YAML configuration file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.ApplyDefaults()
	return &cfg, nil
}

// ApplyDefaults fills zero values.
func (c *Config) ApplyDefaults() {
	if c.Listen == "" {
		c.Listen = ":8787"
	}
	if c.Debounce <= 0 {
		c.Debounce = 500 * time.Millisecond
	}
	if c.Highlight <= 0 {
		c.Highlight = 1500 * time.Millisecond
	}
}

// Registry builds the adapter registry: custom rules first, then the
// built-in providers. Invalid rules are skipped with the error returned so
// the caller can log it; a bad rule never blocks startup.
func (c *Config) Registry() (*site.Registry, error) {
	custom, err := site.CompileRules(c.Sites)
	reg := site.NewRegistry(custom...)
	reg.Add(site.Builtin().Adapters()...)
	return reg, err
}
