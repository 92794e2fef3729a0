// Package config loads the engine configuration and the declarative gesture,
// sequence, and trajectory definition documents.
//
// The engine config is a TOML file; definitions are JSON documents so they
// can be exported and shared independently of the engine settings.
package config

import (
	"fmt"
	"log"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/ayusman/mudra/internal/gesture"
)

// Classifier backends.
const (
	BackendRule = "rule"
	BackendMLP  = "mlp"
)

// Config is the engine configuration, loaded from TOML.
type Config struct {
	Classifier  ClassifierConfig  `toml:"classifier"`
	Smoothing   SmoothingConfig   `toml:"smoothing"`
	Server      ServerConfig      `toml:"server"`
	Store       StoreConfig       `toml:"store"`
	Definitions DefinitionsConfig `toml:"definitions"`
}

// ClassifierConfig selects the classification backend.
type ClassifierConfig struct {
	// Backend is "rule" or "mlp".
	Backend   string `toml:"backend"`
	ModelPath string `toml:"model_path"`
	// FallbackToRules makes an unavailable MLP model fall back to the rule
	// engine instead of failing construction.
	FallbackToRules bool `toml:"fallback_to_rules"`
}

// SmoothingConfig tunes the temporal smoothing layer.
type SmoothingConfig struct {
	Window     int `toml:"window"`
	CooldownMs int `toml:"cooldown_ms"`
}

// Cooldown returns the configured cooldown as a duration.
func (c SmoothingConfig) Cooldown() time.Duration {
	return time.Duration(c.CooldownMs) * time.Millisecond
}

// ServerConfig holds the HTTP listen address.
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// StoreConfig holds the session database path.
type StoreConfig struct {
	Path string `toml:"path"`
}

// DefinitionsConfig points at the JSON definition documents. Empty paths
// mean the built-in defaults only.
type DefinitionsConfig struct {
	Gestures     string `toml:"gestures"`
	Sequences    string `toml:"sequences"`
	Trajectories string `toml:"trajectories"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Classifier: ClassifierConfig{Backend: BackendRule},
		Smoothing: SmoothingConfig{
			Window:     gesture.DefaultWindow,
			CooldownMs: int(gesture.DefaultCooldown.Milliseconds()),
		},
		Server: ServerConfig{Addr: ":8420"},
	}
}

// Load reads a TOML config file over the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

// BuildClassifier constructs the configured classification backend. When the
// MLP model is unavailable it either falls back to the rule engine or fails,
// per the config, never a silent mix of the two.
func BuildClassifier(cfg ClassifierConfig, registry *gesture.Registry) (gesture.Classifier, error) {
	switch cfg.Backend {
	case "", BackendRule:
		return gesture.NewRuleClassifier(registry), nil
	case BackendMLP:
		mlp, err := gesture.LoadMLP(cfg.ModelPath)
		if err != nil {
			if cfg.FallbackToRules {
				log.Printf("mlp model unavailable (%v), falling back to rule classifier", err)
				return gesture.NewRuleClassifier(registry), nil
			}
			return nil, err
		}
		return mlp, nil
	default:
		return nil, fmt.Errorf("unknown classifier backend %q", cfg.Backend)
	}
}
