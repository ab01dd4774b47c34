/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"storywiki/internal/story"
	"storywiki/internal/wiki"
)

// RenderConfig holds the converter policies. Unset pointers mean the
// default of the configured notation.
type RenderConfig struct {
	Notation                string `yaml:"notation"` // "classic" | "extended"
	DecisionSpeaker         string `yaml:"decision_speaker"`
	RegisterDecisionSpeaker *bool  `yaml:"register_decision_speaker,omitempty"`
	TrimDialogue            *bool  `yaml:"trim_dialogue,omitempty"`
	StripEscapedNewlines    *bool  `yaml:"strip_escaped_newlines,omitempty"`
	SkipBlankLines          bool   `yaml:"skip_blank_lines"`
}

type CatalogConfig struct {
	// DSN is a SQLite file path or a postgres:// URL. Empty means catalog.db
	// next to the config file.
	DSN string `yaml:"dsn"`
}

type GeneralConfig struct {
	TelemetryOptIn bool `yaml:"telemetry_opt_in"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

// AppConfig is the user configuration persisted as YAML in the user scope.
// Environment variables (and a .env file in the working directory) override
// it at runtime and are never written back.
//
// config_version: bump when the structure changes in a backward-incompatible way.
type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	General       GeneralConfig `yaml:"general"`
	Render        RenderConfig  `yaml:"render"`
	Catalog       CatalogConfig `yaml:"catalog"`
	Logging       LoggingConfig `yaml:"logging"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		General:       GeneralConfig{TelemetryOptIn: false},
		Render:        RenderConfig{Notation: "classic", DecisionSpeaker: wiki.DefaultDecisionSpeaker},
		Logging:       LoggingConfig{Level: "info", Format: "console", Source: false, File: ""},
	}
}

// Env var names used as overrides.
const (
	EnvConfigFile      = "SW_CONFIG"
	EnvNotation        = "SW_NOTATION"
	EnvDecisionSpeaker = "SW_DECISION_SPEAKER"
	EnvSkipBlankLines  = "SW_SKIP_BLANK_LINES"
	EnvCatalogDSN      = "SW_CATALOG_DSN"
	EnvTelemetryOptIn  = "SW_TELEMETRY_OPT_IN"
	// EnvLogLevel Logging envs
	EnvLogLevel  = "SW_LOG_LEVEL"
	EnvLogFormat = "SW_LOG_FORMAT"
	EnvLogSource = "SW_LOG_SOURCE"
	EnvLogFile   = "SW_LOG_FILE"
)

// ConfigPath returns the per-user config file path. SW_CONFIG replaces it.
func ConfigPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigFile)); p != "" {
		return p, nil
	}
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" { // fallback
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "StoryWiki")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "StoryWiki")
	default: // linux and others
		base = filepath.Join(os.Getenv("HOME"), ".config", "storywiki")
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads the .env file and the user config file (both optional), applies
// defaults and merges environment overrides. A config file that exists but
// does not parse is an error.
func Load() (AppConfig, error) {
	_ = godotenv.Load()
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, err
	}
	if data, err := os.ReadFile(path); err == nil {
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
		mergeInto(&cfg, &fileCfg)
	}
	applyEnvOverrides(&cfg)
	return cfg, nil
}

// Save writes the user config YAML.
func Save(cfg AppConfig) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	// booleans: copy directly from src (file) so user preferences persist
	dst.General.TelemetryOptIn = src.General.TelemetryOptIn
	// render
	if strings.TrimSpace(src.Render.Notation) != "" {
		dst.Render.Notation = strings.ToLower(strings.TrimSpace(src.Render.Notation))
	}
	if strings.TrimSpace(src.Render.DecisionSpeaker) != "" {
		dst.Render.DecisionSpeaker = strings.TrimSpace(src.Render.DecisionSpeaker)
	}
	if src.Render.RegisterDecisionSpeaker != nil {
		dst.Render.RegisterDecisionSpeaker = src.Render.RegisterDecisionSpeaker
	}
	if src.Render.TrimDialogue != nil {
		dst.Render.TrimDialogue = src.Render.TrimDialogue
	}
	if src.Render.StripEscapedNewlines != nil {
		dst.Render.StripEscapedNewlines = src.Render.StripEscapedNewlines
	}
	dst.Render.SkipBlankLines = src.Render.SkipBlankLines
	// catalog
	if strings.TrimSpace(src.Catalog.DSN) != "" {
		dst.Catalog.DSN = strings.TrimSpace(src.Catalog.DSN)
	}
	// logging
	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	dst.Logging.Source = src.Logging.Source
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
}

func truthy(v string) bool {
	lv := strings.ToLower(v)
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvNotation)); v != "" {
		cfg.Render.Notation = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvDecisionSpeaker)); v != "" {
		cfg.Render.DecisionSpeaker = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvSkipBlankLines)); v != "" {
		cfg.Render.SkipBlankLines = truthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvCatalogDSN)); v != "" {
		cfg.Catalog.DSN = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvTelemetryOptIn)); v != "" {
		cfg.General.TelemetryOptIn = truthy(v)
	}
	// logging overrides
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = truthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

// envKeys maps config keys to the env vars that override them.
var envKeys = map[string]string{
	"render.notation":          EnvNotation,
	"render.decision_speaker":  EnvDecisionSpeaker,
	"render.skip_blank_lines":  EnvSkipBlankLines,
	"catalog.dsn":              EnvCatalogDSN,
	"general.telemetry_opt_in": EnvTelemetryOptIn,
	"logging.level":            EnvLogLevel,
	"logging.format":           EnvLogFormat,
	"logging.source":           EnvLogSource,
	"logging.file":             EnvLogFile,
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	if env, ok := envKeys[key]; ok && strings.TrimSpace(os.Getenv(env)) != "" {
		return env, true
	}
	return "", false
}

// Overrides lists the config keys currently overridden from the
// environment, sorted by key.
func Overrides() []string {
	var keys []string
	for key := range envKeys {
		if _, ok := EnvOverrideFor(key); ok {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

// Options resolves the render section into converter options, starting from
// the defaults of the configured notation.
func (r RenderConfig) Options() (wiki.Options, error) {
	n, err := story.ParseNotation(r.Notation)
	if err != nil {
		return wiki.Options{}, err
	}
	opts := wiki.DefaultOptions(n)
	if s := strings.TrimSpace(r.DecisionSpeaker); s != "" {
		opts.DecisionSpeaker = s
	}
	if r.RegisterDecisionSpeaker != nil {
		opts.RegisterDecisionSpeaker = *r.RegisterDecisionSpeaker
	}
	if r.TrimDialogue != nil {
		opts.TrimDialogue = *r.TrimDialogue
	}
	if r.StripEscapedNewlines != nil {
		opts.StripEscapedNewlines = *r.StripEscapedNewlines
	}
	opts.SkipBlankLines = r.SkipBlankLines
	return opts, nil
}

// CatalogDSN returns the configured catalog DSN or the default SQLite file
// beside the config file.
func (c AppConfig) CatalogDSN() (string, error) {
	if c.Catalog.DSN != "" {
		return c.Catalog.DSN, nil
	}
	path, err := ConfigPath()
	if err != nil {
		return "", err
	}
	return filepath.Join(filepath.Dir(path), "catalog.db"), nil
}
