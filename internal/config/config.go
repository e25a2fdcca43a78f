/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package config holds the user configuration: a YAML file in the per-user config
// directory, environment overrides on top, and the backend token in the OS keyring.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"
)

// config_version: bump when the structure changes in a backward-incompatible way.
const currentVersion = 1

type GeneralConfig struct {
	TelemetryOptIn   bool   `yaml:"telemetry_opt_in"`
	TelemetryURL     string `yaml:"telemetry_url"`
	// ArtStyle and CharacterDetails go out with every generation request.
	ArtStyle         string `yaml:"art_style"`
	CharacterDetails string `yaml:"character_details"`
}

type BackendConfig struct {
	BaseURL   string `yaml:"base_url"`
	TimeoutMs int    `yaml:"timeout_ms"`
	// Token is not stored on disk; it lives in the OS keychain.
}

type CanvasConfig struct {
	Width         int     `yaml:"width"`
	Height        int     `yaml:"height"`
	Background    string  `yaml:"background"`
	FontFamily    string  `yaml:"font_family"`
	FontSize      float64 `yaml:"font_size"`
	ZoomStep      float64 `yaml:"zoom_step"`
	SnapThreshold float64 `yaml:"snap_threshold"` // logical units; 0 disables drag snapping
}

type AssetsConfig struct {
	CachePath      string `yaml:"cache_path"` // empty disables the disk cache
	CacheMaxBytes  int64  `yaml:"cache_max_bytes"`
	FetchTimeoutMs int    `yaml:"fetch_timeout_ms"`
	MaxFetchBytes  int64  `yaml:"max_fetch_bytes"`
	MaxPreviewEdge int    `yaml:"max_preview_edge"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	General       GeneralConfig `yaml:"general"`
	Backend       BackendConfig `yaml:"backend"`
	Canvas        CanvasConfig  `yaml:"canvas"`
	Assets        AssetsConfig  `yaml:"assets"`
	Logging       LoggingConfig `yaml:"logging"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: currentVersion,
		General:       GeneralConfig{ArtStyle: "classic comic"},
		Backend:       BackendConfig{BaseURL: "http://localhost:54321", TimeoutMs: 120000},
		Canvas: CanvasConfig{
			Width: 800, Height: 600, Background: "#ffffff",
			FontFamily: "Comic Sans MS", FontSize: 16, ZoomStep: 1.1,
			SnapThreshold: 6,
		},
		Assets: AssetsConfig{
			CacheMaxBytes:  256 << 20,
			FetchTimeoutMs: 30000,
			MaxFetchBytes:  32 << 20,
			MaxPreviewEdge: 2048,
		},
		Logging: LoggingConfig{Level: "info", Format: "console"},
	}
}

// Env var names used as overrides.
const (
	EnvConfigPath       = "COMICPANEL_CONFIG"
	EnvBackendURL       = "COMICPANEL_BACKEND_URL"
	EnvBackendTimeoutMs = "COMICPANEL_BACKEND_TIMEOUT_MS"
	EnvBackendToken     = "COMICPANEL_BACKEND_TOKEN"
	EnvTelemetryOptIn   = "COMICPANEL_TELEMETRY_OPT_IN"
	EnvTelemetryURL     = "COMICPANEL_TELEMETRY_URL"
	EnvArtStyle         = "COMICPANEL_ART_STYLE"
	EnvCharacterDetails = "COMICPANEL_CHARACTER_DETAILS"
	EnvCanvasWidth      = "COMICPANEL_CANVAS_WIDTH"
	EnvCanvasHeight     = "COMICPANEL_CANVAS_HEIGHT"
	EnvCachePath        = "COMICPANEL_CACHE_PATH"
	EnvCacheMaxBytes    = "COMICPANEL_CACHE_MAX_BYTES"
	EnvFetchTimeoutMs   = "COMICPANEL_FETCH_TIMEOUT_MS"
	EnvLogLevel         = "COMICPANEL_LOG_LEVEL"
	EnvLogFormat        = "COMICPANEL_LOG_FORMAT"
	EnvLogSource        = "COMICPANEL_LOG_SOURCE"
	EnvLogFile          = "COMICPANEL_LOG_FILE"
)

type binding struct {
	key   string // dotted yaml path
	env   string
	apply func(cfg *AppConfig, v string)
}

var bindings = []binding{
	{"backend.base_url", EnvBackendURL, func(c *AppConfig, v string) { c.Backend.BaseURL = v }},
	{"backend.timeout_ms", EnvBackendTimeoutMs, func(c *AppConfig, v string) { setInt(&c.Backend.TimeoutMs, v) }},
	{"general.telemetry_opt_in", EnvTelemetryOptIn, func(c *AppConfig, v string) { c.General.TelemetryOptIn = truthy(v) }},
	{"general.telemetry_url", EnvTelemetryURL, func(c *AppConfig, v string) { c.General.TelemetryURL = v }},
	{"general.art_style", EnvArtStyle, func(c *AppConfig, v string) { c.General.ArtStyle = v }},
	{"general.character_details", EnvCharacterDetails, func(c *AppConfig, v string) { c.General.CharacterDetails = v }},
	{"canvas.width", EnvCanvasWidth, func(c *AppConfig, v string) { setInt(&c.Canvas.Width, v) }},
	{"canvas.height", EnvCanvasHeight, func(c *AppConfig, v string) { setInt(&c.Canvas.Height, v) }},
	{"assets.cache_path", EnvCachePath, func(c *AppConfig, v string) { c.Assets.CachePath = v }},
	{"assets.cache_max_bytes", EnvCacheMaxBytes, func(c *AppConfig, v string) {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Assets.CacheMaxBytes = n
		}
	}},
	{"assets.fetch_timeout_ms", EnvFetchTimeoutMs, func(c *AppConfig, v string) { setInt(&c.Assets.FetchTimeoutMs, v) }},
	{"logging.level", EnvLogLevel, func(c *AppConfig, v string) { c.Logging.Level = strings.ToLower(v) }},
	{"logging.format", EnvLogFormat, func(c *AppConfig, v string) { c.Logging.Format = strings.ToLower(v) }},
	{"logging.source", EnvLogSource, func(c *AppConfig, v string) { c.Logging.Source = truthy(v) }},
	{"logging.file", EnvLogFile, func(c *AppConfig, v string) { c.Logging.File = v }},
}

// Keys lists every dotted key that can be overridden from the environment.
func Keys() []string {
	out := make([]string, len(bindings))
	for i, b := range bindings {
		out[i] = b.key
	}
	return out
}

// Service/keys for OS keyring.
const (
	keyringService = "ComicPanel"
	keyringToken   = "backend_token"
)

// ConfigPath returns the per-user config file path.
func ConfigPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p, nil
	}
	base, err := os.UserConfigDir()
	if err != nil || base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "comicpanel", "config.yaml"), nil
}

// Load reads the user config file (if present), applies defaults, and merges environment overrides.
// It also loads the backend token (not kept inside the struct; returned separately).
func Load() (AppConfig, string, error) {
	path, err := ConfigPath()
	if err != nil {
		cfg := Defaults()
		applyEnvOverrides(&cfg)
		return cfg, "", err
	}
	cfg, err := loadFrom(path)
	applyEnvOverrides(&cfg)
	return cfg, token(), err
}

// loadFrom decodes path over the defaults. A missing file is not an error; a
// malformed one yields the defaults together with the parse error.
func loadFrom(path string) (AppConfig, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	fileCfg := Defaults()
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	normalize(&fileCfg)
	return fileCfg, nil
}

func normalize(cfg *AppConfig) {
	def := Defaults()
	if cfg.ConfigVersion == 0 {
		cfg.ConfigVersion = currentVersion
	}
	cfg.Logging.Level = strings.ToLower(strings.TrimSpace(cfg.Logging.Level))
	cfg.Logging.Format = strings.ToLower(strings.TrimSpace(cfg.Logging.Format))
	cfg.Logging.File = strings.TrimSpace(cfg.Logging.File)
	if cfg.Canvas.Width <= 0 || cfg.Canvas.Height <= 0 {
		cfg.Canvas.Width, cfg.Canvas.Height = def.Canvas.Width, def.Canvas.Height
	}
	if cfg.Canvas.FontSize <= 0 {
		cfg.Canvas.FontSize = def.Canvas.FontSize
	}
	if cfg.Canvas.ZoomStep <= 1 {
		cfg.Canvas.ZoomStep = def.Canvas.ZoomStep
	}
	cfg.Canvas.SnapThreshold = max(0, cfg.Canvas.SnapThreshold)
}

// token prefers the environment, then the keyring.
func token() string {
	if v := strings.TrimSpace(os.Getenv(EnvBackendToken)); v != "" {
		return v
	}
	tok, err := keyring.Get(keyringService, keyringToken)
	if err != nil {
		return ""
	}
	return tok
}

// Save writes the user config YAML and persists the token into the OS keyring (if non-empty).
func Save(cfg AppConfig, tok string) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := saveTo(path, cfg); err != nil {
		return err
	}
	if tok != "" {
		if err := keyring.Set(keyringService, keyringToken, tok); err != nil {
			return fmt.Errorf("store token: %w", err)
		}
	}
	return nil
}

func saveTo(path string, cfg AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// ClearToken removes the stored backend token.
func ClearToken() error {
	err := keyring.Delete(keyringService, keyringToken)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}

func applyEnvOverrides(cfg *AppConfig) {
	for _, b := range bindings {
		if v := strings.TrimSpace(os.Getenv(b.env)); v != "" {
			b.apply(cfg, v)
		}
	}
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	for _, b := range bindings {
		if b.key == key && os.Getenv(b.env) != "" {
			return b.env, true
		}
	}
	return "", false
}

func truthy(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

func setInt(dst *int, v string) {
	if n, err := strconv.Atoi(v); err == nil {
		*dst = n
	}
}

// Timeout returns the backend request timeout.
func (b BackendConfig) Timeout() time.Duration {
	if b.TimeoutMs <= 0 {
		return time.Duration(Defaults().Backend.TimeoutMs) * time.Millisecond
	}
	return time.Duration(b.TimeoutMs) * time.Millisecond
}

// FetchTimeout returns the image fetch timeout.
func (a AssetsConfig) FetchTimeout() time.Duration {
	if a.FetchTimeoutMs <= 0 {
		return time.Duration(Defaults().Assets.FetchTimeoutMs) * time.Millisecond
	}
	return time.Duration(a.FetchTimeoutMs) * time.Millisecond
}
