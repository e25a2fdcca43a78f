/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/zalando/go-keyring"
)

func isolate(t *testing.T) string {
	t.Helper()
	keyring.MockInit()
	p := filepath.Join(t.TempDir(), "config.yaml")
	t.Setenv(EnvConfigPath, p)
	return p
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	isolate(t)
	cfg, tok, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if tok != "" {
		t.Fatalf("unexpected token %q", tok)
	}
	if cfg.Canvas.Width != 800 || cfg.Canvas.Height != 600 || cfg.Canvas.FontSize != 16 || cfg.Canvas.Background != "#ffffff" {
		t.Fatalf("canvas defaults = %#v", cfg.Canvas)
	}
}

func TestEnvOverridesBackendURL(t *testing.T) {
	isolate(t)
	t.Setenv(EnvBackendURL, "https://example.test:8443")
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got, want := cfg.Backend.BaseURL, "https://example.test:8443"; got != want {
		t.Fatalf("Backend.BaseURL = %q, want %q", got, want)
	}
	if env, ok := EnvOverrideFor("backend.base_url"); !ok || env != EnvBackendURL {
		t.Fatalf("EnvOverrideFor = %q %v", env, ok)
	}
	if _, ok := EnvOverrideFor("canvas.width"); ok {
		t.Fatalf("canvas.width is not overridden")
	}
}

func TestEnvOverridesLogging(t *testing.T) {
	isolate(t)
	t.Setenv(EnvLogLevel, "ERROR")
	t.Setenv(EnvLogFormat, "json")
	t.Setenv(EnvLogSource, "1")
	t.Setenv(EnvLogFile, "X:/cp.log")
	t.Setenv(EnvTelemetryOptIn, "yes")
	t.Setenv(EnvCharacterDetails, "Mira: red scarf")
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Logging.Level != "error" || cfg.Logging.Format != "json" || !cfg.Logging.Source || cfg.Logging.File != "X:/cp.log" {
		t.Fatalf("env overrides not applied to logging: %#v", cfg.Logging)
	}
	if !cfg.General.TelemetryOptIn {
		t.Fatalf("General.TelemetryOptIn expected true from env override")
	}
	if cfg.General.CharacterDetails != "Mira: red scarf" {
		t.Fatalf("General.CharacterDetails = %q", cfg.General.CharacterDetails)
	}
}

func TestFileValuesMergeOverDefaults(t *testing.T) {
	p := isolate(t)
	yml := "canvas:\n  width: 1024\n  zoom_step: 0.5\n  snap_threshold: -3\nlogging:\n  level: \" Debug \"\nassets:\n  cache_path: /tmp/blobs.db\n"
	if err := os.WriteFile(p, []byte(yml), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Canvas.Width != 1024 || cfg.Canvas.Height != 600 {
		t.Fatalf("canvas = %#v", cfg.Canvas)
	}
	if cfg.Canvas.ZoomStep != 1.1 {
		t.Fatalf("invalid zoom step kept: %v", cfg.Canvas.ZoomStep)
	}
	if cfg.Canvas.SnapThreshold != 0 {
		t.Fatalf("negative snap threshold kept: %v", cfg.Canvas.SnapThreshold)
	}
	if cfg.Logging.Level != "debug" || cfg.Assets.CachePath != "/tmp/blobs.db" || cfg.Assets.MaxPreviewEdge != 2048 {
		t.Fatalf("merged config = %#v", cfg)
	}
}

func TestMalformedFileFallsBackToDefaults(t *testing.T) {
	p := isolate(t)
	_ = os.WriteFile(p, []byte("canvas: [oops"), 0o600)
	cfg, _, err := Load()
	if err == nil {
		t.Fatalf("expected parse error")
	}
	if cfg.Canvas.Width != 800 {
		t.Fatalf("defaults not returned: %#v", cfg.Canvas)
	}
}

func TestSaveRoundTripAndToken(t *testing.T) {
	isolate(t)
	cfg := Defaults()
	cfg.Backend.BaseURL = "https://gen.example"
	cfg.General.ArtStyle = "noir"
	if err := Save(cfg, "secret"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, tok, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Backend.BaseURL != "https://gen.example" || got.General.ArtStyle != "noir" || tok != "secret" {
		t.Fatalf("round trip = %#v token %q", got, tok)
	}
	t.Setenv(EnvBackendToken, "from-env")
	if _, tok, _ := Load(); tok != "from-env" {
		t.Fatalf("env token not preferred: %q", tok)
	}
	t.Setenv(EnvBackendToken, "")
	if err := ClearToken(); err != nil {
		t.Fatalf("ClearToken: %v", err)
	}
	if _, tok, _ := Load(); tok != "" {
		t.Fatalf("token survived ClearToken: %q", tok)
	}
	if err := ClearToken(); err != nil {
		t.Fatalf("second ClearToken: %v", err)
	}
}

func TestTimeouts(t *testing.T) {
	if (BackendConfig{}).Timeout() != 120*time.Second {
		t.Fatalf("default backend timeout")
	}
	if (AssetsConfig{FetchTimeoutMs: 5}).FetchTimeout() != 5*time.Millisecond {
		t.Fatalf("fetch timeout")
	}
	if len(Keys()) != len(bindings) {
		t.Fatalf("Keys mismatch")
	}
}
