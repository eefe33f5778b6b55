/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package config loads and saves the user-editable Markbox configuration.
// The config lives as YAML in the user scope; environment variables act as
// read-only overrides at runtime. The auth token never touches the YAML
// file; it is kept in the OS keyring.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type ServerConfig struct {
	BaseURL   string `yaml:"base_url"`
	TimeoutMs int    `yaml:"timeout_ms"`
	// Token is not stored on disk; it lives in the OS keychain.
}

type EditorConfig struct {
	AutoSave bool   `yaml:"auto_save"`
	WatchDir string `yaml:"watch_dir"` // drop-folder for auto-import; empty disables
}

type ServiceConfig struct {
	Addr       string `yaml:"addr"`
	DSN        string `yaml:"dsn"` // sqlite file path or postgres:// URL
	RetainSets int    `yaml:"retain_sets"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

// AppConfig is the persisted configuration. config_version is bumped on
// backward-incompatible structure changes.
type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	Server        ServerConfig  `yaml:"server"`
	Editor        EditorConfig  `yaml:"editor"`
	Service       ServiceConfig `yaml:"service"`
	Logging       LoggingConfig `yaml:"logging"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		Server:        ServerConfig{BaseURL: "http://localhost:5000", TimeoutMs: 15000},
		Editor:        EditorConfig{AutoSave: true},
		Service:       ServiceConfig{Addr: ":5000", DSN: "", RetainSets: 20},
		Logging:       LoggingConfig{Level: "info", Format: "console"},
	}
}

// Env var names used as overrides.
const (
	EnvServerURL       = "MB_SERVER_URL"
	EnvServerTimeoutMs = "MB_SERVER_TIMEOUT_MS"
	EnvAutoSave        = "MB_AUTOSAVE"
	EnvWatchDir        = "MB_WATCH_DIR"
	EnvServiceAddr     = "MB_SERVICE_ADDR"
	EnvServiceDSN      = "MB_SERVICE_DSN"
	EnvRetainSets      = "MB_RETAIN_SETS"
	EnvLogLevel        = "MB_LOG_LEVEL"
	EnvLogFormat       = "MB_LOG_FORMAT"
	EnvLogSource       = "MB_LOG_SOURCE"
	EnvLogFile         = "MB_LOG_FILE"
)

// Service/key for the OS keyring entry holding the auth token.
const (
	keyringService = "Markbox"
	keyringToken   = "auth_token"
)

// TokenStore abstracts the keyring so tests can substitute an in-memory one.
type TokenStore interface {
	Get(service, key string) (string, error)
	Set(service, key, value string) error
	Delete(service, key string) error
}

var tokenStore TokenStore = osKeyring{}

// SetTokenStore swaps the token backend; it returns the previous one so
// tests can restore it.
func SetTokenStore(s TokenStore) TokenStore {
	prev := tokenStore
	tokenStore = s
	return prev
}

// Token returns the stored auth token, or "" when none is stored.
func Token() string {
	tok, _ := tokenStore.Get(keyringService, keyringToken)
	return tok
}

// StoreToken persists the auth token in the keyring. An empty token removes
// the entry.
func StoreToken(token string) error {
	if token == "" {
		return tokenStore.Delete(keyringService, keyringToken)
	}
	return tokenStore.Set(keyringService, keyringToken, token)
}

// ConfigPath returns the per-user config file path.
func ConfigPath() (string, error) {
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "Markbox")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "Markbox")
	default:
		base = filepath.Join(os.Getenv("HOME"), ".config", "markbox")
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads the user config file (if present), applies defaults and env
// overrides, and returns the keyring token separately.
func Load() (AppConfig, string, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, "", err
	}
	if data, err := os.ReadFile(path); err == nil {
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err == nil {
			mergeInto(&cfg, &fileCfg)
		}
	}
	applyEnvOverrides(&cfg)
	return cfg, Token(), nil
}

// Save writes the user config YAML and persists the token into the OS
// keyring (if non-empty).
func Save(cfg AppConfig, token string) error {
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
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	if token != "" {
		return StoreToken(token)
	}
	return nil
}

func mergeInto(dst, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	if src.Server.BaseURL != "" {
		dst.Server.BaseURL = src.Server.BaseURL
	}
	if src.Server.TimeoutMs != 0 {
		dst.Server.TimeoutMs = src.Server.TimeoutMs
	}
	// booleans: copy directly from the file so user preferences persist
	dst.Editor.AutoSave = src.Editor.AutoSave
	if strings.TrimSpace(src.Editor.WatchDir) != "" {
		dst.Editor.WatchDir = strings.TrimSpace(src.Editor.WatchDir)
	}
	if src.Service.Addr != "" {
		dst.Service.Addr = src.Service.Addr
	}
	if src.Service.DSN != "" {
		dst.Service.DSN = src.Service.DSN
	}
	if src.Service.RetainSets != 0 {
		dst.Service.RetainSets = src.Service.RetainSets
	}
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

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvServerURL)); v != "" {
		cfg.Server.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvServerTimeoutMs)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.TimeoutMs = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvAutoSave)); v != "" {
		cfg.Editor.AutoSave = boolish(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvWatchDir)); v != "" {
		cfg.Editor.WatchDir = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvServiceAddr)); v != "" {
		cfg.Service.Addr = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvServiceDSN)); v != "" {
		cfg.Service.DSN = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvRetainSets)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Service.RetainSets = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = boolish(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

func boolish(v string) bool {
	lv := strings.ToLower(v)
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}
