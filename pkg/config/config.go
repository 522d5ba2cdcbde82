// Report Downloader
// Copyright (c) 2026 The Report Downloader Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Report Downloader.
//
// Report Downloader is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Report Downloader is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Report Downloader.  If not, see <http://www.gnu.org/licenses/>.

// Package config loads and saves the reportdl.toml settings file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog/log"
	"github.com/safetylab/reportdl/pkg/helpers"
	"github.com/safetylab/reportdl/pkg/helpers/syncutil"
)

const SchemaVersion = 1

var ErrSchemaMismatch = errors.New("schema version mismatch")

type Values struct {
	ErrorReporting ErrorReporting `toml:"error_reporting"`
	Logging        Logging        `toml:"logging"`
	Tester         Tester         `toml:"tester"`
	Backup         Backup         `toml:"backup"`
	Service        Service        `toml:"service"`
	History        History        `toml:"history"`
	ConfigSchema   int            `toml:"config_schema"`
	DebugLogging   bool           `toml:"debug_logging"`
}

type Tester struct {
	Port string `toml:"port" validate:"required_unless=Fake true"`
	Fake bool   `toml:"fake"`
}

type Backup struct {
	Folder  string `toml:"folder" validate:"required"`
	MaxSize int64  `toml:"max_size" validate:"gt=0"`
}

type Service struct {
	TempDir string `toml:"temp_dir" validate:"required"`
}

type Logging struct {
	File       string `toml:"file" validate:"required"`
	MaxSizeMB  int    `toml:"max_size_mb" validate:"gte=1"`
	MaxBackups int    `toml:"max_backups" validate:"gte=0"`
}

type History struct {
	Database string `toml:"database" validate:"required_if=Enabled true"`
	Enabled  bool   `toml:"enabled"`
}

type ErrorReporting struct {
	DSN string `toml:"dsn" validate:"omitempty,url"`
}

var BaseDefaults = Values{
	ConfigSchema: SchemaVersion,
	Tester: Tester{
		Port: "/dev/ttyUSB0",
	},
	Backup: Backup{
		Folder:  "backups",
		MaxSize: 50 * 1024 * 1024,
	},
	Service: Service{
		TempDir: "temp",
	},
	Logging: Logging{
		File:       "reportdl.log",
		MaxSizeMB:  1,
		MaxBackups: 2,
	},
	History: History{
		Enabled:  true,
		Database: "history.db",
	},
}

type Instance struct {
	cfgPath  string
	vals     Values
	defaults Values
	mu       syncutil.RWMutex
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// NewConfig loads the config file in configDir, or the file named by
// REPORTDL_CFG, writing defaults first if it does not exist.
//
//nolint:gocritic // config struct copied for immutability
func NewConfig(configDir string, defaults Values) (*Instance, error) {
	cfgPath := os.Getenv(CfgEnv)
	log.Debug().Msgf("env config path: %s", cfgPath)

	if cfgPath == "" {
		cfgPath = filepath.Join(configDir, CfgFile)
	}

	cfg := Instance{
		cfgPath:  cfgPath,
		vals:     defaults,
		defaults: defaults,
	}

	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		log.Info().Msg("saving new default config to disk")

		err := os.MkdirAll(filepath.Dir(cfgPath), 0o750)
		if err != nil {
			return nil, fmt.Errorf("failed to create config directory: %w", err)
		}

		err = cfg.Save()
		if err != nil {
			return nil, err
		}
	}

	err := cfg.Load()
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks v against its field rules.
//
//nolint:gocritic // validated by value
func Validate(v Values) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return newValidationError(verrs)
	}
	return fmt.Errorf("validation failed: %w", err)
}

func (c *Instance) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfgPath == "" {
		return errors.New("config path not set")
	}

	data, err := os.ReadFile(c.cfgPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	// fields missing from the file keep their defaults
	newVals := c.defaults
	err = toml.Unmarshal(data, &newVals)
	if err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if newVals.ConfigSchema != SchemaVersion {
		log.Error().Msgf(
			"schema version mismatch: got %d, expecting %d",
			newVals.ConfigSchema,
			SchemaVersion,
		)
		return ErrSchemaMismatch
	}

	if err := Validate(newVals); err != nil {
		return fmt.Errorf("invalid config %s: %w", c.cfgPath, err)
	}

	c.vals = newVals
	return nil
}

func (c *Instance) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfgPath == "" {
		return errors.New("config path not set")
	}

	c.vals.ConfigSchema = SchemaVersion

	data, err := toml.Marshal(&c.vals)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(c.cfgPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Path is the config file in use.
func (c *Instance) Path() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cfgPath
}

// Dir is the base for relative paths in the config.
func (c *Instance) Dir() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return filepath.Dir(c.cfgPath)
}

// resolve must be called with mu held.
func (c *Instance) resolve(p string) string {
	return helpers.ResolvePath(filepath.Dir(c.cfgPath), p)
}

func (c *Instance) DebugLogging() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.DebugLogging
}

func (c *Instance) SetDebugLogging(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.DebugLogging = enabled
}

func (c *Instance) TesterPort() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Tester.Port
}

func (c *Instance) SetTesterPort(port string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Tester.Port = port
}

func (c *Instance) FakeTester() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Tester.Fake
}

func (c *Instance) SetFakeTester(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Tester.Fake = enabled
}

// BackupFolder is the absolute backup folder.
func (c *Instance) BackupFolder() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.resolve(c.vals.Backup.Folder)
}

func (c *Instance) BackupMaxSize() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Backup.MaxSize
}

// TempDir is the absolute folder holding the run marker.
func (c *Instance) TempDir() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.resolve(c.vals.Service.TempDir)
}

// LogSettings places the log file next to the config unless an absolute
// path is configured.
func (c *Instance) LogSettings() helpers.LogSettings {
	c.mu.RLock()
	defer c.mu.RUnlock()
	file := c.resolve(c.vals.Logging.File)
	return helpers.LogSettings{
		Dir:        filepath.Dir(file),
		File:       filepath.Base(file),
		MaxSizeMB:  c.vals.Logging.MaxSizeMB,
		MaxBackups: c.vals.Logging.MaxBackups,
		Debug:      c.vals.DebugLogging,
	}
}

func (c *Instance) HistoryEnabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.History.Enabled
}

// HistoryDatabase is the absolute path of the history database.
func (c *Instance) HistoryDatabase() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.resolve(c.vals.History.Database)
}

func (c *Instance) ErrorReportingDSN() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.ErrorReporting.DSN
}
