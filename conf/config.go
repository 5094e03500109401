/*
 * Copyright 2019 The CovenantSQL Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *    http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */


// Package conf loads the database list and tuning options of a multidb
// deployment from a YAML file.
package conf

import (
	"io/ioutil"
	"strings"
	"time"

	"github.com/mohae/deepcopy"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/CovenantSQL/multidb/utils/log"
)

// DriverKind names a database driver family.
type DriverKind string

const (
	// MySQL is served by github.com/go-sql-driver/mysql.
	MySQL DriverKind = "mysql"
	// SQLite is served by github.com/mattn/go-sqlite3.
	SQLite DriverKind = "sqlite"
	// PostgreSQL is served by github.com/jackc/pgx.
	PostgreSQL DriverKind = "pgsql"
)

var driverAliases = map[string]DriverKind{
	"mysql":      MySQL,
	"sqlite":     SQLite,
	"sqlite3":    SQLite,
	"pgsql":      PostgreSQL,
	"postgres":   PostgreSQL,
	"postgresql": PostgreSQL,
}

// ParseDriverKind normalizes a driver name, ok is false for unknown drivers.
func ParseDriverKind(s string) (kind DriverKind, ok bool) {
	kind, ok = driverAliases[strings.ToLower(strings.TrimSpace(s))]
	return
}

const (
	// DefaultLedgerTable is the table used to reserve unique ids.
	DefaultLedgerTable = "QueueSystemForEveryMDGUID"
	// DefaultConnectTimeout bounds each connection attempt.
	DefaultConnectTimeout = 3 * time.Second
	// DefaultMaxIDAttempts bounds the retries of id generation.
	DefaultMaxIDAttempts = 16
)

// ErrInvalidConfig indicates the config file is unusable.
var ErrInvalidConfig = errors.New("invalid multidb config")

// Descriptor describes one database of the set.
type Descriptor struct {
	Driver string `yaml:"Driver"`
	Host   string `yaml:"Host"`
	Name   string `yaml:"Name"`
	User   string `yaml:"User"`
	Secret string `yaml:"Secret"`
}

// Config defines the configurable options of a database set.
type Config struct {
	Databases []Descriptor `yaml:"Databases"`
	// ledger table for MDGUID reservation, created on the first live database.
	LedgerTable    string        `yaml:"LedgerTable"`
	ConnectTimeout time.Duration `yaml:"ConnectTimeout"`
	MaxIDAttempts  int           `yaml:"MaxIDAttempts"`
	// release every connection as soon as one of them failed.
	CloseOnFailure bool   `yaml:"CloseOnFailure"`
	LogLevel       string `yaml:"LogLevel"`
}

type confWrapper struct {
	MultiDB *Config `yaml:"MultiDB"`
}

// NewConfig returns a config with default values.
func NewConfig() *Config {
	return &Config{
		LedgerTable:    DefaultLedgerTable,
		ConnectTimeout: DefaultConnectTimeout,
		MaxIDAttempts:  DefaultMaxIDAttempts,
		LogLevel:       "info",
	}
}

func (c *Config) setDefaults() {
	if c.LedgerTable == "" {
		c.LedgerTable = DefaultLedgerTable
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	if c.MaxIDAttempts <= 0 {
		c.MaxIDAttempts = DefaultMaxIDAttempts
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

func (c *Config) validate() (err error) {
	if len(c.Databases) == 0 {
		err = ErrInvalidConfig
		log.Error("at least one database is required in multidb config")
		return
	}

	for i, d := range c.Databases {
		if d.Driver == "" {
			err = errors.Wrapf(ErrInvalidConfig, "database #%d has no driver", i)
			log.WithField("index", i).Error("driver is not defined for database")
			return
		}
		if d.Name == "" {
			err = errors.Wrapf(ErrInvalidConfig, "database #%d has no name", i)
			log.WithField("index", i).Error("name is not defined for database")
			return
		}
	}

	return
}

// Clone returns a deep copy of the config.
func (c *Config) Clone() *Config {
	return deepcopy.Copy(c).(*Config)
}

// LoadConfig loads the MultiDB section of the YAML file at configPath.
func LoadConfig(configPath string) (config *Config, err error) {
	var configBytes []byte
	if configBytes, err = ioutil.ReadFile(configPath); err != nil {
		log.WithError(err).Error("read config file failed")
		return
	}

	return ParseConfig(configBytes)
}

// ParseConfig parses a YAML document holding a MultiDB section.
func ParseConfig(configBytes []byte) (config *Config, err error) {
	configWrapper := &confWrapper{}
	if err = yaml.Unmarshal(configBytes, configWrapper); err != nil {
		log.WithError(err).Error("unmarshal config file failed")
		return
	}

	if configWrapper.MultiDB == nil {
		err = errors.Wrap(ErrInvalidConfig, "MultiDB section not found")
		log.Error("MultiDB section is not defined in config file")
		return
	}

	config = configWrapper.MultiDB
	config.setDefaults()
	if err = config.validate(); err != nil {
		config = nil
	}
	return
}
