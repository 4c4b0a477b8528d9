// Package config holds the run settings, read with viper from defaults,
// an optional file and the environment.
package config

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"xpug.it/stationagg/internal/input"
	"xpug.it/stationagg/internal/report"
	"xpug.it/stationagg/internal/table"
)

// EnvPrefix prefixes the environment variable of every key, e.g.
// STATIONAGG_TABLE_CAPACITY.
const EnvPrefix = "STATIONAGG"

const (
	HashPrefix = "prefix"
	HashXX     = "xxhash"
)

type Config struct {
	Table  TableC  `mapstructure:"table"`
	Input  InputC  `mapstructure:"input"`
	Output OutputC `mapstructure:"output"`
	Log    LogC    `mapstructure:"log"`
}

type TableC struct {
	// Capacity should be well above twice the number of distinct keys.
	Capacity  int    `mapstructure:"capacity"`
	MaxKeyLen int    `mapstructure:"max_key_len"`
	Hash      string `mapstructure:"hash"`
}

type InputC struct {
	Loader string `mapstructure:"loader"`
	Advise bool   `mapstructure:"advise"`
}

type OutputC struct {
	Rounding string `mapstructure:"rounding"`
}

type LogC struct {
	Level string `mapstructure:"level"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("table.capacity", 1<<16)
	v.SetDefault("table.max_key_len", 100)
	v.SetDefault("table.hash", HashPrefix)
	v.SetDefault("input.loader", string(input.LoaderMmap))
	v.SetDefault("input.advise", true)
	v.SetDefault("output.rounding", string(report.RoundHalfEven))
	v.SetDefault("log.level", "warning")
}

// Default returns the built-in configuration.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	c := &Config{}
	if err := v.Unmarshal(c); err != nil {
		panic(err)
	}
	return c
}

// Load reads the config file at path, if any, over the defaults.
// STATIONAGG_* environment variables override both.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config %s", path)
		}
	}

	c := &Config{}
	if err := v.Unmarshal(c); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	return c, nil
}

// Validate checks every field.
func (c *Config) Validate() error {
	if c.Table.Capacity < 1 {
		return errors.Errorf("table.capacity must be positive, got %d", c.Table.Capacity)
	}
	if c.Table.MaxKeyLen < 1 || c.Table.MaxKeyLen > table.MaxKeyLenLimit {
		return errors.Errorf("table.max_key_len must be in [1, %d], got %d", table.MaxKeyLenLimit, c.Table.MaxKeyLen)
	}
	if err := table.CheckSize(c.Table.Capacity, c.Table.MaxKeyLen); err != nil {
		return errors.Wrap(err, "table")
	}
	if _, err := c.HashFunc(); err != nil {
		return err
	}
	if _, err := input.ParseLoader(c.Input.Loader); err != nil {
		return errors.Wrap(err, "input.loader")
	}
	if _, err := report.ParseRounding(c.Output.Rounding); err != nil {
		return errors.Wrap(err, "output.rounding")
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return errors.Wrap(err, "log.level")
	}
	return nil
}

// HashFunc returns the table hash named by Table.Hash.
func (c *Config) HashFunc() (table.HashFunc, error) {
	switch c.Table.Hash {
	case HashPrefix:
		return table.PrefixHash, nil
	case HashXX:
		return table.XXHash, nil
	}
	return nil, errors.Errorf("table.hash: unknown hash %q", c.Table.Hash)
}

// InputOptions returns the options for input.Open.
func (c *Config) InputOptions() input.Options {
	return input.Options{
		Loader:     input.Loader(c.Input.Loader),
		Sequential: c.Input.Advise,
	}
}

// NewTable allocates the table described by c.
func (c *Config) NewTable() (*table.Table, error) {
	hash, err := c.HashFunc()
	if err != nil {
		return nil, err
	}
	return table.New(c.Table.Capacity, c.Table.MaxKeyLen, table.WithHash(hash))
}
