package main

import (
	"errors"
	"os"
	"time"

	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v2"

	"github.com/vine-io/formflow/lock/etcd"
	"github.com/vine-io/formflow/mapping"
)

const defaultConfigPath = "~/.formflow.yaml"

type Config struct {
	Etcd    EtcdConfig    `yaml:"etcd"`
	Mapping MappingConfig `yaml:"mapping"`
	// Workers bounds the xml2json batch pool.
	Workers int `yaml:"workers"`
}

type EtcdConfig struct {
	Endpoints   []string      `yaml:"endpoints"`
	DialTimeout time.Duration `yaml:"dialTimeout"`
	Prefix      string        `yaml:"prefix"`
	LeaseTTL    time.Duration `yaml:"leaseTTL"`
}

type MappingConfig struct {
	Strictness string `yaml:"strictness"`
}

func defaultConfig() *Config {
	return &Config{
		Etcd: EtcdConfig{
			Endpoints:   []string{"127.0.0.1:2379"},
			DialTimeout: time.Second * 3,
			Prefix:      etcd.DefaultPrefix,
		},
		Mapping: MappingConfig{Strictness: mapping.Ignore.Readably()},
		Workers: 8,
	}
}

// loadConfig reads the file at path over the defaults. A missing file at the
// default location is not an error.
func loadConfig(path string) (*Config, error) {
	cfg := defaultConfig()

	name, err := homedir.Expand(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && path == defaultConfigPath {
			return cfg, nil
		}
		return nil, err
	}

	if err = yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if _, err = mapping.ParseStrictness(cfg.Mapping.Strictness); err != nil {
		return nil, err
	}

	return cfg, nil
}
