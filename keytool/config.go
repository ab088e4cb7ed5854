/*
 * Copyright (c) 2025 Johan Stenstam, johani@johani.org
 */

package keytool

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

const DefaultCfgFile = "/etc/dnskeytool/dnskeytool.yaml"

type Config struct {
	Keystore KeystoreConf `yaml:"keystore" mapstructure:"keystore"`
	Dns      DnsConf      `yaml:"dns" mapstructure:"dns"`
	Perms    PermsConf    `yaml:"perms" mapstructure:"perms"`
	Log      LogConf      `yaml:"log" mapstructure:"log"`
}

type KeystoreConf struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

type DnsConf struct {
	Resolver string `yaml:"resolver" mapstructure:"resolver"`
	Timeout  int    `yaml:"timeout" mapstructure:"timeout" validate:"gte=0,lte=300"`
	PreferV4 bool   `yaml:"prefer_v4" mapstructure:"prefer_v4"`
}

type PermsConf struct {
	KeyOwner     string `yaml:"key_owner" mapstructure:"key_owner"`
	KeyGroup     string `yaml:"key_group" mapstructure:"key_group"`
	PrivateOwner string `yaml:"private_owner" mapstructure:"private_owner"`
	PrivateGroup string `yaml:"private_group" mapstructure:"private_group"`
}

type LogConf struct {
	File string `yaml:"file" mapstructure:"file"`
}

// ParseConfig unmarshals and validates whatever viper has read in. All
// sections are optional; the zero Config gives the built-in defaults.
func ParseConfig() (*Config, error) {
	var conf Config
	if err := viper.Unmarshal(&conf); err != nil {
		return nil, fmt.Errorf("config unmarshal error: %v", err)
	}
	v := validator.New()
	if err := v.Struct(&conf); err != nil {
		return nil, fmt.Errorf("config is invalid: %v", err)
	}
	return &conf, nil
}

// QueryTimeout returns the configured per-query DNS timeout, defaulting to
// five seconds.
func (c *Config) QueryTimeout() time.Duration {
	if c == nil || c.Dns.Timeout == 0 {
		return 5 * time.Second
	}
	return time.Duration(c.Dns.Timeout) * time.Second
}

// PermPolicy builds the permission policy with configured ownership.
func (c *Config) PermPolicy() PermPolicy {
	pp := DefaultPermPolicy()
	if c == nil {
		return pp
	}
	pp.KeyOwner = c.Perms.KeyOwner
	pp.KeyGroup = c.Perms.KeyGroup
	pp.PrivateOwner = c.Perms.PrivateOwner
	pp.PrivateGroup = c.Perms.PrivateGroup
	return pp
}
