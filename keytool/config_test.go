/*
 * Copyright (c) 2025 Johan Stenstam, johani@johani.org
 */
package keytool

import (
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestParseConfig(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	viper.Set("keystore.dir", "/var/named/keys")
	viper.Set("dns.resolver", "192.0.2.1")
	viper.Set("dns.timeout", 10)
	viper.Set("dns.prefer_v4", true)
	viper.Set("perms.private_owner", "named")

	conf, err := ParseConfig()
	if err != nil {
		t.Fatalf("ParseConfig returned error: %v", err)
	}
	if conf.Keystore.Dir != "/var/named/keys" {
		t.Errorf("keystore dir = %q", conf.Keystore.Dir)
	}
	if conf.Dns.Resolver != "192.0.2.1" || !conf.Dns.PreferV4 {
		t.Errorf("dns section = %+v", conf.Dns)
	}
	if conf.QueryTimeout() != 10*time.Second {
		t.Errorf("QueryTimeout = %s", conf.QueryTimeout())
	}
	if conf.PermPolicy().PrivateOwner != "named" {
		t.Errorf("perm policy = %+v", conf.PermPolicy())
	}
}

func TestParseConfigRejectsBadTimeout(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	viper.Set("dns.timeout", 9000)
	if _, err := ParseConfig(); err == nil {
		t.Error("timeout above the cap accepted")
	}
}

// TestConfigDefaults: all accessors must work on a nil or zero config.
func TestConfigDefaults(t *testing.T) {
	var conf *Config
	if conf.QueryTimeout() != 5*time.Second {
		t.Errorf("nil config QueryTimeout = %s, want 5s", conf.QueryTimeout())
	}
	pp := conf.PermPolicy()
	if pp.KeyMode != 0644 || pp.PrivateMode != 0600 {
		t.Errorf("nil config perm policy = %+v", pp)
	}

	empty := &Config{}
	if empty.QueryTimeout() != 5*time.Second {
		t.Errorf("zero config QueryTimeout = %s, want 5s", empty.QueryTimeout())
	}
}

func TestGlobalsValidate(t *testing.T) {
	gs := GlobalStuff{}
	if err := gs.Validate(); err != nil {
		t.Errorf("empty globals invalid: %v", err)
	}

	gs.Resolver = "192.0.2.1"
	if err := gs.Validate(); err != nil {
		t.Errorf("plain resolver address rejected: %v", err)
	}
	gs.Resolver = "192.0.2.1:53"
	if err := gs.Validate(); err != nil {
		t.Errorf("resolver with port rejected: %v", err)
	}
	gs.Resolver = "not-an-address"
	if err := gs.Validate(); err == nil {
		t.Error("bad resolver address accepted")
	}

	gs = GlobalStuff{KeyDir: "/definitely/not/there"}
	if err := gs.Validate(); err == nil {
		t.Error("missing key directory accepted")
	}
	gs.KeyDir = t.TempDir()
	if err := gs.Validate(); err != nil {
		t.Errorf("existing key directory rejected: %v", err)
	}
}
