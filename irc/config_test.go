// Copyright (c) 2020 Shivaram Lingamneni
// released under the MIT license

package irc

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func loadTestConfig(t *testing.T, body string) (*Config, error) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatalf("could not write config: %v", err)
	}
	return LoadConfig(path)
}

const minimalConfig = `
servers:
  - host: irc.example.com
    nick: tester
datastore:
  path: /tmp/keys.db
`

func TestLoadConfigDefaults(t *testing.T) {
	config, err := loadTestConfig(t, minimalConfig)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	server := config.Server("irc.example.com")
	if server == nil {
		t.Fatalf("server name should default to host")
	}
	if server.Port != defaultPlainPort {
		t.Errorf("expected default port, got %d", server.Port)
	}
	if server.AltNick != "tester_" || server.Username != "tester" || server.Realname != "tester" {
		t.Errorf("identity defaults not applied: %+v", server)
	}
	if server.ReconnectDelay != defaultReconnectDelay || server.RegisterTimeout != defaultRegisterTimeout {
		t.Errorf("timing defaults not applied: %+v", server)
	}
	if config.Encryption.Iterations == 0 {
		t.Errorf("iteration default not applied")
	}
}

func TestLoadConfigTLSPort(t *testing.T) {
	config, err := loadTestConfig(t, `
servers:
  - host: irc.example.com
    nick: tester
    tls:
      enabled: true
datastore:
  path: /tmp/keys.db
`)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if config.Servers[0].Port != defaultTLSPort {
		t.Errorf("tls server should default to port %d, got %d", defaultTLSPort, config.Servers[0].Port)
	}
}

func TestLoadConfigDurations(t *testing.T) {
	config, err := loadTestConfig(t, `
servers:
  - host: irc.example.com
    nick: tester
    reconnect-delay: 5s
    register-timeout: 90s
datastore:
  path: /tmp/keys.db
`)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	server := config.Servers[0]
	if server.ReconnectDelay != 5*time.Second || server.RegisterTimeout != 90*time.Second {
		t.Errorf("durations not parsed: %v / %v", server.ReconnectDelay, server.RegisterTimeout)
	}
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	if _, err := loadTestConfig(t, `
datastore:
  path: /tmp/keys.db
`); err != ErrNoServersDefined {
		t.Errorf("expected ErrNoServersDefined, got %v", err)
	}

	if _, err := loadTestConfig(t, `
servers:
  - host: irc.example.com
    nick: tester
`); err != ErrDatastorePathMissing {
		t.Errorf("expected ErrDatastorePathMissing, got %v", err)
	}

	if _, err := loadTestConfig(t, `
servers:
  - nick: tester
datastore:
  path: /tmp/keys.db
`); err != ErrServerHostMissing {
		t.Errorf("expected ErrServerHostMissing, got %v", err)
	}

	if _, err := loadTestConfig(t, `
servers:
  - host: a.example.com
    name: net
    nick: tester
  - host: b.example.com
    name: net
    nick: tester
datastore:
  path: /tmp/keys.db
`); err == nil {
		t.Errorf("duplicate server names should be rejected")
	}
}

func TestLoadConfigLogging(t *testing.T) {
	config, err := loadTestConfig(t, minimalConfig+`
logging:
  - method: stderr
    type: "* -raw-io"
    level: debug
`)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	logConfig := config.Logging[0]
	if !logConfig.MethodStderr || logConfig.MethodFile {
		t.Errorf("methods not parsed: %+v", logConfig)
	}
	if len(logConfig.Types) != 1 || logConfig.Types[0] != "*" {
		t.Errorf("types not parsed: %+v", logConfig)
	}
	if len(logConfig.ExcludedTypes) != 1 || logConfig.ExcludedTypes[0] != "raw-io" {
		t.Errorf("excluded types not parsed: %+v", logConfig)
	}

	if _, err := loadTestConfig(t, minimalConfig+`
logging:
  - method: file
    type: "*"
    level: info
`); err != ErrLoggerFilenameMissing {
		t.Errorf("expected ErrLoggerFilenameMissing, got %v", err)
	}
}
