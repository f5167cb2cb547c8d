// Copyright (c) 2016 Daniel Oaks <daniel@danieloaks.net>
// released under the MIT license

package isupport

import (
	"testing"
)

func isupportParams(tokens ...string) []string {
	params := []string{"nick"}
	params = append(params, tokens...)
	return append(params, "are supported by this server")
}

func TestParse(t *testing.T) {
	il := NewList()
	il.Parse(isupportParams("CASEMAPPING=ascii", "CHANTYPES=#", "PREFIX=(ov)@+", "NETWORK=Test\\x20Net", "INVEX"))

	if cm := il.CaseMapping(); cm != "ascii" {
		t.Errorf("expected ascii, got %s", cm)
	}
	if !il.IsChannel("#chat") {
		t.Errorf("#chat should be a channel")
	}
	if il.IsChannel("&chat") {
		t.Errorf("&chat should not be a channel under CHANTYPES=#")
	}
	if il.IsChannel("alice") {
		t.Errorf("alice should not be a channel")
	}
	if network := il.Network(); network != "Test Net" {
		t.Errorf("expected unescaped network name, got %s", network)
	}
	if !il.Contains("INVEX") {
		t.Errorf("INVEX should be present")
	}

	prefixes := il.Prefixes()
	if prefixes.Symbols != "@+" {
		t.Errorf("expected @+, got %s", prefixes.Symbols)
	}
}

func TestParseDefaults(t *testing.T) {
	il := NewList()
	if cm := il.CaseMapping(); cm != "rfc1459" {
		t.Errorf("expected rfc1459 default, got %s", cm)
	}
	if !il.IsChannel("&chat") {
		t.Errorf("&chat should be a channel by default")
	}
	if il.Prefixes().Symbols != "~&@%+" {
		t.Errorf("bad default prefixes: %s", il.Prefixes().Symbols)
	}
}

func TestParseRemoval(t *testing.T) {
	il := NewList()
	il.Parse(isupportParams("CHANTYPES=#", "MONITOR=100"))
	if il.GetInt("MONITOR", 0) != 100 {
		t.Errorf("MONITOR should be 100")
	}

	il.Parse(isupportParams("-MONITOR", "-CHANTYPES"))
	if il.Contains("MONITOR") {
		t.Errorf("MONITOR should have been revoked")
	}
	if !il.IsChannel("&chat") {
		t.Errorf("CHANTYPES should have reverted to the default")
	}
}

func TestParseTooShort(t *testing.T) {
	il := NewList()
	// a malformed 005 with no tokens must not panic or change state
	il.Parse([]string{"nick", "are supported by this server"})
	if len(il.Tokens) != 0 {
		t.Errorf("expected no tokens, got %v", il.Tokens)
	}
}
