// Copyright (c) 2017 Daniel Oaks
// released under the MIT license

package irc

import (
	"testing"
)

func TestCasefoldRFC1459(t *testing.T) {
	for input, expected := range map[string]string{
		"Nick":     "nick",
		"[Away]":   "{away}",
		"back\\~":  "back|^",
		"already":  "already",
		"MiXeD123": "mixed123",
		"ünïcode":  "ünïcode", // non-ascii bytes pass through
	} {
		if folded, err := CaseMappingRFC1459.Casefold(input); err != nil || folded != expected {
			t.Errorf("Casefold(%q) = %q/%v, expected %q", input, folded, err, expected)
		}
	}
}

func TestCasefoldASCII(t *testing.T) {
	folded, err := CaseMappingASCII.Casefold("Tilde~[A]")
	if err != nil || folded != "tilde~[a]" {
		t.Errorf("ascii folding must not touch []\\~, got %q/%v", folded, err)
	}
}

func TestCasefoldPrecis(t *testing.T) {
	folded, err := CaseMappingPRECIS.Casefold("Bücher")
	if err != nil || folded != "bücher" {
		t.Errorf("precis folding failed: %q/%v", folded, err)
	}
}

func TestCasefoldChannel(t *testing.T) {
	for input, expected := range map[string]string{
		"#Chat":    "#chat",
		"##DOUBLE": "##double",
		"&Local":   "&local",
		"#[Weird]": "#{weird}",
	} {
		if folded, err := CaseMappingRFC1459.CasefoldChannel(input); err != nil || folded != expected {
			t.Errorf("CasefoldChannel(%q) = %q/%v, expected %q", input, folded, err, expected)
		}
	}

	if _, err := CaseMappingRFC1459.CasefoldChannel(""); err == nil {
		t.Errorf("empty channel name should fail")
	}
}

func TestParseCaseMapping(t *testing.T) {
	for value, expected := range map[string]CaseMapping{
		"ascii":   CaseMappingASCII,
		"rfc1459": CaseMappingRFC1459,
		"RFC1459": CaseMappingRFC1459,
		"rfc8265": CaseMappingPRECIS,
	} {
		if cm, ok := ParseCaseMapping(value); !ok || cm != expected {
			t.Errorf("ParseCaseMapping(%q) = %v/%v", value, cm, ok)
		}
	}
	if _, ok := ParseCaseMapping("ebcdic"); ok {
		t.Errorf("unknown casemapping should not parse")
	}
}

func TestChannelIdentity(t *testing.T) {
	identity := ChannelIdentity("IRC.Example.COM", "#Chat")
	if identity != "irc.example.com:#chat" {
		t.Errorf("bad channel identity %q", identity)
	}
}

func TestPrivateIdentity(t *testing.T) {
	a := PrivateIdentity("irc.example.com", "Alice", "bob")
	b := PrivateIdentity("irc.example.com", "Bob", "alice")
	if a != b {
		t.Errorf("private identity must be symmetric: %q != %q", a, b)
	}
	if a != "irc.example.com:alice:bob" {
		t.Errorf("bad private identity %q", a)
	}
}
