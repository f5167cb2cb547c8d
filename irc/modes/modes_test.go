// Copyright (c) 2017 Daniel Oaks <daniel@danieloaks.net>
// released under the MIT license

package modes

import (
	"reflect"
	"testing"
)

func TestParsePrefixToken(t *testing.T) {
	prefixes, ok := ParsePrefixToken("(qaohv)~&@%+")
	if !ok {
		t.Fatalf("failed to parse well-formed PREFIX token")
	}
	if prefixes.Symbols != "~&@%+" {
		t.Errorf("bad symbols: %s", prefixes.Symbols)
	}
	if !reflect.DeepEqual(prefixes.Modes, Modes{'q', 'a', 'o', 'h', 'v'}) {
		t.Errorf("bad modes: %v", prefixes.Modes)
	}

	for _, bad := range []string{"", "qaohv)~&@%+", "(qaohv~&@%+", "(qa)~&@", "()"} {
		if _, ok := ParsePrefixToken(bad); ok {
			t.Errorf("parsed malformed PREFIX token %s", bad)
		}
	}
}

func TestModeForSymbol(t *testing.T) {
	prefixes := DefaultPrefixes()
	mode, ok := prefixes.ModeForSymbol('@')
	if !ok || mode != ChannelOperator {
		t.Errorf("expected o, got %v", mode)
	}
	if _, ok := prefixes.ModeForSymbol('?'); ok {
		t.Errorf("unknown symbol should not resolve")
	}
	if sym := prefixes.SymbolForMode(Voice); sym != "+" {
		t.Errorf("expected +, got %s", sym)
	}
}

func TestSplitMembershipPrefixes(t *testing.T) {
	prefixes := DefaultPrefixes()

	prefixStr, name := prefixes.SplitMembershipPrefixes("alice")
	if prefixStr != "" || name != "alice" {
		t.Errorf("got %s / %s", prefixStr, name)
	}

	prefixStr, name = prefixes.SplitMembershipPrefixes("@alice")
	if prefixStr != "@" || name != "alice" {
		t.Errorf("got %s / %s", prefixStr, name)
	}

	prefixStr, name = prefixes.SplitMembershipPrefixes("@+alice")
	if prefixStr != "@+" || name != "alice" {
		t.Errorf("got %s / %s", prefixStr, name)
	}

	prefixStr, name = prefixes.SplitMembershipPrefixes("~@+")
	if prefixStr != "~@+" || name != "" {
		t.Errorf("got %s / %s", prefixStr, name)
	}
}

func TestHighest(t *testing.T) {
	prefixes := DefaultPrefixes()
	if h := prefixes.Highest(Modes{Voice, ChannelOperator}); h != ChannelOperator {
		t.Errorf("expected o, got %v", h)
	}
	if h := prefixes.Highest(Modes{}); h != 0 {
		t.Errorf("expected no mode, got %v", h)
	}
}

func TestParseChannelModeChanges(t *testing.T) {
	prefixes := DefaultPrefixes()
	chanModes := DefaultChanModes()

	changes := ParseChannelModeChanges(prefixes, chanModes, "+o", "alice")
	expected := ModeChanges{{Mode: ChannelOperator, Op: Add, Arg: "alice"}}
	if !reflect.DeepEqual(changes, expected) {
		t.Errorf("expected %v, got %v", expected, changes)
	}

	changes = ParseChannelModeChanges(prefixes, chanModes, "+ov-v", "alice", "bob", "carol")
	expected = ModeChanges{
		{Mode: ChannelOperator, Op: Add, Arg: "alice"},
		{Mode: Voice, Op: Add, Arg: "bob"},
		{Mode: Voice, Op: Remove, Arg: "carol"},
	}
	if !reflect.DeepEqual(changes, expected) {
		t.Errorf("expected %v, got %v", expected, changes)
	}

	// +k takes an argument, +m does not; the nick for +o follows the key
	changes = ParseChannelModeChanges(prefixes, chanModes, "+mko", "sekrit", "alice")
	expected = ModeChanges{
		{Mode: 'm', Op: Add},
		{Mode: 'k', Op: Add, Arg: "sekrit"},
		{Mode: ChannelOperator, Op: Add, Arg: "alice"},
	}
	if !reflect.DeepEqual(changes, expected) {
		t.Errorf("expected %v, got %v", expected, changes)
	}

	// removing a limit takes no argument (type C)
	changes = ParseChannelModeChanges(prefixes, chanModes, "-l")
	expected = ModeChanges{{Mode: 'l', Op: Remove}}
	if !reflect.DeepEqual(changes, expected) {
		t.Errorf("expected %v, got %v", expected, changes)
	}

	// a membership mode with no argument available is dropped
	changes = ParseChannelModeChanges(prefixes, chanModes, "+o")
	if len(changes) != 0 {
		t.Errorf("expected no changes, got %v", changes)
	}
}
