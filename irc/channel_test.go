// Copyright (c) 2017 Daniel Oaks
// released under the MIT license

package irc

import (
	"reflect"
	"testing"

	"github.com/veilchat/veil/irc/modes"
)

func testFold(s string) string {
	folded, _ := CaseMappingRFC1459.Casefold(s)
	return folded
}

func TestChannelNamesBurst(t *testing.T) {
	channel := newChannel("#chat", "#chat")
	prefixes := modes.DefaultPrefixes()

	channel.addNames([]string{"@Op", "+Voiced", "Plain"})
	channel.addNames([]string{"~Founder", "Other!user@host"})
	channel.endNames(prefixes, testFold)

	if channel.MemberCount() != 5 {
		t.Fatalf("expected 5 members, got %d", channel.MemberCount())
	}
	if !channel.hasMember("other") {
		t.Errorf("userhost-in-names entry should be reduced to the nick")
	}

	expected := []string{"~Founder", "@Op", "+Voiced", "Other", "Plain"}
	if members := channel.Members(prefixes); !reflect.DeepEqual(members, expected) {
		t.Errorf("expected %v, got %v", expected, members)
	}
}

func TestChannelNamesBurstReplacesRoster(t *testing.T) {
	channel := newChannel("#chat", "#chat")
	prefixes := modes.DefaultPrefixes()

	channel.addNames([]string{"Old"})
	channel.endNames(prefixes, testFold)

	// a second burst starts from scratch
	channel.addNames([]string{"New"})
	channel.endNames(prefixes, testFold)

	if channel.hasMember("old") || !channel.hasMember("new") {
		t.Errorf("second burst should replace the roster")
	}
}

func TestChannelMembershipChanges(t *testing.T) {
	channel := newChannel("#chat", "#chat")
	prefixes := modes.DefaultPrefixes()

	channel.addMember("alice", "Alice", nil)
	channel.addMember("bob", "Bob", modes.Modes{modes.ChannelOperator})

	if !channel.renameMember("alice", "alicia", "Alicia") {
		t.Fatalf("rename should succeed")
	}
	if channel.hasMember("alice") || !channel.hasMember("alicia") {
		t.Errorf("rename did not rekey the member")
	}

	channel.applyModeChange(modes.ModeChange{Mode: modes.Voice, Op: modes.Add, Arg: "Alicia"}, "alicia")
	expected := []string{"@Bob", "+Alicia"}
	if members := channel.Members(prefixes); !reflect.DeepEqual(members, expected) {
		t.Errorf("expected %v, got %v", expected, members)
	}

	channel.applyModeChange(modes.ModeChange{Mode: modes.ChannelOperator, Op: modes.Remove, Arg: "Bob"}, "bob")
	expected = []string{"+Alicia", "Bob"}
	if members := channel.Members(prefixes); !reflect.DeepEqual(members, expected) {
		t.Errorf("expected %v, got %v", expected, members)
	}

	if !channel.removeMember("bob") {
		t.Errorf("remove should report presence")
	}
	if channel.removeMember("bob") {
		t.Errorf("second remove should report absence")
	}
}

func TestChannelTopic(t *testing.T) {
	channel := newChannel("#chat", "#chat")
	channel.setTopic("welcome", "Oper")
	topic, setBy := channel.Topic()
	if topic != "welcome" || setBy != "Oper" {
		t.Errorf("topic not stored: %q / %q", topic, setBy)
	}
}
