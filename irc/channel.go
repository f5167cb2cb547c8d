// Copyright (c) 2012-2014 Jeremy Latt
// Copyright (c) 2014-2015 Edmund Huber
// Copyright (c) 2017 Daniel Oaks <daniel@danieloaks.net>
// released under the MIT license

package irc

import (
	"sort"
	"strings"

	"github.com/veilchat/veil/irc/modes"
)

// memberData tracks one nick's presence in a channel.
type memberData struct {
	// nick in its original (display) case
	nick string
	// membership modes held (+o, +v, ...)
	modes modes.Modes
}

func (md *memberData) hasMode(mode modes.Mode) bool {
	for _, m := range md.modes {
		if m == mode {
			return true
		}
	}
	return false
}

func (md *memberData) setMode(mode modes.Mode, on bool) {
	present := md.hasMode(mode)
	if on && !present {
		md.modes = append(md.modes, mode)
	} else if !on && present {
		kept := md.modes[:0]
		for _, m := range md.modes {
			if m != mode {
				kept = append(kept, m)
			}
		}
		md.modes = kept
	}
}

// Channel is the state of one channel we are in (or were in; parted
// channels keep their conversation history upstream, but this state is
// discarded). All access is serialized by the owning session.
type Channel struct {
	name           string
	nameCasefolded string

	topic      string
	topicSetBy string

	members map[string]*memberData

	// 353 replies accumulate here until the closing 366
	namesBuffer []string
	// syncingNames is set while a NAMES burst is in flight; the first
	// 353 after a 366 starts a fresh roster
	syncingNames bool
}

func newChannel(name, nameCasefolded string) *Channel {
	return &Channel{
		name:           name,
		nameCasefolded: nameCasefolded,
		members:        make(map[string]*memberData),
	}
}

func (channel *Channel) Name() string {
	return channel.name
}

func (channel *Channel) Topic() (topic, setBy string) {
	return channel.topic, channel.topicSetBy
}

func (channel *Channel) setTopic(topic, setBy string) {
	channel.topic = topic
	channel.topicSetBy = setBy
}

// addMember records a nick, replacing any previous entry (a rejoin
// resets membership modes).
func (channel *Channel) addMember(foldedNick, nick string, prefixModes modes.Modes) {
	channel.members[foldedNick] = &memberData{nick: nick, modes: prefixModes}
}

func (channel *Channel) removeMember(foldedNick string) (present bool) {
	_, present = channel.members[foldedNick]
	delete(channel.members, foldedNick)
	return
}

func (channel *Channel) hasMember(foldedNick string) bool {
	_, present := channel.members[foldedNick]
	return present
}

func (channel *Channel) renameMember(oldFolded, newFolded, newNick string) (present bool) {
	md, present := channel.members[oldFolded]
	if !present {
		return false
	}
	delete(channel.members, oldFolded)
	md.nick = newNick
	channel.members[newFolded] = md
	return true
}

func (channel *Channel) applyModeChange(change modes.ModeChange, foldedArg string) {
	md, present := channel.members[foldedArg]
	if !present {
		return
	}
	md.setMode(change.Mode, change.Op == modes.Add)
}

// beginNames starts accumulating a NAMES burst.
func (channel *Channel) beginNames() {
	if !channel.syncingNames {
		channel.syncingNames = true
		channel.namesBuffer = channel.namesBuffer[:0]
	}
}

func (channel *Channel) addNames(names []string) {
	channel.beginNames()
	channel.namesBuffer = append(channel.namesBuffer, names...)
}

// endNames replaces the roster with the accumulated burst. Each entry
// may carry membership prefix symbols, which are translated to modes
// using the server's advertised prefix table.
func (channel *Channel) endNames(prefixes modes.Prefixes, casefold func(string) string) {
	if !channel.syncingNames {
		return
	}
	channel.syncingNames = false

	roster := make(map[string]*memberData, len(channel.namesBuffer))
	for _, entry := range channel.namesBuffer {
		symbols, nick := prefixes.SplitMembershipPrefixes(entry)
		if nick == "" {
			continue
		}
		// a userhost-in-names entry carries the full nick!user@host
		if idx := strings.IndexByte(nick, '!'); idx != -1 {
			nick = nick[:idx]
		}
		var memberModes modes.Modes
		for i := 0; i < len(symbols); i++ {
			if mode, ok := prefixes.ModeForSymbol(symbols[i]); ok {
				memberModes = append(memberModes, mode)
			}
		}
		roster[casefold(nick)] = &memberData{nick: nick, modes: memberModes}
	}
	channel.members = roster
	channel.namesBuffer = channel.namesBuffer[:0]
}

// Members returns the current nicks, highest-privilege prefix first,
// alphabetical within a tier, each decorated with its highest prefix
// symbol (if any).
func (channel *Channel) Members(prefixes modes.Prefixes) []string {
	type entry struct {
		display string
		rank    int
		folded  string
	}
	entries := make([]entry, 0, len(channel.members))
	for folded, md := range channel.members {
		display := md.nick
		rank := len(prefixes.Modes)
		if highest := prefixes.Highest(md.modes); highest != 0 {
			display = prefixes.SymbolForMode(highest) + display
			for i, m := range prefixes.Modes {
				if m == highest {
					rank = i
					break
				}
			}
		}
		entries = append(entries, entry{display: display, rank: rank, folded: folded})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].rank != entries[j].rank {
			return entries[i].rank < entries[j].rank
		}
		return entries[i].folded < entries[j].folded
	})
	result := make([]string, len(entries))
	for i, e := range entries {
		result[i] = e.display
	}
	return result
}

func (channel *Channel) MemberCount() int {
	return len(channel.members)
}
