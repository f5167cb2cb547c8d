// Copyright (c) 2012-2014 Jeremy Latt
// Copyright (c) 2016-2017 Daniel Oaks <daniel@danieloaks.net>
// released under the MIT license

package modes

import (
	"strings"
)

// ModeOp is an operation performed with modes
type ModeOp rune

const (
	// Add is used when adding the given key.
	Add ModeOp = '+'
	// List is used when listing modes (for instance, listing the current bans on a channel).
	List ModeOp = '='
	// Remove is used when taking away the given key.
	Remove ModeOp = '-'
)

// Mode represents a user/channel mode
type Mode rune

func (mode Mode) String() string {
	return string(mode)
}

// ModeChange is a single mode changing
type ModeChange struct {
	Mode Mode
	Op   ModeOp
	Arg  string
}

// ModeChanges are a collection of 'ModeChange's
type ModeChanges []ModeChange

// Modes is just a raw list of modes
type Modes []Mode

func (modes Modes) String() string {
	var builder strings.Builder
	for _, m := range modes {
		builder.WriteRune(rune(m))
	}
	return builder.String()
}

// Well-known channel membership modes, in descending order of precedence.
// Servers may advertise a different set via the PREFIX isupport token;
// these are the defaults assumed until then.
var (
	ChannelFounder  Mode = 'q'
	ChannelAdmin    Mode = 'a'
	ChannelOperator Mode = 'o'
	Halfop          Mode = 'h'
	Voice           Mode = 'v'

	DefaultUserModes = Modes{
		ChannelFounder, ChannelAdmin, ChannelOperator, Halfop, Voice,
	}

	DefaultUserPrefixes = "~&@%+"
)

// Prefixes describes the mapping between channel membership modes and the
// prefix characters that represent them, as advertised by a server in its
// PREFIX isupport token, e.g. PREFIX=(qaohv)~&@%+. Modes and Symbols are
// parallel and ordered by descending precedence.
type Prefixes struct {
	Modes   Modes
	Symbols string
}

// DefaultPrefixes covers servers that don't advertise PREFIX.
func DefaultPrefixes() Prefixes {
	return Prefixes{
		Modes:   DefaultUserModes,
		Symbols: DefaultUserPrefixes,
	}
}

// ParsePrefixToken parses the value of a PREFIX isupport token.
func ParsePrefixToken(token string) (result Prefixes, ok bool) {
	if len(token) == 0 || token[0] != '(' {
		return
	}
	closeIdx := strings.IndexByte(token, ')')
	if closeIdx == -1 {
		return
	}
	modeChars := token[1:closeIdx]
	symbols := token[closeIdx+1:]
	if len(modeChars) != len(symbols) || len(modeChars) == 0 {
		return
	}
	result.Modes = make(Modes, len(modeChars))
	for i, m := range modeChars {
		result.Modes[i] = Mode(m)
	}
	result.Symbols = symbols
	return result, true
}

// ModeForSymbol returns the membership mode corresponding to a prefix character.
func (p Prefixes) ModeForSymbol(symbol byte) (mode Mode, ok bool) {
	idx := strings.IndexByte(p.Symbols, symbol)
	if idx == -1 {
		return
	}
	return p.Modes[idx], true
}

// SymbolForMode returns the prefix character corresponding to a membership mode.
func (p Prefixes) SymbolForMode(mode Mode) (symbol string) {
	for i, m := range p.Modes {
		if m == mode {
			return string(p.Symbols[i])
		}
	}
	return
}

// IsMembershipMode returns whether the mode grants channel membership status.
func (p Prefixes) IsMembershipMode(mode Mode) bool {
	for _, m := range p.Modes {
		if m == mode {
			return true
		}
	}
	return false
}

// Highest returns the highest-precedence mode present in the given set,
// or 0 if none of them is a membership mode.
func (p Prefixes) Highest(modes Modes) (highest Mode) {
	for _, candidate := range p.Modes {
		for _, m := range modes {
			if m == candidate {
				return candidate
			}
		}
	}
	return
}

// SplitMembershipPrefixes takes a NAMES token (or a prefixed message target)
// and splits it into the leading prefix run and the bare name.
func (p Prefixes) SplitMembershipPrefixes(target string) (prefixes string, name string) {
	name = target
	for i := 0; i < len(target); i++ {
		if strings.IndexByte(p.Symbols, target[i]) == -1 {
			break
		}
		prefixes = target[:i+1]
		name = target[i+1:]
	}
	return
}

// ChanModes holds the four CHANMODES isupport classes: type A modes always
// take a parameter and manage lists, type B always take a parameter,
// type C take one only when set, type D never do.
type ChanModes [4]string

// DefaultChanModes matches the RFC 2811 channel modes.
func DefaultChanModes() ChanModes {
	return ChanModes{"beI", "k", "l", "imnpst"}
}

// ParseChanModesToken parses the value of a CHANMODES isupport token.
func ParseChanModesToken(token string) (result ChanModes, ok bool) {
	classes := strings.Split(token, ",")
	if len(classes) < 4 {
		return
	}
	// additional classes are reserved for future extension and ignored
	copy(result[:], classes[:4])
	return result, true
}

func (c ChanModes) takesArg(mode Mode, op ModeOp) bool {
	switch {
	case strings.ContainsRune(c[0], rune(mode)):
		return true
	case strings.ContainsRune(c[1], rune(mode)):
		return true
	case strings.ContainsRune(c[2], rune(mode)):
		return op == Add
	default:
		return false
	}
}

// ParseChannelModeChanges interprets the parameters of an inbound channel
// MODE line, given the server's advertised membership prefixes and CHANMODES
// classes. It returns the changes in order of appearance; mode characters
// from none of the known classes are assumed to be argumentless flags.
func ParseChannelModeChanges(prefixes Prefixes, chanModes ChanModes, params ...string) (changes ModeChanges) {
	if len(params) == 0 {
		return
	}

	op := List
	modeArg := params[0]
	skipArgs := 1

	for _, modeChar := range modeArg {
		if modeChar == '-' || modeChar == '+' {
			op = ModeOp(modeChar)
			continue
		}
		change := ModeChange{
			Mode: Mode(modeChar),
			Op:   op,
		}

		if prefixes.IsMembershipMode(change.Mode) || chanModes.takesArg(change.Mode, op) {
			if len(params) > skipArgs {
				change.Arg = params[skipArgs]
				skipArgs++
			} else {
				// a membership change without a nick argument is
				// uninterpretable, drop it
				if prefixes.IsMembershipMode(change.Mode) {
					continue
				}
			}
		}

		changes = append(changes, change)
	}

	return changes
}
