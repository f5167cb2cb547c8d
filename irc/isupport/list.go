// Copyright (c) 2016 Daniel Oaks <daniel@danieloaks.net>
// released under the MIT license

package isupport

import (
	"strconv"
	"strings"

	"github.com/veilchat/veil/irc/modes"
)

// List holds the RPL_ISUPPORT tokens advertised by a server over the course
// of one connection. Tokens accumulate across multiple 005 lines; a token
// prefixed with '-' revokes an earlier advertisement.
type List struct {
	Tokens map[string]string

	// derived from the tokens above as they arrive
	prefixes  modes.Prefixes
	chanModes modes.ChanModes
	chanTypes string
}

// NewList returns a List populated with conservative RFC defaults.
func NewList() *List {
	var il List
	il.Initialize()
	return &il
}

func (il *List) Initialize() {
	il.Tokens = make(map[string]string)
	il.prefixes = modes.DefaultPrefixes()
	il.chanModes = modes.DefaultChanModes()
	il.chanTypes = "#&"
}

// Parse ingests the parameters of one RPL_ISUPPORT line. The first parameter
// is the client's nick and the last is the "are supported by this server"
// trailing; everything in between is a token.
func (il *List) Parse(params []string) {
	if len(params) < 3 {
		return
	}
	for _, token := range params[1 : len(params)-1] {
		if len(token) == 0 {
			continue
		}
		if token[0] == '-' {
			il.remove(token[1:])
			continue
		}
		name, value := token, ""
		if idx := strings.IndexByte(token, '='); idx != -1 {
			name, value = token[:idx], unescapeValue(token[idx+1:])
		}
		il.add(name, value)
	}
}

func (il *List) add(name, value string) {
	il.Tokens[name] = value
	switch name {
	case "PREFIX":
		if prefixes, ok := modes.ParsePrefixToken(value); ok {
			il.prefixes = prefixes
		}
	case "CHANMODES":
		if chanModes, ok := modes.ParseChanModesToken(value); ok {
			il.chanModes = chanModes
		}
	case "CHANTYPES":
		// an empty CHANTYPES means the server has no channels at all
		il.chanTypes = value
	}
}

func (il *List) remove(name string) {
	delete(il.Tokens, name)
	switch name {
	case "PREFIX":
		il.prefixes = modes.DefaultPrefixes()
	case "CHANMODES":
		il.chanModes = modes.DefaultChanModes()
	case "CHANTYPES":
		il.chanTypes = "#&"
	}
}

// Contains returns whether the server advertised a token.
func (il *List) Contains(name string) bool {
	_, ok := il.Tokens[name]
	return ok
}

// Get returns a token's value, with ok reporting whether it was advertised.
func (il *List) Get(name string) (value string, ok bool) {
	value, ok = il.Tokens[name]
	return
}

// GetInt returns a token's value as an integer, or def if the token is
// absent or unparseable.
func (il *List) GetInt(name string, def int) int {
	value, ok := il.Tokens[name]
	if !ok {
		return def
	}
	if result, err := strconv.Atoi(value); err == nil {
		return result
	}
	return def
}

// CaseMapping returns the advertised CASEMAPPING value, defaulting to rfc1459.
func (il *List) CaseMapping() string {
	if value, ok := il.Tokens["CASEMAPPING"]; ok && value != "" {
		return strings.ToLower(value)
	}
	return "rfc1459"
}

// Network returns the advertised network name, if any.
func (il *List) Network() string {
	return il.Tokens["NETWORK"]
}

// Prefixes returns the membership prefix mapping currently in effect.
func (il *List) Prefixes() modes.Prefixes {
	return il.prefixes
}

// ChanModes returns the CHANMODES classes currently in effect.
func (il *List) ChanModes() modes.ChanModes {
	return il.chanModes
}

// ChanTypes returns the characters that introduce a channel name.
func (il *List) ChanTypes() string {
	return il.chanTypes
}

// IsChannel returns whether target names a channel on this server.
func (il *List) IsChannel(target string) bool {
	return len(target) > 0 && strings.IndexByte(il.chanTypes, target[0]) != -1
}

// isupport values escape spaces and other problematic bytes as \xHH
// sequences, e.g. NETWORK=Some\x20Network.
func unescapeValue(value string) string {
	if !strings.Contains(value, `\x`) {
		return value
	}
	var out strings.Builder
	out.Grow(len(value))
	for i := 0; i < len(value); {
		if value[i] == '\\' && i+3 < len(value) && value[i+1] == 'x' {
			if b, err := strconv.ParseUint(value[i+2:i+4], 16, 8); err == nil {
				out.WriteByte(byte(b))
				i += 4
				continue
			}
		}
		out.WriteByte(value[i])
		i++
	}
	return out.String()
}
