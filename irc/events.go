// Copyright (c) 2020-2021 Daniel Oaks <daniel@danieloaks.net>
// released under the MIT license

package irc

import (
	"time"
)

// ConnectionState tracks where a session is in its lifecycle.
type ConnectionState uint

const (
	// Disconnected: no socket, no pending reconnect.
	Disconnected ConnectionState = iota
	// Connecting: dialing the transport.
	Connecting
	// Registering: transport is up, awaiting the welcome numeric.
	Registering
	// Registered: RPL_WELCOME received, session is live.
	Registered
	// Reconnecting: connection lost, a reconnect timer is pending.
	Reconnecting
)

func (state ConnectionState) String() string {
	switch state {
	case Connecting:
		return "connecting"
	case Registering:
		return "registering"
	case Registered:
		return "registered"
	case Reconnecting:
		return "reconnecting"
	default:
		return "disconnected"
	}
}

// Message is a chat line, inbound or locally echoed, after decryption.
type Message struct {
	// Server is the configured name of the originating session.
	Server string
	// Target is the conversation this belongs to (channel name, or the
	// remote nick for private messages).
	Target string
	Sender string
	Text   string
	// Notice marks a NOTICE rather than a PRIVMSG.
	Notice bool
	// Action marks a CTCP ACTION ("/me").
	Action bool
	// Query marks a private conversation.
	Query bool
	// Encrypted is true if the body arrived sealed and was decrypted,
	// or was sent sealed.
	Encrypted bool
	// Undecryptable is true if the body looked sealed but could not be
	// opened; Text then carries the raw wire body.
	Undecryptable bool
	Time          time.Time
}

// MembershipChange reports someone joining, parting, or being removed
// from a channel.
type MembershipChange struct {
	Server  string
	Channel string
	Nick    string
	// Change is one of "join", "part", "quit", "kick", "nick".
	Change string
	// Param carries the part/quit reason, the kicker's nick, or the
	// new nick on a nick change.
	Param string
}

// An EventHandler receives everything a session wants to surface.
// Callbacks are invoked from the session's reader goroutine, one at a
// time; implementations that block will stall inbound processing.
type EventHandler interface {
	HandleMessage(msg Message)
	HandleMembership(change MembershipChange)
	HandleTopic(server, channel, topic, setBy string)
	// HandleStatus receives connection lifecycle notices, MOTD lines,
	// unrecognized numerics, and local warnings.
	HandleStatus(server, text string)
	HandleStateChange(server string, state ConnectionState)
}

// NullHandler discards all events. Embed it to implement only part of
// the EventHandler interface.
type NullHandler struct{}

func (NullHandler) HandleMessage(msg Message)                              {}
func (NullHandler) HandleMembership(change MembershipChange)               {}
func (NullHandler) HandleTopic(server, channel, topic, setBy string)       {}
func (NullHandler) HandleStatus(server, text string)                       {}
func (NullHandler) HandleStateChange(server string, state ConnectionState) {}

var _ EventHandler = NullHandler{}
