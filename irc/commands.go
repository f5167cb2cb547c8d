// Copyright (c) 2012-2014 Jeremy Latt
// Copyright (c) 2016-2017 Daniel Oaks <daniel@danieloaks.net>
// released under the MIT license

package irc

import (
	"fmt"
	"strings"
)

// kickCmd needs its own usage string at runtime; naming it avoids an
// initialization cycle through the command table.
const kickUsage = "/kick [<channel>] <nick> [<reason>]"

// Command is a slash command usable from the input line.
type Command struct {
	handler func(client *Client, target, rest string) error
	// minParams is the minimum number of space-separated arguments
	minParams int
	usage     string
}

var userCommands = map[string]Command{
	"join": {
		handler:   joinCmd,
		minParams: 1,
		usage:     "/join <channel>{,<channel>} [<key>{,<key>}]",
	},
	"part": {
		handler: partCmd,
		usage:   "/part [<channel>] [<reason>]",
	},
	"nick": {
		handler:   nickCmd,
		minParams: 1,
		usage:     "/nick <newnick>",
	},
	"msg": {
		handler:   msgCmd,
		minParams: 2,
		usage:     "/msg <target> <text>",
	},
	"notice": {
		handler:   noticeCmd,
		minParams: 2,
		usage:     "/notice <target> <text>",
	},
	"query": {
		handler:   msgCmd,
		minParams: 2,
		usage:     "/query <nick> <text>",
	},
	"me": {
		handler:   meCmd,
		minParams: 1,
		usage:     "/me <action>",
	},
	"whois": {
		handler:   whoisCmd,
		minParams: 1,
		usage:     "/whois <nick>",
	},
	"topic": {
		handler: topicCmd,
		usage:   "/topic [<channel>] [<new topic>]",
	},
	"mode": {
		handler:   modeCmd,
		minParams: 1,
		usage:     "/mode <target> [<changes>]",
	},
	"kick": {
		handler:   kickCmd,
		minParams: 1,
		usage:     kickUsage,
	},
	"list": {
		handler: listCmd,
		usage:   "/list [<mask>]",
	},
	"quit": {
		handler: quitCmd,
		usage:   "/quit [<reason>]",
	},
	"raw": {
		handler:   rawCmd,
		minParams: 1,
		usage:     "/raw <line>",
	},
	"setkey": {
		handler:   setkeyCmd,
		minParams: 1,
		usage:     "/setkey [<target>] <passphrase>",
	},
	"clearkey": {
		handler: clearkeyCmd,
		usage:   "/clearkey [<target>]",
	},
}

// RunInput processes one line of user input against the currently
// focused conversation. Plain text becomes a message to that target;
// "/cmd" runs a command; "//text" escapes a leading slash; an
// unrecognized command is forwarded verbatim as a raw line.
func (client *Client) RunInput(line, target string) error {
	if strings.HasPrefix(line, "//") {
		line = line[1:]
	} else if strings.HasPrefix(line, "/") {
		name, rest, _ := strings.Cut(line[1:], " ")
		rest = strings.TrimSpace(rest)
		command, exists := userCommands[strings.ToLower(name)]
		if !exists {
			return client.SendRaw(strings.TrimSpace(line[1:]))
		}
		if len(strings.Fields(rest)) < command.minParams {
			return fmt.Errorf("Usage: %s", command.usage)
		}
		return command.handler(client, target, rest)
	}

	if target == "" {
		return errInvalidTarget
	}
	return client.SendMessage(target, line)
}

// resolveTarget substitutes the focused conversation when the first
// argument doesn't name a channel, for commands like /part and /topic
// that default to "here".
func resolveTarget(client *Client, target, rest string) (channel, remainder string, err error) {
	first, remainder, _ := strings.Cut(rest, " ")
	if client.isChannelName(first) {
		return first, strings.TrimSpace(remainder), nil
	}
	if target == "" || !client.isChannelName(target) {
		return "", "", errNoSuchChannel
	}
	return target, strings.TrimSpace(rest), nil
}

func joinCmd(client *Client, target, rest string) error {
	fields := strings.Fields(rest)
	return client.Send("JOIN", fields...)
}

func partCmd(client *Client, target, rest string) error {
	channel, reason, err := resolveTarget(client, target, rest)
	if err != nil {
		return err
	}
	if reason != "" {
		return client.Send("PART", channel, reason)
	}
	return client.Send("PART", channel)
}

func nickCmd(client *Client, target, rest string) error {
	newNick, _, _ := strings.Cut(rest, " ")
	return client.Send("NICK", newNick)
}

func msgCmd(client *Client, target, rest string) error {
	to, text, _ := strings.Cut(rest, " ")
	return client.SendMessage(to, text)
}

func noticeCmd(client *Client, target, rest string) error {
	to, text, _ := strings.Cut(rest, " ")
	return client.SendNotice(to, text)
}

func meCmd(client *Client, target, rest string) error {
	if target == "" {
		return errInvalidTarget
	}
	return client.SendAction(target, rest)
}

func whoisCmd(client *Client, target, rest string) error {
	return client.Send("WHOIS", strings.Fields(rest)...)
}

func topicCmd(client *Client, target, rest string) error {
	channel, topic, err := resolveTarget(client, target, rest)
	if err != nil {
		return err
	}
	if topic == "" {
		return client.Send("TOPIC", channel)
	}
	return client.Send("TOPIC", channel, topic)
}

func modeCmd(client *Client, target, rest string) error {
	return client.Send("MODE", strings.Fields(rest)...)
}

func kickCmd(client *Client, target, rest string) error {
	channel, remainder, err := resolveTarget(client, target, rest)
	if err != nil {
		return err
	}
	victim, reason, _ := strings.Cut(remainder, " ")
	if victim == "" {
		return fmt.Errorf("Usage: %s", kickUsage)
	}
	if reason != "" {
		return client.Send("KICK", channel, victim, reason)
	}
	return client.Send("KICK", channel, victim)
}

func listCmd(client *Client, target, rest string) error {
	return client.Send("LIST", strings.Fields(rest)...)
}

func quitCmd(client *Client, target, rest string) error {
	client.Quit(rest)
	return nil
}

func rawCmd(client *Client, target, rest string) error {
	return client.SendRaw(rest)
}

// /setkey #chan <passphrase> keys the named channel; otherwise the whole
// argument is the passphrase for the focused conversation (so passphrases
// may contain spaces).
func setkeyCmd(client *Client, target, rest string) error {
	first, remainder, _ := strings.Cut(rest, " ")
	remainder = strings.TrimSpace(remainder)
	if client.isChannelName(first) && remainder != "" {
		return client.SetKey(first, remainder)
	}
	if target == "" {
		return errInvalidTarget
	}
	return client.SetKey(target, rest)
}

func clearkeyCmd(client *Client, target, rest string) error {
	to, _, _ := strings.Cut(rest, " ")
	if to == "" {
		to = target
	}
	if to == "" {
		return errInvalidTarget
	}
	return client.ClearKey(to)
}
