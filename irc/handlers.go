// Copyright (c) 2012-2014 Jeremy Latt
// Copyright (c) 2014-2015 Edmund Huber
// Copyright (c) 2016-2018 Daniel Oaks <daniel@danieloaks.net>
// released under the MIT license

package irc

import (
	"strings"

	"github.com/ergochat/irc-go/ircmsg"

	"github.com/veilchat/veil/irc/modes"
	"github.com/veilchat/veil/irc/utils"
)

// a handler returns non-nil only for fatal registration failures
type clientHandler func(client *Client, msg ircmsg.Message) *RegistrationError

var clientHandlers = map[string]clientHandler{
	"PING":    pingHandler,
	"PONG":    pongHandler,
	"PRIVMSG": privmsgHandler,
	"NOTICE":  privmsgHandler,
	"JOIN":    joinHandler,
	"PART":    partHandler,
	"KICK":    kickHandler,
	"QUIT":    quitHandler,
	"NICK":    nickHandler,
	"MODE":    modeHandler,
	"TOPIC":   topicHandler,
	"ERROR":   errorHandler,

	RPL_WELCOME:          welcomeHandler,
	RPL_ISUPPORT:         isupportHandler,
	RPL_LISTSTART:        listHandler,
	RPL_LIST:             listHandler,
	RPL_LISTEND:          listHandler,
	RPL_NOTOPIC:          topicReplyHandler,
	RPL_TOPIC:            topicReplyHandler,
	RPL_TOPICWHOTIME:     topicWhoTimeHandler,
	RPL_NAMREPLY:         namesHandler,
	RPL_ENDOFNAMES:       endOfNamesHandler,
	RPL_MOTDSTART:        motdHandler,
	RPL_MOTD:             motdHandler,
	RPL_ENDOFMOTD:        endOfMotdHandler,
	ERR_NOMOTD:           endOfMotdHandler,
	ERR_ERRONEUSNICK:     badNickHandler,
	ERR_NICKNAMEINUSE:    badNickHandler,
	ERR_NICKCOLLISION:    badNickHandler,
	ERR_PASSWDMISMATCH:   registrationFailedHandler,
	ERR_YOUREBANNEDCREEP: registrationFailedHandler,
}

func lastParam(msg ircmsg.Message) string {
	if len(msg.Params) == 0 {
		return ""
	}
	return msg.Params[len(msg.Params)-1]
}

// handleUnknown surfaces anything we don't interpret as a status line,
// so nothing the server says is silently dropped.
func (client *Client) handleUnknown(msg ircmsg.Message) {
	// strip the addressed-nick param that numerics carry
	params := msg.Params
	if len(params) > 0 && len(msg.Command) == 3 {
		params = params[1:]
	}
	client.notice("%s %s", msg.Command, strings.Join(params, " "))
}

func pingHandler(client *Client, msg ircmsg.Message) *RegistrationError {
	client.sendPriority("PONG", msg.Params...)
	return nil
}

func pongHandler(client *Client, msg ircmsg.Message) *RegistrationError {
	client.stateMutex.RLock()
	token := client.pingToken
	client.stateMutex.RUnlock()
	if token != "" && !utils.SecretTokensMatch(token, lastParam(msg)) {
		client.logger.Debug("keepalive", client.config.Name, "stale pong")
	}
	return nil
}

func welcomeHandler(client *Client, msg ircmsg.Message) *RegistrationError {
	client.stateMutex.Lock()
	client.registered = true
	if len(msg.Params) > 0 {
		client.nick = msg.Params[0]
	}
	client.stateMutex.Unlock()

	client.setState(Registered)
	client.notice("%s", lastParam(msg))
	return nil
}

func isupportHandler(client *Client, msg ircmsg.Message) *RegistrationError {
	client.stateMutex.Lock()
	client.isupport.Parse(msg.Params)
	if cm, ok := ParseCaseMapping(client.isupport.CaseMapping()); ok {
		client.casemapping = cm
	}
	client.stateMutex.Unlock()
	return nil
}

func motdHandler(client *Client, msg ircmsg.Message) *RegistrationError {
	client.notice("%s", lastParam(msg))
	return nil
}

// the end of the MOTD (or its absence) is the signal that the server is
// ready for JOINs; a replayed MOTD (/raw motd) must not join again
func endOfMotdHandler(client *Client, msg ircmsg.Message) *RegistrationError {
	client.stateMutex.Lock()
	alreadyJoined := client.autoJoined
	client.autoJoined = true
	client.stateMutex.Unlock()

	if alreadyJoined || len(client.config.AutoJoin) == 0 {
		return nil
	}
	var tlb utils.TokenLineBuilder
	tlb.Initialize(maxLineLen-len("JOIN :\r\n"), ",")
	for _, channel := range client.config.AutoJoin {
		tlb.Add(channel)
	}
	for _, line := range tlb.Lines() {
		client.Send("JOIN", line)
	}
	return nil
}

func badNickHandler(client *Client, msg ircmsg.Message) *RegistrationError {
	if client.Registered() {
		// a refused nick change; our old nick still stands
		client.notice("Nick change refused: %s", lastParam(msg))
		return nil
	}

	client.stateMutex.Lock()
	tried := client.triedAltNick
	client.triedAltNick = true
	altNick := client.config.AltNick
	client.stateMutex.Unlock()

	if !tried && altNick != "" {
		client.notice("Nick is taken, trying %s", altNick)
		client.stateMutex.Lock()
		client.nick = altNick
		client.stateMutex.Unlock()
		client.Send("NICK", altNick)
		return nil
	}
	return &RegistrationError{Numeric: msg.Command, Message: lastParam(msg)}
}

func registrationFailedHandler(client *Client, msg ircmsg.Message) *RegistrationError {
	return &RegistrationError{Numeric: msg.Command, Message: lastParam(msg)}
}

func errorHandler(client *Client, msg ircmsg.Message) *RegistrationError {
	client.notice("Server error: %s", lastParam(msg))
	return nil
}

func listHandler(client *Client, msg ircmsg.Message) *RegistrationError {
	switch msg.Command {
	case RPL_LIST:
		if len(msg.Params) >= 4 {
			client.notice("%s (%s users) %s", msg.Params[1], msg.Params[2], msg.Params[3])
		}
	case RPL_LISTEND:
		client.notice("End of channel list")
	}
	return nil
}

func joinHandler(client *Client, msg ircmsg.Message) *RegistrationError {
	if len(msg.Params) == 0 {
		return nil
	}
	nick := msg.Nick()
	channelName := msg.Params[0]
	foldedNick := client.casefold(nick)

	client.stateMutex.Lock()
	foldedChannel, err := client.casemapping.CasefoldChannel(channelName)
	if err != nil {
		client.stateMutex.Unlock()
		return nil
	}
	foldedSelf, _ := client.casemapping.Casefold(client.nick)
	if foldedNick == foldedSelf {
		client.channels[foldedChannel] = newChannel(channelName, foldedChannel)
	} else if channel := client.channels[foldedChannel]; channel != nil {
		channel.addMember(foldedNick, nick, nil)
	}
	client.stateMutex.Unlock()

	client.handler.HandleMembership(MembershipChange{
		Server:  client.config.Name,
		Channel: channelName,
		Nick:    nick,
		Change:  "join",
	})
	return nil
}

func partHandler(client *Client, msg ircmsg.Message) *RegistrationError {
	if len(msg.Params) == 0 {
		return nil
	}
	nick := msg.Nick()
	channelName := msg.Params[0]
	reason := ""
	if len(msg.Params) > 1 {
		reason = msg.Params[1]
	}
	foldedNick := client.casefold(nick)

	client.stateMutex.Lock()
	foldedChannel, err := client.casemapping.CasefoldChannel(channelName)
	if err != nil {
		client.stateMutex.Unlock()
		return nil
	}
	foldedSelf, _ := client.casemapping.Casefold(client.nick)
	if foldedNick == foldedSelf {
		delete(client.channels, foldedChannel)
	} else if channel := client.channels[foldedChannel]; channel != nil {
		channel.removeMember(foldedNick)
	}
	client.stateMutex.Unlock()

	client.handler.HandleMembership(MembershipChange{
		Server:  client.config.Name,
		Channel: channelName,
		Nick:    nick,
		Change:  "part",
		Param:   reason,
	})
	return nil
}

func kickHandler(client *Client, msg ircmsg.Message) *RegistrationError {
	if len(msg.Params) < 2 {
		return nil
	}
	channelName, victim := msg.Params[0], msg.Params[1]
	foldedVictim := client.casefold(victim)

	client.stateMutex.Lock()
	foldedChannel, err := client.casemapping.CasefoldChannel(channelName)
	if err != nil {
		client.stateMutex.Unlock()
		return nil
	}
	foldedSelf, _ := client.casemapping.Casefold(client.nick)
	if foldedVictim == foldedSelf {
		delete(client.channels, foldedChannel)
	} else if channel := client.channels[foldedChannel]; channel != nil {
		channel.removeMember(foldedVictim)
	}
	client.stateMutex.Unlock()

	client.handler.HandleMembership(MembershipChange{
		Server:  client.config.Name,
		Channel: channelName,
		Nick:    victim,
		Change:  "kick",
		Param:   msg.Nick(),
	})
	return nil
}

// a QUIT affects every channel the quitter shared with us
func quitHandler(client *Client, msg ircmsg.Message) *RegistrationError {
	nick := msg.Nick()
	foldedNick := client.casefold(nick)
	reason := lastParam(msg)

	var affected []string
	client.stateMutex.Lock()
	for _, channel := range client.channels {
		if channel.removeMember(foldedNick) {
			affected = append(affected, channel.Name())
		}
	}
	client.stateMutex.Unlock()

	for _, channelName := range affected {
		client.handler.HandleMembership(MembershipChange{
			Server:  client.config.Name,
			Channel: channelName,
			Nick:    nick,
			Change:  "quit",
			Param:   reason,
		})
	}
	return nil
}

func nickHandler(client *Client, msg ircmsg.Message) *RegistrationError {
	if len(msg.Params) == 0 {
		return nil
	}
	oldNick := msg.Nick()
	newNick := msg.Params[0]
	foldedOld := client.casefold(oldNick)
	foldedNew := client.casefold(newNick)

	var affected []string
	client.stateMutex.Lock()
	foldedSelf, _ := client.casemapping.Casefold(client.nick)
	if foldedOld == foldedSelf {
		client.nick = newNick
	}
	for _, channel := range client.channels {
		if channel.renameMember(foldedOld, foldedNew, newNick) {
			affected = append(affected, channel.Name())
		}
	}
	client.stateMutex.Unlock()

	for _, channelName := range affected {
		client.handler.HandleMembership(MembershipChange{
			Server:  client.config.Name,
			Channel: channelName,
			Nick:    oldNick,
			Change:  "nick",
			Param:   newNick,
		})
	}
	return nil
}

func modeHandler(client *Client, msg ircmsg.Message) *RegistrationError {
	if len(msg.Params) < 2 {
		return nil
	}
	target := msg.Params[0]

	client.stateMutex.Lock()
	if !client.isupport.IsChannel(target) {
		// user modes don't affect any client state we track
		client.stateMutex.Unlock()
		return nil
	}
	foldedChannel, err := client.casemapping.CasefoldChannel(target)
	if err != nil {
		client.stateMutex.Unlock()
		return nil
	}
	channel := client.channels[foldedChannel]
	if channel != nil {
		changes := modes.ParseChannelModeChanges(
			client.isupport.Prefixes(), client.isupport.ChanModes(), msg.Params[1:]...)
		for _, change := range changes {
			if change.Arg != "" && client.isupport.Prefixes().IsMembershipMode(change.Mode) {
				folded, _ := client.casemapping.Casefold(change.Arg)
				channel.applyModeChange(change, folded)
			}
		}
	}
	client.stateMutex.Unlock()

	client.notice("Mode %s %s by %s", target, strings.Join(msg.Params[1:], " "), msg.Nick())
	return nil
}

func topicHandler(client *Client, msg ircmsg.Message) *RegistrationError {
	if len(msg.Params) < 2 {
		return nil
	}
	channelName, topic := msg.Params[0], msg.Params[1]
	setBy := msg.Nick()

	client.stateMutex.Lock()
	if foldedChannel, err := client.casemapping.CasefoldChannel(channelName); err == nil {
		if channel := client.channels[foldedChannel]; channel != nil {
			channel.setTopic(topic, setBy)
		}
	}
	client.stateMutex.Unlock()

	client.handler.HandleTopic(client.config.Name, channelName, topic, setBy)
	return nil
}

// 331/332: the topic reply after joining or asking
func topicReplyHandler(client *Client, msg ircmsg.Message) *RegistrationError {
	if len(msg.Params) < 2 {
		return nil
	}
	channelName := msg.Params[1]
	topic := ""
	if msg.Command == RPL_TOPIC && len(msg.Params) > 2 {
		topic = msg.Params[2]
	}

	client.stateMutex.Lock()
	if foldedChannel, err := client.casemapping.CasefoldChannel(channelName); err == nil {
		if channel := client.channels[foldedChannel]; channel != nil {
			channel.setTopic(topic, "")
		}
	}
	client.stateMutex.Unlock()

	client.handler.HandleTopic(client.config.Name, channelName, topic, "")
	return nil
}

func topicWhoTimeHandler(client *Client, msg ircmsg.Message) *RegistrationError {
	if len(msg.Params) < 3 {
		return nil
	}
	channelName, setBy := msg.Params[1], msg.Params[2]

	client.stateMutex.Lock()
	if foldedChannel, err := client.casemapping.CasefoldChannel(channelName); err == nil {
		if channel := client.channels[foldedChannel]; channel != nil {
			channel.topicSetBy = setBy
		}
	}
	client.stateMutex.Unlock()
	return nil
}

func namesHandler(client *Client, msg ircmsg.Message) *RegistrationError {
	// :server 353 nick = #chan :name1 name2 ...
	if len(msg.Params) < 4 {
		return nil
	}
	channelName, names := msg.Params[2], msg.Params[3]

	client.stateMutex.Lock()
	if foldedChannel, err := client.casemapping.CasefoldChannel(channelName); err == nil {
		if channel := client.channels[foldedChannel]; channel != nil {
			channel.addNames(strings.Fields(names))
		}
	}
	client.stateMutex.Unlock()
	return nil
}

func endOfNamesHandler(client *Client, msg ircmsg.Message) *RegistrationError {
	if len(msg.Params) < 2 {
		return nil
	}
	channelName := msg.Params[1]

	client.stateMutex.Lock()
	cm := client.casemapping
	if foldedChannel, err := cm.CasefoldChannel(channelName); err == nil {
		if channel := client.channels[foldedChannel]; channel != nil {
			channel.endNames(client.isupport.Prefixes(), func(s string) string {
				folded, err := cm.Casefold(s)
				if err != nil {
					return s
				}
				return folded
			})
		}
	}
	client.stateMutex.Unlock()
	return nil
}

func privmsgHandler(client *Client, msg ircmsg.Message) *RegistrationError {
	client.handleContentMessage(msg)
	return nil
}
