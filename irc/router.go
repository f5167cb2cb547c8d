// Copyright (c) 2018-2022 Shivaram Lingamneni
// released under the MIT license

package irc

import (
	"strings"
	"time"

	"github.com/ergochat/irc-go/ircmsg"

	"github.com/veilchat/veil/irc/encryption"
	"github.com/veilchat/veil/irc/keystore"
	"github.com/veilchat/veil/irc/utils"
)

const (
	// outbound chat bodies are wrapped to stay inside one 512-byte line,
	// leaving headroom for the server-prepended source prefix
	plainChunkLen = 400
	// sealed bodies grow by the nonce, the tag, and base64; this keeps
	// the envelope under plainChunkLen
	sealedChunkLen = 256

	ctcpDelim  = "\x01"
	actionWord = "ACTION"
)

// identityFor maps a message target to its canonical encryption identity.
func (client *Client) identityFor(target string, query bool) string {
	if query {
		return PrivateIdentity(client.identityHost(), client.Nick(), target)
	}
	return ChannelIdentity(client.identityHost(), target)
}

// contextFor returns the cached encryption context for an identity,
// restoring it from the keystore on first use. A nil context with nil
// error means the conversation is plaintext.
func (client *Client) contextFor(identity string) (*encryption.Context, error) {
	client.contextsMutex.Lock()
	defer client.contextsMutex.Unlock()

	if ctx, cached := client.contexts[identity]; cached {
		return ctx, nil
	}
	if client.keys == nil {
		return nil, nil
	}
	record, present, err := client.keys.Get(identity)
	if err != nil {
		return nil, err
	}
	var ctx *encryption.Context
	if present {
		ctx, err = encryption.FromMaterial(identity, record.Key, record.Salt, record.Iterations)
		if err != nil {
			return nil, err
		}
	}
	// cache negative results too; a SetKey will overwrite
	client.contexts[identity] = ctx
	return ctx, nil
}

// SetKey derives and persists an encryption key for a conversation.
// From here on, all traffic with the target is sealed.
func (client *Client) SetKey(target, passphrase string) error {
	if client.keys == nil {
		return errKeystoreMissing
	}
	query := !client.isChannelName(target)
	identity := client.identityFor(target, query)
	ctx := encryption.NewContextIterations(passphrase, identity, client.iterations)

	record := keystore.Record{
		Key:        ctx.Key(),
		Salt:       ctx.Salt(),
		Iterations: ctx.Iterations(),
	}
	if err := client.keys.Put(identity, record); err != nil {
		return err
	}

	client.contextsMutex.Lock()
	client.contexts[identity] = ctx
	client.contextsMutex.Unlock()
	return nil
}

// ClearKey removes a conversation's key; traffic reverts to plaintext.
func (client *Client) ClearKey(target string) error {
	if client.keys == nil {
		return errKeystoreMissing
	}
	query := !client.isChannelName(target)
	identity := client.identityFor(target, query)

	if err := client.keys.Delete(identity); err != nil {
		return err
	}
	client.contextsMutex.Lock()
	client.contexts[identity] = nil
	client.contextsMutex.Unlock()
	return nil
}

// HasKey reports whether a conversation currently encrypts.
func (client *Client) HasKey(target string) bool {
	query := !client.isChannelName(target)
	ctx, err := client.contextFor(client.identityFor(target, query))
	return err == nil && ctx != nil
}

// handleContentMessage routes an inbound PRIVMSG or NOTICE: resolve the
// conversation, unwrap CTCP ACTION, decrypt if the conversation is keyed,
// and emit the result. Decryption failure is a displayable outcome, not
// an error.
func (client *Client) handleContentMessage(msg ircmsg.Message) {
	if len(msg.Params) < 2 {
		return
	}
	sender := msg.Nick()
	target, body := msg.Params[0], msg.Params[1]
	notice := msg.Command == "NOTICE"

	// services and servers notice us before registration completes
	if sender == "" || strings.IndexByte(sender, '.') != -1 {
		client.notice("%s", body)
		return
	}

	// a message addressed to our nick is a query; route it by sender
	query := !client.isChannelName(target)
	conversation := target
	if query {
		conversation = sender
	}

	body, action := unwrapAction(body)

	event := Message{
		Server: client.config.Name,
		Target: conversation,
		Sender: sender,
		Notice: notice,
		Action: action,
		Query:  query,
		Time:   time.Now().UTC(),
	}

	ctx, err := client.contextFor(client.identityFor(conversation, query))
	if err != nil {
		client.notice("Keystore error, treating %s as plaintext: %v", conversation, err)
		ctx = nil
	}

	switch {
	case ctx != nil && encryption.LooksEncrypted(body):
		plaintext, err := ctx.Open(body)
		if err == nil {
			event.Text = plaintext
			event.Encrypted = true
		} else {
			// wrong passphrase on one side, or line corruption;
			// show the raw body so the user sees something happened
			event.Text = body
			event.Undecryptable = true
		}
	default:
		// plaintext conversation, or plaintext interloper in a keyed
		// channel; either way display as-is
		event.Text = body
	}

	client.handler.HandleMessage(event)
}

// SendMessage sends a chat line to a channel or nick, sealing it when
// the conversation is keyed, wrapping as needed, and echoing the result
// locally.
func (client *Client) SendMessage(target, text string) error {
	return client.sendContent(target, text, false, false)
}

// SendNotice is SendMessage with NOTICE semantics.
func (client *Client) SendNotice(target, text string) error {
	return client.sendContent(target, text, true, false)
}

// SendAction sends a CTCP ACTION ("/me").
func (client *Client) SendAction(target, text string) error {
	return client.sendContent(target, text, false, true)
}

func (client *Client) sendContent(target, text string, notice, action bool) error {
	if !client.Registered() {
		return errNotConnected
	}
	if target == "" || target[0] == ':' || strings.ContainsAny(target, " ,") {
		return errInvalidTarget
	}
	if strings.TrimSpace(text) == "" {
		return errEmptyMessage
	}

	query := !client.isChannelName(target)
	identity := client.identityFor(target, query)
	ctx, err := client.contextFor(identity)
	if err != nil {
		client.notice("Keystore error, sending to %s in plaintext: %v", target, err)
		ctx = nil
	}

	command := "PRIVMSG"
	if notice {
		command = "NOTICE"
	}
	chunkLen := plainChunkLen
	if ctx != nil {
		chunkLen = sealedChunkLen
	}

	// newlines must never reach the wire inside a parameter
	for _, line := range strings.FieldsFunc(text, func(r rune) bool { return r == '\n' || r == '\r' }) {
		for _, chunk := range utils.WordWrap(line, chunkLen) {
			chunk = strings.TrimRight(chunk, " ")
			if chunk == "" {
				continue
			}
			wire := chunk
			if ctx != nil {
				wire, err = ctx.Seal(chunk)
				if err != nil {
					return err
				}
			}
			if action {
				wire = ctcpDelim + actionWord + " " + wire + ctcpDelim
			}
			if err := client.Send(command, target, wire); err != nil {
				return err
			}

			client.handler.HandleMessage(Message{
				Server:    client.config.Name,
				Target:    target,
				Sender:    client.Nick(),
				Text:      chunk,
				Notice:    notice,
				Action:    action,
				Query:     query,
				Encrypted: ctx != nil,
				Time:      time.Now().UTC(),
			})
		}
	}
	return nil
}

// unwrapAction strips a CTCP ACTION envelope, leaving the inner body
// (which may itself be sealed).
func unwrapAction(body string) (inner string, action bool) {
	if !strings.HasPrefix(body, ctcpDelim+actionWord) {
		return body, false
	}
	inner = strings.TrimSuffix(body[len(ctcpDelim+actionWord):], ctcpDelim)
	inner = strings.TrimPrefix(inner, " ")
	return inner, true
}
