// Copyright (c) 2012-2014 Jeremy Latt
// Copyright (c) 2014-2015 Edmund Huber
// Copyright (c) 2017-2018 Daniel Oaks <daniel@danieloaks.net>
// released under the MIT license

package irc

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ergochat/irc-go/ircmsg"
	"github.com/ergochat/irc-go/ircutils"

	"github.com/veilchat/veil/irc/encryption"
	"github.com/veilchat/veil/irc/isupport"
	"github.com/veilchat/veil/irc/keystore"
	"github.com/veilchat/veil/irc/logger"
	"github.com/veilchat/veil/irc/modes"
	"github.com/veilchat/veil/irc/utils"
)

const (
	// client-to-server lines are truncated to the classic limit;
	// we don't negotiate message-tags on the outbound side
	maxLineLen = 512

	sendQueueLen     = 128
	priorityQueueLen = 8

	keepaliveInterval = 90 * time.Second
)

// Client is one session with one IRC network. Its reader goroutine owns
// inbound dispatch; a writer goroutine drains the outbound queues; all
// shared state is guarded by stateMutex.
type Client struct {
	config     *ServerConfig
	iterations int
	keys       keystore.Keystore
	handler    EventHandler
	logger     *logger.Manager
	dial       DialFunc

	stateMutex   sync.RWMutex // tier 1
	state        ConnectionState
	nick         string
	triedAltNick bool
	registered   bool
	autoJoined   bool
	channels     map[string]*Channel
	isupport     *isupport.List
	casemapping  CaseMapping

	conn          IRCConn
	sendQueue     chan []byte
	priorityQueue chan []byte
	connClosed    chan struct{}
	pingToken     string

	quit     chan struct{}
	quitOnce sync.Once

	// encryption contexts, keyed by canonical identity; lazily restored
	// from the keystore
	contexts      map[string]*encryption.Context
	contextsMutex sync.Mutex // tier 2
}

// NewClient assembles a session; it does not connect.
func NewClient(config *ServerConfig, keys keystore.Keystore, iterations int, handler EventHandler, lm *logger.Manager, dial DialFunc) *Client {
	if handler == nil {
		handler = NullHandler{}
	}
	if dial == nil {
		dial = DialServer
	}
	if iterations == 0 {
		iterations = encryption.DefaultIterations
	}
	if lm == nil {
		lm, _ = logger.NewManager(nil)
	}
	client := &Client{
		config:     config,
		iterations: iterations,
		keys:       keys,
		handler:    handler,
		logger:     lm,
		dial:       dial,
		quit:       make(chan struct{}),
		contexts:   make(map[string]*encryption.Context),
	}
	client.resetConnectionState()
	return client
}

// resetConnectionState reinitializes everything scoped to a single
// connection. Callers hold stateMutex or have exclusive access.
func (client *Client) resetConnectionState() {
	client.nick = client.config.Nick
	client.triedAltNick = false
	client.registered = false
	client.autoJoined = false
	client.channels = make(map[string]*Channel)
	client.isupport = isupport.NewList()
	client.casemapping = CaseMappingRFC1459
}

func (client *Client) Name() string {
	return client.config.Name
}

// Nick returns our current nick as known to the server.
func (client *Client) Nick() string {
	client.stateMutex.RLock()
	defer client.stateMutex.RUnlock()
	return client.nick
}

func (client *Client) State() ConnectionState {
	client.stateMutex.RLock()
	defer client.stateMutex.RUnlock()
	return client.state
}

// Registered reports whether the server has accepted our registration.
func (client *Client) Registered() bool {
	client.stateMutex.RLock()
	defer client.stateMutex.RUnlock()
	return client.registered
}

// Channel returns the live state for a channel we are in, or nil.
func (client *Client) Channel(name string) *Channel {
	client.stateMutex.RLock()
	defer client.stateMutex.RUnlock()
	folded, err := client.casemapping.CasefoldChannel(name)
	if err != nil {
		return nil
	}
	return client.channels[folded]
}

// Channels returns the names of all channels we are currently in.
func (client *Client) Channels() []string {
	client.stateMutex.RLock()
	defer client.stateMutex.RUnlock()
	result := make([]string, 0, len(client.channels))
	for _, channel := range client.channels {
		result = append(result, channel.Name())
	}
	return result
}

// Prefixes returns the membership prefix table currently in effect.
func (client *Client) Prefixes() modes.Prefixes {
	client.stateMutex.RLock()
	defer client.stateMutex.RUnlock()
	return client.isupport.Prefixes()
}

// Network returns the network name advertised via isupport, if any.
func (client *Client) Network() string {
	client.stateMutex.RLock()
	defer client.stateMutex.RUnlock()
	return client.isupport.Network()
}

func (client *Client) casefold(name string) string {
	client.stateMutex.RLock()
	cm := client.casemapping
	client.stateMutex.RUnlock()
	folded, err := cm.Casefold(name)
	if err != nil {
		return name
	}
	return folded
}

func (client *Client) isChannelName(target string) bool {
	client.stateMutex.RLock()
	defer client.stateMutex.RUnlock()
	return client.isupport.IsChannel(target)
}

// identityHost anchors canonical identities. It is the configured
// hostname, falling back to the session name for websocket-only configs.
func (client *Client) identityHost() string {
	if client.config.Host != "" {
		return client.config.Host
	}
	return client.config.Name
}

func (client *Client) setState(state ConnectionState) {
	client.stateMutex.Lock()
	changed := client.state != state
	client.state = state
	client.stateMutex.Unlock()
	if changed {
		client.handler.HandleStateChange(client.config.Name, state)
	}
}

// notice emits a status line; server-sourced text passes through here,
// so control characters are scrubbed before it reaches the handler.
func (client *Client) notice(format string, args ...interface{}) {
	text := ircutils.SanitizeText(fmt.Sprintf(format, args...), maxLineLen)
	client.handler.HandleStatus(client.config.Name, text)
}

// Connect starts the session's connection loop. It returns immediately;
// lifecycle progress is reported through the event handler.
func (client *Client) Connect() error {
	client.stateMutex.Lock()
	if client.state != Disconnected {
		client.stateMutex.Unlock()
		return errAlreadyConnected
	}
	client.state = Connecting
	client.stateMutex.Unlock()
	client.handler.HandleStateChange(client.config.Name, Connecting)

	go client.run()
	return nil
}

// Quit sends QUIT (when connected) and permanently stops the session,
// cancelling any pending reconnect.
func (client *Client) Quit(message string) {
	if message == "" {
		message = "Leaving"
	}
	client.Send("QUIT", message)
	client.quitOnce.Do(func() {
		close(client.quit)
	})
	client.stateMutex.RLock()
	conn := client.conn
	client.stateMutex.RUnlock()
	if conn != nil {
		// give the QUIT a moment to flush
		time.AfterFunc(250*time.Millisecond, func() { conn.Close() })
	}
}

func (client *Client) run() {
	defer client.setState(Disconnected)

	for {
		err := client.runConnection()

		var regErr *RegistrationError
		if errors.As(err, &regErr) {
			client.notice("Registration failed: %s", regErr.Message)
			return
		}

		select {
		case <-client.quit:
			return
		default:
		}

		if !client.config.AutoReconnect {
			if err != nil {
				client.notice("Disconnected: %v", err)
			}
			return
		}

		client.setState(Reconnecting)
		client.notice("Disconnected, reconnecting in %v", client.config.ReconnectDelay)
		select {
		case <-time.After(client.config.ReconnectDelay):
		case <-client.quit:
			return
		}
		client.setState(Connecting)
	}
}

// runConnection performs one dial/register/read cycle and returns when
// the connection dies.
func (client *Client) runConnection() error {
	client.logger.Info("connect", "dialing", client.config.Name)
	conn, err := client.dial(client.config)
	if err != nil {
		return err
	}

	sendQueue := make(chan []byte, sendQueueLen)
	priorityQueue := make(chan []byte, priorityQueueLen)
	connClosed := make(chan struct{})

	client.stateMutex.Lock()
	client.resetConnectionState()
	client.conn = conn
	client.sendQueue = sendQueue
	client.priorityQueue = priorityQueue
	client.connClosed = connClosed
	client.stateMutex.Unlock()

	go client.writeLoop(conn, sendQueue, priorityQueue, connClosed)
	go client.keepaliveLoop(connClosed)

	// the transport is up; now we are waiting on the welcome numeric
	client.setState(Registering)

	// if the server doesn't accept us in time, cut the connection
	regTimer := time.AfterFunc(client.config.RegisterTimeout, func() {
		if !client.Registered() {
			client.notice("Registration timed out")
			conn.Close()
		}
	})

	client.register()

	var readErr error
	var regErr *RegistrationError
	for {
		line, err := conn.ReadLine()
		if err != nil {
			readErr = err
			break
		}
		if client.logger.IsLoggingRawIO() {
			client.logger.Debug("raw-io", client.config.Name, "<- ", string(line))
		}
		msg, err := ircmsg.ParseLine(string(line))
		if err != nil {
			client.logger.Warning("parse", client.config.Name, err.Error())
			continue
		}
		if rErr := client.dispatch(msg); rErr != nil {
			regErr = rErr
			break
		}
	}

	regTimer.Stop()
	conn.Close()
	close(connClosed)

	// clear connection-scoped state immediately, so readers don't see
	// stale channels during the reconnect delay
	client.stateMutex.Lock()
	client.conn = nil
	client.sendQueue = nil
	client.priorityQueue = nil
	client.resetConnectionState()
	client.stateMutex.Unlock()

	if regErr != nil {
		return regErr
	}
	return readErr
}

func (client *Client) register() {
	if client.config.Password != "" {
		client.Send("PASS", client.config.Password)
	}
	client.Send("NICK", client.config.Nick)
	client.Send("USER", client.config.Username, "0", "*", client.config.Realname)
}

// dispatch routes one inbound message. A non-nil return is a fatal
// registration error that should end the connection attempt.
func (client *Client) dispatch(msg ircmsg.Message) *RegistrationError {
	handler, exists := clientHandlers[msg.Command]
	if !exists {
		client.handleUnknown(msg)
		return nil
	}
	return handler(client, msg)
}

func (client *Client) writeLoop(conn IRCConn, sendQueue, priorityQueue chan []byte, connClosed chan struct{}) {
	write := func(line []byte) bool {
		if client.logger.IsLoggingRawIO() {
			client.logger.Debug("raw-io", client.config.Name, "-> ", string(line))
		}
		return conn.Write(line) == nil
	}

	for {
		// drain priority traffic (PONGs) first
		select {
		case line := <-priorityQueue:
			if !write(line) {
				return
			}
			continue
		default:
		}

		select {
		case line := <-priorityQueue:
			if !write(line) {
				return
			}
		case line := <-sendQueue:
			if !write(line) {
				return
			}
		case <-connClosed:
			return
		}
	}
}

// keepaliveLoop sends periodic PINGs so that dead connections are
// detected even on quiet networks.
func (client *Client) keepaliveLoop(connClosed chan struct{}) {
	ticker := time.NewTicker(keepaliveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if client.Registered() {
				token := utils.GenerateSecretToken()
				client.stateMutex.Lock()
				client.pingToken = token
				client.stateMutex.Unlock()
				client.Send("PING", token)
			}
		case <-connClosed:
			return
		}
	}
}

// Send serializes and enqueues one outbound line.
func (client *Client) Send(command string, params ...string) error {
	return client.sendInternal(false, command, params...)
}

// sendPriority is for PONGs, which must not queue behind chat traffic.
func (client *Client) sendPriority(command string, params ...string) error {
	return client.sendInternal(true, command, params...)
}

func (client *Client) sendInternal(priority bool, command string, params ...string) error {
	msg := ircmsg.MakeMessage(nil, "", command, params...)
	line, err := msg.LineBytesStrict(true, maxLineLen)
	if err != nil {
		return err
	}

	client.stateMutex.RLock()
	sendQueue := client.sendQueue
	priorityQueue := client.priorityQueue
	connClosed := client.connClosed
	client.stateMutex.RUnlock()

	if sendQueue == nil {
		return errNotConnected
	}
	queue := sendQueue
	if priority {
		queue = priorityQueue
	}
	select {
	case queue <- line:
		return nil
	case <-connClosed:
		return errNotConnected
	}
}

// SendRaw enqueues a raw protocol line exactly as given.
func (client *Client) SendRaw(line string) error {
	msg, err := ircmsg.ParseLine(line)
	if err != nil {
		return err
	}
	return client.Send(msg.Command, msg.Params...)
}
