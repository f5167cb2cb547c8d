// Copyright (c) 2020-2021 Shivaram Lingamneni
// released under the MIT license

package irc

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/ergochat/irc-go/ircreader"
	"github.com/gorilla/websocket"
)

const (
	initialBufferSize = 512

	dialTimeout = 30 * time.Second
)

var (
	crlf = []byte{'\r', '\n'}
)

// IRCConn abstracts away the distinction between a regular
// net.Conn (which includes both raw TCP and TLS) and a websocket.
// it doesn't expose Read and Write because websockets are message-oriented,
// not stream-oriented.
type IRCConn interface {
	// Write sends one full IRC line, including its \r\n terminator.
	Write([]byte) error
	// ReadLine blocks for the next nonempty line, with the terminator
	// and any stray trailing \r stripped.
	ReadLine() (line []byte, err error)

	Close() error
}

// IRCStreamConn is an IRCConn over a regular stream connection.
type IRCStreamConn struct {
	conn   net.Conn
	reader ircreader.Reader
}

func NewIRCStreamConn(conn net.Conn, maxReadQBytes int) *IRCStreamConn {
	initialSize := initialBufferSize
	if maxReadQBytes < initialSize {
		initialSize = maxReadQBytes
	}
	var cc IRCStreamConn
	cc.conn = conn
	cc.reader.Initialize(conn, initialSize, maxReadQBytes)
	return &cc
}

func (cc *IRCStreamConn) Write(buf []byte) (err error) {
	_, err = cc.conn.Write(buf)
	return
}

func (cc *IRCStreamConn) ReadLine() (line []byte, err error) {
	for {
		line, err = cc.reader.ReadLine()
		if err == ircreader.ErrReadQ {
			return nil, errReadQ
		} else if err != nil {
			return nil, err
		}
		line = bytes.TrimSuffix(line, []byte{'\r'})
		// some servers send empty keepalive lines; skip them
		if len(line) != 0 {
			return line, nil
		}
	}
}

func (cc *IRCStreamConn) Close() (err error) {
	return cc.conn.Close()
}

// IRCWSConn is an IRCConn over a websocket.
type IRCWSConn struct {
	conn *websocket.Conn
}

func NewIRCWSConn(conn *websocket.Conn) IRCWSConn {
	return IRCWSConn{conn: conn}
}

func (wc IRCWSConn) Write(buf []byte) (err error) {
	buf = bytes.TrimSuffix(buf, crlf)
	// there's not much we can do about this;
	// silently drop the message
	if !utf8.Valid(buf) {
		return nil
	}
	return wc.conn.WriteMessage(websocket.TextMessage, buf)
}

func (wc IRCWSConn) ReadLine() (line []byte, err error) {
	for {
		var messageType int
		messageType, line, err = wc.conn.ReadMessage()
		// on empty message or non-text message, try again, block if necessary
		if err != nil || (messageType == websocket.TextMessage && len(line) != 0) {
			return
		}
	}
}

func (wc IRCWSConn) Close() (err error) {
	return wc.conn.Close()
}

// A DialFunc establishes the transport for one connection attempt.
// Sessions take it as a parameter so tests can inject an in-memory conn.
type DialFunc func(config *ServerConfig) (IRCConn, error)

// DialServer is the production DialFunc, speaking plain TCP, TLS, or
// websocket depending on the server config.
func DialServer(config *ServerConfig) (IRCConn, error) {
	if config.WebsocketURL != "" {
		return dialWebsocket(config)
	}

	addr := net.JoinHostPort(config.Host, fmt.Sprintf("%d", config.Port))
	dialer := net.Dialer{Timeout: dialTimeout}
	if !config.TLS.Enabled {
		conn, err := dialer.Dial("tcp", addr)
		if err != nil {
			return nil, err
		}
		return NewIRCStreamConn(conn, config.maxReadQBytes()), nil
	}

	tlsConfig := tls.Config{
		ServerName:         config.Host,
		InsecureSkipVerify: config.TLS.InsecureSkipVerify,
	}
	conn, err := tls.DialWithDialer(&dialer, "tcp", addr, &tlsConfig)
	if err != nil {
		return nil, err
	}
	return NewIRCStreamConn(conn, config.maxReadQBytes()), nil
}

func dialWebsocket(config *ServerConfig) (IRCConn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: dialTimeout,
		Subprotocols:     []string{"text.ircv3.net"},
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: config.TLS.InsecureSkipVerify,
		},
	}
	conn, _, err := dialer.Dial(config.WebsocketURL, http.Header{})
	if err != nil {
		return nil, err
	}
	return NewIRCWSConn(conn), nil
}
