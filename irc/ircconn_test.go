// Copyright (c) 2020-2021 Shivaram Lingamneni
// released under the MIT license

package irc

import (
	"net"
	"reflect"
	"testing"
)

// feed the framer the same byte stream in different chunkings; the
// resulting lines must not depend on where the chunk boundaries fell.
func TestStreamConnFraming(t *testing.T) {
	stream := "PING :hello\r\nPRIVMSG #chat :hi there\n\r\n:server 001 nick :Welcome\r\n"
	expected := []string{
		"PING :hello",
		"PRIVMSG #chat :hi there",
		":server 001 nick :Welcome",
	}

	for _, chunkSize := range []int{1, 2, 3, 7, len(stream)} {
		client, server := net.Pipe()
		cc := NewIRCStreamConn(client, 4096)

		go func() {
			data := []byte(stream)
			for len(data) > 0 {
				n := chunkSize
				if n > len(data) {
					n = len(data)
				}
				if _, err := server.Write(data[:n]); err != nil {
					return
				}
				data = data[n:]
			}
			server.Close()
		}()

		var lines []string
		for i := 0; i < len(expected); i++ {
			line, err := cc.ReadLine()
			if err != nil {
				t.Fatalf("chunk size %d: read error: %v", chunkSize, err)
			}
			lines = append(lines, string(line))
		}
		if !reflect.DeepEqual(lines, expected) {
			t.Errorf("chunk size %d: got %#v", chunkSize, lines)
		}
		cc.Close()
	}
}

func TestStreamConnReadQ(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()
	cc := NewIRCStreamConn(client, 64)

	go func() {
		buf := make([]byte, 128)
		for i := range buf {
			buf[i] = 'a'
		}
		server.Write(buf)
	}()

	if _, err := cc.ReadLine(); err != errReadQ {
		t.Errorf("expected errReadQ, got %v", err)
	}
}
