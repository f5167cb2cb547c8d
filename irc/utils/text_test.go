// Copyright (c) 2018 Shivaram Lingamneni <slingamn@cs.stanford.edu>
// released under the MIT license

package utils

import (
	"strings"
	"testing"
)

const (
	monteCristo = `Both the count and Baptistin had told the truth when they announced to Morcerf the proposed visit of the major, which had served Monte Cristo as a pretext for declining Albert's invitation. Seven o'clock had just struck, and M. Bertuccio, according to the command which had been given him, had two hours before left for Auteuil, when a cab stopped at the door, and after depositing its occupant at the gate, immediately hurried away, as if ashamed of its employment.`
)

func TestWordWrap(t *testing.T) {
	lineWidth := 60
	lines := WordWrap(monteCristo, lineWidth)
	if len(lines) < 2 {
		t.Errorf("expected multiple lines, got %d", len(lines))
	}
	for _, line := range lines {
		if len(line) > lineWidth {
			t.Errorf("line length %d exceeds maximum of %d", len(line), lineWidth)
		}
	}
	// no characters may be dropped or reordered by wrapping
	if joined := strings.Join(lines, ""); joined != monteCristo {
		t.Errorf("text incorrectly split into lines: %s", joined)
	}
}

func TestWordWrapShort(t *testing.T) {
	lines := WordWrap("hi", 400)
	if len(lines) != 1 || lines[0] != "hi" {
		t.Errorf("expected [hi], got %v", lines)
	}
}

func TestTokenLineBuilder(t *testing.T) {
	lineLen := 400
	var tl TokenLineBuilder
	tl.Initialize(lineLen, " ")
	for _, token := range strings.Fields(monteCristo) {
		tl.Add(token)
	}

	lines := tl.Lines()
	for _, line := range lines {
		if len(line) > lineLen {
			t.Errorf("line length %d exceeds maximum of %d", len(line), lineLen)
		}
	}

	joined := strings.Join(lines, " ")
	if joined != monteCristo {
		t.Errorf("text incorrectly split into lines: %s instead of %s", joined, monteCristo)
	}
}
