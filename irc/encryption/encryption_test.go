// released under the MIT license

package encryption

import (
	"bytes"
	"strings"
	"testing"
)

const (
	testIdentity = "irc.example.com:#secret"
	testPhrase   = "correct horse battery staple"
)

func TestDerivationIsDeterministic(t *testing.T) {
	a := NewContext(testPhrase, testIdentity)
	b := NewContext(testPhrase, testIdentity)
	if !bytes.Equal(a.Key(), b.Key()) {
		t.Errorf("same passphrase and identity must derive identical keys")
	}
	if !bytes.Equal(a.Salt(), b.Salt()) {
		t.Errorf("same identity must derive identical salts")
	}
	if len(a.Key()) != KeySize || len(a.Salt()) != SaltSize {
		t.Errorf("bad material lengths: %d / %d", len(a.Key()), len(a.Salt()))
	}
}

func TestDerivationDiverges(t *testing.T) {
	base := NewContext(testPhrase, testIdentity)
	otherPhrase := NewContext(testPhrase+"!", testIdentity)
	otherTarget := NewContext(testPhrase, testIdentity+"x")

	if bytes.Equal(base.Key(), otherPhrase.Key()) {
		t.Errorf("passphrase change must change the key")
	}
	if bytes.Equal(base.Key(), otherTarget.Key()) {
		t.Errorf("identity change must change the key")
	}
	if bytes.Equal(base.Salt(), otherTarget.Salt()) {
		t.Errorf("identity change must change the salt")
	}
}

func TestSealOpenRoundTrip(t *testing.T) {
	ctx := NewContextIterations(testPhrase, testIdentity, 4096)
	for _, plaintext := range []string{"", "hi", "snowman ☃ and spaces", strings.Repeat("x", 300)} {
		sealed, err := ctx.Seal(plaintext)
		if err != nil {
			t.Fatalf("seal failed: %v", err)
		}
		if strings.ContainsAny(sealed, " \r\n\x00") || strings.HasPrefix(sealed, ":") {
			t.Errorf("sealed body is not parameter-safe: %q", sealed)
		}
		opened, err := ctx.Open(sealed)
		if err != nil {
			t.Fatalf("open failed: %v", err)
		}
		if opened != plaintext {
			t.Errorf("round trip mismatch: %q != %q", opened, plaintext)
		}
	}
}

func TestSealUsesFreshNonces(t *testing.T) {
	ctx := NewContextIterations(testPhrase, testIdentity, 4096)
	a, _ := ctx.Seal("hello")
	b, _ := ctx.Seal("hello")
	if a == b {
		t.Errorf("two seals of the same plaintext must differ")
	}
}

func TestOpenWrongKey(t *testing.T) {
	sender := NewContextIterations(testPhrase, testIdentity, 4096)
	receiver := NewContextIterations("wrong passphrase", testIdentity, 4096)

	sealed, err := sender.Seal("secret text")
	if err != nil {
		t.Fatalf("seal failed: %v", err)
	}
	if _, err := receiver.Open(sealed); err != ErrUndecryptable {
		t.Errorf("expected ErrUndecryptable, got %v", err)
	}
}

func TestOpenGarbage(t *testing.T) {
	ctx := NewContextIterations(testPhrase, testIdentity, 4096)
	for _, body := range []string{"", "hello there", "aGVsbG8=", "!!!not base64!!!", legacyPrefix, legacyPrefix + "aGVsbG8="} {
		if _, err := ctx.Open(body); err != ErrUndecryptable {
			t.Errorf("expected ErrUndecryptable for %q, got %v", body, err)
		}
	}
}

func TestOpenLegacyPrefix(t *testing.T) {
	ctx := NewContextIterations(testPhrase, testIdentity, 4096)
	sealed, err := ctx.Seal("older client says hi")
	if err != nil {
		t.Fatalf("seal failed: %v", err)
	}
	opened, err := ctx.Open(legacyPrefix + sealed)
	if err != nil {
		t.Fatalf("legacy open failed: %v", err)
	}
	if opened != "older client says hi" {
		t.Errorf("bad legacy plaintext: %q", opened)
	}
}

func TestFromMaterial(t *testing.T) {
	orig := NewContextIterations(testPhrase, testIdentity, 4096)
	restored, err := FromMaterial(testIdentity, orig.Key(), orig.Salt(), orig.Iterations())
	if err != nil {
		t.Fatalf("FromMaterial failed: %v", err)
	}

	sealed, _ := orig.Seal("persisted key")
	opened, err := restored.Open(sealed)
	if err != nil || opened != "persisted key" {
		t.Errorf("restored context could not decrypt: %v", err)
	}

	if _, err := FromMaterial(testIdentity, []byte("short"), orig.Salt(), 1); err == nil {
		t.Errorf("expected an error for truncated key material")
	}
}

func TestLooksEncrypted(t *testing.T) {
	ctx := NewContextIterations(testPhrase, testIdentity, 4096)
	sealed, _ := ctx.Seal("hello")

	for body, expected := range map[string]bool{
		sealed:                 true,
		legacyPrefix + sealed:  true,
		"hello there":          false,
		"aGVsbG8=":             false, // valid base64, too short
		"":                     false,
		"how are you doing???": false,
	} {
		if got := LooksEncrypted(body); got != expected {
			t.Errorf("LooksEncrypted(%q) = %v, expected %v", body, got, expected)
		}
	}
}

func TestDeriveSalt(t *testing.T) {
	a := DeriveSalt(testIdentity)
	b := DeriveSalt(testIdentity)
	if !bytes.Equal(a, b) {
		t.Errorf("salt derivation must be deterministic")
	}
	if len(a) != SaltSize {
		t.Errorf("bad salt length %d", len(a))
	}
	if bytes.Equal(a, DeriveSalt(testIdentity+"2")) {
		t.Errorf("distinct identities must yield distinct salts")
	}
}
