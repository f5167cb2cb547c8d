// released under the MIT license

// Package encryption implements the transparent per-conversation message
// encryption layer: deterministic PBKDF2 key derivation from a shared
// passphrase, and an AES-256-GCM envelope for individual messages.
//
// Derivation is deliberately reproducible: the salt is a pure function of
// the conversation's canonical identity, so any client holding the same
// passphrase derives bit-identical key material with no key exchange. This
// trades salt secrecy for cross-client key agreement; it is not an
// oversight.
package encryption

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// KeySize is the AES-256 key length in bytes.
	KeySize = 32
	// SaltSize is the PBKDF2 salt length in bytes.
	SaltSize = 16
	// NonceSize is the GCM nonce length in bytes.
	NonceSize = 12
	// Overhead is the GCM authentication tag length in bytes.
	Overhead = 16

	// DefaultIterations is the PBKDF2 round count for newly derived keys.
	// It is a protocol constant: all participants must use the same count
	// to derive the same key. Keys derived by older clients at a different
	// count keep working because the count is persisted per key record.
	DefaultIterations = 300000

	// legacyPrefix marked encrypted messages in the original wire format.
	// Current clients send bare base64, but inbound messages carrying the
	// marker are still honored.
	legacyPrefix = "+++ENCV1:"
)

// ErrUndecryptable reports a body that could not be authenticated and
// decrypted with the context's key: wrong key, corrupted data, or simply
// not ciphertext. Callers render it as a distinguishable marker; it is
// never a fatal condition.
var ErrUndecryptable = errors.New("message could not be decrypted")

var errBadMaterial = errors.New("stored key material has the wrong length")

// Context holds the derived key material for one channel or private
// conversation. The passphrase it was derived from is never retained.
type Context struct {
	identity   string
	key        []byte
	salt       []byte
	iterations int
}

// DeriveSalt computes the deterministic salt for a canonical target identity.
func DeriveSalt(identity string) []byte {
	sum := sha256.Sum256([]byte(identity))
	return sum[:SaltSize]
}

// NewContext derives an encryption context from a passphrase and the
// conversation's canonical identity, at the current protocol round count.
func NewContext(passphrase, identity string) *Context {
	return NewContextIterations(passphrase, identity, DefaultIterations)
}

// NewContextIterations is NewContext with an explicit PBKDF2 round count,
// for interoperating with key material derived by older clients.
func NewContextIterations(passphrase, identity string, iterations int) *Context {
	salt := DeriveSalt(identity)
	key := pbkdf2.Key([]byte(passphrase), salt, iterations, KeySize, sha256.New)
	return &Context{
		identity:   identity,
		key:        key,
		salt:       salt,
		iterations: iterations,
	}
}

// FromMaterial reconstructs a context from persisted key material.
func FromMaterial(identity string, key, salt []byte, iterations int) (*Context, error) {
	if len(key) != KeySize || len(salt) != SaltSize {
		return nil, errBadMaterial
	}
	return &Context{
		identity:   identity,
		key:        append([]byte(nil), key...),
		salt:       append([]byte(nil), salt...),
		iterations: iterations,
	}, nil
}

// Identity returns the canonical target identity the context was derived for.
func (c *Context) Identity() string {
	return c.identity
}

// Key returns a copy of the derived key.
func (c *Context) Key() []byte {
	return append([]byte(nil), c.key...)
}

// Salt returns a copy of the derivation salt.
func (c *Context) Salt() []byte {
	return append([]byte(nil), c.salt...)
}

// Iterations returns the PBKDF2 round count the key was derived with.
func (c *Context) Iterations() int {
	return c.iterations
}

func (c *Context) aead() (cipher.AEAD, error) {
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Seal encrypts and authenticates a message body. The result is
// base64(nonce || ciphertext || tag): plain ASCII with no spaces, CR, LF,
// or leading colon, so it is always safe as a trailing IRC parameter.
func (c *Context) Seal(plaintext string) (string, error) {
	aead, err := c.aead()
	if err != nil {
		return "", err
	}
	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	sealed := aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Open decodes and decrypts a received message body, trying the current
// envelope first and the legacy prefixed envelope second. Any failure
// yields ErrUndecryptable; Open never reports which step failed, since
// the caller's handling is the same in every case.
func (c *Context) Open(body string) (string, error) {
	if plaintext, err := c.open(body); err == nil {
		return plaintext, nil
	}
	if stripped, ok := strings.CutPrefix(body, legacyPrefix); ok {
		if plaintext, err := c.open(stripped); err == nil {
			return plaintext, nil
		}
	}
	return "", ErrUndecryptable
}

func (c *Context) open(body string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(body)
	if err != nil {
		return "", ErrUndecryptable
	}
	if len(data) < NonceSize+Overhead {
		return "", ErrUndecryptable
	}
	aead, err := c.aead()
	if err != nil {
		return "", ErrUndecryptable
	}
	plaintext, err := aead.Open(nil, data[:NonceSize], data[NonceSize:], nil)
	if err != nil {
		return "", ErrUndecryptable
	}
	return string(plaintext), nil
}

// LooksEncrypted reports whether a message body has the shape of an
// encrypted envelope (valid base64 of at least nonce+tag bytes). It is a
// heuristic for display purposes only; it proves nothing about the content.
func LooksEncrypted(body string) bool {
	if stripped, ok := strings.CutPrefix(body, legacyPrefix); ok {
		body = stripped
	}
	if body == "" || strings.ContainsAny(body, " \t") {
		return false
	}
	data, err := base64.StdEncoding.DecodeString(body)
	if err != nil {
		return false
	}
	return len(data) >= NonceSize+Overhead
}
