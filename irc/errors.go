// Copyright (c) 2012-2014 Jeremy Latt
// Copyright (c) 2016-2017 Daniel Oaks <daniel@danieloaks.net>
// released under the MIT license

package irc

import (
	"errors"
	"fmt"
)

// Runtime Errors
var (
	errNotConnected     = errors.New("Not connected to the server")
	errAlreadyConnected = errors.New("Session is already active")
	errNoSuchChannel    = errors.New("No such channel")
	errInvalidTarget    = errors.New("Invalid message target")
	errEmptyMessage     = errors.New("Cannot send an empty message")
	errKeystoreMissing  = errors.New("No keystore is configured")
)

// Socket Errors
var (
	errReadQ = errors.New("ReadQ Exceeded")
)

// String Errors
var (
	errCouldNotStabilize = errors.New("Could not stabilize string while casefolding")
	errStringIsEmpty     = errors.New("String is empty")
)

// Config Errors
var (
	ErrNoServersDefined      = errors.New("No servers are defined in the config")
	ErrServerHostMissing     = errors.New("Server hostname missing")
	ErrNickMissing           = errors.New("Server nickname missing")
	ErrDatastorePathMissing  = errors.New("Datastore path missing")
	ErrLoggerExcludeEmpty    = errors.New("Encountered logging type '-' with no type to exclude")
	ErrLoggerFilenameMissing = errors.New("Logging configuration specifies 'file' method but 'filename' is empty")
	ErrLoggerHasNoTypes      = errors.New("Logger has no types to log")
)

// RegistrationError indicates that the server refused our registration
// attempt (nickname collisions exhausted, banned, bad password). It ends
// the connection attempt; it does not trigger a reconnect.
type RegistrationError struct {
	Numeric string
	Message string
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("registration failed (%s): %s", e.Numeric, e.Message)
}
