// Package idempotency provides safe-retry support for the HTTP API and
// exactly-once handling for Kafka consumers. Clients send an Idempotency-Key
// header on mutating requests; the first execution is recorded together with
// its response, and replays of the same key return the stored response
// instead of re-running the operation.
package idempotency

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"regexp"
	"strings"
)

var (
	// ErrKeyRequired is returned when a mutating request arrives without a key
	// and the middleware is configured to require one.
	ErrKeyRequired = errors.New("idempotency key is required")

	// ErrKeyInvalid is returned for keys containing characters outside the
	// allowed set.
	ErrKeyInvalid = errors.New("idempotency key contains invalid characters")

	// ErrKeyTooLong is returned for keys exceeding the configured length limit.
	ErrKeyTooLong = errors.New("idempotency key is too long")

	// ErrNotFound is returned when no record exists for a key.
	ErrNotFound = errors.New("idempotency key not found")

	// ErrMessageAlreadyProcessed is returned by MarkProcessed when a message
	// with the same identity was already recorded.
	ErrMessageAlreadyProcessed = errors.New("message already processed")
)

// Keys may contain letters, digits, hyphens and underscores. UUIDs and
// ULIDs both satisfy this.
var keyPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// NormalizeKey strips surrounding whitespace from a client-supplied key.
func NormalizeKey(key string) string {
	return strings.TrimSpace(key)
}

// ValidateKey checks a key against the default length limit.
func ValidateKey(key string) error {
	return ValidateKeyWithMaxLength(key, DefaultMaxKeyLength)
}

// ValidateKeyWithMaxLength checks that a key is non-empty, within the length
// limit, and drawn from the allowed character set.
func ValidateKeyWithMaxLength(key string, maxLength int) error {
	switch {
	case key == "":
		return ErrKeyRequired
	case len(key) > maxLength:
		return ErrKeyTooLong
	case !keyPattern.MatchString(key):
		return ErrKeyInvalid
	}
	return nil
}

// ComputeFingerprint hashes a request body so replays with a different
// payload can be distinguished from genuine retries.
func ComputeFingerprint(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}
