// Package hashconv converts source directory credential hashes into the
// bcrypt representation stored for migrated users.
//
// Source hashes are one-way, so for any recognized tagged hash the converter
// cannot recover the original secret. It instead provisions a freshly
// generated random secret, bcrypts it and discards the plaintext. Migrated
// accounts therefore carry a usable but unknown credential and must be reset
// out-of-band before first login. This is a deliberate policy choice carried
// over from the system being replaced, not an oversight.
package hashconv

import (
	"crypto/rand"
	"encoding/base64"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// Tagged hash prefixes recognized in source credentials, per RFC 2307 style
// userPassword values.
var knownTags = map[string]bool{
	"SSHA":      true,
	"SHA":       true,
	"SMD5":      true,
	"MD5":       true,
	"CRYPT":     true,
	"CLEARTEXT": true,
}

const replacementSecretBytes = 24

// Converter maps source credentials to target bcrypt hashes.
type Converter struct {
	log      *slog.Logger
	warnOnce sync.Once
}

// New creates a Converter logging through the given logger. A nil logger
// falls back to slog's default.
func New(log *slog.Logger) *Converter {
	if log == nil {
		log = slog.Default()
	}
	return &Converter{log: log}
}

// Convert maps a source credential into a bcrypt hash. The second return
// value is false when no credential should be stored: empty input,
// unrecognized format, or an internal hashing failure. Absence is never an
// error, migration continues without a password.
func (c *Converter) Convert(raw string) (string, bool) {
	tag, rest, ok := splitTag(raw)
	if !ok {
		return "", false
	}

	var secret string
	if tag == "CLEARTEXT" {
		// The only case where the original secret is available.
		secret = rest
	} else {
		c.warnOnce.Do(func() {
			c.log.Warn("source hashes cannot be converted, issuing replacement secrets; migrated accounts require an out-of-band password reset")
		})
		generated, err := randomSecret()
		if err != nil {
			c.log.Error("failed to generate replacement secret", "error", err)
			return "", false
		}
		secret = generated
	}

	if secret == "" {
		return "", false
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		c.log.Error("failed to hash credential", "tag", tag, "error", err)
		return "", false
	}
	return string(hash), true
}

// splitTag extracts the {TAG} prefix from a source credential. It returns
// ok=false for empty, untagged or unrecognized input.
func splitTag(raw string) (tag, rest string, ok bool) {
	if raw == "" || !strings.HasPrefix(raw, "{") {
		return "", "", false
	}
	end := strings.Index(raw, "}")
	if end < 1 {
		return "", "", false
	}
	tag = strings.ToUpper(raw[1:end])
	if !knownTags[tag] {
		return "", "", false
	}
	return tag, raw[end+1:], true
}

// randomSecret returns a freshly generated random secret. The caller hashes
// it and lets it go out of scope; it is never persisted or logged.
func randomSecret() (string, error) {
	buf := make([]byte, replacementSecretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
