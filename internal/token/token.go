// Package token mints the opaque keys that identify a shared connection
// inside a client registry.
package token

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Prefix is prepended to every minted token so tokens are recognisable in logs.
const Prefix = "ioclient:"

// Token identifies one registration scope. The zero value is not a valid token.
type Token string

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// New returns a token that is distinct from every other token minted by
// this process.
func New() Token {
	entropyMu.Lock()
	defer entropyMu.Unlock()

	id := ulid.MustNew(ulid.Timestamp(time.Now()), entropy)
	return Token(Prefix + id.String())
}

// String implements fmt.Stringer.
func (t Token) String() string {
	return string(t)
}

// IsZero reports whether t was never minted.
func (t Token) IsZero() bool {
	return t == ""
}
