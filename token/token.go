// Package token mints the opaque response tokens handed out to respondents.
package token

import "github.com/google/uuid"

// New returns a fresh random token. Tokens are version 4 UUIDs: globally
// unique, unguessable, and carry nothing about the survey or respondent.
// If the system entropy source is broken this panics; there is no way to
// create a response without a token.
func New() string {
	return uuid.NewString()
}
