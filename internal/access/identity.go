package access

import (
	"strings"
)

// Identity is who is being checked in: either a registered badge holder or a
// free-text manual entry with no badge behind it. The two cases behave
// differently at every access check, so the distinction is explicit rather
// than an inferred nil.
type Identity struct {
	userID      int64
	known       bool
	displayName string
}

// Known builds the identity of a registered user.
func Known(userID int64, displayName string) Identity {
	return Identity{userID: userID, known: true, displayName: displayName}
}

// Unregistered builds the identity of a manual or unresolved badge entry.
func Unregistered(displayName string) Identity {
	return Identity{displayName: displayName}
}

// UserID returns the registered user ID and whether the identity is known.
func (i Identity) UserID() (int64, bool) {
	return i.userID, i.known
}

// DisplayName returns the name shown on room cards and the display board.
func (i Identity) DisplayName() string {
	return i.displayName
}

// Valid reports whether the identity can be checked in at all.
func (i Identity) Valid() bool {
	return strings.TrimSpace(i.displayName) != ""
}
