// Package session keeps the pending group association of each chat: the group id
// declared with "GroupID: <n>" that tags the next uploaded song.
package session

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// DeclarationPrefix starts a group declaration message.
const DeclarationPrefix = "GroupID:"

var (
	// ErrInvalidGroupID is returned for declarations that are not plain digits.
	ErrInvalidGroupID = errors.New("session: invalid group id")
	// ErrNotDeclaration is returned by ParseDeclaration for unrelated text.
	ErrNotDeclaration = errors.New("session: not a group declaration")
	// ErrMissingAssociation is returned by Consume when the chat declared no group.
	ErrMissingAssociation = errors.New("session: no pending group")

	groupIDRe = regexp.MustCompile(`^[0-9]+$`)
)

// Store holds at most one pending group per chat. Implementations must be safe
// for concurrent use.
type Store interface {
	SetPendingGroup(ctx context.Context, chatID int64, groupID string) error
	// TakePendingGroup returns the pending group and clears it. ok is false when
	// nothing was declared.
	TakePendingGroup(ctx context.Context, chatID int64) (groupID string, ok bool, err error)
	Close() error
}

// ValidateGroupID checks that id is a non-empty run of ASCII digits.
func ValidateGroupID(id string) error {
	if !groupIDRe.MatchString(id) {
		return fmt.Errorf("%w: %q", ErrInvalidGroupID, id)
	}
	return nil
}

// IsDeclaration reports whether text looks like a group declaration.
func IsDeclaration(text string) bool {
	return strings.HasPrefix(strings.TrimSpace(text), DeclarationPrefix)
}

// ParseDeclaration extracts and validates the id from "GroupID: <n>".
func ParseDeclaration(text string) (string, error) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, DeclarationPrefix) {
		return "", ErrNotDeclaration
	}
	id := strings.TrimSpace(strings.TrimPrefix(text, DeclarationPrefix))
	if err := ValidateGroupID(id); err != nil {
		return "", err
	}
	return id, nil
}

// Declare validates groupID before storing it, so invalid input never mutates
// the store.
func Declare(ctx context.Context, st Store, chatID int64, groupID string) error {
	if err := ValidateGroupID(groupID); err != nil {
		return err
	}
	return st.SetPendingGroup(ctx, chatID, groupID)
}

// Consume takes the pending group of chatID, or ErrMissingAssociation.
func Consume(ctx context.Context, st Store, chatID int64) (string, error) {
	groupID, ok, err := st.TakePendingGroup(ctx, chatID)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrMissingAssociation
	}
	return groupID, nil
}
