// Package authz models the session-derived identity that gates every mutation.
//
// An Identity is either Anonymous or Authenticated(userID). It is passed
// explicitly into each authorization-sensitive call; there is no ambient
// "current user".
package authz

import (
	"errors"
	"fmt"
)

var ErrUnauthorized = errors.New("access unauthorized")

type Identity struct {
	userID        uint
	authenticated bool
}

func Anonymous() Identity { return Identity{} }

func Authenticated(userID uint) Identity {
	if userID == 0 {
		return Anonymous()
	}
	return Identity{userID: userID, authenticated: true}
}

func (i Identity) IsAnonymous() bool { return !i.authenticated }

// UserID returns the authenticated user id; ok is false for Anonymous.
func (i Identity) UserID() (id uint, ok bool) { return i.userID, i.authenticated }

func (i Identity) String() string {
	if !i.authenticated {
		return "Anonymous"
	}
	return fmt.Sprintf("Authenticated(%d)", i.userID)
}

// Require fails with ErrUnauthorized for Anonymous identities.
func Require(i Identity) (uint, error) {
	if !i.authenticated {
		return 0, ErrUnauthorized
	}
	return i.userID, nil
}

// RequireOwner fails unless i is authenticated as ownerID.
func RequireOwner(i Identity, ownerID uint) error {
	id, err := Require(i)
	if err != nil {
		return err
	}
	if id != ownerID {
		return ErrUnauthorized
	}
	return nil
}
