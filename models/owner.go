package models

import "errors"

var ErrNoOwner = errors.New("owner key has neither user id nor session id")

// OwnerKey identifies who a cart belongs to: an authenticated user or an
// anonymous browser session. Exactly one field is set.
type OwnerKey struct {
	UserID    string
	SessionID string
}

func UserOwner(userID string) OwnerKey       { return OwnerKey{UserID: userID} }
func SessionOwner(sessionID string) OwnerKey { return OwnerKey{SessionID: sessionID} }

func (k OwnerKey) Valid() bool {
	return (k.UserID != "") != (k.SessionID != "")
}

// IsUser reports whether the key identifies a registered user.
func (k OwnerKey) IsUser() bool { return k.UserID != "" }
