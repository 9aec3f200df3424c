package models

import (
	"fmt"
	"strings"
)

// ParticipantKind tells which variant a Participant holds.
type ParticipantKind int

const (
	// ParticipantUser is a registered account holder.
	ParticipantUser ParticipantKind = iota + 1
	// ParticipantContact is a trusted contact of the card owner.
	ParticipantContact
)

func (k ParticipantKind) String() string {
	switch k {
	case ParticipantUser:
		return "user"
	case ParticipantContact:
		return "contact"
	default:
		return "unknown"
	}
}

// Participant references whoever holds a share: a user or a trusted contact,
// never both. The zero value is invalid.
type Participant struct {
	kind ParticipantKind
	id   string
}

// UserParticipant references a registered user.
func UserParticipant(userID string) Participant {
	return Participant{kind: ParticipantUser, id: userID}
}

// ContactParticipant references a trusted contact.
func ContactParticipant(contactID string) Participant {
	return Participant{kind: ParticipantContact, id: contactID}
}

// ParseParticipant parses the "user:<id>" or "contact:<id>" form produced by Key.
func ParseParticipant(s string) (Participant, error) {
	kind, id, ok := strings.Cut(s, ":")
	if !ok || id == "" {
		return Participant{}, fmt.Errorf("participant %q: want user:<id> or contact:<id>", s)
	}
	switch kind {
	case "user":
		return UserParticipant(id), nil
	case "contact":
		return ContactParticipant(id), nil
	default:
		return Participant{}, fmt.Errorf("participant %q: unknown kind %q", s, kind)
	}
}

// Kind returns the variant held.
func (p Participant) Kind() ParticipantKind { return p.kind }

// ID returns the referenced user or contact ID.
func (p Participant) ID() string { return p.id }

// UserID returns the user ID when p references a user.
func (p Participant) UserID() (string, bool) {
	return p.id, p.kind == ParticipantUser
}

// ContactID returns the contact ID when p references a trusted contact.
func (p Participant) ContactID() (string, bool) {
	return p.id, p.kind == ParticipantContact
}

// IsUser reports whether p references the given user.
func (p Participant) IsUser(userID string) bool {
	return p.kind == ParticipantUser && p.id == userID
}

// Valid reports whether exactly one variant is set.
func (p Participant) Valid() bool {
	return (p.kind == ParticipantUser || p.kind == ParticipantContact) && p.id != ""
}

// Key is a stable, unique string for p, usable as a map key.
func (p Participant) Key() string {
	return p.kind.String() + ":" + p.id
}

func (p Participant) String() string { return p.Key() }
