package chat

import "context"

// MembershipStatus — статус пользователя в канале, как его сообщает транспорт.
type MembershipStatus string

const (
	StatusCreator       MembershipStatus = "creator"
	StatusAdministrator MembershipStatus = "administrator"
	StatusMember        MembershipStatus = "member"
	StatusLeft          MembershipStatus = "left"
	StatusKicked        MembershipStatus = "kicked"
	StatusUnknown       MembershipStatus = "unknown"
)

// Subscribed reports whether the status counts as a channel subscription.
func (s MembershipStatus) Subscribed() bool {
	switch s {
	case StatusCreator, StatusAdministrator, StatusMember:
		return true
	}
	return false
}

// MessageRef identifies a delivered message so it can be edited later.
type MessageRef struct {
	ChatID    int64
	MessageID int
}

// Button is a single inline keyboard action. Exactly one of CallbackData or
// URL should be set.
type Button struct {
	Text         string
	CallbackData string
	URL          string
}

type Message struct {
	Text     string
	Keyboard [][]Button
}

// Transport abstracts the chat backend. The core never talks to the chat
// protocol directly: it only needs delivery, in-place edits, and the channel
// membership lookup used by the subscription gate.
type Transport interface {
	SendMessage(ctx context.Context, chatID int64, msg Message) (MessageRef, error)
	EditMessage(ctx context.Context, ref MessageRef, msg Message) error
	GetMembershipStatus(ctx context.Context, channel string, userID int64) (MembershipStatus, error)
}
