package platform

import (
	"context"
	"time"
)

// Message is the platform-neutral view of an incoming chat message. The
// transport adapter fills it from whatever the platform delivers.
type Message struct {
	ChatID      int64
	ChatType    string
	UserID      int64
	Username    string
	FullName    string
	MessageID   int
	Text        string
	IsCommand   bool
	Command     string
	CommandArgs string
	// ReplyText carries the text (or caption) of the replied-to message,
	// used by the reply-driven blacklist command.
	ReplyText string
	HasReply  bool
	SentAt    time.Time
}

// IsGroup reports whether the message comes from a group chat. Only group
// traffic is moderated.
func (m *Message) IsGroup() bool {
	return m.ChatType == "group" || m.ChatType == "supergroup"
}

// Platform is the chat platform capability surface the moderation core
// depends on. Implementations perform the actual API calls; the core
// treats every failure as log-and-continue.
type Platform interface {
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
	SendMessage(ctx context.Context, chatID int64, text string, markdown bool) (messageID int, err error)
	BanUser(ctx context.Context, chatID, userID int64, until time.Time) error
	UnbanUser(ctx context.Context, chatID, userID int64) error
}
