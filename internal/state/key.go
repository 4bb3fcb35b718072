package state

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ChatUser identifies a user within a chat. It is used directly as a map
// key everywhere in memory; the underscore-joined form exists only in the
// persisted snapshot.
type ChatUser struct {
	ChatID int64
	UserID int64
}

func (k ChatUser) String() string {
	return fmt.Sprintf("%d_%d", k.ChatID, k.UserID)
}

// ParseChatUser reverses ChatUser.String. The chat ID may be negative
// (group chats are), so the split happens on the first underscore, which
// always separates the two decimal numbers.
func ParseChatUser(s string) (ChatUser, error) {
	chatPart, userPart, found := strings.Cut(s, "_")
	if !found {
		return ChatUser{}, errors.Errorf("malformed state key %q", s)
	}
	chatID, err := strconv.ParseInt(chatPart, 10, 64)
	if err != nil {
		return ChatUser{}, errors.WithMessagef(err, "bad chat id in state key %q", s)
	}
	userID, err := strconv.ParseInt(userPart, 10, 64)
	if err != nil {
		return ChatUser{}, errors.WithMessagef(err, "bad user id in state key %q", s)
	}
	return ChatUser{ChatID: chatID, UserID: userID}, nil
}
