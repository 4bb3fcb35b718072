package telegram

import (
	"context"
	"strings"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/pkg/errors"

	"github.com/iamwavecut/antispambot/internal/platform"
)

// Operations adapts the Telegram Bot API to the platform capability the
// moderation core expects.
type Operations struct {
	bot *api.BotAPI
}

func NewOperations(bot *api.BotAPI) *Operations {
	return &Operations{bot: bot}
}

func (o *Operations) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		if _, err := o.bot.Request(api.NewDeleteMessage(chatID, messageID)); err != nil {
			return errors.WithMessage(err, "cant delete message")
		}
		return nil
	}
}

func (o *Operations) SendMessage(ctx context.Context, chatID int64, text string, markdown bool) (int, error) {
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	default:
		msg := api.NewMessage(chatID, text)
		if markdown {
			msg.ParseMode = api.ModeMarkdown
		}
		msg.DisableNotification = true
		msg.LinkPreviewOptions.IsDisabled = true
		sent, err := o.bot.Send(msg)
		if err != nil {
			return 0, errors.WithMessage(err, "cant send message")
		}
		return sent.MessageID, nil
	}
}

func (o *Operations) BanUser(ctx context.Context, chatID, userID int64, until time.Time) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		if _, err := o.bot.Request(api.BanChatMemberConfig{
			ChatMemberConfig: api.ChatMemberConfig{
				ChatConfig: api.ChatConfig{ChatID: chatID},
				UserID:     userID,
			},
			UntilDate:      until.Unix(),
			RevokeMessages: true,
		}); err != nil {
			return errors.WithMessage(err, "cant ban user")
		}
		return nil
	}
}

func (o *Operations) UnbanUser(ctx context.Context, chatID, userID int64) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		if _, err := o.bot.Request(api.UnbanChatMemberConfig{
			ChatMemberConfig: api.ChatMemberConfig{
				ChatConfig: api.ChatConfig{ChatID: chatID},
				UserID:     userID,
			},
		}); err != nil {
			return errors.WithMessage(err, "cant unban user")
		}
		return nil
	}
}

// FromUpdate maps an incoming Telegram update to the platform-neutral
// message. Returns nil for updates the moderation pipeline does not care
// about.
func FromUpdate(u *api.Update) *platform.Message {
	if u == nil || u.Message == nil || u.Message.From == nil {
		return nil
	}
	m := u.Message

	msg := &platform.Message{
		ChatID:    m.Chat.ID,
		ChatType:  m.Chat.Type,
		UserID:    m.From.ID,
		Username:  m.From.UserName,
		FullName:  getFullName(m.From),
		MessageID: m.MessageID,
		Text:      m.Text,
		SentAt:    time.Unix(int64(m.Date), 0),
	}
	if msg.Text == "" {
		msg.Text = m.Caption
	}
	if m.IsCommand() {
		msg.IsCommand = true
		msg.Command = m.Command()
		msg.CommandArgs = m.CommandArguments()
	}
	if m.ReplyToMessage != nil {
		msg.HasReply = true
		msg.ReplyText = m.ReplyToMessage.Text
		if msg.ReplyText == "" {
			msg.ReplyText = m.ReplyToMessage.Caption
		}
	}
	return msg
}

func getFullName(user *api.User) string {
	return strings.TrimSpace(user.FirstName + " " + user.LastName)
}
