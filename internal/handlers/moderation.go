package handlers

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/antispambot/internal/moderation"
	"github.com/iamwavecut/antispambot/internal/platform"
)

// Moderation feeds plain group messages into the spam engine. Commands
// and private chats pass through untouched.
type Moderation struct {
	engine *moderation.Engine
}

func NewModeration(engine *moderation.Engine) *Moderation {
	return &Moderation{engine: engine}
}

func (h *Moderation) Handle(ctx context.Context, msg *platform.Message) (bool, error) {
	if msg == nil || msg.IsCommand || !msg.IsGroup() {
		return true, nil
	}

	outcome := h.engine.ProcessMessage(ctx, msg)
	if outcome.Spam {
		h.getLogEntry().
			WithField("chat_id", msg.ChatID).
			WithField("user_id", msg.UserID).
			WithField("warnings", outcome.Warnings).
			WithField("banned", outcome.Banned).
			Debug("spam handled")
	}
	return true, nil
}

func (h *Moderation) getLogEntry() *log.Entry {
	return log.WithField("handler", "moderation")
}
