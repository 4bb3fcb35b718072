package bot

import (
	"context"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/antispambot/internal/platform/telegram"
)

const UpdateTimeout = 5 * time.Minute

// UpdateProcessor maps raw platform updates to the neutral message type
// and runs them through the handler chain.
type UpdateProcessor struct {
	handlers []Handler
}

func NewUpdateProcessor(handlers ...Handler) *UpdateProcessor {
	return &UpdateProcessor{handlers: handlers}
}

func (up *UpdateProcessor) Process(ctx context.Context, u *api.Update) error {
	if u == nil {
		return errors.New("update is nil")
	}

	msg := telegram.FromUpdate(u)
	if msg == nil {
		return nil
	}

	if time.Since(msg.SentAt) > UpdateTimeout {
		log.WithFields(log.Fields{
			"update_time": msg.SentAt,
			"age":         time.Since(msg.SentAt),
		}).Debug("skipping outdated update")
		return nil
	}

	for _, handler := range up.handlers {
		if handler == nil {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			proceed, err := handler.Handle(ctx, msg)
			if err != nil {
				return errors.WithMessage(err, "handling error")
			}
			if !proceed {
				log.Trace("not proceeding")
				return nil
			}
		}
	}
	return nil
}
