package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	apperrors "github.com/iamwavecut/antispambot/internal/errors"

	"github.com/iamwavecut/antispambot/internal/db"
	"github.com/iamwavecut/antispambot/internal/i18n"
	"github.com/iamwavecut/antispambot/internal/moderation"
	"github.com/iamwavecut/antispambot/internal/platform"
	"github.com/iamwavecut/antispambot/internal/sched"
)

// ephemeralNoticeDelay is how long command replies stay before the
// deferred delete removes them.
const ephemeralNoticeDelay = time.Minute

// Admin routes privileged commands to the admin operations surface:
// /add_admin, /stats, /unban and the reply-driven /blacklist.
type Admin struct {
	ops       *moderation.AdminOps
	platform  platform.Platform
	scheduler *sched.Scheduler
	audit     db.AuditLog
	lang      string
}

func NewAdmin(ops *moderation.AdminOps, pl platform.Platform, scheduler *sched.Scheduler, audit db.AuditLog, lang string) *Admin {
	return &Admin{
		ops:       ops,
		platform:  pl,
		scheduler: scheduler,
		audit:     audit,
		lang:      lang,
	}
}

func (h *Admin) Handle(ctx context.Context, msg *platform.Message) (bool, error) {
	if msg == nil || !msg.IsCommand {
		return true, nil
	}

	entry := h.getLogEntry().WithField("command", msg.Command).WithField("user_id", msg.UserID)
	entry.Trace("command received")

	switch msg.Command {
	case "add_admin":
		h.handleAddAdmin(ctx, msg)
	case "stats":
		h.handleStats(ctx, msg)
	case "unban":
		h.handleUnban(ctx, msg)
	case "blacklist":
		h.handleBlacklist(ctx, msg)
	default:
		entry.Trace("unknown command")
		return true, nil
	}
	return false, nil
}

func (h *Admin) handleAddAdmin(ctx context.Context, msg *platform.Message) {
	targetID, err := strconv.ParseInt(strings.TrimSpace(msg.CommandArgs), 10, 64)
	if err != nil {
		h.replyEphemeral(ctx, msg.ChatID, i18n.Get("Usage: /add_admin <user_id>", h.lang), false)
		return
	}

	added, err := h.ops.AddAdmin(msg.UserID, targetID)
	switch {
	case errors.Is(err, apperrors.ErrUnauthorized):
		h.replyEphemeral(ctx, msg.ChatID, i18n.Get("❌ Only the bot owner can use this command", h.lang), false)
	case err != nil:
		h.getLogEntry().WithField("error", err.Error()).Error("cant add admin")
	case added:
		h.reply(ctx, msg.ChatID, fmt.Sprintf(i18n.Get("✅ User %d is now an administrator", h.lang), targetID), false)
	default:
		h.replyEphemeral(ctx, msg.ChatID, i18n.Get("ℹ️ This user is already an administrator", h.lang), false)
	}
}

func (h *Admin) handleStats(ctx context.Context, msg *platform.Message) {
	entries, err := h.ops.Stats(msg.UserID)
	if err != nil {
		// unauthorized stats requests get no reply at all
		return
	}

	var sb strings.Builder
	sb.WriteString(i18n.Get("📊 Warning stats", h.lang))
	sb.WriteString(":\n")
	for _, entry := range entries {
		sb.WriteString(fmt.Sprintf(
			i18n.Get("👤 User %d in chat %d: %d warnings", h.lang),
			entry.Key.UserID, entry.Key.ChatID, entry.Count,
		))
		sb.WriteString("\n")
	}
	if len(entries) == 0 {
		sb.WriteString(i18n.Get("ℹ️ No warnings recorded", h.lang))
		sb.WriteString("\n")
	}

	if h.audit != nil {
		if events, err := h.audit.RecentActions(ctx, 5); err != nil {
			h.getLogEntry().WithField("error", err.Error()).Error("cant read audit log")
		} else if len(events) > 0 {
			sb.WriteString("\n")
			for _, event := range events {
				sb.WriteString(fmt.Sprintf("• %s %d/%d\n", event.Action, event.ChatID, event.UserID))
			}
		}
	}

	h.replyEphemeral(ctx, msg.ChatID, strings.TrimRight(sb.String(), "\n"), false)
}

func (h *Admin) handleUnban(ctx context.Context, msg *platform.Message) {
	targetID, err := strconv.ParseInt(strings.TrimSpace(msg.CommandArgs), 10, 64)
	if err != nil {
		h.replyEphemeral(ctx, msg.ChatID, i18n.Get("Usage: /unban <user_id>", h.lang), false)
		return
	}

	err = h.ops.Unban(ctx, msg.UserID, msg.ChatID, targetID)
	switch {
	case errors.Is(err, apperrors.ErrUnauthorized):
		h.replyEphemeral(ctx, msg.ChatID, i18n.Get("❌ Only administrators can use this command", h.lang), false)
	case err != nil:
		h.getLogEntry().WithField("error", err.Error()).Error("cant unban user")
		h.replyEphemeral(ctx, msg.ChatID, i18n.Get("❌ Failed to unban the user", h.lang), false)
	default:
		h.reply(ctx, msg.ChatID, fmt.Sprintf(i18n.Get("✅ User %d has been unbanned", h.lang), targetID), false)
	}
}

func (h *Admin) handleBlacklist(ctx context.Context, msg *platform.Message) {
	if !msg.HasReply {
		h.replyEphemeral(ctx, msg.ChatID, i18n.Get("⚠️ Reply with this command to the message you want to blacklist", h.lang), false)
		return
	}

	added, err := h.ops.AddBlacklistPhrase(msg.UserID, msg.ReplyText)
	switch {
	case errors.Is(err, apperrors.ErrUnauthorized):
		h.replyEphemeral(ctx, msg.ChatID, i18n.Get("❌ Only administrators can use this command", h.lang), false)
	case errors.Is(err, apperrors.ErrEmptyPhrase):
		h.replyEphemeral(ctx, msg.ChatID, i18n.Get("ℹ️ The target message has no text", h.lang), false)
	case err != nil:
		h.getLogEntry().WithField("error", err.Error()).Error("cant add blacklist phrase")
	case added:
		phrase := strings.ToLower(strings.TrimSpace(msg.ReplyText))
		h.reply(ctx, msg.ChatID, i18n.Get("✅ Text added to the blacklist", h.lang)+":\n`"+phrase+"`", true)
	default:
		h.replyEphemeral(ctx, msg.ChatID, i18n.Get("ℹ️ This text is already blacklisted", h.lang), false)
	}
}

func (h *Admin) reply(ctx context.Context, chatID int64, text string, markdown bool) int {
	messageID, err := h.platform.SendMessage(ctx, chatID, text, markdown)
	if err != nil {
		h.getLogEntry().WithField("error", err.Error()).Error("cant send reply")
		return 0
	}
	return messageID
}

// replyEphemeral sends a notice and schedules its removal. A message gone
// missing by delete time is not a fault.
func (h *Admin) replyEphemeral(ctx context.Context, chatID int64, text string, markdown bool) {
	messageID := h.reply(ctx, chatID, text, markdown)
	if messageID == 0 || h.scheduler == nil {
		return
	}
	h.scheduler.After(ephemeralNoticeDelay, func(runCtx context.Context) {
		if err := h.platform.DeleteMessage(runCtx, chatID, messageID); err != nil {
			h.getLogEntry().WithField("error", err.Error()).Debug("cant delete ephemeral notice")
		}
	})
}

func (h *Admin) getLogEntry() *log.Entry {
	return log.WithField("handler", "admin")
}
