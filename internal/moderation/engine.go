package moderation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/iamwavecut/tool"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/antispambot/internal/db"
	"github.com/iamwavecut/antispambot/internal/i18n"
	"github.com/iamwavecut/antispambot/internal/observability"
	"github.com/iamwavecut/antispambot/internal/platform"
	"github.com/iamwavecut/antispambot/internal/spam"
	"github.com/iamwavecut/antispambot/internal/state"
)

// Engine drives the per-(chat,user) escalation: a detected violation
// increments the warning counter, spam gets deleted with a warn reply, and
// crossing the warning limit bans the user and resets the counter. State
// is persisted after every mutation.
type Engine struct {
	st         *state.State
	store      *state.FileStore
	tracker    *InfractionTracker
	classifier *spam.Classifier
	platform   platform.Platform
	audit      db.AuditLog
	lang       string
	now        func() time.Time
}

// Outcome reports what the engine did with a message.
type Outcome struct {
	Spam     bool
	Warnings int
	Banned   bool
}

func NewEngine(st *state.State, store *state.FileStore, pl platform.Platform, audit db.AuditLog, lang string) *Engine {
	return &Engine{
		st:         st,
		store:      store,
		tracker:    NewInfractionTracker(st),
		classifier: spam.NewClassifier(),
		platform:   pl,
		audit:      audit,
		lang:       lang,
		now:        time.Now,
	}
}

// Tracker exposes the engine's infraction tracker to the admin surface.
func (e *Engine) Tracker() *InfractionTracker {
	return e.tracker
}

// ProcessMessage classifies one message and applies the escalation policy.
// Platform call failures are logged and the pipeline continues; only a
// failed ban call leaves the counters untouched for that branch.
func (e *Engine) ProcessMessage(ctx context.Context, msg *platform.Message) Outcome {
	outcome := Outcome{}
	if msg == nil || msg.Text == "" {
		return outcome
	}

	policy := e.st.Policy()
	if e.st.IsAdmin(msg.UserID) {
		return outcome
	}
	observability.RecordMessageChecked()

	entry := e.getLogEntry().WithField("chat_id", msg.ChatID).WithField("user_id", msg.UserID)
	now := e.now()
	key := state.ChatUser{ChatID: msg.ChatID, UserID: msg.UserID}

	source := ""
	if e.classifier.Classify(msg.Text, policy) {
		source = "content"
	} else if e.classifier.Repeated(e.st, key, msg.Text, policy, now) {
		source = "repeat"
	}
	if source == "" {
		return outcome
	}
	observability.RecordSpamDetection(source)
	outcome.Spam = true

	count := e.tracker.RecordViolation(msg.ChatID, msg.UserID)
	outcome.Warnings = count
	e.persist(entry)
	entry = entry.WithField("warnings", count).WithField("source", source)
	entry.Info("violation recorded")

	if policy.DeleteSpam {
		if err := e.platform.DeleteMessage(ctx, msg.ChatID, msg.MessageID); err != nil {
			entry.WithField("error", err.Error()).Error("cant delete spam message")
		} else {
			observability.RecordModerationAction(db.ActionDelete)
			e.recordAudit(ctx, msg, db.ActionDelete, auditDetails(msg))
		}

		warnText := fmt.Sprintf(
			i18n.Get("⚠️ Attention %s! The message was removed by the anti-spam filter. Warnings issued: %d. ", e.lang),
			mention(msg), count,
		)
		if count == policy.MaxWarnings {
			warnText += i18n.Get("The next violation will get you banned!", e.lang)
		}
		if _, err := e.platform.SendMessage(ctx, msg.ChatID, warnText, true); err != nil {
			entry.WithField("error", err.Error()).Error("cant send warn reply")
		} else {
			observability.RecordModerationAction(db.ActionWarn)
			e.recordAudit(ctx, msg, db.ActionWarn, strconv.Itoa(count))
		}
	}

	if count > policy.MaxWarnings {
		until := now.Add(time.Duration(policy.BanDurationSeconds) * time.Second)
		if err := e.platform.BanUser(ctx, msg.ChatID, msg.UserID, until); err != nil {
			entry.WithField("error", err.Error()).Error("cant ban user")
			return outcome
		}
		outcome.Banned = true
		observability.RecordModerationAction(db.ActionBan)

		banText := fmt.Sprintf(i18n.Get("🚫 User %s has been banned for spamming!", e.lang), displayName(msg))
		if _, err := e.platform.SendMessage(ctx, msg.ChatID, banText, false); err != nil {
			entry.WithField("error", err.Error()).Error("cant send ban notice")
		}

		e.tracker.RegisterBan(msg.ChatID, msg.UserID, until)
		e.tracker.Reset(msg.ChatID, msg.UserID)
		e.persist(entry)
		e.recordAudit(ctx, msg, db.ActionBan, auditDetails(msg))
		entry.WithField("until", until).Info("user banned")
	}

	return outcome
}

func (e *Engine) persist(entry *log.Entry) {
	if err := e.store.Save(e.st); err != nil {
		entry.WithField("error", err.Error()).Error("cant save state")
	}
}

func (e *Engine) recordAudit(ctx context.Context, msg *platform.Message, action, details string) {
	if e.audit == nil {
		return
	}
	if err := e.audit.RecordAction(ctx, &db.ModerationEvent{
		ChatID:    msg.ChatID,
		UserID:    msg.UserID,
		Action:    action,
		Details:   details,
		CreatedAt: e.now(),
	}); err != nil {
		e.getLogEntry().WithField("error", err.Error()).Error("cant record audit event")
	}
}

func (e *Engine) getLogEntry() *log.Entry {
	return log.WithField("object", "Engine")
}

// mention builds an inline markdown mention that pings the user even
// without a public username.
func mention(msg *platform.Message) string {
	name := msg.Username
	if name == "" {
		name = msg.FullName
	}
	return "[" + name + "](tg://user?id=" + strconv.FormatInt(msg.UserID, 10) + ")"
}

func displayName(msg *platform.Message) string {
	if msg.Username != "" {
		return "@" + msg.Username
	}
	return msg.FullName
}

func auditDetails(msg *platform.Message) string {
	return tool.ExecTemplate(`{{ .user_name }} ({{ .user_id }}): {{ .text }}`, map[string]any{
		"user_name": displayName(msg),
		"user_id":   msg.UserID,
		"text":      msg.Text,
	})
}
