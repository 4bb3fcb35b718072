package moderation

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	apperrors "github.com/iamwavecut/antispambot/internal/errors"

	"github.com/iamwavecut/antispambot/internal/db"
	"github.com/iamwavecut/antispambot/internal/observability"
	"github.com/iamwavecut/antispambot/internal/platform"
	"github.com/iamwavecut/antispambot/internal/state"
)

// AdminOps is the privileged mutation surface. Every operation checks
// authorization first and persists the state after a successful change.
type AdminOps struct {
	st       *state.State
	store    *state.FileStore
	tracker  *InfractionTracker
	platform platform.Platform
	audit    db.AuditLog
	ownerID  int64
}

func NewAdminOps(st *state.State, store *state.FileStore, tracker *InfractionTracker, pl platform.Platform, audit db.AuditLog, ownerID int64) *AdminOps {
	return &AdminOps{
		st:       st,
		store:    store,
		tracker:  tracker,
		platform: pl,
		audit:    audit,
		ownerID:  ownerID,
	}
}

// AddAdmin appends the target to the admin list. Only the bot owner may
// call it. Returns false with a nil error when the target is already an
// admin.
func (a *AdminOps) AddAdmin(requesterID, targetID int64) (bool, error) {
	if requesterID != a.ownerID {
		return false, apperrors.ErrUnauthorized
	}
	if !a.st.AddAdmin(targetID) {
		return false, nil
	}
	a.persist()
	return true, nil
}

// Unban lifts the platform ban and clears the pair's ban record and
// warnings. Succeeds even when the target has neither.
func (a *AdminOps) Unban(ctx context.Context, requesterID, chatID, targetID int64) error {
	if !a.st.IsAdmin(requesterID) {
		return apperrors.ErrUnauthorized
	}

	if err := a.platform.UnbanUser(ctx, chatID, targetID); err != nil {
		return errors.WithMessage(err, "cant unban user")
	}
	observability.RecordModerationAction(db.ActionUnban)

	a.tracker.RegisterUnban(chatID, targetID)
	a.tracker.Reset(chatID, targetID)
	a.persist()

	if a.audit != nil {
		if err := a.audit.RecordAction(ctx, &db.ModerationEvent{
			ChatID: chatID,
			UserID: targetID,
			Action: db.ActionUnban,
		}); err != nil {
			a.getLogEntry().WithField("error", err.Error()).Error("cant record audit event")
		}
	}
	return nil
}

// AddBlacklistPhrase stores a new blacklist phrase lower-cased. Returns
// false with a nil error when the phrase is already present.
func (a *AdminOps) AddBlacklistPhrase(requesterID int64, phrase string) (bool, error) {
	if !a.st.IsAdmin(requesterID) {
		return false, apperrors.ErrUnauthorized
	}
	phrase = strings.TrimSpace(phrase)
	if phrase == "" {
		return false, apperrors.ErrEmptyPhrase
	}
	if !a.st.AddBlacklistPhrase(phrase) {
		return false, nil
	}
	a.persist()
	return true, nil
}

// Stats returns the warning counter snapshot. Non-admin requesters get
// ErrUnauthorized, which the command surface treats as silence.
func (a *AdminOps) Stats(requesterID int64) ([]state.WarningEntry, error) {
	if !a.st.IsAdmin(requesterID) {
		return nil, apperrors.ErrUnauthorized
	}
	return a.tracker.CurrentWarnings(), nil
}

func (a *AdminOps) persist() {
	if err := a.store.Save(a.st); err != nil {
		a.getLogEntry().WithField("error", err.Error()).Error("cant save state")
	}
}

func (a *AdminOps) getLogEntry() *log.Entry {
	return log.WithField("object", "AdminOps")
}
