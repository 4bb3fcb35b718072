package moderation

import (
	"time"

	"github.com/iamwavecut/antispambot/internal/state"
)

// InfractionTracker owns the per-(chat,user) warning counters and the ban
// registry. All mutations are serialized by the state container's lock.
type InfractionTracker struct {
	st *state.State
}

func NewInfractionTracker(st *state.State) *InfractionTracker {
	return &InfractionTracker{st: st}
}

// RecordViolation increments the warning counter and returns the
// post-increment count.
func (t *InfractionTracker) RecordViolation(chatID, userID int64) int {
	return t.st.RecordViolation(state.ChatUser{ChatID: chatID, UserID: userID})
}

// Reset removes the counter entry. Idempotent.
func (t *InfractionTracker) Reset(chatID, userID int64) {
	t.st.ResetWarnings(state.ChatUser{ChatID: chatID, UserID: userID})
}

func (t *InfractionTracker) RegisterBan(chatID, userID int64, expiry time.Time) {
	t.st.RegisterBan(state.ChatUser{ChatID: chatID, UserID: userID}, expiry)
}

func (t *InfractionTracker) RegisterUnban(chatID, userID int64) {
	t.st.RegisterUnban(state.ChatUser{ChatID: chatID, UserID: userID})
}

// CurrentWarnings returns the counter snapshot for reporting.
func (t *InfractionTracker) CurrentWarnings() []state.WarningEntry {
	return t.st.Warnings()
}
