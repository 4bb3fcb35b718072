package state

import (
	"sort"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// Policy is the runtime-mutable antispam configuration. It is persisted as
// part of the snapshot and edited only through admin operations.
type Policy struct {
	MaxWarnings             int
	BanDurationSeconds      int
	DeleteSpam              bool
	BlacklistPhrases        []string
	AdminIDs                []int64
	MaxRepeatedMessages     int
	RepeatTimeWindowSeconds int
}

func DefaultPolicy() Policy {
	return Policy{
		MaxWarnings:        2,
		BanDurationSeconds: 86400,
		DeleteSpam:         true,
		BlacklistPhrases: []string{
			"купить", "продать", "http://", "https://",
			"бесплатно", "реклама", "промокод",
		},
		AdminIDs:                []int64{},
		MaxRepeatedMessages:     3,
		RepeatTimeWindowSeconds: 60,
	}
}

type historyEntry struct {
	text string
	at   time.Time
}

type WarningEntry struct {
	Key   ChatUser
	Count int
}

// State is the single process-wide container for all mutable moderation
// state. Every read-modify-write goes through its mutex, so the message
// pipeline stays correct even if the surrounding runtime dispatches
// updates concurrently.
type State struct {
	mu       sync.Mutex
	policy   Policy
	warnings map[ChatUser]int
	bans     map[ChatUser]time.Time
	history  map[ChatUser][]historyEntry
}

func New(policy Policy) *State {
	return &State{
		policy:   policy,
		warnings: map[ChatUser]int{},
		bans:     map[ChatUser]time.Time{},
		history:  map[ChatUser][]historyEntry{},
	}
}

// Policy returns a copy safe to read without holding the state lock.
func (s *State) Policy() Policy {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.policyCopy()
}

func (s *State) policyCopy() Policy {
	policy := s.policy
	policy.BlacklistPhrases = append([]string(nil), s.policy.BlacklistPhrases...)
	policy.AdminIDs = append([]int64(nil), s.policy.AdminIDs...)
	return policy
}

func (s *State) IsAdmin(userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.policy.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// AddAdmin appends the user to the admin list. Returns false if the user
// is already present.
func (s *State) AddAdmin(userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.policy.AdminIDs {
		if id == userID {
			return false
		}
	}
	s.policy.AdminIDs = append(s.policy.AdminIDs, userID)
	return true
}

// AddBlacklistPhrase stores the phrase lower-cased. Returns false if it is
// already on the list.
func (s *State) AddBlacklistPhrase(phrase string) bool {
	phrase = strings.ToLower(phrase)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.policy.BlacklistPhrases {
		if existing == phrase {
			return false
		}
	}
	s.policy.BlacklistPhrases = append(s.policy.BlacklistPhrases, phrase)
	return true
}

// RecordViolation increments the warning counter for the pair, creating it
// at 1, and returns the post-increment count.
func (s *State) RecordViolation(key ChatUser) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.warnings[key]++
	return s.warnings[key]
}

// ResetWarnings removes the counter entry. Absence of a key means zero
// warnings, so resetting an unknown pair is a no-op.
func (s *State) ResetWarnings(key ChatUser) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.warnings, key)
}

// Warnings returns a stable snapshot of all counters, ordered by chat then
// user.
func (s *State) Warnings() []WarningEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := make([]WarningEntry, 0, len(s.warnings))
	for key, count := range s.warnings {
		entries = append(entries, WarningEntry{Key: key, Count: count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Key.ChatID != entries[j].Key.ChatID {
			return entries[i].Key.ChatID < entries[j].Key.ChatID
		}
		return entries[i].Key.UserID < entries[j].Key.UserID
	})
	return entries
}

// RegisterBan records the ban in the audit registry. The registry is not
// consulted for enforcement, the platform owns the actual ban.
func (s *State) RegisterBan(key ChatUser, expiry time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bans[key] = expiry
}

func (s *State) RegisterUnban(key ChatUser) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.bans, key)
}

func (s *State) BanExpiry(key ChatUser) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	expiry, ok := s.bans[key]
	return expiry, ok
}

// ObserveMessage prunes the pair's history to the repeat window, counts
// prior entries with identical text, then appends the new message. The
// append happens unconditionally, it is a side effect of evaluation and
// not of the spam verdict. Returns the count before appending.
func (s *State) ObserveMessage(key ChatUser, text string, now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	window := time.Duration(s.policy.RepeatTimeWindowSeconds) * time.Second
	kept := s.history[key][:0]
	for _, entry := range s.history[key] {
		if now.Sub(entry.at) <= window {
			kept = append(kept, entry)
		}
	}

	prior := 0
	for _, entry := range kept {
		if entry.text == text {
			prior++
		}
	}
	s.history[key] = append(kept, historyEntry{text: text, at: now})
	return prior
}

// Export produces the serializable snapshot of {warnings, policy, bans}.
// Message history is ephemeral and intentionally left out.
func (s *State) Export() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	warnings := make(map[string]int, len(s.warnings))
	for key, count := range s.warnings {
		warnings[key.String()] = count
	}
	banned := make(map[string]float64, len(s.bans))
	for key, expiry := range s.bans {
		banned[key.String()] = float64(expiry.UnixNano()) / float64(time.Second)
	}
	policy := s.policyCopy()

	return Snapshot{
		UserWarnings: warnings,
		Config: SnapshotConfig{
			MaxWarnings:         policy.MaxWarnings,
			BanDuration:         policy.BanDurationSeconds,
			DeleteSpam:          policy.DeleteSpam,
			BlacklistWords:      policy.BlacklistPhrases,
			AdminIDs:            policy.AdminIDs,
			MaxRepeatedMessages: policy.MaxRepeatedMessages,
			RepeatTimeWindow:    policy.RepeatTimeWindowSeconds,
			BannedUsers:         banned,
		},
	}
}

// FromSnapshot rebuilds a state container from a persisted snapshot.
// Malformed keys are skipped with a diagnostic rather than failing the
// whole load.
func FromSnapshot(snapshot Snapshot) *State {
	s := New(Policy{
		MaxWarnings:             snapshot.Config.MaxWarnings,
		BanDurationSeconds:      snapshot.Config.BanDuration,
		DeleteSpam:              snapshot.Config.DeleteSpam,
		BlacklistPhrases:        append([]string(nil), snapshot.Config.BlacklistWords...),
		AdminIDs:                append([]int64(nil), snapshot.Config.AdminIDs...),
		MaxRepeatedMessages:     snapshot.Config.MaxRepeatedMessages,
		RepeatTimeWindowSeconds: snapshot.Config.RepeatTimeWindow,
	})
	for rawKey, count := range snapshot.UserWarnings {
		key, err := ParseChatUser(rawKey)
		if err != nil {
			log.WithField("error", err.Error()).Warn("skipping malformed warning key")
			continue
		}
		if count > 0 {
			s.warnings[key] = count
		}
	}
	for rawKey, epoch := range snapshot.Config.BannedUsers {
		key, err := ParseChatUser(rawKey)
		if err != nil {
			log.WithField("error", err.Error()).Warn("skipping malformed ban key")
			continue
		}
		s.bans[key] = time.Unix(0, int64(epoch*float64(time.Second)))
	}
	return s
}
