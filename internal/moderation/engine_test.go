package moderation

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/iamwavecut/antispambot/internal/platform"
	"github.com/iamwavecut/antispambot/internal/state"
)

type banCall struct {
	chatID int64
	userID int64
	until  time.Time
}

type fakePlatform struct {
	deleted   []int
	sent      []string
	bans      []banCall
	unbans    []state.ChatUser
	deleteErr error
	sendErr   error
	banErr    error
	unbanErr  error
}

func (f *fakePlatform) DeleteMessage(_ context.Context, _ int64, messageID int) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, messageID)
	return nil
}

func (f *fakePlatform) SendMessage(_ context.Context, _ int64, text string, _ bool) (int, error) {
	if f.sendErr != nil {
		return 0, f.sendErr
	}
	f.sent = append(f.sent, text)
	return len(f.sent), nil
}

func (f *fakePlatform) BanUser(_ context.Context, chatID, userID int64, until time.Time) error {
	if f.banErr != nil {
		return f.banErr
	}
	f.bans = append(f.bans, banCall{chatID: chatID, userID: userID, until: until})
	return nil
}

func (f *fakePlatform) UnbanUser(_ context.Context, chatID, userID int64) error {
	if f.unbanErr != nil {
		return f.unbanErr
	}
	f.unbans = append(f.unbans, state.ChatUser{ChatID: chatID, UserID: userID})
	return nil
}

func testEngine(t *testing.T, policy state.Policy, pl *fakePlatform) (*Engine, *state.State) {
	t.Helper()
	st := state.New(policy)
	store := state.NewFileStore(filepath.Join(t.TempDir(), "state.json"))
	engine := NewEngine(st, store, pl, nil, "en")
	engine.now = func() time.Time { return time.Unix(1_700_000_000, 0) }
	return engine, st
}

func spamPolicy() state.Policy {
	policy := state.DefaultPolicy()
	policy.MaxWarnings = 2
	policy.BlacklistPhrases = []string{"spam"}
	return policy
}

func spamMessage(messageID int) *platform.Message {
	return &platform.Message{
		ChatID:    -100,
		ChatType:  "supergroup",
		UserID:    7,
		Username:  "spammer",
		MessageID: messageID,
		Text:      "buy spam now",
	}
}

func TestEscalationToBan(t *testing.T) {
	t.Parallel()

	pl := &fakePlatform{}
	engine, st := testEngine(t, spamPolicy(), pl)
	ctx := context.Background()

	first := engine.ProcessMessage(ctx, spamMessage(1))
	if !first.Spam || first.Warnings != 1 || first.Banned {
		t.Fatalf("first violation: %+v", first)
	}
	second := engine.ProcessMessage(ctx, spamMessage(2))
	if second.Warnings != 2 || second.Banned {
		t.Fatalf("second violation: %+v", second)
	}
	if !strings.Contains(pl.sent[len(pl.sent)-1], "banned") {
		t.Fatalf("final warning notice missing: %q", pl.sent[len(pl.sent)-1])
	}

	third := engine.ProcessMessage(ctx, spamMessage(3))
	if third.Warnings != 3 || !third.Banned {
		t.Fatalf("third violation: %+v", third)
	}
	if len(pl.bans) != 1 {
		t.Fatalf("expected one ban call, got %d", len(pl.bans))
	}
	wantUntil := time.Unix(1_700_000_000, 0).Add(24 * time.Hour)
	if !pl.bans[0].until.Equal(wantUntil) {
		t.Fatalf("ban until %v, want %v", pl.bans[0].until, wantUntil)
	}

	// counter reset, ban recorded
	if entries := st.Warnings(); len(entries) != 0 {
		t.Fatalf("warnings not reset after ban: %v", entries)
	}
	if _, ok := st.BanExpiry(state.ChatUser{ChatID: -100, UserID: 7}); !ok {
		t.Fatalf("ban not registered")
	}

	// next message starts fresh at one warning
	fresh := engine.ProcessMessage(ctx, spamMessage(4))
	if fresh.Warnings != 1 || fresh.Banned {
		t.Fatalf("post-ban violation: %+v", fresh)
	}
}

func TestBanFailureLeavesStateUntouched(t *testing.T) {
	t.Parallel()

	pl := &fakePlatform{banErr: context.DeadlineExceeded}
	engine, st := testEngine(t, spamPolicy(), pl)
	ctx := context.Background()

	engine.ProcessMessage(ctx, spamMessage(1))
	engine.ProcessMessage(ctx, spamMessage(2))
	outcome := engine.ProcessMessage(ctx, spamMessage(3))

	if outcome.Banned {
		t.Fatalf("ban reported despite platform failure")
	}
	entries := st.Warnings()
	if len(entries) != 1 || entries[0].Count != 3 {
		t.Fatalf("counter must keep the incremented value: %v", entries)
	}
	if _, ok := st.BanExpiry(state.ChatUser{ChatID: -100, UserID: 7}); ok {
		t.Fatalf("ban registry must stay empty on failure")
	}
}

func TestDeleteDisabledSkipsDeleteAndWarn(t *testing.T) {
	t.Parallel()

	policy := spamPolicy()
	policy.DeleteSpam = false
	pl := &fakePlatform{}
	engine, _ := testEngine(t, policy, pl)

	outcome := engine.ProcessMessage(context.Background(), spamMessage(1))
	if !outcome.Spam || outcome.Warnings != 1 {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
	if len(pl.deleted) != 0 || len(pl.sent) != 0 {
		t.Fatalf("no platform actions expected: deleted=%v sent=%v", pl.deleted, pl.sent)
	}
}

func TestDeleteFailureDoesNotStopPipeline(t *testing.T) {
	t.Parallel()

	pl := &fakePlatform{deleteErr: context.DeadlineExceeded}
	engine, st := testEngine(t, spamPolicy(), pl)

	outcome := engine.ProcessMessage(context.Background(), spamMessage(1))
	if !outcome.Spam || outcome.Warnings != 1 {
		t.Fatalf("violation must still be recorded: %+v", outcome)
	}
	if len(st.Warnings()) != 1 {
		t.Fatalf("counter missing")
	}
	// the warn reply is still attempted
	if len(pl.sent) != 1 {
		t.Fatalf("warn reply missing")
	}
}

func TestAdminsAreNeverClassified(t *testing.T) {
	t.Parallel()

	policy := spamPolicy()
	policy.AdminIDs = []int64{7}
	pl := &fakePlatform{}
	engine, st := testEngine(t, policy, pl)

	outcome := engine.ProcessMessage(context.Background(), spamMessage(1))
	if outcome.Spam {
		t.Fatalf("admin message classified")
	}
	if len(st.Warnings()) != 0 || len(pl.deleted) != 0 {
		t.Fatalf("admin message must leave no trace")
	}
}

func TestEmptyTextIgnored(t *testing.T) {
	t.Parallel()

	pl := &fakePlatform{}
	engine, _ := testEngine(t, spamPolicy(), pl)

	msg := spamMessage(1)
	msg.Text = ""
	if outcome := engine.ProcessMessage(context.Background(), msg); outcome.Spam {
		t.Fatalf("empty text flagged")
	}
}

func TestRepeatDetectionEscalates(t *testing.T) {
	t.Parallel()

	policy := spamPolicy()
	policy.BlacklistPhrases = nil
	policy.MaxRepeatedMessages = 2
	pl := &fakePlatform{}
	engine, _ := testEngine(t, policy, pl)
	ctx := context.Background()

	msg := func(id int) *platform.Message {
		m := spamMessage(id)
		m.Text = "same harmless text"
		return m
	}

	if outcome := engine.ProcessMessage(ctx, msg(1)); outcome.Spam {
		t.Fatalf("first send flagged")
	}
	if outcome := engine.ProcessMessage(ctx, msg(2)); outcome.Spam {
		t.Fatalf("second send flagged")
	}
	if outcome := engine.ProcessMessage(ctx, msg(3)); !outcome.Spam || outcome.Warnings != 1 {
		t.Fatalf("third identical send must be flagged: %+v", outcome)
	}
}
