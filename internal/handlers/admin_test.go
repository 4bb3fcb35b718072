package handlers

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/iamwavecut/antispambot/internal/moderation"
	"github.com/iamwavecut/antispambot/internal/platform"
	"github.com/iamwavecut/antispambot/internal/state"
)

const testOwnerID = int64(1000)

type fakePlatform struct {
	sent     []string
	deleted  []int
	unbans   []state.ChatUser
	unbanErr error
}

func (f *fakePlatform) DeleteMessage(_ context.Context, _ int64, messageID int) error {
	f.deleted = append(f.deleted, messageID)
	return nil
}

func (f *fakePlatform) SendMessage(_ context.Context, _ int64, text string, _ bool) (int, error) {
	f.sent = append(f.sent, text)
	return len(f.sent), nil
}

func (f *fakePlatform) BanUser(_ context.Context, _, _ int64, _ time.Time) error {
	return nil
}

func (f *fakePlatform) UnbanUser(_ context.Context, chatID, userID int64) error {
	if f.unbanErr != nil {
		return f.unbanErr
	}
	f.unbans = append(f.unbans, state.ChatUser{ChatID: chatID, UserID: userID})
	return nil
}

func testAdminHandler(t *testing.T, policy state.Policy, pl *fakePlatform) (*Admin, *state.State) {
	t.Helper()
	st := state.New(policy)
	store := state.NewFileStore(filepath.Join(t.TempDir(), "state.json"))
	tracker := moderation.NewInfractionTracker(st)
	ops := moderation.NewAdminOps(st, store, tracker, pl, nil, testOwnerID)
	return NewAdmin(ops, pl, nil, nil, "en"), st
}

func command(userID int64, name, args string) *platform.Message {
	return &platform.Message{
		ChatID:      -100,
		ChatType:    "supergroup",
		UserID:      userID,
		MessageID:   1,
		Text:        "/" + name,
		IsCommand:   true,
		Command:     name,
		CommandArgs: args,
	}
}

func TestAddAdminCommand(t *testing.T) {
	t.Parallel()

	pl := &fakePlatform{}
	h, st := testAdminHandler(t, state.DefaultPolicy(), pl)
	ctx := context.Background()

	proceed, err := h.Handle(ctx, command(testOwnerID, "add_admin", "500"))
	if err != nil || proceed {
		t.Fatalf("handled command must stop the chain: proceed=%v err=%v", proceed, err)
	}
	if !st.IsAdmin(500) {
		t.Fatalf("admin not added")
	}
	if !strings.Contains(pl.sent[0], "administrator") {
		t.Fatalf("confirmation missing: %q", pl.sent[0])
	}

	// non-owner rejected, list unchanged
	if _, err := h.Handle(ctx, command(500, "add_admin", "900")); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if st.IsAdmin(900) {
		t.Fatalf("admin list changed by non-owner")
	}
	if !strings.Contains(pl.sent[len(pl.sent)-1], "owner") {
		t.Fatalf("rejection missing: %q", pl.sent[len(pl.sent)-1])
	}

	// malformed argument yields a usage hint
	if _, err := h.Handle(ctx, command(testOwnerID, "add_admin", "abc")); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if !strings.Contains(pl.sent[len(pl.sent)-1], "Usage") {
		t.Fatalf("usage hint missing: %q", pl.sent[len(pl.sent)-1])
	}
}

func TestStatsCommandSilentForNonAdmins(t *testing.T) {
	t.Parallel()

	policy := state.DefaultPolicy()
	policy.AdminIDs = []int64{42}
	pl := &fakePlatform{}
	h, st := testAdminHandler(t, policy, pl)
	st.RecordViolation(state.ChatUser{ChatID: -1, UserID: 7})

	if _, err := h.Handle(context.Background(), command(7, "stats", "")); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(pl.sent) != 0 {
		t.Fatalf("non-admin stats must produce no output, got %v", pl.sent)
	}

	if _, err := h.Handle(context.Background(), command(42, "stats", "")); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(pl.sent) != 1 || !strings.Contains(pl.sent[0], "User 7 in chat -1: 1") {
		t.Fatalf("unexpected stats output: %v", pl.sent)
	}
}

func TestUnbanCommand(t *testing.T) {
	t.Parallel()

	policy := state.DefaultPolicy()
	policy.AdminIDs = []int64{42}
	pl := &fakePlatform{}
	h, st := testAdminHandler(t, policy, pl)
	ctx := context.Background()

	key := state.ChatUser{ChatID: -100, UserID: 7}
	st.RegisterBan(key, time.Unix(1_700_086_400, 0))

	if _, err := h.Handle(ctx, command(42, "unban", "7")); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if _, ok := st.BanExpiry(key); ok {
		t.Fatalf("ban record not cleared")
	}
	if len(pl.unbans) != 1 {
		t.Fatalf("platform unban missing")
	}
	if !strings.Contains(pl.sent[len(pl.sent)-1], "unbanned") {
		t.Fatalf("confirmation missing: %v", pl.sent)
	}

	if _, err := h.Handle(ctx, command(42, "unban", "")); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if !strings.Contains(pl.sent[len(pl.sent)-1], "Usage") {
		t.Fatalf("usage hint missing: %v", pl.sent)
	}
}

func TestBlacklistCommand(t *testing.T) {
	t.Parallel()

	policy := state.DefaultPolicy()
	policy.AdminIDs = []int64{42}
	policy.BlacklistPhrases = []string{"spam"}
	pl := &fakePlatform{}
	h, st := testAdminHandler(t, policy, pl)
	ctx := context.Background()

	noReply := command(42, "blacklist", "")
	if _, err := h.Handle(ctx, noReply); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if !strings.Contains(pl.sent[len(pl.sent)-1], "Reply") {
		t.Fatalf("reply hint missing: %v", pl.sent)
	}

	withReply := command(42, "blacklist", "")
	withReply.HasReply = true
	withReply.ReplyText = "Buy CHEAP Stuff"
	if _, err := h.Handle(ctx, withReply); err != nil {
		t.Fatalf("handle: %v", err)
	}
	phrases := st.Policy().BlacklistPhrases
	if phrases[len(phrases)-1] != "buy cheap stuff" {
		t.Fatalf("phrase not stored: %v", phrases)
	}

	// duplicate is a no-op with an info notice
	if _, err := h.Handle(ctx, withReply); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if !strings.Contains(pl.sent[len(pl.sent)-1], "already") {
		t.Fatalf("duplicate notice missing: %v", pl.sent)
	}

	empty := command(42, "blacklist", "")
	empty.HasReply = true
	if _, err := h.Handle(ctx, empty); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if !strings.Contains(pl.sent[len(pl.sent)-1], "no text") {
		t.Fatalf("empty phrase notice missing: %v", pl.sent)
	}
}

func TestNonCommandsPassThrough(t *testing.T) {
	t.Parallel()

	pl := &fakePlatform{}
	h, _ := testAdminHandler(t, state.DefaultPolicy(), pl)

	msg := &platform.Message{ChatID: -1, UserID: 2, Text: "hello"}
	proceed, err := h.Handle(context.Background(), msg)
	if err != nil || !proceed {
		t.Fatalf("plain messages must pass through: proceed=%v err=%v", proceed, err)
	}

	proceed, err = h.Handle(context.Background(), command(2, "start", ""))
	if err != nil || !proceed {
		t.Fatalf("unknown commands must pass through: proceed=%v err=%v", proceed, err)
	}
}
