package memory_test

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/petasbytes/go-translator/internal/storage"
	"github.com/petasbytes/go-translator/memory"
)

func newTestStore(b storage.Backend, opts ...memory.Option) *memory.Store {
	logger, _ := test.NewNullLogger()
	opts = append([]memory.Option{memory.WithLogger(logger), memory.WithClock(tickingClock())}, opts...)
	return memory.NewStore(b, opts...)
}

func TestStore_FreshUserIsEmpty(t *testing.T) {
	b := newMemBackend()
	s := newTestStore(b)
	ctx := context.Background()

	assert.Empty(t, s.RecentMessages(ctx, 1, 0))
	assert.Empty(t, s.ListConversations(ctx, 1))

	_, writes := b.counts()
	assert.Equal(t, 0, writes, "reads must not create a conversation")
	assert.Equal(t, 0, s.Cache().Len())
}

func TestStore_AppendThenRecent(t *testing.T) {
	s := newTestStore(newMemBackend())
	ctx := context.Background()

	s.AppendMessage(ctx, 7, memory.RoleUser, "hola")
	s.AppendMessage(ctx, 7, memory.RoleAssistant, "hello")

	want := [][2]string{{"user", "hola"}, {"assistant", "hello"}}
	assert.Equal(t, want, texts(s.RecentMessages(ctx, 7, 0)))
	assert.Equal(t, [][2]string{{"assistant", "hello"}}, texts(s.RecentMessages(ctx, 7, 1)))
	assert.Equal(t, want, texts(s.RecentMessages(ctx, 7, 50)))
}

func TestStore_MessageTimestampsFollowAppendOrder(t *testing.T) {
	s := newTestStore(newMemBackend())
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		s.AppendMessage(ctx, 1, memory.RoleUser, fmt.Sprint(i))
	}
	msgs := s.RecentMessages(ctx, 1, 0)
	require.Len(t, msgs, 5)
	for i := 1; i < len(msgs); i++ {
		assert.Equal(t, fmt.Sprint(i), msgs[i].Content)
		assert.True(t, msgs[i].Timestamp.After(msgs[i-1].Timestamp.Time))
	}
}

func TestStore_TwoNewConversationsLeaveOneActive(t *testing.T) {
	s := newTestStore(newMemBackend())
	ctx := context.Background()

	first := s.StartNewConversation(ctx, 3)
	second := s.StartNewConversation(ctx, 3)
	require.NotEqual(t, first, second)

	rec := s.Record(ctx, 3)
	require.Len(t, rec.Conversations, 2)

	var active []string
	for _, c := range rec.Conversations {
		if c.Active() {
			active = append(active, c.ID)
		}
	}
	assert.Equal(t, []string{second}, active)

	c0 := rec.Conversations[0]
	assert.Equal(t, first, c0.ID)
	require.NotNil(t, c0.Ended)
	assert.False(t, c0.Ended.Before(c0.Started.Time))
	assert.Equal(t, second, s.ActiveConversation(ctx, 3))
}

func TestStore_ListConversationsCountsMessages(t *testing.T) {
	s := newTestStore(newMemBackend())
	ctx := context.Background()

	s.AppendMessage(ctx, 9, memory.RoleUser, "a")
	s.AppendMessage(ctx, 9, memory.RoleAssistant, "b")
	s.AppendMessage(ctx, 9, memory.RoleUser, "c")
	s.StartNewConversation(ctx, 9)
	s.AppendMessage(ctx, 9, memory.RoleUser, "d")
	s.StartNewConversation(ctx, 9)

	sums := s.ListConversations(ctx, 9)
	require.Len(t, sums, 3)
	assert.Equal(t, 3, sums[0].MessageCount)
	assert.Equal(t, 1, sums[1].MessageCount)
	assert.Equal(t, 0, sums[2].MessageCount)
	assert.NotNil(t, sums[0].Ended)
	assert.NotNil(t, sums[1].Ended)
	assert.Nil(t, sums[2].Ended)
}

func TestStore_CacheHitSkipsRead(t *testing.T) {
	b := newMemBackend()
	s := newTestStore(b)
	ctx := context.Background()

	id := s.ActiveConversation(ctx, 5)
	readsBefore, _ := b.counts()
	assert.Equal(t, id, s.ActiveConversation(ctx, 5))
	readsAfter, _ := b.counts()
	assert.Equal(t, readsBefore, readsAfter)
}

func TestStore_ActivePicksLastUnendedEntry(t *testing.T) {
	b := newMemBackend()
	b.set(storage.Key(11), []byte(`{
  "version": 1,
  "conversations": [
    {"id": "newer000", "started": "2025-02-01T10:00:00Z", "ended": null, "messages": []},
    {"id": "older000", "started": "2025-01-01T10:00:00Z", "ended": null, "messages": [
      {"role": "user", "content": "last one wins", "timestamp": "2025-01-01T10:00:01Z"}
    ]}
  ]
}`))
	s := newTestStore(b)
	ctx := context.Background()

	assert.Equal(t, "older000", s.ActiveConversation(ctx, 11))
	assert.Equal(t, [][2]string{{"user", "last one wins"}}, texts(s.RecentMessages(ctx, 11, 0)))

	// Starting a new conversation closes both.
	id := s.StartNewConversation(ctx, 11)
	rec := s.Record(ctx, 11)
	require.Len(t, rec.Conversations, 3)
	assert.NotNil(t, rec.Conversations[0].Ended)
	assert.NotNil(t, rec.Conversations[1].Ended)
	assert.Equal(t, id, rec.Conversations[2].ID)
}

func TestStore_IDsAreCollisionChecked(t *testing.T) {
	ids := []string{"aaaaaaaa", "aaaaaaaa", "", "bbbbbbbb"}
	gen := func() string {
		id := ids[0]
		ids = ids[1:]
		return id
	}
	s := newTestStore(newMemBackend(), memory.WithIDGenerator(gen))
	ctx := context.Background()

	assert.Equal(t, "aaaaaaaa", s.StartNewConversation(ctx, 1))
	assert.Equal(t, "bbbbbbbb", s.StartNewConversation(ctx, 1))
}

func TestStore_DefaultIDsAreShortHex(t *testing.T) {
	s := newTestStore(newMemBackend())
	id := s.StartNewConversation(context.Background(), 1)
	assert.Regexp(t, `^[0-9a-f]{8}$`, id)
}

func TestStore_ReadFailureDegradesToEmpty(t *testing.T) {
	b := newMemBackend()
	logger, hook := test.NewNullLogger()
	s := memory.NewStore(b, memory.WithLogger(logger))
	ctx := context.Background()

	s.AppendMessage(ctx, 2, memory.RoleUser, "kept")
	b.failRead = true

	assert.Empty(t, s.RecentMessages(ctx, 2, 0))
	assert.Empty(t, s.ListConversations(ctx, 2))
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}

func TestStore_WriteFailureIsNotCached(t *testing.T) {
	b := newMemBackend()
	logger, hook := test.NewNullLogger()
	s := memory.NewStore(b, memory.WithLogger(logger))
	ctx := context.Background()

	b.failWrite = true
	s.StartNewConversation(ctx, 4)
	assert.Equal(t, 0, s.Cache().Len())
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)

	// The append resolves a conversation that never persisted, so the message is dropped.
	s.AppendMessage(ctx, 4, memory.RoleUser, "lost")
	b.failWrite = false
	assert.Empty(t, s.RecentMessages(ctx, 4, 0))
	assert.Empty(t, s.ListConversations(ctx, 4))
}

func TestStore_AppendToVanishedConversationIsDropped(t *testing.T) {
	b := newMemBackend()
	logger, hook := test.NewNullLogger()
	s := memory.NewStore(b, memory.WithLogger(logger))
	ctx := context.Background()

	s.AppendMessage(ctx, 8, memory.RoleUser, "first")
	_, writesBefore := b.counts()

	// Someone else overwrites the record.
	b.set(storage.Key(8), []byte(`{"conversations": []}`))
	s.AppendMessage(ctx, 8, memory.RoleUser, "second")

	_, writesAfter := b.counts()
	assert.Equal(t, writesBefore, writesAfter)
	assert.Equal(t, 0, s.Cache().Len())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)

	// Next append starts over in a new conversation.
	s.AppendMessage(ctx, 8, memory.RoleUser, "third")
	assert.Equal(t, [][2]string{{"user", "third"}}, texts(s.RecentMessages(ctx, 8, 0)))
}

func TestStore_UnknownRoleIsDropped(t *testing.T) {
	b := newMemBackend()
	s := newTestStore(b)
	s.AppendMessage(context.Background(), 1, memory.Role("system"), "nope")
	reads, writes := b.counts()
	assert.Zero(t, reads)
	assert.Zero(t, writes)
}

func TestStore_MalformedRecordIsReplaced(t *testing.T) {
	b := newMemBackend()
	b.set(storage.Key(6), []byte(`{"conversations": [ truncated`))
	s := newTestStore(b)
	ctx := context.Background()

	assert.Empty(t, s.ListConversations(ctx, 6))
	s.AppendMessage(ctx, 6, memory.RoleUser, "fresh")

	rec, err := memory.Decode(b.docs[storage.Key(6)])
	require.NoError(t, err)
	require.Len(t, rec.Conversations, 1)
	assert.Equal(t, "fresh", rec.Conversations[0].Messages[0].Content)
}

func TestStore_ConcurrentAppendsAllPersist(t *testing.T) {
	s := newTestStore(storage.NewLocal(t.TempDir()))
	ctx := context.Background()

	const n = 40
	var g errgroup.Group
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			s.AppendMessage(ctx, 77, memory.RoleUser, fmt.Sprintf("msg-%d", i))
			return nil
		})
	}
	// A different user proceeds independently.
	g.Go(func() error {
		s.AppendMessage(ctx, 78, memory.RoleUser, "other")
		return nil
	})
	require.NoError(t, g.Wait())

	sums := s.ListConversations(ctx, 77)
	require.Len(t, sums, 1)
	assert.Equal(t, n, sums[0].MessageCount)

	seen := map[string]bool{}
	for _, m := range s.RecentMessages(ctx, 77, 0) {
		seen[m.Content] = true
	}
	assert.Len(t, seen, n)
	assert.Len(t, s.RecentMessages(ctx, 78, 0), 1)
}

func TestStore_LocalRoundTrip(t *testing.T) {
	root := t.TempDir()
	s := newTestStore(storage.NewLocal(root))
	ctx := context.Background()

	s.AppendMessage(ctx, 1, memory.RoleUser, "¿Dónde está la estación? <b>&</b>")
	s.AppendMessage(ctx, 1, memory.RoleAssistant, "Where is the station?")
	s.StartNewConversation(ctx, 1)
	want := s.Record(ctx, 1)

	// A second store has no cache and must see the same record.
	got := newTestStore(storage.NewLocal(root)).Record(ctx, 1)
	if diff := cmp.Diff(want, got, instantCmp); diff != "" {
		t.Fatalf("record mismatch (-want +got):\n%s", diff)
	}

	raw, err := os.ReadFile(filepath.Join(root, "user_1.json"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "¿Dónde está la estación? <b>&</b>")
}

func TestStore_LocalScenario(t *testing.T) {
	root := filepath.Join(t.TempDir(), "store")
	b := storage.NewLocal(root)
	require.NoError(t, b.EnsureRoot(context.Background()))
	s := newTestStore(b)
	ctx := context.Background()

	s.AppendMessage(ctx, 42, memory.RoleUser, "hola")

	path := filepath.Join(root, "user_42.json")
	doc := readDoc(t, path)
	require.Len(t, doc.Conversations, 1)
	require.Len(t, doc.Conversations[0].Messages, 1)
	assert.Equal(t, "user", doc.Conversations[0].Messages[0].Role)
	assert.Equal(t, "hola", doc.Conversations[0].Messages[0].Content)

	s.StartNewConversation(ctx, 42)

	doc = readDoc(t, path)
	require.Len(t, doc.Conversations, 2)
	assert.NotNil(t, doc.Conversations[0].Ended)
	assert.Len(t, doc.Conversations[0].Messages, 1)
	assert.Nil(t, doc.Conversations[1].Ended)
	assert.Empty(t, doc.Conversations[1].Messages)
}

// rawDoc mirrors the stored layout without the memory types, so the file
// format itself is under test.
type rawDoc struct {
	Version       int `json:"version"`
	Conversations []struct {
		ID       string  `json:"id"`
		Started  string  `json:"started"`
		Ended    *string `json:"ended"`
		Messages []struct {
			Role      string `json:"role"`
			Content   string `json:"content"`
			Timestamp string `json:"timestamp"`
		} `json:"messages"`
	} `json:"conversations"`
}

func readDoc(t *testing.T, path string) rawDoc {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	var d rawDoc
	require.NoError(t, json.Unmarshal(b, &d))
	assert.Equal(t, memory.CurrentVersion, d.Version)
	return d
}
