package memory

import (
	"context"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/petasbytes/go-translator/internal/metrics"
	"github.com/petasbytes/go-translator/internal/storage"
)

// Store manages conversations for all users on top of one storage backend.
// Its methods never return errors: failures are logged and the affected
// operation proceeds against an empty record or drops its write.
type Store struct {
	backend storage.Backend
	cache   *SessionCache
	locks   keyedMutex
	logger  log.FieldLogger
	now     func() time.Time
	newID   func() string
}

// Option customizes a Store.
type Option func(*Store)

// WithLogger sets the logger. The default is the logrus standard logger.
func WithLogger(l log.FieldLogger) Option {
	return func(s *Store) { s.logger = l }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithCache shares an existing SessionCache.
func WithCache(c *SessionCache) Option {
	return func(s *Store) { s.cache = c }
}

// WithIDGenerator replaces the conversation id source. Ids it returns are
// still checked for uniqueness within the record.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) { s.newID = gen }
}

// NewStore returns a Store persisting through backend.
func NewStore(backend storage.Backend, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		cache:   NewSessionCache(),
		logger:  log.StandardLogger(),
		now:     time.Now,
		newID:   newConversationID,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Cache exposes the session cache owned by the store.
func (s *Store) Cache() *SessionCache {
	return s.cache
}

// newConversationID returns the first 8 hex characters of a random UUID.
func newConversationID() string {
	return uuid.NewString()[:8]
}

// ActiveConversation returns the id of the user's active conversation,
// starting one when none exists.
func (s *Store) ActiveConversation(ctx context.Context, userID int64) string {
	unlock := s.locks.Lock(userID)
	defer unlock()
	return s.active(ctx, userID)
}

// StartNewConversation ends every active conversation and starts a fresh one.
func (s *Store) StartNewConversation(ctx context.Context, userID int64) string {
	unlock := s.locks.Lock(userID)
	defer unlock()
	return s.start(ctx, userID, s.load(ctx, userID))
}

// AppendMessage adds a message to the active conversation. If the active id
// is no longer present in the stored record the message is dropped.
func (s *Store) AppendMessage(ctx context.Context, userID int64, role Role, content string) {
	logger := s.logger.WithFields(log.Fields{"user": userID, "role": role})
	if !role.Valid() {
		logger.Warn("dropping message with unknown role")
		return
	}

	unlock := s.locks.Lock(userID)
	defer unlock()

	convID := s.active(ctx, userID)
	rec := s.load(ctx, userID)
	conv := rec.Find(convID)
	if conv == nil {
		s.cache.Forget(userID)
		logger.WithField("conversation", convID).Warn("active conversation missing from record, message dropped")
		return
	}
	conv.Messages = append(conv.Messages, Message{
		Role:      role,
		Content:   content,
		Timestamp: At(s.now()),
	})
	if s.save(ctx, userID, rec) {
		logger.WithField("conversation", convID).Debug("message appended")
	}
}

// RecentMessages returns the last limit messages of the active conversation,
// or all of them when limit <= 0. It never starts a conversation.
func (s *Store) RecentMessages(ctx context.Context, userID int64, limit int) []Message {
	unlock := s.locks.Lock(userID)
	defer unlock()

	rec := s.load(ctx, userID)
	var conv *Conversation
	if id, ok := s.cache.Get(userID); ok {
		conv = rec.Find(id)
	}
	if conv == nil || !conv.Active() {
		conv = rec.Active()
		if conv == nil {
			s.cache.Forget(userID)
			return []Message{}
		}
		s.cache.Set(userID, conv.ID)
	}

	msgs := conv.Messages
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out
}

// ListConversations summarizes every conversation in record order.
func (s *Store) ListConversations(ctx context.Context, userID int64) []Summary {
	unlock := s.locks.Lock(userID)
	defer unlock()
	rec := s.load(ctx, userID)
	return rec.Summaries()
}

// Record returns the user's full document.
func (s *Store) Record(ctx context.Context, userID int64) UserRecord {
	unlock := s.locks.Lock(userID)
	defer unlock()
	return s.load(ctx, userID)
}

// active must be called with the user's lock held.
func (s *Store) active(ctx context.Context, userID int64) string {
	if id, ok := s.cache.Get(userID); ok {
		return id
	}
	rec := s.load(ctx, userID)
	if conv := rec.Active(); conv != nil {
		s.cache.Set(userID, conv.ID)
		return conv.ID
	}
	return s.start(ctx, userID, rec)
}

// start must be called with the user's lock held. rec is the freshly loaded record.
func (s *Store) start(ctx context.Context, userID int64, rec UserRecord) string {
	id := s.uniqueID(&rec)
	now := At(s.now())
	for i := range rec.Conversations {
		if rec.Conversations[i].Ended == nil {
			ended := now
			rec.Conversations[i].Ended = &ended
		}
	}
	rec.Conversations = append(rec.Conversations, Conversation{
		ID:       id,
		Started:  now,
		Messages: []Message{},
	})

	logger := s.logger.WithFields(log.Fields{"user": userID, "conversation": id})
	if s.save(ctx, userID, rec) {
		s.cache.Set(userID, id)
		logger.Info("new conversation")
	} else {
		s.cache.Forget(userID)
	}
	return id
}

func (s *Store) uniqueID(rec *UserRecord) string {
	for {
		id := s.newID()
		if id != "" && rec.Find(id) == nil {
			return id
		}
	}
}

func (s *Store) load(ctx context.Context, userID int64) UserRecord {
	logger := s.logger.WithField("user", userID)
	data, err := s.backend.Read(ctx, storage.Key(userID))
	if err != nil {
		metrics.DegradedRead()
		logger.WithError(err).Warn("could not read user record, starting fresh")
		return emptyRecord()
	}
	rec, err := Decode(data)
	if err != nil {
		metrics.DegradedRead()
		logger.WithError(err).Warn("invalid user record, starting fresh")
		return emptyRecord()
	}
	if rec.Version > CurrentVersion {
		logger.WithField("version", rec.Version).Warn("user record has a newer version than supported")
	}
	return rec
}

// save reports whether the record reached the backend.
func (s *Store) save(ctx context.Context, userID int64, rec UserRecord) bool {
	logger := s.logger.WithField("user", userID)
	data, err := Encode(rec)
	if err != nil {
		logger.WithError(err).Error("could not encode user record")
		return false
	}
	if err := s.backend.Write(ctx, storage.Key(userID), data); err != nil {
		logger.WithError(err).Error("failed to write user record")
		return false
	}
	return true
}
