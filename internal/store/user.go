package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/whisperbox/webapp/types"
)

// userRecord is the mutable, store-owned form of a user.
type userRecord struct {
	username      string
	createdAt     time.Time
	messages      []types.Message
	nextMessageID int64
}

// UserRepository keeps handles and their inboxes in process memory.
// Every method is its own critical section; nothing spans calls.
type UserRepository struct {
	mu    sync.RWMutex
	users map[string]*userRecord
	now   func() time.Time
}

// NewUserRepository constructs an empty in-memory repository.
func NewUserRepository() *UserRepository {
	return &UserRepository{
		users: make(map[string]*userRecord),
		now:   time.Now,
	}
}

// WithClock replaces the time source. Used by tests.
func (r *UserRepository) WithClock(now func() time.Time) *UserRepository {
	r.now = now
	return r
}

func (r *UserRepository) EnsureUser(ctx context.Context, username string) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.ensureLocked(username).snapshot(), nil
}

func (r *UserRepository) GetUser(ctx context.Context, username string) (types.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.users[username]
	if !ok {
		return types.User{}, ErrNotFound
	}
	return rec.snapshot(), nil
}

func (r *UserRepository) ListUsers(ctx context.Context) ([]types.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]types.User, 0, len(r.users))
	for _, rec := range r.users {
		users = append(users, rec.snapshot())
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].Username < users[j].Username
		}
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})
	return users, nil
}

func (r *UserRepository) DeleteUser(ctx context.Context, username string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.users, username)
	return nil
}

func (r *UserRepository) AddMessage(ctx context.Context, username, text string) (types.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec := r.ensureLocked(username)
	rec.nextMessageID++
	msg := types.Message{
		ID:         rec.nextMessageID,
		Text:       text,
		ReceivedAt: r.now(),
	}
	rec.messages = append(rec.messages, msg)
	return msg, nil
}

func (r *UserRepository) GetMessage(ctx context.Context, username string, id int64) (types.Message, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.users[username]
	if !ok {
		return types.Message{}, 0, ErrNotFound
	}
	idx := rec.indexOf(id)
	if idx < 0 {
		return types.Message{}, len(rec.messages), ErrNotFound
	}
	return copyMessage(rec.messages[idx]), len(rec.messages), nil
}

func (r *UserRepository) DeleteMessage(ctx context.Context, username string, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.users[username]
	if !ok {
		return nil
	}
	idx := rec.indexOf(id)
	if idx < 0 {
		return nil
	}
	rec.messages = append(rec.messages[:idx], rec.messages[idx+1:]...)
	return nil
}

func (r *UserRepository) SetReaction(ctx context.Context, username string, id int64, reaction string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.users[username]
	if !ok {
		return false, nil
	}
	idx := rec.indexOf(id)
	if idx < 0 {
		return false, nil
	}
	readAt := r.now()
	rec.messages[idx].Reaction = reaction
	rec.messages[idx].ReadAt = &readAt
	return true, nil
}

func (r *UserRepository) ensureLocked(username string) *userRecord {
	rec, ok := r.users[username]
	if !ok {
		rec = &userRecord{
			username:  username,
			createdAt: r.now(),
		}
		r.users[username] = rec
	}
	return rec
}

func (rec *userRecord) indexOf(id int64) int {
	for i := range rec.messages {
		if rec.messages[i].ID == id {
			return i
		}
	}
	return -1
}

func (rec *userRecord) snapshot() types.User {
	messages := make([]types.Message, len(rec.messages))
	for i, msg := range rec.messages {
		messages[i] = copyMessage(msg)
	}
	return types.User{
		Username:  rec.username,
		CreatedAt: rec.createdAt,
		Messages:  messages,
	}
}

func copyMessage(msg types.Message) types.Message {
	if msg.ReadAt != nil {
		readAt := *msg.ReadAt
		msg.ReadAt = &readAt
	}
	return msg
}
