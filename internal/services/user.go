package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/whisperbox/webapp/internal/mq"
	"github.com/whisperbox/webapp/types"
)

// MaxMessageLength is the longest accepted message, in characters.
const MaxMessageLength = 300

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,20}$`)

var (
	// ErrInvalidUsername is returned when a new handle does not match the
	// allowed pattern.
	ErrInvalidUsername = errors.New("invalid username")

	// ErrInvalidMessage is returned when a message is empty or too long
	// after trimming.
	ErrInvalidMessage = errors.New("invalid message")
)

// InboxRepository defines storage operations for handles and their inboxes.
// Mutations on missing users or messages are silent no-ops.
type InboxRepository interface {
	EnsureUser(ctx context.Context, username string) (types.User, error)
	GetUser(ctx context.Context, username string) (types.User, error)
	ListUsers(ctx context.Context) ([]types.User, error)
	DeleteUser(ctx context.Context, username string) error
	AddMessage(ctx context.Context, username, text string) (types.Message, error)
	GetMessage(ctx context.Context, username string, id int64) (types.Message, int, error)
	DeleteMessage(ctx context.Context, username string, id int64) error
	SetReaction(ctx context.Context, username string, id int64, reaction string) (bool, error)
}

// UserService encapsulates the public, handle-facing use-cases.
type UserService struct {
	repo      InboxRepository
	publisher mq.Publisher
	logger    *slog.Logger
}

func NewUserService(repo InboxRepository, publisher mq.Publisher, logger *slog.Logger) *UserService {
	if publisher == nil {
		publisher = mq.NopPublisher{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &UserService{repo: repo, publisher: publisher, logger: logger}
}

// Create validates a submitted handle and makes sure its record exists.
func (s *UserService) Create(ctx context.Context, raw string) (types.User, error) {
	username := strings.ToLower(strings.TrimSpace(raw))
	if !usernamePattern.MatchString(username) {
		return types.User{}, ErrInvalidUsername
	}
	return s.repo.EnsureUser(ctx, username)
}

// Open returns the handle's record, creating it on first touch.
func (s *UserService) Open(ctx context.Context, username string) (types.User, error) {
	return s.repo.EnsureUser(ctx, NormalizeUsername(username))
}

// Get returns an existing handle or store.ErrNotFound.
func (s *UserService) Get(ctx context.Context, username string) (types.User, error) {
	return s.repo.GetUser(ctx, NormalizeUsername(username))
}

// Send appends a message when its trimmed text is 1 to MaxMessageLength
// characters long, and announces it on the event publisher.
func (s *UserService) Send(ctx context.Context, username, text string) (types.Message, error) {
	username = NormalizeUsername(username)
	text = trimMessage(text)
	if n := utf8.RuneCountInString(text); n == 0 || n > MaxMessageLength {
		return types.Message{}, ErrInvalidMessage
	}

	msg, err := s.repo.AddMessage(ctx, username, text)
	if err != nil {
		return types.Message{}, fmt.Errorf("add message: %w", err)
	}

	event := mq.MessageReceived{Username: username, MessageID: msg.ID, ReceivedAt: msg.ReceivedAt}
	if err := s.publisher.PublishMessageReceived(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "publish message event failed",
			"username", username, "message_id", msg.ID, "error", err)
	}
	return msg, nil
}

// Message returns a single message plus the inbox size.
func (s *UserService) Message(ctx context.Context, username string, id int64) (types.Message, int, error) {
	return s.repo.GetMessage(ctx, NormalizeUsername(username), id)
}

// React records the owner's reaction as submitted. It reports whether a message was
// actually updated.
func (s *UserService) React(ctx context.Context, username string, id int64, reaction string) (bool, error) {
	return s.repo.SetReaction(ctx, NormalizeUsername(username), id, reaction)
}

// NormalizeUsername lowercases a handle taken from a URL path.
func NormalizeUsername(username string) string {
	return strings.ToLower(username)
}

// trimMessage strips surrounding white space, including the byte order
// mark that browsers treat as blank.
func trimMessage(text string) string {
	return strings.TrimFunc(text, func(r rune) bool {
		return unicode.IsSpace(r) || r == '\ufeff'
	})
}
