package services

import (
	"context"

	"github.com/whisperbox/webapp/types"
)

// CredentialVerifier checks the shared admin secret.
type CredentialVerifier interface {
	Verify(secret string) bool
}

// Overview aggregates the whole store for the admin dashboard.
type Overview struct {
	TotalUsers    int
	TotalMessages int
	Users         []types.User
}

// AdminService encapsulates administrator use-cases. Usernames are used
// exactly as given; they are not normalized.
type AdminService struct {
	repo     InboxRepository
	verifier CredentialVerifier
}

func NewAdminService(repo InboxRepository, verifier CredentialVerifier) *AdminService {
	return &AdminService{repo: repo, verifier: verifier}
}

// Authenticate reports whether secret is the admin secret.
func (s *AdminService) Authenticate(secret string) bool {
	return s.verifier.Verify(secret)
}

func (s *AdminService) Overview(ctx context.Context) (Overview, error) {
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return Overview{}, err
	}
	total := 0
	for _, u := range users {
		total += u.MessageCount()
	}
	return Overview{
		TotalUsers:    len(users),
		TotalMessages: total,
		Users:         users,
	}, nil
}

func (s *AdminService) User(ctx context.Context, username string) (types.User, error) {
	return s.repo.GetUser(ctx, username)
}

func (s *AdminService) DeleteMessage(ctx context.Context, username string, id int64) error {
	return s.repo.DeleteMessage(ctx, username, id)
}

func (s *AdminService) DeleteUser(ctx context.Context, username string) error {
	return s.repo.DeleteUser(ctx, username)
}
