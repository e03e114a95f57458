package playerprofile

import (
	"context"
	"errors"
	"strings"
)

var ErrInvalidPlayerID = errors.New("player id is required")

// Service defines the business logic for player profiles.
type Service interface {
	GetProfile(ctx context.Context, playerID string) (*Profile, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) GetProfile(ctx context.Context, playerID string) (*Profile, error) {
	playerID = strings.TrimSpace(playerID)
	if playerID == "" {
		return nil, ErrInvalidPlayerID
	}
	return s.repo.GetProfile(ctx, playerID)
}
