package communities

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/emilythestrangee/social-media/backend/internal/cache"
	"github.com/emilythestrangee/social-media/backend/internal/models"
)

var (
	ErrNameRequired      = errors.New("community name is required")
	ErrCommunityExists   = errors.New("a community with that name already exists")
	ErrCommunityNotFound = errors.New("community not found")
)

type Repository interface {
	// Create returns ErrCommunityExists when the name is taken.
	Create(ctx context.Context, c *models.Community) error
	// List returns communities newest first.
	List(ctx context.Context) ([]models.Community, error)
	// Get returns ErrCommunityNotFound for an unknown id.
	Get(ctx context.Context, id int64) (*models.Community, error)
}

type Service struct {
	repo   Repository
	cache  *cache.Cache
	logger *slog.Logger
}

func NewService(repo Repository, c *cache.Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, cache: c, logger: logger}
}

func (s *Service) Create(ctx context.Context, name, description string) (*models.Community, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNameRequired
	}

	community := &models.Community{Name: name, Description: strings.TrimSpace(description)}
	if err := s.repo.Create(ctx, community); err != nil {
		return nil, fmt.Errorf("create community: %w", err)
	}
	s.logger.Info("community created", "id", community.ID, "name", community.Name)

	if err := s.cache.Invalidate(ctx, cache.CommunitiesKey{}); err != nil {
		s.logger.Warn("failed to invalidate community cache", "error", err)
	}
	return community, nil
}

func (s *Service) List(ctx context.Context) ([]models.Community, error) {
	return cache.Fetch(ctx, s.cache, cache.CommunitiesKey{}, s.repo.List)
}

func (s *Service) Get(ctx context.Context, id int64) (*models.Community, error) {
	if id <= 0 {
		return nil, ErrCommunityNotFound
	}
	return s.repo.Get(ctx, id)
}
