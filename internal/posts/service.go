package posts

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/emilythestrangee/social-media/backend/internal/cache"
	"github.com/emilythestrangee/social-media/backend/internal/models"
	"github.com/emilythestrangee/social-media/backend/internal/storage"
)

// Input is the text part of a new post.
type Input struct {
	Title       string
	Content     string
	CommunityID *int64
	// Author is the signed-in user, or nil.
	Author *models.User
}

// Image is the uploaded file of a new post.
type Image struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

type Service struct {
	repo   Repository
	bucket storage.Bucket
	cache  *cache.Cache
	logger *slog.Logger
	now    func() time.Time
}

func NewService(repo Repository, bucket storage.Bucket, c *cache.Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, bucket: bucket, cache: c, logger: logger, now: time.Now}
}

// ObjectKey names the uploaded image: "<title>-<unix millis>-<original filename>".
func ObjectKey(title string, at time.Time, filename string) string {
	return fmt.Sprintf("%s-%d-%s", title, at.UnixMilli(), filename)
}

func validate(in Input, img *Image) error {
	if img == nil || img.Body == nil {
		return ErrImageRequired
	}
	if strings.TrimSpace(in.Title) == "" {
		return ErrTitleRequired
	}
	if strings.TrimSpace(in.Content) == "" {
		return ErrContentRequired
	}
	if !strings.HasPrefix(img.ContentType, "image/") {
		return ErrUnsupportedImage
	}
	return nil
}

// Create uploads the image, then inserts the post row pointing at its public URL.
// Nothing is written when validation fails, and no row is inserted when the
// upload fails. If the insert fails the uploaded image is removed again.
func (s *Service) Create(ctx context.Context, in Input, img *Image) (*models.Post, error) {
	if err := validate(in, img); err != nil {
		return nil, err
	}

	key := ObjectKey(in.Title, s.now(), img.Filename)
	if err := s.bucket.Upload(ctx, key, img.Body, img.ContentType); err != nil {
		return nil, fmt.Errorf("upload image: %w", err)
	}

	post := &models.Post{
		Title:       in.Title,
		Content:     in.Content,
		ImageURL:    s.bucket.PublicURL(key),
		CommunityID: in.CommunityID,
	}
	if in.Author != nil {
		post.AuthorID = &in.Author.ID
		if in.Author.AvatarURL != "" {
			avatar := in.Author.AvatarURL
			post.AvatarURL = &avatar
		}
	}

	if err := s.repo.Create(ctx, post); err != nil {
		if rmErr := s.bucket.Remove(context.WithoutCancel(ctx), key); rmErr != nil {
			s.logger.Error("failed to remove image after post insert failed",
				"key", key, "error", rmErr)
		}
		return nil, fmt.Errorf("insert post: %w", err)
	}

	s.logger.Info("post created", "id", post.ID, "image", key)

	keys := []cache.Key{cache.PostsKey{}}
	if post.CommunityID != nil {
		keys = append(keys, cache.CommunityPostsKey{CommunityID: *post.CommunityID})
	}
	if err := s.cache.Invalidate(ctx, keys...); err != nil {
		s.logger.Warn("failed to invalidate post cache", "error", err)
	}
	return post, nil
}

func (s *Service) List(ctx context.Context) ([]models.PostWithCounts, error) {
	return cache.Fetch(ctx, s.cache, cache.PostsKey{}, s.repo.ListWithCounts)
}

func (s *Service) Get(ctx context.Context, id int64) (*models.PostWithCounts, error) {
	if id <= 0 {
		return nil, ErrPostNotFound
	}
	return cache.Fetch(ctx, s.cache, cache.PostKey{PostID: id}, func(ctx context.Context) (*models.PostWithCounts, error) {
		return s.repo.GetWithCounts(ctx, id)
	})
}

func (s *Service) ListByCommunity(ctx context.Context, communityID int64) ([]models.PostWithCounts, error) {
	return cache.Fetch(ctx, s.cache, cache.CommunityPostsKey{CommunityID: communityID}, func(ctx context.Context) ([]models.PostWithCounts, error) {
		return s.repo.ListByCommunity(ctx, communityID)
	})
}
