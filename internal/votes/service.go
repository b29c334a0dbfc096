package votes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/emilythestrangee/social-media/backend/internal/cache"
	"github.com/emilythestrangee/social-media/backend/internal/models"
)

// Result reports what Apply did. Vote is nil when the vote was retracted.
type Result struct {
	Action Action
	Vote   *models.Vote
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

// Apply toggles the user's vote on a post:
//   - no vote: insert it
//   - same value: delete it
//   - other value: update the existing row in place
//
// The lookup and the write run in one transaction with the row locked, so two
// rapid clicks by the same user serialize instead of racing.
func (s *Service) Apply(ctx context.Context, postID int64, userID string, desired Value) (*Result, error) {
	if userID == "" {
		return nil, ErrNotAuthenticated
	}
	if !desired.Valid() {
		return nil, ErrInvalidValue
	}
	if postID <= 0 {
		return nil, ErrInvalidPost
	}

	var result Result
	err := s.repo.WithinTx(ctx, func(tx Tx) error {
		existing, err := tx.FindForUpdate(ctx, postID, userID)
		switch {
		case errors.Is(err, ErrVoteNotFound):
			vote := &models.Vote{PostID: postID, UserID: userID, Value: int(desired)}
			inserted, err := tx.Insert(ctx, vote)
			if err != nil {
				return err
			}
			if inserted {
				result = Result{Action: ActionInsert, Vote: vote}
				return nil
			}
			// A concurrent request inserted first; toggle against its row.
			existing, err = tx.FindForUpdate(ctx, postID, userID)
			if err != nil {
				return fmt.Errorf("reload vote after conflict: %w", err)
			}
		case err != nil:
			return err
		}

		switch action := Decide(existing, desired); action {
		case ActionRetract:
			if err := tx.Delete(ctx, existing.ID); err != nil {
				return err
			}
			result = Result{Action: action}
		default:
			if err := tx.UpdateValue(ctx, existing.ID, desired); err != nil {
				return err
			}
			existing.Value = int(desired)
			result = Result{Action: ActionUpdate, Vote: existing}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("apply vote: %w", err)
	}

	s.logger.Debug("vote applied", "post", postID, "user", userID, "action", result.Action.String())

	keys := []cache.Key{cache.VotesKey{PostID: postID}, cache.PostKey{PostID: postID}, cache.PostsKey{}}
	// Community pages show like counts too.
	communityID, err := s.repo.PostCommunity(ctx, postID)
	switch {
	case err != nil:
		s.logger.Warn("failed to look up post community", "post", postID, "error", err)
	case communityID != nil:
		keys = append(keys, cache.CommunityPostsKey{CommunityID: *communityID})
	}
	if err := s.cache.Invalidate(ctx, keys...); err != nil {
		s.logger.Warn("failed to invalidate vote cache", "post", postID, "error", err)
	}
	return &result, nil
}

// Votes returns the vote rows of a post through the cache.
func (s *Service) Votes(ctx context.Context, postID int64) ([]models.Vote, error) {
	return cache.Fetch(ctx, s.cache, cache.VotesKey{PostID: postID}, func(ctx context.Context) ([]models.Vote, error) {
		return s.repo.ListByPost(ctx, postID)
	})
}

// Tally derives likes, dislikes and viewerID's own vote for a post.
func (s *Service) Tally(ctx context.Context, postID int64, viewerID string) (Tally, error) {
	rows, err := s.Votes(ctx, postID)
	if err != nil {
		return Tally{}, fmt.Errorf("fetch votes: %w", err)
	}
	return Count(rows, viewerID), nil
}
