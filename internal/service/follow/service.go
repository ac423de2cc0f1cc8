// Package follow maintains the many-to-many edge between users and
// cached datasets.
package follow

import (
	"context"
	"errors"
	"time"

	"log/slog"

	"github.com/datascout/datascout/internal/domain"
	"github.com/datascout/datascout/internal/repository"
)

var (
	// ErrAlreadyFollowed indicates the edge already exists.
	ErrAlreadyFollowed = errors.New("follow: already followed")
	// ErrNotFollowed indicates no edge exists between user and dataset.
	ErrNotFollowed = errors.New("follow: not followed")
	// ErrDatasetNotFound indicates no cached dataset row exists.
	ErrDatasetNotFound = errors.New("follow: dataset not found")
)

// Service manages follow edges.
type Service struct {
	datasets repository.DatasetRepository
	follows  repository.FollowRepository
	logger   *slog.Logger
}

// New constructs a Service.
func New(datasets repository.DatasetRepository, follows repository.FollowRepository, logger *slog.Logger) Service {
	return Service{datasets: datasets, follows: follows, logger: logger}
}

// Follow records that the user tracks "owner/name", creating a bare
// cache row when the dataset was never viewed. The existence check is
// not atomic with the insert; the unique constraint backstops the race
// and is reported as the same ErrAlreadyFollowed.
func (s Service) Follow(ctx context.Context, userID int64, hfID string) error {
	ds, err := s.datasets.EnsureDataset(ctx, hfID)
	if err != nil {
		return err
	}
	exists, err := s.follows.FollowExists(ctx, userID, ds.ID)
	if err != nil {
		return err
	}
	if exists {
		return ErrAlreadyFollowed
	}
	edge := &domain.Follow{UserID: userID, DatasetID: ds.ID, FollowedAt: time.Now().UTC()}
	if err := s.follows.CreateFollow(ctx, edge); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return ErrAlreadyFollowed
		}
		return err
	}
	s.logger.Info("dataset followed", "user_id", userID, "hf_id", hfID)
	return nil
}

// Unfollow removes the edge between user and "owner/name".
func (s Service) Unfollow(ctx context.Context, userID int64, hfID string) error {
	ds, err := s.datasets.GetDatasetByHFID(ctx, hfID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrDatasetNotFound
		}
		return err
	}
	if err := s.follows.DeleteFollow(ctx, userID, ds.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFollowed
		}
		return err
	}
	s.logger.Info("dataset unfollowed", "user_id", userID, "hf_id", hfID)
	return nil
}

// ListFollows returns every dataset the user currently follows.
func (s Service) ListFollows(ctx context.Context, userID int64) ([]domain.Dataset, error) {
	return s.follows.ListFollowedDatasets(ctx, userID)
}
