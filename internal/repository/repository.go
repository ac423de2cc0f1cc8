package repository

import (
	"context"

	"github.com/datascout/datascout/internal/domain"
)

// UserRepository persists users.
type UserRepository interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	GetUserByID(ctx context.Context, id int64) (*domain.User, error)
}

// DatasetRepository stores cached dataset metadata.
type DatasetRepository interface {
	UpsertDataset(ctx context.Context, dataset *domain.Dataset) error
	EnsureDataset(ctx context.Context, hfID string) (*domain.Dataset, error)
	GetDatasetByHFID(ctx context.Context, hfID string) (*domain.Dataset, error)
}

// FollowRepository manages user→dataset follow edges.
type FollowRepository interface {
	CreateFollow(ctx context.Context, follow *domain.Follow) error
	FollowExists(ctx context.Context, userID, datasetID int64) (bool, error)
	DeleteFollow(ctx context.Context, userID, datasetID int64) error
	ListFollowedDatasets(ctx context.Context, userID int64) ([]domain.Dataset, error)
}
