package follow

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/datascout/datascout/internal/domain"
	"github.com/datascout/datascout/internal/repository"
)

type stubDatasetRepository struct {
	byHFID map[string]*domain.Dataset
	nextID int64
}

func newStubDatasetRepository() *stubDatasetRepository {
	return &stubDatasetRepository{byHFID: make(map[string]*domain.Dataset)}
}

func (s *stubDatasetRepository) UpsertDataset(ctx context.Context, dataset *domain.Dataset) error {
	if existing, ok := s.byHFID[dataset.HFID]; ok {
		dataset.ID = existing.ID
	} else {
		s.nextID++
		dataset.ID = s.nextID
	}
	copied := *dataset
	s.byHFID[dataset.HFID] = &copied
	return nil
}

func (s *stubDatasetRepository) EnsureDataset(ctx context.Context, hfID string) (*domain.Dataset, error) {
	if existing, ok := s.byHFID[hfID]; ok {
		return existing, nil
	}
	s.nextID++
	ds := &domain.Dataset{ID: s.nextID, HFID: hfID}
	s.byHFID[hfID] = ds
	return ds, nil
}

func (s *stubDatasetRepository) GetDatasetByHFID(ctx context.Context, hfID string) (*domain.Dataset, error) {
	if existing, ok := s.byHFID[hfID]; ok {
		return existing, nil
	}
	return nil, repository.ErrNotFound
}

type edgeKey struct {
	userID    int64
	datasetID int64
}

type stubFollowRepository struct {
	edges map[edgeKey]time.Time
	// raceOnCreate simulates a concurrent insert winning between the
	// existence check and the write.
	raceOnCreate bool
}

func newStubFollowRepository() *stubFollowRepository {
	return &stubFollowRepository{edges: make(map[edgeKey]time.Time)}
}

func (s *stubFollowRepository) CreateFollow(ctx context.Context, follow *domain.Follow) error {
	key := edgeKey{follow.UserID, follow.DatasetID}
	if s.raceOnCreate {
		return repository.ErrDuplicate
	}
	if _, ok := s.edges[key]; ok {
		return repository.ErrDuplicate
	}
	s.edges[key] = follow.FollowedAt
	return nil
}

func (s *stubFollowRepository) FollowExists(ctx context.Context, userID, datasetID int64) (bool, error) {
	_, ok := s.edges[edgeKey{userID, datasetID}]
	return ok, nil
}

func (s *stubFollowRepository) DeleteFollow(ctx context.Context, userID, datasetID int64) error {
	key := edgeKey{userID, datasetID}
	if _, ok := s.edges[key]; !ok {
		return repository.ErrNotFound
	}
	delete(s.edges, key)
	return nil
}

func (s *stubFollowRepository) ListFollowedDatasets(ctx context.Context, userID int64) ([]domain.Dataset, error) {
	// Not used by these tests directly; the service delegates verbatim.
	return nil, nil
}

func testService(datasets repository.DatasetRepository, follows repository.FollowRepository) Service {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(datasets, follows, log)
}

func TestFollowCreatesBareDatasetRow(t *testing.T) {
	datasets := newStubDatasetRepository()
	follows := newStubFollowRepository()
	svc := testService(datasets, follows)

	if err := svc.Follow(context.Background(), 1, "squad/v2"); err != nil {
		t.Fatalf("Follow returned error: %v", err)
	}
	ds, err := datasets.GetDatasetByHFID(context.Background(), "squad/v2")
	if err != nil {
		t.Fatalf("expected a cache row to exist: %v", err)
	}
	if exists, _ := follows.FollowExists(context.Background(), 1, ds.ID); !exists {
		t.Fatal("expected follow edge to exist")
	}
}

func TestFollowTwiceIsConflict(t *testing.T) {
	svc := testService(newStubDatasetRepository(), newStubFollowRepository())

	if err := svc.Follow(context.Background(), 1, "squad/v2"); err != nil {
		t.Fatalf("first follow failed: %v", err)
	}
	if err := svc.Follow(context.Background(), 1, "squad/v2"); !errors.Is(err, ErrAlreadyFollowed) {
		t.Fatalf("expected ErrAlreadyFollowed, got %v", err)
	}
}

func TestFollowRaceTranslatesToAlreadyFollowed(t *testing.T) {
	follows := newStubFollowRepository()
	follows.raceOnCreate = true
	svc := testService(newStubDatasetRepository(), follows)

	if err := svc.Follow(context.Background(), 1, "squad/v2"); !errors.Is(err, ErrAlreadyFollowed) {
		t.Fatalf("expected constraint violation to surface as ErrAlreadyFollowed, got %v", err)
	}
}

func TestUnfollowUnknownDataset(t *testing.T) {
	svc := testService(newStubDatasetRepository(), newStubFollowRepository())

	if err := svc.Unfollow(context.Background(), 1, "never/viewed"); !errors.Is(err, ErrDatasetNotFound) {
		t.Fatalf("expected ErrDatasetNotFound, got %v", err)
	}
}

func TestUnfollowWithoutEdge(t *testing.T) {
	datasets := newStubDatasetRepository()
	svc := testService(datasets, newStubFollowRepository())

	if _, err := datasets.EnsureDataset(context.Background(), "squad/v2"); err != nil {
		t.Fatalf("ensure dataset: %v", err)
	}
	if err := svc.Unfollow(context.Background(), 1, "squad/v2"); !errors.Is(err, ErrNotFollowed) {
		t.Fatalf("expected ErrNotFollowed, got %v", err)
	}
}

func TestFollowThenUnfollow(t *testing.T) {
	svc := testService(newStubDatasetRepository(), newStubFollowRepository())

	if err := svc.Follow(context.Background(), 1, "squad/v2"); err != nil {
		t.Fatalf("follow failed: %v", err)
	}
	if err := svc.Unfollow(context.Background(), 1, "squad/v2"); err != nil {
		t.Fatalf("unfollow failed: %v", err)
	}
	if err := svc.Unfollow(context.Background(), 1, "squad/v2"); !errors.Is(err, ErrNotFollowed) {
		t.Fatalf("expected second unfollow to fail with ErrNotFollowed, got %v", err)
	}
}
