// Package dataset implements catalog browsing and the upsert-on-read
// metadata cache in front of the external registry.
package dataset

import (
	"context"
	"errors"

	"log/slog"

	"github.com/datascout/datascout/internal/domain"
	"github.com/datascout/datascout/internal/registry"
	"github.com/datascout/datascout/internal/repository"
)

// ErrNotFound indicates the registry has no such dataset.
var ErrNotFound = errors.New("dataset: not found")

// Registry abstracts the external dataset registry.
type Registry interface {
	ListDatasets(ctx context.Context, search string, limit int) ([]registry.DatasetInfo, error)
	GetDataset(ctx context.Context, hfID string) (*registry.DatasetInfo, error)
}

// Service serves catalog reads.
type Service struct {
	datasets repository.DatasetRepository
	registry Registry
	logger   *slog.Logger
}

// New constructs a Service.
func New(datasets repository.DatasetRepository, reg Registry, logger *slog.Logger) Service {
	return Service{datasets: datasets, registry: reg, logger: logger}
}

// Browse proxies a registry listing without touching the cache.
func (s Service) Browse(ctx context.Context, search string) ([]domain.Dataset, error) {
	infos, err := s.registry.ListDatasets(ctx, search, 0)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Dataset, 0, len(infos))
	for _, info := range infos {
		out = append(out, domain.Dataset{
			HFID:          info.ID,
			Description:   info.Description,
			DownloadCount: info.Downloads,
		})
	}
	return out, nil
}

// GetOrRefresh fetches "owner/name" from the registry and overwrites the
// local cache row with the fresh metadata, creating it when absent.
// Every call refetches; there is no staleness window.
func (s Service) GetOrRefresh(ctx context.Context, owner, name string) (*domain.Dataset, error) {
	hfID := owner + "/" + name
	info, err := s.registry.GetDataset(ctx, hfID)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	impact := ComputeImpact(info.Size(), info.Samples())
	ds := &domain.Dataset{
		HFID:          hfID,
		Description:   info.Description,
		SizeBytes:     info.Size(),
		NumSamples:    info.Samples(),
		DownloadCount: info.Downloads,
		ImpactScore:   &impact,
		LastUpdated:   info.LastModified,
	}
	if err := s.datasets.UpsertDataset(ctx, ds); err != nil {
		return nil, err
	}
	s.logger.Info("dataset cache refreshed", "hf_id", hfID, "impact", impact)
	return ds, nil
}
