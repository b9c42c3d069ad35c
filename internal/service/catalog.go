package service

import (
	"context"
	"log/slog"

	"github.com/mmcdole/appshelf/internal/domain"
)

// CatalogService joins metadata, popularity stats and local package state
// into one ordered listing, and forwards package operations to the store daemon.
type CatalogService struct {
	stats    domain.StatRepository
	metadata domain.MetadataRepository
	native   domain.NativeBridge // nil when running without a store daemon
	logger   *slog.Logger
}

// NewCatalogService creates a catalog service. native may be nil.
func NewCatalogService(
	stats domain.StatRepository,
	metadata domain.MetadataRepository,
	native domain.NativeBridge,
	logger *slog.Logger,
) *CatalogService {
	if logger == nil {
		logger = slog.Default()
	}
	return &CatalogService{
		stats:    stats,
		metadata: metadata,
		native:   native,
		logger:   logger,
	}
}

// Native reports whether package operations are available
func (s *CatalogService) Native() bool {
	return s.native != nil
}

// List returns the entries selected by filter. The result always follows the
// final narrowed name order. Any collaborator failure aborts the call.
func (s *CatalogService) List(ctx context.Context, filter domain.QueryFilter) ([]domain.Software, error) {
	names := UniqueNames(filter.Names)
	filter.Names = names

	var stats map[string]domain.Stat
	if filter.FilterStat {
		result, err := s.stats.QueryStats(ctx, filter)
		if err != nil {
			s.logger.Warn("stat query failed", "error", err)
			return nil, err
		}
		if len(result) == 0 {
			s.logger.Debug("stat query empty, skipping metadata")
			return []domain.Software{}, nil
		}

		var order []string
		stats, order = IndexStats(result)
		if len(names) > 0 {
			names = NarrowNames(names, func(name string) bool {
				_, ok := stats[name]
				return ok
			})
		} else {
			names = order
		}
	}

	if len(names) == 0 {
		return []domain.Software{}, nil
	}

	items, err := s.metadata.GetSoftwares(ctx, names)
	if err != nil {
		s.logger.Warn("metadata query failed", "error", err, "count", len(names))
		return nil, err
	}

	index := make(map[string]domain.Software, len(items))
	for name, sw := range IndexSoftwares(items) {
		index[name] = WithStat(sw, stats)
	}

	if s.native != nil {
		entries := OrderByNames(names, index)
		if len(entries) == 0 {
			return []domain.Software{}, nil
		}

		pkgs, err := s.native.QueryPackages(ctx, ToQueries(entries))
		if err != nil {
			s.logger.Warn("package query failed", "error", err)
			return nil, err
		}
		for name, sw := range index {
			index[name] = WithPackage(sw, pkgs)
		}
		if filter.FilterPackage {
			names = NarrowNames(names, func(name string) bool {
				_, ok := pkgs[name]
				return ok
			})
		}
	}

	result := OrderByNames(names, index)
	s.logger.Debug("catalog listed", "count", len(result))
	return result, nil
}

// Get returns a single entry by name, without stat or package filtering
func (s *CatalogService) Get(ctx context.Context, name string) (domain.Software, error) {
	filter := domain.DefaultFilter()
	filter.Names = []string{name}
	filter.FilterStat = false
	filter.FilterPackage = false

	items, err := s.List(ctx, filter)
	if err != nil {
		return domain.Software{}, err
	}
	if len(items) == 0 {
		return domain.Software{}, domain.ErrSoftwareNotFound
	}
	return items[0], nil
}

// Size returns the download size of an entry in bytes
func (s *CatalogService) Size(ctx context.Context, sw domain.Software) (int64, error) {
	if s.native == nil {
		return 0, domain.ErrNativeUnavailable
	}
	size, err := s.native.DownloadSize(ctx, ToQuery(sw))
	if err != nil {
		return 0, &domain.OpError{Op: "size", Names: []string{sw.Name}, Err: err}
	}
	return size, nil
}

// Open launches an installed entry
func (s *CatalogService) Open(ctx context.Context, sw domain.Software) error {
	if s.native == nil {
		return domain.ErrNativeUnavailable
	}
	s.logger.Info("opening app", "name", sw.Name)
	if err := s.native.Open(ctx, ToQuery(sw)); err != nil {
		return &domain.OpError{Op: "open", Names: []string{sw.Name}, Err: err}
	}
	return nil
}

// Install queues installation of the entries
func (s *CatalogService) Install(ctx context.Context, items ...domain.Software) error {
	if s.native == nil {
		return domain.ErrNativeUnavailable
	}
	if len(items) == 0 {
		return nil
	}
	s.logger.Info("installing apps", "names", entryNames(items))
	if err := s.native.Install(ctx, ToQueries(items)...); err != nil {
		return &domain.OpError{Op: "install", Names: entryNames(items), Err: err}
	}
	return nil
}

// Remove queues removal of the entries
func (s *CatalogService) Remove(ctx context.Context, items ...domain.Software) error {
	if s.native == nil {
		return domain.ErrNativeUnavailable
	}
	if len(items) == 0 {
		return nil
	}
	s.logger.Info("removing apps", "names", entryNames(items))
	if err := s.native.Remove(ctx, ToQueries(items)...); err != nil {
		return &domain.OpError{Op: "remove", Names: entryNames(items), Err: err}
	}
	return nil
}
