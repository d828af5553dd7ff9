package services

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"vehiclefinder/internal/config"
	"vehiclefinder/internal/domain/entities"
	"vehiclefinder/internal/geo"
	"vehiclefinder/internal/logger"
	"vehiclefinder/internal/metrics"
	"vehiclefinder/internal/repository"
	"vehiclefinder/internal/repository/memory"
	"vehiclefinder/pkg/utils"
)

const reloadLockKey = "index:reload"

var (
	ErrReloadInProgress = errors.New("index reload already in progress")
	ErrBatchTooLarge    = errors.New("too many coordinates in batch")
)

// NearestResult is the answer to one nearest-vehicle query. Vehicle is nil
// when no vehicle was found.
type NearestResult struct {
	Query      entities.Location         `json:"query"`
	Found      bool                      `json:"found"`
	Vehicle    *entities.VehiclePosition `json:"vehicle,omitempty"`
	Distance   float64                   `json:"distance"`
	DistanceKm float64                   `json:"distance_km"`
	Geohash    string                    `json:"geohash,omitempty"`
	Cached     bool                      `json:"cached"`
}

// LoadReport describes one completed load-build-publish cycle.
type LoadReport struct {
	LoadID     string         `json:"load_id"`
	Source     string         `json:"source"`
	Read       int            `json:"read"`
	Stats      geo.BuildStats `json:"stats"`
	Generation uint64         `json:"generation"`
	Duration   time.Duration  `json:"duration"`
}

// IndexStats is a point-in-time view of the published index. Every field
// except Reloading describes the same build.
type IndexStats struct {
	Generation uint64         `json:"generation"`
	Domain     geo.Rect       `json:"domain"`
	Build      geo.BuildStats `json:"build"`
	Tree       geo.TreeStats  `json:"tree"`
	Positions  int            `json:"positions"`
	Reloading  bool           `json:"reloading"`
}

// IndexService loads vehicle positions, publishes them as a quadtree and
// answers nearest-vehicle queries against the published tree.
type IndexService struct {
	config       *config.Config
	spatialIndex *geo.SpatialIndex
	positionRepo repository.PositionRepository
	lockManager  *memory.LockManager
	cache        repository.ResultCache
}

// NewIndexService wires the service. cache may be nil to disable caching.
func NewIndexService(
	cfg *config.Config,
	spatialIndex *geo.SpatialIndex,
	positionRepo repository.PositionRepository,
	lockManager *memory.LockManager,
	cache repository.ResultCache,
) *IndexService {
	return &IndexService{
		config:       cfg,
		spatialIndex: spatialIndex,
		positionRepo: positionRepo,
		lockManager:  lockManager,
		cache:        cache,
	}
}

// Load reads every position from source, stores them and publishes a new
// index built from them. Queries keep using the previous index until the new
// one is published. Only one Load runs at a time; a concurrent call fails
// with ErrReloadInProgress.
//
// The source read is bounded by Index.ReloadTimeout. The reload lock is held
// for twice that, so it cannot expire while the build after a slow read is
// still running.
func (s *IndexService) Load(ctx context.Context, source repository.PositionSource) (*LoadReport, error) {
	timeout := s.config.Index.ReloadTimeout
	acquired, err := s.lockManager.AcquireLock(ctx, reloadLockKey, 2*timeout)
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, ErrReloadInProgress
	}
	defer s.lockManager.ReleaseLock(ctx, reloadLockKey)

	loadCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	report := &LoadReport{LoadID: utils.ShortID(), Source: source.Describe()}
	log := logger.L().WithFields(logrus.Fields{"load_id": report.LoadID, "source": report.Source})
	log.Info("[INDEX] loading vehicle positions")

	start := time.Now()
	positions, err := source.Load(loadCtx)
	if err == nil {
		err = loadCtx.Err()
	}
	if err != nil {
		log.WithError(err).Error("[INDEX] load failed")
		return nil, err
	}
	report.Read = len(positions)

	snap := s.spatialIndex.Rebuild(positions)
	if err := s.positionRepo.Replace(ctx, positions); err != nil {
		return nil, err
	}
	report.Stats, report.Generation = snap.Stats, snap.Generation
	report.Duration = time.Since(start)

	metrics.IndexedPositions.Set(float64(report.Stats.Inserted))
	metrics.DroppedPositionsTotal.Add(float64(report.Stats.Dropped))
	metrics.IndexGeneration.Set(float64(report.Generation))
	metrics.IndexBuildDurationMs.Observe(float64(report.Duration.Milliseconds()))

	fields := logrus.Fields{
		"read":       report.Read,
		"indexed":    report.Stats.Inserted,
		"generation": report.Generation,
		"duration":   report.Duration.String(),
	}
	if report.Stats.Dropped > 0 {
		log.WithFields(fields).WithField("dropped", report.Stats.Dropped).
			Warn("[INDEX] some positions fall outside the index domain and were not indexed")
	} else {
		log.WithFields(fields).Info("[INDEX] index published")
	}
	return report, nil
}

// FindNearest answers one query. It returns (nil, nil) when no vehicle is
// found; that is a normal outcome, not an error.
func (s *IndexService) FindNearest(ctx context.Context, lat, lon float64) (*NearestResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.findNearest(ctx, s.spatialIndex.Snapshot(), lat, lon), nil
}

// findNearest answers from snap alone. Cached answers are resolved against
// the same snapshot, so a hit always returns the record the tree search
// would return.
func (s *IndexService) findNearest(ctx context.Context, snap *geo.Snapshot, lat, lon float64) *NearestResult {
	start := time.Now()
	defer func() {
		metrics.QueryDurationUs.Observe(float64(time.Since(start).Microseconds()))
	}()

	query := entities.NewLocation(lat, lon)

	if s.cache != nil {
		if result := s.fromCache(ctx, snap, query); result != nil {
			metrics.QueriesTotal.WithLabelValues(metrics.OutcomeCached).Inc()
			return result
		}
	}

	vehicle, distance := snap.FindNearest(lat, lon)
	if vehicle == nil {
		metrics.QueriesTotal.WithLabelValues(metrics.OutcomeNotFound).Inc()
		return nil
	}
	metrics.QueriesTotal.WithLabelValues(metrics.OutcomeFound).Inc()

	if s.cache != nil {
		if ordinal, ok := snap.Ordinal(vehicle); ok {
			if err := s.cache.Set(ctx, snap.Generation, lat, lon, ordinal, s.config.Cache.TTL); err != nil {
				logger.L().WithError(err).Warn("[CACHE] set failed")
			}
		}
	}
	return s.newResult(query, vehicle, distance)
}

func (s *IndexService) fromCache(ctx context.Context, snap *geo.Snapshot, query entities.Location) *NearestResult {
	ordinal, ok, err := s.cache.Get(ctx, snap.Generation, query.Latitude, query.Longitude)
	if err != nil {
		logger.L().WithError(err).Warn("[CACHE] get failed")
		return nil
	}
	if !ok {
		metrics.CacheMissesTotal.Inc()
		return nil
	}

	vehicle := snap.At(ordinal)
	if vehicle == nil {
		metrics.CacheMissesTotal.Inc()
		return nil
	}
	metrics.CacheHitsTotal.Inc()

	x, y := query.XY()
	vx, vy := vehicle.XY()
	result := s.newResult(query, vehicle, geo.EuclideanDistance(x, y, vx, vy))
	result.Cached = true
	return result
}

func (s *IndexService) newResult(query entities.Location, vehicle *entities.VehiclePosition, distance float64) *NearestResult {
	return &NearestResult{
		Query:      query,
		Found:      true,
		Vehicle:    vehicle,
		Distance:   distance,
		DistanceKm: utils.RoundTo(utils.HaversineDistance(query.Latitude, query.Longitude, vehicle.Latitude, vehicle.Longitude), 3),
		Geohash:    geo.Encode(vehicle.Latitude, vehicle.Longitude, s.config.Index.GeohashPrecision),
	}
}

// FindNearestBatch answers every query against the same published index.
// Results are returned in input order; queries with no answer have
// Found=false.
//
// Go Learning Note: Bounded Fan-Out With errgroup:
// errgroup.Group runs each g.Go func in its own goroutine and g.Wait returns
// the first error. SetLimit caps how many run at once, so a large batch uses
// at most Query.Workers goroutines. Each goroutine writes only results[i],
// its own slot, which is why no mutex is needed and input order is kept.
func (s *IndexService) FindNearestBatch(ctx context.Context, queries []entities.Location) ([]NearestResult, error) {
	if limit := s.config.Query.MaxBatchSize; limit > 0 && len(queries) > limit {
		return nil, ErrBatchTooLarge
	}

	snap := s.spatialIndex.Snapshot()
	results := make([]NearestResult, len(queries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.Query.Workers)

	for i, q := range queries {
		i, q := i, q
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			result := s.findNearest(gctx, snap, q.Latitude, q.Longitude)
			if result == nil {
				results[i] = NearestResult{Query: q}
				return nil
			}
			results[i] = *result
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// GetPosition returns a loaded position by vehicle id. When a load repeats an
// id, the last record wins.
func (s *IndexService) GetPosition(ctx context.Context, vehicleID int) (*entities.VehiclePosition, error) {
	return s.positionRepo.GetByID(ctx, vehicleID)
}

// Stats walks the published tree and reports its shape.
func (s *IndexService) Stats(ctx context.Context) IndexStats {
	snap := s.spatialIndex.Snapshot()
	reloading, _ := s.lockManager.IsLocked(ctx, reloadLockKey)
	return IndexStats{
		Generation: snap.Generation,
		Domain:     s.spatialIndex.Domain(),
		Build:      snap.Stats,
		Tree:       snap.Root.Stats(),
		Positions:  len(snap.Positions),
		Reloading:  reloading,
	}
}
