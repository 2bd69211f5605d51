// package tasks implements windowed playlist synchronization against the
// recently-saved library feed.
//
// The core abstraction is Syncer, which resolves segments and runs one full
// reconciliation per managed playlist. Operations emit progress updates via
// channels for non-blocking status reporting to the CLI layer.
package tasks

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/recents/internal/services"
	"github.com/desertthunder/recents/internal/shared"
	"github.com/desertthunder/recents/internal/store"
	"golang.org/x/time/rate"
)

// pageLimit is the page size for reads and the id cap for batched writes.
const pageLimit = services.MaxPageLimit

// Segment binds one managed playlist to a window of the recently-saved feed:
// tracks [Index*WindowSize, (Index+1)*WindowSize), most recently saved first.
type Segment struct {
	Name       string
	ID         string
	Index      int
	WindowSize int
}

// SyncResult reports what one segment reconciliation did.
type SyncResult struct {
	SegmentName       string `json:"segment_name"`
	Added             int    `json:"added"`
	Removed           int    `json:"removed"`
	DuplicatesRemoved int    `json:"duplicates_removed"`
	Moved             int    `json:"moved"`
	Converged         bool   `json:"converged"`
}

// RunResult aggregates a full run across all segments.
type RunResult struct {
	Status  string       `json:"status"`
	Message string       `json:"message"`
	Results []SyncResult `json:"results"`
}

// SyncerOpts contains dependencies and configuration for a Syncer.
type SyncerOpts struct {
	Service     services.Library
	Store       store.Store
	Logger      *log.Logger
	Names       []string // ordered managed playlist names
	WindowSize  int      // tracks per playlist (default 200)
	Public      bool     // visibility for playlists created on first run
	SegmentsKey string   // store key for the persisted name/id mapping
	RateLimit   float64  // remote requests per second (default 5)
}

// Syncer runs full, stateless reconciliations of managed playlists against
// the recently-saved feed. Each run recomputes target and current sequences
// from scratch, so a run is idempotent and safe to re-run after any partial
// failure.
type Syncer struct {
	svc         services.Library
	store       store.Store
	logger      *log.Logger
	limiter     *rate.Limiter
	names       []string
	windowSize  int
	public      bool
	segmentsKey string
}

// NewSyncer creates a Syncer with the provided options.
func NewSyncer(opts SyncerOpts) *Syncer {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.WindowSize <= 0 {
		opts.WindowSize = 200
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5.0
	}
	if opts.SegmentsKey == "" {
		opts.SegmentsKey = "recents-segments"
	}

	return &Syncer{
		svc:         opts.Service,
		store:       opts.Store,
		logger:      opts.Logger,
		limiter:     rate.NewLimiter(rate.Limit(opts.RateLimit), 1),
		names:       opts.Names,
		windowSize:  opts.WindowSize,
		public:      opts.Public,
		segmentsKey: opts.SegmentsKey,
	}
}

// Run resolves segments and reconciles each one sequentially.
//
// Processing stops at the first failing segment; the returned RunResult
// carries the results of segments completed before the failure, so callers
// can still record partial history.
func (s *Syncer) Run(ctx context.Context, progress chan<- ProgressUpdate) (*RunResult, error) {
	if s.svc == nil {
		return nil, fmt.Errorf("%w: library service not initialized", shared.ErrServiceUnavailable)
	}

	result := &RunResult{}

	segments, err := s.ResolveSegments(ctx, progress)
	if err != nil {
		result.Status = "error"
		result.Message = err.Error()
		return result, err
	}

	for _, seg := range segments {
		s.logger.Info("syncing playlist", "name", seg.Name, "window", seg.Index)

		res, err := s.SyncSegment(ctx, seg, progress)
		if err != nil {
			result.Status = "error"
			result.Message = fmt.Sprintf("playlist %s: %v", seg.Name, err)
			return result, fmt.Errorf("playlist %s: %w", seg.Name, err)
		}

		result.Results = append(result.Results, res)
		s.logger.Info("playlist synced",
			"name", seg.Name,
			"added", res.Added,
			"removed", res.Removed,
			"duplicates", res.DuplicatesRemoved,
			"moved", res.Moved,
		)
	}

	result.Status = "success"
	result.Message = "SUCCESS: all recently added playlists synced"
	return result, nil
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (s *Syncer) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
		// Sent successfully
	default:
		// Channel full or closed, skip this update
	}
}

// wait paces remote calls through the shared limiter.
func (s *Syncer) wait(ctx context.Context) error {
	return s.limiter.Wait(ctx)
}
