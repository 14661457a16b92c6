package syncer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/psds-microservice/repair-desk/internal/model"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// DefaultInterval — период опроса сервиса.
const DefaultInterval = 5 * time.Second

// Source — операции CRUD-сервиса, которыми пользуется синхронизатор (repairclient.Client).
type Source interface {
	List(ctx context.Context) ([]model.Repair, error)
	Create(ctx context.Context, f model.RepairFields) (uint64, error)
	Update(ctx context.Context, id uint64, p model.RepairPatch) (*model.Repair, error)
	Delete(ctx context.Context, id uint64) error
	DeleteAll(ctx context.Context) (int64, error)
}

// Snapshot — локальная копия таблицы на момент последнего успешного опроса.
type Snapshot struct {
	Repairs     []model.Repair
	FetchedAt   time.Time
	Suggestions *Suggestions
}

// Find returns the ticket with the given id from the snapshot.
func (s Snapshot) Find(id uint64) (model.Repair, bool) {
	for _, r := range s.Repairs {
		if r.ID == id {
			return r, true
		}
	}
	return model.Repair{}, false
}

type Options struct {
	Interval time.Duration
	// OnUpdate вызывается после каждой успешной полной замены состояния.
	OnUpdate func(Snapshot)
	// OnError вызывается, когда фоновый опрос или обновление после записи не удались.
	OnError func(op string, err error)
	Log     zerolog.Logger
}

// Syncer mirrors the service's full ticket list into a local snapshot and
// routes local writes to the service. Writes never touch the snapshot
// directly: each one is followed by a fresh fetch.
type Syncer struct {
	src      Source
	interval time.Duration
	onUpdate func(Snapshot)
	onError  func(op string, err error)
	log      zerolog.Logger

	group singleflight.Group

	mu          sync.RWMutex
	snap        Snapshot
	suggestions *Suggestions
	seq         uint64
	applied     uint64
}

func New(src Source, opts Options) *Syncer {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	return &Syncer{
		src:         src,
		interval:    opts.Interval,
		onUpdate:    opts.OnUpdate,
		onError:     opts.OnError,
		log:         opts.Log,
		snap:        Snapshot{Repairs: []model.Repair{}},
		suggestions: NewSuggestions(),
	}
}

// Run fetches once immediately and then on every interval until ctx is done.
func (s *Syncer) Run(ctx context.Context) error {
	_, _ = s.Refresh(ctx)
	t := time.NewTicker(s.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			_, _ = s.Refresh(ctx)
		}
	}
}

// Refresh fetches the full list and replaces local state wholesale. On error
// the previous snapshot stays in place. Concurrent scheduled refreshes share
// one request.
func (s *Syncer) Refresh(ctx context.Context) (Snapshot, error) {
	v, err, _ := s.group.Do("list", func() (interface{}, error) {
		return s.fetch(ctx)
	})
	if err != nil {
		return s.Snapshot(), err
	}
	return v.(Snapshot), nil
}

// forceRefresh starts a new fetch that does not join one already in flight,
// so a write is visible in the result.
func (s *Syncer) forceRefresh(ctx context.Context) (Snapshot, error) {
	s.group.Forget("list")
	return s.Refresh(ctx)
}

func (s *Syncer) fetch(ctx context.Context) (Snapshot, error) {
	s.mu.Lock()
	s.seq++
	seq := s.seq
	s.mu.Unlock()

	repairs, err := s.src.List(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("sync: fetch failed, keeping previous state")
		s.report("refresh", err)
		return Snapshot{}, err
	}

	s.mu.Lock()
	if seq < s.applied {
		// более новый запрос уже применён
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return snap, nil
	}
	s.applied = seq
	s.suggestions = suggestionsFrom(repairs)
	s.snap = Snapshot{Repairs: repairs, FetchedAt: time.Now()}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.log.Debug().Int("repairs", len(repairs)).Msg("sync: state replaced")
	if s.onUpdate != nil {
		s.onUpdate(snap)
	}
	return snap, nil
}

func (s *Syncer) report(op string, err error) {
	if s.onError != nil && !errors.Is(err, context.Canceled) {
		s.onError(op, err)
	}
}

// Snapshot returns a copy of the current local state.
func (s *Syncer) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Syncer) snapshotLocked() Snapshot {
	repairs := make([]model.Repair, len(s.snap.Repairs))
	copy(repairs, s.snap.Repairs)
	return Snapshot{Repairs: repairs, FetchedAt: s.snap.FetchedAt, Suggestions: s.suggestions.Clone()}
}

// Create submits a full field set and re-fetches; the new row appears only
// once that fetch succeeds.
func (s *Syncer) Create(ctx context.Context, f model.RepairFields) (uint64, error) {
	id, err := s.src.Create(ctx, f)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	s.suggestions.AddFields(f)
	s.mu.Unlock()
	s.log.Info().Uint64("id", id).Msg("sync: repair created")
	_, _ = s.forceRefresh(ctx)
	return id, nil
}

// Update applies p to ticket id in one atomic call. Fields left nil in p are
// not touched. The ticket keeps its id; on failure the stored ticket is unchanged.
func (s *Syncer) Update(ctx context.Context, id uint64, p model.RepairPatch) (*model.Repair, error) {
	r, err := s.src.Update(ctx, id, p)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.suggestions.AddFields(r.Fields())
	s.mu.Unlock()
	s.log.Info().Uint64("id", id).Msg("sync: repair updated")
	_, _ = s.forceRefresh(ctx)
	return r, nil
}

// Delete removes one ticket. Confirmation is the caller's job.
func (s *Syncer) Delete(ctx context.Context, id uint64) error {
	if err := s.src.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info().Uint64("id", id).Msg("sync: repair deleted")
	_, _ = s.forceRefresh(ctx)
	return nil
}

// DeleteAll clears the service and resets the suggestion cache to defaults.
func (s *Syncer) DeleteAll(ctx context.Context) (int64, error) {
	n, err := s.src.DeleteAll(ctx)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	s.suggestions.Reset()
	s.mu.Unlock()
	s.log.Info().Int64("deleted", n).Msg("sync: all repairs deleted")
	_, _ = s.forceRefresh(ctx)
	return n, nil
}
