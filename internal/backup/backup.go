package backup

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/moneymngr/moneymngr/internal/actionlog"
	"github.com/moneymngr/moneymngr/internal/store"
)

// LatestKey is the object holding the most recent push.
const LatestKey = "backup/latest.json"

// RemoteSyncError wraps a failure talking to the remote store.
type RemoteSyncError struct {
	Op  string
	Err error
}

func (e *RemoteSyncError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RemoteSyncError) Unwrap() error { return e.Err }

// SyncState is the coarse state of the backup service.
type SyncState string

const (
	StateIdle    SyncState = "idle"
	StateSyncing SyncState = "syncing"
	StateError   SyncState = "error"
)

// Status is a snapshot of the service state.
type Status struct {
	State        SyncState `json:"status"`
	LastSyncedAt time.Time `json:"lastSyncedAt,omitempty"`
	Error        string    `json:"error,omitempty"`
}

// Service pushes and restores the ledger. Call Init before use and
// Dispose when done; with a non-zero interval Init also starts periodic
// pushes.
type Service struct {
	store    *store.Store
	objects  ObjectStore
	actions  *actionlog.Service
	log      zerolog.Logger
	interval time.Duration

	mu     sync.Mutex
	status Status
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewService wires a backup service.
func NewService(s *store.Store, objects ObjectStore, actions *actionlog.Service, log zerolog.Logger, interval time.Duration) *Service {
	return &Service{
		store:    s,
		objects:  objects,
		actions:  actions,
		log:      log,
		interval: interval,
		status:   Status{State: StateIdle},
	}
}

// Init resets the status and starts the periodic push loop if configured.
func (s *Service) Init(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	s.status = Status{State: StateIdle}
	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	if s.interval <= 0 {
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-loopCtx.Done():
				return
			case <-ticker.C:
				if _, err := s.Push(loopCtx); err != nil && loopCtx.Err() == nil {
					s.log.Warn().Err(err).Msg("periodic backup failed")
				}
			}
		}
	}()
}

// Dispose stops the push loop and waits for it to exit.
func (s *Service) Dispose() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
}

// Status returns the current sync status.
func (s *Service) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Service) begin() {
	s.mu.Lock()
	s.status.State = StateSyncing
	s.status.Error = ""
	s.mu.Unlock()
}

func (s *Service) finish(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.status.State = StateError
		s.status.Error = err.Error()
		return
	}
	s.status = Status{State: StateIdle, LastSyncedAt: store.Now()}
}

// Push uploads the whole ledger to LatestKey.
func (s *Service) Push(ctx context.Context) (Counts, error) {
	s.begin()
	counts, err := s.push(ctx)
	s.finish(err)
	if err != nil {
		s.actions.Record(actionlog.ActionError, "backup", err.Error())
		return Counts{}, err
	}
	s.log.Info().
		Int("accounts", counts.Accounts).
		Int("categories", counts.Categories).
		Int("transactions", counts.Transactions).
		Msg("backup pushed")
	return counts, nil
}

func (s *Service) push(ctx context.Context) (Counts, error) {
	p, err := Export(ctx, s.store.Queries)
	if err != nil {
		return Counts{}, err
	}
	data, err := Encode(p)
	if err != nil {
		return Counts{}, err
	}
	if err := s.objects.Put(ctx, LatestKey, data); err != nil {
		return Counts{}, &RemoteSyncError{Op: "backup push", Err: err}
	}
	return p.Counts(), nil
}

// Restore replaces the local ledger with the latest pushed backup. The
// payload is fetched and checked before anything local is touched; on any
// error the ledger is left as it was.
func (s *Service) Restore(ctx context.Context) (Counts, error) {
	s.begin()
	counts, err := s.restore(ctx)
	s.finish(err)
	if err != nil {
		s.actions.Record(actionlog.ActionError, "restore", err.Error())
		return Counts{}, err
	}
	return counts, nil
}

func (s *Service) restore(ctx context.Context) (Counts, error) {
	data, err := s.objects.Get(ctx, LatestKey)
	if err != nil {
		return Counts{}, &RemoteSyncError{Op: "backup pull", Err: err}
	}
	p, err := Decode(data)
	if err != nil {
		return Counts{}, &RemoteSyncError{Op: "backup pull", Err: err}
	}
	return s.Load(ctx, p, "latest backup")
}

// Load replaces the local ledger with p in one store transaction.
func (s *Service) Load(ctx context.Context, p Payload, source string) (Counts, error) {
	rows, err := convert(p, store.Now())
	if err != nil {
		return Counts{}, fmt.Errorf("checking %s: %w", source, err)
	}

	err = s.store.WithTx(ctx, func(q *store.Queries) error {
		if err := q.ClearAll(ctx); err != nil {
			return err
		}
		for _, a := range rows.accounts {
			if err := q.InsertAccount(ctx, a); err != nil {
				return fmt.Errorf("account %s: %w", a.Name, err)
			}
		}
		for _, c := range rows.categories {
			if err := q.InsertCategory(ctx, c); err != nil {
				return fmt.Errorf("category %s: %w", c.Name, err)
			}
		}
		return q.InsertTransactions(ctx, rows.transactions)
	})
	if err != nil {
		return Counts{}, fmt.Errorf("restoring %s: %w", source, err)
	}

	counts := Counts{Accounts: len(rows.accounts), Categories: len(rows.categories), Transactions: len(rows.transactions)}
	s.actions.Record(actionlog.DataRestore, source,
		fmt.Sprintf("%d accounts, %d categories, %d transactions", counts.Accounts, counts.Categories, counts.Transactions))
	s.log.Info().Str("source", source).Int("transactions", counts.Transactions).Msg("ledger restored")
	return counts, nil
}

// Clear deletes every account, category and transaction.
func (s *Service) Clear(ctx context.Context) error {
	if err := s.store.WithTx(ctx, func(q *store.Queries) error {
		return q.ClearAll(ctx)
	}); err != nil {
		return fmt.Errorf("clearing ledger: %w", err)
	}
	s.actions.Record(actionlog.DataClear, "ledger", "")
	return nil
}

// IsRemote reports whether err came from the remote store.
func IsRemote(err error) bool {
	var rse *RemoteSyncError
	return errors.As(err, &rse)
}
