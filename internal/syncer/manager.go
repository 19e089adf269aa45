package syncer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mrlokans/offlinemirror/internal/actions"
	"github.com/mrlokans/offlinemirror/internal/catalog"
	"github.com/mrlokans/offlinemirror/internal/clock"
	"github.com/mrlokans/offlinemirror/internal/logging"
	"github.com/mrlokans/offlinemirror/internal/state"
)

var ErrOffline = errors.New("no online identity")

// Status is the outcome of the most recent pass run by the manager.
type Status struct {
	Result     Result    `json:"result"`
	Error      string    `json:"error,omitempty"`
	Pushed     int       `json:"read_progress_pushed"`
	FinishedAt time.Time `json:"finished_at"`
}

// Manager reacts to the active online identity: every time a user comes
// online it pushes their read progress and runs a gated pass.
type Manager struct {
	reconciler *Reconciler
	actions    *actions.Actions
	api        catalog.API
	identity   *state.Cell[*catalog.User]
	clock      clock.Clock
	log        zerolog.Logger

	running sync.Mutex

	mu   sync.RWMutex
	last *Status
}

func NewManager(r *Reconciler, a *actions.Actions, api catalog.API, identity *state.Cell[*catalog.User]) *Manager {
	return &Manager{
		reconciler: r,
		actions:    a,
		api:        api,
		identity:   identity,
		clock:      r.clock,
		log:        logging.Component("sync-manager"),
	}
}

// Run blocks until ctx is done, syncing each non-nil identity it observes.
func (m *Manager) Run(ctx context.Context) error {
	for user := range m.identity.Subscribe(ctx) {
		if user == nil {
			continue
		}
		if _, err := m.sync(ctx, user, false); err != nil && !errors.Is(err, ErrSyncRunning) && ctx.Err() == nil {
			m.log.Warn().Err(err).Str("user_id", user.ID).Msg("Sync pass failed")
		}
	}
	return ctx.Err()
}

// Serve lets the manager run under a supervisor.
func (m *Manager) Serve(ctx context.Context) error {
	return m.Run(ctx)
}

// SyncNow runs a pass for the current identity. force bypasses the
// minimum interval.
func (m *Manager) SyncNow(ctx context.Context, force bool) (Result, error) {
	user := m.identity.Get()
	if user == nil {
		return Result{}, ErrOffline
	}
	return m.sync(ctx, user, force)
}

// Online reports whether an online identity is active.
func (m *Manager) Online() bool {
	return m.identity.Get() != nil
}

// LastStatus returns nil until a pass has finished.
func (m *Manager) LastStatus() *Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.last == nil {
		return nil
	}
	s := *m.last
	return &s
}

func (m *Manager) sync(ctx context.Context, user *catalog.User, force bool) (Result, error) {
	if !m.running.TryLock() {
		return Result{}, ErrSyncRunning
	}
	defer m.running.Unlock()

	status := &Status{}
	defer func() {
		status.FinishedAt = m.clock.Now()
		m.mu.Lock()
		m.last = status
		m.mu.Unlock()
	}()

	pushed, err := m.actions.ReadProgressSync(ctx, m.api, user.ID)
	status.Pushed = pushed
	if err != nil {
		if errors.Is(err, catalog.ErrUnauthorized) || ctx.Err() != nil {
			status.Error = err.Error()
			return Result{}, err
		}
		m.log.Error().Err(err).Msg("Read progress sync failed")
	}

	var res Result
	if force {
		res, err = m.reconciler.ReconcileNow(ctx, user)
	} else {
		res, err = m.reconciler.Reconcile(ctx, user)
	}
	status.Result = res
	if err != nil {
		status.Error = err.Error()
	}
	return res, err
}

func (m *Manager) String() string {
	return "sync-manager"
}
