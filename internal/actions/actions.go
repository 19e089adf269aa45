// Package actions holds the units of work that write the offline mirror:
// imports of remote snapshots, cascading deletes, series aggregation and
// read progress.
//
// Every action runs inside database.TransactionTemplate. Actions called
// from another action join its transaction. Domain events and follow-up
// jobs are deferred until the outermost transaction commits.
package actions

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/mrlokans/offlinemirror/internal/clock"
	"github.com/mrlokans/offlinemirror/internal/database"
	"github.com/mrlokans/offlinemirror/internal/database/aggregation"
	"github.com/mrlokans/offlinemirror/internal/database/books"
	"github.com/mrlokans/offlinemirror/internal/database/libraries"
	"github.com/mrlokans/offlinemirror/internal/database/readprogress"
	"github.com/mrlokans/offlinemirror/internal/database/series"
	"github.com/mrlokans/offlinemirror/internal/database/servers"
	"github.com/mrlokans/offlinemirror/internal/database/users"
	"github.com/mrlokans/offlinemirror/internal/events"
	"github.com/mrlokans/offlinemirror/internal/logging"
)

var (
	ErrBookNotFound = errors.New("book is not mirrored")
	ErrInvalidPage  = errors.New("page is out of range")
)

// Scheduler runs follow-up work outside the importing transaction.
type Scheduler interface {
	ScheduleAggregation(ctx context.Context, seriesID string) error
	ScheduleFileDeletion(ctx context.Context, handles []string) error
}

type Actions struct {
	tx           *database.TransactionTemplate
	servers      *servers.Repository
	users        *users.Repository
	libraries    *libraries.Repository
	series       *series.Repository
	books        *books.Repository
	readProgress *readprogress.Repository
	aggregation  *aggregation.Repository

	events    events.Publisher
	scheduler Scheduler
	clock     clock.Clock
	log       zerolog.Logger
}

// New wires the actions over db. A nil scheduler is replaced by one that
// aggregates inline and leaves files alone.
func New(db *gorm.DB, publisher events.Publisher, scheduler Scheduler, c clock.Clock) *Actions {
	if c == nil {
		c = clock.New()
	}
	a := &Actions{
		tx:           database.NewTransactionTemplate(db),
		servers:      servers.NewRepository(db),
		users:        users.NewRepository(db),
		libraries:    libraries.NewRepository(db),
		series:       series.NewRepository(db),
		books:        books.NewRepository(db),
		readProgress: readprogress.NewRepository(db),
		aggregation:  aggregation.NewRepository(db),
		events:       publisher,
		clock:        c,
		log:          logging.Component("actions"),
	}
	if scheduler == nil {
		scheduler = NewInlineScheduler(a, nil)
	}
	a.scheduler = scheduler
	return a
}

// SetScheduler replaces the follow-up job scheduler. Used at wiring time
// when the scheduler itself depends on the actions.
func (a *Actions) SetScheduler(s Scheduler) {
	a.scheduler = s
}

// Transaction exposes the template so callers can group several actions.
func (a *Actions) Transaction() *database.TransactionTemplate {
	return a.tx
}

// publishAfterCommit emits evs once the transaction in ctx commits.
func (a *Actions) publishAfterCommit(ctx context.Context, evs ...events.Event) {
	if a.events == nil || len(evs) == 0 {
		return
	}
	database.AfterCommit(ctx, func(ctx context.Context) {
		for _, ev := range evs {
			if err := a.events.Publish(ctx, ev); err != nil {
				a.log.Error().Err(err).Str("event", ev.Type()).Msg("Failed to publish event")
			}
		}
	})
}

func (a *Actions) aggregateAfterCommit(ctx context.Context, seriesIDs ...string) {
	if len(seriesIDs) == 0 {
		return
	}
	database.AfterCommit(ctx, func(ctx context.Context) {
		for _, id := range seriesIDs {
			if err := a.scheduler.ScheduleAggregation(ctx, id); err != nil {
				a.log.Error().Err(err).Str("series_id", id).Msg("Failed to schedule series aggregation")
			}
		}
	})
}

func (a *Actions) deleteFilesAfterCommit(ctx context.Context, handles []string) {
	if len(handles) == 0 {
		return
	}
	database.AfterCommit(ctx, func(ctx context.Context) {
		if err := a.scheduler.ScheduleFileDeletion(ctx, handles); err != nil {
			a.log.Error().Err(err).Strs("files", handles).Msg("Failed to schedule file deletion")
		}
	})
}
