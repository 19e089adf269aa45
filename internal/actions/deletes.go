package actions

import (
	"context"
	"fmt"

	"github.com/mrlokans/offlinemirror/internal/entities"
	"github.com/mrlokans/offlinemirror/internal/events"
)

// BookDeleteMany removes books with their read progress, media, metadata
// and thumbnails. Their files are deleted after commit, and the owning
// series are re-aggregated.
func (a *Actions) BookDeleteMany(ctx context.Context, toDelete []entities.OfflineBook) error {
	if len(toDelete) == 0 {
		return nil
	}

	ids := make([]string, 0, len(toDelete))
	var files []string
	var evs []events.Event
	seriesSeen := make(map[string]bool)
	var seriesIDs []string
	for _, b := range toDelete {
		ids = append(ids, b.ID)
		if b.FileDownloadPath != "" {
			files = append(files, b.FileDownloadPath)
		}
		evs = append(evs, events.BookDeleted{BookID: b.ID, SeriesID: b.SeriesID})
		if b.SeriesID != "" && !seriesSeen[b.SeriesID] {
			seriesSeen[b.SeriesID] = true
			seriesIDs = append(seriesIDs, b.SeriesID)
		}
	}

	return a.tx.Execute(ctx, func(ctx context.Context) error {
		if err := a.readProgress.DeleteByBookIDs(ctx, ids...); err != nil {
			return fmt.Errorf("delete read progress: %w", err)
		}
		if err := a.books.Delete(ctx, ids...); err != nil {
			return fmt.Errorf("delete books: %w", err)
		}
		a.deleteFilesAfterCommit(ctx, files)
		a.aggregateAfterCommit(ctx, seriesIDs...)
		a.publishAfterCommit(ctx, evs...)
		return nil
	})
}

// BookDelete removes one mirrored book. Unknown ids are ignored.
func (a *Actions) BookDelete(ctx context.Context, bookID string) error {
	return a.tx.Execute(ctx, func(ctx context.Context) error {
		book, err := a.books.Find(ctx, bookID)
		if err != nil {
			return fmt.Errorf("find book: %w", err)
		}
		if book == nil {
			return nil
		}
		return a.BookDeleteMany(ctx, []entities.OfflineBook{*book})
	})
}

func (a *Actions) SeriesDelete(ctx context.Context, seriesID string) error {
	return a.SeriesDeleteMany(ctx, []string{seriesID})
}

// SeriesDeleteMany removes series with every dependent row in one
// transaction. One SeriesDeleted event per removed series fires after
// commit. Unknown ids are skipped.
func (a *Actions) SeriesDeleteMany(ctx context.Context, seriesIDs []string) error {
	return a.tx.Execute(ctx, func(ctx context.Context) error {
		var present []string
		for _, id := range seriesIDs {
			s, err := a.series.Find(ctx, id)
			if err != nil {
				return fmt.Errorf("find series %s: %w", id, err)
			}
			if s != nil {
				present = append(present, id)
			}
		}
		if len(present) == 0 {
			return nil
		}

		dependents, err := a.books.FindBySeriesIDs(ctx, present)
		if err != nil {
			return fmt.Errorf("find series books: %w", err)
		}
		if err := a.BookDeleteMany(ctx, dependents); err != nil {
			return err
		}
		if err := a.series.DeleteThumbnails(ctx, present...); err != nil {
			return fmt.Errorf("delete series thumbnails: %w", err)
		}
		if err := a.aggregation.Delete(ctx, present...); err != nil {
			return fmt.Errorf("delete aggregation: %w", err)
		}
		if err := a.series.Delete(ctx, present...); err != nil {
			return fmt.Errorf("delete series: %w", err)
		}

		evs := make([]events.Event, 0, len(present))
		for _, id := range present {
			evs = append(evs, events.SeriesDeleted{SeriesID: id})
		}
		a.publishAfterCommit(ctx, evs...)
		return nil
	})
}

// LibraryDelete removes a library with its series and books.
func (a *Actions) LibraryDelete(ctx context.Context, libraryID string) error {
	return a.tx.Execute(ctx, func(ctx context.Context) error {
		library, err := a.libraries.Find(ctx, libraryID)
		if err != nil {
			return fmt.Errorf("find library: %w", err)
		}
		if library == nil {
			return nil
		}

		owned, err := a.series.FindByLibraryID(ctx, libraryID)
		if err != nil {
			return fmt.Errorf("find library series: %w", err)
		}
		ids := make([]string, 0, len(owned))
		for _, s := range owned {
			ids = append(ids, s.ID)
		}
		if err := a.SeriesDeleteMany(ctx, ids); err != nil {
			return err
		}

		// Books whose series row was never mirrored.
		stray, err := a.books.FindByLibraryID(ctx, libraryID)
		if err != nil {
			return fmt.Errorf("find library books: %w", err)
		}
		if err := a.BookDeleteMany(ctx, stray); err != nil {
			return err
		}

		if err := a.libraries.Delete(ctx, libraryID); err != nil {
			return fmt.Errorf("delete library: %w", err)
		}
		a.publishAfterCommit(ctx, events.LibraryDeleted{LibraryID: libraryID})
		return nil
	})
}

// UserDelete removes a mirrored user and its read progress.
func (a *Actions) UserDelete(ctx context.Context, userID string) error {
	return a.tx.Execute(ctx, func(ctx context.Context) error {
		if err := a.readProgress.DeleteByUserIDs(ctx, userID); err != nil {
			return fmt.Errorf("delete user read progress: %w", err)
		}
		if err := a.users.Delete(ctx, userID); err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		a.publishAfterCommit(ctx, events.UserDeleted{UserID: userID})
		return nil
	})
}

// ServerDelete removes a server with everything mirrored from it.
func (a *Actions) ServerDelete(ctx context.Context, serverID string) error {
	return a.tx.Execute(ctx, func(ctx context.Context) error {
		serverUsers, err := a.users.FindByServerID(ctx, serverID)
		if err != nil {
			return fmt.Errorf("find server users: %w", err)
		}
		for _, u := range serverUsers {
			if err := a.UserDelete(ctx, u.ID); err != nil {
				return err
			}
		}

		serverLibraries, err := a.libraries.FindByServerID(ctx, serverID)
		if err != nil {
			return fmt.Errorf("find server libraries: %w", err)
		}
		for _, l := range serverLibraries {
			if err := a.LibraryDelete(ctx, l.ID); err != nil {
				return err
			}
		}

		if err := a.servers.Delete(ctx, serverID); err != nil {
			return fmt.Errorf("delete server: %w", err)
		}
		a.publishAfterCommit(ctx, events.ServerDeleted{ServerID: serverID})
		return nil
	})
}
