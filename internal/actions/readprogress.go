package actions

import (
	"context"
	"errors"
	"fmt"

	"github.com/mrlokans/offlinemirror/internal/catalog"
	"github.com/mrlokans/offlinemirror/internal/entities"
	"github.com/mrlokans/offlinemirror/internal/events"
)

// ReadProgressMark records that userID has read bookID up to page (1-based).
// Reaching the last page completes the book. Progress of any user but root
// is flagged for the next push.
func (a *Actions) ReadProgressMark(ctx context.Context, userID, bookID string, page int) error {
	return a.tx.Execute(ctx, func(ctx context.Context) error {
		media, err := a.books.FindMedia(ctx, bookID)
		if err != nil {
			return fmt.Errorf("find media: %w", err)
		}
		if media == nil {
			return ErrBookNotFound
		}
		if page < 1 || (media.PageCount > 0 && page > media.PageCount) {
			return fmt.Errorf("page %d of %d: %w", page, media.PageCount, ErrInvalidPage)
		}

		existing, err := a.readProgress.Find(ctx, bookID, userID)
		if err != nil {
			return fmt.Errorf("find read progress: %w", err)
		}
		progress := &entities.OfflineReadProgress{
			BookID:    bookID,
			UserID:    userID,
			Page:      page,
			Completed: media.PageCount > 0 && page == media.PageCount,
			ReadDate:  a.clock.Now(),
			Dirty:     userID != entities.RootUserID,
		}
		if existing != nil {
			progress.CreatedAt = existing.CreatedAt
			progress.DeviceID = existing.DeviceID
			progress.DeviceName = existing.DeviceName
		}
		if err := a.readProgress.Save(ctx, progress); err != nil {
			return fmt.Errorf("save read progress: %w", err)
		}
		a.publishAfterCommit(ctx, events.ReadProgressChanged{BookID: bookID, UserID: userID})
		return nil
	})
}

// ReadProgressSync pushes the user's unsynced progress to the remote and
// returns how many rows were pushed. Root progress is never pushed. Books
// the remote no longer knows are marked clean. Progress marked while its push
// is in flight stays dirty. An authorization failure stops the push.
func (a *Actions) ReadProgressSync(ctx context.Context, api catalog.API, userID string) (int, error) {
	if userID == "" || userID == entities.RootUserID {
		return 0, nil
	}
	dirty, err := a.readProgress.FindDirty(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("find unsynced progress: %w", err)
	}

	pushed := 0
	for _, p := range dirty {
		page, completed := p.Page, p.Completed
		err := api.UpdateReadProgress(ctx, p.BookID, catalog.ReadProgressUpdate{Page: &page, Completed: &completed})
		switch {
		case err == nil:
			pushed++
		case errors.Is(err, catalog.ErrNotFound):
			a.log.Warn().Str("book_id", p.BookID).Msg("Dropping read progress for book missing on remote")
		case errors.Is(err, catalog.ErrUnauthorized), errors.Is(err, context.Canceled):
			return pushed, err
		default:
			a.log.Error().Err(err).Str("book_id", p.BookID).Msg("Failed to push read progress")
			continue
		}
		cleaned, err := a.readProgress.MarkClean(ctx, p)
		if err != nil {
			return pushed, fmt.Errorf("mark progress synced: %w", err)
		}
		if !cleaned {
			a.log.Debug().Str("book_id", p.BookID).Msg("Read progress changed during push, keeping it for the next one")
		}
	}
	return pushed, nil
}
