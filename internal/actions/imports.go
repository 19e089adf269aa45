package actions

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"time"

	"github.com/google/uuid"

	"github.com/mrlokans/offlinemirror/internal/catalog"
	"github.com/mrlokans/offlinemirror/internal/entities"
	"github.com/mrlokans/offlinemirror/internal/events"
)

// ServerSave returns the mirrored server for url, creating it on first use.
func (a *Actions) ServerSave(ctx context.Context, url string) (*entities.MediaServer, error) {
	var server *entities.MediaServer
	err := a.tx.Execute(ctx, func(ctx context.Context) error {
		existing, err := a.servers.FindByURL(ctx, url)
		if err != nil {
			return fmt.Errorf("find server: %w", err)
		}
		if existing != nil {
			server = existing
			return nil
		}
		server = &entities.MediaServer{ID: uuid.NewString(), URL: url}
		return a.servers.Save(ctx, server)
	})
	if err != nil {
		return nil, err
	}
	return server, nil
}

func (a *Actions) UserImport(ctx context.Context, user *catalog.User, serverID string) error {
	entity := &entities.OfflineUser{
		ID:         user.ID,
		ServerID:   serverID,
		Email:      user.Email,
		Roles:      entities.StringList(user.Roles),
		SharedAll:  user.SharedAllLibraries,
		SharedLibs: entities.StringList(user.SharedLibrariesIDs),
	}
	if user.AgeRestriction != nil {
		entity.AgeRestrict = user.AgeRestriction.Age
	}
	return a.tx.Execute(ctx, func(ctx context.Context) error {
		existing, err := a.users.Find(ctx, user.ID)
		if err != nil {
			return fmt.Errorf("find user: %w", err)
		}
		if existing != nil {
			entity.CreatedAt = existing.CreatedAt
		}
		return a.users.Save(ctx, entity)
	})
}

func (a *Actions) LibraryImport(ctx context.Context, library *catalog.Library, serverID string) error {
	entity := &entities.OfflineLibrary{
		ID:                library.ID,
		ServerID:          serverID,
		Name:              library.Name,
		Root:              library.Root,
		RemoteUnavailable: library.Unavailable,
	}
	return a.tx.Execute(ctx, func(ctx context.Context) error {
		existing, err := a.libraries.Find(ctx, library.ID)
		if err != nil {
			return fmt.Errorf("find library: %w", err)
		}
		if existing != nil {
			entity.CreatedAt = existing.CreatedAt
		}
		if err := a.libraries.Save(ctx, entity); err != nil {
			return fmt.Errorf("save library: %w", err)
		}
		a.publishAfterCommit(ctx, events.LibraryChanged{LibraryID: library.ID})
		return nil
	})
}

// SeriesImport upserts the series and its metadata. A series always has an
// aggregation row, so an empty one is seeded on first import.
func (a *Actions) SeriesImport(ctx context.Context, s *catalog.Series) error {
	entity := &entities.OfflineSeries{
		ID:             s.ID,
		LibraryID:      s.LibraryID,
		Name:           s.Name,
		URL:            s.URL,
		BooksCount:     s.BooksCount,
		Oneshot:        s.Oneshot,
		Deleted:        s.Deleted,
		RemoteCreated:  s.Created,
		RemoteModified: s.LastModified,
		Metadata: entities.OfflineSeriesMetadata{
			SeriesID:  s.ID,
			Title:     s.Metadata.Title,
			TitleSort: s.Metadata.TitleSort,
			Status:    s.Metadata.Status,
			Summary:   s.Metadata.Summary,
			Publisher: s.Metadata.Publisher,
			Language:  s.Metadata.Language,
			Genres:    entities.StringList(s.Metadata.Genres),
			Tags:      entities.StringList(s.Metadata.Tags),
		},
	}
	return a.tx.Execute(ctx, func(ctx context.Context) error {
		existing, err := a.series.Find(ctx, s.ID)
		if err != nil {
			return fmt.Errorf("find series: %w", err)
		}
		if existing != nil {
			entity.CreatedAt = existing.CreatedAt
		}
		if err := a.series.Save(ctx, entity); err != nil {
			return fmt.Errorf("save series: %w", err)
		}

		exists, err := a.aggregation.Exists(ctx, s.ID)
		if err != nil {
			return fmt.Errorf("check aggregation: %w", err)
		}
		if !exists {
			if err := a.aggregation.Save(ctx, &entities.OfflineBookMetadataAggregation{SeriesID: s.ID}); err != nil {
				return fmt.Errorf("seed aggregation: %w", err)
			}
		}
		return nil
	})
}

// BookImport upserts the book, its metadata, media and the user's read
// progress. path and localModified describe the local file, which the remote
// snapshot cannot supply. When the book moves to a new path the old file is
// deleted after commit.
func (a *Actions) BookImport(ctx context.Context, userID string, book *catalog.Book, path string, localModified time.Time) error {
	entity := bookEntity(book, path, localModified)

	return a.tx.Execute(ctx, func(ctx context.Context) error {
		existing, err := a.books.Find(ctx, book.ID)
		if err != nil {
			return fmt.Errorf("find book: %w", err)
		}
		if existing != nil {
			entity.CreatedAt = existing.CreatedAt
			if existing.FileDownloadPath != "" && existing.FileDownloadPath != path {
				a.deleteFilesAfterCommit(ctx, []string{existing.FileDownloadPath})
			}
		}

		if err := a.books.Save(ctx, entity); err != nil {
			return fmt.Errorf("save book: %w", err)
		}
		if err := a.books.SaveMedia(ctx, &entities.OfflineMedia{
			BookID:       book.ID,
			Status:       book.Media.Status,
			MediaType:    book.Media.MediaType,
			MediaProfile: book.Media.MediaProfile,
			PageCount:    book.Media.PagesCount,
		}); err != nil {
			return fmt.Errorf("save media: %w", err)
		}
		if err := a.importReadProgress(ctx, userID, book); err != nil {
			return err
		}

		a.aggregateAfterCommit(ctx, book.SeriesID)
		if existing == nil {
			a.publishAfterCommit(ctx, events.BookAdded{BookID: book.ID, SeriesID: book.SeriesID})
		} else {
			a.publishAfterCommit(ctx, events.BookChanged{BookID: book.ID, SeriesID: book.SeriesID})
		}
		return nil
	})
}

// importReadProgress copies the remote progress unless a local change is
// still waiting to be pushed.
func (a *Actions) importReadProgress(ctx context.Context, userID string, book *catalog.Book) error {
	if userID == "" || book.ReadProgress == nil {
		return nil
	}
	local, err := a.readProgress.Find(ctx, book.ID, userID)
	if err != nil {
		return fmt.Errorf("find read progress: %w", err)
	}
	if local != nil && local.Dirty {
		return nil
	}

	rp := book.ReadProgress
	progress := &entities.OfflineReadProgress{
		BookID:     book.ID,
		UserID:     userID,
		Page:       rp.Page,
		Completed:  rp.Completed,
		ReadDate:   rp.ReadDate,
		DeviceID:   rp.DeviceID,
		DeviceName: rp.DeviceName,
	}
	if local != nil {
		progress.CreatedAt = local.CreatedAt
	}
	if err := a.readProgress.Save(ctx, progress); err != nil {
		return fmt.Errorf("save read progress: %w", err)
	}
	return nil
}

func bookEntity(book *catalog.Book, path string, localModified time.Time) *entities.OfflineBook {
	authors := make([]entities.OfflineBookMetadataAuthor, 0, len(book.Metadata.Authors))
	for _, au := range book.Metadata.Authors {
		authors = append(authors, entities.OfflineBookMetadataAuthor{Name: au.Name, Role: au.Role})
	}
	return &entities.OfflineBook{
		ID:                    book.ID,
		SeriesID:              book.SeriesID,
		LibraryID:             book.LibraryID,
		Name:                  book.Name,
		URL:                   book.URL,
		Number:                book.Number,
		SizeBytes:             book.SizeBytes,
		Oneshot:               book.Oneshot,
		RemoteCreated:         book.Created,
		RemoteLastModified:    book.LastModified,
		FileDownloadPath:      path,
		LocalFileLastModified: localModified,
		Deleted:               book.Deleted,
		Metadata: entities.OfflineBookMetadata{
			BookID:      book.ID,
			Title:       book.Metadata.Title,
			Summary:     book.Metadata.Summary,
			Number:      book.Metadata.Number,
			NumberSort:  book.Metadata.NumberSort,
			ReleaseDate: book.Metadata.Released(),
			ISBN:        book.Metadata.ISBN,
			Tags:        entities.StringList(book.Metadata.Tags),
			Authors:     authors,
		},
	}
}

// BookThumbnailImport replaces the book's stored thumbnail.
func (a *Actions) BookThumbnailImport(ctx context.Context, bookID string, thumb *catalog.Thumbnail) error {
	if thumb == nil || len(thumb.Data) == 0 {
		return nil
	}
	entity := entities.OfflineThumbnailBook{
		ID:        uuid.NewString(),
		BookID:    bookID,
		Type:      "GENERATED",
		Selected:  true,
		MediaType: thumb.MediaType,
		FileSize:  int64(len(thumb.Data)),
		Data:      thumb.Data,
		CreatedAt: a.clock.Now(),
	}
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(thumb.Data)); err == nil {
		entity.Width, entity.Height = cfg.Width, cfg.Height
	}
	return a.tx.Execute(ctx, func(ctx context.Context) error {
		return a.books.ReplaceThumbnails(ctx, bookID, []entities.OfflineThumbnailBook{entity})
	})
}

// BookMarkRemoteDeleted tombstones books the remote no longer has. Local
// files stay in place.
func (a *Actions) BookMarkRemoteDeleted(ctx context.Context, tombstoned ...entities.OfflineBook) (int64, error) {
	if len(tombstoned) == 0 {
		return 0, nil
	}
	ids := make([]string, 0, len(tombstoned))
	evs := make([]events.Event, 0, len(tombstoned))
	for _, b := range tombstoned {
		ids = append(ids, b.ID)
		evs = append(evs, events.BookChanged{BookID: b.ID, SeriesID: b.SeriesID})
	}

	var affected int64
	err := a.tx.Execute(ctx, func(ctx context.Context) error {
		n, err := a.books.MarkRemoteUnavailable(ctx, ids...)
		if err != nil {
			return fmt.Errorf("mark books remote deleted: %w", err)
		}
		affected = n
		a.publishAfterCommit(ctx, evs...)
		return nil
	})
	return affected, err
}
