// Package download streams book files from the catalog server into local
// storage and mirrors the book's ancestor chain once the bytes are safe.
package download

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/mrlokans/offlinemirror/internal/actions"
	"github.com/mrlokans/offlinemirror/internal/catalog"
	"github.com/mrlokans/offlinemirror/internal/clock"
	"github.com/mrlokans/offlinemirror/internal/entities"
	"github.com/mrlokans/offlinemirror/internal/events"
	"github.com/mrlokans/offlinemirror/internal/logging"
	"github.com/mrlokans/offlinemirror/internal/metrics"
)

// ChunkSize is the read size used while streaming a book body.
const ChunkSize = 64 * 1024

// RootFunc resolves the download root at the start of each download.
type RootFunc func(ctx context.Context) string

// StaticRoot always resolves to dir.
func StaticRoot(dir string) RootFunc {
	return func(context.Context) string { return dir }
}

type Service struct {
	api     catalog.API
	actions *actions.Actions
	output  OutputProvider
	root    RootFunc
	clock   clock.Clock
	log     zerolog.Logger
}

func NewService(api catalog.API, a *actions.Actions, output OutputProvider, root RootFunc, c clock.Clock) *Service {
	if c == nil {
		c = clock.New()
	}
	return &Service{
		api:     api,
		actions: a,
		output:  output,
		root:    root,
		clock:   c,
		log:     logging.Component("download"),
	}
}

// ancestry is the remote context a book is mirrored under.
type ancestry struct {
	me        *catalog.User
	library   *catalog.Library
	series    *catalog.Series
	thumbnail *catalog.Thumbnail
}

// Download streams one book. The channel yields DownloadProgress events,
// then DownloadCompleted or DownloadError, and is closed. A cancelled ctx
// ends the stream without a terminal event. Nothing is imported unless the
// whole file was written.
func (s *Service) Download(ctx context.Context, bookID string) <-chan events.DownloadEvent {
	out := make(chan events.DownloadEvent, 1)
	go func() {
		defer close(out)
		s.run(ctx, bookID, out)
	}()
	return out
}

func (s *Service) run(ctx context.Context, bookID string, out chan<- events.DownloadEvent) {
	emit := func(ev events.DownloadEvent) bool {
		select {
		case out <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}
	fail := func(book *catalog.Book, err error) {
		if ctx.Err() != nil {
			s.log.Debug().Str("book_id", bookID).Msg("Download cancelled")
			return
		}
		s.log.Error().Err(err).Str("book_id", bookID).Msg("Download failed")
		emit(events.DownloadError{BookID: bookID, Book: book, Err: err})
	}

	book, err := s.api.GetBook(ctx, bookID)
	if err != nil {
		fail(nil, fmt.Errorf("fetch book: %w", err))
		return
	}

	anc, err := s.resolve(ctx, book)
	if err != nil {
		fail(book, err)
		return
	}

	handle, sink, err := s.output.PrepareOutput(book, s.root(ctx))
	if err != nil {
		fail(book, fmt.Errorf("prepare output: %w", err))
		return
	}
	discard := func() {
		if err := sink.Abort(); err != nil {
			s.log.Warn().Err(err).Str("file", handle).Msg("Failed to remove partial download")
		}
	}

	if err := s.stream(ctx, book, sink, emit); err != nil {
		discard()
		fail(book, err)
		return
	}
	if err := s.importBook(ctx, book, anc, handle, sink); err != nil {
		discard()
		fail(book, fmt.Errorf("import book: %w", err))
		return
	}

	s.log.Info().Str("book_id", book.ID).Str("file", handle).Msg("Book downloaded")
	emit(events.DownloadCompleted{Book: book})
}

// resolve fetches the identity, library, series and thumbnail concurrently.
// A missing thumbnail does not fail the download.
func (s *Service) resolve(ctx context.Context, book *catalog.Book) (*ancestry, error) {
	anc := &ancestry{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		me, err := s.api.GetMe(gctx)
		if err != nil {
			return fmt.Errorf("fetch current user: %w", err)
		}
		anc.me = me
		return nil
	})
	g.Go(func() error {
		library, err := s.api.GetLibrary(gctx, book.LibraryID)
		if err != nil {
			return fmt.Errorf("fetch library: %w", err)
		}
		anc.library = library
		return nil
	})
	g.Go(func() error {
		series, err := s.api.GetSeries(gctx, book.SeriesID)
		if err != nil {
			return fmt.Errorf("fetch series: %w", err)
		}
		anc.series = series
		return nil
	})
	g.Go(func() error {
		thumb, err := s.api.GetBookThumbnail(gctx, book.ID)
		if err != nil {
			s.log.Debug().Err(err).Str("book_id", book.ID).Msg("No thumbnail")
			return nil
		}
		anc.thumbnail = thumb
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return anc, nil
}

func (s *Service) stream(ctx context.Context, book *catalog.Book, sink io.Writer, emit func(events.DownloadEvent) bool) error {
	body, total, err := s.api.DownloadBook(ctx, book.ID)
	if err != nil {
		return fmt.Errorf("open book file: %w", err)
	}
	defer body.Close()

	buf := make([]byte, ChunkSize)
	var written int64
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, readErr := io.ReadFull(body, buf)
		if n > 0 {
			if _, err := sink.Write(buf[:n]); err != nil {
				return fmt.Errorf("write file: %w", err)
			}
			written += int64(n)
			metrics.DownloadBytes.Add(float64(n))
			if !emit(events.DownloadProgress{Book: book, TotalBytes: total, CompletedBytes: written}) {
				return ctx.Err()
			}
		}
		if errors.Is(readErr, io.EOF) || errors.Is(readErr, io.ErrUnexpectedEOF) {
			break
		}
		if readErr != nil {
			return fmt.Errorf("read book body: %w", readErr)
		}
	}
	if total > 0 && written != total {
		return fmt.Errorf("short body: got %d of %d bytes", written, total)
	}
	return nil
}

// importBook mirrors the book and its ancestors in one transaction. The
// sink is published last, so a failed publish rolls the import back.
func (s *Service) importBook(ctx context.Context, book *catalog.Book, anc *ancestry, handle string, sink Sink) error {
	a := s.actions
	return a.Transaction().Execute(ctx, func(ctx context.Context) error {
		server, err := a.ServerSave(ctx, s.api.BaseURL())
		if err != nil {
			return err
		}
		userID := anc.me.ID
		if userID != entities.RootUserID {
			if err := a.UserImport(ctx, anc.me, server.ID); err != nil {
				return err
			}
		}
		if err := a.LibraryImport(ctx, anc.library, server.ID); err != nil {
			return err
		}
		if err := a.SeriesImport(ctx, anc.series); err != nil {
			return err
		}
		if err := a.BookImport(ctx, userID, book, handle, s.clock.Now()); err != nil {
			return err
		}
		if err := a.BookThumbnailImport(ctx, book.ID, anc.thumbnail); err != nil {
			return err
		}
		if err := sink.Close(); err != nil {
			return fmt.Errorf("finalize file: %w", err)
		}
		return nil
	})
}
