// Package events defines the domain events emitted by the offline engine
// and the bus they travel on.
//
// Event is a closed union: only types in this package implement it.
// Subscribers switch over the concrete types:
//
//	switch e := ev.(type) {
//	case events.SeriesDeleted:
//	case events.DownloadProgress:
//	...
//	}
package events

import "github.com/mrlokans/offlinemirror/internal/catalog"

type Event interface {
	Type() string
	isEvent()
}

type SeriesDeleted struct {
	SeriesID string `json:"series_id"`
}

type BookAdded struct {
	BookID   string `json:"book_id"`
	SeriesID string `json:"series_id"`
}

type BookChanged struct {
	BookID   string `json:"book_id"`
	SeriesID string `json:"series_id"`
}

type BookDeleted struct {
	BookID   string `json:"book_id"`
	SeriesID string `json:"series_id"`
}

type LibraryChanged struct {
	LibraryID string `json:"library_id"`
}

type LibraryDeleted struct {
	LibraryID string `json:"library_id"`
}

type UserDeleted struct {
	UserID string `json:"user_id"`
}

type ServerDeleted struct {
	ServerID string `json:"server_id"`
}

type ReadProgressChanged struct {
	BookID string `json:"book_id"`
	UserID string `json:"user_id"`
}

func (SeriesDeleted) Type() string       { return "series_deleted" }
func (BookAdded) Type() string           { return "book_added" }
func (BookChanged) Type() string         { return "book_changed" }
func (BookDeleted) Type() string         { return "book_deleted" }
func (LibraryChanged) Type() string      { return "library_changed" }
func (LibraryDeleted) Type() string      { return "library_deleted" }
func (UserDeleted) Type() string         { return "user_deleted" }
func (ServerDeleted) Type() string       { return "server_deleted" }
func (ReadProgressChanged) Type() string { return "read_progress_changed" }

func (SeriesDeleted) isEvent()       {}
func (BookAdded) isEvent()           {}
func (BookChanged) isEvent()         {}
func (BookDeleted) isEvent()         {}
func (LibraryChanged) isEvent()      {}
func (LibraryDeleted) isEvent()      {}
func (UserDeleted) isEvent()         {}
func (ServerDeleted) isEvent()       {}
func (ReadProgressChanged) isEvent() {}

// DownloadEvent is the lifecycle of one book download: any number of
// DownloadProgress followed by at most one DownloadCompleted or
// DownloadError. A cancelled download ends without a terminal event.
type DownloadEvent interface {
	Event
	DownloadBookID() string
	isDownloadEvent()
}

type DownloadProgress struct {
	Book           *catalog.Book `json:"book"`
	TotalBytes     int64         `json:"total_bytes"`
	CompletedBytes int64         `json:"completed_bytes"`
}

// TotalKnown reports whether the server announced the content length.
// TotalBytes is 0 otherwise.
func (p DownloadProgress) TotalKnown() bool {
	return p.TotalBytes > 0
}

type DownloadCompleted struct {
	Book *catalog.Book `json:"book"`
}

type DownloadError struct {
	BookID string
	Book   *catalog.Book // nil when the failure happened before metadata was fetched
	Err    error
}

func (DownloadProgress) Type() string  { return "download_progress" }
func (DownloadCompleted) Type() string { return "download_completed" }
func (DownloadError) Type() string     { return "download_error" }

func (DownloadProgress) isEvent()  {}
func (DownloadCompleted) isEvent() {}
func (DownloadError) isEvent()     {}

func (DownloadProgress) isDownloadEvent()  {}
func (DownloadCompleted) isDownloadEvent() {}
func (DownloadError) isDownloadEvent()     {}

func (p DownloadProgress) DownloadBookID() string  { return p.Book.ID }
func (c DownloadCompleted) DownloadBookID() string { return c.Book.ID }
func (e DownloadError) DownloadBookID() string     { return e.BookID }

// Message returns the error text, or "" for a nil error.
func (e DownloadError) Message() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}
