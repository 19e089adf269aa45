package catalog

import (
	"strings"
	"time"
)

const releaseDateLayout = "2006-01-02"

type User struct {
	ID                 string          `json:"id"`
	Email              string          `json:"email"`
	Roles              []string        `json:"roles"`
	SharedAllLibraries bool            `json:"sharedAllLibraries"`
	SharedLibrariesIDs []string        `json:"sharedLibrariesIds"`
	AgeRestriction     *AgeRestriction `json:"ageRestriction,omitempty"`
}

type AgeRestriction struct {
	Age         int    `json:"age"`
	Restriction string `json:"restriction"`
}

type Library struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Root        string `json:"root"`
	Unavailable bool   `json:"unavailable"`
}

type Series struct {
	ID           string         `json:"id"`
	LibraryID    string         `json:"libraryId"`
	Name         string         `json:"name"`
	URL          string         `json:"url"`
	BooksCount   int            `json:"booksCount"`
	Deleted      bool           `json:"deleted"`
	Oneshot      bool           `json:"oneshot"`
	Created      time.Time      `json:"created"`
	LastModified time.Time      `json:"lastModified"`
	Metadata     SeriesMetadata `json:"metadata"`
}

type SeriesMetadata struct {
	Status    string   `json:"status"`
	Title     string   `json:"title"`
	TitleSort string   `json:"titleSort"`
	Summary   string   `json:"summary"`
	Publisher string   `json:"publisher"`
	Language  string   `json:"language"`
	Genres    []string `json:"genres"`
	Tags      []string `json:"tags"`
}

type Book struct {
	ID               string        `json:"id"`
	SeriesID         string        `json:"seriesId"`
	SeriesTitle      string        `json:"seriesTitle"`
	LibraryID        string        `json:"libraryId"`
	Name             string        `json:"name"`
	URL              string        `json:"url"`
	Number           int           `json:"number"`
	Created          time.Time     `json:"created"`
	LastModified     time.Time     `json:"lastModified"`
	FileLastModified time.Time     `json:"fileLastModified"`
	SizeBytes        int64         `json:"sizeBytes"`
	Media            Media         `json:"media"`
	Metadata         BookMetadata  `json:"metadata"`
	ReadProgress     *ReadProgress `json:"readProgress,omitempty"`
	Deleted          bool          `json:"deleted"`
	Oneshot          bool          `json:"oneshot"`
}

// FileName is the last path element of the book's remote URL.
func (b *Book) FileName() string {
	name := b.URL
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	if name == "" {
		name = b.ID
	}
	return name
}

// Title prefers the metadata title over the file name.
func (b *Book) Title() string {
	if b.Metadata.Title != "" {
		return b.Metadata.Title
	}
	return b.Name
}

type Media struct {
	Status       string `json:"status"`
	MediaType    string `json:"mediaType"`
	MediaProfile string `json:"mediaProfile"`
	PagesCount   int    `json:"pagesCount"`
}

type BookMetadata struct {
	Title       string   `json:"title"`
	Summary     string   `json:"summary"`
	Number      string   `json:"number"`
	NumberSort  float64  `json:"numberSort"`
	ReleaseDate string   `json:"releaseDate,omitempty"`
	Authors     []Author `json:"authors"`
	Tags        []string `json:"tags"`
	ISBN        string   `json:"isbn"`
}

// Released parses ReleaseDate. It returns nil when the date is absent or
// malformed.
func (m BookMetadata) Released() *time.Time {
	if m.ReleaseDate == "" {
		return nil
	}
	t, err := time.Parse(releaseDateLayout, m.ReleaseDate)
	if err != nil {
		return nil
	}
	return &t
}

type Author struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

type ReadProgress struct {
	Page         int       `json:"page"`
	Completed    bool      `json:"completed"`
	ReadDate     time.Time `json:"readDate"`
	Created      time.Time `json:"created"`
	LastModified time.Time `json:"lastModified"`
	DeviceID     string    `json:"deviceId"`
	DeviceName   string    `json:"deviceName"`
}

// ReadProgressUpdate is the PATCH body for a book's read progress.
type ReadProgressUpdate struct {
	Page      *int  `json:"page,omitempty"`
	Completed *bool `json:"completed,omitempty"`
}

type Thumbnail struct {
	MediaType string
	Data      []byte
}
