package books

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/offlinemirror/internal/database"
	"github.com/mrlokans/offlinemirror/internal/entities"
)

func setupTestDB(t *testing.T) (*Repository, *database.Database, func()) {
	t.Helper()
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "books.db"))
	require.NoError(t, err)
	return NewRepository(db.DB), db, func() { db.Close() }
}

func newBook(id, seriesID string, sort float64) *entities.OfflineBook {
	return &entities.OfflineBook{
		ID:               id,
		SeriesID:         seriesID,
		LibraryID:        "L1",
		Name:             "Book " + id,
		FileDownloadPath: "/downloads/" + seriesID + "/" + id + ".cbz",
		Metadata: entities.OfflineBookMetadata{
			Title:      "Book " + id,
			NumberSort: sort,
			Authors:    []entities.OfflineBookMetadataAuthor{{Name: "Ann", Role: "writer"}},
		},
	}
}

func TestRepository_SaveTwiceKeepsOneRow(t *testing.T) {
	repo, db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, newBook("B1", "S1", 1)))
	require.NoError(t, repo.Save(ctx, newBook("B1", "S1", 1)))

	var books, authors int64
	db.DB.Model(&entities.OfflineBook{}).Count(&books)
	db.DB.Model(&entities.OfflineBookMetadataAuthor{}).Count(&authors)
	assert.Equal(t, int64(1), books)
	assert.Equal(t, int64(1), authors)

	found, err := repo.Find(ctx, "B1")
	require.NoError(t, err)
	require.NotNil(t, found)
	require.Len(t, found.Metadata.Authors, 1)
	assert.Equal(t, "Ann", found.Metadata.Authors[0].Name)
}

func TestRepository_FindBySeriesIDOrderedBySort(t *testing.T) {
	repo, _, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, newBook("B1", "S1", 3)))
	require.NoError(t, repo.Save(ctx, newBook("B2", "S1", 1)))
	require.NoError(t, repo.Save(ctx, newBook("B3", "S2", 2)))

	result, err := repo.FindBySeriesID(ctx, "S1")
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, "B2", result[0].ID)
	assert.Equal(t, "B1", result[1].ID)
}

func TestRepository_FindAllNotDeletedSkipsTombstones(t *testing.T) {
	repo, _, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, newBook("B1", "S1", 1)))
	require.NoError(t, repo.Save(ctx, newBook("B2", "S1", 2)))
	deleted := newBook("B3", "S1", 3)
	deleted.Deleted = true
	require.NoError(t, repo.Save(ctx, deleted))

	n, err := repo.MarkRemoteUnavailable(ctx, "B2")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	result, err := repo.FindAllNotDeleted(ctx, "S1")
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, "B1", result[0].ID)

	tomb, err := repo.Find(ctx, "B2")
	require.NoError(t, err)
	assert.True(t, tomb.RemoteUnavailable)
	assert.Equal(t, "/downloads/S1/B2.cbz", tomb.FileDownloadPath)
}

func TestRepository_DeleteRemovesDependents(t *testing.T) {
	repo, db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, newBook("B1", "S1", 1)))
	require.NoError(t, repo.SaveMedia(ctx, &entities.OfflineMedia{BookID: "B1", PageCount: 20}))
	require.NoError(t, repo.ReplaceThumbnails(ctx, "B1", []entities.OfflineThumbnailBook{{ID: "T1", BookID: "B1"}}))

	require.NoError(t, repo.Delete(ctx, "B1"))

	for _, model := range []any{
		&entities.OfflineBook{}, &entities.OfflineBookMetadata{}, &entities.OfflineBookMetadataAuthor{},
		&entities.OfflineMedia{}, &entities.OfflineThumbnailBook{},
	} {
		var count int64
		db.DB.Model(model).Count(&count)
		assert.Zero(t, count, "%T rows left", model)
	}
}
