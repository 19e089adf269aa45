package actions

import (
	"context"
	"fmt"
	"strings"

	"github.com/mrlokans/offlinemirror/internal/entities"
)

type authorKey struct {
	role string
	name string
}

// SeriesAggregateBookMetadata recomputes the series summary from its books
// and upserts the single aggregation row. A series that no longer exists
// loses its row instead.
func (a *Actions) SeriesAggregateBookMetadata(ctx context.Context, seriesID string) error {
	return a.tx.Execute(ctx, func(ctx context.Context) error {
		s, err := a.series.Find(ctx, seriesID)
		if err != nil {
			return fmt.Errorf("find series: %w", err)
		}
		if s == nil {
			return a.aggregation.Delete(ctx, seriesID)
		}

		seriesBooks, err := a.books.FindBySeriesID(ctx, seriesID)
		if err != nil {
			return fmt.Errorf("find series books: %w", err)
		}
		if err := a.aggregation.Save(ctx, Aggregate(seriesID, seriesBooks)); err != nil {
			return fmt.Errorf("save aggregation: %w", err)
		}
		return nil
	})
}

// Aggregate folds book metadata into one aggregation row: authors deduped by
// role and name, the union of tags, the earliest release date, and the
// summary of the lowest-sorted book that has one.
func Aggregate(seriesID string, seriesBooks []entities.OfflineBook) *entities.OfflineBookMetadataAggregation {
	agg := &entities.OfflineBookMetadataAggregation{SeriesID: seriesID}

	seenAuthors := make(map[authorKey]bool)
	seenTags := make(map[string]bool)
	summarySort := 0.0
	haveSummary := false

	for _, b := range seriesBooks {
		meta := b.Metadata
		for _, au := range meta.Authors {
			key := authorKey{role: au.Role, name: au.Name}
			if seenAuthors[key] {
				continue
			}
			seenAuthors[key] = true
			agg.Authors = append(agg.Authors, entities.OfflineAggregationAuthor{Name: au.Name, Role: au.Role})
		}

		for _, tag := range meta.Tags {
			if seenTags[tag] {
				continue
			}
			seenTags[tag] = true
			agg.Tags = append(agg.Tags, entities.OfflineAggregationTag{Tag: tag})
		}

		if meta.ReleaseDate != nil && (agg.ReleaseDate == nil || meta.ReleaseDate.Before(*agg.ReleaseDate)) {
			released := *meta.ReleaseDate
			agg.ReleaseDate = &released
		}

		if strings.TrimSpace(meta.Summary) != "" && (!haveSummary || meta.NumberSort < summarySort) {
			haveSummary = true
			summarySort = meta.NumberSort
			agg.Summary = meta.Summary
			agg.SummaryNumber = meta.Number
		}
	}
	return agg
}
