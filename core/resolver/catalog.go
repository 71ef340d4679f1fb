package resolver

import (
	"context"
	"errors"
	"fmt"

	"JamFM/logger"
	"JamFM/model"
	"JamFM/repository"
)

// CatalogResult is a catalog lookup/insert result: one track or a playlist.
type CatalogResult struct {
	Type     string       `json:"type"`
	Track    *model.Track `json:"track,omitempty"`
	Playlist *CatalogList `json:"playlist,omitempty"`
}

// CatalogList is a resolved playlist with its member tracks catalogued.
type CatalogList struct {
	Title  string         `json:"title"`
	Tracks []*model.Track `json:"tracks"`
}

// Catalog resolves URLs into canonical track rows: each resolved track is
// looked up by (source, sourceId) and only inserted when absent, so repeated
// adds of the same media share one record. Inserts here are the catalog's
// only persistent writes.
type Catalog struct {
	resolver *Resolver
	tracks   repository.TrackRepository
}

// NewCatalog wires a Catalog over a URL resolver and the track repository.
func NewCatalog(resolver *Resolver, tracks repository.TrackRepository) *Catalog {
	return &Catalog{resolver: resolver, tracks: tracks}
}

// Resolve resolves a raw URL into catalogued tracks.
func (c *Catalog) Resolve(ctx context.Context, url string) (*CatalogResult, error) {
	result, err := c.resolver.Resolve(ctx, url)
	if err != nil {
		return nil, err
	}

	if result.Track != nil {
		track, err := c.upsert(ctx, *result.Track)
		if err != nil {
			return nil, err
		}
		return &CatalogResult{Type: "track", Track: track}, nil
	}

	tracks := make([]*model.Track, 0, len(result.Playlist.Tracks))
	for _, resolved := range result.Playlist.Tracks {
		track, err := c.upsert(ctx, resolved)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, track)
	}
	return &CatalogResult{
		Type:     "playlist",
		Playlist: &CatalogList{Title: result.Playlist.Title, Tracks: tracks},
	}, nil
}

// Register catalogues one already-resolved track, such as an uploaded file.
func (c *Catalog) Register(ctx context.Context, resolved ResolvedTrack) (*model.Track, error) {
	return c.upsert(ctx, resolved)
}

// upsert looks a track up by (source, sourceId) and inserts it if absent.
// Two concurrent resolutions of the same media can race into a duplicate-key
// failure; that is recovered by re-reading the winner's row, never surfaced.
func (c *Catalog) upsert(ctx context.Context, resolved ResolvedTrack) (*model.Track, error) {
	existing, err := c.tracks.GetBySource(ctx, resolved.Source, resolved.SourceID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	track := &model.Track{
		Source:          resolved.Source,
		SourceID:        resolved.SourceID,
		Title:           resolved.Title,
		Artist:          resolved.Artist,
		DurationMs:      resolved.DurationMs,
		ThumbnailURL:    resolved.ThumbnailURL,
		OriginalURL:     resolved.OriginalURL,
		UploadedFileURL: resolved.UploadedFileURL,
		Metadata:        resolved.Metadata,
	}
	err = c.tracks.Create(ctx, track)
	if err == nil {
		logger.Info("track catalogued",
			logger.String("trackId", track.ID),
			logger.String("source", string(track.Source)),
			logger.String("title", track.Title))
		return track, nil
	}
	if errors.Is(err, repository.ErrDuplicate) {
		winner, rerr := c.tracks.GetBySource(ctx, resolved.Source, resolved.SourceID)
		if rerr != nil {
			return nil, rerr
		}
		if winner == nil {
			return nil, fmt.Errorf("catalog row vanished after duplicate insert of %s/%s", resolved.Source, resolved.SourceID)
		}
		return winner, nil
	}
	return nil, err
}
