package resolver

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"JamFM/core/music"
	"JamFM/model"
)

// ResolvedTrack is the platform-agnostic metadata a source resolver returns
// before the catalog assigns it a row.
type ResolvedTrack struct {
	Source       model.TrackSource
	SourceID     string
	Title        string
	Artist       string
	DurationMs   int64
	ThumbnailURL string
	OriginalURL  string
	// UploadedFileURL is set only for SourceUploaded tracks.
	UploadedFileURL string
	Metadata        model.JSONMap
}

// ResolvedPlaylist is a named set of resolved tracks.
type ResolvedPlaylist struct {
	Title  string
	Tracks []ResolvedTrack
}

// Result is either a single track or a playlist, never both.
type Result struct {
	Track    *ResolvedTrack
	Playlist *ResolvedPlaylist
}

// SourceResolver resolves URLs of one external platform into track metadata.
type SourceResolver interface {
	Resolve(ctx context.Context, url string) (*Result, error)
}

// URL patterns per source, matched case-insensitively against the raw URL.
var sourcePatterns = []struct {
	source   model.TrackSource
	patterns []*regexp.Regexp
}{
	{model.SourceYouTube, []*regexp.Regexp{
		regexp.MustCompile(`(?:youtube\.com/watch\?v=|youtu\.be/)([a-zA-Z0-9_-]{11})`),
		regexp.MustCompile(`youtube\.com/playlist\?list=([a-zA-Z0-9_-]+)`),
	}},
	{model.SourceSpotify, []*regexp.Regexp{
		regexp.MustCompile(`spotify\.com/track/([a-zA-Z0-9]+)`),
		regexp.MustCompile(`spotify\.com/playlist/([a-zA-Z0-9]+)`),
		regexp.MustCompile(`spotify\.com/album/([a-zA-Z0-9]+)`),
	}},
	{model.SourceAppleMusic, []*regexp.Regexp{
		regexp.MustCompile(`music\.apple\.com/[a-z]{2}/song/[^/]+/(\d+)`),
		regexp.MustCompile(`music\.apple\.com/[a-z]{2}/playlist/[^/]+/(pl\.[a-zA-Z0-9]+)`),
		regexp.MustCompile(`music\.apple\.com/[a-z]{2}/album/[^/]+/(\d+)`),
	}},
	{model.SourceSoundCloud, []*regexp.Regexp{
		regexp.MustCompile(`soundcloud\.com/[^/]+/sets/[^/]+`),
		regexp.MustCompile(`soundcloud\.com/[^/]+/[^/]+`),
	}},
}

// DetectSource reports which platform a URL belongs to, or "" when no
// pattern matches.
func DetectSource(url string) model.TrackSource {
	lower := strings.ToLower(url)
	for _, entry := range sourcePatterns {
		for _, p := range entry.patterns {
			if p.MatchString(lower) {
				return entry.source
			}
		}
	}
	return ""
}

// Resolver dispatches a URL to the matching platform resolver.
type Resolver struct {
	resolvers map[model.TrackSource]SourceResolver
}

// NewResolver builds the dispatch table. Platforms without a registered
// resolver fail with ErrUnsupportedSource at resolve time.
func NewResolver(resolvers map[model.TrackSource]SourceResolver) *Resolver {
	return &Resolver{resolvers: resolvers}
}

// Resolve detects the source platform of a URL and delegates.
func (r *Resolver) Resolve(ctx context.Context, url string) (*Result, error) {
	source := DetectSource(url)
	if source == "" {
		return nil, fmt.Errorf("%w: no platform pattern matches %q", music.ErrUnsupportedSource, url)
	}
	sr, ok := r.resolvers[source]
	if !ok {
		return nil, fmt.Errorf("%w: %s playback is not yet supported", music.ErrUnsupportedSource, source)
	}
	return sr.Resolve(ctx, url)
}
