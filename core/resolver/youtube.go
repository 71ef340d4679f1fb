package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"JamFM/core/music"
	"JamFM/model"
)

var (
	ytVideoID    = regexp.MustCompile(`(?:v=|/|be/)([a-zA-Z0-9_-]{11})`)
	ytPlaylistID = regexp.MustCompile(`[?&]list=([a-zA-Z0-9_-]+)`)
	isoDuration  = regexp.MustCompile(`PT(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?`)
)

// YouTubeResolver resolves video and playlist URLs through the YouTube Data
// API v3.
type YouTubeResolver struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewYouTubeResolver 创建新的API客户端
func NewYouTubeResolver(apiKey string) *YouTubeResolver {
	return &YouTubeResolver{
		apiKey:  apiKey,
		baseURL: "https://www.googleapis.com/youtube/v3",
		httpClient: &http.Client{
			Timeout: time.Second * 10,
		},
	}
}

// SetBaseURL 设置API基础URL
func (r *YouTubeResolver) SetBaseURL(base string) {
	r.baseURL = base
}

type ytThumbnail struct {
	URL string `json:"url"`
}

type ytSnippet struct {
	Title        string `json:"title"`
	ChannelID    string `json:"channelId"`
	ChannelTitle string `json:"channelTitle"`
	PublishedAt  string `json:"publishedAt"`
	Thumbnails   struct {
		Default ytThumbnail `json:"default"`
		High    ytThumbnail `json:"high"`
	} `json:"thumbnails"`
}

type ytContentDetails struct {
	Duration string `json:"duration"`
	VideoID  string `json:"videoId"`
}

type ytItem struct {
	ID             string           `json:"id"`
	Snippet        ytSnippet        `json:"snippet"`
	ContentDetails ytContentDetails `json:"contentDetails"`
}

type ytListResponse struct {
	Items []ytItem `json:"items"`
}

// Resolve resolves a watch or playlist URL. The API key must be configured;
// its absence is a resolution failure, not a crash.
func (r *YouTubeResolver) Resolve(ctx context.Context, rawURL string) (*Result, error) {
	if r.apiKey == "" {
		return nil, fmt.Errorf("%w: YouTube API key not configured", music.ErrResolutionFailed)
	}

	if m := ytPlaylistID.FindStringSubmatch(rawURL); m != nil {
		return r.resolvePlaylist(ctx, m[1])
	}

	m := ytVideoID.FindStringSubmatch(rawURL)
	if m == nil {
		return nil, fmt.Errorf("%w: invalid YouTube URL", music.ErrUnsupportedSource)
	}
	return r.resolveVideo(ctx, m[1])
}

func (r *YouTubeResolver) resolveVideo(ctx context.Context, videoID string) (*Result, error) {
	var resp ytListResponse
	err := r.getJSON(ctx, "/videos", url.Values{
		"id":   {videoID},
		"part": {"snippet,contentDetails"},
	}, &resp)
	if err != nil {
		return nil, err
	}
	if len(resp.Items) == 0 {
		return nil, fmt.Errorf("%w: video not found", music.ErrResolutionFailed)
	}

	video := resp.Items[0]
	track := ResolvedTrack{
		Source:       model.SourceYouTube,
		SourceID:     videoID,
		Title:        video.Snippet.Title,
		Artist:       video.Snippet.ChannelTitle,
		DurationMs:   parseISODuration(video.ContentDetails.Duration),
		ThumbnailURL: pickThumbnail(video.Snippet),
		OriginalURL:  "https://www.youtube.com/watch?v=" + videoID,
		Metadata: model.JSONMap{
			"channelId":   video.Snippet.ChannelID,
			"publishedAt": video.Snippet.PublishedAt,
		},
	}
	return &Result{Track: &track}, nil
}

func (r *YouTubeResolver) resolvePlaylist(ctx context.Context, playlistID string) (*Result, error) {
	var resp ytListResponse
	err := r.getJSON(ctx, "/playlistItems", url.Values{
		"playlistId": {playlistID},
		"part":       {"snippet,contentDetails"},
		"maxResults": {"50"},
	}, &resp)
	if err != nil {
		return nil, err
	}
	if len(resp.Items) == 0 {
		return nil, fmt.Errorf("%w: playlist is empty or not found", music.ErrResolutionFailed)
	}

	// Durations come from a second call against the videos endpoint.
	ids := make([]string, 0, len(resp.Items))
	for _, item := range resp.Items {
		ids = append(ids, item.ContentDetails.VideoID)
	}
	var videos ytListResponse
	err = r.getJSON(ctx, "/videos", url.Values{
		"id":   {strings.Join(ids, ",")},
		"part": {"contentDetails"},
	}, &videos)
	if err != nil {
		return nil, err
	}
	durations := make(map[string]int64, len(videos.Items))
	for _, v := range videos.Items {
		durations[v.ID] = parseISODuration(v.ContentDetails.Duration)
	}

	tracks := make([]ResolvedTrack, 0, len(resp.Items))
	for _, item := range resp.Items {
		videoID := item.ContentDetails.VideoID
		tracks = append(tracks, ResolvedTrack{
			Source:       model.SourceYouTube,
			SourceID:     videoID,
			Title:        item.Snippet.Title,
			Artist:       item.Snippet.ChannelTitle,
			DurationMs:   durations[videoID],
			ThumbnailURL: pickThumbnail(item.Snippet),
			OriginalURL:  "https://www.youtube.com/watch?v=" + videoID,
		})
	}

	title := "YouTube Playlist"
	if t := resp.Items[0].Snippet.ChannelTitle; t != "" {
		title = t
	}
	return &Result{Playlist: &ResolvedPlaylist{Title: title, Tracks: tracks}}, nil
}

func (r *YouTubeResolver) getJSON(ctx context.Context, path string, query url.Values, out interface{}) error {
	query.Set("key", r.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return fmt.Errorf("%w: %v", music.ErrResolutionFailed, err)
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: YouTube API request failed: %v", music.ErrResolutionFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: YouTube API error: %s", music.ErrResolutionFailed, resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: failed to decode YouTube response: %v", music.ErrResolutionFailed, err)
	}
	return nil
}

func pickThumbnail(s ytSnippet) string {
	if s.Thumbnails.High.URL != "" {
		return s.Thumbnails.High.URL
	}
	return s.Thumbnails.Default.URL
}

// parseISODuration converts an ISO-8601 duration (PT1H2M10S) to milliseconds.
func parseISODuration(d string) int64 {
	m := isoDuration.FindStringSubmatch(d)
	if m == nil {
		return 0
	}
	hours, _ := strconv.Atoi(zeroIfEmpty(m[1]))
	minutes, _ := strconv.Atoi(zeroIfEmpty(m[2]))
	seconds, _ := strconv.Atoi(zeroIfEmpty(m[3]))
	return int64(hours*3600+minutes*60+seconds) * 1000
}

func zeroIfEmpty(s string) string {
	if s == "" {
		return "0"
	}
	return s
}
