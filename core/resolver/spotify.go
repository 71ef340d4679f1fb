package resolver

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"JamFM/core/music"
	"JamFM/model"
)

var (
	spTrackID    = regexp.MustCompile(`track/([a-zA-Z0-9]+)`)
	spPlaylistID = regexp.MustCompile(`playlist/([a-zA-Z0-9]+)`)
)

// SpotifyResolver resolves track and playlist URLs through the Spotify Web
// API using the client-credentials flow.
type SpotifyResolver struct {
	clientID     string
	clientSecret string
	apiURL       string
	tokenURL     string
	httpClient   *http.Client
}

// NewSpotifyResolver 创建新的API客户端
func NewSpotifyResolver(clientID, clientSecret string) *SpotifyResolver {
	return &SpotifyResolver{
		clientID:     clientID,
		clientSecret: clientSecret,
		apiURL:       "https://api.spotify.com/v1",
		tokenURL:     "https://accounts.spotify.com/api/token",
		httpClient: &http.Client{
			Timeout: time.Second * 10,
		},
	}
}

// SetBaseURLs 设置API基础URL
func (r *SpotifyResolver) SetBaseURLs(apiURL, tokenURL string) {
	r.apiURL = apiURL
	r.tokenURL = tokenURL
}

type spArtist struct {
	Name string `json:"name"`
}

type spAlbum struct {
	Name        string `json:"name"`
	ReleaseDate string `json:"release_date"`
	Images      []struct {
		URL string `json:"url"`
	} `json:"images"`
}

type spTrack struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	URI          string     `json:"uri"`
	DurationMs   int64      `json:"duration_ms"`
	Artists      []spArtist `json:"artists"`
	Album        spAlbum    `json:"album"`
	ExternalURLs struct {
		Spotify string `json:"spotify"`
	} `json:"external_urls"`
}

type spPlaylist struct {
	Name   string `json:"name"`
	Tracks struct {
		Items []struct {
			Track spTrack `json:"track"`
		} `json:"items"`
	} `json:"tracks"`
}

// Resolve resolves a Spotify track or playlist URL. Missing credentials are
// a resolution failure.
func (r *SpotifyResolver) Resolve(ctx context.Context, rawURL string) (*Result, error) {
	if r.clientID == "" || r.clientSecret == "" {
		return nil, fmt.Errorf("%w: Spotify API credentials not configured", music.ErrResolutionFailed)
	}

	token, err := r.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	if m := spTrackID.FindStringSubmatch(rawURL); m != nil {
		return r.resolveTrack(ctx, m[1], token)
	}
	if m := spPlaylistID.FindStringSubmatch(rawURL); m != nil {
		return r.resolvePlaylist(ctx, m[1], token)
	}
	return nil, fmt.Errorf("%w: invalid Spotify URL", music.ErrUnsupportedSource)
}

func (r *SpotifyResolver) accessToken(ctx context.Context) (string, error) {
	body := strings.NewReader("grant_type=client_credentials")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.tokenURL, body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", music.ErrResolutionFailed, err)
	}
	creds := base64.StdEncoding.EncodeToString([]byte(r.clientID + ":" + r.clientSecret))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Basic "+creds)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: Spotify token request failed: %v", music.ErrResolutionFailed, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: failed to get Spotify access token: %s", music.ErrResolutionFailed, resp.Status)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("%w: failed to decode Spotify token: %v", music.ErrResolutionFailed, err)
	}
	return payload.AccessToken, nil
}

func (r *SpotifyResolver) resolveTrack(ctx context.Context, trackID, token string) (*Result, error) {
	var track spTrack
	if err := r.getJSON(ctx, "/tracks/"+url.PathEscape(trackID), token, &track); err != nil {
		return nil, err
	}
	resolved := toResolvedSpotifyTrack(track)
	resolved.Metadata = model.JSONMap{
		"album":       track.Album.Name,
		"releaseDate": track.Album.ReleaseDate,
		"uri":         track.URI,
	}
	return &Result{Track: &resolved}, nil
}

func (r *SpotifyResolver) resolvePlaylist(ctx context.Context, playlistID, token string) (*Result, error) {
	var playlist spPlaylist
	if err := r.getJSON(ctx, "/playlists/"+url.PathEscape(playlistID), token, &playlist); err != nil {
		return nil, err
	}
	tracks := make([]ResolvedTrack, 0, len(playlist.Tracks.Items))
	for _, item := range playlist.Tracks.Items {
		resolved := toResolvedSpotifyTrack(item.Track)
		resolved.Metadata = model.JSONMap{"uri": item.Track.URI}
		tracks = append(tracks, resolved)
	}
	return &Result{Playlist: &ResolvedPlaylist{Title: playlist.Name, Tracks: tracks}}, nil
}

func (r *SpotifyResolver) getJSON(ctx context.Context, path, token string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.apiURL+path, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", music.ErrResolutionFailed, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: Spotify API request failed: %v", music.ErrResolutionFailed, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: Spotify API error: %s", music.ErrResolutionFailed, resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: failed to decode Spotify response: %v", music.ErrResolutionFailed, err)
	}
	return nil
}

func toResolvedSpotifyTrack(track spTrack) ResolvedTrack {
	artists := make([]string, 0, len(track.Artists))
	for _, a := range track.Artists {
		artists = append(artists, a.Name)
	}
	thumbnail := ""
	if len(track.Album.Images) > 0 {
		thumbnail = track.Album.Images[0].URL
	}
	return ResolvedTrack{
		Source:       model.SourceSpotify,
		SourceID:     track.ID,
		Title:        track.Name,
		Artist:       strings.Join(artists, ", "),
		DurationMs:   track.DurationMs,
		ThumbnailURL: thumbnail,
		OriginalURL:  track.ExternalURLs.Spotify,
	}
}
