package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

const soundCloudResolveEndpoint = "https://api-v2.soundcloud.com/resolve"

// SoundCloudFetcher resolves a SoundCloud track URL through the provider's
// resolve API and falls back to the generic HTTP fetcher on any failure, per
// spec §4.2. Playlists are rejected.
type SoundCloudFetcher struct {
	clientID string
	client   *http.Client
	generic  *GenericFetcher
}

// NewSoundCloudFetcher builds a SoundCloudFetcher. If clientID is empty,
// Fetch always fails with ErrUnsupported; the 503 FeatureDisabled response
// comes from the HTTP layer checking Enabled before enqueueing.
func NewSoundCloudFetcher(clientID string, generic *GenericFetcher) *SoundCloudFetcher {
	return &SoundCloudFetcher{clientID: clientID, client: &http.Client{}, generic: generic}
}

type scResolveResponse struct {
	Kind          string `json:"kind"`
	Title         string `json:"title"`
	Duration      int    `json:"duration"`
	ArtworkURL    string `json:"artwork_url"`
	Transcodings  []scTranscoding `json:"transcodings"`
	Media         struct {
		Transcodings []scTranscoding `json:"transcodings"`
	} `json:"media"`
}

type scTranscoding struct {
	URL     string `json:"url"`
	Preset  string `json:"preset"`
	Format  struct {
		Protocol string `json:"protocol"`
		MimeType string `json:"mime_type"`
	} `json:"format"`
}

// Enabled reports whether a SoundCloud client id was configured. Callers
// should surface a FeatureDisabled response rather than attempting Fetch
// when this is false.
func (f *SoundCloudFetcher) Enabled() bool { return f.clientID != "" }

// Fetch resolves rawURL into an AudioInput.
func (f *SoundCloudFetcher) Fetch(ctx context.Context, rawURL string) (*AudioInput, error) {
	if f.clientID == "" {
		return nil, fmt.Errorf("%w: soundcloud disabled (no client id configured)", ErrUnsupported)
	}

	resolved, err := f.resolve(ctx, rawURL)
	if err != nil {
		return f.generic.Fetch(ctx, rawURL, nil)
	}
	if resolved.Kind == "playlist" {
		return nil, fmt.Errorf("%w: soundcloud playlists are not supported", ErrUnsupported)
	}

	transcoding := pickTranscoding(resolved.Media.Transcodings)
	if transcoding == nil {
		return f.generic.Fetch(ctx, rawURL, nil)
	}

	streamURL, err := f.resolveStreamURL(ctx, transcoding.URL)
	if err != nil {
		return f.generic.Fetch(ctx, rawURL, nil)
	}

	return &AudioInput{Kind: InputURL, URL: streamURL, IsHLS: transcoding.Format.Protocol == "hls"}, nil
}

// Metadata returns the title/duration/artwork for rawURL, used by the
// metadata resolver that runs at enqueue time.
func (f *SoundCloudFetcher) Metadata(ctx context.Context, rawURL string) (title string, duration int, thumbnail string, err error) {
	resolved, err := f.resolve(ctx, rawURL)
	if err != nil {
		return "", 0, "", err
	}
	if resolved.Kind == "playlist" {
		return "", 0, "", fmt.Errorf("%w: soundcloud playlists are not supported", ErrUnsupported)
	}
	secs := resolved.Duration / 1000
	if secs <= 0 {
		return "", 0, "", fmt.Errorf("%w: track has no known duration", ErrUnsupported)
	}
	return resolved.Title, secs, resolved.ArtworkURL, nil
}

func (f *SoundCloudFetcher) resolve(ctx context.Context, rawURL string) (*scResolveResponse, error) {
	u, _ := url.Parse(soundCloudResolveEndpoint)
	q := u.Query()
	q.Set("url", rawURL)
	q.Set("client_id", f.clientID)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: resolve status %d", ErrUpstream, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	var out scResolveResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// resolveStreamURL performs the second-hop request SoundCloud's progressive
// / hls transcoding URLs require: they return a JSON envelope containing the
// actual CDN URL.
func (f *SoundCloudFetcher) resolveStreamURL(ctx context.Context, transcodingURL string) (string, error) {
	u, err := url.Parse(transcodingURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("client_id", f.clientID)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: stream resolve status %d", ErrUpstream, resp.StatusCode)
	}

	var out struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if out.URL == "" {
		return "", fmt.Errorf("%w: empty stream url", ErrUpstream)
	}
	return out.URL, nil
}

// pickTranscoding prefers progressive over hls, since progressive yields a
// direct byte stream the encoder can consume without an HLS protocol
// allowlist.
func pickTranscoding(transcodings []scTranscoding) *scTranscoding {
	var hls *scTranscoding
	for i := range transcodings {
		t := &transcodings[i]
		if t.Format.Protocol == "progressive" {
			return t
		}
		if t.Format.Protocol == "hls" && hls == nil {
			hls = t
		}
	}
	return hls
}
