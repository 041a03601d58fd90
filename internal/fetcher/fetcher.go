package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/arung-agamani/denpa-broadcast/internal/apierr"
	"github.com/arung-agamani/denpa-broadcast/internal/track"
)

// Sentinel errors a Fetcher may return; Resolver translates them to
// apierr kinds.
var (
	ErrUnsupported    = errors.New("fetcher: url not recognized")
	ErrTimeout        = errors.New("fetcher: startup timed out")
	ErrUpstream       = errors.New("fetcher: upstream failure")
	ErrCipherRequired = errors.New("fetcher: signature cipher required")
)

// Resolver dispatches a Track to the right per-source fetch policy.
type Resolver struct {
	YouTube    *YouTubeFetcher
	SoundCloud *SoundCloudFetcher
	Generic    *GenericFetcher
}

// NewResolver wires a default Resolver from cfg.
func NewResolver(cfg Config) *Resolver {
	generic := NewGenericFetcher()
	return &Resolver{
		YouTube:    NewYouTubeFetcher(cfg, generic),
		SoundCloud: NewSoundCloudFetcher(cfg.SoundCloudClientID, generic),
		Generic:    generic,
	}
}

// Fetch resolves t's URL into an AudioInput per the per-source policy
// described in spec §4.2, translating sentinel errors into apierr.Error so
// the engine and HTTP layer can react uniformly.
func (r *Resolver) Fetch(ctx context.Context, t *track.Track) (*AudioInput, error) {
	var (
		input *AudioInput
		err   error
	)
	switch t.Source {
	case track.SourceYouTube:
		input, err = r.YouTube.Fetch(ctx, t.URL)
	case track.SourceSoundCloud:
		input, err = r.SoundCloud.Fetch(ctx, t.URL)
	default:
		return nil, apierr.New(apierr.UnsupportedUrl, "unrecognized track source")
	}
	if err == nil {
		return input, nil
	}
	switch {
	case errors.Is(err, ErrUnsupported):
		return nil, apierr.Wrap(apierr.UnsupportedUrl, "url not recognized", err)
	case errors.Is(err, ErrTimeout):
		return nil, apierr.Wrap(apierr.Timeout, "fetcher startup timed out", err)
	case errors.Is(err, ErrUpstream):
		return nil, apierr.Wrap(apierr.UpstreamFailure, "upstream fetch failed", err)
	default:
		return nil, apierr.Wrap(apierr.Internal, "fetch failed", err)
	}
}

// Config carries every fetcher-related configuration key named in spec §6.
type Config struct {
	SoundCloudClientID     string
	YouTubeCookie          string
	YouTubeCookieFile      string
	YouTubeUserAgent       string
	ExternalFetcherFormat  string
	DisableExternalFetcher bool
	ExternalFetcherFirst   bool
}

// IdentifySource classifies a raw URL as youtube, soundcloud, or unsupported.
func IdentifySource(rawURL string) (track.Source, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	host := strings.ToLower(u.Hostname())
	switch {
	case isYouTubeHost(host):
		return track.SourceYouTube, nil
	case isSoundCloudHost(host):
		return track.SourceSoundCloud, nil
	default:
		return "", ErrUnsupported
	}
}

func isYouTubeHost(host string) bool {
	switch host {
	case "youtube.com", "www.youtube.com", "m.youtube.com", "music.youtube.com", "youtu.be":
		return true
	default:
		return false
	}
}

func isSoundCloudHost(host string) bool {
	switch host {
	case "soundcloud.com", "www.soundcloud.com", "m.soundcloud.com":
		return true
	default:
		return false
	}
}

// NormalizeURL strips timestamp query parameters and fragments from YouTube
// URLs so playback always starts at 0. Non-YouTube URLs pass through
// unchanged. Applied at enqueue time.
func NormalizeURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	if !isYouTubeHost(strings.ToLower(u.Hostname())) {
		return rawURL
	}

	q := u.Query()
	for _, key := range []string{"t", "start", "time_continue", "timestamp"} {
		q.Del(key)
	}
	u.RawQuery = q.Encode()

	if strings.HasPrefix(u.Fragment, "t=") || strings.HasPrefix(u.Fragment, "time_continue=") {
		u.Fragment = ""
	}
	return u.String()
}
