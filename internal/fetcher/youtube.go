package fetcher

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	inProcessStartupTimeout  = 5 * time.Second
	subprocessStartupTimeout = 90 * time.Second
)

// YouTubeFetcher implements the two-strategy resolution policy from spec
// §4.2: a fast in-process client tried first (5s budget), falling back to
// the yt-dlp subprocess (90s budget, since HLS fragment assembly is slow).
// disableExternalFetcher / externalFetcherFirst override which strategy (or
// both) is tried.
type YouTubeFetcher struct {
	cfg     Config
	generic *GenericFetcher
	inproc  *ytInProcessClient

	cookieOnce sync.Once
	cookiePath string
	cookieErr  error
}

// NewYouTubeFetcher builds a YouTubeFetcher from cfg.
func NewYouTubeFetcher(cfg Config, generic *GenericFetcher) *YouTubeFetcher {
	return &YouTubeFetcher{cfg: cfg, generic: generic, inproc: newYTInProcessClient(cfg.YouTubeUserAgent, cfg.YouTubeCookie)}
}

// Fetch resolves a YouTube URL into an AudioInput, per the fallback policy.
func (f *YouTubeFetcher) Fetch(ctx context.Context, rawURL string) (*AudioInput, error) {
	if f.cfg.ExternalFetcherFirst {
		return f.fetchSubprocess(ctx, rawURL)
	}

	inprocCtx, cancel := context.WithTimeout(ctx, inProcessStartupTimeout)
	input, err := f.inproc.Fetch(inprocCtx, rawURL)
	cancel()
	if err == nil {
		return input, nil
	}

	if f.cfg.DisableExternalFetcher {
		return nil, err
	}
	return f.fetchSubprocess(ctx, rawURL)
}

func (f *YouTubeFetcher) fetchSubprocess(ctx context.Context, rawURL string) (*AudioInput, error) {
	ctx, cancel := context.WithTimeout(ctx, subprocessStartupTimeout)
	defer cancel()

	args := []string{"--no-playlist", "-f", f.formatSelector(), "-g", rawURL}
	if path, err := f.cookieFile(); err == nil && path != "" {
		args = append([]string{"--cookies", path}, args...)
	}
	if f.cfg.YouTubeUserAgent != "" {
		args = append([]string{"--user-agent", f.cfg.YouTubeUserAgent}, args...)
	}

	out, err := exec.CommandContext(ctx, "yt-dlp", args...).Output()
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: yt-dlp: %v", ErrTimeout, err)
		}
		return nil, fmt.Errorf("%w: yt-dlp: %v", ErrUpstream, err)
	}

	streamURL := firstLine(out)
	if streamURL == "" {
		return nil, fmt.Errorf("%w: yt-dlp returned no stream url", ErrUpstream)
	}

	headers := map[string]string{}
	if f.cfg.YouTubeUserAgent != "" {
		headers["User-Agent"] = f.cfg.YouTubeUserAgent
	}
	return &AudioInput{
		Kind:    InputURL,
		URL:     streamURL,
		Headers: headers,
		IsHLS:   isHLSURL(streamURL),
	}, nil
}

func (f *YouTubeFetcher) formatSelector() string {
	if f.cfg.ExternalFetcherFormat != "" {
		return f.cfg.ExternalFetcherFormat
	}
	return "bestaudio[protocol!=m3u8]/bestaudio"
}

// cookieFile materializes configured YouTube cookies into a Netscape-format
// file once per process lifetime and caches the path, per spec §4.2/§5.
func (f *YouTubeFetcher) cookieFile() (string, error) {
	f.cookieOnce.Do(func() {
		if f.cfg.YouTubeCookieFile != "" {
			f.cookiePath = f.cfg.YouTubeCookieFile
			return
		}
		if f.cfg.YouTubeCookie == "" {
			return
		}
		dir := filepath.Join(os.TempDir(), "denpa-broadcast")
		if err := os.MkdirAll(dir, 0o700); err != nil {
			f.cookieErr = err
			return
		}
		path := filepath.Join(dir, "youtube-cookies.txt")
		content := "# Netscape HTTP Cookie File\n" + f.cfg.YouTubeCookie + "\n"
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			f.cookieErr = err
			return
		}
		f.cookiePath = path
	})
	return f.cookiePath, f.cookieErr
}

func firstLine(b []byte) string {
	for i, c := range b {
		if c == '\n' {
			return string(b[:i])
		}
	}
	return string(b)
}

func isHLSURL(u string) bool {
	return strings.Contains(u, ".m3u8") || strings.Contains(u, "manifest")
}
