package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	genericHopTimeout  = 10 * time.Second
	genericMaxRedirect = 5
)

// GenericFetcher is the last-resort fallback: it follows redirects (capped)
// and accepts any response whose content-type looks like audio, yielding a
// raw byte stream the encoder reads from its stdin.
type GenericFetcher struct {
	client *http.Client
}

// NewGenericFetcher returns a GenericFetcher with the per-hop timeout and
// redirect cap required by spec §4.2/§5. The timeout bounds how long each
// hop may take to return its response headers; reading the audio body is
// not time-limited.
func NewGenericFetcher() *GenericFetcher {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = genericHopTimeout
	return &GenericFetcher{
		client: &http.Client{
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) > genericMaxRedirect {
					return fmt.Errorf("%w: too many redirects", ErrUpstream)
				}
				return nil
			},
		},
	}
}

// Fetch issues a GET against rawURL and, if the response looks like audio,
// returns its body as an AudioInput stream. headers, if non-nil, are added
// to the request; the SoundCloud adapter's fallback passes none.
func (g *GenericFetcher) Fetch(ctx context.Context, rawURL string, headers map[string]string) (*AudioInput, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}

	ct := strings.ToLower(resp.Header.Get("Content-Type"))
	if ct != "" && !strings.HasPrefix(ct, "audio/") && !strings.Contains(ct, "mpegurl") && !strings.Contains(ct, "octet-stream") {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: unexpected content-type %q", ErrUpstream, ct)
	}

	return &AudioInput{Kind: InputStream, Stream: resp.Body}, nil
}
