package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
)

// ytInProcessClient is the "fast in-process client" strategy from spec
// §4.2: it fetches the watch page directly and, when the player response
// exposes a bare (non-ciphered) adaptive audio URL, opens it itself. It
// deliberately does not attempt signature deciphering — within its 5 second
// budget that is not worth the complexity, so it reports ErrCipherRequired
// and lets the caller fall back to the yt-dlp subprocess.
type ytInProcessClient struct {
	userAgent string
	cookie    string
	client    *http.Client
}

func newYTInProcessClient(userAgent, cookie string) *ytInProcessClient {
	return &ytInProcessClient{userAgent: userAgent, cookie: cookie, client: &http.Client{}}
}

var playerResponseRe = regexp.MustCompile(`ytInitialPlayerResponse\s*=\s*(\{.*?\});`)

type ytPlayerResponse struct {
	StreamingData struct {
		AdaptiveFormats []ytFormat `json:"adaptiveFormats"`
	} `json:"streamingData"`
	PlayabilityStatus struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	} `json:"playabilityStatus"`
}

type ytFormat struct {
	URL              string `json:"url"`
	SignatureCipher  string `json:"signatureCipher"`
	MimeType         string `json:"mimeType"`
	Bitrate          int    `json:"bitrate"`
	AudioQuality     string `json:"audioQuality"`
	ApproxDurationMs string `json:"approxDurationMs"`
}

// Fetch pulls the watch page for rawURL and extracts a direct audio URL.
func (c *ytInProcessClient) Fetch(ctx context.Context, rawURL string) (*AudioInput, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if c.cookie != "" {
		req.Header.Set("Cookie", c.cookie)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	m := playerResponseRe.FindSubmatch(body)
	if m == nil {
		return nil, fmt.Errorf("%w: player response not found", ErrUpstream)
	}

	var player ytPlayerResponse
	if err := json.Unmarshal(m[1], &player); err != nil {
		return nil, fmt.Errorf("%w: player response parse: %v", ErrUpstream, err)
	}
	if player.PlayabilityStatus.Status != "" && player.PlayabilityStatus.Status != "OK" {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, player.PlayabilityStatus.Reason)
	}

	best := bestAudioFormat(player.StreamingData.AdaptiveFormats)
	if best == nil {
		return nil, fmt.Errorf("%w: no audio format available", ErrUpstream)
	}
	if best.URL == "" {
		return nil, ErrCipherRequired
	}

	headers := map[string]string{}
	if c.userAgent != "" {
		headers["User-Agent"] = c.userAgent
	}
	if c.cookie != "" {
		headers["Cookie"] = c.cookie
	}
	return &AudioInput{Kind: InputURL, URL: best.URL, Headers: headers}, nil
}

// bestAudioFormat considers only audio/* mime types, prefers formats with a
// bare URL over ones that need signature deciphering, and among those picks
// the highest bitrate; non-audio formats are ignored.
func bestAudioFormat(formats []ytFormat) *ytFormat {
	var best *ytFormat
	for i := range formats {
		f := &formats[i]
		if !isAudioMime(f.MimeType) {
			continue
		}
		bare, bestBare := f.URL != "", best != nil && best.URL != ""
		if best == nil || (bare && !bestBare) || (bare == bestBare && f.Bitrate > best.Bitrate) {
			best = f
		}
	}
	return best
}

func isAudioMime(mime string) bool {
	return len(mime) >= 6 && mime[:6] == "audio/"
}
