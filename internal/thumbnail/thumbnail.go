// Package thumbnail proxies the current track's cached thumbnail URL,
// re-encoding it to PNG (and, for SoundCloud, resizing to a 256x256
// cover-fit crop) so the client never talks to YouTube/SoundCloud CDNs
// directly. No example repo in the retrieval pack performs image
// manipulation, so this package is grounded on the standard library's
// image/image/png/image/draw stack rather than a third-party dep.
package thumbnail

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"io"
	"net/http"
	"time"

	_ "image/gif"
	_ "image/jpeg"

	"github.com/arung-agamani/denpa-broadcast/internal/apierr"
)

const (
	coverSize     = 256
	fetchTimeout  = 8 * time.Second
	maxSourceSize = 10 << 20
)

// Proxy fetches and re-encodes a cached thumbnail URL.
type Proxy struct {
	client *http.Client
}

// New returns a Proxy with a bounded fetch timeout.
func New() *Proxy {
	return &Proxy{client: &http.Client{Timeout: fetchTimeout}}
}

// FetchPNG downloads srcURL, decodes it as an image, and returns PNG-encoded
// bytes. If cover is true the image is resized to a 256x256 cover-fit crop
// (used for SoundCloud artwork per spec.md §6).
func (p *Proxy) FetchPNG(ctx context.Context, srcURL string, cover bool) ([]byte, error) {
	img, err := p.fetch(ctx, srcURL)
	if err != nil {
		return nil, err
	}
	if cover {
		img = coverFit(img, coverSize, coverSize)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, apierr.Wrap(apierr.Internal, "failed to encode thumbnail", err)
	}
	return buf.Bytes(), nil
}

func (p *Proxy) fetch(ctx context.Context, srcURL string) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srcURL, nil)
	if err != nil {
		return nil, apierr.Wrap(apierr.Internal, "failed to build thumbnail request", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, apierr.Wrap(apierr.UpstreamFailure, "thumbnail upstream unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apierr.New(apierr.UpstreamFailure, fmt.Sprintf("thumbnail upstream returned %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSourceSize))
	if err != nil {
		return nil, apierr.Wrap(apierr.UpstreamFailure, "failed reading thumbnail body", err)
	}

	img, _, err := image.Decode(bytes.NewReader(body))
	if err != nil {
		return nil, apierr.Wrap(apierr.UpstreamFailure, "thumbnail is not a decodable image", err)
	}
	return img, nil
}

// coverFit scales src so it fully covers a w x h box, then center-crops to
// exactly w x h — the same semantics as CSS `object-fit: cover`.
func coverFit(src image.Image, w, h int) image.Image {
	sb := src.Bounds()
	sw, sh := sb.Dx(), sb.Dy()
	if sw == 0 || sh == 0 {
		return src
	}

	scale := float64(w) / float64(sw)
	if s := float64(h) / float64(sh); s > scale {
		scale = s
	}
	scaledW := int(float64(sw) * scale)
	scaledH := int(float64(sh) * scale)

	scaled := image.NewRGBA(image.Rect(0, 0, scaledW, scaledH))
	for y := 0; y < scaledH; y++ {
		srcY := sb.Min.Y + y*sh/scaledH
		for x := 0; x < scaledW; x++ {
			srcX := sb.Min.X + x*sw/scaledW
			scaled.Set(x, y, src.At(srcX, srcY))
		}
	}

	offsetX := (scaledW - w) / 2
	offsetY := (scaledH - h) / 2
	out := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(out, out.Bounds(), scaled, image.Pt(offsetX, offsetY), draw.Src)
	return out
}
