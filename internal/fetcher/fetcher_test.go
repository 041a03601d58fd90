package fetcher

import "testing"

func TestNormalizeURLStripsTimestamp(t *testing.T) {
	got := NormalizeURL("https://youtu.be/X?t=42")
	if got != "https://youtu.be/X" {
		t.Fatalf("got %q", got)
	}
}

func TestNormalizeURLStripsTimeContinue(t *testing.T) {
	got := NormalizeURL("https://music.youtube.com/watch?v=X&time_continue=5")
	if got != "https://music.youtube.com/watch?v=X" {
		t.Fatalf("got %q", got)
	}
}

func TestNormalizeURLPassesNonYouTubeThrough(t *testing.T) {
	in := "https://soundcloud.com/artist/track?t=42"
	if got := NormalizeURL(in); got != in {
		t.Fatalf("expected passthrough, got %q", got)
	}
}

func TestIdentifySource(t *testing.T) {
	cases := []struct {
		url     string
		want    string
		wantErr bool
	}{
		{"https://www.youtube.com/watch?v=abc", "youtube", false},
		{"https://youtu.be/abc", "youtube", false},
		{"https://soundcloud.com/artist/track", "soundcloud", false},
		{"https://example.com/foo", "", true},
	}
	for _, c := range cases {
		src, err := IdentifySource(c.url)
		if c.wantErr {
			if err == nil {
				t.Errorf("%s: expected error", c.url)
			}
			continue
		}
		if err != nil {
			t.Errorf("%s: unexpected error: %v", c.url, err)
			continue
		}
		if string(src) != c.want {
			t.Errorf("%s: got %q want %q", c.url, src, c.want)
		}
	}
}

func TestBestAudioFormatPrefersHigherBitrate(t *testing.T) {
	formats := []ytFormat{
		{MimeType: "audio/mp4", Bitrate: 64000, URL: "low"},
		{MimeType: "audio/webm", Bitrate: 160000, URL: "high"},
		{MimeType: "video/mp4", Bitrate: 999999, URL: "video-not-audio"},
	}
	best := bestAudioFormat(formats)
	if best == nil || best.URL != "high" {
		t.Fatalf("expected high bitrate audio format, got %+v", best)
	}
}

func TestBestAudioFormatReportsCipherRequired(t *testing.T) {
	formats := []ytFormat{{MimeType: "audio/mp4", Bitrate: 128000, SignatureCipher: "s=abc"}}
	best := bestAudioFormat(formats)
	if best == nil {
		t.Fatal("expected a candidate format")
	}
	if best.URL != "" {
		t.Fatal("expected empty URL signalling cipher required")
	}
}
