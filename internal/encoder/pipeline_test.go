package encoder

import (
	"strings"
	"testing"

	"github.com/arung-agamani/denpa-broadcast/internal/fetcher"
)

func TestBuildArgsStreamInput(t *testing.T) {
	p := New(DefaultConfig())
	args := p.buildArgs(&fetcher.AudioInput{Kind: fetcher.InputStream})
	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "-i pipe:0") {
		t.Fatalf("expected stdin input, got %q", joined)
	}
	if !strings.Contains(joined, "-b:a 128k") {
		t.Fatalf("expected 128k bitrate, got %q", joined)
	}
}

func TestBuildArgsURLInputWithHLS(t *testing.T) {
	p := New(DefaultConfig())
	args := p.buildArgs(&fetcher.AudioInput{
		Kind:    fetcher.InputURL,
		URL:     "https://example.com/stream.m3u8",
		IsHLS:   true,
		Headers: map[string]string{"User-Agent": "denpa/1.0"},
	})
	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "-protocol_whitelist") {
		t.Fatalf("expected protocol whitelist for HLS, got %q", joined)
	}
	if !strings.Contains(joined, "-user_agent denpa/1.0") {
		t.Fatalf("expected user agent flag, got %q", joined)
	}
	if !strings.Contains(joined, "-i https://example.com/stream.m3u8") {
		t.Fatalf("expected URL input, got %q", joined)
	}
}

func TestSuspendResumeWithoutProcessErrors(t *testing.T) {
	p := New(DefaultConfig())
	if err := p.Suspend(); err == nil {
		t.Fatal("expected error suspending a pipeline with no process")
	}
	if err := p.Resume(); err == nil {
		t.Fatal("expected error resuming a pipeline with no process")
	}
}
