package ytdlp

import (
	"io"
	"log/slog"
	"slices"
	"testing"
)

func testTool() *Tool {
	return &Tool{bin: "yt-dlp", logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func TestFetchArgsNative(t *testing.T) {
	tool := testTool()
	args := tool.fetchArgs("https://youtu.be/x", FetchOptions{
		OutputTemplate: "/cache/dir/audio.%(ext)s",
	})

	if args[0] != "https://youtu.be/x" {
		t.Errorf("url not first: %v", args)
	}
	for _, want := range []string{"-o", "/cache/dir/audio.%(ext)s", "-f", "bestaudio/best", "--no-playlist"} {
		if !slices.Contains(args, want) {
			t.Errorf("missing %q in %v", want, args)
		}
	}
	// Native mode never transcodes or embeds.
	for _, banned := range []string{"-x", "--audio-format", "--embed-metadata", "--embed-thumbnail"} {
		if slices.Contains(args, banned) {
			t.Errorf("native fetch carries %q: %v", banned, args)
		}
	}
}

func TestFetchArgsTranscode(t *testing.T) {
	tool := testTool()
	args := tool.fetchArgs("u", FetchOptions{
		OutputTemplate: "o",
		AudioFormat:    "mp3",
		EmbedMetadata:  true,
	})

	for _, want := range []string{"-x", "--audio-format", "mp3", "--audio-quality", "0", "--embed-metadata", "--embed-thumbnail"} {
		if !slices.Contains(args, want) {
			t.Errorf("missing %q in %v", want, args)
		}
	}
}

func TestFetchArgsQuality(t *testing.T) {
	tool := testTool()
	args := tool.fetchArgs("u", FetchOptions{OutputTemplate: "o", AudioFormat: "m4a", AudioQuality: "5"})
	if !slices.Contains(args, "5") {
		t.Errorf("quality override missing: %v", args)
	}
}

func TestLastLine(t *testing.T) {
	tests := []struct{ in, want string }{
		{"", ""},
		{"one", "one"},
		{"one\ntwo\n", "two"},
		{"one\n  two  \n\n", "two"},
	}
	for _, tt := range tests {
		if got := lastLine(tt.in); got != tt.want {
			t.Errorf("lastLine(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
