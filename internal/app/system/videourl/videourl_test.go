package videourl

import (
	"testing"

	"github.com/alquimista/website/internal/domain/models"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		provider string
		videoID  string
		wantErr  bool
	}{
		{"youtube watch", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", models.VideoProviderYouTube, "dQw4w9WgXcQ", false},
		{"youtube short link", "https://youtu.be/dQw4w9WgXcQ", models.VideoProviderYouTube, "dQw4w9WgXcQ", false},
		{"youtube embed", "https://youtube.com/embed/dQw4w9WgXcQ", models.VideoProviderYouTube, "dQw4w9WgXcQ", false},
		{"youtube shorts", "https://www.youtube.com/shorts/dQw4w9WgXcQ", models.VideoProviderYouTube, "dQw4w9WgXcQ", false},
		{"vimeo", "https://vimeo.com/123456789", models.VideoProviderVimeo, "123456789", false},
		{"vimeo player", "https://player.vimeo.com/video/123456789", models.VideoProviderVimeo, "123456789", false},
		{"plain website", "https://example.com/watch?v=abc", "", "", true},
		{"not a url", "not a url", "", "", true},
		{"empty", "", "", "", true},
		{"ftp scheme", "ftp://youtube.com/watch?v=dQw4w9WgXcQ", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := Parse(tt.url)
			if tt.wantErr {
				if err == nil {
					t.Errorf("Parse(%q) expected error, got %+v", tt.url, info)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%q) error = %v", tt.url, err)
			}
			if info.Provider != tt.provider || info.VideoID != tt.videoID {
				t.Errorf("Parse(%q) = {%s %s}, want {%s %s}",
					tt.url, info.Provider, info.VideoID, tt.provider, tt.videoID)
			}
		})
	}
}

func TestInfo_EmbedURL(t *testing.T) {
	yt := Info{Provider: models.VideoProviderYouTube, VideoID: "dQw4w9WgXcQ"}
	if got := yt.EmbedURL(); got != "https://www.youtube.com/embed/dQw4w9WgXcQ" {
		t.Errorf("EmbedURL() = %q", got)
	}

	vimeo := Info{Provider: models.VideoProviderVimeo, VideoID: "123456789"}
	if got := vimeo.EmbedURL(); got != "https://player.vimeo.com/video/123456789" {
		t.Errorf("EmbedURL() = %q", got)
	}

	unknown := Info{Provider: "dailymotion", VideoID: "x"}
	if got := unknown.EmbedURL(); got != "" {
		t.Errorf("EmbedURL() for unknown provider = %q, want empty", got)
	}
}

func TestIsHosted(t *testing.T) {
	if !IsHosted("https://vimeo.com/123456789") {
		t.Error("IsHosted() = false for a Vimeo link")
	}
	if IsHosted("https://example.com/video.mp4") {
		t.Error("IsHosted() = true for a plain file URL")
	}
}
