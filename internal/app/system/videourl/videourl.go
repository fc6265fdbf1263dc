// Package videourl recognizes hosted video links (YouTube, Vimeo) and
// extracts the provider and video ID needed to build embed players.
package videourl

import (
	"errors"
	"net/url"
	"regexp"
	"strings"

	"github.com/alquimista/website/internal/domain/models"
)

// ErrUnrecognized is returned when a URL is not a YouTube or Vimeo link.
var ErrUnrecognized = errors.New("videourl: not a recognized video URL")

var (
	reYouTubeID = regexp.MustCompile(`^[A-Za-z0-9_-]{6,20}$`)
	reVimeoID   = regexp.MustCompile(`^[0-9]{6,12}$`)
)

// Info describes a parsed hosted video link.
type Info struct {
	Provider string // models.VideoProviderYouTube or models.VideoProviderVimeo
	VideoID  string
}

// EmbedURL returns the iframe embed URL for the video.
func (i Info) EmbedURL() string {
	switch i.Provider {
	case models.VideoProviderYouTube:
		return "https://www.youtube.com/embed/" + i.VideoID
	case models.VideoProviderVimeo:
		return "https://player.vimeo.com/video/" + i.VideoID
	}
	return ""
}

// Parse extracts the provider and video ID from a YouTube or Vimeo URL.
// Supported forms:
//
//	https://www.youtube.com/watch?v=ID
//	https://youtube.com/embed/ID
//	https://youtube.com/shorts/ID
//	https://youtu.be/ID
//	https://vimeo.com/ID
//	https://player.vimeo.com/video/ID
//
// Returns ErrUnrecognized for anything else.
func Parse(raw string) (Info, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Info{}, ErrUnrecognized
	}

	u, err := url.Parse(raw)
	if err != nil {
		return Info{}, ErrUnrecognized
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return Info{}, ErrUnrecognized
	}

	host := strings.ToLower(strings.TrimPrefix(u.Hostname(), "www."))

	switch host {
	case "youtube.com", "m.youtube.com", "youtube-nocookie.com":
		return parseYouTube(u)
	case "youtu.be":
		id := firstPathSegment(u.Path)
		if reYouTubeID.MatchString(id) {
			return Info{Provider: models.VideoProviderYouTube, VideoID: id}, nil
		}
	case "vimeo.com", "player.vimeo.com":
		return parseVimeo(u)
	}

	return Info{}, ErrUnrecognized
}

// IsHosted reports whether the URL is a recognized YouTube or Vimeo link.
func IsHosted(raw string) bool {
	_, err := Parse(raw)
	return err == nil
}

func parseYouTube(u *url.URL) (Info, error) {
	// watch?v=ID form
	if id := u.Query().Get("v"); reYouTubeID.MatchString(id) {
		return Info{Provider: models.VideoProviderYouTube, VideoID: id}, nil
	}

	// /embed/ID, /shorts/ID, /v/ID forms
	segs := pathSegments(u.Path)
	if len(segs) >= 2 {
		switch segs[0] {
		case "embed", "shorts", "v", "live":
			if reYouTubeID.MatchString(segs[1]) {
				return Info{Provider: models.VideoProviderYouTube, VideoID: segs[1]}, nil
			}
		}
	}

	return Info{}, ErrUnrecognized
}

func parseVimeo(u *url.URL) (Info, error) {
	segs := pathSegments(u.Path)

	// player.vimeo.com/video/ID form
	if len(segs) >= 2 && segs[0] == "video" {
		segs = segs[1:]
	}

	if len(segs) >= 1 && reVimeoID.MatchString(segs[0]) {
		return Info{Provider: models.VideoProviderVimeo, VideoID: segs[0]}, nil
	}

	return Info{}, ErrUnrecognized
}

func pathSegments(path string) []string {
	var segs []string
	for _, s := range strings.Split(path, "/") {
		if s != "" {
			segs = append(segs, s)
		}
	}
	return segs
}

func firstPathSegment(path string) string {
	segs := pathSegments(path)
	if len(segs) == 0 {
		return ""
	}
	return segs[0]
}
