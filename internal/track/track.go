// Package track classifies submitted track URLs.
//
// This is the one piece of pure logic in the service: given a URL string
// and the platform the caller claims it belongs to, decide whether it is
// a recognized YouTube or Spotify track link and pull out the
// provider-native track ID. No I/O, fully deterministic.
package track

import (
	"regexp"

	"github.com/muzerhq/muzer/internal/apperror"
	"github.com/muzerhq/muzer/internal/model"
)

// Supported URL shapes:
//
//	youtube.com/watch?v=<id>   youtu.be/<id>   youtube.com/shorts/<id>
//	open.spotify.com/track/<id>[?query]
//
// with optional scheme and optional "www." / "open." host prefix.
//
// CAPTURE GROUPS ARE LOAD-BEARING:
// The video ID is group 4 of ytRegex (groups 1-3 are scheme, "www.", and
// the path variant) and the track ID is group 3 of spotifyRegex. Reading
// group 1 would extract the scheme instead of the ID. The exact groups
// are pinned by TestExtract in track_test.go against literal URLs.
var (
	ytRegex      = regexp.MustCompile(`^(https?://)?(www\.)?(youtube\.com/watch\?v=|youtu\.be/|youtube\.com/shorts/)([A-Za-z0-9_-]{11})$`)
	spotifyRegex = regexp.MustCompile(`^(https?://)?(open\.)?spotify\.com/track/([A-Za-z0-9]{22})(\?.*)?$`)
)

const (
	ytIDGroup      = 4
	spotifyIDGroup = 3
)

// Classify tests url against both platform patterns and checks the
// result against the caller's claimed type.
//
// Failure modes, in order:
//   - neither pattern matches        → validation error (invalid URL)
//   - matched platform != claimed    → validation error (type mismatch),
//     never silently coerced to the platform that actually matched
//
// On success it returns the platform that matched and the extracted
// track ID (11 chars for YouTube, 22 for Spotify).
func Classify(url string, claimed model.StreamType) (model.StreamType, string, error) {
	ytMatch := ytRegex.FindStringSubmatch(url)
	spMatch := spotifyRegex.FindStringSubmatch(url)

	if ytMatch == nil && spMatch == nil {
		return "", "", apperror.InvalidURL(url)
	}

	switch claimed {
	case model.StreamTypeYouTube:
		if ytMatch == nil {
			return "", "", apperror.TypeMismatch(string(claimed))
		}
		return model.StreamTypeYouTube, ytMatch[ytIDGroup], nil
	case model.StreamTypeSpotify:
		if spMatch == nil {
			return "", "", apperror.TypeMismatch(string(claimed))
		}
		return model.StreamTypeSpotify, spMatch[spotifyIDGroup], nil
	default:
		return "", "", apperror.ValidationFailed("type", "type must be YouTube or Spotify")
	}
}
