package media

import (
	"errors"
	"fmt"

	"github.com/kkdai/youtube/v2"
	"github.com/samber/lo"
)

// ErrNoFormats reports that the filtered candidate set for a requested media
// type is empty.
var ErrNoFormats = errors.New("no matching formats")

func hasAudio(f youtube.Format) bool { return f.AudioChannels > 0 }
func hasVideo(f youtube.Format) bool { return f.Width > 0 || f.Height > 0 }

// SelectMuxed picks the best format carrying both audio and video tracks.
// Ranking compares height, then bitrate; ties keep the earliest candidate
// since the upstream ordering is not strictly total.
func SelectMuxed(formats []youtube.Format) (*youtube.Format, error) {
	candidates := lo.Filter(formats, func(f youtube.Format, _ int) bool {
		return hasAudio(f) && hasVideo(f)
	})
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: no muxed audio+video candidates", ErrNoFormats)
	}
	best := lo.MaxBy(candidates, betterMuxed)
	return &best, nil
}

// SelectAudioOnly picks the best format carrying audio, regardless of a
// video track. It doubles as the fail-fast gate before a transcode pipeline
// is committed to.
func SelectAudioOnly(formats []youtube.Format) (*youtube.Format, error) {
	candidates := lo.Filter(formats, func(f youtube.Format, _ int) bool {
		return hasAudio(f)
	})
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: no audio candidates", ErrNoFormats)
	}
	best := lo.MaxBy(candidates, betterAudio)
	return &best, nil
}

func betterMuxed(candidate, current youtube.Format) bool {
	if candidate.Height != current.Height {
		return candidate.Height > current.Height
	}
	return bitrateFor(candidate) > bitrateFor(current)
}

func betterAudio(candidate, current youtube.Format) bool {
	return bitrateFor(candidate) > bitrateFor(current)
}

func bitrateFor(f youtube.Format) int {
	if f.Bitrate > 0 {
		return f.Bitrate
	}
	return f.AverageBitrate
}
