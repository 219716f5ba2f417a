package meta

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/lvcoi/tubeproxy/internal/extract"
)

// VideoSource is the slice of the metadata client the resolver needs,
// decoupling it from the concrete Client for testing.
type VideoSource interface {
	FetchVideo(ctx context.Context, id string) (*Video, error)
	FetchChannel(ctx context.Context, id string) (*Channel, error)
}

// Resolver runs the identifier-resolution pipeline: input parsing, video
// fetch, then best-effort channel enrichment.
type Resolver struct {
	source VideoSource
	log    logrus.FieldLogger
}

func NewResolver(source VideoSource, log logrus.FieldLogger) *Resolver {
	return &Resolver{source: source, log: log}
}

// Resolve maps free-form input to a normalized video entity. Unmatched input
// and a video absent upstream both resolve to (nil, nil); only faults on the
// video fetch propagate.
func (r *Resolver) Resolve(ctx context.Context, input string) (*Video, error) {
	id, ok := extract.VideoID(input)
	if !ok {
		return nil, nil
	}
	video, err := r.source.FetchVideo(ctx, id)
	if err != nil {
		return nil, err
	}
	if video == nil {
		return nil, nil
	}
	r.enrich(ctx, video)
	return video, nil
}

// enrich attaches the channel record when it can be fetched. The channel is
// a secondary entity: its failure must not withhold the primary one, so any
// fault here is logged and discarded.
func (r *Resolver) enrich(ctx context.Context, video *Video) {
	if video.ChannelID == "" {
		return
	}
	channel, err := r.source.FetchChannel(ctx, video.ChannelID)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"video":   video.ID,
			"channel": video.ChannelID,
		}).WithError(err).Warn("channel enrichment failed")
		return
	}
	video.Channel = channel
}
