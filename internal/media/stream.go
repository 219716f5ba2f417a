package media

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	id3v2 "github.com/bogem/id3v2/v2"
	"github.com/kkdai/youtube/v2"
	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// Fixed transcode target: constant-bitrate MP3, matching what legacy
// consumers of the download endpoint expect.
var mp3Args = ffmpeg.KwArgs{
	"f":      "mp3",
	"acodec": "libmp3lame",
	"b:a":    "192k",
	"ar":     "44100",
	"vn":     "",
}

// OpenAudio opens the best audio-only upstream stream and pipes it through
// an MP3 transcode stage. The returned handle owns the source and the
// transcoder process; closing it releases both. Transcoder failures surface
// as read errors on the stream. It fails before the first byte when the
// source cannot be opened or the transcoder cannot start.
func (s *Service) OpenAudio(ctx context.Context, video *youtube.Video) (io.ReadCloser, error) {
	format, err := SelectAudioOnly(video.Formats)
	if err != nil {
		return nil, err
	}

	src, _, err := s.client.GetStreamContext(ctx, video, format)
	if err != nil {
		return nil, fmt.Errorf("opening audio source: %w", err)
	}

	pr, pw := io.Pipe()
	var stderr bytes.Buffer
	cmd := ffmpeg.Input("pipe:").
		Output("pipe:", mp3Args).
		WithInput(src).
		WithOutput(pw, &stderr).
		Silent(true).
		Compile()
	if err := cmd.Start(); err != nil {
		src.Close()
		pw.Close()
		return nil, fmt.Errorf("starting transcoder: %w", err)
	}

	done := make(chan struct{})
	stream := newAudioStream(id3Prefix(video), pr, src, func() error {
		if cmd.Process != nil {
			return cmd.Process.Kill()
		}
		return nil
	}, done)

	go func() {
		defer close(done)
		err := cmd.Wait()
		if err != nil {
			if tail := lastLine(stderr.String()); tail != "" {
				err = fmt.Errorf("transcoder: %w (%s)", err, tail)
			} else {
				err = fmt.Errorf("transcoder: %w", err)
			}
			s.log.WithField("video", video.ID).WithError(err).Debug("audio pipeline ended")
		}
		// nil turns into io.EOF for the reader side.
		pw.CloseWithError(err)
	}()
	go func() {
		select {
		case <-ctx.Done():
			_ = stream.Close()
		case <-done:
		}
	}()

	return stream, nil
}

// audioStream is the single disposable handle for an audio pipeline. It owns
// the transcoder process and the upstream source together, so cancellation
// can never release only one of them.
type audioStream struct {
	out  io.Reader
	pipe *io.PipeReader
	src  io.ReadCloser
	stop func() error
	done <-chan struct{}

	once     sync.Once
	closeErr error
}

func newAudioStream(prefix []byte, pipe *io.PipeReader, src io.ReadCloser, stop func() error, done <-chan struct{}) *audioStream {
	out := io.Reader(pipe)
	if len(prefix) > 0 {
		out = io.MultiReader(bytes.NewReader(prefix), pipe)
	}
	return &audioStream{out: out, pipe: pipe, src: src, stop: stop, done: done}
}

func (a *audioStream) Read(p []byte) (int, error) {
	return a.out.Read(p)
}

// Close tears the whole pipeline down: the transcoder process, the upstream
// source, and the local pipe. Safe to call more than once.
func (a *audioStream) Close() error {
	a.once.Do(func() {
		stopErr := a.stop()
		srcErr := a.src.Close()
		_ = a.pipe.Close()
		<-a.done
		if srcErr != nil {
			a.closeErr = srcErr
		} else {
			a.closeErr = stopErr
		}
	})
	return a.closeErr
}

// id3Prefix renders an ID3v2 header with the track metadata, written ahead
// of the transcoded MP3 frames. Failure to build it skips the tag rather
// than the download.
func id3Prefix(video *youtube.Video) []byte {
	tag := id3v2.NewEmptyTag()
	tag.SetTitle(video.Title)
	tag.SetArtist(video.Author)
	var buf bytes.Buffer
	if _, err := tag.WriteTo(&buf); err != nil {
		return nil
	}
	return buf.Bytes()
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) == 0 {
		return ""
	}
	return strings.TrimSpace(lines[len(lines)-1])
}
