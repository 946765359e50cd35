package ffmpeg

import (
	"context"
	"fmt"

	"github.com/hoopline/reelgen/pkg/util"
)

// CutCopy seeks to start and cuts duration seconds into an intermediate
// container using stream copy, with negative-timestamp correction. This is
// the lossless first pass of the two-pass extraction.
func (e *Executor) CutCopy(ctx context.Context, input string, start, duration float64, output string) error {
	e.logger.Info().
		Str("input", input).
		Str("output", output).
		Float64("start", start).
		Float64("duration", duration).
		Msg("lossless cut")

	opts := RunOptions{
		Args: []string{
			"-ss", util.FormatSeconds(start),
			"-i", input,
			"-t", util.FormatSeconds(duration),
			"-c", "copy",
			"-avoid_negative_ts", "1",
			output,
		},
		LogHandler: func(line string) {
			e.logger.Debug().Str("ffmpeg", line).Msg("lossless cut")
		},
	}

	if err := e.Run(ctx, opts); err != nil {
		return fmt.Errorf("lossless cut failed: %w", err)
	}
	return nil
}

// NormalizeEncode re-encodes an intermediate cut into the delivery format:
// H.264 medium/CRF 23 with fast start, frame-rate resync and resampled
// stereo AAC audio. This is the second pass of the two-pass extraction.
func (e *Executor) NormalizeEncode(ctx context.Context, input, output string) error {
	e.logger.Info().
		Str("input", input).
		Str("output", output).
		Msg("normalizing clip")

	opts := RunOptions{
		Args: []string{
			"-i", input,
			"-c:v", "libx264",
			"-preset", "medium",
			"-crf", "23",
			"-movflags", "+faststart",
			"-vsync", "1",
			"-af", "aresample=async=1:min_hard_comp=0.1",
			"-c:a", "aac",
			"-b:a", "128k",
			"-ac", "2",
			output,
		},
		LogHandler: func(line string) {
			e.logger.Debug().Str("ffmpeg", line).Msg("normalize encode")
		},
	}

	if err := e.Run(ctx, opts); err != nil {
		return fmt.Errorf("normalize encode failed: %w", err)
	}
	return nil
}
