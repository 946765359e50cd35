package ffmpeg

import (
	"context"
	"fmt"
)

// SampleFrames extracts still frames from a clip at a fixed interval in one
// ffmpeg pass: constant output rate, presentation timestamps on, no frame
// dropping. outputPattern must contain a %d placeholder; ffmpeg numbers the
// produced files sequentially from 1.
func (e *Executor) SampleFrames(ctx context.Context, input string, interval float64, outputPattern string) error {
	if interval <= 0 {
		return fmt.Errorf("invalid frame interval %f", interval)
	}

	e.logger.Info().
		Str("input", input).
		Float64("interval", interval).
		Str("pattern", outputPattern).
		Msg("sampling frames")

	opts := RunOptions{
		Args: []string{
			"-i", input,
			"-vf", fmt.Sprintf("fps=1/%g", interval),
			"-frame_pts", "1",
			"-vsync", "0",
			"-q:v", "2",
			outputPattern,
		},
		LogHandler: func(line string) {
			e.logger.Debug().Str("ffmpeg", line).Msg("frame sampling")
		},
	}

	if err := e.Run(ctx, opts); err != nil {
		return fmt.Errorf("frame sampling failed: %w", err)
	}
	return nil
}
