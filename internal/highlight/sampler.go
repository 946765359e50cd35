package highlight

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/hoopline/reelgen/internal/ffmpeg"
	"github.com/hoopline/reelgen/pkg/util"
)

// FrameSampler extracts evenly spaced still frames from each clip.
type FrameSampler struct {
	logger   zerolog.Logger
	ffmpeg   *ffmpeg.Executor
	interval float64
}

// NewFrameSampler creates a sampler that captures one frame every interval
// seconds.
func NewFrameSampler(logger zerolog.Logger, exec *ffmpeg.Executor, interval float64) *FrameSampler {
	return &FrameSampler{
		logger:   logger.With().Str("component", "frame-sampler").Logger(),
		ffmpeg:   exec,
		interval: interval,
	}
}

// SampleAll extracts frames for every clip in meta. A clip whose file is
// missing, whose duration probes as zero, or whose sampling run fails is
// skipped without failing the batch. Frame sets come back in clip order,
// keyed by the segment's original start time.
func (s *FrameSampler) SampleAll(ctx context.Context, highlightsDir string, meta []ClipMetadata, imagesDir string) ([]FrameSet, error) {
	if err := util.EnsureDir(imagesDir); err != nil {
		return nil, fmt.Errorf("creating images dir: %w", err)
	}

	sets := make([]FrameSet, 0, len(meta))
	for i, m := range meta {
		idx := i + 1
		clipPath := filepath.Join(highlightsDir, m.HighlightFile)

		if !util.FileExists(clipPath) {
			s.logger.Warn().Str("clip", clipPath).Msg("highlight file not found, skipping")
			continue
		}

		duration, err := s.ffmpeg.ProbeDuration(ctx, clipPath)
		if err != nil || duration == 0 {
			s.logger.Warn().Err(err).Str("clip", clipPath).Msg("invalid duration, skipping")
			continue
		}

		frames, err := s.sampleClip(ctx, clipPath, idx, duration, imagesDir)
		if err != nil {
			s.logger.Warn().Err(err).Int("clip", idx).Msg("frame sampling failed, skipping")
			continue
		}
		if len(frames) == 0 {
			s.logger.Warn().Int("clip", idx).Msg("no frames produced, skipping")
			continue
		}

		s.logger.Info().Int("clip", idx).Int("frames", len(frames)).Msg("frames sampled")
		sets = append(sets, FrameSet{
			ClipIndex: idx,
			StartTime: m.StartTime,
			Frames:    frames,
		})
	}

	return sets, nil
}

// sampleClip runs a single bounded ffmpeg pass for one clip and enumerates
// the sequentially numbered frames it produced.
func (s *FrameSampler) sampleClip(ctx context.Context, clipPath string, idx int, duration float64, imagesDir string) ([]string, error) {
	// Timeout scales with clip length, never below 30s.
	timeout := time.Duration(duration*2) * time.Second
	if timeout < 30*time.Second {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	pattern := filepath.Join(imagesDir, fmt.Sprintf("highlight_%d_%%d.jpg", idx))
	if err := s.ffmpeg.SampleFrames(ctx, clipPath, s.interval, pattern); err != nil {
		return nil, err
	}

	var frames []string
	for n := 1; ; n++ {
		name := FrameFileName(idx, n)
		if !util.FileExists(filepath.Join(imagesDir, name)) {
			break
		}
		frames = append(frames, name)
	}
	return frames, nil
}
