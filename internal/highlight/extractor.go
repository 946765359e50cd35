package highlight

import (
	"context"
	"fmt"
	"math"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/hoopline/reelgen/internal/audio"
	"github.com/hoopline/reelgen/internal/ffmpeg"
	"github.com/hoopline/reelgen/pkg/util"
)

// Extractor cuts a buffered, frame-accurate, re-encoded clip per segment.
type Extractor struct {
	logger zerolog.Logger
	ffmpeg *ffmpeg.Executor
	buffer float64
}

// NewExtractor creates an extractor that pads each segment by bufferSeconds
// on both sides before cutting.
func NewExtractor(logger zerolog.Logger, exec *ffmpeg.Executor, bufferSeconds float64) *Extractor {
	return &Extractor{
		logger: logger.With().Str("component", "clip-extractor").Logger(),
		ffmpeg: exec,
		buffer: bufferSeconds,
	}
}

// ExtractAll cuts one clip per merged segment into outDir. Each cut is
// two-phase: a lossless stream-copy cut into an intermediate .ts, then a
// re-encode into the delivery mp4. A failed clip is logged and skipped; the
// intermediate is always removed. The returned metadata lists only the
// clips that succeeded, in segment order.
func (x *Extractor) ExtractAll(ctx context.Context, videoFile string, segments []audio.Segment, outDir string) ([]ClipMetadata, error) {
	if err := util.EnsureDir(outDir); err != nil {
		return nil, fmt.Errorf("creating clip dir: %w", err)
	}

	metadata := make([]ClipMetadata, 0, len(segments))
	for i, seg := range segments {
		idx := i + 1
		bufferedStart := math.Max(0, seg.Start-x.buffer)
		bufferedEnd := seg.End + x.buffer
		duration := bufferedEnd - bufferedStart

		output := filepath.Join(outDir, ClipFileName(idx))
		intermediate := filepath.Join(outDir, fmt.Sprintf("temp_%d.ts", idx))

		x.logger.Info().
			Int("clip", idx).
			Float64("start", bufferedStart).
			Float64("end", bufferedEnd).
			Msg("extracting highlight clip")

		if err := x.ffmpeg.CutCopy(ctx, videoFile, bufferedStart, duration, intermediate); err != nil {
			x.logger.Warn().Err(err).Int("clip", idx).Msg("lossless cut failed, skipping clip")
			util.CleanupFiles(intermediate)
			continue
		}

		if err := x.ffmpeg.NormalizeEncode(ctx, intermediate, output); err != nil {
			x.logger.Warn().Err(err).Int("clip", idx).Msg("normalize encode failed, skipping clip")
			util.CleanupFiles(intermediate, output)
			continue
		}

		util.CleanupFiles(intermediate)

		metadata = append(metadata, ClipMetadata{
			StartTime:     seg.Start,
			EndTime:       seg.End,
			HighlightFile: ClipFileName(idx),
		})
	}

	x.logger.Info().
		Int("segments", len(segments)).
		Int("clips", len(metadata)).
		Msg("clip extraction complete")
	return metadata, nil
}

// BufferedRange returns the buffered bounds for a segment, clamping the
// start at zero. The end is left unclamped; the cut truncates at
// end-of-stream on its own.
func (x *Extractor) BufferedRange(seg audio.Segment) (float64, float64) {
	return math.Max(0, seg.Start-x.buffer), seg.End + x.buffer
}
