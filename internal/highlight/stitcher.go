package highlight

import (
	"context"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog"

	"github.com/hoopline/reelgen/internal/ffmpeg"
	"github.com/hoopline/reelgen/pkg/util"
)

// Stitcher filters scored clips by probability and concatenates the
// survivors into a single reel.
type Stitcher struct {
	logger    zerolog.Logger
	ffmpeg    *ffmpeg.Executor
	threshold float64
}

// NewStitcher creates a stitcher selecting clips with probability at or
// above threshold.
func NewStitcher(logger zerolog.Logger, exec *ffmpeg.Executor, threshold float64) *Stitcher {
	return &Stitcher{
		logger:    logger.With().Str("component", "stitcher").Logger(),
		ffmpeg:    exec,
		threshold: threshold,
	}
}

// Select returns the clip files passing the probability gate in ascending
// clip-index order. A selected clip whose file is missing is a warning and
// is dropped, not an error.
func (st *Stitcher) Select(scored []ScoredClip, highlightsDir string) []string {
	ordered := append([]ScoredClip(nil), scored...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Index < ordered[j].Index })

	var files []string
	for _, c := range ordered {
		if c.Probability < st.threshold {
			continue
		}
		path := filepath.Join(highlightsDir, ClipFileName(c.Index))
		if !util.FileExists(path) {
			st.logger.Warn().Str("file", path).Msg("selected clip file missing, skipping")
			continue
		}
		files = append(files, path)
	}
	return files
}

// Stitch concatenates the selected clips into output via lossless
// stream-copy concat. With nothing selected it produces no file and returns
// an empty path with no error.
func (st *Stitcher) Stitch(ctx context.Context, scored []ScoredClip, highlightsDir, output string) (string, error) {
	files := st.Select(scored, highlightsDir)
	if len(files) == 0 {
		st.logger.Info().
			Float64("threshold", st.threshold).
			Msg("no highlights above threshold, skipping reel")
		return "", nil
	}

	if err := util.EnsureDir(filepath.Dir(output)); err != nil {
		return "", err
	}
	if err := st.ffmpeg.Concat(ctx, files, output); err != nil {
		return "", err
	}

	st.logger.Info().
		Int("clips", len(files)).
		Str("output", output).
		Msg("highlight reel created")
	return output, nil
}
