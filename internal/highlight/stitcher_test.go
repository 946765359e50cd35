package highlight

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeClipFiles(t *testing.T, dir string, indices ...int) {
	t.Helper()
	for _, i := range indices {
		path := filepath.Join(dir, ClipFileName(i))
		require.NoError(t, os.WriteFile(path, []byte("mp4"), 0644))
	}
}

func TestSelectGatesByProbability(t *testing.T) {
	dir := t.TempDir()
	writeClipFiles(t, dir, 1, 2, 3)

	st := NewStitcher(zerolog.Nop(), nil, 0.5)
	files := st.Select([]ScoredClip{
		{Index: 1, Probability: 0.9},
		{Index: 2, Probability: 0.4},
		{Index: 3, Probability: 0.6},
	}, dir)

	assert.Equal(t, []string{
		filepath.Join(dir, "highlight_1.mp4"),
		filepath.Join(dir, "highlight_3.mp4"),
	}, files)
}

func TestSelectBoundaryProbabilityIncluded(t *testing.T) {
	dir := t.TempDir()
	writeClipFiles(t, dir, 1)

	st := NewStitcher(zerolog.Nop(), nil, 0.5)
	files := st.Select([]ScoredClip{{Index: 1, Probability: 0.5}}, dir)
	assert.Len(t, files, 1)
}

func TestSelectOrdersByClipIndex(t *testing.T) {
	dir := t.TempDir()
	writeClipFiles(t, dir, 1, 2, 3)

	st := NewStitcher(zerolog.Nop(), nil, 0.5)
	files := st.Select([]ScoredClip{
		{Index: 3, Probability: 0.9},
		{Index: 1, Probability: 0.9},
		{Index: 2, Probability: 0.9},
	}, dir)

	assert.Equal(t, []string{
		filepath.Join(dir, "highlight_1.mp4"),
		filepath.Join(dir, "highlight_2.mp4"),
		filepath.Join(dir, "highlight_3.mp4"),
	}, files)
}

func TestSelectSkipsMissingFiles(t *testing.T) {
	dir := t.TempDir()
	writeClipFiles(t, dir, 1)

	st := NewStitcher(zerolog.Nop(), nil, 0.5)
	files := st.Select([]ScoredClip{
		{Index: 1, Probability: 0.9},
		{Index: 2, Probability: 0.9},
	}, dir)
	assert.Len(t, files, 1)
}

func TestStitchNothingSelected(t *testing.T) {
	dir := t.TempDir()
	st := NewStitcher(zerolog.Nop(), nil, 0.5)

	out, err := st.Stitch(context.Background(), []ScoredClip{
		{Index: 1, Probability: 0.2},
		{Index: 2, Probability: 0.1},
	}, dir, filepath.Join(dir, "reel.mp4"))

	require.NoError(t, err)
	assert.Empty(t, out)
	assert.NoFileExists(t, filepath.Join(dir, "reel.mp4"))
}
