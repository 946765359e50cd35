package highlight

import (
	"context"
	"os"
	osexec "os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hoopline/reelgen/internal/ffmpeg"
)

// makeSampleVideo synthesizes a short clip with a sine audio track.
func makeSampleVideo(t *testing.T, name string, seconds string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	cmd := osexec.Command("ffmpeg", "-y",
		"-f", "lavfi", "-i", "testsrc=duration="+seconds+":size=320x240:rate=24",
		"-f", "lavfi", "-i", "sine=frequency=440:duration="+seconds,
		"-c:v", "libx264", "-preset", "ultrafast",
		"-c:a", "aac",
		path,
	)
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, string(out))
	return path
}

func TestSampleAllSkipsMissingClipFile(t *testing.T) {
	s := NewFrameSampler(zerolog.Nop(), nil, 1.0)
	dir := t.TempDir()

	sets, err := s.SampleAll(context.Background(), dir, []ClipMetadata{
		{StartTime: 1.0, EndTime: 4.0, HighlightFile: "highlight_1.mp4"},
	}, filepath.Join(dir, "images"))

	require.NoError(t, err)
	assert.Empty(t, sets)
}

func TestSampleAllSkipsUnprobeableClip(t *testing.T) {
	skipIfNoFFmpeg(t)

	exec, err := ffmpeg.New(zerolog.Nop(), 0)
	require.NoError(t, err)
	s := NewFrameSampler(zerolog.Nop(), exec, 1.0)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "highlight_1.mp4"), []byte("not a video"), 0644))

	sets, err := s.SampleAll(context.Background(), dir, []ClipMetadata{
		{StartTime: 1.0, EndTime: 4.0, HighlightFile: "highlight_1.mp4"},
	}, filepath.Join(dir, "images"))

	require.NoError(t, err)
	assert.Empty(t, sets)
}

func TestSampleAllContinuesPastBadClips(t *testing.T) {
	skipIfNoFFmpeg(t)

	exec, err := ffmpeg.New(zerolog.Nop(), 0)
	require.NoError(t, err)
	s := NewFrameSampler(zerolog.Nop(), exec, 1.0)

	dir := t.TempDir()
	video := makeSampleVideo(t, "good.mp4", "3")
	data, err := os.ReadFile(video)
	require.NoError(t, err)
	// Clip 1 is missing, clip 2 is a real video.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "highlight_2.mp4"), data, 0644))

	sets, err := s.SampleAll(context.Background(), dir, []ClipMetadata{
		{StartTime: 1.0, EndTime: 4.0, HighlightFile: "highlight_1.mp4"},
		{StartTime: 10.0, EndTime: 13.0, HighlightFile: "highlight_2.mp4"},
	}, filepath.Join(dir, "images"))

	require.NoError(t, err)
	require.Len(t, sets, 1)
	assert.Equal(t, 2, sets[0].ClipIndex)
	assert.Equal(t, 10.0, sets[0].StartTime)
	assert.NotEmpty(t, sets[0].Frames)
	for _, f := range sets[0].Frames {
		assert.True(t, strings.HasPrefix(f, "highlight_2_"), f)
		assert.FileExists(t, filepath.Join(dir, "images", f))
	}
}
