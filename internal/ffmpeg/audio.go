package ffmpeg

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"os/exec"
)

// ExtractAudioMP3 splits the audio track out of a video file as MP3.
func (e *Executor) ExtractAudioMP3(ctx context.Context, input, output string) error {
	e.logger.Info().
		Str("input", input).
		Str("output", output).
		Msg("extracting audio track")

	opts := RunOptions{
		Args: []string{
			"-i", input,
			"-vn",
			"-acodec", "libmp3lame",
			output,
		},
		LogHandler: func(line string) {
			e.logger.Debug().Str("ffmpeg", line).Msg("audio extraction")
		},
	}

	if err := e.Run(ctx, opts); err != nil {
		return fmt.Errorf("audio extraction failed: %w", err)
	}
	return nil
}

// DecodePCM decodes a media file to mono float samples at the given sample
// rate, for feature analysis. The decode goes through a pipe, nothing is
// written to disk.
func (e *Executor) DecodePCM(ctx context.Context, input string, sampleRate int) ([]float64, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", sampleRate)
	}

	e.logger.Info().
		Str("input", input).
		Int("sample_rate", sampleRate).
		Msg("decoding audio to pcm")

	args := []string{
		"-i", input,
		"-f", "f32le",
		"-acodec", "pcm_f32le",
		"-ac", "1",
		"-ar", fmt.Sprintf("%d", sampleRate),
		"pipe:1",
	}

	cmd := exec.CommandContext(ctx, e.ffmpegPath, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("pcm decode failed: %w: %s", err, stderr.String())
	}

	raw := stdout.Bytes()
	n := len(raw) / 4
	if n == 0 {
		return nil, fmt.Errorf("pcm decode produced no samples for %s", input)
	}

	samples := make([]float64, n)
	for i := 0; i < n; i++ {
		bits := binary.LittleEndian.Uint32(raw[i*4 : i*4+4])
		samples[i] = float64(math.Float32frombits(bits))
	}

	e.logger.Debug().Int("samples", n).Msg("pcm decode complete")
	return samples, nil
}
