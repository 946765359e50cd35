package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Concat merges video files into one via lossless demuxer-concat stream
// copy. Input order is preserved.
func (e *Executor) Concat(ctx context.Context, inputs []string, output string) error {
	if len(inputs) == 0 {
		return fmt.Errorf("no input files provided")
	}
	if output == "" {
		return fmt.Errorf("output path is required")
	}

	e.logger.Info().
		Int("inputs", len(inputs)).
		Str("output", output).
		Msg("concatenating clips")

	concatFile, err := e.createConcatFile(inputs)
	if err != nil {
		return fmt.Errorf("failed to create concat file: %w", err)
	}
	defer os.Remove(concatFile)

	opts := RunOptions{
		Args: []string{
			"-f", "concat",
			"-safe", "0",
			"-i", concatFile,
			"-c", "copy",
			output,
		},
		LogHandler: func(line string) {
			e.logger.Debug().Str("ffmpeg", line).Msg("concatenating")
		},
	}

	return e.Run(ctx, opts)
}

// createConcatFile generates a temporary file list for ffmpeg concat
func (e *Executor) createConcatFile(inputs []string) (string, error) {
	tmpFile, err := os.CreateTemp("", "reelgen-concat-*.txt")
	if err != nil {
		return "", err
	}
	defer tmpFile.Close()

	for _, input := range inputs {
		absPath, err := filepath.Abs(input)
		if err != nil {
			return "", err
		}
		if _, err := fmt.Fprintf(tmpFile, "file '%s'\n", absPath); err != nil {
			return "", err
		}
	}

	return tmpFile.Name(), nil
}
