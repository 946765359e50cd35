package highlight

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hoopline/reelgen/pkg/util"
)

// WriteClipMetadata persists the clip metadata array artifact.
func WriteClipMetadata(path string, meta []ClipMetadata) error {
	return writeJSON(path, meta)
}

// ReadClipMetadata loads a previously written clip metadata artifact.
func ReadClipMetadata(path string) ([]ClipMetadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading clip metadata: %w", err)
	}
	var meta []ClipMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("parsing clip metadata: %w", err)
	}
	return meta, nil
}

// WriteFrameIndex persists the frame metadata artifact: a map from segment
// start time to the ordered frame filenames of that clip.
func WriteFrameIndex(path string, sets []FrameSet) error {
	index := make(map[string][]string, len(sets))
	for _, s := range sets {
		index[fmt.Sprintf("%g", s.StartTime)] = s.Frames
	}
	return writeJSON(path, index)
}

func writeJSON(path string, v any) error {
	if err := util.EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
