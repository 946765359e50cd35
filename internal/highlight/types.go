package highlight

import "fmt"

// ClipMetadata is the persisted record for one extracted highlight clip.
// Start/end are the original segment bounds, before buffering.
type ClipMetadata struct {
	StartTime     float64 `json:"start_time"`
	EndTime       float64 `json:"end_time"`
	HighlightFile string  `json:"highlight_file"`
}

// FrameSet is the ordered list of still frames sampled from one clip,
// keyed by the segment's original start time.
type FrameSet struct {
	ClipIndex int
	StartTime float64
	Frames    []string
}

// ClipFileName returns the canonical file name for clip index i (1-based).
func ClipFileName(i int) string {
	return fmt.Sprintf("highlight_%d.mp4", i)
}

// FrameFileName returns the canonical file name for frame n of clip i.
func FrameFileName(clip, frame int) string {
	return fmt.Sprintf("highlight_%d_%d.jpg", clip, frame)
}

// ScoredClip pairs a clip index with its model probability, for selection.
type ScoredClip struct {
	Index       int
	Probability float64
}
