// Package storage abstracts blob persistence for raw uploads, intermediate
// artifacts, and finished reels. Keys are stable so the database only has to
// remember a video ID.
package storage

import (
	"context"
	"fmt"
)

// BlobStore moves files between the local working directory and durable
// storage.
type BlobStore interface {
	// UploadFile stores a local file under key and returns a URL or path a
	// client can use to retrieve it.
	UploadFile(ctx context.Context, localPath, key string) (string, error)
	// DownloadFile fetches the blob at key into localPath.
	DownloadFile(ctx context.Context, key, localPath string) error
}

// RawVideoKey is where an uploaded source video lives.
func RawVideoKey(videoID string) string {
	return fmt.Sprintf("raw/%s.mp4", videoID)
}

// SplitAudioKey is where the extracted audio track lives.
func SplitAudioKey(videoID string) string {
	return fmt.Sprintf("split/%s/split_audio.mp3", videoID)
}

// AnalysisKey is where the model analysis report lives.
func AnalysisKey(videoID string) string {
	return fmt.Sprintf("split/%s/highlights.json", videoID)
}

// HighlightReelKey is where the stitched reel lives.
func HighlightReelKey(videoID string) string {
	return fmt.Sprintf("highlights/%s.mp4", videoID)
}
