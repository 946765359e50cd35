package vision

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFrames(t *testing.T, dir string, n int) []string {
	t.Helper()
	paths := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		p := filepath.Join(dir, fmt.Sprintf("frame_%d.jpg", i))
		require.NoError(t, os.WriteFile(p, []byte("jpegdata"), 0644))
		paths = append(paths, p)
	}
	return paths
}

func modelServer(t *testing.T, response string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.False(t, req.Stream)
		assert.NotEmpty(t, req.Images)
		json.NewEncoder(w).Encode(generateResponse{Response: response})
	}))
}

func newTestScorer(t *testing.T, baseURL string, retries int) *SequenceScorer {
	t.Helper()
	client := NewClient(zerolog.Nop(), ClientOptions{
		BaseURL:    baseURL,
		Model:      "llava",
		MaxRetries: retries,
	})
	return NewSequenceScorer(zerolog.Nop(), client, 2)
}

func TestScoreAllParsesWellFormedResponse(t *testing.T) {
	srv := modelServer(t, "SEQUENCE: A player drives to the rim and dunks.\nHIGHLIGHT_SCORE: 0.85\nEXPLANATION: Emphatic dunk over a defender.")
	defer srv.Close()

	frames := writeFrames(t, t.TempDir(), 3)
	scorer := newTestScorer(t, srv.URL, 1)

	results := scorer.ScoreAll(context.Background(), []FrameSequence{
		{ClipIndex: 1, Key: "12.5", FramePaths: frames},
	})
	require.Len(t, results, 1)

	r := results[0]
	assert.Equal(t, StatusSuccess, r.Status)
	assert.Equal(t, 1, r.ClipIndex)
	assert.Equal(t, "12.5", r.Timestamp)
	assert.Equal(t, 0.85, r.Probability)
	assert.Equal(t, "A player drives to the rim and dunks.", r.Sequence)
	assert.Equal(t, "Emphatic dunk over a defender.", r.Explanation)
	assert.Equal(t, 3, r.NumFrames)
	assert.Empty(t, r.Error)
}

func TestScoreAllMissingScoreLineDefaultsToZero(t *testing.T) {
	srv := modelServer(t, "The model rambled and ignored the format entirely.")
	defer srv.Close()

	frames := writeFrames(t, t.TempDir(), 1)
	scorer := newTestScorer(t, srv.URL, 1)

	results := scorer.ScoreAll(context.Background(), []FrameSequence{
		{ClipIndex: 1, Key: "0", FramePaths: frames},
	})
	require.Len(t, results, 1)

	// A parse miss is not a request failure.
	assert.Equal(t, StatusSuccess, results[0].Status)
	assert.Zero(t, results[0].Probability)
	assert.NotEmpty(t, results[0].RawResponse)
}

func TestScoreAllExhaustedRetriesYieldErrorResult(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "overloaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	frames := writeFrames(t, t.TempDir(), 1)
	scorer := newTestScorer(t, srv.URL, 1)

	results := scorer.ScoreAll(context.Background(), []FrameSequence{
		{ClipIndex: 4, Key: "33", FramePaths: frames},
	})
	require.Len(t, results, 1)

	r := results[0]
	assert.Equal(t, StatusError, r.Status)
	assert.Zero(t, r.Probability)
	assert.NotEmpty(t, r.Error)
	assert.Equal(t, 4, r.ClipIndex)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClientRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "warming up", http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(generateResponse{Response: "ok"})
	}))
	defer srv.Close()

	client := NewClient(zerolog.Nop(), ClientOptions{BaseURL: srv.URL, MaxRetries: 2})
	text, err := client.Generate(context.Background(), "p", [][]byte{[]byte("img")})
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	assert.Equal(t, int32(2), calls.Load())
}

func TestScoreAllMissingFrameFile(t *testing.T) {
	srv := modelServer(t, "unused")
	defer srv.Close()

	scorer := newTestScorer(t, srv.URL, 1)
	results := scorer.ScoreAll(context.Background(), []FrameSequence{
		{ClipIndex: 2, Key: "5", FramePaths: []string{"/nonexistent/frame.jpg"}},
	})
	require.Len(t, results, 1)
	assert.Equal(t, StatusError, results[0].Status)
	assert.Zero(t, results[0].Probability)
}

func TestScoreAllCollectsEveryResult(t *testing.T) {
	srv := modelServer(t, "SEQUENCE: play\nHIGHLIGHT_SCORE: 0.6\nEXPLANATION: fine")
	defer srv.Close()

	dir := t.TempDir()
	frames := writeFrames(t, dir, 2)
	scorer := newTestScorer(t, srv.URL, 1)

	sequences := []FrameSequence{
		{ClipIndex: 1, Key: "1", FramePaths: frames},
		{ClipIndex: 2, Key: "2", FramePaths: frames},
		{ClipIndex: 3, Key: "3", FramePaths: []string{filepath.Join(dir, "missing.jpg")}},
	}
	results := scorer.ScoreAll(context.Background(), sequences)
	require.Len(t, results, 3)

	statuses := map[int]string{}
	for _, r := range results {
		statuses[r.ClipIndex] = r.Status
	}
	assert.Equal(t, StatusSuccess, statuses[1])
	assert.Equal(t, StatusSuccess, statuses[2])
	assert.Equal(t, StatusError, statuses[3])
}

func TestParseSequenceResponseClampsScore(t *testing.T) {
	p, _, _ := parseSequenceResponse("HIGHLIGHT_SCORE: 1.7")
	assert.Equal(t, 1.0, p)

	p, _, _ = parseSequenceResponse("HIGHLIGHT_SCORE: -0.3")
	assert.Equal(t, 0.0, p)
}

func TestParseSequenceResponseMalformedNumber(t *testing.T) {
	p, seq, _ := parseSequenceResponse("SEQUENCE: something\nHIGHLIGHT_SCORE: very high")
	assert.Zero(t, p)
	assert.Equal(t, "something", seq)
}
