// Package pipeline wires the full highlight run: audio analysis, clip
// extraction, model scoring, and reel assembly.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hoopline/reelgen/internal/audio"
	"github.com/hoopline/reelgen/internal/config"
	"github.com/hoopline/reelgen/internal/ffmpeg"
	"github.com/hoopline/reelgen/internal/highlight"
	"github.com/hoopline/reelgen/internal/storage"
	"github.com/hoopline/reelgen/internal/store"
	"github.com/hoopline/reelgen/internal/vision"
	"github.com/hoopline/reelgen/pkg/util"
)

// Pipeline runs highlight detection end to end for one video at a time.
type Pipeline struct {
	logger  zerolog.Logger
	cfg     *config.Config
	exec    *ffmpeg.Executor
	blobs   storage.BlobStore
	records *store.Store
}

// New assembles a pipeline from its dependencies. records may be nil for
// local runs that skip the database.
func New(logger zerolog.Logger, cfg *config.Config, exec *ffmpeg.Executor, blobs storage.BlobStore, records *store.Store) *Pipeline {
	return &Pipeline{
		logger:  logger.With().Str("component", "pipeline").Logger(),
		cfg:     cfg,
		exec:    exec,
		blobs:   blobs,
		records: records,
	}
}

// Result is what a completed run produced. ReelFile is empty when no clip
// cleared the selection threshold.
type Result struct {
	Segments   []audio.Segment
	Clips      []highlight.ClipMetadata
	Analysis   *vision.Analysis
	ReelFile   string
	WorkDir    string
	Highlights []store.HighlightRecord
}

// Upload stores a local video in the blob store and creates its pending
// record, returning the new video ID.
func (p *Pipeline) Upload(ctx context.Context, localPath string) (uuid.UUID, error) {
	id := uuid.New()
	rawURL, err := p.blobs.UploadFile(ctx, localPath, storage.RawVideoKey(id.String()))
	if err != nil {
		return uuid.Nil, fmt.Errorf("uploading video: %w", err)
	}
	if p.records != nil {
		if _, err := p.records.Create(ctx, id, rawURL); err != nil {
			return uuid.Nil, err
		}
	}
	p.logger.Info().Str("video_id", id.String()).Msg("video uploaded")
	return id, nil
}

// Status reports the current lifecycle state of a video record.
func (p *Pipeline) Status(ctx context.Context, id uuid.UUID) (*store.Video, error) {
	if p.records == nil {
		return nil, fmt.Errorf("no record store configured")
	}
	return p.records.Get(ctx, id)
}

// Process runs the full pipeline for an uploaded video: it downloads the raw
// file, analyzes it, uploads the reel and analysis, and updates the record.
// Any run-level failure marks the record failed before returning.
func (p *Pipeline) Process(ctx context.Context, id uuid.UUID) (*Result, error) {
	if p.records != nil {
		if err := p.records.UpdateStatus(ctx, id, store.StatusProcessing); err != nil {
			return nil, err
		}
	}

	res, err := p.process(ctx, id)
	if err != nil {
		if p.records != nil {
			if serr := p.records.UpdateStatus(ctx, id, store.StatusFailed); serr != nil {
				p.logger.Error().Err(serr).Str("video_id", id.String()).Msg("failed to mark record failed")
			}
		}
		return nil, err
	}
	return res, nil
}

func (p *Pipeline) process(ctx context.Context, id uuid.UUID) (*Result, error) {
	workDir := filepath.Join(p.cfg.WorkDir, id.String())
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return nil, fmt.Errorf("creating work directory: %w", err)
	}

	videoFile := filepath.Join(workDir, "raw.mp4")
	if err := p.blobs.DownloadFile(ctx, storage.RawVideoKey(id.String()), videoFile); err != nil {
		return nil, fmt.Errorf("downloading raw video: %w", err)
	}

	audioFile := filepath.Join(workDir, "split_audio.mp3")
	if err := p.exec.ExtractAudioMP3(ctx, videoFile, audioFile); err != nil {
		return nil, fmt.Errorf("extracting audio: %w", err)
	}
	if _, err := p.blobs.UploadFile(ctx, audioFile, storage.SplitAudioKey(id.String())); err != nil {
		p.logger.Warn().Err(err).Msg("failed to upload split audio")
	}

	res, err := p.Run(ctx, videoFile, workDir)
	if err != nil {
		return nil, err
	}

	reelURL := ""
	if res.ReelFile != "" {
		reelURL, err = p.blobs.UploadFile(ctx, res.ReelFile, storage.HighlightReelKey(id.String()))
		if err != nil {
			return nil, fmt.Errorf("uploading reel: %w", err)
		}
	}
	analysisFile := filepath.Join(workDir, "highlights.json")
	if _, err := p.blobs.UploadFile(ctx, analysisFile, storage.AnalysisKey(id.String())); err != nil {
		p.logger.Warn().Err(err).Msg("failed to upload analysis")
	}

	if p.records != nil {
		payload, err := json.Marshal(res.Highlights)
		if err != nil {
			return nil, fmt.Errorf("encoding highlights: %w", err)
		}
		if err := p.records.SetResults(ctx, id, reelURL, payload); err != nil {
			return nil, err
		}
	}

	p.logger.Info().
		Str("video_id", id.String()).
		Int("segments", len(res.Segments)).
		Int("clips", len(res.Clips)).
		Bool("reel", res.ReelFile != "").
		Msg("processing complete")
	return res, nil
}

// Run executes the analysis pipeline over a local video file, writing all
// intermediate artifacts under workDir. It is storage-agnostic so local runs
// and uploaded runs share one path.
func (p *Pipeline) Run(ctx context.Context, videoFile, workDir string) (*Result, error) {
	highlightsDir := filepath.Join(workDir, "highlights")
	imagesDir := filepath.Join(workDir, "images")
	for _, dir := range []string{highlightsDir, imagesDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating %s: %w", dir, err)
		}
	}

	info, err := p.exec.ProbeVideo(ctx, videoFile)
	if err != nil {
		return nil, fmt.Errorf("probing video: %w", err)
	}
	if !info.HasAudio {
		return nil, fmt.Errorf("video %s has no audio track", videoFile)
	}
	p.logger.Info().
		Str("duration", util.FormatDuration(info.Duration)).
		Int("width", info.Width).
		Int("height", info.Height).
		Str("codec", info.VideoCodec).
		Msg("analyzing video")

	samples, err := p.exec.DecodePCM(ctx, videoFile, p.cfg.Audio.SampleRate)
	if err != nil {
		return nil, fmt.Errorf("decoding audio: %w", err)
	}

	extractor := audio.NewFeatureExtractor(p.logger, audio.Params{
		SampleRate:     p.cfg.Audio.SampleRate,
		HopLength:      p.cfg.Audio.HopLength,
		WindowSize:     p.cfg.Audio.WindowSize,
		MelBands:       p.cfg.Audio.MelBands,
		HighBandCutoff: p.cfg.Audio.HighBandCutoff,
		Weights: audio.Weights{
			Energy:   p.cfg.Audio.Weights.Energy,
			Contrast: p.cfg.Audio.Weights.Contrast,
			RMS:      p.cfg.Audio.Weights.RMS,
		},
	})
	series, err := extractor.Extract(samples)
	if err != nil {
		return nil, fmt.Errorf("extracting features: %w", err)
	}

	var thresholder audio.Thresholder
	if p.cfg.Detection.Strategy == "percentile" {
		thresholder = audio.PercentileThreshold{Percentile: p.cfg.Detection.Percentile}
	} else {
		thresholder = audio.FixedThreshold{Value: p.cfg.Detection.Threshold}
	}
	finder := audio.NewSegmentFinder(p.logger, thresholder, p.cfg.Detection.MinDuration)
	segments := audio.MergeClose(finder.Find(series), p.cfg.Detection.GapSeconds)
	if len(segments) == 0 {
		p.logger.Info().Msg("no exciting segments found")
	}

	highlights := make([]store.HighlightRecord, 0, len(segments))
	for _, seg := range segments {
		highlights = append(highlights, store.HighlightRecord{
			StartTime:       seg.Start,
			EndTime:         seg.End,
			ExcitementScore: peakScore(series, seg),
		})
	}

	clipper := highlight.NewExtractor(p.logger, p.exec, p.cfg.Clips.BufferSeconds)
	clips, err := clipper.ExtractAll(ctx, videoFile, segments, highlightsDir)
	if err != nil {
		return nil, fmt.Errorf("extracting clips: %w", err)
	}
	metaFile := filepath.Join(highlightsDir, "clip_metadata.json")
	if err := highlight.WriteClipMetadata(metaFile, clips); err != nil {
		return nil, err
	}

	sampler := highlight.NewFrameSampler(p.logger, p.exec, p.cfg.Clips.FrameInterval)
	frameSets, err := sampler.SampleAll(ctx, highlightsDir, clips, imagesDir)
	if err != nil {
		return nil, fmt.Errorf("sampling frames: %w", err)
	}
	if err := highlight.WriteFrameIndex(filepath.Join(imagesDir, "frame_index.json"), frameSets); err != nil {
		return nil, err
	}

	client := vision.NewClient(p.logger, vision.ClientOptions{
		BaseURL:     p.cfg.Vision.BaseURL,
		Model:       p.cfg.Vision.Model,
		Temperature: p.cfg.Vision.Temperature,
		MaxRetries:  p.cfg.Vision.MaxRetries,
		Timeout:     p.cfg.Vision.RequestTimeout,
	})
	scorer := vision.NewSequenceScorer(p.logger, client, p.cfg.Vision.Workers)

	sequences := make([]vision.FrameSequence, 0, len(frameSets))
	for _, fs := range frameSets {
		paths := make([]string, 0, len(fs.Frames))
		for _, f := range fs.Frames {
			paths = append(paths, filepath.Join(imagesDir, f))
		}
		sequences = append(sequences, vision.FrameSequence{
			ClipIndex:  fs.ClipIndex,
			Key:        fmt.Sprintf("%g", fs.StartTime),
			FramePaths: paths,
		})
	}

	started := time.Now()
	scores := scorer.ScoreAll(ctx, sequences)
	analysis := vision.NewAggregator(p.logger).Aggregate(scores, time.Since(started))
	if err := analysis.Write(filepath.Join(workDir, "highlights.json")); err != nil {
		return nil, err
	}

	scored := make([]highlight.ScoredClip, 0, len(analysis.Sequences))
	for _, s := range analysis.Sequences {
		scored = append(scored, highlight.ScoredClip{
			Index:       s.ClipIndex,
			Probability: s.Probability,
		})
	}

	stitcher := highlight.NewStitcher(p.logger, p.exec, p.cfg.Stitch.SelectionThreshold)
	reel, err := stitcher.Stitch(ctx, scored, highlightsDir, filepath.Join(workDir, "highlight_reel.mp4"))
	if err != nil {
		return nil, fmt.Errorf("stitching reel: %w", err)
	}

	return &Result{
		Segments:   segments,
		Clips:      clips,
		Analysis:   analysis,
		ReelFile:   reel,
		WorkDir:    workDir,
		Highlights: highlights,
	}, nil
}

// StitchFrom rebuilds a reel from a previously written analysis file,
// skipping audio analysis and scoring.
func (p *Pipeline) StitchFrom(ctx context.Context, analysisPath, highlightsDir, output string) (string, error) {
	analysis, err := vision.ReadAnalysis(analysisPath)
	if err != nil {
		return "", err
	}
	scored := make([]highlight.ScoredClip, 0, len(analysis.Sequences))
	for _, s := range analysis.Sequences {
		scored = append(scored, highlight.ScoredClip{
			Index:       s.ClipIndex,
			Probability: s.Probability,
		})
	}
	stitcher := highlight.NewStitcher(p.logger, p.exec, p.cfg.Stitch.SelectionThreshold)
	return stitcher.Stitch(ctx, scored, highlightsDir, output)
}

// peakScore is the highest excitement score inside a segment's bounds. It is
// what gets persisted alongside the segment times.
func peakScore(series *audio.FeatureSeries, seg audio.Segment) float64 {
	peak := 0.0
	for i, t := range series.Times {
		if t < seg.Start {
			continue
		}
		if t > seg.End {
			break
		}
		if series.Scores[i] > peak {
			peak = series.Scores[i]
		}
	}
	return peak
}
