package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/hoopline/reelgen/internal/config"
	"github.com/hoopline/reelgen/internal/ffmpeg"
	"github.com/hoopline/reelgen/internal/logging"
	"github.com/hoopline/reelgen/internal/pipeline"
	"github.com/hoopline/reelgen/internal/storage"
	"github.com/hoopline/reelgen/internal/store"
	"github.com/hoopline/reelgen/internal/vision"
)

var (
	cfgPath string
	verbose bool
	cfg     *config.Config
)

func main() {
	root := &cobra.Command{
		Use:   "reelgen",
		Short: "Generate sports highlight reels from full-game video",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logging.Init(verbose)
			var err error
			cfg, err = config.Load(cfgPath)
			return err
		},
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newAnalyzeCmd())
	root.AddCommand(newUploadCmd())
	root.AddCommand(newProcessCmd())
	root.AddCommand(newStatusCmd())
	root.AddCommand(newStitchCmd())
	root.AddCommand(newClassifyCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newAnalyzeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <video-file>",
		Short: "Run highlight detection on a local video file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := buildPipeline(cmd.Context(), false)
			if err != nil {
				return err
			}
			workDir := filepath.Join(cfg.WorkDir, trimExt(filepath.Base(args[0])))
			res, err := p.Run(cmd.Context(), args[0], workDir)
			if err != nil {
				return err
			}
			if res.ReelFile == "" {
				fmt.Println("no highlights cleared the selection threshold")
				return nil
			}
			fmt.Printf("highlight reel written to %s\n", res.ReelFile)
			return nil
		},
	}
}

func newUploadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "upload <video-file>",
		Short: "Upload a video for processing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := buildPipeline(cmd.Context(), true)
			if err != nil {
				return err
			}
			id, err := p.Upload(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Println(id)
			return nil
		},
	}
}

func newProcessCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "process <video-id>",
		Short: "Process an uploaded video into a highlight reel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid video id: %w", err)
			}
			p, err := buildPipeline(cmd.Context(), true)
			if err != nil {
				return err
			}
			res, err := p.Process(cmd.Context(), id)
			if err != nil {
				return err
			}
			if res.ReelFile == "" {
				fmt.Println("no highlights cleared the selection threshold")
			} else {
				fmt.Printf("highlight reel written to %s\n", res.ReelFile)
			}
			return nil
		},
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <video-id>",
		Short: "Show the processing state of an uploaded video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid video id: %w", err)
			}
			p, err := buildPipeline(cmd.Context(), true)
			if err != nil {
				return err
			}
			v, err := p.Status(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Printf("status: %s\n", v.Status)
			if len(v.Highlights) > 0 {
				var highlights []store.HighlightRecord
				if err := json.Unmarshal(v.Highlights, &highlights); err == nil {
					fmt.Printf("highlights: %d\n", len(highlights))
				}
			}
			if v.HighlightURL != "" {
				fmt.Printf("reel: %s\n", v.HighlightURL)
			}
			return nil
		},
	}
}

func newStitchCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "stitch <analysis.json> <highlights-dir>",
		Short: "Rebuild a reel from an existing analysis file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := buildPipeline(cmd.Context(), false)
			if err != nil {
				return err
			}
			reel, err := p.StitchFrom(cmd.Context(), args[0], args[1], output)
			if err != nil {
				return err
			}
			if reel == "" {
				fmt.Println("no highlights cleared the selection threshold")
				return nil
			}
			fmt.Printf("highlight reel written to %s\n", reel)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "highlight_reel.mp4", "output reel path")
	return cmd
}

func newClassifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify <frame.jpg> [frame.jpg...]",
		Short: "Classify still frames into clip-worthiness categories",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := logging.WithComponent("cli")
			client := vision.NewClient(logger, vision.ClientOptions{
				BaseURL:     cfg.Vision.BaseURL,
				Model:       cfg.Vision.Model,
				Temperature: cfg.Vision.Temperature,
				MaxRetries:  cfg.Vision.MaxRetries,
				Timeout:     cfg.Vision.RequestTimeout,
			})
			classifier := vision.NewFrameClassifier(logger, client, vision.DefaultClassifierRules())
			for _, frame := range args {
				c, err := classifier.Classify(cmd.Context(), frame)
				if err != nil {
					return err
				}
				fmt.Printf("%s: %s\n", frame, c.Category)
			}
			return nil
		},
	}
}

// buildPipeline constructs the pipeline for the current config. Remote
// dependencies (blob store, database) are only dialed when needed.
func buildPipeline(ctx context.Context, remote bool) (*pipeline.Pipeline, error) {
	logger := logging.WithComponent("cli")

	exec, err := ffmpeg.New(logger, cfg.FFmpeg.Threads)
	if err != nil {
		return nil, err
	}

	var blobs storage.BlobStore
	var records *store.Store
	if remote {
		switch cfg.Storage.Backend {
		case "s3":
			blobs, err = storage.NewS3Store(ctx, logger, storage.S3Options{
				Bucket:   cfg.Storage.Bucket,
				Region:   cfg.Storage.Region,
				Endpoint: cfg.Storage.Endpoint,
			})
		default:
			blobs, err = storage.NewLocalStore(logger, cfg.Storage.LocalPath)
		}
		if err != nil {
			return nil, err
		}
		records, err = store.Open(logger, cfg.Database.DSN())
		if err != nil {
			return nil, err
		}
	}

	return pipeline.New(logger, cfg, exec, blobs, records), nil
}

func trimExt(name string) string {
	return name[:len(name)-len(filepath.Ext(name))]
}
