package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// AudioConfig controls audio decoding and excitement feature extraction.
type AudioConfig struct {
	SampleRate     int           `mapstructure:"sampleRate"`
	HopLength      int           `mapstructure:"hopLength"`
	WindowSize     int           `mapstructure:"windowSize"`
	MelBands       int           `mapstructure:"melBands"`
	HighBandCutoff int           `mapstructure:"highBandCutoff"`
	Weights        FeatureWeight `mapstructure:"weights"`
}

// FeatureWeight holds the fixed combination weights for the excitement score.
type FeatureWeight struct {
	Energy   float64 `mapstructure:"energy"`
	Contrast float64 `mapstructure:"contrast"`
	RMS      float64 `mapstructure:"rms"`
}

// DetectionConfig controls segment thresholding and merging.
type DetectionConfig struct {
	Strategy    string  `mapstructure:"strategy"` // "fixed" or "percentile"
	Threshold   float64 `mapstructure:"threshold"`
	Percentile  float64 `mapstructure:"percentile"`
	MinDuration float64 `mapstructure:"minDuration"`
	GapSeconds  float64 `mapstructure:"gapSeconds"`
}

// ClipConfig controls highlight clip extraction and frame sampling.
type ClipConfig struct {
	BufferSeconds float64 `mapstructure:"bufferSeconds"`
	FrameInterval float64 `mapstructure:"frameInterval"`
}

// VisionConfig addresses the remote scoring model.
type VisionConfig struct {
	BaseURL        string        `mapstructure:"baseURL"`
	Model          string        `mapstructure:"model"`
	Temperature    float64       `mapstructure:"temperature"`
	Workers        int           `mapstructure:"workers"`
	MaxRetries     int           `mapstructure:"maxRetries"`
	RequestTimeout time.Duration `mapstructure:"requestTimeout"`
}

// StitchConfig controls highlight selection and reel assembly.
type StitchConfig struct {
	SelectionThreshold float64 `mapstructure:"selectionThreshold"`
}

// StorageConfig selects and parameterizes the blob store backend.
type StorageConfig struct {
	Backend   string `mapstructure:"backend"` // "s3" or "local"
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	Endpoint  string `mapstructure:"endpoint"` // optional, for S3-compatible stores
	LocalPath string `mapstructure:"localPath"`
}

// DatabaseConfig holds the video record store connection settings.
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbName"`
	SSLMode  string `mapstructure:"sslMode"`
}

// DSN builds a postgres connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

// FFmpegConfig holds external tool settings.
type FFmpegConfig struct {
	Threads int `mapstructure:"threads"`
}

// Config is the immutable configuration value passed into each component.
type Config struct {
	WorkDir   string          `mapstructure:"workDir"`
	Audio     AudioConfig     `mapstructure:"audio"`
	Detection DetectionConfig `mapstructure:"detection"`
	Clips     ClipConfig      `mapstructure:"clips"`
	Vision    VisionConfig    `mapstructure:"vision"`
	Stitch    StitchConfig    `mapstructure:"stitch"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Database  DatabaseConfig  `mapstructure:"database"`
	FFmpeg    FFmpegConfig    `mapstructure:"ffmpeg"`
}

// Load reads configuration from a yaml file, environment variables and
// built-in defaults, in that order of precedence from lowest to highest.
// An absent config file is not an error; defaults plus env apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
	}
	v.SetEnvPrefix("REELGEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("workDir", "./work")

	v.SetDefault("audio.sampleRate", 22050)
	v.SetDefault("audio.hopLength", 512)
	v.SetDefault("audio.windowSize", 2048)
	v.SetDefault("audio.melBands", 128)
	v.SetDefault("audio.highBandCutoff", 40)
	v.SetDefault("audio.weights.energy", 0.4)
	v.SetDefault("audio.weights.contrast", 0.3)
	v.SetDefault("audio.weights.rms", 0.3)

	v.SetDefault("detection.strategy", "fixed")
	v.SetDefault("detection.threshold", 0.5)
	v.SetDefault("detection.percentile", 99)
	v.SetDefault("detection.minDuration", 1.5)
	v.SetDefault("detection.gapSeconds", 4.0)

	v.SetDefault("clips.bufferSeconds", 2.0)
	v.SetDefault("clips.frameInterval", 1.0)

	v.SetDefault("vision.baseURL", "http://localhost:11434")
	v.SetDefault("vision.model", "llava")
	v.SetDefault("vision.temperature", 0.1)
	v.SetDefault("vision.workers", 2)
	v.SetDefault("vision.maxRetries", 3)
	v.SetDefault("vision.requestTimeout", 180*time.Second)

	v.SetDefault("stitch.selectionThreshold", 0.5)

	v.SetDefault("storage.backend", "local")
	v.SetDefault("storage.localPath", "./blobs")
	v.SetDefault("storage.region", "us-east-1")

	v.SetDefault("database.host", "127.0.0.1")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "reelgen")
	v.SetDefault("database.dbName", "reelgen")
	v.SetDefault("database.sslMode", "disable")

	v.SetDefault("ffmpeg.threads", 0)
}

func (c *Config) validate() error {
	switch c.Detection.Strategy {
	case "fixed", "percentile":
	default:
		return fmt.Errorf("unknown detection strategy %q", c.Detection.Strategy)
	}
	switch c.Storage.Backend {
	case "local", "s3":
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if c.Storage.Backend == "s3" && c.Storage.Bucket == "" {
		return fmt.Errorf("storage.bucket is required for the s3 backend")
	}
	if c.Vision.Workers < 1 {
		return fmt.Errorf("vision.workers must be at least 1")
	}
	if c.Audio.HighBandCutoff < 0 || c.Audio.HighBandCutoff >= c.Audio.MelBands {
		return fmt.Errorf("audio.highBandCutoff must be in [0, %d)", c.Audio.MelBands)
	}
	return nil
}
