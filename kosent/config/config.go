package config

import (
	"fmt"
	"path/filepath"
	"strings"

	internal "github.com/kosent/headline-sentiment/kosent"

	"github.com/spf13/viper"
)

// Config stores all configuration of the application.
// The values are read by viper from a config file or environment variables.
type Config struct {
	Data     DataConfig     `mapstructure:"data"`
	Encoder  EncoderConfig  `mapstructure:"encoder"`
	Training TrainingConfig `mapstructure:"training"`
	Store    StoreConfig    `mapstructure:"store"`
	Output   OutputConfig   `mapstructure:"output"`
}

// DataConfig stores dataset source and preprocessing settings.
type DataConfig struct {
	Path       string  `mapstructure:"path"`
	TitleCol   string  `mapstructure:"titleCol"`
	BodyCol    string  `mapstructure:"bodyCol"`
	LabelCol   string  `mapstructure:"labelCol"`
	BalanceCap int     `mapstructure:"balanceCap"`
	TrainFrac  float64 `mapstructure:"trainFrac"`
	ValFrac    float64 `mapstructure:"valFrac"`
	Seed       int64   `mapstructure:"seed"`
}

// EncoderConfig stores tokenizer and embedding-provider settings. The vocab
// and hidden dimension must match the pretrained model the provider serves.
type EncoderConfig struct {
	Provider  string `mapstructure:"provider"`
	ModelPath string `mapstructure:"modelPath"`
	VocabPath string `mapstructure:"vocabPath"`
	Tokenizer string `mapstructure:"tokenizer"`
	HiddenDim int    `mapstructure:"hiddenDim"`
	MaxSeqLen int    `mapstructure:"maxSeqLen"`
	BatchSize int    `mapstructure:"batchSize"`
}

// TrainingConfig stores the fixed fine-tuning recipe.
type TrainingConfig struct {
	Epochs         int     `mapstructure:"epochs"`
	BatchSize      int     `mapstructure:"batchSize"`
	LearningRate   float64 `mapstructure:"learningRate"`
	CheckpointPath string  `mapstructure:"checkpointPath"`
}

// StoreConfig stores run-database connection details.
type StoreConfig struct {
	DSN     string `mapstructure:"dsn"`
	Enabled bool   `mapstructure:"enabled"`
}

// OutputConfig stores prediction output settings.
type OutputConfig struct {
	PredictionsPath string `mapstructure:"predictionsPath"`
}

var AppConfig Config

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("..")
		v.AddConfigPath(filepath.Join("etc", internal.DefaultAppName))
		v.AddConfigPath(internal.DefaultConfigPath)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	// Set default values
	v.SetDefault("data.titleCol", "title")
	v.SetDefault("data.bodyCol", "description")
	v.SetDefault("data.labelCol", "label")
	v.SetDefault("data.balanceCap", 20000)
	v.SetDefault("data.trainFrac", 0.8)
	v.SetDefault("data.valFrac", 0.1)
	v.SetDefault("data.seed", 42)

	v.SetDefault("encoder.provider", "hash")
	v.SetDefault("encoder.tokenizer", "wordpiece")
	v.SetDefault("encoder.hiddenDim", internal.DefaultHiddenDim)
	v.SetDefault("encoder.maxSeqLen", internal.DefaultMaxSeqLen)
	v.SetDefault("encoder.batchSize", 32)

	v.SetDefault("training.epochs", 3)
	v.SetDefault("training.batchSize", 32)
	v.SetDefault("training.learningRate", 1e-3)
	v.SetDefault("training.checkpointPath", internal.DefaultCheckpointPath)

	v.SetDefault("store.dsn", internal.DefaultRunDBPath)
	v.SetDefault("store.enabled", true)

	v.SetDefault("output.predictionsPath", "predictions.csv")

	v.AutomaticEnv()                                   // Read in environment variables that match
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_")) // e.g. training.learningRate becomes TRAINING_LEARNINGRATE

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found; defaults will be used.
	}

	if err := v.Unmarshal(&AppConfig); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if err := AppConfig.Validate(); err != nil {
		return nil, err
	}

	return &AppConfig, nil
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Encoder.MaxSeqLen < 3 {
		return fmt.Errorf("encoder.maxSeqLen must leave room for at least one token beside [CLS]/[SEP], got %d", c.Encoder.MaxSeqLen)
	}
	if c.Encoder.HiddenDim <= 0 {
		return fmt.Errorf("encoder.hiddenDim must be positive, got %d", c.Encoder.HiddenDim)
	}
	if c.Data.TrainFrac <= 0 || c.Data.ValFrac < 0 || c.Data.TrainFrac+c.Data.ValFrac >= 1 {
		return fmt.Errorf("data split fractions must satisfy 0 < trainFrac, 0 <= valFrac, trainFrac+valFrac < 1")
	}
	if c.Training.Epochs <= 0 || c.Training.BatchSize <= 0 {
		return fmt.Errorf("training.epochs and training.batchSize must be positive")
	}
	if c.Training.LearningRate <= 0 {
		return fmt.Errorf("training.learningRate must be positive, got %g", c.Training.LearningRate)
	}
	return nil
}
