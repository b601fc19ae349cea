package config

import (
	"os"
	"path/filepath"
	"testing"

	internal "github.com/kosent/headline-sentiment/kosent"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// ConfigTestSuite tests the config package functionality
type ConfigTestSuite struct {
	suite.Suite
	tempDir string
	origDir string
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}

func (suite *ConfigTestSuite) SetupTest() {
	var err error
	suite.origDir, err = os.Getwd()
	require.NoError(suite.T(), err)

	tempDir, err := os.MkdirTemp("", "kosent-config-test-*")
	require.NoError(suite.T(), err)
	suite.tempDir = tempDir

	// Run from an empty directory so no stray config file is picked up
	err = os.Chdir(tempDir)
	require.NoError(suite.T(), err)
}

func (suite *ConfigTestSuite) TearDownTest() {
	if suite.origDir != "" {
		os.Chdir(suite.origDir)
	}
	if suite.tempDir != "" {
		os.RemoveAll(suite.tempDir)
	}
}

func (suite *ConfigTestSuite) TestLoadConfigWithDefaults() {
	cfg, err := LoadConfig("")

	require.NoError(suite.T(), err)
	require.NotNil(suite.T(), cfg)

	assert.Equal(suite.T(), "title", cfg.Data.TitleCol)
	assert.Equal(suite.T(), 20000, cfg.Data.BalanceCap)
	assert.Equal(suite.T(), 0.8, cfg.Data.TrainFrac)
	assert.Equal(suite.T(), "hash", cfg.Encoder.Provider)
	assert.Equal(suite.T(), internal.DefaultMaxSeqLen, cfg.Encoder.MaxSeqLen)
	assert.Equal(suite.T(), internal.DefaultHiddenDim, cfg.Encoder.HiddenDim)
	assert.Equal(suite.T(), 3, cfg.Training.Epochs)
	assert.Equal(suite.T(), internal.DefaultCheckpointPath, cfg.Training.CheckpointPath)
	assert.Equal(suite.T(), internal.DefaultRunDBPath, cfg.Store.DSN)
	assert.True(suite.T(), cfg.Store.Enabled)
}

func (suite *ConfigTestSuite) TestLoadConfigWithFile() {
	configContent := `
data:
  path: "./news.csv"
  titleCol: "headline"
  balanceCap: 500
  trainFrac: 0.7
  valFrac: 0.15
  seed: 7

encoder:
  provider: "onnx"
  modelPath: "./model.onnx"
  vocabPath: "./vocab.txt"
  tokenizer: "sugarme"
  hiddenDim: 384
  maxSeqLen: 128

training:
  epochs: 5
  batchSize: 16
  learningRate: 0.0005
  checkpointPath: "./best.ckpt"

output:
  predictionsPath: "./out.csv"
`
	configFile := filepath.Join(suite.tempDir, "config.yaml")
	err := os.WriteFile(configFile, []byte(configContent), 0o644)
	require.NoError(suite.T(), err)

	cfg, err := LoadConfig(configFile)

	require.NoError(suite.T(), err)
	require.NotNil(suite.T(), cfg)

	assert.Equal(suite.T(), "./news.csv", cfg.Data.Path)
	assert.Equal(suite.T(), "headline", cfg.Data.TitleCol)
	assert.Equal(suite.T(), 500, cfg.Data.BalanceCap)
	assert.Equal(suite.T(), 0.7, cfg.Data.TrainFrac)
	assert.Equal(suite.T(), "onnx", cfg.Encoder.Provider)
	assert.Equal(suite.T(), "sugarme", cfg.Encoder.Tokenizer)
	assert.Equal(suite.T(), 384, cfg.Encoder.HiddenDim)
	assert.Equal(suite.T(), 128, cfg.Encoder.MaxSeqLen)
	assert.Equal(suite.T(), 5, cfg.Training.Epochs)
	assert.Equal(suite.T(), 0.0005, cfg.Training.LearningRate)
	assert.Equal(suite.T(), "./out.csv", cfg.Output.PredictionsPath)

	// Values not in the file keep their defaults.
	assert.Equal(suite.T(), "description", cfg.Data.BodyCol)
	assert.Equal(suite.T(), "label", cfg.Data.LabelCol)
}

func (suite *ConfigTestSuite) TestLoadConfigInvalidFile() {
	cfg, err := LoadConfig("/nonexistent/path/config.yaml")

	assert.Error(suite.T(), err)
	assert.Nil(suite.T(), cfg)
}

func (suite *ConfigTestSuite) TestLoadConfigMalformedFile() {
	malformedContent := `
data:
  path: "./news.csv"
  invalid_yaml: [unclosed bracket
`
	configFile := filepath.Join(suite.tempDir, "malformed.yaml")
	err := os.WriteFile(configFile, []byte(malformedContent), 0o644)
	require.NoError(suite.T(), err)

	cfg, err := LoadConfig(configFile)

	assert.Error(suite.T(), err)
	assert.Nil(suite.T(), cfg)
}

func (suite *ConfigTestSuite) TestLoadConfigRejectsBadValues() {
	configContent := `
encoder:
  maxSeqLen: 2
`
	configFile := filepath.Join(suite.tempDir, "config.yaml")
	err := os.WriteFile(configFile, []byte(configContent), 0o644)
	require.NoError(suite.T(), err)

	cfg, err := LoadConfig(configFile)

	assert.Error(suite.T(), err)
	assert.Nil(suite.T(), cfg)
}

func TestValidate(t *testing.T) {
	good := Config{
		Data:     DataConfig{TrainFrac: 0.8, ValFrac: 0.1},
		Encoder:  EncoderConfig{MaxSeqLen: 64, HiddenDim: 768},
		Training: TrainingConfig{Epochs: 3, BatchSize: 32, LearningRate: 1e-3},
	}
	assert.NoError(t, good.Validate())

	bad := good
	bad.Training.LearningRate = 0
	assert.Error(t, bad.Validate())

	bad = good
	bad.Data.TrainFrac = 0.95
	bad.Data.ValFrac = 0.1
	assert.Error(t, bad.Validate())
}
