package shogicam

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// Config selects the model and tunes the pipeline. Zero values take defaults.
type Config struct {
	// ModelPath is an ONNX file; ModelURL an HTTP inference service. Exactly one is set.
	ModelPath   string `json:"model_path,omitempty" yaml:"model_path" mapstructure:"model_path"`
	ModelURL    string `json:"model_url,omitempty" yaml:"model_url" mapstructure:"model_url"`
	OnnxLibrary string `json:"onnx_library,omitempty" yaml:"onnx_library" mapstructure:"onnx_library"`

	// InputSize and Channels describe a remote model's cell input; ONNX models carry their own.
	InputSize int `json:"input_size,omitempty" yaml:"input_size" mapstructure:"input_size"`
	Channels  int `json:"channels,omitempty" yaml:"channels" mapstructure:"channels"`

	BoardSize   int    `json:"board_size,omitempty" yaml:"board_size" mapstructure:"board_size"`
	BatchSize   int    `json:"batch_size,omitempty" yaml:"batch_size" mapstructure:"batch_size"`
	Orientation string `json:"orientation,omitempty" yaml:"orientation" mapstructure:"orientation"`
	// TimeoutSec bounds one remote model call.
	TimeoutSec float64 `json:"timeout_sec,omitempty" yaml:"timeout_sec" mapstructure:"timeout_sec"`

	Detector DetectorConfig `json:"detector,omitempty" yaml:"detector" mapstructure:"detector"`
}

// Validate checks the config and reports every problem at once. It follows the
// resource config signature and never has dependencies.
func (cfg *Config) Validate(path string) ([]string, []string, error) {
	var err error
	switch {
	case cfg.ModelPath == "" && cfg.ModelURL == "":
		err = multierr.Append(err, fmt.Errorf("%s: need model_path or model_url", path))
	case cfg.ModelPath != "" && cfg.ModelURL != "":
		err = multierr.Append(err, fmt.Errorf("%s: model_path and model_url are exclusive", path))
	}
	if cfg.InputSize < 0 {
		err = multierr.Append(err, fmt.Errorf("%s: negative input_size %d", path, cfg.InputSize))
	}
	if cfg.Channels != 0 && cfg.Channels != 1 && cfg.Channels != 3 {
		err = multierr.Append(err, fmt.Errorf("%s: channels must be 1 or 3, got %d", path, cfg.Channels))
	}
	if cfg.BoardSize < 0 || cfg.BoardSize%9 != 0 {
		err = multierr.Append(err, fmt.Errorf("%s: board_size %d is not a multiple of 9", path, cfg.BoardSize))
	}
	if cfg.BatchSize < 0 {
		err = multierr.Append(err, fmt.Errorf("%s: negative batch_size %d", path, cfg.BatchSize))
	}
	if cfg.TimeoutSec < 0 {
		err = multierr.Append(err, fmt.Errorf("%s: negative timeout_sec %v", path, cfg.TimeoutSec))
	}
	if _, oerr := ParseOrientation(cfg.Orientation); oerr != nil {
		err = multierr.Append(err, fmt.Errorf("%s: %w", path, oerr))
	}
	if _, derr := NewCornerDetector(cfg.Detector, nil); derr != nil {
		err = multierr.Append(err, fmt.Errorf("%s.detector: %w", path, derr))
	}
	return nil, nil, err
}

// LoadConfig reads a YAML config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if _, _, err := cfg.Validate(path); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadedModel is a Model holding resources that must be released.
type LoadedModel interface {
	Model
	Close() error
}

// infoTimeout bounds the class count query made when loading a remote model.
const infoTimeout = 5 * time.Second

// LoadModel opens the model cfg points at and checks its vocabulary. Remote models
// are checked against the count their service reports on /info when it answers.
func LoadModel(cfg *Config) (LoadedModel, error) {
	var m LoadedModel
	if cfg.ModelPath != "" {
		om, err := LoadONNXModel(cfg.ModelPath, cfg.OnnxLibrary)
		if err != nil {
			return nil, err
		}
		m = om
	} else {
		size := cfg.InputSize
		if size == 0 {
			size = DefaultBoardSize / 9
		}
		channels := cfg.Channels
		if channels == 0 {
			channels = 3
		}
		client := &http.Client{}
		if cfg.TimeoutSec > 0 {
			client.Timeout = time.Duration(cfg.TimeoutSec * float64(time.Second))
		}
		rm, err := NewRemoteModel(cfg.ModelURL, Shape{Height: size, Width: size, Channels: channels}, NumClasses, client)
		if err != nil {
			return nil, err
		}
		// an unreachable service may come up later; it is then checked per call
		ctx, cancel := context.WithTimeout(context.Background(), infoTimeout)
		_ = rm.Describe(ctx)
		cancel()
		m = rm
	}

	if n := m.NumClasses(); n != NumClasses {
		return nil, multierr.Combine(
			fmt.Errorf("%w: model has %d classes, vocabulary has %d", ErrVocabularyMismatch, n, NumClasses),
			m.Close())
	}
	return m, nil
}

func (cfg *Config) orientation() Orientation {
	o, _ := ParseOrientation(cfg.Orientation)
	return o
}
