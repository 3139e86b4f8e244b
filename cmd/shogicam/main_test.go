package main

import (
	"path/filepath"
	"testing"

	"go.viam.com/test"

	"shogicam"
)

func parsedFlags(t *testing.T, args ...string) (*shogicam.Config, func(*shogicam.Config)) {
	t.Helper()
	fs, _ := newPredictFlags()
	test.That(t, fs.Parse(args), test.ShouldBeNil)
	return &shogicam.Config{}, func(cfg *shogicam.Config) { applyFlags(cfg, fs) }
}

func TestApplyFlagsDefaults(t *testing.T) {
	cfg, apply := parsedFlags(t, "board.jpg")
	apply(cfg)
	test.That(t, cfg.ModelPath, test.ShouldEqual, "models/shogicam.onnx")
	test.That(t, cfg.ModelURL, test.ShouldEqual, "")
	test.That(t, cfg.Orientation, test.ShouldEqual, "")
}

func TestApplyFlagsOverrideConfig(t *testing.T) {
	_, apply := parsedFlags(t, "-m", "other.onnx", "-gote=false", "board.jpg")
	cfg := &shogicam.Config{ModelURL: "http://localhost:8000", Orientation: "gote"}
	apply(cfg)
	test.That(t, cfg.ModelPath, test.ShouldEqual, "other.onnx")
	test.That(t, cfg.ModelURL, test.ShouldEqual, "")
	test.That(t, cfg.Orientation, test.ShouldEqual, "sente")

	_, apply = parsedFlags(t, "-url", "http://inference:9000", "-gote", "board.jpg")
	cfg = &shogicam.Config{ModelPath: "config.onnx"}
	apply(cfg)
	test.That(t, cfg.ModelURL, test.ShouldEqual, "http://inference:9000")
	test.That(t, cfg.ModelPath, test.ShouldEqual, "")
	test.That(t, cfg.Orientation, test.ShouldEqual, "gote")
}

func TestApplyFlagsKeepsConfigWhenUnset(t *testing.T) {
	_, apply := parsedFlags(t, "board.jpg")
	cfg := &shogicam.Config{ModelURL: "http://localhost:8000", Orientation: "gote"}
	apply(cfg)
	test.That(t, cfg.ModelURL, test.ShouldEqual, "http://localhost:8000")
	test.That(t, cfg.ModelPath, test.ShouldEqual, "")
	test.That(t, cfg.Orientation, test.ShouldEqual, "gote")
}

func TestOutputName(t *testing.T) {
	test.That(t, outputName(filepath.Join("dir", "board.jpg"), "_output"), test.ShouldEqual, filepath.Join("dir", "board_output.jpg"))
	test.That(t, outputName("board", "_board"), test.ShouldEqual, "board_board.png")
}
