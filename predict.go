package shogicam

import (
	"context"
	"fmt"
	"image"

	"go.viam.com/rdk/logging"
	"go.viam.com/utils/trace"
)

// Pipeline turns a photograph into a Board: detect corners, rectify, cut cells,
// classify, assemble. It holds no per-call state and may be shared.
type Pipeline struct {
	detector   *CornerDetector
	rectifier  *Rectifier
	segmenter  Segmenter
	classifier *Classifier

	logger logging.Logger
}

// Analysis is everything one recognition produced, for callers that want to draw it.
type Analysis struct {
	Detection Detection
	// Rectified is the canonical board image the cells were cut from.
	Rectified   *image.RGBA
	Orientation Orientation
	Board       *Board
}

// NewPipeline builds a pipeline around an already loaded model.
func NewPipeline(cfg *Config, model Model, logger logging.Logger) (*Pipeline, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	if logger == nil {
		logger = logging.NewLogger("shogicam")
	}

	detector, err := NewCornerDetector(cfg.Detector, logger.Sublogger("detector"))
	if err != nil {
		return nil, err
	}

	size := cfg.BoardSize
	if size == 0 {
		size = DefaultBoardSize
	}
	rectifier, err := NewRectifier(size)
	if err != nil {
		return nil, err
	}

	classifier, err := NewClassifier(model, cfg.BatchSize)
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		detector:   detector,
		rectifier:  rectifier,
		classifier: classifier,
		logger:     logger,
	}, nil
}

// Detector exposes the corner detector, e.g. to draw its result.
func (p *Pipeline) Detector() *CornerDetector {
	return p.detector
}

// Recognize finds the board in img and reads it. A photograph without a detectable
// board fails with ErrNoBoard; a low score is reported in Board.Score, not filtered.
func (p *Pipeline) Recognize(ctx context.Context, img image.Image, orientation Orientation) (*Board, error) {
	a, err := p.Analyze(ctx, img, orientation)
	if err != nil {
		return nil, err
	}
	return a.Board, nil
}

// RecognizeQuad reads the board at known corners, skipping detection. Score is 1.
func (p *Pipeline) RecognizeQuad(ctx context.Context, img image.Image, corners Quad, orientation Orientation) (*Board, error) {
	a, err := p.AnalyzeQuad(ctx, img, corners, orientation)
	if err != nil {
		return nil, err
	}
	return a.Board, nil
}

// Analyze is Recognize keeping the intermediate results.
func (p *Pipeline) Analyze(ctx context.Context, img image.Image, orientation Orientation) (*Analysis, error) {
	ctx, span := trace.StartSpan(ctx, "shogicam::Pipeline::Analyze")
	defer span.End()

	det, err := p.detect(ctx, img)
	if err != nil {
		return nil, err
	}
	p.logger.Debugf("corner detection score: %f", det.Score)
	return p.analyze(ctx, img, det, orientation)
}

// AnalyzeQuad is RecognizeQuad keeping the intermediate results.
func (p *Pipeline) AnalyzeQuad(ctx context.Context, img image.Image, corners Quad, orientation Orientation) (*Analysis, error) {
	ctx, span := trace.StartSpan(ctx, "shogicam::Pipeline::AnalyzeQuad")
	defer span.End()

	return p.analyze(ctx, img, Detection{Corners: corners, Score: 1}, orientation)
}

func (p *Pipeline) detect(ctx context.Context, img image.Image) (Detection, error) {
	_, span := trace.StartSpan(ctx, "shogicam::Pipeline::detect")
	defer span.End()

	return p.detector.Detect(img)
}

func (p *Pipeline) analyze(ctx context.Context, img image.Image, det Detection, orientation Orientation) (*Analysis, error) {
	board, err := p.rectify(ctx, img, det.Corners)
	if err != nil {
		return nil, err
	}

	cells, err := p.segmenter.Segment(board, orientation)
	if err != nil {
		return nil, err
	}

	images := make([]image.Image, len(cells))
	for i, c := range cells {
		images[i] = c.Image
	}
	preds, err := p.classifier.Classify(ctx, images)
	if err != nil {
		return nil, err
	}

	labels := make([]Label, 81)
	for i, c := range cells {
		l, err := Decode(preds[i].Class)
		if err != nil {
			return nil, err
		}
		labels[CellIndex(c.File, c.Rank)] = l
	}
	result, err := boardFromLabels(labels, det.Score)
	if err != nil {
		return nil, err
	}

	p.logger.Debugw("board recognized", "orientation", orientation, "score", det.Score, "sfen", result.SFEN())
	return &Analysis{Detection: det, Rectified: board, Orientation: orientation, Board: result}, nil
}

func (p *Pipeline) rectify(ctx context.Context, img image.Image, corners Quad) (*image.RGBA, error) {
	_, span := trace.StartSpan(ctx, "shogicam::Pipeline::rectify")
	defer span.End()

	board, err := p.rectifier.Rectify(img, corners)
	if err != nil {
		return nil, fmt.Errorf("rectifying board: %w", err)
	}
	return board, nil
}
