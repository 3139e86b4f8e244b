package shogicam

import (
	"context"
	"fmt"
	"image"
	"math"

	"golang.org/x/image/draw"
)

// Shape is the per-image input a model expects.
type Shape struct {
	Height   int
	Width    int
	Channels int // 1 (luma) or 3 (RGB)
}

func (s Shape) size() int {
	return s.Height * s.Width * s.Channels
}

func (s Shape) validate() error {
	if s.Height <= 0 || s.Width <= 0 {
		return fmt.Errorf("bad model input size %dx%d", s.Width, s.Height)
	}
	if s.Channels != 1 && s.Channels != 3 {
		return fmt.Errorf("model input channels must be 1 or 3, got %d", s.Channels)
	}
	return nil
}

// Model is a trained cell classifier. Implementations must be safe for concurrent
// Predict calls and must not change between calls.
type Model interface {
	// InputShape is the size of one input image.
	InputShape() Shape
	// NumClasses is the width of one output row.
	NumClasses() int
	// Predict scores n images laid out NHWC as float32 in [0, 1] and returns n rows of
	// NumClasses scores, row-major.
	Predict(ctx context.Context, input []float32, n int) ([]float32, error)
}

// Prediction is the classifier's verdict on one cell.
type Prediction struct {
	Class  ClassIndex
	Scores []float32
}

// Classifier prepares cell images for a Model and picks the best class per cell.
type Classifier struct {
	model     Model
	shape     Shape
	batchSize int
}

// NewClassifier wraps model. batchSize limits images per Predict call; 0 sends every
// image at once. The model's output width must match the label vocabulary.
func NewClassifier(model Model, batchSize int) (*Classifier, error) {
	if model == nil {
		return nil, fmt.Errorf("nil model")
	}
	if n := model.NumClasses(); n != NumClasses {
		return nil, fmt.Errorf("%w: model has %d classes, vocabulary has %d", ErrVocabularyMismatch, n, NumClasses)
	}
	shape := model.InputShape()
	if err := shape.validate(); err != nil {
		return nil, err
	}
	if batchSize < 0 {
		return nil, fmt.Errorf("negative batch size %d", batchSize)
	}
	return &Classifier{model: model, shape: shape, batchSize: batchSize}, nil
}

// Classify returns one prediction per image, in order.
func (c *Classifier) Classify(ctx context.Context, images []image.Image) ([]Prediction, error) {
	if len(images) == 0 {
		return nil, nil
	}
	batch := c.batchSize
	if batch == 0 || batch > len(images) {
		batch = len(images)
	}

	out := make([]Prediction, 0, len(images))
	for start := 0; start < len(images); start += batch {
		end := min(start+batch, len(images))
		preds, err := c.classifyBatch(ctx, images[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, preds...)
	}
	return out, nil
}

func (c *Classifier) classifyBatch(ctx context.Context, images []image.Image) ([]Prediction, error) {
	per := c.shape.size()
	input := make([]float32, per*len(images))
	for i, img := range images {
		c.tensor(img, input[i*per:(i+1)*per])
	}

	scores, err := c.model.Predict(ctx, input, len(images))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrModelInvocation, err)
	}
	if len(scores) != len(images)*NumClasses {
		return nil, fmt.Errorf("%w: got %d scores for %d images of %d classes",
			ErrModelInvocation, len(scores), len(images), NumClasses)
	}

	preds := make([]Prediction, len(images))
	for i := range images {
		row := make([]float32, NumClasses)
		copy(row, scores[i*NumClasses:(i+1)*NumClasses])
		best, err := argmax(row)
		if err != nil {
			return nil, fmt.Errorf("%w: image %d: %w", ErrModelInvocation, i, err)
		}
		preds[i] = Prediction{Class: ClassIndex(best), Scores: row}
	}
	return preds, nil
}

// tensor writes img into dst as HWC float32 in [0, 1], resizing to the model input.
func (c *Classifier) tensor(img image.Image, dst []float32) {
	w, h := c.shape.Width, c.shape.Height
	b := img.Bounds()

	rgba := image.NewRGBA(image.Rect(0, 0, w, h))
	if b.Dx() == w && b.Dy() == h {
		draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	} else {
		draw.BiLinear.Scale(rgba, rgba.Bounds(), img, b, draw.Src, nil)
	}

	i := 0
	for y := range h {
		for x := range w {
			p := rgba.PixOffset(x, y)
			r, g, bl := float32(rgba.Pix[p]), float32(rgba.Pix[p+1]), float32(rgba.Pix[p+2])
			if c.shape.Channels == 1 {
				dst[i] = (0.299*r + 0.587*g + 0.114*bl) / 255
				i++
				continue
			}
			dst[i] = r / 255
			dst[i+1] = g / 255
			dst[i+2] = bl / 255
			i += 3
		}
	}
}

// argmax returns the first index holding the largest score.
func argmax(row []float32) (int, error) {
	best := -1
	for i, v := range row {
		if math.IsNaN(float64(v)) {
			return 0, fmt.Errorf("score %d is NaN", i)
		}
		if best < 0 || v > row[best] {
			best = i
		}
	}
	if best < 0 {
		return 0, fmt.Errorf("empty score row")
	}
	return best, nil
}
