package shogicam

import (
	"context"
	"errors"
	"image"
	"math"
	"testing"

	"go.viam.com/test"
)

// fixedModel returns the same output for every call.
type fixedModel struct {
	classes int
	out     []float32
	err     error
}

func (m *fixedModel) InputShape() Shape { return Shape{Height: 8, Width: 8, Channels: 1} }

func (m *fixedModel) NumClasses() int { return m.classes }

func (m *fixedModel) Predict(ctx context.Context, input []float32, n int) ([]float32, error) {
	return m.out, m.err
}

func boardCells(t *testing.T, b *Board) []image.Image {
	t.Helper()
	cells, err := Segmenter{}.Segment(renderBoard(b, DefaultBoardSize), NearSide)
	test.That(t, err, test.ShouldBeNil)
	images := make([]image.Image, len(cells))
	for i, c := range cells {
		images[i] = c.Image
	}
	return images
}

func TestClassify(t *testing.T) {
	b := testBoard()
	model := newStubModel(64)
	c, err := NewClassifier(model, 0)
	test.That(t, err, test.ShouldBeNil)

	preds, err := c.Classify(context.Background(), boardCells(t, b))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(preds), test.ShouldEqual, 81)
	test.That(t, model.batchSizes(), test.ShouldResemble, []int{81})

	for i, p := range preds {
		l, err := Decode(p.Class)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, l, test.ShouldResemble, b.Cells[i/9][i%9])
		test.That(t, len(p.Scores), test.ShouldEqual, NumClasses)
	}
}

func TestClassifyBatchingIsInvisible(t *testing.T) {
	images := boardCells(t, testBoard())

	whole, err := NewClassifier(newStubModel(64), 0)
	test.That(t, err, test.ShouldBeNil)
	want, err := whole.Classify(context.Background(), images)
	test.That(t, err, test.ShouldBeNil)

	model := newStubModel(64)
	batched, err := NewClassifier(model, 10)
	test.That(t, err, test.ShouldBeNil)
	got, err := batched.Classify(context.Background(), images)
	test.That(t, err, test.ShouldBeNil)

	test.That(t, got, test.ShouldResemble, want)
	test.That(t, model.batchSizes(), test.ShouldResemble, []int{10, 10, 10, 10, 10, 10, 10, 10, 1})
}

func TestClassifyResizes(t *testing.T) {
	// cells of a 288 board are 32 pixels; the model wants 64
	b := testBoard()
	cells, err := Segmenter{}.Segment(renderBoard(b, 9*32), NearSide)
	test.That(t, err, test.ShouldBeNil)

	c, err := NewClassifier(newStubModel(64), 0)
	test.That(t, err, test.ShouldBeNil)

	images := make([]image.Image, len(cells))
	for i, cell := range cells {
		images[i] = cell.Image
	}
	preds, err := c.Classify(context.Background(), images)
	test.That(t, err, test.ShouldBeNil)
	for i, p := range preds {
		l, err := Decode(p.Class)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, l, test.ShouldResemble, b.Cells[i/9][i%9])
	}
}

func TestClassifierVocabularyMismatch(t *testing.T) {
	_, err := NewClassifier(&fixedModel{classes: 30}, 0)
	test.That(t, errors.Is(err, ErrVocabularyMismatch), test.ShouldBeTrue)

	_, err = NewClassifier(nil, 0)
	test.That(t, err, test.ShouldNotBeNil)

	_, err = NewClassifier(&fixedModel{classes: NumClasses}, -1)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestClassifyModelFailures(t *testing.T) {
	images := []image.Image{solidImage(8, 8, woodColor), solidImage(8, 8, woodColor)}

	for name, m := range map[string]*fixedModel{
		"error":     {classes: NumClasses, err: errors.New("boom")},
		"too short": {classes: NumClasses, out: make([]float32, NumClasses)},
		"nan":       {classes: NumClasses, out: nanRow(2)},
	} {
		t.Run(name, func(t *testing.T) {
			c, err := NewClassifier(m, 0)
			test.That(t, err, test.ShouldBeNil)
			_, err = c.Classify(context.Background(), images)
			test.That(t, errors.Is(err, ErrModelInvocation), test.ShouldBeTrue)
		})
	}
}

func TestArgmax(t *testing.T) {
	i, err := argmax([]float32{0.1, 0.7, 0.7, 0.2})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, i, test.ShouldEqual, 1)

	i, err = argmax([]float32{-3, -1, -2})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, i, test.ShouldEqual, 1)

	_, err = argmax(nil)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestTensorLuma(t *testing.T) {
	c, err := NewClassifier(&fixedModel{classes: NumClasses}, 0)
	test.That(t, err, test.ShouldBeNil)

	dst := make([]float32, 64)
	c.tensor(solidImage(16, 16, woodColor), dst)
	want := (0.299*210 + 0.587*170 + 0.114*90) / 255
	for _, v := range dst {
		test.That(t, float64(v), test.ShouldAlmostEqual, want, 1e-3)
	}
}

func nanRow(n int) []float32 {
	out := make([]float32, n*NumClasses)
	out[3] = float32(math.NaN())
	return out
}
