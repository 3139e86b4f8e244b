package shogicam

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	onnxrt "github.com/yalue/onnxruntime_go"
)

var onnxInitMu sync.Mutex

// ONNXModel runs a cell classifier exported to ONNX. The input may be laid out
// NHWC or NCHW; Predict always takes NHWC and transposes when needed.
type ONNXModel struct {
	session    *onnxrt.DynamicAdvancedSession
	inputName  string
	outputName string

	shape   Shape
	classes int
	nchw    bool
}

// LoadONNXModel opens path with the onnxruntime shared library at libraryPath (empty
// uses the platform default). The model must take one float image batch and return
// one [batch, classes] score tensor.
func LoadONNXModel(path, libraryPath string) (*ONNXModel, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("onnx model not found: %w", err)
	}
	if err := initONNX(libraryPath); err != nil {
		return nil, err
	}

	inputs, outputs, err := onnxrt.GetInputOutputInfo(path)
	if err != nil {
		return nil, fmt.Errorf("reading model %s: %w", path, err)
	}
	if len(inputs) != 1 || len(outputs) != 1 {
		return nil, fmt.Errorf("model %s has %d inputs and %d outputs, want 1 and 1", path, len(inputs), len(outputs))
	}

	m := &ONNXModel{inputName: inputs[0].Name, outputName: outputs[0].Name}
	if err := m.readShapes(inputs[0].Dimensions, outputs[0].Dimensions); err != nil {
		return nil, fmt.Errorf("model %s: %w", path, err)
	}

	m.session, err = onnxrt.NewDynamicAdvancedSession(path, []string{m.inputName}, []string{m.outputName}, nil)
	if err != nil {
		return nil, fmt.Errorf("creating session for %s: %w", path, err)
	}
	return m, nil
}

func initONNX(libraryPath string) error {
	onnxInitMu.Lock()
	defer onnxInitMu.Unlock()

	if onnxrt.IsInitialized() {
		return nil
	}
	if libraryPath != "" {
		onnxrt.SetSharedLibraryPath(libraryPath)
	}
	if err := onnxrt.InitializeEnvironment(); err != nil {
		return fmt.Errorf("initializing onnxruntime: %w", err)
	}
	return nil
}

func (m *ONNXModel) readShapes(in, out onnxrt.Shape) error {
	if len(in) != 4 {
		return fmt.Errorf("input shape %v is not a 4-d image batch", in)
	}
	switch {
	case in[3] == 1 || in[3] == 3:
		m.shape = Shape{Height: int(in[1]), Width: int(in[2]), Channels: int(in[3])}
	case in[1] == 1 || in[1] == 3:
		m.nchw = true
		m.shape = Shape{Height: int(in[2]), Width: int(in[3]), Channels: int(in[1])}
	default:
		return fmt.Errorf("input shape %v has no channel axis of 1 or 3", in)
	}
	if err := m.shape.validate(); err != nil {
		return fmt.Errorf("input shape %v: %w", in, err)
	}

	if len(out) != 2 || out[1] <= 0 {
		return fmt.Errorf("output shape %v is not [batch, classes]", out)
	}
	m.classes = int(out[1])
	return nil
}

func (m *ONNXModel) InputShape() Shape { return m.shape }

func (m *ONNXModel) NumClasses() int { return m.classes }

func (m *ONNXModel) Predict(ctx context.Context, input []float32, n int) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.session == nil {
		return nil, errors.New("model is closed")
	}
	if len(input) != n*m.shape.size() {
		return nil, fmt.Errorf("input has %d values, want %d", len(input), n*m.shape.size())
	}

	h, w, c := int64(m.shape.Height), int64(m.shape.Width), int64(m.shape.Channels)
	shape := onnxrt.NewShape(int64(n), h, w, c)
	data := input
	if m.nchw {
		shape = onnxrt.NewShape(int64(n), c, h, w)
		data = toNCHW(input, n, m.shape)
	}

	tensor, err := onnxrt.NewTensor(shape, data)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tensor.Destroy() }()

	outs := []onnxrt.Value{nil}
	if err := m.session.Run([]onnxrt.Value{tensor}, outs); err != nil {
		return nil, err
	}
	if outs[0] == nil {
		return nil, errors.New("no output from model")
	}
	defer func() { _ = outs[0].Destroy() }()

	t, ok := outs[0].(*onnxrt.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("output tensor is %T, want float32", outs[0])
	}
	scores := t.GetData()
	if len(scores) != n*m.classes {
		return nil, fmt.Errorf("output has %d values, want %d", len(scores), n*m.classes)
	}
	// the tensor's memory goes away with Destroy
	return append([]float32(nil), scores...), nil
}

// Close releases the session.
func (m *ONNXModel) Close() error {
	if m.session == nil {
		return nil
	}
	err := m.session.Destroy()
	m.session = nil
	return err
}

func toNCHW(src []float32, n int, s Shape) []float32 {
	dst := make([]float32, len(src))
	plane := s.Height * s.Width
	for i := range n {
		base := i * s.size()
		for p := range plane {
			for c := range s.Channels {
				dst[base+c*plane+p] = src[base+p*s.Channels+c]
			}
		}
	}
	return dst
}
