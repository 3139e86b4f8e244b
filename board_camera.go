package shogicam

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/golang/geo/r2"
	"go.uber.org/multierr"

	"go.viam.com/rdk/components/camera"
	"go.viam.com/rdk/data"
	"go.viam.com/rdk/logging"
	"go.viam.com/rdk/pointcloud"
	"go.viam.com/rdk/resource"
	"go.viam.com/rdk/spatialmath"
)

var BoardCameraModel = family.WithModel("board-camera")

func init() {
	resource.RegisterComponent(camera.API, BoardCameraModel,
		resource.Registration[camera.Camera, *BoardCameraConfig]{
			Constructor: newBoardCamera,
		},
	)
}

type BoardCameraConfig struct {
	Input      string      `json:"input"`
	Recognizer Config      `json:"recognizer"`
	Corners    [][]float64 `json:"corners,omitempty"` // fixed outline for a mounted camera
}

func (cfg *BoardCameraConfig) Validate(path string) ([]string, []string, error) {
	if cfg.Input == "" {
		return nil, nil, fmt.Errorf("need an input")
	}
	if _, _, err := cfg.Recognizer.Validate(path + ".recognizer"); err != nil {
		return nil, nil, err
	}
	if len(cfg.Corners) > 0 {
		if _, err := quadFromFloats(cfg.Corners); err != nil {
			return nil, nil, fmt.Errorf("%s.corners: %w", path, err)
		}
	}
	return []string{cfg.Input}, nil, nil
}

func newBoardCamera(ctx context.Context, deps resource.Dependencies, rawConf resource.Config, logger logging.Logger) (camera.Camera, error) {
	conf, err := resource.NativeConfig[*BoardCameraConfig](rawConf)
	if err != nil {
		return nil, err
	}

	return NewBoardCamera(ctx, deps, rawConf.ResourceName(), conf, logger)
}

// NewBoardCamera wraps an input camera and streams its board rectified and labelled.
func NewBoardCamera(ctx context.Context, deps resource.Dependencies, name resource.Name, conf *BoardCameraConfig, logger logging.Logger) (camera.Camera, error) {
	var err error

	bc := &BoardCamera{
		name:        name,
		conf:        conf,
		logger:      logger,
		orientation: conf.Recognizer.orientation(),
	}

	if len(conf.Corners) > 0 {
		q, err := quadFromFloats(conf.Corners)
		if err != nil {
			return nil, err
		}
		bc.corners = &q
	}

	bc.input, err = camera.FromProvider(deps, conf.Input)
	if err != nil {
		return nil, err
	}

	bc.model, err = LoadModel(&conf.Recognizer)
	if err != nil {
		return nil, err
	}

	bc.pipeline, err = NewPipeline(&conf.Recognizer, bc.model, logger)
	if err != nil {
		return nil, multierr.Combine(err, bc.model.Close())
	}

	return bc, nil
}

type BoardCamera struct {
	resource.AlwaysRebuild

	name   resource.Name
	conf   *BoardCameraConfig
	logger logging.Logger

	input       camera.Camera
	model       LoadedModel
	pipeline    *Pipeline
	orientation Orientation
	corners     *Quad
}

func (bc *BoardCamera) Image(ctx context.Context, mimeType string, extra map[string]interface{}) ([]byte, camera.ImageMetadata, error) {
	return camera.GetImageFromGetImages(ctx, nil, bc, extra, nil)
}

func (bc *BoardCamera) Images(ctx context.Context, filterSourceNames []string, extra map[string]interface{}) ([]camera.NamedImage, resource.ResponseMetadata, error) {
	srcImg, source, rm, err := cameraFrame(ctx, bc.input, extra)
	if err != nil {
		return nil, rm, err
	}

	var a *Analysis
	if bc.corners != nil {
		a, err = bc.pipeline.AnalyzeQuad(ctx, srcImg, *bc.corners, bc.orientation)
	} else {
		a, err = bc.pipeline.Analyze(ctx, srcImg, bc.orientation)
	}

	var dst image.Image
	switch {
	case errors.Is(err, ErrNoBoard):
		bc.logger.Debugf("no board in frame: %v", err)
		frame := cloneRGBA(srcImg)
		b := frame.Bounds()
		drawString(frame, b.Min.X+10, b.Min.Y+20, "no board", markColor)
		dst = frame
	case err != nil:
		return nil, rm, err
	default:
		dst = DrawAnalysis(a)
	}

	result, err := camera.NamedImageFromImage(dst, source, "", data.Annotations{})
	if err != nil {
		return nil, rm, err
	}
	return []camera.NamedImage{result}, rm, nil
}

// cameraFrame returns the first image the camera offers.
func cameraFrame(ctx context.Context, cam camera.Camera, extra map[string]interface{}) (image.Image, string, resource.ResponseMetadata, error) {
	ni, rm, err := cam.Images(ctx, nil, extra)
	if err != nil {
		return nil, "", rm, err
	}

	if len(ni) == 0 {
		return nil, "", rm, fmt.Errorf("no images returned from input camera")
	}

	img, err := ni[0].Image(ctx)
	if err != nil {
		return nil, "", rm, err
	}
	return img, ni[0].SourceName, rm, nil
}

func quadFromFloats(pts [][]float64) (Quad, error) {
	if len(pts) != 4 {
		return Quad{}, fmt.Errorf("need 4 corners, got %d", len(pts))
	}
	var q Quad
	for i, p := range pts {
		if len(p) != 2 {
			return Quad{}, fmt.Errorf("corner %d needs x and y, got %v", i, p)
		}
		q[i] = r2.Point{X: p[0], Y: p[1]}
	}
	return q, q.Validate()
}

func (bc *BoardCamera) DoCommand(ctx context.Context, cmd map[string]interface{}) (map[string]interface{}, error) {
	return nil, fmt.Errorf("DoCommand not supported")
}

func (bc *BoardCamera) NextPointCloud(ctx context.Context, extra map[string]interface{}) (pointcloud.PointCloud, error) {
	return nil, fmt.Errorf("NextPointCloud not supported")
}

func (bc *BoardCamera) Properties(ctx context.Context) (camera.Properties, error) {
	return camera.Properties{}, nil
}

func (bc *BoardCamera) Geometries(ctx context.Context, extra map[string]interface{}) ([]spatialmath.Geometry, error) {
	return nil, nil
}

func (bc *BoardCamera) Name() resource.Name {
	return bc.name
}

func (bc *BoardCamera) Close(context.Context) error {
	return bc.model.Close()
}
