package shogicam

import (
	"context"
	"fmt"

	"github.com/mitchellh/mapstructure"

	"go.viam.com/rdk/components/camera"
	"go.viam.com/rdk/logging"
	"go.viam.com/rdk/resource"
	generic "go.viam.com/rdk/services/generic"
)

var BoardServiceModel = family.WithModel("shogi-board")

func init() {
	resource.RegisterService(generic.API, BoardServiceModel,
		resource.Registration[resource.Resource, *BoardServiceConfig]{
			Constructor: newBoardService,
		},
	)
}

type BoardServiceConfig struct {
	Camera     string `json:"camera"`
	Recognizer Config `json:"recognizer"`
}

func (cfg *BoardServiceConfig) Validate(path string) ([]string, []string, error) {
	if cfg.Camera == "" {
		return nil, nil, fmt.Errorf("need a camera")
	}
	if _, _, err := cfg.Recognizer.Validate(path + ".recognizer"); err != nil {
		return nil, nil, err
	}
	return []string{cfg.Camera}, nil, nil
}

type boardService struct {
	resource.AlwaysRebuild

	name resource.Name

	logger logging.Logger
	conf   *BoardServiceConfig

	camera   camera.Camera
	model    LoadedModel
	pipeline *Pipeline
}

func newBoardService(ctx context.Context, deps resource.Dependencies, rawConf resource.Config, logger logging.Logger) (resource.Resource, error) {
	conf, err := resource.NativeConfig[*BoardServiceConfig](rawConf)
	if err != nil {
		return nil, err
	}

	return NewBoardService(ctx, deps, rawConf.ResourceName(), conf, logger)
}

// NewBoardService reads the board seen by a camera on request.
func NewBoardService(ctx context.Context, deps resource.Dependencies, name resource.Name, conf *BoardServiceConfig, logger logging.Logger) (resource.Resource, error) {
	var err error

	s := &boardService{
		name:   name,
		logger: logger,
		conf:   conf,
	}

	s.camera, err = camera.FromProvider(deps, conf.Camera)
	if err != nil {
		return nil, err
	}

	s.model, err = LoadModel(&conf.Recognizer)
	if err != nil {
		return nil, err
	}

	s.pipeline, err = NewPipeline(&conf.Recognizer, s.model, logger)
	if err != nil {
		_ = s.model.Close()
		return nil, err
	}

	return s, nil
}

func (s *boardService) Name() resource.Name {
	return s.name
}

// ----

type RecognizeCmd struct {
	Orientation string
	Corners     [][]float64
}

type cmdStruct struct {
	Recognize *RecognizeCmd
	Detect    *struct{}
}

func (s *boardService) DoCommand(ctx context.Context, cmdMap map[string]interface{}) (map[string]interface{}, error) {
	var cmd cmdStruct
	err := mapstructure.Decode(cmdMap, &cmd)
	if err != nil {
		return nil, err
	}

	switch {
	case cmd.Recognize != nil:
		return s.recognize(ctx, cmd.Recognize)
	case cmd.Detect != nil:
		return s.detect(ctx)
	}

	return nil, fmt.Errorf("bad cmd %v", cmdMap)
}

func (s *boardService) recognize(ctx context.Context, cmd *RecognizeCmd) (map[string]interface{}, error) {
	orientation := s.conf.Recognizer.orientation()
	if cmd.Orientation != "" {
		o, err := ParseOrientation(cmd.Orientation)
		if err != nil {
			return nil, err
		}
		orientation = o
	}

	img, _, _, err := cameraFrame(ctx, s.camera, nil)
	if err != nil {
		return nil, err
	}

	var board *Board
	if len(cmd.Corners) > 0 {
		q, err := quadFromFloats(cmd.Corners)
		if err != nil {
			return nil, err
		}
		board, err = s.pipeline.RecognizeQuad(ctx, img, q, orientation)
		if err != nil {
			return nil, err
		}
	} else {
		board, err = s.pipeline.Recognize(ctx, img, orientation)
		if err != nil {
			return nil, err
		}
	}

	s.logger.Infof("recognized %s (score %0.3f)", board.SFEN(), board.Score)
	return map[string]interface{}{
		"score": board.Score,
		"rows":  stringsToAny(board.Rows()),
		"sfen":  board.SFEN(),
	}, nil
}

func (s *boardService) detect(ctx context.Context) (map[string]interface{}, error) {
	img, _, _, err := cameraFrame(ctx, s.camera, nil)
	if err != nil {
		return nil, err
	}

	det, err := s.pipeline.Detector().Detect(img)
	if err != nil {
		return nil, err
	}

	corners := make([]interface{}, 4)
	for i, p := range det.Corners {
		corners[i] = []interface{}{p.X, p.Y}
	}
	return map[string]interface{}{
		"score":   det.Score,
		"corners": corners,
	}, nil
}

func (s *boardService) Close(context.Context) error {
	return s.model.Close()
}

// stringsToAny keeps DoCommand results convertible to protobuf structs.
func stringsToAny(in []string) []interface{} {
	out := make([]interface{}, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}
