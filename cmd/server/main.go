package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"go.viam.com/rdk/logging"

	"shogicam"
)

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	configPath := flag.String("config", "config.yaml", "YAML config")
	flag.Parse()

	logger := logging.NewLogger("shogicam-server")
	if err := run(*addr, *configPath, logger); err != nil {
		logger.Fatalf("%v", err)
	}
}

// run serves until the listener fails. The model is closed on every return path.
func run(addr, configPath string, logger logging.Logger) error {
	cfg, err := shogicam.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	model, err := shogicam.LoadModel(cfg)
	if err != nil {
		return fmt.Errorf("load model: %w", err)
	}
	defer func() {
		if err := model.Close(); err != nil {
			logger.Warnf("closing model: %v", err)
		}
	}()

	pipeline, err := shogicam.NewPipeline(cfg, model, logger.Sublogger("pipeline"))
	if err != nil {
		return fmt.Errorf("create pipeline: %w", err)
	}

	e := newRouter(NewRecognizeHandler(pipeline, logger))
	if err := e.Run(addr); err != nil {
		return fmt.Errorf("run server: %w", err)
	}
	return nil
}

func newRouter(h *RecognizeHandler) *gin.Engine {
	e := gin.Default()
	v1 := e.Group("/api").
		Group("/v1")
	v1.POST("/recognize", h.Recognize)
	return e
}

// Recognizer is the part of the pipeline the handler needs.
type Recognizer interface {
	Recognize(ctx context.Context, img image.Image, orientation shogicam.Orientation) (*shogicam.Board, error)
}

type RecognizeHandler struct {
	recognizer Recognizer
	logger     logging.Logger
}

func NewRecognizeHandler(recognizer Recognizer, logger logging.Logger) *RecognizeHandler {
	return &RecognizeHandler{recognizer: recognizer, logger: logger}
}

func (h *RecognizeHandler) Recognize(c *gin.Context) {
	id := uuid.NewString()

	orientation, err := shogicam.ParseOrientation(c.PostForm("orientation"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"id": id, "error": "Bad orientation", "message": err.Error()})
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		h.logger.Debugw("read file from form", "id", id, "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"id": id, "error": "Failed to read form file", "message": err.Error()})
		return
	}

	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"id": id, "error": "Failed to open form file", "message": err.Error()})
		return
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"id": id, "error": "Failed to decode image", "message": err.Error()})
		return
	}

	board, err := h.recognizer.Recognize(c.Request.Context(), img, orientation)
	switch {
	case errors.Is(err, shogicam.ErrNoBoard):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"id": id, "error": "No board found", "message": err.Error()})
		return
	case err != nil:
		h.logger.Warnw("recognize image", "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"id": id, "error": "Failed to recognize", "message": err.Error()})
		return
	}

	h.logger.Infow("recognized", "id", id, "file", file.Filename, "score", board.Score)
	c.JSON(http.StatusOK, gin.H{
		"id":    id,
		"score": board.Score,
		"rows":  board.Rows(),
		"sfen":  board.SFEN(),
	})
}
