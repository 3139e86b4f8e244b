package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"go.viam.com/rdk/logging"
	"go.viam.com/test"

	"shogicam"
)

type fakeRecognizer struct {
	err         error
	orientation shogicam.Orientation
}

func (f *fakeRecognizer) Recognize(ctx context.Context, img image.Image, orientation shogicam.Orientation) (*shogicam.Board, error) {
	f.orientation = orientation
	if f.err != nil {
		return nil, f.err
	}
	b := shogicam.StartingPosition()
	b.Score = 0.75
	return b, nil
}

func upload(t *testing.T, h *RecognizeHandler, orientation string, withFile bool) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if orientation != "" {
		test.That(t, w.WriteField("orientation", orientation), test.ShouldBeNil)
	}
	if withFile {
		part, err := w.CreateFormFile("file", "board.png")
		test.That(t, err, test.ShouldBeNil)
		test.That(t, png.Encode(part, image.NewRGBA(image.Rect(0, 0, 9, 9))), test.ShouldBeNil)
	}
	test.That(t, w.Close(), test.ShouldBeNil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/recognize", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()
	newRouter(h).ServeHTTP(rec, req)
	return rec
}

func TestRecognizeEndpoint(t *testing.T) {
	f := &fakeRecognizer{}
	rec := upload(t, NewRecognizeHandler(f, logging.NewTestLogger(t)), "gote", true)
	test.That(t, rec.Code, test.ShouldEqual, http.StatusOK)
	test.That(t, f.orientation, test.ShouldEqual, shogicam.FarSide)

	var resp struct {
		ID    string   `json:"id"`
		Score float64  `json:"score"`
		Rows  []string `json:"rows"`
		SFEN  string   `json:"sfen"`
	}
	test.That(t, json.Unmarshal(rec.Body.Bytes(), &resp), test.ShouldBeNil)
	test.That(t, resp.ID, test.ShouldNotBeEmpty)
	test.That(t, resp.Score, test.ShouldEqual, 0.75)
	test.That(t, len(resp.Rows), test.ShouldEqual, 9)
	test.That(t, resp.SFEN, test.ShouldEqual, shogicam.StartingPosition().SFEN())
}

func TestRecognizeEndpointErrors(t *testing.T) {
	logger := logging.NewTestLogger(t)

	rec := upload(t, NewRecognizeHandler(&fakeRecognizer{}, logger), "", false)
	test.That(t, rec.Code, test.ShouldEqual, http.StatusBadRequest)

	rec = upload(t, NewRecognizeHandler(&fakeRecognizer{}, logger), "upside-down", true)
	test.That(t, rec.Code, test.ShouldEqual, http.StatusBadRequest)

	rec = upload(t, NewRecognizeHandler(&fakeRecognizer{err: fmt.Errorf("%w: nothing here", shogicam.ErrNoBoard)}, logger), "", true)
	test.That(t, rec.Code, test.ShouldEqual, http.StatusUnprocessableEntity)

	rec = upload(t, NewRecognizeHandler(&fakeRecognizer{err: shogicam.ErrModelInvocation}, logger), "", true)
	test.That(t, rec.Code, test.ShouldEqual, http.StatusInternalServerError)
}

func TestRunReturnsErrors(t *testing.T) {
	logger := logging.NewTestLogger(t)

	err := run(":0", filepath.Join(t.TempDir(), "missing.yaml"), logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "load config")

	// the model loads, then the listener fails and run returns instead of exiting
	path := filepath.Join(t.TempDir(), "config.yaml")
	test.That(t, os.WriteFile(path, []byte("model_url: http://127.0.0.1:1\n"), 0o600), test.ShouldBeNil)
	err = run("no-port", path, logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "run server")
}
