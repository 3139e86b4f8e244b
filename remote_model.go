package shogicam

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// RemoteModel calls a classification model served over HTTP. The service receives
// {"shape": [n, h, w, c], "data": [...]} on POST <url>/predict and answers
// {"scores": [[...], ...]} with one row per image. GET <url>/info may answer
// {"classes": k} so the vocabulary can be checked before the first prediction.
type RemoteModel struct {
	url     *url.URL
	client  *http.Client
	shape   Shape
	classes int
}

type remotePredictRequest struct {
	Shape []int     `json:"shape"`
	Data  []float32 `json:"data"`
}

type remotePredictResponse struct {
	Scores [][]float32 `json:"scores"`
}

type remoteInfoResponse struct {
	Classes int `json:"classes"`
}

// NewRemoteModel returns a model backed by the inference service at rawURL.
// A nil client uses http.DefaultClient.
func NewRemoteModel(rawURL string, shape Shape, classes int, client *http.Client) (*RemoteModel, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid model url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid model url %q: need http or https", rawURL)
	}
	if err := shape.validate(); err != nil {
		return nil, err
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &RemoteModel{url: u, client: client, shape: shape, classes: classes}, nil
}

func (m *RemoteModel) InputShape() Shape { return m.shape }

func (m *RemoteModel) NumClasses() int { return m.classes }

func (m *RemoteModel) Predict(ctx context.Context, input []float32, n int) ([]float32, error) {
	if len(input) != n*m.shape.size() {
		return nil, fmt.Errorf("input has %d values, want %d", len(input), n*m.shape.size())
	}

	body, err := json.Marshal(remotePredictRequest{
		Shape: []int{n, m.shape.Height, m.shape.Width, m.shape.Channels},
		Data:  input,
	})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, m.url.JoinPath("/predict").String(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")

	response, err := m.client.Do(request)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(response.Body, 1024))
		return nil, fmt.Errorf("server response status code: %d, body: %s", response.StatusCode, msg)
	}

	var resp remotePredictResponse
	if err := json.NewDecoder(response.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("decode response body: %w", err)
	}
	if len(resp.Scores) != n {
		return nil, fmt.Errorf("got %d score rows for %d images", len(resp.Scores), n)
	}

	out := make([]float32, 0, n*m.classes)
	for i, row := range resp.Scores {
		if len(row) != m.classes {
			return nil, fmt.Errorf("row %d has %d scores, want %d", i, len(row), m.classes)
		}
		out = append(out, row...)
	}
	return out, nil
}

// Describe asks the service for its class count and adopts it, so a vocabulary
// mismatch shows at load time. Services without /info keep the configured count
// and are only checked per response.
func (m *RemoteModel) Describe(ctx context.Context) error {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, m.url.JoinPath("/info").String(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	response, err := m.client.Do(request)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return fmt.Errorf("server response status code: %d", response.StatusCode)
	}

	var info remoteInfoResponse
	if err := json.NewDecoder(response.Body).Decode(&info); err != nil {
		return fmt.Errorf("decode response body: %w", err)
	}
	if info.Classes <= 0 {
		return fmt.Errorf("service reports %d classes", info.Classes)
	}
	m.classes = info.Classes
	return nil
}

// Close drops idle connections held by the client.
func (m *RemoteModel) Close() error {
	m.client.CloseIdleConnections()
	return nil
}
