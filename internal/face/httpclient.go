package face

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/apricityDigital/attendease-backend/internal/config"
)

// HTTPClient implements Verifier against the face service's REST API.
// Requests carry the API key as a bearer credential and images as base64
// payloads; error bodies are classified into the package's typed errors.
type HTTPClient struct {
	baseURL    string
	apiKey     string
	collection string
	client     *http.Client
}

// NewHTTPClient creates a face service client from configuration.
func NewHTTPClient(cfg config.FaceConfig) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		client:     &http.Client{Timeout: 30 * time.Second},
	}
}

type indexRequest struct {
	Collection string `json:"collection"`
	Image      string `json:"image"`
	ExternalID string `json:"external_id"`
}

type indexResponse struct {
	FaceID     string  `json:"face_id"`
	Confidence float64 `json:"confidence"`
}

// IndexFace registers a reference image in the gallery.
func (c *HTTPClient) IndexFace(ctx context.Context, image []byte, externalID string) (*IndexResult, error) {
	var resp indexResponse
	err := c.post(ctx, "/faces/index", indexRequest{
		Collection: c.collection,
		Image:      base64.StdEncoding.EncodeToString(image),
		ExternalID: externalID,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &IndexResult{FaceID: resp.FaceID, Confidence: resp.Confidence}, nil
}

type searchRequest struct {
	Collection string  `json:"collection"`
	Image      string  `json:"image"`
	Threshold  float64 `json:"threshold"`
}

type searchResponse struct {
	Matches []struct {
		FaceID     string  `json:"face_id"`
		ExternalID string  `json:"external_id"`
		Similarity float64 `json:"similarity"`
	} `json:"matches"`
}

// SearchByImage finds gallery faces matching the largest face in the image.
func (c *HTTPClient) SearchByImage(ctx context.Context, image []byte, threshold float64) ([]Match, error) {
	var resp searchResponse
	err := c.post(ctx, "/faces/search", searchRequest{
		Collection: c.collection,
		Image:      base64.StdEncoding.EncodeToString(image),
		Threshold:  threshold,
	}, &resp)
	if err != nil {
		return nil, err
	}

	matches := make([]Match, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		matches = append(matches, Match{FaceID: m.FaceID, ExternalID: m.ExternalID, Similarity: m.Similarity})
	}
	return matches, nil
}

type compareRequest struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

type compareResponse struct {
	Similarity float64 `json:"similarity"`
}

// CompareFaces runs a pairwise comparison of two images.
func (c *HTTPClient) CompareFaces(ctx context.Context, source, target []byte) (float64, error) {
	var resp compareResponse
	err := c.post(ctx, "/faces/compare", compareRequest{
		Source: base64.StdEncoding.EncodeToString(source),
		Target: base64.StdEncoding.EncodeToString(target),
	}, &resp)
	if err != nil {
		return 0, err
	}
	return resp.Similarity, nil
}

type detectRequest struct {
	Image string `json:"image"`
}

type detectResponse struct {
	Faces []struct {
		Left       float64 `json:"left"`
		Top        float64 `json:"top"`
		Width      float64 `json:"width"`
		Height     float64 `json:"height"`
		Confidence float64 `json:"confidence"`
	} `json:"faces"`
}

// DetectFaces locates every face in the frame.
func (c *HTTPClient) DetectFaces(ctx context.Context, image []byte) ([]Detection, error) {
	var resp detectResponse
	err := c.post(ctx, "/faces/detect", detectRequest{
		Image: base64.StdEncoding.EncodeToString(image),
	}, &resp)
	if err != nil {
		return nil, err
	}

	detections := make([]Detection, 0, len(resp.Faces))
	for _, f := range resp.Faces {
		detections = append(detections, Detection{
			Box:        BoundingBox{Left: f.Left, Top: f.Top, Width: f.Width, Height: f.Height},
			Confidence: f.Confidence,
		})
	}
	return detections, nil
}

// DeleteFace removes a face from the gallery.
func (c *HTTPClient) DeleteFace(ctx context.Context, faceID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete,
		fmt.Sprintf("%s/faces/%s?collection=%s", c.baseURL, faceID, c.collection), nil)
	if err != nil {
		return fmt.Errorf("build delete face request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("delete face: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return c.classifyError(resp)
	}
	return nil
}

func (c *HTTPClient) post(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal face request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build face request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("face service %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return c.classifyError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode face response from %s: %w", path, err)
	}
	return nil
}

// classifyError maps the face service's error vocabulary onto the
// package's typed errors so callers can branch on them.
func (c *HTTPClient) classifyError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	msg := strings.ToLower(string(body))

	switch {
	case strings.Contains(msg, "no face"):
		return ErrNoFaceDetected
	case strings.Contains(msg, "collection") && strings.Contains(msg, "not found"):
		return ErrCollectionMissing
	default:
		return fmt.Errorf("face service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
}
