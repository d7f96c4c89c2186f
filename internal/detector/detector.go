// Package detector is the client for the geometric face-detection service.
// The service takes raw image bytes plus detection parameters and returns
// candidate face boxes in pixel coordinates; it has no notion of identity.
package detector

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/chrofis/magicalstory/internal/faces"
)

const defaultDetectorURL = "http://localhost:8500"

type Client struct {
	http *resty.Client
}

func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultDetectorURL
	}
	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetTimeout(30 * time.Second)
	return &Client{http: client}
}

// detectionResponse is the wire shape of the detection endpoint.
type detectionResponse struct {
	FacesCount int              `json:"faces_count"`
	Boxes      []faces.PixelBox `json:"boxes"`
}

// DetectFaces runs the detector over one page image. The permissive
// parameter set (small minimum size, fine scale step, low neighbor count)
// is chosen by the caller; the raw candidates typically contain overlapping
// duplicates that need suppression.
func (c *Client) DetectFaces(ctx context.Context, imageData []byte, params faces.DetectParams) ([]faces.PixelBox, error) {
	var out detectionResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetFileReader("file", "page.jpg", bytes.NewReader(imageData)).
		SetFormData(map[string]string{
			"min_size":      strconv.Itoa(params.MinSize),
			"scale_step":    strconv.FormatFloat(params.ScaleStep, 'f', -1, 64),
			"min_neighbors": strconv.Itoa(params.MinNeighbors),
		}).
		SetResult(&out).
		Post("/detect")
	if err != nil {
		return nil, fmt.Errorf("detector request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("detector error (status %d): %s", resp.StatusCode(), resp.String())
	}
	return out.Boxes, nil
}
