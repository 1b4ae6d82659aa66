// Package apiclient is a typed client for the viability API.
package apiclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/elofiber/viabilidade-ftth/internal/geo"
	"github.com/elofiber/viabilidade-ftth/internal/proximity"
	"github.com/elofiber/viabilidade-ftth/internal/warehouse"
)

// Client defines the API operations the CLI uses.
type Client interface {
	// Viability runs the radius search. A zero radius uses the server default.
	Viability(ctx context.Context, point geo.Coordinate, radiusM int) (*ViabilityResponse, error)
	// Infrastructure runs the combined CTO and POP search.
	Infrastructure(ctx context.Context, point geo.Coordinate) (*InfrastructureResponse, error)
	// Stats fetches inventory-wide capacity figures.
	Stats(ctx context.Context) (*StatsResponse, error)
}

// Metadata echoes the query.
type Metadata struct {
	Query struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"coordenadas_consulta"`
	RadiusM      int    `json:"raio_metros"`
	Timestamp    string `json:"timestamp"`
	TotalResults int    `json:"total_resultados"`
}

// ViabilityResponse is the body of GET /api/viability.
type ViabilityResponse struct {
	Success         bool                  `json:"success"`
	Metadata        Metadata              `json:"metadata"`
	Overall         string                `json:"viabilidade_geral"`
	Viable          bool                  `json:"viavel"`
	Results         []proximity.Candidate `json:"resultados"`
	Recommendations []string              `json:"recomendacoes"`
}

// InfrastructureResponse is the body of GET /api/infraestrutura.
type InfrastructureResponse struct {
	Success bool `json:"success"`
	proximity.Infrastructure
}

// StatsResponse is the body of GET /api/estatisticas.
type StatsResponse struct {
	Success bool `json:"success"`
	warehouse.Stats
	UpdatedAt string `json:"atualizado_em"`
}

// APIError is a non-200 answer from the API.
type APIError struct {
	Status  int
	Message string
	Details []string
}

func (e *APIError) Error() string {
	msg := "apiclient: status " + strconv.Itoa(e.Status)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if len(e.Details) > 0 {
		msg += " (" + strings.Join(e.Details, "; ") + ")"
	}
	return msg
}

// Option configures the client.
type Option func(*httpClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithToken sends a bearer token on every request.
func WithToken(token string) Option {
	return func(c *httpClient) {
		c.token = token
	}
}

type httpClient struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient creates a client for the API at baseURL.
func NewClient(baseURL string, opts ...Option) Client {
	c := &httpClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 45 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) Viability(ctx context.Context, point geo.Coordinate, radiusM int) (*ViabilityResponse, error) {
	q := pointQuery(point)
	if radiusM > 0 {
		q.Set("radius", strconv.Itoa(radiusM))
	}
	var out ViabilityResponse
	if err := c.get(ctx, "/api/viability", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *httpClient) Infrastructure(ctx context.Context, point geo.Coordinate) (*InfrastructureResponse, error) {
	var out InfrastructureResponse
	if err := c.get(ctx, "/api/infraestrutura", pointQuery(point), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *httpClient) Stats(ctx context.Context) (*StatsResponse, error) {
	var out StatsResponse
	if err := c.get(ctx, "/api/estatisticas", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func pointQuery(p geo.Coordinate) url.Values {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(p.Lat, 'f', -1, 64))
	q.Set("lng", strconv.FormatFloat(p.Lng, 'f', -1, 64))
	return q
}

func (c *httpClient) get(ctx context.Context, path string, q url.Values, out interface{}) error {
	reqURL := c.baseURL + path
	if len(q) > 0 {
		reqURL += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return eris.Wrap(err, "apiclient: create request")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "apiclient: request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "apiclient: read response body")
	}

	if resp.StatusCode != http.StatusOK {
		return decodeError(resp.StatusCode, body)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrap(err, "apiclient: unmarshal response")
	}
	return nil
}

// decodeError reads {"error": .., "details": ..}; details may be a string
// or a list of strings.
func decodeError(status int, body []byte) error {
	apiErr := &APIError{Status: status}
	var payload struct {
		Error   string          `json:"error"`
		Details json.RawMessage `json:"details"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		apiErr.Message = strings.TrimSpace(string(body))
		return apiErr
	}
	apiErr.Message = payload.Error

	var list []string
	var single string
	switch {
	case len(payload.Details) == 0:
	case json.Unmarshal(payload.Details, &list) == nil:
		apiErr.Details = list
	case json.Unmarshal(payload.Details, &single) == nil && single != "":
		apiErr.Details = []string{single}
	}
	return apiErr
}
