package pincode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/orderdesk/pkg/errors"
)

const (
	defaultBaseURL          = "https://api.postalpincode.in"
	defaultTimeout          = 3 * time.Second
	responseReadLimit int64 = 1024
	responseStatusOK        = "Success"
)

var pincodePattern = regexp.MustCompile(`^[1-9][0-9]{5}$`)

// Client resolves Indian postal codes to city and state.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient = &http.Client{Timeout: timeout}
		}
	}
}

// NewClient builds a lookup client against baseURL (the public India Post API when empty).
func NewClient(baseURL string, opts ...Option) *Client {
	client := &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	if client.baseURL == "" {
		client.baseURL = defaultBaseURL
	}
	return client
}

// Place is the locality a pincode resolves to.
type Place struct {
	Pincode  string
	City     string
	District string
	State    string
}

// Valid reports whether s looks like a six digit Indian pincode.
func Valid(s string) bool {
	return pincodePattern.MatchString(strings.TrimSpace(s))
}

// Lookup resolves the pincode. Unknown codes return a NotFound error.
func (c *Client) Lookup(ctx context.Context, code string) (*Place, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "pincode client not configured")
	}
	trimmed := strings.TrimSpace(code)
	if !Valid(trimmed) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pincode must be six digits")
	}

	endpoint := fmt.Sprintf("%s/pincode/%s", c.baseURL, url.PathEscape(trimmed))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build pincode request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute pincode request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseReadLimit))
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "pincode request failed")
	}

	var apiResp []struct {
		Status     string `json:"Status"`
		Message    string `json:"Message"`
		PostOffice []struct {
			Name     string `json:"Name"`
			Block    string `json:"Block"`
			District string `json:"District"`
			State    string `json:"State"`
		} `json:"PostOffice"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode pincode response")
	}
	if len(apiResp) == 0 || apiResp[0].Status != responseStatusOK || len(apiResp[0].PostOffice) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "pincode not found").
			WithDetails(map[string]any{"pincode": trimmed})
	}

	office := apiResp[0].PostOffice[0]
	city := strings.TrimSpace(office.Block)
	if city == "" || strings.EqualFold(city, "NA") {
		city = strings.TrimSpace(office.District)
	}
	return &Place{
		Pincode:  trimmed,
		City:     city,
		District: strings.TrimSpace(office.District),
		State:    strings.TrimSpace(office.State),
	}, nil
}
