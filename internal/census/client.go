// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package census is the client for the api.census.gov ACS endpoints. One
// Request carries codes of a single table type for a single year; the
// response becomes one types.Fragment.
package census

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/time/rate"

	"github.com/pdiddy/census-viewer/internal/httputil"
	"github.com/pdiddy/census-viewer/pkg/types"
)

// MaxCodesPerRequest is the upstream limit of 50 "get" fields minus NAME.
const MaxCodesPerRequest = 49

// Level is the geographic level a request is scoped to.
type Level int

const (
	LevelState Level = iota
	LevelCounty
	LevelTract
)

// Scope selects the geographies returned by a request. LevelCounty returns
// the listed counties of State; LevelTract returns every tract of the single
// county in Counties.
type Scope struct {
	Level    Level
	State    string
	Counties []string
}

// Request is one upstream call.
type Request struct {
	Year  int
	Table types.TableType
	Codes []types.VariableCode
	Scope Scope
	Key   string
}

var tableSuffix = map[types.TableType]string{
	types.TableDetail:   "",
	types.TableSubject:  "/subject",
	types.TableProfile:  "/profile",
	types.TableCProfile: "/cprofile",
}

// geoColumns are response columns describing the geography rather than a variable.
var geoColumns = map[string]bool{"NAME": true, "state": true, "county": true, "tract": true, "GEO_ID": true}

// Client queries the census API. It is safe for concurrent use; all calls
// share one rate limiter.
type Client struct {
	http    *http.Client
	cfg     types.CensusConfig
	limiter *rate.Limiter
}

// NewClient returns a Client for cfg. A nil hc uses http.DefaultClient.
func NewClient(cfg types.CensusConfig, hc *http.Client) *Client {
	cfg = cfg.WithDefaults()
	if hc == nil {
		hc = http.DefaultClient
	}
	burst := int(math.Ceil(cfg.RequestsPerSecond))
	return &Client{
		http:    hc,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst),
	}
}

// URL builds the request URL for req.
func (c *Client) URL(req Request) (string, error) {
	suffix, ok := tableSuffix[req.Table]
	if !ok {
		return "", fmt.Errorf("%w: %q", types.ErrUnknownTableType, req.Table)
	}
	if len(req.Codes) == 0 {
		return "", fmt.Errorf("%w: request has no variable codes", types.ErrEmptySelection)
	}
	if len(req.Codes) > MaxCodesPerRequest {
		return "", fmt.Errorf("request has %d codes, the API accepts at most %d", len(req.Codes), MaxCodesPerRequest)
	}
	if req.Scope.State == "" {
		return "", fmt.Errorf("request has no state")
	}

	fields := make([]string, 0, len(req.Codes)+1)
	fields = append(fields, "NAME")
	for _, code := range req.Codes {
		if table, ok := types.TableTypeOf(code); !ok || table != req.Table {
			return "", fmt.Errorf("%w: %s in a %s request", types.ErrUnknownTableType, code, req.Table)
		}
		fields = append(fields, string(code))
	}

	params := url.Values{"get": {strings.Join(fields, ",")}}
	switch req.Scope.Level {
	case LevelState:
		params.Set("for", "state:"+req.Scope.State)
	case LevelCounty:
		if len(req.Scope.Counties) == 0 {
			return "", fmt.Errorf("county request has no counties")
		}
		params.Set("for", "county:"+strings.Join(req.Scope.Counties, ","))
		params.Set("in", "state:"+req.Scope.State)
	case LevelTract:
		if len(req.Scope.Counties) != 1 {
			return "", fmt.Errorf("tract request needs exactly one county, got %d", len(req.Scope.Counties))
		}
		params.Set("for", "tract:*")
		params.Set("in", "state:"+req.Scope.State+" county:"+req.Scope.Counties[0])
	default:
		return "", fmt.Errorf("unknown geographic level %d", req.Scope.Level)
	}
	if req.Key != "" {
		params.Set("key", req.Key)
	}

	return c.datasetURL(req.Year) + suffix + "?" + params.Encode(), nil
}

func (c *Client) datasetURL(year int) string {
	return fmt.Sprintf("%s/%d/acs/%s", strings.TrimRight(c.cfg.BaseURL, "/"), year, c.cfg.Source)
}

// Download issues req and parses the response into a Fragment. Every
// failure wraps types.ErrUpstream except request validation errors.
func (c *Client) Download(ctx context.Context, req Request) (types.Fragment, error) {
	reqURL, err := c.URL(req)
	if err != nil {
		return types.Fragment{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	body, status, err := c.get(ctx, reqURL)
	if err != nil {
		return types.Fragment{}, err
	}

	switch {
	case status == http.StatusNoContent:
		return types.Fragment{Year: req.Year, Table: req.Table, Codes: append([]types.VariableCode(nil), req.Codes...)}, nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return types.Fragment{}, fmt.Errorf("%w: credentials rejected (HTTP %d)", types.ErrUpstream, status)
	case status != http.StatusOK:
		return types.Fragment{}, fmt.Errorf("%w: HTTP %d: %s", types.ErrUpstream, status, snippet(body))
	}

	frag, err := parseFragment(body)
	if err != nil {
		return types.Fragment{}, err
	}
	frag.Year = req.Year
	frag.Table = req.Table
	return frag, nil
}

// Available reports whether the dataset for year is published, using the
// dataset discovery document.
func (c *Client) Available(ctx context.Context, year int) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	_, status, err := c.get(ctx, c.datasetURL(year)+".json")
	if err != nil {
		return false, err
	}
	switch status {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound, http.StatusNoContent:
		return false, nil
	default:
		return false, fmt.Errorf("%w: probing %d: HTTP %d", types.ErrUpstream, year, status)
	}
}

func (c *Client) get(ctx context.Context, reqURL string) ([]byte, int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, 0, fmt.Errorf("%w: waiting for rate limiter: %w", types.ErrUpstream, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := httputil.DoWithRetry(ctx, c.http, req, c.cfg.MaxRetries)
	if err != nil {
		// url.Error repeats the URL, key included.
		var ue *url.Error
		if errors.As(err, &ue) {
			err = ue.Err
		}
		return nil, 0, fmt.Errorf("%w: %s: %w", types.ErrUpstream, redact(reqURL), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: reading response: %w", types.ErrUpstream, err)
	}
	return body, resp.StatusCode, nil
}

// parseFragment decodes the API's array-of-arrays body. The first row is the
// header; geography columns fill Geo, every other column is a variable.
func parseFragment(body []byte) (types.Fragment, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return types.Fragment{}, fmt.Errorf("%w: empty response body", types.ErrUpstream)
	}
	if trimmed[0] == '<' {
		// The API answers an invalid key with an HTML page and status 200.
		return types.Fragment{}, fmt.Errorf("%w: HTML response, the API key was likely rejected", types.ErrUpstream)
	}

	var table [][]any
	if err := json.Unmarshal(trimmed, &table); err != nil {
		return types.Fragment{}, fmt.Errorf("%w: parsing response: %w", types.ErrUpstream, err)
	}
	if len(table) == 0 {
		return types.Fragment{}, fmt.Errorf("%w: response has no header row", types.ErrUpstream)
	}

	header := make([]string, len(table[0]))
	for i, h := range table[0] {
		s, ok := h.(string)
		if !ok {
			return types.Fragment{}, fmt.Errorf("%w: header column %d is not a string", types.ErrUpstream, i)
		}
		header[i] = s
	}

	var frag types.Fragment
	var valueCols []int
	for i, h := range header {
		if !geoColumns[h] {
			valueCols = append(valueCols, i)
			frag.Codes = append(frag.Codes, types.VariableCode(h))
		}
	}

	for n, rec := range table[1:] {
		if len(rec) != len(header) {
			return types.Fragment{}, fmt.Errorf("%w: row %d has %d cells, header has %d", types.ErrUpstream, n+1, len(rec), len(header))
		}
		row := types.FragmentRow{Values: make([]float64, len(valueCols))}
		for i, h := range header {
			if !geoColumns[h] {
				continue
			}
			s, _ := rec[i].(string)
			switch h {
			case "NAME":
				row.Geo.Name = s
			case "state":
				row.Geo.State = s
			case "county":
				row.Geo.County = s
			case "tract":
				row.Geo.Tract = s
			}
		}
		for j, col := range valueCols {
			row.Values[j] = cellValue(rec[col])
		}
		frag.Rows = append(frag.Rows, row)
	}
	return frag, nil
}

// cellValue converts a response cell to float64. Nulls, empty strings and
// non-numeric text become NaN.
func cellValue(cell any) float64 {
	switch v := cell.(type) {
	case float64:
		return v
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:197] + "..."
	}
	return s
}

// redact drops the key parameter from a URL before it appears in an error.
func redact(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "request"
	}
	q := u.Query()
	if q.Has("key") {
		q.Set("key", "REDACTED")
		u.RawQuery = q.Encode()
	}
	return u.String()
}
