package external

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/time/rate"

	"github.com/drugshield-risk-server/internal/domain"
)

// RxNormClient talks to the RxNav REST API for name resolution and
// interaction lookup.
type RxNormClient struct {
	baseURL        string
	httpClient     *http.Client
	limiter        *rate.Limiter
	minApproxScore float64
}

// NewRxNormClient creates a new RxNav API client
func NewRxNormClient(config domain.RxNormConfig) *RxNormClient {
	return &RxNormClient{
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		limiter:        rate.NewLimiter(rate.Limit(config.RateLimit), 1),
		minApproxScore: config.MinApproxScore,
	}
}

// rxcuiByNameResponse represents the exact-name lookup response
type rxcuiByNameResponse struct {
	IDGroup struct {
		RxNormID []string `json:"rxnormId"`
	} `json:"idGroup"`
}

// propertyResponse represents the concept property response
type propertyResponse struct {
	PropConceptGroup struct {
		PropConcept []struct {
			PropValue string `json:"propValue"`
		} `json:"propConcept"`
	} `json:"propConceptGroup"`
}

// approximateResponse represents the approximate-term matching response.
// RxNav returns candidate scores as strings.
type approximateResponse struct {
	ApproximateGroup struct {
		Candidate []struct {
			RxCUI string `json:"rxcui"`
			Score string `json:"score"`
		} `json:"candidate"`
	} `json:"approximateGroup"`
}

// ResolveName resolves a free-text medication name to an RxNorm concept.
// Exact name lookup is tried first; approximate term matching is the
// fallback, with weak matches rejected so random text does not pass as a
// medication.
func (c *RxNormClient) ResolveName(ctx context.Context, name string) (Resolution, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return Resolution{Note: "No RxNorm match found. Check spelling or use generic name."}, nil
	}

	exact, err := c.exactLookup(ctx, trimmed)
	if err != nil {
		return Resolution{}, err
	}
	if exact != "" {
		best := c.conceptName(ctx, exact)
		if best == "" {
			best = trimmed
		}
		return Resolution{RxCUI: exact, BestName: best}, nil
	}

	return c.approximateLookup(ctx, trimmed)
}

// exactLookup returns the first RxCUI for an exact name match, or empty.
func (c *RxNormClient) exactLookup(ctx context.Context, name string) (string, error) {
	params := url.Values{"name": {name}}
	var resp rxcuiByNameResponse
	ok, err := c.getJSON(ctx, c.baseURL+"/rxcui.json", params, &resp)
	if err != nil {
		return "", fmt.Errorf("rxnorm exact lookup for %q: %w", name, err)
	}
	if !ok || len(resp.IDGroup.RxNormID) == 0 {
		return "", nil
	}
	return resp.IDGroup.RxNormID[0], nil
}

// conceptName fetches the canonical RxNorm name for a concept. Failures
// here are cosmetic; the caller falls back to the submitted name.
func (c *RxNormClient) conceptName(ctx context.Context, rxcui string) string {
	params := url.Values{"propName": {"RxNorm Name"}}
	var resp propertyResponse
	ok, err := c.getJSON(ctx, fmt.Sprintf("%s/rxcui/%s/property.json", c.baseURL, url.PathEscape(rxcui)), params, &resp)
	if err != nil || !ok {
		return ""
	}
	if len(resp.PropConceptGroup.PropConcept) == 0 {
		return ""
	}
	return resp.PropConceptGroup.PropConcept[0].PropValue
}

func (c *RxNormClient) approximateLookup(ctx context.Context, name string) (Resolution, error) {
	params := url.Values{
		"term":       {name},
		"maxEntries": {"1"},
		"option":     {"1"},
	}
	var resp approximateResponse
	ok, err := c.getJSON(ctx, c.baseURL+"/approximateTerm.json", params, &resp)
	if err != nil {
		return Resolution{}, fmt.Errorf("rxnorm approximate lookup for %q: %w", name, err)
	}
	if !ok || len(resp.ApproximateGroup.Candidate) == 0 {
		return Resolution{Note: "No RxNorm match found. Check spelling or use generic name."}, nil
	}

	candidate := resp.ApproximateGroup.Candidate[0]
	score, scoreErr := strconv.ParseFloat(candidate.Score, 64)
	if scoreErr != nil || score < c.minApproxScore {
		return Resolution{Note: "No confident RxNorm match found. Check spelling or use a generic medicine name."}, nil
	}

	res := Resolution{RxCUI: candidate.RxCUI}
	if score < 70 {
		res.Note = "Approximate RxNorm match. Double check medication name."
	}
	if candidate.RxCUI != "" {
		res.BestName = c.conceptName(ctx, candidate.RxCUI)
	}
	return res, nil
}

// getJSON performs a rate-limited GET and decodes the JSON body. The bool
// result is false for non-200 responses or undecodable bodies, which the
// terminology endpoints use interchangeably with "no data".
func (c *RxNormClient) getJSON(ctx context.Context, endpoint string, params url.Values, out interface{}) (bool, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return false, nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, nil
	}
	return true, nil
}
