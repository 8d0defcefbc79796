// Package ror looks up organizations in the Research Organization Registry
// (v2 API) and reduces a record to the fields an Institution carries.
package ror

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/dalemusser/phonebook/internal/app/system/apperr"
	"github.com/dalemusser/phonebook/internal/app/system/limits"
	"github.com/dalemusser/phonebook/internal/app/system/metrics"
	"github.com/dalemusser/phonebook/internal/app/system/normalize"
	"go.uber.org/zap"
)

// DefaultBaseURL is the public v2 organizations endpoint.
const DefaultBaseURL = "https://api.ror.org/v2/organizations"

var idPattern = regexp.MustCompile(`^0[a-z0-9]{6}[0-9]{2}$`)

// Metric outcome labels.
const (
	OutcomeOK          = "ok"
	OutcomeNotFound    = "not_found"
	OutcomeUnavailable = "unavailable"
	OutcomeBadData     = "bad_data"
)

// Config configures a Client.
type Config struct {
	BaseURL  string
	ClientID string
	Timeout  time.Duration
}

// Client calls the registry.
type Client struct {
	base     string
	clientID string
	timeout  time.Duration
	http     *http.Client
	metrics  *metrics.Metrics
	log      *zap.Logger
}

// New builds a Client. m may be nil.
func New(cfg Config, m *metrics.Metrics, logger *zap.Logger) *Client {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &Client{
		base:     base,
		clientID: cfg.ClientID,
		timeout:  timeout,
		http:     &http.Client{Timeout: timeout},
		metrics:  m,
		log:      logger,
	}
}

// Organization is the subset of a registry record used to enrich an
// Institution. Nil fields were absent from the record.
type Organization struct {
	ID        string
	FullName  *string
	ShortName *string
	Country   *string
	Region    *string
	City      *string
	Address   *string
	Latitude  *float64
	Longitude *float64
}

// NormalizeID accepts a bare id or an https://ror.org/ URL and returns the
// bare id, or a Validation error when it is not shaped like a ROR id.
func NormalizeID(raw string) (string, error) {
	id := strings.ToLower(normalize.RORID(raw))
	if !idPattern.MatchString(id) {
		return "", apperr.Validation("rorid %q is not a valid ROR identifier", raw)
	}
	return id, nil
}

// Lookup fetches one organization. Transport failures, timeouts and non-2xx
// statuses other than 404 are UpstreamUnavailable; 404, undecodable bodies
// and records without a display name are UpstreamData.
func (c *Client) Lookup(ctx context.Context, rorID string) (*Organization, error) {
	id, err := NormalizeID(rorID)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	org, outcome, err := c.lookup(ctx, id)
	c.metrics.ObserveROR(outcome, time.Since(start))
	if err != nil {
		c.log.Warn("ror lookup failed",
			zap.String("rorid", id),
			zap.String("outcome", outcome),
			zap.Error(err))
		return nil, err
	}
	c.log.Debug("ror lookup", zap.String("rorid", id), zap.Duration("took", time.Since(start)))
	return org, nil
}

func (c *Client) lookup(ctx context.Context, id string) (*Organization, string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, OutcomeUnavailable, fmt.Errorf("build ror request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.clientID != "" {
		req.Header.Set("Client-Id", c.clientID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, OutcomeUnavailable, apperr.Upstream(apperr.ErrUpstreamUnavailable, err,
			"organization registry is unreachable")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, OutcomeNotFound, apperr.WithCode(apperr.Upstream(apperr.ErrUpstreamData, nil,
			"organization registry has no record %s", id), "ror_not_found")
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, OutcomeUnavailable, apperr.Upstream(apperr.ErrUpstreamUnavailable,
			fmt.Errorf("status %d", resp.StatusCode),
			"organization registry returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, limits.MaxRegistryBody))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, OutcomeUnavailable, apperr.Upstream(apperr.ErrUpstreamUnavailable, err,
				"organization registry timed out")
		}
		return nil, OutcomeUnavailable, apperr.Upstream(apperr.ErrUpstreamUnavailable, err,
			"reading organization registry response failed")
	}

	org, err := parse(body)
	if err != nil {
		return nil, OutcomeBadData, err
	}
	return org, OutcomeOK, nil
}

type record struct {
	ID    string `json:"id"`
	Names []struct {
		Value string   `json:"value"`
		Types []string `json:"types"`
	} `json:"names"`
	Locations []struct {
		Details struct {
			Name                   *string  `json:"name"`
			CountryName            *string  `json:"country_name"`
			CountrySubdivisionName *string  `json:"country_subdivision_name"`
			Lat                    *float64 `json:"lat"`
			Lng                    *float64 `json:"lng"`
		} `json:"geonames_details"`
	} `json:"locations"`
}

func (r *record) name(kind string) *string {
	for _, n := range r.Names {
		for _, t := range n.Types {
			if t == kind && strings.TrimSpace(n.Value) != "" {
				v := strings.TrimSpace(n.Value)
				return &v
			}
		}
	}
	return nil
}

func parse(body []byte) (*Organization, error) {
	var rec record
	if err := json.Unmarshal(body, &rec); err != nil {
		return nil, apperr.Upstream(apperr.ErrUpstreamData, err, "organization registry returned malformed data")
	}

	org := &Organization{ID: rec.ID, FullName: rec.name("ror_display")}
	if org.FullName == nil {
		return nil, apperr.Upstream(apperr.ErrUpstreamData, nil, "organization registry record has no display name")
	}

	org.ShortName = rec.name("acronym")
	if org.ShortName == nil {
		org.ShortName = rec.name("alias")
	}

	if len(rec.Locations) > 0 {
		d := rec.Locations[0].Details
		org.City = nonBlank(d.Name)
		org.Country = nonBlank(d.CountryName)
		org.Region = nonBlank(d.CountrySubdivisionName)
		org.Latitude = d.Lat
		org.Longitude = d.Lng

		var parts []string
		for _, p := range []*string{org.City, org.Region, org.Country} {
			if p != nil {
				parts = append(parts, *p)
			}
		}
		if len(parts) > 0 {
			addr := strings.Join(parts, ", ")
			org.Address = &addr
		}
	}
	return org, nil
}

func nonBlank(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
