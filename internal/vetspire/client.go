// =============================================================================
// Vetspire Import - Vetspire API Client
// =============================================================================
//
// This module talks to the Vetspire GraphQL API.
//
// TRANSPORT:
//   Every request is a POST to the configured endpoint with a form-encoded
//   body carrying "query" and "variables" and the API key in the
//   Authorization header. Every call first waits on the shared RateLimiter.
//
// ERRORS:
//   A non-2xx status or a non-empty "errors" array becomes an *APIError.
//   Transport failures and timeouts are returned wrapped. Callers record them
//   per record; nothing here retries.
//
// SNAPSHOTS:
//   FetchClients, FetchPatients and FetchPatientsWithImmunizations page
//   through the collection with limit/offset, continuing while a page comes
//   back full. A failing page stops the loop; the records accumulated so far
//   are returned together with the error.
//
// =============================================================================

package vetspire

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/john-osullivan/vetspire-import/internal/types"
)

// DefaultPageSize is the number of records requested per snapshot page.
const DefaultPageSize = 100

// =============================================================================
// ERROR TYPES
// =============================================================================

// APIError is returned when the API answers with an HTTP error status or a
// GraphQL error list.
type APIError struct {
	// Operation is the GraphQL operation name, e.g. "createClient".
	Operation string

	// StatusCode is the HTTP status. 200 for GraphQL-level errors.
	StatusCode int

	// Messages are the GraphQL error messages, if any.
	Messages []string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if len(e.Messages) > 0 {
		return fmt.Sprintf("vetspire %s: GraphQL error: %s", e.Operation, strings.Join(e.Messages, "; "))
	}
	return fmt.Sprintf("vetspire %s: HTTP %d %s", e.Operation, e.StatusCode, http.StatusText(e.StatusCode))
}

// =============================================================================
// CLIENT
// =============================================================================

// Options configures a Client.
type Options struct {
	// URL is the GraphQL endpoint.
	URL string

	// APIKey is sent verbatim in the Authorization header.
	APIKey string

	// Timeout bounds a single call. Default: 30s.
	Timeout time.Duration

	// PageSize is the snapshot page size. Default: DefaultPageSize.
	PageSize int

	// Limiter spaces calls. Default: a limiter with DefaultInterval.
	Limiter *RateLimiter

	// HTTPClient overrides the HTTP client, mainly for tests.
	HTTPClient *http.Client

	// Verbose logs request variables and response bodies at debug level.
	Verbose bool
}

// Client is a rate-limited Vetspire GraphQL client.
type Client struct {
	url      string
	apiKey   string
	pageSize int
	limiter  *RateLimiter
	http     *http.Client
	verbose  bool
	logger   zerolog.Logger
}

// New creates a Client.
func New(opts Options, logger zerolog.Logger) *Client {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.Limiter == nil {
		opts.Limiter = NewRateLimiter(DefaultInterval)
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}
	return &Client{
		url:      opts.URL,
		apiKey:   opts.APIKey,
		pageSize: opts.PageSize,
		limiter:  opts.Limiter,
		http:     opts.HTTPClient,
		verbose:  opts.Verbose,
		logger:   logger.With().Str("component", "vetspire").Logger(),
	}
}

type graphQLError struct {
	Message string `json:"message"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors"`
}

// do sends one GraphQL request and returns the "data" object keyed by
// top-level field.
func (c *Client) do(ctx context.Context, op, query string, variables map[string]any) (map[string]json.RawMessage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("vetspire %s: %w", op, err)
	}

	vars, err := json.Marshal(variables)
	if err != nil {
		return nil, fmt.Errorf("vetspire %s: encode variables: %w", op, err)
	}
	form := url.Values{}
	form.Set("query", query)
	form.Set("variables", string(vars))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("vetspire %s: build request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", c.apiKey)

	if c.verbose {
		c.logger.Debug().Str("op", op).RawJSON("variables", vars).Msg("request")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("vetspire %s: %w", op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("vetspire %s: read response: %w", op, err)
	}

	c.logger.Debug().
		Str("op", op).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("response")
	if c.verbose {
		c.logger.Debug().Str("op", op).Bytes("body", body).Msg("response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{Operation: op, StatusCode: resp.StatusCode}
	}

	var out graphQLResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("vetspire %s: decode response: %w", op, err)
	}
	if len(out.Errors) > 0 {
		apiErr := &APIError{Operation: op, StatusCode: resp.StatusCode}
		for _, e := range out.Errors {
			apiErr.Messages = append(apiErr.Messages, e.Message)
		}
		return nil, apiErr
	}

	data := map[string]json.RawMessage{}
	if len(bytes.TrimSpace(out.Data)) > 0 && !bytes.Equal(bytes.TrimSpace(out.Data), []byte("null")) {
		if err := json.Unmarshal(out.Data, &data); err != nil {
			return nil, fmt.Errorf("vetspire %s: decode data: %w", op, err)
		}
	}
	return data, nil
}

// mutate runs a mutation and decodes the record under field into T. A null
// or absent record yields a nil pointer; validating it is the caller's job.
func mutate[T any](ctx context.Context, c *Client, field, query string, variables map[string]any) (*T, error) {
	data, err := c.do(ctx, field, query, variables)
	if err != nil {
		return nil, err
	}
	raw, ok := data[field]
	if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, nil
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("vetspire %s: decode record: %w", field, err)
	}
	return &out, nil
}

// fetchAll pages through a collection query.
func fetchAll[T any](ctx context.Context, c *Client, op, field, query string) ([]T, error) {
	all := []T{}
	for offset := 0; ; offset += c.pageSize {
		data, err := c.do(ctx, op, query, map[string]any{"limit": c.pageSize, "offset": offset})
		if err != nil {
			c.logger.Warn().Err(err).Str("op", op).Int("offset", offset).Int("fetched", len(all)).
				Msg("snapshot page failed; keeping records fetched so far")
			return all, err
		}

		raw := bytes.TrimSpace(data[field])
		if len(raw) == 0 || raw[0] != '[' {
			c.logger.Warn().Str("op", op).Int("offset", offset).Msg("snapshot page was not a list; treating as empty")
			return all, nil
		}

		var page []T
		if err := json.Unmarshal(raw, &page); err != nil {
			c.logger.Warn().Err(err).Str("op", op).Int("offset", offset).Msg("snapshot page could not be decoded")
			return all, fmt.Errorf("vetspire %s: decode page: %w", op, err)
		}
		all = append(all, page...)

		c.logger.Debug().Str("op", op).Int("offset", offset).Int("page", len(page)).Int("total", len(all)).Msg("snapshot page")
		if len(page) < c.pageSize {
			return all, nil
		}
	}
}

// =============================================================================
// QUERIES
// =============================================================================

// FetchClients returns every client visible to the API key.
func (c *Client) FetchClients(ctx context.Context) ([]types.Client, error) {
	return fetchAll[types.Client](ctx, c, "GetClients", "clients", getClientsQuery)
}

// FetchPatients returns every patient with its owning client reference.
func (c *Client) FetchPatients(ctx context.Context) ([]types.Patient, error) {
	return fetchAll[types.Patient](ctx, c, "GetPatients", "patients", getPatientsQuery)
}

// FetchPatientsWithImmunizations returns every patient with its recorded
// immunizations.
func (c *Client) FetchPatientsWithImmunizations(ctx context.Context) ([]types.Patient, error) {
	return fetchAll[types.Patient](ctx, c, "GetPatientsWithImmunizations", "patients", getPatientsWithImmunizationsQuery)
}

// =============================================================================
// MUTATIONS
// =============================================================================

// CreateClient creates a client.
func (c *Client) CreateClient(ctx context.Context, input types.ClientInput) (*types.Client, error) {
	return mutate[types.Client](ctx, c, "createClient", createClientMutation, map[string]any{"input": input})
}

// UpdateClient replaces the given fields of client id.
func (c *Client) UpdateClient(ctx context.Context, id string, input map[string]any) (*types.Client, error) {
	return mutate[types.Client](ctx, c, "updateClient", updateClientMutation, map[string]any{"id": id, "input": input})
}

// CreatePatient creates a patient owned by clientID.
func (c *Client) CreatePatient(ctx context.Context, clientID string, input types.PatientInput) (*types.Patient, error) {
	return mutate[types.Patient](ctx, c, "createPatient", createPatientMutation, map[string]any{"clientId": clientID, "input": input})
}

// UpdatePatient replaces the given fields of patient id.
func (c *Client) UpdatePatient(ctx context.Context, id string, input map[string]any) (*types.Patient, error) {
	return mutate[types.Patient](ctx, c, "updatePatient", updatePatientMutation, map[string]any{"id": id, "input": input})
}

// CreateImmunization records an immunization.
func (c *Client) CreateImmunization(ctx context.Context, input types.ImmunizationInput) (*types.Immunization, error) {
	return mutate[types.Immunization](ctx, c, "createImmunization", createImmunizationMutation, map[string]any{"input": input})
}
