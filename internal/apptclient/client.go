// Package apptclient fetches a doctor's appointments for one day from the
// clinic backend.
package apptclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"clinic-dashboard/internal/identity"
	"clinic-dashboard/internal/model"
	"clinic-dashboard/internal/schedule"
)

var tracer = otel.Tracer("clinic.internal.apptclient")

const maxBody = 4 << 20

// Client issues one GET per query. It never retries.
type Client struct {
	baseURL    string
	httpClient *http.Client
	resolver   identity.Resolver
	logger     *zap.Logger
}

// New builds a Client. A nil httpClient uses a client without its own
// timeout; callers bound each fetch through the context.
func New(baseURL string, resolver identity.Resolver, httpClient *http.Client, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		resolver:   resolver,
		logger:     logger,
	}
}

// Fetch resolves the caller and loads the appointments described by q.
// An empty day yields a non-nil empty slice and a nil error.
func (c *Client) Fetch(ctx context.Context, q schedule.Query) ([]model.AppointmentRecord, error) {
	ctx, span := tracer.Start(ctx, "apptclient.Fetch", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	_, filtered := q.PatientName()
	span.SetAttributes(
		attribute.String("clinic.date", q.DateKey()),
		attribute.Bool("clinic.filtered", filtered),
	)

	if q.Token() == "" {
		span.SetStatus(codes.Error, "missing identity")
		return nil, schedule.ErrMissingIdentity
	}

	who, err := c.resolve(ctx, q.Token())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "identity")
		return nil, fmt.Errorf("%w: %w", schedule.ErrIdentityResolutionFailed, err)
	}
	span.SetAttributes(attribute.Int64("clinic.doctor_id", who.ID))

	records, err := c.get(ctx, c.endpoint(who.ID, q))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch")
		return nil, err
	}
	span.SetAttributes(attribute.Int("clinic.records", len(records)))
	return records, nil
}

func (c *Client) resolve(ctx context.Context, token string) (identity.Identity, error) {
	ctx, span := tracer.Start(ctx, "identity.Resolve")
	defer span.End()
	who, err := c.resolver.Resolve(ctx, token)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "resolve")
	}
	return who, err
}

func (c *Client) endpoint(doctorID int64, q schedule.Query) string {
	return c.baseURL + "/appointments/doctor/" +
		strconv.FormatInt(doctorID, 10) + "/" +
		url.PathEscape(q.DateKey()) + "/" +
		url.PathEscape(q.FilterSegment()) + "/" +
		url.PathEscape(q.Token())
}

func (c *Client) get(ctx context.Context, endpoint string) ([]model.AppointmentRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", schedule.ErrNetwork, err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", schedule.ErrNetwork, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", schedule.ErrNetwork, err)
	}
	c.logger.Debug("appointments fetched",
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %w", schedule.ErrRequestFailed, &schedule.StatusError{
			StatusCode: resp.StatusCode,
			Message:    errorMessage(body),
		})
	}

	var records []model.AppointmentRecord
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("%w: decode: %w", schedule.ErrNetwork, err)
	}
	if records == nil {
		records = []model.AppointmentRecord{}
	}
	return records, nil
}

// errorMessage pulls "message" out of a JSON error body, falling back to the
// raw text.
func errorMessage(body []byte) string {
	var e struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &e); err == nil && e.Message != "" {
		return e.Message
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}
