package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/gennadis/facultydash/internal/logger"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	JSONContentType = "application/json"
	RequestIDHeader = "X-Request-ID"

	tracerName = "github.com/gennadis/facultydash/internal/client"
)

// ErrConnectivity matches every transport failure (see TransportError)
var ErrConnectivity = errors.New("connection error")

// APIError is a non-2xx response from the backend. Message is empty when
// the body carried no human readable text.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api request failed: status code %d", e.Status)
	}
	return fmt.Sprintf("api request failed: status code %d, message %s", e.Status, e.Message)
}

// TransportError wraps a failure to reach the backend or read its reply
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == ErrConnectivity }

// apiErrorResponse covers both {"detail": "..."} and {"message": "..."} bodies
type apiErrorResponse struct {
	Detail  json.RawMessage `json:"detail"`
	Message string          `json:"message"`
}

// IsUnauthorized reports whether err is a 401 from the backend
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}

// UserMessage returns the server provided message of err, or fallback
func UserMessage(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

// Client talks to the dashboard backend. Authentication is the job of the
// http.Client passed in.
type Client struct {
	httpClient *http.Client
	baseURL    string
	log        *logger.Logger
	tracer     trace.Tracer
}

// NewClient creates a new backend client
func NewClient(baseURL string, httpClient *http.Client, log *logger.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		log:        log,
		tracer:     otel.Tracer(tracerName),
	}
}

type request struct {
	op          string
	method      string
	path        string
	query       url.Values
	body        io.Reader
	contentType string
}

func jsonRequest(op, method, path string, payload interface{}) (request, error) {
	reqBytes, err := json.Marshal(payload)
	if err != nil {
		return request{}, errors.Wrapf(err, "failed to encode %s request", op)
	}
	return request{
		op:          op,
		method:      method,
		path:        path,
		body:        bytes.NewReader(reqBytes),
		contentType: JSONContentType,
	}, nil
}

func (c *Client) do(ctx context.Context, r request, out interface{}) error {
	ctx, span := c.tracer.Start(ctx, r.op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", r.method),
			attribute.String("url.path", r.path),
		),
	)
	defer span.End()

	target := c.baseURL + r.path
	if len(r.query) > 0 {
		target += "?" + r.query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, r.method, target, r.body)
	if err != nil {
		return errors.Wrapf(err, "failed to build %s request", r.op)
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", JSONContentType)
	req.Header.Set(RequestIDHeader, requestID)
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	span.SetAttributes(attribute.String("request.id", requestID))

	res, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport failure")
		c.log.Error("Failed to send request", "op", r.op, "request_id", requestID, "error", err)
		return &TransportError{Op: r.op, Err: err}
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "read failure")
		c.log.Error("Failed to read response body", "op", r.op, "request_id", requestID, "error", err)
		return &TransportError{Op: r.op, Err: err}
	}
	span.SetAttributes(attribute.Int("http.response.status_code", res.StatusCode))

	if err := handleAPIError(res, body); err != nil {
		span.SetStatus(codes.Error, err.Error())
		c.log.Warn("Api request failed", "op", r.op, "request_id", requestID, "status", res.StatusCode, "error", err)
		return err
	}

	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		span.RecordError(err)
		c.log.Error("Failed to unmarshal response body", "op", r.op, "request_id", requestID, "error", err)
		return errors.Wrapf(err, "failed to decode %s response", r.op)
	}
	return nil
}

func handleAPIError(res *http.Response, body []byte) error {
	if res.StatusCode >= 200 && res.StatusCode < 300 {
		return nil
	}

	apiErr := &APIError{Status: res.StatusCode}
	errResp := apiErrorResponse{}
	if err := json.Unmarshal(body, &errResp); err != nil {
		return apiErr
	}

	var detail string
	if len(errResp.Detail) > 0 && json.Unmarshal(errResp.Detail, &detail) == nil && detail != "" {
		apiErr.Message = detail
	} else {
		apiErr.Message = errResp.Message
	}
	return apiErr
}
