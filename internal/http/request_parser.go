package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"

	"github.com/omrishi123/tractortrack/internal/core"
	"github.com/omrishi123/tractortrack/internal/report"
)

// maxBodyBytes leaves room for base64 logo and signature images in settings.
const maxBodyBytes = 5 << 20

var errBodyTooLarge = errors.New("request body too large")

// RequestBodyParser reads a request body once and decodes it as JSON.
type RequestBodyParser struct {
	body []byte
	err  error
}

// NewRequestBodyParser reads at most maxBodyBytes from the request.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{}
	if r.Body == nil {
		return p
	}
	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if p.err == nil && len(p.body) > maxBodyBytes {
		p.err = errBodyTooLarge
	}
	return p
}

// Decode unmarshals the body into v. Every failure is a ValidationError on
// the "body" field, or on "date" when a date could not be parsed.
func (p *RequestBodyParser) Decode(v any) error {
	if p.err != nil {
		return core.Invalid("body", p.err)
	}
	if len(p.body) == 0 {
		return &core.ValidationError{Field: "body", Reason: "empty request body"}
	}
	if err := json.Unmarshal(p.body, v); err != nil {
		if errors.Is(err, core.ErrInvalidDate) {
			return core.Invalid("date", err)
		}
		return &core.ValidationError{Field: "body", Reason: "malformed JSON", Err: err}
	}
	return nil
}

// GetRaw returns the raw body bytes.
func (p *RequestBodyParser) GetRaw() []byte {
	return p.body
}

// decodeJSON is the one-shot form used by handlers.
func decodeJSON(r *http.Request, v any) error {
	return NewRequestBodyParser(r).Decode(v)
}

// ParseReportParams builds a report request from the from/to query
// parameters. Absent bounds are left open.
func ParseReportParams(query url.Values, customerID string) (report.Request, error) {
	req := report.Request{CustomerID: customerID}
	var err error
	if req.From, err = optionalDate(query, "from"); err != nil {
		return report.Request{}, err
	}
	if req.To, err = optionalDate(query, "to"); err != nil {
		return report.Request{}, err
	}
	return req, nil
}

func optionalDate(query url.Values, key string) (core.Date, error) {
	v := sanitizeInput(query.Get(key))
	if v == "" {
		return core.Date{}, nil
	}
	d, err := core.ParseDate(v)
	if err != nil {
		return core.Date{}, core.Invalid(key, err)
	}
	return d, nil
}
