package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/gmx/internal/models"
	"github.com/desertthunder/gmx/internal/services"
	"github.com/desertthunder/gmx/internal/shared"
	"github.com/desertthunder/gmx/internal/taxonomy"
)

// Dispatcher turns operations into transport calls and classifies what comes back.
//
// It holds no mutable state and is safe for concurrent use when its transport is.
// It never retries and never caches.
type Dispatcher struct {
	transport services.Transport
	session   services.SessionProvider
	tax       *taxonomy.Taxonomy
	logger    *log.Logger
}

// New creates a dispatcher. A nil session skips the validity check; a nil taxonomy uses [taxonomy.Default].
func New(transport services.Transport, session services.SessionProvider, tax *taxonomy.Taxonomy, logger *log.Logger) *Dispatcher {
	if tax == nil {
		tax = taxonomy.Default()
	}
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &Dispatcher{transport: transport, session: session, tax: tax, logger: logger}
}

// Taxonomy returns the field table used to validate metadata writes.
func (d *Dispatcher) Taxonomy() *taxonomy.Taxonomy {
	return d.tax
}

// Execute validates op, sends it and wraps the response envelope into a [models.CallResult].
func (d *Dispatcher) Execute(ctx context.Context, op Operation) models.CallResult {
	kind := op.Kind()
	name := string(kind)

	params, err := op.Params(d.tax)
	if err != nil {
		return models.Fail(models.WrapFailure(models.Invalid, name, err))
	}

	if d.session != nil && !d.session.Valid(ctx) {
		return models.Fail(models.NewFailure(models.SessionExpired, name, "session is not valid"))
	}

	start := time.Now()
	resp, err := d.transport.Send(ctx, kind, params)
	if err != nil {
		d.logger.Debug("call failed", "op", kind, "err", err, "took", time.Since(start))
		return models.Fail(models.WrapFailure(models.Transport, name, err))
	}

	result := Classify(name, resp)
	if f := result.Failure(); f != nil {
		d.logger.Debug("call failed", "op", kind, "kind", f.Kind, "status", resp.StatusCode, "took", time.Since(start))
	} else {
		d.logger.Debug("call succeeded", "op", kind, "status", resp.StatusCode, "took", time.Since(start))
	}
	return result
}

// Classify maps a raw response onto a [models.CallResult].
//
//   - 401 and 403 are SessionExpired
//   - 5xx and bodies that are not JSON are Transport failures
//   - other 4xx and envelopes with "success": false are Rejected
//
// The payload is the envelope's "data" member when present, otherwise the whole body.
func Classify(op string, resp *services.RawResponse) models.CallResult {
	switch code := resp.StatusCode; {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return models.Fail(models.NewFailure(models.SessionExpired, op, "status %d: %s", code, message(resp.Body)))
	case code >= 500:
		return models.Fail(models.NewFailure(models.Transport, op, "status %d: %s", code, message(resp.Body)))
	case code >= 400:
		return models.Fail(models.NewFailure(models.Rejected, op, "status %d: %s", code, message(resp.Body)))
	}

	body := bytes.TrimSpace(resp.Body)
	if len(body) == 0 || !json.Valid(body) {
		return models.Fail(models.NewFailure(models.Transport, op, "malformed envelope: %s", snippet(body)))
	}

	if body[0] != '{' {
		return models.Success(json.RawMessage(body))
	}

	var env map[string]json.RawMessage
	if err := json.Unmarshal(body, &env); err != nil {
		return models.Fail(models.WrapFailure(models.Transport, op, err))
	}

	if raw, ok := env["success"]; ok {
		var success bool
		if err := json.Unmarshal(raw, &success); err != nil {
			return models.Fail(models.NewFailure(models.Transport, op, "malformed success flag: %s", raw))
		}
		if !success {
			return models.Fail(models.NewFailure(models.Rejected, op, "%s", message(body)))
		}
	}

	if data, ok := env["data"]; ok {
		return models.Success(data)
	}
	return models.Success(json.RawMessage(body))
}

// message extracts a human-readable reason from an error body.
func message(body []byte) string {
	var env struct {
		Error   string `json:"error"`
		Message string `json:"message"`
		Detail  string `json:"detail"`
	}
	if err := json.Unmarshal(body, &env); err == nil {
		for _, s := range []string{env.Error, env.Message, env.Detail} {
			if s != "" {
				return s
			}
		}
	}
	return snippet(body)
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if s == "" {
		return "empty body"
	}
	if len(s) > 120 {
		return s[:120] + "..."
	}
	return s
}

// decodeNumbers unmarshals raw keeping numbers as [json.Number] so integers survive intact.
func decodeNumbers(raw json.RawMessage, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("failed to decode payload: %w", err)
	}
	return nil
}
