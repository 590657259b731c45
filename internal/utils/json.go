package utils

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	progressDomain "linggo_sync/internal/domain/progress"
	errs "linggo_sync/internal/errors"
)

const (
	HeaderUID       = "uid"
	HeaderUpdated   = "updated"
	HeaderTimeStamp = "timeStamp"
)

func DecodeJSONRequest(r *http.Request, dst interface{}) error {
	return decodeJSON(r, dst, true)
}

// DecodeClientJSONRequest decodes bodies sent by the mobile apps, which carry
// fields the server does not read.
func DecodeClientJSONRequest(r *http.Request, dst interface{}) error {
	return decodeJSON(r, dst, false)
}

func decodeJSON(r *http.Request, dst interface{}, strict bool) error {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return fmt.Errorf("failed to read request body: %w", err)
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(bytes.NewReader(body))
	if strict {
		decoder.DisallowUnknownFields()
	}
	if err = decoder.Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid JSON: %v", errs.ErrValidationFailed, err)
	}
	return nil
}

func ReadRequestBody(r *http.Request) ([]byte, error) {
	defer r.Body.Close()
	return io.ReadAll(r.Body)
}

// DecodeDocument reads a JSON object body. Integral numbers become int64 so
// markers and element ids compare exactly; other numbers stay float64.
func DecodeDocument(r *http.Request) (progressDomain.Document, error) {
	body, err := ReadRequestBody(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, fmt.Errorf("%w: request body is empty", errs.ErrValidationFailed)
	}

	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()
	var doc map[string]any
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON: %v", errs.ErrValidationFailed, err)
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: body must be a JSON object", errs.ErrValidationFailed)
	}
	return normalizeNumbers(doc).(map[string]any), nil
}

func normalizeNumbers(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, item := range t {
			t[k] = normalizeNumbers(item)
		}
		return t
	case []any:
		for i, item := range t {
			t[i] = normalizeNumbers(item)
		}
		return t
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	default:
		return v
	}
}

// ParseMarker reads the sync marker from the updated and timeStamp headers,
// falling back to the same fields of body.
func ParseMarker(r *http.Request, body progressDomain.Document) (progressDomain.Marker, error) {
	var m progressDomain.Marker
	var err error
	if m.Updated, err = markerValue(r, body, HeaderUpdated); err != nil {
		return m, err
	}
	if m.TimeStamp, err = markerValue(r, body, HeaderTimeStamp); err != nil {
		return m, err
	}
	return m, nil
}

func markerValue(r *http.Request, body progressDomain.Document, name string) (int64, error) {
	if raw := strings.TrimSpace(r.Header.Get(name)); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %s header must be an integer", errs.ErrValidationFailed, name)
		}
		return n, nil
	}
	v, ok := body[name]
	if !ok || v == nil {
		return 0, nil
	}
	n, ok := progressDomain.Int64(v)
	if !ok {
		return 0, fmt.Errorf("%w: %s must be an integer", errs.ErrValidationFailed, name)
	}
	return n, nil
}

// Param returns the query parameter name, or the header of the same name.
func Param(r *http.Request, name string) string {
	if v := r.URL.Query().Get(name); v != "" {
		return v
	}
	return r.Header.Get(name)
}
