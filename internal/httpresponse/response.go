package httpresponse

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"

	errs "linggo_sync/internal/errors"
)

type Response[T any] struct {
	Status int `json:"Status"`
	Body   any `json:"Body,omitempty"`
}

type ErrorResponse struct {
	ErrorDescription string `json:"ErrorDescription"`
}

const INTERNALERRORJSON = "{\"Status\": 500,\"Body\":{\"ErrorDescription\": \"Internal server error\"}}"

const MALFORMEDJSON_errorDesc = "json unmarshalling error"

func WriteResponseWithStatus(w http.ResponseWriter, status int, body any) {
	jsonByte, err := marshalStatusJson(status, body)
	if err != nil {
		WriteInternalErrorResponse(w)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(jsonByte)
}

func marshalStatusJson(status int, body any) ([]byte, error) {
	response := Response[any]{
		Status: status,
		Body:   body,
	}
	marshal, err := json.Marshal(response)
	if err != nil {
		return nil, err
	}
	return marshal, nil
}

func WriteInternalErrorResponse(w http.ResponseWriter) {
	// implementation similar to http.Error, only difference is the Content-type
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	_, _ = fmt.Fprintln(w, INTERNALERRORJSON)
}

// StatusFor maps a domain error onto the HTTP status the API answers with.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, errs.ErrUnauthenticated), errors.Is(err, errs.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, errs.ErrValidationFailed), errors.Is(err, errs.ErrNotFound):
		return http.StatusBadRequest
	case errors.Is(err, errs.ErrDeviceForbidden):
		return http.StatusForbidden
	case errors.Is(err, errs.ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// WriteError logs err under the handler name op and writes the matching error
// response. Server side failures are reported to Sentry and never leak details.
func WriteError(w http.ResponseWriter, r *http.Request, log *zap.SugaredLogger, op string, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		log.Errorf("%s: %v", op, err)
		if hub := sentry.GetHubFromContext(r.Context()); hub != nil {
			hub.CaptureException(err)
		}
		description := "Server error"
		if status == http.StatusBadGateway {
			description = errs.ErrUpstream.Error()
		}
		WriteResponseWithStatus(w, status, ErrorResponse{ErrorDescription: description})
		return
	}

	log.Warnf("%s: %v", op, err)
	WriteResponseWithStatus(w, status, ErrorResponse{ErrorDescription: err.Error()})
}
