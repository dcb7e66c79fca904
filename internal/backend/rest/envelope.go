package rest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"google.golang.org/api/googleapi"

	"mtrack/internal/service"
	"mtrack/internal/session"
)

// StatusOK is the envelope status of a successful call.
const StatusOK = "ok"

// envelope is the uniform response shape: {status, data?, message?}.
// Framework-level errors (404, 422) arrive as {detail} instead.
type envelope struct {
	Status  string          `json:"status"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Detail  json.RawMessage `json:"detail"`
}

// decode interprets resp and unmarshals its payload into out (when non-nil).
func decode(op string, resp *session.Response, out any) error {
	var env envelope
	if err := json.Unmarshal(resp.Body, &env); err != nil {
		if !resp.OK() {
			return httpError(resp)
		}
		return &service.TransportError{Op: op, Err: fmt.Errorf("malformed response: %w", err)}
	}

	if env.Status == "" {
		if !resp.OK() {
			return httpError(resp)
		}
		return &service.TransportError{Op: op, Err: errors.New("malformed response: missing status")}
	}
	if env.Status != StatusOK {
		return &service.BusinessError{Status: env.Status, Code: resp.StatusCode, Message: env.Message}
	}

	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return &service.TransportError{Op: op, Err: fmt.Errorf("malformed data: %w", err)}
	}
	return nil
}

// httpError turns a non-2xx response without an envelope into a BusinessError,
// preferring the backend's detail message.
func httpError(resp *session.Response) error {
	hr := &http.Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       io.NopCloser(bytes.NewReader(resp.Body)),
	}
	err := googleapi.CheckResponse(hr)
	if err == nil {
		return nil
	}

	msg := detailMessage(resp.Body)
	var gerr *googleapi.Error
	if msg == "" && errors.As(err, &gerr) {
		msg = gerr.Message
	}
	if msg == "" {
		msg = strings.ToLower(http.StatusText(resp.StatusCode))
	}
	return &service.BusinessError{Code: resp.StatusCode, Message: msg, Err: err}
}

// detailMessage extracts {detail} from an error body. detail is either a
// string or a list of validation errors with a msg each.
func detailMessage(body []byte) string {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || len(payload.Detail) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(payload.Detail, &s); err == nil {
		return s
	}

	var list []struct {
		Loc []any  `json:"loc"`
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(payload.Detail, &list); err == nil {
		msgs := make([]string, 0, len(list))
		for _, d := range list {
			if d.Msg == "" {
				continue
			}
			if n := len(d.Loc); n > 0 {
				msgs = append(msgs, fmt.Sprintf("%v: %s", d.Loc[n-1], d.Msg))
			} else {
				msgs = append(msgs, d.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return ""
}
