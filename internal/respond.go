package internal

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"asms-api/internal/httperr"
	"asms-api/internal/logging"
)

// handlerFunc is a request handler that reports failures as errors
type handlerFunc func(w http.ResponseWriter, r *http.Request) error

// handle adapts h to http.Handler and writes any returned error as JSON
func (s *Server) handle(h handlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		err := h(w, r)
		if err == nil {
			return
		}

		e := httperr.From(err)
		log := logging.FromContext(r.Context()).WithField("error_kind", e.Kind.String())
		if e.Kind == httperr.KindInfrastructure {
			log.WithError(err).Error("request failed")
		} else {
			log.WithField("error", e.Code).Debug("request rejected")
		}
		httperr.Write(w, e)
	})
}

// decodeJSON reads a JSON object body into dst. An empty body, malformed
// JSON or a non-object value is rejected before any field is looked at.
// A literal null decodes as an empty object.
func decodeJSON(r *http.Request, dst interface{}) error {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		return httperr.InvalidJSON()
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || !json.Valid(raw) {
		return httperr.InvalidJSON()
	}
	if bytes.Equal(raw, []byte("null")) {
		return nil
	}
	if raw[0] != '{' {
		return httperr.InvalidJSON()
	}

	if err := json.Unmarshal(raw, dst); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			e := httperr.InvalidField(err)
			e.Field = typeErr.Field
			return e
		}
		return httperr.InvalidField(err)
	}
	return nil
}

// queryID reads the normalized "id" query parameter. ok is false when the
// parameter is absent.
func queryID(r *http.Request) (id int64, ok bool, err error) {
	raw := strings.TrimSpace(r.URL.Query().Get("id"))
	if raw == "" {
		return 0, false, nil
	}
	id, err = strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false, httperr.BadRequest("Invalid ID")
	}
	return id, true, nil
}

type messageResponse struct {
	Message string `json:"message"`
}
