package httpx

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/juju/errors"
)

// maxBody bounds request bodies accepted by DecodeJSON.
const maxBody = 1 << 20

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Details any    `json:"details,omitempty"`
}

func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	var body []byte
	var err error
	if payload != nil {
		body, err = json.Marshal(payload)
		if err != nil {
			// avoid writing partial JSON
			http.Error(w, `{"error":"encode_error"}`, http.StatusInternalServerError)
			return
		}
	} else {
		body = []byte("null")
	}
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func JSONError(w http.ResponseWriter, status int, code, msg string, details any) {
	JSON(w, status, ErrorResponse{Error: code, Message: msg, Details: details})
}

// DecodeJSON reads a single JSON object from the request body into dst.
// An empty body leaves dst untouched; anything after the object is rejected.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return errors.NewNotValid(err, "malformed JSON body")
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return errors.NewNotValid(nil, "trailing data after JSON body")
	}
	return nil
}
