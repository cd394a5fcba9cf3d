package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/openregistry/lotreg/internal/policy"
)

// apiError is one entry of the error envelope.
type apiError struct {
	Location    string `json:"location"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			log.Error().Err(err).Msg("encoding response")
		}
	}
}

// jsonData writes a success envelope.
func jsonData(w http.ResponseWriter, status int, data any) {
	jsonResponse(w, status, map[string]any{"data": data})
}

// jsonError writes an error envelope with a single entry.
func jsonError(w http.ResponseWriter, status int, location, name, description string) {
	jsonResponse(w, status, map[string]any{
		"status": "error",
		"errors": []apiError{{Location: location, Name: name, Description: description}},
	})
}

// policyError writes a transition-guard rejection.
func policyError(w http.ResponseWriter, err *policy.Error) {
	jsonError(w, err.Status, err.Location, err.Name, err.Message)
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(target)
}

// decodeData unwraps the {"data": {...}} request envelope.
func decodeData(r *http.Request) (map[string]any, error) {
	var body struct {
		Data map[string]any `json:"data"`
	}
	if err := decodeJSON(r, &body); err != nil {
		return nil, err
	}
	if body.Data == nil {
		return nil, fmt.Errorf("missing data envelope")
	}
	return body.Data, nil
}
