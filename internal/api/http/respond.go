package apihttp

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	prediction "energy-optimizer/internal/prediction/domain"
	usage "energy-optimizer/internal/usage/domain"
)

// Error codes returned in the "error" field.
const (
	CodeInsufficientData  = "insufficient_data"
	CodeInvalidParameter  = "invalid_parameter"
	CodeSchemaError       = "schema_error"
	CodeUnsupportedFormat = "unsupported_format"
	CodeDatasetNotFound   = "dataset_not_found"
	CodeModelUnavailable  = "model_unavailable"
	CodeMethodNotAllowed  = "method_not_allowed"
	CodeInternal          = "internal"
)

type errorBody struct {
	Error            string   `json:"error"`
	Message          string   `json:"message"`
	MissingColumns   []string `json:"missing_columns,omitempty"`
	AvailableColumns []string `json:"available_columns,omitempty"`
}

// writeJSON encodes before writing the header so encode failures become a 500.
func writeJSON(w http.ResponseWriter, status int, body any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		buf.Reset()
		status = http.StatusInternalServerError
		_ = json.NewEncoder(&buf).Encode(errorBody{Error: CodeInternal, Message: "response encoding failed"})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func writeCode(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Error: code, Message: message})
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeCode(w, http.StatusMethodNotAllowed, CodeMethodNotAllowed, "method not allowed")
}

// writeError maps domain errors to status codes.
func writeError(w http.ResponseWriter, err error) {
	var schemaErr *usage.SchemaError
	switch {
	case errors.As(err, &schemaErr):
		writeJSON(w, http.StatusBadRequest, errorBody{
			Error:            CodeSchemaError,
			Message:          fmt.Sprintf("Missing columns: [%s]", strings.Join(schemaErr.Missing, ", ")),
			MissingColumns:   schemaErr.Missing,
			AvailableColumns: schemaErr.Present,
		})
	case errors.Is(err, usage.ErrInsufficientData):
		writeCode(w, http.StatusUnprocessableEntity, CodeInsufficientData, err.Error())
	case errors.Is(err, usage.ErrInvalidParameter), errors.Is(err, usage.ErrEmptyTenantID):
		writeCode(w, http.StatusBadRequest, CodeInvalidParameter, err.Error())
	case errors.Is(err, usage.ErrUnsupportedFormat):
		writeCode(w, http.StatusBadRequest, CodeUnsupportedFormat, err.Error())
	case errors.Is(err, usage.ErrDatasetNotFound):
		writeCode(w, http.StatusNotFound, CodeDatasetNotFound, "dataset not found; upload data first")
	case errors.Is(err, prediction.ErrModelUnavailable):
		writeCode(w, http.StatusServiceUnavailable, CodeModelUnavailable, "prediction model not loaded")
	default:
		writeCode(w, http.StatusInternalServerError, CodeInternal, "internal error")
	}
}
