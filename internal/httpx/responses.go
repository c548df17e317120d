package httpx

import (
	"encoding/json"
	"net/http"
)

type SuccessResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data,omitempty"`
	Meta    any  `json:"meta,omitempty"`
}

type ErrorResponse struct {
	Success bool              `json:"success"`
	Error   ErrorResponseBody `json:"error"`
	Meta    any               `json:"meta,omitempty"`
}

type ErrorResponseBody struct {
	Code    string        `json:"code"`
	Message string        `json:"message"`
	Details []ErrorDetail `json:"details,omitempty"`
}

type ErrorDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// buildMeta merges the request ID into customMeta. Non-map meta values are
// nested under "custom".
func buildMeta(r *http.Request, customMeta any) any {
	requestID := ""
	if r != nil {
		requestID = RequestIDFrom(r)
	}
	if requestID == "" && customMeta == nil {
		return nil
	}
	meta := make(map[string]any)
	if requestID != "" {
		meta["request_id"] = requestID
	}
	if customMeta != nil {
		if customMap, ok := customMeta.(map[string]any); ok {
			for k, v := range customMap {
				meta[k] = v
			}
		} else {
			meta["custom"] = customMeta
		}
	}
	return meta
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func JSONSuccess(w http.ResponseWriter, r *http.Request, data any, meta any) {
	writeJSON(w, http.StatusOK, SuccessResponse{
		Success: true,
		Data:    data,
		Meta:    buildMeta(r, meta),
	})
}

func JSONError(w http.ResponseWriter, r *http.Request, statusCode int, code string, message string, details []ErrorDetail) {
	writeJSON(w, statusCode, ErrorResponse{
		Success: false,
		Error: ErrorResponseBody{
			Code:    code,
			Message: message,
			Details: details,
		},
		Meta: buildMeta(r, nil),
	})
}
