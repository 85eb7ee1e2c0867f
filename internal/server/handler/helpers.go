package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/alanyoungcy/fixedmarket/internal/domain"
)

// writeJSON marshals v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}

// writeError sends a JSON-formatted error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError maps lifecycle error kinds onto HTTP status codes. The
// wrapped sentinel is what determines the code; unrecognized errors become
// a 500 with a generic body.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, domain.ErrUnauthorized.Error())
	case errors.Is(err, domain.ErrInvalidPrice):
		writeError(w, http.StatusBadRequest, domain.ErrInvalidPrice.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, domain.ErrNotFound.Error())
	case errors.Is(err, domain.ErrNotOwner):
		writeError(w, http.StatusForbidden, domain.ErrNotOwner.Error())
	case errors.Is(err, domain.ErrSelfTrade):
		writeError(w, http.StatusForbidden, domain.ErrSelfTrade.Error())
	case errors.Is(err, domain.ErrNotAvailable):
		writeError(w, http.StatusConflict, domain.ErrNotAvailable.Error())
	case errors.Is(err, domain.ErrExpired):
		writeError(w, http.StatusConflict, domain.ErrExpired.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// pathItemID extracts and parses the {id} path parameter.
func pathItemID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}
