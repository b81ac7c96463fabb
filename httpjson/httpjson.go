// Package httpjson reúne os helpers de resposta usados pelos handlers.
package httpjson

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Write serializa v como JSON com o status dado.
func Write(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Default().Warn("write response failed", "error", err)
	}
}

// Error escreve {"error": msg}.
func Error(w http.ResponseWriter, status int, msg string) {
	Write(w, status, map[string]string{"error": msg})
}

// Decode lê o corpo JSON de r em v, recusando campos desconhecidos.
func Decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
