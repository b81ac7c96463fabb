package ratelimit

import (
	"net"
	"net/http"
	"strings"

	"github.com/inlines/g-stx-api/middleware/ratelimit/domain"
)

type KeyFunc func(r *http.Request) string

const (
	headerForwardedFor = "X-Forwarded-For"
	headerRealIP       = "X-Real-IP"
)

// ClientKey deriva a chave do cliente, nesta ordem:
// primeiro item do X-Forwarded-For, X-Real-IP, RemoteAddr sem a porta, "unknown".
//
// Os headers de proxy têm prioridade sobre o peer. Não é verificado; veja doc.go.
func ClientKey(r *http.Request) string {
	return DefaultKeyFunc("", true)(r)
}

// DefaultKeyFunc monta a função de chave.
// keyHeader (opcional) tem prioridade; trustProxy liga X-Forwarded-For/X-Real-IP.
func DefaultKeyFunc(keyHeader string, trustProxy bool) KeyFunc {
	return func(r *http.Request) string {
		if keyHeader != "" {
			if v := strings.TrimSpace(r.Header.Get(keyHeader)); v != "" {
				return v
			}
		}

		if trustProxy {
			// pega o primeiro IP do X-Forwarded-For (cliente original)
			if xff := r.Header.Get(headerForwardedFor); xff != "" {
				first, _, _ := strings.Cut(xff, ",")
				if ip := strings.TrimSpace(first); ip != "" {
					return ip
				}
			}
			if rip := r.Header.Get(headerRealIP); rip != "" {
				return rip
			}
		}

		// fallback: RemoteAddr
		addr := strings.TrimSpace(r.RemoteAddr)
		host, _, err := net.SplitHostPort(addr)
		if err == nil && host != "" {
			return host
		}
		if addr != "" {
			return addr
		}
		return string(domain.UnknownKey)
	}
}
