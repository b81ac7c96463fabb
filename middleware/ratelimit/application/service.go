package application

import (
	"time"

	"github.com/inlines/g-stx-api/middleware/ratelimit/domain"
)

// Service é o controlador de admissão: whitelist, depois limiter global,
// depois limiter por chave. Ambos os limiters são opcionais.
//
// Ele não sabe nada sobre HTTP (headers/status), apenas retorna uma decisão.
// Nunca bloqueia nem falha: esgotar a capacidade é um resultado normal.
type Service struct {
	Global    domain.Limiter
	PerKey    domain.LimiterStore
	Whitelist domain.Whitelist
}

func (s Service) Decide(path string, key domain.Key) domain.Decision {
	// whitelist antes de qualquer leitura/escrita de estado
	if s.Whitelist.Matches(path) {
		return domain.Decision{Allowed: true, Bypassed: true}
	}

	if s.Global != nil {
		if ok, wait := s.Global.Allow(); !ok {
			// o limiter por chave não é consultado: a request já está rejeitada.
			return reject(domain.ScopeGlobal, wait)
		}
	}

	if s.PerKey != nil {
		if key == "" {
			key = domain.UnknownKey
		}
		if lim := s.PerKey.Get(key); lim != nil {
			if ok, wait := lim.Allow(); !ok {
				return reject(domain.ScopeKey, wait)
			}
		}
	}

	return domain.Decision{Allowed: true}
}

// Enabled indica se há algum limiter configurado.
func (s Service) Enabled() bool {
	return s.Global != nil || s.PerKey != nil
}

func reject(scope domain.Scope, wait time.Duration) domain.Decision {
	return domain.Decision{
		Allowed:    false,
		Scope:      scope,
		RetryAfter: domain.RetryAfterSeconds(wait),
		Wait:       wait,
	}
}
