package domain

// Camada de domínio do rate limit.
//
// Regras e contratos (interfaces/tipos) sem dependência de net/http.

import (
	"strings"
	"time"
)

// Key identifica o cliente (normalmente o IP) para o limiter por chave.
type Key string

// UnknownKey é usada quando não há header nem endereço do peer.
// Todos os clientes "unknown" compartilham o mesmo bucket.
const UnknownKey Key = "unknown"

// Limiter é um token bucket: Allow consome exatamente um token quando disponível.
//
// Quando não há token, o bucket não é alterado e wait traz a espera mínima
// até o próximo token.
type Limiter interface {
	Allow() (ok bool, wait time.Duration)
}

// LimiterStore obtém (ou cria, com capacidade cheia) o limiter de uma chave.
type LimiterStore interface {
	Get(Key) Limiter
}

// Scope indica qual limiter produziu a decisão.
type Scope string

const (
	ScopeNone   Scope = ""
	ScopeGlobal Scope = "global"
	ScopeKey    Scope = "key"
)

type Decision struct {
	Allowed bool
	// Bypassed indica que o path estava na whitelist e nenhum limiter foi tocado.
	Bypassed bool
	Scope    Scope
	// RetryAfter é o valor a ser retornado em Retry-After quando bloquear:
	// segundos inteiros, arredondados para cima, mínimo 1s.
	RetryAfter time.Duration
	// Wait é a espera exata calculada pelo bucket. Uso interno (logs/métricas),
	// nunca enviada ao cliente.
	Wait time.Duration
}

// Whitelist é uma lista ordenada de prefixos de path isentos de admissão.
type Whitelist []string

// Matches faz starts_with sensível a maiúsculas/minúsculas.
func (w Whitelist) Matches(path string) bool {
	for _, prefix := range w {
		if prefix != "" && strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// RetryAfterSeconds arredonda a espera para segundos inteiros (para cima), mínimo 1s.
func RetryAfterSeconds(wait time.Duration) time.Duration {
	secs := wait / time.Second
	if wait%time.Second != 0 {
		secs++
	}
	if secs < 1 {
		secs = 1
	}
	return secs * time.Second
}
