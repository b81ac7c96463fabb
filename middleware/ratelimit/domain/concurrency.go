package domain

import (
	"context"
	"errors"
)

// ScopeConcurrency marca rejeições por falta de vaga (não por token).
const ScopeConcurrency Scope = "concurrency"

var (
	// ErrSaturated: o timeout de aquisição venceu com todas as vagas ocupadas.
	ErrSaturated = errors.New("no free slot")
	// ErrAbandoned: o cliente cancelou antes de conseguir vaga.
	ErrAbandoned = errors.New("request abandoned while waiting for a slot")
)

// SlotPool limita quantas requests ficam em andamento ao mesmo tempo.
//
// Acquire bloqueia até conseguir vaga ou até o ctx encerrar. O release
// devolvido pode ser chamado mais de uma vez; só a primeira chamada libera.
type SlotPool interface {
	Acquire(ctx context.Context) (release func(), ok bool)
	InFlight() int
	Cap() int
}
