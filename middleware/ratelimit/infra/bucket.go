package infra

import (
	"math"
	"time"

	"github.com/inlines/g-stx-api/middleware/ratelimit/domain"

	"golang.org/x/time/rate"
)

// Bucket é um token bucket com capacidade `burst` e reabastecimento de `rps`
// tokens/segundo. O reabastecimento é preguiçoso (calculado no Allow), sem timer.
//
// rate.Limiter serializa internamente; uma checagem que falha não altera o estado.
type Bucket struct {
	lim   *rate.Limiter
	rps   float64
	burst int
	clock domain.Clock
}

// NewBucket cria um bucket cheio. burst <= 0 usa capacidade = 1x rps (mínimo 1).
func NewBucket(rps float64, burst int, clock domain.Clock) *Bucket {
	if burst <= 0 {
		burst = DefaultBurst(rps)
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &Bucket{
		lim:   rate.NewLimiter(rate.Limit(rps), burst),
		rps:   rps,
		burst: burst,
		clock: clock,
	}
}

// DefaultBurst é a capacidade usada quando nenhum burst é configurado: 1x o rps.
func DefaultBurst(rps float64) int {
	b := int(math.Ceil(rps))
	if b < 1 {
		return 1
	}
	return b
}

func (b *Bucket) RPS() float64 { return b.rps }
func (b *Bucket) Burst() int   { return b.burst }

// Allow implementa domain.Limiter.
func (b *Bucket) Allow() (bool, time.Duration) {
	now := b.clock.Now()
	if b.lim.AllowN(now, 1) {
		return true, 0
	}
	return false, b.waitAt(now)
}

// Tokens devolve os tokens disponíveis agora (fracionário).
func (b *Bucket) Tokens() float64 {
	return b.lim.TokensAt(b.clock.Now())
}

// fullAt indica se o bucket está na capacidade máxima, ou seja, igual a um recém-criado.
func (b *Bucket) fullAt(now time.Time) bool {
	return b.lim.TokensAt(now) >= float64(b.burst)
}

func (b *Bucket) waitAt(now time.Time) time.Duration {
	missing := 1 - b.lim.TokensAt(now)
	if missing <= 0 {
		// outro request reabasteceu entre as duas leituras; o próximo Allow passa.
		return 0
	}
	return time.Duration(missing / b.rps * float64(time.Second))
}
