package application

import (
	"testing"
	"time"

	"github.com/inlines/g-stx-api/middleware/ratelimit/domain"
)

type fakeLimiter struct {
	allow bool
	wait  time.Duration
	calls int
}

func (f *fakeLimiter) Allow() (bool, time.Duration) {
	f.calls++
	if f.allow {
		return true, 0
	}
	return false, f.wait
}

type fakeStore struct {
	lim  *fakeLimiter
	keys []domain.Key
}

func (s *fakeStore) Get(k domain.Key) domain.Limiter {
	s.keys = append(s.keys, k)
	return s.lim
}

// tokenLimiter é um bucket mínimo sem refill, para checar a sequência de decisões.
type tokenLimiter struct{ tokens int }

func (l *tokenLimiter) Allow() (bool, time.Duration) {
	if l.tokens > 0 {
		l.tokens--
		return true, 0
	}
	return false, 500 * time.Millisecond
}

type perKeyTokens struct {
	capacity int
	m        map[domain.Key]*tokenLimiter
}

func (s *perKeyTokens) Get(k domain.Key) domain.Limiter {
	if s.m == nil {
		s.m = map[domain.Key]*tokenLimiter{}
	}
	l, ok := s.m[k]
	if !ok {
		l = &tokenLimiter{tokens: s.capacity}
		s.m[k] = l
	}
	return l
}

func TestService_Decide_AllowsWhenNothingConfigured(t *testing.T) {
	svc := Service{}
	dec := svc.Decide("/products", "k")
	if !dec.Allowed {
		t.Fatalf("expected allowed")
	}
	if dec.RetryAfter != 0 {
		t.Fatalf("expected RetryAfter=0 when allowed, got %s", dec.RetryAfter)
	}
	if svc.Enabled() {
		t.Fatalf("expected Enabled=false without limiters")
	}
}

func TestService_Decide_WhitelistTouchesNoLimiter(t *testing.T) {
	global := &fakeLimiter{allow: false, wait: time.Second}
	perKey := &fakeStore{lim: &fakeLimiter{allow: false, wait: time.Second}}
	svc := Service{Global: global, PerKey: perKey, Whitelist: domain.Whitelist{"/metrics", "/ws/"}}

	for i := 0; i < 5; i++ {
		dec := svc.Decide("/ws/chat", "1.2.3.4")
		if !dec.Allowed || !dec.Bypassed {
			t.Fatalf("expected whitelisted path to bypass, got %+v", dec)
		}
	}
	if global.calls != 0 || len(perKey.keys) != 0 || perKey.lim.calls != 0 {
		t.Fatalf("expected no limiter state to be read")
	}
}

func TestService_Decide_GlobalRejectSkipsPerKey(t *testing.T) {
	global := &fakeLimiter{allow: false, wait: 300 * time.Millisecond}
	perKey := &fakeStore{lim: &fakeLimiter{allow: true}}
	svc := Service{Global: global, PerKey: perKey}

	dec := svc.Decide("/products", "1.2.3.4")
	if dec.Allowed {
		t.Fatalf("expected blocked")
	}
	if dec.Scope != domain.ScopeGlobal {
		t.Fatalf("expected global scope, got %q", dec.Scope)
	}
	if dec.RetryAfter != time.Second {
		t.Fatalf("expected RetryAfter floor of 1s, got %s", dec.RetryAfter)
	}
	if dec.Wait != 300*time.Millisecond {
		t.Fatalf("expected exact wait to be kept for metrics, got %s", dec.Wait)
	}
	if len(perKey.keys) != 0 {
		t.Fatalf("per-key limiter must not be consulted after a global rejection")
	}
}

func TestService_Decide_PerKeyRejectRoundsUp(t *testing.T) {
	svc := Service{
		Global: &fakeLimiter{allow: true},
		PerKey: &fakeStore{lim: &fakeLimiter{allow: false, wait: 1200 * time.Millisecond}},
	}

	dec := svc.Decide("/products", "1.2.3.4")
	if dec.Allowed || dec.Scope != domain.ScopeKey {
		t.Fatalf("expected per-key rejection, got %+v", dec)
	}
	if dec.RetryAfter != 2*time.Second {
		t.Fatalf("expected RetryAfter=2s, got %s", dec.RetryAfter)
	}
}

func TestService_Decide_EmptyKeyUsesUnknownBucket(t *testing.T) {
	perKey := &fakeStore{lim: &fakeLimiter{allow: true}}
	svc := Service{PerKey: perKey}

	svc.Decide("/products", "")
	if len(perKey.keys) != 1 || perKey.keys[0] != domain.UnknownKey {
		t.Fatalf("expected unknown key, got %v", perKey.keys)
	}
}

func TestService_Decide_TwoPerSecondThirdRejected(t *testing.T) {
	svc := Service{PerKey: &perKeyTokens{capacity: 2}}

	var got []bool
	for i := 0; i < 3; i++ {
		got = append(got, svc.Decide("/products", "1.2.3.4").Allowed)
	}
	if !got[0] || !got[1] || got[2] {
		t.Fatalf("expected [admit admit reject], got %v", got)
	}
	if dec := svc.Decide("/products", "5.6.7.8"); !dec.Allowed {
		t.Fatalf("expected other client to be admitted")
	}
}
