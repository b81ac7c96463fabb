package infra

import "time"

// SystemClock é o relógio de produção.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
