// Package infra implementa os contratos de conta: Postgres (lib/pq), hash
// argon2id (x/crypto) e tokens HS256 (jwx).
package infra
