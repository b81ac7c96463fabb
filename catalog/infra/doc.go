// Package infra implementa domain.Repository sobre Postgres (database/sql + lib/pq).
package infra
