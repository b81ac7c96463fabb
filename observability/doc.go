// Package observability concentra métricas (prometheus, registry próprio),
// o middleware HTTP de métricas, request id e a construção do logger slog.
//
// Nada aqui é global: Metrics é criado no main e injetado onde é usado.
package observability
