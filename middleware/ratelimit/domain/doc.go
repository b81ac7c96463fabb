// Package domain define contratos e tipos de domínio para admissão de requisições
// (rate limit global e por cliente) e limite de concorrência.
//
// Este pacote não depende de net/http nem de implementações concretas.
// O relógio é injetado (Clock) para que a aritmética dos buckets seja testável
// sem sleeps.
package domain
