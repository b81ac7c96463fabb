// Package ratelimit fornece adapters HTTP (net/http) para o controle de admissão
// (rate limit global + por cliente) e limite de concorrência.
//
// Visão geral (camadas):
//
//   - domain: contratos e tipos do domínio (sem dependência de net/http)
//   - application: casos de uso (decisão allow/deny, acquire/timeout) sem net/http
//   - infra: implementações concretas (token bucket, shards por chave, semáforo, stats)
//   - ratelimit (este pacote): middlewares HTTP + extração de chave + tradução para status/headers
//
// Fluxo na API:
//
//  1. Se o path está na whitelist, segue sem tocar em nenhum limiter
//  2. Extrai a chave do cliente (X-Forwarded-For, X-Real-IP, RemoteAddr)
//  3. Chama a camada application para obter a decisão
//  4. Se bloqueado, responde 429 com Retry-After em segundos (ou 503 para concorrência)
//  5. Se permitido, chama o próximo handler
//
// Confiança na chave: X-Forwarded-For e X-Real-IP são aceitos antes do endereço
// do peer. Isso só é seguro atrás de um proxy que sobrescreve/remove esses headers
// vindos do cliente; sem esse proxy, um cliente pode escolher a própria chave.
// Use TRUST_PROXY_HEADERS=false nesse cenário.
package ratelimit
