// Package infra contém implementações concretas (infraestrutura) para os contratos
// definidos no pacote domain.
//
// Exemplos:
//   - Bucket: token bucket usando golang.org/x/time/rate, dirigido por um domain.Clock
//   - Store: buckets por chave, particionados (xxhash) e com limpeza de chaves inativas
//   - SlotSemaphore: vagas de concorrência sobre channel, release idempotente
//   - MemoryStatsStore / RedisStatsStore (agregado, flush em lote) / MultiStatsStore
package infra
