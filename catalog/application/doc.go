// Package application implementa a camada read-through do catálogo: lista
// paginada e plataformas via cache-aside, e o detalhe de produto com a parte
// estável cacheada e os lances recalculados a cada requisição.
package application
