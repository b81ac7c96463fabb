// Package cache implementa o store cache-aside usado pelos endpoints do catálogo.
//
// O cache nunca está no caminho de correção: qualquer falha (conexão, pool
// esgotado, timeout, payload incompatível) vira miss na leitura e é engolida na
// escrita, depois de logada.
package cache
