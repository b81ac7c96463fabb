// Package domain define os tipos do catálogo (produtos, releases, plataformas)
// e o contrato com o store autoritativo. Não depende de net/http nem de SQL.
package domain
