// Package catalog expõe o catálogo via HTTP: GET /products, GET /products/{id}
// e GET /platforms.
//
// O detalhe é público. Quando a requisição traz um Bearer válido, o login do
// chamador é removido das listas de lance; credencial ausente ou inválida não
// é erro, apenas desliga essa exclusão.
package catalog
