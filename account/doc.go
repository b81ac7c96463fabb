// Package account expõe cadastro, login e as listas de releases do usuário via HTTP.
//
// Rotas autenticadas exigem "Authorization: Bearer <token>"; sem token válido
// respondem 401.
package account
