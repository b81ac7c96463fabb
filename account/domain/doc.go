// Package domain define usuários, listas de releases por usuário e os
// contratos de persistência, hash de senha e tokens.
package domain
