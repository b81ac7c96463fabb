// Package application implementa cadastro, login e as listas de releases do usuário.
package application
