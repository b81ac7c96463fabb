package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// envReader lê variáveis tipadas. Valor presente que não converte não cai no
// default em silêncio: o erro fica guardado e FromEnv falha com ele.
type envReader struct {
	errs []error
}

func (e *envReader) fail(k, v, want string) {
	e.errs = append(e.errs, fmt.Errorf("%s=%q is not a valid %s", k, v, want))
}

func (e *envReader) stringDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func (e *envReader) intDefault(k string, def int) int {
	if i, ok := e.int(k); ok {
		return i
	}
	return def
}

// int devolve ok=false para variável ausente ou inválida.
func (e *envReader) int(k string) (int, bool) {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return 0, false
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		e.fail(k, v, "integer")
		return 0, false
	}
	return i, true
}

func (e *envReader) floatDefault(k string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.fail(k, v, "number")
		return def
	}
	return f
}

func (e *envReader) boolDefault(k string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.fail(k, v, "boolean")
		return def
	}
	return b
}

func (e *envReader) durationDefault(k string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.fail(k, v, "duration")
		return def
	}
	return d
}

// list separa por vírgula, descartando itens vazios.
func (e *envReader) list(k string, def []string) []string {
	v, ok := os.LookupEnv(k)
	if !ok {
		return def
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
