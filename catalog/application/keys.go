package application

import (
	"strconv"
	"time"

	"github.com/inlines/g-stx-api/catalog/domain"
)

const (
	cacheProducts      = "products"
	cacheProductDetail = "product_detail"
	cachePlatforms     = "platforms"

	platformsKey = "platforms"
)

// ListCacheKey codifica todos os parâmetros que mudam o conteúdo da página.
// O texto vai entre aspas para que ':' na busca não colida com o separador.
func ListCacheKey(q domain.ListQuery) string {
	return "products:cat_" + strconv.FormatInt(q.Category, 10) +
		":limit_" + strconv.FormatInt(q.Limit, 10) +
		":offset_" + strconv.FormatInt(q.Offset, 10) +
		":q_" + strconv.Quote(q.Text) +
		":dig_" + strconv.FormatBool(q.IgnoreDigital) +
		":sort_" + string(q.Sort)
}

func DetailCacheKey(productID int64) string {
	return "product:" + strconv.FormatInt(productID, 10)
}

// TTLPolicy define quanto tempo cada resposta fica no cache. Todos os valores
// devem ser positivos.
type TTLPolicy struct {
	FirstPage  time.Duration
	OtherPages time.Duration
	Detail     time.Duration
	Platforms  time.Duration
}

func DefaultTTLPolicy() TTLPolicy {
	return TTLPolicy{
		FirstPage:  300 * time.Second,
		OtherPages: 60 * time.Second,
		Detail:     6 * time.Hour,
		Platforms:  10 * time.Minute,
	}
}

// ListTTL: a primeira página é a mais lida e fica mais tempo.
func (p TTLPolicy) ListTTL(offset int64) time.Duration {
	if offset == 0 {
		return p.FirstPage
	}
	return p.OtherPages
}
