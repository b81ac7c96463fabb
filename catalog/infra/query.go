package infra

import (
	"strconv"
	"strings"

	"github.com/inlines/g-stx-api/catalog/domain"
)

// productFilter é o único gerador do predicado da busca. A página e a
// contagem usam o mesmo texto e os mesmos argumentos ($1..$3).
func productFilter(q domain.ListQuery) (string, []any) {
	const where = `EXISTS (
		SELECT 1
		FROM product_platforms pp
		WHERE pp.product_id = p.id
			AND pp.platform_id = $1
			AND ($2 = false OR pp.digital_only = false)
	)
	AND (
		p.name ILIKE $3
		OR EXISTS (
			SELECT 1 FROM alternative_names an
			WHERE an.product_id = p.id AND an.name ILIKE $3
		)
	)
	AND (p.game_type NOT IN (1, 2, 4) OR p.game_type IS NULL)`

	return where, []any{q.Category, q.IgnoreDigital, "%" + escapeLike(q.Text) + "%"}
}

func orderClause(s domain.SortOrder) string {
	col := "p.name"
	if s == domain.SortByDate {
		col = "p.first_release_date"
	}
	// p.id desempata para a paginação ser estável
	return "ORDER BY " + col + " ASC NULLS LAST, p.id ASC"
}

func listSQL(q domain.ListQuery) (string, []any) {
	where, args := productFilter(q)
	n := len(args)
	query := `SELECT
		p.id,
		p.name,
		p.first_release_date,
		p.total_rating,
		p.game_type,
		p.parent_game,
		c.id
	FROM products p
	LEFT JOIN covers c ON p.cover_id = c.id
	WHERE ` + where + `
	` + orderClause(q.Sort) + `
	LIMIT $` + strconv.Itoa(n+1) + ` OFFSET $` + strconv.Itoa(n+2)
	return query, append(args, q.Limit, q.Offset)
}

func countSQL(q domain.ListQuery) (string, []any) {
	where, args := productFilter(q)
	return `SELECT COUNT(DISTINCT p.id) FROM products p WHERE ` + where, args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike faz o texto do usuário casar literalmente dentro do ILIKE.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// coverURL monta a URL pública da capa; nil quando o produto não tem capa.
func coverURL(base string, coverID *int64) *string {
	if coverID == nil {
		return nil
	}
	u := base + strconv.FormatInt(*coverID, 10) + ".jpg"
	return &u
}
