package catalog

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/inlines/g-stx-api/catalog/domain"
)

// parseListQuery lê limit, offset, query, cat, sort e ignore_digital.
// cat é obrigatório; os demais têm default (ver domain.ListQuery.Normalize).
func parseListQuery(r *http.Request) (domain.ListQuery, error) {
	v := r.URL.Query()

	var q domain.ListQuery

	cat := v.Get("cat")
	if cat == "" {
		return q, errors.New("cat is required")
	}
	c, err := strconv.ParseInt(cat, 10, 64)
	if err != nil {
		return q, errors.New("cat must be an integer")
	}
	q.Category = c

	if s := v.Get("limit"); s != "" {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return q, errors.New("limit must be an integer")
		}
		q.Limit = n
	}
	if s := v.Get("offset"); s != "" {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return q, errors.New("offset must be an integer")
		}
		q.Offset = n
	}
	if s := v.Get("ignore_digital"); s != "" {
		b, err := strconv.ParseBool(s)
		if err != nil {
			return q, errors.New("ignore_digital must be a boolean")
		}
		q.IgnoreDigital = b
	}
	q.Text = v.Get("query")
	q.Sort = domain.SortOrder(v.Get("sort"))

	return q.Normalize(), nil
}
