package domain

// StableRecord é a parte cacheável do detalhe de um produto: propriedades,
// todos os releases (com o snapshot completo de lances) e screenshots.
//
// Nunca é devolvido ao cliente diretamente; sempre passa por Personalize.
type StableRecord struct {
	Product     ProductProperties `json:"product"`
	Releases    []Release         `json:"releases"`
	Screenshots []string          `json:"screenshots"`
}

// ProductDetail é a resposta final do endpoint de detalhe.
type ProductDetail struct {
	Product     ProductProperties `json:"product"`
	Releases    []Release         `json:"releases"`
	Screenshots []string          `json:"screenshots"`
}

// WithBids devolve uma cópia do registro com as listas de lance substituídas
// por bids. Releases sem entrada em bids ficam com lista vazia.
// O receptor não é alterado.
func (r StableRecord) WithBids(bids BidLogins) StableRecord {
	out := r
	out.Releases = make([]Release, len(r.Releases))
	for i, rel := range r.Releases {
		rel.BidUserLogins = append([]string{}, bids[rel.ReleaseID]...)
		out.Releases[i] = rel
	}
	return out
}

// Personalize monta a resposta para viewer, removendo o próprio login de cada
// lista de lances. viewer vazio (anônimo) recebe as listas sem filtro.
// O receptor não é alterado.
func (r StableRecord) Personalize(viewer string) ProductDetail {
	releases := make([]Release, len(r.Releases))
	for i, rel := range r.Releases {
		rel.BidUserLogins = ExcludeLogin(rel.BidUserLogins, viewer)
		releases[i] = rel
	}
	return ProductDetail{
		Product:     r.Product,
		Releases:    releases,
		Screenshots: append([]string{}, r.Screenshots...),
	}
}

// ExcludeLogin devolve uma nova lista sem as ocorrências de viewer.
func ExcludeLogin(logins []string, viewer string) []string {
	out := make([]string, 0, len(logins))
	for _, l := range logins {
		if viewer != "" && l == viewer {
			continue
		}
		out = append(out, l)
	}
	return out
}
