package domain

// Limites de paginação aplicados a todas as listagens.
const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// PageRequest descreve a página solicitada pelo cliente.
type PageRequest struct {
	Page int
	Size int
}

// Normalize aplica os padrões: página < 1 vira 1 e o tamanho fica em [1, max].
// Tamanho ausente (<= 0) usa DefaultPageSize.
func (p PageRequest) Normalize(max int) PageRequest {
	if max <= 0 || max > MaxPageSize {
		max = MaxPageSize
	}
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Size <= 0 {
		p.Size = DefaultPageSize
	}
	if p.Size > max {
		p.Size = max
	}
	return p
}

// PagedResult é o envelope de toda listagem paginada.
type PagedResult[T any] struct {
	Items      []T `json:"items"`
	TotalCount int `json:"total_count"`
	PageNumber int `json:"page_number"`
	PageSize   int `json:"page_size"`
	TotalPages int `json:"total_pages"`
}

// NewPagedResult monta o envelope calculando o total de páginas.
func NewPagedResult[T any](items []T, total int, page PageRequest) PagedResult[T] {
	if items == nil {
		items = []T{}
	}
	pages := 0
	if page.Size > 0 {
		pages = (total + page.Size - 1) / page.Size
	}
	return PagedResult[T]{
		Items:      items,
		TotalCount: total,
		PageNumber: page.Page,
		PageSize:   page.Size,
		TotalPages: pages,
	}
}
