package dto

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Page ventana de un listado, leída de ?limit=&offset=.
type Page struct {
	Limit  int `query:"limit" validate:"min=0,max=100"`
	Offset int `query:"offset" validate:"min=0"`
}

// Normalize devuelve la ventana efectiva: limit 0 toma el tamaño por defecto
// y nada pasa de maxPageSize.
func (p Page) Normalize() Page {
	switch {
	case p.Limit <= 0:
		p.Limit = defaultPageSize
	case p.Limit > maxPageSize:
		p.Limit = maxPageSize
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// Meta describe la página devuelta. HasMore es una estimación: la página vino llena.
func (p Page) Meta(returned int) PageMeta {
	n := p.Normalize()
	return PageMeta{Limit: n.Limit, Offset: n.Offset, Returned: returned, HasMore: returned == n.Limit}
}

// PageMeta acompaña a los listados paginados.
type PageMeta struct {
	Limit    int  `json:"limit"`
	Offset   int  `json:"offset"`
	Returned int  `json:"returned"`
	HasMore  bool `json:"has_more"`
}

// ErrorResponse cuerpo de error HTTP. Field solo viene en errores de validación.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}
