package catalog

import (
	"fmt"
	"strings"

	"github.com/gofrs/uuid"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ProductFilter is the composable predicate for product listings. Zero values
// mean "not filtered".
type ProductFilter struct {
	Search        string
	CategoriaID   uuid.UUID
	CategoriaSlug string
	MinPrecio     *int64
	MaxPrecio     *int64
	Stock         string // agotado | bajo | disponible
	Activo        *bool
	Ofertas       bool
	Destacados    bool
	Tallas        []string
	Colores       []string
	Page          int
	Limit         int
}

func (f *ProductFilter) normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = DefaultPageSize
	}
	if f.Limit > MaxPageSize {
		f.Limit = MaxPageSize
	}
}

// whereClause renders the filter as a SQL predicate over alias p with
// positional arguments starting at $1.
func (f ProductFilter) whereClause() (string, []any) {
	var conds []string
	var args []any

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.Search != "" {
		pattern := "%" + f.Search + "%"
		n := arg(pattern)
		conds = append(conds, fmt.Sprintf(
			"(p.nombre ILIKE %s OR p.sku ILIKE %s OR p.descripcion_corta ILIKE %s)", n, n, n))
	}
	if f.CategoriaID != uuid.Nil {
		conds = append(conds, "p.categoria_id = "+arg(f.CategoriaID))
	} else if f.CategoriaSlug != "" {
		conds = append(conds, "p.categoria_id IN (SELECT id FROM categorias WHERE slug = "+arg(f.CategoriaSlug)+")")
	}
	if f.MinPrecio != nil {
		conds = append(conds, "p.precio >= "+arg(*f.MinPrecio))
	}
	if f.MaxPrecio != nil {
		conds = append(conds, "p.precio <= "+arg(*f.MaxPrecio))
	}
	switch f.Stock {
	case StockAgotado:
		conds = append(conds, "p.stock = 0")
	case StockBajo:
		conds = append(conds, "p.stock > 0 AND p.stock < 10")
	case StockDisponible:
		conds = append(conds, "p.stock > 0")
	}
	if f.Activo != nil {
		conds = append(conds, "p.activo = "+arg(*f.Activo))
	}
	if f.Ofertas {
		conds = append(conds, "p.precio_original IS NOT NULL")
	}
	if f.Destacados {
		conds = append(conds, "p.destacado = TRUE")
	}
	if len(f.Tallas) > 0 {
		conds = append(conds, "p.tallas && "+arg(f.Tallas))
	}
	if len(f.Colores) > 0 {
		conds = append(conds, "p.colores && "+arg(f.Colores))
	}

	if len(conds) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}
