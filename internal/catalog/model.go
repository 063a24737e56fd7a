package catalog

import (
	"math"
	"time"

	"github.com/gofrs/uuid"
)

type Category struct {
	ID          uuid.UUID `json:"id"`
	Nombre      string    `json:"nombre"`
	Slug        string    `json:"slug"`
	Descripcion string    `json:"descripcion,omitempty"`
	Imagen      string    `json:"imagen,omitempty"`
	Orden       int       `json:"orden"`
	Activo      bool      `json:"activo"`
	CreatedAt   time.Time `json:"createdAt"`

	// ProductCount is populated on list/detail reads, not stored.
	ProductCount int `json:"productCount"`
}

type Variant struct {
	ID         uuid.UUID `json:"id"`
	ProductoID uuid.UUID `json:"productoId"`
	Talla      string    `json:"talla"`
	Color      string    `json:"color"`
	Stock      int       `json:"stock"`
	Precio     int64     `json:"precio"`
	SKU        string    `json:"sku"`
}

type Product struct {
	ID               uuid.UUID `json:"id"`
	Nombre           string    `json:"nombre"`
	Slug             string    `json:"slug"`
	DescripcionCorta string    `json:"descripcionCorta"`
	DescripcionLarga string    `json:"descripcionLarga,omitempty"`
	Precio           int64     `json:"precio"`
	PrecioOriginal   *int64    `json:"precioOriginal,omitempty"`
	CategoriaID      uuid.UUID `json:"categoriaId"`
	SKU              string    `json:"sku"`
	Stock            int       `json:"stock"`
	StockMinimo      int       `json:"stockMinimo"`
	Imagenes         []string  `json:"imagenes"`
	Colores          []string  `json:"colores"`
	Tallas           []string  `json:"tallas"`
	Tags             []string  `json:"tags"`
	Destacado        bool      `json:"destacado"`
	Activo           bool      `json:"activo"`
	CreatedAt        time.Time `json:"createdAt"`

	Categoria *Category `json:"categoria,omitempty"`
	Variantes []Variant `json:"variantes,omitempty"`
}

// FindVariant returns the variant matching the given talla/color pair, or nil.
func (p *Product) FindVariant(talla, color string) *Variant {
	for i := range p.Variantes {
		v := &p.Variantes[i]
		if v.Talla == talla && v.Color == color {
			return v
		}
	}
	return nil
}

// Discount returns the discount percentage implied by an original price,
// rounded to the nearest integer. Zero when no discount applies.
func Discount(precioOriginal, precio int64) int {
	if precioOriginal <= 0 || precioOriginal <= precio {
		return 0
	}
	return int(math.Round(float64(precioOriginal-precio) / float64(precioOriginal) * 100))
}

const (
	StockAgotado    = "agotado"
	StockCritico    = "critico"
	StockBajo       = "bajo"
	StockDisponible = "disponible"
)

// StockStatus classifies an inventory level against its minimum-stock threshold.
func StockStatus(stock, stockMinimo int) string {
	if stockMinimo <= 0 {
		stockMinimo = 10
	}
	switch {
	case stock == 0:
		return StockAgotado
	case float64(stock) < float64(stockMinimo)*0.2:
		return StockCritico
	case float64(stock) < float64(stockMinimo)*0.5:
		return StockBajo
	default:
		return StockDisponible
	}
}
