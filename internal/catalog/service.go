package catalog

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
)

var defaultProductImage = []string{
	"https://images.unsplash.com/photo-1523381210434-271e8be1f52b?auto=format&fit=crop&w=800&q=80",
}

// ProductUpdate carries a partial product mutation. Nil fields are left
// unchanged.
type ProductUpdate struct {
	Nombre           *string
	DescripcionCorta *string
	DescripcionLarga *string
	Precio           *int64
	PrecioOriginal   *int64
	CategoriaID      *uuid.UUID
	Stock            *int
	StockMinimo      *int
	Imagenes         []string
	Colores          []string
	Tallas           []string
	Tags             []string
	Destacado        *bool
	Activo           *bool
}

type CategoryUpdate struct {
	Nombre      *string
	Descripcion *string
	Imagen      *string
	Orden       *int
	Activo      *bool
}

type Service interface {
	CreateProduct(ctx context.Context, p *Product) (*Product, error)
	GetProduct(ctx context.Context, idOrSlug string) (*Product, error)
	ListProducts(ctx context.Context, filter ProductFilter) ([]Product, int, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, update ProductUpdate) (*Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error

	CreateCategory(ctx context.Context, c *Category) (*Category, error)
	GetCategory(ctx context.Context, id uuid.UUID) (*Category, error)
	ListCategories(ctx context.Context, onlyActive bool) ([]Category, error)
	UpdateCategory(ctx context.Context, id uuid.UUID, update CategoryUpdate) (*Category, error)
	DeleteCategory(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) CreateProduct(ctx context.Context, p *Product) (*Product, error) {
	if _, err := s.repo.GetCategoryByID(ctx, p.CategoriaID); err != nil {
		if errors.Is(err, ErrCategoryNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("service: failed to check category: %w", err)
	}

	// Millis suffix keeps product slugs unique without an existence probe.
	p.Slug = Slugify(p.Nombre) + "-" + strconv.FormatInt(time.Now().UnixMilli(), 36)
	if p.StockMinimo <= 0 {
		p.StockMinimo = 10
	}
	if len(p.Imagenes) == 0 {
		p.Imagenes = defaultProductImage
	}
	ensureSlices(p)

	if err := s.repo.CreateProduct(ctx, p); err != nil {
		if errors.Is(err, ErrSKUExists) || errors.Is(err, ErrSlugExists) {
			return nil, err
		}
		log.Error().Err(err).Str("sku", p.SKU).Msg("service: failed to create product")
		return nil, fmt.Errorf("service: failed to create product: %w", err)
	}
	return s.repo.GetProductByID(ctx, p.ID)
}

func (s *service) GetProduct(ctx context.Context, idOrSlug string) (*Product, error) {
	if id, err := uuid.FromString(idOrSlug); err == nil {
		return s.repo.GetProductByID(ctx, id)
	}
	return s.repo.GetProductBySlug(ctx, idOrSlug)
}

func (s *service) ListProducts(ctx context.Context, filter ProductFilter) ([]Product, int, error) {
	return s.repo.ListProducts(ctx, filter)
}

func (s *service) UpdateProduct(ctx context.Context, id uuid.UUID, update ProductUpdate) (*Product, error) {
	p, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if update.Nombre != nil {
		p.Nombre = *update.Nombre
	}
	if update.DescripcionCorta != nil {
		p.DescripcionCorta = *update.DescripcionCorta
	}
	if update.DescripcionLarga != nil {
		p.DescripcionLarga = *update.DescripcionLarga
	}
	if update.Precio != nil {
		p.Precio = *update.Precio
	}
	if update.PrecioOriginal != nil {
		p.PrecioOriginal = update.PrecioOriginal
	}
	if update.CategoriaID != nil {
		if _, err := s.repo.GetCategoryByID(ctx, *update.CategoriaID); err != nil {
			return nil, err
		}
		p.CategoriaID = *update.CategoriaID
	}
	if update.Stock != nil {
		p.Stock = *update.Stock
	}
	if update.StockMinimo != nil {
		p.StockMinimo = *update.StockMinimo
	}
	if update.Imagenes != nil {
		p.Imagenes = update.Imagenes
	}
	if update.Colores != nil {
		p.Colores = update.Colores
	}
	if update.Tallas != nil {
		p.Tallas = update.Tallas
	}
	if update.Tags != nil {
		p.Tags = update.Tags
	}
	if update.Destacado != nil {
		p.Destacado = *update.Destacado
	}
	if update.Activo != nil {
		p.Activo = *update.Activo
	}
	ensureSlices(p)

	if err := s.repo.UpdateProduct(ctx, p); err != nil {
		return nil, err
	}
	return s.repo.GetProductByID(ctx, id)
}

func (s *service) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	n, err := s.repo.CountProductOrderItems(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return ErrProductHasOrders
	}
	return s.repo.DeleteProduct(ctx, id)
}

func (s *service) CreateCategory(ctx context.Context, c *Category) (*Category, error) {
	slug, err := s.uniqueCategorySlug(ctx, Slugify(c.Nombre), uuid.Nil)
	if err != nil {
		return nil, err
	}
	c.Slug = slug

	if err := s.repo.CreateCategory(ctx, c); err != nil {
		return nil, err
	}
	return s.repo.GetCategoryByID(ctx, c.ID)
}

func (s *service) GetCategory(ctx context.Context, id uuid.UUID) (*Category, error) {
	return s.repo.GetCategoryByID(ctx, id)
}

func (s *service) ListCategories(ctx context.Context, onlyActive bool) ([]Category, error) {
	return s.repo.ListCategories(ctx, onlyActive)
}

func (s *service) UpdateCategory(ctx context.Context, id uuid.UUID, update CategoryUpdate) (*Category, error) {
	c, err := s.repo.GetCategoryByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if update.Nombre != nil && *update.Nombre != c.Nombre {
		c.Nombre = *update.Nombre
		slug, err := s.uniqueCategorySlug(ctx, Slugify(c.Nombre), id)
		if err != nil {
			return nil, err
		}
		c.Slug = slug
	}
	if update.Descripcion != nil {
		c.Descripcion = *update.Descripcion
	}
	if update.Imagen != nil {
		c.Imagen = *update.Imagen
	}
	if update.Orden != nil {
		c.Orden = *update.Orden
	}
	if update.Activo != nil {
		c.Activo = *update.Activo
	}

	if err := s.repo.UpdateCategory(ctx, c); err != nil {
		return nil, err
	}
	return s.repo.GetCategoryByID(ctx, id)
}

func (s *service) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	n, err := s.repo.CountCategoryProducts(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return ErrCategoryHasProducts
	}
	return s.repo.DeleteCategory(ctx, id)
}

func (s *service) uniqueCategorySlug(ctx context.Context, base string, exclude uuid.UUID) (string, error) {
	slug := base
	for counter := 1; ; counter++ {
		exists, err := s.repo.CategorySlugExists(ctx, slug, exclude)
		if err != nil {
			return "", err
		}
		if !exists {
			return slug, nil
		}
		slug = fmt.Sprintf("%s-%d", base, counter)
	}
}

func ensureSlices(p *Product) {
	if p.Imagenes == nil {
		p.Imagenes = []string{}
	}
	if p.Colores == nil {
		p.Colores = []string{}
	}
	if p.Tallas == nil {
		p.Tallas = []string{}
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
}
