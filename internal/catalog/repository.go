package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

var (
	ErrProductNotFound     = errors.New("product not found")
	ErrCategoryNotFound    = errors.New("category not found")
	ErrSKUExists           = errors.New("sku already in use")
	ErrSlugExists          = errors.New("slug already in use")
	ErrProductHasOrders    = errors.New("product has associated order items")
	ErrCategoryHasProducts = errors.New("category has associated products")
)

type Repository interface {
	CreateProduct(ctx context.Context, p *Product) error
	GetProductByID(ctx context.Context, id uuid.UUID) (*Product, error)
	GetProductBySlug(ctx context.Context, slug string) (*Product, error)
	ListProducts(ctx context.Context, filter ProductFilter) ([]Product, int, error)
	UpdateProduct(ctx context.Context, p *Product) error
	DeleteProduct(ctx context.Context, id uuid.UUID) error
	CountProductOrderItems(ctx context.Context, id uuid.UUID) (int, error)

	CreateCategory(ctx context.Context, c *Category) error
	GetCategoryByID(ctx context.Context, id uuid.UUID) (*Category, error)
	ListCategories(ctx context.Context, onlyActive bool) ([]Category, error)
	UpdateCategory(ctx context.Context, c *Category) error
	DeleteCategory(ctx context.Context, id uuid.UUID) error
	CountCategoryProducts(ctx context.Context, id uuid.UUID) (int, error)
	CategorySlugExists(ctx context.Context, slug string, exclude uuid.UUID) (bool, error)
	CountCategories(ctx context.Context) (int, error)
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

const productColumns = `p.id, p.nombre, p.slug, p.descripcion_corta, COALESCE(p.descripcion_larga, ''),
	p.precio, p.precio_original, p.categoria_id, p.sku, p.stock, p.stock_minimo,
	p.imagenes, p.colores, p.tallas, p.tags, p.destacado, p.activo, p.created_at`

func scanProduct(row pgx.Row, p *Product) error {
	return row.Scan(
		&p.ID, &p.Nombre, &p.Slug, &p.DescripcionCorta, &p.DescripcionLarga,
		&p.Precio, &p.PrecioOriginal, &p.CategoriaID, &p.SKU, &p.Stock, &p.StockMinimo,
		&p.Imagenes, &p.Colores, &p.Tallas, &p.Tags, &p.Destacado, &p.Activo, &p.CreatedAt,
	)
}

func (r *postgresRepository) CreateProduct(ctx context.Context, p *Product) (err error) {
	if p.ID == uuid.Nil {
		genID, genErr := uuid.NewV4()
		if genErr != nil {
			return fmt.Errorf("repository: failed to generate product ID: %w", genErr)
		}
		p.ID = genID
	}
	p.CreatedAt = time.Now().UTC()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("repository: failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				log.Error().Err(rbErr).Stringer("product_id", p.ID).Msg("Failed to rollback product creation")
			}
			return
		}
		if commitErr := tx.Commit(ctx); commitErr != nil {
			err = fmt.Errorf("repository: failed to commit transaction: %w", commitErr)
		}
	}()

	query := `
		INSERT INTO productos (id, nombre, slug, descripcion_corta, descripcion_larga, precio,
			precio_original, categoria_id, sku, stock, stock_minimo, imagenes, colores, tallas,
			tags, destacado, activo, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`
	_, err = tx.Exec(ctx, query,
		p.ID, p.Nombre, p.Slug, p.DescripcionCorta, nilIfEmpty(p.DescripcionLarga), p.Precio,
		p.PrecioOriginal, p.CategoriaID, p.SKU, p.Stock, p.StockMinimo, p.Imagenes, p.Colores,
		p.Tallas, p.Tags, p.Destacado, p.Activo, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("repository: failed to insert product: %w", mapUniqueViolation(err))
	}

	for i := range p.Variantes {
		v := &p.Variantes[i]
		if v.ID == uuid.Nil {
			genID, genErr := uuid.NewV4()
			if genErr != nil {
				return fmt.Errorf("repository: failed to generate variant ID: %w", genErr)
			}
			v.ID = genID
		}
		v.ProductoID = p.ID

		_, err = tx.Exec(ctx, `
			INSERT INTO variantes (id, producto_id, talla, color, stock, precio, sku)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, v.ID, v.ProductoID, v.Talla, v.Color, v.Stock, v.Precio, v.SKU)
		if err != nil {
			return fmt.Errorf("repository: failed to insert variant for product %s: %w", p.ID, mapUniqueViolation(err))
		}
	}
	return nil
}

func (r *postgresRepository) GetProductByID(ctx context.Context, id uuid.UUID) (*Product, error) {
	return r.getProduct(ctx, "p.id = $1", id)
}

func (r *postgresRepository) GetProductBySlug(ctx context.Context, slug string) (*Product, error) {
	return r.getProduct(ctx, "p.slug = $1", slug)
}

func (r *postgresRepository) getProduct(ctx context.Context, cond string, arg any) (*Product, error) {
	query := fmt.Sprintf(`
		SELECT %s, c.id, c.nombre, c.slug, c.activo
		FROM productos p
		JOIN categorias c ON c.id = p.categoria_id
		WHERE %s
	`, productColumns, cond)

	var p Product
	var cat Category
	row := r.db.QueryRow(ctx, query, arg)
	err := row.Scan(
		&p.ID, &p.Nombre, &p.Slug, &p.DescripcionCorta, &p.DescripcionLarga,
		&p.Precio, &p.PrecioOriginal, &p.CategoriaID, &p.SKU, &p.Stock, &p.StockMinimo,
		&p.Imagenes, &p.Colores, &p.Tallas, &p.Tags, &p.Destacado, &p.Activo, &p.CreatedAt,
		&cat.ID, &cat.Nombre, &cat.Slug, &cat.Activo,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("repository: failed to select product: %w", err)
	}
	p.Categoria = &cat

	variantes, err := r.productVariants(ctx, []uuid.UUID{p.ID})
	if err != nil {
		return nil, err
	}
	p.Variantes = variantes[p.ID]
	return &p, nil
}

func (r *postgresRepository) ListProducts(ctx context.Context, filter ProductFilter) ([]Product, int, error) {
	filter.normalize()
	where, args := filter.whereClause()

	countQuery := "SELECT COUNT(*) FROM productos p " + where
	var total int
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("repository: failed to count products: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s, c.id, c.nombre, c.slug, c.activo
		FROM productos p
		JOIN categorias c ON c.id = p.categoria_id
		%s
		ORDER BY p.created_at DESC
		LIMIT $%d OFFSET $%d
	`, productColumns, where, len(args)+1, len(args)+2)
	args = append(args, filter.Limit, (filter.Page-1)*filter.Limit)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("repository: failed to query products: %w", err)
	}
	defer rows.Close()

	products := make([]Product, 0)
	var ids []uuid.UUID
	for rows.Next() {
		var p Product
		var cat Category
		err := rows.Scan(
			&p.ID, &p.Nombre, &p.Slug, &p.DescripcionCorta, &p.DescripcionLarga,
			&p.Precio, &p.PrecioOriginal, &p.CategoriaID, &p.SKU, &p.Stock, &p.StockMinimo,
			&p.Imagenes, &p.Colores, &p.Tallas, &p.Tags, &p.Destacado, &p.Activo, &p.CreatedAt,
			&cat.ID, &cat.Nombre, &cat.Slug, &cat.Activo,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("repository: failed to scan product: %w", err)
		}
		p.Categoria = &cat
		products = append(products, p)
		ids = append(ids, p.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("repository: error iterating products: %w", err)
	}

	if len(ids) > 0 {
		variantes, err := r.productVariants(ctx, ids)
		if err != nil {
			return nil, 0, err
		}
		for i := range products {
			products[i].Variantes = variantes[products[i].ID]
		}
	}
	return products, total, nil
}

func (r *postgresRepository) productVariants(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID][]Variant, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, producto_id, talla, color, stock, precio, sku
		FROM variantes
		WHERE producto_id = ANY($1)
		ORDER BY talla, color
	`, productIDs)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query variants: %w", err)
	}
	defer rows.Close()

	result := make(map[uuid.UUID][]Variant)
	for rows.Next() {
		var v Variant
		if err := rows.Scan(&v.ID, &v.ProductoID, &v.Talla, &v.Color, &v.Stock, &v.Precio, &v.SKU); err != nil {
			return nil, fmt.Errorf("repository: failed to scan variant: %w", err)
		}
		result[v.ProductoID] = append(result[v.ProductoID], v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating variants: %w", err)
	}
	return result, nil
}

func (r *postgresRepository) UpdateProduct(ctx context.Context, p *Product) error {
	cmdTag, err := r.db.Exec(ctx, `
		UPDATE productos
		SET nombre = $2, descripcion_corta = $3, descripcion_larga = $4, precio = $5,
			precio_original = $6, categoria_id = $7, stock = $8, stock_minimo = $9,
			imagenes = $10, colores = $11, tallas = $12, tags = $13, destacado = $14, activo = $15
		WHERE id = $1
	`, p.ID, p.Nombre, p.DescripcionCorta, nilIfEmpty(p.DescripcionLarga), p.Precio,
		p.PrecioOriginal, p.CategoriaID, p.Stock, p.StockMinimo,
		p.Imagenes, p.Colores, p.Tallas, p.Tags, p.Destacado, p.Activo)
	if err != nil {
		return fmt.Errorf("repository: failed to update product %s: %w", p.ID, mapUniqueViolation(err))
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *postgresRepository) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM productos WHERE id = $1`, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return ErrProductHasOrders
		}
		return fmt.Errorf("repository: failed to delete product %s: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *postgresRepository) CountProductOrderItems(ctx context.Context, id uuid.UUID) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM pedido_items WHERE producto_id = $1`, id).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("repository: failed to count order items for product %s: %w", id, err)
	}
	return n, nil
}

func (r *postgresRepository) CreateCategory(ctx context.Context, c *Category) error {
	if c.ID == uuid.Nil {
		genID, err := uuid.NewV4()
		if err != nil {
			return fmt.Errorf("repository: failed to generate category ID: %w", err)
		}
		c.ID = genID
	}
	c.CreatedAt = time.Now().UTC()

	_, err := r.db.Exec(ctx, `
		INSERT INTO categorias (id, nombre, slug, descripcion, imagen, orden, activo, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, c.ID, c.Nombre, c.Slug, nilIfEmpty(c.Descripcion), nilIfEmpty(c.Imagen), c.Orden, c.Activo, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("repository: failed to insert category: %w", mapUniqueViolation(err))
	}
	return nil
}

func (r *postgresRepository) GetCategoryByID(ctx context.Context, id uuid.UUID) (*Category, error) {
	var c Category
	err := r.db.QueryRow(ctx, `
		SELECT c.id, c.nombre, c.slug, COALESCE(c.descripcion, ''), COALESCE(c.imagen, ''),
			c.orden, c.activo, c.created_at,
			(SELECT COUNT(*) FROM productos p WHERE p.categoria_id = c.id)
		FROM categorias c
		WHERE c.id = $1
	`, id).Scan(&c.ID, &c.Nombre, &c.Slug, &c.Descripcion, &c.Imagen,
		&c.Orden, &c.Activo, &c.CreatedAt, &c.ProductCount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("repository: failed to select category %s: %w", id, err)
	}
	return &c, nil
}

func (r *postgresRepository) ListCategories(ctx context.Context, onlyActive bool) ([]Category, error) {
	query := `
		SELECT c.id, c.nombre, c.slug, COALESCE(c.descripcion, ''), COALESCE(c.imagen, ''),
			c.orden, c.activo, c.created_at, COUNT(p.id)
		FROM categorias c
		LEFT JOIN productos p ON p.categoria_id = c.id
	`
	if onlyActive {
		query += " WHERE c.activo = TRUE"
	}
	query += `
		GROUP BY c.id
		ORDER BY c.orden ASC, c.nombre ASC
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query categories: %w", err)
	}
	defer rows.Close()

	categories := make([]Category, 0)
	for rows.Next() {
		var c Category
		err := rows.Scan(&c.ID, &c.Nombre, &c.Slug, &c.Descripcion, &c.Imagen,
			&c.Orden, &c.Activo, &c.CreatedAt, &c.ProductCount)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating categories: %w", err)
	}
	return categories, nil
}

func (r *postgresRepository) UpdateCategory(ctx context.Context, c *Category) error {
	cmdTag, err := r.db.Exec(ctx, `
		UPDATE categorias
		SET nombre = $2, slug = $3, descripcion = $4, imagen = $5, orden = $6, activo = $7
		WHERE id = $1
	`, c.ID, c.Nombre, c.Slug, nilIfEmpty(c.Descripcion), nilIfEmpty(c.Imagen), c.Orden, c.Activo)
	if err != nil {
		return fmt.Errorf("repository: failed to update category %s: %w", c.ID, mapUniqueViolation(err))
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrCategoryNotFound
	}
	return nil
}

func (r *postgresRepository) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM categorias WHERE id = $1`, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return ErrCategoryHasProducts
		}
		return fmt.Errorf("repository: failed to delete category %s: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrCategoryNotFound
	}
	return nil
}

func (r *postgresRepository) CountCategoryProducts(ctx context.Context, id uuid.UUID) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM productos WHERE categoria_id = $1`, id).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("repository: failed to count products for category %s: %w", id, err)
	}
	return n, nil
}

func (r *postgresRepository) CategorySlugExists(ctx context.Context, slug string, exclude uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM categorias WHERE slug = $1 AND id <> $2)`,
		slug, exclude).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("repository: failed to check category slug %q: %w", slug, err)
	}
	return exists, nil
}

func (r *postgresRepository) CountCategories(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM categorias`).Scan(&n); err != nil {
		return 0, fmt.Errorf("repository: failed to count categories: %w", err)
	}
	return n, nil
}

func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		if strings.Contains(pgErr.ConstraintName, "sku") {
			return ErrSKUExists
		}
		return ErrSlugExists
	}
	return err
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
