package catalog_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modastyle/backend/internal/catalog"
	"github.com/modastyle/backend/internal/config"
	"github.com/modastyle/backend/internal/db"
)

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	host := os.Getenv("TEST_DB_HOST")
	if host == "" {
		os.Exit(m.Run())
	}

	cfg := config.PostgresConfig{
		Host:            host,
		Port:            envOr("TEST_DB_PORT", "5432"),
		User:            envOr("TEST_DB_USER", "postgres"),
		Password:        envOr("TEST_DB_PASSWORD", "postgres"),
		DBName:          envOr("TEST_DB_NAME", "modastyle_test"),
		SSLMode:         "disable",
		MaxConns:        10,
		MinConns:        2,
		MaxConnLifetime: 30 * time.Minute,
	}

	ctx := context.Background()
	conn, err := db.New(ctx, cfg)
	if err != nil {
		panic(err)
	}
	if err := db.MigrateUp(cfg); err != nil {
		panic(err)
	}
	testPool = conn.Pool

	exitCode := m.Run()
	conn.Close()
	os.Exit(exitCode)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func setup(t *testing.T) catalog.Repository {
	if testPool == nil {
		t.Skip("TEST_DB_HOST not set, skipping repository integration test")
	}

	truncate := func() {
		_, err := testPool.Exec(context.Background(),
			"TRUNCATE TABLE pedido_items, pedidos, variantes, productos, categorias CASCADE")
		require.NoError(t, err)
	}
	truncate()
	t.Cleanup(truncate)

	return catalog.NewRepository(testPool)
}

func seedCategory(t *testing.T, repo catalog.Repository, nombre, slug string) *catalog.Category {
	t.Helper()
	c := &catalog.Category{Nombre: nombre, Slug: slug, Activo: true}
	require.NoError(t, repo.CreateCategory(context.Background(), c))
	return c
}

func TestCatalogRepository_ProductRoundtrip(t *testing.T) {
	repo := setup(t)
	ctx := context.Background()

	categoria := seedCategory(t, repo, "Poleras", "poleras")

	precioOriginal := int64(29990)
	p := &catalog.Product{
		Nombre:           "Polera Basica",
		Slug:             "polera-basica-x1",
		DescripcionCorta: "algodon peinado",
		Precio:           19990,
		PrecioOriginal:   &precioOriginal,
		CategoriaID:      categoria.ID,
		SKU:              "POL-001",
		Stock:            25,
		StockMinimo:      10,
		Imagenes:         []string{"https://img.example/polera.jpg"},
		Tallas:           []string{"S", "M", "L"},
		Colores:          []string{"negro", "blanco"},
		Tags:             []string{"basicos"},
		Activo:           true,
		Variantes: []catalog.Variant{
			{Talla: "M", Color: "negro", Stock: 5, Precio: 19990, SKU: "POL-001-M-N"},
		},
	}
	require.NoError(t, repo.CreateProduct(ctx, p))

	got, err := repo.GetProductBySlug(ctx, "polera-basica-x1")
	require.NoError(t, err)
	assert.Equal(t, "Polera Basica", got.Nombre)
	assert.Equal(t, []string{"S", "M", "L"}, got.Tallas)
	require.NotNil(t, got.PrecioOriginal)
	assert.Equal(t, int64(29990), *got.PrecioOriginal)
	require.NotNil(t, got.Categoria)
	assert.Equal(t, "poleras", got.Categoria.Slug)
	require.Len(t, got.Variantes, 1)
	assert.Equal(t, "POL-001-M-N", got.Variantes[0].SKU)
}

func TestCatalogRepository_DuplicateSKU(t *testing.T) {
	repo := setup(t)
	ctx := context.Background()

	categoria := seedCategory(t, repo, "Poleras", "poleras")

	base := catalog.Product{
		Nombre: "Polera A", Slug: "polera-a", DescripcionCorta: "x",
		Precio: 10000, CategoriaID: categoria.ID, SKU: "DUP-001", Activo: true,
	}
	first := base
	require.NoError(t, repo.CreateProduct(ctx, &first))

	second := base
	second.Slug = "polera-b"
	err := repo.CreateProduct(ctx, &second)
	assert.ErrorIs(t, err, catalog.ErrSKUExists)
}

func TestCatalogRepository_ListProducts_Filters(t *testing.T) {
	repo := setup(t)
	ctx := context.Background()

	poleras := seedCategory(t, repo, "Poleras", "poleras")
	vestidos := seedCategory(t, repo, "Vestidos", "vestidos")

	products := []catalog.Product{
		{Nombre: "Polera Negra", Slug: "polera-negra", DescripcionCorta: "x", Precio: 9990, CategoriaID: poleras.ID, SKU: "P-1", Stock: 10, Activo: true},
		{Nombre: "Polera Blanca", Slug: "polera-blanca", DescripcionCorta: "x", Precio: 19990, CategoriaID: poleras.ID, SKU: "P-2", Stock: 0, Activo: true},
		{Nombre: "Vestido Largo", Slug: "vestido-largo", DescripcionCorta: "x", Precio: 39990, CategoriaID: vestidos.ID, SKU: "V-1", Stock: 4, Activo: true},
	}
	for i := range products {
		require.NoError(t, repo.CreateProduct(ctx, &products[i]))
	}

	porCategoria, total, err := repo.ListProducts(ctx, catalog.ProductFilter{CategoriaSlug: "poleras"})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, porCategoria, 2)

	agotados, total, err := repo.ListProducts(ctx, catalog.ProductFilter{Stock: catalog.StockAgotado})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, agotados, 1)
	assert.Equal(t, "Polera Blanca", agotados[0].Nombre)

	min := int64(15000)
	caros, total, err := repo.ListProducts(ctx, catalog.ProductFilter{MinPrecio: &min})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, caros, 2)
}

func TestCatalogRepository_CountCategoryProducts(t *testing.T) {
	repo := setup(t)
	ctx := context.Background()

	categoria := seedCategory(t, repo, "Poleras", "poleras")
	p := catalog.Product{
		Nombre: "Polera", Slug: "polera", DescripcionCorta: "x",
		Precio: 10000, CategoriaID: categoria.ID, SKU: "P-1", Activo: true,
	}
	require.NoError(t, repo.CreateProduct(ctx, &p))

	n, err := repo.CountCategoryProducts(ctx, categoria.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
