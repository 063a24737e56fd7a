// Package stats is the admin reporting component: aggregated sales figures
// computed straight from the orders tables.
package stats

import (
	"context"
	"time"

	"github.com/gofrs/uuid"
)

type MonthlySale struct {
	Mes      string `json:"mes"` // YYYY-MM
	Cantidad int    `json:"cantidad"`
	Total    int64  `json:"total"`
}

type TopProduct struct {
	ID               uuid.UUID `json:"id"`
	Nombre           string    `json:"nombre"`
	CategoriaID      uuid.UUID `json:"categoriaId"`
	TotalVendido     int       `json:"totalVendido"`
	UnidadesVendidas int       `json:"unidadesVendidas"`
	Ingresos         int64     `json:"ingresos"`
}

type TopCategory struct {
	ID       uuid.UUID `json:"id"`
	Nombre   string    `json:"nombre"`
	Pedidos  int       `json:"pedidos"`
	Ingresos int64     `json:"ingresos"`
	Unidades int       `json:"unidades"`
}

type TopCustomer struct {
	ID           string `json:"id"`
	Nombre       string `json:"nombre"`
	Email        string `json:"email"`
	TotalPedidos int    `json:"totalPedidos"`
	TotalGastado int64  `json:"totalGastado"`
}

type Periodo struct {
	Actual      string    `json:"actual"`
	FechaInicio time.Time `json:"fechaInicio"`
	FechaFin    time.Time `json:"fechaFin"`
}

type Dashboard struct {
	TotalVentas           int64         `json:"totalVentas"`
	VentasMensuales       []MonthlySale `json:"ventasMensuales"`
	ProductosMasVendidos  []TopProduct  `json:"productosMasVendidos"`
	TotalPedidos          int           `json:"totalPedidos"`
	PedidosPendientes     int           `json:"pedidosPendientes"`
	TotalProductos        int           `json:"totalProductos"`
	ProductosBajoStock    int           `json:"productosBajoStock"`
	CategoriasMasVendidas []TopCategory `json:"categoriasMasVendidas"`
	MejoresClientes       []TopCustomer `json:"mejoresClientes"`
	Periodo               Periodo       `json:"periodo"`
}

type Repository interface {
	TotalSales(ctx context.Context, since time.Time) (int64, error)
	MonthlySales(ctx context.Context, months int) ([]MonthlySale, error)
	TopProducts(ctx context.Context, limit int) ([]TopProduct, error)
	TopCategories(ctx context.Context, limit int) ([]TopCategory, error)
	TopCustomers(ctx context.Context, limit int) ([]TopCustomer, error)
	CountOrders(ctx context.Context, since time.Time) (int, error)
	CountPendingOrders(ctx context.Context) (int, error)
	CountActiveProducts(ctx context.Context) (int, error)
	CountLowStockProducts(ctx context.Context) (int, error)
}

type Service interface {
	Dashboard(ctx context.Context, periodo string) (*Dashboard, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

// startDate maps a reporting window name to its lower bound. Unknown values
// fall back to the monthly window.
func startDate(periodo string, now time.Time) time.Time {
	switch periodo {
	case "dia":
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	case "semana":
		return now.AddDate(0, 0, -7)
	case "año":
		return now.AddDate(-1, 0, 0)
	default:
		return now.AddDate(0, -1, 0)
	}
}

func (s *service) Dashboard(ctx context.Context, periodo string) (*Dashboard, error) {
	if periodo == "" {
		periodo = "mes"
	}
	now := time.Now().UTC()
	since := startDate(periodo, now)

	totalVentas, err := s.repo.TotalSales(ctx, since)
	if err != nil {
		return nil, err
	}
	ventasMensuales, err := s.repo.MonthlySales(ctx, 12)
	if err != nil {
		return nil, err
	}
	topProducts, err := s.repo.TopProducts(ctx, 10)
	if err != nil {
		return nil, err
	}
	topCategories, err := s.repo.TopCategories(ctx, 5)
	if err != nil {
		return nil, err
	}
	topCustomers, err := s.repo.TopCustomers(ctx, 10)
	if err != nil {
		return nil, err
	}
	totalPedidos, err := s.repo.CountOrders(ctx, since)
	if err != nil {
		return nil, err
	}
	pendientes, err := s.repo.CountPendingOrders(ctx)
	if err != nil {
		return nil, err
	}
	totalProductos, err := s.repo.CountActiveProducts(ctx)
	if err != nil {
		return nil, err
	}
	bajoStock, err := s.repo.CountLowStockProducts(ctx)
	if err != nil {
		return nil, err
	}

	return &Dashboard{
		TotalVentas:           totalVentas,
		VentasMensuales:       ventasMensuales,
		ProductosMasVendidos:  topProducts,
		TotalPedidos:          totalPedidos,
		PedidosPendientes:     pendientes,
		TotalProductos:        totalProductos,
		ProductosBajoStock:    bajoStock,
		CategoriasMasVendidas: topCategories,
		MejoresClientes:       topCustomers,
		Periodo: Periodo{
			Actual:      periodo,
			FechaInicio: since,
			FechaFin:    now,
		},
	}, nil
}
