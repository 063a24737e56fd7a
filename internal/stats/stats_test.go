package stats_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modastyle/backend/internal/stats"
)

type mockStatsRepository struct {
	totalSalesFunc func(ctx context.Context, since time.Time) (int64, error)
}

func (m *mockStatsRepository) TotalSales(ctx context.Context, since time.Time) (int64, error) {
	if m.totalSalesFunc != nil {
		return m.totalSalesFunc(ctx, since)
	}
	return 150000, nil
}

func (m *mockStatsRepository) MonthlySales(ctx context.Context, months int) ([]stats.MonthlySale, error) {
	return []stats.MonthlySale{{Mes: "2026-08", Cantidad: 4, Total: 150000}}, nil
}

func (m *mockStatsRepository) TopProducts(ctx context.Context, limit int) ([]stats.TopProduct, error) {
	return []stats.TopProduct{}, nil
}

func (m *mockStatsRepository) TopCategories(ctx context.Context, limit int) ([]stats.TopCategory, error) {
	return []stats.TopCategory{}, nil
}

func (m *mockStatsRepository) TopCustomers(ctx context.Context, limit int) ([]stats.TopCustomer, error) {
	return []stats.TopCustomer{}, nil
}

func (m *mockStatsRepository) CountOrders(ctx context.Context, since time.Time) (int, error) {
	return 4, nil
}

func (m *mockStatsRepository) CountPendingOrders(ctx context.Context) (int, error) {
	return 1, nil
}

func (m *mockStatsRepository) CountActiveProducts(ctx context.Context) (int, error) {
	return 12, nil
}

func (m *mockStatsRepository) CountLowStockProducts(ctx context.Context) (int, error) {
	return 2, nil
}

func TestStatsService_Dashboard(t *testing.T) {
	svc := stats.NewService(&mockStatsRepository{})

	dashboard, err := svc.Dashboard(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, int64(150000), dashboard.TotalVentas)
	assert.Equal(t, 4, dashboard.TotalPedidos)
	assert.Equal(t, 1, dashboard.PedidosPendientes)
	assert.Equal(t, 12, dashboard.TotalProductos)
	assert.Equal(t, 2, dashboard.ProductosBajoStock)
	assert.Equal(t, "mes", dashboard.Periodo.Actual, "empty periodo defaults to monthly")
}

func TestStatsService_Dashboard_PeriodWindows(t *testing.T) {
	tests := []struct {
		name    string
		periodo string
		// maxAge bounds how far back the window start may lie.
		maxAge time.Duration
	}{
		{name: "dia", periodo: "dia", maxAge: 24 * time.Hour},
		{name: "semana", periodo: "semana", maxAge: 8 * 24 * time.Hour},
		{name: "mes_default", periodo: "mes", maxAge: 32 * 24 * time.Hour},
		{name: "ano", periodo: "año", maxAge: 366 * 24 * time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotSince time.Time
			repo := &mockStatsRepository{
				totalSalesFunc: func(ctx context.Context, since time.Time) (int64, error) {
					gotSince = since
					return 0, nil
				},
			}
			svc := stats.NewService(repo)

			dashboard, err := svc.Dashboard(context.Background(), tt.periodo)
			require.NoError(t, err)

			assert.Equal(t, tt.periodo, dashboard.Periodo.Actual)
			age := time.Since(gotSince)
			assert.Greater(t, age, time.Duration(0))
			assert.LessOrEqual(t, age, tt.maxAge)
		})
	}
}
