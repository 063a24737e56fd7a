package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

// Only delivered-and-paid orders count as realized sales.
const realizedSales = `estado_pedido = 'ENTREGADO' AND estado_pago = 'PAGADO'`

func (r *postgresRepository) TotalSales(ctx context.Context, since time.Time) (int64, error) {
	var total int64
	err := r.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(total), 0)
		FROM pedidos
		WHERE estado_pedido = 'ENTREGADO' AND created_at >= $1
	`, since).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("repository: failed to sum sales: %w", err)
	}
	return total, nil
}

func (r *postgresRepository) MonthlySales(ctx context.Context, months int) ([]MonthlySale, error) {
	rows, err := r.db.Query(ctx, fmt.Sprintf(`
		SELECT
			DATE_TRUNC('month', created_at) AS mes,
			COUNT(*) AS cantidad_pedidos,
			SUM(total) AS total_ventas
		FROM pedidos
		WHERE %s AND created_at >= now() - make_interval(months => $1)
		GROUP BY DATE_TRUNC('month', created_at)
		ORDER BY mes DESC
		LIMIT $1
	`, realizedSales), months)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query monthly sales: %w", err)
	}
	defer rows.Close()

	sales := make([]MonthlySale, 0)
	for rows.Next() {
		var mes time.Time
		var s MonthlySale
		if err := rows.Scan(&mes, &s.Cantidad, &s.Total); err != nil {
			return nil, fmt.Errorf("repository: failed to scan monthly sale: %w", err)
		}
		s.Mes = mes.Format("2006-01")
		sales = append(sales, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating monthly sales: %w", err)
	}
	return sales, nil
}

func (r *postgresRepository) TopProducts(ctx context.Context, limit int) ([]TopProduct, error) {
	rows, err := r.db.Query(ctx, `
		SELECT
			p.id,
			p.nombre,
			p.categoria_id,
			COUNT(pi.id) AS total_vendido,
			COALESCE(SUM(pi.cantidad), 0) AS unidades_vendidas,
			COALESCE(SUM(pi.subtotal), 0) AS ingresos
		FROM productos p
		JOIN pedido_items pi ON pi.producto_id = p.id
		JOIN pedidos ped ON ped.id = pi.pedido_id
		WHERE ped.estado_pedido = 'ENTREGADO' AND ped.estado_pago = 'PAGADO'
		GROUP BY p.id, p.nombre, p.categoria_id
		ORDER BY unidades_vendidas DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query top products: %w", err)
	}
	defer rows.Close()

	products := make([]TopProduct, 0)
	for rows.Next() {
		var p TopProduct
		if err := rows.Scan(&p.ID, &p.Nombre, &p.CategoriaID, &p.TotalVendido, &p.UnidadesVendidas, &p.Ingresos); err != nil {
			return nil, fmt.Errorf("repository: failed to scan top product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating top products: %w", err)
	}
	return products, nil
}

func (r *postgresRepository) TopCategories(ctx context.Context, limit int) ([]TopCategory, error) {
	rows, err := r.db.Query(ctx, `
		SELECT
			c.id,
			c.nombre,
			COUNT(DISTINCT ped.id) AS pedidos,
			COALESCE(SUM(pi.subtotal), 0) AS ingresos,
			COALESCE(SUM(pi.cantidad), 0) AS unidades
		FROM categorias c
		JOIN productos p ON p.categoria_id = c.id
		JOIN pedido_items pi ON pi.producto_id = p.id
		JOIN pedidos ped ON ped.id = pi.pedido_id
		WHERE ped.estado_pedido = 'ENTREGADO' AND ped.estado_pago = 'PAGADO'
		GROUP BY c.id, c.nombre
		ORDER BY ingresos DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query top categories: %w", err)
	}
	defer rows.Close()

	categories := make([]TopCategory, 0)
	for rows.Next() {
		var c TopCategory
		if err := rows.Scan(&c.ID, &c.Nombre, &c.Pedidos, &c.Ingresos, &c.Unidades); err != nil {
			return nil, fmt.Errorf("repository: failed to scan top category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating top categories: %w", err)
	}
	return categories, nil
}

func (r *postgresRepository) TopCustomers(ctx context.Context, limit int) ([]TopCustomer, error) {
	rows, err := r.db.Query(ctx, `
		SELECT
			COALESCE(u.id::text, ped.cliente_email) AS id,
			COALESCE(u.nombre, ped.cliente_nombre) AS nombre,
			ped.cliente_email AS email,
			COUNT(ped.id) AS total_pedidos,
			SUM(ped.total) AS total_gastado
		FROM pedidos ped
		LEFT JOIN usuarios u ON u.id = ped.usuario_id
		WHERE ped.estado_pedido = 'ENTREGADO' AND ped.estado_pago = 'PAGADO'
		GROUP BY u.id, u.nombre, ped.cliente_email, ped.cliente_nombre
		ORDER BY total_gastado DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query top customers: %w", err)
	}
	defer rows.Close()

	customers := make([]TopCustomer, 0)
	for rows.Next() {
		var c TopCustomer
		if err := rows.Scan(&c.ID, &c.Nombre, &c.Email, &c.TotalPedidos, &c.TotalGastado); err != nil {
			return nil, fmt.Errorf("repository: failed to scan top customer: %w", err)
		}
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating top customers: %w", err)
	}
	return customers, nil
}

func (r *postgresRepository) CountOrders(ctx context.Context, since time.Time) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM pedidos WHERE created_at >= $1`, since)
}

func (r *postgresRepository) CountPendingOrders(ctx context.Context) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM pedidos WHERE estado_pedido = 'PENDIENTE'`)
}

func (r *postgresRepository) CountActiveProducts(ctx context.Context) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM productos WHERE activo = TRUE`)
}

func (r *postgresRepository) CountLowStockProducts(ctx context.Context) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM productos WHERE activo = TRUE AND stock < 10`)
}

func (r *postgresRepository) count(ctx context.Context, query string, args ...any) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("repository: count query failed: %w", err)
	}
	return n, nil
}
