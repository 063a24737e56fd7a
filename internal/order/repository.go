package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

var ErrOrderNotFound = errors.New("order not found")

type ListFilter struct {
	Estado      Status
	FechaInicio *time.Time
	FechaFin    *time.Time
	Search      string
	Page        int
	Limit       int
}

// ListStats aggregates the orders matched by a ListFilter.
type ListStats struct {
	TotalVentas    int64   `json:"totalVentas"`
	PromedioPedido float64 `json:"promedioPedido"`
	TotalPedidos   int     `json:"totalPedidos"`
}

// UpdateParams carries a partial admin mutation. Nil fields are left unchanged.
type UpdateParams struct {
	EstadoPedido   *Status
	EstadoPago     *PaymentStatus
	TrackingNumber *string
	Notas          *string
	FechaEnvio     *time.Time
}

type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)
	GetByPaymentID(ctx context.Context, paymentID string) (*Order, error)
	List(ctx context.Context, filter ListFilter) ([]Order, int, ListStats, error)
	Update(ctx context.Context, id uuid.UUID, params UpdateParams) error
	SetSessionID(ctx context.Context, id uuid.UUID, sessionID string) error
	SetPaymentStatus(ctx context.Context, id uuid.UUID, status PaymentStatus) error

	// MarkPaid flips estado_pago PENDIENTE -> PAGADO and decrements stock for
	// every order item, all in one transaction. It reports whether the flip
	// applied: false means the order was already processed, so the at-least-once
	// webhook delivery must skip its side effects.
	MarkPaid(ctx context.Context, id uuid.UUID, paymentID string) (bool, error)
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

const orderColumns = `id, numero_pedido, usuario_id, cliente_email, cliente_nombre,
	COALESCE(cliente_telefono, ''), direccion_envio, subtotal, envio, total,
	estado_pedido, estado_pago, metodo_pago, COALESCE(stripe_session_id, ''),
	COALESCE(stripe_payment_id, ''), COALESCE(tracking_number, ''), COALESCE(notas, ''),
	fecha_envio, created_at, updated_at`

func scanOrder(row pgx.Row, o *Order) error {
	return row.Scan(
		&o.ID, &o.NumeroPedido, &o.UsuarioID, &o.ClienteEmail, &o.ClienteNombre,
		&o.ClienteTelefono, &o.DireccionEnvio, &o.Subtotal, &o.Envio, &o.Total,
		&o.EstadoPedido, &o.EstadoPago, &o.MetodoPago, &o.StripeSessionID,
		&o.StripePaymentID, &o.TrackingNumber, &o.Notas,
		&o.FechaEnvio, &o.CreatedAt, &o.UpdatedAt,
	)
}

func (r *postgresRepository) Create(ctx context.Context, o *Order) (err error) {
	if o.ID == uuid.Nil {
		genID, genErr := uuid.NewV4()
		if genErr != nil {
			return fmt.Errorf("repository: failed to generate order ID: %w", genErr)
		}
		o.ID = genID
	}
	now := time.Now().UTC()
	o.CreatedAt = now
	o.UpdatedAt = now

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("repository: failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				log.Error().Err(rbErr).Stringer("order_id", o.ID).Msg("Failed to rollback order creation")
			}
			return
		}
		if commitErr := tx.Commit(ctx); commitErr != nil {
			err = fmt.Errorf("repository: failed to commit transaction: %w", commitErr)
		}
	}()

	query := `
		INSERT INTO pedidos (id, numero_pedido, usuario_id, cliente_email, cliente_nombre,
			cliente_telefono, direccion_envio, subtotal, envio, total, estado_pedido,
			estado_pago, metodo_pago, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err = tx.Exec(ctx, query,
		o.ID, o.NumeroPedido, o.UsuarioID, o.ClienteEmail, o.ClienteNombre,
		emptyToNil(o.ClienteTelefono), o.DireccionEnvio, o.Subtotal, o.Envio, o.Total,
		string(o.EstadoPedido), string(o.EstadoPago), o.MetodoPago, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("repository: failed to insert order: %w", err)
	}

	for i := range o.Items {
		item := &o.Items[i]
		if item.ID == uuid.Nil {
			genID, genErr := uuid.NewV4()
			if genErr != nil {
				return fmt.Errorf("repository: failed to generate order item ID: %w", genErr)
			}
			item.ID = genID
		}
		item.PedidoID = o.ID

		_, err = tx.Exec(ctx, `
			INSERT INTO pedido_items (id, pedido_id, producto_id, variante_id, nombre,
				precio, cantidad, subtotal, talla, color)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`, item.ID, item.PedidoID, item.ProductoID, item.VarianteID, item.Nombre,
			item.Precio, item.Cantidad, item.Subtotal,
			emptyToNil(item.Talla), emptyToNil(item.Color))
		if err != nil {
			return fmt.Errorf("repository: failed to insert order item for order %s: %w", o.ID, err)
		}
	}
	return nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	return r.getOrder(ctx, "id = $1", id)
}

func (r *postgresRepository) GetByPaymentID(ctx context.Context, paymentID string) (*Order, error) {
	return r.getOrder(ctx, "stripe_payment_id = $1", paymentID)
}

func (r *postgresRepository) getOrder(ctx context.Context, cond string, arg any) (*Order, error) {
	query := fmt.Sprintf("SELECT %s FROM pedidos WHERE %s", orderColumns, cond)

	var o Order
	if err := scanOrder(r.db.QueryRow(ctx, query, arg), &o); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("repository: failed to select order: %w", err)
	}

	items, err := r.orderItems(ctx, r.db, o.ID)
	if err != nil {
		return nil, err
	}
	o.Items = items
	return &o, nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (r *postgresRepository) orderItems(ctx context.Context, q querier, orderID uuid.UUID) ([]Item, error) {
	rows, err := q.Query(ctx, `
		SELECT id, pedido_id, producto_id, variante_id, nombre, precio, cantidad,
			subtotal, COALESCE(talla, ''), COALESCE(color, '')
		FROM pedido_items
		WHERE pedido_id = $1
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query order items for order %s: %w", orderID, err)
	}
	defer rows.Close()

	items := make([]Item, 0)
	for rows.Next() {
		var item Item
		err := rows.Scan(&item.ID, &item.PedidoID, &item.ProductoID, &item.VarianteID,
			&item.Nombre, &item.Precio, &item.Cantidad, &item.Subtotal, &item.Talla, &item.Color)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan order item for order %s: %w", orderID, err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating order items for order %s: %w", orderID, err)
	}
	return items, nil
}

func (f ListFilter) whereClause() (string, []any) {
	var conds []string
	var args []any

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.Estado != "" {
		conds = append(conds, "estado_pedido = "+arg(string(f.Estado)))
	}
	if f.FechaInicio != nil {
		conds = append(conds, "created_at >= "+arg(*f.FechaInicio))
	}
	if f.FechaFin != nil {
		conds = append(conds, "created_at <= "+arg(*f.FechaFin))
	}
	if f.Search != "" {
		pattern := "%" + f.Search + "%"
		n := arg(pattern)
		conds = append(conds, fmt.Sprintf(
			"(numero_pedido ILIKE %s OR cliente_nombre ILIKE %s OR cliente_email ILIKE %s)", n, n, n))
	}

	if len(conds) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

func (r *postgresRepository) List(ctx context.Context, filter ListFilter) ([]Order, int, ListStats, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 20
	}
	where, args := filter.whereClause()

	var total int
	var stats ListStats
	statsQuery := fmt.Sprintf(`
		SELECT COUNT(*), COALESCE(SUM(total), 0), COALESCE(AVG(total), 0)
		FROM pedidos %s
	`, where)
	if err := r.db.QueryRow(ctx, statsQuery, args...).Scan(&total, &stats.TotalVentas, &stats.PromedioPedido); err != nil {
		return nil, 0, stats, fmt.Errorf("repository: failed to aggregate orders: %w", err)
	}
	stats.TotalPedidos = total

	query := fmt.Sprintf(`
		SELECT %s FROM pedidos %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, orderColumns, where, len(args)+1, len(args)+2)
	args = append(args, filter.Limit, (filter.Page-1)*filter.Limit)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, stats, fmt.Errorf("repository: failed to query orders: %w", err)
	}
	defer rows.Close()

	ordersMap := make(map[uuid.UUID]*Order)
	var orderIDs []uuid.UUID
	for rows.Next() {
		var o Order
		if err := scanOrder(rows, &o); err != nil {
			return nil, 0, stats, fmt.Errorf("repository: failed to scan order: %w", err)
		}
		o.Items = make([]Item, 0)
		ordersMap[o.ID] = &o
		orderIDs = append(orderIDs, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, stats, fmt.Errorf("repository: error iterating orders: %w", err)
	}

	if len(orderIDs) > 0 {
		itemRows, err := r.db.Query(ctx, `
			SELECT id, pedido_id, producto_id, variante_id, nombre, precio, cantidad,
				subtotal, COALESCE(talla, ''), COALESCE(color, '')
			FROM pedido_items
			WHERE pedido_id = ANY($1)
		`, orderIDs)
		if err != nil {
			return nil, 0, stats, fmt.Errorf("repository: failed to query order items: %w", err)
		}
		defer itemRows.Close()

		for itemRows.Next() {
			var item Item
			err := itemRows.Scan(&item.ID, &item.PedidoID, &item.ProductoID, &item.VarianteID,
				&item.Nombre, &item.Precio, &item.Cantidad, &item.Subtotal, &item.Talla, &item.Color)
			if err != nil {
				return nil, 0, stats, fmt.Errorf("repository: failed to scan order item: %w", err)
			}
			if o, ok := ordersMap[item.PedidoID]; ok {
				o.Items = append(o.Items, item)
			}
		}
		if err := itemRows.Err(); err != nil {
			return nil, 0, stats, fmt.Errorf("repository: error iterating order items: %w", err)
		}
	}

	orders := make([]Order, 0, len(orderIDs))
	for _, id := range orderIDs {
		orders = append(orders, *ordersMap[id])
	}
	return orders, total, stats, nil
}

func (r *postgresRepository) Update(ctx context.Context, id uuid.UUID, params UpdateParams) error {
	var sets []string
	args := []any{id}

	set := func(column string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if params.EstadoPedido != nil {
		set("estado_pedido", string(*params.EstadoPedido))
	}
	if params.EstadoPago != nil {
		set("estado_pago", string(*params.EstadoPago))
	}
	if params.TrackingNumber != nil {
		set("tracking_number", *params.TrackingNumber)
	}
	if params.Notas != nil {
		set("notas", *params.Notas)
	}
	if params.FechaEnvio != nil {
		set("fecha_envio", *params.FechaEnvio)
	}
	if len(sets) == 0 {
		return nil
	}
	sets = append(sets, "updated_at = now()")

	query := fmt.Sprintf("UPDATE pedidos SET %s WHERE id = $1", strings.Join(sets, ", "))
	cmdTag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("repository: failed to update order %s: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (r *postgresRepository) SetSessionID(ctx context.Context, id uuid.UUID, sessionID string) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE pedidos SET stripe_session_id = $2, updated_at = now() WHERE id = $1`,
		id, sessionID)
	if err != nil {
		return fmt.Errorf("repository: failed to set session id for order %s: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (r *postgresRepository) SetPaymentStatus(ctx context.Context, id uuid.UUID, status PaymentStatus) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE pedidos SET estado_pago = $2, updated_at = now() WHERE id = $1`,
		id, string(status))
	if err != nil {
		return fmt.Errorf("repository: failed to set payment status for order %s: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (r *postgresRepository) MarkPaid(ctx context.Context, id uuid.UUID, paymentID string) (applied bool, err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("repository: failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				log.Error().Err(rbErr).Stringer("order_id", id).Msg("Failed to rollback MarkPaid transaction")
			}
			return
		}
		if commitErr := tx.Commit(ctx); commitErr != nil {
			applied = false
			err = fmt.Errorf("repository: failed to commit transaction: %w", commitErr)
		}
	}()

	// The guard on estado_pago makes this flip happen exactly once per order,
	// regardless of how many times the gateway redelivers the event.
	cmdTag, err := tx.Exec(ctx, `
		UPDATE pedidos
		SET estado_pago = 'PAGADO', stripe_payment_id = $2, updated_at = now()
		WHERE id = $1 AND estado_pago = 'PENDIENTE'
	`, id, emptyToNil(paymentID))
	if err != nil {
		return false, fmt.Errorf("repository: failed to mark order %s paid: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		var exists bool
		if err = tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM pedidos WHERE id = $1)`, id).Scan(&exists); err != nil {
			return false, fmt.Errorf("repository: failed to check order %s: %w", id, err)
		}
		if !exists {
			err = ErrOrderNotFound
			return false, err
		}
		return false, nil
	}

	items, err := r.orderItems(ctx, tx, id)
	if err != nil {
		return false, err
	}

	for _, item := range items {
		if item.VarianteID != nil {
			varTag, decErr := tx.Exec(ctx, `
				UPDATE variantes SET stock = stock - $2 WHERE id = $1 AND stock >= $2
			`, *item.VarianteID, item.Cantidad)
			if decErr != nil {
				err = fmt.Errorf("repository: failed to decrement variant stock for order %s: %w", id, decErr)
				return false, err
			}
			if varTag.RowsAffected() == 0 {
				log.Error().Stringer("order_id", id).Stringer("variante_id", *item.VarianteID).
					Int("cantidad", item.Cantidad).Msg("Variant stock would go negative, decrement skipped")
			}
		}

		prodTag, decErr := tx.Exec(ctx, `
			UPDATE productos SET stock = stock - $2 WHERE id = $1 AND stock >= $2
		`, item.ProductoID, item.Cantidad)
		if decErr != nil {
			err = fmt.Errorf("repository: failed to decrement product stock for order %s: %w", id, decErr)
			return false, err
		}
		if prodTag.RowsAffected() == 0 {
			log.Error().Stringer("order_id", id).Stringer("producto_id", item.ProductoID).
				Int("cantidad", item.Cantidad).Msg("Product stock would go negative, decrement skipped")
		}
	}

	return true, nil
}

func emptyToNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
