package order

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
)

var (
	ErrInvalidStatus           = errors.New("invalid status value")
	ErrInvalidStatusTransition = errors.New("invalid order status transition")
)

// Notifier delivers customer-facing order notifications. Failures are
// best-effort and never roll back the triggering mutation.
type Notifier interface {
	SendOrderConfirmation(ctx context.Context, o *Order) error
	SendShippingNotification(ctx context.Context, o *Order) error
}

// Metrics records fulfillment milestones.
type Metrics interface {
	RecordDelivered(o *Order)
}

type Service interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)
	List(ctx context.Context, filter ListFilter) ([]Order, int, ListStats, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, params UpdateParams) (*Order, error)
}

type service struct {
	repo     Repository
	notifier Notifier
	metrics  Metrics
}

func NewService(repo Repository, notifier Notifier, metrics Metrics) Service {
	return &service{repo: repo, notifier: notifier, metrics: metrics}
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("service: failed to fetch order by id: %w", err)
	}
	return o, nil
}

func (s *service) List(ctx context.Context, filter ListFilter) ([]Order, int, ListStats, error) {
	if filter.Estado != "" && !ValidStatus(filter.Estado) {
		return nil, 0, ListStats{}, ErrInvalidStatus
	}
	return s.repo.List(ctx, filter)
}

func (s *service) UpdateStatus(ctx context.Context, id uuid.UUID, params UpdateParams) (*Order, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("service: failed to get order for status update: %w", err)
	}

	if params.EstadoPedido != nil {
		if !ValidStatus(*params.EstadoPedido) {
			return nil, ErrInvalidStatus
		}
		if *params.EstadoPedido == current.EstadoPedido {
			params.EstadoPedido = nil
		} else if !allowedTransitions[current.EstadoPedido][*params.EstadoPedido] {
			log.Warn().Stringer("order_id", id).
				Stringer("current_status", current.EstadoPedido).
				Stringer("new_status", *params.EstadoPedido).
				Msg("service: invalid status transition attempt")
			return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition,
				current.EstadoPedido, *params.EstadoPedido)
		}
	}

	if params.EstadoPago != nil {
		if !ValidPaymentStatus(*params.EstadoPago) {
			return nil, ErrInvalidStatus
		}
		if *params.EstadoPago == current.EstadoPago {
			params.EstadoPago = nil
		} else if !allowedPaymentTransitions[current.EstadoPago][*params.EstadoPago] {
			return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition,
				current.EstadoPago, *params.EstadoPago)
		}
	}

	if params.EstadoPedido != nil && *params.EstadoPedido == StatusEnviado && params.FechaEnvio == nil {
		now := time.Now().UTC()
		params.FechaEnvio = &now
	}

	if err := s.repo.Update(ctx, id, params); err != nil {
		return nil, fmt.Errorf("service: failed to update order: %w", err)
	}

	updated, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service: failed to reload order: %w", err)
	}

	if params.EstadoPedido != nil {
		switch *params.EstadoPedido {
		case StatusEnviado:
			if s.notifier != nil && updated.ClienteEmail != "" {
				if err := s.notifier.SendShippingNotification(ctx, updated); err != nil {
					log.Error().Err(err).Str("numero_pedido", updated.NumeroPedido).
						Msg("service: failed to send shipping notification")
				}
			}
		case StatusEntregado:
			if s.metrics != nil {
				s.metrics.RecordDelivered(updated)
			}
		}
	}

	log.Info().Stringer("order_id", id).
		Stringer("old_status", current.EstadoPedido).
		Stringer("new_status", updated.EstadoPedido).
		Msg("service: order updated")
	return updated, nil
}

// NewOrderNumber produces a human-readable unique order number.
func NewOrderNumber() string {
	suffix := make([]byte, 4)
	if _, err := rand.Read(suffix); err != nil {
		// crypto/rand only fails when the OS entropy source is broken
		suffix = []byte{0, 0, 0, 0}
	}
	return fmt.Sprintf("PED-%d-%s", time.Now().UnixMilli(), hex.EncodeToString(suffix))
}

// LogMetrics is the default Metrics sink.
type LogMetrics struct{}

func (LogMetrics) RecordDelivered(o *Order) {
	log.Info().Str("numero_pedido", o.NumeroPedido).Int64("total", o.Total).
		Msg("metrics: order delivered")
}
