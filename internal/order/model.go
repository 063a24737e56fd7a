package order

import (
	"time"

	"github.com/gofrs/uuid"
)

type Status string

const (
	StatusPendiente  Status = "PENDIENTE"
	StatusProcesando Status = "PROCESANDO"
	StatusEnviado    Status = "ENVIADO"
	StatusEntregado  Status = "ENTREGADO"
	StatusCancelado  Status = "CANCELADO"
)

func (s Status) String() string {
	return string(s)
}

type PaymentStatus string

const (
	PaymentPendiente   PaymentStatus = "PENDIENTE"
	PaymentPagado      PaymentStatus = "PAGADO"
	PaymentFallido     PaymentStatus = "FALLIDO"
	PaymentReembolsado PaymentStatus = "REEMBOLSADO"
)

func (s PaymentStatus) String() string {
	return string(s)
}

// Fulfillment and payment transitions are independent axes. A PAGADO order can
// still be PENDIENTE shipment.
var allowedTransitions = map[Status]map[Status]bool{
	StatusPendiente: {
		StatusProcesando: true,
		StatusCancelado:  true,
	},
	StatusProcesando: {
		StatusEnviado:   true,
		StatusCancelado: true,
	},
	StatusEnviado: {
		StatusEntregado: true,
	},
	StatusEntregado: {},
	StatusCancelado: {},
}

var allowedPaymentTransitions = map[PaymentStatus]map[PaymentStatus]bool{
	PaymentPendiente: {
		PaymentPagado:  true,
		PaymentFallido: true,
	},
	PaymentPagado: {
		PaymentReembolsado: true,
	},
	PaymentFallido:     {},
	PaymentReembolsado: {},
}

func ValidStatus(s Status) bool {
	_, ok := allowedTransitions[s]
	return ok
}

func ValidPaymentStatus(s PaymentStatus) bool {
	_, ok := allowedPaymentTransitions[s]
	return ok
}

type ShippingAddress struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

type Item struct {
	ID         uuid.UUID  `json:"id"`
	PedidoID   uuid.UUID  `json:"pedidoId"`
	ProductoID uuid.UUID  `json:"productoId"`
	VarianteID *uuid.UUID `json:"varianteId,omitempty"`
	// Nombre and Precio are snapshotted at order creation and immune to later
	// product edits.
	Nombre   string `json:"nombre"`
	Precio   int64  `json:"precio"`
	Cantidad int    `json:"cantidad"`
	Subtotal int64  `json:"subtotal"`
	Talla    string `json:"talla,omitempty"`
	Color    string `json:"color,omitempty"`
}

type Order struct {
	ID              uuid.UUID       `json:"id"`
	NumeroPedido    string          `json:"numeroPedido"`
	UsuarioID       *uuid.UUID      `json:"usuarioId,omitempty"`
	ClienteEmail    string          `json:"clienteEmail"`
	ClienteNombre   string          `json:"clienteNombre"`
	ClienteTelefono string          `json:"clienteTelefono,omitempty"`
	DireccionEnvio  ShippingAddress `json:"direccionEnvio"`
	Subtotal        int64           `json:"subtotal"`
	Envio           int64           `json:"envio"`
	Total           int64           `json:"total"`
	EstadoPedido    Status          `json:"estadoPedido"`
	EstadoPago      PaymentStatus   `json:"estadoPago"`
	MetodoPago      string          `json:"metodoPago"`
	StripeSessionID string          `json:"stripeSessionId,omitempty"`
	StripePaymentID string          `json:"stripePaymentId,omitempty"`
	TrackingNumber  string          `json:"trackingNumber,omitempty"`
	Notas           string          `json:"notas,omitempty"`
	FechaEnvio      *time.Time      `json:"fechaEnvio,omitempty"`
	Items           []Item          `json:"items"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}
