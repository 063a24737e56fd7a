// Package mail sends transactional customer emails over SMTP.
package mail

import (
	"context"
	"fmt"
	"strings"

	gomail "github.com/wneessen/go-mail"

	"github.com/modastyle/backend/internal/config"
	"github.com/modastyle/backend/internal/order"
)

type Mailer struct {
	client *gomail.Client
	from   string
}

func New(cfg config.SMTPConfig) (*Mailer, error) {
	client, err := gomail.NewClient(cfg.Host,
		gomail.WithPort(cfg.Port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(cfg.User),
		gomail.WithPassword(cfg.Password),
		gomail.WithTLSPolicy(gomail.TLSOpportunistic),
	)
	if err != nil {
		return nil, fmt.Errorf("mail: failed to create SMTP client: %w", err)
	}
	return &Mailer{client: client, from: cfg.From}, nil
}

func (m *Mailer) SendOrderConfirmation(ctx context.Context, o *order.Order) error {
	subject := fmt.Sprintf("Confirmación de pedido %s", o.NumeroPedido)
	body := confirmationBody(o)
	return m.send(ctx, o.ClienteEmail, subject, body)
}

func (m *Mailer) SendShippingNotification(ctx context.Context, o *order.Order) error {
	subject := fmt.Sprintf("Tu pedido %s está en camino", o.NumeroPedido)
	body := shippingBody(o)
	return m.send(ctx, o.ClienteEmail, subject, body)
}

func (m *Mailer) send(ctx context.Context, to, subject, htmlBody string) error {
	msg := gomail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return fmt.Errorf("mail: invalid sender address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("mail: invalid recipient address: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, htmlBody)

	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("mail: failed to send message: %w", err)
	}
	return nil
}

func confirmationBody(o *order.Order) string {
	var rows strings.Builder
	for _, item := range o.Items {
		detail := item.Nombre
		if item.Talla != "" || item.Color != "" {
			detail = fmt.Sprintf("%s (%s %s)", item.Nombre, item.Talla, item.Color)
		}
		fmt.Fprintf(&rows,
			`<tr><td>%s</td><td>%d</td><td>$%d</td><td>$%d</td></tr>`,
			detail, item.Cantidad, item.Precio, item.Subtotal)
	}

	envio := fmt.Sprintf("$%d", o.Envio)
	if o.Envio == 0 {
		envio = "Gratis"
	}

	return fmt.Sprintf(`<h1>¡Gracias por tu compra, %s!</h1>
<p>Hemos recibido el pago de tu pedido <strong>%s</strong>.</p>
<table border="1" cellpadding="6" cellspacing="0">
<tr><th>Producto</th><th>Cantidad</th><th>Precio</th><th>Subtotal</th></tr>
%s
</table>
<p>Subtotal: $%d<br>Envío: %s<br><strong>Total: $%d</strong></p>
<p>Te avisaremos cuando tu pedido sea despachado.</p>`,
		o.ClienteNombre, o.NumeroPedido, rows.String(), o.Subtotal, envio, o.Total)
}

func shippingBody(o *order.Order) string {
	tracking := ""
	if o.TrackingNumber != "" {
		tracking = fmt.Sprintf("<p>Número de seguimiento: <strong>%s</strong></p>", o.TrackingNumber)
	}
	return fmt.Sprintf(`<h1>Tu pedido va en camino</h1>
<p>Hola %s, tu pedido <strong>%s</strong> ya fue despachado a:</p>
<p>%s, %s, %s</p>
%s`,
		o.ClienteNombre, o.NumeroPedido,
		o.DireccionEnvio.Line1, o.DireccionEnvio.City, o.DireccionEnvio.Country,
		tracking)
}
