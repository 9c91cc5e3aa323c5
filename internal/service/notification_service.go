package service

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/filtrotek/storefront/internal/models"
	"github.com/filtrotek/storefront/pkg/mailer"
)

// MailSender delivers a rendered message.
type MailSender interface {
	Send(ctx context.Context, msg *mailer.Message) (*mailer.SendResult, error)
}

var orderConfirmationTmpl = template.Must(template.New("confirmation").Funcs(mailFuncs).Parse(`<!DOCTYPE html>
<html lang="es">
<body style="font-family:Arial,sans-serif;color:#1f2937">
  <h2>¡Gracias por tu compra, {{.Order.CustomerName}}!</h2>
  <p>Recibimos tu pedido <strong>{{.Order.OrderNumber}}</strong>. Te avisaremos cuando sea enviado.</p>
  <table cellpadding="6" style="border-collapse:collapse;width:100%">
    <tr style="background:#f3f4f6"><th align="left">Producto</th><th>Cant.</th><th align="right">Importe</th></tr>
    {{range .Order.Items}}
    <tr><td>{{.ProductName}}</td><td align="center">{{.Quantity}}</td><td align="right">{{money $.Order.Currency .Subtotal}}</td></tr>
    {{end}}
  </table>
  <p>Subtotal: {{money .Order.Currency .Order.Subtotal}}<br>
  {{if .Order.DiscountAmount.IsPositive}}Descuento: -{{money .Order.Currency .Order.DiscountAmount}}<br>{{end}}
  Envío: {{money .Order.Currency .Order.ShippingCost}}<br>
  IVA: {{money .Order.Currency .Order.Tax}}<br>
  <strong>Total: {{money .Order.Currency .Order.Total}}</strong></p>
  <p>Enviaremos a: {{.Order.Street}}, {{.Order.City}}, {{.Order.State}} {{.Order.PostalCode}}</p>
</body>
</html>`))

var adminNotificationTmpl = template.Must(template.New("admin").Funcs(mailFuncs).Parse(`<!DOCTYPE html>
<html lang="es">
<body style="font-family:Arial,sans-serif">
  <h3>Nuevo pedido {{.Order.OrderNumber}}</h3>
  <p>{{.Order.CustomerName}} &lt;{{.Order.CustomerEmail}}&gt; {{.Order.CustomerPhone}}</p>
  <ul>
    {{range .Order.Items}}<li>{{.Quantity}} × {{.ProductName}} ({{.ItemCode}})</li>{{end}}
  </ul>
  <p>Total: {{money .Order.Currency .Order.Total}}{{if .Order.DiscountCode}} (código {{deref .Order.DiscountCode}}){{end}}</p>
</body>
</html>`))

var mailFuncs = template.FuncMap{
	"money": formatMoney,
	"deref": func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	},
}

var mxPrinter = message.NewPrinter(language.MustParse("es-MX"))

// formatMoney renders an amount with thousands separators, e.g. "$1,194.00 MXN".
func formatMoney(currency string, amount decimal.Decimal) string {
	f, _ := amount.Round(2).Float64()
	return mxPrinter.Sprintf("$%.2f %s", f, currency)
}

// OrderNotifiers fans a placed order out to several notifiers.
type OrderNotifiers []orderNotifier

// OrderPlaced calls every notifier in order.
func (n OrderNotifiers) OrderPlaced(ctx context.Context, o *models.Order) {
	for _, notifier := range n {
		notifier.OrderPlaced(ctx, o)
	}
}

// NotificationService sends order e-mails. Delivery is best-effort.
type NotificationService struct {
	mail       MailSender
	from       string
	adminEmail string
}

// NewNotificationService creates a NotificationService.
func NewNotificationService(mail MailSender, from, adminEmail string) *NotificationService {
	return &NotificationService{mail: mail, from: from, adminEmail: adminEmail}
}

// OrderPlaced e-mails the customer and the shop. Errors are logged only.
func (s *NotificationService) OrderPlaced(ctx context.Context, o *models.Order) {
	if err := s.send(ctx, o.CustomerEmail, fmt.Sprintf("Confirmación de pedido %s", o.OrderNumber), orderConfirmationTmpl, o); err != nil {
		log.Warn().Err(err).Str("order_number", o.OrderNumber).Msg("Order confirmation e-mail not sent")
	}
	if s.adminEmail == "" {
		return
	}
	if err := s.send(ctx, s.adminEmail, fmt.Sprintf("Nuevo pedido %s", o.OrderNumber), adminNotificationTmpl, o); err != nil {
		log.Warn().Err(err).Str("order_number", o.OrderNumber).Msg("Admin notification e-mail not sent")
	}
}

func (s *NotificationService) send(ctx context.Context, to, subject string, tmpl *template.Template, o *models.Order) error {
	html, err := render(tmpl, o)
	if err != nil {
		return err
	}
	res, err := s.mail.Send(ctx, &mailer.Message{
		From:    s.from,
		To:      []string{to},
		Subject: subject,
		HTML:    html,
	})
	if err != nil {
		return err
	}
	log.Info().Str("message_id", res.ID).Str("order_number", o.OrderNumber).Str("subject", subject).Msg("E-mail sent")
	return nil
}

func render(tmpl *template.Template, o *models.Order) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, struct{ Order *models.Order }{o}); err != nil {
		return "", fmt.Errorf("render %s: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}
