package services

import (
	"bytes"
	"embed"
	"html/template"
	"strconv"
	"strings"

	"github.com/filipfilip1/instytut-saunowy/services/payment-service/models"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.New("").Funcs(template.FuncMap{
	"money":     formatMoney,
	"upper":     strings.ToUpper,
	"lineTotal": func(price float64, qty int) float64 { return price * float64(qty) },
}).ParseFS(templateFS, "templates/*.html"))

func formatMoney(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func renderOrderEmail(order *models.Order, invoiceURL string) (subject, body string, err error) {
	body, err = render("order_confirmation.html", struct {
		Order      *models.Order
		InvoiceURL string
	}{order, invoiceURL})
	return "Potwierdzenie zamówienia " + order.ID.Hex(), body, err
}

func renderBookingEmail(booking *models.TrainingBooking, training *models.Training, invoiceURL string) (subject, body string, err error) {
	body, err = render("booking_confirmation.html", struct {
		Booking    *models.TrainingBooking
		Training   *models.Training
		Remaining  float64
		InvoiceURL string
	}{booking, training, booking.FullAmount - booking.PaymentAmount, invoiceURL})
	return "Potwierdzenie zapisu: " + training.Title, body, err
}
