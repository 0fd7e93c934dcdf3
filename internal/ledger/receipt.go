package ledger

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Receipt type tags. Nothing produces Factura entries yet; the value is
// accepted for interface completeness.
const (
	TypeManual  = "Manual"
	TypeFactura = "Factura"
)

// StatusProcessed is assigned on creation and never transitioned.
const StatusProcessed = "Procesado"

// Receipt represents a single recorded expense
type Receipt struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Amount        int64     `json:"amount"` // Amount in cents
	Date          time.Time `json:"date"`
	Category      string    `json:"category"`
	PaymentMethod string    `json:"payment_method,omitempty"`
	Type          string    `json:"type"`
	Status        string    `json:"status"`
	Products      []Product `json:"products"`
	ImageURI      string    `json:"image_uri,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Product is a single line item on a manually entered receipt
type Product struct {
	Name     string `json:"name"`
	Price    int64  `json:"price"` // Price in cents
	Quantity int    `json:"quantity"`
}

// Category is a fixed expense classification with totals derived from the
// current receipt collection
type Category struct {
	Name       string `json:"name"`
	Color      string `json:"color"`
	Amount     int64  `json:"amount"` // Amount in cents
	Percentage int    `json:"percentage"`
}

// categoryDefs fixes the set of known categories, their display colors and
// their order. Derived aggregates are always reported in this order.
var categoryDefs = []struct {
	name  string
	color string
}{
	{"Alimentos", "#4CAF50"},
	{"Transporte", "#2196F3"},
	{"Equipo de oficina", "#FF9800"},
	{"Servicios", "#9C27B0"},
	{"Otros", "#607D8B"},
}

// paymentMethods is the accepted set for the optional payment method field
var paymentMethods = []string{
	"Efectivo",
	"Tarjeta de crédito",
	"Tarjeta de débito",
	"Transferencia",
	"Otro",
}

// CategoryNames returns the fixed category list in display order
func CategoryNames() []string {
	names := make([]string, len(categoryDefs))
	for i, def := range categoryDefs {
		names[i] = def.name
	}
	return names
}

// ValidCategory reports whether name is one of the fixed categories
func ValidCategory(name string) bool {
	for _, def := range categoryDefs {
		if def.name == name {
			return true
		}
	}
	return false
}

// ValidPaymentMethod reports whether method is one of the accepted values
func ValidPaymentMethod(method string) bool {
	return slices.Contains(paymentMethods, method)
}

// SumProducts computes a receipt total in cents from its line items
func SumProducts(products []Product) int64 {
	var total int64
	for _, p := range products {
		total += p.Price * int64(p.Quantity)
	}
	return total
}

// ParseEntryDate parses the dd/mm/yyyy format used by manual entry
func ParseEntryDate(s string) (time.Time, error) {
	t, err := time.Parse("02/01/2006", strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing date %q: %w", s, err)
	}
	return t, nil
}
