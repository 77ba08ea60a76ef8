// Package receipt renders the QR code printed on order receipts. The code
// links to the order's page in the web client.
package receipt

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"
)

// DefaultSize is the PNG edge length in pixels.
const DefaultSize = 256

type QRGenerator interface {
	Generate(orderID uuid.UUID) ([]byte, error)
}

// LinkQRGenerator encodes BaseURL/orders/{id} as a PNG QR code.
type LinkQRGenerator struct {
	BaseURL string
	Size    int
}

func NewLinkQRGenerator(baseURL string) LinkQRGenerator {
	return LinkQRGenerator{BaseURL: baseURL, Size: DefaultSize}
}

// OrderURL is the web client address of an order.
func (g LinkQRGenerator) OrderURL(orderID uuid.UUID) string {
	return fmt.Sprintf("%s/orders/%s", strings.TrimRight(g.BaseURL, "/"), orderID)
}

func (g LinkQRGenerator) Generate(orderID uuid.UUID) ([]byte, error) {
	size := g.Size
	if size <= 0 {
		size = DefaultSize
	}
	png, err := qrcode.Encode(g.OrderURL(orderID), qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return png, nil
}
