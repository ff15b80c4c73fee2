package codegen

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"
)

const DefaultQRSize = 256

// QRPayload is what scanners read at the door: the event scope plus the code.
func QRPayload(eventID uuid.UUID, code string) string {
	return fmt.Sprintf("ticket:%s:%s", eventID, code)
}

func QRPNG(eventID uuid.UUID, code string, size int) ([]byte, error) {
	if size <= 0 {
		size = DefaultQRSize
	}
	png, err := qrcode.Encode(QRPayload(eventID, code), qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return png, nil
}
