package service

import (
	"fmt"

	"github.com/skip2/go-qrcode"
)

// QRCodeRenderer renders referral links as PNG QR codes.
type QRCodeRenderer struct {
	size  int
	level qrcode.RecoveryLevel
}

// NewQRCodeRenderer creates a renderer. Level is one of L, M, Q, H;
// anything else means M.
func NewQRCodeRenderer(size int, level string) *QRCodeRenderer {
	var rl qrcode.RecoveryLevel
	switch level {
	case "L":
		rl = qrcode.Low
	case "Q":
		rl = qrcode.High
	case "H":
		rl = qrcode.Highest
	default:
		rl = qrcode.Medium
	}
	if size <= 0 {
		size = 256
	}
	return &QRCodeRenderer{size: size, level: rl}
}

// PNG encodes content as a PNG image.
func (r *QRCodeRenderer) PNG(content string) ([]byte, error) {
	qr, err := qrcode.New(content, r.level)
	if err != nil {
		return nil, fmt.Errorf("failed to create QR code: %w", err)
	}
	png, err := qr.PNG(r.size)
	if err != nil {
		return nil, fmt.Errorf("failed to generate PNG: %w", err)
	}
	return png, nil
}
