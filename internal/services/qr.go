package services

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/skip2/go-qrcode"

	"amx-support-bot/internal/models"
)

// QRService renders replacement proxy endpoints as scannable QR codes
type QRService struct {
	logger *logrus.Logger
}

// NewQRService creates a new QR code service
func NewQRService(logger *logrus.Logger) *QRService {
	return &QRService{
		logger: logger,
	}
}

// EncodeEndpoint generates a QR code carrying the endpoint as a socks5 URL
func (s *QRService) EncodeEndpoint(endpoint models.Endpoint) ([]byte, error) {
	url := fmt.Sprintf("socks5://%s:%s@%s:%s",
		endpoint.User, endpoint.Password, endpoint.IP, endpoint.Port.String())

	png, err := qrcode.Encode(url, qrcode.Medium, 256)
	if err != nil {
		s.logger.Errorf("Failed to generate QR code: %v", err)
		return nil, err
	}

	return png, nil
}
