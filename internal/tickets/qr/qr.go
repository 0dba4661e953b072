// Package qr renders ticket payloads as AES-encrypted QR codes and reads them back.
package qr

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/skip2/go-qrcode"

	"ms-booking/internal/models"
)

var ErrInvalidToken = errors.New("invalid ticket token")

const imageSize = 256

type QRGenerator struct {
	secret []byte
}

func NewQRGenerator(secret string) *QRGenerator {
	hashed := sha256.Sum256([]byte(secret)) // normalize to 32 bytes
	return &QRGenerator{secret: hashed[:]}
}

// GenerateEncryptedQR returns a PNG whose content is the encrypted payload token.
func (q *QRGenerator) GenerateEncryptedQR(payload models.TicketPayload) ([]byte, error) {
	token, err := q.Encrypt(payload)
	if err != nil {
		return nil, err
	}
	return qrcode.Encode(token, qrcode.Medium, imageSize)
}

func (q *QRGenerator) Encrypt(payload models.TicketPayload) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return encryptAES(data, q.secret)
}

// Decrypt reverses Encrypt. Tokens from another key or tampered tokens fail
// with ErrInvalidToken.
func (q *QRGenerator) Decrypt(token string) (*models.TicketPayload, error) {
	raw, err := base64.URLEncoding.DecodeString(token)
	if err != nil || len(raw) <= aes.BlockSize {
		return nil, ErrInvalidToken
	}

	block, err := aes.NewCipher(q.secret)
	if err != nil {
		return nil, err
	}
	data := make([]byte, len(raw)-aes.BlockSize)
	cipher.NewCFBDecrypter(block, raw[:aes.BlockSize]).XORKeyStream(data, raw[aes.BlockSize:])

	var payload models.TicketPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.TicketNumber == "" {
		return nil, fmt.Errorf("%w: undecodable payload", ErrInvalidToken)
	}
	return &payload, nil
}

func encryptAES(data []byte, key []byte) (string, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}

	ciphertext := make([]byte, aes.BlockSize+len(data))
	iv := ciphertext[:aes.BlockSize]

	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", err
	}

	stream := cipher.NewCFBEncrypter(block, iv)
	stream.XORKeyStream(ciphertext[aes.BlockSize:], data)

	return base64.URLEncoding.EncodeToString(ciphertext), nil
}
