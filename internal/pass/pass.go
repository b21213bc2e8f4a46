// Package pass issues and verifies encrypted QR entry passes.
package pass

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
	"time"

	"github.com/skip2/go-qrcode"

	"techsymposium/internal/models"
)

const qrSize = 256

var ErrInvalidCode = errors.New("invalid pass code")

// Payload is what the QR code carries once decrypted.
type Payload struct {
	RegistrationID string    `json:"registrationId"`
	StudentID      string    `json:"studentId"`
	EventID        string    `json:"eventId"`
	Email          string    `json:"email"`
	IssuedAt       time.Time `json:"issuedAt"`
}

func NewPayload(reg *models.Registration, issuedAt time.Time) Payload {
	return Payload{
		RegistrationID: reg.ID,
		StudentID:      reg.StudentID,
		EventID:        reg.EventID,
		Email:          reg.StudentEmail,
		IssuedAt:       issuedAt.UTC(),
	}
}

type Generator struct {
	aead cipher.AEAD
}

// NewGenerator derives a 32 byte AES key from secret.
func NewGenerator(secret string) (*Generator, error) {
	key := sha256.Sum256([]byte(secret))
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Generator{aead: aead}, nil
}

// Encrypt seals the payload into a URL-safe code.
func (g *Generator) Encrypt(p Payload) (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, g.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	sealed := g.aead.Seal(nonce, nonce, data, nil)
	return base64.URLEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a code produced by Encrypt. Tampered or foreign codes
// return ErrInvalidCode.
func (g *Generator) Decrypt(code string) (*Payload, error) {
	raw, err := base64.URLEncoding.DecodeString(code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCode, err)
	}
	n := g.aead.NonceSize()
	if len(raw) < n {
		return nil, ErrInvalidCode
	}
	data, err := g.aead.Open(nil, raw[:n], raw[n:], nil)
	if err != nil {
		return nil, ErrInvalidCode
	}
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCode, err)
	}
	return &p, nil
}

// QR returns a PNG QR code holding the encrypted payload.
func (g *Generator) QR(p Payload) ([]byte, error) {
	code, err := g.Encrypt(p)
	if err != nil {
		return nil, err
	}
	return qrcode.Encode(code, qrcode.Medium, qrSize)
}
