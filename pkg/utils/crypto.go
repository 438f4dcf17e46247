package utils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"
	"log/slog"
)

var ErrCiphertextTooShort = errors.New("ciphertext too short")

// DeriveKey turns an arbitrary secret into a 32 byte AES key. Secrets that are
// already a valid AES key length are used as is.
func DeriveKey(secret string) []byte {
	switch len(secret) {
	case 16, 24, 32:
		return []byte(secret)
	}
	sum := sha256.Sum256([]byte(secret))
	return sum[:]
}

// Encrypt seals plaintext with AES-GCM and returns base64(nonce || ciphertext).
func Encrypt(plaintext, key []byte) (string, error) {
	aesGCM, err := newGCM(key)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aesGCM.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		slog.Info(err.Error())
		return "", err
	}

	sealed := aesGCM.Seal(nonce, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func Decrypt(encryptedData string, key []byte) (string, error) {
	data, err := base64.StdEncoding.DecodeString(encryptedData)
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}

	aesGCM, err := newGCM(key)
	if err != nil {
		return "", err
	}

	nonceSize := aesGCM.NonceSize()
	if len(data) < nonceSize {
		return "", ErrCiphertextTooShort
	}
	nonce, ciphertext := data[:nonceSize], data[nonceSize:]

	plaintext, err := aesGCM.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}

	return string(plaintext), nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return aesGCM, nil
}
