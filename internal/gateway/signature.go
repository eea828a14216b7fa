package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// ErrMissingSignature возвращается, если подпись или секрет не заданы.
var (
	ErrMissingSignature = errors.New("missing signature or secret")
	// ErrSignatureMismatch возвращается, если подпись не совпала с ожидаемой.
	ErrSignatureMismatch = errors.New("invalid signature")
)

// Sign возвращает HMAC-SHA256 от payload в шестнадцатеричном виде.
func Sign(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyWebhook проверяет подпись вебхука, вычисленную над сырым телом запроса.
func VerifyWebhook(secret string, body []byte, signature string) error {
	return verify(secret, body, signature)
}

// VerifyPayment проверяет подпись, которую клиент получил от шлюза после оплаты:
// HMAC(secret, providerOrderID + "|" + paymentID).
func VerifyPayment(secret, providerOrderID, paymentID, signature string) error {
	return verify(secret, []byte(providerOrderID+"|"+paymentID), signature)
}

func verify(secret string, payload []byte, signature string) error {
	if secret == "" || signature == "" {
		return ErrMissingSignature
	}

	if !hmac.Equal([]byte(Sign(secret, payload)), []byte(signature)) {
		return ErrSignatureMismatch
	}

	return nil
}
