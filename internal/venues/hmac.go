package venues

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// Credentials is the API credential triplet a venue issues after the
// wallet proves key ownership.
type Credentials struct {
	APIKey     string `json:"apiKey"`
	Secret     string `json:"secret"`
	Passphrase string `json:"passphrase"`
}

// Complete reports whether every field of the triplet is present.
func (c Credentials) Complete() bool {
	return c.APIKey != "" && c.Secret != "" && c.Passphrase != ""
}

// BuildHMAC signs timestamp+method+path+body with the base64-decoded
// secret and returns a URL-safe base64 signature. Venues issue secrets
// in more than one base64 alphabet, so decoding falls back across them.
func BuildHMAC(secret, timestamp, method, path, body string) (string, error) {
	key, err := decodeSecret(secret)
	if err != nil {
		return "", err
	}

	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(timestamp + method + path + body))

	return base64.URLEncoding.EncodeToString(mac.Sum(nil)), nil
}

func decodeSecret(secret string) ([]byte, error) {
	encodings := []*base64.Encoding{
		base64.URLEncoding,
		base64.RawURLEncoding,
		base64.StdEncoding,
		base64.RawStdEncoding,
	}

	for _, enc := range encodings {
		if key, err := enc.DecodeString(secret); err == nil {
			return key, nil
		}
	}

	return nil, fmt.Errorf("secret is not valid base64")
}
