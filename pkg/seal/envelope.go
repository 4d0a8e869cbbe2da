package seal

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"io"
)

// envelope is the self-describing ciphertext record stored on the server:
// base64 nonce plus base64 AES-256-GCM ciphertext.
type envelope struct {
	IV   string `json:"iv"`
	Data string `json:"data"`
}

// Seal encrypts plaintext under key with a fresh random 96-bit nonce and
// returns the JSON envelope. Two calls with identical inputs yield
// different envelopes.
func Seal(plaintext string, key []byte) (string, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	ct := gcm.Seal(nil, nonce, []byte(plaintext), nil)
	b, err := json.Marshal(envelope{
		IV:   base64.StdEncoding.EncodeToString(nonce),
		Data: base64.StdEncoding.EncodeToString(ct),
	})
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Open authenticates and decrypts an envelope produced by Seal. It never
// returns an error: malformed JSON, missing fields, bad base64, a wrong
// key, or tampered ciphertext all yield "". Callers treat an empty note
// and a failed decryption identically, so surfacing the difference would
// only hand an attacker an oracle.
func Open(encrypted string, key []byte) string {
	if encrypted == "" {
		return ""
	}
	var env envelope
	if err := json.Unmarshal([]byte(encrypted), &env); err != nil {
		return ""
	}
	if env.IV == "" || env.Data == "" {
		return ""
	}
	nonce, err := base64.StdEncoding.DecodeString(env.IV)
	if err != nil {
		return ""
	}
	ct, err := base64.StdEncoding.DecodeString(env.Data)
	if err != nil {
		return ""
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return ""
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return ""
	}
	if len(nonce) != gcm.NonceSize() {
		return ""
	}
	pt, err := gcm.Open(nil, nonce, ct, nil)
	if err != nil {
		return ""
	}
	return string(pt)
}
