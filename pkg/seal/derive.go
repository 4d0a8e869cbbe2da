package seal

import (
	"crypto/sha256"
	"encoding/hex"
	"io"

	"golang.org/x/crypto/hkdf"
)

// Key derivation turns a human-chosen title into two independent 256-bit
// values: the public note id sent to the server and the private AES key
// that never leaves the client. Both come from one HKDF extract, but the
// expand labels differ, so knowing the id reveals nothing about the key.
const (
	hkdfSalt    = "SecurePad"
	hkdfInfoID  = "ID"
	hkdfInfoKey = "KEY"
)

// KeySize is the size in bytes of derived ids and keys.
const KeySize = 32

func expand(title, info string) []byte {
	prk := hkdf.Extract(sha256.New, []byte(title), []byte(hkdfSalt))
	out := make([]byte, KeySize)
	if _, err := io.ReadFull(hkdf.Expand(sha256.New, prk, []byte(info)), out); err != nil {
		// HKDF-SHA256 cannot fail for a 32-byte read
		panic(err)
	}
	return out
}

// DeriveID returns the deterministic public identifier for a title as a
// 64-character lowercase hex string. Any title is valid, including "".
func DeriveID(title string) string {
	return hex.EncodeToString(expand(title, hkdfInfoID))
}

// DeriveKey returns the deterministic 256-bit encryption key for a title.
func DeriveKey(title string) []byte {
	return expand(title, hkdfInfoKey)
}
