package tokens

import (
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/hkdf"
)

// Key derivation labels. Each purpose gets its own key so a token minted
// for one purpose never verifies for another.
const (
	labelAccess   = "session.access"
	labelRefresh  = "session.refresh"
	labelRecovery = "recovery"
)

func deriveKey(secret []byte, label string) []byte {
	key := make([]byte, 32)
	r := hkdf.New(sha256.New, secret, nil, []byte(label))
	if _, err := io.ReadFull(r, key); err != nil {
		// hkdf only fails past 255*32 bytes
		panic(err)
	}
	return key
}
