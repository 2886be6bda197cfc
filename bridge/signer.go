package bridge

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// signer produces and verifies the HMAC-SHA256 signature frame carried
// in every Jupyter wire message, computed over the four canonical JSON
// parts in order: header, parent_header, metadata, content.
type signer struct {
	key []byte
}

func newSigner(key string) *signer {
	return &signer{key: []byte(key)}
}

// sign returns the lowercase-hex HMAC-SHA256 digest of header, parent,
// metadata, and content concatenated in that order.
func (s *signer) sign(header, parent, metadata, content []byte) string {
	mac := hmac.New(sha256.New, s.key)
	mac.Write(header)
	mac.Write(parent)
	mac.Write(metadata)
	mac.Write(content)
	return hex.EncodeToString(mac.Sum(nil))
}

// verify reports whether signature is the correct digest for the given
// parts, using a constant-time comparison.
func (s *signer) verify(signature string, header, parent, metadata, content []byte) bool {
	expected := s.sign(header, parent, metadata, content)
	return hmac.Equal([]byte(expected), []byte(signature))
}
