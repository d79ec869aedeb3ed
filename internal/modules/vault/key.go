package vault

import (
	"encoding/base64"
	"encoding/hex"
	"strings"

	types "github.com/yungbote/lexi-backend/internal/domain"
)

// DecodeKey accepts 64 hex characters or standard/URL base64 of 32 bytes.
func DecodeKey(raw string) ([]byte, error) {
	raw = strings.TrimSpace(raw)
	if len(raw) == 2*KeySize {
		if b, err := hex.DecodeString(raw); err == nil {
			return b, nil
		}
	}
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.URLEncoding, base64.RawStdEncoding, base64.RawURLEncoding} {
		b, err := enc.DecodeString(raw)
		if err == nil && len(b) == KeySize {
			return b, nil
		}
	}
	return nil, types.ErrInvalidKeyLength
}
