package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	types "github.com/yungbote/lexi-backend/internal/domain"
	"github.com/yungbote/lexi-backend/internal/platform/apierr"
)

// StatusFor maps an error to its HTTP status and code.
func StatusFor(err error) (int, string) {
	if status, code, ok := apierr.StatusOf(err); ok {
		return status, code
	}
	switch types.KindOf(err) {
	case types.KindValidation:
		return http.StatusBadRequest, "validation"
	case types.KindAuthorization:
		return http.StatusForbidden, "forbidden"
	case types.KindNotFound:
		return http.StatusNotFound, "not_found"
	case types.KindDecryption:
		return http.StatusInternalServerError, "decryption_failed"
	case types.KindIndexing:
		return http.StatusServiceUnavailable, "indexing_inconsistency"
	case types.KindInference:
		return http.StatusBadGateway, "inference_failed"
	}
	return http.StatusInternalServerError, "internal"
}

// FromError writes err as a JSON error envelope. Decryption and internal
// failures get a fixed message so ciphertext details never leave the process.
func FromError(c *gin.Context, err error) {
	status, code := StatusFor(err)
	switch code {
	case "decryption_failed":
		err = errors.New("decryption failed")
	case "internal":
		_ = c.Error(err)
		err = errors.New("internal error")
	}
	RespondError(c, status, code, err)
}
