package http

import (
	"errors"
	"net/http"

	"vendtrustd/internal/domain"

	"github.com/gin-gonic/gin"
)

// Stable error codes. The E0xx family is the device-facing contract and must
// not change; devices branch on it.
const (
	codeMissingBody      = "E001"
	codeMissingFields    = "E002"
	codeDeviceNotFound   = "E003"
	codeDeviceRevoked    = "E004"
	codeInvalidSignature = "E005"
	codeTimestampError   = "E006"
	codeNonceError       = "E007"
	codeSessionInvalid   = "E008"
	codeUnauthorized     = "E011"

	codeInvalidMac         = "INVALID_MAC"
	codeAlreadyProvisioned = "ALREADY_PROVISIONED"
	codeConcurrentRotation = "CONCURRENT_ROTATION"
	codeRateLimited        = "RATE_LIMITED"
	codeInternal           = "INTERNAL"
	codeNotFound           = "NOT_FOUND"
)

type apiResponse struct {
	Success   bool   `json:"success"`
	Data      any    `json:"data,omitempty"`
	Message   string `json:"message,omitempty"`
	ErrorCode string `json:"error_code,omitempty"`
}

func writeData(c *gin.Context, status int, data any) {
	c.JSON(status, apiResponse{Success: true, Data: data})
}

func writeMessage(c *gin.Context, status int, message string) {
	c.JSON(status, apiResponse{Success: true, Message: message})
}

func writeErrorCode(c *gin.Context, status int, code, message string) {
	c.JSON(status, apiResponse{Success: false, ErrorCode: code, Message: message})
}

// writeError maps domain sentinels to status and code. Authentication
// failures return generic messages; the specific cause lives in the security
// event log, never in the response.
func writeError(c *gin.Context, err error) {
	status, code, message := http.StatusInternalServerError, codeInternal, "internal error"
	switch {
	case errors.Is(err, domain.ErrInvalidMac):
		status, code, message = http.StatusBadRequest, codeInvalidMac, "invalid mac address"
	case errors.Is(err, domain.ErrAlreadyProvisioned):
		status, code, message = http.StatusConflict, codeAlreadyProvisioned, "machine already provisioned"
	case errors.Is(err, domain.ErrConcurrentRotation):
		status, code, message = http.StatusConflict, codeConcurrentRotation, "concurrent rotation in progress"
	case errors.Is(err, domain.ErrNotFound):
		status, code, message = http.StatusNotFound, codeNotFound, "not found"
	case errors.Is(err, domain.ErrUnknownMachine):
		status, code, message = http.StatusForbidden, codeDeviceNotFound, "device not registered"
	case errors.Is(err, domain.ErrIdentityRevoked):
		status, code, message = http.StatusForbidden, codeDeviceRevoked, "device access revoked"
	case errors.Is(err, domain.ErrIdentityNotActive):
		status, code, message = http.StatusForbidden, codeDeviceRevoked, "device access revoked"
	case errors.Is(err, domain.ErrMacMismatch):
		status, code, message = http.StatusForbidden, codeInvalidSignature, "authentication failed"
	case errors.Is(err, domain.ErrBadSignature):
		status, code, message = http.StatusForbidden, codeInvalidSignature, "authentication failed"
	case errors.Is(err, domain.ErrStaleTimestamp):
		status, code, message = http.StatusForbidden, codeTimestampError, "request expired"
	case errors.Is(err, domain.ErrReplayDetected):
		status, code, message = http.StatusForbidden, codeNonceError, "request rejected"
	case errors.Is(err, domain.ErrSessionExpired):
		status, code, message = http.StatusForbidden, codeSessionInvalid, "session invalid"
	case errors.Is(err, domain.ErrSessionRevoked):
		status, code, message = http.StatusForbidden, codeSessionInvalid, "session invalid"
	}
	writeErrorCode(c, status, code, message)
}
