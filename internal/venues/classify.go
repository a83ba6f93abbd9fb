package venues

import (
	"fmt"
	"net/http"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/vaibhav0806/prophit-sub001/pkg/types"
)

// errorBody covers the rejection envelopes the venues use. Predict puts
// the code in "code", Probable in "error", Opinion in "errmsg".
type errorBody struct {
	Code    string `json:"code"`
	Error   string `json:"error"`
	Message string `json:"message"`
	Errmsg  string `json:"errmsg"`
}

// ClassifyStatus converts a non-2xx venue response into the shared
// error taxonomy. 429 and 5xx come back transient, 401/403 as auth
// failures, and 400 as a non-retryable validation rejection.
func ClassifyStatus(protocol types.Protocol, op string, status int, body []byte) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &types.AuthError{
			Protocol: protocol,
			Op:       op,
			Err:      fmt.Errorf("status %d: %s", status, truncate(body)),
		}
	case status == http.StatusNotFound:
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return validationError(protocol, body)
	case status == http.StatusTooManyRequests || status >= http.StatusInternalServerError:
		return &types.TransientNetworkError{
			Op:     op,
			Status: status,
			Err:    fmt.Errorf("%s", truncate(body)),
		}
	default:
		return fmt.Errorf("%s: unexpected status %d: %s", op, status, truncate(body))
	}
}

func validationError(protocol types.Protocol, body []byte) error {
	var eb errorBody
	_ = json.Unmarshal(body, &eb)

	message := firstNonEmpty(eb.Message, eb.Error, eb.Errmsg, truncate(body))
	code := eb.Code
	if code == "" {
		code = InferRejectionCode(message)
	}

	return &types.ValidationError{Protocol: protocol, Code: code, Message: message}
}

// InferRejectionCode maps free-text rejections onto the known codes so
// the executor can tell a collateral cap from a malformed order.
func InferRejectionCode(message string) string {
	lower := strings.ToLower(message)

	switch {
	case strings.Contains(lower, "collateral"):
		return types.ErrCollateralLimit
	case strings.Contains(lower, "balance") || strings.Contains(lower, "allowance"):
		return types.ErrNotEnoughBalance
	case strings.Contains(lower, "tick"):
		return types.ErrInvalidMinTickSize
	case strings.Contains(lower, "fok"):
		return types.ErrFOKNotFilled
	case strings.Contains(lower, "nonce"):
		return ErrCodeNonce
	default:
		return "BAD_REQUEST"
	}
}

// ErrCodeNonce marks a rejected client-tracked nonce.
const ErrCodeNonce = "INVALID_NONCE"

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}

	return ""
}

func truncate(body []byte) string {
	const limit = 256
	if len(body) > limit {
		return string(body[:limit]) + "..."
	}

	return string(body)
}
