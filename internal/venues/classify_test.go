package venues

import (
	"errors"
	"testing"

	"github.com/vaibhav0806/prophit-sub001/pkg/types"
)

func TestClassifyStatusAuth(t *testing.T) {
	err := ClassifyStatus(types.ProtocolPredict, "get orderbook", 401, []byte(`{"error":"token expired"}`))

	var authErr *types.AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %T: %v", err, err)
	}
	if authErr.Protocol != types.ProtocolPredict {
		t.Errorf("protocol = %s", authErr.Protocol)
	}
	if types.IsRetryable(err) {
		t.Error("auth failures must not be blindly retried")
	}
}

func TestClassifyStatusValidation(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode string
	}{
		{"explicit-code", `{"code":"COLLATERAL_LIMIT_EXCEEDED","message":"cap reached"}`, types.ErrCollateralLimit},
		{"collateral-text", `{"error":"insufficient collateral for order"}`, types.ErrCollateralLimit},
		{"balance-text", `{"error":"not enough balance / allowance"}`, types.ErrNotEnoughBalance},
		{"tick-text", `{"errmsg":"price breaks minimum tick size"}`, types.ErrInvalidMinTickSize},
		{"fok-text", `{"error":"fok order not filled"}`, types.ErrFOKNotFilled},
		{"unknown-text", `{"error":"weird input"}`, "BAD_REQUEST"},
		{"non-json-body", `bad gateway text`, "BAD_REQUEST"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ClassifyStatus(types.ProtocolProbable, "place order", 400, []byte(tt.body))

			var ve *types.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %T: %v", err, err)
			}
			if ve.Code != tt.wantCode {
				t.Errorf("code = %s, want %s", ve.Code, tt.wantCode)
			}
			if types.IsRetryable(err) {
				t.Error("validation rejections are terminal")
			}
		})
	}
}

func TestClassifyStatusTransient(t *testing.T) {
	for _, status := range []int{429, 500, 502, 503} {
		err := ClassifyStatus(types.ProtocolOpinion, "fetch book", status, []byte("upstream sad"))

		var transient *types.TransientNetworkError
		if !errors.As(err, &transient) {
			t.Fatalf("status %d: expected TransientNetworkError, got %T", status, err)
		}
		if transient.Status != status {
			t.Errorf("status = %d, want %d", transient.Status, status)
		}
	}
}

func TestRetryOn5xxExcludesRateLimit(t *testing.T) {
	tooMany := ClassifyStatus(types.ProtocolPredict, "fetch book", 429, nil)
	if RetryOn5xx(tooMany) {
		t.Error("429 is not retried on the quote path")
	}

	upstream := ClassifyStatus(types.ProtocolPredict, "fetch book", 503, nil)
	if !RetryOn5xx(upstream) {
		t.Error("503 should be retried once")
	}

	transport := &types.TransientNetworkError{Op: "fetch book", Err: errors.New("connection reset")}
	if !RetryOn5xx(transport) {
		t.Error("transport-level failures should be retried once")
	}

	if RetryOn5xx(errors.New("plain")) {
		t.Error("untyped errors are not retryable")
	}
}

func TestClassifyStatusNotFound(t *testing.T) {
	err := ClassifyStatus(types.ProtocolOpinion, "fetch book", 404, nil)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if types.IsRetryable(err) {
		t.Error("404 is not transient")
	}
}

func TestClassifyStatusUnexpected(t *testing.T) {
	err := ClassifyStatus(types.ProtocolPredict, "fetch market", 301, nil)
	if types.IsRetryable(err) {
		t.Error("redirects are not transient")
	}
	var ve *types.ValidationError
	if errors.As(err, &ve) {
		t.Error("redirects are not validation rejections")
	}
}
