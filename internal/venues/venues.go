// Package venues holds the wire-level primitives shared by the venue
// clients: the fixed-point order book model, the EIP-712 order signer,
// API credential handling, and HTTP error classification. Each venue
// client lives in its own subpackage and maps its native wire formats
// onto these types before anything crosses into the core.
package venues

import (
	"context"
	"errors"
	"io"
	"math/big"
	"net/http"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vaibhav0806/prophit-sub001/pkg/types"
)

// ZeroAddress is the open taker on every venue exchange.
var ZeroAddress = common.Address{} //nolint:gochecknoglobals // shared constant

// ErrNotFound marks a venue 404. Callers decide what absence means:
// a missing book retires the market, a missing order is venue-family
// specific.
var ErrNotFound = errors.New("not found") //nolint:gochecknoglobals // sentinel

// MaxApproval is the unlimited ERC-20 allowance.
var MaxApproval = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1)) //nolint:gochecknoglobals // computed once

// maxBodyBytes caps venue response reads. Order books and catalog pages
// stay well under this; anything larger is a misbehaving endpoint.
const maxBodyBytes = 4 << 20

// Approver grants the on-chain allowances an exchange contract needs
// before it can move collateral and outcome tokens on our behalf.
type Approver interface {
	EnsureERC20Allowance(ctx context.Context, token, spender common.Address, min *big.Int) error
	EnsureERC1155Approval(ctx context.Context, token, operator common.Address) error
}

// ProxyPreparer validates a safe proxy before it fronts as order maker
// and tops it up from the signing wallet when its collateral balance
// falls below floor. Only venues that trade through a smart account
// need one.
type ProxyPreparer interface {
	PrepareSafeProxy(ctx context.Context, proxy, token common.Address, floor *big.Int) error
}

// ReadBody drains a response body with a size cap.
func ReadBody(resp *http.Response) ([]byte, error) {
	return io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
}

// RetryOn5xx is the retry predicate for quote and catalog reads: one
// more attempt on transport failures and 5xx, never on 4xx.
func RetryOn5xx(err error) bool {
	var transient *types.TransientNetworkError
	if !errors.As(err, &transient) {
		return false
	}

	return transient.Status == 0 || transient.Status >= http.StatusInternalServerError
}
