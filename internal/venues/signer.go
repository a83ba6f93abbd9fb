package venues

import (
	"crypto/ecdsa"
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"github.com/vaibhav0806/prophit-sub001/pkg/types"
)

// Signature type values understood by the venue exchanges.
const (
	SigTypeEOA       = 0
	SigTypeProxySafe = 2
)

// Order is the exchange order struct all three venues settle against.
// Prices never appear directly: MakerAmount over TakerAmount encodes
// the limit price, both in 6-dp fixed point.
type Order struct {
	Salt          *big.Int
	Maker         common.Address
	Signer        common.Address
	Taker         common.Address
	TokenID       *big.Int
	MakerAmount   *big.Int
	TakerAmount   *big.Int
	Expiration    *big.Int
	Nonce         *big.Int
	FeeRateBps    *big.Int
	Side          types.Side
	SignatureType int
}

// OrderJSON is the signed order as posted to a venue. Numeric fields
// travel as decimal strings.
type OrderJSON struct {
	Salt          string `json:"salt"`
	Maker         string `json:"maker"`
	Signer        string `json:"signer"`
	Taker         string `json:"taker"`
	TokenID       string `json:"tokenId"`
	MakerAmount   string `json:"makerAmount"`
	TakerAmount   string `json:"takerAmount"`
	Expiration    string `json:"expiration"`
	Nonce         string `json:"nonce"`
	FeeRateBps    string `json:"feeRateBps"`
	Side          string `json:"side"`
	SignatureType int    `json:"signatureType"`
	Signature     string `json:"signature"`
}

// ToJSON encodes the order plus its signature for the wire.
func (o *Order) ToJSON(signature string) *OrderJSON {
	return &OrderJSON{
		Salt:          o.Salt.String(),
		Maker:         o.Maker.Hex(),
		Signer:        o.Signer.Hex(),
		Taker:         o.Taker.Hex(),
		TokenID:       o.TokenID.String(),
		MakerAmount:   o.MakerAmount.String(),
		TakerAmount:   o.TakerAmount.String(),
		Expiration:    o.Expiration.String(),
		Nonce:         o.Nonce.String(),
		FeeRateBps:    o.FeeRateBps.String(),
		Side:          o.Side.String(),
		SignatureType: o.SignatureType,
		Signature:     signature,
	}
}

// Signer signs venue orders and auth challenges with one EOA key.
type Signer struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
	chainID    int64
}

// NewSigner parses a hex private key, with or without the 0x prefix.
func NewSigner(privateKeyHex string, chainID int64) (*Signer, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	return &Signer{
		privateKey: key,
		address:    crypto.PubkeyToAddress(key.PublicKey),
		chainID:    chainID,
	}, nil
}

// Address returns the EOA address derived from the key.
func (s *Signer) Address() common.Address { return s.address }

// ChainID returns the chain the signer binds its domains to.
func (s *Signer) ChainID() int64 { return s.chainID }

// SignOrder hashes the order as EIP-712 typed data under the venue
// exchange domain and returns the 65-byte signature, hex encoded with
// the legacy 27/28 recovery byte.
func (s *Signer) SignOrder(domainName string, verifyingContract common.Address, ord *Order) (string, error) {
	typed := apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": {
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
			"Order": {
				{Name: "salt", Type: "uint256"},
				{Name: "maker", Type: "address"},
				{Name: "signer", Type: "address"},
				{Name: "taker", Type: "address"},
				{Name: "tokenId", Type: "uint256"},
				{Name: "makerAmount", Type: "uint256"},
				{Name: "takerAmount", Type: "uint256"},
				{Name: "expiration", Type: "uint256"},
				{Name: "nonce", Type: "uint256"},
				{Name: "feeRateBps", Type: "uint256"},
				{Name: "side", Type: "uint8"},
				{Name: "signatureType", Type: "uint8"},
			},
		},
		PrimaryType: "Order",
		Domain: apitypes.TypedDataDomain{
			Name:              domainName,
			Version:           "1",
			ChainId:           math.NewHexOrDecimal256(s.chainID),
			VerifyingContract: verifyingContract.Hex(),
		},
		Message: apitypes.TypedDataMessage{
			"salt":          ord.Salt.String(),
			"maker":         ord.Maker.Hex(),
			"signer":        ord.Signer.Hex(),
			"taker":         ord.Taker.Hex(),
			"tokenId":       ord.TokenID.String(),
			"makerAmount":   ord.MakerAmount.String(),
			"takerAmount":   ord.TakerAmount.String(),
			"expiration":    ord.Expiration.String(),
			"nonce":         ord.Nonce.String(),
			"feeRateBps":    ord.FeeRateBps.String(),
			"side":          strconv.Itoa(int(ord.Side)),
			"signatureType": strconv.Itoa(ord.SignatureType),
		},
	}

	return s.SignTypedData(typed)
}

// SignAuthAttestation signs the credential-derivation challenge venues
// verify before issuing an API key triplet.
func (s *Signer) SignAuthAttestation(domainName, timestamp, nonce string) (string, error) {
	typed := apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": {
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
			},
			"ClobAuth": {
				{Name: "address", Type: "address"},
				{Name: "timestamp", Type: "string"},
				{Name: "nonce", Type: "uint256"},
				{Name: "message", Type: "string"},
			},
		},
		PrimaryType: "ClobAuth",
		Domain: apitypes.TypedDataDomain{
			Name:    domainName,
			Version: "1",
			ChainId: math.NewHexOrDecimal256(s.chainID),
		},
		Message: apitypes.TypedDataMessage{
			"address":   s.address.Hex(),
			"timestamp": timestamp,
			"nonce":     nonce,
			"message":   "This message attests that I control the given wallet",
		},
	}

	return s.SignTypedData(typed)
}

// SignTypedData hashes arbitrary EIP-712 typed data and signs it.
func (s *Signer) SignTypedData(data apitypes.TypedData) (string, error) {
	hash, _, err := apitypes.TypedDataAndHash(data)
	if err != nil {
		return "", fmt.Errorf("hash typed data: %w", err)
	}

	sig, err := crypto.Sign(hash, s.privateKey)
	if err != nil {
		return "", fmt.Errorf("sign typed data: %w", err)
	}

	sig[64] += 27

	return hexutil.Encode(sig), nil
}

// SignMessage signs a plain-text challenge EIP-191 style.
func (s *Signer) SignMessage(message string) (string, error) {
	sig, err := crypto.Sign(accounts.TextHash([]byte(message)), s.privateKey)
	if err != nil {
		return "", fmt.Errorf("sign message: %w", err)
	}

	sig[64] += 27

	return hexutil.Encode(sig), nil
}

// ParseTokenID accepts the two token id encodings the venues use:
// 0x-prefixed hex and plain decimal.
func ParseTokenID(s string) (*big.Int, error) {
	if s == "" {
		return nil, fmt.Errorf("empty token id")
	}

	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		n, ok := new(big.Int).SetString(s[2:], 16)
		if !ok {
			return nil, fmt.Errorf("malformed hex token id %q", s)
		}

		return n, nil
	}

	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("malformed token id %q", s)
	}

	return n, nil
}

// saltBound keeps salts inside the float64-safe integer range since
// some venue gateways parse order JSON through double-precision paths.
var saltBound = new(big.Int).Lsh(big.NewInt(1), 53) //nolint:gochecknoglobals // computed once

// NewSalt draws a random order salt.
func NewSalt() (*big.Int, error) {
	salt, err := rand.Int(rand.Reader, saltBound)
	if err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}

	return salt, nil
}
