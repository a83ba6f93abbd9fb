package venues

import (
	"math/big"
	"strconv"
	"testing"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"github.com/vaibhav0806/prophit-sub001/pkg/types"
)

// Well-known local development key, account zero of the standard
// hardhat/anvil mnemonic. Never funded on a real network.
const (
	testKeyHex  = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	testKeyAddr = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
)

func testOrder(t *testing.T) *Order {
	t.Helper()
	tokenID, ok := new(big.Int).SetString("71321045679252212594626385532706912750332728571942532289631379312455583992563", 10)
	if !ok {
		t.Fatal("parse token id")
	}
	return &Order{
		Salt:          big.NewInt(479249096354),
		Maker:         common.HexToAddress(testKeyAddr),
		Signer:        common.HexToAddress(testKeyAddr),
		Taker:         ZeroAddress,
		TokenID:       tokenID,
		MakerAmount:   big.NewInt(55_000_000),
		TakerAmount:   big.NewInt(100_000_000),
		Expiration:    big.NewInt(0),
		Nonce:         big.NewInt(0),
		FeeRateBps:    big.NewInt(200),
		Side:          types.SideBuy,
		SignatureType: SigTypeEOA,
	}
}

func TestNewSignerDerivesAddress(t *testing.T) {
	s, err := NewSigner(testKeyHex, 31337)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Address() != common.HexToAddress(testKeyAddr) {
		t.Errorf("derived address = %s, want %s", s.Address(), testKeyAddr)
	}
	if s.ChainID() != 31337 {
		t.Errorf("chain id = %d, want 31337", s.ChainID())
	}
}

func TestNewSignerAcceptsUnprefixedKey(t *testing.T) {
	s, err := NewSigner(testKeyHex[2:], 137)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Address() != common.HexToAddress(testKeyAddr) {
		t.Errorf("derived address = %s, want %s", s.Address(), testKeyAddr)
	}
}

func TestNewSignerRejectsGarbage(t *testing.T) {
	if _, err := NewSigner("0xzz", 137); err == nil {
		t.Fatal("expected error for malformed key")
	}
}

func TestSignOrderRecoversToSigner(t *testing.T) {
	s, err := NewSigner(testKeyHex, 31337)
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}

	exchange := common.HexToAddress("0x4bFb41d5B3570DeFd03C39a9A4D8dE6Bd8B8982E")
	ord := testOrder(t)

	sigHex, err := s.SignOrder("Test CTF Exchange", exchange, ord)
	if err != nil {
		t.Fatalf("sign order: %v", err)
	}

	sig, err := hexutil.Decode(sigHex)
	if err != nil {
		t.Fatalf("decode signature: %v", err)
	}
	if len(sig) != 65 {
		t.Fatalf("signature length = %d, want 65", len(sig))
	}
	if v := sig[64]; v != 27 && v != 28 {
		t.Fatalf("recovery byte = %d, want 27 or 28", v)
	}

	// Rebuild the digest independently and recover the signing address.
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
			Name:              "Test CTF Exchange",
			Version:           "1",
			ChainId:           math.NewHexOrDecimal256(31337),
			VerifyingContract: exchange.Hex(),
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
	hash, _, err := apitypes.TypedDataAndHash(typed)
	if err != nil {
		t.Fatalf("hash typed data: %v", err)
	}

	recoverable := make([]byte, 65)
	copy(recoverable, sig)
	recoverable[64] -= 27
	pub, err := crypto.SigToPub(hash, recoverable)
	if err != nil {
		t.Fatalf("recover pubkey: %v", err)
	}
	if got := crypto.PubkeyToAddress(*pub); got != s.Address() {
		t.Errorf("recovered %s, want %s", got, s.Address())
	}
}

func TestSignOrderDeterministic(t *testing.T) {
	s, err := NewSigner(testKeyHex, 31337)
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	exchange := common.HexToAddress("0x4bFb41d5B3570DeFd03C39a9A4D8dE6Bd8B8982E")

	first, err := s.SignOrder("Test CTF Exchange", exchange, testOrder(t))
	if err != nil {
		t.Fatalf("sign order: %v", err)
	}
	second, err := s.SignOrder("Test CTF Exchange", exchange, testOrder(t))
	if err != nil {
		t.Fatalf("sign order: %v", err)
	}
	if first != second {
		t.Error("same order should produce the same signature")
	}
}

func TestSignMessageRecoversToSigner(t *testing.T) {
	s, err := NewSigner(testKeyHex, 137)
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}

	const challenge = "Sign in at 1756100000"
	sigHex, err := s.SignMessage(challenge)
	if err != nil {
		t.Fatalf("sign message: %v", err)
	}

	sig, err := hexutil.Decode(sigHex)
	if err != nil {
		t.Fatalf("decode signature: %v", err)
	}
	sig[64] -= 27
	pub, err := crypto.SigToPub(accounts.TextHash([]byte(challenge)), sig)
	if err != nil {
		t.Fatalf("recover pubkey: %v", err)
	}
	if got := crypto.PubkeyToAddress(*pub); got != s.Address() {
		t.Errorf("recovered %s, want %s", got, s.Address())
	}
}

func TestSignAuthAttestation(t *testing.T) {
	s, err := NewSigner(testKeyHex, 81457)
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	sigHex, err := s.SignAuthAttestation("Probable CLOB", "1756100000", "0")
	if err != nil {
		t.Fatalf("sign attestation: %v", err)
	}
	sig, err := hexutil.Decode(sigHex)
	if err != nil {
		t.Fatalf("decode signature: %v", err)
	}
	if len(sig) != 65 {
		t.Errorf("signature length = %d, want 65", len(sig))
	}
}

func TestOrderToJSON(t *testing.T) {
	ord := testOrder(t)
	wire := ord.ToJSON("0xdead")

	if wire.Salt != "479249096354" {
		t.Errorf("salt = %s", wire.Salt)
	}
	if wire.Side != "BUY" {
		t.Errorf("side = %s, want BUY", wire.Side)
	}
	if wire.MakerAmount != "55000000" || wire.TakerAmount != "100000000" {
		t.Errorf("amounts = %s/%s", wire.MakerAmount, wire.TakerAmount)
	}
	if wire.SignatureType != SigTypeEOA {
		t.Errorf("signature type = %d", wire.SignatureType)
	}
	if wire.Signature != "0xdead" {
		t.Errorf("signature = %s", wire.Signature)
	}
}

func TestNewSaltWithinBound(t *testing.T) {
	for range 8 {
		salt, err := NewSalt()
		if err != nil {
			t.Fatalf("new salt: %v", err)
		}
		if salt.Sign() < 0 || salt.Cmp(saltBound) >= 0 {
			t.Fatalf("salt %s outside [0, 2^53)", salt)
		}
	}
}
