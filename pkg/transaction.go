package giga

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/dogecoinfoundation/gigaspend/pkg/canon"
	"github.com/dogecoinfoundation/gigaspend/pkg/ecc"
	"github.com/shopspring/decimal"
)

// The types in this file are the settlement service's wire format.
// Field names and field order are part of every hash and signature:
// do not rename, reorder or add json tags.

type Address string
type CoinAmount = decimal.Decimal

var ZeroCoins = decimal.Zero
var ChangeEpsilon = decimal.New(1, -8) // collected-required below this is dust, not change

// Currency types understood by the settlement service.
const (
	CoinTypeMain = 0
	CoinTypeAlt1 = 1
	CoinTypeAlt2 = 2
	NumCoinTypes = 3
)

func ValidCoinType(t int) bool {
	return t >= 0 && t < NumCoinTypes
}

const TXIDBytes = 8 // leading bytes of the SHA-256 kept in a TXID (16 hex chars)

// Position locates an output in the ledger; IndexZ is the output's index
// within its source transaction.
type Position struct {
	Blocknum int64
	IndexX   int
	IndexY   int
	IndexZ   int
}

type PublicKey struct {
	CurveName string
	X         *big.Int
	Y         *big.Int
}

func PublicKeyFrom(pub *ecdsa.PublicKey) PublicKey {
	return PublicKey{
		CurveName: ecc.CurveP256,
		X:         new(big.Int).Set(pub.X),
		Y:         new(big.Int).Set(pub.Y),
	}
}

func (p PublicKey) ECDSA() (*ecdsa.PublicKey, error) {
	curve, err := ecc.CurveByName(p.CurveName)
	if err != nil {
		return nil, err
	}
	if p.X == nil || p.Y == nil || !curve.IsOnCurve(p.X, p.Y) {
		return nil, fmt.Errorf("public key is not a point on %s", p.CurveName)
	}
	return &ecdsa.PublicKey{Curve: curve, X: p.X, Y: p.Y}, nil
}

// Signature is an ECDSA (r, s) pair. The zero value encodes as
// {"R":null,"S":null}, which is how unsigned fields look on the wire.
type Signature struct {
	R *big.Int
	S *big.Int
}

func (s Signature) IsZero() bool {
	return s.R == nil && s.S == nil
}

type TXOutput struct {
	ToAddress    Address
	Value        CoinAmount
	Type         int
	GuarGroupID  string
	ToPublicKey  PublicKey
	ToInterest   CoinAmount
	IsGuarMake   bool
	IsCrossChain bool
	IsPayForGas  bool
}

type TXInput struct {
	FromTXID       string
	FromTxPosition Position
	FromAddress    Address
	IsGuarMake     bool
	IsCrossChain   bool
	InputSignature Signature
	TXOutputHash   []byte // SHA-256 of the canonical referenced output
}

type InterestAssign struct {
	Gas        CoinAmount
	Output     CoinAmount
	BackAssign map[Address]CoinAmount
}

type Transaction struct {
	Version        int
	TXID           string
	Size           int
	TXType         int
	ValueDivision  map[int]CoinAmount
	NewValue       CoinAmount
	InterestAssign InterestAssign
	UserSignature  Signature
	TXInputsNormal []TXInput
	TXOutputs      []TXOutput
}

// Envelope is what gets submitted: the transaction plus the account-level
// signature the settlement service checks first.
type Envelope struct {
	UserID string
	TX     Transaction
	Height int64
	Sig    Signature
}

var (
	txMaps  = canon.SortedMaps("ValueDivision", "InterestAssign.BackAssign")
	envMaps = canon.SortedMaps("TX.ValueDivision", "TX.InterestAssign.BackAssign")

	// fields that do not contribute to the TXID (and the user signature)
	txIDExcluded = canon.Zero("TXID", "Size", "NewValue", "UserSignature", "TXType")
	envExcluded  = canon.Zero("Sig", "Height")
)

// HashOutput is the digest an input's signature commits to.
func HashOutput(out TXOutput) (ecc.Hash256, error) {
	b, err := canon.Marshal(out)
	if err != nil {
		return nil, err
	}
	return ecc.Sha256(b), nil
}

// withoutGuarantor drops inputs and outputs added by a guarantor, so a
// guarantor can extend the transaction without changing its ID.
func (tx Transaction) withoutGuarantor() Transaction {
	ins := make([]TXInput, 0, len(tx.TXInputsNormal))
	for _, in := range tx.TXInputsNormal {
		if !in.IsGuarMake {
			ins = append(ins, in)
		}
	}
	outs := make([]TXOutput, 0, len(tx.TXOutputs))
	for _, out := range tx.TXOutputs {
		if !out.IsGuarMake {
			outs = append(outs, out)
		}
	}
	tx.TXInputsNormal = ins
	tx.TXOutputs = outs
	return tx
}

// IDBytes is the canonical encoding hashed for the TXID and signed by the
// user signature.
func (tx Transaction) IDBytes() ([]byte, error) {
	return canon.Marshal(tx.withoutGuarantor(), txIDExcluded, txMaps)
}

func (tx Transaction) ComputeTXID() (string, error) {
	b, err := tx.IDBytes()
	if err != nil {
		return "", err
	}
	return ecc.HexEncode(ecc.Sha256(b)[:TXIDBytes]), nil
}

// Canonical is the full encoding of the transaction, nothing zeroed.
func (tx Transaction) Canonical() ([]byte, error) {
	return canon.Marshal(tx, txMaps)
}

// SigningBytes is the canonical encoding covered by the envelope signature.
func (env Envelope) SigningBytes() ([]byte, error) {
	return canon.Marshal(env, envExcluded, envMaps)
}

// Canonical is the submission body.
func (env Envelope) Canonical() ([]byte, error) {
	return canon.Marshal(env, envMaps)
}
