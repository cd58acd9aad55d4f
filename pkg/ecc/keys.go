package ecc

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	CurveP256  = "P256" // curve name carried in public keys on the wire
	PrivKeyLen = 32     // bytes.
)

// CurveByName returns the curve for a wire curve name.
// The settlement service only verifies P-256 signatures.
func CurveByName(name string) (elliptic.Curve, error) {
	switch name {
	case CurveP256, "P-256", "p256":
		return elliptic.P256(), nil
	}
	return nil, fmt.Errorf("unsupported curve: %q", name)
}

// GenerateKey creates a new P-256 key pair.
func GenerateKey() (*ecdsa.PrivateKey, error) {
	return ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
}

// PrivKeyFromHex decodes a hex-encoded 32-byte P-256 scalar and derives
// the matching public key.
func PrivKeyFromHex(str string) (*ecdsa.PrivateKey, error) {
	raw, err := HexDecode(str)
	if err != nil {
		return nil, fmt.Errorf("private key: invalid hex: %v", err)
	}
	if len(raw) != PrivKeyLen {
		return nil, fmt.Errorf("private key: expected %d bytes, got %d", PrivKeyLen, len(raw))
	}
	curve := elliptic.P256()
	d := new(big.Int).SetBytes(raw)
	if d.Sign() == 0 || d.Cmp(curve.Params().N) >= 0 {
		return nil, fmt.Errorf("private key: scalar out of range")
	}
	priv := &ecdsa.PrivateKey{D: d}
	priv.PublicKey.Curve = curve
	priv.PublicKey.X, priv.PublicKey.Y = curve.ScalarBaseMult(raw)
	return priv, nil
}

// PrivKeyToHex encodes the private scalar as 32 bytes of hex.
func PrivKeyToHex(priv *ecdsa.PrivateKey) string {
	buf := make([]byte, PrivKeyLen)
	return HexEncode(priv.D.FillBytes(buf))
}
