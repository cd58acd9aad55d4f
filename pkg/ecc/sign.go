package ecc

import (
	"crypto"
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"golang.org/x/crypto/cryptobyte"
	"golang.org/x/crypto/cryptobyte/asn1"
)

// Sign produces an ECDSA signature over a SHA-256 digest.
// The nonce is derived per RFC 6979 (nil random source), so the same key and
// digest always give the same (r, s): transaction IDs commit to input
// signatures and must be reproducible.
func Sign(priv *ecdsa.PrivateKey, digest Hash256) (r, s *big.Int, err error) {
	if priv == nil {
		return nil, nil, fmt.Errorf("sign: nil private key")
	}
	der, err := priv.Sign(nil, digest, crypto.SHA256)
	if err != nil {
		return nil, nil, fmt.Errorf("sign: %v", err)
	}
	return parseDER(der)
}

// Verify checks an (r, s) signature over a digest.
func Verify(pub *ecdsa.PublicKey, digest Hash256, r, s *big.Int) bool {
	if pub == nil || r == nil || s == nil {
		return false
	}
	return ecdsa.Verify(pub, digest, r, s)
}

func parseDER(der []byte) (*big.Int, *big.Int, error) {
	r, s := new(big.Int), new(big.Int)
	var inner cryptobyte.String
	input := cryptobyte.String(der)
	if !input.ReadASN1(&inner, asn1.SEQUENCE) ||
		!input.Empty() ||
		!inner.ReadASN1Integer(r) ||
		!inner.ReadASN1Integer(s) ||
		!inner.Empty() {
		return nil, nil, fmt.Errorf("sign: malformed ASN.1 signature")
	}
	return r, s, nil
}
