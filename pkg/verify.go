package giga

import (
	"bytes"

	"github.com/dogecoinfoundation/gigaspend/pkg/ecc"
)

// These mirror the checks the settlement service runs on a submitted
// envelope, so a client can confirm its own output before sending it.

// VerifyInput checks an input against the output it claims to spend: the
// recorded hash must match the output and the signature must verify under
// the output's public key.
func VerifyInput(in TXInput, spent TXOutput) error {
	hash, err := HashOutput(spent)
	if err != nil {
		return NewErr(InvalidTxn, "cannot encode spent output: %v", err)
	}
	if !bytes.Equal(hash, in.TXOutputHash) {
		return NewErr(InvalidTxn, "input from %s: output hash mismatch", in.FromAddress)
	}
	pub, err := spent.ToPublicKey.ECDSA()
	if err != nil {
		return NewErr(InvalidTxn, "input from %s: %v", in.FromAddress, err)
	}
	if !ecc.Verify(pub, hash, in.InputSignature.R, in.InputSignature.S) {
		return NewErr(InvalidTxn, "input from %s: bad signature", in.FromAddress)
	}
	return nil
}

// VerifyTransaction recomputes the TXID and checks the user signature
// against the key of the first input's address.
func VerifyTransaction(tx Transaction, user PublicKey) error {
	id, err := tx.ComputeTXID()
	if err != nil {
		return NewErr(InvalidTxn, "cannot encode transaction: %v", err)
	}
	if id != tx.TXID {
		return NewErr(InvalidTxn, "TXID mismatch: have %s, computed %s", tx.TXID, id)
	}
	b, err := tx.IDBytes()
	if err != nil {
		return NewErr(InvalidTxn, "cannot encode transaction: %v", err)
	}
	pub, err := user.ECDSA()
	if err != nil {
		return NewErr(InvalidTxn, "user key: %v", err)
	}
	if !ecc.Verify(pub, ecc.Sha256(b), tx.UserSignature.R, tx.UserSignature.S) {
		return NewErr(InvalidTxn, "transaction %s: bad user signature", tx.TXID)
	}
	return nil
}

// VerifyEnvelope checks the account-level signature.
func VerifyEnvelope(env Envelope, account PublicKey) error {
	b, err := env.SigningBytes()
	if err != nil {
		return NewErr(InvalidTxn, "cannot encode envelope: %v", err)
	}
	pub, err := account.ECDSA()
	if err != nil {
		return NewErr(InvalidTxn, "account key: %v", err)
	}
	if !ecc.Verify(pub, ecc.Sha256(b), env.Sig.R, env.Sig.S) {
		return NewErr(InvalidTxn, "envelope for %s: bad signature", env.UserID)
	}
	return nil
}
