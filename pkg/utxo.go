package giga

// UTXO is an Unspent Transaction Output held by one of the wallet's addresses.
// This is the wallet snapshot's record, keyed by UTXO identifier in AddressData.
type UTXO struct {
	Value    CoinAmount `json:"value"`               // amount available to spend
	Type     int        `json:"type"`                // currency type (0, 1, 2)
	Time     int64      `json:"time"`                // when the output was created (unix ms)
	Position Position   `json:"position"`            // where the output lives in the ledger
	IsTXCer  bool       `json:"is_txcer"`            // derives from a credit instrument (TXCer)
	TXCerID  string     `json:"txcer_id,omitempty"`  // instrument id when IsTXCer
	SourceTX *SourceTX  `json:"source_tx,omitempty"` // originating transaction, needed to sign
}

// SourceTX is the part of the originating transaction needed to rebuild the
// exact output bytes an input's signature commits to.
type SourceTX struct {
	TXID      string     `json:"txid"`
	TXOutputs []TXOutput `json:"outputs"`
}

// SourceOutput returns the output this UTXO refers to, or false when the
// source data is missing or does not reach the UTXO's position.
func (u UTXO) SourceOutput() (TXOutput, bool) {
	if u.SourceTX == nil || u.SourceTX.TXID == "" {
		return TXOutput{}, false
	}
	z := u.Position.IndexZ
	if z < 0 || z >= len(u.SourceTX.TXOutputs) {
		return TXOutput{}, false
	}
	return u.SourceTX.TXOutputs[z], true
}
