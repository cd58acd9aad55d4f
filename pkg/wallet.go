package giga

import "crypto/ecdsa"

// Wallet is a snapshot of the keys and spendable outputs of one account,
// supplied by the wallet layer for a single transaction construction.
/*
 -- Keys
	 - AccountKey signs the Envelope (account-level authenticity)
	 - each AddressData.PrivKey signs inputs spending that address, and the
	   first input's key also signs the Transaction (user signature)
*/
type Wallet struct {
	AccountID  string
	AccountKey *ecdsa.PrivateKey
	Addresses  map[Address]AddressData
}

type AddressData struct {
	Type        int               // currency type held by this address
	GuarGroupID string            // guarantor group the address belongs to
	PrivKey     *ecdsa.PrivateKey // nil when the wallet cannot spend from it
	PubKey      PublicKey
	UTXOs       map[string]UTXO // by UTXO identifier
}

// Balance sums the spendable value held by an address.
func (a AddressData) Balance() CoinAmount {
	total := ZeroCoins
	for _, utxo := range a.UTXOs {
		total = total.Add(utxo.Value)
	}
	return total
}

// TXCerUTXOs lists the UTXO ids in the wallet that are backed by the given
// instruments, keyed by instrument id.
func (w Wallet) TXCerUTXOs() map[string][]UTXORef {
	result := map[string][]UTXORef{}
	for addr, data := range w.Addresses {
		for id, utxo := range data.UTXOs {
			if utxo.IsTXCer && utxo.TXCerID != "" {
				result[utxo.TXCerID] = append(result[utxo.TXCerID], UTXORef{Address: addr, ID: id})
			}
		}
	}
	return result
}
