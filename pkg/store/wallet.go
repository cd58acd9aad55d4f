package store

import (
	"encoding/json"
	"io"
	"os"

	giga "github.com/dogecoinfoundation/gigaspend/pkg"
	"github.com/dogecoinfoundation/gigaspend/pkg/ecc"
)

// WalletFile is the JSON wallet snapshot handed over by the wallet layer.
// Private keys are hex-encoded P-256 scalars.
type WalletFile struct {
	AccountID  string                        `json:"account_id"`
	AccountKey string                        `json:"account_key"`
	Addresses  map[giga.Address]AddressEntry `json:"addresses"`
}

type AddressEntry struct {
	Type        int                  `json:"type"`
	GuarGroupID string               `json:"guar_group_id"`
	PrivKey     string               `json:"priv_key,omitempty"`
	PubKey      *giga.PublicKey      `json:"pub_key,omitempty"` // derived from PrivKey when absent
	UTXOs       map[string]giga.UTXO `json:"utxos"`
}

// LoadWallet reads a wallet snapshot from a file.
func LoadWallet(path string) (giga.Wallet, error) {
	f, err := os.Open(path)
	if err != nil {
		return giga.Wallet{}, giga.NewErr(giga.NotFound, "cannot open wallet snapshot: %v", err)
	}
	defer f.Close()
	return ReadWallet(f)
}

// ReadWallet decodes a wallet snapshot.
func ReadWallet(r io.Reader) (giga.Wallet, error) {
	var wf WalletFile
	err := json.NewDecoder(r).Decode(&wf)
	if err != nil {
		return giga.Wallet{}, giga.NewErr(giga.BadRequest, "invalid wallet snapshot: %v", err)
	}
	return wf.Wallet()
}

// Wallet converts the file form into a giga.Wallet, decoding keys.
func (wf WalletFile) Wallet() (giga.Wallet, error) {
	w := giga.Wallet{
		AccountID: wf.AccountID,
		Addresses: make(map[giga.Address]giga.AddressData, len(wf.Addresses)),
	}
	if wf.AccountKey != "" {
		key, err := ecc.PrivKeyFromHex(wf.AccountKey)
		if err != nil {
			return giga.Wallet{}, giga.NewErr(giga.BadRequest, "account key: %v", err)
		}
		w.AccountKey = key
	}
	for addr, e := range wf.Addresses {
		if !giga.ValidCoinType(e.Type) {
			return giga.Wallet{}, giga.NewErr(giga.BadRequest, "address %s: unknown currency type %d", addr, e.Type)
		}
		data := giga.AddressData{
			Type:        e.Type,
			GuarGroupID: e.GuarGroupID,
			UTXOs:       e.UTXOs,
		}
		if data.UTXOs == nil {
			data.UTXOs = map[string]giga.UTXO{}
		}
		if e.PrivKey != "" {
			key, err := ecc.PrivKeyFromHex(e.PrivKey)
			if err != nil {
				return giga.Wallet{}, giga.NewErr(giga.BadRequest, "address %s: %v", addr, err)
			}
			data.PrivKey = key
			data.PubKey = giga.PublicKeyFrom(&key.PublicKey)
		}
		if e.PubKey != nil {
			data.PubKey = *e.PubKey
		}
		w.Addresses[addr] = data
	}
	return w, nil
}
