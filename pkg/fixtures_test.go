package giga_test

import (
	"crypto/ecdsa"
	"strings"
	"testing"

	giga "github.com/dogecoinfoundation/gigaspend/pkg"
	"github.com/dogecoinfoundation/gigaspend/pkg/ecc"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const (
	addrA       giga.Address = "addr-a"
	addrB       giga.Address = "addr-b"
	addrAlt     giga.Address = "addr-alt"
	addrChange0 giga.Address = "addr-change-0"
	addrChange1 giga.Address = "addr-change-1"
	addrWatch   giga.Address = "addr-watch" // no private key
	addrPayee   giga.Address = "addr-payee"
	addrPayee2  giga.Address = "addr-payee-2"
)

func coins(s string) giga.CoinAmount {
	return decimal.RequireFromString(s)
}

func mustKey(t testing.TB, fill string) *ecdsa.PrivateKey {
	key, err := ecc.PrivKeyFromHex(strings.Repeat(fill, 32))
	require.NoError(t, err)
	return key
}

// newWallet builds a wallet with empty addresses of each kind the tests use.
func newWallet(t testing.TB) giga.Wallet {
	w := giga.Wallet{
		AccountID:  "acct-1",
		AccountKey: mustKey(t, "0a"),
		Addresses:  map[giga.Address]giga.AddressData{},
	}
	add := func(addr giga.Address, coinType int, fill string) {
		data := giga.AddressData{Type: coinType, GuarGroupID: "group-1", UTXOs: map[string]giga.UTXO{}}
		if fill != "" {
			data.PrivKey = mustKey(t, fill)
			data.PubKey = giga.PublicKeyFrom(&data.PrivKey.PublicKey)
		}
		w.Addresses[addr] = data
	}
	add(addrA, giga.CoinTypeMain, "11")
	add(addrB, giga.CoinTypeMain, "22")
	add(addrAlt, giga.CoinTypeAlt1, "33")
	add(addrChange0, giga.CoinTypeMain, "44")
	add(addrChange1, giga.CoinTypeAlt1, "55")
	add(addrWatch, giga.CoinTypeMain, "")
	return w
}

// addUTXO gives addr a spendable UTXO. Its source transaction has the
// UTXO's output at index 1, after an unrelated output.
func addUTXO(w giga.Wallet, addr giga.Address, id string, value string, coinType int) giga.UTXO {
	data := w.Addresses[addr]
	out := giga.TXOutput{
		ToAddress:   addr,
		Value:       coins(value),
		Type:        coinType,
		GuarGroupID: data.GuarGroupID,
		ToPublicKey: data.PubKey,
		ToInterest:  giga.ZeroCoins,
	}
	other := giga.TXOutput{ToAddress: "addr-elsewhere", Value: coins("1"), ToInterest: giga.ZeroCoins}
	utxo := giga.UTXO{
		Value:    coins(value),
		Type:     coinType,
		Time:     1700000000000,
		Position: giga.Position{Blocknum: 42, IndexX: 3, IndexY: 0, IndexZ: 1},
		SourceTX: &giga.SourceTX{TXID: "src-" + string(addr) + "-" + id, TXOutputs: []giga.TXOutput{other, out}},
	}
	data.UTXOs[id] = utxo
	return utxo
}

func addTXCerUTXO(w giga.Wallet, addr giga.Address, id string, value string, coinType int, txcer string) {
	utxo := addUTXO(w, addr, id, value, coinType)
	utxo.IsTXCer = true
	utxo.TXCerID = txcer
	w.Addresses[addr].UTXOs[id] = utxo
}

func pay(to giga.Address, amount string, coinType int) giga.Bill {
	return giga.Bill{To: to, Amount: coins(amount), Type: coinType}
}

func pubOf(w giga.Wallet, addr giga.Address) giga.PublicKey {
	return giga.PublicKeyFrom(&w.Addresses[addr].PrivKey.PublicKey)
}

func requireCode(t testing.TB, err error, code giga.ErrorCode) {
	t.Helper()
	require.Error(t, err)
	require.True(t, giga.IsError(err, code), "want %s, got %v", code, err)
}
