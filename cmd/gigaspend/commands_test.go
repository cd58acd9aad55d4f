package main

import (
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	giga "github.com/dogecoinfoundation/gigaspend/pkg"
	"github.com/dogecoinfoundation/gigaspend/pkg/ecc"
	"github.com/dogecoinfoundation/gigaspend/pkg/store"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestAdminAPIURL(t *testing.T) {
	c := giga.TestConfig()
	c.WebAPI.Port = "8092"
	u, err := adminAPIURL(c, "", "/locks/acct-1")
	require.NoError(t, err)
	require.Equal(t, "http://localhost:8092/locks/acct-1", u)

	u, err = adminAPIURL(c, "https://admin.example:9000/", "/locks/acct-1/unlock")
	require.NoError(t, err)
	require.Equal(t, "https://admin.example:9000/locks/acct-1/unlock", u)
}

func TestCallAdmin(t *testing.T) {
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		body = string(b)
		if r.URL.Path == "/missing" {
			w.WriteHeader(404)
			w.Write([]byte(`{"error":{"code":"not-found","message":"nope"}}`))
			return
		}
		w.Write([]byte(`{"account":"acct-1","locks":[{"id":"cer-1","mode":"draft"}],"pending":{}}`))
	}))
	defer srv.Close()

	var status giga.LockStatus
	err := callAdmin("POST", srv.URL+"/locks/acct-1/unlock", giga.UnlockRequest{IDs: []string{"cer-1"}}, &status)
	require.NoError(t, err)
	require.Equal(t, `{"ids":["cer-1"],"process_pending":null}`, body)
	require.Equal(t, "acct-1", status.Account)
	require.Equal(t, giga.LockDraft, status.Locks[0].Mode)

	err = callAdmin("GET", srv.URL+"/missing", nil, &status)
	require.Error(t, err)
	require.Contains(t, err.Error(), "404")
}

// txcerWallet holds two TXCer-backed UTXOs of 3 at addr-a.
func txcerWallet(t *testing.T) giga.Wallet {
	key, err := ecc.PrivKeyFromHex(strings.Repeat("11", 32))
	require.NoError(t, err)
	pub := giga.PublicKeyFrom(&key.PublicKey)
	utxos := map[string]giga.UTXO{}
	for _, id := range []string{"cer-1", "cer-2"} {
		out := giga.TXOutput{ToAddress: "addr-a", Value: decimal.NewFromInt(3), GuarGroupID: "g1", ToPublicKey: pub, ToInterest: giga.ZeroCoins}
		utxos["u-"+id] = giga.UTXO{
			Value:    decimal.NewFromInt(3),
			IsTXCer:  true,
			TXCerID:  id,
			SourceTX: &giga.SourceTX{TXID: "src-" + id, TXOutputs: []giga.TXOutput{out}},
		}
	}
	return giga.Wallet{
		AccountID:  "acct-cli",
		AccountKey: key,
		Addresses: map[giga.Address]giga.AddressData{
			"addr-a": {GuarGroupID: "g1", PrivKey: key, PubKey: pub, UTXOs: utxos},
		},
	}
}

func TestAssembleSkipsStoredLocks(t *testing.T) {
	c := giga.TestConfig()
	c.Store.DBFile = filepath.Join(t.TempDir(), "locks.db")
	db, err := store.NewSQLite(c.Store.DBFile)
	require.NoError(t, err)
	err = db.SaveLocks("acct-cli", []giga.TXCerLock{{ID: "cer-1", LockedAt: time.Now(), Mode: giga.LockDraft, Reason: "other draft"}})
	require.NoError(t, err)
	db.Close()

	params := giga.TxnParams{
		From:  []giga.Address{"addr-a"},
		Bills: []giga.Bill{{To: "addr-payee", Amount: decimal.NewFromInt(3)}},
	}
	env, err := assembleLocal(c, params, txcerWallet(t))
	require.NoError(t, err)
	require.Len(t, env.TX.TXInputsNormal, 1)
	require.Equal(t, "src-cer-2", env.TX.TXInputsNormal[0].FromTXID)

	// with both held there is nothing left to spend
	db, err = store.NewSQLite(c.Store.DBFile)
	require.NoError(t, err)
	err = db.SaveLocks("acct-cli", []giga.TXCerLock{
		{ID: "cer-1", LockedAt: time.Now(), Mode: giga.LockDraft},
		{ID: "cer-2", LockedAt: time.Now(), Mode: giga.LockSubmitted, TxID: "00112233aabbccdd"},
	})
	require.NoError(t, err)
	db.Close()
	_, err = assembleLocal(c, params, txcerWallet(t))
	require.True(t, giga.IsInsufficientFunds(err), "got %v", err)
}
