package store_test

import (
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	giga "github.com/dogecoinfoundation/gigaspend/pkg"
	"github.com/dogecoinfoundation/gigaspend/pkg/store"
	"github.com/stretchr/testify/require"
)

func TestLockStore(t *testing.T) {

	// implementations to test
	stores := map[string]giga.LockStore{}
	stores["mock"] = store.NewMock()

	// :memory: or postgres://postgres:@localhost/testdb?sslmode=disable
	s1, err := store.NewSQLite(":memory:")
	require.NoError(t, err)
	defer s1.Close()
	stores["sqlite"] = s1

	if dsn := os.Getenv("GIGA_TEST_POSTGRES"); dsn != "" {
		s2, err := store.NewPostgresStore(dsn)
		require.NoError(t, err)
		defer s2.Close()
		stores["postgres"] = s2
	}

	locked := time.Date(2024, 3, 1, 12, 30, 15, 123456789, time.UTC)

	for storeName, s := range stores {

		//create a unique test name
		n := func(name string) string {
			return fmt.Sprintf("Store-%s-%s", storeName, name)
		}

		t.Run(n("Empty"), func(t *testing.T) {
			locks, err := s.LoadLocks("nobody")
			require.NoError(t, err)
			require.Empty(t, locks)
		})

		t.Run(n("RoundTrip"), func(t *testing.T) {
			want := []giga.TXCerLock{
				{ID: "cer-a", LockedAt: locked, Mode: giga.LockDraft, Reason: "drafting payment"},
				{ID: "cer-b", LockedAt: locked.Add(time.Minute), Mode: giga.LockSubmitted, Reason: "sent", TxID: "0123456789abcdef"},
			}
			require.NoError(t, s.SaveLocks("acct-1", want))

			got, err := s.LoadLocks("acct-1")
			require.NoError(t, err)
			require.Len(t, got, 2)
			for i := range want {
				require.Equal(t, want[i].ID, got[i].ID)
				require.True(t, want[i].LockedAt.Equal(got[i].LockedAt), "locked_at %v != %v", want[i].LockedAt, got[i].LockedAt)
				require.Equal(t, want[i].Mode, got[i].Mode)
				require.Equal(t, want[i].Reason, got[i].Reason)
				require.Equal(t, want[i].TxID, got[i].TxID)
			}
		})

		t.Run(n("Replace"), func(t *testing.T) {
			require.NoError(t, s.SaveLocks("acct-2", []giga.TXCerLock{
				{ID: "x", LockedAt: locked, Mode: giga.LockDraft},
				{ID: "y", LockedAt: locked, Mode: giga.LockDraft},
			}))
			require.NoError(t, s.SaveLocks("acct-2", []giga.TXCerLock{
				{ID: "y", LockedAt: locked, Mode: giga.LockSubmitted, TxID: "t1"},
			}))
			got, err := s.LoadLocks("acct-2")
			require.NoError(t, err)
			require.Len(t, got, 1)
			require.Equal(t, "y", got[0].ID)
			require.Equal(t, giga.LockSubmitted, got[0].Mode)

			require.NoError(t, s.SaveLocks("acct-2", nil))
			got, err = s.LoadLocks("acct-2")
			require.NoError(t, err)
			require.Empty(t, got)
		})

		t.Run(n("AccountsAreSeparate"), func(t *testing.T) {
			require.NoError(t, s.SaveLocks("acct-3", []giga.TXCerLock{{ID: "shared", LockedAt: locked, Mode: giga.LockDraft}}))
			require.NoError(t, s.SaveLocks("acct-4", []giga.TXCerLock{{ID: "shared", LockedAt: locked, Mode: giga.LockSubmitted}}))
			a, err := s.LoadLocks("acct-3")
			require.NoError(t, err)
			b, err := s.LoadLocks("acct-4")
			require.NoError(t, err)
			require.Equal(t, giga.LockDraft, a[0].Mode)
			require.Equal(t, giga.LockSubmitted, b[0].Mode)
		})
	}
}

const walletJSON = `{
	"account_id": "acct-1",
	"account_key": "c9afa9d845ba75166b5c215767b1d6934e50c3db36e89b127b8a622b120f6721",
	"addresses": {
		"addr-main": {
			"type": 0,
			"guar_group_id": "g1",
			"priv_key": "0000000000000000000000000000000000000000000000000000000000000001",
			"utxos": {
				"u1": {
					"value": "2.5",
					"type": 0,
					"time": 1700000000000,
					"position": {"Blocknum": 7, "IndexX": 1, "IndexY": 0, "IndexZ": 0},
					"is_txcer": true,
					"txcer_id": "cer-1",
					"source_tx": {
						"txid": "00112233aabbccdd",
						"outputs": [{"ToAddress": "addr-main", "Value": 2.5, "Type": 0, "GuarGroupID": "g1",
							"ToPublicKey": {"CurveName": "P256", "X": 1, "Y": 2}, "ToInterest": 0,
							"IsGuarMake": false, "IsCrossChain": false, "IsPayForGas": false}]
					}
				}
			}
		},
		"addr-watch": {"type": 1}
	}
}`

func TestReadWallet(t *testing.T) {
	w, err := store.ReadWallet(strings.NewReader(walletJSON))
	require.NoError(t, err)
	require.Equal(t, "acct-1", w.AccountID)
	require.NotNil(t, w.AccountKey)

	main := w.Addresses["addr-main"]
	require.NotNil(t, main.PrivKey)
	require.Equal(t, "P256", main.PubKey.CurveName)
	// the key for scalar 1 is the curve's base point
	require.Equal(t, 0, main.PubKey.X.Cmp(main.PrivKey.Curve.Params().Gx))
	require.Equal(t, "g1", main.GuarGroupID)

	u := main.UTXOs["u1"]
	require.Equal(t, "2.5", u.Value.String())
	require.True(t, u.IsTXCer)
	require.Equal(t, "cer-1", u.TXCerID)
	require.Equal(t, int64(7), u.Position.Blocknum)
	out, ok := u.SourceOutput()
	require.True(t, ok)
	require.Equal(t, giga.Address("addr-main"), out.ToAddress)
	require.Equal(t, int64(2), out.ToPublicKey.Y.Int64())

	watch := w.Addresses["addr-watch"]
	require.Nil(t, watch.PrivKey)
	require.Equal(t, 1, watch.Type)
	require.NotNil(t, watch.UTXOs)

	require.Equal(t, []string{"cer-1"}, keysOf(w.TXCerUTXOs()))
}

func TestReadWalletErrors(t *testing.T) {
	_, err := store.ReadWallet(strings.NewReader(`{"addresses": {"a": {"type": 9}}}`))
	require.True(t, giga.IsError(err, giga.BadRequest))

	_, err = store.ReadWallet(strings.NewReader(`{"account_key": "zz"}`))
	require.True(t, giga.IsError(err, giga.BadRequest))

	_, err = store.ReadWallet(strings.NewReader(`{`))
	require.True(t, giga.IsError(err, giga.BadRequest))

	_, err = store.LoadWallet("/nonexistent/wallet.json")
	require.True(t, giga.IsNotFoundError(err))
}

func keysOf[V any](m map[string]V) []string {
	keys := []string{}
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}
