package giga

import (
	"sort"
)

// Selection is one UTXO picked to fund a transaction.
type Selection struct {
	Address Address // spending address
	ID      string  // UTXO identifier within the address
	UTXO    UTXO
}

// SelectUTXOs greedily picks UTXOs until every currency in required is
// covered. Addresses are visited in the order given and UTXOs within an
// address in ascending id order, so the same wallet and request always
// produce the same selection (and therefore the same input order).
//
// Skipped: UTXOs of a currency that is not required or already covered,
// non-positive values, UTXOs without complete source data (they could not
// be signed), and anything in excluded.
func SelectUTXOs(from []Address, addresses map[Address]AddressData, required map[int]CoinAmount, excluded UTXOSet) ([]Selection, error) {
	collected := map[int]CoinAmount{}
	taken := NewUTXOSet()
	picked := []Selection{}
	for _, addr := range from {
		if covered(required, collected) {
			break
		}
		data, found := addresses[addr]
		if !found {
			return nil, NewErr(NotFound, "source address is not in the wallet: %s", addr)
		}
		for _, id := range sortedUTXOIDs(data.UTXOs) {
			utxo := data.UTXOs[id]
			need, wanted := required[utxo.Type]
			if !wanted || collected[utxo.Type].GreaterThanOrEqual(need) {
				continue
			}
			if !utxo.Value.IsPositive() {
				continue
			}
			if _, ok := utxo.SourceOutput(); !ok {
				continue
			}
			// Exclude UTXOs reserved elsewhere, or listed twice via a repeated address.
			if excluded.Includes(addr, id) || taken.Includes(addr, id) {
				continue
			}
			taken.Add(addr, id)
			picked = append(picked, Selection{Address: addr, ID: id, UTXO: utxo})
			collected[utxo.Type] = collected[utxo.Type].Add(utxo.Value)
		}
	}
	for _, t := range sortedCoinTypes(required) {
		have := collected[t]
		if have.LessThan(required[t]) {
			return nil, NewErr(InsufficientFunds,
				"insufficient funds in currency type %d: required %s, available %s, short by %s",
				t, required[t].String(), have.String(), required[t].Sub(have).String())
		}
	}
	return picked, nil
}

// SumSelected totals the selected value per currency.
func SumSelected(sel []Selection) map[int]CoinAmount {
	totals := map[int]CoinAmount{}
	for _, s := range sel {
		totals[s.UTXO.Type] = totals[s.UTXO.Type].Add(s.UTXO.Value)
	}
	return totals
}

func covered(required, collected map[int]CoinAmount) bool {
	for t, need := range required {
		if collected[t].LessThan(need) {
			return false
		}
	}
	return true
}

func sortedUTXOIDs(utxos map[string]UTXO) []string {
	ids := make([]string, 0, len(utxos))
	for id := range utxos {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func sortedCoinTypes[V any](m map[int]V) []int {
	types := make([]int, 0, len(m))
	for t := range m {
		types = append(types, t)
	}
	sort.Ints(types)
	return types
}
