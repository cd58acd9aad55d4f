package giga

// UTXORef names one UTXO in a wallet: the composite key for UTXOSet.
type UTXORef struct {
	Address Address // owning address
	ID      string  // UTXO identifier within the address
}

// UTXOSet is a set of UTXORefs, used to keep UTXOs out of selection.
type UTXOSet struct {
	used map[UTXORef]bool
}

func NewUTXOSet() UTXOSet {
	return UTXOSet{
		used: map[UTXORef]bool{},
	}
}

func (u *UTXOSet) Add(addr Address, id string) {
	u.used[UTXORef{Address: addr, ID: id}] = true
}

// Includes is safe on the zero UTXOSet (nothing included).
func (u *UTXOSet) Includes(addr Address, id string) bool {
	return u.used[UTXORef{Address: addr, ID: id}]
}

func (u *UTXOSet) Len() int {
	return len(u.used)
}
