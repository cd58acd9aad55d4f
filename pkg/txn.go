package giga

import (
	"crypto/ecdsa"

	"github.com/dogecoinfoundation/gigaspend/pkg/ecc"
)

// Bill is one payment to a recipient.
type Bill struct {
	To           Address    `json:"to"`
	Amount       CoinAmount `json:"amount"`
	Type         int        `json:"type"`
	PublicKey    PublicKey  `json:"public_key"`
	GuarGroupID  string     `json:"guar_group_id"`
	Interest     CoinAmount `json:"interest"`
	IsCrossChain bool       `json:"is_cross_chain"`
}

// TxnParams describes the transaction the caller wants built.
type TxnParams struct {
	From            []Address       `json:"from"`             // source addresses, in spending order
	Bills           []Bill          `json:"bills"`            // one output per bill
	ChangeAddresses map[int]Address `json:"change_addresses"` // by currency type
	ExchangeAmount  CoinAmount      `json:"exchange_amount"`  // main currency exchanged to pay for gas
	Gas             CoinAmount      `json:"gas"`              // flat gas fee
	TXType          int             `json:"tx_type"`
	Version         int             `json:"version"`
}

// Assemble selects UTXOs, builds and signs a transaction and wraps it in a
// signed Envelope ready for submission.
//
// Three signatures are produced, each over its own encoding with its own key:
// every input signs the hash of the output it spends with its address key;
// the first input's address key signs the transaction (UserSignature);
// the account key signs the envelope.
//
// Any error aborts construction; nothing is retried.
func Assemble(p TxnParams, w Wallet, excluded UTXOSet) (Envelope, error) {
	sel, err := PlanSelection(p, w, excluded)
	if err != nil {
		return Envelope{}, err
	}
	return Build(p, w, sel)
}

// PlanSelection picks the UTXOs that Assemble would spend.
func PlanSelection(p TxnParams, w Wallet, excluded UTXOSet) ([]Selection, error) {
	required, err := requiredValue(p)
	if err != nil {
		return nil, err
	}
	return SelectUTXOs(p.From, w.Addresses, required, excluded)
}

// Build builds and signs the transaction spending a planned selection.
func Build(p TxnParams, w Wallet, sel []Selection) (Envelope, error) {
	required, err := requiredValue(p)
	if err != nil {
		return Envelope{}, err
	}
	if len(sel) < 1 {
		return Envelope{}, NewErr(InvalidTxn, "Invalid transaction: no inputs were selected.")
	}
	collected := SumSelected(sel)
	for _, t := range sortedCoinTypes(required) {
		if collected[t].LessThan(required[t]) {
			return Envelope{}, NewErr(InsufficientFunds, "insufficient funds in currency type %d: required %s, selected %s", t, required[t].String(), collected[t].String())
		}
	}
	// Check every key before signing anything.
	for _, s := range sel {
		if w.Addresses[s.Address].PrivKey == nil {
			return Envelope{}, NewErr(MissingKey, "no private key for source address %s", s.Address)
		}
	}
	if w.AccountKey == nil {
		return Envelope{}, NewErr(MissingKey, "no account key for account %s", w.AccountID)
	}

	outputs, err := buildOutputs(p, w, required, collected)
	if err != nil {
		return Envelope{}, err
	}
	inputs, err := buildInputs(sel, w)
	if err != nil {
		return Envelope{}, err
	}

	version := p.Version
	if version == 0 {
		version = 1
	}
	tx := Transaction{
		Version:        version,
		TXType:         p.TXType,
		ValueDivision:  required,
		NewValue:       ZeroCoins,
		InterestAssign: assignInterest(p, sel, outputs),
		TXInputsNormal: inputs,
		TXOutputs:      outputs,
	}
	tx.TXID, err = tx.ComputeTXID()
	if err != nil {
		return Envelope{}, NewErr(UnknownError, "computing TXID: %v", err)
	}
	full, err := tx.Canonical()
	if err != nil {
		return Envelope{}, NewErr(UnknownError, "encoding transaction: %v", err)
	}
	tx.Size = len(full)

	err = signTransaction(&tx, w.Addresses[sel[0].Address].PrivKey)
	if err != nil {
		return Envelope{}, err
	}
	env := Envelope{UserID: w.AccountID, TX: tx, Height: 0}
	err = signEnvelope(&env, w.AccountKey)
	if err != nil {
		return Envelope{}, err
	}
	return env, nil
}

// requiredValue is the amount to collect per currency: all bills plus the
// gas exchange amount (taken in the main currency).
func requiredValue(p TxnParams) (map[int]CoinAmount, error) {
	if len(p.Bills) < 1 {
		return nil, NewErr(InvalidTxn, "Invalid transaction: no bills to pay.")
	}
	required := map[int]CoinAmount{}
	for _, b := range p.Bills {
		if b.To == "" {
			return nil, NewErr(InvalidTxn, "Invalid transaction output: missing 'to' address in the request.")
		}
		if !b.Amount.IsPositive() {
			return nil, NewErr(InvalidTxn, "Invalid transaction output: the amount paid to %s is negative or zero.", b.To)
		}
		if !ValidCoinType(b.Type) {
			return nil, NewErr(InvalidTxn, "Invalid transaction output: unknown currency type %d for %s.", b.Type, b.To)
		}
		required[b.Type] = required[b.Type].Add(b.Amount)
	}
	if p.ExchangeAmount.IsNegative() {
		return nil, NewErr(InvalidTxn, "Invalid transaction: the exchange amount is negative.")
	}
	if p.ExchangeAmount.IsPositive() {
		required[CoinTypeMain] = required[CoinTypeMain].Add(p.ExchangeAmount)
	}
	return required, nil
}

func buildOutputs(p TxnParams, w Wallet, required, collected map[int]CoinAmount) ([]TXOutput, error) {
	outputs := make([]TXOutput, 0, len(p.Bills)+len(required)+1)
	for _, b := range p.Bills {
		outputs = append(outputs, TXOutput{
			ToAddress:    b.To,
			Value:        b.Amount,
			Type:         b.Type,
			GuarGroupID:  b.GuarGroupID,
			ToPublicKey:  b.PublicKey,
			ToInterest:   b.Interest,
			IsCrossChain: b.IsCrossChain,
		})
	}
	for _, t := range sortedCoinTypes(required) {
		change := collected[t].Sub(required[t])
		if !change.GreaterThan(ChangeEpsilon) {
			continue // exact, or dust
		}
		out, err := changeOutput(p, w, t, change)
		if err != nil {
			return nil, err
		}
		outputs = append(outputs, out)
	}
	if p.ExchangeAmount.IsPositive() {
		outputs = append(outputs, TXOutput{
			ToAddress:   "",
			Value:       p.ExchangeAmount,
			Type:        CoinTypeMain,
			ToInterest:  ZeroCoins,
			IsPayForGas: true,
		})
	}
	return outputs, nil
}

func changeOutput(p TxnParams, w Wallet, coinType int, change CoinAmount) (TXOutput, error) {
	addr, found := p.ChangeAddresses[coinType]
	if !found || addr == "" {
		return TXOutput{}, NewErr(InvalidChange, "no change address for currency type %d (change of %s)", coinType, change.String())
	}
	data, found := w.Addresses[addr]
	if !found {
		return TXOutput{}, NewErr(InvalidChange, "change address %s is not in the wallet", addr)
	}
	if data.Type != coinType {
		return TXOutput{}, NewErr(InvalidChange, "change address %s holds currency type %d, not %d", addr, data.Type, coinType)
	}
	pub := data.PubKey
	if pub.X == nil && data.PrivKey != nil {
		pub = PublicKeyFrom(&data.PrivKey.PublicKey)
	}
	return TXOutput{
		ToAddress:   addr,
		Value:       change,
		Type:        coinType,
		GuarGroupID: data.GuarGroupID,
		ToPublicKey: pub,
		ToInterest:  ZeroCoins,
	}, nil
}

// buildInputs rebuilds each spent output exactly as its source transaction
// recorded it, hashes it and signs the hash with the spending address key.
func buildInputs(sel []Selection, w Wallet) ([]TXInput, error) {
	inputs := make([]TXInput, 0, len(sel))
	for _, s := range sel {
		src, ok := s.UTXO.SourceOutput()
		if !ok {
			return nil, NewErr(MissingSource, "UTXO %s of %s has no source output at position %d", s.ID, s.Address, s.UTXO.Position.IndexZ)
		}
		if src.ToAddress != s.Address {
			return nil, NewErr(MissingSource, "UTXO %s: source output pays %s, not %s", s.ID, src.ToAddress, s.Address)
		}
		hash, err := HashOutput(src)
		if err != nil {
			return nil, NewErr(MissingSource, "UTXO %s: cannot encode source output: %v", s.ID, err)
		}
		r, sig, err := ecc.Sign(w.Addresses[s.Address].PrivKey, hash)
		if err != nil {
			return nil, NewErr(UnknownError, "UTXO %s: %v", s.ID, err)
		}
		inputs = append(inputs, TXInput{
			FromTXID:       s.UTXO.SourceTX.TXID,
			FromTxPosition: s.UTXO.Position,
			FromAddress:    s.Address,
			InputSignature: Signature{R: r, S: sig},
			TXOutputHash:   hash,
		})
	}
	return inputs, nil
}

// assignInterest totals the interest carried by the outputs and assigns it
// back to the source addresses in proportion to the value each contributed.
// Shares are rounded to 8 dp and the last contributor (in selection order)
// takes the remainder, so the shares always add up to the total.
func assignInterest(p TxnParams, sel []Selection, outputs []TXOutput) InterestAssign {
	total := ZeroCoins
	for _, out := range outputs {
		total = total.Add(out.ToInterest)
	}
	back := map[Address]CoinAmount{}
	if total.IsPositive() {
		contributed := map[Address]CoinAmount{}
		order := []Address{}
		sum := ZeroCoins
		for _, s := range sel {
			if _, seen := contributed[s.Address]; !seen {
				order = append(order, s.Address)
			}
			contributed[s.Address] = contributed[s.Address].Add(s.UTXO.Value)
			sum = sum.Add(s.UTXO.Value)
		}
		assigned := ZeroCoins
		for i, addr := range order {
			if i == len(order)-1 {
				back[addr] = total.Sub(assigned)
				break
			}
			share := total.Mul(contributed[addr]).Div(sum).Round(8)
			back[addr] = share
			assigned = assigned.Add(share)
		}
	}
	gas := p.Gas
	if gas.IsNegative() {
		gas = ZeroCoins
	}
	return InterestAssign{Gas: gas, Output: total, BackAssign: back}
}

func signTransaction(tx *Transaction, priv *ecdsa.PrivateKey) error {
	b, err := tx.IDBytes()
	if err != nil {
		return NewErr(UnknownError, "encoding transaction: %v", err)
	}
	r, s, err := ecc.Sign(priv, ecc.Sha256(b))
	if err != nil {
		return NewErr(UnknownError, "user signature: %v", err)
	}
	tx.UserSignature = Signature{R: r, S: s}
	return nil
}

func signEnvelope(env *Envelope, priv *ecdsa.PrivateKey) error {
	b, err := env.SigningBytes()
	if err != nil {
		return NewErr(UnknownError, "encoding envelope: %v", err)
	}
	r, s, err := ecc.Sign(priv, ecc.Sha256(b))
	if err != nil {
		return NewErr(UnknownError, "envelope signature: %v", err)
	}
	env.Sig = Signature{R: r, S: s}
	return nil
}
