package giga

import (
	"context"
	"sort"
)

type API struct {
	Locks     LockRegistry
	Submitter Submitter
	Bus       EventSender // optional
	Config    Config
}

func NewAPI(locks LockRegistry, submitter Submitter, bus EventSender, config Config) API {
	return API{locks, submitter, bus, config}
}

// Assemble builds and signs an envelope without submitting it. UTXOs backed
// by TXCers locked by another draft are left out of selection.
func (a API) Assemble(params TxnParams, wallet Wallet) (Envelope, error) {
	locker, err := a.Locks.For(wallet.AccountID)
	if err != nil {
		return Envelope{}, err
	}
	env, err := Assemble(a.withDefaults(params), wallet, lockedTXCerUTXOs(wallet, locker))
	if err != nil {
		return Envelope{}, err
	}
	a.event(TX_ASSEMBLED, TxEvent{Account: wallet.AccountID, TXID: env.TX.TXID})
	return env, nil
}

type SendRequest struct {
	TxnParams
	GroupID string `json:"group_id"` // settlement group; defaults to config
	Reason  string `json:"reason"`   // recorded on TXCer locks
}

type SendResponse struct {
	TXID           string   `json:"txid"`            // assembled transaction id
	SettlementTXID string   `json:"settlement_txid"` // id assigned by the settlement service
	TXCers         []string `json:"txcers"`          // instruments spent
}

type TxEvent struct {
	Account        string   `json:"account"`
	TXID           string   `json:"txid"`
	SettlementTXID string   `json:"settlement_txid,omitempty"`
	TXCers         []string `json:"txcers,omitempty"`
	Error          string   `json:"error,omitempty"`
}

/*
Send assembles, signs and submits a transaction, holding any TXCers it
spends in the account's lock table for the duration:

  - lock (draft) every TXCer in the selection; if another draft holds one,
    release what was locked and fail with InstrumentBusy
  - build and sign; on failure unlock
  - submit; accepted: mark submitted; rejected, cancelled by the caller or
    never sent: unlock; transport error after sending (outcome unknown):
    mark submitted, so the settlement notification is applied whichever
    way it went

Locks record the envelope TXID; the settlement service's id goes in the
events and the response.
*/
func (a API) Send(ctx context.Context, req SendRequest, wallet Wallet) (SendResponse, error) {
	locker, err := a.Locks.For(wallet.AccountID)
	if err != nil {
		return SendResponse{}, err
	}
	params := a.withDefaults(req.TxnParams)
	sel, err := PlanSelection(params, wallet, lockedTXCerUTXOs(wallet, locker))
	if err != nil {
		return SendResponse{}, err
	}

	reason := req.Reason
	if reason == "" {
		reason = "send"
	}
	ids := selectedTXCers(sel)
	if len(ids) > 0 {
		locked := locker.Lock(ids, reason)
		if len(locked) != len(ids) {
			locker.Unlock(locked, true)
			return SendResponse{}, NewErr(InstrumentBusy, "TXCer in use by another transaction: %v", missing(ids, locked))
		}
		a.event(TXC_LOCKED, TxEvent{Account: wallet.AccountID, TXCers: ids})
	}
	release := func(why string) {
		if len(ids) > 0 {
			locker.Unlock(ids, true)
			a.event(TXC_UNLOCKED, TxEvent{Account: wallet.AccountID, TXCers: ids, Error: why})
		}
	}

	env, err := Build(params, wallet, sel)
	if err != nil {
		release(err.Error())
		return SendResponse{}, err
	}
	a.event(TX_ASSEMBLED, TxEvent{Account: wallet.AccountID, TXID: env.TX.TXID, TXCers: ids})

	body, err := env.Canonical()
	if err != nil {
		release(err.Error())
		return SendResponse{}, NewErr(UnknownError, "encoding envelope: %v", err)
	}
	group := req.GroupID
	if group == "" {
		group = a.Config.Settlement.GroupID
	}
	if ctx.Err() != nil {
		release(ctx.Err().Error())
		return SendResponse{}, NewErr(SubmitFailed, "not submitting %s: %v", env.TX.TXID, ctx.Err())
	}
	res, err := a.Submitter.Submit(ctx, body, group)
	if IsNotSent(err) {
		release(err.Error())
		return SendResponse{}, NewErr(SubmitFailed, "submitting %s: %v", env.TX.TXID, err)
	}
	if err != nil {
		if len(ids) > 0 {
			locker.MarkSubmitted(ids, env.TX.TXID, "submission outcome unknown")
			a.event(TXC_SUBMITTED, TxEvent{Account: wallet.AccountID, TXID: env.TX.TXID, TXCers: ids, Error: err.Error()})
		}
		return SendResponse{}, NewErr(SubmitFailed, "submitting %s: %v", env.TX.TXID, err)
	}
	if !res.Success {
		release(res.Error)
		a.event(TX_REJECTED, TxEvent{Account: wallet.AccountID, TXID: env.TX.TXID, Error: res.Error})
		return SendResponse{}, NewErr(SubmitFailed, "settlement rejected %s: %s", env.TX.TXID, res.Error)
	}

	if len(ids) > 0 {
		locker.MarkSubmitted(ids, env.TX.TXID, reason)
		a.event(TXC_SUBMITTED, TxEvent{Account: wallet.AccountID, TXID: env.TX.TXID, SettlementTXID: res.TXID, TXCers: ids})
	}
	a.event(TX_SUBMITTED, TxEvent{Account: wallet.AccountID, TXID: env.TX.TXID, SettlementTXID: res.TXID, TXCers: ids})
	return SendResponse{TXID: env.TX.TXID, SettlementTXID: res.TXID, TXCers: ids}, nil
}

func (a API) LockStatus(account string) (LockStatus, error) {
	locker, err := a.Locks.For(account)
	if err != nil {
		return LockStatus{}, err
	}
	return locker.GetLockStatus(), nil
}

type UnlockRequest struct {
	IDs            []string `json:"ids"`
	ProcessPending *bool    `json:"process_pending"` // default true
}

func (a API) Unlock(account string, req UnlockRequest) (LockStatus, error) {
	if len(req.IDs) == 0 {
		return LockStatus{}, NewErr(BadRequest, "no TXCer ids to unlock")
	}
	locker, err := a.Locks.For(account)
	if err != nil {
		return LockStatus{}, err
	}
	process := req.ProcessPending == nil || *req.ProcessPending
	locker.Unlock(req.IDs, process)
	a.event(TXC_UNLOCKED, TxEvent{Account: account, TXCers: req.IDs})
	return locker.GetLockStatus(), nil
}

func (a API) ForceUnlockAll(account string) (LockStatus, error) {
	locker, err := a.Locks.For(account)
	if err != nil {
		return LockStatus{}, err
	}
	locker.ForceUnlockAll()
	a.event(TXC_UNLOCKED, TxEvent{Account: account, Error: "forced"})
	return locker.GetLockStatus(), nil
}

// Notify passes a TXCer notification through the account's lock table.
func (a API) Notify(account string, update TXCerUpdate) error {
	if update.ID == "" {
		return NewErr(BadRequest, "missing TXCer id")
	}
	locker, err := a.Locks.For(account)
	if err != nil {
		return err
	}
	update.Account = account
	buffered, err := locker.Receive(update)
	if err != nil {
		return err
	}
	if buffered {
		a.event(TXC_BUFFERED, update)
	}
	return nil
}

func (a API) withDefaults(p TxnParams) TxnParams {
	if p.Version == 0 {
		p.Version = a.Config.Gigaspend.TxVersion
	}
	return p
}

func (a API) event(t EventType, msg any) {
	if a.Bus != nil {
		a.Bus.Send(t, msg)
	}
}

// lockedTXCerUTXOs lists the wallet UTXOs backed by TXCers that are
// currently locked, so selection leaves them alone.
func lockedTXCerUTXOs(w Wallet, locker TXCerLocker) UTXOSet {
	excluded := NewUTXOSet()
	for id, refs := range w.TXCerUTXOs() {
		if !locker.IsLocked(id) {
			continue
		}
		for _, r := range refs {
			excluded.Add(r.Address, r.ID)
		}
	}
	return excluded
}

func selectedTXCers(sel []Selection) []string {
	seen := map[string]bool{}
	ids := []string{}
	for _, s := range sel {
		if s.UTXO.IsTXCer && s.UTXO.TXCerID != "" && !seen[s.UTXO.TXCerID] {
			seen[s.UTXO.TXCerID] = true
			ids = append(ids, s.UTXO.TXCerID)
		}
	}
	sort.Strings(ids)
	return ids
}

func missing(want, got []string) []string {
	have := map[string]bool{}
	for _, id := range got {
		have[id] = true
	}
	result := []string{}
	for _, id := range want {
		if !have[id] {
			result = append(result, id)
		}
	}
	return result
}
