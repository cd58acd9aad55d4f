package txcer

import (
	"sort"
	"sync"
	"time"

	giga "github.com/dogecoinfoundation/gigaspend/pkg"
	"go.uber.org/zap"
)

// Clock is the Manager's source of time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

type Option func(*Manager)

func WithClock(c Clock) Option {
	return func(m *Manager) { m.clock = c }
}

func WithLogger(l *zap.SugaredLogger) Option {
	return func(m *Manager) { m.log = l }
}

// WithSweepInterval overrides the configured sweep tick.
func WithSweepInterval(d time.Duration) Option {
	return func(m *Manager) { m.sweepInterval = d }
}

/*
Manager guards one account's TXCers against a race between a transaction
being drafted and settlement notifications arriving for the instruments it
spends.

	unlocked --Lock--> draft --MarkSubmitted--> submitted
	    ^                |                          |
	    +---- Unlock / draft timeout    Unlock / submitted timeout

While an instrument is in draft, terminal notifications are buffered (one
per instrument, latest wins) and replayed through the handler when the
instrument is unlocked. Everything else goes straight to the handler.

All state changes happen under one mutex; the handler is always called
after it is released, so a handler may call back into the Manager.
*/
type Manager struct {
	account string
	store   giga.LockStore // nil: not persisted
	handler giga.TXCerHandler
	conf    giga.LockConfig
	clock   Clock
	log     *zap.SugaredLogger

	sweepInterval time.Duration

	mu        sync.Mutex
	locks     map[string]giga.TXCerLock
	pending   map[string]giga.TXCerUpdate
	sweeping  bool
	stopSweep chan struct{}
	closed    bool
	wg        sync.WaitGroup
}

var _ giga.TXCerLocker = &Manager{}

// NewManager restores the account's lock table from the store. Locks that
// expired while nothing was running are dropped, not restored.
func NewManager(account string, store giga.LockStore, handler giga.TXCerHandler, conf giga.LockConfig, opts ...Option) (*Manager, error) {
	m := &Manager{
		account: account,
		store:   store,
		handler: handler,
		conf:    conf,
		clock:   systemClock{},
		log:     zap.NewNop().Sugar(),
		locks:   map[string]giga.TXCerLock{},
		pending: map[string]giga.TXCerUpdate{},

		sweepInterval: conf.SweepInterval(),
	}
	for _, o := range opts {
		o(m)
	}
	if store == nil {
		return m, nil
	}
	saved, err := store.LoadLocks(account)
	if err != nil {
		return nil, err
	}
	now := m.clock.Now()
	dropped := 0
	for _, l := range saved {
		if m.expired(l, now) {
			dropped++
			continue
		}
		m.locks[l.ID] = l
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if dropped > 0 {
		m.log.Infow("dropped expired TXCer locks", "account", account, "count", dropped)
		m.persistLocked()
	}
	if len(m.locks) > 0 {
		m.startSweepLocked()
	}
	return m, nil
}

func (m *Manager) Account() string {
	return m.account
}

// Lock puts each id that is not already locked into draft mode and returns
// those ids. Ids already locked (in either mode) are skipped with a warning.
func (m *Manager) Lock(ids []string, reason string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.clock.Now()
	locked := []string{}
	for _, id := range ids {
		if id == "" {
			continue
		}
		if l, found := m.locks[id]; found {
			m.log.Warnw("TXCer already locked", "account", m.account, "id", id, "mode", l.Mode, "reason", l.Reason)
			continue
		}
		m.locks[id] = giga.TXCerLock{ID: id, LockedAt: now, Mode: giga.LockDraft, Reason: reason}
		locked = append(locked, id)
	}
	if len(locked) > 0 {
		m.persistLocked()
		m.startSweepLocked()
	}
	return locked
}

// MarkSubmitted promotes ids to submitted mode, keeping the original lock
// time (ids not locked yet are locked now). A terminal update buffered for
// a promoted id is handled immediately.
func (m *Manager) MarkSubmitted(ids []string, txID string, reason string) {
	m.mu.Lock()
	now := m.clock.Now()
	flush := []giga.TXCerUpdate{}
	for _, id := range ids {
		if id == "" {
			continue
		}
		l, found := m.locks[id]
		if !found {
			l = giga.TXCerLock{ID: id, LockedAt: now}
		}
		l.Mode = giga.LockSubmitted
		l.TxID = txID
		if reason != "" {
			l.Reason = reason
		}
		m.locks[id] = l
		if u, found := m.pending[id]; found && u.Status.IsTerminal() {
			delete(m.pending, id)
			flush = append(flush, u)
		}
	}
	m.persistLocked()
	m.startSweepLocked()
	m.mu.Unlock()

	m.deliverAll(flush)
}

// Unlock removes the ids' locks. With processPending, any buffered update
// for an id is replayed through the handler; either way it is discarded.
func (m *Manager) Unlock(ids []string, processPending bool) {
	m.mu.Lock()
	replay := m.unlockLocked(ids, processPending)
	m.mu.Unlock()

	m.deliverAll(replay)
}

func (m *Manager) unlockLocked(ids []string, processPending bool) []giga.TXCerUpdate {
	replay := []giga.TXCerUpdate{}
	removed := 0
	for _, id := range ids {
		if _, found := m.locks[id]; found {
			delete(m.locks, id)
			removed++
		}
		if u, found := m.pending[id]; found {
			delete(m.pending, id)
			if processPending {
				replay = append(replay, u)
			} else {
				m.log.Infow("discarded buffered TXCer update", "account", m.account, "id", id, "status", u.Status)
			}
		}
	}
	if removed > 0 {
		m.persistLocked()
	}
	return replay
}

func (m *Manager) IsLocked(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, found := m.locks[id]
	return found
}

// ShouldBlockUpdate is true only for a draft lock receiving a terminal status.
// Once submitted, terminal statuses are the settlement outcome and always
// pass through.
func (m *Manager) ShouldBlockUpdate(id string, status giga.TXCerStatus) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.shouldBlockLocked(id, status)
}

func (m *Manager) shouldBlockLocked(id string, status giga.TXCerStatus) bool {
	l, found := m.locks[id]
	return found && l.Mode == giga.LockDraft && status.IsTerminal()
}

// CacheUpdate buffers an update, replacing any earlier one for the same id.
func (m *Manager) CacheUpdate(u giga.TXCerUpdate) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cacheLocked(u)
}

func (m *Manager) cacheLocked(u giga.TXCerUpdate) {
	if u.ReceivedAt.IsZero() {
		u.ReceivedAt = m.clock.Now()
	}
	if u.Account == "" {
		u.Account = m.account
	}
	if old, found := m.pending[u.ID]; found {
		m.log.Debugw("replacing buffered TXCer update", "account", m.account, "id", u.ID, "old", old.Status, "new", u.Status)
	}
	m.pending[u.ID] = u
}

// Receive is the entry point for notifications: blocked updates are
// buffered, all others are handled now.
func (m *Manager) Receive(u giga.TXCerUpdate) (bool, error) {
	m.mu.Lock()
	if u.ReceivedAt.IsZero() {
		u.ReceivedAt = m.clock.Now()
	}
	if u.Account == "" {
		u.Account = m.account
	}
	if m.shouldBlockLocked(u.ID, u.Status) {
		m.cacheLocked(u)
		m.mu.Unlock()
		m.log.Infow("buffered TXCer update for drafted instrument", "account", m.account, "id", u.ID, "status", u.Status)
		return true, nil
	}
	m.mu.Unlock()
	return false, m.deliver(u)
}

// GetLockStatus lists locks oldest first, with any buffered updates.
func (m *Manager) GetLockStatus() giga.LockStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	status := giga.LockStatus{
		Account: m.account,
		Locks:   m.snapshotLocked(),
		Pending: make(map[string]giga.TXCerUpdate, len(m.pending)),
	}
	sort.SliceStable(status.Locks, func(i, j int) bool {
		return status.Locks[i].LockedAt.Before(status.Locks[j].LockedAt)
	})
	for id, u := range m.pending {
		status.Pending[id] = u
	}
	return status
}

// ForceUnlockAll drops every lock. Buffered updates are replayed, not lost.
func (m *Manager) ForceUnlockAll() {
	m.mu.Lock()
	ids := make([]string, 0, len(m.locks)+len(m.pending))
	for id := range m.locks {
		ids = append(ids, id)
	}
	for id := range m.pending {
		if _, found := m.locks[id]; !found {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	m.log.Warnw("force unlocking all TXCers", "account", m.account, "count", len(m.locks))
	replay := m.unlockLocked(ids, true)
	m.mu.Unlock()

	m.deliverAll(replay)
}

// Sweep unlocks every expired lock, replaying its buffered update, and
// reports whether any locks remain.
func (m *Manager) Sweep() bool {
	m.mu.Lock()
	now := m.clock.Now()
	expired := []string{}
	for id, l := range m.locks {
		if m.expired(l, now) {
			expired = append(expired, id)
		}
	}
	sort.Strings(expired)
	replay := []giga.TXCerUpdate{}
	if len(expired) > 0 {
		m.log.Infow("TXCer locks expired", "account", m.account, "ids", expired)
		replay = m.unlockLocked(expired, true)
	}
	remaining := len(m.locks) > 0
	m.mu.Unlock()

	m.deliverAll(replay)
	return remaining
}

// Sweeping reports whether the background sweep is running.
func (m *Manager) Sweeping() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sweeping
}

// Close stops the background sweep and saves the lock table. Locks are kept:
// they are restored (or dropped, if expired by then) on the next start.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	if m.stopSweep != nil {
		close(m.stopSweep)
		m.stopSweep = nil
	}
	m.sweeping = false
	m.persistLocked()
	m.mu.Unlock()
	m.wg.Wait()
}

func (m *Manager) expired(l giga.TXCerLock, now time.Time) bool {
	ttl := m.conf.DraftTimeout()
	if l.Mode == giga.LockSubmitted {
		ttl = m.conf.SubmittedTimeout()
	}
	return now.Sub(l.LockedAt) > ttl
}

func (m *Manager) startSweepLocked() {
	if m.sweeping || m.closed || m.sweepInterval <= 0 {
		return
	}
	m.sweeping = true
	m.stopSweep = make(chan struct{})
	m.wg.Add(1)
	go m.sweepLoop(m.stopSweep, m.sweepInterval)
}

func (m *Manager) sweepLoop(stop chan struct{}, interval time.Duration) {
	defer m.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if m.Sweep() {
				continue
			}
			m.mu.Lock()
			// a Lock may have landed since Sweep released the mutex
			if len(m.locks) == 0 && m.stopSweep == stop {
				m.sweeping = false
				m.stopSweep = nil
				m.mu.Unlock()
				return
			}
			m.mu.Unlock()
		}
	}
}

func (m *Manager) snapshotLocked() []giga.TXCerLock {
	locks := make([]giga.TXCerLock, 0, len(m.locks))
	for _, l := range m.locks {
		locks = append(locks, l)
	}
	sort.Slice(locks, func(i, j int) bool { return locks[i].ID < locks[j].ID })
	return locks
}

func (m *Manager) persistLocked() {
	if m.store == nil {
		return
	}
	err := m.store.SaveLocks(m.account, m.snapshotLocked())
	if err != nil {
		m.log.Errorw("failed to save TXCer locks", "account", m.account, "err", err)
	}
}

func (m *Manager) deliverAll(updates []giga.TXCerUpdate) {
	for _, u := range updates {
		m.deliver(u)
	}
}

func (m *Manager) deliver(u giga.TXCerUpdate) error {
	if m.handler == nil {
		m.log.Warnw("no TXCer handler, update dropped", "account", m.account, "id", u.ID, "status", u.Status)
		return nil
	}
	err := m.handler.HandleTXCerUpdate(u)
	if err != nil {
		m.log.Errorw("TXCer handler failed", "account", m.account, "id", u.ID, "status", u.Status, "err", err)
	}
	return err
}
