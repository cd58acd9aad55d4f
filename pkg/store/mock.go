package store

import (
	"sync"

	giga "github.com/dogecoinfoundation/gigaspend/pkg"
)

// interface guard ensures Mock implements giga.LockStore
var _ giga.LockStore = Mock{}

type Mock struct {
	lock  *sync.Mutex
	locks map[string][]giga.TXCerLock
	saves map[string]int
}

// NewMock returns a giga.LockStore implementor that keeps lock tables in memory
func NewMock() Mock {
	return Mock{
		lock:  &sync.Mutex{},
		locks: make(map[string][]giga.TXCerLock, 10),
		saves: make(map[string]int, 10),
	}
}

func (m Mock) LoadLocks(account string) ([]giga.TXCerLock, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	return append([]giga.TXCerLock{}, m.locks[account]...), nil
}

func (m Mock) SaveLocks(account string, locks []giga.TXCerLock) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.locks[account] = append([]giga.TXCerLock{}, locks...)
	m.saves[account]++
	return nil
}

// Saves counts SaveLocks calls for an account.
func (m Mock) Saves(account string) int {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.saves[account]
}
