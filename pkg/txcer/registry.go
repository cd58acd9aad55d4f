package txcer

import (
	"context"
	"sort"
	"sync"

	giga "github.com/dogecoinfoundation/gigaspend/pkg"
	"go.uber.org/zap"
)

// Registry holds one Manager per account. Lock tables are never shared
// between accounts.
type Registry struct {
	store   giga.LockStore
	handler giga.TXCerHandler
	conf    giga.LockConfig
	log     *zap.SugaredLogger
	opts    []Option

	mu       sync.Mutex
	managers map[string]*Manager
}

var _ giga.LockRegistry = &Registry{}

func NewRegistry(store giga.LockStore, handler giga.TXCerHandler, conf giga.LockConfig, log *zap.SugaredLogger, opts ...Option) *Registry {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Registry{
		store:    store,
		handler:  handler,
		conf:     conf,
		log:      log,
		opts:     append([]Option{WithLogger(log)}, opts...),
		managers: map[string]*Manager{},
	}
}

// For returns the account's lock table, restoring it from the store on
// first use.
func (r *Registry) For(account string) (giga.TXCerLocker, error) {
	return r.Manager(account)
}

func (r *Registry) Manager(account string) (*Manager, error) {
	if account == "" {
		return nil, giga.NewErr(giga.BadRequest, "missing account id")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, found := r.managers[account]; found {
		return m, nil
	}
	m, err := NewManager(account, r.store, r.handler, r.conf, r.opts...)
	if err != nil {
		return nil, err
	}
	r.managers[account] = m
	return m, nil
}

// Accounts lists the accounts with a loaded lock table.
func (r *Registry) Accounts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	accounts := make([]string, 0, len(r.managers))
	for a := range r.managers {
		accounts = append(accounts, a)
	}
	sort.Strings(accounts)
	return accounts
}

// Close stops every Manager and saves its lock table.
func (r *Registry) Close() {
	r.mu.Lock()
	managers := r.managers
	r.managers = map[string]*Manager{}
	r.mu.Unlock()
	for _, m := range managers {
		m.Close()
	}
}

// Implements conductor Service
func (r *Registry) Run(started, stopped chan bool, stop chan context.Context) error {
	go func() {
		started <- true
		<-stop
		r.Close()
		r.log.Infow("TXCer lock registry stopped")
		stopped <- true
	}()
	return nil
}
