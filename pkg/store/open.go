package store

import (
	giga "github.com/dogecoinfoundation/gigaspend/pkg"
)

// OpenLockStore opens the configured lock-table store: postgres when a DSN
// is set, otherwise the sqlite file. Call close at shutdown.
func OpenLockStore(conf giga.Config) (s giga.LockStore, close func(), err error) {
	if conf.Store.PostgresDSN != "" {
		pg, err := NewPostgresStore(conf.Store.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		return pg, pg.Close, nil
	}
	lite, err := NewSQLite(conf.Store.DBFile)
	if err != nil {
		return nil, nil, err
	}
	return lite, lite.Close, nil
}
