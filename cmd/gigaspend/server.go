package main

import (
	giga "github.com/dogecoinfoundation/gigaspend/pkg"
	"github.com/dogecoinfoundation/gigaspend/pkg/notify"
	"github.com/dogecoinfoundation/gigaspend/pkg/receivers"
	"github.com/dogecoinfoundation/gigaspend/pkg/settlement"
	"github.com/dogecoinfoundation/gigaspend/pkg/store"
	"github.com/dogecoinfoundation/gigaspend/pkg/txcer"
	"github.com/dogecoinfoundation/gigaspend/pkg/webapi"
	"github.com/tjstebbing/conductor"
)

func Server(conf giga.Config) {
	log := giga.NewLogger(conf)
	defer log.Sync()

	c := conductor.NewConductor(
		conductor.HookSignals(),
		conductor.Noisy(),
	)

	// Start the MessageBus Service
	bus := giga.NewMessageBus()
	c.Service("MessageBus", bus)

	// Set up all configured receivers
	receivers.SetUpReceivers(c, bus, conf, log)

	// Setup a Store
	locks, closeStore, err := store.OpenLockStore(conf)
	if err != nil {
		log.Fatalw("cannot open lock store", "err", err)
	}
	defer closeStore()

	// Lock tables, one per account; released notifications go out on the bus
	registry := txcer.NewRegistry(locks, giga.BusTXCerHandler{Bus: bus}, conf.Locks, log)
	c.Service("TXCer Locks", registry)

	api := giga.NewAPI(registry, settlement.NewClient(conf), bus, conf)

	// Start the TXCer notification listener (ZMQ)
	if conf.Notify.ZMQAddress != "" {
		z, err := notify.NewZMQReceiver(bus, api, log, conf)
		if err != nil {
			log.Fatalw("cannot set up notification listener", "err", err)
		}
		c.Service("ZMQ Listener", z)
	}

	// Start the admin API
	w, err := webapi.NewWebAPI(conf, api, log)
	if err != nil {
		log.Fatalw("cannot set up admin API", "err", err)
	}
	c.Service("Admin API", w)

	<-c.Start()
}
