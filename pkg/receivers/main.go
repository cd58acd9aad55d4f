package receivers

import (
	giga "github.com/dogecoinfoundation/gigaspend/pkg"
	"github.com/tjstebbing/conductor"
	"go.uber.org/zap"
)

// Sets up standard receivers.
func SetUpReceivers(cond *conductor.Conductor, bus giga.MessageBus, conf giga.Config, log *zap.SugaredLogger) {
	// Set up configured loggers
	SetupLoggers(cond, bus, conf, log)

	// Set up the MQTT publisher
	SetupMQTTs(cond, bus, conf)
}

// eventTypes maps configured category names (ALL, SYS, TX, TXC) to
// EventTypes, returning the names it did not recognise.
func eventTypes(names []string) (types []giga.EventType, invalid []string) {
	for _, name := range names {
		match := false
		for _, x := range giga.EVENT_TYPES {
			if name == x.Type() {
				match = true
				types = append(types, x)
			}
		}
		if !match {
			invalid = append(invalid, name)
		}
	}
	return types, invalid
}
