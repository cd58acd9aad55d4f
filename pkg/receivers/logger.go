package receivers

import (
	"context"
	"encoding/json"
	"fmt"

	giga "github.com/dogecoinfoundation/gigaspend/pkg"
	"github.com/tjstebbing/conductor"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// MessageLogger writes bus messages to a rotating file, one JSON record
// per message.
type MessageLogger struct {
	// MessageLogger receives giga.Message via Rec
	Rec chan giga.Message
	// and writes them via Log
	Log *zap.Logger
}

// Implements giga.MessageSubscriber
func (l MessageLogger) GetChan() chan giga.Message {
	return l.Rec
}

// Implements conductor.Service
func (l MessageLogger) Run(started, stopped chan bool, stop chan context.Context) error {
	go func() {
		started <- true
		for {
			select {
			// handle stopping the service
			case <-stop:
				l.Log.Sync()
				close(stopped)
				return
			case msg, ok := <-l.Rec:
				if !ok {
					// unregistered by the bus
					l.Rec = nil
					continue
				}
				l.write(msg)
			}
		}
	}()
	return nil
}

func (l MessageLogger) write(msg giga.Message) {
	l.Log.Info(msg.EventType.Type()+":"+fmt.Sprint(msg.EventType),
		zap.String("id", msg.ID),
		zap.Any("message", json.RawMessage(msg.Message)))
}

func NewMessageLogger(path string) MessageLogger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	sink := zapcore.AddSync(&lumberjack.Logger{
		Filename: path,
		Compress: true,
	})
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), sink, zapcore.InfoLevel)
	return MessageLogger{
		Rec: make(chan giga.Message, 1000),
		Log: zap.New(core),
	}
}

// Reads config and sets up any configured loggers
func SetupLoggers(cond *conductor.Conductor, bus giga.MessageBus, conf giga.Config, log *zap.SugaredLogger) {
	for name, c := range conf.Loggers {
		l := NewMessageLogger(c.Path)
		cond.Service(fmt.Sprintf("Logger %s", c.Path), l)

		types, invalid := eventTypes(c.Types)
		for _, t := range invalid {
			log.Warnw("logger: ignoring invalid message type", "logger", name, "type", t)
		}
		bus.Register(l, types...)
	}
}
