package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"syscall"
	"time"

	giga "github.com/dogecoinfoundation/gigaspend/pkg"
	"github.com/pebbe/zmq4"
	"go.uber.org/zap"
)

// Notifier is where received TXCer notifications go; giga.API is one.
type Notifier interface {
	Notify(account string, update giga.TXCerUpdate) error
}

var _ Notifier = giga.API{}

// ZMQReceiver subscribes to TXCer status notifications published by the
// settlement service. Each message is three frames: topic, account id and
// a JSON body {"id", "status", "payload"}.
// CAUTION: the protocol is not authenticated!
type ZMQReceiver struct {
	bus     giga.EventSender
	target  Notifier
	log     *zap.SugaredLogger
	address string
	topic   string
}

func NewZMQReceiver(bus giga.EventSender, target Notifier, log *zap.SugaredLogger, config giga.Config) (ZMQReceiver, error) {
	if config.Notify.ZMQAddress == "" {
		return ZMQReceiver{}, giga.NewErr(giga.BadRequest, "no ZMQ address configured for TXCer notifications")
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return ZMQReceiver{
		bus:     bus,
		target:  target,
		log:     log,
		address: config.Notify.ZMQAddress,
		topic:   config.Notify.Topic,
	}, nil
}

func (z ZMQReceiver) Run(started, stopped chan bool, stop chan context.Context) error {
	sock, err := zmq4.NewSocket(zmq4.SUB)
	if err != nil {
		return err
	}
	sock.SetRcvtimeo(2 * time.Second)
	z.bus.Send(giga.SYS_STARTUP, fmt.Sprintf("ZMQ: connecting to: %s", z.address))
	err = sock.Connect(z.address)
	if err != nil {
		sock.Close()
		return err
	}
	err = sock.SetSubscribe(z.topic)
	if err != nil {
		sock.Close()
		return err
	}
	go func() {
		started <- true
		for {
			select {
			case <-stop:
				sock.Close()
				close(stopped)
				return
			default:
				// fall through to zmq recv
			}

			msg, err := sock.RecvMessageBytes(0)
			if err != nil {
				if errno, ok := err.(zmq4.Errno); ok && (errno == zmq4.Errno(syscall.ETIMEDOUT) || errno == zmq4.Errno(syscall.EAGAIN)) {
					continue
				}
				z.bus.Send(giga.SYS_ERR, fmt.Sprintf("ZMQ err: %v", err))
				continue
			}
			z.handle(msg)
		}
	}()
	return nil
}

func (z ZMQReceiver) handle(msg [][]byte) {
	account, update, err := ParseMessage(z.topic, msg)
	if err != nil {
		z.log.Warnw("ignoring TXCer notification", "err", err)
		return
	}
	err = z.target.Notify(account, update)
	if err != nil {
		z.log.Errorw("TXCer notification failed", "account", account, "id", update.ID, "status", update.Status, "err", err)
	}
}

// ParseMessage decodes one notification. The topic frame must match topic
// exactly (ZMQ subscriptions match by prefix).
func ParseMessage(topic string, msg [][]byte) (string, giga.TXCerUpdate, error) {
	if len(msg) != 3 {
		return "", giga.TXCerUpdate{}, giga.NewErr(giga.BadRequest, "expected 3 frames, got %d", len(msg))
	}
	if string(msg[0]) != topic {
		return "", giga.TXCerUpdate{}, giga.NewErr(giga.BadRequest, "unexpected topic %q", msg[0])
	}
	account := string(msg[1])
	if account == "" {
		return "", giga.TXCerUpdate{}, giga.NewErr(giga.BadRequest, "missing account id")
	}
	var body struct {
		ID      string           `json:"id"`
		Status  giga.TXCerStatus `json:"status"`
		Payload *giga.UTXO       `json:"payload"`
	}
	err := json.Unmarshal(msg[2], &body)
	if err != nil {
		return "", giga.TXCerUpdate{}, giga.NewErr(giga.BadRequest, "bad notification body: %v", err)
	}
	if body.ID == "" {
		return "", giga.TXCerUpdate{}, giga.NewErr(giga.BadRequest, "missing TXCer id")
	}
	if body.Status != giga.TXCerPending && !body.Status.IsTerminal() {
		return "", giga.TXCerUpdate{}, giga.NewErr(giga.BadRequest, "unknown TXCer status %d", body.Status)
	}
	return account, giga.TXCerUpdate{Account: account, ID: body.ID, Status: body.Status, Payload: body.Payload}, nil
}
