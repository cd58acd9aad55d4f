package receivers

import (
	"context"
	"encoding/json"
	"fmt"

	giga "github.com/dogecoinfoundation/gigaspend/pkg"
	"github.com/tjstebbing/conductor"
	"github.com/yosssi/gmq/mqtt"
	"github.com/yosssi/gmq/mqtt/client"
)

func NewMQTTSender(config giga.MQTTConfig, bus giga.MessageBus) MQTTSender {
	return MQTTSender{
		make(chan giga.Message, 1000),
		config,
		bus,
	}
}

// MQTTSender publishes bus messages to the configured MQTT queues.
type MQTTSender struct {
	// incomming msgs
	Rec    chan giga.Message
	Config giga.MQTTConfig
	Bus    giga.MessageBus
}

// Implements giga.MessageSubscriber
func (s MQTTSender) GetChan() chan giga.Message {
	return s.Rec
}

// mqttMessage is the published JSON form of a bus message.
type mqttMessage struct {
	Category string          `json:"category"`
	Event    string          `json:"event"`
	ID       string          `json:"id"`
	Message  json.RawMessage `json:"message"`
}

// Implements conductor.Service
func (s MQTTSender) Run(started, stopped chan bool, stop chan context.Context) error {
	go func() {
		cli := client.New(&client.Options{
			ErrorHandler: func(err error) {
				s.Bus.Send(giga.SYS_ERR, fmt.Sprintf("MQTTSender: %s", err))
			},
		})

		// connect to MQTT Bus
		err := cli.Connect(&client.ConnectOptions{
			Network:  "tcp",
			Address:  s.Config.Address,
			ClientID: []byte(s.Config.ClientID),
			UserName: []byte(s.Config.Username),
			Password: []byte(s.Config.Password),
		})
		if err != nil {
			s.Bus.Send(giga.SYS_ERR, fmt.Sprintf("MQTTSender connection failure %s", err))
			close(stopped)
			return
		}

		// Successfully started up
		started <- true

		for {
			select {
			// handle stopping the service
			case <-stop:
				cli.Disconnect()
				cli.Terminate()
				close(stopped)
				return
			case msg, ok := <-s.Rec:
				if !ok {
					s.Rec = nil
					continue
				}
				s.publish(cli, msg)
			}
		}
	}()
	return nil
}

func (s MQTTSender) publish(cli *client.Client, msg giga.Message) {
	body, err := json.Marshal(mqttMessage{
		Category: msg.EventType.Type(),
		Event:    fmt.Sprint(msg.EventType),
		ID:       msg.ID,
		Message:  msg.Message,
	})
	if err != nil {
		s.Bus.Send(giga.SYS_ERR, fmt.Sprintf("MQTTSender failed to marshal msg %s", msg.ID))
		return
	}
	for _, topic := range topicsFor(s.Config.Queues, msg.EventType) {
		err = cli.Publish(&client.PublishOptions{
			QoS:       mqtt.QoS0,
			TopicName: []byte(topic),
			Message:   body,
		})
		if err != nil {
			s.Bus.Send(giga.SYS_ERR, fmt.Sprintf("MQTTSender: publish %s to %s: %v", msg.ID, topic, err))
		}
	}
}

// topicsFor lists the topics of the queues that take an event type. SYS
// messages are never published (publish errors are SYS messages).
func topicsFor(queues map[string]giga.MQTTQueueConfig, t giga.EventType) []string {
	topics := []string{}
	if t.Type() == "SYS" {
		return topics
	}
	for _, queue := range queues {
		for _, name := range queue.Types {
			if name == "ALL" || name == t.Type() {
				topics = append(topics, queue.TopicFilter)
				break
			}
		}
	}
	return topics
}

func SetupMQTTs(cond *conductor.Conductor, bus giga.MessageBus, conf giga.Config) {
	if conf.MQTT.Address != "" {
		s := NewMQTTSender(conf.MQTT, bus)
		cond.Service("MQTT sender", s)
		// Sub to 'ALL' because we're filtering on our side
		bus.Register(s, []giga.EventType{giga.EVENT_ALL("ALL")}...)
	}
}
