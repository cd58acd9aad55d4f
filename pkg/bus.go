package giga

/*
The message subsystem gives integrations event-based access to what
gigaspend does: transactions assembled and submitted, TXCers locked,
submitted, unlocked, and notifications released from the lock buffer.

A simple internal 'message bus' is passed around as a singleton, with an
internal goroutine and a 'send' method for sending 'messages'.

Outbound destinations are created in config (log-files, MQTT) and are
managed by MessageSubscribers: each is registered with the bus along with
the list of EventTypes it wants to receive.
*/

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"sync"
)

// MessageSubscribers are things that subscribe to the bus and handle
// messages, ie: MQTT, log files etc.
type MessageSubscriber interface {
	GetChan() chan Message
}

// Created by the bus, wraps message sent with Send
type Message struct {
	EventType EventType
	Message   []byte
	ID        string // optional
}

type Subscription struct {
	dest  MessageSubscriber
	types []EventType
}

// wants reports whether the subscription covers an event type.
func (s *Subscription) wants(t EventType) bool {
	for _, st := range s.types {
		if st.Type() == "ALL" || st.Type() == t.Type() {
			return true
		}
	}
	return false
}

func NewMessageBus() MessageBus {
	return MessageBus{
		receivers: make(map[*Subscription]bool),
		lock:      &sync.Mutex{},
		inbound:   make(chan Message, 16),
	}
}

type MessageBus struct {
	// Registered MessageSubscribers.
	receivers map[*Subscription]bool
	lock      *sync.Mutex

	// Messages from Send(), destined for MessageSubscribers
	inbound chan Message
}

var _ EventSender = MessageBus{}

// Send a message to the bus with a specific EventType
// msg can be anything JSON serialisable, this will be
// turned into a Message and delivered to any interested MessageSubscribers
func (b MessageBus) Send(t EventType, msg interface{}, msgID ...string) error {
	j, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	if len(msgID) == 0 || msgID[0] == "" {
		b.inbound <- Message{t, j, generateID()}
	} else {
		b.inbound <- Message{t, j, msgID[0]}
	}
	return nil
}

func (b MessageBus) Register(m MessageSubscriber, types ...EventType) {
	b.lock.Lock()
	defer b.lock.Unlock()
	sub := Subscription{m, types}
	b.receivers[&sub] = true
}

func (b MessageBus) Unregister(sub *Subscription) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.unregister(sub)
}

func (b MessageBus) unregister(sub *Subscription) {
	if _, ok := b.receivers[sub]; !ok {
		return
	}
	delete(b.receivers, sub)
	close(sub.dest.GetChan())
}

func (b MessageBus) dispatch(message Message) {
	b.lock.Lock()
	defer b.lock.Unlock()
	failed := 0
	for sub := range b.receivers {
		if !sub.wants(message.EventType) {
			continue
		}
		// send the message to the receiver
		select {
		case sub.dest.GetChan() <- message:
		default:
			// if we are unable to send, cancel the sub
			b.unregister(sub)
			failed++
		}
	}
	if failed > 0 {
		go b.Send(SYS_ERR, struct {
			Msg    string `json:"msg"`
			Closed int    `json:"closed"`
		}{"receiver failed to handle msg, closing", failed})
	}
}

// Implements conductor Service
func (b MessageBus) Run(started, stopped chan bool, stop chan context.Context) error {

	go func() {
		stopBus := make(chan bool)
		go func() {
			for {
				select {
				case <-stopBus:
					return
				case message := <-b.inbound:
					b.dispatch(message)
				}
			}
		}()

		started <- true
		// wait for shutdown.
		<-stop
		// do some shutdown stuff then signal we're done
		close(stopBus)
		stopped <- true
	}()
	return nil
}

// create a short random ID for msgs that have none
func generateID() string {
	bytes := make([]byte, 4)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)[:8]
}
