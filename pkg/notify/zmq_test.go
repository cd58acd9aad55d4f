package notify

import (
	"errors"
	"testing"

	giga "github.com/dogecoinfoundation/gigaspend/pkg"
	"github.com/stretchr/testify/require"
)

func frames(parts ...string) [][]byte {
	msg := [][]byte{}
	for _, p := range parts {
		msg = append(msg, []byte(p))
	}
	return msg
}

func TestParseMessage(t *testing.T) {
	account, u, err := ParseMessage("txcer", frames("txcer", "acct-1", `{"id":"cer-1","status":1,"payload":{"value":"2.5","type":0,"time":17,"position":{"Blocknum":9,"IndexX":0,"IndexY":0,"IndexZ":2},"is_txcer":false}}`))
	require.NoError(t, err)
	require.Equal(t, "acct-1", account)
	require.Equal(t, "acct-1", u.Account)
	require.Equal(t, "cer-1", u.ID)
	require.Equal(t, giga.TXCerSettled, u.Status)
	require.NotNil(t, u.Payload)
	require.Equal(t, "2.5", u.Payload.Value.String())
	require.Equal(t, 2, u.Payload.Position.IndexZ)

	_, u, err = ParseMessage("txcer", frames("txcer", "acct-1", `{"id":"cer-2","status":2}`))
	require.NoError(t, err)
	require.Equal(t, giga.TXCerRevoked, u.Status)
	require.Nil(t, u.Payload)
}

func TestParseMessageErrors(t *testing.T) {
	cases := map[string][][]byte{
		"frames":  frames("txcer", "acct-1"),
		"topic":   frames("txcer-extra", "acct-1", `{"id":"c","status":0}`),
		"account": frames("txcer", "", `{"id":"c","status":0}`),
		"json":    frames("txcer", "acct-1", `{"id":`),
		"id":      frames("txcer", "acct-1", `{"status":1}`),
		"status":  frames("txcer", "acct-1", `{"id":"c","status":7}`),
	}
	for name, msg := range cases {
		_, _, err := ParseMessage("txcer", msg)
		require.True(t, giga.IsError(err, giga.BadRequest), "%s: %v", name, err)
	}
}

type notified struct {
	account string
	update  giga.TXCerUpdate
}

type fakeNotifier struct {
	got []notified
	err error
}

func (n *fakeNotifier) Notify(account string, u giga.TXCerUpdate) error {
	n.got = append(n.got, notified{account, u})
	return n.err
}

func TestHandleRoutesByAccount(t *testing.T) {
	target := &fakeNotifier{}
	z, err := NewZMQReceiver(nil, target, nil, zmqConfig())
	require.NoError(t, err)

	z.handle(frames("txcer", "acct-1", `{"id":"cer-1","status":0}`))
	z.handle(frames("txcer", "acct-2", `{"id":"cer-9","status":1}`))
	z.handle(frames("other", "acct-2", `{"id":"cer-9","status":1}`))
	require.Len(t, target.got, 2)
	require.Equal(t, "acct-1", target.got[0].account)
	require.Equal(t, "cer-9", target.got[1].update.ID)

	// a failing target doesn't stop the receiver
	target.err = errors.New("boom")
	z.handle(frames("txcer", "acct-1", `{"id":"cer-3","status":2}`))
	require.Len(t, target.got, 3)
}

func TestNewZMQReceiverNeedsAddress(t *testing.T) {
	_, err := NewZMQReceiver(nil, &fakeNotifier{}, nil, giga.TestConfig())
	require.True(t, giga.IsError(err, giga.BadRequest))
}

func zmqConfig() giga.Config {
	c := giga.TestConfig()
	c.Notify.ZMQAddress = "tcp://127.0.0.1:28555"
	return c
}
