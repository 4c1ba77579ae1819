package postman

import (
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/stretchr/testify/require"
)

// memoryNetwork routes a Send call to whichever Postman was registered
// under the destination node id, peeling synchronously — a stand-in for
// the wire transport's onion_message delivery.
type memoryNetwork struct {
	postmen map[string]*Postman
}

func newMemoryNetwork() *memoryNetwork {
	return &memoryNetwork{postmen: make(map[string]*Postman)}
}

func (n *memoryNetwork) register(pubKey *btcec.PublicKey, p *Postman) {
	n.postmen[string(pubKey.SerializeCompressed())] = p
}

func (n *memoryNetwork) Send(nextHop *btcec.PublicKey, path *BlindedPath, hopIndex int) error {
	p, ok := n.postmen[string(nextHop.SerializeCompressed())]
	if !ok {
		return errNotForUs
	}
	return p.Peel(path, hopIndex)
}

func TestOnionMessagePingReplyOverOneHopBlindedPath(t *testing.T) {
	net := newMemoryNetwork()

	aKey, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	bKey, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	a := NewPostman(aKey, net)
	b := NewPostman(bKey, net)
	net.register(aKey.PubKey(), a)
	net.register(bKey.PubKey(), b)

	// B subscribes to the reply it expects A's ping to prompt.
	var pingPathID, replyPathID [32]byte
	pingPathID[0] = 0x01
	replyPathID[0] = 0x02

	pingCh := b.Subscribe(pingPathID)

	sessionKey, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	require.NoError(t, a.SendMessage(sessionKey, []*btcec.PublicKey{bKey.PubKey()}, []byte("ping"), pingPathID))

	var ping Message
	select {
	case ping = <-pingCh:
	case <-time.After(time.Second):
		t.Fatal("B never received the ping")
	}
	require.Equal(t, []byte("ping"), ping.Payload)

	replyCh := a.Subscribe(replyPathID)

	replySessionKey, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	require.NoError(t, b.SendMessage(replySessionKey, []*btcec.PublicKey{aKey.PubKey()}, []byte("pong"), replyPathID))

	select {
	case reply := <-replyCh:
		require.Equal(t, []byte("pong"), reply.Payload)
	case <-time.After(time.Second):
		t.Fatal("A never received the reply")
	}
}

func TestPeelDropsMessageWithNoMatchingSubscription(t *testing.T) {
	net := newMemoryNetwork()
	bKey, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	b := NewPostman(bKey, net)
	net.register(bKey.PubKey(), b)

	sessionKey, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	var pathID [32]byte
	pathID[0] = 0xaa
	path, err := BuildBlindedPath(sessionKey, []*btcec.PublicKey{bKey.PubKey()}, []byte("unsolicited"), pathID)
	require.NoError(t, err)

	require.NoError(t, b.Peel(path, 0))
}

func TestBuildBlindedPathForwardsThroughIntermediateHop(t *testing.T) {
	net := newMemoryNetwork()

	relayKey, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	destKey, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	relay := NewPostman(relayKey, net)
	dest := NewPostman(destKey, net)
	net.register(relayKey.PubKey(), relay)
	net.register(destKey.PubKey(), dest)

	var pathID [32]byte
	pathID[0] = 0x05
	ch := dest.Subscribe(pathID)

	sessionKey, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	sender := NewPostman(nil, net)
	require.NoError(t, sender.SendMessage(sessionKey, []*btcec.PublicKey{relayKey.PubKey(), destKey.PubKey()}, []byte("hi"), pathID))

	select {
	case msg := <-ch:
		require.Equal(t, []byte("hi"), msg.Payload)
	case <-time.After(time.Second):
		t.Fatal("message never reached the final hop")
	}
}
