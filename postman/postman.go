package postman

import (
	"sync"

	"github.com/btcsuite/btcd/btcec/v2"
)

// Transport delivers an already-peeled BlindedPath, plus which hop index
// within it the sending side has routed to, to whichever node currently
// owns nextHop. A real implementation sends this over a peer connection
// as an onion_message wire message; tests use an in-memory map of
// Postmans keyed by node id.
type Transport interface {
	Send(nextHop *btcec.PublicKey, path *BlindedPath, hopIndex int) error
}

// Postman peels onion messages addressed to privKey and dispatches them
// to path_id subscribers, or relays them onward via transport when this
// node is an intermediate hop.
type Postman struct {
	privKey   *btcec.PrivateKey
	transport Transport

	mu   sync.Mutex
	subs map[[32]byte]chan Message
}

// NewPostman builds a Postman bound to privKey's node identity, using
// transport to relay messages this node is not the final hop for.
func NewPostman(privKey *btcec.PrivateKey, transport Transport) *Postman {
	return &Postman{
		privKey:   privKey,
		transport: transport,
		subs:      make(map[[32]byte]chan Message),
	}
}

// Subscribe registers interest in messages carrying pathID, returning a
// channel that receives at most one delivery. Call Unsubscribe once
// satisfied or timed out to release it.
func (p *Postman) Subscribe(pathID [32]byte) <-chan Message {
	p.mu.Lock()
	defer p.mu.Unlock()

	ch := make(chan Message, 1)
	p.subs[pathID] = ch
	return ch
}

// Unsubscribe releases a pending subscription; a no-op if already
// delivered or never registered.
func (p *Postman) Unsubscribe(pathID [32]byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.subs, pathID)
}

// Peel decrypts this node's layer of path at hopIndex. If this node is
// the final hop and the recovered path_id matches a pending subscription,
// the message is delivered there. A path_id with no matching
// subscription is dropped (self-padding messages — where a node sends
// itself a no-op hop to pad its own path length — use a pathID the
// sender never subscribes to, so they fall through here by design). When
// this node is an intermediate hop, the message is forwarded via
// transport to the next hop.
func (p *Postman) Peel(path *BlindedPath, hopIndex int) error {
	result, err := PeelHop(p.privKey, path, hopIndex)
	if err != nil {
		return err
	}

	if result.TerminatesHere {
		p.mu.Lock()
		ch, ok := p.subs[result.Message.PathID]
		if ok {
			delete(p.subs, result.Message.PathID)
		}
		p.mu.Unlock()

		if !ok {
			return nil
		}
		ch <- result.Message
		return nil
	}

	return p.transport.Send(result.ForwardTo, result.RemainingPath, 0)
}

// SendMessage builds a blinded path to route and asks transport to
// deliver the message's first hop.
func (p *Postman) SendMessage(sessionKey *btcec.PrivateKey, route []*btcec.PublicKey, payload []byte, pathID [32]byte) error {
	path, err := BuildBlindedPath(sessionKey, route, payload, pathID)
	if err != nil {
		return err
	}
	return p.transport.Send(path.IntroductionNode, path, 0)
}
