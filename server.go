package phoenixcore

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/go-errors/errors"
	"github.com/lightningnetwork/lnd/clock"

	"github.com/breez/phoenixcore/chainrpc"
	"github.com/breez/phoenixcore/channeldb"
	"github.com/breez/phoenixcore/htlcswitch"
	"github.com/breez/phoenixcore/keychain"
	"github.com/breez/phoenixcore/swapin"
)

// Server houses this node's global state and is the central object a host
// application (the mobile wallet embedding this module) constructs once at
// startup: the database, the chain backend collaborators, the payment
// handlers, the swap-in manager, and the single Peer orchestrator that ties
// them to the trampoline connection. Unlike a multi-peer server, this node
// dials exactly one remote peer and keeps no listeners, matching the
// mobile single-trampoline-peer topology.
type Server struct {
	started  int32
	shutdown int32

	cfg *Config

	identityKey *btcec.PrivateKey
	keyRing     keychain.KeyRing

	db      *channeldb.DB
	swapMgr *swapin.Manager

	peer *Peer

	wg   sync.WaitGroup
	quit chan struct{}
}

// NewServer wires a Server's collaborators together but does not yet open
// the database, start the orchestrator, or dial the trampoline peer; call
// Start for that.
func NewServer(
	cfg *Config,
	identityKey *btcec.PrivateKey,
	keyRing keychain.KeyRing,
	feeEstimator chainrpc.FeeEstimator,
	chainNotifier chainrpc.ChainNotifier,
) (*Server, error) {
	db, err := channeldb.Open(cfg.DataDir)
	if err != nil {
		return nil, errors.Wrap(err, 0)
	}

	clk := clock.NewDefaultClock()
	incoming := htlcswitch.NewIncomingPaymentHandler(db, clk, defaultMppTimeoutSecs)
	outgoing := htlcswitch.NewOutgoingPaymentHandler(db, clk)
	swapMgr := swapin.NewManager()

	peer := NewPeer(cfg, identityKey, keyRing, db, feeEstimator, chainNotifier,
		swapMgr, incoming, outgoing)

	return &Server{
		cfg:         cfg,
		identityKey: identityKey,
		keyRing:     keyRing,
		db:          db,
		swapMgr:     swapMgr,
		peer:        peer,
		quit:        make(chan struct{}),
	}, nil
}

// Start launches the orchestrator and begins the reconnect loop that keeps
// this node's single trampoline connection alive, retrying with a fixed
// backoff on failure. The orchestrator itself is agnostic to why a
// connection ended, so reconnection policy lives here rather than in Peer.
func (s *Server) Start() error {
	if !atomic.CompareAndSwapInt32(&s.started, 0, 1) {
		return nil
	}

	if err := s.peer.Start(); err != nil {
		return errors.Wrap(err, 0)
	}

	s.wg.Add(1)
	go s.connectLoop()

	srvrLog.Infof("server started for network %s", s.cfg.Network)
	return nil
}

// Stop shuts the orchestrator and database down.
func (s *Server) Stop() error {
	if !atomic.CompareAndSwapInt32(&s.shutdown, 0, 1) {
		return nil
	}
	close(s.quit)
	s.peer.Stop()
	s.wg.Wait()
	return s.db.Close()
}

// Peer returns the orchestrator, for callers (e.g. the CLI or the swap-in
// UTXO watcher) that need to feed it events or subscribe to its bus.
func (s *Server) Peer() *Peer { return s.peer }

func (s *Server) connectLoop() {
	defer s.wg.Done()

	for {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ConnectTimeout)
		err := s.peer.Connect(ctx)
		cancel()
		if err != nil {
			srvrLog.Warnf("connecting to trampoline peer failed: %v", err)
		}

		select {
		case <-time.After(s.cfg.ConnectTimeout):
		case <-s.quit:
			return
		}
	}
}
