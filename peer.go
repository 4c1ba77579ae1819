package phoenixcore

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/davecgh/go-spew/spew"
	"github.com/go-errors/errors"
	"github.com/google/uuid"
	"github.com/lightningnetwork/lnd/queue"
	"github.com/lightningnetwork/lnd/ticker"

	"github.com/breez/phoenixcore/brontide"
	"github.com/breez/phoenixcore/chainrpc"
	"github.com/breez/phoenixcore/channeldb"
	"github.com/breez/phoenixcore/htlcswitch"
	"github.com/breez/phoenixcore/keychain"
	"github.com/breez/phoenixcore/lnwallet"
	"github.com/breez/phoenixcore/lnwire"
	"github.com/breez/phoenixcore/postman"
	"github.com/breez/phoenixcore/sweep"
	"github.com/breez/phoenixcore/swapin"
)

// connID tags every transport connection attempt so a message or timer
// event that arrives after a reconnect has already superseded its
// connection is discarded rather than misrouted: stale connection ids are
// never routed to.
type connID uint64

// ConnState is the peer connection's lifecycle state.
type ConnState uint8

const (
	ConnClosed ConnState = iota
	ConnConnecting
	ConnEstablished
)

// peerConnection wraps one brontide.Conn with the id assigned to it and
// whether its Init handshake has completed.
type peerConnection struct {
	id   connID
	conn *brontide.Conn
}

// FeeTargets is the set of feerates (sat/kw) refreshed from the chain
// backend and refreshed on every reconnection.
type FeeTargets struct {
	Funding     sweep.SatPerKWeight
	MutualClose sweep.SatPerKWeight
	ClaimMain   sweep.SatPerKWeight
	Fast        sweep.SatPerKWeight
}

// Fallback feerates used when the chain backend cannot supply an estimate
// for a target.
const (
	fallbackFundingFeerate     sweep.SatPerKWeight = 2000
	fallbackMutualCloseFeerate sweep.SatPerKWeight = 1000
	fallbackClaimMainFeerate   sweep.SatPerKWeight = 1000
	fallbackFastFeerate        sweep.SatPerKWeight = 5000
)

const (
	pingInterval          = 30 * time.Second
	paymentSweepInterval  = 10 * time.Second
	defaultReplayBacklog  = 16
	defaultMppTimeoutSecs = 60
)

// outgoingRef lets a ProcessCmdRes action (keyed by channel + htlc id) be
// turned back into the outgoing payment handler's (parentID, partID) key
// space.
type outgoingRef struct {
	parentID uuid.UUID
	partID   uuid.UUID
}

type htlcKey struct {
	chanID lnwire.ChannelID
	htlcID uint64
}

// pendingOpenRequest is a please_open_channel ask awaiting the peer's
// open_channel2 reply.
type pendingOpenRequest struct {
	requestID    [32]byte
	walletInputs []swapin.Utxo
	serviceFee   int64
	miningFee    int64
}

// Peer is the single connection this mobile node keeps to its trampoline
// peer, and the sole serialization point for every channel's state
// machine: it owns the channel set, the active
// connection, outgoing message delivery, the current feerate/tip view,
// the payment handlers, pending pay-to-open requests, and the postman.
// All mutation happens on the goroutine draining cmdQueue, so no other
// lock is needed around channel state itself.
type Peer struct {
	cfg         *Config
	identityKey *btcec.PrivateKey
	keyRing     keychain.KeyRing

	db            channeldb.PaymentsDb
	feeEstimator  chainrpc.FeeEstimator
	chainNotifier chainrpc.ChainNotifier
	swapMgr       *swapin.Manager
	incoming      *htlcswitch.IncomingPaymentHandler
	outgoing      *htlcswitch.OutgoingPaymentHandler
	postman       *postman.Postman
	events        *EventBus

	cmdQueue *queue.ConcurrentQueue
	pingTicker ticker.Ticker
	sweepTicker ticker.Ticker

	wg   sync.WaitGroup
	quit chan struct{}

	started int32

	// Everything below is only ever touched from the run() goroutine.
	nextConnID uint64
	active     *peerConnection
	state      ConnState
	ourInit    *lnwire.Init
	theirInit  *lnwire.Init

	channels      map[lnwire.ChannelID]lnwallet.ChannelState
	tempToFinal   map[lnwire.ChannelID]lnwire.ChannelID
	scidIndex     map[uint64]lnwire.ChannelID
	pendingOpens  map[[32]byte]pendingOpenRequest
	outgoingRefs  map[htlcKey]outgoingRef
	invoiceAmts   map[[32]byte]*int64

	currentTip uint32
	fees       FeeTargets
}

// NewPeer builds an orchestrator for a single trampoline peer connection.
func NewPeer(
	cfg *Config,
	identityKey *btcec.PrivateKey,
	keyRing keychain.KeyRing,
	db channeldb.PaymentsDb,
	feeEstimator chainrpc.FeeEstimator,
	chainNotifier chainrpc.ChainNotifier,
	swapMgr *swapin.Manager,
	incoming *htlcswitch.IncomingPaymentHandler,
	outgoing *htlcswitch.OutgoingPaymentHandler,
) *Peer {
	pingEvery, sweepEvery := pingInterval, paymentSweepInterval
	if cfg != nil && cfg.PingInterval > 0 {
		pingEvery = cfg.PingInterval
	}
	if cfg != nil && cfg.SweepInterval > 0 {
		sweepEvery = cfg.SweepInterval
	}

	p := &Peer{
		cfg:           cfg,
		identityKey:   identityKey,
		keyRing:       keyRing,
		db:            db,
		feeEstimator:  feeEstimator,
		chainNotifier: chainNotifier,
		swapMgr:       swapMgr,
		incoming:      incoming,
		outgoing:      outgoing,
		events:        NewEventBus(defaultReplayBacklog),
		cmdQueue:      queue.NewConcurrentQueue(64),
		pingTicker:    ticker.New(pingEvery),
		sweepTicker:   ticker.New(sweepEvery),
		quit:          make(chan struct{}),
		channels:      make(map[lnwire.ChannelID]lnwallet.ChannelState),
		tempToFinal:   make(map[lnwire.ChannelID]lnwire.ChannelID),
		scidIndex:     make(map[uint64]lnwire.ChannelID),
		pendingOpens:  make(map[[32]byte]pendingOpenRequest),
		outgoingRefs:  make(map[htlcKey]outgoingRef),
		invoiceAmts:   make(map[[32]byte]*int64),
		fees: FeeTargets{
			Funding:     fallbackFundingFeerate,
			MutualClose: fallbackMutualCloseFeerate,
			ClaimMain:   fallbackClaimMainFeerate,
			Fast:        fallbackFastFeerate,
		},
	}
	p.postman = postman.NewPostman(identityKey, p)
	return p
}

// Start loads persisted channels and launches the command loop. It does
// not block on a connection; call Connect separately so callers can
// retry independently of orchestrator startup.
func (p *Peer) Start() error {
	if !atomic.CompareAndSwapInt32(&p.started, 0, 1) {
		return nil
	}

	persisted, err := p.db.ListLocalChannels()
	if err != nil {
		return errors.Wrap(err, 0)
	}
	for _, rec := range persisted {
		if rec.IsClosed {
			continue
		}
		state, err := decodeChannelState(rec.Data)
		if err != nil {
			srvrLog.Errorf("dropping unreadable persisted channel %x: %v", rec.ChannelID, err)
			continue
		}
		p.indexChannel(lnwire.ChannelID(rec.ChannelID), state)
	}

	p.cmdQueue.Start()
	p.pingTicker.Resume()
	p.sweepTicker.Resume()

	p.wg.Add(1)
	go p.run()

	srvrLog.Infof("orchestrator started with %d restored channel(s)", len(p.channels))
	return nil
}

// Stop shuts the command loop and active connection down.
func (p *Peer) Stop() {
	close(p.quit)
	p.pingTicker.Stop()
	p.sweepTicker.Stop()
	p.cmdQueue.Stop()
	if p.active != nil {
		p.active.conn.Close()
	}
	p.wg.Wait()
}

// Connect dials the configured trampoline peer, completes the Noise_XK
// handshake, and hands the resulting connection to the command loop as a
// fresh connID so any in-flight traffic from a prior connection is
// recognized as stale.
func (p *Peer) Connect(ctx context.Context) error {
	dialCtx, cancel := context.WithTimeout(ctx, p.cfg.ConnectTimeout)
	defer cancel()

	remote, err := parsePubKeyHex(p.cfg.TrampolinePubKey)
	if err != nil {
		return errors.Wrap(err, 0)
	}

	conn, err := brontide.Dial(dialCtx, p.identityKey, remote, p.cfg.TrampolineHost)
	if err != nil {
		return errors.Wrap(err, 0)
	}

	id := connID(atomic.AddUint64(&p.nextConnID, 1))
	pc := &peerConnection{id: id, conn: conn}

	p.enqueue(connEstablishedCmd{conn: pc})
	p.wg.Add(1)
	go p.readLoop(pc)
	return nil
}

// Events returns the orchestrator's event bus.
func (p *Peer) Events() *EventBus { return p.events }

// NotifyBlockTip feeds a new chain tip into the command queue, driving
// every channel's HTLC-timeout check against the CLTV safety delta.
func (p *Peer) NotifyBlockTip(height uint32) {
	p.enqueue(blockTipCmd{height: height})
}

// RequestSwapIn hands a reserved swap-in UTXO set to the command queue so
// it is turned into a please_open_channel or splice-in request on the
// orchestrator's own goroutine.
func (p *Peer) RequestSwapIn(req *swapin.RequestChannelOpen) {
	p.enqueue(swapinRequestCmd{req: req})
}

// internal command alphabet fed to cmdQueue; distinct from
// lnwallet.Command, which is the per-channel alphabet these are
// translated into.
type (
	connEstablishedCmd struct{ conn *peerConnection }
	connClosedCmd       struct {
		id  connID
		err error
	}
	wireMsgCmd struct {
		id  connID
		msg lnwire.Message
	}
	pingTickCmd  struct{}
	sweepTickCmd struct{}
	blockTipCmd  struct{ height uint32 }
	watchResultCmd struct {
		chanID lnwire.ChannelID
		cmd    lnwallet.WatchReceived
	}
	swapinRequestCmd struct{ req *swapin.RequestChannelOpen }
)

func (p *Peer) enqueue(cmd interface{}) {
	select {
	case p.cmdQueue.ChanIn() <- cmd:
	case <-p.quit:
	}
}

// readLoop decrypts and decodes wire messages off one connection,
// forwarding each onto the single command queue so every transition
// still happens on the run() goroutine. An unknown message type is
// logged and dropped rather than tearing down the connection, per BOLT 1
// forwards-compatibility.
func (p *Peer) readLoop(pc *peerConnection) {
	defer p.wg.Done()
	for {
		raw, err := pc.conn.ReadMessage()
		if err != nil {
			p.enqueue(connClosedCmd{id: pc.id, err: err})
			return
		}

		msg, err := lnwire.ReadMessage(bytes.NewReader(raw))
		if err != nil {
			if _, ok := err.(*lnwire.UnknownMessage); ok {
				peerLog.Debugf("dropping unknown message type on conn %d: %v", pc.id, err)
				continue
			}
			peerLog.Warnf("dropping unparsable message on conn %d: %v", pc.id, err)
			continue
		}

		p.enqueue(wireMsgCmd{id: pc.id, msg: msg})
	}
}

// run is the orchestrator's single serialization point: every channel
// transition, every storage write, every tip/feerate update, and every
// event publish happens here, in command-arrival order, so the single
// unbounded command queue gives every channel total ordering for storage
// consistency.
func (p *Peer) run() {
	defer p.wg.Done()

	for {
		select {
		case cmd, ok := <-p.cmdQueue.ChanOut():
			if !ok {
				return
			}
			p.handle(cmd)

		case <-p.pingTicker.Ticks():
			p.handle(pingTickCmd{})

		case <-p.sweepTicker.Ticks():
			p.handle(sweepTickCmd{})

		case <-p.quit:
			return
		}
	}
}

func (p *Peer) handle(cmd interface{}) {
	switch c := cmd.(type) {
	case connEstablishedCmd:
		p.onConnEstablishing(c.conn)
	case connClosedCmd:
		p.onConnClosed(c.id, c.err)
	case wireMsgCmd:
		p.onWireMessage(c.id, c.msg)
	case pingTickCmd:
		p.onPingTick()
	case sweepTickCmd:
		p.onSweepTick()
	case blockTipCmd:
		p.onBlockTip(c.height)
	case watchResultCmd:
		p.dispatch(c.chanID, c.cmd)
	case swapinRequestCmd:
		p.onSwapinRequest(c.req)
	default:
		srvrLog.Warnf("unhandled internal command %T", cmd)
	}
}

func (p *Peer) onConnEstablishing(pc *peerConnection) {
	if p.active != nil {
		p.active.conn.Close()
	}
	p.active = pc
	p.state = ConnConnecting
	p.theirInit = nil

	p.ourInit = &lnwire.Init{Features: supportedFeatures()}
	if err := p.sendOnConn(pc, p.ourInit); err != nil {
		peerLog.Errorf("failed sending init on conn %d: %v", pc.id, err)
	}
}

// onConnClosed tears the connection down, dispatches Disconnected to
// every channel, and purges pay-to-open requests that can no longer be
// fulfilled against the vanished connection.
func (p *Peer) onConnClosed(id connID, err error) {
	if p.active == nil || p.active.id != id {
		peerLog.Debugf("discarding close for stale conn %d", id)
		return
	}

	peerLog.Infof("connection %d closed: %v", id, err)
	p.active = nil
	p.state = ConnClosed
	p.theirInit = nil

	for chanID := range p.channels {
		p.dispatch(chanID, lnwallet.Disconnected{})
	}

	for reqID, req := range p.pendingOpens {
		p.swapMgr.UnlockWalletInputs(outpointsOf(req.walletInputs))
		delete(p.pendingOpens, reqID)
	}
}

func (p *Peer) onWireMessage(id connID, msg lnwire.Message) {
	if p.active == nil || p.active.id != id {
		peerLog.Debugf("discarding message from stale conn %d", id)
		return
	}

	if p.state != ConnEstablished {
		if init, ok := msg.(*lnwire.Init); ok {
			p.finishHandshake(init)
			return
		}
		peerLog.Debugf("dropping %T received before init handshake completed", msg)
		return
	}

	switch m := msg.(type) {
	case *lnwire.Ping:
		p.sendOnConn(p.active, &lnwire.Pong{PaddingBytes: make([]byte, m.NumPongBytes)})
		return
	case *lnwire.Pong:
		return

	case *lnwire.Error:
		if m.IsConnectionWide() {
			peerLog.Warnf("connection-level error from peer: %s", m.Data)
			return
		}
		p.routeByChanID(m.ChanID, lnwallet.MessageReceived{Msg: msg})
		return

	case *lnwire.Warning:
		peerLog.Warnf("warning from peer (chan %x): %s", m.ChanID, m.Data)
		return

	case *lnwire.ChannelUpdate:
		chanID, ok := p.scidIndex[m.ShortChannelID]
		if !ok {
			peerLog.Debugf("dropping channel_update for unknown scid %d", m.ShortChannelID)
			return
		}
		p.dispatch(chanID, lnwallet.MessageReceived{Msg: msg})
		return

	case *lnwire.OpenChannel2:
		p.onOpenChannel2(m)
		return

	case *lnwire.OnionMessage:
		p.onOnionMessage(m)
		return
	}

	chanID, ok := extractChanID(msg)
	if !ok {
		peerLog.Debugf("dropping %T: no channel id to route by", msg)
		return
	}
	p.routeByChanID(chanID, lnwallet.MessageReceived{Msg: msg})
}

// routeByChanID resolves a wire-carried channel id (which may be a
// temporary id still pending its final assignment) to the channel's
// current map key before dispatching.
func (p *Peer) routeByChanID(id lnwire.ChannelID, cmd lnwallet.Command) {
	if final, ok := p.tempToFinal[id]; ok {
		id = final
	}
	if _, ok := p.channels[id]; !ok {
		peerLog.Debugf("dropping message for unknown channel %x", id)
		return
	}
	p.dispatch(id, cmd)
}

// finishHandshake validates the peer's Init, marks the connection
// established, refreshes on-chain fee targets, and dispatches Connected
// to every channel so Offline/Syncing states can resume.
func (p *Peer) finishHandshake(theirInit *lnwire.Init) {
	p.theirInit = theirInit
	p.state = ConnEstablished

	p.refreshFeeTargets()

	peerLog.Infof("connection %d established, their features: %x", p.active.id, theirInit.Features)

	for chanID := range p.channels {
		p.dispatch(chanID, lnwallet.Connected{OurInit: p.ourInit, TheirInit: p.theirInit})
	}
}

// refreshFeeTargets requests feerates for the block-confirmation targets
// this node cares about (2/6/18/144 blocks, mapped to funding/mutual-close/
// claim-main/fast), falling back to constants for any target the chain
// backend can't currently estimate.
func (p *Peer) refreshFeeTargets() {
	estimate := func(blocks uint32, fallback sweep.SatPerKWeight) sweep.SatPerKWeight {
		perKw, err := p.feeEstimator.EstimateFeePerKw(blocks)
		if err != nil {
			chainrpcLogFallback(blocks, err)
			return fallback
		}
		return sweep.SatPerKWeight(perKw)
	}

	p.fees = FeeTargets{
		Funding:     estimate(2, fallbackFundingFeerate),
		MutualClose: estimate(6, fallbackMutualCloseFeerate),
		ClaimMain:   estimate(18, fallbackClaimMainFeerate),
		Fast:        estimate(144, fallbackFastFeerate),
	}
}

func chainrpcLogFallback(blocks uint32, err error) {
	srvrLog.Warnf("fee estimate for %d-block target unavailable, using fallback: %v", blocks, err)
}

func (p *Peer) onPingTick() {
	if p.active == nil || p.state != ConnEstablished {
		return
	}
	p.sendOnConn(p.active, &lnwire.Ping{NumPongBytes: 0, PaddingBytes: nil})
}

func (p *Peer) onBlockTip(height uint32) {
	p.currentTip = height
	for chanID := range p.channels {
		p.dispatch(chanID, lnwallet.CheckHtlcTimeout{CurrentBlockHeight: height})
	}
}

func (p *Peer) ctx() lnwallet.Context {
	var ourID []byte
	if pub, err := p.keyRing.NodePubKey(); err == nil {
		ourID = pub.SerializeCompressed()
	}
	var theirID []byte
	if p.active != nil {
		theirID = p.active.conn.RemotePub().SerializeCompressed()
	}
	return lnwallet.Context{
		OurNodeID:              ourID,
		TheirNodeID:            theirID,
		CurrentBlockHeight:     p.currentTip,
		FeeratePerKw:           uint32(p.fees.Fast),
		Log:                    srvrLog,
		HtlcTimeoutSafetyDelta: p.cfg.HtlcTimeoutSafetyDelta,
	}
}

// dispatch runs cmd through the channel's pure state machine and
// interprets every resulting action. chanID must already be the
// channel's current map key (see routeByChanID for temp-id resolution).
func (p *Peer) dispatch(chanID lnwire.ChannelID, cmd lnwallet.Command) {
	state, ok := p.channels[chanID]
	if !ok {
		srvrLog.Warnf("dispatch to unknown channel %x dropped: %T", chanID, cmd)
		return
	}

	next, actions, err := lnwallet.Process(state, cmd, p.ctx())
	if err != nil {
		srvrLog.Errorf("channel %x: %T rejected: %v\n%s", chanID, cmd, err, spew.Sdump(cmd))
		return
	}

	p.channels[chanID] = next
	p.reindex(chanID, next)

	for _, action := range actions {
		p.interpret(chanID, action)
	}
}

// indexChannel installs a freshly restored or newly created state under
// chanID and (re)builds its temp-id/scid index entries.
func (p *Peer) indexChannel(chanID lnwire.ChannelID, state lnwallet.ChannelState) {
	p.channels[chanID] = state
	p.reindex(chanID, state)
}

func (p *Peer) reindex(chanID lnwire.ChannelID, state lnwallet.ChannelState) {
	if scid, ok := scidOf(state); ok {
		p.scidIndex[scid] = chanID
	}
}

func (p *Peer) sendOnConn(pc *peerConnection, msg lnwire.Message) error {
	var buf bytes.Buffer
	if _, err := lnwire.WriteMessage(&buf, msg); err != nil {
		return err
	}
	return pc.conn.WriteMessage(buf.Bytes())
}

func (p *Peer) sendMessage(msg lnwire.Message) error {
	if p.active == nil {
		return fmt.Errorf("no active connection")
	}
	return p.sendOnConn(p.active, msg)
}

// Send implements postman.Transport by delivering onion-message traffic
// over this node's one trampoline connection, since this module targets
// only the single-peer mobile topology and never forwards onion messages
// to further hops.
func (p *Peer) Send(nextHop *btcec.PublicKey, path *postman.BlindedPath, hopIndex int) error {
	msg, err := encodeOnionMessage(path)
	if err != nil {
		return err
	}
	return p.sendMessage(msg)
}

func (p *Peer) onOnionMessage(m *lnwire.OnionMessage) {
	path, err := decodeOnionMessage(m)
	if err != nil {
		peerLog.Warnf("dropping malformed onion message: %v", err)
		return
	}
	if err := p.postman.Peel(path, 0); err != nil {
		peerLog.Debugf("onion message not for us or malformed: %v", err)
	}
}

func parsePubKeyHex(s string) (*btcec.PublicKey, error) {
	b, err := hexDecode(s)
	if err != nil {
		return nil, err
	}
	return btcec.ParsePubKey(b)
}

// supportedFeatures is this node's advertised feature vector. Feature
// negotiation beyond "do we both speak dual-funding and splicing" is out
// of scope, so this is a fixed, empty vector rather than a bitset built up
// from an options struct.
func supportedFeatures() []byte {
	return []byte{}
}
