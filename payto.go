package phoenixcore

import (
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/shopspring/decimal"

	"github.com/breez/phoenixcore/lnwallet"
	"github.com/breez/phoenixcore/lnwire"
	"github.com/breez/phoenixcore/sweep"
	"github.com/breez/phoenixcore/swapin"
)

// networkParams resolves this node's configured network name to the
// chain_hash it announces in open_channel2/please_open_channel, mirroring
// zpay32's own net-name handling.
func networkParams(network string) *chaincfg.Params {
	switch network {
	case "testnet":
		return &chaincfg.TestNet3Params
	case "regtest":
		return &chaincfg.RegressionNetParams
	case "simnet":
		return &chaincfg.SimNetParams
	default:
		return &chaincfg.MainNetParams
	}
}

func (p *Peer) chainHash() [32]byte {
	return [32]byte(*networkParams(p.cfg.Network).GenesisHash)
}

// onSwapinRequest turns a reserved swap-in UTXO set into either a
// please_open_channel ask (no usable channel yet) or a splice-in request
// against an existing Normal channel. Nothing is sent until a connection
// is established; the reservation is released if none ever arrives (see
// onConnClosed).
func (p *Peer) onSwapinRequest(req *swapin.RequestChannelOpen) {
	if p.active == nil || p.state != ConnEstablished {
		peerLog.Debugf("deferring swap-in request %x: no established connection", req.RequestID)
		p.swapMgr.UnlockWalletInputs(outpointsOf(req.WalletInputs))
		return
	}

	var total int64
	for _, u := range req.WalletInputs {
		total += u.AmountSats
	}

	fundingFeerate := uint32(p.fees.Funding)
	miningFee := p.fees.Funding.FeeForWeight(fundingWeight(len(req.WalletInputs)))
	serviceFee := serviceFeeSats(btcutil.Amount(total), p.cfg.Liquidity.MaxFeePercent)

	pushAmount := btcutil.Amount(total) - miningFee - serviceFee
	if pushAmount <= 0 {
		peerLog.Warnf("swap-in request %x rejected: fees exceed swept amount", req.RequestID)
		p.swapMgr.UnlockWalletInputs(outpointsOf(req.WalletInputs))
		return
	}

	if chanID, ok := p.spliceCapableChannel(); ok {
		p.dispatch(chanID, lnwallet.SpliceRequest{
			SpliceInSats: btcutil.Amount(total),
			FeeratePerKw: fundingFeerate,
		})
		return
	}

	p.pendingOpens[req.RequestID] = pendingOpenRequest{
		requestID:    req.RequestID,
		walletInputs: req.WalletInputs,
		serviceFee:   int64(serviceFee),
		miningFee:    int64(miningFee),
	}

	msg := &lnwire.PleaseOpenChannel{
		ChainHash:       p.chainHash(),
		RequestID:       req.RequestID,
		FundingSatoshis: btcutil.Amount(total),
		PushMsat:        uint64(pushAmount) * 1000,
		FundingFeerate:  fundingFeerate,
	}
	if err := p.sendMessage(msg); err != nil {
		peerLog.Errorf("sending please_open_channel %x failed: %v", req.RequestID, err)
		delete(p.pendingOpens, req.RequestID)
		p.swapMgr.UnlockWalletInputs(outpointsOf(req.WalletInputs))
	}
}

// fundingWeight sizes a funding transaction with one P2WKH change output
// and the given number of witness inputs, for mining-fee budgeting ahead
// of the interactive tx construction itself.
func fundingWeight(numInputs int) int64 {
	var est sweep.TxWeightEstimator
	for i := 0; i < numInputs; i++ {
		est.AddWitnessInput(108)
	}
	est.AddP2WKHOutput()
	return est.Weight()
}

// serviceFeeSats computes a percentage-of-amount fee using decimal
// arithmetic instead of plain integer division, keeping the computation
// exact if MaxFeePercent ever grows a fractional form.
func serviceFeeSats(total btcutil.Amount, percent uint32) btcutil.Amount {
	fee := decimal.NewFromInt(int64(total)).
		Mul(decimal.NewFromInt(int64(percent))).
		Div(decimal.NewFromInt(100))
	return btcutil.Amount(fee.IntPart())
}

func (p *Peer) spliceCapableChannel() (lnwire.ChannelID, bool) {
	for chanID, state := range p.channels {
		if _, ok := state.(lnwallet.Normal); ok {
			return chanID, true
		}
	}
	return lnwire.ChannelID{}, false
}

// onOpenChannel2 correlates an inbound dual-funding open against a pending
// please_open_channel ask (if any) and starts the channel as the
// non-initiator. An open with no matching pending request is still
// accepted unsolicited, since the trampoline peer may open a channel for
// reasons other than this node's own ask.
func (p *Peer) onOpenChannel2(m *lnwire.OpenChannel2) {
	var requestID *[32]byte
	if id, ok, err := m.Origin(); err == nil && ok {
		requestID = &id
		if _, pending := p.pendingOpens[id]; pending {
			delete(p.pendingOpens, id)
		}
	}

	if _, exists := p.channels[m.TemporaryChanID]; exists {
		peerLog.Warnf("dropping open_channel2 for already-known temporary channel %x", m.TemporaryChanID)
		return
	}

	p.indexChannel(m.TemporaryChanID, lnwallet.WaitForInit{})
	p.dispatch(m.TemporaryChanID, lnwallet.InitNonInitiator{
		TemporaryChanID: m.TemporaryChanID,
		RequestID:       requestID,
	})
	p.dispatch(m.TemporaryChanID, lnwallet.MessageReceived{Msg: m})
}

// onSweepTick runs on every sweep tick. While a connection is
// established, it re-sends please_open_channel for every request still
// waiting in pendingOpens; otherwise it does nothing. It does not retry
// or time out outgoing payments.
func (p *Peer) onSweepTick() {
	if p.active == nil || p.state != ConnEstablished {
		return
	}
	for reqID, req := range p.pendingOpens {
		peerLog.Debugf("re-sending please_open_channel %x on sweep tick", reqID)
		msg := &lnwire.PleaseOpenChannel{
			ChainHash:       p.chainHash(),
			RequestID:       reqID,
			FundingSatoshis: sumUtxos(req.walletInputs),
			PushMsat:        uint64(sumUtxos(req.walletInputs)-btcutil.Amount(req.miningFee)-btcutil.Amount(req.serviceFee)) * 1000,
			FundingFeerate:  uint32(p.fees.Funding),
		}
		if err := p.sendMessage(msg); err != nil {
			peerLog.Warnf("resending please_open_channel %x failed: %v", reqID, err)
		}
	}
}

func sumUtxos(utxos []swapin.Utxo) btcutil.Amount {
	var total int64
	for _, u := range utxos {
		total += u.AmountSats
	}
	return btcutil.Amount(total)
}
