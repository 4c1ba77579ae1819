package phoenixcore

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"

	"github.com/breez/phoenixcore/channeldb"
	"github.com/breez/phoenixcore/htlcswitch"
	"github.com/breez/phoenixcore/lnwallet"
	"github.com/breez/phoenixcore/lnwire"
)

// interpret carries out one Action a channel transition returned.
// Actions that themselves produce a follow-up command (GetHtlcInfos,
// SendToSelf) recurse into dispatch rather than re-entering the command
// queue: channel logic itself never suspends mid-transition, only the
// storage/tip/feerate/event-bus boundaries below do.
func (p *Peer) interpret(chanID lnwire.ChannelID, action lnwallet.Action) {
	switch a := action.(type) {
	case lnwallet.SendMessage:
		if err := p.sendMessage(a.Msg); err != nil {
			peerLog.Warnf("channel %x: failed sending %T: %v", chanID, a.Msg, err)
		}

	case lnwallet.SendToSelf:
		p.dispatch(chanID, a.Cmd)

	case lnwallet.SendWatch:
		p.registerWatch(chanID, a)

	case lnwallet.PublishTx:
		if err := p.chainNotifier.PublishTransaction(a.Tx); err != nil {
			srvrLog.Errorf("channel %x: publishing %s failed: %v", chanID, a.Label, err)
		}

	case lnwallet.StoreState:
		rec, err := toPersisted([32]byte(a.ChanID), a.State, isTerminal(a.State))
		if err != nil {
			srvrLog.Errorf("channel %x: encoding state for storage failed: %v", chanID, err)
			return
		}
		if err := p.db.AddOrUpdateChannel(rec); err != nil {
			srvrLog.Errorf("channel %x: persisting state failed: %v", chanID, err)
		}

	case lnwallet.RemoveChannel:
		if err := p.db.RemoveChannel([32]byte(a.ChanID)); err != nil {
			srvrLog.Errorf("channel %x: removing persisted record failed: %v", chanID, err)
		}
		delete(p.channels, chanID)
		for temp, final := range p.tempToFinal {
			if final == chanID {
				delete(p.tempToFinal, temp)
			}
		}
		for scid, id := range p.scidIndex {
			if id == chanID {
				delete(p.scidIndex, scid)
			}
		}

	case lnwallet.StoreHtlcInfos:
		for _, htlc := range a.Htlcs {
			info := channeldb.HtlcInfo{
				HtlcID:      htlc.ID,
				AmountMsat:  int64(htlc.AmountMsat),
				PaymentHash: htlc.PaymentHash,
				CltvExpiry:  htlc.CltvExpiry,
			}
			if err := p.db.AddHtlcInfo([32]byte(a.ChanID), a.CommitmentNumber, info); err != nil {
				srvrLog.Errorf("channel %x: storing htlc info failed: %v", chanID, err)
			}
		}

	case lnwallet.GetHtlcInfos:
		infos, err := p.db.ListHtlcInfos([32]byte(a.ChanID), a.CommitmentNumber)
		if err != nil {
			srvrLog.Errorf("channel %x: loading htlc infos failed: %v", chanID, err)
			return
		}
		htlcs := make([]lnwallet.Htlc, len(infos))
		for i, info := range infos {
			htlcs[i] = lnwallet.Htlc{
				ID:          info.HtlcID,
				AmountMsat:  uint64(info.AmountMsat),
				PaymentHash: lnwallet.PaymentHash(info.PaymentHash),
				CltvExpiry:  info.CltvExpiry,
			}
		}
		p.dispatch(chanID, lnwallet.GetHtlcInfosResponse{
			CommitmentNumber: a.CommitmentNumber,
			RevokedTxID:      a.RevokedTxID,
			Htlcs:            htlcs,
		})

	case lnwallet.SetLocked:
		if err := p.db.SetLocked(a.TxID); err != nil {
			srvrLog.Errorf("channel %x: marking %x locked failed: %v", chanID, a.TxID, err)
		}

	case lnwallet.ProcessIncomingHtlc:
		p.processIncomingHtlc(chanID, a.Htlc)

	case lnwallet.ProcessCmdRes:
		p.processCmdRes(chanID, a)

	case lnwallet.ChannelIDAssigned:
		p.tempToFinal[a.Temporary] = a.Final
		if state, ok := p.channels[chanID]; ok {
			delete(p.channels, chanID)
			p.channels[a.Final] = state
		}

	case lnwallet.EmitEvent:
		p.events.Publish(Event{
			Kind:   mapDomainEvent(a.Kind),
			ChanID: a.ChanID,
			Detail: a.Detail,
		})

	default:
		srvrLog.Warnf("channel %x: unhandled action %T", chanID, action)
	}
}

func isTerminal(state lnwallet.ChannelState) bool {
	switch state.(type) {
	case lnwallet.Closed, lnwallet.Aborted:
		return true
	default:
		return false
	}
}

func mapDomainEvent(kind lnwallet.DomainEventKind) EventKind {
	switch kind {
	case lnwallet.EventChannelClosing:
		return EventChannelClosing
	case lnwallet.EventUpgradeRequired:
		return EventLegacyMigrationInfo
	default:
		return EventChannelClosing
	}
}

// registerWatch asks the chain backend to watch for a spend or
// confirmation and, once it fires, re-enqueues the result as a
// WatchReceived command for the same channel via the single command
// queue, preserving total transition ordering.
func (p *Peer) registerWatch(chanID lnwire.ChannelID, w lnwallet.SendWatch) {
	txHash := chainhash.Hash(w.TxID)

	switch w.Kind {
	case lnwallet.WatchFundingSpent:
		outpoint := &wire.OutPoint{Hash: txHash, Index: w.OutputIndex}
		ev, err := p.chainNotifier.RegisterSpendNtfn(outpoint, nil, p.currentTip)
		if err != nil {
			srvrLog.Errorf("channel %x: registering spend watch failed: %v", chanID, err)
			return
		}
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			select {
			case detail, ok := <-ev.Spend:
				if !ok {
					return
				}
				p.enqueue(watchResultCmd{chanID: chanID, cmd: lnwallet.WatchReceived{
					Kind:        w.Kind,
					BlockHeight: detail.SpenderHeight,
					TxHash:      [32]byte(*detail.SpenderTxHash),
				}})
			case <-p.quit:
			}
		}()

	case lnwallet.WatchFundingConfirmed, lnwallet.WatchOutputConfirmed:
		ev, err := p.chainNotifier.RegisterConfirmationsNtfn(&txHash, nil, w.MinDepth, p.currentTip)
		if err != nil {
			srvrLog.Errorf("channel %x: registering confirmation watch failed: %v", chanID, err)
			return
		}
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			select {
			case detail, ok := <-ev.Confirmed:
				if !ok {
					return
				}
				p.enqueue(watchResultCmd{chanID: chanID, cmd: lnwallet.WatchReceived{
					Kind:        w.Kind,
					BlockHeight: detail.BlockHeight,
					TxHash:      w.TxID,
				}})
			case <-p.quit:
			}
		}()
	}
}

// processIncomingHtlc forwards a settled-locally HTLC add to the invoice/
// MPP aggregation layer, replying with FulfillHtlc or FailHtlc once the
// handler has a verdict.
func (p *Peer) processIncomingHtlc(chanID lnwire.ChannelID, htlc lnwallet.Htlc) {
	paymentHash := [32]byte(htlc.PaymentHash)

	var amt *int64
	if stored, ok := p.invoiceAmts[paymentHash]; ok {
		amt = stored
	}

	result, err := p.incoming.ProcessIncomingHtlc(htlcswitch.IncomingHtlc{
		ChannelID:   [32]byte(chanID),
		HtlcID:      htlc.ID,
		PaymentHash: paymentHash,
		AmountMsat:  int64(htlc.AmountMsat),
		Expiry:      htlc.CltvExpiry,
	}, amt)
	if err != nil {
		srvrLog.Errorf("channel %x: processing incoming htlc %d failed: %v", chanID, htlc.ID, err)
		p.dispatch(chanID, lnwallet.FailHtlc{HtlcID: htlc.ID, Reason: []byte("temporary_node_failure")})
		return
	}

	switch {
	case result.Settle:
		p.dispatch(chanID, lnwallet.FulfillHtlc{HtlcID: htlc.ID, PaymentPreimage: result.Preimage})
		p.events.Publish(Event{Kind: EventPaymentReceived, PaymentHash: paymentHash})
	case result.Reject:
		p.dispatch(chanID, lnwallet.FailHtlc{HtlcID: htlc.ID, Reason: []byte(result.RejectMsg)})
	default:
		// Part of an in-flight MPP aggregation; nothing to reply yet.
	}
}

// processCmdRes routes an outgoing HTLC's asynchronous resolution to the
// outgoing payment handler, using the (parentID, partID) this node
// recorded when it issued the AddHtlc.
func (p *Peer) processCmdRes(chanID lnwire.ChannelID, res lnwallet.ProcessCmdRes) {
	key := htlcKey{chanID: chanID, htlcID: res.HtlcID}
	ref, ok := p.outgoingRefs[key]
	if !ok {
		srvrLog.Warnf("channel %x: resolution for untracked htlc %d", chanID, res.HtlcID)
		return
	}
	delete(p.outgoingRefs, key)

	var err error
	switch res.Kind {
	case lnwallet.CmdResAddFailed:
		reason := ""
		if res.Err != nil {
			reason = res.Err.Error()
		}
		err = p.outgoing.AddFailed(ref.parentID, ref.partID, reason, nil)
	case lnwallet.CmdResAddSettledFail:
		err = p.outgoing.AddSettledFail(ref.parentID, ref.partID, "onion_failure", string(res.FailureReason), false, nil)
	case lnwallet.CmdResAddSettledFulfill:
		err = p.outgoing.AddSettledFulfill(ref.parentID, ref.partID, res.PaymentPreimage)
		if err == nil {
			p.events.Publish(Event{Kind: EventPaymentSent})
		}
	case lnwallet.CmdResNotExecuted:
		err = p.outgoing.AddFailed(ref.parentID, ref.partID, "not_executed", nil)
	}
	if err != nil {
		srvrLog.Errorf("channel %x: recording htlc %d resolution failed: %v", chanID, res.HtlcID, err)
	}
}
