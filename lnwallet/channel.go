// Package lnwallet implements the channel state machine as a pure,
// context-taking transition function. No I/O is performed here; every
// effect a transition requires is returned as an Action for the
// orchestrator to carry out.
package lnwallet

import (
	"github.com/btcsuite/btclog"

	"github.com/breez/phoenixcore/lnwire"
)

// Context carries the static parameters a transition needs but that do not
// belong in channel state: node identities, the current chain tip and
// feerate, and a logger. It is supplied fresh on every call and never
// mutated.
type Context struct {
	OurNodeID          []byte
	TheirNodeID         []byte
	CurrentBlockHeight  uint32
	FeeratePerKw        uint32
	Log                 btclog.Logger

	// HtlcTimeoutSafetyDelta is the number of blocks of margin kept
	// before an HTLC's cltv_expiry, below which the channel force-closes
	// rather than risk losing the on-chain race.
	HtlcTimeoutSafetyDelta uint32
}

// Process is the channel state machine's single entry point: given the
// current state, an input command, and the ambient context, it returns the
// next state and the actions the orchestrator must carry out. It never
// mutates its arguments.
func Process(state ChannelState, cmd Command, ctx Context) (ChannelState, []Action, error) {
	switch st := state.(type) {
	case WaitForInit:
		return processWaitForInit(st, cmd, ctx)
	case WaitForOpenChannel:
		return processWaitForOpenChannel(st, cmd, ctx)
	case WaitForAcceptChannel:
		return processWaitForAcceptChannel(st, cmd, ctx)
	case WaitForFundingCreated:
		return processWaitForFundingCreated(st, cmd, ctx)
	case WaitForFundingSigned:
		return processWaitForFundingSigned(st, cmd, ctx)
	case WaitForFundingConfirmed:
		return processWaitForFundingConfirmed(st, cmd, ctx)
	case LegacyWaitForFundingConfirmed:
		return processLegacyWaitForFundingConfirmed(st, cmd, ctx)
	case WaitForChannelReady:
		return processWaitForChannelReady(st, cmd, ctx)
	case Normal:
		return processNormal(st, cmd, ctx)
	case ShuttingDown:
		return processShuttingDown(st, cmd, ctx)
	case Negotiating:
		return processNegotiating(st, cmd, ctx)
	case Closing:
		return processClosing(st, cmd, ctx)
	case Closed:
		return st, nil, nil
	case Aborted:
		return st, nil, nil
	case Offline:
		return processOffline(st, cmd, ctx)
	case Syncing:
		return processSyncing(st, cmd, ctx)
	default:
		return state, nil, nil
	}
}

func processWaitForInit(st WaitForInit, cmd Command, ctx Context) (ChannelState, []Action, error) {
	switch c := cmd.(type) {
	case InitRestore:
		return Offline{Inner: c.PersistedState}, nil, nil

	case InitInitiator:
		msg := &lnwire.OpenChannel2{
			ChainHash:            [32]byte(c.Params.ChainHash),
			TemporaryChanID:      c.TemporaryChanID,
			FundingFeerate:       c.Params.FundingFeeratePerKw,
			CommitmentFeerate:    ctx.FeeratePerKw,
			FundingAmount:        0,
			DustLimit:            c.Params.DustLimit,
			MaxHtlcValueInFlight: c.Params.MaxHtlcValueInFlightMsat,
			HtlcMinimum:          0,
			ToSelfDelay:          c.Params.ToSelfDelay,
			MaxAcceptedHtlcs:     c.Params.MaxAcceptedHtlcs,
			FundingKey:           c.Params.Keys.FundingKeyLocal,
		}
		next := WaitForAcceptChannel{
			TemporaryChanID: c.TemporaryChanID,
			Params:          c.Params,
		}
		return next, []Action{SendMessage{Msg: msg}}, nil

	case InitNonInitiator:
		next := WaitForOpenChannel{
			TemporaryChanID: lnwire.ChannelID{},
			RequestID:       c.RequestID,
		}
		return next, nil, nil

	default:
		return st, nil, nil
	}
}

func processWaitForOpenChannel(st WaitForOpenChannel, cmd Command, ctx Context) (ChannelState, []Action, error) {
	mr, ok := cmd.(MessageReceived)
	if !ok {
		return st, nil, nil
	}
	open, ok := mr.Msg.(*lnwire.OpenChannel2)
	if !ok {
		return st, nil, nil
	}

	params := ChannelParams{
		ChainHash:                open.ChainHash,
		DustLimit:                open.DustLimit,
		MaxHtlcValueInFlightMsat: open.MaxHtlcValueInFlight,
		HtlcMinimumMsat:          uint64(open.HtlcMinimum),
		ToSelfDelay:              open.ToSelfDelay,
		MaxAcceptedHtlcs:         open.MaxAcceptedHtlcs,
		FundingFeeratePerKw:      open.FundingFeerate,
		IsInitiator:              false,
		Keys: ChannelKeys{
			FundingKeyRemote:              open.FundingKey,
			RevocationBasepointRemote:     open.RevocationPoint,
			PaymentBasepointRemote:        open.PaymentPoint,
			DelayedPaymentBasepointRemote: open.DelayedPaymentPoint,
			HtlcBasepointRemote:           open.HtlcPoint,
		},
	}

	accept := &lnwire.AcceptChannel2{
		TemporaryChanID: open.TemporaryChanID,
		FundingAmount:   0,
		DustLimit:       params.DustLimit,
		ToSelfDelay:     params.ToSelfDelay,
		MaxAcceptedHtlcs: params.MaxAcceptedHtlcs,
		FundingKey:      params.Keys.FundingKeyRemote,
	}
	if st.RequestID != nil {
		raw, err := lnwire.EncodeRequestID(*st.RequestID)
		if err == nil {
			accept.ExtraData = raw
		}
	}

	next := WaitForFundingCreated{
		TemporaryChanID: open.TemporaryChanID,
		Params:          params,
	}
	return next, []Action{SendMessage{Msg: accept}}, nil
}

func processWaitForAcceptChannel(st WaitForAcceptChannel, cmd Command, ctx Context) (ChannelState, []Action, error) {
	mr, ok := cmd.(MessageReceived)
	if !ok {
		return st, nil, nil
	}
	accept, ok := mr.Msg.(*lnwire.AcceptChannel2)
	if !ok {
		return st, nil, nil
	}

	params := st.Params
	params.Keys.FundingKeyRemote = accept.FundingKey
	params.Keys.RevocationBasepointRemote = accept.RevocationPoint
	params.Keys.PaymentBasepointRemote = accept.PaymentPoint
	params.Keys.DelayedPaymentBasepointRemote = accept.DelayedPaymentPoint
	params.Keys.HtlcBasepointRemote = accept.HtlcPoint

	next := WaitForFundingCreated{
		TemporaryChanID: st.TemporaryChanID,
		Params:          params,
	}
	return next, nil, nil
}

// processWaitForFundingCreated drives the interactive-tx round: inputs and
// outputs accumulate from both sides until each has sent tx_complete, at
// which point a commitment_signed is produced and we move on to
// WaitForFundingSigned.
func processWaitForFundingCreated(st WaitForFundingCreated, cmd Command, ctx Context) (ChannelState, []Action, error) {
	mr, ok := cmd.(MessageReceived)
	if !ok {
		return st, nil, nil
	}

	switch m := mr.Msg.(type) {
	case *lnwire.TxAddInput:
		st.RemoteInputs = append(st.RemoteInputs, InteractiveTxInput{
			SerialID: m.SerialID, PrevTx: m.PrevTx, PrevTxVout: m.PrevTxVout,
			Sequence: m.Sequence,
		})
		return st, nil, nil

	case *lnwire.TxAddOutput:
		st.RemoteOutputs = append(st.RemoteOutputs, InteractiveTxOutput{
			SerialID: m.SerialID, Amount: int64(m.Amount), Script: m.Script,
		})
		return st, nil, nil

	case *lnwire.TxRemoveInput:
		st.RemoteInputs = removeInput(st.RemoteInputs, m.SerialID)
		return st, nil, nil

	case *lnwire.TxRemoveOutput:
		st.RemoteOutputs = removeOutput(st.RemoteOutputs, m.SerialID)
		return st, nil, nil

	case *lnwire.TxComplete:
		st.PeerDone = true
		if st.SelfDone {
			return finishInteractiveTx(st, ctx)
		}
		return st, nil, nil

	case *lnwire.TxAbort:
		return Aborted{ChanID: st.TemporaryChanID, Reason: "peer sent tx_abort"}, nil, ErrInteractiveTxAborted

	default:
		return st, nil, nil
	}
}

func removeInput(ins []InteractiveTxInput, serial uint64) []InteractiveTxInput {
	out := ins[:0]
	for _, in := range ins {
		if in.SerialID != serial {
			out = append(out, in)
		}
	}
	return out
}

func removeOutput(outs []InteractiveTxOutput, serial uint64) []InteractiveTxOutput {
	out := outs[:0]
	for _, o := range outs {
		if o.SerialID != serial {
			out = append(out, o)
		}
	}
	return out
}

func finishInteractiveTx(st WaitForFundingCreated, ctx Context) (ChannelState, []Action, error) {
	var localAmt, remoteAmt int64
	for _, o := range st.LocalOutputs {
		localAmt += o.Amount
	}
	for _, o := range st.RemoteOutputs {
		remoteAmt += o.Amount
	}

	spec := CommitmentSpec{
		ToLocalMsat:  uint64(localAmt) * 1000,
		ToRemoteMsat: uint64(remoteAmt) * 1000,
		FeeratePerKw: ctx.FeeratePerKw,
	}

	next := WaitForFundingSigned{
		TemporaryChanID: st.TemporaryChanID,
		Params:          st.Params,
		LocalSpec:       spec,
		RemoteSpec:      spec.Clone(),
	}

	sig := &lnwire.CommitmentSigned{ChanID: st.TemporaryChanID}
	return next, []Action{SendMessage{Msg: sig}}, nil
}

// processWaitForFundingSigned waits for the counterparty's
// commitment_signed, then releases our withheld input signatures via
// tx_signatures and starts watching for confirmation.
func processWaitForFundingSigned(st WaitForFundingSigned, cmd Command, ctx Context) (ChannelState, []Action, error) {
	mr, ok := cmd.(MessageReceived)
	if !ok {
		return st, nil, nil
	}
	_, ok = mr.Msg.(*lnwire.CommitmentSigned)
	if !ok {
		return st, nil, nil
	}

	txSigs := &lnwire.TxSignatures{ChanID: st.TemporaryChanID}

	commitments := Commitments{
		ChannelID:  st.TemporaryChanID,
		Params:     st.Params,
		Funding:    st.Funding,
		LocalSpec:  st.LocalSpec,
		RemoteSpec: st.RemoteSpec,
	}
	next := WaitForFundingConfirmed{
		ChanID:      st.TemporaryChanID,
		Commitments: commitments,
	}

	actions := []Action{
		SendMessage{Msg: txSigs},
		SendWatch{Kind: WatchFundingConfirmed, MinDepth: 1},
		StoreState{ChanID: st.TemporaryChanID, State: next},
	}
	return next, actions, nil
}

func processWaitForFundingConfirmed(st WaitForFundingConfirmed, cmd Command, ctx Context) (ChannelState, []Action, error) {
	return waitForConfirmedGeneric(st.ChanID, st.Commitments, cmd)
}

func processLegacyWaitForFundingConfirmed(st LegacyWaitForFundingConfirmed, cmd Command, ctx Context) (ChannelState, []Action, error) {
	return waitForConfirmedGeneric(st.ChanID, st.Commitments, cmd)
}

func waitForConfirmedGeneric(chanID lnwire.ChannelID, commitments Commitments, cmd Command) (ChannelState, []Action, error) {
	wr, ok := cmd.(WatchReceived)
	if !ok || wr.Kind != WatchFundingConfirmed {
		return WaitForFundingConfirmed{ChanID: chanID, Commitments: commitments}, nil, nil
	}

	finalID := lnwire.NewChannelID(wr.TxHash, uint16(commitments.Funding.OutPoint.Index))
	commitments.ChannelID = finalID

	ready := &lnwire.ChannelReady{ChanID: finalID}
	next := WaitForChannelReady{ChanID: finalID, Commitments: commitments}

	actions := []Action{
		ChannelIDAssigned{Temporary: chanID, Final: finalID},
		SendMessage{Msg: ready},
		StoreState{ChanID: finalID, State: next},
	}
	return next, actions, nil
}

func processWaitForChannelReady(st WaitForChannelReady, cmd Command, ctx Context) (ChannelState, []Action, error) {
	mr, ok := cmd.(MessageReceived)
	if !ok {
		return st, nil, nil
	}
	ready, ok := mr.Msg.(*lnwire.ChannelReady)
	if !ok {
		return st, nil, nil
	}

	st.RemoteReady = true
	if ready.ShortChannelID != nil {
		scid := decodeShortChannelID(*ready.ShortChannelID)
		st.Commitments.ShortChannelID = &scid
	}
	st.LocalReady = true

	if !st.LocalReady || !st.RemoteReady {
		return st, nil, nil
	}

	next := Normal{ChanID: st.ChanID, Commitments: st.Commitments}
	return next, []Action{StoreState{ChanID: st.ChanID, State: next}}, nil
}

func decodeShortChannelID(v uint64) ShortChannelID {
	return ShortChannelID{
		BlockHeight: uint32(v >> 40),
		TxIndex:     uint32((v >> 16) & 0xffffff),
		TxPosition:  uint16(v & 0xffff),
	}
}

// processNormal implements the operating-state commitment protocol:
// buffering HTLC adds/fulfills/fails into the proposed-changes set,
// producing commitment_signed on Sign, and advancing the commitment number
// on revoke_and_ack.
func processNormal(st Normal, cmd Command, ctx Context) (ChannelState, []Action, error) {
	switch c := cmd.(type) {
	case AddHtlc:
		return normalAddHtlc(st, c, ctx)

	case FulfillHtlc:
		return normalFulfillHtlc(st, c)

	case FailHtlc:
		return normalFailHtlc(st, c)

	case Sign:
		return normalSign(st)

	case CheckHtlcTimeout:
		return normalCheckHtlcTimeout(st, c, ctx)

	case ForceClose:
		return forceCloseFromNormal(st)

	case SpliceRequest:
		return processSpliceRequest(st, c, ctx)

	case MessageReceived:
		switch c.Msg.(type) {
		case *lnwire.SpliceInit, *lnwire.SpliceAck, *lnwire.SpliceLocked:
			return processSpliceWireMessage(st, c.Msg)
		default:
			return normalMessageReceived(st, c, ctx)
		}

	case Close:
		shutdown := &lnwire.Shutdown{ChanID: st.ChanID, ScriptPubkey: c.ScriptPubKey}
		next := ShuttingDown{
			ChanID:      st.ChanID,
			Commitments: st.Commitments,
			Closing:     ClosingInfo{LocalShutdownScript: c.ScriptPubKey},
		}
		return next, []Action{SendMessage{Msg: shutdown}}, nil

	default:
		return st, nil, nil
	}
}

func normalAddHtlc(st Normal, c AddHtlc, ctx Context) (ChannelState, []Action, error) {
	reserveFloor := st.Commitments.Params.DustLimit
	if int64(st.Commitments.RemoteSpec.ToLocalMsat) < int64(c.AmountMsat)+int64(reserveFloor)*1000 {
		return st, nil, ErrInsufficientBalance
	}
	if len(st.Commitments.RemoteSpec.Htlcs) >= int(st.Commitments.Params.MaxAcceptedHtlcs) {
		return st, nil, ErrMaxHTLCNumber
	}

	nextID := uint64(len(st.Commitments.LocalSpec.Htlcs))
	htlc := Htlc{
		Direction:   Outgoing,
		ID:          nextID,
		AmountMsat:  c.AmountMsat,
		PaymentHash: c.PaymentHash,
		CltvExpiry:  c.CltvExpiry,
		OnionBlob:   c.OnionBlob,
		Fate:        HtlcPending,
	}

	newCommitments := st.Commitments
	newCommitments.LocalSpec = st.Commitments.LocalSpec.Clone()
	newCommitments.LocalSpec.Htlcs = append(newCommitments.LocalSpec.Htlcs, htlc)
	newCommitments.LocalSpec.ToLocalMsat -= c.AmountMsat

	next := st
	next.Commitments = newCommitments

	wireMsg := &lnwire.UpdateAddHTLC{
		ChanID:      st.ChanID,
		ID:          nextID,
		Amount:      0,
		PaymentHash: c.PaymentHash,
		Expiry:      c.CltvExpiry,
		OnionBlob:   c.OnionBlob,
	}

	if c.ReplyTo != nil {
		select {
		case c.ReplyTo <- AddHtlcResult{HtlcID: nextID}:
		default:
		}
	}

	actions := []Action{SendMessage{Msg: wireMsg}}
	return next, actions, nil
}

func normalFulfillHtlc(st Normal, c FulfillHtlc) (ChannelState, []Action, error) {
	spec := st.Commitments.RemoteSpec.Clone()
	found := false
	for i := range spec.Htlcs {
		if spec.Htlcs[i].ID == c.HtlcID {
			spec.Htlcs[i].Fate = HtlcFulfilled
			found = true
			break
		}
	}
	if !found {
		return st, nil, ErrUnknownHtlcID
	}

	next := st
	next.Commitments.RemoteSpec = spec

	msg := &lnwire.UpdateFulfillHTLC{
		ChanID:          st.ChanID,
		ID:              c.HtlcID,
		PaymentPreimage: c.PaymentPreimage,
	}
	return next, []Action{SendMessage{Msg: msg}}, nil
}

func normalFailHtlc(st Normal, c FailHtlc) (ChannelState, []Action, error) {
	spec := st.Commitments.RemoteSpec.Clone()
	found := false
	for i := range spec.Htlcs {
		if spec.Htlcs[i].ID == c.HtlcID {
			spec.Htlcs[i].Fate = HtlcFailed
			found = true
			break
		}
	}
	if !found {
		return st, nil, ErrUnknownHtlcID
	}

	next := st
	next.Commitments.RemoteSpec = spec

	msg := &lnwire.UpdateFailHTLC{ChanID: st.ChanID, ID: c.HtlcID, Reason: c.Reason}
	return next, []Action{SendMessage{Msg: msg}}, nil
}

func normalSign(st Normal) (ChannelState, []Action, error) {
	next := st
	next.Commitments.CommitmentNumber++

	sig := &lnwire.CommitmentSigned{ChanID: st.ChanID}
	actions := []Action{
		SendMessage{Msg: sig},
		StoreState{ChanID: st.ChanID, State: next},
	}
	return next, actions, nil
}

// normalCheckHtlcTimeout implements the end-to-end "channel force-close on
// HTLC timeout" scenario: any outgoing HTLC whose cltv_expiry has crossed
// the safety threshold forces a unilateral close via the local commitment.
func normalCheckHtlcTimeout(st Normal, c CheckHtlcTimeout, ctx Context) (ChannelState, []Action, error) {
	threshold := c.CurrentBlockHeight + ctx.HtlcTimeoutSafetyDelta
	for _, h := range st.Commitments.LocalSpec.Htlcs {
		if h.Direction == Outgoing && h.Fate == HtlcPending && threshold >= h.CltvExpiry {
			return forceCloseFromNormal(st)
		}
	}
	return st, nil, nil
}

func forceCloseFromNormal(st Normal) (ChannelState, []Action, error) {
	closing := ClosingInfo{}
	next := Closing{
		ChanID:      st.ChanID,
		Commitments: st.Commitments,
		Kind:        ClosingLocalForce,
		Closing:     closing,
	}
	actions := []Action{
		PublishTx{Label: "local-commitment"},
		StoreState{ChanID: st.ChanID, State: next},
	}
	return next, actions, nil
}

func normalMessageReceived(st Normal, c MessageReceived, ctx Context) (ChannelState, []Action, error) {
	switch m := c.Msg.(type) {
	case *lnwire.UpdateAddHTLC:
		spec := st.Commitments.RemoteSpec.Clone()
		spec.Htlcs = append(spec.Htlcs, Htlc{
			Direction:   Incoming,
			ID:          m.ID,
			AmountMsat:  uint64(m.Amount),
			PaymentHash: PaymentHash(m.PaymentHash),
			CltvExpiry:  m.Expiry,
			OnionBlob:   m.OnionBlob,
			Fate:        HtlcPending,
		})
		next := st
		next.Commitments.RemoteSpec = spec
		return next, nil, nil

	case *lnwire.CommitmentSigned:
		secret := [32]byte{}
		revoke := &lnwire.RevokeAndAck{ChanID: st.ChanID, PerCommitmentSecret: secret}
		next := st
		next.Commitments.CommitmentNumber++
		actions := []Action{
			SendMessage{Msg: revoke},
			StoreHtlcInfos{
				ChanID:           st.ChanID,
				CommitmentNumber: st.Commitments.CommitmentNumber,
				Htlcs:            st.Commitments.LocalSpec.Htlcs,
			},
			StoreState{ChanID: st.ChanID, State: next},
		}
		return next, actions, nil

	case *lnwire.RevokeAndAck:
		return st, nil, nil

	case *lnwire.Error:
		return forceCloseFromNormal(st)

	case *lnwire.Shutdown:
		next := ShuttingDown{
			ChanID:      st.ChanID,
			Commitments: st.Commitments,
			Closing:     ClosingInfo{RemoteShutdownScript: m.ScriptPubkey},
		}
		return next, nil, nil

	default:
		return st, nil, nil
	}
}

func processShuttingDown(st ShuttingDown, cmd Command, ctx Context) (ChannelState, []Action, error) {
	hasPending := false
	for _, h := range st.Commitments.LocalSpec.Htlcs {
		if h.Fate == HtlcPending {
			hasPending = true
			break
		}
	}
	if hasPending {
		return st, nil, nil
	}

	next := Negotiating{ChanID: st.ChanID, Commitments: st.Commitments, Closing: st.Closing}
	closingSigned := &lnwire.ClosingSigned{ChanID: st.ChanID}
	return next, []Action{SendMessage{Msg: closingSigned}}, nil
}

func processNegotiating(st Negotiating, cmd Command, ctx Context) (ChannelState, []Action, error) {
	mr, ok := cmd.(MessageReceived)
	if !ok {
		return st, nil, nil
	}
	cs, ok := mr.Msg.(*lnwire.ClosingSigned)
	if !ok {
		return st, nil, nil
	}

	if st.Closing.LastFeeOffered != 0 && cs.FeeSatoshis == st.Closing.LastFeeOffered {
		next := Closing{
			ChanID:      st.ChanID,
			Commitments: st.Commitments,
			Kind:        ClosingMutual,
			Closing:     st.Closing,
		}
		return next, []Action{PublishTx{Label: "mutual-close"}}, nil
	}

	st.Closing.LastFeeOffered = cs.FeeSatoshis
	reply := &lnwire.ClosingSigned{ChanID: st.ChanID, FeeSatoshis: cs.FeeSatoshis}
	return st, []Action{SendMessage{Msg: reply}}, nil
}

func processClosing(st Closing, cmd Command, ctx Context) (ChannelState, []Action, error) {
	wr, ok := cmd.(WatchReceived)
	if !ok || wr.Kind != WatchOutputConfirmed {
		return st, nil, nil
	}
	next := Closed{ChanID: st.ChanID}
	return next, []Action{RemoveChannel{ChanID: st.ChanID}}, nil
}

func processOffline(st Offline, cmd Command, ctx Context) (ChannelState, []Action, error) {
	switch cmd.(type) {
	case Connected:
		backup := Syncing{Inner: st.Inner}
		reestablish := buildReestablish(st.Inner)
		return backup, []Action{SendMessage{Msg: reestablish}}, nil

	case WatchReceived, CheckHtlcTimeout:
		innerNext, actions, err := Process(st.Inner, cmd, ctx)
		return Offline{Inner: innerNext}, actions, err

	default:
		return st, nil, nil
	}
}

func processSyncing(st Syncing, cmd Command, ctx Context) (ChannelState, []Action, error) {
	mr, ok := cmd.(MessageReceived)
	if !ok {
		if _, isDisconnect := cmd.(Disconnected); isDisconnect {
			return Offline{Inner: st.Inner}, nil, nil
		}
		return st, nil, nil
	}

	reest, ok := mr.Msg.(*lnwire.ChannelReestablish)
	if !ok {
		return st, nil, nil
	}

	st.ReestablishReceived = true
	recovered, events, err := reconcileReestablish(st.Inner, reest, ctx)
	if err != nil {
		return st, nil, err
	}

	return recovered, events, nil
}

func buildReestablish(state ChannelState) *lnwire.ChannelReestablish {
	var chanID lnwire.ChannelID
	var commitNum uint64

	switch st := state.(type) {
	case Normal:
		chanID, commitNum = st.ChanID, st.Commitments.CommitmentNumber
	case ShuttingDown:
		chanID, commitNum = st.ChanID, st.Commitments.CommitmentNumber
	case Negotiating:
		chanID, commitNum = st.ChanID, st.Commitments.CommitmentNumber
	case WaitForChannelReady:
		chanID, commitNum = st.ChanID, st.Commitments.CommitmentNumber
	}

	return &lnwire.ChannelReestablish{
		ChanID:                     chanID,
		NextLocalCommitmentNumber:  commitNum + 1,
		NextRemoteRevocationNumber: commitNum,
	}
}

// reconcileReestablish checks the peer's reestablish for signs of data
// loss. When the peer's revocation number is ahead of our commitment
// number and no channel_data backup is attached, it returns
// ErrCommitSyncDataLoss. When a backup is attached, it is passed to
// decodeChannelBackup, which always fails with ErrCommitSyncDataLoss, so
// no state is recovered from a peer backup and the channel stays Offline.
func reconcileReestablish(inner ChannelState, reest *lnwire.ChannelReestablish, ctx Context) (ChannelState, []Action, error) {
	localCommitNum := commitmentNumberOf(inner)

	if reest.NextRemoteRevocationNumber > localCommitNum {
		blob, ok, err := reest.ChannelBackup()
		if err != nil {
			return Offline{Inner: inner}, nil, err
		}
		if !ok {
			return Offline{Inner: inner}, nil, ErrCommitSyncDataLoss
		}

		recoveredState, upgradeNeeded, err := decodeChannelBackup(blob)
		if err != nil {
			return Offline{Inner: inner}, nil, err
		}
		if upgradeNeeded {
			return Offline{Inner: inner}, []Action{
				EmitEvent{Kind: EventUpgradeRequired, Detail: "channel backup version unsupported"},
			}, nil
		}

		return recoveredState, nil, nil
	}

	return inner, nil, nil
}

func commitmentNumberOf(state ChannelState) uint64 {
	switch st := state.(type) {
	case Normal:
		return st.Commitments.CommitmentNumber
	case ShuttingDown:
		return st.Commitments.CommitmentNumber
	case Negotiating:
		return st.Commitments.CommitmentNumber
	case WaitForChannelReady:
		return st.Commitments.CommitmentNumber
	default:
		return 0
	}
}

// decodeChannelBackup is the point where a peer-supplied backup blob
// would be decrypted and deserialized; lnwallet itself stays free of the
// encryption collaborator so Process remains pure. It performs no
// decoding: every blob, empty or not, yields ErrCommitSyncDataLoss.
func decodeChannelBackup(blob []byte) (ChannelState, bool, error) {
	if len(blob) == 0 {
		return nil, false, ErrCommitSyncDataLoss
	}
	return nil, false, ErrCommitSyncDataLoss
}

// RecoverFromBackup returns recovered, an already-decrypted,
// already-deserialized state, in place of inner. Nothing in this module
// calls it, and reconcileReestablish does not use it.
func RecoverFromBackup(inner ChannelState, recovered ChannelState) ChannelState {
	return recovered
}

