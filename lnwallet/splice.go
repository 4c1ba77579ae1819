package lnwallet

import (
	"github.com/breez/phoenixcore/lnwire"
)

// processSpliceRequest begins an in-place funding replacement. Both the old
// and new fundings stay active until splice_locked is exchanged (spec
// §4.1 splicing).
func processSpliceRequest(st Normal, c SpliceRequest, ctx Context) (ChannelState, []Action, error) {
	if st.Splice != nil {
		return st, nil, nil
	}

	relative := int64(c.SpliceInSats) - int64(c.SpliceOutSats)
	init := &lnwire.SpliceInit{
		ChanID:           st.ChanID,
		RelativeSatoshis: relative,
		FundingFeerate:   c.FeeratePerKw,
	}

	next := st
	next.Splice = &SpliceState{}
	return next, []Action{SendMessage{Msg: init}}, nil
}

// processSpliceWireMessage handles the splice_ack/splice_locked leg of an
// in-progress splice once SpliceInit has been sent or received.
func processSpliceWireMessage(st Normal, msg lnwire.Message) (ChannelState, []Action, error) {
	switch m := msg.(type) {
	case *lnwire.SpliceInit:
		if st.Splice != nil {
			return st, nil, nil
		}
		next := st
		next.Splice = &SpliceState{}
		ack := &lnwire.SpliceAck{ChanID: st.ChanID, RelativeSatoshis: 0}
		return next, []Action{SendMessage{Msg: ack}}, nil

	case *lnwire.SpliceAck:
		if st.Splice == nil {
			return st, nil, nil
		}
		return st, nil, nil

	case *lnwire.SpliceLocked:
		if st.Splice == nil {
			return st, nil, nil
		}
		next := st
		next.Splice.Locked = true
		next.Commitments.Funding = next.Splice.CandidateFunding
		next.Splice = nil
		return next, []Action{StoreState{ChanID: st.ChanID, State: next}}, nil

	default:
		return st, nil, nil
	}
}
