package lnwallet

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/breez/phoenixcore/lnwire"
)

func testContext() Context {
	return Context{
		CurrentBlockHeight:     700_000,
		FeeratePerKw:           253,
		HtlcTimeoutSafetyDelta: 0,
	}
}

func normalStateWithOutgoingHtlc(cltv uint32) Normal {
	return Normal{
		ChanID: lnwire.ChannelID{0x01},
		Commitments: Commitments{
			Params: ChannelParams{MaxAcceptedHtlcs: 30, DustLimit: 354},
			LocalSpec: CommitmentSpec{
				ToLocalMsat: 1_000_000,
				Htlcs: []Htlc{
					{Direction: Outgoing, ID: 1, AmountMsat: 50_000, CltvExpiry: cltv, Fate: HtlcPending},
				},
			},
			RemoteSpec: CommitmentSpec{ToLocalMsat: 1_000_000},
		},
	}
}

func TestChannelForceClosesOnHtlcTimeout(t *testing.T) {
	st := normalStateWithOutgoingHtlc(700_000)
	ctx := testContext()

	next, actions, err := Process(st, CheckHtlcTimeout{CurrentBlockHeight: 700_000}, ctx)
	require.NoError(t, err)

	closing, ok := next.(Closing)
	require.True(t, ok, "expected Closing state, got %T", next)
	require.Equal(t, ClosingLocalForce, closing.Kind)

	var published bool
	for _, a := range actions {
		if _, ok := a.(PublishTx); ok {
			published = true
		}
	}
	require.True(t, published, "expected a PublishTx action")
}

func TestChannelDoesNotForceCloseBeforeTimeout(t *testing.T) {
	st := normalStateWithOutgoingHtlc(700_100)
	ctx := testContext()

	next, actions, err := Process(st, CheckHtlcTimeout{CurrentBlockHeight: 700_000}, ctx)
	require.NoError(t, err)
	require.IsType(t, Normal{}, next)
	require.Empty(t, actions)
}

func TestAddHtlcRejectsInsufficientBalance(t *testing.T) {
	st := Normal{
		ChanID: lnwire.ChannelID{0x02},
		Commitments: Commitments{
			Params:     ChannelParams{MaxAcceptedHtlcs: 30, DustLimit: 354},
			RemoteSpec: CommitmentSpec{ToLocalMsat: 1000},
		},
	}

	_, _, err := Process(st, AddHtlc{AmountMsat: 500_000}, testContext())
	require.ErrorIs(t, err, ErrInsufficientBalance)
}

func TestAddHtlcAppendsToLocalSpec(t *testing.T) {
	st := Normal{
		ChanID: lnwire.ChannelID{0x03},
		Commitments: Commitments{
			Params:     ChannelParams{MaxAcceptedHtlcs: 30, DustLimit: 354},
			LocalSpec:  CommitmentSpec{ToLocalMsat: 1_000_000},
			RemoteSpec: CommitmentSpec{ToLocalMsat: 1_000_000},
		},
	}

	next, actions, err := Process(st, AddHtlc{AmountMsat: 50_000, CltvExpiry: 700_500}, testContext())
	require.NoError(t, err)

	normal := next.(Normal)
	require.Len(t, normal.Commitments.LocalSpec.Htlcs, 1)
	require.Equal(t, uint64(50_000), normal.Commitments.LocalSpec.Htlcs[0].AmountMsat)

	require.Len(t, actions, 1)
	_, ok := actions[0].(SendMessage)
	require.True(t, ok)
}

func TestCommitmentSignedTriggersRevokeAndAck(t *testing.T) {
	st := Normal{
		ChanID: lnwire.ChannelID{0x04},
		Commitments: Commitments{
			Params: ChannelParams{MaxAcceptedHtlcs: 30, DustLimit: 354},
		},
	}

	next, actions, err := Process(st, MessageReceived{Msg: &lnwire.CommitmentSigned{ChanID: st.ChanID}}, testContext())
	require.NoError(t, err)

	normal := next.(Normal)
	require.Equal(t, uint64(1), normal.Commitments.CommitmentNumber)

	var sawRevoke bool
	for _, a := range actions {
		if sm, ok := a.(SendMessage); ok {
			if _, ok := sm.Msg.(*lnwire.RevokeAndAck); ok {
				sawRevoke = true
			}
		}
	}
	require.True(t, sawRevoke)
}

func TestProtocolErrorForcesClose(t *testing.T) {
	st := Normal{
		ChanID: lnwire.ChannelID{0x05},
		Commitments: Commitments{
			Params: ChannelParams{MaxAcceptedHtlcs: 30, DustLimit: 354},
		},
	}

	next, _, err := Process(st, MessageReceived{Msg: &lnwire.Error{ChanID: st.ChanID, Data: []byte("bad")}}, testContext())
	require.NoError(t, err)
	require.IsType(t, Closing{}, next)
}

func TestOfflineRejectsHtlcAdds(t *testing.T) {
	inner := normalStateWithOutgoingHtlc(700_500)
	st := Offline{Inner: inner}

	next, actions, err := Process(st, AddHtlc{AmountMsat: 1000}, testContext())
	require.NoError(t, err)
	require.Nil(t, actions)
	require.Equal(t, st, next)
}

func TestInteractiveTxCompletesOnBothSidesDone(t *testing.T) {
	st := WaitForFundingCreated{
		TemporaryChanID: lnwire.ChannelID{0x06},
		Params:          ChannelParams{},
		LocalOutputs:    []InteractiveTxOutput{{SerialID: 1, Amount: 100_000}},
		SelfDone:        true,
	}

	next, actions, err := Process(st, MessageReceived{Msg: &lnwire.TxComplete{ChanID: st.TemporaryChanID}}, testContext())
	require.NoError(t, err)

	signed, ok := next.(WaitForFundingSigned)
	require.True(t, ok, "expected WaitForFundingSigned, got %T", next)
	require.Equal(t, uint64(100_000_000), signed.LocalSpec.ToLocalMsat)
	require.Len(t, actions, 1)
}

func TestTxAbortTransitionsToAborted(t *testing.T) {
	st := WaitForFundingCreated{TemporaryChanID: lnwire.ChannelID{0x07}}

	next, _, err := Process(st, MessageReceived{Msg: &lnwire.TxAbort{ChanID: st.TemporaryChanID}}, testContext())
	require.ErrorIs(t, err, ErrInteractiveTxAborted)
	require.IsType(t, Aborted{}, next)
}
