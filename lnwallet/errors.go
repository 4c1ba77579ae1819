package lnwallet

import "fmt"

// Sentinel errors returned by Process and its helpers. Grouped as package
// vars rather than typed errors, matching the convention the rest of this
// codebase uses for expected, named failure modes.
var (
	// ErrChanClosing is returned when a command targets a channel that is
	// already shutting down or closed.
	ErrChanClosing = fmt.Errorf("channel is closing, operation disallowed")

	// ErrNoWindow is returned when a Sign command arrives with no new
	// changes to commit and no reason to produce a fresh commitment.
	ErrNoWindow = fmt.Errorf("no pending changes to sign")

	// ErrInsufficientBalance is returned when a proposed HTLC would
	// exceed the available local balance net of the channel reserve.
	ErrInsufficientBalance = fmt.Errorf("insufficient local balance")

	// ErrMaxHTLCNumber is returned when a proposed HTLC would exceed the
	// negotiated maxAcceptedHtlcs for the commitment.
	ErrMaxHTLCNumber = fmt.Errorf("commitment would exceed max htlc count")

	// ErrHtlcDustLimit is returned when a proposed HTLC is below the
	// dust limit and would be trimmed from the commitment entirely.
	ErrHtlcDustLimit = fmt.Errorf("htlc amount below dust limit")

	// ErrInvalidLastCommitSecret is returned when the revocation secret
	// the peer claims for our last commitment doesn't reproduce the
	// commitment point we recorded for it.
	ErrInvalidLastCommitSecret = fmt.Errorf("commit secret is incorrect")

	// ErrCommitSyncDataLoss is returned internally when the peer's
	// reestablish implies we have lost state and no usable backup was
	// supplied to recover it.
	ErrCommitSyncDataLoss = fmt.Errorf("possible commitment state data loss with no recoverable backup")

	// ErrUnknownHtlcID is returned when a fulfill/fail command names an
	// htlc id that is not among the incoming HTLCs held in the remote
	// commitment spec.
	ErrUnknownHtlcID = fmt.Errorf("unknown htlc id")

	// ErrFundingNotConfirmed is returned when a command that requires an
	// active commitment arrives before any funding output reached the
	// state's minimum depth.
	ErrFundingNotConfirmed = fmt.Errorf("funding transaction not yet confirmed")

	// ErrInteractiveTxAborted is returned when a peer sends tx_abort
	// mid-round.
	ErrInteractiveTxAborted = fmt.Errorf("interactive transaction aborted by peer")
)
