package channeldb

import "fmt"

var (
	// ErrNoChanDBExists is returned when the database file does not
	// exist at the given path and is not permitted to be created.
	ErrNoChanDBExists = fmt.Errorf("channel db does not exist")

	// ErrChannelNoExist is returned when a channel lookup by channel id
	// finds nothing.
	ErrChannelNoExist = fmt.Errorf("channel does not exist")

	// ErrNoActiveChannels is returned when no channels are stored at all.
	ErrNoActiveChannels = fmt.Errorf("no active channels exist")

	// ErrInvoiceNotFound is returned when an incoming payment lookup by
	// payment hash finds nothing.
	ErrInvoiceNotFound = fmt.Errorf("incoming payment not found")

	// ErrDuplicateInvoice is returned by AddIncomingPayment when the
	// payment hash is already present.
	ErrDuplicateInvoice = fmt.Errorf("payment hash already has a pending incoming payment")

	// ErrOutgoingPaymentNotFound is returned when an outgoing payment
	// lookup by parent id or part id finds nothing.
	ErrOutgoingPaymentNotFound = fmt.Errorf("outgoing payment not found")

	// ErrDuplicatePaymentID is returned by AddOutgoingPayment when the
	// parent id has already been used.
	ErrDuplicatePaymentID = fmt.Errorf("payment id already used")

	// ErrDuplicatePartID is returned by AddOutgoingLightningParts when a
	// part id has already been used, across any parent payment.
	ErrDuplicatePartID = fmt.Errorf("payment part id already used")

	// ErrUnknownParent is returned when a part references a parent
	// payment id that doesn't exist.
	ErrUnknownParent = fmt.Errorf("unknown parent payment id")

	// ErrUnknownPart is returned when completing a part that was never
	// added.
	ErrUnknownPart = fmt.Errorf("unknown payment part id")

	// ErrHtlcInfoNotFound is returned when no HTLC info was stored for a
	// given commitment number / revoked txid pair.
	ErrHtlcInfoNotFound = fmt.Errorf("htlc info not found")

	// ErrMetaNotFound is returned when the database metadata bucket
	// hasn't been initialized yet.
	ErrMetaNotFound = fmt.Errorf("channeldb metadata not found")
)
