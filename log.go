package phoenixcore

import (
	"io"

	"github.com/btcsuite/btclog"

	"github.com/breez/phoenixcore/brontide"
	"github.com/breez/phoenixcore/chainrpc"
	"github.com/breez/phoenixcore/channeldb"
	"github.com/breez/phoenixcore/contractcourt"
	"github.com/breez/phoenixcore/htlcswitch"
	"github.com/breez/phoenixcore/keychain"
	"github.com/breez/phoenixcore/postman"
	"github.com/breez/phoenixcore/swapin"
	"github.com/breez/phoenixcore/sweep"
	"github.com/breez/phoenixcore/zpay32"
)

// backend is the shared btclog backend every subsystem logger is carved
// from. It discards output until SetupLoggers points it at the real
// destination, so package-level loggers are always safe to call.
var backend = btclog.NewBackend(io.Discard)

var (
	srvrLog = backend.Logger("SRVR")
	peerLog = backend.Logger("PEER")
)

// SetupLoggers carves a subsystem logger for every package that exposes
// a UseLogger hook and wires it in, mirroring the one-letter-code
// subsystem tags used throughout.
func SetupLoggers(w io.Writer, level btclog.Level) {
	backend = btclog.NewBackend(w)

	srvrLog = backend.Logger("SRVR")
	srvrLog.SetLevel(level)
	peerLog = backend.Logger("PEER")
	peerLog.SetLevel(level)

	addSubLogger("BRTD", level, brontide.UseLogger)
	addSubLogger("CHDB", level, channeldb.UseLogger)
	addSubLogger("CNCT", level, contractcourt.UseLogger)
	addSubLogger("SWPR", level, sweep.UseLogger)
	addSubLogger("HSWC", level, htlcswitch.UseLogger)
	addSubLogger("SWPI", level, swapin.UseLogger)
	addSubLogger("PSTM", level, postman.UseLogger)
	addSubLogger("ZP32", level, zpay32.UseLogger)
	addSubLogger("NTFR", level, chainrpc.UseLogger)
	addSubLogger("KCHN", level, keychain.UseLogger)
}

func addSubLogger(subsystem string, level btclog.Level, useLogger func(btclog.Logger)) {
	logger := backend.Logger(subsystem)
	logger.SetLevel(level)
	useLogger(logger)
}
