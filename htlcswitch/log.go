package htlcswitch

import "github.com/btcsuite/btclog"

var log btclog.Logger

func init() {
	DisableLog()
}

// DisableLog disables all library log output.
func DisableLog() {
	log = btclog.Disabled
}

// UseLogger sets the package-wide logger used by htlcswitch.
func UseLogger(logger btclog.Logger) {
	log = logger
}
