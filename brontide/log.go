package brontide

import "github.com/btcsuite/btclog"

var log btclog.Logger

func init() {
	DisableLog()
}

// DisableLog disables all logging output from this package.
func DisableLog() {
	log = btclog.Disabled
}

// UseLogger sets the package-wide logger used by brontide.
func UseLogger(logger btclog.Logger) {
	log = logger
}
