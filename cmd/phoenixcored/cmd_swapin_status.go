package main

import (
	"fmt"

	"github.com/urfave/cli"
)

var swapinStatusCommand = cli.Command{
	Name:     "swapin-status",
	Category: "Swap-in",
	Usage:    "List pay-to-open requests still awaiting a trampoline reply.",
	Action:   swapinStatusAction,
}

func swapinStatusAction(ctx *cli.Context) error {
	srv, stop, err := startServer(ctx)
	if err != nil {
		return err
	}
	defer stop()

	requests := srv.Peer().SwapInStatus()
	if len(requests) == 0 {
		fmt.Println("no pending swap-in requests")
		return nil
	}

	for _, r := range requests {
		fmt.Printf("%x  utxos=%d mining_fee_sats=%d service_fee_sats=%d\n",
			r.RequestID, r.WalletInputs, r.MiningFeeSats, r.ServiceFeeSats)
	}
	return nil
}
