package main

import (
	"fmt"

	"github.com/urfave/cli"
)

var payCommand = cli.Command{
	Name:      "pay",
	Category:  "Payments",
	Usage:     "Pay a Bolt 11 invoice over the trampoline channel.",
	ArgsUsage: "pay_req [amt_msat]",
	Flags: []cli.Flag{
		cli.Int64Flag{
			Name:  "amt_msat",
			Usage: "amount in millisatoshis, required for an amountless invoice",
		},
	},
	Action: payAction,
}

func payAction(ctx *cli.Context) error {
	if ctx.NArg() < 1 {
		return cli.ShowCommandHelp(ctx, "pay")
	}
	payReq := ctx.Args().Get(0)

	srv, stop, err := startServer(ctx)
	if err != nil {
		return err
	}
	defer stop()

	id, err := srv.Peer().Pay(payReq, ctx.Int64("amt_msat"))
	if err != nil {
		return fmt.Errorf("payment failed: %w", err)
	}

	fmt.Printf("payment dispatched, parent id %s\n", id)
	return nil
}
