package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli"

	phoenixcore "github.com/breez/phoenixcore"
)

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "[phoenixcored] %v\n", err)
	os.Exit(1)
}

// startServer loads this node's configuration, wires an ephemeral keyring
// and chain backend stand-in, and brings up a Server in-process. Unlike
// lncli, this CLI is not a client to a separate daemon: the library has no
// gRPC surface, so every command here runs the whole node for the
// duration of the command.
func startServer(ctx *cli.Context) (*phoenixcore.Server, func(), error) {
	cfg, err := phoenixcore.LoadConfig(nil)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	if dir := ctx.GlobalString("datadir"); dir != "" {
		cfg.DataDir = dir
	}

	keyRing, err := loadOrCreateKeyRing(cfg.DataDir)
	if err != nil {
		return nil, nil, fmt.Errorf("loading keyring: %w", err)
	}

	backend := noChainBackend{}
	srv, err := phoenixcore.NewServer(cfg, keyRing.seed, keyRing, backend, backend)
	if err != nil {
		return nil, nil, fmt.Errorf("constructing server: %w", err)
	}
	if err := srv.Start(); err != nil {
		return nil, nil, fmt.Errorf("starting server: %w", err)
	}

	return srv, func() { srv.Stop() }, nil
}

func main() {
	app := cli.NewApp()
	app.Name = "phoenixcored"
	app.Version = "0.1"
	app.Usage = "control plane for the single-trampoline-peer Lightning node"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "datadir",
			Usage: "directory holding this node's channel state, payments, and seed key",
		},
	}
	app.Commands = []cli.Command{
		payCommand,
		swapinStatusCommand,
		channelsCommand,
	}

	if err := app.Run(os.Args); err != nil {
		fatal(err)
	}
}
