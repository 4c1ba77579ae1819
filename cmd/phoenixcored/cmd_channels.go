package main

import (
	"fmt"

	"github.com/urfave/cli"
)

var channelsCommand = cli.Command{
	Name:     "channels",
	Category: "Channels",
	Usage:    "List this node's channels with its trampoline peer.",
	Action:   channelsAction,
}

func channelsAction(ctx *cli.Context) error {
	srv, stop, err := startServer(ctx)
	if err != nil {
		return err
	}
	defer stop()

	summaries := srv.Peer().ListChannels()
	if len(summaries) == 0 {
		fmt.Println("no channels")
		return nil
	}

	for _, c := range summaries {
		fmt.Printf("%x  state=%-26s local_msat=%d remote_msat=%d scid=%d\n",
			c.ChanID, c.State, c.LocalMsat, c.RemoteMsat, c.ShortChannelID)
	}
	return nil
}
