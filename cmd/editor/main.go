package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/trialdraft/internal/buildinfo"
	"github.com/dmitrijs2005/trialdraft/internal/client/cli"
	"github.com/dmitrijs2005/trialdraft/internal/client/config"
	"github.com/dmitrijs2005/trialdraft/internal/flagx"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.LoadConfig()

	var trialID string
	if pos := flagx.Positionals(os.Args[1:], config.ValueFlags); len(pos) > 0 {
		trialID = pos[0]
	}

	app, err := cli.NewApp(ctx, cfg)
	if err != nil {
		log.Fatalf("%v", err)
		return
	}

	app.Run(ctx, trialID)

}
