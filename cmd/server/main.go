package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/dmitrijs2005/trialdraft/internal/buildinfo"
	"github.com/dmitrijs2005/trialdraft/internal/flagx"
	"github.com/dmitrijs2005/trialdraft/internal/server"
	"github.com/dmitrijs2005/trialdraft/internal/server/auth"
	"github.com/dmitrijs2005/trialdraft/internal/server/config"
)

func main() {

	cfg := config.LoadConfig()

	// "token <actor>" prints a bearer token for the editor and exits.
	if pos := flagx.Positionals(os.Args[1:], config.ValueFlags); len(pos) > 0 {
		if pos[0] != "token" || len(pos) != 2 {
			log.Fatalf("usage: server [flags] [token <actor>]")
		}
		if cfg.SecretKey == "" {
			log.Fatalf("secret key is empty: authentication is disabled")
		}
		tok, err := auth.GenerateToken(pos[1], []byte(cfg.SecretKey), cfg.TokenValidityDuration)
		if err != nil {
			log.Fatalf("%v", err)
		}
		fmt.Println(tok)
		return
	}

	buildinfo.PrintBuildData(os.Stdout)

	ctx := context.Background()
	app, err := server.NewApp(ctx, cfg)

	if err != nil {
		log.Printf("%v", err)
		return
	}

	app.Run(ctx)

}
