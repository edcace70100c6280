package main

import (
	"context"
	"log"
	"os"

	"github.com/standard/dreamcalendar/internal/admin"
	"github.com/standard/dreamcalendar/internal/flagx"
	"github.com/standard/dreamcalendar/internal/logging"
	"github.com/standard/dreamcalendar/internal/server"
	"github.com/standard/dreamcalendar/internal/server/config"
)

func main() {

	ctx := context.Background()
	args := os.Args[1:]

	cfg, err := config.LoadConfig(args)
	if err != nil {
		log.Fatalf("%v", err)
	}

	logger := logging.NewForEnv(cfg.Env, os.Stderr)

	svc, db, err := server.OpenUserService(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer db.Close()

	rest := flagx.StripArgs(args, append(config.Flags, "-c", "-config", "--config"))
	if err := admin.New(svc, os.Stdin, os.Stdout).Run(ctx, rest); err != nil {
		db.Close()
		log.Fatalf("%v", err)
	}

}
