package main

import (
	"context"
	"log"
	"os"

	"github.com/standard/dreamcalendar/internal/server"
	"github.com/standard/dreamcalendar/internal/server/config"
)

func main() {

	ctx := context.Background()

	cfg, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		log.Fatalf("%v", err)
	}

	app, err := server.NewApp(ctx, cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}

	app.Run(ctx)

}
