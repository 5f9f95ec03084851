package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/profile"

	"sulphate/internal/app"
)

func main() {
	var configPath, profileMode string
	flag.StringVar(&configPath, "config", "", "path to the YAML server configuration")
	flag.StringVar(&profileMode, "profile", "", "write a cpu or mem profile to the working directory on exit")
	flag.Parse()

	switch profileMode {
	case "":
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	case "mem":
		defer profile.Start(profile.MemProfileAllocs, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	default:
		log.Fatalf("unknown -profile %q, want cpu or mem", profileMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, app.Config{ConfigPath: configPath}); err != nil {
		log.Printf("%v", err)
		stop()
		os.Exit(1)
	}
}
