package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"go.uber.org/zap"

	"github.com/goliatone/go-formplayer/pkg/player"
	"github.com/goliatone/go-formplayer/pkg/session"
)

func main() {
	configPath := flag.String("config", "", "optional YAML config file")
	server := flag.String("server", "", "form engine base URL")
	formURL := flag.String("form", "", "form definition URL or identifier")
	lang := flag.String("lang", "", "display language")
	debounce := flag.Duration("debounce", 0, "answer debounce window (e.g. 200ms)")
	verbose := flag.Bool("verbose", false, "enable debug logging")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *server != "" {
		cfg.Server = *server
	}
	if *formURL != "" {
		cfg.Form = *formURL
	}
	if *lang != "" {
		cfg.Lang = *lang
	}
	if cfg.Server == "" || cfg.Form == "" {
		log.Fatalf("Both a server and a form are required (flags or config file)")
	}

	logger := zap.NewNop()
	if *verbose {
		logger, err = zap.NewDevelopment()
		if err != nil {
			log.Fatalf("Failed to build logger: %v", err)
		}
		defer logger.Sync()
	}

	transport, err := session.NewHTTPTransport(cfg.Server)
	if err != nil {
		log.Fatalf("Failed to build transport: %v", err)
	}

	options := []player.Option{player.WithLogger(logger)}
	window := *debounce
	if window == 0 && cfg.DebounceMs > 0 {
		window = time.Duration(cfg.DebounceMs) * time.Millisecond
	}
	if window > 0 {
		options = append(options, player.WithDebounce(window))
	}
	p := player.New(transport, options...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err = p.Run(ctx, session.FormSpec{
		FormURL:     cfg.Form,
		Lang:        cfg.Lang,
		SessionData: cfg.SessionData,
	})
	switch {
	case err == nil:
	case errors.Is(err, player.ErrAborted), errors.Is(err, context.Canceled):
		fmt.Println("Aborted.")
		os.Exit(1)
	default:
		log.Fatalf("Failed to play form: %v", err)
	}
}
