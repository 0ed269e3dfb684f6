// viewtap opens a single device channel and streams decoded messages to the console.
// Usage: go run ./cmd/viewtap --probe http://192.168.4.1 --get battery --get camera
//
// Pass --url to skip discovery and dial a known socket address directly.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/viewtl/viewlink/internal/connection"
	"github.com/viewtl/viewlink/internal/discovery"
	"github.com/viewtl/viewlink/internal/message"
	"github.com/viewtl/viewlink/internal/router"
)

func main() {
	socketURL := pflag.String("url", "", "socket address to dial directly")
	probes := pflag.StringSlice("probe", nil, "base URL to probe for a socket address (repeatable)")
	session := pflag.String("session", "", "session token to announce after connecting")
	keys := pflag.StringSlice("get", nil, "status key to request after connecting (repeatable)")
	verbose := pflag.BoolP("verbose", "v", false, "print full message JSON")
	pflag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()

	address := *socketURL
	if address == "" {
		if len(*probes) == 0 {
			logger.Error("one of --url or --probe is required")
			os.Exit(2)
		}
		found, err := resolve(ctx, *probes, *session, logger)
		if err != nil {
			logger.Error("discovery failed", "error", err)
			os.Exit(1)
		}
		address = found
	}

	ch, err := connection.Open(ctx, address, connection.DefaultChannelConfig(), logger)
	if err != nil {
		logger.Error("failed to open channel", "url", address, "error", err)
		os.Exit(1)
	}
	defer ch.Close()

	rt := router.NewRouter(router.DefaultRouterConfig(), ch.Messages(), logger)
	show := printer(*verbose)
	for _, t := range message.Types() {
		rt.Handle(t, show)
	}
	rt.HandleUnknown(show)
	if err := rt.Start(ctx); err != nil {
		logger.Error("failed to start router", "error", err)
		os.Exit(1)
	}

	if *session != "" {
		if err := ch.Send(message.Session{Session: *session}); err != nil {
			logger.Warn("failed to send session", "error", err)
		}
	}
	for _, key := range *keys {
		if err := ch.Send(message.Get{Key: key}); err != nil {
			logger.Warn("failed to send get", "key", key, "error", err)
		}
	}

	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ch.Done():
				return
			case <-ticker.C:
				stats := rt.Stats()
				logger.Info("stats",
					"received", stats.MessagesReceived,
					"routed", stats.MessagesRouted,
					"unknown", stats.UnknownMessages,
					"queue_len", stats.Queue.Len,
				)
			}
		}
	}()

	logger.Info("streaming started - press Ctrl+C to stop", "url", ch.URL(), "channel_id", ch.ID)

	select {
	case <-ctx.Done():
	case <-ch.Done():
		logger.Warn("channel closed", "url", ch.URL(), "error", ch.Err())
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	logger.Info("shutting down...")
	ch.Close()
	rt.Stop(shutdownCtx)
	logger.Info("shutdown complete")
}

func resolve(ctx context.Context, baseURLs []string, session string, logger *slog.Logger) (string, error) {
	token := func(context.Context) string { return session }
	resolver := discovery.NewResolver(discovery.DefaultResolverConfig(),
		discovery.NewHTTPProber(&http.Client{}, token, logger), logger)

	candidates := make([]discovery.Candidate, 0, len(baseURLs))
	for _, u := range baseURLs {
		candidates = append(candidates, discovery.Candidate{URL: u, Local: true})
	}

	found, ok := resolver.ProbeAll(ctx, candidates)
	if !ok {
		return "", connection.ErrDiscoveryTimeout
	}
	if found.Kind == discovery.LoginRequired {
		return "", fmt.Errorf("%s requires login; pass --session", found.FromURL)
	}
	logger.Info("discovered socket", "address", found.Address, "from", found.FromURL)
	return found.Address, nil
}

// printer writes every routed message to stdout.
func printer(verbose bool) router.Handler {
	return func(_ context.Context, msg message.Inbound) {
		if verbose {
			data, _ := json.MarshalIndent(msg, "", "  ")
			fmt.Printf("[%s] %s\n", msg.MessageType(), data)
			return
		}
		switch m := msg.(type) {
		case *message.Battery:
			fmt.Printf("[BATTERY] percentage=%.0f charging=%t\n", m.Percentage, m.Charging)
		case *message.Pong:
			fmt.Println("[PONG]")
		case *message.NoDevice:
			fmt.Println("[NODEVICE]")
		case *message.Unknown:
			fmt.Printf("[UNKNOWN] type=%s\n", m.Type)
		default:
			fmt.Printf("[%s]\n", msg.MessageType())
		}
	}
}
