// Command busreplay publishes recorded bus readings to MQTT so the feed has
// data to serve. The input file has the /temperature-data response shape.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Ushasricpu/paper/internal/config"
	"github.com/Ushasricpu/paper/internal/logging"
	"github.com/Ushasricpu/paper/internal/mqtt"
)

const appName = "bus-replay"

var version = "dev"

func main() {
	file := flag.String("file", "", "JSON file with a {\"data\": [...]} readings body")
	offset := flag.String("utc-offset", "+05:30", "UTC offset of the recorded wall-clock times")
	interval := flag.Duration("interval", 0, "delay between messages")
	flag.Parse()

	if *file == "" {
		fmt.Fprintf(os.Stderr, "usage: %s -file readings.json [-utc-offset +05:30] [-interval 100ms]\n", os.Args[0])
		os.Exit(2)
	}

	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	slog.SetDefault(logging.New(cfg, version, appName))

	loc, err := parseOffset(*offset)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *file, loc, *interval); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("replay failed", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, path string, loc *time.Location, interval time.Duration) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	messages, skipped, err := decodeReadings(f, loc)
	if err != nil {
		return err
	}
	slog.Info("readings loaded", "file", path, "messages", len(messages), "skipped", skipped)

	pub, err := mqtt.NewPublisher(cfg, slog.Default())
	if err != nil {
		return err
	}
	defer pub.Disconnect()

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	err = pub.Connect(connectCtx)
	cancel()
	if err != nil {
		return err
	}

	sent := 0
	for _, m := range messages {
		if err := pub.PublishTelemetry(m); err != nil {
			slog.Warn("publish failed", "bus_no", m.BusNo, "error", err)
			continue
		}
		sent++
		if interval > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(interval):
			}
		}
	}
	slog.Info("replay finished", "sent", sent, "total", len(messages))
	return nil
}
