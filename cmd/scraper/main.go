// Command scraper exports admin posts from a telegram broadcast channel
// to CSV, resuming from a checkpoint across interrupted runs.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/x5gtrn/tg-channel-scraper/internal/checkpoint"
	"github.com/x5gtrn/tg-channel-scraper/internal/config"
	"github.com/x5gtrn/tg-channel-scraper/internal/logger"
	"github.com/x5gtrn/tg-channel-scraper/internal/scraper"
	"github.com/x5gtrn/tg-channel-scraper/internal/sink"
	"github.com/x5gtrn/tg-channel-scraper/internal/telegram"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		channelFlag = flag.String("channel", "", "channel username or numeric id; empty for interactive selection")
		configFlag  = flag.String("config", "config.yaml", "path to config file")
		outputFlag  = flag.String("output", "", "output CSV path (overrides config)")
		includeSelf = flag.Bool("include-self", false, "include the authorized account's own posts")
	)
	flag.Parse()

	cfg, err := config.Load(*configFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	if err := logger.Init(cfg.LogLevel, cfg.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "error: init logger: %v\n", err)
		return 1
	}
	log := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := telegram.NewClient(cfg)
	if err != nil {
		log.Error().Err(err).Msg("failed to connect to telegram")
		return 1
	}
	defer client.Close()

	name, username := client.SelfName()
	log.Info().Str("name", name).Str("username", username).Msg("connected to telegram")

	channelRef := *channelFlag
	if channelRef == "" {
		channelRef, err = selectChannel(ctx, client)
		if err != nil {
			log.Error().Err(err).Msg("channel selection failed")
			return 1
		}
		if channelRef == "" {
			return 0 // user cancelled
		}
	}

	store := checkpoint.NewStore(cfg.ProgressFile)
	svc := scraper.NewService(client, store, scraper.Options{
		RateLimitDelay:     time.Duration(cfg.RateLimitDelayMs) * time.Millisecond,
		CheckpointInterval: cfg.CheckpointInterval,
	})

	records, err := svc.Run(ctx, channelRef, !*includeSelf)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			// checkpoint survives; the next run resumes from it
			log.Info().Msg("interrupted, progress has been saved")
			return 0
		}
		log.Error().Err(err).Msg("ingestion failed")
		return 1
	}

	output := *outputFlag
	if output == "" {
		output = cfg.OutputFile
	}

	if len(records) == 0 {
		log.Info().Msg("no new messages to save")
	} else {
		n, err := sink.WriteCSV(output, records)
		if err != nil {
			// keep the checkpoint so a rerun can reproduce the records
			log.Error().Err(err).Msg("failed to write output")
			return 1
		}
		log.Info().Int("records", n).Str("file", output).Msg("saved messages")
	}

	if err := store.Clear(); err != nil {
		log.Warn().Err(err).Msg("failed to clear checkpoint")
	}

	return 0
}

// selectChannel lists the account's joined broadcast channels and prompts
// for a numbered choice. Returns "" if the user cancels.
func selectChannel(ctx context.Context, client *telegram.Client) (string, error) {
	channels, err := client.ListBroadcastChannels(ctx)
	if err != nil {
		return "", fmt.Errorf("list channels: %w", err)
	}
	if len(channels) == 0 {
		return "", errors.New("no joined broadcast channels found")
	}

	fmt.Println("\njoined channels:")
	fmt.Println(strings.Repeat("-", 60))
	for i, ch := range channels {
		handle := "private"
		if ch.Username != "" {
			handle = "@" + ch.Username
		}
		fmt.Printf("%3d. %s\n     %s (id: %d)\n", i+1, ch.Title, handle, ch.ID)
	}

	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("\nenter channel number (0 to cancel): ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return "", err
		}

		n, err := strconv.Atoi(strings.TrimSpace(line))
		if err != nil {
			fmt.Println("please enter a valid number")
			continue
		}
		if n == 0 {
			fmt.Println("cancelled")
			return "", nil
		}
		if n < 1 || n > len(channels) {
			fmt.Printf("please enter a number between 1 and %d\n", len(channels))
			continue
		}

		selected := channels[n-1]
		fmt.Printf("selected: %s\n", selected.Title)
		return strconv.FormatInt(selected.ID, 10), nil
	}
}
