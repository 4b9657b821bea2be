package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	ossignal "os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/rs/zerolog"

	"polybot-go/internal/config"
	"polybot-go/internal/exchange"
	"polybot-go/internal/execution"
	"polybot-go/internal/metrics"
	"polybot-go/internal/paper"
	"polybot-go/internal/risk"
	"polybot-go/internal/session"
	"polybot-go/internal/strategy"
	"polybot-go/internal/util"
)

const configPath = "internal/config/config.yaml"

func main() {
	cfg, err := config.Load(configPath)
	if err != nil {
		bootLog := util.NewConsoleLogger("info")
		bootLog.Fatal().Err(err).Msg("load config")
	}
	log := util.NewConsoleLogger(cfg.App.LogLevel)

	if srv := metrics.Serve(cfg.App.MetricsAddr); srv != nil {
		log.Info().Str("addr", cfg.App.MetricsAddr).Msg("metrics up")
	}

	ctx, cancel := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	stdin := bufio.NewReader(os.Stdin)
	tokenID, outcome := cfg.Exchange.TokenID, "configured"
	if tokenID == "" {
		tokenID, outcome, err = pickToken(ctx, cfg, stdin, log)
		if err != nil {
			log.Fatal().Err(err).Msg("token selection")
		}
	}

	source, err := exchange.NewSource(ctx, cfg.Exchange.Provider, []string{tokenID}, log,
		exchange.WithCLOBBaseURL(cfg.Exchange.ClobBaseURL),
		exchange.WithWSURL(cfg.Exchange.ClobWSURL),
		exchange.WithRequestTimeout(cfg.Exchange.RequestTimeout()),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("book source")
	}

	policy, err := strategy.Build(cfg.Strategy.Mode)
	if err != nil {
		log.Fatal().Err(err).Msg("strategy")
	}

	journal := paper.NewJournal(64)
	recorders := []execution.Recorder{journal}
	var jsonl *paper.JSONLRecorder
	if cfg.Paper.FillsPath != "" {
		jsonl, err = paper.NewJSONLRecorder(cfg.Paper.FillsPath)
		if err != nil {
			log.Fatal().Err(err).Msg("fills recorder")
		}
		recorders = append(recorders, jsonl)
	}

	account := paper.NewAccount(cfg.Paper.StartingCash)
	s := session.New(session.Config{
		TokenID:             tokenID,
		Outcome:             outcome,
		FeeRate:             cfg.Paper.FeeRate,
		PollInterval:        cfg.Poll.PollInterval(),
		RetryInterval:       cfg.Poll.RetryInterval(),
		IncompleteWait:      cfg.Poll.IncompleteWait(),
		MaxStructuralErrors: cfg.Poll.MaxStructuralErrors,
		Limits:              risk.Limits{MaxNotionalPerTrade: cfg.Risk.MaxNotionalPerTrade},
	}, source, account, log, session.WithPolicy(policy), session.WithRecorders(recorders...))

	var commands session.CommandSource = session.PassiveCommands{}
	if cfg.Paper.Interactive {
		commands = session.NewConsoleCommands(stdin, os.Stdout)
	}

	fmt.Printf("\nTrading %s token %s (paper, starting cash $%.2f). Ctrl+C to stop.\n",
		outcome, exchange.ShortToken(tokenID), account.StartingCash())
	runErr := s.Run(ctx, commands, session.NewTextPresenter(os.Stdout))
	if jsonl != nil {
		if err := jsonl.Close(); err != nil {
			log.Warn().Err(err).Msg("close fills file")
		}
	}
	snap := account.Snapshot(nil)
	log.Info().Int("fills", journal.Len()).Float64("cash", snap.Cash).Float64("realized", snap.RealizedPnL).Msg("session summary")
	if runErr != nil {
		log.Error().Err(runErr).Msg("session stopped")
		os.Exit(1)
	}
	fmt.Println("Done.")
}

// pickToken searches open markets and lets the operator choose one.
func pickToken(ctx context.Context, cfg *config.Config, in *bufio.Reader, log zerolog.Logger) (string, string, error) {
	discovery, err := exchange.NewDiscovery(log, cfg.Exchange.GammaBaseURL, cfg.Discovery.ListingLimit, cfg.Discovery.CacheTTL())
	if err != nil {
		return "", "", err
	}
	query := cfg.Discovery.Query
	if query == "" {
		fmt.Print("Search markets (e.g. election, bitcoin): ")
		line, err := in.ReadString('\n')
		if err != nil && line == "" {
			return "", "", fmt.Errorf("read query: %w", err)
		}
		query = strings.TrimSpace(line)
	}

	hits, err := discovery.Search(ctx, query, cfg.Discovery.MaxHits)
	if err != nil {
		return "", "", err
	}
	if len(hits) == 0 {
		return "", "", fmt.Errorf("no open market matches %q", query)
	}
	for i, h := range hits {
		fmt.Printf("%2d) %s\n", i+1, h.Question)
	}
	fmt.Print("Pick a market [1]: ")
	line, _ := in.ReadString('\n')
	pick := 1
	if trimmed := strings.TrimSpace(line); trimmed != "" {
		pick, err = strconv.Atoi(trimmed)
		if err != nil || pick < 1 || pick > len(hits) {
			return "", "", fmt.Errorf("invalid choice %q", trimmed)
		}
	}

	id, outcome, ok := hits[pick-1].Token()
	if !ok {
		return "", "", errors.New("market has no outcome tokens")
	}
	log.Info().Str("market", hits[pick-1].Question).Str("outcome", outcome).Str("token", exchange.ShortToken(id)).Msg("token selected")
	return id, outcome, nil
}
