package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"polybot-go/internal/config"
)

const defaultConfigPath = "internal/config/config.yaml"

func main() {
	reader := bufio.NewReader(os.Stdin)

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	for {
		fmt.Println("\n=== PolyBot Control ===")
		fmt.Println("1) Show configuration summary")
		fmt.Println("2) Edit paper account and risk")
		fmt.Println("3) Edit market selection and polling")
		fmt.Println("4) Save config")
		fmt.Println("5) Launch paper bot")
		fmt.Println("6) Reload config from disk")
		fmt.Println("0) Exit")
		fmt.Print("Select option: ")

		input, _ := reader.ReadString('\n')
		choice := strings.TrimSpace(input)

		switch choice {
		case "1":
			printSummary(cfg)
		case "2":
			editRisk(reader, cfg)
		case "3":
			editDiscovery(reader, cfg)
		case "4":
			if err := saveConfig(cfg); err != nil {
				fmt.Fprintf(os.Stderr, "save failed: %v\n", err)
			} else {
				fmt.Println("config saved")
			}
		case "5":
			launchPaper()
		case "6":
			reloaded, err := loadConfig()
			if err != nil {
				fmt.Fprintf(os.Stderr, "reload failed: %v\n", err)
			} else {
				cfg = reloaded
				fmt.Println("config reloaded")
			}
		case "0":
			return
		default:
			fmt.Println("unknown option")
		}
	}
}

func printSummary(cfg *config.Config) {
	fmt.Println("\n--- Configuration Summary ---")
	fmt.Printf("Book provider: %s (%s)\n", cfg.Exchange.Provider, cfg.Exchange.ClobBaseURL)
	if cfg.Exchange.TokenID != "" {
		fmt.Printf("Token: %s\n", cfg.Exchange.TokenID)
	} else {
		fmt.Printf("Token: discovered at launch (query %q, %d hits max)\n", cfg.Discovery.Query, cfg.Discovery.MaxHits)
	}
	fmt.Printf("Starting cash: $%.2f | fee rate: %.2f%%\n", cfg.Paper.StartingCash, cfg.Paper.FeeRate*100)
	fmt.Printf("Per-trade notional cap: $%.2f (0 = none)\n", cfg.Risk.MaxNotionalPerTrade)
	fmt.Printf("Poll every %s, retry after %s, give up after %d bad books\n",
		cfg.Poll.PollInterval(), cfg.Poll.RetryInterval(), cfg.Poll.MaxStructuralErrors)
	fmt.Printf("Interactive commands: %t | fills file: %q\n", cfg.Paper.Interactive, cfg.Paper.FillsPath)
}

func editRisk(reader *bufio.Reader, cfg *config.Config) {
	fmt.Println("\n--- Edit Paper Account / Risk ---")
	cfg.Paper.StartingCash = promptFloat(reader, "Starting cash", cfg.Paper.StartingCash)
	cfg.Paper.FeeRate = promptPercent(reader, "Fee rate (%)", cfg.Paper.FeeRate)
	cfg.Risk.MaxNotionalPerTrade = promptFloat(reader, "Max notional per trade (USD, 0 = none)", cfg.Risk.MaxNotionalPerTrade)
	cfg.Paper.FillsPath = promptString(reader, "Fills JSONL path", cfg.Paper.FillsPath)
}

func editDiscovery(reader *bufio.Reader, cfg *config.Config) {
	fmt.Println("\n--- Edit Market Selection / Polling ---")
	cfg.Exchange.Provider = promptString(reader, "Book provider (http, ws, stub)", cfg.Exchange.Provider)
	cfg.Exchange.TokenID = promptString(reader, "Token id (\"-\" to clear and search at launch)", cfg.Exchange.TokenID)
	if cfg.Exchange.TokenID == "-" {
		cfg.Exchange.TokenID = ""
	}
	cfg.Discovery.Query = promptString(reader, "Search query", cfg.Discovery.Query)
	cfg.Discovery.MaxHits = int(promptFloat(reader, "Max search hits", float64(cfg.Discovery.MaxHits)))
	cfg.Poll.IntervalMs = int(promptFloat(reader, "Poll interval (ms)", float64(cfg.Poll.IntervalMs)))
	cfg.Poll.RetryIntervalMs = int(promptFloat(reader, "Retry interval (ms)", float64(cfg.Poll.RetryIntervalMs)))
	if err := cfg.Validate(); err != nil {
		fmt.Printf("warning: %v\n", err)
	}
}

// launchPaper hands the terminal to the paper bot until it exits. Ctrl+C reaches the child and the menu survives it.
func launchPaper() {
	fmt.Println("Launching paper bot (q or Ctrl+C to stop)...")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cmd := exec.CommandContext(ctx, "go", "run", "./cmd/paper")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin
	cmd.Cancel = func() error { return cmd.Process.Signal(os.Interrupt) }
	cmd.WaitDelay = 2 * time.Second

	if err := cmd.Run(); err != nil && ctx.Err() == nil {
		fmt.Fprintf(os.Stderr, "paper bot exited: %v\n", err)
	}
}

func promptFloat(reader *bufio.Reader, label string, current float64) float64 {
	fmt.Printf("%s [%.2f]: ", label, current)
	line, _ := reader.ReadString('\n')
	line = strings.TrimSpace(line)
	if line == "" {
		return current
	}
	val, err := strconv.ParseFloat(line, 64)
	if err != nil {
		fmt.Printf("invalid number, keeping %.2f\n", current)
		return current
	}
	return val
}

func promptString(reader *bufio.Reader, label, current string) string {
	fmt.Printf("%s [%s]: ", label, current)
	line, _ := reader.ReadString('\n')
	if line = strings.TrimSpace(line); line == "" {
		return current
	}
	return line
}

func promptPercent(reader *bufio.Reader, label string, current float64) float64 {
	pct := promptFloat(reader, label, current*100)
	return pct / 100
}

func loadConfig() (*config.Config, error) {
	return config.Load(locateConfig())
}

func saveConfig(cfg *config.Config) error {
	return config.Save(locateConfig(), cfg)
}

func locateConfig() string {
	if filepath.IsAbs(defaultConfigPath) {
		return defaultConfigPath
	}
	return filepath.Clean(defaultConfigPath)
}
