package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"vsphere-healthcheck/internal/config"
	"vsphere-healthcheck/internal/healthcheck"
	"vsphere-healthcheck/internal/vsphere"
)

// Version information (set at build time with -ldflags).
var (
	Version   = "dev"
	GitCommit = "unknown"
)

var rootCmd = &cobra.Command{
	Use:           "vhealth",
	Short:         "Point-in-time VM health reports for vCenter/ESXi",
	Long:          "vhealth connects to a vCenter or ESXi endpoint, ranks the noisiest virtual machines across CPU contention, memory, network and disk I/O, and writes a self-contained HTML report.",
	Version:       fmt.Sprintf("%s (%s)", Version, GitCommit),
	SilenceUsage:  true,
	SilenceErrors: true,
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Full health report: 24h aggregates, top-10 rankings, short IOPS pass",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, false)
	},
}

var iopsCmd = &cobra.Command{
	Use:   "iops",
	Short: "Detailed disk I/O sampling run (default 180 rounds, about one hour)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, true)
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("host", "", "vCenter/ESXi address (prompted when omitted)")
	pf.String("user", "", "username (prompted when omitted)")
	pf.String("password", "", "password (prompted when omitted)")
	pf.Bool("insecure", true, "skip TLS certificate verification")
	pf.String("output", "", "report file path")
	pf.String("row-log", "", "intermediate IOPS CSV path")
	pf.Int("top", config.DefaultTopN, "records per ranking")
	pf.String("log-level", "", "debug, info, warn or error")
	pf.Bool("log-json", false, "JSON log output")

	reportCmd.Flags().Int("rounds", config.DefaultReportRounds, "IOPS sampling rounds")
	iopsCmd.Flags().Int("rounds", config.DefaultDetailedRounds, "IOPS sampling rounds")

	rootCmd.AddCommand(reportCmd, iopsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "vhealth: %v\n", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, detailed bool) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	logger := buildLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	connectCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()
	client, err := vsphere.Connect(connectCtx, cfg.Host, cfg.User, cfg.Password, cfg.Insecure, logger)
	if err != nil {
		return err
	}
	defer client.Close(context.Background())

	runner := healthcheck.New(client, logger)
	opts := healthcheck.Options{
		Target:     cfg.Host,
		OutputPath: cfg.OutputPath,
		RowLogPath: cfg.RowLogPath,
		Rounds:     cfg.Rounds,
		TopN:       cfg.TopN,
	}
	if detailed {
		return runner.RunIops(ctx, opts)
	}
	return runner.RunReport(ctx, opts)
}

// resolveConfig layers flags over the environment and prompts for whatever
// is still missing, then validates.
func resolveConfig(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Load()

	flags := cmd.Flags()
	for name, dst := range map[string]*string{
		"host":      &cfg.Host,
		"user":      &cfg.User,
		"password":  &cfg.Password,
		"output":    &cfg.OutputPath,
		"row-log":   &cfg.RowLogPath,
		"log-level": &cfg.LogLevel,
	} {
		if flags.Changed(name) {
			*dst, _ = flags.GetString(name)
		}
	}
	if flags.Changed("insecure") {
		cfg.Insecure, _ = flags.GetBool("insecure")
	}
	if flags.Changed("log-json") {
		cfg.LogJSON, _ = flags.GetBool("log-json")
	}
	if flags.Changed("top") {
		cfg.TopN, _ = flags.GetInt("top")
	}
	if flags.Changed("rounds") || cfg.Rounds == 0 {
		// Unset everywhere: fall back to the per-command default.
		cfg.Rounds, _ = flags.GetInt("rounds")
	}

	var err error
	if cfg.Host == "" {
		if cfg.Host, err = promptString("vCenter/ESXi host"); err != nil {
			return cfg, err
		}
	}
	if cfg.User == "" {
		if cfg.User, err = promptString("Username"); err != nil {
			return cfg, err
		}
	}
	if cfg.Password == "" {
		if cfg.Password, err = promptPassword("Password"); err != nil {
			return cfg, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func buildLogger(cfg config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	var w io.Writer = os.Stderr
	if !cfg.LogJSON && term.IsTerminal(int(os.Stderr.Fd())) {
		w = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

func promptString(label string) (string, error) {
	fmt.Fprintf(os.Stderr, "%s: ", label)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("read %s: %w", strings.ToLower(label), err)
	}
	return strings.TrimSpace(line), nil
}

func promptPassword(label string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("password is required (use --password or VHEALTH_PASSWORD)")
	}
	fmt.Fprintf(os.Stderr, "%s: ", label)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(b), nil
}
