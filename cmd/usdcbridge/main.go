// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/holiman/uint256"
	"github.com/luxfi/log"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/luxfi/usdcbridge/config"
	"github.com/luxfi/usdcbridge/events"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var (
	cfg    config.Config
	logger log.Logger
)

var rootCmd = &cobra.Command{
	Use:   "usdcbridge",
	Short: "USDC bridge - lock-and-mint USDC between an L1 and an L2",
	Long: `usdcbridge runs a local L1/L2 pair with a bridge deployed through the
factory and a relayer moving messages between the two messengers.`,
	Version:       fmt.Sprintf("%s (built %s)", version, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		v, err := config.BuildViper(cmd.Flags())
		if err != nil {
			return fmt.Errorf("couldn't configure flags: %w", err)
		}
		if cfg, err = config.NewConfig(v); err != nil {
			return fmt.Errorf("couldn't build config: %w", err)
		}
		logger, err = newLogger(cfg.LogLevel)
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().AddFlagSet(config.BuildFlagSet())

	simulateCmd.Flags().Uint64("amount", 1_000_000, "Amount of USDC base units bridged to L2")
	simulateCmd.Flags().Bool("migrate", true, "Migrate the bridge to native USDC once the transfers are done")
	runCmd.Flags().Uint64("amount", 1_000_000, "Amount of USDC base units of each generated transfer")
	runCmd.Flags().Duration("transfer-interval", 0, "How often a transfer is generated, 0 disables generation")

	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(runCmd)
}

func newLogger(level string) (log.Logger, error) {
	lvl, err := log.ToLevel(level)
	if err != nil {
		return nil, fmt.Errorf("error reading log level from config: %w", err)
	}
	return log.NewLogger(
		"usdcbridge",
		*log.NewWrappedCore(lvl, os.Stdout, log.JSON.ConsoleEncoder()),
	), nil
}

// connectEvents returns the NATS publisher when one is configured along with
// a func closing its connection.
func connectEvents() (events.Sink, func(), error) {
	if cfg.NATSURL == "" {
		return nil, func() {}, nil
	}
	publisher, conn, err := events.Connect(logger, cfg.NATSURL, cfg.NATSTimeout)
	if err != nil {
		return nil, nil, err
	}
	return publisher, func() { drain(conn) }, nil
}

func drain(conn *nats.Conn) {
	if err := conn.Drain(); err != nil {
		logger.Warn("failed to drain nats connection", log.Err(err))
	}
}

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Bridge USDC to L2 and back, then migrate to native USDC",
	RunE: func(cmd *cobra.Command, _ []string) error {
		amount, _ := cmd.Flags().GetUint64("amount")
		migrate, _ := cmd.Flags().GetBool("migrate")
		if amount < 2 {
			return fmt.Errorf("amount must be at least 2, got %d", amount)
		}

		ctx := cmd.Context()
		sink, closeSink, err := connectEvents()
		if err != nil {
			return err
		}
		defer closeSink()

		n, err := newNetwork(ctx, logger, cfg, prometheus.NewRegistry(), sink)
		if err != nil {
			return err
		}
		return simulate(ctx, n, uint256.NewInt(amount), migrate)
	},
}

func simulate(ctx context.Context, n *network, amount *uint256.Int, migrate bool) error {
	holder, err := n.deposit(ctx, amount)
	if err != nil {
		return fmt.Errorf("failed to deposit: %w", err)
	}
	if _, err := n.relayer.RelayPending(ctx); err != nil {
		return err
	}
	logger.Info("deposited",
		log.Stringer("holder", holder),
		log.String("l2Balance", n.bridged.BalanceOf(holder).Dec()),
	)

	half := new(uint256.Int).Rsh(amount, 1)
	if err := n.withdraw(ctx, holder, half); err != nil {
		return fmt.Errorf("failed to withdraw: %w", err)
	}
	if _, err := n.relayer.RelayPending(ctx); err != nil {
		return err
	}
	logger.Info("withdrew",
		log.Stringer("holder", holder),
		log.String("l1Balance", n.usdc.BalanceOf(holder).Dec()),
		log.String("l2Balance", n.bridged.BalanceOf(holder).Dec()),
	)

	if migrate {
		if err := n.migrate(ctx); err != nil {
			return err
		}
	}

	fmt.Printf("L1 adapter:      %s (%s)\n", n.pair.L1Adapter, n.l1Adapter.MessengerStatus())
	fmt.Printf("L2 adapter:      %s\n", n.pair.L2Adapter)
	fmt.Printf("Bridged USDC:    %s\n", n.pair.L2Token)
	fmt.Printf("L2 supply:       %s\n", n.bridged.TotalSupply().Dec())
	fmt.Printf("L1 locked:       %s\n", n.usdc.BalanceOf(n.pair.L1Adapter).Dec())
	fmt.Printf("Events recorded: %d\n", len(n.recorder.Events()))
	for _, channel := range []string{"l1->l2", "l2->l1"} {
		next, _ := n.relayer.Checkpoint(channel)
		fmt.Printf("Checkpoint %s: %d\n", channel, next)
	}
	return nil
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the relayer over a local bridge until interrupted",
	RunE: func(cmd *cobra.Command, _ []string) error {
		amount, _ := cmd.Flags().GetUint64("amount")
		interval, _ := cmd.Flags().GetDuration("transfer-interval")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		sink, closeSink, err := connectEvents()
		if err != nil {
			return err
		}
		defer closeSink()

		registry := prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		n, err := newNetwork(ctx, logger, cfg, registry, sink)
		if err != nil {
			return err
		}

		eg, ctx := errgroup.WithContext(ctx)
		eg.Go(func() error {
			return n.relayer.Run(ctx)
		})
		if cfg.MetricsPort != 0 {
			eg.Go(func() error {
				return serveMetrics(ctx, registry, cfg.MetricsPort)
			})
		}
		if interval > 0 {
			eg.Go(func() error {
				return generateTransfers(ctx, n, uint256.NewInt(amount), interval)
			})
		}
		logger.Info("relayer running",
			log.Stringer("l1Adapter", n.pair.L1Adapter),
			log.Stringer("l2Adapter", n.pair.L2Adapter),
		)
		return eg.Wait()
	},
}

func serveMetrics(ctx context.Context, registry *prometheus.Registry, port uint16) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	server := &http.Server{
		Addr:              ":" + strconv.Itoa(int(port)),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Info("serving metrics", log.String("addr", server.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server failed: %w", err)
	}
	return nil
}

func generateTransfers(ctx context.Context, n *network, amount *uint256.Int, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		holder, err := n.deposit(ctx, amount)
		if err != nil {
			logger.Warn("failed to generate transfer", log.Err(err))
			continue
		}
		logger.Debug("generated transfer", log.Stringer("holder", holder))
	}
}
