// ====================================
// File: cmd/raceswap/main.go
// ====================================
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/raceswap-labs/raceswap-engine/internal/blockchain"
	"github.com/raceswap-labs/raceswap-engine/internal/config"
	"github.com/raceswap-labs/raceswap-engine/internal/engine"
	"github.com/raceswap-labs/raceswap-engine/internal/jupiter"
	"github.com/raceswap-labs/raceswap-engine/internal/logger"
	"github.com/raceswap-labs/raceswap-engine/internal/swap"
	"github.com/raceswap-labs/raceswap-engine/internal/wallet"
)

func main() {
	configPath := flag.String("config", "configs/config.json", "path to configuration file")
	inputMint := flag.String("input", "", "input token mint")
	outputMint := flag.String("output", "", "main output token mint")
	reflectionMint := flag.String("reflection", "", "reflection token mint")
	amount := flag.Uint64("amount", 0, "input amount in smallest units")
	disableReflection := flag.Bool("no-reflection", false, "skip the reflection leg")
	flag.Parse()

	// A missing .env is fine; explicit environment wins either way.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fatal("failed to load configuration", err)
	}

	logCfg := logger.DefaultConfig()
	logCfg.LogFile = cfg.LogFile
	logCfg.Development = cfg.DebugLogging
	log, err := logger.New(logCfg)
	if err != nil {
		fatal("failed to initialize logger", err)
	}
	defer log.Sync()

	log.Info("Starting raceswap engine",
		zap.String("architecture", cfg.Architecture),
		zap.String("rpc", cfg.RPCURL))

	w, err := wallet.LoadFromFile(cfg.WalletKeyFile)
	if err != nil {
		log.Fatal("Failed to load wallet", zap.Error(err))
	}

	req, err := parseRequest(cfg, *inputMint, *outputMint, *reflectionMint, *amount, *disableReflection)
	if err != nil {
		log.Fatal("Invalid swap request", zap.Error(err))
	}

	chain := blockchain.NewClient(cfg.RPCURL, log.Logger)
	quotes := jupiter.NewClient(cfg.JupiterBaseURL, 15*time.Second, chain, log.Logger)

	eng, err := engine.New(cfg, w, chain, quotes, log.Logger)
	if err != nil {
		log.Fatal("Failed to initialize engine", zap.Error(err))
	}

	if cfg.MetricsListenAddr != "" {
		go serveMetrics(cfg.MetricsListenAddr, log.Logger)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	status, err := eng.Execute(ctx, req)
	if err != nil {
		log.Fatal("Swap failed", zap.Error(err))
	}

	log.Info("Swap confirmed",
		zap.String("signature", status.Signature),
		zap.String("status", status.Status),
		zap.Uint64("slot", status.Slot))
}

func parseRequest(cfg *config.Config, input, output, reflection string, amount uint64, disableReflection bool) (swap.SwapRequest, error) {
	req := swap.SwapRequest{
		Amount:            amount,
		SlippageBps:       cfg.SlippageBps,
		DisableReflection: disableReflection,
	}
	var err error
	if req.InputMint, err = solana.PublicKeyFromBase58(input); err != nil {
		return req, err
	}
	if req.OutputMint, err = solana.PublicKeyFromBase58(output); err != nil {
		return req, err
	}
	if !disableReflection {
		if req.ReflectionMint, err = solana.PublicKeyFromBase58(reflection); err != nil {
			return req, err
		}
	}
	return req, req.Validate()
}

func serveMetrics(addr string, log *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	log.Info("Serving metrics", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Warn("Metrics server stopped", zap.Error(err))
	}
}

func fatal(msg string, err error) {
	fallback, _ := zap.NewProduction()
	fallback.Fatal(msg, zap.Error(err))
}
