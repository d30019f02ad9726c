package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/gaspardpetit/resumegen/internal/config"
	"github.com/gaspardpetit/resumegen/internal/inflight"
	"github.com/gaspardpetit/resumegen/internal/logx"
	"github.com/gaspardpetit/resumegen/internal/metrics"
	"github.com/gaspardpetit/resumegen/internal/provider"
	"github.com/gaspardpetit/resumegen/internal/relay"
	"github.com/gaspardpetit/resumegen/internal/secret"
	"github.com/gaspardpetit/resumegen/internal/server"
	"github.com/gaspardpetit/resumegen/internal/serverstate"
)

var (
	version   = "dev"
	buildSHA  = "unknown"
	buildDate = "unknown"
)

const shutdownGrace = 5 * time.Second

// configPathFromArgs finds --config before flags are bound so the file can be
// layered under env and flags.
func configPathFromArgs(args []string) string {
	for i, a := range args {
		if (a == "--config" || a == "-config") && i+1 < len(args) {
			return args[i+1]
		}
		if v, ok := strings.CutPrefix(a, "--config="); ok {
			return v
		}
		if v, ok := strings.CutPrefix(a, "-config="); ok {
			return v
		}
	}
	return ""
}

func main() {
	_ = godotenv.Load()

	showVersion := flag.Bool("version", false, "print version and exit")
	var cfg config.ServerConfig
	// defaults < file < env < args
	cfg.SetDefaults()
	cfg.ApplyEnv()
	if p := configPathFromArgs(os.Args[1:]); p != "" {
		cfg.ConfigFile = p
	}
	if cfg.ConfigFile != "" {
		if err := cfg.LoadFile(cfg.ConfigFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			logx.Log.Fatal().Err(err).Str("path", cfg.ConfigFile).Msg("load config")
		}
	}
	cfg.ApplyEnv()
	cfg.BindFlagsFromCurrent(flag.CommandLine)
	flag.Usage = func() {
		_, _ = fmt.Fprintf(flag.CommandLine.Output(), "resumegen version=%s sha=%s date=%s\n\n", version, buildSHA, buildDate)
		flag.PrintDefaults()
	}
	flag.Parse()
	if *showVersion {
		fmt.Printf("resumegen version=%s sha=%s date=%s\n", version, buildSHA, buildDate)
		return
	}

	logx.Configure(cfg.LogLevel, cfg.LogFormat)
	if err := cfg.Resolve(); err != nil {
		logx.Log.Fatal().Err(err).Msg("invalid configuration")
	}
	profile, err := provider.New(cfg.ProviderSettings())
	if err != nil {
		logx.Log.Fatal().Err(err).Msg("upstream provider")
	}
	rl := relay.New(profile, nil)
	logx.Log.Info().
		Str("provider", profile.Name).
		Str("base_url", profile.BaseURL).
		Str("model", profile.Model).
		Str("api_key", secret.Mask(cfg.Upstream.APIKey)).
		Msg("upstream configured")

	if cfg.RedisAddr != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		rs, err := serverstate.NewRedisStore(ctx, cfg.RedisAddr)
		cancel()
		if err != nil {
			logx.Log.Fatal().Err(err).Msg("connect redis")
		}
		defer func() { _ = rs.Close() }()
		serverstate.UseStore(rs)
		logx.Log.Info().Str("addr", cfg.RedisAddr).Msg("using redis state store")
	}

	preg := server.NewRegistry()
	metrics.SetServerBuildInfo(version, buildSHA, buildDate)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           server.New(cfg, rl, preg),
		ReadHeaderTimeout: 10 * time.Second,
	}
	var metricsSrv *http.Server
	if cfg.MetricsAddr != fmt.Sprintf(":%d", cfg.Port) {
		mux := http.NewServeMux()
		mux.Handle("/metrics", server.MetricsHandler(preg))
		metricsSrv = &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go drainOnSignal(ctx, cancel, cfg.DrainTimeout)
	go func() {
		<-ctx.Done()
		sctx, stop := context.WithTimeout(context.Background(), shutdownGrace)
		defer stop()
		if err := srv.Shutdown(sctx); err != nil {
			logx.Log.Error().Err(err).Msg("server shutdown")
			_ = srv.Close()
		}
		if metricsSrv != nil {
			if err := metricsSrv.Shutdown(sctx); err != nil {
				logx.Log.Error().Err(err).Msg("metrics server shutdown")
				_ = metricsSrv.Close()
			}
		}
	}()

	if cfg.APIKey != "" {
		logx.Log.Info().Msg("API key auth enabled")
	}
	if metricsSrv != nil {
		go func() {
			logx.Log.Info().Str("addr", cfg.MetricsAddr).Msg("metrics server starting")
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logx.Log.Error().Err(err).Msg("metrics server error")
			}
		}()
	}
	serverstate.MarkReady()
	logx.Log.Info().Int("port", cfg.Port).Str("version", version).Msg("server starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logx.Log.Fatal().Err(err).Msg("server error")
	}
}

// drainOnSignal starts a drain on the first SIGINT/SIGTERM and cancels once
// in-flight relays finish or timeout elapses. A second signal, or a zero
// timeout, cancels immediately. A negative timeout waits indefinitely.
func drainOnSignal(ctx context.Context, cancel context.CancelFunc, timeout time.Duration) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	for {
		select {
		case <-ctx.Done():
			return
		case <-sigCh:
		}
		if serverstate.IsDraining() || timeout == 0 {
			logx.Log.Warn().Msg("termination requested")
			cancel()
			return
		}
		serverstate.StartDrain()
		relays := inflight.Relays()
		logx.Log.Info().Int64("inflight", relays.Load()).Dur("timeout", timeout).Msg("draining; send SIGTERM again to terminate immediately")
		waitCtx, stop := ctx, context.CancelFunc(func() {})
		if timeout > 0 {
			waitCtx, stop = context.WithTimeout(ctx, timeout)
		}
		go func() {
			defer stop()
			if relays.WaitForZero(waitCtx) {
				logx.Log.Info().Msg("drain complete; terminating")
				cancel()
				return
			}
			if errors.Is(waitCtx.Err(), context.DeadlineExceeded) {
				logx.Log.Warn().Int64("inflight", relays.Load()).Msg("drain timeout exceeded; terminating")
				cancel()
			}
		}()
	}
}
