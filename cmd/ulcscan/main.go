package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/grandcat/zeroconf"

	"github.com/mzyy94/ulcscan/internal/ccid"
	"github.com/mzyy94/ulcscan/internal/config"
	"github.com/mzyy94/ulcscan/internal/keystore"
	"github.com/mzyy94/ulcscan/internal/report"
	"github.com/mzyy94/ulcscan/internal/scan"
	"github.com/mzyy94/ulcscan/internal/transport"
	"github.com/mzyy94/ulcscan/internal/webui"
)

func main() {
	logLevel := parseLogLevel(envStr("ULCSCAN_LOG_LEVEL", "info"))
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	cfg, err := loadConfig()
	if err != nil {
		slog.Error("configuration invalid", "err", err)
		os.Exit(1)
	}
	// The config file may carry a different level than the environment did.
	if lvl := parseLogLevel(cfg.LogLevel); lvl != logLevel {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
	}

	if cfg.Port == "" {
		ports, err := transport.ListPorts()
		if err != nil {
			slog.Error("serial port listing failed", "err", err)
		}
		slog.Error("ULCSCAN_PORT is required", "available", strings.Join(ports, ", "))
		os.Exit(1)
	}

	rng, _ := cfg.KeyRange() // validated by loadConfig
	mode, _ := cfg.ScanMode()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sess, err := transport.Open(cfg.Port)
	if err != nil {
		slog.Error("reader connection failed", "port", cfg.Port, "err", err)
		os.Exit(1)
	}
	defer sess.Close()

	if err := sess.Probe(); err != nil {
		if errors.Is(err, ccid.ErrCardMute) {
			slog.Warn("reader answered but no card is in the field")
		} else {
			slog.Error("reader probe failed", "port", cfg.Port, "err", err)
			sess.Close()
			os.Exit(1)
		}
	}

	store, err := keystore.NewStore(cfg.DataDir)
	if err != nil {
		slog.Error("key store unavailable", "dir", cfg.DataDir, "err", err)
		sess.Close()
		os.Exit(1)
	}

	eng := scan.New(sess, rng, scan.WithMode(mode))

	var httpServer *http.Server
	var mdnsServer *zeroconf.Server
	if cfg.ListenAddr != "" {
		httpServer = &http.Server{
			Addr:    cfg.ListenAddr,
			Handler: logMiddleware(webui.NewHandler(eng, store, cfg.Port)),
		}
		go func() {
			slog.Info("status page serving", "addr", cfg.ListenAddr)
			if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
				slog.Error("HTTP server error", "err", err)
			}
		}()
		if mdnsServer = registerMDNS(cfg.ListenAddr); mdnsServer != nil {
			defer mdnsServer.Shutdown()
		}
	}

	started := time.Now()
	events, err := eng.Start(ctx)
	if err != nil {
		slog.Error("scan start rejected", "err", err)
		sess.Close()
		os.Exit(1)
	}

	var last scan.Event
	var lastLog time.Time
	for ev := range events {
		last = ev
		if ev.State == scan.StateRunning && time.Since(lastLog) >= time.Second {
			slog.Info("scanning",
				"key", ev.Key,
				"attempts", ev.Attempts,
				"progress", ev.Progress,
				"rate", ev.Rate,
			)
			lastLog = time.Now()
		}
	}
	duration := time.Since(started)
	snap := eng.Snapshot()

	if last.State == scan.StateSucceeded {
		fmt.Printf("key found: %s\n", last.Key)
		rec := keystore.Record{
			Port:     cfg.Port,
			Key:      last.Key.Hex(),
			Attempts: last.Attempts,
			Duration: duration.Round(time.Second).String(),
			FoundAt:  time.Now().UTC(),
		}
		if len(snap.UID) > 0 {
			rec.UID = fmt.Sprintf("% X", snap.UID)
		}
		if err := store.Append(rec); err != nil {
			slog.Error("key persistence failed", "err", err)
		}
	}

	if cfg.ReportDir != "" {
		sum := report.Summary{
			Port:       cfg.Port,
			State:      last.State.String(),
			StartKey:   rng.Start.String(),
			EndKey:     rng.End.String(),
			Attempts:   last.Attempts,
			Duration:   duration,
			Rate:       last.Rate,
			FinishedAt: time.Now(),
		}
		if len(snap.UID) > 0 {
			sum.UID = fmt.Sprintf("% X", snap.UID)
		}
		if last.State == scan.StateSucceeded {
			sum.Key = last.Key.String()
		}
		if path, err := report.Write(sum, cfg.ReportDir); err != nil {
			slog.Error("report generation failed", "err", err)
		} else {
			slog.Info("report written", "path", path)
		}
	}

	if httpServer != nil {
		// Keep the result visible until the operator interrupts, unless
		// a signal already ended the scan.
		if ctx.Err() == nil {
			slog.Info("scan finished, status page up until interrupt", "addr", cfg.ListenAddr)
			<-ctx.Done()
		}
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP shutdown error", "err", err)
		}
	}

	if last.State == scan.StateFailed {
		sess.Close()
		os.Exit(1)
	}
}

// loadConfig merges the built-in defaults, the optional YAML file named
// by ULCSCAN_CONFIG, and the ULCSCAN_* environment variables, strongest
// last.
func loadConfig() (config.Config, error) {
	cfg := config.Default()
	if path := os.Getenv("ULCSCAN_CONFIG"); path != "" {
		fileCfg, err := config.Load(path)
		if err != nil {
			return config.Config{}, err
		}
		cfg = fileCfg
		slog.Info("config file loaded", "path", path)
	}
	cfg.Port = envStr("ULCSCAN_PORT", cfg.Port)
	cfg.StartKey = envStr("ULCSCAN_START_KEY", cfg.StartKey)
	cfg.EndKey = envStr("ULCSCAN_END_KEY", cfg.EndKey)
	cfg.Mode = envStr("ULCSCAN_MODE", cfg.Mode)
	cfg.ListenAddr = envStr("ULCSCAN_LISTEN_ADDR", cfg.ListenAddr)
	cfg.DataDir = envStr("ULCSCAN_DATA_DIR", cfg.DataDir)
	cfg.ReportDir = envStr("ULCSCAN_REPORT_DIR", cfg.ReportDir)
	cfg.LogLevel = envStr("ULCSCAN_LOG_LEVEL", cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// registerMDNS advertises the status page as _http._tcp. Registration
// failure is not fatal; the page still serves on the configured address.
func registerMDNS(listenAddr string) *zeroconf.Server {
	_, portStr, err := net.SplitHostPort(listenAddr)
	if err != nil {
		slog.Warn("mDNS registration skipped", "addr", listenAddr, "err", err)
		return nil
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		slog.Warn("mDNS registration skipped", "addr", listenAddr, "err", err)
		return nil
	}
	server, err := zeroconf.Register("ulcscan", "_http._tcp", "local.", port, []string{"path=/"}, nil)
	if err != nil {
		slog.Warn("mDNS registration failed", "err", err)
		return nil
	}
	slog.Info("mDNS registered", "name", "ulcscan", "service", "_http._tcp", "port", port)
	return server
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// responseRecorder captures the status code for logging.
type responseRecorder struct {
	http.ResponseWriter
	status int
}

func (r *responseRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &responseRecorder{ResponseWriter: w, status: 200}
		start := time.Now()
		next.ServeHTTP(rec, r)
		slog.Info("http",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"remote", r.RemoteAddr,
			"duration", time.Since(start).Round(time.Millisecond),
		)
	})
}
