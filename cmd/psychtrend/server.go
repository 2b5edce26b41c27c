package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/kalambet/psychtrend/internal/api"
	"github.com/kalambet/psychtrend/internal/config"
	"github.com/kalambet/psychtrend/internal/engine"
	"github.com/kalambet/psychtrend/internal/flow"
	"github.com/kalambet/psychtrend/internal/humanizer"
	"github.com/kalambet/psychtrend/internal/pipeline"
	"github.com/kalambet/psychtrend/internal/storage"
	"github.com/kalambet/psychtrend/internal/worker"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the psychtrend server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running psychtrend server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show psychtrend system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus()
	},
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "psychtrend.pid")
}

func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func removePIDFile(path string) {
	os.Remove(path)
}

func logLevel(name string) slog.Level {
	switch strings.ToLower(name) {
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

func detectConfig(cfg config.Config) engine.DetectConfig {
	return engine.DetectConfig{
		Backend:       cfg.LLM.Backend,
		OllamaBaseURL: cfg.LLM.OllamaBaseURL,
		OpenAIBaseURL: cfg.LLM.OpenAIBaseURL,
		OpenAIAPIKey:  cfg.LLM.OpenAIAPIKey,
	}
}

// flowSeed returns the configured seed, or a time-based one when unset.
func flowSeed(cfg config.Config) uint64 {
	if cfg.Analysis.Seed != 0 {
		return uint64(cfg.Analysis.Seed)
	}
	return uint64(time.Now().UnixNano())
}

// buildHumanizer connects to the local LLM. It returns nil when the
// humanizer is disabled; reports then always use the deterministic
// templates.
func buildHumanizer(ctx context.Context, cfg config.Config, progress io.Writer) (pipeline.Humanizer, string, error) {
	if !cfg.Humanizer.Enabled {
		slog.Info("LLM humanizer disabled")
		return nil, "", nil
	}

	eng, err := engine.Detect(ctx, detectConfig(cfg))
	if err != nil {
		return nil, "", fmt.Errorf("detecting inference engine: %w", err)
	}
	if cfg.LLM.PullModel {
		if err := engine.EnsureReady(ctx, eng, cfg.LLM.Model, progress); err != nil {
			slog.Warn("LLM not ready; reports fall back to templates until it is", "backend", eng.Name(), "error", err)
		}
	}

	h := humanizer.New(eng, cfg.LLM.Model, humanizer.Options{
		Timeout:     cfg.HumanizerTimeout(),
		Retries:     cfg.Humanizer.Retries,
		Parallelism: cfg.Humanizer.Parallelism,
	})
	slog.Info("LLM humanizer configured", "backend", eng.Name(), "model", cfg.LLM.Model)
	return h, eng.Name(), nil
}

func runServer() error {
	fmt.Fprintf(os.Stderr, "psychtrend version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel(cfg.Log.Level)})))

	// Ensure API token exists in platform secret store.
	apiToken, err := config.GetAPIToken(config.NewKeychain())
	if err != nil {
		return fmt.Errorf("initializing API token: %w", err)
	}
	slog.Info("API bearer token available")

	// Refuse to start twice.
	pidPath := pidFilePath(cfg.Storage.DataDir)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get("http://" + cfg.Addr() + "/health"); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("psychtrend is already running (PID %d)", pid)
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		printWarning("psychtrend is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing storage: %v\n", err)
		}
	}()

	bank, err := flow.DefaultBank()
	if err != nil {
		return fmt.Errorf("loading question bank: %w", err)
	}
	ctrl := flow.New(bank, flowSeed(cfg)).WithFollowUpRate(cfg.Analysis.FollowUpRate)

	h, backend, err := buildHumanizer(ctx, cfg, os.Stderr)
	if err != nil {
		return err
	}

	svc := pipeline.New(store, ctrl, h, pipeline.Options{
		MinResponses:      cfg.Analysis.MinResponses,
		BackgroundEnhance: cfg.Analysis.BackgroundEnhance,
		NormalizeInput:    cfg.Humanizer.NormalizeInput,
		RephraseQuestions: cfg.Humanizer.RephraseQuestions,
	})

	if h != nil && cfg.Analysis.BackgroundEnhance {
		w := worker.New(store, svc, []string{pipeline.JobEnhanceReport}, 500*time.Millisecond)
		go w.Run(ctx)
	}

	if cfg.Server.MCPStdio {
		mcpSrv := api.NewMCPServer(api.MCPDeps{Service: svc, Version: version})
		stdioSrv := server.NewStdioServer(mcpSrv)
		go func() {
			if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("MCP stdio server error", "error", err)
			}
		}()
		slog.Info("MCP server started (stdio transport)")
	}

	addr := cfg.Addr()
	srv := &http.Server{
		Addr: addr,
		Handler: api.NewHandler(api.Deps{
			Service:        svc,
			Token:          apiToken,
			Backend:        backend,
			AllowedOrigins: cfg.Origins(),
		}),
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(os.Stderr, "psychtrend listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func stopServer() error {
	cfg, err := config.Load()
	if err != nil {
		printError("could not load config: %v", err)
		return err
	}

	pidPath := pidFilePath(cfg.Storage.DataDir)
	pid, err := readPIDFile(pidPath)
	if err != nil {
		printError("psychtrend is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop psychtrend (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to psychtrend (PID %d)", pid)
	return nil
}

func showStatus() error {
	cfg, err := config.Load()
	if err != nil {
		printError("config error: %v", err)
		return nil
	}

	serverURL := "http://" + cfg.Addr()
	client := &http.Client{Timeout: 2 * time.Second}

	running := false
	resp, err := client.Get(serverURL + "/health")
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		resp.Body.Close()
		running = resp.StatusCode == http.StatusOK
		if running {
			printStatus("Server", "running on %s", cfg.Addr())
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
	}

	if token, tokenErr := config.GetAPIToken(config.NewKeychain()); running && tokenErr == nil {
		c := &apiClient{baseURL: serverURL, token: token, httpClient: client}
		if health, err := fetchLLMHealth(context.Background(), c); err == nil {
			printLLMHealth(health)
		} else {
			printStatus("LLM", "unknown (%v)", err)
		}
	} else {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if eng, err := engine.Detect(ctx, detectConfig(cfg)); err == nil && eng.IsRunning(ctx) {
			printStatus("LLM", "%s reachable", eng.Name())
		} else {
			printStatus("LLM", "not reachable")
		}
	}

	printStatus("Model", "%s", cfg.LLM.Model)
	printStatus("Humanizer", "%s", enabledLabel(cfg.Humanizer.Enabled))
	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}

func fetchLLMHealth(ctx context.Context, c *apiClient) (api.LLMHealth, error) {
	resp, err := c.get(ctx, "/llm/health")
	if err != nil {
		return api.LLMHealth{}, err
	}
	var health api.LLMHealth
	if err := decodeJSON(resp, &health); err != nil {
		return api.LLMHealth{}, err
	}
	return health, nil
}

func printLLMHealth(h api.LLMHealth) {
	backend := h.Backend
	if backend == "" {
		backend = "none"
	}
	printStatus("LLM", "%s (%s)", h.Status, backend)
}

func enabledLabel(on bool) string {
	if on {
		return "enabled"
	}
	return "disabled"
}
