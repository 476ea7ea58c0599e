package main

import (
	"context"
	"errors"
	"fmt"
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
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/kalambet/cropdoc/internal/api"
	"github.com/kalambet/cropdoc/internal/config"
	"github.com/kalambet/cropdoc/internal/history"
	"github.com/kalambet/cropdoc/internal/logging"
	"github.com/kalambet/cropdoc/internal/model"
	"github.com/kalambet/cropdoc/internal/ollama"
	"github.com/kalambet/cropdoc/internal/profile"
	"github.com/kalambet/cropdoc/internal/rotation"
	"github.com/kalambet/cropdoc/internal/service"
	"github.com/kalambet/cropdoc/internal/storage"
	"github.com/kalambet/cropdoc/internal/weather"
)

var serveMCP bool

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the cropdoc server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running cropdoc server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show cropdoc system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus(cmd.Context())
	},
}

func init() {
	startCmd.Flags().BoolVar(&serveMCP, "mcp", false, "also serve MCP over stdin/stdout")
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "cropdoc.pid")
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

func healthURL(port int) string {
	return fmt.Sprintf("http://127.0.0.1:%d/health", port)
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logging.Init(cfg.Log.Level)

	apiToken, err := config.GetAPIToken(config.NewKeychain())
	if err != nil {
		return fmt.Errorf("initializing API token: %w", err)
	}

	pidPath := pidFilePath(cfg.Storage.DataDir)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(healthURL(cfg.Server.Port)); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("cropdoc is already running (PID %d)", pid)
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		printWarning("cropdoc is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Ollama.Enabled {
		oc := ollama.New(cfg.Ollama.BaseURL)
		if err := ollama.EnsureVisionModel(ctx, oc, cfg.Ollama.VisionModel); err != nil {
			// The local credential stays in the rotation and fails per attempt.
			log.Warn().Err(err).Str("model", cfg.Ollama.VisionModel).Msg("local vision model unavailable")
		}
	}

	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn().Err(err).Msg("closing storage")
		}
	}()
	hist := history.New(store, history.WithRetention(cfg.History.Retention))
	farm := profile.NewManager(store)

	strategy, err := rotation.New(cfg.Credentials(), cfg.AttemptTimeout())
	if err != nil {
		return fmt.Errorf("building credential rotation: %w", err)
	}
	factory := model.NewFactory(cfg.ModelSettings()).
		WithHTTPClient(&http.Client{Timeout: 2 * cfg.AttemptTimeout()})
	svc := service.New(factory, strategy, hist)

	var wx api.WeatherReporter
	if cfg.Weather.APIKey != "" {
		wx = weather.NewClientWithBaseURL(cfg.Weather.APIKey, cfg.Weather.BaseURL)
	}

	logging.NewStartup(version).
		Config("port", strconv.Itoa(cfg.Server.Port)).
		Config("data_dir", cfg.Storage.DataDir).
		Config("gemini_model", cfg.Gemini.Model).
		Config("credentials", strconv.Itoa(strategy.Len())).
		Config("attempt_timeout", cfg.AttemptTimeout().String()).
		Config("history_retention", strconv.Itoa(hist.Retention())).
		Feature("ollama", cfg.Ollama.Enabled).
		Feature("weather", wx != nil).
		Feature("mcp_stdio", serveMCP).
		Log()

	handler := api.NewHandler(api.Deps{
		Analyzer: svc,
		History:  hist,
		Weather:  wx,
		Profile:  farm,
		Token:    apiToken,
	})

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	if serveMCP {
		mcpSrv := api.NewMCPServer(api.MCPDeps{Analyzer: svc, History: hist, Weather: wx, Profile: farm}, version)
		stdioSrv := server.NewStdioServer(mcpSrv)
		go func() {
			if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("MCP stdio server error")
			}
		}()
		log.Info().Msg("MCP server started (stdio transport)")
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("cropdoc listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
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
		printError("cropdoc is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop cropdoc (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to cropdoc (PID %d)", pid)
	return nil
}

func showStatus(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load()
	if err != nil {
		printError("config error: %v", err)
		return nil
	}

	client := &http.Client{Timeout: 2 * time.Second}
	running := false
	resp, err := client.Get(healthURL(cfg.Server.Port))
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			running = true
			printStatus("Server", "running on port %d", cfg.Server.Port)
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
	}

	creds := cfg.Credentials()
	labels := make([]string, len(creds))
	for i, c := range creds {
		labels[i] = c.Label()
	}
	printStatus("Credentials", "%d (%s)", len(creds), strings.Join(labels, ", "))

	if cfg.Ollama.Enabled {
		probeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if ollama.New(cfg.Ollama.BaseURL).IsRunning(probeCtx) {
			printStatus("Ollama", "running at %s (%s)", cfg.Ollama.BaseURL, cfg.Ollama.VisionModel)
		} else {
			printStatus("Ollama", "not running at %s", cfg.Ollama.BaseURL)
		}
	} else {
		printStatus("Ollama", "disabled")
	}

	if cfg.Weather.APIKey != "" {
		printStatus("Weather", "configured")
	} else {
		printStatus("Weather", "not configured (set CROPDOC_WEATHER_API_KEY)")
	}

	if running {
		if c, err := newAPIClient(); err == nil {
			if resp, err := c.get(ctx, "/v1/history?limit=100"); err == nil {
				var recs []history.Record
				if decodeJSON(resp, &recs) == nil {
					printStatus("Stored analyses", "%s", countLabel(len(recs), 100))
				}
			}
		}
	}

	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}

func countLabel(count, limit int) string {
	if count >= limit {
		return fmt.Sprintf("%d+", count)
	}
	return fmt.Sprintf("%d", count)
}
