package main

import (
	"context"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/fang"
	"github.com/fpang/captioncraft/internal/captionapi"
	"github.com/fpang/captioncraft/internal/config"
	"github.com/fpang/captioncraft/internal/logging"
	"github.com/fpang/captioncraft/internal/session"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Set at build time with -ldflags "-X main.version=... -X main.commitHash=...".
var (
	version    = "dev"
	commitHash = ""
)

// CLI flags
var (
	configFlag       string
	apiURLFlag       string
	logLevelFlag     string
	probeTimeoutFlag time.Duration
)

// stdout is where commands print results.
var stdout io.Writer = os.Stdout

// cfg is the resolved configuration, set before any subcommand runs.
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "captioncraft",
	Short: "Generate captions for images with a captioning backend",
	Long: `CaptionCraft sends an image to a captioning service and shows the
generated caption. Use the browser UI, an interactive shell, or caption a
single file from the command line.

Examples:
  captioncraft web
  captioncraft web --port 3001 --api-url http://gpu-box:8000
  captioncraft shell
  captioncraft caption ./dog.jpg
  captioncraft caption --pick
  captioncraft health`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "Config file (default: ./"+config.DefaultFile+" if present)")
	rootCmd.PersistentFlags().StringVar(&apiURLFlag, "api-url", "", "Captioning backend base URL (default "+captionapi.DefaultBaseURL+")")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().DurationVar(&probeTimeoutFlag, "probe-timeout", 0, "Timeout for the startup health probe (default 10s)")

	rootCmd.AddCommand(webCmd, shellCmd, captionCmd, healthCmd)
}

func main() {
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(version),
		fang.WithNotifySignal(os.Interrupt, os.Kill),
	); err != nil {
		os.Exit(1)
	}
}

// loadConfig resolves defaults, config file, environment and flags, then
// initializes logging.
func loadConfig(cmd *cobra.Command, args []string) error {
	// Load .env file if present (ignore errors)
	_ = godotenv.Load()

	loaded, err := config.Load(configFlag)
	if err != nil {
		return err
	}

	if apiURLFlag != "" {
		loaded.APIURL = apiURLFlag
	}
	if logLevelFlag != "" {
		loaded.LogLevel = logLevelFlag
	}
	if probeTimeoutFlag > 0 {
		loaded.ProbeTimeout = probeTimeoutFlag
	}
	if f := cmd.Flags().Lookup("port"); f != nil && f.Changed {
		loaded.Port = portFlag
	}
	if err := loaded.Validate(); err != nil {
		return err
	}

	cfg = loaded
	logging.Init(cfg.LogLevel)
	return nil
}

// newSession creates a session against the configured backend and starts
// the health probe.
func newSession(ctx context.Context) *session.Session {
	sess := session.New(ctx, captionapi.NewClient(cfg.APIURL), session.Options{
		ProbeTimeout:  cfg.ProbeTimeout,
		ThumbnailSize: cfg.ThumbnailSize,
	})
	sess.StartProbe()
	return sess
}

func startupLogger(name string, start time.Time) *logging.StartupLogger {
	return logging.NewStartupLogger(name).
		Version(version).
		CommitHash(commitHash).
		Backend(cfg.APIURL).
		Config("probeTimeout", cfg.ProbeTimeout.String()).
		Config("thumbnailSize", strconv.Itoa(cfg.ThumbnailSize)).
		InitDuration(time.Since(start))
}
