package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/fpang/captioncraft/internal/cli"
	"github.com/fpang/captioncraft/internal/webui"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	portFlag     int
	noPickerFlag bool
)

var webCmd = &cobra.Command{
	Use:   "web",
	Short: "Serve the caption UI in the browser",
	Long: `Web starts a local web server with a page for dropping an image and
generating its caption. The page updates itself while the backend probe
or a caption request is pending.`,
	Args: cobra.NoArgs,
	RunE: runWeb,
}

func init() {
	webCmd.Flags().IntVar(&portFlag, "port", 3000, "Port to listen on")
	webCmd.Flags().BoolVar(&noPickerFlag, "no-picker", false, "Disable the native file picker button")
}

func runWeb(cmd *cobra.Command, args []string) error {
	start := time.Now()
	ctx := cmd.Context()

	sess := newSession(ctx)
	defer sess.Close()

	opts := webui.Options{}
	if !noPickerFlag {
		opts.Picker = cli.PickImage
	}
	handler, err := webui.NewServer(sess, opts)
	if err != nil {
		return fmt.Errorf("build web UI: %w", err)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf("localhost:%d", cfg.Port),
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		<-ctx.Done()
		log.Info().Msg("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	startupLogger("web", start).
		Feature("nativePicker", opts.Picker != nil).
		Config("port", strconv.Itoa(cfg.Port)).
		Log()
	fmt.Printf("\n  CaptionCraft UI: http://localhost:%d\n\n", cfg.Port)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}
