// @title Deafine API
// @version 0.2.0
// @description Real-time speech transcription with speaker diarization, session summaries and name alerts.
// @host localhost:8080
// @BasePath /api
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/AnjaneyaBhardwaj/Deafine/internal/app"
	"github.com/AnjaneyaBhardwaj/Deafine/internal/bootstrap"
	"github.com/AnjaneyaBhardwaj/Deafine/internal/domain/batch"
	"github.com/AnjaneyaBhardwaj/Deafine/internal/platform/config"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "deafine-server: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "deafine-server",
		Short:         "Real-time audio transcription for deaf and hard-of-hearing users",
		Version:       config.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"path to the YAML config (defaults to $DEAFINE_CONFIG, then .config.yaml)")

	root.AddCommand(newServeCommand(&configPath))
	root.AddCommand(newLiveCommand(&configPath))
	root.AddCommand(newTranscribeCommand(&configPath))
	root.AddCommand(newVersionCommand())
	return root
}

func newServeCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the websocket and REST transcription service",
		RunE: func(cmd *cobra.Command, _ []string) error {
			// The logger is not up yet; echo the way it will log.
			fmt.Printf("[%s] [INFO] [BOOT] starting deafine-server v%s...\n",
				time.Now().Format("2006-01-02 15:04:05.000"), config.Version)
			return bootstrap.Run(cmd.Context(), *configPath)
		},
	}
}

func newLiveCommand(configPath *string) *cobra.Command {
	var (
		record   bool
		userName string
	)
	cmd := &cobra.Command{
		Use:   "live",
		Short: "Caption the microphone in the terminal",
		Long: `Caption the default microphone in the terminal until Ctrl+C,
then print the session summary. ELEVEN_API_KEY must be set in the
environment or .env.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := bootstrap.LoadConfigAndLogger(*configPath)
			if err != nil {
				return err
			}
			defer logger.Close()
			if err := config.RequireASRKey(cfg); err != nil {
				return err
			}

			recording := record || cfg.Recording.Enabled
			fmt.Println("Starting Deafine live transcription...")
			fmt.Printf("   Recording: %s\n\n", onOff(recording))

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			live, err := app.NewLive(app.LiveConfig{
				Config:      cfg,
				Logger:      logger,
				NewProvider: bootstrap.NewProviderFactory(cfg, logger),
				NewGate:     bootstrap.NewGateFactory(cfg, logger),
				Engine:      bootstrap.NewSummaryEngine(cfg, logger),
				UserName:    userName,
				Record:      recording,
			})
			if err != nil {
				return err
			}
			return live.Run(ctx)
		},
	}
	cmd.Flags().BoolVar(&record, "record", false, "save the session audio, transcript and summary")
	cmd.Flags().StringVar(&userName, "name", "", "watch for this name and raise haptic alerts")
	return cmd
}

func newTranscribeCommand(configPath *string) *cobra.Command {
	var (
		chunkDuration float64
		numSpeakers   int
		withSummary   bool
	)
	cmd := &cobra.Command{
		Use:   "transcribe <audio-file>",
		Short: "Transcribe a WAV or MP3 file and print the transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := bootstrap.LoadConfigAndLogger(*configPath)
			if err != nil {
				return err
			}
			defer logger.Close()
			if err := config.RequireASRKey(cfg); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			transcriber, err := app.NewFileTranscriber(app.FileConfig{
				Config:      cfg,
				Logger:      logger,
				NewProvider: bootstrap.NewProviderFactory(cfg, logger),
				Engine:      bootstrap.NewSummaryEngine(cfg, logger),
			})
			if err != nil {
				return err
			}
			defer transcriber.Close(ctx)

			_, err = transcriber.Run(ctx, args[0], batch.Options{
				ChunkDuration:   chunkDuration,
				NumSpeakers:     numSpeakers,
				GenerateSummary: withSummary,
			})
			return err
		},
	}
	cmd.Flags().Float64Var(&chunkDuration, "chunk-duration", 0,
		"seconds of audio per transcription window (0 uses the configured value)")
	cmd.Flags().IntVar(&numSpeakers, "num-speakers", 0,
		"expected speaker count (0 uses the configured value)")
	cmd.Flags().BoolVar(&withSummary, "summary", true, "generate a session summary")
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the Deafine version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "Deafine v%s\n", config.Version)
		},
	}
}

func onOff(enabled bool) string {
	if enabled {
		return "enabled"
	}
	return "disabled"
}
