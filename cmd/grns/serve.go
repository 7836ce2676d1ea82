package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/untoldecay/grns/internal/config"
	"github.com/untoldecay/grns/internal/server"
	"github.com/untoldecay/grns/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the task server",
	Long: `Run the HTTP task server against the project database. The database is
guarded by a file lock so two servers never share one store. Binding to a
non-loopback address requires GRNS_ALLOW_REMOTE=1.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dbPath := config.DBPath()
		if flagDB, _ := cmd.Flags().GetString("db"); flagDB != "" {
			dbPath = flagDB
		}
		if dir := filepath.Dir(dbPath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
		}

		lock := flock.New(dbPath + ".lock")
		lockCtx, cancel := context.WithTimeout(cmd.Context(), config.GetDuration("lock-timeout"))
		defer cancel()
		locked, err := lock.TryLockContext(lockCtx, 250*time.Millisecond)
		if err != nil || !locked {
			fatalf("database %s is locked by another server", dbPath)
		}
		defer func() { _ = lock.Unlock() }()

		logger := buildLogger(cmd)

		st, err := store.Open(dbPath)
		if err != nil {
			return err
		}
		defer st.Close()

		if watchDir, _ := cmd.Flags().GetString("watch-import"); watchDir != "" {
			go watchImportDir(cmd.Context(), watchDir, st, logger)
		}

		srv, err := server.New(server.Options{
			Addr:          config.GetString("addr"),
			Store:         st,
			ProjectPrefix: config.GetString("prefix"),
			Logger:        logger,
		})
		if err != nil {
			return err
		}
		logger.Info("store ready", slog.String("db", dbPath))
		return srv.ListenAndServe(cmd.Context())
	},
}

// buildLogger wires slog to stderr, and to a size-rotated file when
// --log-file (or GRNS_LOG_FILE) is set.
func buildLogger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(config.GetString("log-level")) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	logFile, _ := cmd.Flags().GetString("log-file")
	if logFile == "" {
		logFile = config.GetString("log-file")
	}

	var w io.Writer = os.Stderr
	if logFile != "" {
		w = io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    10, // MB
			MaxBackups: 3,
			MaxAge:     14, // days
			Compress:   true,
		})
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func init() {
	serveCmd.Flags().String("db", "", "Database path (default: .grns/grns.db)")
	serveCmd.Flags().String("log-file", "", "Also log to this file with rotation")
	serveCmd.Flags().String("watch-import", "", "Watch a directory and import NDJSON files dropped into it")
	rootCmd.AddCommand(serveCmd)
}
