package main

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/carlog/internal/extraction"
	"github.com/zombor/carlog/internal/fleet"
	"github.com/zombor/carlog/internal/ledger"
	"github.com/zombor/carlog/internal/proxy"
	"github.com/zombor/carlog/internal/server"
	"github.com/zombor/carlog/internal/settings"
	"github.com/zombor/carlog/internal/storage"
	"github.com/zombor/carlog/internal/webhook"
	"github.com/zombor/carlog/internal/workflow"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	// A .env file is optional; flags and real env vars win.
	godotenv.Load()

	fs := ff.NewFlagSet("carlog")
	var (
		port        = fs.IntLong("port", 8080, "HTTP server port")
		dbPath      = fs.StringLong("db", "carlog.db", "Database file path")
		geminiKey   = fs.StringLong("gemini-key", "", "Google Gemini API key (or set CARLOG_GEMINI_KEY env var)")
		geminiModel = fs.StringLong("gemini-model", "gemini-2.5-flash", "Google Gemini model name")
		extractURL  = fs.StringLong("extract-url", "", "External extraction proxy URL (defaults to the built-in /api/extract backend)")
		showVersion = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("CARLOG"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	serverKey := *geminiKey
	if serverKey == "" {
		serverKey = os.Getenv("GEMINI_API_KEY")
	}

	slog.Info("Initializing database...")
	db, err := storage.NewBoltDB(*dbPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	fleetStore := fleet.NewStore(db)
	receiptLedger := ledger.NewLedger(db)
	settingsStore := settings.NewStore(db)

	picker := extraction.StrategyPicker{
		ExtractURL: *extractURL,
		ServerKey:  serverKey,
		Model:      *geminiModel,
	}

	session := workflow.NewSession(fleetStore, receiptLedger, settingsStore, picker, webhook.NewHTTPPoster())

	extractHandler := proxy.NewHandler(
		[]string{serverKey},
		proxy.NewDirectFactory(*geminiModel),
	)

	srv := server.NewServer(session, fleetStore, receiptLedger, settingsStore, extractHandler)

	addr := fmt.Sprintf(":%d", *port)
	go func() {
		if err := srv.Start(addr); err != nil {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr), "version", version)
	if serverKey == "" {
		slog.Warn("No Gemini API key configured; extraction requires a personal key or an external proxy")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down...")
}
