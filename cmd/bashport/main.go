package main

import (
	"flag"
	"io"
	"log"
	"os"

	"github.com/rs/zerolog"
	"golang.org/x/term"
)

var (
	configPath = flag.String("config", "config.json", "Path to configuration file")
	oneShot    = flag.String("c", "", "Execute a single command and exit")
	testMode   = flag.Bool("test", false, "Log commands without executing them")
	jsonSchema = flag.Bool("json", false, "Print the tool definitions as JSON and exit")
	debugMode  = flag.Bool("d", false, "Enable debug mode")
	logFile    = flag.String("log-file", "", "Log file path (debug logs go to the console by default)")
)

func main() {
	flag.Parse()

	logger := initLogger(*debugMode, *logFile)
	logger.Info().Msg("Bashport starting")

	app, err := buildApp(*configPath, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Startup failed")
		os.Exit(1)
	}
	defer app.Close()

	if *testMode {
		app.host.SetTestMode(true)
	}

	if *jsonSchema {
		os.Exit(printToolSchema(app))
	}

	if *oneShot != "" {
		os.Exit(runOneShot(app, *oneShot))
	}

	// Piped input runs each line as a command, a terminal gets the REPL.
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		os.Exit(runBatchMode(app))
	}

	runREPL(app)
}

func initLogger(debug bool, logFilePath string) zerolog.Logger {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	var output io.Writer
	switch {
	case logFilePath != "":
		file, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			log.Fatalf("Failed to open log file: %v", err)
		}
		output = file
	case debug:
		output = zerolog.ConsoleWriter{Out: os.Stderr}
	default:
		output = io.Discard
	}

	return zerolog.New(output).With().Timestamp().Logger()
}
