package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"payments-engine/internal/engine"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s <transactions.csv>\n", os.Args[0])
		fmt.Fprintln(flag.CommandLine.Output(), "Pass - to read from stdin. Output CSV goes to stdout.")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	logger, err := newLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	in, err := openInput(flag.Arg(0))
	if err != nil {
		logger.Fatal("open input", zap.Error(err))
	}
	defer in.Close()

	eng := engine.New(logger)
	if err := eng.Run(in); err != nil {
		logger.Fatal("process input", zap.Error(err))
	}
	if err := eng.WriteSnapshot(os.Stdout); err != nil {
		logger.Fatal("write output", zap.Error(err))
	}
}

// openInput opens the positional argument; "-" means stdin.
func openInput(path string) (io.ReadCloser, error) {
	if path == "-" {
		return os.Stdin, nil
	}
	return os.Open(path)
}

// newLogger builds a stderr logger. The level comes from PAYMENTS_LOG and
// defaults to error, so per-record warnings stay quiet unless asked for.
func newLogger() (*zap.Logger, error) {
	level := zap.NewAtomicLevelAt(zap.ErrorLevel)
	if env := os.Getenv("PAYMENTS_LOG"); env != "" {
		parsed, err := zap.ParseAtomicLevel(env)
		if err != nil {
			return nil, fmt.Errorf("invalid PAYMENTS_LOG %q: %w", env, err)
		}
		level = parsed
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = level
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	return cfg.Build()
}
