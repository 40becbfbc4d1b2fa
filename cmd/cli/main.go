package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/vk/pipegrid/internal/app"
	"github.com/vk/pipegrid/internal/cli"
	"github.com/vk/pipegrid/internal/config"
	"github.com/vk/pipegrid/internal/hcl_adapter"
	"github.com/vk/pipegrid/internal/yamlloader"
)

// main is the entrypoint for the pipegrid application.
func main() {
	// Use a minimal logger until the full one is configured.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	// The real main function handles errors and exit codes.
	if err := run(os.Stdout, os.Args[1:]); err != nil {
		if exitErr, ok := err.(*cli.ExitError); ok {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run encapsulates the main application logic for easier testing and error handling.
func run(outW io.Writer, args []string) (err error) {
	appConfig, shouldExit, err := cli.Parse(args, outW)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}

	// The app panics on critical load errors, so we recover here to provide
	// a clean exit message to the user.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("a critical startup error occurred: %v", r)
		}
	}()

	pipegridApp := app.NewApp(outW, appConfig, loaderForPath(appConfig.PipelinePath))

	runErr := pipegridApp.Run(context.Background())
	if errors.Is(runErr, app.ErrPipelineFailed) {
		return &cli.ExitError{Code: 1, Message: runErr.Error()}
	}
	return runErr
}

// loaderForPath picks the document loader by file extension. Directories
// hold .hcl fragments, so they go to the HCL adapter.
func loaderForPath(path string) config.Loader {
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		return yamlloader.NewLoader()
	default:
		return hcl_adapter.NewLoader()
	}
}
