package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v7/decor"

	"github.com/caffeineduck/fetchimg"
	"github.com/caffeineduck/fetchimg/fetch"
)

var version = "0.1.0"

const (
	exitOK           = 0
	exitError        = 1
	exitInvalidInput = 2
	exitNetwork      = 3
	exitFileSystem   = 4
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetchimg [url]",
		Short: "Download an image into a local folder",
		Long: `fetchimg - Download one image over HTTP and save it locally.

The URL is taken from the argument, or prompted for when none is given.
Images are saved into Fetched_Images/ under the working directory. The
filename comes from the URL, or from the Content-Type header when the URL
has none, and an existing file is never overwritten: cat.jpg becomes
cat_1.jpg, cat_2.jpg and so on.

Exit codes: 0 saved, 2 invalid URL, 3 network error, 4 filesystem error.`,
		Args:          cobra.MaximumNArgs(1),
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runFetch,
	}

	addFetchFlags(cmd)
	return cmd
}

func Execute() {
	cmd := newRootCmd()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

func addFetchFlags(cmd *cobra.Command) {
	maxSize := byteSize(fetch.DefaultMaxBodySize)

	cmd.Flags().String("dir", fetchimg.DefaultDir, "Directory to save images into")
	cmd.Flags().Duration("timeout", fetch.DefaultRequestTimeout, "HTTP request timeout")
	cmd.Flags().Var(&maxSize, "max-size", "Max image size (e.g. 512KB, 64MB)")
	cmd.Flags().String("user-agent", fetch.DefaultUserAgent, "User-Agent header to send")
	cmd.Flags().String("history", "", "Prompt history file path (default: ~/.fetchimg_history)")
	cmd.Flags().BoolP("quiet", "q", false, "Do not show a progress bar")
	cmd.Flags().BoolP("verbose", "v", false, "Log each step to stderr")
}

func buildConfig(cmd *cobra.Command) fetchimg.Config {
	dir, _ := cmd.Flags().GetString("dir")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	userAgent, _ := cmd.Flags().GetString("user-agent")
	quiet, _ := cmd.Flags().GetBool("quiet")

	cfg := fetchimg.DefaultConfig()
	cfg.Dir = dir
	cfg.HTTP.RequestTimeout = timeout
	cfg.HTTP.UserAgent = userAgent
	if size, ok := cmd.Flags().Lookup("max-size").Value.(*byteSize); ok {
		cfg.HTTP.MaxBodySize = int64(*size)
	}
	if !quiet && isTerminal(cmd.ErrOrStderr()) {
		cfg.HTTP.Progress = cmd.ErrOrStderr()
	}
	return cfg
}

func runFetch(cmd *cobra.Command, args []string) error {
	verbose, _ := cmd.Flags().GetBool("verbose")
	historyFile, _ := cmd.Flags().GetString("history")

	logger := newLogger(cmd.ErrOrStderr(), verbose)
	ctx := logger.WithContext(cmd.Context())

	var rawURL string
	if len(args) > 0 {
		rawURL = args[0]
	} else {
		line, err := promptURL(cmd, historyFile)
		if errors.Is(err, errInterrupted) {
			fmt.Fprintln(cmd.OutOrStdout(), "\nOperation interrupted. Goodbye.")
			return nil
		}
		if err != nil {
			return err
		}
		rawURL = strings.TrimSpace(line)
		if rawURL == "" {
			fmt.Fprintln(cmd.OutOrStdout(), "No URL provided. Exiting.")
			return nil
		}
	}

	result, err := fetchimg.Run(ctx, rawURL, buildConfig(cmd))
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Saved %s (%s)\n", result.Path, describe(result))
	return nil
}

func describe(r fetchimg.Result) string {
	s := fmt.Sprintf("% .1f", decor.SizeB1024(r.Size))
	if r.Width > 0 && r.Height > 0 {
		s += fmt.Sprintf(", %dx%d %s", r.Width, r.Height, r.Format)
	}
	return s
}

func exitCode(err error) int {
	switch fetchimg.KindOf(err) {
	case 0:
		if err == nil {
			return exitOK
		}
		return exitError
	case fetchimg.KindInvalidInput:
		return exitInvalidInput
	case fetchimg.KindNetwork:
		return exitNetwork
	case fetchimg.KindFileSystem:
		return exitFileSystem
	default:
		return exitError
	}
}

func newLogger(w io.Writer, verbose bool) zerolog.Logger {
	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	out := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.TimeOnly,
		NoColor:    !isTerminal(w),
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

func isTerminal(w any) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
