package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
)

const promptText = "Enter the image URL (or press Enter to quit): "

var errInterrupted = errors.New("interrupted")

// promptURL asks for a single URL. Terminals get line editing and history;
// anything else is read as a plain line. EOF counts as an empty answer.
func promptURL(cmd *cobra.Command, historyFile string) (string, error) {
	if in, ok := cmd.InOrStdin().(*os.File); ok && isTerminal(in) {
		return readlinePrompt(historyFile)
	}

	fmt.Fprint(cmd.OutOrStdout(), promptText)
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("error reading input: %w", err)
	}
	if err == io.EOF {
		fmt.Fprintln(cmd.OutOrStdout())
	}
	return line, nil
}

func readlinePrompt(historyFile string) (string, error) {
	if historyFile == "" {
		home, _ := os.UserHomeDir()
		historyFile = filepath.Join(home, ".fetchimg_history")
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:            promptText,
		HistoryFile:       historyFile,
		HistoryLimit:      100,
		InterruptPrompt:   "^C",
		HistorySearchFold: true,
	})
	if err != nil {
		return "", fmt.Errorf("error initializing readline: %w", err)
	}
	defer rl.Close()

	line, err := rl.Readline()
	switch {
	case err == readline.ErrInterrupt:
		return "", errInterrupted
	case err == io.EOF:
		return "", nil
	case err != nil:
		return "", fmt.Errorf("error reading input: %w", err)
	}
	return line, nil
}
