// Package repl runs dcadmin commands interactively against one long-lived
// session, so the connection and the resource caches survive between commands.
package repl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/chzyer/readline"
)

// ErrExit is returned by Handle when the operator asks to leave.
var ErrExit = errors.New("exit")

// Executor runs one command line, already split into arguments.
type Executor func(ctx context.Context, args []string) error

// Options configures a REPL.
type Options struct {
	// Prompt is evaluated before every line.
	Prompt      func() string
	HistoryFile string
	Completer   readline.AutoCompleter

	Stdin  io.ReadCloser
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

// REPL reads lines and hands them to an Executor.
type REPL struct {
	exec   Executor
	opts   Options
	logger *slog.Logger
}

// New creates a REPL.
func New(exec Executor, opts Options) *REPL {
	if opts.Prompt == nil {
		opts.Prompt = func() string { return "dcadmin> " }
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	return &REPL{exec: exec, opts: opts, logger: opts.Logger}
}

// Run reads lines until EOF, "exit" or ctx is done.
func (r *REPL) Run(ctx context.Context) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:            r.opts.Prompt(),
		HistoryFile:       r.opts.HistoryFile,
		AutoComplete:      r.opts.Completer,
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
		Stdin:             r.opts.Stdin,
		Stdout:            r.opts.Stdout,
		Stderr:            r.opts.Stderr,
	})
	if err != nil {
		return fmt.Errorf("failed to create readline instance: %w", err)
	}
	defer rl.Close()

	for {
		if ctx.Err() != nil {
			return nil
		}
		rl.SetPrompt(r.opts.Prompt())

		line, err := rl.Readline()
		switch {
		case errors.Is(err, readline.ErrInterrupt):
			continue
		case errors.Is(err, io.EOF):
			return nil
		case err != nil:
			return fmt.Errorf("readline error: %w", err)
		}

		if err := r.Handle(ctx, line); err != nil {
			if errors.Is(err, ErrExit) {
				return nil
			}
			// Command errors were already rendered by the executor.
			r.logger.Debug("command failed", "line", line, "error", err)
		}
	}
}

// Handle runs one line. Blank lines are ignored; "exit" and "quit" return ErrExit.
func (r *REPL) Handle(ctx context.Context, line string) error {
	args, err := SplitArgs(line)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return nil
	}
	switch args[0] {
	case "exit", "quit":
		return ErrExit
	}
	return r.exec(ctx, args)
}

// SplitArgs splits a line like a POSIX shell would for plain words, single
// and double quotes and backslash escapes. Globs and variables are not expanded.
func SplitArgs(line string) ([]string, error) {
	var (
		args    []string
		current strings.Builder
		inWord  bool
		quote   rune
		escaped bool
	)
	for _, c := range line {
		switch {
		case escaped:
			current.WriteRune(c)
			escaped = false
		case c == '\\' && quote != '\'':
			escaped = true
			inWord = true
		case quote != 0:
			if c == quote {
				quote = 0
			} else {
				current.WriteRune(c)
			}
		case c == '\'' || c == '"':
			quote = c
			inWord = true
		case c == ' ' || c == '\t':
			if inWord {
				args = append(args, current.String())
				current.Reset()
				inWord = false
			}
		default:
			current.WriteRune(c)
			inWord = true
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("unterminated %c quote", quote)
	}
	if escaped {
		return nil, errors.New("trailing backslash")
	}
	if inWord {
		args = append(args, current.String())
	}
	return args, nil
}
