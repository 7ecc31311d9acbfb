package credentials

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"
)

const (
	dirPermissions  = 0700
	filePermissions = 0600
)

// Source tells where a token was found.
type Source string

const (
	SourceNone        Source = "none"
	SourceEnvironment Source = "environment"
	SourceFile        Source = "file"
	SourcePrompt      Source = "prompt"
)

// Options controls token resolution.
type Options struct {
	// Token is used as-is when not empty.
	Token string

	// File is the credentials file path.
	File string

	// Interactive allows prompting when In is a terminal.
	Interactive bool

	// In and Out default to os.Stdin and os.Stdout.
	In  io.Reader
	Out io.Writer

	// IsTerminal overrides terminal detection on In.
	IsTerminal func() bool
}

// Resolve returns the first token found.
//
// Returns:
//   - string: The token
//   - Source: Where the token came from
//   - error: ErrNoToken when no source has one, or an I/O error
func Resolve(ctx context.Context, opts Options) (string, Source, error) {
	if token := strings.TrimSpace(opts.Token); token != "" {
		return token, SourceEnvironment, nil
	}

	if opts.File != "" {
		token, err := ReadFile(opts.File)
		switch {
		case err == nil && token != "":
			return token, SourceFile, nil
		case err != nil && !errors.Is(err, fs.ErrNotExist):
			return "", SourceNone, err
		}
	}

	if !opts.Interactive || !opts.isTerminal() {
		return "", SourceNone, ErrNoToken
	}

	token, err := prompt(ctx, opts.input(), opts.output())
	if err != nil {
		return "", SourceNone, err
	}

	if opts.File != "" {
		if err := WriteFile(opts.File, token); err != nil {
			return "", SourceNone, err
		}
	}
	return token, SourcePrompt, nil
}

// ReadFile returns the token stored in path, or "" if the file has none.
func ReadFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening credentials file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		return parseLine(line), nil
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("reading credentials file: %w", err)
	}
	return "", nil
}

// parseLine strips an optional token key from a credentials line.
func parseLine(line string) string {
	for _, sep := range []string{"=", ":"} {
		key, value, found := strings.Cut(line, sep)
		if !found {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "token", "tibber_token":
			return strings.Trim(strings.TrimSpace(value), `"'`)
		}
	}
	return line
}

// WriteFile stores token in path, creating the directory if needed.
func WriteFile(path, token string) error {
	if err := os.MkdirAll(filepath.Dir(path), dirPermissions); err != nil {
		return fmt.Errorf("creating credentials directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(token+"\n"), filePermissions); err != nil {
		return fmt.Errorf("writing credentials file: %w", err)
	}
	return nil
}

func prompt(ctx context.Context, in io.Reader, out io.Writer) (string, error) {
	fmt.Fprint(out, "Tibber access token: ") //nolint:errcheck // prompt is best effort

	type result struct {
		line string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		line, err := bufio.NewReader(in).ReadString('\n')
		done <- result{line: line, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-done:
		if r.err != nil && !errors.Is(r.err, io.EOF) {
			return "", fmt.Errorf("reading token: %w", r.err)
		}
		token := strings.TrimSpace(r.line)
		if token == "" {
			return "", ErrEmptyInput
		}
		return token, nil
	}
}

func (o Options) input() io.Reader {
	if o.In != nil {
		return o.In
	}
	return os.Stdin
}

func (o Options) output() io.Writer {
	if o.Out != nil {
		return o.Out
	}
	return os.Stdout
}

func (o Options) isTerminal() bool {
	if o.IsTerminal != nil {
		return o.IsTerminal()
	}
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
