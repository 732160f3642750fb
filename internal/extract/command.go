// Package extract runs an external tool to read the character name out of
// a save payload. Save files are never parsed in-process.
package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"savekeep/internal/config"
	"savekeep/internal/sk"
)

// SavePlaceholder in an argument is replaced by the payload path.
const SavePlaceholder = "{save}"

// ErrNoName is returned when the tool succeeds but prints nothing.
var ErrNoName = errors.New("extractor printed no name")

// CommandExtractor implements sk.NameExtractor by running a command and
// reading the name from its trimmed stdout.
type CommandExtractor struct {
	command string
	args    []string
	timeout time.Duration
}

// NewCommandExtractor returns nil when no command is configured, which the
// service treats as "never detect".
func NewCommandExtractor(cfg config.ExtractorConfig) *CommandExtractor {
	if cfg.Command == "" {
		return nil
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = config.DefaultExtractorTimeout * time.Second
	}
	return &CommandExtractor{command: cfg.Command, args: cfg.Args, timeout: timeout}
}

func (e *CommandExtractor) ExtractCharacterName(ctx context.Context, savePath string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, e.command, buildArgs(e.args, savePath)...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// Children of the tool may hold the output pipes open after a kill.
	cmd.WaitDelay = time.Second

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("extractor timed out after %s: %w", e.timeout, ctx.Err())
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("running extractor: %w: %s", err, msg)
		}
		return "", fmt.Errorf("running extractor: %w", err)
	}

	name := strings.TrimSpace(stdout.String())
	if name == "" {
		return "", ErrNoName
	}
	return name, nil
}

func buildArgs(args []string, savePath string) []string {
	out := make([]string, 0, len(args)+1)
	substituted := false
	for _, a := range args {
		if strings.Contains(a, SavePlaceholder) {
			a = strings.ReplaceAll(a, SavePlaceholder, savePath)
			substituted = true
		}
		out = append(out, a)
	}
	if !substituted {
		out = append(out, savePath)
	}
	return out
}

var _ sk.NameExtractor = (*CommandExtractor)(nil)
