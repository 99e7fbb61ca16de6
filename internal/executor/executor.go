// SPDX-License-Identifier: Apache-2.0

// Package executor runs ansible-playbook for a procedure and captures the
// raw output that telemetry ingestion later scans. When the binary is not
// installed the executor degrades to dry mode, echoing the fully resolved
// invocation instead of running it.
package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/NaokiMiyanaga/mcp-ansible-wrapper/internal/core/models"
)

// ModeLive and ModeDry are the values reported in RunResult.Mode.
const (
	ModeLive = "live"
	ModeDry  = "dry"
)

// Executor builds and runs ansible-playbook invocations.
type Executor struct {
	binary    string
	inventory string
	timeout   time.Duration
	forceDry  bool
	logger    *zap.Logger
}

// New creates an executor around the given ansible-playbook binary. An
// empty binary falls back to "ansible-playbook" on PATH.
func New(binary, inventory string, timeout time.Duration, logger *zap.Logger) *Executor {
	if binary == "" {
		binary = "ansible-playbook"
	}
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{
		binary:    binary,
		inventory: inventory,
		timeout:   timeout,
		logger:    logger,
	}
}

// WithDryMode forces dry mode regardless of binary availability.
func (e *Executor) WithDryMode(dry bool) *Executor {
	e.forceDry = dry
	return e
}

// Dry reports whether runs will execute in dry mode.
func (e *Executor) Dry() bool {
	if e.forceDry {
		return true
	}
	_, err := exec.LookPath(e.binary)
	return err != nil
}

// Run executes the playbook with vars passed as --extra-vars JSON. A
// non-zero exit is not an error: it is reported in the result so callers
// can return the output alongside the failure. Errors are reserved for
// invocations that could not be attempted at all.
func (e *Executor) Run(ctx context.Context, playbook string, vars map[string]interface{}, limit string) (models.RunResult, error) {
	result := models.RunResult{
		Mode:     ModeLive,
		Playbook: playbook,
		Vars:     vars,
	}

	args := []string{playbook}
	if e.inventory != "" {
		args = append(args, "-i", e.inventory)
	}
	if limit != "" {
		args = append(args, "-l", limit)
	}
	if len(vars) > 0 {
		extra, err := json.Marshal(vars)
		if err != nil {
			return result, fmt.Errorf("error encoding extra vars: %w", err)
		}
		args = append(args, "--extra-vars", string(extra))
	}

	if e.Dry() {
		result.Mode = ModeDry
		result.OK = true
		result.Stdout = fmt.Sprintf("[dry] %s %s", e.binary, strings.Join(args, " "))
		return result, nil
	}

	runCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, e.binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	e.logger.Info("running playbook",
		zap.String("playbook", playbook),
		zap.String("limit", limit))

	start := time.Now()
	err := cmd.Run()
	result.ElapsedSec = time.Since(start).Seconds()
	result.Stdout = stdout.String()
	result.Stderr = stderr.String()

	if err == nil {
		result.OK = true
		return result, nil
	}

	if exitErr, ok := err.(*exec.ExitError); ok {
		result.ExitCode = exitErr.ExitCode()
		if runCtx.Err() == context.DeadlineExceeded {
			result.Stderr = strings.TrimSpace(result.Stderr + "\nplaybook timed out")
		}
		return result, nil
	}

	return result, fmt.Errorf("error running %s: %w", e.binary, err)
}
