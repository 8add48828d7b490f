package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"syscall"
	"time"
)

const (
	defaultShellTermGrace = 500 * time.Millisecond
	defaultShellMaxBytes  = 4 << 20
)

var placeholderPattern = regexp.MustCompile(`\{[a-z]+\}`)

// Shell runs an external program for each document. The request is written
// to stdin as JSON and stdout is the document. In args, {json} is replaced by
// the same JSON and {dir} by the directory.
type Shell struct {
	program   string
	args      []string
	timeout   time.Duration
	termGrace time.Duration
	maxBytes  int
}

func NewShell(program string, args []string, timeout time.Duration) (*Shell, error) {
	if program == "" {
		return nil, errors.New("generator shell: missing program")
	}
	for _, a := range args {
		for _, m := range placeholderPattern.FindAllString(a, -1) {
			if m != "{json}" && m != "{dir}" {
				return nil, fmt.Errorf("generator shell: invalid placeholder %s", m)
			}
		}
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Shell{
		program:   program,
		args:      append([]string(nil), args...),
		timeout:   timeout,
		termGrace: defaultShellTermGrace,
		maxBytes:  defaultShellMaxBytes,
	}, nil
}

type shellPayload struct {
	Dir         string                `json:"directory_path"`
	Query       string                `json:"query"`
	Existing    string                `json:"existing"`
	HasExisting bool                  `json:"has_existing"`
	Changed     []string              `json:"changed_files"`
	Current     []string              `json:"current_files"`
	Changes     map[string]shellDelta `json:"changes"`
	Prompt      string                `json:"prompt"`
}

type shellDelta struct {
	Before string `json:"before"`
	After  string `json:"after"`
}

func payloadFor(req Request) shellPayload {
	p := shellPayload{
		Dir:         req.Context.Dir,
		Query:       req.Query,
		Existing:    req.Existing,
		HasExisting: req.HasExisting,
		Changed:     []string{},
		Current:     []string{},
		Changes:     map[string]shellDelta{},
		Prompt:      Prompt(req),
	}
	for _, f := range req.Context.Changed {
		p.Changed = append(p.Changed, f.Path)
	}
	for _, f := range req.Context.Current {
		p.Current = append(p.Current, f.Path)
	}
	for path, ch := range req.Changes {
		p.Changes[path] = shellDelta{Before: ch.Before, After: ch.After}
	}
	return p
}

func (g *Shell) Generate(ctx context.Context, req Request) (string, error) {
	payload, err := json.Marshal(payloadFor(req))
	if err != nil {
		return "", fmt.Errorf("generator shell: %w", err)
	}
	args := make([]string, len(g.args))
	for i, a := range g.args {
		a = strings.ReplaceAll(a, "{json}", string(payload))
		args[i] = strings.ReplaceAll(a, "{dir}", req.Context.Dir)
	}

	cmd := exec.Command(g.program, args...)
	cmd.Stdin = bytes.NewReader(payload)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	stdout := &limitedBuffer{max: g.maxBytes}
	stderr := &limitedBuffer{max: 4096}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		var ee *exec.Error
		if errors.As(err, &ee) {
			return "", fmt.Errorf("generator shell: program %s not found", g.program)
		}
		return "", fmt.Errorf("generator shell: program %s start failed", g.program)
	}
	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	timer := time.NewTimer(g.timeout)
	defer timer.Stop()
	var runErr error
	stopped := ""
	select {
	case runErr = <-done:
	case <-timer.C:
		stopped = "timeout"
		runErr = g.terminate(cmd, done)
	case <-ctx.Done():
		stopped = "canceled"
		runErr = g.terminate(cmd, done)
	}
	if stopped != "" {
		return "", fmt.Errorf("generator shell: %s", stopped)
	}
	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			return "", fmt.Errorf("generator shell: program %s exited with code %d: %s", g.program, exitErr.ExitCode(), strings.TrimSpace(stderr.String()))
		}
		return "", fmt.Errorf("generator shell: program %s execution failed", g.program)
	}
	if stdout.truncated {
		return "", fmt.Errorf("generator shell: output exceeds %d bytes", g.maxBytes)
	}
	return stdout.String(), nil
}

// terminate sends SIGTERM to the process group, then SIGKILL after the grace
// period, and returns the Wait result.
func (g *Shell) terminate(cmd *exec.Cmd, done <-chan error) error {
	signalGroup(cmd, syscall.SIGTERM)
	grace := time.NewTimer(g.termGrace)
	defer grace.Stop()
	select {
	case err := <-done:
		return err
	case <-grace.C:
		signalGroup(cmd, syscall.SIGKILL)
		return <-done
	}
}

func signalGroup(cmd *exec.Cmd, sig syscall.Signal) {
	if cmd == nil || cmd.Process == nil {
		return
	}
	if err := syscall.Kill(-cmd.Process.Pid, sig); err != nil {
		_ = cmd.Process.Signal(sig)
	}
}

type limitedBuffer struct {
	max       int
	buf       bytes.Buffer
	truncated bool
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	n := len(p)
	remain := b.max - b.buf.Len()
	if remain > 0 {
		if remain > len(p) {
			remain = len(p)
		}
		_, _ = b.buf.Write(p[:remain])
	}
	if len(p) > remain {
		b.truncated = true
	}
	return n, nil
}

func (b *limitedBuffer) String() string { return b.buf.String() }
