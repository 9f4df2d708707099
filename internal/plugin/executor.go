package plugin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"
)

// DefaultTimeout bounds a single plugin run.
const DefaultTimeout = 5 * time.Second

const waitDelay = 500 * time.Millisecond

// ErrTimeout is returned when a plugin outlives the executor timeout.
var ErrTimeout = errors.New("plugin timed out")

// Environment variables set for every plugin run, so simple shell plugins
// can act without parsing stdin.
const (
	EnvEvent    = "POSTURELAB_EVENT"
	EnvAnalysis = "POSTURELAB_ANALYSIS_ID"
	EnvScore    = "POSTURELAB_SCORE"
	EnvStatus   = "POSTURELAB_STATUS"
)

// Executor runs plugins with a timeout.
type Executor struct {
	timeout time.Duration
}

// NewExecutor creates a new Executor. A timeout <= 0 uses DefaultTimeout.
func NewExecutor(timeout time.Duration) *Executor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Executor{timeout: timeout}
}

// Execute writes req to the plugin's stdin and reads a Response from the
// last non-empty line of its stdout; earlier lines are treated as plugin
// chatter. The plugin runs in its own directory and is killed when the
// timeout or ctx expires.
func (e *Executor) Execute(ctx context.Context, plugin *Plugin, req *Request) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	reqJSON, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	cmd := exec.CommandContext(ctx, plugin.Executable)
	cmd.Dir = plugin.Path
	cmd.Stdin = bytes.NewReader(reqJSON)
	cmd.Env = append(os.Environ(), requestEnv(req)...)
	// Children of a killed shell plugin may keep stdout open.
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, fmt.Errorf("plugin %s: %w after %s", plugin.Manifest.Name, ErrTimeout, e.timeout)
	}
	if err != nil {
		if stderr.Len() > 0 {
			return nil, fmt.Errorf("plugin execution failed: %w, stderr: %s", err, stderr.String())
		}
		return nil, fmt.Errorf("plugin execution failed: %w", err)
	}

	line := lastLine(stdout.Bytes())
	var response Response
	if err := json.Unmarshal(line, &response); err != nil {
		return nil, fmt.Errorf("failed to parse plugin response: %w, stdout: %s", err, stdout.String())
	}

	return &response, nil
}

func requestEnv(req *Request) []string {
	env := []string{EnvEvent + "=" + req.Event}
	if a := req.Analysis; a != nil {
		env = append(env,
			EnvAnalysis+"="+a.ID,
			fmt.Sprintf("%s=%d", EnvScore, a.OverallScore),
			EnvStatus+"="+string(a.OverallStatus),
		)
	}
	return env
}

func lastLine(out []byte) []byte {
	lines := bytes.Split(bytes.TrimSpace(out), []byte("\n"))
	return bytes.TrimSpace(lines[len(lines)-1])
}
