package docker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"
)

var serverVersionRe = regexp.MustCompile(`(\d+\.\d+\.\d+)`)

// CLI drives the engine through the docker command-line client.
type CLI struct {
	binary string
	logger *zap.Logger
}

// NewCLI returns an engine that shells out to binary ("docker" when empty).
func NewCLI(binary string, logger *zap.Logger) *CLI {
	if binary == "" {
		binary = "docker"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CLI{binary: binary, logger: logger}
}

// run executes a docker subcommand and returns its trimmed stdout.
// Arguments are not logged since they can carry credentials.
func (c *CLI) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, c.binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	c.logger.Debug("docker", zap.String("subcommand", strings.Join(subcommand(args), " ")))
	if err := cmd.Run(); err != nil {
		return "", wrapError(err, stderr.String(), args)
	}
	return strings.TrimSpace(stdout.String()), nil
}

// wrapError maps docker's stderr onto the package errors where possible.
func wrapError(err error, stderr string, args []string) error {
	stderr = strings.TrimSpace(stderr)
	lower := strings.ToLower(stderr)

	switch {
	case strings.Contains(lower, "no such container"):
		return ErrNoSuchContainer
	case strings.Contains(lower, "no such volume"):
		return ErrNoSuchVolume
	case strings.Contains(lower, "is not running"):
		return ErrNotRunning
	}

	cmd := strings.Join(subcommand(args), " ")
	if stderr != "" {
		return fmt.Errorf("docker %s: %s", cmd, stderr)
	}
	return fmt.Errorf("docker %s: %w", cmd, err)
}

// subcommand returns the leading non-flag words of args, e.g. ["volume", "rm"].
func subcommand(args []string) []string {
	var out []string
	for _, a := range args {
		if strings.HasPrefix(a, "-") || len(out) == 2 {
			break
		}
		out = append(out, a)
	}
	return out
}

// GetContainer implements Engine.
func (c *CLI) GetContainer(ctx context.Context, name string) (Container, error) {
	_, err := c.run(ctx, "container", "inspect", "--format", "{{.Name}}", name)
	if errors.Is(err, ErrNoSuchContainer) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cliContainer{cli: c, name: name}, nil
}

// CreateContainer implements Engine. The environment is handed to docker
// through a temporary env file readable only by the current user.
func (c *CLI) CreateContainer(ctx context.Context, spec ContainerSpec) (Container, error) {
	envFile := ""
	if len(spec.Env) > 0 {
		path, err := writeEnvFile(spec.Env)
		if err != nil {
			return nil, fmt.Errorf("creating container %s: %w", spec.Name, err)
		}
		defer os.Remove(path)
		envFile = path
	}

	if _, err := c.run(ctx, createArgs(spec, envFile)...); err != nil {
		return nil, fmt.Errorf("creating container %s: %w", spec.Name, err)
	}
	c.logger.Debug("container created", zap.String("name", spec.Name), zap.String("image", spec.Image))
	return &cliContainer{cli: c, name: spec.Name}, nil
}

// createArgs builds the "docker create" arguments.
func createArgs(spec ContainerSpec, envFile string) []string {
	args := []string{"create", "--name", spec.Name}
	if spec.Restart != "" {
		args = append(args, "--restart", spec.Restart)
	}
	if spec.Network != "" {
		args = append(args, "--network", spec.Network)
	}
	if envFile != "" {
		args = append(args, "--env-file", envFile)
	}
	for _, v := range spec.Volumes {
		args = append(args, "-v", v)
	}
	return append(args, spec.Image)
}

// writeEnvFile writes env as KEY=VALUE lines, sorted by key, to a new 0600
// temp file and returns its path.
func writeEnvFile(env map[string]string) (string, error) {
	keys := sortedKeys(env)
	var b strings.Builder
	for _, k := range keys {
		if strings.ContainsAny(env[k], "\r\n") {
			return "", fmt.Errorf("environment value for %s contains a line break", k)
		}
		b.WriteString(k + "=" + env[k] + "\n")
	}

	f, err := os.CreateTemp("", "wsmongo-env-*")
	if err != nil {
		return "", fmt.Errorf("creating env file: %w", err)
	}
	if _, err := f.WriteString(b.String()); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("writing env file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("writing env file: %w", err)
	}
	return f.Name(), nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// RemoveContainer implements Engine. The container is stopped gracefully
// before it is deleted so mongod can flush.
func (c *CLI) RemoveContainer(ctx context.Context, name string) error {
	if _, err := c.run(ctx, "stop", name); err != nil {
		if errors.Is(err, ErrNoSuchContainer) {
			return nil
		}
		return fmt.Errorf("stopping container %s: %w", name, err)
	}
	if _, err := c.run(ctx, "rm", name); err != nil && !errors.Is(err, ErrNoSuchContainer) {
		return fmt.Errorf("removing container %s: %w", name, err)
	}
	return nil
}

// HasVolume implements Engine.
func (c *CLI) HasVolume(ctx context.Context, name string) (bool, error) {
	_, err := c.run(ctx, "volume", "inspect", name)
	if errors.Is(err, ErrNoSuchVolume) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// CreateVolume implements Engine.
func (c *CLI) CreateVolume(ctx context.Context, name string) error {
	if _, err := c.run(ctx, "volume", "create", name); err != nil {
		return fmt.Errorf("creating volume %s: %w", name, err)
	}
	return nil
}

// RemoveVolume implements Engine.
func (c *CLI) RemoveVolume(ctx context.Context, name string) error {
	if _, err := c.run(ctx, "volume", "rm", name); err != nil {
		return fmt.Errorf("removing volume %s: %w", name, err)
	}
	return nil
}

// PullImage implements Engine.
func (c *CLI) PullImage(ctx context.Context, ref string) error {
	if _, err := c.run(ctx, "pull", "--quiet", ref); err != nil {
		return fmt.Errorf("pulling %s: %w", ref, err)
	}
	return nil
}

// ServerVersion implements Engine.
func (c *CLI) ServerVersion(ctx context.Context) (string, error) {
	out, err := c.run(ctx, "version", "--format", "{{.Server.Version}}")
	if err != nil {
		return "", err
	}
	version := parseServerVersion(out)
	if version == "" {
		return "", fmt.Errorf("unrecognized docker version %q", out)
	}
	return version, nil
}

// parseServerVersion extracts "X.Y.Z" from outputs like "27.3.1" or "20.10.24+dfsg1".
func parseServerVersion(out string) string {
	m := serverVersionRe.FindStringSubmatch(out)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}

type cliContainer struct {
	cli  *CLI
	name string
}

func (c *cliContainer) Name() string { return c.name }

type inspectState struct {
	Running bool   `json:"Running"`
	Status  string `json:"Status"`
}

func (c *cliContainer) Inspect(ctx context.Context) (State, error) {
	out, err := c.cli.run(ctx, "container", "inspect", "--format", "{{json .State}}", c.name)
	if err != nil {
		return State{}, fmt.Errorf("inspecting %s: %w", c.name, err)
	}
	var st inspectState
	if err := json.Unmarshal([]byte(out), &st); err != nil {
		return State{}, fmt.Errorf("parsing inspect output for %s: %w", c.name, err)
	}
	return State{Running: st.Running, Status: st.Status}, nil
}

func (c *cliContainer) Start(ctx context.Context) error {
	if _, err := c.cli.run(ctx, "start", c.name); err != nil {
		return fmt.Errorf("starting %s: %w", c.name, err)
	}
	return nil
}

// Exec implements Container. Env values reach the container through the
// docker client's own environment ("-e KEY" without a value), so only the
// keys show up in its arguments.
func (c *cliContainer) Exec(ctx context.Context, opts ExecOptions) (ExecSession, error) {
	if len(opts.Command) == 0 {
		return nil, errors.New("exec: empty command")
	}
	command := opts.Command
	args := []string{"exec", "-i"}
	if opts.TTY {
		args = append(args, "-t")
	}
	keys := sortedKeys(opts.Env)
	for _, k := range keys {
		args = append(args, "-e", k)
	}
	args = append(args, c.name)
	args = append(args, command...)

	cmd := exec.CommandContext(ctx, c.cli.binary, args...)
	if len(keys) > 0 {
		cmd.Env = os.Environ()
		for _, k := range keys {
			cmd.Env = append(cmd.Env, k+"="+opts.Env[k])
		}
	}
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	s := &cliSession{cmd: cmd, stdin: stdin, stdout: stdout, args: args}
	cmd.Stderr = &s.stderr

	c.cli.logger.Debug("docker exec", zap.String("container", c.name), zap.String("program", command[0]))
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("docker exec in %s: %w", c.name, err)
	}
	return s, nil
}

type cliSession struct {
	cmd    *exec.Cmd
	args   []string
	stdin  io.WriteCloser
	stdout io.Reader
	stderr bytes.Buffer
}

func (s *cliSession) Stdin() io.WriteCloser { return s.stdin }

func (s *cliSession) Stdout() io.Reader { return s.stdout }

func (s *cliSession) Wait() error {
	if err := s.cmd.Wait(); err != nil {
		return wrapError(err, s.stderr.String(), s.args)
	}
	return nil
}

func (s *cliSession) Terminate() error {
	_ = s.stdin.Close()
	if s.cmd.Process == nil {
		return nil
	}
	if err := s.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}
