// Package testutil provides in-memory doubles for the container engine.
package testutil

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/wsdb/wsmongo/internal/docker"
)

// ErrTerminated is what a FakeSession's stdin reader fails with after Terminate.
var ErrTerminated = errors.New("terminated")

// FakeEngine is a docker.Engine that keeps containers and volumes in memory
// and records every mutating call in order.
type FakeEngine struct {
	mu sync.Mutex

	Containers map[string]*FakeContainer
	Volumes    map[string]bool
	Version    string

	// Calls holds entries such as "create-volume wocker-mongodb-db1".
	Calls []string

	// GetErr makes GetContainer fail for the named container.
	GetErr map[string]error
	// RemoveVolumeErr makes RemoveVolume fail.
	RemoveVolumeErr error
}

// NewFakeEngine returns an empty engine reporting server version 24.0.7.
func NewFakeEngine() *FakeEngine {
	return &FakeEngine{
		Containers: make(map[string]*FakeContainer),
		Volumes:    make(map[string]bool),
		GetErr:     make(map[string]error),
		Version:    "24.0.7",
	}
}

func (e *FakeEngine) record(format string, args ...interface{}) {
	e.Calls = append(e.Calls, fmt.Sprintf(format, args...))
}

// CallLog returns a copy of the recorded calls.
func (e *FakeEngine) CallLog() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.Calls...)
}

// ResetCalls clears the call log.
func (e *FakeEngine) ResetCalls() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Calls = nil
}

// AddContainer registers a container as if it had been created earlier.
func (e *FakeEngine) AddContainer(spec docker.ContainerSpec, running bool) *FakeContainer {
	e.mu.Lock()
	defer e.mu.Unlock()
	c := &FakeContainer{engine: e, Spec: spec, Running: running}
	e.Containers[spec.Name] = c
	return c
}

// ContainerNames returns the existing containers, sorted.
func (e *FakeEngine) ContainerNames() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	names := make([]string, 0, len(e.Containers))
	for name := range e.Containers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (e *FakeEngine) GetContainer(_ context.Context, name string) (docker.Container, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.GetErr[name]; err != nil {
		return nil, err
	}
	c, ok := e.Containers[name]
	if !ok {
		return nil, nil
	}
	return c, nil
}

func (e *FakeEngine) CreateContainer(_ context.Context, spec docker.ContainerSpec) (docker.Container, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.Containers[spec.Name]; ok {
		return nil, fmt.Errorf("container %s already exists", spec.Name)
	}
	for _, bind := range spec.Volumes {
		vol, _, _ := strings.Cut(bind, ":")
		e.Volumes[vol] = true
	}
	e.record("create-container %s", spec.Name)
	c := &FakeContainer{engine: e, Spec: spec}
	e.Containers[spec.Name] = c
	return c, nil
}

func (e *FakeEngine) RemoveContainer(_ context.Context, name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record("remove-container %s", name)
	delete(e.Containers, name)
	return nil
}

func (e *FakeEngine) HasVolume(_ context.Context, name string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.Volumes[name], nil
}

func (e *FakeEngine) CreateVolume(_ context.Context, name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record("create-volume %s", name)
	e.Volumes[name] = true
	return nil
}

func (e *FakeEngine) RemoveVolume(_ context.Context, name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.RemoveVolumeErr != nil {
		return e.RemoveVolumeErr
	}
	if !e.Volumes[name] {
		return docker.ErrNoSuchVolume
	}
	e.record("remove-volume %s", name)
	delete(e.Volumes, name)
	return nil
}

func (e *FakeEngine) PullImage(_ context.Context, ref string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record("pull %s", ref)
	return nil
}

func (e *FakeEngine) ServerVersion(context.Context) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.Version, nil
}

// FakeContainer is a container held by a FakeEngine.
type FakeContainer struct {
	engine *FakeEngine

	Spec    docker.ContainerSpec
	Running bool

	InspectErr error
	ExecErr    error
	// ExecFn builds the session for an exec. Nil means an empty, successful session.
	ExecFn func(command []string) *FakeSession

	Execs    [][]string
	ExecEnvs []map[string]string
}

func (c *FakeContainer) Name() string {
	return c.Spec.Name
}

func (c *FakeContainer) Inspect(context.Context) (docker.State, error) {
	c.engine.mu.Lock()
	defer c.engine.mu.Unlock()
	if c.InspectErr != nil {
		return docker.State{}, c.InspectErr
	}
	status := "created"
	if c.Running {
		status = "running"
	}
	return docker.State{Running: c.Running, Status: status}, nil
}

func (c *FakeContainer) Start(context.Context) error {
	c.engine.mu.Lock()
	defer c.engine.mu.Unlock()
	c.engine.record("start %s", c.Spec.Name)
	c.Running = true
	return nil
}

func (c *FakeContainer) Exec(_ context.Context, opts docker.ExecOptions) (docker.ExecSession, error) {
	command := append([]string(nil), opts.Command...)
	env := make(map[string]string, len(opts.Env))
	for k, v := range opts.Env {
		env[k] = v
	}

	c.engine.mu.Lock()
	running, execErr, fn := c.Running, c.ExecErr, c.ExecFn
	c.Execs = append(c.Execs, command)
	c.ExecEnvs = append(c.ExecEnvs, env)
	c.engine.mu.Unlock()

	if !running {
		return nil, docker.ErrNotRunning
	}
	if execErr != nil {
		return nil, execErr
	}
	if fn == nil {
		return NewFakeSession(nil, nil), nil
	}
	return fn(command), nil
}

// LastExecEnv returns the environment of the most recent exec, or nil.
func (c *FakeContainer) LastExecEnv() map[string]string {
	c.engine.mu.Lock()
	defer c.engine.mu.Unlock()
	if len(c.ExecEnvs) == 0 {
		return nil
	}
	return c.ExecEnvs[len(c.ExecEnvs)-1]
}

// LastExec returns the most recent exec command, or nil.
func (c *FakeContainer) LastExec() []string {
	c.engine.mu.Lock()
	defer c.engine.mu.Unlock()
	if len(c.Execs) == 0 {
		return nil
	}
	return c.Execs[len(c.Execs)-1]
}

// FakeSession is an exec session that emits fixed output and records
// everything written to its stdin. Wait returns once stdin is closed or the
// session is terminated.
type FakeSession struct {
	stdinR *io.PipeReader
	stdinW *io.PipeWriter
	stdout io.Reader

	exitErr error
	done    chan struct{}

	mu         sync.Mutex
	received   bytes.Buffer
	terminated bool
}

// NewFakeSession returns a session whose stdout yields output and whose
// Wait reports exitErr.
func NewFakeSession(output []byte, exitErr error) *FakeSession {
	r, w := io.Pipe()
	s := &FakeSession{
		stdinR:  r,
		stdinW:  w,
		stdout:  bytes.NewReader(output),
		exitErr: exitErr,
		done:    make(chan struct{}),
	}
	go s.drain()
	return s
}

// NewFailingStdoutSession returns a session whose stdout fails with err
// after yielding output.
func NewFailingStdoutSession(output []byte, err error) *FakeSession {
	s := NewFakeSession(nil, nil)
	s.stdout = io.MultiReader(bytes.NewReader(output), errReader{err})
	return s
}

func (s *FakeSession) drain() {
	defer close(s.done)
	buf := make([]byte, 4096)
	for {
		n, err := s.stdinR.Read(buf)
		if n > 0 {
			s.mu.Lock()
			s.received.Write(buf[:n])
			s.mu.Unlock()
		}
		if err != nil {
			return
		}
	}
}

func (s *FakeSession) Stdin() io.WriteCloser { return s.stdinW }
func (s *FakeSession) Stdout() io.Reader     { return s.stdout }

func (s *FakeSession) Wait() error {
	<-s.done
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.terminated {
		return ErrTerminated
	}
	return s.exitErr
}

func (s *FakeSession) Terminate() error {
	s.mu.Lock()
	s.terminated = true
	s.mu.Unlock()
	s.stdinR.CloseWithError(ErrTerminated)
	return nil
}

// Received returns the bytes written to stdin so far.
func (s *FakeSession) Received() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.received.Bytes()...)
}

// Terminated reports whether Terminate was called.
func (s *FakeSession) Terminated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.terminated
}

type errReader struct{ err error }

func (r errReader) Read([]byte) (int, error) { return 0, r.err }
