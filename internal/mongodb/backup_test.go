package mongodb

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/wsdb/wsmongo/internal/pipe"
	"github.com/wsdb/wsmongo/internal/registry"
	"github.com/wsdb/wsmongo/internal/testutil"
)

// writeBackup places a backup file for db1 as if Backup had produced it.
func writeBackup(t *testing.T, h *harness, database, filename, content string) string {
	t.Helper()
	dir := h.settings.DatabaseBackupDir("db1", database)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, filename)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParseDatabases(t *testing.T) {
	got := parseDatabases([]byte("admin\n\n  appdb \r\nconfig\nappdb\n"))
	want := []string{"admin", "appdb", "config"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("parseDatabases() = %v, want %v", got, want)
	}
}

func TestCommandsKeepCredentialsOffTheCommandLine(t *testing.T) {
	inst := &registry.Instance{Name: "db1", Username: "root", Password: "s3cr'et"}
	for _, cmd := range [][]string{
		listDatabasesCommand(),
		dumpCommand("appdb"),
		restoreCommand("appdb"),
	} {
		joined := strings.Join(cmd, " ")
		if strings.Contains(joined, "s3cr") || strings.Contains(joined, "root") {
			t.Errorf("%s: credentials on the command line: %s", cmd[0], joined)
		}
	}

	env := credentialEnv(inst)
	if env[userEnv] != "root" || env[passwordEnv] != "s3cr'et" {
		t.Errorf("credentialEnv() = %v", env)
	}

	dump := dumpCommand("appdb")
	if dump[0] != "sh" || dump[1] != "-c" {
		t.Fatalf("dump = %v", dump)
	}
	if !strings.Contains(dump[2], `mongodump --config "$cfg" --authenticationDatabase admin --username "$WSMONGO_USER"`) {
		t.Errorf("dump script = %s", dump[2])
	}
	if !strings.HasSuffix(dump[2], `'--db' 'appdb' '--archive' '--gzip'`) {
		t.Errorf("dump script = %s", dump[2])
	}
	if got := restoreCommand("appdb")[2]; !strings.HasSuffix(got, `'--archive' '--gzip' '--drop' '--nsInclude=appdb.*'`) {
		t.Errorf("restore script = %s", got)
	}
	if !strings.Contains(listDatabasesCommand()[3], "process.env.WSMONGO_PASSWORD") {
		t.Errorf("mongosh does not authenticate from the environment: %v", listDatabasesCommand())
	}
}

func TestShellQuote(t *testing.T) {
	tests := map[string]string{
		"appdb":     `'appdb'`,
		"it's":      `'it'\''s'`,
		"$(reboot)": `'$(reboot)'`,
	}
	for in, want := range tests {
		if got := shellQuote(in); got != want {
			t.Errorf("shellQuote(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestListDatabases(t *testing.T) {
	h := newHarness(t)
	c := h.runContainer(h.mustCreate(t, "db1"))
	c.ExecFn = func([]string) *testutil.FakeSession {
		return testutil.NewFakeSession([]byte("admin\nappdb\n\n"), nil)
	}

	got, err := h.svc.ListDatabases(context.Background(), "")
	if err != nil {
		t.Fatalf("ListDatabases: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"admin", "appdb"}) {
		t.Errorf("ListDatabases() = %v", got)
	}
	if c.LastExec()[0] != "mongosh" {
		t.Errorf("exec = %v", c.LastExec())
	}
}

func TestBackupWritesFile(t *testing.T) {
	h := newHarness(t)
	c := h.runContainer(h.mustCreate(t, "db1"))
	payload := bytes.Repeat([]byte("archive"), 20000)
	c.ExecFn = func([]string) *testutil.FakeSession {
		return testutil.NewFakeSession(payload, nil)
	}

	path, err := h.svc.Backup(context.Background(), "db1", "appdb")
	if err != nil {
		t.Fatalf("Backup: %v", err)
	}
	want := filepath.Join(h.settings.BackupDir, "db1", "appdb", "2024-03-09_14-05-07.gz")
	if path != want {
		t.Errorf("path = %q, want %q", path, want)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("backup has %d bytes, want %d", len(got), len(payload))
	}
	if !strings.Contains(strings.Join(c.LastExec(), " "), "mongodump") {
		t.Errorf("exec = %v", c.LastExec())
	}
	if c.LastExecEnv()[passwordEnv] != "secret" {
		t.Errorf("exec env = %v", c.LastExecEnv())
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("expected only the backup in %s, got %d entries", filepath.Dir(path), len(entries))
	}
}

func TestBackupSameSecondKeepsEarlierBackups(t *testing.T) {
	h := newHarness(t)
	c := h.runContainer(h.mustCreate(t, "db1"))
	outputs := []string{"first", "second", "third"}
	c.ExecFn = func([]string) *testutil.FakeSession {
		out := outputs[0]
		outputs = outputs[1:]
		return testutil.NewFakeSession([]byte(out), nil)
	}

	var paths []string
	for range 3 {
		path, err := h.svc.Backup(context.Background(), "db1", "appdb")
		if err != nil {
			t.Fatalf("Backup: %v", err)
		}
		paths = append(paths, path)
	}

	want := []struct{ name, content string }{
		{"2024-03-09_14-05-07.gz", "first"},
		{"2024-03-09_14-05-07_2.gz", "second"},
		{"2024-03-09_14-05-07_3.gz", "third"},
	}
	for i, w := range want {
		if filepath.Base(paths[i]) != w.name {
			t.Errorf("backup %d path = %q, want %s", i, paths[i], w.name)
		}
		got, err := os.ReadFile(paths[i])
		if err != nil {
			t.Fatal(err)
		}
		if string(got) != w.content {
			t.Errorf("%s = %q, want %q", w.name, got, w.content)
		}
	}

	entries, _ := os.ReadDir(filepath.Dir(paths[0]))
	if len(entries) != 3 {
		t.Errorf("expected 3 files without partials, got %d", len(entries))
	}
	backups, err := h.svc.ListBackups(context.Background(), "db1")
	if err != nil {
		t.Fatal(err)
	}
	if got := backups["appdb"]; !reflect.DeepEqual(got, []string{want[2].name, want[1].name, want[0].name}) {
		t.Errorf("newest first = %v", got)
	}
}

func TestBackupPromptsForDatabase(t *testing.T) {
	h := newHarness(t)
	c := h.runContainer(h.mustCreate(t, "db1"))
	c.ExecFn = func(cmd []string) *testutil.FakeSession {
		if cmd[0] == "mongosh" {
			return testutil.NewFakeSession([]byte("admin\nappdb\n"), nil)
		}
		return testutil.NewFakeSession([]byte("dump"), nil)
	}
	h.prompter.selects = []string{"appdb"}

	path, err := h.svc.Backup(context.Background(), "", "")
	if err != nil {
		t.Fatalf("Backup: %v", err)
	}
	if !reflect.DeepEqual(h.prompter.options["Database:"], []string{"admin", "appdb"}) {
		t.Errorf("offered %v", h.prompter.options["Database:"])
	}
	if filepath.Base(filepath.Dir(path)) != "appdb" {
		t.Errorf("path = %q", path)
	}
}

func TestBackupRequiresRunningContainer(t *testing.T) {
	t.Run("absent", func(t *testing.T) {
		h := newHarness(t)
		h.mustCreate(t, "db1")
		_, err := h.svc.Backup(context.Background(), "db1", "appdb")
		if !errors.Is(err, ErrNotRunning) {
			t.Errorf("expected ErrNotRunning, got %v", err)
		}
		if _, statErr := os.Stat(h.settings.DatabaseBackupDir("db1", "appdb")); !os.IsNotExist(statErr) {
			t.Error("backup directory created for a failed backup")
		}
	})
	t.Run("stopped", func(t *testing.T) {
		h := newHarness(t)
		inst := h.mustCreate(t, "db1")
		h.runContainer(inst).Running = false
		if _, err := h.svc.Backup(context.Background(), "db1", "appdb"); !errors.Is(err, ErrNotRunning) {
			t.Errorf("expected ErrNotRunning, got %v", err)
		}
	})
}

func TestBackupFailureRemovesPartialFile(t *testing.T) {
	tests := []struct {
		name    string
		session func() *testutil.FakeSession
	}{
		{
			name: "command fails",
			session: func() *testutil.FakeSession {
				return testutil.NewFakeSession([]byte("half"), errors.New("exit status 1"))
			},
		},
		{
			name: "stream fails",
			session: func() *testutil.FakeSession {
				return testutil.NewFailingStdoutSession([]byte("half"), errors.New("connection reset"))
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			c := h.runContainer(h.mustCreate(t, "db1"))
			c.ExecFn = func([]string) *testutil.FakeSession {
				return tt.session()
			}

			if _, err := h.svc.Backup(context.Background(), "db1", "appdb"); err == nil {
				t.Fatal("expected Backup to fail")
			}
			entries, err := os.ReadDir(h.settings.DatabaseBackupDir("db1", "appdb"))
			if err != nil {
				t.Fatal(err)
			}
			if len(entries) != 0 {
				t.Errorf("left behind %d files", len(entries))
			}
		})
	}
}

func TestBackupExecFailure(t *testing.T) {
	h := newHarness(t)
	c := h.runContainer(h.mustCreate(t, "db1"))
	c.ExecErr = errors.New("exec failed")

	if _, err := h.svc.Backup(context.Background(), "db1", "appdb"); err == nil {
		t.Fatal("expected Backup to fail")
	}
	entries, _ := os.ReadDir(h.settings.DatabaseBackupDir("db1", "appdb"))
	if len(entries) != 0 {
		t.Errorf("left behind %d files", len(entries))
	}
}

func TestRestoreStreamsFile(t *testing.T) {
	h := newHarness(t)
	c := h.runContainer(h.mustCreate(t, "db1"))
	content := strings.Repeat("gzipped-archive", 10000)
	writeBackup(t, h, "appdb", "2024-01-01_00-00-00.gz", content)

	var session *testutil.FakeSession
	c.ExecFn = func([]string) *testutil.FakeSession {
		session = testutil.NewFakeSession(nil, nil)
		return session
	}

	path, err := h.svc.Restore(context.Background(), "db1", "appdb", "2024-01-01_00-00-00.gz")
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if filepath.Base(path) != "2024-01-01_00-00-00.gz" {
		t.Errorf("path = %q", path)
	}
	if got := string(session.Received()); got != content {
		t.Errorf("mongorestore received %d bytes, want %d", len(got), len(content))
	}
	if !strings.Contains(strings.Join(c.LastExec(), " "), "mongorestore") {
		t.Errorf("exec = %v", c.LastExec())
	}
}

func TestRestoreSelectsBackup(t *testing.T) {
	h := newHarness(t)
	h.runContainer(h.mustCreate(t, "db1"))
	writeBackup(t, h, "appdb", "2024-01-01_00-00-00.gz", "old")
	writeBackup(t, h, "appdb", "2024-02-01_00-00-00.gz", "new")
	writeBackup(t, h, "other", "2024-01-05_00-00-00.gz", "x")
	h.prompter.selects = []string{"appdb", "2024-02-01_00-00-00.gz"}

	if _, err := h.svc.Restore(context.Background(), "", "", ""); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if got := h.prompter.options["Database:"]; !reflect.DeepEqual(got, []string{"appdb", "other"}) {
		t.Errorf("databases offered = %v", got)
	}
	if got := h.prompter.options["Backup:"]; !reflect.DeepEqual(got, []string{"2024-02-01_00-00-00.gz", "2024-01-01_00-00-00.gz"}) {
		t.Errorf("backups offered = %v", got)
	}
}

func TestRestoreCommandFailure(t *testing.T) {
	h := newHarness(t)
	c := h.runContainer(h.mustCreate(t, "db1"))
	writeBackup(t, h, "appdb", "a.gz", "data")
	exitErr := errors.New("exit status 1")
	c.ExecFn = func([]string) *testutil.FakeSession {
		return testutil.NewFakeSession(nil, exitErr)
	}

	_, err := h.svc.Restore(context.Background(), "db1", "appdb", "a.gz")
	if !errors.Is(err, exitErr) {
		t.Errorf("expected command error, got %v", err)
	}
}

func TestRestoreCancelledTerminatesCommand(t *testing.T) {
	h := newHarness(t)
	c := h.runContainer(h.mustCreate(t, "db1"))
	writeBackup(t, h, "appdb", "a.gz", "data")
	var session *testutil.FakeSession
	c.ExecFn = func([]string) *testutil.FakeSession {
		session = testutil.NewFakeSession(nil, nil)
		return session
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := h.svc.Restore(ctx, "db1", "appdb", "a.gz")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if !session.Terminated() {
		t.Error("command not terminated")
	}
}

// brokenFile yields data and then fails instead of reporting EOF.
type brokenFile struct {
	data   io.Reader
	err    error
	closed bool
}

func (f *brokenFile) Read(p []byte) (int, error) {
	n, err := f.data.Read(p)
	if err == io.EOF {
		return n, f.err
	}
	return n, err
}

func (f *brokenFile) Close() error {
	f.closed = true
	return nil
}

func TestRestoreReadFailureTerminatesCommand(t *testing.T) {
	h := newHarness(t)
	c := h.runContainer(h.mustCreate(t, "db1"))
	writeBackup(t, h, "appdb", "a.gz", "data")

	readErr := errors.New("input/output error")
	file := &brokenFile{data: strings.NewReader(strings.Repeat("archive", 20000)), err: readErr}
	h.svc.open = func(string) (io.ReadCloser, error) {
		return file, nil
	}
	var session *testutil.FakeSession
	c.ExecFn = func([]string) *testutil.FakeSession {
		session = testutil.NewFakeSession(nil, nil)
		return session
	}

	_, err := h.svc.Restore(context.Background(), "db1", "appdb", "a.gz")
	if !errors.Is(err, readErr) || !pipe.IsReadError(err) {
		t.Fatalf("expected the read error, got %v", err)
	}
	if !session.Terminated() {
		t.Error("command not terminated")
	}
	if !file.closed {
		t.Error("backup file not closed")
	}
}

func TestNamedBackupMustExist(t *testing.T) {
	tests := []struct {
		name     string
		database string
		filename string
	}{
		{"missing file", "appdb", "nope.gz"},
		{"missing database", "other", "a.gz"},
		{"missing database without file", "other", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			c := h.runContainer(h.mustCreate(t, "db1"))
			writeBackup(t, h, "appdb", "a.gz", "data")

			_, err := h.svc.Restore(context.Background(), "db1", tt.database, tt.filename)
			if !errors.Is(err, registry.ErrNotFound) {
				t.Errorf("Restore: expected ErrNotFound, got %v", err)
			}
			if len(c.Execs) != 0 {
				t.Errorf("mongorestore started: %v", c.Execs)
			}

			_, err = h.svc.DeleteBackup(context.Background(), "db1", tt.database, tt.filename, true)
			if !errors.Is(err, registry.ErrNotFound) {
				t.Errorf("DeleteBackup: expected ErrNotFound, got %v", err)
			}
			if len(h.prompter.asked) != 0 {
				t.Errorf("prompted: %v", h.prompter.asked)
			}
		})
	}
}

func TestRestoreNoBackups(t *testing.T) {
	h := newHarness(t)
	h.runContainer(h.mustCreate(t, "db1"))
	if _, err := h.svc.Restore(context.Background(), "db1", "", ""); !errors.Is(err, ErrNoBackupsFound) {
		t.Errorf("expected ErrNoBackupsFound, got %v", err)
	}
}

func TestRestoreRejectsPathEscape(t *testing.T) {
	h := newHarness(t)
	h.runContainer(h.mustCreate(t, "db1"))
	if _, err := h.svc.Restore(context.Background(), "db1", "appdb", "../../config.json"); err == nil {
		t.Error("expected path outside the backup directory to be rejected")
	}
}

func TestDeleteBackupNoBackups(t *testing.T) {
	h := newHarness(t)
	h.mustCreate(t, "db1")

	_, err := h.svc.DeleteBackup(context.Background(), "db1", "", "", false)
	if !errors.Is(err, ErrNoBackupsFound) {
		t.Fatalf("expected ErrNoBackupsFound, got %v", err)
	}
	if len(h.prompter.asked) != 0 {
		t.Errorf("prompted with nothing to choose: %v", h.prompter.asked)
	}
}

func TestDeleteBackup(t *testing.T) {
	h := newHarness(t)
	h.mustCreate(t, "db1")
	first := writeBackup(t, h, "appdb", "2024-01-01_00-00-00.gz", "a")
	second := writeBackup(t, h, "appdb", "2024-02-01_00-00-00.gz", "b")
	dir := filepath.Dir(first)

	if _, err := h.svc.DeleteBackup(context.Background(), "db1", "appdb", filepath.Base(first), true); err != nil {
		t.Fatalf("DeleteBackup: %v", err)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("directory removed while a backup remains: %v", err)
	}

	h.prompter.confirm = true
	if _, err := h.svc.DeleteBackup(context.Background(), "db1", "appdb", filepath.Base(second), false); err != nil {
		t.Fatalf("DeleteBackup: %v", err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Errorf("empty directory not removed: %v", err)
	}
}

func TestDeleteBackupDeclined(t *testing.T) {
	h := newHarness(t)
	h.mustCreate(t, "db1")
	path := writeBackup(t, h, "appdb", "a.gz", "a")

	h.prompter.confirm = false
	if _, err := h.svc.DeleteBackup(context.Background(), "db1", "appdb", "a.gz", false); !errors.Is(err, ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("backup removed after decline: %v", err)
	}
}

func TestListBackupsSkipsPartials(t *testing.T) {
	h := newHarness(t)
	h.mustCreate(t, "db1")
	writeBackup(t, h, "appdb", "2024-01-01_00-00-00.gz", "a")
	writeBackup(t, h, "appdb", ".id1.partial", "half")
	writeBackup(t, h, "empty", ".id2.partial", "half")

	got, err := h.svc.ListBackups(context.Background(), "db1")
	if err != nil {
		t.Fatalf("ListBackups: %v", err)
	}
	want := map[string][]string{"appdb": {"2024-01-01_00-00-00.gz"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ListBackups() = %v, want %v", got, want)
	}
}

func TestBackupStreamErrorIsReadSide(t *testing.T) {
	h := newHarness(t)
	c := h.runContainer(h.mustCreate(t, "db1"))
	c.ExecFn = func([]string) *testutil.FakeSession {
		return testutil.NewFailingStdoutSession(nil, errors.New("connection reset"))
	}
	_, err := h.svc.Backup(context.Background(), "db1", "appdb")
	if !pipe.IsReadError(err) {
		t.Errorf("expected a read-side pipe error, got %v", err)
	}
}
