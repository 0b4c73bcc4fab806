package mongodb

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	"github.com/wsdb/wsmongo/internal/docker"
	"github.com/wsdb/wsmongo/internal/pipe"
	"github.com/wsdb/wsmongo/internal/registry"
)

// BackupTimeLayout names backup files after the moment they were taken.
const BackupTimeLayout = "2006-01-02_15-04-05"

const (
	backupExt  = ".gz"
	partialExt = ".partial"

	// maxSameSecondBackups bounds the suffixes tried when several backups
	// share a timestamp.
	maxSameSecondBackups = 100
)

// Exec environment carrying the root credentials into the container.
const (
	userEnv     = "WSMONGO_USER"
	passwordEnv = "WSMONGO_PASSWORD"
)

// listDatabasesScript authenticates from the exec environment and prints
// one database name per line.
const listDatabasesScript = `db.getSiblingDB("admin").auth(process.env.` + userEnv + `, process.env.` + passwordEnv + `); ` +
	`db.adminCommand({ listDatabases: 1 }).databases.forEach(d => print(d.name))`

// toolPreamble writes the password from the exec environment into a private
// --config file for mongodump and mongorestore.
const toolPreamble = `umask 077; cfg=$(mktemp) || exit 1; trap 'rm -f "$cfg"' EXIT; ` +
	`printf "password: '%s'\n" "$(printf '%s' "$` + passwordEnv + `" | sed "s/'/''/g")" > "$cfg"; `

func credentialEnv(inst *registry.Instance) map[string]string {
	return map[string]string{
		userEnv:     inst.Username,
		passwordEnv: inst.Password,
	}
}

// toolCommand runs a database tool as root through sh. Credentials are read
// from the exec environment so they never appear in a process listing.
func toolCommand(tool string, args ...string) []string {
	var b strings.Builder
	b.WriteString(toolPreamble)
	b.WriteString(tool)
	b.WriteString(` --config "$cfg" --authenticationDatabase admin --username "$` + userEnv + `"`)
	for _, a := range args {
		b.WriteString(" ")
		b.WriteString(shellQuote(a))
	}
	return []string{"sh", "-c", b.String()}
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func listDatabasesCommand() []string {
	return []string{"mongosh", "--quiet", "--eval", listDatabasesScript}
}

func dumpCommand(database string) []string {
	return toolCommand("mongodump", "--db", database, "--archive", "--gzip")
}

func restoreCommand(database string) []string {
	return toolCommand("mongorestore", "--archive", "--gzip", "--drop", "--nsInclude="+database+".*")
}

func (s *Service) exec(ctx context.Context, c docker.Container, inst *registry.Instance, command []string) (docker.ExecSession, error) {
	return c.Exec(ctx, docker.ExecOptions{Command: command, Env: credentialEnv(inst)})
}

// ListDatabases returns the logical databases of a running instance.
func (s *Service) ListDatabases(ctx context.Context, name string) ([]string, error) {
	inst, err := s.registry.Get(name)
	if err != nil {
		return nil, err
	}
	c, err := s.runningContainer(ctx, inst)
	if err != nil {
		return nil, err
	}
	return s.listDatabases(ctx, c, inst)
}

func (s *Service) listDatabases(ctx context.Context, c docker.Container, inst *registry.Instance) ([]string, error) {
	session, err := s.exec(ctx, c, inst, listDatabasesCommand())
	if err != nil {
		return nil, fmt.Errorf("listing databases of %s: %w", inst.Name, err)
	}
	_ = session.Stdin().Close()

	var out bytes.Buffer
	_, copyErr := pipe.Copy(ctx, &out, session.Stdout())
	if copyErr != nil {
		_ = session.Terminate()
	}
	if err := session.Wait(); err != nil {
		return nil, fmt.Errorf("listing databases of %s: %w", inst.Name, err)
	}
	if copyErr != nil {
		return nil, fmt.Errorf("listing databases of %s: %w", inst.Name, copyErr)
	}
	return parseDatabases(out.Bytes()), nil
}

func parseDatabases(output []byte) []string {
	var names []string
	seen := make(map[string]bool)
	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		name := strings.TrimSpace(scanner.Text())
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}

// Backup dumps one logical database of a running instance into
// <backup dir>/<instance>/<database>/<timestamp>.gz and returns the path.
// A backup taken in the same second as an earlier one gets a "_N" suffix.
// The dump is streamed into a hidden partial file that only takes its final
// name once mongodump exits successfully.
func (s *Service) Backup(ctx context.Context, name, database string) (string, error) {
	inst, err := s.registry.Get(name)
	if err != nil {
		return "", err
	}
	c, err := s.runningContainer(ctx, inst)
	if err != nil {
		return "", err
	}

	if database == "" {
		databases, err := s.listDatabases(ctx, c, inst)
		if err != nil {
			return "", err
		}
		if len(databases) == 0 {
			return "", fmt.Errorf("%s has no databases to back up", inst.Name)
		}
		if database, err = s.prompter.Select("Database:", databases); err != nil {
			return "", err
		}
	}
	if err := checkPathElement(database); err != nil {
		return "", err
	}

	dir := s.settings.DatabaseBackupDir(inst.Name, database)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating backup directory: %w", err)
	}
	stamp := s.now().Format(BackupTimeLayout)
	partial := filepath.Join(dir, "."+s.newID()+partialExt)

	f, err := os.OpenFile(partial, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return "", fmt.Errorf("creating backup file: %w", err)
	}

	s.logger.Debug("dumping database", zap.String("database", inst.Name), zap.String("db", database))
	session, err := s.exec(ctx, c, inst, dumpCommand(database))
	if err != nil {
		_ = f.Close()
		_ = os.Remove(partial)
		return "", fmt.Errorf("starting mongodump: %w", err)
	}

	var result *multierror.Error
	if err := session.Stdin().Close(); err != nil {
		s.logger.Debug("closing mongodump stdin", zap.Error(err))
	}
	if _, err := pipe.Copy(ctx, f, session.Stdout()); err != nil {
		result = multierror.Append(result, fmt.Errorf("streaming dump: %w", err))
		_ = session.Terminate()
	}
	if err := session.Wait(); err != nil {
		result = multierror.Append(result, fmt.Errorf("mongodump: %w", err))
	}
	if err := f.Close(); err != nil {
		result = multierror.Append(result, fmt.Errorf("closing backup file: %w", err))
	}

	if err := result.ErrorOrNil(); err != nil {
		if rmErr := os.Remove(partial); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			err = multierror.Append(err, rmErr)
		}
		return "", err
	}
	path, err := s.finalizeBackup(partial, dir, stamp)
	if err != nil {
		_ = os.Remove(partial)
		return "", fmt.Errorf("finalizing backup: %w", err)
	}
	return path, nil
}

// finalizeBackup links partial to the first free name for stamp, adding
// "_2", "_3", ... when earlier backups took the plain name in the same
// second. Existing backups are never replaced.
func (s *Service) finalizeBackup(partial, dir, stamp string) (string, error) {
	for i := 1; i <= maxSameSecondBackups; i++ {
		name := stamp + backupExt
		if i > 1 {
			name = fmt.Sprintf("%s_%d%s", stamp, i, backupExt)
		}
		path := filepath.Join(dir, name)
		err := os.Link(partial, path)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", err
		}
		if err := os.Remove(partial); err != nil {
			s.logger.Warn("removing partial backup", zap.String("path", partial), zap.Error(err))
		}
		return path, nil
	}
	return "", fmt.Errorf("too many backups named %s in %s", stamp, dir)
}

// Restore streams a backup file into mongorestore, replacing the database's
// current contents. Missing database or filename are chosen from the
// existing backups. It returns the restored file's path.
func (s *Service) Restore(ctx context.Context, name, database, filename string) (string, error) {
	inst, err := s.registry.Get(name)
	if err != nil {
		return "", err
	}
	c, err := s.runningContainer(ctx, inst)
	if err != nil {
		return "", err
	}
	database, filename, err = s.selectBackup(inst, database, filename)
	if err != nil {
		return "", err
	}
	path := filepath.Join(s.settings.DatabaseBackupDir(inst.Name, database), filename)

	f, err := s.open(path)
	if err != nil {
		return "", fmt.Errorf("opening backup: %w", err)
	}

	s.logger.Debug("restoring database", zap.String("database", inst.Name), zap.String("db", database))
	session, err := s.exec(ctx, c, inst, restoreCommand(database))
	if err != nil {
		_ = f.Close()
		return "", fmt.Errorf("starting mongorestore: %w", err)
	}

	// mongorestore's stdout has to be consumed for it to make progress.
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		_, _ = io.Copy(io.Discard, session.Stdout())
	}()

	var result *multierror.Error
	if _, err := pipe.Copy(ctx, session.Stdin(), f); err != nil {
		result = multierror.Append(result, fmt.Errorf("streaming backup: %w", err))
		_ = session.Terminate()
	}
	if err := session.Stdin().Close(); err != nil && result == nil {
		result = multierror.Append(result, fmt.Errorf("closing mongorestore input: %w", err))
	}
	<-drained
	if err := session.Wait(); err != nil {
		result = multierror.Append(result, fmt.Errorf("mongorestore: %w", err))
	}
	if err := f.Close(); err != nil {
		result = multierror.Append(result, fmt.Errorf("closing backup file: %w", err))
	}

	if err := result.ErrorOrNil(); err != nil {
		return "", err
	}
	return path, nil
}

// DeleteBackup removes one backup file, and its database directory when
// that was the last file in it. It returns the removed path.
func (s *Service) DeleteBackup(ctx context.Context, name, database, filename string, yes bool) (string, error) {
	inst, err := s.registry.Get(name)
	if err != nil {
		return "", err
	}
	database, filename, err = s.selectBackup(inst, database, filename)
	if err != nil {
		return "", err
	}

	if !yes {
		ok, err := s.prompter.Confirm(fmt.Sprintf("Delete backup %s/%s?", database, filename), false)
		if err != nil {
			return "", err
		}
		if !ok {
			return "", ErrCancelled
		}
	}

	dir := s.settings.DatabaseBackupDir(inst.Name, database)
	path := filepath.Join(dir, filename)
	if err := os.Remove(path); err != nil {
		return "", fmt.Errorf("deleting backup: %w", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", dir, err)
	}
	if len(entries) == 0 {
		if err := os.Remove(dir); err != nil {
			return "", fmt.Errorf("removing empty %s: %w", dir, err)
		}
	}
	return path, nil
}

// ListBackups returns the backup files of an instance keyed by database,
// newest first.
func (s *Service) ListBackups(ctx context.Context, name string) (map[string][]string, error) {
	inst, err := s.registry.Get(name)
	if err != nil {
		return nil, err
	}
	return s.listBackups(inst)
}

func (s *Service) listBackups(inst *registry.Instance) (map[string][]string, error) {
	root := s.settings.InstanceBackupDir(inst.Name)
	dirs, err := os.ReadDir(root)
	if errors.Is(err, os.ErrNotExist) {
		return map[string][]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", root, err)
	}

	out := make(map[string][]string)
	for _, d := range dirs {
		if !d.IsDir() {
			continue
		}
		files, err := os.ReadDir(filepath.Join(root, d.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", d.Name(), err)
		}
		var names []string
		for _, f := range files {
			if f.IsDir() || strings.HasPrefix(f.Name(), ".") {
				continue
			}
			names = append(names, f.Name())
		}
		if len(names) == 0 {
			continue
		}
		sort.Sort(sort.Reverse(sort.StringSlice(names)))
		out[d.Name()] = names
	}
	return out, nil
}

// selectBackup fills in a missing database or filename from the backups
// on disk, prompting for the choice. Names that were given must exist.
func (s *Service) selectBackup(inst *registry.Instance, database, filename string) (string, string, error) {
	backups, err := s.listBackups(inst)
	if err != nil {
		return "", "", err
	}

	if database == "" {
		databases := make([]string, 0, len(backups))
		for db := range backups {
			databases = append(databases, db)
		}
		if len(databases) == 0 {
			return "", "", fmt.Errorf("%s: %w", inst.Name, ErrNoBackupsFound)
		}
		sort.Strings(databases)
		if database, err = s.prompter.Select("Database:", databases); err != nil {
			return "", "", err
		}
	}
	if err := checkPathElement(database); err != nil {
		return "", "", err
	}
	files, ok := backups[database]
	if !ok && (filename != "" || len(backups) > 0) {
		return "", "", fmt.Errorf("backups of %s/%s: %w", inst.Name, database, registry.ErrNotFound)
	}

	if filename == "" {
		if len(files) == 0 {
			return "", "", fmt.Errorf("%s/%s: %w", inst.Name, database, ErrNoBackupsFound)
		}
		if filename, err = s.prompter.Select("Backup:", files); err != nil {
			return "", "", err
		}
	}
	if err := checkPathElement(filename); err != nil {
		return "", "", err
	}
	if !slices.Contains(files, filename) {
		return "", "", fmt.Errorf("backup %s/%s/%s: %w", inst.Name, database, filename, registry.ErrNotFound)
	}
	return database, filename, nil
}

// checkPathElement rejects values that would escape the backup directory.
func checkPathElement(v string) error {
	if v == "" || v == "." || v == ".." || strings.ContainsAny(v, `/\`) {
		return fmt.Errorf("invalid name %q", v)
	}
	return nil
}
