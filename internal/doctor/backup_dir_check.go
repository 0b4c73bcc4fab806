package doctor

import (
	"fmt"
	"os"
)

// BackupDirCheck verifies that the backup directory exists and is a directory.
type BackupDirCheck struct {
	FixableCheck
}

// NewBackupDirCheck creates a new backup directory check.
func NewBackupDirCheck() *BackupDirCheck {
	return &BackupDirCheck{
		FixableCheck: FixableCheck{
			BaseCheck: BaseCheck{
				CheckName:        "backup-dir",
				CheckDescription: "Check that the backup directory exists",
				CheckCategory:    CategoryStorage,
			},
		},
	}
}

// Run stats the backup directory.
func (c *BackupDirCheck) Run(ctx *CheckContext) *CheckResult {
	dir := ctx.Settings.BackupDir
	info, err := os.Stat(dir)
	switch {
	case os.IsNotExist(err):
		return &CheckResult{
			Name:    c.Name(),
			Status:  StatusWarning,
			Message: fmt.Sprintf("%s does not exist", dir),
			FixHint: "Run 'wsmongo doctor --fix' to create it",
		}
	case err != nil:
		return &CheckResult{
			Name:    c.Name(),
			Status:  StatusError,
			Message: fmt.Sprintf("cannot access %s", dir),
			Details: []string{err.Error()},
		}
	case !info.IsDir():
		return &CheckResult{
			Name:    c.Name(),
			Status:  StatusError,
			Message: fmt.Sprintf("%s is not a directory", dir),
			FixHint: "Move the file away or set backup_dir in settings.toml",
		}
	}

	return &CheckResult{
		Name:    c.Name(),
		Status:  StatusOK,
		Message: dir,
	}
}

// Fix creates the backup directory.
func (c *BackupDirCheck) Fix(ctx *CheckContext) error {
	return os.MkdirAll(ctx.Settings.BackupDir, 0755)
}
