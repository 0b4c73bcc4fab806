package mongodb

import "errors"

// Common errors
var (
	ErrNameTaken        = errors.New("database name is already taken")
	ErrPasswordMismatch = errors.New("passwords do not match")
	ErrProtectedDefault = errors.New("cannot destroy the default database without --force")
	ErrCancelled        = errors.New("cancelled")
	ErrIncompatibleHost = errors.New("incompatible docker version")
	ErrNoBackupsFound   = errors.New("no backups found")
	ErrNotRunning       = errors.New("database container is not running")
)
