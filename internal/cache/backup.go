package cache

import (
	"fmt"
	"strings"
	"time"

	"github.com/leonardcser/quick-kv/internal/logger"
	"github.com/leonardcser/quick-kv/internal/store"
)

// forbiddenBackupChars may not appear in a backup name.
const forbiddenBackupChars = `/\?*":<>`

// BackupOptions names where DB.Backup writes its copy. Zero fields take
// the defaults documented on each field.
type BackupOptions struct {
	// Name of the backup file without extension. Defaults to
	// backup-<day>-<month>-<year>.
	Name string `json:"name,omitempty"`
	// Path is the destination directory. Defaults to "./".
	Path string `json:"path,omitempty"`
	// Progress, if set, receives byte progress while the copy runs.
	Progress store.Progress `json:"-"`
}

// backupDestination resolves the destination path without extension.
func backupDestination(opts BackupOptions, now time.Time) (string, error) {
	name := opts.Name
	if name == "" {
		name = fmt.Sprintf("backup-%d-%d-%d", now.Day(), int(now.Month()), now.Year())
	}
	dir := opts.Path
	if dir == "" {
		dir = "./"
	}
	if !strings.HasSuffix(dir, "/") {
		dir += "/"
	}
	name = strings.ReplaceAll(name, " ", "-")
	if strings.ContainsAny(name, forbiddenBackupChars) {
		return "", validationErrorf("backup name %q cannot include any of %s", name, forbiddenBackupChars)
	}
	return dir + name, nil
}

// Backup copies the whole database through the backend and returns the
// destination it was given.
func (d *DB) Backup(opts BackupOptions) (string, error) {
	dest, err := backupDestination(opts, d.now())
	if err != nil {
		return "", err
	}
	progress := opts.Progress
	if progress == nil && d.cfg.Verbose {
		progress = func(total, remaining int64) {
			if total > 0 {
				logger.Debugf("backup progress: %.1f%%", float64(total-remaining)/float64(total)*100)
			}
		}
	}
	if err := d.backend.Backup(dest, progress); err != nil {
		return "", err
	}
	d.debugf("backed up database as %s", dest)
	return dest, nil
}
