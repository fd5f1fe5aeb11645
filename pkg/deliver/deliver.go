package deliver

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/user"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	shellquote "github.com/kballard/go-shellquote"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/thoas/go-funk"

	"github.com/mmorev/ctrender/pkg/core"
	"github.com/mmorev/ctrender/pkg/logging"
	"github.com/mmorev/ctrender/pkg/utils"
)

// Manager installs rendered artifacts at their destination. A delivery
// stages the artifact next to the destination, compares, validates, backs
// up and finally commits with an atomic rename, so the destination is only
// ever observed in its old or its new state.
type Manager struct {
	logger logging.Logger
}

func New(logger logging.Logger) *Manager {
	return &Manager{logger: logger}
}

// Deliver runs the full stage/compare/validate/backup/commit sequence.
// Every failure before the final rename leaves the destination untouched;
// the rename itself is the single narrow failure window and is reported as
// CommitFailure.
func (m *Manager) Deliver(artifact []byte, dest string, opts core.DeliveryOptions) (*core.DeliveryResult, error) {
	res := &core.DeliveryResult{Dest: dest, Checksum: Checksum(artifact)}

	prior, priorExists, err := readPrior(dest)
	if err != nil {
		return nil, err
	}

	// resolve the target mode up front, so a bad mode string fails a
	// check-mode run too
	mode, err := resolveMode(opts.Mode, dest, priorExists)
	if err != nil {
		return nil, core.NewDeliveryError(core.CommitFailure, dest, err)
	}

	staged, err := m.stage(artifact, dest)
	if err != nil {
		return nil, err
	}
	// no-op once the staged file has been renamed over the destination
	defer os.Remove(staged)

	changed := !priorExists || !bytes.Equal(prior, artifact)
	if !changed && !opts.Force {
		m.logger.WithField("dest", dest).Debug("content unchanged, skipping commit")
		return res, nil
	}

	if opts.Validate != "" {
		if err := m.validate(staged, dest, opts); err != nil {
			return nil, err
		}
	}

	if opts.Diff {
		res.Diff = unifiedDiff(prior, artifact, dest)
	}
	res.Changed = changed

	if opts.Check {
		m.logger.WithField("dest", dest).Debug("check mode, skipping commit")
		return res, nil
	}

	if opts.Backup && priorExists && changed {
		backupPath, err := m.backup(dest)
		if err != nil {
			return nil, core.NewDeliveryError(core.BackupFailed, dest, err)
		}
		res.BackupPath = backupPath
	}

	if err := m.applyMetadata(staged, mode, dest, opts); err != nil {
		return nil, err
	}

	if err := os.Rename(staged, dest); err != nil {
		return nil, core.NewDeliveryError(core.CommitFailure, dest, err)
	}
	m.logger.WithFields(map[string]interface{}{"dest": dest, "checksum": res.Checksum}).Debug("committed")

	return res, nil
}

// Checksum is the content fingerprint reported in delivery results.
func Checksum(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func readPrior(dest string) ([]byte, bool, error) {
	content, err := os.ReadFile(dest)
	if err == nil {
		return content, true, nil
	}
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	// a directory at the destination surfaces later, as a commit failure
	if errors.Is(err, syscall.EISDIR) {
		return nil, false, nil
	}
	return nil, false, core.NewDeliveryError(core.PermissionDenied, dest, err)
}

// stage writes the artifact to a temp file in the destination directory, so
// the final rename never crosses a filesystem boundary.
func (m *Manager) stage(artifact []byte, dest string) (string, error) {
	dir := filepath.Dir(dest)
	f, err := os.CreateTemp(dir, ".ctrender-staged-*")
	if err != nil {
		if os.IsPermission(err) {
			return "", core.NewDeliveryError(core.PermissionDenied, dest, err)
		}
		return "", core.NewDeliveryError(core.CommitFailure, dest, err)
	}
	if _, err := f.Write(artifact); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", core.NewDeliveryError(core.CommitFailure, dest, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", core.NewDeliveryError(core.CommitFailure, dest, err)
	}
	return f.Name(), nil
}

// validate runs the configured command against the staged file. The command
// must carry a %s placeholder for the staged path; it is split with shell
// quoting rules but executed without a shell. Only the literal %s token is
// substituted, so any other % in the command reaches the validator intact.
func (m *Manager) validate(staged, dest string, opts core.DeliveryOptions) error {
	if !strings.Contains(opts.Validate, "%s") {
		return core.NewDeliveryError(core.ValidationFailed, dest,
			fmt.Errorf("validate command %q has no %%s placeholder for the staged file", opts.Validate))
	}

	argv, err := shellquote.Split(opts.Validate)
	if err != nil || len(argv) == 0 {
		return core.NewDeliveryError(core.ValidationFailed, dest,
			fmt.Errorf("bad validate command %q: %v", opts.Validate, err))
	}
	for i, word := range argv {
		argv[i] = strings.ReplaceAll(word, "%s", staged)
	}
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Env = validateEnv(opts.Env)

	m.logger.WithFields(map[string]interface{}{"dest": dest, "cmd": argv[0]}).Debug("validating staged content")
	out, err := cmd.CombinedOutput()
	if err != nil {
		return core.NewDeliveryError(core.ValidationFailed, dest,
			fmt.Errorf("%v: %s", err, strings.TrimSpace(string(out))))
	}
	return nil
}

// validateEnv exposes the render context to the validate command plus a
// minimal carry-over of the invoking shell basics.
func validateEnv(env map[string]string) []string {
	pairs := funk.Map(env, func(k, v string) string {
		return fmt.Sprintf("%s=%s", k, v)
	}).([]string)

	carry := funk.Map([]string{"USER", "HOME", "PATH"}, func(k string) string {
		return fmt.Sprintf("%s=%s", k, os.Getenv(k))
	}).([]string)

	return append(pairs, carry...)
}

// backup copies dest aside under a timestamped name. The copy refuses to
// overwrite, so a colliding name from a same-second redelivery surfaces as
// an error instead of clobbering the earlier backup.
func (m *Manager) backup(dest string) (string, error) {
	backupPath := fmt.Sprintf("%s.%s~", dest, time.Now().Format("2006-01-02@15:04:05"))
	if err := utils.CopyFile(dest, backupPath); err != nil {
		return "", err
	}
	m.logger.WithField("backup", backupPath).Debug("kept backup of previous content")
	return backupPath, nil
}

// resolveMode picks the destination mode: an explicit octal string wins,
// else the prior file's mode, else 0644.
func resolveMode(opt, dest string, priorExists bool) (os.FileMode, error) {
	if opt != "" {
		parsed, err := strconv.ParseUint(opt, 8, 32)
		if err != nil {
			return 0, fmt.Errorf("bad mode %q: %w", opt, err)
		}
		return os.FileMode(parsed), nil
	}
	if priorExists {
		if info, err := os.Stat(dest); err == nil {
			return info.Mode().Perm(), nil
		}
	}
	return 0644, nil
}

func (m *Manager) applyMetadata(staged string, mode os.FileMode, dest string, opts core.DeliveryOptions) error {
	if err := os.Chmod(staged, mode); err != nil {
		return core.NewDeliveryError(core.PermissionDenied, dest, err)
	}

	if opts.Owner != "" || opts.Group != "" {
		uid, gid, err := lookupIDs(opts.Owner, opts.Group)
		if err != nil {
			return core.NewDeliveryError(core.CommitFailure, dest, err)
		}
		if err := os.Chown(staged, uid, gid); err != nil {
			return core.NewDeliveryError(core.PermissionDenied, dest, err)
		}
	}
	return nil
}

// lookupIDs resolves owner/group names or numeric ids; -1 leaves the
// corresponding id unchanged, per chown semantics.
func lookupIDs(owner, group string) (int, int, error) {
	uid, gid := -1, -1

	if owner != "" {
		if n, err := strconv.Atoi(owner); err == nil {
			uid = n
		} else {
			u, err := user.Lookup(owner)
			if err != nil {
				return 0, 0, err
			}
			uid, _ = strconv.Atoi(u.Uid)
		}
	}

	if group != "" {
		if n, err := strconv.Atoi(group); err == nil {
			gid = n
		} else {
			g, err := user.LookupGroup(group)
			if err != nil {
				return 0, 0, err
			}
			gid, _ = strconv.Atoi(g.Gid)
		}
	}

	return uid, gid, nil
}

func unifiedDiff(prior, artifact []byte, dest string) string {
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(prior)),
		B:        difflib.SplitLines(string(artifact)),
		FromFile: fmt.Sprintf("%s (before)", dest),
		ToFile:   fmt.Sprintf("%s (after)", dest),
		Context:  3,
	})
	if err != nil {
		return ""
	}
	return diff
}
