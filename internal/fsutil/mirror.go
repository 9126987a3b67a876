package fsutil

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// MirrorStats summarizes a Mirror call.
type MirrorStats struct {
	Dirs     int
	Files    int
	Bytes    int64
	Ignored  int
	Dangling int
	Skipped  int
}

// Mirror copies the tree rooted at src into dst. Existing directories are
// reused and existing files are overwritten. Entries whose base name is in
// ignore are skipped at every depth. Symlinks are followed and their targets
// copied; dangling symlinks are skipped. Anything that is neither a
// directory nor a regular file (sockets, devices, pipes) is skipped.
func Mirror(src, dst string, ignore []string) (MirrorStats, error) {
	var stats MirrorStats

	srcInfo, err := os.Stat(src)
	if err != nil {
		return stats, fmt.Errorf("failed to stat mirror source: %w", err)
	}
	if !srcInfo.IsDir() {
		return stats, fmt.Errorf("mirror source %s is not a directory", src)
	}

	if err := os.MkdirAll(dst, srcInfo.Mode().Perm()|0o700); err != nil {
		return stats, fmt.Errorf("failed to create mirror destination: %w", err)
	}
	dstInfo, err := os.Stat(dst)
	if err != nil {
		return stats, fmt.Errorf("failed to stat mirror destination: %w", err)
	}

	m := &mirror{
		ignored: make(map[string]struct{}, len(ignore)),
		dstInfo: dstInfo,
		stats:   &stats,
	}
	for _, name := range ignore {
		m.ignored[name] = struct{}{}
	}

	stats.Dirs++
	err = m.copyDir(src, dst, []os.FileInfo{srcInfo})
	return stats, err
}

type mirror struct {
	ignored map[string]struct{}
	// dstInfo lets the walk skip the destination when it lives inside the source.
	dstInfo os.FileInfo
	stats   *MirrorStats
}

// copyDir copies the entries of src into the existing directory dst.
// ancestors holds the directories on the current path and guards against
// symlink cycles.
func (m *mirror) copyDir(src, dst string, ancestors []os.FileInfo) error {
	entries, err := os.ReadDir(src)
	if err != nil {
		return fmt.Errorf("failed to read directory %s: %w", src, err)
	}

	for _, entry := range entries {
		name := entry.Name()
		if _, skip := m.ignored[name]; skip {
			m.stats.Ignored++
			continue
		}

		srcPath := filepath.Join(src, name)
		dstPath := filepath.Join(dst, name)

		info, err := os.Stat(srcPath)
		if err != nil {
			// A link that does not resolve, missing target or loop alike, is dangling.
			if entry.Type()&fs.ModeSymlink != 0 {
				m.stats.Dangling++
				continue
			}
			return fmt.Errorf("failed to stat %s: %w", srcPath, err)
		}

		switch {
		case info.IsDir():
			if os.SameFile(info, m.dstInfo) {
				continue
			}
			for _, a := range ancestors {
				if os.SameFile(info, a) {
					return fmt.Errorf("symlink cycle at %s", srcPath)
				}
			}
			if err := os.MkdirAll(dstPath, info.Mode().Perm()|0o700); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", dstPath, err)
			}
			m.stats.Dirs++
			if err := m.copyDir(srcPath, dstPath, append(ancestors, info)); err != nil {
				return err
			}
		case info.Mode().IsRegular():
			n, err := copyFile(srcPath, dstPath, info)
			if err != nil {
				return err
			}
			m.stats.Files++
			m.stats.Bytes += n
		default:
			m.stats.Skipped++
		}
	}
	return nil
}

// CopyFile copies the regular file src to dst, creating dst's parent
// directories as needed. It returns the number of bytes written.
func CopyFile(src, dst string) (int64, error) {
	info, err := os.Stat(src)
	if err != nil {
		return 0, fmt.Errorf("failed to stat %s: %w", src, err)
	}
	if !info.Mode().IsRegular() {
		return 0, fmt.Errorf("%s is not a regular file", src)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return 0, fmt.Errorf("failed to create directory for %s: %w", dst, err)
	}
	return copyFile(src, dst, info)
}

// copyFile copies one regular file, keeping its permission bits and
// modification time.
func copyFile(src, dst string, info os.FileInfo) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", dst, err)
	}

	n, err := io.Copy(out, in)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return n, fmt.Errorf("failed to copy %s: %w", src, err)
	}

	if err := os.Chmod(dst, info.Mode().Perm()); err != nil {
		return n, fmt.Errorf("failed to set mode on %s: %w", dst, err)
	}
	if err := os.Chtimes(dst, info.ModTime(), info.ModTime()); err != nil {
		return n, fmt.Errorf("failed to set times on %s: %w", dst, err)
	}
	return n, nil
}
