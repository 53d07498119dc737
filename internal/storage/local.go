package storage

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
)

// Folder is one of the directories a post file can live in.
type Folder string

const (
	Inbox         Folder = "inbox"
	Drafts        Folder = "drafts"
	ToBePublished Folder = "to-be-published"
	Published     Folder = "published"
)

// ErrInvalidName is returned for file names that would resolve outside a folder.
var ErrInvalidName = errors.New("invalid file name")

type LocalStorage struct {
	dirs map[Folder]string
}

// NewLocalStorage creates the drafts, to-be-published and published folders
// under basePath. The inbox is an external folder and is only created when
// files are uploaded into it.
func NewLocalStorage(basePath, inboxPath string) (*LocalStorage, error) {
	s := &LocalStorage{dirs: map[Folder]string{
		Inbox:         inboxPath,
		Drafts:        filepath.Join(basePath, string(Drafts)),
		ToBePublished: filepath.Join(basePath, string(ToBePublished)),
		Published:     filepath.Join(basePath, string(Published)),
	}}

	for _, f := range []Folder{Drafts, ToBePublished, Published} {
		if err := os.MkdirAll(s.dirs[f], 0755); err != nil {
			return nil, fmt.Errorf("failed to create %s folder: %w", f, err)
		}
	}
	return s, nil
}

func (s *LocalStorage) Dir(f Folder) string {
	return s.dirs[f]
}

// CleanName rejects names that are not a bare file name, so callers cannot
// reach outside a folder.
func CleanName(name string) (string, error) {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) || name != filepath.Base(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return name, nil
}

func (s *LocalStorage) Path(f Folder, name string) (string, error) {
	clean, err := CleanName(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.dirs[f], clean), nil
}

func (s *LocalStorage) Exists(f Folder, name string) (bool, error) {
	path, err := s.Path(f, name)
	if err != nil {
		return false, err
	}

	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

// List returns the regular files of a folder sorted by name.
func (s *LocalStorage) List(f Folder) ([]string, error) {
	entries, err := os.ReadDir(s.dirs[f])
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Move moves name from one folder to another, replacing any file of the same
// name at the destination.
func (s *LocalStorage) Move(from, to Folder, name string) error {
	src, err := s.Path(from, name)
	if err != nil {
		return err
	}
	dst, err := s.Path(to, name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.dirs[to], 0755); err != nil {
		return err
	}
	return moveFile(src, dst)
}

func (s *LocalStorage) Remove(f Folder, name string) error {
	path, err := s.Path(f, name)
	if err != nil {
		return err
	}
	return os.Remove(path)
}

func (s *LocalStorage) ReadFile(f Folder, name string) ([]byte, error) {
	path, err := s.Path(f, name)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(path)
}

func (s *LocalStorage) WriteFile(f Folder, name string, data []byte) error {
	path, err := s.Path(f, name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.dirs[f], 0755); err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return err
	}
	slog.Debug("file saved", "path", path)
	return nil
}

func moveFile(src, dst string) error {
	err := os.Rename(src, dst)
	if err == nil || !errors.Is(err, syscall.EXDEV) {
		return err
	}

	// Cross-device: copy then remove.
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}
