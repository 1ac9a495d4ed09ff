// Package programs locates assembly programs in a LODA style repository and
// resolves the programs they call.
package programs

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// ErrInvalidProgramPath is returned when a file name is not of the form
// A000045.asm.
var ErrInvalidProgramPath = errors.New("invalid program path")

// Repository is a directory tree holding one program per sequence, laid out
// as <root>/oeis/NNN/ANNNNNN.asm where NNN is the id divided by 1000.
type Repository struct {
	root string
}

func NewRepository(root string) *Repository {
	return &Repository{root: root}
}

func (r *Repository) Root() string { return r.root }

// OeisDir returns the directory holding all sequence programs.
func (r *Repository) OeisDir() string {
	return filepath.Join(r.root, "oeis")
}

// Path returns the location of the program for the given sequence id.
func (r *Repository) Path(id uint32) string {
	return filepath.Join(r.OeisDir(), fmt.Sprintf("%03d", id/1000), FileName(id))
}

// FileName returns the base name of a program file, e.g. A000045.asm.
func FileName(id uint32) string {
	return fmt.Sprintf("A%06d.asm", id)
}

// ReadProgram returns the assembly of the program for id.
func (r *Repository) ReadProgram(id uint32) (string, error) {
	data, err := os.ReadFile(r.Path(id))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// WriteProgram stores assembly for id, creating the directory if needed.
func (r *Repository) WriteProgram(id uint32, text string) error {
	path := r.Path(id)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(text), 0644)
}

// ModTime returns when the program for id was last modified.
func (r *Repository) ModTime(id uint32) (time.Time, error) {
	info, err := os.Stat(r.Path(id))
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

// ProgramIDs returns the ids of every program in the repository, sorted.
func (r *Repository) ProgramIDs() ([]uint32, error) {
	paths, err := FindAsmFiles(r.OeisDir())
	if err != nil {
		return nil, err
	}
	return ProgramIDsFromPaths(paths), nil
}

// FindAsmFiles walks dir and returns every file with the .asm extension.
func FindAsmFiles(dir string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && filepath.Ext(path) == ".asm" {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "find asm files in %s", dir)
	}
	sort.Strings(paths)
	return paths, nil
}

// ProgramIDFromPath extracts the sequence id from a path ending in A000045.asm.
func ProgramIDFromPath(path string) (uint32, error) {
	name := filepath.Base(path)
	if !strings.HasPrefix(name, "A") || !strings.HasSuffix(name, ".asm") {
		return 0, errors.Wrap(ErrInvalidProgramPath, path)
	}
	digits := strings.TrimSuffix(name[1:], ".asm")
	if len(digits) != 6 {
		return 0, errors.Wrap(ErrInvalidProgramPath, path)
	}
	id, err := strconv.ParseUint(digits, 10, 32)
	if err != nil {
		return 0, errors.Wrap(ErrInvalidProgramPath, path)
	}
	return uint32(id), nil
}

// ProgramIDsFromPaths returns the sorted ids of all paths that name a
// program. Other files are skipped.
func ProgramIDsFromPaths(paths []string) []uint32 {
	ids := make([]uint32, 0, len(paths))
	for _, path := range paths {
		if id, err := ProgramIDFromPath(path); err == nil {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
