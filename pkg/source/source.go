package source

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/matzehuels/socomo/pkg/errors"
)

// ClassExt is the file extension of compiled JVM classes.
const ClassExt = ".class"

// Artifact is one compiled code artifact.
//
// Name identifies the artifact in diagnostics; it is not the unit name,
// which the scanner reads from the content. Open may be called more than
// once and from multiple goroutines.
type Artifact interface {
	Name() string
	Size() int64
	Open() (io.ReadCloser, error)
}

// =============================================================================
// File artifacts
// =============================================================================

type fileArtifact struct {
	path string
	size int64
}

func (a fileArtifact) Name() string                 { return a.path }
func (a fileArtifact) Size() int64                  { return a.size }
func (a fileArtifact) Open() (io.ReadCloser, error) { return os.Open(a.path) }

// File returns an artifact for a single class file on disk.
func File(path string) (Artifact, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "stat %s", path)
	}
	if info.IsDir() {
		return nil, errors.New(errors.ErrCodeInvalidPath, "%s is a directory", path)
	}
	return fileArtifact{path: path, size: info.Size()}, nil
}

// Dir walks root and returns an artifact for every .class file below it.
// Hidden directories (starting with ".") are skipped.
func Dir(root string) ([]Artifact, error) {
	var out []Artifact
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(d.Name(), ClassExt) || isDescriptorClass(d.Name()) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		out = append(out, fileArtifact{path: path, size: info.Size()})
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "walk %s", root)
	}
	return out, nil
}

// isDescriptorClass reports whether base is a module-info or package-info
// class, which describe no unit of code.
func isDescriptorClass(base string) bool {
	return base == "module-info.class" || base == "package-info.class"
}

// =============================================================================
// Archive artifacts
// =============================================================================

type zipArtifact struct {
	name string
	f    *zip.File
}

func (a zipArtifact) Name() string                 { return a.name }
func (a zipArtifact) Size() int64                  { return int64(a.f.UncompressedSize64) }
func (a zipArtifact) Open() (io.ReadCloser, error) { return a.f.Open() }

// Archive returns an artifact for every .class entry of a jar or zip file.
// Entry names are reported as "archive.jar!/com/example/Foo.class".
// The archive is read into memory, so the returned artifacts do not hold
// an open file handle.
func Archive(path string) ([]Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "read archive %s", path)
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "open archive %s", path)
	}

	var out []Artifact
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || !strings.HasSuffix(f.Name, ClassExt) {
			continue
		}
		if isDescriptorClass(f.Name[strings.LastIndex(f.Name, "/")+1:]) {
			continue
		}
		out = append(out, zipArtifact{name: path + "!/" + f.Name, f: f})
	}
	return out, nil
}

// =============================================================================
// In-memory artifacts
// =============================================================================

type memArtifact struct {
	name string
	data []byte
}

func (a memArtifact) Name() string { return a.name }
func (a memArtifact) Size() int64  { return int64(len(a.data)) }
func (a memArtifact) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(a.data)), nil
}

// Bytes returns an in-memory artifact. The data slice is not copied and
// must not be modified afterwards.
func Bytes(name string, data []byte) Artifact {
	return memArtifact{name: name, data: data}
}

// =============================================================================
// Discovery
// =============================================================================

// IsArchive reports whether path names a jar or zip file.
func IsArchive(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".jar" || ext == ".zip"
}

// Discover collects artifacts from a mix of directories, archives and class
// files. The result is sorted by artifact name and contains no duplicates.
func Discover(paths ...string) ([]Artifact, error) {
	if len(paths) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "no bytecode path given")
	}

	var all []Artifact
	for _, p := range paths {
		if err := errors.ValidatePath(p); err != nil {
			return nil, err
		}
		info, err := os.Stat(p)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "stat %s", p)
		}

		var found []Artifact
		switch {
		case info.IsDir():
			found, err = Dir(p)
		case IsArchive(p):
			found, err = Archive(p)
		case strings.HasSuffix(p, ClassExt):
			found = []Artifact{fileArtifact{path: p, size: info.Size()}}
		default:
			err = errors.New(errors.ErrCodeInvalidPath, "%s is neither a directory, an archive nor a class file", p)
		}
		if err != nil {
			return nil, err
		}
		all = append(all, found...)
	}

	slices.SortFunc(all, func(a, b Artifact) int { return strings.Compare(a.Name(), b.Name()) })
	return slices.CompactFunc(all, func(a, b Artifact) bool { return a.Name() == b.Name() }), nil
}

// ReadAll opens a and returns its full content.
func ReadAll(a Artifact) ([]byte, error) {
	rc, err := a.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", a.Name(), err)
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
