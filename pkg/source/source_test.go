package source

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/matzehuels/socomo/pkg/errors"
)

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
}

func writeJar(t *testing.T, path string, entries map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	zw := zip.NewWriter(f)
	for name, content := range entries {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
}

func names(as []Artifact) []string {
	out := make([]string, len(as))
	for i, a := range as {
		out[i] = a.Name()
	}
	return out
}

func TestDir(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "app", "web", "Controller.class"), []byte("abc"))
	writeFile(t, filepath.Join(root, "app", "service", "UserService.class"), []byte("abcd"))
	writeFile(t, filepath.Join(root, "app", "README.txt"), []byte("ignored"))
	writeFile(t, filepath.Join(root, ".git", "Hidden.class"), []byte("ignored"))
	writeFile(t, filepath.Join(root, "app", "package-info.class"), []byte("ignored"))

	got, err := Dir(root)
	if err != nil {
		t.Fatalf("Dir: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Dir() = %v, want 2 class files", names(got))
	}
	for _, a := range got {
		if filepath.Ext(a.Name()) != ClassExt {
			t.Errorf("unexpected artifact %s", a.Name())
		}
	}
}

func TestArchive(t *testing.T) {
	jar := filepath.Join(t.TempDir(), "app.jar")
	writeJar(t, jar, map[string]string{
		"META-INF/MANIFEST.MF":           "Manifest-Version: 1.0",
		"app/web/Controller.class":       "xyz",
		"app/web/package-info.class":     "skip",
		"module-info.class":              "skip",
		"app/service/OrderService.class": "12345",
	})

	got, err := Archive(jar)
	if err != nil {
		t.Fatalf("Archive: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Archive() = %v, want 2 entries", names(got))
	}

	data, err := ReadAll(got[0])
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if int64(len(data)) != got[0].Size() {
		t.Errorf("size = %d, read %d bytes", got[0].Size(), len(data))
	}
}

func TestArchiveNotAZip(t *testing.T) {
	bad := filepath.Join(t.TempDir(), "broken.jar")
	writeFile(t, bad, []byte("not a zip"))
	_, err := Archive(bad)
	if !errors.Is(err, errors.ErrCodeInvalidPath) {
		t.Errorf("Archive(broken) error = %v, want INVALID_PATH", err)
	}
}

func TestDiscover(t *testing.T) {
	root := t.TempDir()
	classes := filepath.Join(root, "classes")
	writeFile(t, filepath.Join(classes, "b", "B.class"), []byte("b"))
	writeFile(t, filepath.Join(classes, "a", "A.class"), []byte("a"))
	jar := filepath.Join(root, "lib.jar")
	writeJar(t, jar, map[string]string{"c/C.class": "c"})
	single := filepath.Join(root, "D.class")
	writeFile(t, single, []byte("d"))

	got, err := Discover(classes, jar, single, classes)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("Discover() = %v, want 4 unique artifacts", names(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i-1].Name() >= got[i].Name() {
			t.Errorf("artifacts not sorted: %v", names(got))
		}
	}
}

func TestDiscoverErrors(t *testing.T) {
	root := t.TempDir()
	other := filepath.Join(root, "notes.txt")
	writeFile(t, other, []byte("x"))

	tests := []struct {
		name  string
		paths []string
		code  errors.Code
	}{
		{"no paths", nil, errors.ErrCodeInvalidInput},
		{"missing", []string{filepath.Join(root, "missing")}, errors.ErrCodeInvalidPath},
		{"empty path", []string{""}, errors.ErrCodeInvalidPath},
		{"unsupported file", []string{other}, errors.ErrCodeInvalidPath},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Discover(tt.paths...)
			if !errors.Is(err, tt.code) {
				t.Errorf("Discover() error = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestBytes(t *testing.T) {
	a := Bytes("mem/Foo.class", []byte("hello"))
	if a.Name() != "mem/Foo.class" || a.Size() != 5 {
		t.Errorf("Bytes() = %s/%d", a.Name(), a.Size())
	}
	for range 2 {
		rc, err := a.Open()
		if err != nil {
			t.Fatal(err)
		}
		data, _ := io.ReadAll(rc)
		rc.Close()
		if string(data) != "hello" {
			t.Errorf("content = %q, want hello", data)
		}
	}
}

func TestFile(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "X.class")
	writeFile(t, p, []byte("xx"))
	a, err := File(p)
	if err != nil {
		t.Fatalf("File: %v", err)
	}
	if a.Size() != 2 {
		t.Errorf("Size() = %d, want 2", a.Size())
	}
	if _, err := File(dir); !errors.Is(err, errors.ErrCodeInvalidPath) {
		t.Errorf("File(dir) error = %v, want INVALID_PATH", err)
	}
}
