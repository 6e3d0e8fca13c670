package filestore_test

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/atlasforge/atlasforge/pkg/filestore"
)

// stores lets every test run against both implementations
func stores(t *testing.T, test func(t *testing.T, store filestore.FileStore, root string)) {
	t.Run("os", func(t *testing.T) {
		test(t, filestore.NewOSFileStore(), t.TempDir())
	})
	t.Run("memory", func(t *testing.T) {
		mem := filestore.NewMemoryFileStore()
		if err := mem.CreateDirectory("root"); err != nil {
			t.Fatal(err)
		}
		test(t, mem, "root")
	})
}

func TestWriteReadRoundTrip(t *testing.T) {
	stores(t, func(t *testing.T, store filestore.FileStore, root string) {
		path := filepath.Join(root, "nested", "dir", "file.txt")
		content := []byte("hello atlasforge")

		if err := store.WriteFile(path, content); err != nil {
			t.Fatal(err)
		}
		if !store.Exists(path) {
			t.Error("expected file to exist after write")
		}
		// Parents are created implicitly.
		if !store.IsDirectory(filepath.Join(root, "nested", "dir")) {
			t.Error("expected parent directories to exist")
		}

		got, err := store.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(got, content) {
			t.Errorf("read back %q, want %q", got, content)
		}
	})
}

func TestReadMissingFile(t *testing.T) {
	stores(t, func(t *testing.T, store filestore.FileStore, root string) {
		if _, err := store.ReadFile(filepath.Join(root, "ghost.txt")); err == nil {
			t.Error("expected an error reading a missing file")
		}
	})
}

func TestCopyFile(t *testing.T) {
	stores(t, func(t *testing.T, store filestore.FileStore, root string) {
		src := filepath.Join(root, "src.bin")
		dst := filepath.Join(root, "out", "dst.bin")
		content := []byte{0x00, 0x01, 0xff}

		if err := store.WriteFile(src, content); err != nil {
			t.Fatal(err)
		}
		if err := store.CopyFile(src, dst); err != nil {
			t.Fatal(err)
		}

		got, err := store.ReadFile(dst)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(got, content) {
			t.Errorf("copy produced %v, want %v", got, content)
		}
	})
}

func TestRemoveFileAndDirectory(t *testing.T) {
	stores(t, func(t *testing.T, store filestore.FileStore, root string) {
		sub := filepath.Join(root, "sub")
		file := filepath.Join(sub, "a.txt")

		if err := store.WriteFile(file, []byte("x")); err != nil {
			t.Fatal(err)
		}
		if err := store.RemoveFile(file); err != nil {
			t.Fatal(err)
		}
		if store.Exists(file) {
			t.Error("file still exists after RemoveFile")
		}

		if err := store.WriteFile(filepath.Join(sub, "deep", "b.txt"), []byte("y")); err != nil {
			t.Fatal(err)
		}
		if err := store.RemoveDirectory(sub); err != nil {
			t.Fatal(err)
		}
		if store.Exists(filepath.Join(sub, "deep", "b.txt")) {
			t.Error("nested file survived RemoveDirectory")
		}
	})
}

func TestListEntries(t *testing.T) {
	stores(t, func(t *testing.T, store filestore.FileStore, root string) {
		if err := store.WriteFile(filepath.Join(root, "a.txt"), []byte("a")); err != nil {
			t.Fatal(err)
		}
		if err := store.WriteFile(filepath.Join(root, "sub", "b.txt"), []byte("b")); err != nil {
			t.Fatal(err)
		}

		entries, err := store.ListEntries(root)
		if err != nil {
			t.Fatal(err)
		}

		byName := make(map[string]bool)
		for _, e := range entries {
			byName[e.Name] = e.IsDirectory
		}
		if isDir, ok := byName["a.txt"]; !ok || isDir {
			t.Errorf("a.txt: got (present=%v, dir=%v), want plain file", ok, isDir)
		}
		if isDir, ok := byName["sub"]; !ok || !isDir {
			t.Errorf("sub: got (present=%v, dir=%v), want directory", ok, isDir)
		}
		// Only immediate members are listed.
		if _, ok := byName["b.txt"]; ok {
			t.Error("nested file leaked into the parent listing")
		}
	})
}

func TestStat(t *testing.T) {
	stores(t, func(t *testing.T, store filestore.FileStore, root string) {
		path := filepath.Join(root, "file.bin")
		if err := store.WriteFile(path, make([]byte, 42)); err != nil {
			t.Fatal(err)
		}

		info, err := store.Stat(path)
		if err != nil {
			t.Fatal(err)
		}
		if info.Size != 42 {
			t.Errorf("size: got %d, want 42", info.Size)
		}
		if info.ModifiedTime.IsZero() {
			t.Error("expected a non-zero modification time")
		}
	})
}

func TestWalkVisitsEverything(t *testing.T) {
	stores(t, func(t *testing.T, store filestore.FileStore, root string) {
		files := []string{
			filepath.Join(root, "a.txt"),
			filepath.Join(root, "sub", "b.txt"),
			filepath.Join(root, "sub", "deep", "c.txt"),
		}
		for _, f := range files {
			if err := store.WriteFile(f, []byte("x")); err != nil {
				t.Fatal(err)
			}
		}

		visited := make(map[string]bool)
		err := store.Walk(root, func(path string, isDir bool) error {
			if !isDir {
				visited[path] = true
			}
			return nil
		})
		if err != nil {
			t.Fatal(err)
		}

		for _, f := range files {
			if !visited[filepath.ToSlash(f)] && !visited[f] {
				t.Errorf("walk did not visit %s", f)
			}
		}
	})
}

func TestWriteFileOverwrites(t *testing.T) {
	stores(t, func(t *testing.T, store filestore.FileStore, root string) {
		path := filepath.Join(root, "file.txt")
		if err := store.WriteFile(path, []byte("first")); err != nil {
			t.Fatal(err)
		}
		if err := store.WriteFile(path, []byte("second")); err != nil {
			t.Fatal(err)
		}

		got, err := store.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		if string(got) != "second" {
			t.Errorf("got %q after overwrite, want %q", got, "second")
		}
	})
}
