package codetree

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mvp-joe/jarmeta/internal/classfile"
)

// ArchiveError reports an archive that could not be opened, read or parsed.
// It is fatal for the run.
type ArchiveError struct {
	Path  string
	Entry string // empty when the archive itself failed
	Err   error
}

func (e *ArchiveError) Error() string {
	if e.Entry != "" {
		return fmt.Sprintf("archive %s: entry %s: %v", e.Path, e.Entry, e.Err)
	}
	return fmt.Sprintf("archive %s: %v", e.Path, e.Err)
}

func (e *ArchiveError) Unwrap() error { return e.Err }

// ArchiveKey identifies one version of an archive on disk.
type ArchiveKey struct {
	Path    string
	Size    int64
	ModTime int64
}

// ArchiveCache stores parsed library archives between runs.
// Cached records must be treated as read-only.
type ArchiveCache interface {
	Get(key ArchiveKey) ([]*classfile.ClassInfo, bool)
	Set(key ArchiveKey, classes []*classfile.ClassInfo)
}

// isClassEntry reports whether a zip entry should be parsed as a class.
func isClassEntry(name string) bool {
	if !strings.HasSuffix(name, ".class") {
		return false
	}
	if strings.HasPrefix(name, "META-INF/") {
		// multi-release overlays and signatures
		return false
	}
	base := name[strings.LastIndex(name, "/")+1:]
	return base != "module-info.class"
}

// readArchive parses every class entry in the archive at path, in entry order.
// Primary archives are read into memory once and their SHA-256 digest is
// returned, so the digest always describes the bytes that were parsed.
func (t *Tree) readArchive(ctx context.Context, path string, origin Origin) ([]*classfile.ClassInfo, string, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return nil, "", &ArchiveError{Path: path, Err: err}
	}
	key := ArchiveKey{Path: path, Size: stat.Size(), ModTime: stat.ModTime().UnixNano()}
	cacheable := t.cache != nil && origin == OriginLibrary
	if cacheable {
		if classes, ok := t.cache.Get(key); ok {
			return classes, "", nil
		}
	}

	var (
		zr     *zip.Reader
		digest string
	)
	if origin == OriginPrimary {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, "", &ArchiveError{Path: path, Err: err}
		}
		sum := sha256.Sum256(data)
		digest = hex.EncodeToString(sum[:])
		zr, err = zip.NewReader(bytes.NewReader(data), int64(len(data)))
		if err != nil {
			return nil, "", &ArchiveError{Path: path, Err: err}
		}
	} else {
		rc, err := zip.OpenReader(path)
		if err != nil {
			return nil, "", &ArchiveError{Path: path, Err: err}
		}
		defer rc.Close()
		zr = &rc.Reader
	}

	var classes []*classfile.ClassInfo
	for _, f := range zr.File {
		if err := ctx.Err(); err != nil {
			return nil, "", err
		}
		if f.FileInfo().IsDir() || !isClassEntry(f.Name) {
			continue
		}
		info, err := readEntry(f)
		if err != nil {
			return nil, "", &ArchiveError{Path: path, Entry: f.Name, Err: err}
		}
		classes = append(classes, info)
	}

	if cacheable {
		t.cache.Set(key, classes)
	}
	return classes, digest, nil
}

func readEntry(f *zip.File) (*classfile.ClassInfo, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, err
	}
	return classfile.Parse(data)
}
