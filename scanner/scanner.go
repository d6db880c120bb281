// Package scanner walks case source folders and produces the file metadata
// the backend ingests: names, relative folder paths, types, sizes,
// timestamps and content hashes for duplicate detection.
package scanner

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

// FileInfo describes one regular file under a scanned root.
type FileInfo struct {
	FileName     string // base name without extension
	FolderName   string // immediate parent folder name
	FolderPath   string // parent path relative to the scan root, "/" separated
	AbsolutePath string
	FileType     string // upper-cased extension without the dot, "" if none
	Size         int64
	ModifiedAt   time.Time
	Hash         string // hex SHA-256 of the content
}

// Scan walks root recursively and returns every regular file, content hash
// included. Symlinks and other non-regular entries are skipped. The context
// is checked between files so large trees can be abandoned.
func Scan(ctx context.Context, root string) ([]FileInfo, error) {
	if err := checkDir(root); err != nil {
		return nil, err
	}
	var files []FileInfo
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := statFile(root, path, d)
		if err != nil {
			return err
		}
		hash, err := HashFile(path)
		if err != nil {
			return err
		}
		info.Hash = hash
		files = append(files, info)
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "scanning %s", root)
	}
	return files, nil
}

// Count returns the number of regular files under root without hashing them.
// Used for pre-ingestion progress estimates.
func Count(root string) (int, error) {
	if err := checkDir(root); err != nil {
		return 0, err
	}
	var n int
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			n++
		}
		return nil
	})
	if err != nil {
		return 0, errors.Wrapf(err, "counting %s", root)
	}
	return n, nil
}

// HashFile returns the hex SHA-256 of the file's content, streamed so large
// evidence files do not load into memory.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.Wrapf(err, "hashing %s", path)
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", errors.Wrapf(err, "hashing %s", path)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func checkDir(root string) error {
	info, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.Newf("path does not exist: %s", root)
		}
		return errors.Wrapf(err, "stat %s", root)
	}
	if !info.IsDir() {
		return errors.Newf("not a directory: %s", root)
	}
	return nil
}

func statFile(root, path string, d fs.DirEntry) (FileInfo, error) {
	fi, err := d.Info()
	if err != nil {
		return FileInfo{}, errors.Wrapf(err, "stat %s", path)
	}

	base := filepath.Base(path)
	ext := filepath.Ext(base)
	name := strings.TrimSuffix(base, ext)
	fileType := strings.ToUpper(strings.TrimPrefix(ext, "."))

	parent := filepath.Dir(path)
	folderPath, err := filepath.Rel(root, parent)
	if err != nil || folderPath == "." {
		folderPath = ""
	}
	folderPath = filepath.ToSlash(folderPath)

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	return FileInfo{
		FileName:     name,
		FolderName:   filepath.Base(parent),
		FolderPath:   folderPath,
		AbsolutePath: abs,
		FileType:     fileType,
		Size:         fi.Size(),
		ModifiedAt:   fi.ModTime(),
	}, nil
}
