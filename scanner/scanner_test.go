package scanner

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestScan(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "statements/Bank_Statement Sep 25.pdf", "alpha")
	writeFile(t, root, "statements/copy.pdf", "alpha")
	writeFile(t, root, "readme.txt", "beta")

	files, err := Scan(context.Background(), root)
	require.NoError(t, err)
	require.Len(t, files, 3)

	byName := map[string]FileInfo{}
	for _, f := range files {
		byName[f.FileName] = f
	}

	stmt := byName["Bank_Statement Sep 25"]
	assert.Equal(t, "PDF", stmt.FileType)
	assert.Equal(t, "statements", stmt.FolderPath)
	assert.Equal(t, "statements", stmt.FolderName)
	assert.Equal(t, int64(5), stmt.Size)
	assert.False(t, stmt.ModifiedAt.IsZero())

	readme := byName["readme"]
	assert.Equal(t, "TXT", readme.FileType)
	assert.Equal(t, "", readme.FolderPath)

	// Identical content hashes identically; that is what duplicate
	// grouping keys on.
	sum := sha256.Sum256([]byte("alpha"))
	assert.Equal(t, hex.EncodeToString(sum[:]), stmt.Hash)
	assert.Equal(t, stmt.Hash, byName["copy"].Hash)
	assert.NotEqual(t, stmt.Hash, readme.Hash)
}

func TestScanMissingRoot(t *testing.T) {
	_, err := Scan(context.Background(), filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestScanNotADirectory(t *testing.T) {
	root := t.TempDir()
	path := writeFile(t, root, "file.txt", "x")
	_, err := Scan(context.Background(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")
}

func TestScanCancelled(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.txt", "x")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Scan(ctx, root)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCount(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a/b/one.txt", "1")
	writeFile(t, root, "a/two.txt", "2")
	writeFile(t, root, "three.txt", "3")

	n, err := Count(root)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestDeriveDocumentType(t *testing.T) {
	assert.Equal(t, "Bank Statement", DeriveDocumentType("Chase Bank_Statement Sep 25"))
	assert.Equal(t, "Credit Card Statement", DeriveDocumentType("credit-card-statement-oct"))
	assert.Equal(t, "Retirement Statement", DeriveDocumentType("Retirement_Statement 2024"))
	assert.Equal(t, "Discovery Request", DeriveDocumentType("Discovery_Document 003"))
	assert.Equal(t, "Document", DeriveDocumentType("vacation photo"))
}

func TestExtractMonthYear(t *testing.T) {
	assert.Equal(t, "Sep 25", extractMonthYear("Bank_Statement Sep 25"))
	assert.Equal(t, "Sep 25", extractMonthYear("statement_sep25"))
	assert.Equal(t, "Oct 2024", extractMonthYear("October 2024 export"))
	assert.Equal(t, "", extractMonthYear("no date here"))
	assert.Equal(t, "", extractMonthYear("maybe 2"))
}

func TestDescribe(t *testing.T) {
	meta := DeriveMeta(FileInfo{FileName: "Joint Retirement_Statement Sep 25", FileType: "PDF"})
	assert.Equal(t, "Retirement Statement", meta.DocumentType)
	assert.Equal(t, "Joint Retirement Account Statement Sep 25 PDF", meta.Description)

	meta = DeriveMeta(FileInfo{FileName: "Bank_Statement Sep 25", FileType: "CSV"})
	assert.Equal(t, "Bank Statement Sep 25_CSV", meta.Description)
}
