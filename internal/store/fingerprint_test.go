package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprintDeterministic(t *testing.T) {
	data := []byte("Date,Easting,Northing,Depth,Magnitude\n")

	fp1 := Fingerprint(data)
	fp2 := Fingerprint(data)

	assert.Equal(t, fp1, fp2)
	assert.Len(t, fp1, 32)
}

func TestFingerprintSensitiveToContent(t *testing.T) {
	a := Fingerprint([]byte("a"))
	b := Fingerprint([]byte("b"))
	assert.NotEqual(t, a, b)
}

func TestFingerprintEmpty(t *testing.T) {
	assert.Len(t, Fingerprint(nil), 32)
	assert.Equal(t, Fingerprint(nil), Fingerprint([]byte{}))
}

func TestFingerprintFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "input.csv")
	content := []byte("month,Events\n2019-01,3\n")
	require.NoError(t, os.WriteFile(path, content, 0644))

	fp, err := FingerprintFile(path)
	require.NoError(t, err)
	assert.Equal(t, Fingerprint(content), fp)
}

func TestFingerprintFileMissing(t *testing.T) {
	_, err := FingerprintFile(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}
