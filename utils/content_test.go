package utils

import (
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUtils_ShouldDetectValidFileType(t *testing.T) {
	dir := t.TempDir()

	imgPath := filepath.Join(dir, "sample.png")
	f, err := os.Create(imgPath)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, image.NewGray(image.Rect(0, 0, 4, 4))))
	require.NoError(t, f.Close())

	ctype, err := DetectContentType(imgPath)
	require.NoError(t, err)
	assert.Equal(t, "image/png", ctype)
	assert.True(t, IsImageType(ctype))

	txtPath := filepath.Join(dir, "notes.jpg")
	require.NoError(t, os.WriteFile(txtPath, []byte("definitely not a jpeg"), 0644))

	ctype, err = DetectContentType(txtPath)
	require.NoError(t, err)
	assert.False(t, IsImageType(ctype))

	_, err = DetectContentType(filepath.Join(dir, "missing.png"))
	assert.Error(t, err)
}
