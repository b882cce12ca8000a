package utils

import (
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// DetectContentType detects the file type by reading MIME type information of the file content.
func DetectContentType(fname string) (string, error) {
	mtype, err := mimetype.DetectFile(fname)
	if err != nil {
		return "", fmt.Errorf("unable to detect the content type of %s: %w", fname, err)
	}
	return mtype.String(), nil
}

// IsImageType reports whether the MIME type belongs to the image family.
func IsImageType(ctype string) bool {
	return strings.HasPrefix(ctype, "image/")
}
