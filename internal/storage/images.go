package storage

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// MaxIllustrationSize bounds a single illustration upload.
const MaxIllustrationSize = 10 << 20 // 10 MB

var (
	allowedExtensions = map[string]bool{
		".png": true, ".jpg": true, ".jpeg": true,
		".gif": true, ".webp": true, ".svg": true,
	}

	mimeToExt = map[string]string{
		"image/png":     ".png",
		"image/jpeg":    ".jpg",
		"image/gif":     ".gif",
		"image/webp":    ".webp",
		"image/svg+xml": ".svg",
	}

	safeFilenameRe = regexp.MustCompile(`[^a-zA-Z0-9._-]`)
)

// ExtensionForMIME maps an image MIME type to its file extension, or "".
func ExtensionForMIME(mime string) string {
	return mimeToExt[strings.TrimSpace(strings.Split(mime, ";")[0])]
}

// SanitizeName strips directories and unsafe characters from a client
// supplied file name. An empty result is replaced with a random name
// carrying fallbackExt.
func SanitizeName(name, fallbackExt string) string {
	name = filepath.Base(name)
	name = safeFilenameRe.ReplaceAllString(name, "_")
	if name == "" || name == "." || name == "_" || strings.HasPrefix(name, "..") {
		if fallbackExt == "" {
			fallbackExt = ".bin"
		}
		name = uuid.New().String() + fallbackExt
	}
	return name
}

// ValidateIllustration checks size, extension and that the content matches
// the extension.
func ValidateIllustration(name string, data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("empty file")
	}
	if len(data) > MaxIllustrationSize {
		return fmt.Errorf("file too large: %d bytes (max %d)", len(data), MaxIllustrationSize)
	}
	ext := strings.ToLower(filepath.Ext(name))
	if !allowedExtensions[ext] {
		return fmt.Errorf("unsupported file extension: %q (allowed: png, jpg, jpeg, gif, webp, svg)", ext)
	}

	if ext == ".svg" {
		prefix := data
		if len(prefix) > 1024 {
			prefix = prefix[:1024]
		}
		if !bytes.Contains(prefix, []byte("<svg")) {
			return fmt.Errorf("content does not appear to be a valid SVG (missing <svg tag)")
		}
		return nil
	}

	detected := http.DetectContentType(data)
	detectedExt := ExtensionForMIME(detected)
	switch ext {
	case ".jpg", ".jpeg":
		if detectedExt != ".jpg" {
			return fmt.Errorf("content does not match extension %s (detected: %s)", ext, detected)
		}
	default:
		if detectedExt != ext {
			return fmt.Errorf("content does not match extension %s (detected: %s)", ext, detected)
		}
	}
	return nil
}

// Checksum returns the hex-encoded SHA-256 digest of an illustration. It is
// used as the strong ETag of the served file.
func Checksum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
