package fortune

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Mamog1381/fortune/internal/common"
)

const maxImageSizeMB = 10

var supportedImageExts = map[string]string{
	".jpg":  "jpeg",
	".jpeg": "jpeg",
	".png":  "png",
	".webp": "webp",
}

// ValidateImageUpload rejects unsupported formats and oversized files before
// anything is persisted.
func ValidateImageUpload(filename string, size int64) error {
	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := supportedImageExts[ext]; !ok {
		return common.Validationf("unsupported image format, allowed: jpg, jpeg, png, webp")
	}
	if size > maxImageSizeMB*1024*1024 {
		return common.Validationf("image too large, maximum size: %dMB", maxImageSizeMB)
	}
	return nil
}

// imageDataURL reads the stored image and encodes it as an inline base64 data
// URL for vision model requests.
func imageDataURL(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	mime, ok := supportedImageExts[ext]
	if !ok {
		return "", fmt.Errorf("unsupported image format %q", ext)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	return fmt.Sprintf("data:image/%s;base64,%s", mime, base64.StdEncoding.EncodeToString(raw)), nil
}
