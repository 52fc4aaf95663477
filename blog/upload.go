package blog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

var allowedImageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// saveUploadedImage stores the optional "image" form file under the upload
// directory and returns the stored path. A request without an image is not
// an error: it returns an empty path.
func saveUploadedImage(c *gin.Context) (string, error) {
	file, err := c.FormFile("image")
	if err != nil {
		return "", nil
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedImageExts[ext] {
		return "", fmt.Errorf("unsupported image type %q", ext)
	}

	uploadDir := os.Getenv("UPLOAD_DIR")
	if uploadDir == "" {
		uploadDir = filepath.Join("uploads", "posts")
	}
	if err := os.MkdirAll(uploadDir, 0755); err != nil {
		return "", err
	}

	path := filepath.Join(uploadDir, uuid.New().String()+ext)
	if err := c.SaveUploadedFile(file, path); err != nil {
		return "", err
	}
	return path, nil
}
