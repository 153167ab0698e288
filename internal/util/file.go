package util

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

var MaterialMimeTypes = []string{MimeImage, MimeVideo, MimePDF, "text/plain", "application/zip"}

// ValidateMimeType 按文件头嗅探 MIME 类型，allowedTypes 支持前缀（如 "image/"）
func ValidateMimeType(reader io.Reader, allowedTypes []string) (string, error) {
	buffer := make([]byte, 512)
	n, err := reader.Read(buffer)
	if err != nil && err != io.EOF {
		return "", err
	}

	mimeType := http.DetectContentType(buffer[:n])
	for _, allowed := range allowedTypes {
		if strings.HasPrefix(mimeType, allowed) {
			return mimeType, nil
		}
	}

	return mimeType, errors.New("invalid file type: " + mimeType)
}

// MaterialObjectKey 生成课程资料的存储路径：materials/<courseID>/<yyyymm>/<uuid><ext>
func MaterialObjectKey(courseID uint, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	return fmt.Sprintf("materials/%d/%s/%s%s", courseID, time.Now().Format("200601"), uuid.New().String(), ext)
}
