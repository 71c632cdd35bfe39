package utils

import (
	"context"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"google.golang.org/api/option"
)

// NewGCSClient opens a storage client with the service-account key at
// credentialsPath.
func NewGCSClient(ctx context.Context, credentialsPath string) (*storage.Client, error) {
	return storage.NewClient(ctx, option.WithCredentialsFile(credentialsPath))
}

var allowedAvatarExt = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

// UploadAvatarToGCS stores a profile picture under
// avatars/<username-slug>/<uuid><ext> and returns its public URL.
func UploadAvatarToGCS(
	ctx context.Context,
	client *storage.Client,
	bucketName string,
	username string,
	fileHeader *multipart.FileHeader,
) (string, error) {

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if !allowedAvatarExt[ext] {
		return "", fmt.Errorf("file type not allowed (allowed: jpg, jpeg, png, webp)")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return "", err
	}
	defer file.Close()

	// Sniff the real content type, don't trust the extension alone.
	buffer := make([]byte, 512)
	if _, err := file.Read(buffer); err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read file header")
	}
	if _, err := file.Seek(0, 0); err != nil {
		return "", fmt.Errorf("failed to reset file reader")
	}
	detected := strings.ToLower(http.DetectContentType(buffer))
	if !strings.HasPrefix(detected, "image/") {
		return "", fmt.Errorf("invalid file type")
	}

	objectName := fmt.Sprintf("avatars/%s/%s%s", GenerateSlug(username), uuid.New().String(), ext)

	ctx, cancel := context.WithTimeout(ctx, 50*time.Second)
	defer cancel()

	writer := client.Bucket(bucketName).Object(objectName).NewWriter(ctx)

	ct := fileHeader.Header.Get("Content-Type")
	if ct == "" {
		ct = mime.TypeByExtension(ext)
		if ct == "" {
			ct = "application/octet-stream"
		}
	}
	writer.ContentType = ct
	writer.CacheControl = "no-cache"

	if _, err := io.Copy(writer, file); err != nil {
		_ = writer.Close()
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", bucketName, objectName), nil
}
