package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"cloud.google.com/go/storage"
	"github.com/sirupsen/logrus"
)

// Publisher makes a local raster available and returns its public locator.
type Publisher interface {
	Publish(ctx context.Context, localPath, name string) (string, error)
}

// LocalPublisher copies results into Dir and returns file:// URLs.
type LocalPublisher struct {
	Dir string
}

func (p LocalPublisher) Publish(_ context.Context, localPath, name string) (string, error) {
	if err := os.MkdirAll(p.Dir, 0o755); err != nil {
		return "", err
	}
	dst, err := filepath.Abs(filepath.Join(p.Dir, name))
	if err != nil {
		return "", err
	}
	url := "file://" + filepath.ToSlash(dst)
	if abs, err := filepath.Abs(localPath); err == nil && abs == dst {
		return url, nil
	}
	src, err := os.Open(localPath)
	if err != nil {
		return "", err
	}
	defer src.Close()
	if err := writeFile(dst, src); err != nil {
		return "", err
	}
	return url, nil
}

// GCSPublisher uploads results under Prefix in Bucket.
type GCSPublisher struct {
	Client *storage.Client
	Bucket string
	Prefix string
	Public bool
}

func (p GCSPublisher) Publish(ctx context.Context, localPath, name string) (url string, err error) {
	object := path.Join(p.Prefix, name)
	src, err := os.Open(localPath)
	if err != nil {
		return "", err
	}
	defer src.Close()

	obj := p.Client.Bucket(p.Bucket).Object(object)
	w := obj.NewWriter(ctx)
	w.ContentType = "image/tiff"
	if _, err := io.Copy(w, src); err != nil {
		return "", errors.Join(fmt.Errorf("upload gs://%s/%s: %w", p.Bucket, object, err), w.Close())
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("upload gs://%s/%s: %w", p.Bucket, object, err)
	}
	if p.Public {
		if err := obj.ACL().Set(ctx, storage.AllUsers, storage.RoleReader); err != nil {
			return "", fmt.Errorf("make gs://%s/%s public: %w", p.Bucket, object, err)
		}
	}
	url = fmt.Sprintf("https://%s/%s/%s", gcsPublicHost, p.Bucket, object)
	logrus.Infof("Published %s", url)
	return url, nil
}
