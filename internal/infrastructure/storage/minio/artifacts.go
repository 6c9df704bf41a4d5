package minio

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/turtacn/MultiNLU/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MultiNLU/pkg/errors"
)

const artifactExt = ".tar.gz"

// Artifact download outcomes passed to DownloadObserver.
const (
	DownloadFetched = "fetched"
	DownloadCached  = "cached"
	DownloadFailed  = "failed"
)

// DownloadObserver is told the outcome of every FetchLatest call.
type DownloadObserver func(locale, outcome string)

// ArtifactStore keeps model artifacts under <prefix><lang>/ in the bucket.
type ArtifactStore struct {
	client   *MinIOClient
	logger   logging.Logger
	observer DownloadObserver
}

// NewArtifactStore returns a store on client. observer may be nil.
func NewArtifactStore(client *MinIOClient, observer DownloadObserver, logger logging.Logger) *ArtifactStore {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if observer == nil {
		observer = func(string, string) {}
	}
	return &ArtifactStore{client: client, logger: logger, observer: observer}
}

func (s *ArtifactStore) langPrefix(lang string) string {
	return s.client.config.Prefix + lang + "/"
}

// Latest returns the newest artifact object of lang.
func (s *ArtifactStore) Latest(ctx context.Context, lang string) (minio.ObjectInfo, error) {
	var newest minio.ObjectInfo
	found := false

	objects := s.client.client.ListObjects(ctx, s.client.config.Bucket, minio.ListObjectsOptions{
		Prefix:    s.langPrefix(lang),
		Recursive: true,
	})
	for obj := range objects {
		if obj.Err != nil {
			return minio.ObjectInfo{}, errors.Wrap(obj.Err, errors.ErrCodeStorageError, "failed to list model artifacts").
				WithDetail(lang)
		}
		if !strings.HasSuffix(obj.Key, artifactExt) {
			continue
		}
		if !found || obj.LastModified.After(newest.LastModified) ||
			(obj.LastModified.Equal(newest.LastModified) && obj.Key > newest.Key) {
			newest = obj
			found = true
		}
	}
	if !found {
		return minio.ObjectInfo{}, errors.New(errors.ErrCodeModelNotFound, "no model artifact in bucket").
			WithDetail(s.client.config.Bucket + "/" + s.langPrefix(lang))
	}
	return newest, nil
}

// FetchLatest downloads the newest artifact of lang into destDir unless an
// identical file is already there, and returns the local path. The file's
// mtime is set to the object's so that local resolution agrees.
func (s *ArtifactStore) FetchLatest(ctx context.Context, lang, destDir string) (string, error) {
	obj, err := s.Latest(ctx, lang)
	if err != nil {
		s.observer(lang, DownloadFailed)
		return "", err
	}

	local := filepath.Join(destDir, path.Base(obj.Key))
	if info, statErr := os.Stat(local); statErr == nil && info.Size() == obj.Size {
		s.observer(lang, DownloadCached)
		return local, nil
	}

	start := time.Now()
	if err := s.client.client.FGetObject(ctx, s.client.config.Bucket, obj.Key, local, minio.GetObjectOptions{}); err != nil {
		s.observer(lang, DownloadFailed)
		return "", errors.Wrap(err, errors.ErrCodeStorageError, "model artifact download failed").WithDetail(obj.Key)
	}
	if !obj.LastModified.IsZero() {
		_ = os.Chtimes(local, obj.LastModified, obj.LastModified)
	}

	s.observer(lang, DownloadFetched)
	s.logger.Info("model artifact fetched",
		logging.String("locale", lang),
		logging.String("object", obj.Key),
		logging.Int64("bytes", obj.Size),
		logging.Duration("elapsed", time.Since(start)))
	return local, nil
}

// Upload stores the artifact at file under lang's prefix and returns the
// object key.
func (s *ArtifactStore) Upload(ctx context.Context, lang, file string) (string, error) {
	if !strings.HasSuffix(file, artifactExt) {
		return "", errors.InvalidParam("model artifact must be a " + artifactExt + " file").WithDetail(file)
	}
	key := s.langPrefix(lang) + filepath.Base(file)
	info, err := s.client.client.FPutObject(ctx, s.client.config.Bucket, key, file, minio.PutObjectOptions{
		ContentType: "application/gzip",
	})
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeStorageError, "model artifact upload failed").WithDetail(key)
	}
	s.logger.Info("model artifact uploaded",
		logging.String("locale", lang), logging.String("object", key), logging.Int64("bytes", info.Size))
	return key, nil
}

//Personal.AI order the ending
