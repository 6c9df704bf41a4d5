package minio

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/turtacn/MultiNLU/internal/config"
	"github.com/turtacn/MultiNLU/internal/testutil"
	pkgerrors "github.com/turtacn/MultiNLU/pkg/errors"
)

type MockMinIOAPI struct {
	mock.Mock
}

func (m *MockMinIOAPI) BucketExists(ctx context.Context, bucketName string) (bool, error) {
	args := m.Called(ctx, bucketName)
	return args.Bool(0), args.Error(1)
}

func (m *MockMinIOAPI) MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error {
	args := m.Called(ctx, bucketName, opts)
	return args.Error(0)
}

func (m *MockMinIOAPI) ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo {
	args := m.Called(ctx, bucketName, opts)
	return args.Get(0).(<-chan minio.ObjectInfo)
}

func (m *MockMinIOAPI) FGetObject(ctx context.Context, bucketName, objectName, filePath string, opts minio.GetObjectOptions) error {
	args := m.Called(ctx, bucketName, objectName, filePath, opts)
	return args.Error(0)
}

func (m *MockMinIOAPI) FPutObject(ctx context.Context, bucketName, objectName, filePath string, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	args := m.Called(ctx, bucketName, objectName, filePath, opts)
	return args.Get(0).(minio.UploadInfo), args.Error(1)
}

func objectsChan(objs ...minio.ObjectInfo) <-chan minio.ObjectInfo {
	ch := make(chan minio.ObjectInfo, len(objs))
	for _, o := range objs {
		ch <- o
	}
	close(ch)
	return ch
}

type ArtifactStoreTestSuite struct {
	suite.Suite
	api      *MockMinIOAPI
	store    *ArtifactStore
	outcomes []string
}

func (s *ArtifactStoreTestSuite) SetupTest() {
	s.api = new(MockMinIOAPI)
	s.outcomes = nil
	client := newMinIOClient(s.api, config.MinIOConfig{Bucket: "models", Prefix: "nlu/"}, testutil.NewMockLogger())
	s.store = NewArtifactStore(client, func(locale, outcome string) {
		s.outcomes = append(s.outcomes, locale+":"+outcome)
	}, nil)
}

func (s *ArtifactStoreTestSuite) TearDownTest() {
	s.api.AssertExpectations(s.T())
}

func (s *ArtifactStoreTestSuite) expectList(objs ...minio.ObjectInfo) {
	s.api.On("ListObjects", mock.Anything, "models",
		minio.ListObjectsOptions{Prefix: "nlu/de/", Recursive: true}).Return(objectsChan(objs...))
}

func (s *ArtifactStoreTestSuite) TestLatest_PicksNewest() {
	t0 := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	s.expectList(
		minio.ObjectInfo{Key: "nlu/de/a.tar.gz", LastModified: t0},
		minio.ObjectInfo{Key: "nlu/de/b.tar.gz", LastModified: t0.Add(time.Hour)},
		minio.ObjectInfo{Key: "nlu/de/readme.md", LastModified: t0.Add(2 * time.Hour)},
	)

	obj, err := s.store.Latest(context.Background(), "de")
	s.Require().NoError(err)
	s.Equal("nlu/de/b.tar.gz", obj.Key)
}

func (s *ArtifactStoreTestSuite) TestLatest_Empty() {
	s.expectList()

	_, err := s.store.Latest(context.Background(), "de")
	s.True(pkgerrors.IsCode(err, pkgerrors.ErrCodeModelNotFound))
}

func (s *ArtifactStoreTestSuite) TestLatest_ListError() {
	s.expectList(minio.ObjectInfo{Err: errors.New("access denied")})

	_, err := s.store.Latest(context.Background(), "de")
	s.True(pkgerrors.IsCode(err, pkgerrors.ErrCodeStorageError))
}

func (s *ArtifactStoreTestSuite) TestFetchLatest_Downloads() {
	dir := s.T().TempDir()
	mod := time.Date(2023, 5, 1, 12, 0, 0, 0, time.UTC)
	s.expectList(minio.ObjectInfo{Key: "nlu/de/m.tar.gz", LastModified: mod, Size: 5})
	local := filepath.Join(dir, "m.tar.gz")
	s.api.On("FGetObject", mock.Anything, "models", "nlu/de/m.tar.gz", local, minio.GetObjectOptions{}).
		Run(func(args mock.Arguments) {
			s.Require().NoError(os.WriteFile(args.String(3), []byte("model"), 0o600))
		}).Return(nil)

	got, err := s.store.FetchLatest(context.Background(), "de", dir)
	s.Require().NoError(err)
	s.Equal(local, got)
	info, err := os.Stat(local)
	s.Require().NoError(err)
	s.True(info.ModTime().Equal(mod))
	s.Equal([]string{"de:" + DownloadFetched}, s.outcomes)
}

func (s *ArtifactStoreTestSuite) TestFetchLatest_SkipsIdenticalFile() {
	dir := s.T().TempDir()
	s.Require().NoError(os.WriteFile(filepath.Join(dir, "m.tar.gz"), []byte("model"), 0o600))
	s.expectList(minio.ObjectInfo{Key: "nlu/de/m.tar.gz", Size: 5})

	got, err := s.store.FetchLatest(context.Background(), "de", dir)
	s.Require().NoError(err)
	s.Equal(filepath.Join(dir, "m.tar.gz"), got)
	s.Equal([]string{"de:" + DownloadCached}, s.outcomes)
}

func (s *ArtifactStoreTestSuite) TestFetchLatest_DownloadError() {
	dir := s.T().TempDir()
	s.expectList(minio.ObjectInfo{Key: "nlu/de/m.tar.gz", Size: 5})
	s.api.On("FGetObject", mock.Anything, "models", "nlu/de/m.tar.gz", mock.Anything, mock.Anything).
		Return(errors.New("connection reset"))

	_, err := s.store.FetchLatest(context.Background(), "de", dir)
	s.True(pkgerrors.IsCode(err, pkgerrors.ErrCodeStorageError))
	s.Equal([]string{"de:" + DownloadFailed}, s.outcomes)
}

func (s *ArtifactStoreTestSuite) TestUpload() {
	s.api.On("FPutObject", mock.Anything, "models", "nlu/en/20240101.tar.gz", "/tmp/20240101.tar.gz",
		minio.PutObjectOptions{ContentType: "application/gzip"}).Return(minio.UploadInfo{Size: 42}, nil)

	key, err := s.store.Upload(context.Background(), "en", "/tmp/20240101.tar.gz")
	s.Require().NoError(err)
	s.Equal("nlu/en/20240101.tar.gz", key)
}

func (s *ArtifactStoreTestSuite) TestUpload_RejectsOtherFiles() {
	_, err := s.store.Upload(context.Background(), "en", "/tmp/model.zip")
	s.True(pkgerrors.IsCode(err, pkgerrors.CodeInvalidParam))
}

func TestArtifactStoreSuite(t *testing.T) {
	suite.Run(t, new(ArtifactStoreTestSuite))
}

func TestEnsureBucket(t *testing.T) {
	ctx := context.Background()

	api := new(MockMinIOAPI)
	api.On("BucketExists", ctx, "models").Return(true, nil).Once()
	c := newMinIOClient(api, config.MinIOConfig{Bucket: "models"}, testutil.NewMockLogger())
	assert.NoError(t, c.EnsureBucket(ctx, false))

	api.On("BucketExists", ctx, "models").Return(false, nil)
	err := c.EnsureBucket(ctx, false)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeStorageError))

	api.On("MakeBucket", ctx, "models", minio.MakeBucketOptions{}).Return(nil).Once()
	require.NoError(t, c.EnsureBucket(ctx, true))
	api.AssertExpectations(t)
}

func TestEnsureBucket_Unreachable(t *testing.T) {
	api := new(MockMinIOAPI)
	api.On("BucketExists", mock.Anything, "models").Return(false, errors.New("dial tcp: refused"))
	c := newMinIOClient(api, config.MinIOConfig{Bucket: "models"}, nil)

	err := c.HealthCheck(context.Background())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeServiceUnavailable))
}

func TestApplyDefaults(t *testing.T) {
	cfg := config.MinIOConfig{}
	applyDefaults(&cfg)
	assert.Equal(t, "us-east-1", cfg.Region)
	assert.Equal(t, config.DefaultMinIOBucket, cfg.Bucket)
}

//Personal.AI order the ending
