package snapshots

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/revrsefr/sable/internal/common"
	"github.com/revrsefr/sable/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memObject struct {
	body []byte
	meta map[string]string
}

// memS3 is an in-memory S3API. pageSize > 0 forces paginated listings.
type memS3 struct {
	mu        sync.Mutex
	objects   map[string]memObject
	pageSize  int
	deleteErr error
}

func newMemS3() *memS3 { return &memS3{objects: map[string]memObject{}} }

func (m *memS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[aws.ToString(in.Key)] = memObject{body: body, meta: in.Metadata}
	return &s3.PutObjectOutput{}, nil
}

func (m *memS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(o.body)), Metadata: o.meta}, nil
}

func (m *memS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var keys []string
	for k := range m.objects {
		if strings.HasPrefix(k, aws.ToString(in.Prefix)) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	if tok := aws.ToString(in.ContinuationToken); tok != "" {
		i := sort.SearchStrings(keys, tok)
		keys = keys[i:]
	}

	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(false)}
	if m.pageSize > 0 && len(keys) > m.pageSize {
		out.IsTruncated = aws.Bool(true)
		out.NextContinuationToken = aws.String(keys[m.pageSize])
		keys = keys[:m.pageSize]
	}
	for _, k := range keys {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k)})
	}
	return out, nil
}

func (m *memS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if m.deleteErr != nil {
		return nil, m.deleteErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func s3Snap(id string, at time.Time, payload string) *models.Snapshot {
	return &models.Snapshot{ID: id, CreatedAt: at, StartIndex: 4, Size: 12, Payload: []byte(payload)}
}

func TestS3Repository_LatestEmpty(t *testing.T) {
	r := NewS3Repository(newMemS3(), "bucket", "history")
	_, err := r.Latest(context.Background())
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want ErrorNotFound, got %v", err)
	}
}

func TestS3Repository_SaveLatestPrune(t *testing.T) {
	ctx := context.Background()
	mem := newMemS3()
	mem.pageSize = 2
	r := NewS3Repository(mem, "bucket", "/history/")

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, r.Save(ctx, s3Snap("b", base.Add(2*time.Second), `{"n":2}`)))
	require.NoError(t, r.Save(ctx, s3Snap("a", base, `{"n":1}`)))
	require.NoError(t, r.Save(ctx, s3Snap("c", base.Add(time.Second), `{"n":3}`)))
	mem.objects["history/readme.txt"] = memObject{body: []byte("ignored")}

	for k := range mem.objects {
		assert.True(t, strings.HasPrefix(k, "history/"), k)
	}

	got, err := r.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "b", got.ID)
	assert.Equal(t, uint64(4), got.StartIndex)
	assert.Equal(t, uint64(12), got.Size)
	assert.True(t, got.CreatedAt.Equal(base.Add(2*time.Second)))
	assert.JSONEq(t, `{"n":2}`, string(got.Payload))

	n, err := r.Prune(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, mem.objects, 2, "the newest snapshot and the unrelated object remain")

	n, err = r.Prune(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestS3Repository_PruneDeleteError(t *testing.T) {
	ctx := context.Background()
	mem := newMemS3()
	r := NewS3Repository(mem, "bucket", "")

	now := time.Now()
	require.NoError(t, r.Save(ctx, s3Snap("a", now, "{}")))
	require.NoError(t, r.Save(ctx, s3Snap("b", now.Add(time.Second), "{}")))

	mem.deleteErr = errors.New("denied")
	n, err := r.Prune(ctx, 0)
	assert.Equal(t, 0, n)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "denied")
}

func TestSnapshotFromObject_BadKey(t *testing.T) {
	_, err := snapshotFromObject("history/nodash.json", nil, nil)
	assert.Error(t, err)
	_, err = snapshotFromObject("history/xx-id.json", nil, nil)
	assert.Error(t, err)
}

func TestS3Repository_PresignGet(t *testing.T) {
	origNewPre, origPresign := newS3PresignClient, presignGetObject
	t.Cleanup(func() {
		newS3PresignClient = origNewPre
		presignGetObject = origPresign
	})

	var gotKey string
	newS3PresignClient = func(c *s3.Client) *s3.PresignClient { return &s3.PresignClient{} }
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		gotKey = aws.ToString(in.Key)
		return &v4.PresignedHTTPRequest{URL: "https://example.test/" + gotKey}, nil
	}

	r := NewS3Repository(&s3.Client{}, "bucket", "history")
	s := s3Snap("id1", time.Unix(0, 42), "{}")

	url, err := r.PresignGet(context.Background(), s, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "history/00000000000000000042-id1.json", gotKey)
	assert.Equal(t, "https://example.test/"+gotKey, url)

	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return nil, errors.New("presign-get-fail")
	}
	_, err = r.PresignGet(context.Background(), s, time.Minute)
	if err == nil || err.Error() != "presign-get-fail" {
		t.Fatalf("want presign-get-fail, got %v", err)
	}

	_, err = NewS3Repository(newMemS3(), "bucket", "").PresignGet(context.Background(), s, time.Minute)
	assert.Error(t, err, "fakes cannot presign")
}

func TestNewS3Client_UsesSeams(t *testing.T) {
	origLoad, origNewS3 := loadDefaultAWSConfig, newS3ClientFromConfig
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNewS3
	})

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			_ = fn(&lo)
		}
		return aws.Config{Region: lo.Region}, nil
	}

	var opts s3.Options
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		opts.Region = cfg.Region
		for _, fn := range optFns {
			fn(&opts)
		}
		return &s3.Client{}
	}

	c, err := NewS3Client(context.Background(), S3Config{Region: "us-east-1", BaseEndpoint: "http://127.0.0.1:9000"})
	require.NoError(t, err)
	assert.NotNil(t, c)
	assert.Equal(t, "us-east-1", opts.Region)
	assert.Equal(t, "http://127.0.0.1:9000", aws.ToString(opts.BaseEndpoint))
	assert.True(t, opts.UsePathStyle)

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("load-fail")
	}
	_, err = NewS3Client(context.Background(), S3Config{})
	assert.EqualError(t, err, "load-fail")
}
