package snapshots

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/revrsefr/sable/internal/common"
	"github.com/revrsefr/sable/internal/server/models"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

// S3API is the subset of *s3.Client the repository uses.
type S3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Config locates the bucket snapshots are written to.
type S3Config struct {
	Region       string
	User         string
	Password     string
	BaseEndpoint string
	Bucket       string
	Prefix       string
}

// NewS3Client builds a client for an S3-compatible endpoint with static
// credentials and path-style addressing.
func NewS3Client(ctx context.Context, c S3Config) (*s3.Client, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(c.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(c.User, c.Password, "")),
	)
	if err != nil {
		return nil, err
	}

	return newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if c.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(c.BaseEndpoint)
		}
		o.UsePathStyle = true
	}), nil
}

// S3Repository keeps each snapshot as a JSON object named
// <prefix>/<created unix nanos>-<id>.json. Snapshot bounds travel as
// object metadata.
type S3Repository struct {
	client  S3API
	presign *s3.PresignClient
	bucket  string
	prefix  string
}

// NewS3Repository constructs a repository. A *s3.Client also enables
// presigned download links.
func NewS3Repository(client S3API, bucket, prefix string) *S3Repository {
	r := &S3Repository{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
	if c, ok := client.(*s3.Client); ok {
		r.presign = newS3PresignClient(c)
	}
	return r
}

const (
	metaID         = "snapshot-id"
	metaStartIndex = "start-index"
	metaSize       = "size"
)

func (r *S3Repository) key(s *models.Snapshot) string {
	return path.Join(r.prefix, fmt.Sprintf("%020d-%s.json", s.CreatedAt.UnixNano(), s.ID))
}

func (r *S3Repository) listPrefix() string {
	if r.prefix == "" {
		return ""
	}
	return r.prefix + "/"
}

func (r *S3Repository) Save(ctx context.Context, s *models.Snapshot) error {
	_, err := r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(r.bucket),
		Key:         aws.String(r.key(s)),
		Body:        bytes.NewReader(s.Payload),
		ContentType: aws.String("application/json"),
		Metadata: map[string]string{
			metaID:         s.ID,
			metaStartIndex: strconv.FormatUint(s.StartIndex, 10),
			metaSize:       strconv.FormatUint(s.Size, 10),
		},
	})
	if err != nil {
		return fmt.Errorf("s3 put: %w", err)
	}
	return nil
}

// keys lists snapshot object keys, newest first.
func (r *S3Repository) keys(ctx context.Context) ([]string, error) {
	var keys []string
	in := &s3.ListObjectsV2Input{
		Bucket: aws.String(r.bucket),
		Prefix: aws.String(r.listPrefix()),
	}
	for {
		out, err := r.client.ListObjectsV2(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("s3 list: %w", err)
		}
		for _, o := range out.Contents {
			if o.Key != nil && strings.HasSuffix(*o.Key, ".json") {
				keys = append(keys, *o.Key)
			}
		}
		if !aws.ToBool(out.IsTruncated) || out.NextContinuationToken == nil {
			break
		}
		in.ContinuationToken = out.NextContinuationToken
	}

	sort.Sort(sort.Reverse(sort.StringSlice(keys)))
	return keys, nil
}

func (r *S3Repository) Latest(ctx context.Context) (*models.Snapshot, error) {
	keys, err := r.keys(ctx)
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, common.ErrorNotFound
	}

	out, err := r.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(keys[0]),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 get: %w", err)
	}
	defer out.Body.Close()

	payload, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("s3 read: %w", err)
	}

	return snapshotFromObject(keys[0], out.Metadata, payload)
}

func snapshotFromObject(key string, meta map[string]string, payload []byte) (*models.Snapshot, error) {
	base := strings.TrimSuffix(path.Base(key), ".json")
	nanos, id, ok := strings.Cut(base, "-")
	if !ok {
		return nil, fmt.Errorf("unexpected snapshot key %q", key)
	}
	ns, err := strconv.ParseInt(nanos, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("unexpected snapshot key %q: %w", key, err)
	}

	s := &models.Snapshot{
		ID:        id,
		CreatedAt: time.Unix(0, ns).UTC(),
		Payload:   payload,
	}
	if v, ok := meta[metaID]; ok && v != "" {
		s.ID = v
	}
	if v, ok := meta[metaStartIndex]; ok {
		s.StartIndex, _ = strconv.ParseUint(v, 10, 64)
	}
	if v, ok := meta[metaSize]; ok {
		s.Size, _ = strconv.ParseUint(v, 10, 64)
	}
	return s, nil
}

func (r *S3Repository) Prune(ctx context.Context, keep int) (int, error) {
	keys, err := r.keys(ctx)
	if err != nil {
		return 0, err
	}
	if len(keys) <= keep {
		return 0, nil
	}

	deleted := 0
	var errs []error
	for _, k := range keys[max(keep, 0):] {
		if _, err := r.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(r.bucket),
			Key:    aws.String(k),
		}); err != nil {
			errs = append(errs, fmt.Errorf("s3 delete %s: %w", k, err))
			continue
		}
		deleted++
	}
	return deleted, errors.Join(errs...)
}

// PresignGet returns a temporary GET link for s.
func (r *S3Repository) PresignGet(ctx context.Context, s *models.Snapshot, ttl time.Duration) (string, error) {
	if r.presign == nil {
		return "", errors.New("presigning not available")
	}
	req, err := presignGetObject(r.presign, ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(r.key(s)),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", err
	}
	return req.URL, nil
}
