package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/dmitrijs2005/filestore/internal/common"
)

// S3API is the subset of *s3.Client the backend uses.
type S3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3Config carries the connection settings of an S3-compatible service.
type S3Config struct {
	User     string
	Password string
	Bucket   string
	Region   string
	Endpoint string
}

var loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

// NewS3Client builds a path-style client with static credentials, which
// is what MinIO and most self-hosted S3 services expect.
func NewS3Client(ctx context.Context, c S3Config) (*s3.Client, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		awsconfig.WithRegion(c.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(c.User, c.Password, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if c.Endpoint != "" {
			o.BaseEndpoint = aws.String(c.Endpoint)
		}
		o.UsePathStyle = true
	}), nil
}

// S3Backend maps canonical paths to object keys by dropping the leading
// "/". A directory is a zero-byte marker object whose key ends with "/".
type S3Backend struct {
	client S3API
	bucket string
}

var _ Backend = (*S3Backend)(nil)

func NewS3Backend(client S3API, bucket string) *S3Backend {
	return &S3Backend{client: client, bucket: bucket}
}

func objectKey(p string) string {
	return strings.TrimPrefix(p, "/")
}

// dirPrefix is "" for the root and "<key>/" otherwise.
func dirPrefix(p string) string {
	if p == "/" {
		return ""
	}
	return objectKey(p) + "/"
}

func isS3NotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}

func (b *S3Backend) classify(op, p string, err error) error {
	if isS3NotFound(err) {
		return fmt.Errorf("%w: %s", common.ErrorNotFound, p)
	}
	return ioError(op, p, err)
}

func (b *S3Backend) head(ctx context.Context, key string) (*s3.HeadObjectOutput, error) {
	return b.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
}

func (b *S3Backend) EnsureDir(ctx context.Context, p string) (bool, error) {
	if err := checkPath(p); err != nil {
		return false, err
	}
	if p == "/" {
		return false, nil
	}

	if _, err := b.head(ctx, objectKey(p)); err == nil {
		return false, fmt.Errorf("%w: %s is a file", common.ErrInvalidPath, p)
	} else if !isS3NotFound(err) {
		return false, ioError("head", p, err)
	}

	marker := dirPrefix(p)
	if _, err := b.head(ctx, marker); err == nil {
		return false, nil
	} else if !isS3NotFound(err) {
		return false, ioError("head", p, err)
	}

	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(b.bucket),
		Key:           aws.String(marker),
		Body:          bytes.NewReader(nil),
		ContentLength: aws.Int64(0),
	})
	if err != nil {
		return false, ioError("mkdir", p, err)
	}
	return true, nil
}

// Write buffers r so the request carries a Content-Length; uploads are
// already capped at the HTTP boundary.
func (b *S3Backend) Write(ctx context.Context, p string, r io.Reader) (int64, error) {
	if err := checkPath(p); err != nil {
		return 0, err
	}

	var buf bytes.Buffer
	n, err := io.Copy(&buf, r)
	if err != nil {
		return 0, ioError("read", p, err)
	}

	_, err = b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(b.bucket),
		Key:           aws.String(objectKey(p)),
		Body:          bytes.NewReader(buf.Bytes()),
		ContentLength: aws.Int64(n),
	})
	if err != nil {
		return 0, ioError("put", p, err)
	}
	return n, nil
}

func (b *S3Backend) Open(ctx context.Context, p string) (io.ReadCloser, error) {
	if err := checkPath(p); err != nil {
		return nil, err
	}
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(objectKey(p)),
	})
	if err != nil {
		return nil, b.classify("get", p, err)
	}
	return out.Body, nil
}

func (b *S3Backend) Stat(ctx context.Context, p string) (Info, error) {
	if err := checkPath(p); err != nil {
		return Info{}, err
	}
	if p == "/" {
		return Info{Path: p, Name: "/", IsDir: true}, nil
	}

	out, err := b.head(ctx, objectKey(p))
	if err == nil {
		return Info{
			Path:    p,
			Name:    path.Base(p),
			Size:    aws.ToInt64(out.ContentLength),
			ModTime: aws.ToTime(out.LastModified),
		}, nil
	}
	if !isS3NotFound(err) {
		return Info{}, ioError("head", p, err)
	}

	// a directory exists if its marker or any object below it does
	list, err := b.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(b.bucket),
		Prefix:  aws.String(dirPrefix(p)),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return Info{}, b.classify("list", p, err)
	}
	if len(list.Contents) == 0 && len(list.CommonPrefixes) == 0 {
		return Info{}, fmt.Errorf("%w: %s", common.ErrorNotFound, p)
	}
	return Info{Path: p, Name: path.Base(p), IsDir: true}, nil
}

func (b *S3Backend) ListFiles(ctx context.Context, dir string) ([]Info, error) {
	if err := checkPath(dir); err != nil {
		return nil, err
	}
	prefix := dirPrefix(dir)

	p := s3.NewListObjectsV2Paginator(b.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(b.bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	})

	result := []Info{}
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, b.classify("list", dir, err)
		}
		for _, obj := range page.Contents {
			name := strings.TrimPrefix(aws.ToString(obj.Key), prefix)
			// the directory's own marker
			if name == "" || strings.Contains(name, "/") {
				continue
			}
			result = append(result, Info{
				Path:    path.Join(dir, name),
				Name:    name,
				Size:    aws.ToInt64(obj.Size),
				ModTime: aws.ToTime(obj.LastModified),
			})
		}
	}

	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

