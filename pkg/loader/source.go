package loader

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	elerrors "github.com/vango-dev/elements/internal/errors"
)

// Source enumerates and reads declaration documents.
type Source interface {
	// List returns the document locations the source holds, sorted.
	List(ctx context.Context) ([]string, error)

	// Read returns a document's raw bytes.
	Read(ctx context.Context, location string) ([]byte, error)

	// BaseURL returns the URL declarations read from location resolve
	// relative paths against.
	BaseURL(location string) string
}

func unavailable(location string, err error) *elerrors.ElementError {
	return elerrors.New("E210").
		WithLocation(location, 0, 0).
		Wrap(err)
}

// FileSource reads a single document or every supported document under a
// directory.
type FileSource struct {
	Path string
}

// List implements Source.
func (s FileSource) List(_ context.Context) ([]string, error) {
	info, err := os.Stat(s.Path)
	if err != nil {
		return nil, unavailable(s.Path, err)
	}
	if !info.IsDir() {
		if _, err := FormatOf(s.Path); err != nil {
			return nil, err
		}
		return []string{s.Path}, nil
	}

	var out []string
	err = filepath.WalkDir(s.Path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != s.Path && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if Supported(p) {
			out = append(out, p)
		}
		return nil
	})
	if err != nil {
		return nil, unavailable(s.Path, err)
	}
	slices.Sort(out)
	return out, nil
}

// Read implements Source.
func (s FileSource) Read(_ context.Context, location string) ([]byte, error) {
	data, err := os.ReadFile(location)
	if err != nil {
		return nil, unavailable(location, err)
	}
	return data, nil
}

// BaseURL implements Source.
func (s FileSource) BaseURL(location string) string {
	abs, err := filepath.Abs(location)
	if err != nil {
		abs = location
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String()
}

// S3API is the subset of the S3 client S3Source uses.
type S3API interface {
	s3.ListObjectsV2APIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Source reads documents stored under a bucket prefix.
type S3Source struct {
	Client S3API
	Bucket string
	Prefix string
}

// List implements Source.
func (s S3Source) List(ctx context.Context) ([]string, error) {
	var out []string
	p := s3.NewListObjectsV2Paginator(s.Client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.Bucket),
		Prefix: aws.String(s.Prefix),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, unavailable(s.uri(s.Prefix), err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if Supported(key) {
				out = append(out, s.uri(key))
			}
		}
	}
	slices.Sort(out)
	return out, nil
}

// Read implements Source.
func (s S3Source) Read(ctx context.Context, location string) ([]byte, error) {
	bucket, key, err := ParseS3URI(location)
	if err != nil {
		return nil, err
	}
	out, err := s.Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, unavailable(location, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, unavailable(location, err)
	}
	return data, nil
}

// BaseURL implements Source.
func (s S3Source) BaseURL(location string) string { return location }

func (s S3Source) uri(key string) string {
	return "s3://" + s.Bucket + "/" + key
}

// ParseS3URI splits s3://bucket/key into its parts.
func ParseS3URI(uri string) (bucket, key string, err error) {
	u, err := url.Parse(uri)
	if err != nil || u.Scheme != "s3" || u.Host == "" {
		return "", "", elerrors.New("E210").
			WithLocation(uri, 0, 0).
			WithDetail("expected s3://bucket/prefix")
	}
	return u.Host, strings.TrimPrefix(u.Path, "/"), nil
}

// NewS3Client builds an S3 client from the SDK's default credential
// chain. An empty region keeps the chain's region.
func NewS3Client(ctx context.Context, region string) (*s3.Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return s3.NewFromConfig(cfg), nil
}
