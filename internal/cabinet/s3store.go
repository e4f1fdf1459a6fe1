package cabinet

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Options configures an S3Store.
type S3Options struct {
	Bucket string

	// Prefix is prepended to every key (e.g. "cabinet/").
	Prefix string

	Region string

	// Endpoint overrides the S3 endpoint, for S3-compatible servers.
	Endpoint string

	// AccessKey and SecretKey are static credentials. When empty the client
	// sends anonymous requests.
	AccessKey string
	SecretKey string

	// PathStyle addresses the bucket in the path instead of the host name.
	PathStyle bool
}

// S3Store reads a cabinet stored in an S3 bucket with the same key layout
// as FileStore.
type S3Store struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Store builds an S3 client from opts.
func NewS3Store(opts S3Options) *S3Store {
	region := opts.Region
	if region == "" {
		region = "us-east-1"
	}
	s3opts := s3.Options{
		Region:       region,
		UsePathStyle: opts.PathStyle,
	}
	if opts.Endpoint != "" {
		s3opts.BaseEndpoint = aws.String(opts.Endpoint)
	}
	if opts.AccessKey != "" {
		creds := aws.Credentials{
			AccessKeyID:     opts.AccessKey,
			SecretAccessKey: opts.SecretKey,
			Source:          "cfsui",
		}
		s3opts.Credentials = aws.NewCredentialsCache(aws.CredentialsProviderFunc(
			func(context.Context) (aws.Credentials, error) { return creds, nil },
		))
	} else {
		s3opts.Credentials = aws.AnonymousCredentials{}
	}
	return NewS3StoreFromClient(s3.New(s3opts), opts.Bucket, opts.Prefix)
}

// NewS3StoreFromClient wraps an existing client.
func NewS3StoreFromClient(client *s3.Client, bucket, prefix string) *S3Store {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &S3Store{client: client, bucket: bucket, prefix: prefix}
}

func (s *S3Store) Stat(ctx context.Context) (Stat, error) {
	var st Stat
	err := s.list(ctx, s.prefix, func(obj types.Object) {
		st.TotalSize += aws.ToInt64(obj.Size)
		st.FileCount++
	})
	return st, err
}

func (s *S3Store) Tags(ctx context.Context) ([]*TagFile, error) {
	var keys []string
	prefix := s.prefix + "tags/"
	if err := s.list(ctx, prefix, func(obj types.Object) {
		keys = append(keys, aws.ToString(obj.Key))
	}); err != nil {
		return nil, err
	}

	tags := make([]*TagFile, 0, len(keys))
	for _, key := range keys {
		tag, err := s.readTag(ctx, key, "tag", strings.TrimPrefix(key, prefix))
		if err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i].Name < tags[j].Name })
	return tags, nil
}

func (s *S3Store) Tag(ctx context.Context, id string) (*TagFile, error) {
	if err := validID("tag", id); err != nil {
		return nil, err
	}
	return s.readTag(ctx, s.prefix+"tags/"+id, "tag", id)
}

func (s *S3Store) Versions(ctx context.Context, id string) ([]string, error) {
	if err := validID("tag", id); err != nil {
		return nil, err
	}
	prefix := s.prefix + "versions/" + id + "/"
	var versions []string
	if err := s.list(ctx, prefix, func(obj types.Object) {
		versions = append(versions, strings.TrimPrefix(aws.ToString(obj.Key), prefix))
	}); err != nil {
		return nil, err
	}
	if len(versions) == 0 {
		return nil, &NotFoundError{Kind: "tag", Name: id}
	}
	sort.Strings(versions)
	return versions, nil
}

func (s *S3Store) Version(ctx context.Context, id, version string) (*TagFile, error) {
	if err := validID("tag", id); err != nil {
		return nil, err
	}
	if err := validID("version", version); err != nil {
		return nil, err
	}
	return s.readTag(ctx, s.prefix+"versions/"+id+"/"+version, "version", id+"/"+version)
}

func (s *S3Store) Blob(ctx context.Context, hash string) ([]byte, error) {
	rel, err := HashPath(hash)
	if err != nil {
		return nil, err
	}
	return s.get(ctx, s.prefix+rel, "blob", hash)
}

func (s *S3Store) readTag(ctx context.Context, key, kind, name string) (*TagFile, error) {
	data, err := s.get(ctx, key, kind, name)
	if err != nil {
		return nil, err
	}
	return ParseTagFile(strings.NewReader(string(data)))
}

func (s *S3Store) get(ctx context.Context, key, kind, name string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, &NotFoundError{Kind: kind, Name: name}
		}
		return nil, fmt.Errorf("cabinet: s3 get %s: %w", key, err)
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

func (s *S3Store) list(ctx context.Context, prefix string, fn func(types.Object)) error {
	p := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("cabinet: s3 list %s: %w", prefix, err)
		}
		for _, obj := range page.Contents {
			fn(obj)
		}
	}
	return nil
}

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	var nf *types.NotFound
	if errors.As(err, &nsk) || errors.As(err, &nf) {
		return true
	}
	var coded interface{ ErrorCode() string }
	if errors.As(err, &coded) {
		switch coded.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}
