package storageio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"github.com/sirupsen/logrus"

	"github.com/nilsroemer/cryptofrag/internal/debug"
	"github.com/nilsroemer/cryptofrag/internal/errs"
)

// S3Config configures an S3NodeStore. It is intentionally narrow — the
// core pipeline takes configuration as constructor parameters and
// consumes no environment variables itself; this struct is filled in by
// a cmd/ wrapper, not read from the environment directly.
type S3Config struct {
	// Provider, when non-empty, resolves a default Endpoint/Region and
	// path-style addressing convention from KnownProviders (aws, minio,
	// wasabi, backblaze, cloudflare, and others); an explicit Endpoint or
	// Region still takes precedence over the provider's default.
	Provider  string
	Region    string
	Endpoint  string // non-empty for non-AWS S3-compatible providers (MinIO, etc).
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string // node-scoped key prefix; the "directory" for this node.
}

// s3API is the subset of the AWS SDK's S3 client this backend calls,
// narrowed so tests can substitute a fake.
type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, opts ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3NodeStore is a NodeStore backed by an S3 (or S3-compatible) bucket
// and key prefix — a "node" that is a cloud location instead of a local
// directory, exercising the gateway's own S3-client idiom
// (internal/s3/client.go) for a different collaborator than the gateway
// used it for.
type S3NodeStore struct {
	client s3API
	bucket string
	prefix string

	// Logger receives this store's Debug/Error IO events. Defaults to a
	// standalone logrus.Logger if left nil.
	Logger *logrus.Logger
}

func (n *S3NodeStore) logger() *logrus.Entry {
	l := n.Logger
	if l == nil {
		l = logrus.New()
	}
	return l.WithField("component", "storageio").WithField("node", n.String())
}

// NewS3NodeStore builds an S3NodeStore from cfg. When cfg.Provider is
// set, its known endpoint/region/path-style defaults fill in whatever
// cfg.Endpoint/cfg.Region left blank; an explicit Endpoint or Region
// always wins over the provider default.
func NewS3NodeStore(ctx context.Context, cfg S3Config) (*S3NodeStore, error) {
	endpoint, region := cfg.Endpoint, cfg.Region
	pathStyle := endpoint != ""

	if cfg.Provider != "" {
		resolvedEndpoint, resolvedRegion, err := ValidateProviderConfig(cfg.Endpoint, cfg.Provider, cfg.Region)
		if err != nil {
			return nil, fmt.Errorf("s3 node store: %w", err)
		}
		endpoint, region = resolvedEndpoint, resolvedRegion
		pathStyle = RequiresPathStyleAddressing(cfg.Provider) || cfg.Endpoint != ""
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey, cfg.SecretKey, "",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("s3 node store: load aws config: %w", err)
	}

	var opts []func(*s3.Options)
	if endpoint != "" {
		opts = append(opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = pathStyle
		})
	}

	return &S3NodeStore{
		client: s3.NewFromConfig(awsCfg, opts...),
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
	}, nil
}

func (n *S3NodeStore) String() string {
	return fmt.Sprintf("s3://%s/%s", n.bucket, n.prefix)
}

func (n *S3NodeStore) key(name string) string {
	if n.prefix == "" {
		return name
	}
	return n.prefix + "/" + name
}

// EnsureDir is a no-op for S3: buckets are provisioned out of band, and
// key prefixes need no explicit creation.
func (n *S3NodeStore) EnsureDir(ctx context.Context) error { return nil }

func (n *S3NodeStore) Write(ctx context.Context, name string, blob []byte) error {
	_, err := n.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(n.bucket),
		Key:    aws.String(n.key(name)),
		Body:   bytes.NewReader(blob),
	})
	if err != nil {
		n.logger().WithField("name", name).WithError(err).Error("blob write failed")
		return wrapIO("write", n.String(), name, err)
	}
	if debug.Enabled() {
		n.logger().WithField("name", name).Debug("blob written")
	}
	return nil
}

func (n *S3NodeStore) Read(ctx context.Context, name string) ([]byte, error) {
	out, err := n.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(n.bucket),
		Key:    aws.String(n.key(name)),
	})
	if err != nil {
		if isNotFoundAWSErr(err) {
			return nil, wrapIO("read", n.String(), name, errs.ErrNotFound)
		}
		n.logger().WithField("name", name).WithError(err).Error("blob read failed")
		return nil, wrapIO("read", n.String(), name, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		n.logger().WithField("name", name).WithError(err).Error("blob read failed")
		return nil, wrapIO("read", n.String(), name, err)
	}
	if debug.Enabled() {
		n.logger().WithField("name", name).Debug("blob read")
	}
	return data, nil
}

func (n *S3NodeStore) Exists(ctx context.Context, name string) (bool, error) {
	_, err := n.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(n.bucket),
		Key:    aws.String(n.key(name)),
	})
	if err == nil {
		return true, nil
	}
	if isNotFoundAWSErr(err) {
		return false, nil
	}
	return false, wrapIO("head", n.String(), name, err)
}

func (n *S3NodeStore) Remove(ctx context.Context, name string) error {
	_, err := n.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(n.bucket),
		Key:    aws.String(n.key(name)),
	})
	if err != nil {
		return wrapIO("remove", n.String(), name, err)
	}
	return nil
}

// isNotFoundAWSErr reports whether err is S3's 404 response, recognized
// via smithy-go's transport-level status code rather than a
// service-specific error type (some S3-compatible providers return a
// generic NotFound instead of the AWS-specific NoSuchKey).
func isNotFoundAWSErr(err error) bool {
	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) {
		return respErr.HTTPStatusCode() == 404
	}
	return false
}
