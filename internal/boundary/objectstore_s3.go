package boundary

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	"github.com/streamsplice/junction/internal/xerrors"
)

// EnvAccessKeyID and EnvSecretAccessKey are the required object-store
// credential environment variables (§6: "credentials for the object
// store (two variables, access + secret)"). Their absence is a
// startup-time error, never a per-call error.
const (
	EnvAccessKeyID     = "JUNCTION_OBJECT_STORE_ACCESS_KEY_ID"
	EnvSecretAccessKey = "JUNCTION_OBJECT_STORE_SECRET_ACCESS_KEY"
)

// S3Store is an S3/R2-compatible ObjectStore backed by aws-sdk-go-v2.
// Upload's key parameter is resolved against Bucket; Download/Exists
// take full s3://<bucket>/<key> URLs so they can address any bucket
// reachable through the same credentials.
type S3Store struct {
	client *s3.Client
	Bucket string
}

// NewS3Store builds an S3Store against endpointURL (empty for AWS's
// default S3 endpoint, non-empty for an R2/MinIO-style compatible
// endpoint) using credentials from EnvAccessKeyID/EnvSecretAccessKey.
// Returns an error immediately if either is unset, per §4.10's
// "absence is a startup-time error".
func NewS3Store(ctx context.Context, endpointURL, region, bucket string) (*S3Store, error) {
	accessKey := os.Getenv(EnvAccessKeyID)
	secretKey := os.Getenv(EnvSecretAccessKey)
	if accessKey == "" || secretKey == "" {
		return nil, xerrors.NewInvalidParameters(
			"credentials",
			fmt.Sprintf("%s and %s must both be set", EnvAccessKeyID, EnvSecretAccessKey),
			nil,
		)
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")),
	)
	if err != nil {
		return nil, &xerrors.DriverError{Kind: xerrors.DriverObjectStore, Err: fmt.Errorf("load aws config: %w", err)}
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpointURL != "" {
			o.BaseEndpoint = aws.String(endpointURL)
		}
		o.UsePathStyle = true
	})

	return &S3Store{client: client, Bucket: bucket}, nil
}

// Download fetches the object at url to localPath.
func (s *S3Store) Download(ctx context.Context, url, localPath string) error {
	_, bucket, key, err := ParseObjectURL(url)
	if err != nil {
		return err
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(bucket), Key: aws.String(key)})
	if err != nil {
		return &xerrors.DriverError{Kind: xerrors.DriverObjectStore, Err: fmt.Errorf("get object %s: %w", url, err)}
	}
	defer out.Body.Close()

	f, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", localPath, err)
	}
	defer f.Close()

	if _, err := f.ReadFrom(out.Body); err != nil {
		return fmt.Errorf("write %s: %w", localPath, err)
	}
	return nil
}

// Upload puts localPath's contents at key within Bucket, returning an
// s3://<bucket>/<key> URL.
func (s *S3Store) Upload(ctx context.Context, localPath, key string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", &xerrors.SourceMissingError{Path: localPath}
	}
	defer f.Close()

	if _, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(key),
		Body:   f,
	}); err != nil {
		return "", &xerrors.DriverError{Kind: xerrors.DriverObjectStore, Err: fmt.Errorf("put object %s: %w", key, err)}
	}
	return fmt.Sprintf("s3://%s/%s", s.Bucket, key), nil
}

// Exists reports whether the object at url is present via HeadObject.
func (s *S3Store) Exists(ctx context.Context, url string) (bool, error) {
	_, bucket, key, err := ParseObjectURL(url)
	if err != nil {
		return false, err
	}
	_, err = s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: aws.String(bucket), Key: aws.String(key)})
	if err == nil {
		return true, nil
	}
	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) && respErr.HTTPStatusCode() == 404 {
		return false, nil
	}
	return false, &xerrors.DriverError{Kind: xerrors.DriverObjectStore, Err: fmt.Errorf("head object %s: %w", url, err)}
}
