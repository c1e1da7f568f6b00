package adapter

import (
	"io/ioutil"
	"net/http"
	"strconv"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/pkg/errors"
)

// S3Config names the settings needed to reach the remote byte source
// bucket, matching the shape of muscle's S3Region/S3Bucket/S3Profile
// config fields (internal/config/config.go).
type S3Config struct {
	Region  string
	Bucket  string
	Profile string
	Key     string
}

// s3ByteSource is a RemoteByteSource backed by a single S3 object,
// grounded on muscle's internal/storage/s3.go s3Store (same session
// construction, same awserr.RequestFailure not-found handling).
type s3ByteSource struct {
	client *s3.S3
	bucket string
	key    string
}

var _ RemoteByteSource = (*s3ByteSource)(nil)

// NewS3ByteSource opens a remote byte source backed by the S3 object
// named by cfg.
func NewS3ByteSource(cfg S3Config) (RemoteByteSource, error) {
	const maxRetries = 16
	sess, err := session.NewSession(&aws.Config{
		Region:      aws.String(cfg.Region),
		Credentials: credentials.NewSharedCredentials("", cfg.Profile),
		MaxRetries:  aws.Int(maxRetries),
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return &s3ByteSource{
		client: s3.New(sess),
		bucket: cfg.Bucket,
		key:    cfg.Key,
	}, nil
}

// Size returns the object's content length as reported by HeadObject,
// which fetches the object's metadata without its content.
func (s *s3ByteSource) Size() (int64, error) {
	out, err := s.client.HeadObject(&s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		return 0, errors.WithStack(err)
	}
	if out.ContentLength == nil {
		return 0, nil
	}
	return *out.ContentLength, nil
}

// ReadAt fetches the byte range [off, off+len(p)) via an HTTP Range GET.
func (s *s3ByteSource) ReadAt(p []byte, off int64) (int, error) {
	rangeHeader := aws.String(httpRange(off, int64(len(p))))
	out, err := s.client.GetObject(&s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
		Range:  rangeHeader,
	})
	if err != nil {
		if rfErr, ok := err.(awserr.RequestFailure); ok && rfErr.StatusCode() == http.StatusNotFound {
			return 0, errors.Wrapf(err, "s3ByteSource.ReadAt: key=%q not found", s.key)
		}
		return 0, errors.WithStack(err)
	}
	defer func() { _ = out.Body.Close() }()
	data, err := ioutil.ReadAll(out.Body)
	if err != nil {
		return 0, errors.WithStack(err)
	}
	n := copy(p, data)
	return n, nil
}

func httpRange(off, length int64) string {
	if length <= 0 {
		return ""
	}
	end := off + length - 1
	return "bytes=" + strconv.FormatInt(off, 10) + "-" + strconv.FormatInt(end, 10)
}
