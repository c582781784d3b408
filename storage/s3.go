package storage

import (
	"bytes"
	"fmt"
	"io/ioutil"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	log "github.com/sirupsen/logrus"
)

// S3 is an implementation of Store backed by AWS S3. Each key-value pair is
// one object, stored under the given key prefix within the bucket.
type S3 struct {
	profile string
	region  string
	bucket  string
	prefix  string
	client  *s3.S3
}

func NewS3(profile, region, bucket, prefix string) *S3 {
	return &S3{
		profile: profile,
		region:  region,
		bucket:  bucket,
		prefix:  prefix,
	}
}

func (s *S3) Get(key string) (value []byte, err error) {
	if err := s.ensureClient(); err != nil {
		return nil, err
	}
	output, err := s.client.GetObject(&s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.prefix + key),
	})
	if err != nil {
		if rfErr, ok := err.(awserr.RequestFailure); ok {
			if rfErr.StatusCode() == http.StatusNotFound {
				return nil, fmt.Errorf("%.40q: %w", key, ErrNotFound)
			}
		}
		return nil, err
	}
	defer func() {
		if err := output.Body.Close(); err != nil {
			log.WithFields(log.Fields{
				"op":  "get",
				"key": key,
			}).Warning("Could not close response body")
		}
	}()
	return ioutil.ReadAll(output.Body)
}

func (s *S3) Put(key string, value []byte) (err error) {
	err = s.ensureClient()
	if err == nil {
		_, err = s.client.PutObject(&s3.PutObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(s.prefix + key),
			Body:   bytes.NewReader(value),
		})
	}
	return
}

func (s *S3) Delete(key string) (err error) {
	err = s.ensureClient()
	if err == nil {
		// S3 deletes are idempotent; a missing key is not an error.
		_, err = s.client.DeleteObject(&s3.DeleteObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(s.prefix + key),
		})
	}
	return
}

func (s *S3) Keys() (keys []string, err error) {
	if err := s.ensureClient(); err != nil {
		return nil, err
	}
	err = s.client.ListObjectsV2Pages(&s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.prefix),
	}, func(page *s3.ListObjectsV2Output, lastPage bool) bool {
		for _, object := range page.Contents {
			keys = append(keys, strings.TrimPrefix(aws.StringValue(object.Key), s.prefix))
		}
		return true
	})
	return keys, err
}

func (s *S3) ensureClient() error {
	if s.client != nil {
		return nil
	}
	config := &aws.Config{Region: aws.String(s.region)}
	// An empty profile selects the default provider chain, which is how
	// role credentials are picked up when running in AWS.
	if s.profile != "" {
		config.Credentials = credentials.NewSharedCredentials("", s.profile)
	}
	sess, err := session.NewSession(config)
	if err != nil {
		return err
	}
	client := s3.New(sess)
	s.client = client
	return nil
}
