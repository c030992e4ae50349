package journal

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"

	"github.com/ruteri/confidential-portfolio-ledger/interfaces"
)

// S3Journal persists events in Amazon S3 or a compatible object store, one
// object per event.
type S3Journal struct {
	client      *s3.S3
	bucketName  string
	prefix      string
	log         *slog.Logger
	locationURI string
}

// NewS3Journal creates an S3 journal. Credentials are required: unlike a
// content-addressed read cache, a journal is write-mostly and a bucket that
// accepts anonymous appends would defeat its purpose as an audit record.
func NewS3Journal(bucketName, prefix, region, endpoint, accessKey, secretKey string, log *slog.Logger) (*S3Journal, error) {
	uri := fmt.Sprintf("s3://%s/%s?region=%s", bucketName, prefix, region)
	if endpoint != "" {
		uri += fmt.Sprintf("&endpoint=%s", endpoint)
	}

	cfg := aws.Config{
		Region: aws.String(region),
	}
	if endpoint != "" {
		cfg.Endpoint = aws.String(endpoint)
	}
	if accessKey != "" && secretKey != "" {
		cfg.Credentials = credentials.NewStaticCredentials(accessKey, secretKey, "")
	}

	sess, err := session.NewSession(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return &S3Journal{
		client:      s3.New(sess),
		bucketName:  bucketName,
		prefix:      strings.TrimSuffix(prefix, "/"),
		log:         log,
		locationURI: uri,
	}, nil
}

func (j *S3Journal) objectKey(id interfaces.RecordID, key string) string {
	return path.Join(j.prefix, recordPrefix(id), key)
}

// Append uploads the event as a single object.
func (j *S3Journal) Append(ctx context.Context, event interfaces.Event) error {
	data, err := encodeEvent(event)
	if err != nil {
		return err
	}

	key := j.objectKey(event.RecordID, eventKey(event))
	_, err = j.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket: aws.String(j.bucketName),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("failed to upload event to S3: %w", err)
	}

	j.log.Debug("Journaled event to S3",
		slog.String("bucket", j.bucketName),
		slog.String("key", key))
	return nil
}

// Events replays a record's events by listing and fetching its objects.
func (j *S3Journal) Events(ctx context.Context, id interfaces.RecordID) ([]interfaces.Event, error) {
	listPrefix := j.objectKey(id, "") + "/"
	keys := []string{}

	err := j.client.ListObjectsV2PagesWithContext(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(j.bucketName),
		Prefix: aws.String(listPrefix),
	}, func(page *s3.ListObjectsV2Output, lastPage bool) bool {
		for _, obj := range page.Contents {
			keys = append(keys, aws.StringValue(obj.Key))
		}
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list events in S3: %w", err)
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("%w: record %d", interfaces.ErrEventNotFound, id)
	}
	sortEventsByKey(keys)

	events := make([]interfaces.Event, 0, len(keys))
	for _, key := range keys {
		result, err := j.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
			Bucket: aws.String(j.bucketName),
			Key:    aws.String(key),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to get event %s from S3: %w", key, err)
		}

		data, err := io.ReadAll(result.Body)
		result.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read event body: %w", err)
		}

		event, err := decodeEvent(data)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, nil
}

// Available checks bucket accessibility.
func (j *S3Journal) Available(ctx context.Context) bool {
	_, err := j.client.HeadBucketWithContext(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(j.bucketName),
	})
	if err != nil {
		j.log.Warn("S3 journal unavailable",
			slog.String("bucket", j.bucketName),
			"err", err)
		return false
	}
	return true
}

// Name returns a unique identifier for this backend.
func (j *S3Journal) Name() string {
	return fmt.Sprintf("s3-%s-%s", j.bucketName, j.prefix)
}

// LocationURI returns the URI this backend was created from.
func (j *S3Journal) LocationURI() string {
	return j.locationURI
}
