// Package s3archive stores copies of every processed payload in S3 so that
// operators can inspect exactly what crossed the integration boundary.
package s3archive

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/factorybridge/erp-mes-bridge/internal/ports"
)

// s3API is the subset of the S3 client the archive needs.
type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Archive implements ports.Archive on top of an S3 bucket. Objects are laid
// out under topic=<topic>/year=<y>/month=<m>/day=<d>/mid=<messageID>/<name>
// so that a day's traffic for one message can be listed with a single prefix.
type Archive struct {
	client     s3API
	bucket     string
	browserURL string
	topic      string
	messageID  string
	now        func() time.Time
}

// New constructs an Archive scoped to a single inbound message. topic names
// the queue the message arrived on and messageID identifies the message; both
// become part of every stored object's key.
func New(client s3API, bucket, browserURL, topic, messageID string) (*Archive, error) {
	if client == nil {
		return nil, fmt.Errorf("client must not be nil")
	}
	if bucket == "" {
		return nil, fmt.Errorf("bucket must not be empty")
	}
	if topic == "" {
		return nil, fmt.Errorf("topic must not be empty")
	}
	if messageID == "" {
		messageID = uuid.NewString()
	}
	return &Archive{
		client:     client,
		bucket:     bucket,
		browserURL: strings.TrimSuffix(browserURL, "/"),
		topic:      topic,
		messageID:  messageID,
		now:        time.Now,
	}, nil
}

// Store uploads content under the archive prefix and returns where it went.
func (a *Archive) Store(ctx context.Context, content []byte, name string) (ports.Locator, error) {
	key := a.key(name)

	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(content),
		ContentType: aws.String(contentType(name, content)),
	})
	if err != nil {
		return ports.Locator{}, fmt.Errorf("archive %s: %w", key, err)
	}

	loc := ports.Locator{Key: key}
	if a.browserURL != "" {
		loc.Link = a.browserURL + "/" + key
	}
	return loc, nil
}

func (a *Archive) key(name string) string {
	t := a.now().UTC()
	return fmt.Sprintf("topic=%s/year=%d/month=%02d/day=%02d/mid=%s/%s",
		a.topic, t.Year(), t.Month(), t.Day(), a.messageID, name)
}

// contentType resolves the MIME type from the file extension, falling back to
// sniffing the content when the extension is unknown.
func contentType(name string, content []byte) string {
	if ext := path.Ext(name); ext != "" {
		if ct := mime.TypeByExtension(ext); ct != "" {
			return ct
		}
	}
	return mimetype.Detect(content).String()
}
