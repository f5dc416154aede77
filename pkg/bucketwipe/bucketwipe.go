// Asynchronous bulk deletion of bucket contents through the S3 data
// endpoint. The management API refuses to delete non-empty buckets, so a
// reclaimed bucket is wiped here first using the broker's repository
// credentials.
package bucketwipe

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Result accumulates the outcome of one wipe: a deleted-object count and any
// per-object errors. Done() is closed exactly once when the sweep finishes,
// whether it succeeded or not.
type Result struct {
	// ID identifies this wipe in logs.
	ID string

	deleted int64

	mu     sync.Mutex
	errors []string

	once sync.Once
	done chan struct{}
}

// NewResult returns an empty result with a fresh reference ID.
func NewResult() *Result {
	return &Result{
		ID:   uuid.New().String(),
		done: make(chan struct{}),
	}
}

// DeletedObjects returns the number of objects deleted so far.
func (r *Result) DeletedObjects() int64 {
	return atomic.LoadInt64(&r.deleted)
}

// Errors returns a copy of the per-object errors recorded so far.
func (r *Result) Errors() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.errors))
	copy(out, r.errors)
	return out
}

// Done is closed once the sweep has finished.
func (r *Result) Done() <-chan struct{} {
	return r.done
}

// AddDeleted adds to the deleted-object count.
func (r *Result) AddDeleted(n int64) {
	atomic.AddInt64(&r.deleted, n)
}

// AddError records one per-object error.
func (r *Result) AddError(msg string) {
	r.mu.Lock()
	r.errors = append(r.errors, msg)
	r.mu.Unlock()
}

// Complete marks the sweep as finished. Safe to call more than once; only
// the first call closes Done().
func (r *Result) Complete() {
	r.once.Do(func() { close(r.done) })
}

// Operations deletes bucket contents through an S3 client.
type Operations struct {
	s3  s3iface.S3API
	log logrus.FieldLogger
}

// New builds Operations against the given object endpoint with static
// credentials. The endpoint is addressed path-style since broker-created
// buckets are not resolvable as virtual hosts.
func New(endpoint, accessKey, secretKey string, log logrus.FieldLogger) (*Operations, error) {
	sess, err := session.NewSession(&aws.Config{
		Endpoint:         aws.String(endpoint),
		Region:           aws.String("us-east-1"),
		S3ForcePathStyle: aws.Bool(true),
		Credentials:      credentials.NewStaticCredentials(accessKey, secretKey, ""),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create S3 session")
	}
	return &Operations{s3: s3.New(sess), log: log}, nil
}

// NewWithClient builds Operations around an existing client.
func NewWithClient(client s3iface.S3API, log logrus.FieldLogger) *Operations {
	return &Operations{s3: client, log: log}
}

// DeleteAllObjects starts deleting every object under prefix in bucket and
// returns immediately. Progress and per-object failures accumulate in
// result; result.Done() is closed when the sweep finishes. A listing failure
// ends the sweep early and is recorded as an error. Deletion of one page
// overlaps with listing the next.
func (o *Operations) DeleteAllObjects(bucket, prefix string, result *Result) {
	go o.sweep(bucket, prefix, result)
}

func (o *Operations) sweep(bucket, prefix string, result *Result) {
	defer result.Complete()

	log := o.log.WithField("wipe", result.ID)
	log.Infof("wiping bucket '%s' with prefix '%s'", bucket, prefix)

	var g errgroup.Group
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	}
	for {
		page, err := o.s3.ListObjectsV2(input)
		if err != nil {
			result.AddError(fmt.Sprintf("list objects in %s: %v", bucket, err))
			break
		}

		if len(page.Contents) > 0 {
			objects := make([]*s3.ObjectIdentifier, 0, len(page.Contents))
			for _, obj := range page.Contents {
				objects = append(objects, &s3.ObjectIdentifier{Key: obj.Key})
			}
			g.Go(func() error {
				o.deleteBatch(bucket, objects, result)
				return nil
			})
		}

		if page.IsTruncated == nil || !*page.IsTruncated {
			break
		}
		input.ContinuationToken = page.NextContinuationToken
	}
	_ = g.Wait()

	log.Infof("wipe of bucket '%s' finished: %d objects deleted, %d errors",
		bucket, result.DeletedObjects(), len(result.Errors()))
}

// deleteBatch issues one multi-object delete. The S3 API reports per-key
// failures in the response body, not as a request error.
func (o *Operations) deleteBatch(bucket string, objects []*s3.ObjectIdentifier, result *Result) {
	resp, err := o.s3.DeleteObjects(&s3.DeleteObjectsInput{
		Bucket: aws.String(bucket),
		Delete: &s3.Delete{
			Objects: objects,
			Quiet:   aws.Bool(true),
		},
	})
	if err != nil {
		result.AddError(fmt.Sprintf("delete batch of %d objects in %s: %v", len(objects), bucket, err))
		return
	}

	failed := int64(0)
	for _, keyErr := range resp.Errors {
		failed++
		result.AddError(fmt.Sprintf("delete %s: %s", aws.StringValue(keyErr.Key), aws.StringValue(keyErr.Message)))
	}
	result.AddDeleted(int64(len(objects)) - failed)
}
