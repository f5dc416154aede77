package bucketwipe

import (
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeS3 serves canned list pages and records delete requests.
type fakeS3 struct {
	s3iface.S3API

	mu      sync.Mutex
	pages   []*s3.ListObjectsV2Output
	listErr error
	deleted []string
	// keys that DeleteObjects reports as failed
	failKeys map[string]string
	listed   int
}

func (f *fakeS3) ListObjectsV2(input *s3.ListObjectsV2Input) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	if f.listed >= len(f.pages) {
		return &s3.ListObjectsV2Output{IsTruncated: aws.Bool(false)}, nil
	}
	page := f.pages[f.listed]
	f.listed++
	return page, nil
}

func (f *fakeS3) DeleteObjects(input *s3.DeleteObjectsInput) (*s3.DeleteObjectsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := &s3.DeleteObjectsOutput{}
	for _, obj := range input.Delete.Objects {
		key := aws.StringValue(obj.Key)
		if msg, failed := f.failKeys[key]; failed {
			out.Errors = append(out.Errors, &s3.Error{
				Key:     obj.Key,
				Message: aws.String(msg),
			})
			continue
		}
		f.deleted = append(f.deleted, key)
	}
	return out, nil
}

func page(truncated bool, keys ...string) *s3.ListObjectsV2Output {
	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(truncated)}
	if truncated {
		out.NextContinuationToken = aws.String("next")
	}
	for _, k := range keys {
		out.Contents = append(out.Contents, &s3.Object{Key: aws.String(k)})
	}
	return out
}

func awaitResult(t *testing.T, result *Result) {
	t.Helper()
	select {
	case <-result.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("wipe never completed")
	}
}

func TestDeleteAllObjectsPaginates(t *testing.T) {
	client := &fakeS3{
		pages: []*s3.ListObjectsV2Output{
			page(true, "a", "b"),
			page(false, "c"),
		},
	}
	ops := NewWithClient(client, logrus.New())

	result := NewResult()
	ops.DeleteAllObjects("bucket", "", result)
	awaitResult(t, result)

	assert.EqualValues(t, 3, result.DeletedObjects())
	assert.Empty(t, result.Errors())
	assert.ElementsMatch(t, []string{"a", "b", "c"}, client.deleted)
}

func TestDeleteAllObjectsEmptyBucket(t *testing.T) {
	ops := NewWithClient(&fakeS3{}, logrus.New())

	result := NewResult()
	ops.DeleteAllObjects("bucket", "", result)
	awaitResult(t, result)

	assert.Zero(t, result.DeletedObjects())
	assert.Empty(t, result.Errors())
}

func TestPerKeyDeleteErrorsAccumulate(t *testing.T) {
	client := &fakeS3{
		pages:    []*s3.ListObjectsV2Output{page(false, "a", "b", "c")},
		failKeys: map[string]string{"b": "access denied"},
	}
	ops := NewWithClient(client, logrus.New())

	result := NewResult()
	ops.DeleteAllObjects("bucket", "", result)
	awaitResult(t, result)

	assert.EqualValues(t, 2, result.DeletedObjects())
	errs := result.Errors()
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "delete b: access denied")
}

func TestListFailureEndsSweep(t *testing.T) {
	client := &fakeS3{listErr: assert.AnError}
	ops := NewWithClient(client, logrus.New())

	result := NewResult()
	ops.DeleteAllObjects("bucket", "", result)
	awaitResult(t, result)

	errs := result.Errors()
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "list objects in bucket")
	assert.Zero(t, result.DeletedObjects())
}

func TestResultCompleteIsIdempotent(t *testing.T) {
	result := NewResult()
	result.Complete()
	result.Complete()
	select {
	case <-result.Done():
	default:
		t.Fatal("Done should be closed after Complete")
	}
	assert.NotEmpty(t, result.ID)
}
