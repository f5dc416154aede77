package broker

import (
	"context"

	"github.com/pkg/errors"

	"github.com/emccode/ecs-cf-service-broker/pkg/bucketwipe"
)

// ObjectWiper starts an asynchronous bulk deletion of bucket contents.
// bucketwipe.Operations is the production implementation.
type ObjectWiper interface {
	DeleteAllObjects(bucket, prefix string, result *bucketwipe.Result)
}

// WiperFactory builds an ObjectWiper once the repository credentials are
// known during startup.
type WiperFactory func(endpoint, accessKey, secretKey string) (ObjectWiper, error)

// WipeAndDeleteBucket empties the bucket for this instance ID and then
// deletes it. The repository user is granted full control first so the wipe
// can enumerate and delete objects. The wipe itself is asynchronous: the
// returned channel yields the final outcome exactly once and is then closed.
// There is no retry; a failed wipe leaves the bucket in place for operator
// inspection and requires a new request.
func (s *EcsService) WipeAndDeleteBucket(ctx context.Context, id string) (<-chan error, error) {
	if err := s.AddUserToBucket(ctx, id, s.cfg.RepositoryUser); err != nil {
		return nil, errors.Wrapf(err, "failed to grant repository user access to bucket %s", s.prefix(id))
	}

	result := bucketwipe.NewResult()
	s.log.Infof("started wipe %s of bucket '%s'", result.ID, s.prefix(id))
	s.wiper.DeleteAllObjects(s.prefix(id), "", result)

	done := make(chan error, 1)
	go func() {
		<-result.Done()
		// The request context is gone by the time the wipe finishes;
		// the completion runs on its own.
		done <- s.bucketWipeCompleted(context.Background(), result, id)
		close(done)
	}()
	return done, nil
}

// bucketWipeCompleted decides what happens after a wipe finishes. Any
// per-object error fails the whole operation and the bucket is retained.
func (s *EcsService) bucketWipeCompleted(ctx context.Context, result *bucketwipe.Result, id string) error {
	bucketName := s.prefix(id)
	wipeErrors := result.Errors()
	if len(wipeErrors) > 0 {
		s.log.Warnf("bucket wipe %s failed, deleted %d objects, leaving bucket '%s'", result.ID, result.DeletedObjects(), bucketName)
		for _, wipeErr := range wipeErrors {
			s.log.Warnf("wipe %s error: %s", result.ID, wipeErr)
		}
		return errors.Errorf("bucket wipe failed with %d errors: %s", len(wipeErrors), wipeErrors[0])
	}

	s.log.Infof("bucket wipe %s succeeded, deleted %d objects, deleting bucket '%s'", result.ID, result.DeletedObjects(), bucketName)
	if err := s.api.DeleteBucket(ctx, bucketName, s.cfg.Namespace); err != nil {
		return errors.Wrapf(err, "failed to delete bucket %s after wipe", bucketName)
	}
	return nil
}
