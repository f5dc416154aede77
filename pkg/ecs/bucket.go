package ecs

import (
	"context"
	"net/http"
	"net/url"
)

// GetBucket fetches the info document for a bucket within a namespace.
func (c *Connection) GetBucket(ctx context.Context, name, namespace string) (*ObjectBucketInfo, error) {
	query := url.Values{"namespace": []string{namespace}}
	info := &ObjectBucketInfo{}
	err := c.do(ctx, http.MethodGet, "/object/bucket/"+name+"/info.json", query, nil, info)
	if err != nil {
		return nil, err
	}
	return info, nil
}

// BucketExists probes for a bucket. A 404 means absent, not an error.
func (c *Connection) BucketExists(ctx context.Context, name, namespace string) (bool, error) {
	_, err := c.GetBucket(ctx, name, namespace)
	if err != nil {
		if IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// CreateBucket creates a bucket from the given payload.
func (c *Connection) CreateBucket(ctx context.Context, create ObjectBucketCreate) error {
	return c.do(ctx, http.MethodPost, "/object/bucket.json", nil, create, nil)
}

// DeleteBucket removes a bucket. The bucket must be empty.
func (c *Connection) DeleteBucket(ctx context.Context, name, namespace string) error {
	query := url.Values{"namespace": []string{namespace}}
	return c.do(ctx, http.MethodPost, "/object/bucket/"+name+"/deactivate.json", query, nil, nil)
}

// CreateBucketQuota sets (or replaces) the quota on a bucket. Limit and warn
// are sizes in GB.
func (c *Connection) CreateBucketQuota(ctx context.Context, name, namespace string, limit, warn int) error {
	quota := bucketQuotaUpdate{
		BlockSize:        limit,
		NotificationSize: warn,
		Namespace:        namespace,
	}
	return c.do(ctx, http.MethodPut, "/object/bucket/"+name+"/quota.json", nil, quota, nil)
}

// DeleteBucketQuota removes any quota set on a bucket.
func (c *Connection) DeleteBucketQuota(ctx context.Context, name, namespace string) error {
	query := url.Values{"namespace": []string{namespace}}
	return c.do(ctx, http.MethodDelete, "/object/bucket/"+name+"/quota.json", query, nil, nil)
}

// UpdateBucketRetention sets the default retention period (seconds) on a
// bucket.
func (c *Connection) UpdateBucketRetention(ctx context.Context, name, namespace string, period int64) error {
	retention := bucketRetentionUpdate{
		Period:    period,
		Namespace: namespace,
	}
	return c.do(ctx, http.MethodPut, "/object/bucket/"+name+"/retention.json", nil, retention, nil)
}

// GetBucketACL fetches the ACL document for a bucket.
func (c *Connection) GetBucketACL(ctx context.Context, name, namespace string) (*BucketACL, error) {
	query := url.Values{"namespace": []string{namespace}}
	acl := &BucketACL{}
	err := c.do(ctx, http.MethodGet, "/object/bucket/"+name+"/acl.json", query, nil, acl)
	if err != nil {
		return nil, err
	}
	return acl, nil
}

// UpdateBucketACL writes back a full ACL document for a bucket.
func (c *Connection) UpdateBucketACL(ctx context.Context, acl BucketACL) error {
	return c.do(ctx, http.MethodPut, "/object/bucket/"+acl.Bucket+"/acl.json", nil, acl, nil)
}

// UpdateBucketPolicy installs a policy document on a bucket, replacing any
// previous policy.
func (c *Connection) UpdateBucketPolicy(ctx context.Context, name, namespace string, policy BucketPolicy) error {
	query := url.Values{"namespace": []string{namespace}}
	return c.do(ctx, http.MethodPut, "/object/bucket/"+name+"/policy.json", query, policy, nil)
}
