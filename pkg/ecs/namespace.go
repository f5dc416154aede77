package ecs

import (
	"context"
	"net/http"
)

// GetNamespace fetches the info document for a namespace.
func (c *Connection) GetNamespace(ctx context.Context, name string) (*NamespaceInfo, error) {
	info := &NamespaceInfo{}
	err := c.do(ctx, http.MethodGet, "/object/namespaces/namespace/"+name+".json", nil, nil, info)
	if err != nil {
		return nil, err
	}
	return info, nil
}

// NamespaceExists probes for a namespace. A 404 means absent, not an error.
func (c *Connection) NamespaceExists(ctx context.Context, name string) (bool, error) {
	_, err := c.GetNamespace(ctx, name)
	if err != nil {
		if IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// CreateNamespace creates a namespace from the given payload.
func (c *Connection) CreateNamespace(ctx context.Context, create NamespaceCreate) error {
	return c.do(ctx, http.MethodPost, "/object/namespaces/namespace.json", nil, create, nil)
}

// UpdateNamespace updates the mutable attributes of a namespace.
func (c *Connection) UpdateNamespace(ctx context.Context, name string, update NamespaceUpdate) error {
	return c.do(ctx, http.MethodPut, "/object/namespaces/namespace/"+name+".json", nil, update, nil)
}

// DeleteNamespace removes a namespace.
func (c *Connection) DeleteNamespace(ctx context.Context, name string) error {
	return c.do(ctx, http.MethodPost, "/object/namespaces/namespace/"+name+"/deactivate.json", nil, nil, nil)
}

// CreateNamespaceQuota sets the quota on a namespace: a hard block size and a
// notification (warning) size, both in GB.
func (c *Connection) CreateNamespaceQuota(ctx context.Context, name string, blockSize, notificationSize int) error {
	quota := namespaceQuotaCreate{
		Namespace:        name,
		BlockSize:        blockSize,
		NotificationSize: notificationSize,
	}
	return c.do(ctx, http.MethodPut, "/object/namespaces/namespace/"+name+"/quota.json", nil, quota, nil)
}

// RetentionClassExists probes for a named retention class in a namespace.
func (c *Connection) RetentionClassExists(ctx context.Context, namespace, class string) (bool, error) {
	rc := &RetentionClass{}
	err := c.do(ctx, http.MethodGet, "/object/namespaces/namespace/"+namespace+"/retention/"+class+".json", nil, nil, rc)
	if err != nil {
		if IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ListRetentionClasses returns all retention classes defined on a namespace.
func (c *Connection) ListRetentionClasses(ctx context.Context, namespace string) ([]RetentionClass, error) {
	list := &retentionClassList{}
	err := c.do(ctx, http.MethodGet, "/object/namespaces/namespace/"+namespace+"/retention.json", nil, nil, list)
	if err != nil {
		return nil, err
	}
	return list.RetentionClass, nil
}

// CreateRetentionClass defines a new retention class on a namespace.
func (c *Connection) CreateRetentionClass(ctx context.Context, namespace, class string, period int64) error {
	rc := RetentionClass{Name: class, Period: period}
	return c.do(ctx, http.MethodPost, "/object/namespaces/namespace/"+namespace+"/retention.json", nil, rc, nil)
}

// UpdateRetentionClass changes the period of an existing retention class.
func (c *Connection) UpdateRetentionClass(ctx context.Context, namespace, class string, period int64) error {
	rc := RetentionClass{Name: class, Period: period}
	return c.do(ctx, http.MethodPut, "/object/namespaces/namespace/"+namespace+"/retention/"+class+".json", nil, rc, nil)
}

// DeleteRetentionClass removes a retention class from a namespace.
func (c *Connection) DeleteRetentionClass(ctx context.Context, namespace, class string) error {
	return c.do(ctx, http.MethodDelete, "/object/namespaces/namespace/"+namespace+"/retention/"+class+".json", nil, nil, nil)
}
