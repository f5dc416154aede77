// Wire types for the ECS management REST API. Field names follow the JSON
// documents the API produces and consumes.
package ecs

import (
	"fmt"
	"strings"
)

// ObjectBucketCreate is the payload for creating a bucket.
type ObjectBucketCreate struct {
	Name              string `json:"name"`
	Namespace         string `json:"namespace"`
	ReplicationGroup  string `json:"vpool"`
	FilesystemEnabled bool   `json:"filesystem_enabled"`
	HeadType          string `json:"head_type,omitempty"`
	StaleAllowed      bool   `json:"is_stale_allowed"`
	EncryptionEnabled bool   `json:"is_encryption_enabled"`
}

// ObjectBucketInfo describes an existing bucket.
type ObjectBucketInfo struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Namespace        string `json:"namespace"`
	ReplicationGroup string `json:"vpool"`
	FsAccessEnabled  bool   `json:"fs_access_enabled"`
	Created          string `json:"created"`
}

// BucketUserACL is one user entry in a bucket ACL.
type BucketUserACL struct {
	User        string   `json:"user"`
	Permissions []string `json:"permission"`
}

// ACL is the access list portion of a bucket ACL document.
type ACL struct {
	Owner          string          `json:"owner"`
	UserAccessList []BucketUserACL `json:"user_acl"`
}

// BucketACL is the full ACL document for a bucket.
type BucketACL struct {
	Bucket    string `json:"bucket"`
	Namespace string `json:"namespace"`
	ACL       ACL    `json:"acl"`
}

// BucketPolicyStatement is a single statement of a bucket policy document.
type BucketPolicyStatement struct {
	Sid       string   `json:"Sid"`
	Effect    string   `json:"Effect"`
	Principal string   `json:"Principal"`
	Actions   []string `json:"Action"`
	Resources []string `json:"Resource"`
}

// BucketPolicy is an S3-style bucket policy document.
type BucketPolicy struct {
	Version   string                  `json:"Version"`
	ID        string                  `json:"Id"`
	Statement []BucketPolicyStatement `json:"Statement"`
}

// bucketQuotaUpdate is the payload for setting a bucket quota.
type bucketQuotaUpdate struct {
	BlockSize        int    `json:"blockSize"`
	NotificationSize int    `json:"notificationSize"`
	Namespace        string `json:"namespace"`
}

// bucketRetentionUpdate is the payload for setting a bucket default
// retention period.
type bucketRetentionUpdate struct {
	Period    int64  `json:"period"`
	Namespace string `json:"namespace"`
}

// NamespaceCreate is the payload for creating a namespace.
type NamespaceCreate struct {
	Name               string   `json:"namespace"`
	ReplicationGroup   string   `json:"default_data_services_vpool"`
	StaleAllowed       bool     `json:"is_stale_allowed"`
	EncryptionEnabled  bool     `json:"is_encryption_enabled"`
	ComplianceEnabled  bool     `json:"compliance_enabled"`
	AccessDuringOutage bool     `json:"is_allowed_during_outage"`
	DomainGroupAdmins  []string `json:"domain_group_admins,omitempty"`
}

// NamespaceUpdate carries the mutable attributes of a namespace.
type NamespaceUpdate struct {
	ReplicationGroup   string `json:"default_data_services_vpool,omitempty"`
	StaleAllowed       bool   `json:"is_stale_allowed"`
	EncryptionEnabled  bool   `json:"is_encryption_enabled"`
	ComplianceEnabled  bool   `json:"compliance_enabled"`
	AccessDuringOutage bool   `json:"is_allowed_during_outage"`
}

// NamespaceInfo describes an existing namespace.
type NamespaceInfo struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	ReplicationGroup string `json:"default_data_services_vpool"`
}

// namespaceQuotaCreate is the payload for setting a namespace quota. The
// management API expresses namespace quotas as a hard block size and a
// notification (warning) size.
type namespaceQuotaCreate struct {
	Namespace        string `json:"namespace"`
	BlockSize        int    `json:"blockSize"`
	NotificationSize int    `json:"notificationSize"`
}

// RetentionClass is a named minimum-retention-period policy scoped to a
// namespace. A period of -1 means the class is unset.
type RetentionClass struct {
	Name   string `json:"name"`
	Period int64  `json:"period"`
}

type retentionClassList struct {
	RetentionClass []RetentionClass `json:"retention_class"`
}

// UserSecretKey is one secret key belonging to an object user.
type UserSecretKey struct {
	SecretKey          string `json:"secret_key"`
	KeyTimestamp       string `json:"key_timestamp"`
	KeyExpiryTimestamp string `json:"key_expiry_timestamp"`
}

type userSecretKeyList struct {
	SecretKey1 string `json:"secret_key_1"`
	Timestamp1 string `json:"key_timestamp_1"`
	SecretKey2 string `json:"secret_key_2"`
	Timestamp2 string `json:"key_timestamp_2"`
}

// BaseURL identifies one configured base URL on the management server.
type BaseURL struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type baseURLList struct {
	BaseURLs []BaseURL `json:"base_url"`
}

// BaseURLInfo carries the details of a single base URL.
type BaseURLInfo struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	BaseURL         string `json:"base_url"`
	NamespaceInHost bool   `json:"namespace_in_host"`
}

const (
	objectPortHTTP  = 9020
	objectPortHTTPS = 9021
)

// NamespaceURL returns the object endpoint URL through which the given
// namespace is addressed via this base URL.
func (b BaseURLInfo) NamespaceURL(namespace string, useSSL bool) string {
	scheme, port := "http", objectPortHTTP
	if useSSL {
		scheme, port = "https", objectPortHTTPS
	}
	host := b.BaseURL
	if b.NamespaceInHost {
		host = namespace + "." + b.BaseURL
	}
	return fmt.Sprintf("%s://%s:%d", scheme, host, port)
}

// ReplicationGroup is a storage pool (vpool) that data is replicated across.
type ReplicationGroup struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type replicationGroupList struct {
	ReplicationGroups []ReplicationGroup `json:"data_service_vpool"`
}

// NFSExport is a single NFS export entry.
type NFSExport struct {
	ID   int    `json:"id"`
	Path string `json:"path"`
}

type nfsExportList struct {
	Exports []NFSExport `json:"exports"`
}

// APIError is a non-2xx response from the management API.
type APIError struct {
	StatusCode  int    `json:"-"`
	Code        int    `json:"code"`
	Description string `json:"description"`
	Details     string `json:"details"`
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("management API returned status %d", e.StatusCode)
	if e.Description != "" {
		msg += ": " + strings.TrimSpace(e.Description)
	}
	if e.Details != "" {
		msg += " (" + strings.TrimSpace(e.Details) + ")"
	}
	return msg
}

// IsNotFound reports whether err is an APIError for a missing resource.
// Existence probes rely on this to turn a 404 into a clean "absent" answer.
func IsNotFound(err error) bool {
	apiErr, ok := err.(*APIError)
	return ok && apiErr.StatusCode == 404
}
