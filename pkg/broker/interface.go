// Interfaces and shared datatypes for the broker.
//
// The orchestrator consumes the management API through the narrow interfaces
// below so tests can stand in fakes; ecs.Connection implements all of them.
package broker

import (
	"context"

	"github.com/emccode/ecs-cf-service-broker/pkg/ecs"
)

// BucketAPI covers bucket-level resource actions.
type BucketAPI interface {
	GetBucket(ctx context.Context, name, namespace string) (*ecs.ObjectBucketInfo, error)
	BucketExists(ctx context.Context, name, namespace string) (bool, error)
	CreateBucket(ctx context.Context, create ecs.ObjectBucketCreate) error
	DeleteBucket(ctx context.Context, name, namespace string) error
	CreateBucketQuota(ctx context.Context, name, namespace string, limit, warn int) error
	DeleteBucketQuota(ctx context.Context, name, namespace string) error
	UpdateBucketRetention(ctx context.Context, name, namespace string, period int64) error
	GetBucketACL(ctx context.Context, name, namespace string) (*ecs.BucketACL, error)
	UpdateBucketACL(ctx context.Context, acl ecs.BucketACL) error
	UpdateBucketPolicy(ctx context.Context, name, namespace string, policy ecs.BucketPolicy) error
}

// NamespaceAPI covers namespace-level resource actions, including retention
// classes.
type NamespaceAPI interface {
	NamespaceExists(ctx context.Context, name string) (bool, error)
	CreateNamespace(ctx context.Context, create ecs.NamespaceCreate) error
	UpdateNamespace(ctx context.Context, name string, update ecs.NamespaceUpdate) error
	DeleteNamespace(ctx context.Context, name string) error
	CreateNamespaceQuota(ctx context.Context, name string, blockSize, notificationSize int) error
	RetentionClassExists(ctx context.Context, namespace, class string) (bool, error)
	CreateRetentionClass(ctx context.Context, namespace, class string, period int64) error
	UpdateRetentionClass(ctx context.Context, namespace, class string, period int64) error
	DeleteRetentionClass(ctx context.Context, namespace, class string) error
}

// UserAPI covers object users, their secret keys and unix UID mappings.
type UserAPI interface {
	UserExists(ctx context.Context, uid, namespace string) (bool, error)
	CreateUser(ctx context.Context, uid, namespace string) error
	DeleteUser(ctx context.Context, uid string) error
	CreateUserSecret(ctx context.Context, uid string) (*ecs.UserSecretKey, error)
	ListUserSecrets(ctx context.Context, uid string) ([]ecs.UserSecretKey, error)
	CreateUserMap(ctx context.Context, uid string, unixUID int, namespace string) error
	DeleteUserMap(ctx context.Context, uid, unixUID, namespace string) error
}

// InfraAPI covers cluster-level catalogs: base URLs, replication groups and
// NFS exports.
type InfraAPI interface {
	ListBaseURLs(ctx context.Context) ([]ecs.BaseURL, error)
	GetBaseURL(ctx context.Context, id string) (*ecs.BaseURLInfo, error)
	ListReplicationGroups(ctx context.Context) ([]ecs.ReplicationGroup, error)
	ListNFSExports(ctx context.Context, pathPrefix string) ([]ecs.NFSExport, error)
	CreateNFSExport(ctx context.Context, exportPath string) error
}

// ManagementAPI is the full set of resource actions the orchestrator needs.
type ManagementAPI interface {
	BucketAPI
	NamespaceAPI
	UserAPI
	InfraAPI
}
