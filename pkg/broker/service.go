package broker

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/emccode/ecs-cf-service-broker/pkg/ecs"
)

const (
	fullControl = "full_control"

	bucketPolicyVersion = "2012-10-17"
	bucketPolicyID      = "DefaultBrokerBucketPolicy"
	bucketPolicySid     = "DefaultAllowTotalAccess"
)

// EcsService sequences management-API calls to implement the broker's
// provisioning operations. All identifiers are prefixed exactly once before
// they touch the management API. The resolved object endpoint and
// replication-group ID are fixed at construction time; restart the process
// to pick up environment changes.
type EcsService struct {
	api     ManagementAPI
	cfg     *Config
	catalog *Catalog
	log     logrus.FieldLogger

	wiper ObjectWiper

	// Resolved once during construction, read-only afterwards.
	replicationGroupID   string
	objectEndpoint       string
	repositoryEndpoint   string
	defaultReclaimPolicy ReclaimPolicy
	repositorySecret     string
}

// NewEcsService connects the orchestrator to the management API and runs the
// startup sequence: endpoint and replication-group resolution, default
// reclaim policy, and repository bootstrap. Any failure is fatal; the broker
// must not serve requests with unresolved state.
func NewEcsService(ctx context.Context, api ManagementAPI, cfg *Config, catalog *Catalog, log logrus.FieldLogger, newWiper WiperFactory) (*EcsService, error) {
	s := &EcsService{
		api:     api,
		cfg:     cfg,
		catalog: catalog,
		log:     log,
	}
	if err := s.initialize(ctx, newWiper); err != nil {
		return nil, err
	}
	return s, nil
}

// ObjectEndpoint returns the resolved object data endpoint.
func (s *EcsService) ObjectEndpoint() string {
	return s.objectEndpoint
}

// NFSMountHost returns the configured NFS mount host.
func (s *EcsService) NFSMountHost() string {
	return s.cfg.NFSMountHost
}

func (s *EcsService) prefix(id string) string {
	return s.cfg.Prefix + id
}

// BucketExists reports whether the bucket for this instance ID exists.
func (s *EcsService) BucketExists(ctx context.Context, id string) (bool, error) {
	return s.api.BucketExists(ctx, s.prefix(id), s.cfg.Namespace)
}

// GetBucketFileEnabled reports whether a bucket has file access enabled.
func (s *EcsService) GetBucketFileEnabled(ctx context.Context, id string) (bool, error) {
	info, err := s.api.GetBucket(ctx, s.prefix(id), s.cfg.Namespace)
	if err != nil {
		return false, errors.Wrapf(err, "failed to get bucket %s", s.prefix(id))
	}
	return info.FsAccessEnabled, nil
}

// CreateBucket provisions a bucket for the instance ID, applying quota and
// default retention from the merged parameters. The returned parameter map
// is what the caller should persist as instance metadata.
func (s *EcsService) CreateBucket(ctx context.Context, id string, service *ServiceDefinition, plan *Plan, params map[string]interface{}) (map[string]interface{}, error) {
	bucketName := s.prefix(id)
	s.log.Infof("creating bucket '%s'", bucketName)

	exists, err := s.BucketExists(ctx, id)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to check bucket %s", bucketName)
	}
	if exists {
		return nil, &InstanceExistsError{InstanceID: id, ServiceID: service.ID}
	}

	params = MergeParameters(params, plan.ServiceSettings, service.ServiceSettings)

	if _, violation := ResolveReclaimPolicy(params, s.defaultReclaimPolicy); violation != nil {
		return nil, violation
	}

	err = s.api.CreateBucket(ctx, ecs.ObjectBucketCreate{
		Name:              bucketName,
		Namespace:         s.cfg.Namespace,
		ReplicationGroup:  s.replicationGroupID,
		FilesystemEnabled: boolParam(params, ParamFileAccessible),
		StaleAllowed:      boolParam(params, ParamStaleAllowed),
		EncryptionEnabled: boolParam(params, ParamEncrypted),
		HeadType:          "s3",
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create bucket %s", bucketName)
	}

	if limit, warn, ok := quotaSettings(params); ok {
		s.log.Infof("applying bucket quota on '%s': limit %d, warn %d", bucketName, limit, warn)
		if err := s.api.CreateBucketQuota(ctx, bucketName, s.cfg.Namespace, limit, warn); err != nil {
			return nil, errors.Wrapf(err, "failed to apply quota to bucket %s", bucketName)
		}
	}

	if raw, ok := params[ParamDefaultRetention]; ok && raw != nil {
		period := int64Value(raw, -1)
		s.log.Infof("applying default retention on '%s': %d", bucketName, period)
		if err := s.api.UpdateBucketRetention(ctx, bucketName, s.cfg.Namespace, period); err != nil {
			return nil, errors.Wrapf(err, "failed to apply retention to bucket %s", bucketName)
		}
	}

	return params, nil
}

// ChangeBucketPlan moves a bucket to a new plan. The bucket quota is fully
// replaced: with limit and warn both absent or -1 the quota is deleted and
// the quota key dropped from the returned parameters.
func (s *EcsService) ChangeBucketPlan(ctx context.Context, id string, service *ServiceDefinition, plan *Plan, params map[string]interface{}) (map[string]interface{}, error) {
	bucketName := s.prefix(id)
	params = MergeParameters(params, plan.ServiceSettings, service.ServiceSettings)

	if _, violation := ResolveReclaimPolicy(params, s.defaultReclaimPolicy); violation != nil {
		return nil, violation
	}

	limit, warn, _ := quotaSettings(params)
	if limit == -1 && warn == -1 {
		delete(params, ParamQuota)
		if err := s.api.DeleteBucketQuota(ctx, bucketName, s.cfg.Namespace); err != nil {
			return nil, errors.Wrapf(err, "failed to delete quota on bucket %s", bucketName)
		}
	} else {
		if err := s.api.CreateBucketQuota(ctx, bucketName, s.cfg.Namespace, limit, warn); err != nil {
			return nil, errors.Wrapf(err, "failed to apply quota to bucket %s", bucketName)
		}
	}
	return params, nil
}

// DeleteBucket removes the bucket for this instance ID. The bucket must be
// empty; use WipeAndDeleteBucket otherwise.
func (s *EcsService) DeleteBucket(ctx context.Context, id string) error {
	bucketName := s.prefix(id)
	s.log.Infof("deleting bucket '%s'", bucketName)
	if err := s.api.DeleteBucket(ctx, bucketName, s.cfg.Namespace); err != nil {
		return errors.Wrapf(err, "failed to delete bucket %s", bucketName)
	}
	return nil
}

// AddUserToBucket grants username full control on the bucket.
func (s *EcsService) AddUserToBucket(ctx context.Context, id, username string) error {
	return s.AddUserToBucketWithPermissions(ctx, id, username, []string{fullControl})
}

// AddUserToBucketWithPermissions adds an ACL entry for username with the
// given permissions. When the bucket is not file-enabled, a policy document
// granting the user all S3 actions is installed as well, replacing any
// previous policy.
func (s *EcsService) AddUserToBucketWithPermissions(ctx context.Context, id, username string, permissions []string) error {
	bucketName := s.prefix(id)
	userName := s.prefix(username)
	s.log.Infof("adding user '%s' to bucket '%s' with %v access", userName, bucketName, permissions)

	acl, err := s.api.GetBucketACL(ctx, bucketName, s.cfg.Namespace)
	if err != nil {
		return errors.Wrapf(err, "failed to get ACL of bucket %s", bucketName)
	}
	acl.ACL.UserAccessList = append(acl.ACL.UserAccessList, ecs.BucketUserACL{
		User:        userName,
		Permissions: permissions,
	})
	if err := s.api.UpdateBucketACL(ctx, *acl); err != nil {
		return errors.Wrapf(err, "failed to update ACL of bucket %s", bucketName)
	}

	fileEnabled, err := s.GetBucketFileEnabled(ctx, id)
	if err != nil {
		return err
	}
	if !fileEnabled {
		policy := ecs.BucketPolicy{
			Version: bucketPolicyVersion,
			ID:      bucketPolicyID,
			Statement: []ecs.BucketPolicyStatement{{
				Sid:       bucketPolicySid,
				Effect:    "Allow",
				Principal: userName,
				Actions:   []string{"s3:*"},
				Resources: []string{bucketName},
			}},
		}
		if err := s.api.UpdateBucketPolicy(ctx, bucketName, s.cfg.Namespace, policy); err != nil {
			return errors.Wrapf(err, "failed to update policy of bucket %s", bucketName)
		}
	}
	return nil
}

// RemoveUserFromBucket drops username's entries from the bucket ACL.
func (s *EcsService) RemoveUserFromBucket(ctx context.Context, id, username string) error {
	bucketName := s.prefix(id)
	userName := s.prefix(username)

	acl, err := s.api.GetBucketACL(ctx, bucketName, s.cfg.Namespace)
	if err != nil {
		return errors.Wrapf(err, "failed to get ACL of bucket %s", bucketName)
	}
	kept := acl.ACL.UserAccessList[:0]
	for _, entry := range acl.ACL.UserAccessList {
		if entry.User != userName {
			kept = append(kept, entry)
		}
	}
	acl.ACL.UserAccessList = kept
	if err := s.api.UpdateBucketACL(ctx, *acl); err != nil {
		return errors.Wrapf(err, "failed to update ACL of bucket %s", bucketName)
	}
	return nil
}

// UserExists reports whether the object user for this instance ID exists.
func (s *EcsService) UserExists(ctx context.Context, id string) (bool, error) {
	exists, err := s.api.UserExists(ctx, s.prefix(id), s.cfg.Namespace)
	if err != nil {
		return false, errors.Wrapf(err, "failed to check user %s", s.prefix(id))
	}
	return exists, nil
}

// CreateUser creates an object user in the broker namespace and returns its
// freshly created secret key.
func (s *EcsService) CreateUser(ctx context.Context, id string) (*ecs.UserSecretKey, error) {
	return s.createUser(ctx, s.prefix(id), s.cfg.Namespace)
}

// CreateUserInNamespace creates an object user scoped to a broker-owned
// namespace instance.
func (s *EcsService) CreateUserInNamespace(ctx context.Context, id, namespaceID string) (*ecs.UserSecretKey, error) {
	return s.createUser(ctx, s.prefix(id), s.prefix(namespaceID))
}

func (s *EcsService) createUser(ctx context.Context, userID, namespace string) (*ecs.UserSecretKey, error) {
	s.log.Infof("creating user '%s' in namespace '%s'", userID, namespace)
	if err := s.api.CreateUser(ctx, userID, namespace); err != nil {
		return nil, errors.Wrapf(err, "failed to create user %s", userID)
	}

	s.log.Infof("creating secret for user '%s'", userID)
	if _, err := s.api.CreateUserSecret(ctx, userID); err != nil {
		return nil, errors.Wrapf(err, "failed to create secret for user %s", userID)
	}

	keys, err := s.api.ListUserSecrets(ctx, userID)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list secrets of user %s", userID)
	}
	if len(keys) == 0 {
		return nil, errors.Errorf("user %s has no secret keys after creation", userID)
	}
	return &keys[0], nil
}

// DeleteUser removes the object user for this instance ID.
func (s *EcsService) DeleteUser(ctx context.Context, id string) error {
	userID := s.prefix(id)
	s.log.Infof("deleting user '%s'", userID)
	if err := s.api.DeleteUser(ctx, userID); err != nil {
		return errors.Wrapf(err, "failed to delete user %s", userID)
	}
	return nil
}

// CreateUserMap maps the object user to a unix UID for NFS access.
func (s *EcsService) CreateUserMap(ctx context.Context, id string, unixUID int) error {
	return s.api.CreateUserMap(ctx, s.prefix(id), unixUID, s.cfg.Namespace)
}

// DeleteUserMap removes the unix UID mapping of the object user.
func (s *EcsService) DeleteUserMap(ctx context.Context, id, unixUID string) error {
	return s.api.DeleteUserMap(ctx, s.prefix(id), unixUID, s.cfg.Namespace)
}

// NamespaceExists reports whether the namespace for this instance ID exists.
func (s *EcsService) NamespaceExists(ctx context.Context, id string) (bool, error) {
	return s.api.NamespaceExists(ctx, s.prefix(id))
}

// CreateNamespace provisions a namespace for the instance ID, applying quota
// and retention classes from the merged parameters.
func (s *EcsService) CreateNamespace(ctx context.Context, id string, service *ServiceDefinition, plan *Plan, params map[string]interface{}) (map[string]interface{}, error) {
	exists, err := s.NamespaceExists(ctx, id)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to check namespace %s", s.prefix(id))
	}
	if exists {
		return nil, &InstanceExistsError{InstanceID: id, ServiceID: service.ID}
	}

	params = MergeParameters(params, plan.ServiceSettings, service.ServiceSettings)

	namespaceName := s.prefix(id)
	s.log.Infof("creating namespace '%s'", namespaceName)
	err = s.api.CreateNamespace(ctx, ecs.NamespaceCreate{
		Name:               namespaceName,
		ReplicationGroup:   s.replicationGroupID,
		StaleAllowed:       boolParam(params, ParamStaleAllowed),
		EncryptionEnabled:  boolParam(params, ParamEncrypted),
		ComplianceEnabled:  boolParam(params, ParamCompliance),
		AccessDuringOutage: boolParam(params, ParamAccessDuringOutage),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create namespace %s", namespaceName)
	}

	if limit, warn, ok := quotaSettings(params); ok {
		s.log.Infof("applying quota to namespace '%s': block size %d, notification size %d", namespaceName, limit, warn)
		if err := s.api.CreateNamespaceQuota(ctx, namespaceName, limit, warn); err != nil {
			return nil, errors.Wrapf(err, "failed to apply quota to namespace %s", namespaceName)
		}
	}

	if classes, ok := retentionClasses(params); ok {
		for name, period := range classes {
			s.log.Infof("adding retention class to namespace '%s': %s = %d", namespaceName, name, period)
			if err := s.api.CreateRetentionClass(ctx, namespaceName, name, period); err != nil {
				return nil, errors.Wrapf(err, "failed to create retention class %s on namespace %s", name, namespaceName)
			}
		}
	}

	return params, nil
}

// ChangeNamespacePlan updates a namespace and reconciles its retention
// classes one by one: period -1 deletes an existing class (and drops the
// retention key from the returned parameters), other periods update or
// create the class. There is no rollback across classes.
func (s *EcsService) ChangeNamespacePlan(ctx context.Context, id string, service *ServiceDefinition, plan *Plan, params map[string]interface{}) (map[string]interface{}, error) {
	namespaceName := s.prefix(id)
	s.log.Infof("changing namespace '%s' plan to '%s' (%s)", namespaceName, plan.Name, plan.ID)

	params = MergeParameters(params, plan.ServiceSettings, service.ServiceSettings)

	err := s.api.UpdateNamespace(ctx, namespaceName, ecs.NamespaceUpdate{
		StaleAllowed:       boolParam(params, ParamStaleAllowed),
		EncryptionEnabled:  boolParam(params, ParamEncrypted),
		ComplianceEnabled:  boolParam(params, ParamCompliance),
		AccessDuringOutage: boolParam(params, ParamAccessDuringOutage),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to update namespace %s", namespaceName)
	}

	classes, ok := retentionClasses(params)
	if !ok {
		return params, nil
	}
	for name, period := range classes {
		exists, err := s.api.RetentionClassExists(ctx, namespaceName, name)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to check retention class %s on namespace %s", name, namespaceName)
		}
		switch {
		case exists && period == -1:
			s.log.Infof("removing retention class '%s' from namespace '%s'", name, namespaceName)
			if err := s.api.DeleteRetentionClass(ctx, namespaceName, name); err != nil {
				return nil, errors.Wrapf(err, "failed to delete retention class %s on namespace %s", name, namespaceName)
			}
			delete(params, ParamRetention)
		case exists:
			s.log.Infof("updating retention class '%s' on namespace '%s' to %d", name, namespaceName, period)
			if err := s.api.UpdateRetentionClass(ctx, namespaceName, name, period); err != nil {
				return nil, errors.Wrapf(err, "failed to update retention class %s on namespace %s", name, namespaceName)
			}
		case period == -1:
			// Deleting a class that does not exist is a no-op.
		default:
			s.log.Infof("setting retention class '%s' on namespace '%s' to %d", name, namespaceName, period)
			if err := s.api.CreateRetentionClass(ctx, namespaceName, name, period); err != nil {
				return nil, errors.Wrapf(err, "failed to create retention class %s on namespace %s", name, namespaceName)
			}
		}
	}
	return params, nil
}

// DeleteNamespace removes the namespace for this instance ID.
func (s *EcsService) DeleteNamespace(ctx context.Context, id string) error {
	namespaceName := s.prefix(id)
	s.log.Infof("deleting namespace '%s'", namespaceName)
	if err := s.api.DeleteNamespace(ctx, namespaceName); err != nil {
		return errors.Wrapf(err, "failed to delete namespace %s", namespaceName)
	}
	return nil
}

// AddExportToBucket ensures an NFS export exists for the given path inside
// the bucket and returns the absolute export path.
func (s *EcsService) AddExportToBucket(ctx context.Context, id, relativeExportPath string) (string, error) {
	exportPath := "/" + s.cfg.Namespace + "/" + s.prefix(id) + "/" + relativeExportPath
	exports, err := s.api.ListNFSExports(ctx, exportPath)
	if err != nil {
		return "", errors.Wrapf(err, "failed to list NFS exports under %s", exportPath)
	}
	if exports == nil {
		if err := s.api.CreateNFSExport(ctx, exportPath); err != nil {
			return "", errors.Wrapf(err, "failed to create NFS export %s", exportPath)
		}
	}
	return exportPath, nil
}

// NamespaceURL resolves the object endpoint URL for a namespace, honoring
// base-url and use-ssl overrides in the given parameters after merging in
// the forced service settings.
func (s *EcsService) NamespaceURL(ctx context.Context, namespace string, params, serviceSettings map[string]interface{}) (string, error) {
	merged := make(map[string]interface{}, len(params)+len(serviceSettings))
	for k, v := range params {
		merged[k] = v
	}
	merged = MergeParameters(merged, nil, serviceSettings)

	baseURLName := stringParam(merged, ParamBaseURL, s.cfg.BaseURL)
	useSSL := boolParam(merged, ParamUseSSL)

	baseURLs, err := s.api.ListBaseURLs(ctx)
	if err != nil {
		return "", errors.Wrap(err, "failed to list base URLs")
	}
	for _, b := range baseURLs {
		if b.Name == baseURLName {
			info, err := s.api.GetBaseURL(ctx, b.ID)
			if err != nil {
				return "", errors.Wrapf(err, "failed to get base URL %s", b.ID)
			}
			return info.NamespaceURL(namespace, useSSL), nil
		}
	}
	return "", errors.Errorf("failed to configure namespace: base URL not found: %s", baseURLName)
}
