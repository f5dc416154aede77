package broker

import (
	"context"

	"github.com/pkg/errors"
)

// defaultBaseURLName is preferred when no base URL is configured.
const defaultBaseURLName = "DefaultBaseUrl"

// initialize runs the one-time startup sequence. Every step is required;
// any failure leaves the service unusable.
func (s *EcsService) initialize(ctx context.Context, newWiper WiperFactory) error {
	s.log.Infof("initializing ECS service against '%s' in namespace '%s'", s.cfg.ManagementEndpoint, s.cfg.Namespace)

	if err := s.resolveObjectEndpoint(ctx); err != nil {
		return err
	}
	if err := s.resolveReplicationGroupID(ctx); err != nil {
		return err
	}
	if err := s.resolveDefaultReclaimPolicy(); err != nil {
		return err
	}
	if err := s.prepareRepository(ctx); err != nil {
		return err
	}
	return s.prepareWiper(newWiper)
}

// resolveObjectEndpoint picks the object data endpoint: the explicit config
// value, else the configured base URL by name, else "DefaultBaseUrl", else
// the first base URL available.
func (s *EcsService) resolveObjectEndpoint(ctx context.Context) error {
	if s.cfg.ObjectEndpoint != "" {
		s.objectEndpoint = s.cfg.ObjectEndpoint
	} else {
		baseURLs, err := s.api.ListBaseURLs(ctx)
		if err != nil {
			return errors.Wrap(err, "failed to list base URLs")
		}
		if len(baseURLs) == 0 {
			return errors.New("cannot determine object endpoint: base URL list is empty, check ECS server settings")
		}

		var urlID string
		if s.cfg.BaseURL != "" {
			for _, b := range baseURLs {
				if b.Name == s.cfg.BaseURL {
					urlID = b.ID
					break
				}
			}
			if urlID == "" {
				return errors.Errorf("configured base URL not found: %s", s.cfg.BaseURL)
			}
		} else {
			urlID = baseURLs[0].ID
			for _, b := range baseURLs {
				if b.Name == defaultBaseURLName {
					urlID = b.ID
					break
				}
			}
		}

		info, err := s.api.GetBaseURL(ctx, urlID)
		if err != nil {
			return errors.Wrapf(err, "failed to get base URL %s", urlID)
		}
		s.objectEndpoint = info.NamespaceURL(s.cfg.Namespace, s.cfg.UseSSL)
		s.log.Infof("object endpoint from base url '%s': %s", info.Name, s.objectEndpoint)
	}

	s.repositoryEndpoint = s.cfg.RepositoryEndpoint
	if s.repositoryEndpoint == "" {
		s.repositoryEndpoint = s.objectEndpoint
	}
	return nil
}

// resolveReplicationGroupID matches the configured replication group against
// the cluster's list, by name or by ID.
func (s *EcsService) resolveReplicationGroupID(ctx context.Context) error {
	groups, err := s.api.ListReplicationGroups(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to list replication groups")
	}
	for _, g := range groups {
		if g.Name == s.cfg.ReplicationGroup || g.ID == s.cfg.ReplicationGroup {
			s.log.Infof("replication group found: %s (%s)", g.Name, g.ID)
			s.replicationGroupID = g.ID
			return nil
		}
	}
	return errors.Errorf("configured replication group not found: %s", s.cfg.ReplicationGroup)
}

func (s *EcsService) resolveDefaultReclaimPolicy() error {
	s.defaultReclaimPolicy = ReclaimDelete
	if s.cfg.DefaultReclaimPolicy != "" {
		policy, ok := ParseReclaimPolicy(s.cfg.DefaultReclaimPolicy)
		if !ok {
			return errors.Errorf("invalid default reclaim policy: %s", s.cfg.DefaultReclaimPolicy)
		}
		s.defaultReclaimPolicy = policy
	}
	s.log.Infof("default reclaim policy: %s", s.defaultReclaimPolicy)
	return nil
}

// prepareRepository bootstraps the bucket and user the broker uses for its
// own state. Creation goes through the normal bucket-create path with the
// designated repository service and plan, so it is subject to the same
// merged settings as any instance.
func (s *EcsService) prepareRepository(ctx context.Context) error {
	bucketName := s.cfg.RepositoryBucket
	userName := s.cfg.RepositoryUser

	exists, err := s.BucketExists(ctx, bucketName)
	if err != nil {
		return errors.Wrap(err, "failed to check repository bucket")
	}
	if !exists {
		s.log.Infof("preparing repository bucket '%s'", s.prefix(bucketName))

		service, err := s.repositoryService()
		if err != nil {
			return err
		}
		plan, err := s.repositoryPlan(service)
		if err != nil {
			return err
		}
		if _, err := s.CreateBucket(ctx, bucketName, service, plan, nil); err != nil {
			return errors.Wrap(err, "failed to create repository bucket")
		}
	}

	userExists, err := s.UserExists(ctx, userName)
	if err != nil {
		return errors.Wrap(err, "failed to check repository user")
	}
	if !userExists {
		s.log.Infof("creating user to access repository: '%s'", userName)
		key, err := s.CreateUser(ctx, userName)
		if err != nil {
			return err
		}
		if err := s.AddUserToBucket(ctx, bucketName, userName); err != nil {
			return err
		}
		s.repositorySecret = key.SecretKey
		return nil
	}

	keys, err := s.api.ListUserSecrets(ctx, s.prefix(userName))
	if err != nil {
		return errors.Wrap(err, "failed to fetch repository user secret")
	}
	if len(keys) == 0 {
		return errors.Errorf("repository user %s exists but has no secret keys", s.prefix(userName))
	}
	s.repositorySecret = keys[0].SecretKey
	return nil
}

func (s *EcsService) repositoryService() (*ServiceDefinition, error) {
	if s.cfg.RepositoryServiceID != "" {
		return s.catalog.FindServiceDefinition(s.cfg.RepositoryServiceID)
	}
	return s.catalog.RepositoryService()
}

func (s *EcsService) repositoryPlan(service *ServiceDefinition) (*Plan, error) {
	if s.cfg.RepositoryPlanID != "" {
		return service.FindPlan(s.cfg.RepositoryPlanID)
	}
	return service.RepositoryPlan()
}

// prepareWiper builds the bucket-wipe helper with the repository user's
// credentials against the repository endpoint.
func (s *EcsService) prepareWiper(newWiper WiperFactory) error {
	if newWiper == nil {
		return errors.New("no bucket wipe factory provided")
	}
	wiper, err := newWiper(s.repositoryEndpoint, s.prefix(s.cfg.RepositoryUser), s.repositorySecret)
	if err != nil {
		return errors.Wrap(err, "failed to prepare bucket wipe")
	}
	s.wiper = wiper
	return nil
}
