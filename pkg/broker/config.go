package broker

import (
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Config holds the broker-wide settings read from the configuration file.
// Values under the "broker" key configure this process; the catalog lives
// under "catalog" (see LoadCatalog).
type Config struct {
	// Management API endpoint and credentials.
	ManagementEndpoint string
	Username           string
	Password           string
	// Skip TLS verification against the management API. Test setups only.
	InsecureSkipVerify bool

	// Namespace all broker-owned buckets and users live in.
	Namespace string
	// Prefix applied exactly once to every instance ID before it touches
	// the management API.
	Prefix string

	// Replication group name or ID that new resources are created against.
	ReplicationGroup string
	// Base URL name used to derive the object endpoint. Optional.
	BaseURL string
	// Explicit object endpoint. When set, base-URL lookup is skipped.
	ObjectEndpoint string
	// UseSSL selects https object endpoints when deriving them from a base
	// URL.
	UseSSL bool

	// Repository bucket and user the broker uses for its own state.
	RepositoryBucket    string
	RepositoryUser      string
	RepositoryEndpoint  string
	RepositoryServiceID string
	RepositoryPlanID    string

	// DefaultReclaimPolicy applies when a request carries no reclaim-policy
	// parameter. Empty means ReclaimDelete.
	DefaultReclaimPolicy string

	// NFSMountHost is reported to clients mounting file-enabled buckets.
	NFSMountHost string
}

// LoadConfig reads broker settings from v, applying defaults.
func LoadConfig(v *viper.Viper) (*Config, error) {
	v.SetDefault("broker.prefix", "ecs-cf-broker-")
	v.SetDefault("broker.namespace", "ns1")
	v.SetDefault("broker.repository-bucket", "repository")
	v.SetDefault("broker.repository-user", "user")
	v.BindEnv("broker.username", "BROKER_API_USERNAME")
	v.BindEnv("broker.password", "BROKER_API_PASSWORD")

	cfg := &Config{
		ManagementEndpoint:   v.GetString("broker.management-endpoint"),
		Username:             v.GetString("broker.username"),
		Password:             v.GetString("broker.password"),
		InsecureSkipVerify:   v.GetBool("broker.insecure-skip-verify"),
		Namespace:            v.GetString("broker.namespace"),
		Prefix:               v.GetString("broker.prefix"),
		ReplicationGroup:     v.GetString("broker.replication-group"),
		BaseURL:              v.GetString("broker.base-url"),
		ObjectEndpoint:       v.GetString("broker.object-endpoint"),
		UseSSL:               v.GetBool("broker.use-ssl"),
		RepositoryBucket:     v.GetString("broker.repository-bucket"),
		RepositoryUser:       v.GetString("broker.repository-user"),
		RepositoryEndpoint:   v.GetString("broker.repository-endpoint"),
		RepositoryServiceID:  v.GetString("broker.repository-service-id"),
		RepositoryPlanID:     v.GetString("broker.repository-plan-id"),
		DefaultReclaimPolicy: v.GetString("broker.default-reclaim-policy"),
		NFSMountHost:         v.GetString("broker.nfs-mount-host"),
	}
	return cfg, cfg.validate()
}

func (c *Config) validate() error {
	if c.ManagementEndpoint == "" {
		return errors.New("broker.management-endpoint is required")
	}
	if c.ReplicationGroup == "" {
		return errors.New("broker.replication-group is required")
	}
	if c.Prefix == "" {
		return errors.New("broker.prefix must not be empty")
	}
	if c.DefaultReclaimPolicy != "" {
		if _, ok := ParseReclaimPolicy(c.DefaultReclaimPolicy); !ok {
			return errors.Errorf("broker.default-reclaim-policy %q is not a valid reclaim policy", c.DefaultReclaimPolicy)
		}
	}
	return nil
}
