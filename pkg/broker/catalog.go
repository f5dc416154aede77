package broker

import (
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Plan is one tier of a service definition. ServiceSettings are
// administrator-forced parameters merged into every request for this plan.
type Plan struct {
	ID              string                 `mapstructure:"id"`
	Name            string                 `mapstructure:"name"`
	Description     string                 `mapstructure:"description"`
	Repository      bool                   `mapstructure:"repository-plan"`
	ServiceSettings map[string]interface{} `mapstructure:"service-settings"`
}

// ServiceDefinition is one provisionable offering from the catalog.
type ServiceDefinition struct {
	ID              string                 `mapstructure:"id"`
	Name            string                 `mapstructure:"name"`
	Description     string                 `mapstructure:"description"`
	Type            string                 `mapstructure:"type"`
	Bindable        bool                   `mapstructure:"bindable"`
	PlanUpdatable   bool                   `mapstructure:"plan-updatable"`
	Repository      bool                   `mapstructure:"repository-service"`
	ServiceSettings map[string]interface{} `mapstructure:"service-settings"`
	Plans           []Plan                 `mapstructure:"plans"`
}

// FindPlan returns the plan with the given ID.
func (s *ServiceDefinition) FindPlan(id string) (*Plan, error) {
	for i := range s.Plans {
		if s.Plans[i].ID == id {
			return &s.Plans[i], nil
		}
	}
	return nil, errors.Errorf("no plan matching plan id %q in service %q", id, s.ID)
}

// RepositoryPlan returns the plan flagged for repository use, falling back
// to the first plan.
func (s *ServiceDefinition) RepositoryPlan() (*Plan, error) {
	for i := range s.Plans {
		if s.Plans[i].Repository {
			return &s.Plans[i], nil
		}
	}
	if len(s.Plans) > 0 {
		return &s.Plans[0], nil
	}
	return nil, errors.Errorf("service %q has no plans", s.ID)
}

// Catalog is the set of service definitions offered by this broker, with a
// lookup table built once at load time. Descriptors are read-only after
// construction.
type Catalog struct {
	Services []ServiceDefinition

	byID map[string]*ServiceDefinition
}

// NewCatalog indexes the given service definitions.
func NewCatalog(services []ServiceDefinition) (*Catalog, error) {
	c := &Catalog{
		Services: services,
		byID:     make(map[string]*ServiceDefinition, len(services)),
	}
	for i := range services {
		svc := &c.Services[i]
		if svc.ID == "" {
			return nil, errors.Errorf("catalog service %q has no id", svc.Name)
		}
		if _, dup := c.byID[svc.ID]; dup {
			return nil, errors.Errorf("duplicate service id %q in catalog", svc.ID)
		}
		c.byID[svc.ID] = svc
	}
	return c, nil
}

// LoadCatalog reads service definitions from the "catalog.services" key.
func LoadCatalog(v *viper.Viper) (*Catalog, error) {
	var services []ServiceDefinition
	if err := v.UnmarshalKey("catalog.services", &services); err != nil {
		return nil, errors.Wrap(err, "failed to load catalog")
	}
	if len(services) == 0 {
		return nil, errors.New("catalog defines no services")
	}
	return NewCatalog(services)
}

// FindServiceDefinition returns the service with the given ID.
func (c *Catalog) FindServiceDefinition(id string) (*ServiceDefinition, error) {
	svc, ok := c.byID[id]
	if !ok {
		return nil, errors.Errorf("no service matching service id %q", id)
	}
	return svc, nil
}

// RepositoryService returns the service flagged for repository use.
func (c *Catalog) RepositoryService() (*ServiceDefinition, error) {
	for i := range c.Services {
		if c.Services[i].Repository {
			return &c.Services[i], nil
		}
	}
	return nil, errors.New("no repository service flagged in catalog")
}
