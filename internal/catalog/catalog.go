// Package catalog lists instances per provider and arranges them into
// name-sorted groups, resolving connection settings for each instance
package catalog

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/rs/zerolog"
	"github.com/younsl/gazua/internal/config"
	"github.com/younsl/gazua/internal/models"
)

// ProviderAPIClient describes the instances visible with a provider's credentials
type ProviderAPIClient interface {
	DescribeInstances(ctx context.Context, cfg *config.ProviderConfig) ([]types.Reservation, error)
}

// MissingTagPolicy controls what happens to an instance lacking the group or name tag
type MissingTagPolicy int

const (
	// SkipMissingTags drops the instance and logs a warning
	SkipMissingTags MissingTagPolicy = iota
	// FailOnMissingTags aborts the provider's listing
	FailOnMissingTags
)

// Catalog builds grouped instance views from provider listings
type Catalog struct {
	client   ProviderAPIClient
	logger   zerolog.Logger
	policy   MissingTagPolicy
	parallel bool
}

// Option configures a Catalog
type Option func(*Catalog)

// WithLogger sets the logger used for skipped-instance warnings
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Catalog) {
		c.logger = logger
	}
}

// WithMissingTagPolicy sets how instances without group or name tags are handled
func WithMissingTagPolicy(policy MissingTagPolicy) Option {
	return func(c *Catalog) {
		c.policy = policy
	}
}

// WithParallelism queries providers concurrently when enabled
func WithParallelism(enabled bool) Option {
	return func(c *Catalog) {
		c.parallel = enabled
	}
}

// New creates a Catalog backed by client
func New(client ProviderAPIClient, opts ...Option) *Catalog {
	c := &Catalog{
		client: client,
		logger: zerolog.Nop(),
		policy: SkipMissingTags,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListInstances lists every provider in configs
// Providers that fail are left out of the result and their errors are joined
// into the returned error
func (c *Catalog) ListInstances(ctx context.Context, configs map[string]*config.ProviderConfig) (map[string]models.InstanceGroupMap, error) {
	providers := make([]string, 0, len(configs))
	for provider := range configs {
		providers = append(providers, provider)
	}
	sort.Strings(providers)

	results := make([]struct {
		groups models.InstanceGroupMap
		err    error
	}, len(providers))

	if c.parallel {
		var wg sync.WaitGroup
		for i, provider := range providers {
			wg.Add(1)
			go func(idx int, cfg *config.ProviderConfig) {
				defer wg.Done()
				results[idx].groups, results[idx].err = c.ListProvider(ctx, cfg)
			}(i, configs[provider])
		}
		wg.Wait()
	} else {
		for i, provider := range providers {
			results[i].groups, results[i].err = c.ListProvider(ctx, configs[provider])
		}
	}

	listing := make(map[string]models.InstanceGroupMap, len(providers))
	var errs []error
	for i, provider := range providers {
		if results[i].err != nil {
			errs = append(errs, results[i].err)
			continue
		}
		listing[provider] = results[i].groups
	}
	return listing, errors.Join(errs...)
}

// ListProvider lists, normalizes and groups the instances of a single provider
func (c *Catalog) ListProvider(ctx context.Context, cfg *config.ProviderConfig) (models.InstanceGroupMap, error) {
	reservations, err := c.client.DescribeInstances(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("provider %s: %w", cfg.ID, err)
	}

	groups := models.InstanceGroupMap{}
	for _, reservation := range reservations {
		for _, raw := range reservation.Instances {
			instance, err := Normalize(cfg, raw)
			if err != nil {
				var tagErr *MissingTagError
				if errors.As(err, &tagErr) && c.policy == SkipMissingTags {
					c.logger.Warn().
						Str("provider", cfg.ID).
						Str("instance", tagErr.InstanceID).
						Str("tag", tagErr.Tag).
						Msg("Skipping instance without required tag")
					continue
				}
				return nil, fmt.Errorf("provider %s: %w", cfg.ID, err)
			}
			groups[instance.Group] = append(groups[instance.Group], instance)
		}
	}

	for _, instances := range groups {
		SortByName(instances)
	}

	c.logger.Debug().
		Str("provider", cfg.ID).
		Int("groups", len(groups)).
		Int("instances", groups.Count()).
		Msg("Listed instances")

	return groups, nil
}

// SortByName orders instances by name using byte-wise string comparison
// Equal names fall back to instance id so the order never depends on the
// order reservations were returned in
func SortByName(instances []models.Instance) {
	slices.SortStableFunc(instances, func(a, b models.Instance) int {
		if n := cmp.Compare(a.Name, b.Name); n != 0 {
			return n
		}
		return cmp.Compare(a.ID, b.ID)
	})
}
