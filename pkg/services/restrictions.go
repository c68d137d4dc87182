package services

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/mealvita-inc/mealvita-engine/pkg/models"
	"github.com/mealvita-inc/mealvita-engine/pkg/repositories"
)

// ExclusionMap maps intolerance names to the exact ingredient names they
// exclude. The map is loaded from a YAML file so clinics can version it and
// swap it per locale without a code change.
type ExclusionMap struct {
	entries map[string][]string
}

// LoadExclusionMap reads the intolerance exclusion map from a YAML file.
func LoadExclusionMap(path string) (*ExclusionMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read exclusion map %s: %w", path, err)
	}

	var entries map[string][]string
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse exclusion map %s: %w", path, err)
	}

	return &ExclusionMap{entries: entries}, nil
}

// NewExclusionMap builds a map from in-memory entries. Used in tests.
func NewExclusionMap(entries map[string][]string) *ExclusionMap {
	return &ExclusionMap{entries: entries}
}

// IngredientNames returns the ingredient names excluded by the given
// intolerance name, or nil when the intolerance is not mapped.
func (m *ExclusionMap) IngredientNames(intolerance string) []string {
	return m.entries[intolerance]
}

// Len reports how many intolerances have exclusion rules.
func (m *ExclusionMap) Len() int {
	return len(m.entries)
}

// RestrictionResolver turns a patient's reported intolerances into a set of
// excluded ingredient IDs.
type RestrictionResolver interface {
	// ExcludedIngredients resolves the patient's intolerances through the
	// exclusion map and the ingredients catalog. Intolerances with no map
	// entry and mapped names with no catalog ingredient are skipped, not
	// errors. Medical conditions and dietary preferences do not contribute
	// exclusions. The result is deduplicated and sorted for determinism.
	ExcludedIngredients(ctx context.Context, patient *models.Patient) ([]uuid.UUID, error)
}

type restrictionResolver struct {
	catalogRepo repositories.CatalogRepository
	exclusions  *ExclusionMap
	logger      *zap.Logger
}

// NewRestrictionResolver creates a new RestrictionResolver.
func NewRestrictionResolver(
	catalogRepo repositories.CatalogRepository,
	exclusions *ExclusionMap,
	logger *zap.Logger,
) RestrictionResolver {
	return &restrictionResolver{
		catalogRepo: catalogRepo,
		exclusions:  exclusions,
		logger:      logger,
	}
}

var _ RestrictionResolver = (*restrictionResolver)(nil)

func (r *restrictionResolver) ExcludedIngredients(ctx context.Context, patient *models.Patient) ([]uuid.UUID, error) {
	nameSet := make(map[string]struct{})
	for _, pi := range patient.Intolerances {
		mapped := r.exclusions.IngredientNames(pi.IntoleranceName)
		if mapped == nil {
			r.logger.Debug("Intolerance not in exclusion map, skipping",
				zap.String("intolerance", pi.IntoleranceName))
			continue
		}
		for _, name := range mapped {
			nameSet[name] = struct{}{}
		}
	}

	if len(nameSet) == 0 {
		return nil, nil
	}

	names := make([]string, 0, len(nameSet))
	for name := range nameSet {
		names = append(names, name)
	}

	ids, err := r.catalogRepo.GetIngredientIDsByNames(ctx, names)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve excluded ingredients: %w", err)
	}

	excluded := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		excluded = append(excluded, id)
	}
	sort.Slice(excluded, func(i, j int) bool {
		return excluded[i].String() < excluded[j].String()
	})

	return excluded, nil
}

// ExcludedSet converts an excluded-ingredient list to the set form the recipe
// filter consumes.
func ExcludedSet(ids []uuid.UUID) map[uuid.UUID]struct{} {
	set := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
