package server

import (
	"context"
	_ "embed"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/wolfeidau/admindash/internal/models"
	"github.com/wolfeidau/admindash/internal/store"
)

//go:embed seed.yaml
var seedData []byte

// Seed loads sample documents into every empty collection. Collections
// that already hold documents are left alone.
func Seed(ctx context.Context, docs store.DocumentStore) error {
	var data map[string][]store.Document
	if err := yaml.Unmarshal(seedData, &data); err != nil {
		return fmt.Errorf("failed to parse seed data: %w", err)
	}

	ids := seedIDs{docs: docs, seeded: map[string][]string{}}

	for _, name := range models.Names() {
		items := data[name]
		if len(items) == 0 {
			continue
		}

		n, err := docs.Count(ctx, name)
		if err != nil {
			return fmt.Errorf("failed to count %s: %w", name, err)
		}
		if n > 0 {
			log.Debug().Str("collection", name).Int("count", n).Msg("Collection not empty, skipping seed")
			continue
		}

		for _, item := range items {
			if err := ids.resolve(ctx, item); err != nil {
				return fmt.Errorf("failed to seed %s: %w", name, err)
			}
			created, err := docs.Create(ctx, name, item)
			if err != nil {
				return fmt.Errorf("failed to seed %s: %w", name, err)
			}
			ids.seeded[name] = append(ids.seeded[name], created.ID())
		}
		log.Info().Str("collection", name).Int("count", len(items)).Msg("Seeded collection")
	}

	return nil
}

// seedIDs resolves "@collection:n" references between seeded documents.
// A collection that was not seeded this run is read back from the store.
type seedIDs struct {
	docs   store.DocumentStore
	seeded map[string][]string
}

func (s seedIDs) resolve(ctx context.Context, doc store.Document) error {
	for key, v := range doc {
		ref, ok := v.(string)
		if !ok || !strings.HasPrefix(ref, "@") {
			continue
		}

		collection, index, ok := strings.Cut(ref[1:], ":")
		n, err := strconv.Atoi(index)
		if !ok || err != nil || n < 0 {
			return fmt.Errorf("invalid reference %q in %s", ref, key)
		}

		ids, err := s.ids(ctx, collection)
		if err != nil {
			return err
		}
		if n >= len(ids) {
			return fmt.Errorf("reference %q in %s: %s has %d documents", ref, key, collection, len(ids))
		}
		doc[key] = ids[n]
	}
	return nil
}

func (s seedIDs) ids(ctx context.Context, collection string) ([]string, error) {
	if ids, ok := s.seeded[collection]; ok {
		return ids, nil
	}

	existing, err := s.docs.List(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", collection, err)
	}
	ids := make([]string, 0, len(existing))
	for _, doc := range existing {
		ids = append(ids, doc.ID())
	}
	s.seeded[collection] = ids
	return ids, nil
}
