package seed

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/uptrace/bun"
	"gopkg.in/yaml.v3"

	"techsymposium/internal/models"
)

type catalogue struct {
	Events []models.Event `yaml:"events"`
}

// LoadFile reads an event catalogue from a YAML file.
func LoadFile(path string) ([]models.Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalogue: %w", err)
	}
	defer f.Close()
	return Load(f)
}

func Load(r io.Reader) ([]models.Event, error) {
	var c catalogue
	if err := yaml.NewDecoder(r).Decode(&c); err != nil {
		return nil, fmt.Errorf("decode catalogue: %w", err)
	}
	seen := make(map[string]bool, len(c.Events))
	for i, e := range c.Events {
		if e.ID == "" || e.Title == "" {
			return nil, fmt.Errorf("event %d: id and title are required", i)
		}
		if seen[e.ID] {
			return nil, fmt.Errorf("event %d: duplicate id %q", i, e.ID)
		}
		seen[e.ID] = true
	}
	return c.Events, nil
}

// Seed upserts events by id and returns how many rows were written.
func Seed(ctx context.Context, db bun.IDB, events []models.Event) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}
	now := time.Now().UTC()
	for i := range events {
		if events[i].CreatedAt.IsZero() {
			events[i].CreatedAt = now
		}
	}
	res, err := db.NewInsert().
		Model(&events).
		On("CONFLICT (id) DO UPDATE").
		Set("title = EXCLUDED.title").
		Set("description = EXCLUDED.description").
		Set(`"date" = EXCLUDED."date"`).
		Set(`"time" = EXCLUDED."time"`).
		Set("location = EXCLUDED.location").
		Set("category = EXCLUDED.category").
		Set("image = EXCLUDED.image").
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("upsert events: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
