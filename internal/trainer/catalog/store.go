// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/rapidaai/mimic/pkg/commons"
	"github.com/rapidaai/mimic/pkg/connectors"
	"gorm.io/gorm"
)

// Store provides operations over the practice catalog. Rows are reference
// data: they are created by seeding or an admin and read by every session,
// so reads dominate and there is no soft-delete machinery.
type Store interface {
	// SavePerson stores a person with a generated ID when none is set.
	// Returns the ID.
	SavePerson(ctx context.Context, person *Person) (string, error)

	// SaveSample stores a sample under an existing person. The parent is
	// checked first so a typo'd personId fails loudly instead of creating
	// an orphan the UI can never reach.
	SaveSample(ctx context.Context, sample *Sample) (string, error)

	// Persons lists all persons without their samples.
	Persons(ctx context.Context) ([]Person, error)

	// Person retrieves one person with samples preloaded.
	Person(ctx context.Context, id string) (*Person, error)

	// Sample retrieves one sample by id.
	Sample(ctx context.Context, id string) (*Sample, error)

	// DeletePerson removes a person and their samples.
	DeletePerson(ctx context.Context, id string) error
}

type sqliteStore struct {
	sqlite connectors.SqliteConnector
	logger commons.Logger
}

// NewStore creates a catalog store backed by SQLite and runs migrations.
func NewStore(sqlite connectors.SqliteConnector, logger commons.Logger) (Store, error) {
	s := &sqliteStore{sqlite: sqlite, logger: logger}
	if err := sqlite.DB(context.Background()).AutoMigrate(&Person{}, &Sample{}); err != nil {
		return nil, fmt.Errorf("catalog migrate: %w", err)
	}
	return s, nil
}

func (s *sqliteStore) SavePerson(ctx context.Context, person *Person) (string, error) {
	if person.ID == "" {
		person.ID = uuid.New().String()
	}
	if err := s.sqlite.DB(ctx).Create(person).Error; err != nil {
		return "", fmt.Errorf("save person: %w", err)
	}
	return person.ID, nil
}

func (s *sqliteStore) SaveSample(ctx context.Context, sample *Sample) (string, error) {
	if sample.ID == "" {
		sample.ID = uuid.New().String()
	}
	var count int64
	if err := s.sqlite.DB(ctx).Model(&Person{}).Where("id = ?", sample.PersonID).Count(&count).Error; err != nil {
		return "", fmt.Errorf("save sample: %w", err)
	}
	if count == 0 {
		return "", fmt.Errorf("save sample: person %s not found", sample.PersonID)
	}
	if err := s.sqlite.DB(ctx).Create(sample).Error; err != nil {
		return "", fmt.Errorf("save sample: %w", err)
	}
	return sample.ID, nil
}

func (s *sqliteStore) Persons(ctx context.Context) ([]Person, error) {
	var persons []Person
	if err := s.sqlite.DB(ctx).Order("name").Find(&persons).Error; err != nil {
		return nil, fmt.Errorf("list persons: %w", err)
	}
	return persons, nil
}

func (s *sqliteStore) Person(ctx context.Context, id string) (*Person, error) {
	var person Person
	err := s.sqlite.DB(ctx).Preload("Samples").First(&person, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("person %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get person: %w", err)
	}
	return &person, nil
}

func (s *sqliteStore) Sample(ctx context.Context, id string) (*Sample, error) {
	var sample Sample
	err := s.sqlite.DB(ctx).First(&sample, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("sample %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get sample: %w", err)
	}
	return &sample, nil
}

func (s *sqliteStore) DeletePerson(ctx context.Context, id string) error {
	if err := s.sqlite.DB(ctx).Where("person_id = ?", id).Delete(&Sample{}).Error; err != nil {
		return fmt.Errorf("delete person samples: %w", err)
	}
	if err := s.sqlite.DB(ctx).Delete(&Person{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("delete person: %w", err)
	}
	return nil
}
