// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/rapidaai/mimic/pkg/commons"
	"github.com/rapidaai/mimic/pkg/connectors"
)

func newTestStore(t *testing.T) Store {
	t.Helper()
	logger, err := commons.NewApplicationLogger(commons.Name("catalog-test"), commons.Level("error"))
	require.NoError(t, err)

	sqlite, err := connectors.NewSqliteConnector(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlite.Close() })

	store, err := NewStore(sqlite, logger)
	require.NoError(t, err)
	return store
}

func TestSaveAndGetPerson(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.SavePerson(ctx, &Person{Name: "Morgan Freeman", Bio: "narrator"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	person, err := store.Person(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Morgan Freeman", person.Name)
	assert.Empty(t, person.Samples)
}

func TestSampleRequiresExistingPerson(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.SaveSample(ctx, &Sample{
		PersonID: "nope",
		AudioURL: "https://cdn.example.com/a.wav",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestPersonPreloadsSamples(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	personID, err := store.SavePerson(ctx, &Person{Name: "David Attenborough"})
	require.NoError(t, err)

	sampleID, err := store.SaveSample(ctx, &Sample{
		PersonID:      personID,
		Title:         "planet intro",
		AudioURL:      "https://cdn.example.com/intro.wav",
		TranscriptURL: "https://cdn.example.com/intro.csv",
		Duration:      12.5,
	})
	require.NoError(t, err)

	person, err := store.Person(ctx, personID)
	require.NoError(t, err)
	require.Len(t, person.Samples, 1)
	assert.Equal(t, sampleID, person.Samples[0].ID)

	sample, err := store.Sample(ctx, sampleID)
	require.NoError(t, err)
	assert.Equal(t, 12.5, sample.Duration)
}

func TestPersonsSortedByName(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.SavePerson(ctx, &Person{Name: "Zion"})
	require.NoError(t, err)
	_, err = store.SavePerson(ctx, &Person{Name: "Ada"})
	require.NoError(t, err)

	persons, err := store.Persons(ctx)
	require.NoError(t, err)
	require.Len(t, persons, 2)
	assert.Equal(t, "Ada", persons[0].Name)
}

func TestDeletePersonRemovesSamples(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	personID, err := store.SavePerson(ctx, &Person{Name: "Someone"})
	require.NoError(t, err)
	sampleID, err := store.SaveSample(ctx, &Sample{PersonID: personID, AudioURL: "https://x/a.wav"})
	require.NoError(t, err)

	require.NoError(t, store.DeletePerson(ctx, personID))

	_, err = store.Person(ctx, personID)
	assert.Error(t, err)
	_, err = store.Sample(ctx, sampleID)
	assert.Error(t, err)
}
