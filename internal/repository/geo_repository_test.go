package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lexdesk/internal/model"
	"lexdesk/internal/testutil"
)

func TestGeoRepository_UpsertAndValidate(t *testing.T) {
	repo := NewGeoRepository(testutil.NewDB(t))

	require.NoError(t, repo.Upsert(
		[]model.Country{{ID: 1, Code: "CO", Name: "Colombia"}},
		[]model.DeptoState{{ID: 5, CountryID: 1, Name: "Antioquia"}, {ID: 11, CountryID: 1, Name: "Bogota D.C."}},
		[]model.CityMunicipality{{ID: 5001, StateID: 5, Name: "Medellin"}},
	))
	// re-seeding overwrites names instead of failing
	require.NoError(t, repo.Upsert([]model.Country{{ID: 1, Code: "CO", Name: "Colombia (CO)"}}, nil, nil))

	countries, err := repo.ListCountries()
	require.NoError(t, err)
	require.Len(t, countries, 1)
	assert.Equal(t, "Colombia (CO)", countries[0].Name)

	states, err := repo.ListStates(1)
	require.NoError(t, err)
	assert.Len(t, states, 2)

	country, state, city := uint(1), uint(5), uint(5001)
	ok, err := repo.ValidateLocation(&country, &state, &city)
	require.NoError(t, err)
	assert.True(t, ok)

	wrongState := uint(11)
	ok, err = repo.ValidateLocation(&country, &wrongState, &city)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.ValidateLocation(nil, nil, nil)
	require.NoError(t, err)
	assert.True(t, ok)
}
