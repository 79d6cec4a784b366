package repo_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/welfare-transport/backend/internal/domain"
)

func TestVehicleRepo_GetByID(t *testing.T) {
	env := newTestEnv(t)

	v, err := env.vehicles.GetByID(context.Background(), env.vehicleID)

	require.NoError(t, err)
	assert.Equal(t, 1200, v.CurrentOdometer)
	assert.Nil(t, v.LastOilChangeOdometer)
}

func TestVehicleRepo_GetByID_NullOdometerReadsZero(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	var id uuid.UUID
	require.NoError(t, env.tx.QueryRow(ctx, `INSERT INTO vehicles DEFAULT VALUES RETURNING id`).Scan(&id))

	v, err := env.vehicles.GetByID(ctx, id)

	require.NoError(t, err)
	assert.Equal(t, 0, v.CurrentOdometer)
}

func TestVehicleRepo_SetOdometer(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	oil := 1000
	v, err := env.vehicles.SetOdometer(ctx, env.vehicleID, 1500, &oil)
	require.NoError(t, err)
	assert.Equal(t, 1500, v.CurrentOdometer)
	require.NotNil(t, v.LastOilChangeOdometer)
	assert.Equal(t, 1000, *v.LastOilChangeOdometer)

	// A nil last-oil-change value keeps the stored one; lower values are allowed.
	v, err = env.vehicles.SetOdometer(ctx, env.vehicleID, 1400, nil)
	require.NoError(t, err)
	assert.Equal(t, 1400, v.CurrentOdometer)
	require.NotNil(t, v.LastOilChangeOdometer)
	assert.Equal(t, 1000, *v.LastOilChangeOdometer)
}

func TestVehicleRepo_SetOdometer_NotFound(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.vehicles.SetOdometer(context.Background(), uuid.New(), 10, nil)

	assert.ErrorIs(t, err, domain.ErrNotFound)
}
