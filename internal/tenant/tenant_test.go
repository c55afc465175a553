package tenant

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const tenantA = ID("5b0e8a4e-7f36-4a57-9a55-0a9f0c3f4b11")

func TestValidate(t *testing.T) {
	assert.NoError(t, tenantA.Validate())
	assert.True(t, errors.Is(ID("").Validate(), ErrMissingTenant))
	assert.True(t, errors.Is(ID("tenant-1").Validate(), ErrInvalidTenant))
}

func TestContextRoundTrip(t *testing.T) {
	ctx := context.Background()

	_, ok := FromContext(ctx)
	assert.False(t, ok)

	_, err := MustFromContext(ctx)
	assert.True(t, errors.Is(err, ErrMissingTenant))

	ctx = WithTenant(ctx, tenantA)
	got, err := MustFromContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, tenantA, got)
}

type scopedRow struct {
	ID       string
	TenantID string
}

func (scopedRow) TableName() string { return "appointments" }

func TestScopeQualifiesTenantColumn(t *testing.T) {
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN: "host=localhost user=x dbname=x sslmode=disable",
	}), &gorm.Config{DryRun: true, DisableAutomaticPing: true})
	require.NoError(t, err)

	var rows []scopedRow
	stmt := db.Scopes(Scope(tenantA)).
		Joins("JOIN doctors ON doctors.doctor_id = appointments.doctor_id").
		Find(&rows).Statement

	assert.Contains(t, stmt.SQL.String(), `"appointments"."tenant_id" = $1`)
	require.Len(t, stmt.Vars, 1)
	assert.Equal(t, string(tenantA), stmt.Vars[0])
}
