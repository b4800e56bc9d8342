package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suteetoe/opshub/services/opshub-service/internal/model"
	"gorm.io/gorm"
)

func TestCustomFieldListDefinitionsHidesInactive(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCustomFieldRepository(db)
	tenantID := uuid.New()

	mock.ExpectQuery(`SELECT \* FROM "custom_field_definitions" WHERE tenant_id = \$1 AND entity_type = \$2 AND is_active = \$3 ORDER BY entity_type, sort_order`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "tenant_id", "entity_type", "field_name", "sort_order", "is_active"}).
			AddRow(uuid.NewString(), tenantID.String(), model.CustomEntityOpportunity, "region", 1, true))

	defs, err := repo.ListDefinitions(context.Background(), tenantID, model.CustomEntityOpportunity, false)
	require.NoError(t, err)
	require.Len(t, defs, 1)
	assert.Equal(t, "region", defs[0].FieldName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCustomFieldNameExists(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCustomFieldRepository(db)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "custom_field_definitions" WHERE .*field_name = `).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	exists, err := repo.FieldNameExists(context.Background(), uuid.New(), model.CustomEntityAccount, "tier")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCustomFieldMaxSortOrder(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCustomFieldRepository(db)

	mock.ExpectQuery(`SELECT COALESCE\(MAX\(sort_order\), 0\) FROM "custom_field_definitions"`).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(4))

	max, err := repo.MaxSortOrder(context.Background(), uuid.New(), model.CustomEntityContact)
	require.NoError(t, err)
	assert.Equal(t, 4, max)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCustomFieldReorderRollsBack(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCustomFieldRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "custom_field_definitions" SET "sort_order"=\$1`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE "custom_field_definitions" SET "sort_order"=\$1`).
		WillReturnError(errors.New("deadlock detected"))
	mock.ExpectRollback()

	err := repo.Reorder(context.Background(), uuid.New(), []uuid.UUID{uuid.New(), uuid.New()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reorder custom field definitions")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCustomFieldUpsertValues(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCustomFieldRepository(db)
	tenantID, defID, entityID := uuid.New(), uuid.New(), uuid.New()
	text := "EMEA"

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "custom_field_values" .* ON CONFLICT \("field_definition_id","entity_id"\) DO UPDATE SET .*"text_value"="excluded"."text_value"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.UpsertValues(context.Background(), []model.CustomFieldValue{{
		Base:              model.Base{TenantID: tenantID},
		FieldDefinitionID: defID,
		EntityType:        model.CustomEntityOpportunity,
		EntityID:          entityID,
		TextValue:         &text,
	}})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCustomFieldUpsertNothing(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCustomFieldRepository(db)

	require.NoError(t, repo.UpsertValues(context.Background(), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCustomFieldDeleteMissingValue(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCustomFieldRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "custom_field_values" WHERE id = \$1 AND tenant_id = \$2`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := repo.DeleteValue(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
