package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vcscsvcscs/medireminder/internal/repository"
	"github.com/vcscsvcscs/medireminder/pkg/model"
	"go.uber.org/zap"
)

func TestDataService_ExportData(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := context.Background()
	_, err := env.medications.Create(ctx, "", MedicationInput{Name: "Aspirina"})
	require.NoError(t, err)

	s := NewDataService(env.state, env.audit, zap.NewNop())
	raw, err := s.ExportData(ctx)
	require.NoError(t, err)

	var export DataExport
	require.NoError(t, json.Unmarshal(raw, &export))
	require.Len(t, export.Medications, 1)
	assert.Equal(t, "Aspirina", export.Medications[0].Name)
	assert.Empty(t, export.History)
	assert.Equal(t, 1, export.UserStats.Level)
	assert.Equal(t, repository.DefaultTheme, export.Theme)
	require.NotEmpty(t, export.AuditLog)
	assert.Equal(t, "CREATE", export.AuditLog[0].Operation)

	assert.Equal(t, "EXPORT", env.audit.Recent(ctx, 1)[0].Operation)
}

func TestDataService_ClearData(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := context.Background()
	med, err := env.medications.Create(ctx, "", MedicationInput{Name: "Aspirina"})
	require.NoError(t, err)
	_, err = env.medications.Take(ctx, med.Medication.ID)
	require.NoError(t, err)

	s := NewDataService(env.state, env.audit, zap.NewNop())
	require.NoError(t, s.ClearData(ctx))

	l := env.state.Snapshot()
	assert.Empty(t, l.Medications)
	assert.Empty(t, l.History)
	assert.Equal(t, model.NewUserStats(), l.Stats)
	assert.Equal(t, []string{repository.DefaultTheme}, l.UnlockedThemes)

	// The store is empty too, so a fresh load agrees with memory
	assert.Empty(t, env.repo.LoadMedications(ctx))
	assert.Empty(t, env.repo.LoadHistory(ctx))

	entries := env.audit.Recent(ctx, 0)
	require.Len(t, entries, 1, "clearing removes the audit trail before recording itself")
	assert.Equal(t, "CLEAR", entries[0].Operation)
}
