package queue

import (
	"testing"

	"flightsync-service/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeTask_StampsIdentity(t *testing.T) {
	t.Parallel()
	task := &entity.FareTask{Provider: "nira", FlightClassID: 42, ClassCode: "Y"}

	data, err := EncodeTask(task)
	require.NoError(t, err)

	_, err = uuid.Parse(task.ID)
	assert.NoError(t, err)
	assert.False(t, task.EnqueuedAt.IsZero())

	decoded, err := DecodeTask(data)
	require.NoError(t, err)
	assert.Equal(t, task.ID, decoded.ID)
	assert.Equal(t, uint(42), decoded.FlightClassID)
}

func TestEncodeTask_KeepsExistingID(t *testing.T) {
	t.Parallel()
	task := &entity.FareTask{ID: "fixed", FlightClassID: 1}
	_, err := EncodeTask(task)
	require.NoError(t, err)
	assert.Equal(t, "fixed", task.ID)
}

func TestDecodeTask_Rejects(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		data string
	}{
		{"not json", "{"},
		{"no class", `{"id":"a","provider":"nira"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := DecodeTask([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}
