package booking

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryListAppointmentsPaging(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	clinID := uuid.New()

	starts := []int{540, 570, 600, 630, 660}
	for _, start := range starts {
		_, err := repo.CreateAppointment(ctx, NewAppointment{
			ClinicianID:  clinID,
			Date:         "2025-06-02",
			StartMinutes: start,
			EndMinutes:   start + 30,
			Status:       StatusPending,
		})
		require.NoError(t, err)
	}

	seen := make(map[uuid.UUID]bool)
	var lastNumber int64

	for offset := 0; offset < len(starts); offset += 2 {
		page, err := repo.ListAppointments(ctx, ListFilter{Limit: 2, Offset: offset})
		require.NoError(t, err)

		for _, a := range page {
			assert.False(t, seen[a.ID], "pages must not overlap")
			seen[a.ID] = true
			if lastNumber != 0 {
				assert.Less(t, a.AppointmentNumber, lastNumber, "newest first across pages")
			}
			lastNumber = a.AppointmentNumber
		}
	}
	assert.Len(t, seen, len(starts), "pages together cover every appointment")

	page, err := repo.ListAppointments(ctx, ListFilter{Limit: 2, Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, page, "offset past the end yields nothing")
}
