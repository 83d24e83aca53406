package versioning

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/mfgplan/pkg/domain/entities"
)

func version(v int, from, to string, status entities.VersionStatus) *entities.BillOfMaterials {
	eff := entities.Effectivity{From: entities.MustDate(from)}
	if to != "" {
		eff.To = entities.MustDate(to)
	}
	return &entities.BillOfMaterials{ProductID: "P", Version: v, Status: status, Effectivity: eff}
}

func TestCheckNew(t *testing.T) {
	existing := []*entities.BillOfMaterials{
		version(1, "2024-01-01", "2024-02-01", entities.StatusReleased),
		version(2, "2024-03-01", "", entities.StatusObsolete),
	}

	tests := []struct {
		name    string
		version int
		from    string
		to      string
		wantErr error
	}{
		{"adjacent window", 3, "2024-02-01", "", nil},
		{"overlap with obsolete is fine", 3, "2024-03-01", "2024-04-01", nil},
		{"overlap", 3, "2024-01-15", "", entities.ErrEffectivityOverlap},
		{"version reused", 2, "2025-01-01", "", entities.ErrVersionExists},
		{"zero version", 0, "2025-01-01", "", entities.ErrInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			window := entities.Effectivity{From: entities.MustDate(tt.from)}
			if tt.to != "" {
				window.To = entities.MustDate(tt.to)
			}
			err := CheckNew(existing, tt.version, window)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestSupersede_CapsOpenEndedPredecessor(t *testing.T) {
	v1 := version(1, "2024-01-01", "", entities.StatusReleased)
	superseded, err := Supersede([]*entities.BillOfMaterials{v1}, 2, entities.MustDate("2024-03-01"))
	require.NoError(t, err)

	require.Len(t, superseded, 1)
	assert.True(t, v1.Effectivity.To.Equal(entities.MustDate("2024-03-01")))
	assert.False(t, v1.Effectivity.Covers(entities.MustDate("2024-03-01")))
}

func TestSupersede_RejectsLaterOrBoundedOverlap(t *testing.T) {
	later := version(1, "2024-06-01", "", entities.StatusReleased)
	_, err := Supersede([]*entities.BillOfMaterials{later}, 2, entities.MustDate("2024-03-01"))
	assert.ErrorIs(t, err, entities.ErrEffectivityOverlap)
	assert.True(t, later.Effectivity.OpenEnded(), "rejected supersession must not modify versions")

	bounded := version(1, "2024-01-01", "2024-12-31", entities.StatusReleased)
	_, err = Supersede([]*entities.BillOfMaterials{bounded}, 2, entities.MustDate("2024-03-01"))
	assert.ErrorIs(t, err, entities.ErrEffectivityOverlap)

	_, err = Supersede([]*entities.BillOfMaterials{bounded}, 1, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	assert.ErrorIs(t, err, entities.ErrVersionExists)
}
