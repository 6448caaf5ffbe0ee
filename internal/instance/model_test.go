package instance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveContainerName(t *testing.T) {
	tests := []struct {
		name        string
		prefix      string
		ownerUserID int64
		logical     string
		want        string
	}{
		{
			name:        "lowercases and strips punctuation",
			prefix:      "nexusdb-app",
			ownerUserID: 42,
			logical:     "Biology101",
			want:        "nexusdb-app-42-biology101",
		},
		{
			name:        "strips underscores and spaces",
			prefix:      "nexusdb-app",
			ownerUserID: 7,
			logical:     "My_Course DB",
			want:        "nexusdb-app-7-mycoursedb",
		},
		{
			name:        "keeps hyphens and digits",
			prefix:      "lab",
			ownerUserID: 1,
			logical:     "chem-2024",
			want:        "lab-1-chem-2024",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveContainerName(tt.prefix, tt.ownerUserID, tt.logical))
		})
	}
}

func TestNew_StartsSuspended(t *testing.T) {
	inst := New("nexusdb-app", "Biology101", "mysql", "student", "ciphertext", 42, 1)

	assert.Equal(t, StateSuspended, inst.State)
	assert.Equal(t, "nexusdb-app-42-biology101", inst.ContainerName)
	assert.Equal(t, int64(42), inst.OwnerUserID)
	assert.Equal(t, int64(1), inst.CreatedByUserID)
	assert.Empty(t, inst.ContainerID)
	assert.Zero(t, inst.HostPort)
}

func TestActivate_RequiresContainer(t *testing.T) {
	inst := New("nexusdb-app", "db", "mysql", "u", "c", 1, 1)

	err := inst.Activate()
	require.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, StateSuspended, inst.State)

	inst.ContainerID = "abc123"
	inst.HostPort = 33060
	require.NoError(t, inst.Activate())
	assert.Equal(t, StateActive, inst.State)
}

func TestSuspendAndReactivate(t *testing.T) {
	inst := New("nexusdb-app", "db", "postgresql", "u", "c", 1, 1)
	inst.ContainerID = "abc123"
	inst.HostPort = 54320

	require.NoError(t, inst.Activate())
	require.NoError(t, inst.Suspend())
	assert.Equal(t, StateSuspended, inst.State)
	require.NoError(t, inst.Activate())
	assert.Equal(t, StateActive, inst.State)
}

func TestDeletedIsTerminal(t *testing.T) {
	inst := New("nexusdb-app", "db", "redis", "u", "c", 1, 1)
	inst.ContainerID = "abc123"
	inst.HostPort = 63790

	inst.MarkDeleted()
	assert.Equal(t, StateDeleted, inst.State)

	assert.ErrorIs(t, inst.Activate(), ErrInvalidTransition)
	assert.ErrorIs(t, inst.Suspend(), ErrInvalidTransition)
	assert.Equal(t, StateDeleted, inst.State)
}
