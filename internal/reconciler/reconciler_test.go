package reconciler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexusdb/nexusdb/internal/instance"
	"github.com/nexusdb/nexusdb/internal/runtime"
)

type mockRepo struct {
	instances []instance.Instance
	updated   []*instance.Instance
}

func (m *mockRepo) Add(ctx context.Context, inst *instance.Instance) error { return nil }

func (m *mockRepo) GetByOwnerID(ctx context.Context, ownerUserID int64) (*instance.Instance, error) {
	return nil, instance.ErrNotFound
}

func (m *mockRepo) Update(ctx context.Context, inst *instance.Instance) error {
	m.updated = append(m.updated, inst)
	return nil
}

func (m *mockRepo) GetAll(ctx context.Context) ([]instance.Instance, error) {
	return m.instances, nil
}

type mockRuntime struct {
	running   map[string]bool
	inspected []string
	err       error
}

func (m *mockRuntime) EnsureImage(ctx context.Context, ref string) error { return nil }
func (m *mockRuntime) CreateContainer(ctx context.Context, spec runtime.ContainerSpec) (string, error) {
	return "", nil
}
func (m *mockRuntime) StartContainer(ctx context.Context, id string) error  { return nil }
func (m *mockRuntime) StopContainer(ctx context.Context, id string) error   { return nil }
func (m *mockRuntime) RemoveContainer(ctx context.Context, id string) error { return nil }
func (m *mockRuntime) ListImages(ctx context.Context) ([]string, error)     { return nil, nil }

func (m *mockRuntime) ContainerRunning(ctx context.Context, id string) (bool, error) {
	m.inspected = append(m.inspected, id)
	if m.err != nil {
		return false, m.err
	}
	return m.running[id], nil
}

func testInstance(id int64, containerID string, state instance.State) instance.Instance {
	inst := instance.New("nexusdb-app", "db", "mysql", "u", "c", id, 1)
	inst.ID = id
	inst.ContainerID = containerID
	inst.HostPort = 30000 + int(id)
	inst.State = state
	return *inst
}

func TestReconcile_SuspendsDeadActiveInstance(t *testing.T) {
	repo := &mockRepo{instances: []instance.Instance{
		testInstance(1, "dead", instance.StateActive),
		testInstance(2, "alive", instance.StateActive),
	}}
	rt := &mockRuntime{running: map[string]bool{"alive": true}}

	r := New(repo, rt, time.Minute)
	r.reconcile(context.Background())

	require.Len(t, repo.updated, 1)
	assert.Equal(t, int64(1), repo.updated[0].ID)
	assert.Equal(t, instance.StateSuspended, repo.updated[0].State)
}

func TestReconcile_IgnoresSuspendedAndDeleted(t *testing.T) {
	repo := &mockRepo{instances: []instance.Instance{
		testInstance(1, "c1", instance.StateSuspended),
		testInstance(2, "c2", instance.StateDeleted),
	}}
	rt := &mockRuntime{}

	r := New(repo, rt, time.Minute)
	r.reconcile(context.Background())

	assert.Empty(t, rt.inspected)
	assert.Empty(t, repo.updated)
}

func TestReconcile_InspectFailureLeavesStateAlone(t *testing.T) {
	repo := &mockRepo{instances: []instance.Instance{
		testInstance(1, "c1", instance.StateActive),
	}}
	rt := &mockRuntime{err: errors.New("daemon unreachable")}

	r := New(repo, rt, time.Minute)
	r.reconcile(context.Background())

	assert.Empty(t, repo.updated)
}

func TestStart_StopsOnContextCancel(t *testing.T) {
	repo := &mockRepo{}
	r := New(repo, &mockRuntime{}, time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		r.Start(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reconciler did not stop on context cancellation")
	}
}
