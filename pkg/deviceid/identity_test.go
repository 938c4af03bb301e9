package deviceid

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/countly/countly-sdk-go/pkg/device"
	"github.com/countly/countly-sdk-go/pkg/storage"
)

type countingBackend struct {
	*storage.MemoryBackend
	writes  atomic.Int32
	readErr error
}

func newCountingBackend() *countingBackend {
	return &countingBackend{MemoryBackend: storage.NewMemoryBackend()}
}

func (b *countingBackend) Read(ctx context.Context, name string) ([]byte, error) {
	if b.readErr != nil {
		return nil, b.readErr
	}
	return b.MemoryBackend.Read(ctx, name)
}

func (b *countingBackend) Write(ctx context.Context, name string, data []byte) error {
	b.writes.Add(1)
	return b.MemoryBackend.Write(ctx, name, data)
}

type fakeProvider struct {
	device.Host
	machineID string
}

func (p *fakeProvider) MachineID() (string, error) {
	if p.machineID == "" {
		return "", device.ErrUnavailable
	}
	return p.machineID, nil
}

func newIdentity(backend storage.Backend, provider device.InfoProvider) *Identity {
	return New(storage.NewStore(backend), provider, nil)
}

func TestID_ResolvedOnce(t *testing.T) {
	t.Parallel()
	ctx := t.Context()

	backend := newCountingBackend()
	id := newIdentity(backend, &fakeProvider{machineID: "abc"})

	first := id.ID(ctx)
	second := id.ID(ctx)

	assert.NotEmpty(t, first)
	assert.Equal(t, first, second)
	assert.EqualValues(t, 1, backend.writes.Load())
	assert.Equal(t, MethodMachineID, id.Method())
}

func TestID_ConcurrentFirstUse(t *testing.T) {
	t.Parallel()
	ctx := t.Context()

	backend := newCountingBackend()
	id := newIdentity(backend, nil)

	var wg sync.WaitGroup
	results := make([]string, 32)
	for i := range results {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			results[n] = id.ID(ctx)
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		assert.Equal(t, results[0], r)
	}
	assert.EqualValues(t, 1, backend.writes.Load())
}

func TestID_LoadsPersisted(t *testing.T) {
	t.Parallel()
	ctx := t.Context()

	backend := newCountingBackend()
	first := newIdentity(backend, &fakeProvider{machineID: "abc"}).ID(ctx)

	again := newIdentity(backend, &fakeProvider{machineID: "something-else"})
	assert.Equal(t, first, again.ID(ctx))
	assert.Equal(t, MethodMachineID, again.Method())
	assert.EqualValues(t, 1, backend.writes.Load())
}

func TestSetID_OverridesCachedID(t *testing.T) {
	t.Parallel()
	ctx := t.Context()

	backend := newCountingBackend()
	id := newIdentity(backend, &fakeProvider{machineID: "abc"})
	computed := id.ID(ctx)
	require.NotEqual(t, "custom-id", computed)

	require.NoError(t, id.SetID(ctx, "custom-id"))
	assert.Equal(t, "custom-id", id.ID(ctx))
	assert.Equal(t, MethodDeveloperSupplied, id.Method())
	assert.Equal(t, OriginDeveloperSupplied, id.Method().Origin())

	assert.Equal(t, "custom-id", newIdentity(backend, nil).ID(ctx))
}

func TestSetID_BeforeResolution(t *testing.T) {
	t.Parallel()
	ctx := t.Context()

	backend := newCountingBackend()
	id := newIdentity(backend, nil)

	require.NoError(t, id.SetID(ctx, "early"))
	assert.Equal(t, "early", id.ID(ctx))
	assert.EqualValues(t, 1, backend.writes.Load())

	require.Error(t, id.SetID(ctx, ""))
	assert.Equal(t, "early", id.ID(ctx))
}

func TestID_FallsBackThroughMethods(t *testing.T) {
	t.Parallel()
	ctx := t.Context()

	provider := &fakeProvider{}
	provider.SetDeviceName("box")
	id := newIdentity(newCountingBackend(), provider)
	assert.Len(t, id.ID(ctx), 32)
	assert.Equal(t, MethodFingerprint, id.Method())

	random := newIdentity(newCountingBackend(), nil)
	_, err := uuid.Parse(random.ID(ctx))
	require.NoError(t, err)
	assert.Equal(t, MethodRandom, random.Method())
}

func TestID_PreferredMethodFirst(t *testing.T) {
	t.Parallel()
	ctx := t.Context()

	id := newIdentity(newCountingBackend(), &fakeProvider{machineID: "abc"})
	id.SetPreferredMethod(MethodRandom)

	_, err := uuid.Parse(id.ID(ctx))
	require.NoError(t, err)
	assert.Equal(t, MethodRandom, id.Method())
}

func TestID_MachineIDIsHashed(t *testing.T) {
	t.Parallel()

	id := newIdentity(newCountingBackend(), &fakeProvider{machineID: "raw-machine-id"})
	got := id.ID(t.Context())
	assert.NotContains(t, got, "raw-machine-id")
	assert.Equal(t, digest("countly.device.machine-id", "raw-machine-id"), got)
}

func TestID_CorruptStoredIDIsReplaced(t *testing.T) {
	t.Parallel()
	ctx := t.Context()

	backend := newCountingBackend()
	require.NoError(t, backend.MemoryBackend.Write(ctx, storage.DeviceName, []byte("garbage")))

	id := newIdentity(backend, nil)
	assert.NotEmpty(t, id.ID(ctx))
	assert.EqualValues(t, 1, backend.writes.Load())
}

func TestID_ReadFailureIsRetried(t *testing.T) {
	t.Parallel()
	ctx := t.Context()

	backend := newCountingBackend()
	backend.readErr = errors.New("permission denied")
	id := newIdentity(backend, nil)

	assert.Empty(t, id.ID(ctx))
	assert.Zero(t, backend.writes.Load())

	backend.readErr = nil
	assert.NotEmpty(t, id.ID(ctx))
}

func TestID_ComputeFailureIsRetried(t *testing.T) {
	t.Parallel()
	ctx := t.Context()

	backend := newCountingBackend()
	id := newIdentity(backend, nil)
	id.newUUID = func() (uuid.UUID, error) {
		return uuid.Nil, errors.New("entropy unavailable")
	}

	assert.Empty(t, id.ID(ctx))
	assert.Equal(t, MethodNone, id.Method())
	assert.Zero(t, backend.writes.Load())

	id.newUUID = uuid.NewRandom
	got := id.ID(ctx)
	_, err := uuid.Parse(got)
	require.NoError(t, err)
	assert.Equal(t, MethodRandom, id.Method())
	assert.EqualValues(t, 1, backend.writes.Load())
}

func TestParseMethod(t *testing.T) {
	t.Parallel()

	for _, m := range []Method{MethodNone, MethodMachineID, MethodFingerprint, MethodRandom, MethodDeveloperSupplied} {
		parsed, err := ParseMethod(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, parsed)
	}

	_, err := ParseMethod("cpu")
	require.Error(t, err)
	assert.Equal(t, []Method{MethodFingerprint, MethodMachineID, MethodRandom}, priority(MethodFingerprint))
	assert.Equal(t, defaultPriority, priority(MethodDeveloperSupplied))
}
