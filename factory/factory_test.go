package factory_test

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frobware/go-pfq"
	"github.com/frobware/go-pfq/factory"
)

// testLogger discards output unless PFQ_TEST_VERBOSE is set.
func testLogger() *slog.Logger {
	if os.Getenv("PFQ_TEST_VERBOSE") != "" {
		return slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// tagged returns a function whose result identifies it by hash.
func tagged(tag uint32) pfq.Func {
	return func(pfq.Packet, any) pfq.Result {
		return pfq.Result{Hash: tag, Type: pfq.ActionContinue}
	}
}

// tagOf calls fn and returns the tag it was built with.
func tagOf(t *testing.T, fn pfq.Func) uint32 {
	t.Helper()
	require.NotNil(t, fn)
	return fn(pfq.RawPacket{}, nil).Hash
}

func TestRegisterDistinctNamesAreResolvable(t *testing.T) {
	f := factory.New(factory.WithLogger(testLogger()))

	names := []string{"ip", "tcp", "udp", "IP"}
	for i, name := range names {
		require.NoError(t, f.Register("test", name, tagged(uint32(i))))
	}

	for i, name := range names {
		fn, ok := f.Lookup(name)
		require.True(t, ok, "lookup %q", name)
		assert.Equal(t, uint32(i), tagOf(t, fn), "names are case-sensitive")
	}
	assert.Equal(t, len(names), f.Len())
}

func TestRegisterDuplicateKeepsExistingMapping(t *testing.T) {
	f := factory.New(factory.WithLogger(testLogger()))
	require.NoError(t, f.Register("test", "ip", tagged(1)))

	err := f.Register("other", "ip", tagged(2))
	require.Error(t, err)

	var exists pfq.ErrFunctionExists
	require.True(t, errors.As(err, &exists), "expected ErrFunctionExists, got %T", err)
	assert.Equal(t, "ip", exists.Name)
	assert.ErrorIs(t, err, pfq.ErrExists)

	fn, ok := f.Lookup("ip")
	require.True(t, ok)
	assert.Equal(t, uint32(1), tagOf(t, fn))
	assert.Equal(t, 1, f.Len())
}

func TestRegisterRejectsEmptyNameAndNilFunc(t *testing.T) {
	f := factory.New(factory.WithLogger(testLogger()))

	assert.ErrorIs(t, f.Register("test", "", tagged(1)), pfq.ErrInvalid)
	assert.ErrorIs(t, f.Register("test", "nil", nil), pfq.ErrInvalid)
	assert.Zero(t, f.Len())
}

func TestUnregisterThenLookupFails(t *testing.T) {
	f := factory.New(factory.WithLogger(testLogger()))
	require.NoError(t, f.Register("test", "ip", tagged(1)))

	require.NoError(t, f.Unregister("test", "ip"))

	fn, ok := f.Lookup("ip")
	assert.False(t, ok)
	assert.Nil(t, fn)
}

func TestUnregisterUnknownLeavesStateUnchanged(t *testing.T) {
	f := factory.New(factory.WithLogger(testLogger()))
	require.NoError(t, f.Register("test", "ip", tagged(1)))

	err := f.Unregister("test", "tcp")
	require.Error(t, err)

	var notFound pfq.ErrFunctionNotFound
	require.True(t, errors.As(err, &notFound), "expected ErrFunctionNotFound, got %T", err)
	assert.Equal(t, "tcp", notFound.Name)
	assert.ErrorIs(t, err, pfq.ErrNotFound)
	assert.Equal(t, 1, f.Len())

	// The lock must have been released on the failure path.
	_, ok := f.Lookup("ip")
	assert.True(t, ok)
}

func TestUnregisterRunsDismissHookFirst(t *testing.T) {
	var dismissed []string
	var tags []uint32

	f := factory.New(
		factory.WithLogger(testLogger()),
		factory.WithDismiss(func(name string, fn pfq.Func) {
			dismissed = append(dismissed, name)
			tags = append(tags, fn(pfq.RawPacket{}, nil).Hash)
		}),
	)
	require.NoError(t, f.Register("test", "steer_ip", tagged(7)))

	require.NoError(t, f.Unregister("test", "steer_ip"))
	assert.Equal(t, []string{"steer_ip"}, dismissed)
	assert.Equal(t, []uint32{7}, tags)

	// Not called for a failed unregister.
	require.Error(t, f.Unregister("test", "steer_ip"))
	assert.Len(t, dismissed, 1)
}

func TestLookupEmptyName(t *testing.T) {
	f := factory.New(factory.WithLogger(testLogger()))
	fn, ok := f.Lookup("")
	assert.False(t, ok)
	assert.Nil(t, fn)
}

func TestBulkRegisterAndUnregister(t *testing.T) {
	f := factory.New(factory.WithLogger(testLogger()))
	table := pfq.FunctionTable{
		{Name: "ip", Func: tagged(1)},
		{Name: "tcp", Func: tagged(2)},
	}

	require.NoError(t, f.RegisterFunctions("mod", table))

	fn, ok := f.Lookup("tcp")
	require.True(t, ok)
	assert.Equal(t, uint32(2), tagOf(t, fn))

	require.NoError(t, f.UnregisterFunctions("mod", table))
	for _, name := range table.Names() {
		_, ok := f.Lookup(name)
		assert.False(t, ok, "%q still registered", name)
	}
}

func TestBulkRegisterIsBestEffort(t *testing.T) {
	f := factory.New(factory.WithLogger(testLogger()))
	require.NoError(t, f.Register("", "tcp", tagged(9)))

	table := pfq.FunctionTable{
		{Name: "ip", Func: tagged(1)},
		{Name: "tcp", Func: tagged(2)},
		{Name: "udp", Func: tagged(3)},
	}
	err := f.RegisterFunctions("mod", table)
	require.Error(t, err)

	var exists pfq.ErrFunctionExists
	require.True(t, errors.As(err, &exists))
	assert.Equal(t, "tcp", exists.Name)

	// Entries either side of the failure are in place, and the clash did
	// not overwrite the original.
	for name, want := range map[string]uint32{"ip": 1, "tcp": 9, "udp": 3} {
		fn, ok := f.Lookup(name)
		require.True(t, ok, name)
		assert.Equal(t, want, tagOf(t, fn), name)
	}

	// Unregistering a table with a missing entry still removes the rest.
	err = f.UnregisterFunctions("mod", append(table, pfq.FunctionDescr{Name: "icmp", Func: tagged(4)}))
	assert.ErrorIs(t, err, pfq.ErrNotFound)
	assert.Zero(t, f.Len())
}

func TestNamesAreTruncated(t *testing.T) {
	f := factory.New(factory.WithLogger(testLogger()))
	long := strings.Repeat("x", factory.NameLen+10)
	stored := long[:factory.NameLen-1]

	require.NoError(t, f.Register("test", long, tagged(1)))

	_, ok := f.Lookup(long)
	assert.True(t, ok)
	_, ok = f.Lookup(stored)
	assert.True(t, ok)

	err := f.Register("test", stored+"different-suffix", tagged(2))
	assert.ErrorIs(t, err, pfq.ErrExists, "names equal after truncation collide")

	entries := f.List()
	require.Len(t, entries, 1)
	assert.Equal(t, stored, entries[0].Name)

	require.NoError(t, f.Unregister("test", long))
	assert.Zero(t, f.Len())
}

func TestCapacity(t *testing.T) {
	f := factory.New(factory.WithLogger(testLogger()), factory.WithCapacity(2))
	require.NoError(t, f.Register("test", "a", tagged(1)))
	require.NoError(t, f.Register("test", "b", tagged(2)))

	err := f.Register("test", "c", tagged(3))
	var oom pfq.ErrOutOfMemory
	require.True(t, errors.As(err, &oom), "expected ErrOutOfMemory, got %v", err)
	assert.Equal(t, 2, oom.Capacity)

	require.NoError(t, f.Unregister("test", "a"))
	assert.NoError(t, f.Register("test", "c", tagged(3)))
}

func TestTeardownSkipsDismissHook(t *testing.T) {
	called := false
	f := factory.New(
		factory.WithLogger(testLogger()),
		factory.WithDismiss(func(string, pfq.Func) { called = true }),
	)
	require.NoError(t, f.RegisterFunctions("mod", pfq.FunctionTable{
		{Name: "ip", Func: tagged(1)},
		{Name: "tcp", Func: tagged(2)},
	}))

	f.Teardown()

	assert.False(t, called)
	assert.Zero(t, f.Len())
	_, ok := f.Lookup("ip")
	assert.False(t, ok)

	// The factory is reusable after teardown.
	assert.NoError(t, f.Register("mod", "ip", tagged(1)))
}

func TestInitRegistersTables(t *testing.T) {
	f := factory.New(factory.WithLogger(testLogger()))
	a := pfq.FunctionTable{{Name: "a1", Func: tagged(1)}, {Name: "a2", Func: tagged(2)}}
	b := pfq.FunctionTable{{Name: "b1", Func: tagged(3)}}

	require.NoError(t, f.Init(a, b))
	assert.Equal(t, 3, f.Len())

	var names []string
	for _, e := range f.List() {
		names = append(names, e.Name)
		assert.Empty(t, e.Module)
		assert.False(t, e.Registered.IsZero())
	}
	assert.Equal(t, []string{"a1", "a2", "b1"}, names)
}

func TestConcurrentRegisterOfOneNameHasOneWinner(t *testing.T) {
	f := factory.New(factory.WithLogger(testLogger()))

	const workers = 32
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = f.Register(fmt.Sprintf("mod%d", i), "steer_flow", tagged(uint32(i)))
		}()
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
			continue
		}
		assert.ErrorIs(t, err, pfq.ErrExists)
	}
	assert.Equal(t, 1, winners)
	assert.Equal(t, 1, f.Len())
}
