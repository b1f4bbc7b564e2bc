package statestore

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/surfdeck/surfdeck/errors"
)

type recordingSender struct {
	sent []map[string]any
	err  error
}

func (r *recordingSender) Send(payload map[string]any) error {
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, payload)
	return nil
}

func (r *recordingSender) ofType(kind string) []map[string]any {
	var out []map[string]any
	for _, p := range r.sent {
		if p["type"] == kind {
			out = append(out, p)
		}
	}
	return out
}

func TestCreateOrUpdateState(t *testing.T) {
	t.Run("first create sends createState", func(t *testing.T) {
		sender := &recordingSender{}
		store := New(sender)

		require.NoError(t, store.CreateOrUpdateState("app.cpu", "CPU load", "0"))

		require.Len(t, sender.sent, 1)
		assert.Equal(t, map[string]any{
			"type":         "createState",
			"id":           "app.cpu",
			"desc":         "CPU load",
			"defaultValue": "0",
		}, sender.sent[0])
	})

	t.Run("repeat create degrades to update and keeps description", func(t *testing.T) {
		sender := &recordingSender{}
		store := New(sender)

		require.NoError(t, store.CreateOrUpdateState("app.cpu", "CPU load", "0"))
		require.NoError(t, store.CreateOrUpdateState("app.cpu", "something else", "42"))

		require.Len(t, sender.sent, 2)
		assert.Equal(t, "stateUpdate", sender.sent[1]["type"])
		assert.Equal(t, "42", sender.sent[1]["value"])

		record, ok := store.State("app.cpu")
		require.True(t, ok)
		assert.Equal(t, "CPU load", record.Description)
		assert.Equal(t, OriginRuntime, record.Origin)
	})

	t.Run("empty id is a usage error", func(t *testing.T) {
		store := New(&recordingSender{})
		err := store.CreateOrUpdateState("", "x", "y")
		require.Error(t, err)
		assert.True(t, errors.IsUsage(err))
	})
}

func TestUpdateStateDiffSuppression(t *testing.T) {
	sender := &recordingSender{}
	store := New(sender)
	require.NoError(t, store.CreateOrUpdateState("app.cpu", "CPU load", "0"))

	require.NoError(t, store.UpdateState("app.cpu", "50"))
	require.NoError(t, store.UpdateState("app.cpu", "50"))
	require.NoError(t, store.UpdateState("app.cpu", "50"))
	require.NoError(t, store.UpdateState("app.cpu", "51"))

	updates := sender.ofType("stateUpdate")
	require.Len(t, updates, 2)
	assert.Equal(t, "50", updates[0]["value"])
	assert.Equal(t, "51", updates[1]["value"])
}

func TestUpdateStateImplicitCreate(t *testing.T) {
	t.Run("unknown id writes through by default", func(t *testing.T) {
		sender := &recordingSender{}
		store := New(sender)

		require.NoError(t, store.UpdateState("app.new", "1"))

		require.Len(t, sender.sent, 1)
		assert.Equal(t, "stateUpdate", sender.sent[0]["type"])

		record, ok := store.State("app.new")
		require.True(t, ok)
		assert.Equal(t, OriginRuntime, record.Origin)
	})

	t.Run("unknown id rejected when implicit creation disabled", func(t *testing.T) {
		sender := &recordingSender{}
		store := New(sender, WithoutImplicitCreate())

		err := store.UpdateState("app.new", "1")
		require.Error(t, err)
		assert.True(t, errors.IsUsage(err))
		assert.ErrorIs(t, err, errors.ErrUnknownState)
		assert.Empty(t, sender.sent)
	})
}

func TestRemoveState(t *testing.T) {
	sender := &recordingSender{}
	store := New(sender)
	require.NoError(t, store.CreateOrUpdateState("app.cpu", "CPU load", "0"))

	require.NoError(t, store.RemoveState("app.cpu"))
	require.NoError(t, store.RemoveState("app.cpu"))
	require.NoError(t, store.RemoveState("never.seen"))

	removes := sender.ofType("removeState")
	require.Len(t, removes, 1)
	assert.Equal(t, "app.cpu", removes[0]["id"])

	_, ok := store.State("app.cpu")
	assert.False(t, ok)
}

func TestRemovedStateResetsSuppression(t *testing.T) {
	sender := &recordingSender{}
	store := New(sender)

	require.NoError(t, store.UpdateState("app.cpu", "50"))
	require.NoError(t, store.RemoveState("app.cpu"))
	require.NoError(t, store.UpdateState("app.cpu", "50"))

	// Same value, but the cache was dropped with the state.
	assert.Len(t, sender.ofType("stateUpdate"), 2)
}

func TestRegisterStatic(t *testing.T) {
	sender := &recordingSender{}
	store := New(sender)

	store.RegisterStatic("app.cpu", "CPU load", "0")
	assert.Empty(t, sender.sent, "seeding must not write to the wire")

	record, ok := store.State("app.cpu")
	require.True(t, ok)
	assert.Equal(t, OriginStatic, record.Origin)

	// A matching update is suppressed against the seeded value.
	require.NoError(t, store.UpdateState("app.cpu", "0"))
	assert.Empty(t, sender.sent)

	// Re-registering does not clobber the record.
	store.RegisterStatic("app.cpu", "other", "9")
	record, _ = store.State("app.cpu")
	assert.Equal(t, "CPU load", record.Description)
}

func TestResendAll(t *testing.T) {
	sender := &recordingSender{}
	store := New(sender)
	require.NoError(t, store.CreateOrUpdateState("a", "A", "1"))
	require.NoError(t, store.CreateOrUpdateState("b", "B", "2"))
	sender.sent = nil

	require.NoError(t, store.ResendAll())

	updates := sender.ofType("stateUpdate")
	require.Len(t, updates, 2)
	values := map[string]string{}
	for _, u := range updates {
		values[u["id"].(string)] = u["value"].(string)
	}
	assert.Equal(t, map[string]string{"a": "1", "b": "2"}, values)
}

func TestUpdateSetting(t *testing.T) {
	sender := &recordingSender{}
	store := New(sender)

	require.NoError(t, store.UpdateSetting("Host", "localhost"))
	require.NoError(t, store.UpdateSetting("Host", "localhost"))
	require.NoError(t, store.UpdateSetting("Host", "example.org"))

	updates := sender.ofType("settingUpdate")
	require.Len(t, updates, 2)
	assert.Equal(t, "Host", updates[0]["name"])
	assert.Equal(t, "example.org", updates[1]["value"])

	value, ok := store.Setting("Host")
	require.True(t, ok)
	assert.Equal(t, "example.org", value)
}

func TestHeldTracking(t *testing.T) {
	store := New(&recordingSender{})

	assert.False(t, store.IsHeld("app.action.toggle"), "untracked action is not held")

	store.SetHeld("app.action.toggle", "inst-1", true)
	store.SetHeld("app.action.toggle", "inst-2", true)
	assert.True(t, store.IsHeld("app.action.toggle"))

	store.SetHeld("app.action.toggle", "inst-1", false)
	assert.True(t, store.IsHeld("app.action.toggle"), "second instance still held")

	store.SetHeld("app.action.toggle", "inst-2", false)
	assert.False(t, store.IsHeld("app.action.toggle"))
}

func TestClearHeld(t *testing.T) {
	store := New(&recordingSender{})
	store.SetHeld("a", "1", true)
	store.SetHeld("b", "2", true)

	store.ClearHeld()

	assert.False(t, store.IsHeld("a"))
	assert.False(t, store.IsHeld("b"))
}

func TestSendErrorLeavesCacheUnchanged(t *testing.T) {
	sender := &recordingSender{err: fmt.Errorf("boom")}
	store := New(sender)
	require.Error(t, store.UpdateState("app.cpu", "1"))

	sender.err = nil
	require.NoError(t, store.UpdateState("app.cpu", "1"))
	assert.Len(t, sender.ofType("stateUpdate"), 1, "failed write must not populate the cache")
}

// Property: for any interleaving of updates across ids, no two consecutive
// wire writes for the same id carry the same value.
func TestUpdateStateNeverRepeatsValue(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		sender := &recordingSender{}
		store := New(sender)

		ids := []string{"a", "b", "c"}
		steps := rapid.SliceOfN(rapid.Custom(func(t *rapid.T) [2]string {
			return [2]string{
				rapid.SampledFrom(ids).Draw(t, "id"),
				rapid.StringMatching(`[0-9]{1,2}`).Draw(t, "value"),
			}
		}), 0, 50).Draw(t, "steps")

		for _, step := range steps {
			require.NoError(t, store.UpdateState(step[0], step[1]))
		}

		last := map[string]string{}
		for _, p := range sender.ofType("stateUpdate") {
			id := p["id"].(string)
			value := p["value"].(string)
			if prev, seen := last[id]; seen && prev == value {
				t.Fatalf("repeated value %q written for id %q", value, id)
			}
			last[id] = value
		}
	})
}

type countingObserver struct {
	tracked    int
	suppressed int
}

func (o *countingObserver) RecordStatesTracked(count int) { o.tracked = count }
func (o *countingObserver) RecordSuppressedUpdate()       { o.suppressed++ }

func TestObserverSeesStoreActivity(t *testing.T) {
	sender := &recordingSender{}
	obs := &countingObserver{}
	store := New(sender, WithObserver(obs))

	require.NoError(t, store.UpdateState("a", "1"))
	require.NoError(t, store.CreateOrUpdateState("b", "desc", "1"))
	assert.Equal(t, 2, obs.tracked)

	require.NoError(t, store.UpdateState("a", "1"))
	assert.Equal(t, 1, obs.suppressed, "unchanged state write counts as suppressed")

	require.NoError(t, store.UpdateSetting("Host", "x"))
	require.NoError(t, store.UpdateSetting("Host", "x"))
	assert.Equal(t, 2, obs.suppressed, "unchanged setting write counts as suppressed")

	require.NoError(t, store.RemoveState("a"))
	assert.Equal(t, 1, obs.tracked)

	store.RegisterStatic("app.static", "", "0")
	assert.Equal(t, 2, obs.tracked)
}
