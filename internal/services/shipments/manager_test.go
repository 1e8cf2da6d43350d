package shipments

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/BearBump/ShipTrack/internal/integrations/carrier"
	"github.com/BearBump/ShipTrack/internal/integrations/carrier/trackingmore"
	"github.com/BearBump/ShipTrack/internal/models"
	"github.com/BearBump/ShipTrack/internal/storage/memkv"
	"github.com/BearBump/ShipTrack/internal/storage/records"
	"github.com/stretchr/testify/require"
)

type fakeCarrier struct {
	mu      sync.Mutex
	updates map[string]models.StatusUpdate
	errs    map[string]error
	calls   map[string]int
	// onFetch runs inside FetchStatus before it returns.
	onFetch func(number string)
}

func newFakeCarrier() *fakeCarrier {
	return &fakeCarrier{
		updates: map[string]models.StatusUpdate{},
		errs:    map[string]error{},
		calls:   map[string]int{},
	}
}

func (f *fakeCarrier) FetchStatus(ctx context.Context, number, carrierCode string) (models.StatusUpdate, error) {
	f.mu.Lock()
	f.calls[number]++
	upd, hasUpd := f.updates[number]
	err := f.errs[number]
	hook := f.onFetch
	f.mu.Unlock()

	if hook != nil {
		hook(number)
	}
	if err != nil {
		return models.StatusUpdate{}, err
	}
	if !hasUpd {
		upd = models.StatusUpdate{Status: models.StatusPending, LastUpdate: "2025-01-01T00:00:00Z", Description: "Status: notfound"}
	}
	return upd, nil
}

func (f *fakeCarrier) set(number string, st models.ShipmentStatus, desc string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates[number] = models.StatusUpdate{Status: st, LastUpdate: "2025-02-01T00:00:00Z", Description: desc}
	delete(f.errs, number)
}

func (f *fakeCarrier) fail(number string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[number] = err
}

func (f *fakeCarrier) callsFor(number string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[number]
}

type testEnv struct {
	store   *records.Store
	carrier *fakeCarrier
	m       *Manager
	clock   time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		store:   records.New(memkv.New()),
		carrier: newFakeCarrier(),
		clock:   time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	env.m = New(env.store, env.carrier)
	env.m.now = func() time.Time {
		env.clock = env.clock.Add(time.Second)
		return env.clock
	}
	return env
}

func (e *testEnv) mustAdd(t *testing.T, owner, number string) *models.Shipment {
	t.Helper()
	sh, err := e.m.Add(context.Background(), owner, number, "zto")
	require.NoError(t, err)
	return sh
}

func (e *testEnv) stored(t *testing.T, owner string) []*models.Shipment {
	t.Helper()
	items, err := e.store.Shipments(context.Background(), owner)
	require.NoError(t, err)
	return items
}

func TestAdd_EndToEndWithTrackingMoreFallback(t *testing.T) {
	var createCalls, getCalls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/trackings/realtime":
			w.WriteHeader(http.StatusServiceUnavailable)
		case "/trackings/create":
			createCalls.Add(1)
			_, _ = w.Write([]byte(`{"meta":{"code":200,"message":"ok"}}`))
		case "/trackings/get":
			getCalls.Add(1)
			_, _ = w.Write([]byte(`{"meta":{"code":200},"data":[{"tracking_number":"SF123","carrier_code":"sf-express","delivery_status":"transit"}]}`))
		}
	}))
	t.Cleanup(srv.Close)

	store := records.New(memkv.New())
	m := New(store, trackingmore.New(srv.URL, "key", time.Second))
	ctx := context.Background()

	require.NoError(t, store.SaveShipments(ctx, "u1", []*models.Shipment{
		models.NewShipment("ZT1", "zto", models.StatusUpdate{}, time.Now()),
	}))

	sh, err := m.Add(ctx, "u1", " SF123 ", "sf-express")
	require.NoError(t, err)
	require.Equal(t, models.StatusInTransit, sh.Status)
	require.Equal(t, int32(1), createCalls.Load())
	require.Equal(t, int32(1), getCalls.Load())

	items, err := store.Shipments(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, "SF123", items[0].TrackingNumber)
	require.Equal(t, models.StatusInTransit, items[0].Status)
	require.True(t, items[0].Active())
}

func TestAdd_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.m.Add(ctx, "u1", "   ", "zto")
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = env.m.Add(ctx, "u1", "X1", "dhl")
	require.ErrorIs(t, err, ErrUnknownCarrier)

	_, err = env.m.Add(ctx, "", "X1", "zto")
	require.ErrorIs(t, err, ErrInvalidInput)

	require.Zero(t, env.carrier.callsFor("X1"))
	require.Empty(t, env.stored(t, "u1"))
}

func TestAdd_Duplicates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	sh := env.mustAdd(t, "u1", "Z1")
	_, err := env.m.Add(ctx, "u1", "Z1 ", "zto")
	require.ErrorIs(t, err, ErrDuplicateActive)

	_, err = env.m.SoftDelete(ctx, "u1", sh.ID)
	require.NoError(t, err)
	_, err = env.m.Add(ctx, "u1", "Z1", "zto")
	require.ErrorIs(t, err, ErrDuplicateTrashed)

	// only the first add reached the carrier
	require.Equal(t, 1, env.carrier.callsFor("Z1"))

	// other owners have their own lists
	_, err = env.m.Add(ctx, "u2", "Z1", "zto")
	require.NoError(t, err)
}

func TestAdd_LookupFailureLeavesListUntouched(t *testing.T) {
	env := newTestEnv(t)
	env.mustAdd(t, "u1", "Z1")
	env.carrier.fail("BAD", carrier.NewLookupError("Tracking number not found in system.", nil))

	_, err := env.m.Add(context.Background(), "u1", "BAD", "zto")
	var le *carrier.LookupError
	require.True(t, errors.As(err, &le))
	require.Len(t, env.stored(t, "u1"), 1)
}

func TestAdd_PrependsNewest(t *testing.T) {
	env := newTestEnv(t)
	env.mustAdd(t, "u1", "A")
	env.mustAdd(t, "u1", "B")

	items := env.stored(t, "u1")
	require.Equal(t, "B", items[0].TrackingNumber)
	require.Equal(t, "A", items[1].TrackingNumber)
}

func TestSoftDeleteRestore_KeepsEveryOtherField(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.carrier.set("Z1", models.StatusInTransit, "Arrived")
	sh := env.mustAdd(t, "u1", "Z1")
	before := *env.stored(t, "u1")[0]

	trashed, err := env.m.SoftDelete(ctx, "u1", sh.ID)
	require.NoError(t, err)
	require.NotNil(t, trashed.DeletedAt)

	_, err = env.m.SoftDelete(ctx, "u1", sh.ID)
	require.ErrorIs(t, err, ErrInvalidTransition)

	restored, err := env.m.Restore(ctx, "u1", sh.ID)
	require.NoError(t, err)
	require.Len(t, restored, 1)

	after := *env.stored(t, "u1")[0]
	require.Nil(t, after.DeletedAt)
	require.Equal(t, before.ID, after.ID)
	require.Equal(t, before.TrackingNumber, after.TrackingNumber)
	require.Equal(t, before.CarrierCode, after.CarrierCode)
	require.Equal(t, before.Status, after.Status)
	require.Equal(t, before.LastUpdate, after.LastUpdate)
	require.Equal(t, before.Description, after.Description)
	require.Equal(t, before.Events, after.Events)
	require.True(t, before.AddedAt.Equal(after.AddedAt))

	_, err = env.m.Restore(ctx, "u1", sh.ID)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestTransitions_UnknownID(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.m.SoftDelete(ctx, "u1", "missing")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = env.m.Restore(ctx, "u1", "missing")
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, env.m.PermanentDelete(ctx, "u1", "missing"), ErrNotFound)
	_, err = env.m.Restore(ctx, "u1")
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestPermanentDelete_IsIrreversible(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	sh := env.mustAdd(t, "u1", "Z1")

	require.ErrorIs(t, env.m.PermanentDelete(ctx, "u1", sh.ID), ErrInvalidTransition)

	_, err := env.m.SoftDelete(ctx, "u1", sh.ID)
	require.NoError(t, err)
	require.NoError(t, env.m.PermanentDelete(ctx, "u1", sh.ID))
	require.Empty(t, env.stored(t, "u1"))

	_, err = env.m.Restore(ctx, "u1", sh.ID)
	require.ErrorIs(t, err, ErrNotFound)

	// the number is free again
	env.mustAdd(t, "u1", "Z1")
}

func TestRestore_ClashWithActiveIsRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	now := time.Now().UTC()
	trashed := models.NewShipment("Z1", "zto", models.StatusUpdate{}, now)
	trashed.DeletedAt = &now
	active := models.NewShipment("Z1", "zto", models.StatusUpdate{}, now)
	require.NoError(t, env.store.SaveShipments(ctx, "u1", []*models.Shipment{active, trashed}))

	_, err := env.m.Restore(ctx, "u1", trashed.ID)
	require.ErrorIs(t, err, ErrDuplicateActive)

	items := env.stored(t, "u1")
	require.NotNil(t, items[1].DeletedAt)
}

func TestRestore_IsAllOrNothing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	now := time.Now().UTC()
	t1 := models.NewShipment("Z1", "zto", models.StatusUpdate{}, now)
	t1.DeletedAt = &now
	t2 := models.NewShipment("Z1", "zto", models.StatusUpdate{}, now)
	t2.DeletedAt = &now
	require.NoError(t, env.store.SaveShipments(ctx, "u1", []*models.Shipment{t1, t2}))

	_, err := env.m.Restore(ctx, "u1", t1.ID, t2.ID)
	require.ErrorIs(t, err, ErrDuplicateActive)
	for _, it := range env.stored(t, "u1") {
		require.True(t, it.Trashed())
	}
}

func TestRefreshAll_FailureKeepsPriorStateSuccessUpdates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.carrier.set("OK1", models.StatusPending, "")
	env.carrier.set("BAD1", models.StatusInTransit, "Departed")
	ok := env.mustAdd(t, "u1", "OK1")
	bad := env.mustAdd(t, "u1", "BAD1")
	gone := env.mustAdd(t, "u1", "TRASH1")
	_, err := env.m.SoftDelete(ctx, "u1", gone.ID)
	require.NoError(t, err)

	env.carrier.set("OK1", models.StatusDelivered, "Signed")
	env.carrier.fail("BAD1", errors.New("timeout"))
	env.carrier.set("TRASH1", models.StatusDelivered, "never applied")

	rep, err := env.m.RefreshAll(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, []string{ok.ID}, rep.Refreshed)
	require.Len(t, rep.Failed, 1)
	require.Equal(t, bad.ID, rep.Failed[0].ID)
	require.Equal(t, 1, env.carrier.callsFor("TRASH1"))

	items := env.stored(t, "u1")
	require.Len(t, items, 3)
	byID := map[string]*models.Shipment{}
	for _, it := range items {
		byID[it.ID] = it
	}
	require.Equal(t, models.StatusDelivered, byID[ok.ID].Status)
	require.Equal(t, "Signed", byID[ok.ID].Description)
	require.Equal(t, models.StatusInTransit, byID[bad.ID].Status)
	require.Equal(t, "Departed", byID[bad.ID].Description)
	require.EqualValues(t, 1, byID[bad.ID].CheckFailCount)
	require.NotNil(t, byID[bad.ID].LastFailedAt)
	require.Zero(t, byID[ok.ID].CheckFailCount)
	require.True(t, byID[gone.ID].Trashed())
	require.Equal(t, models.StatusPending, byID[gone.ID].Status)
}

func TestRefreshAll_FailureCountResetsOnSuccess(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	sh := env.mustAdd(t, "u1", "FLAKY")
	checked := *sh.LastCheckedAt

	env.carrier.fail("FLAKY", carrier.NewLookupError("Tracking service unavailable (Endpoint Error).", nil))
	for i := 0; i < 3; i++ {
		_, err := env.m.RefreshAll(ctx, "u1")
		require.NoError(t, err)
	}
	got := env.stored(t, "u1")[0]
	require.EqualValues(t, 3, got.CheckFailCount)
	require.Equal(t, checked, *got.LastCheckedAt)

	env.carrier.set("FLAKY", models.StatusOutForDelivery, "Courier on the way")
	rep, err := env.m.RefreshAll(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, []string{sh.ID}, rep.Refreshed)
	got = env.stored(t, "u1")[0]
	require.Zero(t, got.CheckFailCount)
	require.Nil(t, got.LastFailedAt)
	require.Equal(t, models.StatusOutForDelivery, got.Status)
}

func TestRefreshAll_DoesNotResurrectRecordsRemovedMeanwhile(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.mustAdd(t, "u1", "A")
	b := env.mustAdd(t, "u1", "B")

	env.carrier.set("A", models.StatusInTransit, "moving")
	env.carrier.set("B", models.StatusInTransit, "moving")
	var once sync.Once
	var hookErr error
	env.carrier.onFetch = func(number string) {
		once.Do(func() {
			if _, err := env.m.SoftDelete(ctx, "u1", a.ID); err != nil {
				hookErr = err
				return
			}
			hookErr = env.m.PermanentDelete(ctx, "u1", a.ID)
		})
	}

	rep, err := env.m.RefreshAll(ctx, "u1")
	require.NoError(t, err)
	require.NoError(t, hookErr)
	require.Equal(t, []string{b.ID}, rep.Refreshed)

	items := env.stored(t, "u1")
	require.Len(t, items, 1)
	require.Equal(t, b.ID, items[0].ID)
	require.Equal(t, models.StatusInTransit, items[0].Status)
}

func TestRefreshDue_OnlyAcceptedRecords(t *testing.T) {
	env := newTestEnv(t)
	a := env.mustAdd(t, "u1", "A")
	env.mustAdd(t, "u1", "B")
	before := env.carrier.callsFor("B")

	rep, err := env.m.RefreshDue(context.Background(), "u1", func(s *models.Shipment) bool { return s.ID == a.ID })
	require.NoError(t, err)
	require.Equal(t, []string{a.ID}, rep.Refreshed)
	require.Equal(t, before, env.carrier.callsFor("B"))
}

func TestRefreshAll_EmptyList(t *testing.T) {
	env := newTestEnv(t)
	rep, err := env.m.RefreshAll(context.Background(), "nobody")
	require.NoError(t, err)
	require.Empty(t, rep.Refreshed)
	require.Empty(t, rep.Failed)
}

type limiterStub struct {
	allowed map[string]bool
	err     error
}

func (l limiterStub) Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error) {
	return l.allowed[key], 1, l.err
}

func TestRefreshAll_RateLimitedCarrierIsSkipped(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	zto := env.mustAdd(t, "u1", "Z1")
	yto, err := env.m.Add(ctx, "u1", "Y1", "yto")
	require.NoError(t, err)

	env.m.WithRateLimiter(limiterStub{allowed: map[string]bool{"carrier:yto": true}}, 10)

	rep, err := env.m.RefreshAll(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, []string{zto.ID}, rep.Skipped)
	require.Equal(t, []string{yto.ID}, rep.Refreshed)
}

func TestRefreshAll_LimiterErrorDoesNotBlock(t *testing.T) {
	env := newTestEnv(t)
	sh := env.mustAdd(t, "u1", "Z1")
	env.m.WithRateLimiter(limiterStub{err: errors.New("redis down")}, 10)

	rep, err := env.m.RefreshAll(context.Background(), "u1")
	require.NoError(t, err)
	require.Equal(t, []string{sh.ID}, rep.Refreshed)
}

func TestList_FilterAndDisplayOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.carrier.set("D", models.StatusDelivered, "")
	env.carrier.set("E", models.StatusException, "")
	env.carrier.set("T1", models.StatusInTransit, "")
	env.carrier.set("T2", models.StatusInTransit, "")
	env.carrier.set("X", models.StatusExpired, "")
	env.carrier.set("P", models.StatusPending, "")
	for _, n := range []string{"D", "E", "T1", "T2", "X", "P", "GONE"} {
		env.mustAdd(t, "u1", n)
	}
	gone := env.stored(t, "u1")[0]
	_, err := env.m.SoftDelete(ctx, "u1", gone.ID)
	require.NoError(t, err)

	active, err := env.m.List(ctx, "u1", Filter{})
	require.NoError(t, err)
	var got []string
	for _, s := range active {
		got = append(got, s.TrackingNumber)
	}
	require.Equal(t, []string{"E", "T2", "T1", "P", "D", "X"}, got)

	inTransit, err := env.m.List(ctx, "u1", Filter{View: ViewActive, Status: models.StatusInTransit})
	require.NoError(t, err)
	require.Len(t, inTransit, 2)

	trash, err := env.m.List(ctx, "u1", Filter{View: ViewTrash})
	require.NoError(t, err)
	require.Len(t, trash, 1)
	require.Equal(t, "GONE", trash[0].TrackingNumber)

	_, err = env.m.List(ctx, "u1", Filter{View: "archive"})
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = env.m.List(ctx, "u1", Filter{Status: "lost"})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestSelection(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	a := env.mustAdd(t, "u1", "A")
	b := env.mustAdd(t, "u1", "B")
	c := env.mustAdd(t, "u1", "C")

	_, err := env.m.Select(ctx, "u1", a.ID)
	require.ErrorIs(t, err, ErrInvalidTransition)
	_, err = env.m.Select(ctx, "u1", "missing")
	require.ErrorIs(t, err, ErrNotFound)

	for _, sh := range []*models.Shipment{a, b, c} {
		_, err := env.m.SoftDelete(ctx, "u1", sh.ID)
		require.NoError(t, err)
	}

	sel, err := env.m.Select(ctx, "u1", a.ID)
	require.NoError(t, err)
	require.Equal(t, []string{a.ID}, sel)

	sel, err = env.m.SelectAllTrashed(ctx, "u1")
	require.NoError(t, err)
	require.ElementsMatch(t, []string{a.ID, b.ID, c.ID}, sel)

	// leaving the trash drops the id from the selection
	require.NoError(t, env.m.PermanentDelete(ctx, "u1", c.ID))
	_, err = env.m.Restore(ctx, "u1", b.ID)
	require.NoError(t, err)
	sel, err = env.m.Selected(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, []string{a.ID}, sel)

	sel, err = env.m.Deselect(ctx, "u1", a.ID)
	require.NoError(t, err)
	require.Empty(t, sel)

	_, err = env.m.SelectAllTrashed(ctx, "u1")
	require.NoError(t, err)
	restored, err := env.m.RestoreSelected(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, restored, 1)
	require.Equal(t, a.ID, restored[0].ID)

	sel, err = env.m.Selected(ctx, "u1")
	require.NoError(t, err)
	require.Empty(t, sel)

	restored, err = env.m.RestoreSelected(ctx, "u1")
	require.NoError(t, err)
	require.Empty(t, restored)

	_, err = env.m.SelectAllTrashed(ctx, "u2")
	require.NoError(t, err)
	env.m.ClearSelection("u1")
	env.m.Forget("u2")
}

func TestSelection_ClearedByExternalChange(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.mustAdd(t, "u1", "A")
	_, err := env.m.SoftDelete(ctx, "u1", a.ID)
	require.NoError(t, err)
	_, err = env.m.Select(ctx, "u1", a.ID)
	require.NoError(t, err)

	// another process restores the record behind this manager's back
	items := env.stored(t, "u1")
	items[0].DeletedAt = nil
	require.NoError(t, env.store.SaveShipments(ctx, "u1", items))

	sel, err := env.m.Selected(ctx, "u1")
	require.NoError(t, err)
	require.Empty(t, sel)
}

func TestAdd_NoTwoActiveRecordsShareANumber(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	r := rand.New(rand.NewSource(7))
	numbers := []string{"N1", "N2", "N3"}

	for i := 0; i < 300; i++ {
		items := env.stored(t, "u1")
		switch r.Intn(5) {
		case 0, 1:
			_, _ = env.m.Add(ctx, "u1", numbers[r.Intn(len(numbers))], "zto")
		case 2:
			if len(items) > 0 {
				_, _ = env.m.SoftDelete(ctx, "u1", items[r.Intn(len(items))].ID)
			}
		case 3:
			if len(items) > 0 {
				_, _ = env.m.Restore(ctx, "u1", items[r.Intn(len(items))].ID)
			}
		case 4:
			if len(items) > 0 {
				_ = env.m.PermanentDelete(ctx, "u1", items[r.Intn(len(items))].ID)
			}
		}

		seen := map[string]bool{}
		for _, it := range env.stored(t, "u1") {
			if !it.Active() {
				continue
			}
			require.False(t, seen[it.TrackingNumber], fmt.Sprintf("step %d: %s active twice", i, it.TrackingNumber))
			seen[it.TrackingNumber] = true
		}
	}
}
