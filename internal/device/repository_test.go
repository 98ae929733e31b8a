package device

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/gripid/tracker-core/internal/identity"
	"github.com/gripid/tracker-core/internal/infrastructure/database/dbtest"
)

// newTestRepo returns a repository over a fresh migrated database.
func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	return NewSQLiteRepository(dbtest.Open(t).DB)
}

// steppedClock returns a clock advancing by step on every call.
func steppedClock(start time.Time, step time.Duration) func() time.Time {
	var mu sync.Mutex
	next := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t := next
		next = next.Add(step)
		return t
	}
}

func mustCreate(t *testing.T, repo *SQLiteRepository, d *Device) *Device {
	t.Helper()
	if err := repo.Create(context.Background(), d); err != nil {
		t.Fatalf("Create(%s) error = %v", d.Serial, err)
	}
	return d
}

func assertConflict(t *testing.T, err error, reason ConflictReason) *ConflictError {
	t.Helper()
	if !errors.Is(err, ErrDeviceExists) {
		t.Fatalf("error = %v, want ErrDeviceExists", err)
	}
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("error = %T, want *ConflictError", err)
	}
	if conflict.Reason != reason {
		t.Errorf("Reason = %q, want %q", conflict.Reason, reason)
	}
	return conflict
}

func TestSQLiteRepository_CreateAndGet(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	d := mustCreate(t, repo, &Device{
		Serial:        " GripIDV6-0042 ",
		IMEI1:         "356938035643809 ",
		CurrentStatus: "In Stock",
	})

	if d.ID == "" {
		t.Fatal("Create() did not assign an ID")
	}
	if d.CreatedAt.IsZero() || d.UpdatedAt.IsZero() {
		t.Error("Create() did not set timestamps")
	}
	if d.ModelTag != identity.ModelV6 {
		t.Errorf("ModelTag = %q, want V6", d.ModelTag)
	}

	got, err := repo.GetByID(ctx, d.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Serial != "GripIDV6-0042" {
		t.Errorf("Serial = %q, want stored casing trimmed", got.Serial)
	}
	if got.IMEI1 != "356938035643809" || got.IMEI2 != "" {
		t.Errorf("IMEIs = %q/%q", got.IMEI1, got.IMEI2)
	}
	if !got.CreatedAt.Equal(d.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, d.CreatedAt)
	}

	bySerial, err := repo.GetBySerial(ctx, "gripidv6-0042")
	if err != nil {
		t.Fatalf("GetBySerial() error = %v", err)
	}
	if bySerial.ID != d.ID {
		t.Errorf("GetBySerial() ID = %q, want %q", bySerial.ID, d.ID)
	}
}

func TestSQLiteRepository_GetNotFound(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if _, err := repo.GetByID(ctx, "missing"); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("GetByID() error = %v, want ErrDeviceNotFound", err)
	}
	if _, err := repo.GetBySerial(ctx, "GRIPID404"); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("GetBySerial() error = %v, want ErrDeviceNotFound", err)
	}
	if _, err := repo.GetBySerial(ctx, "   "); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("GetBySerial(blank) error = %v, want ErrDeviceNotFound", err)
	}
}

func TestSQLiteRepository_CreateValidation(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.Create(ctx, &Device{Serial: "  "}); !errors.Is(err, ErrInvalidSerial) {
		t.Errorf("blank serial error = %v, want ErrInvalidSerial", err)
	}
	err := repo.Create(ctx, &Device{Serial: "GRIPID1", IMEI1: "111111111111111", IMEI2: "111111111111111"})
	if !errors.Is(err, ErrInvalidIMEI) {
		t.Errorf("same imei twice error = %v, want ErrInvalidIMEI", err)
	}
	if !IsValidation(err) {
		t.Error("IsValidation() = false for ErrInvalidIMEI")
	}
}

func TestSQLiteRepository_CreateConflicts(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	first := mustCreate(t, repo, &Device{
		Serial:        "GRIPID001",
		IMEI1:         "111111111111111",
		IMEI2:         "222222222222222",
		CurrentStatus: "In Stock",
	})

	t.Run("serial differing only in case", func(t *testing.T) {
		c := assertConflict(t, repo.Create(ctx, &Device{Serial: "gripid001"}), ReasonSerial)
		if c.Existing.ID != first.ID {
			t.Errorf("Existing.ID = %q, want %q", c.Existing.ID, first.ID)
		}
	})

	t.Run("imei shared across slots", func(t *testing.T) {
		assertConflict(t, repo.Create(ctx, &Device{Serial: "GRIPID002", IMEI1: "222222222222222"}), ReasonIMEI)
		assertConflict(t, repo.Create(ctx, &Device{Serial: "GRIPID002", IMEI2: "111111111111111"}), ReasonIMEI)
	})

	t.Run("rejected create leaves no partial state", func(t *testing.T) {
		n, err := repo.Count(ctx)
		if err != nil {
			t.Fatalf("Count() error = %v", err)
		}
		if n != 1 {
			t.Errorf("Count() = %d, want 1", n)
		}
		if _, err := repo.GetBySerial(ctx, "GRIPID002"); !errors.Is(err, ErrDeviceNotFound) {
			t.Errorf("rejected device was stored: %v", err)
		}
	})
}

func TestSQLiteRepository_UniqueIndexBackstop(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	existing := mustCreate(t, repo, &Device{Serial: "GRIPID001", IMEI1: "111111111111111"})

	// A write that slipped past the check surfaces as a raw constraint
	// failure; it must map to the same conflict the check would report.
	raw := errors.New("UNIQUE constraint failed: devices.serial_key")
	err := repo.mapWriteError(ctx, "inserting device", &Device{Serial: "gripid001"}, raw)
	c := assertConflict(t, err, ReasonSerial)
	if c.Existing.ID != existing.ID {
		t.Errorf("Existing.ID = %q, want %q", c.Existing.ID, existing.ID)
	}

	// Without a visible match the reason comes from the failing index.
	raw = errors.New("UNIQUE constraint failed: device_imeis.imei")
	assertConflict(t, repo.mapWriteError(ctx, "inserting device", &Device{Serial: "GRIPID999"}, raw), ReasonIMEI)

	// The schema itself rejects a duplicate serial key.
	_, err = repo.db.ExecContext(ctx, `
		INSERT INTO devices (id, serial, serial_key, current_status, created_at, updated_at)
		VALUES ('raw', 'GripId001', 'GRIPID001', '', '2026-01-01T00:00:00Z', '2026-01-01T00:00:00Z')`)
	if err == nil {
		t.Fatal("devices.serial_key accepted a duplicate")
	}
}

func TestSQLiteRepository_ConcurrentCreateSameSerial(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	const writers = 8
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- repo.Create(ctx, &Device{
				Serial: "GRIPID777",
				IMEI1:  fmt.Sprintf("77777777777777%d", i),
			})
		}(i)
	}
	wg.Wait()
	close(errs)

	var ok, conflicts int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrDeviceExists):
			conflicts++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if ok != 1 || conflicts != writers-1 {
		t.Errorf("ok=%d conflicts=%d, want 1 and %d", ok, conflicts, writers-1)
	}
}

func TestSQLiteRepository_Update(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	d := mustCreate(t, repo, &Device{Serial: "GRIPID100", IMEI1: "111111111111111", IMEI2: "222222222222222", CurrentStatus: "In Stock"})
	other := mustCreate(t, repo, &Device{Serial: "GRIPID200", IMEI1: "333333333333333"})

	t.Run("status and serial edit", func(t *testing.T) {
		edit := *d
		edit.CurrentStatus = "Shipped"
		edit.Serial = "GRIPID-FAP20-100"
		if err := repo.Update(ctx, &edit); err != nil {
			t.Fatalf("Update() error = %v", err)
		}
		got, err := repo.GetByID(ctx, d.ID)
		if err != nil {
			t.Fatalf("GetByID() error = %v", err)
		}
		if got.CurrentStatus != "Shipped" || got.Serial != "GRIPID-FAP20-100" {
			t.Errorf("got %+v", got)
		}
		if got.ModelTag != identity.ModelFAP20 {
			t.Errorf("ModelTag = %q, want recomputed FAP20", got.ModelTag)
		}
		if !got.CreatedAt.Equal(d.CreatedAt) {
			t.Errorf("CreatedAt changed: %v -> %v", d.CreatedAt, got.CreatedAt)
		}
	})

	t.Run("swapping own imeis is allowed", func(t *testing.T) {
		edit, _ := repo.GetByID(ctx, d.ID)
		edit.IMEI1, edit.IMEI2 = edit.IMEI2, edit.IMEI1
		if err := repo.Update(ctx, edit); err != nil {
			t.Fatalf("Update() error = %v", err)
		}
	})

	t.Run("serial taken by another device", func(t *testing.T) {
		edit, _ := repo.GetByID(ctx, d.ID)
		edit.Serial = "gripid200"
		c := assertConflict(t, repo.Update(ctx, edit), ReasonSerial)
		if c.Existing.ID != other.ID {
			t.Errorf("Existing.ID = %q, want %q", c.Existing.ID, other.ID)
		}
	})

	t.Run("released imei can be claimed", func(t *testing.T) {
		edit, _ := repo.GetByID(ctx, d.ID)
		edit.IMEI1 = "444444444444444"
		edit.IMEI2 = ""
		if err := repo.Update(ctx, edit); err != nil {
			t.Fatalf("Update() error = %v", err)
		}
		mustCreate(t, repo, &Device{Serial: "GRIPID300", IMEI1: "111111111111111", IMEI2: "222222222222222"})
	})

	t.Run("unknown id", func(t *testing.T) {
		err := repo.Update(ctx, &Device{ID: "missing", Serial: "GRIPID900"})
		if !errors.Is(err, ErrDeviceNotFound) {
			t.Errorf("Update() error = %v, want ErrDeviceNotFound", err)
		}
	})

	t.Run("blank serial", func(t *testing.T) {
		if err := repo.Update(ctx, &Device{ID: d.ID, Serial: " "}); !errors.Is(err, ErrInvalidSerial) {
			t.Errorf("Update() error = %v, want ErrInvalidSerial", err)
		}
	})
}

func TestSQLiteRepository_Modify(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	d := mustCreate(t, repo, &Device{Serial: "GRIPID100", IMEI1: "111111111111111", CurrentStatus: "In Stock"})
	mustCreate(t, repo, &Device{Serial: "GRIPID200", IMEI1: "333333333333333"})

	t.Run("edit sees stored state", func(t *testing.T) {
		got, err := repo.Modify(ctx, d.ID, func(cur *Device) {
			if cur.Serial != "GRIPID100" || cur.CurrentStatus != "In Stock" {
				t.Errorf("edit got %+v", cur)
			}
			cur.CurrentStatus = "Reserved"
		})
		if err != nil {
			t.Fatalf("Modify() error = %v", err)
		}
		if got.CurrentStatus != "Reserved" || got.IMEI1 != "111111111111111" || !got.CreatedAt.Equal(d.CreatedAt) {
			t.Errorf("Modify() = %+v", got)
		}
	})

	t.Run("id and creation time cannot change", func(t *testing.T) {
		got, err := repo.Modify(ctx, d.ID, func(cur *Device) {
			cur.ID = "other"
			cur.CreatedAt = time.Time{}
		})
		if err != nil {
			t.Fatalf("Modify() error = %v", err)
		}
		if got.ID != d.ID || !got.CreatedAt.Equal(d.CreatedAt) {
			t.Errorf("Modify() = %+v", got)
		}
	})

	t.Run("conflict leaves device unchanged", func(t *testing.T) {
		_, err := repo.Modify(ctx, d.ID, func(cur *Device) {
			cur.IMEI2 = "333333333333333"
			cur.CurrentStatus = "Sold"
		})
		assertConflict(t, err, ReasonIMEI)
		got, _ := repo.GetByID(ctx, d.ID)
		if got.CurrentStatus != "Reserved" || got.IMEI2 != "" {
			t.Errorf("device after rejected edit = %+v", got)
		}
	})

	t.Run("validation", func(t *testing.T) {
		_, err := repo.Modify(ctx, d.ID, func(cur *Device) { cur.IMEI2 = cur.IMEI1 })
		if !errors.Is(err, ErrInvalidIMEI) {
			t.Errorf("Modify() error = %v, want ErrInvalidIMEI", err)
		}
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := repo.Modify(ctx, "missing", func(*Device) {
			t.Error("edit called for a missing device")
		})
		if !errors.Is(err, ErrDeviceNotFound) {
			t.Errorf("Modify() error = %v, want ErrDeviceNotFound", err)
		}
	})
}

func TestSQLiteRepository_ModifyConcurrentEditsMerge(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	const rounds = 20
	devices := make([]*Device, rounds)
	for i := range devices {
		devices[i] = mustCreate(t, repo, &Device{Serial: fmt.Sprintf("GRIPID%03d", i), CurrentStatus: "In Stock"})
	}

	var wg sync.WaitGroup
	errs := make(chan error, 2*rounds)
	for i, d := range devices {
		i, d := i, d
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := repo.Modify(ctx, d.ID, func(cur *Device) {
				cur.Serial = fmt.Sprintf("GRIPID-V6-%03d", i)
			})
			errs <- err
		}()
		go func() {
			defer wg.Done()
			_, err := repo.Modify(ctx, d.ID, func(cur *Device) {
				cur.IMEI1 = fmt.Sprintf("35693803564%04d", i)
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("Modify() error = %v", err)
		}
	}

	for i, d := range devices {
		got, err := repo.GetByID(ctx, d.ID)
		if err != nil {
			t.Fatalf("GetByID() error = %v", err)
		}
		if got.Serial != fmt.Sprintf("GRIPID-V6-%03d", i) || got.IMEI1 != fmt.Sprintf("35693803564%04d", i) {
			t.Errorf("device %d = serial %q imei1 %q, want both edits", i, got.Serial, got.IMEI1)
		}
	}
}

func TestSQLiteRepository_Delete(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	d := mustCreate(t, repo, &Device{Serial: "GRIPID100", IMEI1: "111111111111111"})

	if err := repo.Delete(ctx, d.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := repo.GetByID(ctx, d.ID); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("GetByID() after delete = %v, want ErrDeviceNotFound", err)
	}
	if err := repo.Delete(ctx, d.ID); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("second Delete() = %v, want ErrDeviceNotFound", err)
	}

	// Serial and IMEI are free again.
	mustCreate(t, repo, &Device{Serial: "gripid100", IMEI1: "111111111111111"})
}

func TestSQLiteRepository_ListPage(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	// Two devices share a timestamp to exercise the insertion-order tie break.
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return start }
	mustCreate(t, repo, &Device{Serial: "GRIPID001"})
	mustCreate(t, repo, &Device{Serial: "GRIPID002"})
	repo.now = steppedClock(start.Add(time.Second), time.Second)
	for i := 3; i <= 5; i++ {
		mustCreate(t, repo, &Device{Serial: fmt.Sprintf("GRIPID%03d", i)})
	}

	n, err := repo.Count(ctx)
	if err != nil || n != 5 {
		t.Fatalf("Count() = %d, %v; want 5", n, err)
	}

	var serials []string
	for offset := 0; offset < n; offset += 2 {
		page, err := repo.ListPage(ctx, 2, offset)
		if err != nil {
			t.Fatalf("ListPage() error = %v", err)
		}
		for _, d := range page {
			serials = append(serials, d.Serial)
		}
	}

	want := []string{"GRIPID005", "GRIPID004", "GRIPID003", "GRIPID002", "GRIPID001"}
	if fmt.Sprint(serials) != fmt.Sprint(want) {
		t.Errorf("pages = %v, want %v", serials, want)
	}

	all, err := repo.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll() error = %v", err)
	}
	if len(all) != 5 || all[0].Serial != "GRIPID005" {
		t.Errorf("ListAll() = %d devices, first %q", len(all), all[0].Serial)
	}

	empty, err := repo.ListPage(ctx, 2, 50)
	if err != nil {
		t.Fatalf("ListPage() past end error = %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Errorf("ListPage() past end = %v, want empty non-nil slice", empty)
	}
}
