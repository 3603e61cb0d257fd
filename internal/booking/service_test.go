package booking

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dentalisa/clinic-booking-bot/internal/catalog"
	redisclient "github.com/dentalisa/clinic-booking-bot/internal/redis"
)

// memRepository mimics the Postgres store, including the partial unique
// index on confirmed slots.
type memRepository struct {
	mu       sync.Mutex
	appts    map[uuid.UUID]*Appointment
	patients map[int64]Patient

	listErr   error
	createErr error
}

func newMemRepository() *memRepository {
	return &memRepository{
		appts:    make(map[uuid.UUID]*Appointment),
		patients: make(map[int64]Patient),
	}
}

func (r *memRepository) CreateConfirmed(ctx context.Context, appt Appointment) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.createErr != nil {
		return nil, r.createErr
	}

	key := appt.SlotKey()
	for _, a := range r.appts {
		if a.Status == StatusConfirmed && a.SlotKey() == key {
			return nil, ErrSlotTaken
		}
	}

	appt.ID = uuid.New()
	appt.Status = StatusConfirmed
	appt.CreatedAt = time.Now()
	r.appts[appt.ID] = &appt

	out := appt
	return &out, nil
}

func (r *memRepository) ConfirmedBySlot(ctx context.Context, doctorID string, date time.Time, slot string) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := SlotKey(doctorID, date, slot)
	for _, a := range r.appts {
		if a.Status == StatusConfirmed && a.SlotKey() == key {
			out := *a
			return &out, nil
		}
	}
	return nil, ErrAppointmentNotFound
}

func (r *memRepository) ListForRequester(ctx context.Context, requesterID int64) ([]Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Appointment
	for _, a := range r.appts {
		if a.RequesterID == requesterID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (r *memRepository) ListConfirmedForDate(ctx context.Context, date time.Time) ([]Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.listErr != nil {
		return nil, r.listErr
	}

	var out []Appointment
	for _, a := range r.appts {
		if a.Status == StatusConfirmed && a.Date.Equal(date) {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (r *memRepository) Cancel(ctx context.Context, id uuid.UUID, requesterID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.appts[id]
	if !ok || a.RequesterID != requesterID || a.Status != StatusConfirmed {
		return false, nil
	}
	a.Status = StatusCancelled
	return true, nil
}

func (r *memRepository) MarkReminderSent(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.appts[id]
	if !ok || a.ReminderSentAt != nil {
		return false, nil
	}
	a.ReminderSentAt = &at
	return true, nil
}

func (r *memRepository) UpsertPatient(ctx context.Context, p Patient) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.patients[p.RequesterID] = p
	return nil
}

func (r *memRepository) CountConfirmedSince(ctx context.Context, since time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, a := range r.appts {
		if a.Status == StatusConfirmed && !a.Date.Before(since) {
			n++
		}
	}
	return n, nil
}

func newTestService(t *testing.T) (*Service, *memRepository) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := newMemRepository()
	locker := redisclient.NewRedisSlotLocker(client, 5*time.Second)
	return NewService(repo, locker, nil), repo
}

func testRequest(requesterID int64, slot string) BookingRequest {
	return BookingRequest{
		DoctorID:        "1",
		Date:            time.Date(2026, time.September, 10, 0, 0, 0, 0, time.UTC),
		Slot:            slot,
		PatientName:     "Иванов Иван",
		PatientPhone:    "+79991234567",
		RequesterID:     requesterID,
		RequesterHandle: "ivanov",
	}
}

func TestBook(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	appt, err := svc.Book(ctx, testRequest(100, "09:00"))
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, appt.ID)
	assert.Equal(t, StatusConfirmed, appt.Status)
	assert.Equal(t, "Иванова Мария Петровна (Стоматолог-терапевт)", appt.DoctorName)

	// The booking also refreshed the patient aggregate.
	assert.Contains(t, repo.patients, int64(100))
}

func TestBookRejectsUnknownDoctorAndSlot(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	req := testRequest(100, "09:00")
	req.DoctorID = "99"
	_, err := svc.Book(ctx, req)
	assert.ErrorIs(t, err, ErrUnknownDoctor)

	req = testRequest(100, "13:00")
	_, err = svc.Book(ctx, req)
	assert.ErrorIs(t, err, ErrUnknownSlot)
}

func TestBookSlotTaken(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Book(ctx, testRequest(100, "09:00"))
	require.NoError(t, err)

	_, err = svc.Book(ctx, testRequest(200, "09:00"))
	assert.ErrorIs(t, err, ErrSlotTaken)

	// A different doctor or slot is unaffected.
	_, err = svc.Book(ctx, testRequest(200, "09:30"))
	assert.NoError(t, err)

	other := testRequest(300, "09:00")
	other.DoctorID = "2"
	_, err = svc.Book(ctx, other)
	assert.NoError(t, err)
}

func TestBookConcurrentRace(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	const racers = 16

	var wg sync.WaitGroup
	results := make(chan error, racers)

	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			_, err := svc.Book(ctx, testRequest(id, "10:00"))
			results <- err
		}(int64(1000 + i))
	}

	wg.Wait()
	close(results)

	wins, losses := 0, 0
	for err := range results {
		switch {
		case err == nil:
			wins++
		default:
			require.ErrorIs(t, err, ErrSlotTaken)
			losses++
		}
	}

	assert.Equal(t, 1, wins, "exactly one racer may confirm the slot")
	assert.Equal(t, racers-1, losses)
}

func TestAvailableSlots(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	date := time.Date(2026, time.September, 10, 0, 0, 0, 0, time.UTC)

	free := svc.AvailableSlots(ctx, "1", date)
	assert.Equal(t, catalog.Slots(), free)

	_, err := svc.Book(ctx, testRequest(100, "09:00"))
	require.NoError(t, err)

	free = svc.AvailableSlots(ctx, "1", date)
	assert.NotContains(t, free, "09:00")
	assert.Len(t, free, len(catalog.Slots())-1)

	// The other doctor's day is untouched.
	assert.Contains(t, svc.AvailableSlots(ctx, "2", date), "09:00")
}

func TestAvailableSlotsDegradesToFullCatalog(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	date := time.Date(2026, time.September, 10, 0, 0, 0, 0, time.UTC)

	_, err := svc.Book(ctx, testRequest(100, "09:00"))
	require.NoError(t, err)

	repo.listErr = ErrStorageUnavailable

	free := svc.AvailableSlots(ctx, "1", date)
	assert.Equal(t, catalog.Slots(), free, "storage faults must not hide the catalog")
}

func TestCancelFreesSlot(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	date := time.Date(2026, time.September, 10, 0, 0, 0, 0, time.UTC)

	appt, err := svc.Book(ctx, testRequest(100, "09:00"))
	require.NoError(t, err)

	// Only the owner can cancel.
	ok, err := svc.Cancel(ctx, appt.ID, 999)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.Cancel(ctx, appt.ID, 100)
	require.NoError(t, err)
	assert.True(t, ok)

	// The slot opens up and can be rebooked.
	assert.Contains(t, svc.AvailableSlots(ctx, "1", date), "09:00")

	_, err = svc.Book(ctx, testRequest(200, "09:00"))
	assert.NoError(t, err)

	// Cancelling twice is a no-op.
	ok, err = svc.Cancel(ctx, appt.ID, 100)
	require.NoError(t, err)
	assert.False(t, ok)
}
