// Command simulate hammers the booking service with concurrent workers
// racing for a small set of slots, to demonstrate that exactly one booking
// wins each (doctor, date, time) triple under contention.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/dentalisa/clinic-booking-bot/internal/booking"
	"github.com/dentalisa/clinic-booking-bot/internal/catalog"
	"github.com/dentalisa/clinic-booking-bot/internal/config"
	"github.com/dentalisa/clinic-booking-bot/internal/db"
	redisclient "github.com/dentalisa/clinic-booking-bot/internal/redis"
	"github.com/dentalisa/clinic-booking-bot/pkg/logging"
)

type metrics struct {
	total    int64
	success  int64
	conflict int64
	errored  int64

	mu        sync.Mutex
	latencies []time.Duration
}

func (m *metrics) record(latency time.Duration, err error) {
	atomic.AddInt64(&m.total, 1)
	switch {
	case err == nil:
		atomic.AddInt64(&m.success, 1)
	case errors.Is(err, booking.ErrSlotTaken):
		atomic.AddInt64(&m.conflict, 1)
	default:
		atomic.AddInt64(&m.errored, 1)
	}

	m.mu.Lock()
	m.latencies = append(m.latencies, latency)
	m.mu.Unlock()
}

func (m *metrics) stats() (avg, p50, p95 time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.latencies) == 0 {
		return 0, 0, 0
	}

	sorted := make([]time.Duration, len(m.latencies))
	copy(sorted, m.latencies)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var sum time.Duration
	for _, l := range sorted {
		sum += l
	}

	avg = sum / time.Duration(len(sorted))
	p50 = sorted[len(sorted)*50/100]
	p95 = sorted[min(len(sorted)*95/100, len(sorted)-1)]
	return avg, p50, p95
}

func main() {
	log.SetFlags(log.LstdFlags)

	workers := flag.Int("workers", 20, "concurrent booking workers")
	duration := flag.Duration("duration", 15*time.Second, "how long to run")
	slotSpread := flag.Int("slots", 6, "distinct slots the workers fight over")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load: %v", err)
	}

	logger := logging.New("warn")

	rootCtx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	pgCtx, cancelPg := context.WithTimeout(context.Background(), 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pgPool.Close()

	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Fatalf("connect redis: %v", err)
	}
	defer rdb.Close()

	repo := booking.NewPgRepository(pgPool, cfg.StorageTimeout)
	locker := redisclient.NewRedisSlotLocker(rdb, cfg.LockTTL)
	svc := booking.NewService(repo, locker, logger)

	gofakeit.Seed(time.Now().UnixNano())

	// A narrow target set maximizes slot contention.
	doctors := catalog.Doctors()
	slots := catalog.Slots()
	if *slotSpread > len(slots) {
		*slotSpread = len(slots)
	}
	targetDate := catalog.DateOnly(time.Now()).AddDate(0, 0, 1)

	var m metrics
	var wg sync.WaitGroup

	log.Printf("simulate: %d workers, %d contended slots, %s", *workers, *slotSpread, *duration)

	for i := 0; i < *workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))

			for rootCtx.Err() == nil {
				doctor := doctors[rng.Intn(len(doctors))]
				slot := slots[rng.Intn(*slotSpread)]

				start := time.Now()
				_, err := svc.Book(rootCtx, booking.BookingRequest{
					DoctorID:        doctor.ID,
					Date:            targetDate,
					Slot:            slot,
					PatientName:     gofakeit.Name(),
					PatientPhone:    "+79" + gofakeit.DigitN(9),
					RequesterID:     int64(1_000_000 + workerID),
					RequesterHandle: gofakeit.Username(),
				})
				if rootCtx.Err() != nil {
					return
				}
				m.record(time.Since(start), err)
			}
		}(i)
	}

	wg.Wait()

	avg, p50, p95 := m.stats()
	fmt.Printf("\nresults:\n")
	fmt.Printf("  total:     %d\n", m.total)
	fmt.Printf("  success:   %d\n", m.success)
	fmt.Printf("  conflicts: %d\n", m.conflict)
	fmt.Printf("  errors:    %d\n", m.errored)
	fmt.Printf("  latency:   avg=%s p50=%s p95=%s\n", avg, p50, p95)

	// Every contended slot can be won once at most.
	maxWins := int64(len(doctors) * *slotSpread)
	if m.success > maxWins {
		fmt.Printf("\nFAIL: %d successes exceed the %d distinct slots\n", m.success, maxWins)
		os.Exit(1)
	}
	fmt.Printf("\nOK: %d successes within the %d distinct slot bound\n", m.success, maxWins)
}
