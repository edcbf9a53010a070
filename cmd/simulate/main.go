// simulate hammers the scheduling service with concurrent booking attempts
// and verifies that no slot ever ends up with two scheduled appointments.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"os"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/hospitalms/scheduling/internal/appointment"
	"github.com/hospitalms/scheduling/internal/lock"
)

type SimConfig struct {
	Workers      int
	Attempts     int
	Doctors      int
	Days         int
	StartHour    int
	EndHour      int
	DataDir      string
	KeepDataFile bool
}

func loadSimConfig() SimConfig {
	return SimConfig{
		Workers:      getInt("SIM_WORKERS", 16),
		Attempts:     getInt("SIM_ATTEMPTS", 2000),
		Doctors:      getInt("SIM_DOCTORS", 3),
		Days:         getInt("SIM_DAYS", 2),
		StartHour:    getInt("WORK_START_HOUR", 8),
		EndHour:      getInt("WORK_END_HOUR", 17),
		DataDir:      getEnv("SIM_DATA_DIR", ""),
		KeepDataFile: os.Getenv("SIM_KEEP_DATA") == "1",
	}
}

type OperationMetrics struct {
	Total     int64
	Success   int64
	Conflict  int64
	Error     int64
	mu        sync.Mutex
	latencies []time.Duration
}

func (om *OperationMetrics) Record(latency time.Duration, err error) {
	atomic.AddInt64(&om.Total, 1)
	switch {
	case err == nil:
		atomic.AddInt64(&om.Success, 1)
	case errors.Is(err, appointment.ErrSlotTaken), errors.Is(err, appointment.ErrSlotBeingBooked):
		atomic.AddInt64(&om.Conflict, 1)
	default:
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.latencies = append(om.latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, min, max, p50, p95 time.Duration) {
	om.mu.Lock()
	defer om.mu.Unlock()

	if len(om.latencies) == 0 {
		return 0, 0, 0, 0, 0
	}

	latencies := make([]time.Duration, len(om.latencies))
	copy(latencies, om.latencies)
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}

	avg = sum / time.Duration(len(latencies))
	min = latencies[0]
	max = latencies[len(latencies)-1]
	p50 = latencies[len(latencies)*50/100]
	p95 = latencies[min95(len(latencies))]
	return avg, min, max, p50, p95
}

func min95(n int) int {
	i := n * 95 / 100
	if i >= n {
		return n - 1
	}
	return i
}

// staticDirectory serves fixed patient and doctor sets so the harness does
// not depend on seeded files.
type staticDirectory struct {
	members map[string]bool
	fee     float64
}

func (d *staticDirectory) Exists(ctx context.Context, id string) (bool, error) {
	return d.members[id], nil
}

func (d *staticDirectory) ConsultationFee(ctx context.Context, id string) (float64, error) {
	if !d.members[id] {
		return 0, errors.New("doctor not found")
	}
	return d.fee, nil
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	cfg := loadSimConfig()

	dataDir := cfg.DataDir
	if dataDir == "" {
		var err error
		dataDir, err = os.MkdirTemp("", "scheduling-sim-*")
		if err != nil {
			log.Fatalf("create temp dir: %v", err)
		}
		if !cfg.KeepDataFile {
			defer os.RemoveAll(dataDir)
		}
	}
	dataFile := dataDir + "/appointments.txt"
	log.Printf("simulating workers=%d attempts=%d doctors=%d days=%d file=%s",
		cfg.Workers, cfg.Attempts, cfg.Doctors, cfg.Days, dataFile)

	gofakeit.Seed(time.Now().UnixNano())

	doctors := make([]string, cfg.Doctors)
	doctorSet := map[string]bool{}
	for i := range doctors {
		doctors[i] = fmt.Sprintf("D%03d", i+1)
		doctorSet[doctors[i]] = true
	}
	patients := make([]string, 40)
	patientSet := map[string]bool{}
	for i := range patients {
		patients[i] = fmt.Sprintf("patient%02d", i+1)
		patientSet[patients[i]] = true
	}

	repo := appointment.NewFileRepository(dataFile)
	svc := appointment.NewService(
		repo,
		&staticDirectory{members: patientSet},
		&staticDirectory{members: doctorSet, fee: 120},
		lock.NewMutexLocker(),
		cfg.StartHour, cfg.EndHour,
	)

	slots := appointment.StandardSlots(cfg.StartHour, cfg.EndHour)
	dates := make([]string, cfg.Days)
	for i := range dates {
		dates[i] = time.Now().AddDate(0, 0, i+1).Format(appointment.DateLayout)
	}

	var metrics OperationMetrics
	attempts := make(chan int)
	var wg sync.WaitGroup

	start := time.Now()
	for w := 0; w < cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rng := rand.New(rand.NewSource(time.Now().UnixNano() ^ int64(rand.Int())))
			for range attempts {
				doctor := doctors[rng.Intn(len(doctors))]
				patient := patients[rng.Intn(len(patients))]
				date := dates[rng.Intn(len(dates))]
				slot := slots[rng.Intn(len(slots))]

				t0 := time.Now()
				_, err := svc.Book(context.Background(), patient, doctor, date, slot, gofakeit.Sentence())
				metrics.Record(time.Since(t0), err)
			}
		}()
	}
	for i := 0; i < cfg.Attempts; i++ {
		attempts <- i
	}
	close(attempts)
	wg.Wait()
	elapsed := time.Since(start)

	duplicates, scheduled := verifyNoDoubleBooking(repo)
	printReport(cfg, &metrics, elapsed, scheduled, duplicates)

	if duplicates > 0 {
		os.Exit(1)
	}
}

// verifyNoDoubleBooking scans the final store for two scheduled appointments
// in the same (doctor, date, time) slot.
func verifyNoDoubleBooking(repo appointment.Repository) (duplicates, scheduled int) {
	appts, err := repo.GetAll(context.Background())
	if err != nil {
		log.Fatalf("read back store: %v", err)
	}

	seen := map[string]string{}
	for i := range appts {
		a := &appts[i]
		if a.Status != appointment.StatusScheduled {
			continue
		}
		scheduled++
		key := a.DoctorRef + "|" + a.Date + "|" + a.Time
		if other, ok := seen[key]; ok {
			log.Printf("DOUBLE BOOKING: %s and %s both hold %s", other, a.ID, key)
			duplicates++
			continue
		}
		seen[key] = a.ID
	}
	return duplicates, scheduled
}

func printReport(cfg SimConfig, om *OperationMetrics, elapsed time.Duration, scheduled, duplicates int) {
	total := atomic.LoadInt64(&om.Total)
	success := atomic.LoadInt64(&om.Success)
	conflict := atomic.LoadInt64(&om.Conflict)
	errCount := atomic.LoadInt64(&om.Error)
	avg, min, max, p50, p95 := om.Stats()

	fmt.Println("\n================ SIMULATION REPORT ================")
	fmt.Printf("Elapsed: %s  Workers: %d  Attempts: %d\n", elapsed.Round(time.Millisecond), cfg.Workers, total)
	fmt.Printf("Booked: %d (%.1f%%)\n", success, pct(success, total))
	fmt.Printf("Conflicts: %d (%.1f%%)\n", conflict, pct(conflict, total))
	if errCount > 0 {
		fmt.Printf("Errors: %d (%.1f%%)\n", errCount, pct(errCount, total))
	}
	fmt.Printf("Latency: avg=%s min=%s max=%s p50=%s p95=%s\n",
		avg.Round(time.Microsecond), min.Round(time.Microsecond), max.Round(time.Microsecond),
		p50.Round(time.Microsecond), p95.Round(time.Microsecond))
	fmt.Printf("Scheduled in store: %d  Double bookings: %d\n", scheduled, duplicates)
	if duplicates == 0 {
		fmt.Println("OK: no slot holds more than one scheduled appointment")
	}
}

func pct(part, total int64) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
