package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/hospitalms/scheduling/internal/appointment"
	"github.com/hospitalms/scheduling/internal/config"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}
	if cfg.StorageBackend != config.BackendFile {
		log.Fatalf("seed only supports the file backend, got %s", cfg.StorageBackend)
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		log.Fatalf("create data dir %s: %v", cfg.DataDir, err)
	}

	gofakeit.Seed(time.Now().UnixNano())

	doctorCount := getInt("SEED_DOCTORS", 10)
	patientCount := getInt("SEED_PATIENTS", 50)
	apptCount := getInt("SEED_APPOINTMENTS", 120)

	doctors, err := seedDoctors(cfg.DoctorsFile, doctorCount)
	if err != nil {
		log.Fatalf("seed doctors: %v", err)
	}
	patients, err := seedPatients(cfg.PatientsFile, patientCount)
	if err != nil {
		log.Fatalf("seed patients: %v", err)
	}
	if err := seedAppointments(cfg, doctors, patients, apptCount); err != nil {
		log.Fatalf("seed appointments: %v", err)
	}

	log.Println("seed complete")
}

var specialties = []string{
	"Dermatology",
	"Cardiology",
	"General Practice",
	"Orthopedics",
	"Endocrinology",
	"Neurology",
	"Pediatrics",
	"Psychiatry",
	"Ophthalmology",
	"ENT",
}

func seedDoctors(path string, count int) ([]string, error) {
	log.Printf("seeding %d doctors into %s", count, path)

	ids := make([]string, 0, count)
	var b strings.Builder
	for i := 1; i <= count; i++ {
		id := fmt.Sprintf("D%03d", i)
		fee := float64(gofakeit.Number(40, 250))
		fmt.Fprintf(&b, "%s|Dr. %s %s|%s|%.2f\n",
			id, gofakeit.FirstName(), gofakeit.LastName(),
			specialties[i%len(specialties)], fee)
		ids = append(ids, id)
	}
	return ids, os.WriteFile(path, []byte(b.String()), 0o644)
}

func seedPatients(path string, count int) ([]string, error) {
	log.Printf("seeding %d patients into %s", count, path)

	usernames := make([]string, 0, count)
	var b strings.Builder
	for i := 1; i <= count; i++ {
		username := fmt.Sprintf("%s%d", strings.ToLower(gofakeit.FirstName()), gofakeit.Number(10, 999))
		fmt.Fprintf(&b, "%s|%s %s|%s\n",
			username, gofakeit.FirstName(), gofakeit.LastName(), gofakeit.Phone())
		usernames = append(usernames, username)
	}
	return usernames, os.WriteFile(path, []byte(b.String()), 0o644)
}

// seedAppointments books random future slots straight through the repository
// so the no-double-booking rule shapes the data the same way live traffic
// would.
func seedAppointments(cfg config.Config, doctors, patients []string, count int) error {
	log.Printf("seeding up to %d appointments into %s", count, cfg.AppointmentsFile)

	repo := appointment.NewFileRepository(cfg.AppointmentsFile)
	slots := appointment.StandardSlots(cfg.WorkStartHour, cfg.WorkEndHour)
	ctx := context.Background()

	booked := 0
	for i := 0; i < count; i++ {
		doctor := doctors[rand.Intn(len(doctors))]
		patient := patients[rand.Intn(len(patients))]
		date := time.Now().AddDate(0, 0, 1+rand.Intn(14)).Format(appointment.DateLayout)
		slot := slots[rand.Intn(len(slots))]

		free, err := repo.IsSlotAvailable(ctx, doctor, date, slot, "")
		if err != nil {
			return err
		}
		if !free {
			continue
		}

		id, err := repo.NextID(ctx)
		if err != nil {
			return err
		}
		appt := &appointment.Appointment{
			ID:         id,
			PatientRef: patient,
			DoctorRef:  doctor,
			Date:       date,
			Time:       slot,
			Reason:     gofakeit.Sentence(),
			Price:      float64(gofakeit.Number(40, 250)),
			Status:     appointment.StatusScheduled,
		}
		if err := repo.Add(ctx, appt); err != nil {
			return err
		}
		booked++
	}

	log.Printf("booked %d appointments (%d collided with taken slots)", booked, count-booked)
	return nil
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil {
			return n
		}
	}
	return def
}
