package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/careline/medical-scheduling/internal/config"
	"github.com/careline/medical-scheduling/internal/db"
)

// The simulator hammers one calendar slot from many workers at once and
// verifies that exactly one booking wins, both at the HTTP layer and in
// Postgres.

type SimConfig struct {
	APIBaseURL  string
	Workers     int
	Date        string
	Time        string
	PostgresDSN string
}

type OperationMetrics struct {
	Total    int64
	Created  int64
	Conflict int64
	Error    int64

	mu        sync.Mutex
	Latencies []time.Duration
}

func (om *OperationMetrics) Record(latency time.Duration, status int) {
	atomic.AddInt64(&om.Total, 1)
	switch {
	case status == http.StatusCreated:
		atomic.AddInt64(&om.Created, 1)
	case status == http.StatusConflict:
		atomic.AddInt64(&om.Conflict, 1)
	default:
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.Latencies = append(om.Latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, min, max, p95 time.Duration) {
	om.mu.Lock()
	defer om.mu.Unlock()

	if len(om.Latencies) == 0 {
		return 0, 0, 0, 0
	}

	latencies := make([]time.Duration, len(om.Latencies))
	copy(latencies, om.Latencies)
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}

	avg = sum / time.Duration(len(latencies))
	min = latencies[0]
	max = latencies[len(latencies)-1]

	p95Idx := len(latencies) * 95 / 100
	if p95Idx >= len(latencies) {
		p95Idx = len(latencies) - 1
	}
	p95 = latencies[p95Idx]

	return avg, min, max, p95
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("simulator starting")

	cfg := loadConfig()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pgPool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pgPool.Close()

	doctorID, err := pickDoctor(ctx, pgPool)
	if err != nil {
		log.Fatalf("pick doctor: %v", err)
	}
	log.Printf("target doctor=%s date=%s time=%s workers=%d", doctorID, cfg.Date, cfg.Time, cfg.Workers)

	client := &http.Client{Timeout: 10 * time.Second}
	var metrics OperationMetrics

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			<-start
			bookOnce(ctx, client, cfg, doctorID, workerID, &metrics)
		}(i)
	}
	close(start)
	wg.Wait()

	printReport(&metrics)

	booked, err := countBooked(ctx, pgPool, doctorID, cfg.Date, cfg.Time)
	if err != nil {
		log.Fatalf("verify bookings: %v", err)
	}

	created := atomic.LoadInt64(&metrics.Created)
	fmt.Printf("HTTP 201 responses: %d\n", created)
	fmt.Printf("Active rows in Postgres for the slot: %d\n", booked)

	if created != 1 || booked != 1 {
		log.Fatalf("INVARIANT VIOLATED: expected exactly one winner, got created=%d booked=%d", created, booked)
	}
	log.Println("invariant holds: exactly one booking won the slot")
}

func loadConfig() SimConfig {
	baseCfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load base config: %v", err)
	}

	tomorrow := time.Now().AddDate(0, 0, 1)
	// Saturday and Sunday are outside every seeded schedule.
	for tomorrow.Weekday() == time.Saturday || tomorrow.Weekday() == time.Sunday {
		tomorrow = tomorrow.AddDate(0, 0, 1)
	}

	return SimConfig{
		APIBaseURL:  getEnv("SIM_API_BASE_URL", "http://localhost:8080"),
		Workers:     getInt("SIM_WORKERS", 20),
		Date:        getEnv("SIM_DATE", tomorrow.Format("2006-01-02")),
		Time:        getEnv("SIM_TIME", "10:00"),
		PostgresDSN: baseCfg.PostgresDSN,
	}
}

func pickDoctor(ctx context.Context, pool *pgxpool.Pool) (uuid.UUID, error) {
	var id uuid.UUID
	err := pool.QueryRow(ctx, `SELECT id FROM doctors ORDER BY last_name, first_name LIMIT 1`).Scan(&id)
	return id, err
}

func bookOnce(ctx context.Context, client *http.Client, cfg SimConfig, doctorID uuid.UUID, workerID int, metrics *OperationMetrics) {
	reqBody := map[string]any{
		"doctor_id": doctorID.String(),
		"date":      cfg.Date,
		"time":      cfg.Time,
		"patient": map[string]string{
			"first_name":         "Sim",
			"last_name":          fmt.Sprintf("Worker%02d", workerID),
			"email":              fmt.Sprintf("sim.worker%02d@careline.example", workerID),
			"insurance_provider": "SimCare",
		},
	}
	body, _ := json.Marshal(reqBody)

	start := time.Now()
	req, _ := http.NewRequestWithContext(ctx, "POST", cfg.APIBaseURL+"/appointments", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	latency := time.Since(start)

	if err != nil {
		metrics.Record(latency, 0)
		log.Printf("worker=%d request error: %v", workerID, err)
		return
	}
	defer resp.Body.Close()

	metrics.Record(latency, resp.StatusCode)
}

func countBooked(ctx context.Context, pool *pgxpool.Pool, doctorID uuid.UUID, date, timeStr string) (int64, error) {
	var n int64
	err := pool.QueryRow(ctx, `
		SELECT count(*) FROM appointments
		WHERE doctor_id = $1 AND date = $2 AND time = $3 AND status <> 'cancelled'
	`, doctorID, date, timeStr).Scan(&n)
	return n, err
}

func printReport(om *OperationMetrics) {
	total := atomic.LoadInt64(&om.Total)
	if total == 0 {
		return
	}

	created := atomic.LoadInt64(&om.Created)
	conflict := atomic.LoadInt64(&om.Conflict)
	errs := atomic.LoadInt64(&om.Error)
	avg, min, max, p95 := om.Stats()

	fmt.Println("\nSIMULATION REPORT")
	fmt.Printf("  Total: %d\n", total)
	fmt.Printf("  Created: %d (%.1f%%)\n", created, float64(created)/float64(total)*100)
	fmt.Printf("  Conflicts: %d (%.1f%%)\n", conflict, float64(conflict)/float64(total)*100)
	if errs > 0 {
		fmt.Printf("  Errors: %d (%.1f%%)\n", errs, float64(errs)/float64(total)*100)
	}
	fmt.Printf("  Latency: avg=%s min=%s max=%s p95=%s\n",
		avg.Round(time.Millisecond), min.Round(time.Millisecond),
		max.Round(time.Millisecond), p95.Round(time.Millisecond))
	fmt.Println()
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
