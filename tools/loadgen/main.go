// Command loadgen floods a running crosslisting engine with enqueue traffic
// and mixes in reads against the identifiers it has created so far. Harvested
// job and listing IDs live in a bounded parameter pool; eviction keeps memory
// flat on long runs while GetRandom keeps the read mix realistic.
package main

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/CarsonReik/Compr-sub000/tools/loadgen/internal/pool"
)

var platforms = []string{"poshmark", "mercari", "depop"}

type options struct {
	baseURL  string
	workers  int
	duration time.Duration
	interval time.Duration
	users    int
	readBias int // percent of requests that are reads
}

type counters struct {
	enqueued   atomic.Int64
	duplicates atomic.Int64
	reads      atomic.Int64
	errors     atomic.Int64
}

func main() {
	opts := options{}
	flag.StringVar(&opts.baseURL, "url", "http://localhost:8080", "engine base URL")
	flag.IntVar(&opts.workers, "workers", 4, "concurrent request workers")
	flag.DurationVar(&opts.duration, "duration", time.Minute, "how long to run")
	flag.DurationVar(&opts.interval, "interval", 50*time.Millisecond, "delay between requests per worker")
	flag.IntVar(&opts.users, "users", 10, "distinct seller identities to spread jobs across")
	flag.IntVar(&opts.readBias, "read-bias", 60, "percent of requests that read instead of enqueue")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	ctx, timeout := context.WithTimeout(ctx, opts.duration)
	defer timeout()

	cfg := pool.DefaultPoolConfig()
	cfg.MaxValuesPerType = 10000
	ids := pool.NewShardedParameterPool(cfg)
	defer ids.Close()

	users := make([]string, opts.users)
	for i := range users {
		users[i] = randomUUID()
	}

	client := &http.Client{Timeout: 10 * time.Second}
	stats := &counters{}

	var wg sync.WaitGroup
	for w := 0; w < opts.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runWorker(ctx, client, opts, users, ids, stats)
		}()
	}
	wg.Wait()

	poolStats, _ := ids.Stats(context.Background())
	fmt.Printf("enqueued=%d duplicates=%d reads=%d errors=%d pooled=%d hit_rate=%.1f%%\n",
		stats.enqueued.Load(), stats.duplicates.Load(), stats.reads.Load(),
		stats.errors.Load(), poolStats.TotalValues, poolStats.HitRate())
	if stats.errors.Load() > 0 {
		os.Exit(1)
	}
}

func runWorker(ctx context.Context, client *http.Client, opts options, users []string, ids pool.ParameterPool, stats *counters) {
	ticker := time.NewTicker(opts.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if randomInt(100) < opts.readBias {
			readOne(ctx, client, opts.baseURL, users, ids, stats)
		} else {
			enqueueOne(ctx, client, opts.baseURL, users, ids, stats)
		}
	}
}

func enqueueOne(ctx context.Context, client *http.Client, baseURL string, users []string, ids pool.ParameterPool, stats *counters) {
	userID := users[randomInt(len(users))]
	listingID := randomUUID()
	payload := map[string]any{
		"userId":    userID,
		"listingId": listingID,
		"platform":  platforms[randomInt(len(platforms))],
		"operation": "create",
		"normalizedListingData": map[string]any{
			"title":     fmt.Sprintf("Load test listing %s", listingID[:8]),
			"price":     fmt.Sprintf("%d.00", 5+randomInt(95)),
			"quantity":  1,
			"condition": "good",
			"images": []map[string]string{
				{"url": "https://cdn.example.com/loadgen.jpg", "filename": "loadgen.jpg"},
			},
		},
		"encryptedCredentials": "bG9hZGdlbi1ibG9i",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("marshal: %v", err)
		stats.errors.Add(1)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/api/v1/jobs", bytes.NewReader(body))
	if err != nil {
		stats.errors.Add(1)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", userID)

	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() == nil {
			log.Printf("enqueue: %v", err)
			stats.errors.Add(1)
		}
		return
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusCreated:
		stats.enqueued.Add(1)
	case http.StatusConflict:
		stats.duplicates.Add(1)
		return
	default:
		log.Printf("enqueue: unexpected status %d", resp.StatusCode)
		stats.errors.Add(1)
		return
	}

	var envelope struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil || envelope.Data.ID == "" {
		return
	}

	jobValue := pool.NewParameterValue(envelope.Data.ID, pool.SemanticTypeJobID, time.Hour).
		WithSource("POST /jobs", "$.data.id")
	_, _ = ids.Add(ctx, jobValue)

	listingValue := pool.NewParameterValue(listingID, pool.SemanticTypeListingID, time.Hour).
		WithSource("POST /jobs", "$.data.listingId")
	_, _ = ids.Add(ctx, listingValue)

	userValue := pool.NewParameterValue(userID, pool.SemanticTypeUserID, 0)
	_, _ = ids.Add(ctx, userValue)
}

func readOne(ctx context.Context, client *http.Client, baseURL string, users []string, ids pool.ParameterPool, stats *counters) {
	var path string
	switch randomInt(3) {
	case 0:
		v, _ := ids.GetRandom(ctx, pool.SemanticTypeJobID)
		if v == nil {
			path = "/api/v1/jobs/stats"
		} else {
			path = "/api/v1/jobs/" + v.Value.(string)
		}
	case 1:
		v, _ := ids.GetRandom(ctx, pool.SemanticTypeListingID)
		if v == nil {
			path = "/api/v1/platforms"
		} else {
			path = "/api/v1/listings/" + v.Value.(string) + "/jobs"
		}
	default:
		path = "/api/v1/jobs/stats"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+path, nil)
	if err != nil {
		stats.errors.Add(1)
		return
	}
	req.Header.Set("X-User-ID", users[randomInt(len(users))])

	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() == nil {
			log.Printf("read %s: %v", path, err)
			stats.errors.Add(1)
		}
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		log.Printf("read %s: status %d", path, resp.StatusCode)
		stats.errors.Add(1)
		return
	}
	stats.reads.Add(1)
}

// randomInt returns a uniform value in [0, n) from crypto/rand; load shape
// should not depend on a seeded PRNG shared across goroutines
func randomInt(n int) int {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0
	}
	return int(v.Int64())
}

func randomUUID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	b[6] = (b[6] & 0x0f) | 0x40
	b[8] = (b[8] & 0x3f) | 0x80
	return fmt.Sprintf("%x-%x-%x-%x-%x", b[0:4], b[4:6], b[6:8], b[8:10], b[10:16])
}
