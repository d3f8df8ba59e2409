package main

import (
	"flag"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"go.uber.org/atomic"
)

const numWorkers = 50

var (
	baseURL      = flag.String("url", "http://127.0.0.1:8080", "archivist base url")
	testDuration = flag.Duration("duration", 10*time.Second, "duration of each phase")
)

var httpClient = &http.Client{
	Timeout: 5 * time.Second,
	Transport: &http.Transport{
		MaxIdleConns:        200,
		MaxIdleConnsPerHost: 200,
		IdleConnTimeout:     30 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   2 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	},
}

type version struct {
	ID           string `json:"id"`
	ServiceID    string `json:"service_id"`
	DocumentType string `json:"document_type"`
}

type result struct {
	endpoint string
	status   int
	latency  time.Duration
	err      bool
}

type stats struct {
	count     int64
	errors    int64
	latencies []time.Duration
}

func main() {
	flag.Parse()

	fmt.Println("=== Archivist Load Test ===")
	fmt.Printf("Workers: %d | Duration: %s | Target: %s\n\n", numWorkers, *testDuration, *baseURL)

	fmt.Print("Waiting for server... ")
	for i := 0; i < 30; i++ {
		resp, err := httpClient.Get(*baseURL + "/health")
		if err == nil {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			break
		}
		if i == 29 {
			fmt.Println("FAILED: server not responding")
			return
		}
		time.Sleep(200 * time.Millisecond)
	}
	fmt.Println("OK")

	versions, err := listVersions()
	if err != nil {
		fmt.Printf("FAILED: %s\n", err)
		return
	}
	if len(versions) == 0 {
		fmt.Println("FAILED: no versions recorded yet, run `archivist track` first")
		return
	}
	fmt.Printf("Versions: %d\n", len(versions))

	// Cold reads go through the version cache once per id.
	fmt.Println("\n--- Phase 1: Version reads (GET /versions/{id}) ---")
	runPhase(*testDuration, func(rng *rand.Rand) result {
		return doGetVersion(versions[rng.Intn(len(versions))])
	})

	fmt.Println("\n--- Phase 2: Mixed reads ---")
	runPhase(*testDuration, func(rng *rand.Rand) result {
		v := versions[rng.Intn(len(versions))]
		r := rng.Float64()
		switch {
		case r < 0.40:
			return doGetVersion(v)
		case r < 0.60:
			return doGetContent(v)
		case r < 0.85:
			return doGetLatest(v)
		case r < 0.95:
			return doGet("GET /count", "/count")
		default:
			return doGet("GET /versions", "/versions")
		}
	})
}

func listVersions() ([]version, error) {
	resp, err := httpClient.Get(*baseURL + "/versions")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET /versions: status %d", resp.StatusCode)
	}

	var versions []version
	if err := json.NewDecoder(resp.Body).Decode(&versions); err != nil {
		return nil, err
	}
	return versions, nil
}

func runPhase(duration time.Duration, workFn func(rng *rand.Rand) result) {
	results := make(chan result, 10000)
	var wg sync.WaitGroup
	var totalOps atomic.Int64
	stop := make(chan struct{})

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for {
				select {
				case <-stop:
					return
				default:
					r := workFn(rng)
					totalOps.Inc()
					results <- r
				}
			}
		}(rand.Int63() + int64(i))
	}

	allResults := make(map[string]*stats)
	done := make(chan struct{})
	go func() {
		for r := range results {
			s, ok := allResults[r.endpoint]
			if !ok {
				s = &stats{}
				allResults[r.endpoint] = s
			}
			s.count++
			if r.err {
				s.errors++
			}
			s.latencies = append(s.latencies, r.latency)
		}
		close(done)
	}()

	time.Sleep(duration)
	close(stop)
	wg.Wait()
	close(results)
	<-done

	printResults(allResults, duration, totalOps.Load())
}

func printResults(allResults map[string]*stats, duration time.Duration, totalOps int64) {
	var totalErrors int64

	endpoints := make([]string, 0, len(allResults))
	for ep := range allResults {
		endpoints = append(endpoints, ep)
	}
	sort.Strings(endpoints)

	fmt.Printf("\n  %-28s %8s %6s %10s %10s %10s %10s\n",
		"Endpoint", "Reqs", "Errs", "Avg", "P50", "P95", "P99")
	fmt.Println("  " + strings.Repeat("-", 94))

	for _, ep := range endpoints {
		s := allResults[ep]
		totalErrors += s.errors

		sort.Slice(s.latencies, func(i, j int) bool {
			return s.latencies[i] < s.latencies[j]
		})

		fmt.Printf("  %-28s %8d %6d %10s %10s %10s %10s\n",
			ep, s.count, s.errors,
			fmtDur(avgDuration(s.latencies)),
			fmtDur(percentile(s.latencies, 0.50)),
			fmtDur(percentile(s.latencies, 0.95)),
			fmtDur(percentile(s.latencies, 0.99)))
	}

	if totalOps == 0 {
		return
	}
	rps := float64(totalOps) / duration.Seconds()
	fmt.Println("  " + strings.Repeat("-", 94))
	fmt.Printf("  Total: %d reqs | Errors: %d (%.1f%%) | RPS: %.0f\n",
		totalOps, totalErrors, float64(totalErrors)/float64(totalOps)*100, rps)
}

func doGetVersion(v version) result {
	return doGet("GET /versions/{id}", "/versions/"+v.ID)
}

func doGetContent(v version) result {
	return doGet("GET /versions/{id}/content", "/versions/"+v.ID+"/content")
}

func doGetLatest(v version) result {
	q := url.Values{"service": {v.ServiceID}, "type": {v.DocumentType}}
	return doGet("GET /latest", "/latest?"+q.Encode())
}

func doGet(endpoint, path string) result {
	start := time.Now()
	resp, err := httpClient.Get(*baseURL + path)
	lat := time.Since(start)
	if err != nil {
		return result{endpoint, 0, lat, true}
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return result{endpoint, resp.StatusCode, lat, resp.StatusCode != http.StatusOK}
}

func avgDuration(d []time.Duration) time.Duration {
	if len(d) == 0 {
		return 0
	}
	var sum time.Duration
	for _, v := range d {
		sum += v
	}
	return sum / time.Duration(len(d))
}

func percentile(d []time.Duration, p float64) time.Duration {
	if len(d) == 0 {
		return 0
	}
	idx := int(float64(len(d)) * p)
	if idx >= len(d) {
		idx = len(d) - 1
	}
	return d[idx]
}

func fmtDur(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%dµs", d.Microseconds())
	}
	return fmt.Sprintf("%.1fms", float64(d.Microseconds())/1000.0)
}
