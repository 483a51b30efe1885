package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/pflag"

	"github.com/Avi007-debug/chyrp-rebuild-clonefest/internal/api"
)

// Reads feed pages and single posts from a running API and reports the
// latency distribution.
func main() {
	// --- Command-line flags ---
	server := pflag.String("server", "http://localhost:5000", "API base URL")
	duration := pflag.Int("duration", 30, "duration in seconds")
	concurrency := pflag.IntP("concurrency", "c", 50, "number of concurrent readers")
	csvFile := pflag.String("csv", "latencies.csv", "CSV file to save latencies")
	trimPercent := pflag.Float64("trim", 1.0, "percent of latency to trim from top and bottom for trimmed mean")
	pages := pflag.Int("pages", 3, "feed pages each reader walks before opening posts")
	pflag.Parse()

	client := api.NewClient(*server, 10*time.Second, nil)

	stopTime := time.Now().Add(time.Duration(*duration) * time.Second)
	var wg sync.WaitGroup

	var requests, successes, errors4xx, errors5xx, transport int64
	count := func(err error) {
		atomic.AddInt64(&requests, 1)
		var apiErr *api.Error
		switch {
		case err == nil:
			atomic.AddInt64(&successes, 1)
		case errors.As(err, &apiErr) && apiErr.Status >= 500:
			atomic.AddInt64(&errors5xx, 1)
		case errors.As(err, &apiErr), errors.Is(err, api.ErrUnauthorized):
			atomic.AddInt64(&errors4xx, 1)
		default:
			atomic.AddInt64(&transport, 1)
		}
	}

	latencySlices := make([][]float64, *concurrency)

	// --- Start concurrent readers ---
	for i := 0; i < *concurrency; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			ctx := context.Background()
			var local []float64
			timed := func(f func() error) {
				start := time.Now()
				err := f()
				local = append(local, time.Since(start).Seconds()*1000)
				count(err)
			}

			for time.Now().Before(stopTime) {
				var ids []int64
				for p := 1; p <= *pages; p++ {
					var more bool
					timed(func() error {
						page, err := client.ListPosts(ctx, api.ListQuery{Page: p})
						if err != nil {
							return err
						}
						for _, post := range page.Posts {
							ids = append(ids, post.ID)
						}
						more = page.HasMore
						return nil
					})
					if !more {
						break
					}
				}
				for _, id := range ids {
					if !time.Now().Before(stopTime) {
						break
					}
					timed(func() error {
						_, err := client.GetPost(ctx, id)
						return err
					})
				}
				if len(ids) == 0 {
					time.Sleep(100 * time.Millisecond)
				}
			}
			latencySlices[idx] = local
		}(i)
	}

	wg.Wait()

	// --- Merge all latencies ---
	var allLatencies []float64
	for _, slice := range latencySlices {
		allLatencies = append(allLatencies, slice...)
	}
	sort.Float64s(allLatencies)

	fmt.Printf("Requests: %d  Successes: %d  4xx: %d  5xx: %d  network: %d\n",
		requests, successes, errors4xx, errors5xx, transport)
	fmt.Printf("Latency (ms): trimmed_mean=%.2f p50=%.2f p90=%.2f p99=%.2f\n",
		trimmedMean(allLatencies, *trimPercent),
		percentile(allLatencies, 50), percentile(allLatencies, 90), percentile(allLatencies, 99))

	// --- Save latencies to CSV ---
	f, err := os.Create(*csvFile)
	if err != nil {
		fmt.Printf("Failed to create CSV file: %v\n", err)
		return
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()
	w.Write([]string{"latency_ms"})
	for _, d := range allLatencies {
		w.Write([]string{fmt.Sprintf("%.3f", d)})
	}
	fmt.Printf("Saved latencies to %s\n", *csvFile)
}

// trimmedMean calculates mean latency after trimming top/bottom trimPercent values
func trimmedMean(data []float64, trimPercent float64) float64 {
	if len(data) == 0 {
		return 0
	}
	trim := int(float64(len(data)) * trimPercent / 100.0)
	if trim*2 >= len(data) {
		trim = len(data) / 2
	}
	trimmed := data[trim : len(data)-trim]
	if len(trimmed) == 0 {
		return 0
	}
	var sum float64
	for _, v := range trimmed {
		sum += v
	}
	return sum / float64(len(trimmed))
}

// percentile returns the p-th percentile of sorted data.
func percentile(data []float64, p float64) float64 {
	if len(data) == 0 {
		return 0
	}
	idx := int(float64(len(data)-1) * p / 100.0)
	return data[idx]
}
