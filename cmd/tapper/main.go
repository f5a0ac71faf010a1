// Package main is a websocket load generator: N clients tapping, buying and
// claiming the bonus against a running beer-server.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gorilla/websocket"

	"github.com/MRamiBalles/BeerClicker/server/internal/domain/upgrade"
	"github.com/MRamiBalles/BeerClicker/server/internal/network"
)

type Config struct {
	ServerURL      string
	NumClients     int
	ActionInterval time.Duration
	TestDuration   time.Duration
	Output         string
}

// Stats is shared by every client goroutine.
type Stats struct {
	MessagesSent     int64
	MessagesReceived int64
	Errors           int64

	mu        sync.Mutex
	frames    map[string]int64
	rejected  map[string]int64
	latencies []time.Duration
}

// inbound is a server frame with its data left undecoded.
type inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func (s *Stats) frame(f inbound) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames[f.Type]++
	if f.Type != network.FrameError {
		return
	}
	var data network.ErrorData
	if err := json.Unmarshal(f.Data, &data); err == nil {
		s.rejected[data.Code]++
	}
}

func main() {
	serverURL := flag.String("url", "ws://localhost:8080/ws", "WebSocket server URL")
	numClients := flag.Int("clients", 20, "Number of concurrent clients")
	interval := flag.Duration("interval", 100*time.Millisecond, "Action interval per client")
	duration := flag.Duration("duration", 30*time.Second, "Test duration")
	output := flag.String("output", "tapper_results.json", "Where to write the JSON results")
	flag.Parse()

	cfg := Config{
		ServerURL:      *serverURL,
		NumClients:     *numClients,
		ActionInterval: *interval,
		TestDuration:   *duration,
		Output:         *output,
	}

	fmt.Println("=========================================")
	fmt.Println("TAPPER - Beer Clicker load generator")
	fmt.Println("=========================================")
	fmt.Printf("Server:   %s\n", cfg.ServerURL)
	fmt.Printf("Clients:  %d\n", cfg.NumClients)
	fmt.Printf("Interval: %v\n", cfg.ActionInterval)
	fmt.Printf("Duration: %v\n", cfg.TestDuration)
	fmt.Println("=========================================")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.TestDuration)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	go func() {
		<-sigChan
		fmt.Println("\nInterrupt received, stopping...")
		cancel()
	}()

	started := time.Now()
	stats := run(ctx, cfg)
	printResults(stats, cfg, time.Since(started))
}

func run(ctx context.Context, cfg Config) *Stats {
	stats := &Stats{
		frames:    make(map[string]int64),
		rejected:  make(map[string]int64),
		latencies: make([]time.Duration, 0, 10000),
	}

	var wg sync.WaitGroup
	for i := 0; i < cfg.NumClients; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			runClient(ctx, id, cfg, stats)
		}(i)
		// Stagger connects.
		time.Sleep(10 * time.Millisecond)
	}
	fmt.Printf("All %d clients started\n\n", cfg.NumClients)

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fmt.Printf("Progress: sent=%d recv=%d errors=%d\n",
					atomic.LoadInt64(&stats.MessagesSent),
					atomic.LoadInt64(&stats.MessagesReceived),
					atomic.LoadInt64(&stats.Errors))
			}
		}
	}()

	wg.Wait()
	return stats
}

func runClient(ctx context.Context, id int, cfg Config, stats *Stats) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, cfg.ServerURL, nil)
	if err != nil {
		log.Printf("client %d: connection failed: %v", id, err)
		atomic.AddInt64(&stats.Errors, 1)
		return
	}
	defer conn.Close()

	go func() {
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			atomic.AddInt64(&stats.MessagesReceived, 1)
			var f inbound
			if json.Unmarshal(msg, &f) == nil {
				stats.frame(f)
			}
		}
	}()

	ticker := time.NewTicker(cfg.ActionInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case <-ticker.C:
			start := time.Now()
			if err := conn.WriteJSON(randomAction()); err != nil {
				atomic.AddInt64(&stats.Errors, 1)
				return
			}
			atomic.AddInt64(&stats.MessagesSent, 1)

			stats.mu.Lock()
			stats.latencies = append(stats.latencies, time.Since(start))
			stats.mu.Unlock()
		}
	}
}

// randomAction is mostly clicks, with the odd purchase and bonus claim.
func randomAction() map[string]interface{} {
	r := rand.Intn(100)
	switch {
	case r < 80:
		return map[string]interface{}{"type": network.ActionClick}
	case r < 95:
		catalog := upgrade.Catalog()
		return map[string]interface{}{
			"type":    network.ActionBuy,
			"payload": map[string]string{"upgrade_id": catalog[rand.Intn(len(catalog))].ID},
		}
	default:
		return map[string]interface{}{"type": network.ActionClaimBonus}
	}
}

func printResults(stats *Stats, cfg Config, elapsed time.Duration) {
	fmt.Println("\n=========================================")
	fmt.Println("TAPPER RESULTS")
	fmt.Println("=========================================")

	sent := atomic.LoadInt64(&stats.MessagesSent)
	recv := atomic.LoadInt64(&stats.MessagesReceived)
	errs := atomic.LoadInt64(&stats.Errors)
	throughput := float64(sent) / elapsed.Seconds()

	fmt.Printf("Messages sent:     %s\n", humanize.Comma(sent))
	fmt.Printf("Messages received: %s\n", humanize.Comma(recv))
	fmt.Printf("Errors:            %d\n", errs)
	fmt.Printf("Throughput:        %.2f msg/sec\n", throughput)

	stats.mu.Lock()
	defer stats.mu.Unlock()

	fmt.Println("\nFrames by type:")
	for _, k := range sortedKeys(stats.frames) {
		fmt.Printf("  %-14s %s\n", k, humanize.Comma(stats.frames[k]))
	}
	if len(stats.rejected) > 0 {
		fmt.Println("\nRejections by code:")
		for _, k := range sortedKeys(stats.rejected) {
			fmt.Printf("  %-20s %s\n", k, humanize.Comma(stats.rejected[k]))
		}
	}

	var minL, maxL, avgL time.Duration
	if n := len(stats.latencies); n > 0 {
		var total time.Duration
		minL, maxL = stats.latencies[0], stats.latencies[0]
		for _, l := range stats.latencies {
			total += l
			if l < minL {
				minL = l
			}
			if l > maxL {
				maxL = l
			}
		}
		avgL = total / time.Duration(n)
		fmt.Printf("\nWrite latency: min %v  avg %v  max %v\n", minL, avgL, maxL)
	}

	fmt.Println("\n-----------------------------------------")
	switch {
	case errs == 0:
		fmt.Println("PASSED: no connection errors")
	case float64(errs)/float64(sent+1) < 0.05:
		fmt.Println("WARNING: some connection errors")
	default:
		fmt.Println("FAILED: high error rate")
	}
	fmt.Println("=========================================")

	results := map[string]interface{}{
		"messages_sent":      sent,
		"messages_received":  recv,
		"errors":             errs,
		"throughput_per_sec": throughput,
		"frames":             stats.frames,
		"rejected":           stats.rejected,
		"latency_ms": map[string]float64{
			"min": float64(minL) / float64(time.Millisecond),
			"avg": float64(avgL) / float64(time.Millisecond),
			"max": float64(maxL) / float64(time.Millisecond),
		},
		"config": map[string]interface{}{
			"clients":  cfg.NumClients,
			"interval": cfg.ActionInterval.String(),
			"duration": cfg.TestDuration.String(),
		},
	}
	data, _ := json.MarshalIndent(results, "", "  ")
	if err := os.WriteFile(cfg.Output, data, 0o644); err != nil {
		fmt.Printf("failed to write %s: %v\n", cfg.Output, err)
		return
	}
	fmt.Printf("\nResults saved to %s\n", cfg.Output)
}

func sortedKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
