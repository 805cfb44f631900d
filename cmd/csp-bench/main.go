// Command csp-bench is a small throughput micro-benchmark for a Chan: N
// producer goroutines BPut a fixed number of values each onto a buffered
// (or rendezvous, with -buffer=0) Chan, while a single consumer BGets until
// the producers close it, reporting elapsed time and effective op rate.
package main

import (
	"flag"
	"fmt"
	"os"
	"sync"
	"time"

	csp "github.com/joeycumines/go-csp"

	_ "go.uber.org/automaxprocs"
)

func main() {
	var (
		producers   = flag.Int("producers", 4, "number of concurrent producer goroutines")
		perProducer = flag.Int("n", 100000, "values each producer puts")
		bufSize     = flag.Int("buffer", 256, "fixed buffer capacity; 0 for a rendezvous channel")
	)
	flag.Parse()

	if err := run(*producers, *perProducer, *bufSize); err != nil {
		fmt.Fprintln(os.Stderr, "csp-bench:", err)
		os.Exit(1)
	}
}

func run(producers, perProducer, bufSize int) error {
	if producers <= 0 || perProducer <= 0 {
		return fmt.Errorf("producers and n must be positive")
	}

	var opts []csp.ChanOption
	if bufSize > 0 {
		opts = append(opts, csp.WithBuffer(csp.NewFixedBuffer(bufSize)))
	}
	ch := csp.NewChan(opts...)

	total := producers * perProducer
	start := time.Now()

	var wg sync.WaitGroup
	wg.Add(producers)
	for p := 0; p < producers; p++ {
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				ch.BPut(i)
			}
		}()
	}
	go func() {
		wg.Wait()
		ch.Close()
	}()

	var received int
	for {
		_, ok := ch.BGet()
		if !ok {
			break
		}
		received++
	}

	elapsed := time.Since(start)
	rate := float64(received) / elapsed.Seconds()
	fmt.Printf("producers=%d n=%d buffer=%d received=%d elapsed=%s rate=%.0f ops/s\n",
		producers, perProducer, bufSize, received, elapsed, rate)

	if received != total {
		return fmt.Errorf("received %d values, want %d", received, total)
	}
	return nil
}
