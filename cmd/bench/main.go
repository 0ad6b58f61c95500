// Bench is a benchmarking tool for measuring frozen table compile time,
// blob size, and lookup throughput, plus raw hash baselines.
//
// Usage:
//
//	go run ./cmd/bench -keys 1000000 -keysize 24 -variant both
//
// Flags:
//
//	-keys     Number of keys to compile (default: 1,000,000)
//	-keysize  Key length in bytes (default: 24)
//	-variant  Table variant: sorted, table, or both (default: both)
//	-lookups  Number of lookups per measurement (default: 5,000,000)
//	-readers  Parallel reader goroutines (default: GOMAXPROCS)
package main

import (
	"crypto/rand"
	"flag"
	"fmt"
	mrand "math/rand/v2"
	"os"
	"runtime"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/spaolacci/murmur3"
	"github.com/zeebo/xxh3"
	"golang.org/x/sync/errgroup"

	"github.com/dkoltun/frozen"
)

func main() {
	keysFlag := flag.Int("keys", 1_000_000, "number of keys")
	keySizeFlag := flag.Int("keysize", 24, "key length in bytes")
	variantFlag := flag.String("variant", "both", "table variant: sorted, table, or both")
	lookupsFlag := flag.Int("lookups", 5_000_000, "number of lookups per measurement")
	readersFlag := flag.Int("readers", runtime.GOMAXPROCS(0), "parallel reader goroutines")
	flag.Parse()

	numKeys := *keysFlag
	keySize := *keySizeFlag
	if keySize < 1 {
		fmt.Println("keysize must be >= 1")
		os.Exit(1)
	}

	fmt.Printf("Generating %d keys of %d bytes...\n", numKeys, keySize)
	keys := make([][]byte, numKeys)
	for i := range keys {
		keys[i] = make([]byte, keySize)
		_, _ = rand.Read(keys[i]) // crypto/rand.Read error is a fatal system issue; ignore for benchmark
	}

	hashBaselines(keys)

	switch *variantFlag {
	case "sorted":
		benchSorted(keys, *lookupsFlag, *readersFlag)
	case "table":
		benchTable(keys, *lookupsFlag, *readersFlag)
	case "both":
		benchSorted(keys, *lookupsFlag, *readersFlag)
		benchTable(keys, *lookupsFlag, *readersFlag)
	default:
		fmt.Printf("unknown variant %q\n", *variantFlag)
		os.Exit(1)
	}
}

// hashBaselines reports raw hash throughput so lookup numbers can be read
// against the cost of hashing alone.
func hashBaselines(keys [][]byte) {
	fmt.Println("Hash baselines:")
	totalBytes := 0
	for _, key := range keys {
		totalBytes += len(key)
	}

	start := time.Now()
	for _, key := range keys {
		_ = xxh3.Hash(key)
	}
	report("  xxh3.Hash", len(keys), totalBytes, time.Since(start))

	start = time.Now()
	for _, key := range keys {
		_ = xxhash.Sum64(key)
	}
	report("  xxhash.Sum64", len(keys), totalBytes, time.Since(start))

	start = time.Now()
	for _, key := range keys {
		_ = murmur3.Sum64(key)
	}
	report("  murmur3.Sum64", len(keys), totalBytes, time.Since(start))
}

func report(name string, n, bytes int, d time.Duration) {
	nsPerOp := float64(d.Nanoseconds()) / float64(n)
	mbPerSec := float64(bytes) / d.Seconds() / (1 << 20)
	fmt.Printf("%-16s %8.1f ns/op %9.1f MB/s\n", name, nsPerOp, mbPerSec)
}

func benchSorted(keys [][]byte, lookups, readers int) {
	fmt.Printf("\nSorted index: compiling %d keys...\n", len(keys))
	start := time.Now()
	comp, err := frozen.CompileSorted(keys)
	if err != nil {
		fmt.Printf("CompileSorted failed: %v\n", err)
		os.Exit(1)
	}
	compileTime := time.Since(start)

	tbl, err := frozen.LoadSorted(comp.Blob)
	if err != nil {
		fmt.Printf("LoadSorted failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("  compile %v, blob %d bytes (%.1f bytes/key)\n",
		compileTime, len(comp.Blob), float64(len(comp.Blob))/float64(len(keys)))

	measureLookups("sorted", lookups, readers, keys, func(key []byte) bool {
		_, ok := tbl.Lookup(key)
		return ok
	})
}

func benchTable(keys [][]byte, lookups, readers int) {
	fmt.Printf("\nHash table: compiling %d entries...\n", len(keys))
	entries := make([]frozen.Entry, len(keys))
	for i, key := range keys {
		entries[i] = frozen.Entry{Key: key, Value: int32(i)}
	}

	start := time.Now()
	comp, err := frozen.CompileTable(entries)
	if err != nil {
		fmt.Printf("CompileTable failed: %v\n", err)
		os.Exit(1)
	}
	compileTime := time.Since(start)

	tbl, err := frozen.LoadTable(comp.Blob)
	if err != nil {
		fmt.Printf("LoadTable failed: %v\n", err)
		os.Exit(1)
	}
	stats := tbl.Stats()
	fmt.Printf("  compile %v, blob %d bytes (%.1f bytes/key), %d buckets, max occupancy %d\n",
		compileTime, stats.BlobSize, float64(stats.BlobSize)/float64(stats.Items),
		stats.Buckets, stats.MaxBucketLen)

	measureLookups("table", lookups, readers, keys, func(key []byte) bool {
		_, ok := tbl.Lookup(key)
		return ok
	})
}

// measureLookups runs a sequential pass and a parallel pass over member
// keys in pseudo-random order.
func measureLookups(name string, lookups, readers int, keys [][]byte, lookup func([]byte) bool) {
	probe := make([]int, lookups)
	rng := mrand.New(mrand.NewPCG(0xF0F0, 0x0D0D))
	for i := range probe {
		probe[i] = rng.IntN(len(keys))
	}

	start := time.Now()
	for _, i := range probe {
		if !lookup(keys[i]) {
			fmt.Println("member key not found")
			os.Exit(1)
		}
	}
	seq := time.Since(start)
	fmt.Printf("  %s lookups: %.1f ns/op sequential", name, float64(seq.Nanoseconds())/float64(lookups))

	var g errgroup.Group
	chunk := (lookups + readers - 1) / readers
	start = time.Now()
	for w := 0; w < readers; w++ {
		lo := w * chunk
		hi := min(lo+chunk, lookups)
		if lo >= hi {
			continue
		}
		g.Go(func() error {
			for _, i := range probe[lo:hi] {
				if !lookup(keys[i]) {
					return fmt.Errorf("member key not found")
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	par := time.Since(start)
	fmt.Printf(", %.1f ns/op across %d readers\n", float64(par.Nanoseconds())*float64(readers)/float64(lookups), readers)
}
