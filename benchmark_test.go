package frozen

import (
	"fmt"
	"testing"
)

func benchmarkFixture(b *testing.B, n int) ([][]byte, *SortedTable, *Table) {
	b.Helper()
	rng := newTestRNG(b)
	keys := generateUniqueKeys(rng, n, 24)

	sortedComp, err := CompileSorted(keys)
	if err != nil {
		b.Fatal(err)
	}
	sorted, err := LoadSorted(sortedComp.Blob)
	if err != nil {
		b.Fatal(err)
	}

	entries := make([]Entry, n)
	for i, key := range keys {
		entries[i] = Entry{Key: key, Value: int32(i)}
	}
	tableComp, err := CompileTable(entries)
	if err != nil {
		b.Fatal(err)
	}
	table, err := LoadTable(tableComp.Blob)
	if err != nil {
		b.Fatal(err)
	}
	return keys, sorted, table
}

func benchmarkSortedLookup(b *testing.B, n int) {
	keys, sorted, _ := benchmarkFixture(b, n)
	b.ResetTimer()
	for i := range b.N {
		if _, ok := sorted.Lookup(keys[i%n]); !ok {
			b.Fatal("member key not found")
		}
	}
}

func BenchmarkSortedLookup1K(b *testing.B)   { benchmarkSortedLookup(b, 1000) }
func BenchmarkSortedLookup100K(b *testing.B) { benchmarkSortedLookup(b, 100000) }

func benchmarkTableLookup(b *testing.B, n int) {
	keys, _, table := benchmarkFixture(b, n)
	b.ResetTimer()
	for i := range b.N {
		if _, ok := table.Lookup(keys[i%n]); !ok {
			b.Fatal("member key not found")
		}
	}
}

func BenchmarkTableLookup1K(b *testing.B)   { benchmarkTableLookup(b, 1000) }
func BenchmarkTableLookup100K(b *testing.B) { benchmarkTableLookup(b, 100000) }

func BenchmarkTableLookupParallel(b *testing.B) {
	keys, _, table := benchmarkFixture(b, 100000)
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			if _, ok := table.Lookup(keys[i%len(keys)]); !ok {
				b.Fatal("member key not found")
			}
			i++
		}
	})
}

func BenchmarkTableLookupMiss(b *testing.B) {
	rng := newTestRNG(b)
	keys, _, table := benchmarkFixture(b, 100000)
	seen := keySet(keys)
	misses := make([][]byte, 1024)
	for i := range misses {
		misses[i] = nonMemberKey(rng, seen)
	}
	b.ResetTimer()
	for i := range b.N {
		if _, ok := table.Lookup(misses[i%len(misses)]); ok {
			b.Fatal("non-member key found")
		}
	}
}

func benchmarkCompile(b *testing.B, n int) {
	rng := newTestRNG(b)
	keys := generateUniqueKeys(rng, n, 24)
	entries := make([]Entry, n)
	for i, key := range keys {
		entries[i] = Entry{Key: key, Value: int32(i)}
	}
	b.ResetTimer()
	for b.Loop() {
		if _, err := CompileTable(entries); err != nil {
			b.Fatal(err)
		}
	}
	b.ReportMetric(float64(n), "keys/op")
}

func BenchmarkCompileTable1K(b *testing.B)   { benchmarkCompile(b, 1000) }
func BenchmarkCompileTable100K(b *testing.B) { benchmarkCompile(b, 100000) }

func BenchmarkLoadTable(b *testing.B) {
	for _, n := range []int{1000, 100000} {
		b.Run(fmt.Sprintf("keys=%d", n), func(b *testing.B) {
			rng := newTestRNG(b)
			keys := generateUniqueKeys(rng, n, 24)
			entries := make([]Entry, n)
			for i, key := range keys {
				entries[i] = Entry{Key: key, Value: int32(i)}
			}
			comp, err := CompileTable(entries)
			if err != nil {
				b.Fatal(err)
			}
			b.ResetTimer()
			for b.Loop() {
				if _, err := LoadTable(comp.Blob); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
