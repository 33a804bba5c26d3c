package results

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"time"
)

// PrettyTime formats d as hours:minutes:seconds.milliseconds
func PrettyTime(d time.Duration) string {
	ms := d.Milliseconds()
	h := ms / 3600000
	ms %= 3600000
	m := ms / 60000
	ms %= 60000
	s := ms / 1000
	ms %= 1000
	return fmt.Sprintf("%d:%02d:%02d.%03d", h, m, s, ms)
}

// WriteConsole prints r in a human-readable form
func WriteConsole(w io.Writer, r *Record) error {
	p := &printer{w: w}
	p.printf("Dataset:           %s\n", r.Dataset)
	p.printf("Total Examples:    %d\n", r.DatasetSize)
	p.printf("Training Examples: %v\n", r.SubsetRatio)
	p.printf("Dimensions:        %d\n", r.Dimensions)
	p.printf("Max Tree Size:     %d\n", r.MaxSize)
	p.printf("\n")
	switch {
	case r.TimedOut && !r.Found:
		p.printf("Timeout after %d seconds.\n", r.TimeoutSeconds)
		return p.err
	case r.TimedOut:
		p.printf("Timeout after %d seconds, best tree so far:\n", r.TimeoutSeconds)
		p.printf("Size:                  %d\n", r.TreeSize)
		p.printf("Correct Training Data: %.2f\n", r.CorrectRatio)
	case r.Found:
		p.printf("Tree found!\n")
		p.printf("Size:                  %d\n", r.TreeSize)
		p.printf("Correct Training Data: %.2f\n", r.CorrectRatio)
	default:
		p.printf("Tree not found!\n")
	}
	p.printf("Time:   %s\n", PrettyTime(r.Time))
	p.printf("Memory: %dMiB\n", r.MemoryMiB)
	p.printf("Search Tree:   %d\n", r.SearchNodes)
	p.printf("LB Effect:     %d\n", r.LowerBoundEffect)
	p.printf("SC Effect:     %d\n", r.SubsetConstraintEffect)
	p.printf("Unique Sets:   %d\n", r.UniqueSets)
	p.printf("Copied Sets:   %d\n", r.CopiedSets)
	p.printf("SetTrie Size:  %d\n", r.SetTrieSize)
	return p.err
}

/*
WriteReport prints a summary of records grouped by dataset, then subset ratio
and then maximum size: averages and worst times, average memory, timeouts and
trees found, and average search nodes of the runs that did not time out.
*/
func WriteReport(w io.Writer, records []*Record) error {
	p := &printer{w: w}
	byDataset := make(map[string][]*Record)
	for _, r := range records {
		byDataset[r.Dataset] = append(byDataset[r.Dataset], r)
	}
	for _, name := range slices.Sorted(maps.Keys(byDataset)) {
		rs := byDataset[name]
		p.printf("Results for %s (d = %d):\n", name, rs[0].Dimensions)
		byRatio := make(map[float64][]*Record)
		for _, r := range rs {
			byRatio[r.SubsetRatio] = append(byRatio[r.SubsetRatio], r)
		}
		for _, ratio := range slices.Sorted(maps.Keys(byRatio)) {
			bySize := make(map[int][]*Record)
			for _, r := range byRatio[ratio] {
				bySize[r.MaxSize] = append(bySize[r.MaxSize], r)
			}
			for _, size := range slices.Sorted(maps.Keys(bySize)) {
				group := bySize[size]
				p.printf("# Instances = %2d, ratio = %.2f, s = %2d: ", len(group), ratio, size)
				summarize(p, group)
			}
		}
	}
	return p.err
}

func summarize(p *printer, group []*Record) {
	var done []*Record
	for _, r := range group {
		if !r.TimedOut {
			done = append(done, r)
		}
	}
	if len(done) == 0 {
		p.printf("Timeout for all Instances\n")
		return
	}
	var total, worst time.Duration
	var memory uint64
	var nodes, found int
	for _, r := range done {
		total += r.Time
		worst = max(worst, r.Time)
		memory += r.MemoryMiB
		nodes += r.SearchNodes
		if r.Found {
			found++
		}
	}
	n := len(done)
	p.printf("%s %s ", PrettyTime(total/time.Duration(n)), PrettyTime(worst))
	p.printf("%dMiB ", memory/uint64(n))
	p.printf("Timeout: %d/%d ", len(group)-n, len(group))
	p.printf("Tree found: %d/%d ", found, n)
	p.printf("Search tree nodes: %d ", nodes/n)
	p.printf("LB: %d\n", done[0].LowerBoundEffect)
}

// printer keeps the first write error
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}
