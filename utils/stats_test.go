package utils

import (
	"sync"
	"testing"
)

func TestCountersAddSample(t *testing.T) {
	c := NewCounters()
	c.AddSample("BC01")
	c.AddSample("BC01")
	c.AddSample("BC02")

	if c.PerSample["BC01"] != 2 {
		t.Errorf("PerSample[BC01] = %d, want 2", c.PerSample["BC01"])
	}
	if c.PerSample["BC02"] != 1 {
		t.Errorf("PerSample[BC02] = %d, want 1", c.PerSample["BC02"])
	}
}

func TestMergerAccumulatesAcrossWorkers(t *testing.T) {
	m := NewMerger()

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := NewCounters()
			for i := 0; i < 100; i++ {
				c.RecordsIn++
				c.RecordsClassified++
				c.AddSample("BC01")
			}
			m.Merge(c)
		}()
	}
	wg.Wait()

	total := m.Total()
	if total.RecordsIn != 800 {
		t.Errorf("RecordsIn = %d, want 800", total.RecordsIn)
	}
	if total.RecordsClassified != 800 {
		t.Errorf("RecordsClassified = %d, want 800", total.RecordsClassified)
	}
	if total.PerSample["BC01"] != 800 {
		t.Errorf("PerSample[BC01] = %d, want 800", total.PerSample["BC01"])
	}
}

func TestMergerTotalIsACopy(t *testing.T) {
	m := NewMerger()
	c := NewCounters()
	c.RecordsIn = 5
	m.Merge(c)

	total := m.Total()
	total.RecordsIn = 999
	total.PerSample["spurious"] = 1

	fresh := m.Total()
	if fresh.RecordsIn != 5 {
		t.Errorf("mutating a Total() snapshot leaked into the Merger: RecordsIn = %d, want 5", fresh.RecordsIn)
	}
	if _, ok := fresh.PerSample["spurious"]; ok {
		t.Errorf("mutating a Total() snapshot's map leaked into the Merger")
	}
}
