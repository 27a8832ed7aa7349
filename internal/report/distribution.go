package report

import (
	"fmt"
	"io"
	"sort"
)

// Distribution counts occurrences per whole-millisecond latency bucket.
type Distribution map[int]int

func (d Distribution) Add(ms int) {
	d[ms]++
}

func (d Distribution) Total() int {
	total := 0
	for _, count := range d {
		total += count
	}
	return total
}

func (d Distribution) Render(w io.Writer) error {
	keys := make([]int, 0, len(d))
	for key := range d {
		keys = append(keys, key)
	}
	sort.Ints(keys)
	for _, key := range keys {
		if _, err := fmt.Fprintf(w, "%06d ms, count %d\n", key, d[key]); err != nil {
			return err
		}
	}
	return nil
}

// Grouped holds one distribution per exchange.
type Grouped map[string]Distribution

func (g Grouped) bucket(exchange string) Distribution {
	d, ok := g[exchange]
	if !ok {
		d = Distribution{}
		g[exchange] = d
	}
	return d
}

func (g Grouped) Render(w io.Writer) error {
	exchanges := make([]string, 0, len(g))
	for exchange := range g {
		exchanges = append(exchanges, exchange)
	}
	sort.Strings(exchanges)
	for _, exchange := range exchanges {
		if _, err := fmt.Fprintf(w, "%s\n\n", exchange); err != nil {
			return err
		}
		if err := g[exchange].Render(w); err != nil {
			return err
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}
	return nil
}
