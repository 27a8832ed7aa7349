package report

import (
	"fmt"
	"io"
	"sort"
	"time"

	"mx-trend-bot/internal/history"
)

const (
	bigDelayMin = 200 * time.Millisecond
	bigDelayMax = 1000 * time.Millisecond
)

type orderTiming struct {
	clientOrderID string
	creating      time.Time
	created       time.Time
	finished      time.Time
	hasFinished   bool
}

// BigDelay records a gap between two consecutive orders long enough to be
// worth inspecting by hand.
type BigDelay struct {
	DelayMillis   int
	PreviousOrder string
	PreviousEnd   time.Time
	OrderID       string
	OrderStart    time.Time
}

// GapReport summarizes the idle time between one order finishing and the
// next being created. Overlapping orders land in the zero bucket.
type GapReport struct {
	Distribution     Distribution
	BigDelays        []BigDelay
	NotFoundPrevious int
	Filtered         int
}

// OrderGapAnalysis walks orders in creation order and, for each, looks up the
// most recent order that finished strictly before it started.
func OrderGapAnalysis(orders []history.OrderRecord) GapReport {
	report := GapReport{Distribution: Distribution{0: 0}}

	timings := make([]orderTiming, 0, len(orders))
	for _, order := range orders {
		timing, ok := timingFor(order)
		if !ok {
			report.Filtered++
			continue
		}
		timings = append(timings, timing)
	}

	byCreated := make([]orderTiming, len(timings))
	copy(byCreated, timings)
	sort.Slice(byCreated, func(i, j int) bool { return byCreated[i].created.Before(byCreated[j].created) })

	byFinished := make([]orderTiming, 0, len(timings))
	for _, timing := range timings {
		if timing.hasFinished {
			byFinished = append(byFinished, timing)
		}
	}
	sort.Slice(byFinished, func(i, j int) bool { return byFinished[i].finished.Before(byFinished[j].finished) })

	for _, timing := range timings {
		createdTime := timing.created

		// An order created earlier whose lifetime still covers this
		// creation means no idle gap at all.
		idx := latestBefore(len(byCreated), createdTime, func(i int) time.Time { return byCreated[i].created })
		if idx >= 0 {
			previous := byCreated[idx]
			if previous.hasFinished && !previous.finished.Before(createdTime) {
				report.Distribution.Add(0)
				continue
			}
		}

		idx = latestBefore(len(byFinished), createdTime, func(i int) time.Time { return byFinished[i].finished })
		if idx < 0 {
			report.NotFoundPrevious++
			continue
		}
		previous := byFinished[idx]
		gap := createdTime.Sub(previous.finished)
		if gap >= bigDelayMin && gap <= bigDelayMax {
			report.BigDelays = append(report.BigDelays, BigDelay{
				DelayMillis:   int(gap / time.Millisecond),
				PreviousOrder: previous.clientOrderID,
				PreviousEnd:   previous.finished,
				OrderID:       timing.clientOrderID,
				OrderStart:    createdTime,
			})
		}
		report.Distribution.Add(int(gap / time.Millisecond))
	}
	return report
}

// latestBefore returns the largest index whose time is strictly before the
// target, or -1.
func latestBefore(n int, target time.Time, at func(int) time.Time) int {
	return sort.Search(n, func(i int) bool { return !at(i).Before(target) }) - 1
}

func timingFor(order history.OrderRecord) (orderTiming, bool) {
	if len(order.StatusChanges) < 3 {
		return orderTiming{}, false
	}
	creating, okCreating := firstStatusChange(order, history.OrderCreating)
	created, okCreated := firstStatusChange(order, history.OrderCreated)
	if !okCreating || !okCreated {
		return orderTiming{}, false
	}
	return orderTiming{
		clientOrderID: order.ClientOrderID,
		creating:      creating,
		created:       created,
		finished:      order.FinishedTime,
		hasFinished:   order.HasFinishedTime,
	}, true
}

func (r GapReport) Render(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "Filtered %d orders\n", r.Filtered); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Not found previous order for %d orders\n", r.NotFoundPrevious); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, "Distribution of delays between orders:"); err != nil {
		return err
	}
	if err := r.Distribution.Render(w); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, "\nOrders for big delays:"); err != nil {
		return err
	}
	for _, delay := range r.BigDelays {
		if _, err := fmt.Fprintf(w, "Delay: %d\n", delay.DelayMillis); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "Previous order %s %s\n", delay.PreviousOrder, delay.PreviousEnd.Format(time.RFC3339Nano)); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "Current order  %s %s\n\n", delay.OrderID, delay.OrderStart.Format(time.RFC3339Nano)); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(w, "Distributions counts sum %d\n", r.Distribution.Total()); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Big delays sum %d\n", len(r.BigDelays))
	return err
}
