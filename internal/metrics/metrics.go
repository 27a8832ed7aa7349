package metrics

type Counter interface {
	Inc()
}

type Metrics struct {
	BookEvents          Counter
	UpdatesSkipped      Counter
	SamplesRecorded     Counter
	ProhibitionsStarted Counter
	ProhibitionsEnded   Counter
	RecordsDropped      Counter
}

type noopCounter struct{}

func (noopCounter) Inc() {}

func NewNoop() *Metrics {
	n := noopCounter{}
	return &Metrics{
		BookEvents:          n,
		UpdatesSkipped:      n,
		SamplesRecorded:     n,
		ProhibitionsStarted: n,
		ProhibitionsEnded:   n,
		RecordsDropped:      n,
	}
}
