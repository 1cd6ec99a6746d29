package circulation

import (
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

type ledgerMetrics struct {
	borrows       metric.Int64Counter
	returns       metric.Int64Counter
	missing       metric.Int64Counter
	finesAssessed metric.Int64Counter
	finesPaid     metric.Int64Counter
}

func newLedgerMetrics(mp metric.MeterProvider) *ledgerMetrics {
	meter := mp.Meter("librarydesk/circulation")
	return &ledgerMetrics{
		borrows:       counter(meter, "library.borrows", "Books issued"),
		returns:       counter(meter, "library.returns", "Books returned"),
		missing:       counter(meter, "library.missing", "Books reported missing"),
		finesAssessed: counter(meter, "library.fines.assessed", "Fine units assessed"),
		finesPaid:     counter(meter, "library.fines.paid", "Fine units paid"),
	}
}

func counter(meter metric.Meter, name, desc string) metric.Int64Counter {
	c, err := meter.Int64Counter(name, metric.WithDescription(desc))
	if err != nil {
		return noop.Int64Counter{}
	}
	return c
}
