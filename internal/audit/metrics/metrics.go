package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	AuditWriteFailures prometheus.Counter
	AuditWriteRetries  prometheus.Counter
	AuditPublishDrops  prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		AuditWriteFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "clinicore_audit_write_failures_total",
			Help: "Total number of audit writes that failed after retry",
		}),
		AuditWriteRetries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "clinicore_audit_write_retries_total",
			Help: "Total number of audit writes retried after a first failure",
		}),
		AuditPublishDrops: promauto.NewCounter(prometheus.CounterOpts{
			Name: "clinicore_audit_publish_drops_total",
			Help: "Total number of audit events that could not be published to the event stream",
		}),
	}
}

func (m *Metrics) IncrementWriteFailures() { m.AuditWriteFailures.Inc() }
func (m *Metrics) IncrementWriteRetries()  { m.AuditWriteRetries.Inc() }
func (m *Metrics) IncrementPublishDrops()  { m.AuditPublishDrops.Inc() }
