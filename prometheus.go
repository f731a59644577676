package posixmq

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	promNamespace = "posixmq"

	successLabel = "posixmq_success"
)

var (
	opLabels = []string{
		successLabel,
	}

	openCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "open_total",
		Help:      "The number of mq_open calls, creating modes included",
	}, opLabels)

	sendCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "send_total",
		Help:      "The number of messages sent",
	}, opLabels)

	receiveCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "receive_total",
		Help:      "The number of messages received",
	}, opLabels)

	unlinkCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "unlink_total",
		Help:      "The number of mq_unlink calls",
	}, opLabels)
)

func incrOp(counter *prometheus.CounterVec, err error) {
	counter.With(prometheus.Labels{
		successLabel: strconv.FormatBool(err == nil),
	}).Inc()
}
