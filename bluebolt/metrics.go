package bluebolt

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bluebolt",
		Name:      "requests_total",
		Help:      "BlueBOLT request attempts by method and result.",
	}, []string{"method", "result"})

	loginsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bluebolt",
		Name:      "logins_total",
		Help:      "BlueBOLT login attempts by result.",
	}, []string{"result"})
)

const (
	resultSuccess = "success"
	resultNetwork = "network"
	resultStatus  = "status"
	resultDecode  = "decode"
	resultDenied  = "denied"
)
