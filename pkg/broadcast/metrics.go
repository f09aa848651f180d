package broadcast

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	startTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rtpcast_broadcast_start_total",
		Help: "Total number of broadcast start requests by result",
	}, []string{"result"})

	exitTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rtpcast_broadcast_exit_total",
		Help: "Total number of encoder exits by reason",
	}, []string{"reason"})

	outputLinesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rtpcast_encoder_output_lines_total",
		Help: "Total number of encoder output lines by stream and level",
	}, []string{"stream", "level"})

	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "rtpcast_broadcast_active",
		Help: "Whether an encoder process is currently owned by the manager",
	})
)
