package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	CommandsPushed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "robot_gateway_commands_pushed_total",
			Help: "Total number of commands accepted by the dispatcher",
		},
	)

	CommandsDelivered = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "robot_gateway_commands_delivered_total",
			Help: "Commands handed to a live robot transport",
		},
	)

	CommandsQueued = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "robot_gateway_commands_queued_total",
			Help: "Commands enqueued because the robot was offline",
		},
	)

	CommandsAcked = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "robot_gateway_commands_acked_total",
			Help: "Commands acknowledged by robots",
		},
	)

	CommandsFailed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "robot_gateway_commands_failed_total",
			Help: "Commands that reached a terminal failed state",
		},
	)

	CommandRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "robot_gateway_command_retries_total",
			Help: "Ack-timeout retries returning commands to the queue",
		},
	)

	ConnectedRobots = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "robot_gateway_connected_robots",
			Help: "Robots with a live connection to the gateway",
		},
	)

	QueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "robot_gateway_queue_depth",
			Help: "Undelivered commands across all device queues",
		},
	)

	PushDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "robot_gateway_push_duration_seconds",
			Help:    "Duration of dispatcher Push calls",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
		},
	)
)

func init() {
	prometheus.MustRegister(CommandsPushed)
	prometheus.MustRegister(CommandsDelivered)
	prometheus.MustRegister(CommandsQueued)
	prometheus.MustRegister(CommandsAcked)
	prometheus.MustRegister(CommandsFailed)
	prometheus.MustRegister(CommandRetries)
	prometheus.MustRegister(ConnectedRobots)
	prometheus.MustRegister(QueueDepth)
	prometheus.MustRegister(PushDuration)
}
