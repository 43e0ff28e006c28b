package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	applicationStatusTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jobnest",
			Subsystem: "board",
			Name:      "application_status_changes_total",
			Help:      "申请进入各状态的次数（含新建时的 Applied）。",
		},
		[]string{"status"},
	)

	messagesSentTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "jobnest",
			Subsystem: "messaging",
			Name:      "messages_sent_total",
			Help:      "发送的消息总数。",
		},
	)

	uploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jobnest",
			Subsystem: "upload",
			Name:      "resumes_total",
			Help:      "简历上传结果计数。",
		},
		[]string{"result"},
	)
)

// ObserveApplicationStatus 统计申请进入某状态的次数。
func ObserveApplicationStatus(status string) {
	applicationStatusTotal.WithLabelValues(status).Inc()
}

// ObserveMessageSent 统计已保存的消息数。
func ObserveMessageSent() {
	messagesSentTotal.Inc()
}

// ObserveUpload 按结果统计上传次数，result 取 stored、rejected、infected 或 failed。
func ObserveUpload(result string) {
	uploadsTotal.WithLabelValues(result).Inc()
}
