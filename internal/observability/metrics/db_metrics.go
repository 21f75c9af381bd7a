package metrics

import (
	"database/sql"
	"fmt"
	"log"

	"github.com/prometheus/client_golang/prometheus"
)

func registerDBMetrics(db *sql.DB, logger *log.Logger, cyclesTable string) {
	if cyclesTable == "" {
		cyclesTable = "device_cycles"
	}
	cyclesQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE ended_at > NOW() - INTERVAL '24 hours'", cyclesTable)
	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: metricPrefix + "cycles_last_24h",
			Help: "Completed phase cycles recorded in the last 24 hours",
		},
		func() float64 {
			return queryCount(db, logger, cyclesQuery)
		},
	))

	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: metricPrefix + "alert_events_last_24h",
			Help: "Alert events recorded in the last 24 hours",
		},
		func() float64 {
			return queryCount(db, logger, "SELECT COUNT(*) FROM alert_events WHERE occurred_at > NOW() - INTERVAL '24 hours'")
		},
	))
}

func queryCount(db *sql.DB, logger *log.Logger, query string) float64 {
	if db == nil {
		return 0
	}
	var count int64
	if err := db.QueryRow(query).Scan(&count); err != nil {
		if logger != nil {
			logger.Printf("metrics query failed: %v", err)
		}
		return 0
	}
	if count < 0 {
		return 0
	}
	return float64(count)
}
