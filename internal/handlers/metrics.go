package handlers

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/huangang/consultdesk/internal/models"
	"github.com/huangang/consultdesk/internal/services"
)

var startTime = time.Now()

// Metrics returns Prometheus-compatible text format metrics.
// GET /metrics
func Metrics(c *gin.Context) {
	var b strings.Builder

	// -- Runtime metrics --
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	writeGauge(&b, "consultdesk_uptime_seconds", "Time since server start in seconds", time.Since(startTime).Seconds())
	writeGauge(&b, "consultdesk_goroutines", "Number of active goroutines", float64(runtime.NumGoroutine()))
	writeGauge(&b, "consultdesk_memory_alloc_bytes", "Current heap allocation in bytes", float64(m.Alloc))
	writeGauge(&b, "consultdesk_gc_runs_total", "Total number of GC runs", float64(m.NumGC))

	writeGauge(&b, "consultdesk_sse_active_clients", "Number of active SSE connections", float64(services.GetEventHub().ClientCount()))

	queueAsync := 0.0
	if q := services.GetTaskQueue(); q != nil && q.IsAsync() {
		queueAsync = 1.0
	}
	writeGauge(&b, "consultdesk_queue_async_enabled", "Whether the reminder queue runs on Redis (1=yes, 0=no)", queueAsync)

	if db := models.GetDB(); db != nil {
		if sqlDB, err := db.DB(); err == nil {
			stats := sqlDB.Stats()
			writeGauge(&b, "consultdesk_db_open_connections", "Number of open DB connections", float64(stats.OpenConnections))
			writeGauge(&b, "consultdesk_db_in_use_connections", "Number of in-use DB connections", float64(stats.InUse))
		}

		var consultants, openTasks, pendingPayments int64
		db.Model(&models.Consultant{}).Count(&consultants)
		db.Model(&models.Task{}).Where("completed = ?", false).Count(&openTasks)
		db.Model(&models.Payment{}).Where("status = ?", models.PaymentPending).Count(&pendingPayments)

		writeGauge(&b, "consultdesk_consultants_total", "Number of consultants across all owners", float64(consultants))
		writeGauge(&b, "consultdesk_tasks_open", "Number of incomplete tasks", float64(openTasks))
		writeGauge(&b, "consultdesk_payments_pending", "Number of unpaid invoices", float64(pendingPayments))

		for _, status := range []models.ProjectStatus{models.ProjectActive, models.ProjectOnHold, models.ProjectCompleted} {
			var n int64
			db.Model(&models.Project{}).Where("status = ?", status).Count(&n)
			writeGauge(&b, "consultdesk_projects_"+strings.ReplaceAll(string(status), "-", "_"),
				fmt.Sprintf("Number of %s projects", status), float64(n))
		}
	}

	c.Data(200, "text/plain; version=0.0.4; charset=utf-8", []byte(b.String()))
}

func writeGauge(b *strings.Builder, name, help string, value float64) {
	fmt.Fprintf(b, "# HELP %s %s\n", name, help)
	fmt.Fprintf(b, "# TYPE %s gauge\n", name)
	fmt.Fprintf(b, "%s %g\n\n", name, value)
}
