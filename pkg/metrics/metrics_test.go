package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestIncrementOutboxEvent(t *testing.T) {
	before := testutil.ToFloat64(OutboxEventCount.WithLabelValues("module.completed", "sent"))
	IncrementOutboxEvent("module.completed", "sent")
	IncrementOutboxEvent("module.completed", "sent")
	after := testutil.ToFloat64(OutboxEventCount.WithLabelValues("module.completed", "sent"))
	if after-before != 2 {
		t.Fatalf("outbox counter delta = %v, want 2", after-before)
	}
}

func TestIncrementSlowQuery(t *testing.T) {
	before := testutil.ToFloat64(SlowQueryCount.WithLabelValues("SELECT 1"))
	IncrementSlowQuery("SELECT 1", 250*time.Millisecond)
	if got := testutil.ToFloat64(SlowQueryCount.WithLabelValues("SELECT 1")) - before; got != 1 {
		t.Fatalf("slow query delta = %v, want 1", got)
	}
}

func TestRecordOperationRegistersSeries(t *testing.T) {
	RecordOperation("CreateProject", "ok", 3*time.Millisecond)
	if n := testutil.CollectAndCount(OperationDuration); n == 0 {
		t.Fatal("operation histogram has no series")
	}
}
