package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordPublish(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordPublish("linkedin", true, "")
	c.RecordPublish("linkedin", false, "transport")
	c.RecordPublish("linkedin", false, "transport")

	assert.Equal(t, 1.0, testutil.ToFloat64(c.publishTotal.WithLabelValues("linkedin", "success", "")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.publishTotal.WithLabelValues("linkedin", "failure", "transport")))
}

func TestRecordRun(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordRun(time.Second, 3, 2, false)
	c.RecordRun(0, 0, 0, true)

	assert.Equal(t, 3.0, testutil.ToFloat64(c.postsChecked))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.postsHandled))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.runs.WithLabelValues("true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.runs.WithLabelValues("false")))
}

func TestRecordIngestAndBreaker(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordIngest("blog", 2, 1, 0, 4)
	c.SetBreakerState("twitter", 2)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.ingestItems.WithLabelValues("blog", "new")))
	assert.Equal(t, 4.0, testutil.ToFloat64(c.ingestItems.WithLabelValues("blog", "scheduled")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.breakerStates.WithLabelValues("twitter")))

	families, err := reg.Gather()
	assert.NoError(t, err)
	assert.NotEmpty(t, families)
}
