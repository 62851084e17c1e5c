package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordNotification(t *testing.T) {
	before := testutil.ToFloat64(Notifications.WithLabelValues("winner", "failure"))

	RecordNotification("winner", false)
	RecordNotification("winner", false)

	after := testutil.ToFloat64(Notifications.WithLabelValues("winner", "failure"))
	assert.Equal(t, before+2, after)
}

func TestRecordStoreSave(t *testing.T) {
	RecordStoreSave(true, 0.002)
	assert.Positive(t, testutil.CollectAndCount(StoreSaveDuration))
}
