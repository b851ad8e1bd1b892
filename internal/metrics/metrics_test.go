package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestTransition(t *testing.T) {
	before := testutil.ToFloat64(StatusTransitions.WithLabelValues("trip", "none", "scheduled"))
	Transition("trip", "", "scheduled")
	after := testutil.ToFloat64(StatusTransitions.WithLabelValues("trip", "none", "scheduled"))
	assert.Equal(t, before+1, after)
}
