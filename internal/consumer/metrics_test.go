package consumer

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"example.com/tripplanner/internal/events"
)

func TestRecordHandledSplitsByResult(t *testing.T) {
	msg := Message{Topic: events.TopicTripEvents, EventType: events.TypePOISaved, Timestamp: time.Unix(1717234200, 0)}
	ok := handledEvents.WithLabelValues(events.TypePOISaved, "ok")
	failed := handledEvents.WithLabelValues(events.TypePOISaved, "error")
	beforeOK, beforeFailed := testutil.ToFloat64(ok), testutil.ToFloat64(failed)

	recordHandled(msg, nil)
	recordHandled(msg, errors.New("geocoder down"))

	require.InDelta(t, beforeOK+1, testutil.ToFloat64(ok), 0.0001)
	require.InDelta(t, beforeFailed+1, testutil.ToFloat64(failed), 0.0001)
	require.InDelta(t, 1717234200, testutil.ToFloat64(handledLag), 0.0001)
}
