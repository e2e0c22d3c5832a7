package outbox

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"example.com/tripplanner/internal/events"
)

func TestPublishPassCountsTripEvents(t *testing.T) {
	batch := []Message{{EventType: events.TypeActivitySaved}, {EventType: events.TypePOISaved}}
	beforePublished := testutil.ToFloat64(publishedEvents)
	beforeUnpublished := testutil.ToFloat64(unpublishedEvents)

	observePublishPass(time.Now(), batch, true)
	observePublishPass(time.Now(), batch[:1], false)

	require.InDelta(t, beforePublished+2, testutil.ToFloat64(publishedEvents), 0.0001)
	require.InDelta(t, beforeUnpublished+1, testutil.ToFloat64(unpublishedEvents), 0.0001)
}

func TestRecordReplayLabelsOutcome(t *testing.T) {
	entry := dlqEntry{EventType: events.TypePOISaved}
	requeued := deadLetterReplays.WithLabelValues(events.TypePOISaved, replayRequeued)
	postponed := deadLetterReplays.WithLabelValues(events.TypePOISaved, replayPostponed)
	beforeRequeued, beforePostponed := testutil.ToFloat64(requeued), testutil.ToFloat64(postponed)

	recordReplay(entry, replayRequeued)
	recordReplay(entry, replayPostponed)
	recordReplay(entry, replayPostponed)

	require.InDelta(t, beforeRequeued+1, testutil.ToFloat64(requeued), 0.0001)
	require.InDelta(t, beforePostponed+2, testutil.ToFloat64(postponed), 0.0001)
}
