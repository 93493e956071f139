package obslog

import (
	"testing"
	"time"

	"go.uber.org/zap"
)

type recordingObserver struct {
	fired      int
	suppressed int
}

func (r *recordingObserver) OnAlarm(a Alarm, suppressed bool) {
	if suppressed {
		r.suppressed++
	} else {
		r.fired++
	}
}

func TestAlarmChannelRateLimits(t *testing.T) {
	obs := &recordingObserver{}
	ch := NewAlarmChannel(zap.NewNop(), 30*time.Second, obs)

	base := time.Now()
	for i := 0; i < 5; i++ {
		ch.Raise(Alarm{Category: CategoryParse, Pipeline: "p1", Key: "regex-miss", Timestamp: base.Add(time.Duration(i) * time.Second)})
	}
	if obs.fired != 1 {
		t.Fatalf("expected 1 fired alarm, got %d", obs.fired)
	}
	if obs.suppressed != 4 {
		t.Fatalf("expected 4 suppressed alarms, got %d", obs.suppressed)
	}

	// After the window elapses, the next alarm fires again.
	ch.Raise(Alarm{Category: CategoryParse, Pipeline: "p1", Key: "regex-miss", Timestamp: base.Add(31 * time.Second)})
	if obs.fired != 2 {
		t.Fatalf("expected 2 fired alarms after window elapsed, got %d", obs.fired)
	}
}

func TestAlarmChannelDistinctKeysIndependent(t *testing.T) {
	obs := &recordingObserver{}
	ch := NewAlarmChannel(zap.NewNop(), 30*time.Second, obs)
	now := time.Now()
	ch.Raise(Alarm{Category: CategoryIO, Pipeline: "p1", Key: "a", Timestamp: now})
	ch.Raise(Alarm{Category: CategoryIO, Pipeline: "p1", Key: "b", Timestamp: now})
	ch.Raise(Alarm{Category: CategoryIO, Pipeline: "p2", Key: "a", Timestamp: now})
	if obs.fired != 3 {
		t.Fatalf("expected 3 independent alarms to fire, got %d", obs.fired)
	}
}
