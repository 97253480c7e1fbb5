package workflow

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fp(v float64) *float64 { return &v }

func reading(id uuid.UUID, r Reading) State {
	return State{StudentID: id, Readings: []Reading{r}}
}

func TestEvaluateFiresOnCrossingOnly(t *testing.T) {
	id := uuid.New()
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	before := State{StudentID: id, Academic: 3, Physical: 1, CompletionPercent: 60}
	after := State{StudentID: id, Academic: 3, Physical: 2, CompletionPercent: 70}
	evs := Evaluate(before, after, now)
	require.Len(t, evs, 2)
	assert.Equal(t, EventEPRReady, evs[0].Type)
	assert.Equal(t, EventReportReady, evs[1].Type)

	assert.Empty(t, Evaluate(after, after, now))
}

func TestEvaluateAlerts(t *testing.T) {
	id := uuid.New()
	now := time.Now()
	cases := []struct {
		name  string
		state State
		want  []string
	}{
		{"stress", reading(id, Reading{DASSStress: fp(21)}), []string{"dass_stress"}},
		{"stress at threshold", reading(id, Reading{DASSStress: fp(20)}), nil},
		{"depression", reading(id, Reading{DASSDepression: fp(28)}), []string{"dass_depression"}},
		{"low percentage", reading(id, Reading{Percentage: fp(35), Subject: "science"}), []string{"low_percentage_science"}},
		{"percentage at threshold", reading(id, Reading{Percentage: fp(40)}), nil},
		{"two readings", State{StudentID: id, Readings: []Reading{{DASSStress: fp(30)}, {Percentage: fp(10)}}}, []string{"dass_stress", "low_percentage"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var got []string
			for _, ev := range Evaluate(State{StudentID: id}, tc.state, now) {
				require.Equal(t, EventAlert, ev.Type)
				got = append(got, ev.Reason)
			}
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestRecorderAndEventID(t *testing.T) {
	id := uuid.MustParse("0f0e0d0c-0b0a-4908-8706-050403020100")
	r := &Recorder{}
	require.NoError(t, r.Dispatch(context.Background(), Event{Type: EventEPRReady, StudentID: id}))
	require.NoError(t, r.Dispatch(context.Background(), Event{Type: EventAlert, StudentID: id, Reason: "dass_stress"}))

	assert.Len(t, r.Events(), 2)
	alerts := r.Of(EventAlert)
	require.Len(t, alerts, 1)
	assert.Equal(t, "alert:0f0e0d0c-0b0a-4908-8706-050403020100:dass_stress", alerts[0].ID())
	assert.Equal(t, WorkflowBatchRecalculation, EventEPRReady.Workflow())

	r.Reset()
	assert.Empty(t, r.Events())
}

func TestClampBackoff(t *testing.T) {
	assert.Equal(t, 250*time.Millisecond, clampBackoff(250*time.Millisecond, time.Second, 1))
	assert.Equal(t, time.Second, clampBackoff(250*time.Millisecond, time.Second, 3))
	assert.Equal(t, time.Second, clampBackoff(250*time.Millisecond, time.Second, 10))
}
