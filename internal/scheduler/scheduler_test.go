package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/Wireflow/internal/domain"
	"github.com/shaiso/Wireflow/internal/mq"
)

type fakeProjects struct {
	projects []domain.Project
	err      error
}

func (f *fakeProjects) ListProjects(context.Context) ([]domain.Project, error) {
	return f.projects, f.err
}

type fakeQueue struct {
	fired []mq.ScheduleFiredPayload
	err   error
}

func (q *fakeQueue) PublishScheduleFired(_ context.Context, p mq.ScheduleFiredPayload) error {
	if q.err != nil {
		return q.err
	}
	q.fired = append(q.fired, p)
	return nil
}

type fakeLeader struct{ lead bool }

func (l fakeLeader) TryLead(context.Context) (bool, error) { return l.lead, nil }

func intervalNode(id string, minutes int, status string) domain.Node {
	return domain.Node{ID: id, Type: domain.KindScheduleTrigger, Data: domain.NodeData{State: map[string]any{
		"scheduleType":   "interval",
		"scheduleStatus": status,
		"intervalValue":  minutes,
		"intervalUnit":   "minutes",
		"timezone":       "UTC",
	}}}
}

func projectWith(nodes ...domain.Node) []domain.Project {
	return []domain.Project{{ID: "p", Name: "P", Flows: []domain.Flow{{ID: "f", Name: "F", Nodes: nodes}}}}
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time      { return c.t }
func (c *clock) add(d time.Duration) { c.t = c.t.Add(d) }

func newTestScheduler(flows ProjectLister, queue Queue, leader Leader) (*Scheduler, *clock) {
	c := &clock{t: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)}
	s := New(Config{Flows: flows, Queue: queue, Leader: leader})
	s.now = c.now
	return s, c
}

func TestScheduler_FiresWhenDue(t *testing.T) {
	flows := &fakeProjects{projects: projectWith(intervalNode("every5", 5, ""))}
	queue := &fakeQueue{}
	s, c := newTestScheduler(flows, queue, nil)
	ctx := context.Background()

	require.NoError(t, s.Tick(ctx))
	assert.Empty(t, queue.fired, "first tick only plans")

	c.add(4 * time.Minute)
	require.NoError(t, s.Tick(ctx))
	assert.Empty(t, queue.fired)

	c.add(time.Minute)
	require.NoError(t, s.Tick(ctx))
	require.Len(t, queue.fired, 1)
	assert.Equal(t, "f", queue.fired[0].FlowID)
	assert.Equal(t, "every5", queue.fired[0].NodeID)
	assert.Equal(t, time.Date(2024, 3, 1, 10, 5, 0, 0, time.UTC), queue.fired[0].DueAt)

	require.NoError(t, s.Tick(ctx))
	assert.Len(t, queue.fired, 1, "fires once per due time")
}

func TestScheduler_SkipsPausedAndInvalid(t *testing.T) {
	invalid := domain.Node{ID: "bad", Type: domain.KindScheduleTrigger, Data: domain.NodeData{State: map[string]any{
		"scheduleType": "weekly",
	}}}
	flows := &fakeProjects{projects: projectWith(intervalNode("paused", 1, domain.SchedulePaused), invalid)}
	queue := &fakeQueue{}
	s, c := newTestScheduler(flows, queue, nil)

	for i := 0; i < 3; i++ {
		require.NoError(t, s.Tick(context.Background()))
		c.add(2 * time.Minute)
	}
	assert.Empty(t, queue.fired)
	assert.Empty(t, s.entries)
}

func TestScheduler_StateChangeReplans(t *testing.T) {
	flows := &fakeProjects{projects: projectWith(intervalNode("n", 5, ""))}
	queue := &fakeQueue{}
	s, c := newTestScheduler(flows, queue, nil)
	ctx := context.Background()

	require.NoError(t, s.Tick(ctx))

	c.add(5 * time.Minute)
	flows.projects = projectWith(intervalNode("n", 60, ""))
	require.NoError(t, s.Tick(ctx))
	assert.Empty(t, queue.fired, "changed schedule is planned again")
	assert.Equal(t, c.t.Add(time.Hour), s.entries["f/n"].next)
}

func TestScheduler_RemovedNodesForgotten(t *testing.T) {
	flows := &fakeProjects{projects: projectWith(intervalNode("n", 5, ""))}
	s, _ := newTestScheduler(flows, &fakeQueue{}, nil)

	require.NoError(t, s.Tick(context.Background()))
	require.Contains(t, s.entries, "f/n")

	flows.projects = nil
	require.NoError(t, s.Tick(context.Background()))
	assert.Empty(t, s.entries)
}

func TestScheduler_PublishFailureRetries(t *testing.T) {
	flows := &fakeProjects{projects: projectWith(intervalNode("n", 1, ""))}
	queue := &fakeQueue{err: errors.New("broker down")}
	s, c := newTestScheduler(flows, queue, nil)
	ctx := context.Background()

	require.NoError(t, s.Tick(ctx))
	c.add(time.Minute)
	require.NoError(t, s.Tick(ctx))
	assert.Empty(t, queue.fired)

	queue.err = nil
	require.NoError(t, s.Tick(ctx))
	require.Len(t, queue.fired, 1)
	assert.Equal(t, time.Date(2024, 3, 1, 10, 1, 0, 0, time.UTC), queue.fired[0].DueAt)
}

func TestScheduler_NotLeader(t *testing.T) {
	flows := &fakeProjects{err: errors.New("must not be called")}
	s, _ := newTestScheduler(flows, &fakeQueue{}, fakeLeader{lead: false})

	assert.NoError(t, s.Tick(context.Background()))
}

func TestScheduler_ListError(t *testing.T) {
	flows := &fakeProjects{err: errors.New("db down")}
	s, _ := newTestScheduler(flows, &fakeQueue{}, fakeLeader{lead: true})

	assert.Error(t, s.Tick(context.Background()))
}
