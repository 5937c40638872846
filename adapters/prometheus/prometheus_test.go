package prometheus

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kynesis/loomrun/core/asyncscope"
)

func TestNewActorMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewActorMetrics(reg)

	require.NotNil(t, m)

	timer := m.MessageDuration("hello")
	assert.NotNil(t, timer)
	timer.ObserveDuration()

	m.MessageProcessed("hello", true)
	m.MessageProcessed("hello", false)
	m.MailboxDepth("hello", 10)
	m.SignalReceived("hello", "shutdown")
	m.Restarted("hello")

	mfs, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, mfs)

	names := make(map[string]bool)
	for _, mf := range mfs {
		names[mf.GetName()] = true
	}
	assert.True(t, names["loomrun_actor_message_duration_seconds"])
	assert.True(t, names["loomrun_actor_messages_total"])
	assert.True(t, names["loomrun_actor_mailbox_depth"])
	assert.True(t, names["loomrun_actor_signals_total"])
	assert.True(t, names["loomrun_actor_restarts_total"])
}

func TestNewAsyncScopeMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewAsyncScopeMetrics(reg)

	require.NotNil(t, m)

	m.TaskForked("demo")
	timer := m.TaskDuration("demo")
	assert.NotNil(t, timer)
	timer.ObserveDuration()
	m.TaskCompleted("demo", asyncscope.ResultSuccess)
	m.TaskCompleted("demo", asyncscope.ResultFailed)
	m.CompletionQueueDepth("demo", 3)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, mfs)

	names := make(map[string]bool)
	for _, mf := range mfs {
		names[mf.GetName()] = true
	}
	assert.True(t, names["loomrun_asyncscope_tasks_forked_total"])
	assert.True(t, names["loomrun_asyncscope_task_duration_seconds"])
	assert.True(t, names["loomrun_asyncscope_tasks_completed_total"])
	assert.True(t, names["loomrun_asyncscope_completion_queue_depth"])
}

func TestNewAllMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewAllMetrics(reg)

	require.NotNil(t, m)
	require.NotNil(t, m.Actor)
	require.NotNil(t, m.AsyncScope)

	m.Actor.MessageProcessed("hello", true)
	m.AsyncScope.TaskForked("demo")

	mfs, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, mfs)
}

func TestBoolToStr(t *testing.T) {
	assert.Equal(t, "true", boolToStr(true))
	assert.Equal(t, "false", boolToStr(false))
}
