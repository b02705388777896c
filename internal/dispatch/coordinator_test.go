package dispatch

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/maprgate/internal/agent"
	"github.com/vk/maprgate/internal/task"
)

func TestCoordinator_PreservesInputOrder(t *testing.T) {
	// The handler finishes in reverse submission order to make any
	// completion-order leak visible in the results.
	slowEcho := agent.NewFunc("echo", func(_ context.Context, tk task.Task) (any, error) {
		n := int(tk.Payload.(float64))
		time.Sleep(time.Duration(10-n) * time.Millisecond)
		return n, nil
	})
	c := NewCoordinator(New(newRegistry(t, slowEcho), 0), 4)

	var tasks []task.Task
	for i := 0; i < 8; i++ {
		tasks = append(tasks, task.Task{Agent: "echo", Payload: float64(i)})
	}

	outcomes := c.Run(testContext(), tasks)

	require.Len(t, outcomes, 8)
	for i, o := range outcomes {
		require.False(t, o.Failed(), "outcome %d failed: %s", i, o.Reason)
		assert.Equal(t, i, o.Result, "outcome %d out of order", i)
	}
}

func TestCoordinator_PartialFailureKeepsSlots(t *testing.T) {
	echo := agent.NewFunc("echo", func(_ context.Context, tk task.Task) (any, error) {
		return tk.Payload, nil
	})
	c := NewCoordinator(New(newRegistry(t, echo), 0), 4)

	tasks := []task.Task{
		{Agent: "echo", Payload: "first"},
		{Agent: "ghost", Payload: "second"},
		{Agent: "echo", Payload: "third"},
	}

	outcomes := c.Run(testContext(), tasks)

	require.Len(t, outcomes, 3)
	assert.Equal(t, "first", outcomes[0].Result)
	assert.Equal(t, task.ErrorUnknownAgent, outcomes[1].Error)
	assert.Equal(t, "ghost", outcomes[1].Agent)
	assert.Equal(t, "third", outcomes[2].Result)
}

func TestCoordinator_EmptyBatch(t *testing.T) {
	c := NewCoordinator(New(newRegistry(t), 0), 4)

	outcomes := c.Run(testContext(), nil)

	assert.NotNil(t, outcomes)
	assert.Empty(t, outcomes)
}

func TestCoordinator_SequentialWhenOneWorker(t *testing.T) {
	var mu sync.Mutex
	var order []string
	recorder := agent.NewFunc("record", func(_ context.Context, tk task.Task) (any, error) {
		mu.Lock()
		order = append(order, tk.Payload.(string))
		mu.Unlock()
		return nil, nil
	})
	c := NewCoordinator(New(newRegistry(t, recorder), 0), 1)

	tasks := []task.Task{
		{Agent: "record", Payload: "a"},
		{Agent: "record", Payload: "b"},
		{Agent: "record", Payload: "c"},
	}
	c.Run(testContext(), tasks)

	assert.Equal(t, []string{"a", "b", "c"}, order)
}

func TestCoordinator_WorkerCountClamped(t *testing.T) {
	c := NewCoordinator(New(newRegistry(t), 0), 0)
	assert.Equal(t, 1, c.workers)

	c = NewCoordinator(New(newRegistry(t), 0), -5)
	assert.Equal(t, 1, c.workers)
}

func TestCoordinator_RunsConcurrently(t *testing.T) {
	// With enough workers, tasks that block on a shared rendezvous all make
	// progress together; sequential execution would deadlock the barrier.
	const n = 4
	barrier := make(chan struct{})
	var arrivals sync.WaitGroup
	arrivals.Add(n)

	rendezvous := agent.NewFunc("rendezvous", func(_ context.Context, tk task.Task) (any, error) {
		arrivals.Done()
		<-barrier
		return tk.Payload, nil
	})
	go func() {
		arrivals.Wait()
		close(barrier)
	}()

	c := NewCoordinator(New(newRegistry(t, rendezvous), 0), n)

	var tasks []task.Task
	for i := 0; i < n; i++ {
		tasks = append(tasks, task.Task{Agent: "rendezvous", Payload: fmt.Sprintf("t%d", i)})
	}

	outcomes := c.Run(testContext(), tasks)

	require.Len(t, outcomes, n)
	for i, o := range outcomes {
		assert.Equal(t, fmt.Sprintf("t%d", i), o.Result)
	}
}
