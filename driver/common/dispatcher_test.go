package common

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

type countedTask struct {
	id     int
	closed int32
	ran    int32
}

func (c *countedTask) Close() error {
	atomic.AddInt32(&c.closed, 1)
	return nil
}

func makeTasks(n int) []*countedTask {
	tasks := make([]*countedTask, n)
	for i := range tasks {
		tasks[i] = &countedTask{id: i}
	}
	return tasks
}

func TestSynchronize_ConcurrencyCap(t *testing.T) {
	tasks := makeTasks(12)
	queue := append([]*countedTask(nil), tasks...)

	var running, maxRunning int32
	err := Synchronize(3, queue, func(task *countedTask) error {
		n := atomic.AddInt32(&running, 1)
		for {
			m := atomic.LoadInt32(&maxRunning)
			if n <= m || atomic.CompareAndSwapInt32(&maxRunning, m, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt32(&task.ran, 1)
		atomic.AddInt32(&running, -1)
		return nil
	}, nil)

	require.NoError(t, err)
	require.True(t, maxRunning <= 3, "max running %v", maxRunning)
	require.Equal(t, int32(0), atomic.LoadInt32(&running))
	for _, task := range tasks {
		require.Equal(t, int32(1), task.ran, "task %v", task.id)
		require.Equal(t, int32(1), task.closed, "task %v", task.id)
	}
}

func TestSynchronize_FirstError(t *testing.T) {
	tasks := makeTasks(20)
	queue := append([]*countedTask(nil), tasks...)

	var running int32
	err := Synchronize(2, queue, func(task *countedTask) error {
		atomic.AddInt32(&running, 1)
		defer atomic.AddInt32(&running, -1)
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&task.ran, 1)
		if task.id == 3 {
			return fmt.Errorf("task %v failed", task.id)
		}
		return nil
	}, nil)

	require.EqualError(t, err, "task 3 failed")
	// in-flight tasks finished before return
	require.Equal(t, int32(0), atomic.LoadInt32(&running))
	// the queue was not drained after the failure
	require.Equal(t, int32(0), atomic.LoadInt32(&tasks[19].ran))
	for _, task := range tasks {
		require.Equal(t, int32(1), task.closed, "task %v", task.id)
	}
}

func TestSynchronize_OneOfSeveralErrors(t *testing.T) {
	queue := makeTasks(4)
	err := Synchronize(4, queue, func(task *countedTask) error {
		return errors.Errorf("failed %v", task.id)
	}, nil)
	require.Error(t, err)
	require.Contains(t, []string{"failed 0", "failed 1", "failed 2", "failed 3"}, err.Error())
}

func TestSynchronize_Stopped(t *testing.T) {
	tasks := makeTasks(3)
	rtn := NewRtn()
	rtn.Stop()

	var ran int32
	err := Synchronize(2, append([]*countedTask(nil), tasks...), func(task *countedTask) error {
		atomic.AddInt32(&ran, 1)
		return nil
	}, rtn)
	require.Equal(t, ErrCancelled, err)
	require.Equal(t, int32(0), ran)
	for _, task := range tasks {
		require.Equal(t, int32(1), task.closed)
	}
}

func TestSynchronize_Panic(t *testing.T) {
	err := Synchronize(1, []int{1, 2}, func(i int) error {
		if i == 1 {
			panic("boom")
		}
		return nil
	}, nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "boom")
}
