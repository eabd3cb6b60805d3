// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package actionqueue_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"code.hybscloud.com/relaynet/internal/actionqueue"
)

func TestFIFOOrder(t *testing.T) {
	q := actionqueue.New[int]()
	defer q.Close()

	for i := 0; i < 5; i++ {
		require.True(t, q.Push(i))
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	for i := 0; i < 5; i++ {
		v, ok := q.Pop(ctx)
		require.True(t, ok)
		assert.Equal(t, i, v)
	}
}

func TestPushManyWithoutConsumer(t *testing.T) {
	q := actionqueue.New[int]()
	defer q.Close()

	for i := 0; i < 1000; i++ {
		require.True(t, q.Push(i))
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	v, ok := q.Pop(ctx)
	require.True(t, ok)
	assert.Equal(t, 0, v)
}

func TestPopReturnsFalseAfterClose(t *testing.T) {
	q := actionqueue.New[int]()
	q.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, ok := q.Pop(ctx)
	assert.False(t, ok)
}

func TestPushReturnsFalseAfterClose(t *testing.T) {
	q := actionqueue.New[int]()
	q.Close()
	assert.False(t, q.Push(1))
}

func TestPopRespectsContextCancellation(t *testing.T) {
	q := actionqueue.New[int]()
	defer q.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, ok := q.Pop(ctx)
	assert.False(t, ok)
}
