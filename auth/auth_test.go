// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"code.hybscloud.com/relaynet/auth"
	"code.hybscloud.com/relaynet/codec"
	"code.hybscloud.com/relaynet/transport"
	"code.hybscloud.com/relaynet/transport/framed"
)

func newPair(t *testing.T) (*framed.Transport, *framed.Transport) {
	t.Helper()
	ca, cb := transport.NewInMemoryPair(64)
	return framed.New(ca, codec.Plain{}), framed.New(cb, codec.Plain{})
}

func TestAuthSuccessfulPasswordFlow(t *testing.T) {
	server, client := newPair(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		errCh <- auth.RunServer(ctx, server, "auth-1", []auth.Method{auth.PasswordMethod{Password: "hunter2"}})
	}()

	handler := &auth.StaticHandler{Answer: []string{"hunter2"}}
	go func() {
		errCh <- auth.RunClient(ctx, client, handler)
	}()

	require.NoError(t, <-errCh)
	require.NoError(t, <-errCh)
	assert.True(t, handler.Finished)
}

func TestAuthWrongPasswordIsFatal(t *testing.T) {
	server, client := newPair(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		errCh <- auth.RunServer(ctx, server, "auth-1", []auth.Method{auth.PasswordMethod{Password: "hunter2"}})
	}()

	handler := &auth.StaticHandler{Answer: []string{"wrong"}}
	go func() {
		errCh <- auth.RunClient(ctx, client, handler)
	}()

	serverErr := <-errCh
	clientErr := <-errCh
	// one of the two errors is the server-side mismatch, the other is the
	// client observing ErrPermissionDenied; order depends on goroutine
	// scheduling so check both ends rather than a fixed slot.
	errs := []error{serverErr, clientErr}
	foundPermissionDenied := false
	for _, e := range errs {
		if e == auth.ErrPermissionDenied {
			foundPermissionDenied = true
		}
	}
	assert.True(t, foundPermissionDenied)
	assert.False(t, handler.Finished)
	require.NotEmpty(t, handler.Errors)
	assert.Equal(t, auth.ErrorKindFatal, handler.Errors[0].Kind)
}

func TestRouterDeliversOneShot(t *testing.T) {
	r := auth.NewRouter()
	id := auth.NewAuthID()
	ch := r.Register(id)

	ok := r.Deliver(id, auth.NewChallengeResponse(id, []string{"answer"}))
	require.True(t, ok)

	msg := <-ch
	assert.Equal(t, []string{"answer"}, msg.Answers)
	assert.Equal(t, 0, r.Len())
}

func TestRouterDeliverUnknownIDReturnsFalse(t *testing.T) {
	r := auth.NewRouter()
	assert.False(t, r.Deliver("nope", auth.NewFinished("nope")))
}

func TestRouterCancelClosesChannel(t *testing.T) {
	r := auth.NewRouter()
	id := auth.NewAuthID()
	ch := r.Register(id)
	r.Cancel(id)

	_, open := <-ch
	assert.False(t, open)
}
