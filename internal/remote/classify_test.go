package remote

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"testing"

	"github.com/thanhnguyendafa-ux/git-vmind-gg-3-sub002/internal/engine"

	"github.com/stretchr/testify/assert"
)

func TestClassifyByErrorCode(t *testing.T) {
	dup := &APIError{StatusCode: 400, Code: CodeDuplicate, Message: "exists"}
	assert.Equal(t, engine.DispositionDuplicate, Classify(dup))

	missing := &APIError{StatusCode: 400, Code: CodeMissingParent, Message: "no such table"}
	assert.Equal(t, engine.DispositionMissingDependency, Classify(missing))
}

func TestClassifyByStatusCode(t *testing.T) {
	cases := []struct {
		status int
		want   engine.Disposition
	}{
		{409, engine.DispositionDuplicate},
		{422, engine.DispositionMissingDependency},
		{429, engine.DispositionRetryable},
		{500, engine.DispositionRetryable},
		{503, engine.DispositionRetryable},
		{400, engine.DispositionFatal},
		{401, engine.DispositionFatal},
		{403, engine.DispositionFatal},
		{404, engine.DispositionFatal},
		{413, engine.DispositionFatal},
	}

	for _, tc := range cases {
		t.Run(fmt.Sprintf("status_%d", tc.status), func(t *testing.T) {
			err := &APIError{StatusCode: tc.status, Message: "x"}
			assert.Equal(t, tc.want, Classify(err))
		})
	}
}

func TestClassifyWrappedAPIError(t *testing.T) {
	inner := &APIError{StatusCode: 409, Message: "exists"}
	wrapped := fmt.Errorf("upsert row: %w", inner)
	assert.Equal(t, engine.DispositionDuplicate, Classify(wrapped))
}

func TestClassifyPayloadErrorsAreFatal(t *testing.T) {
	assert.Equal(t, engine.DispositionFatal, Classify(fmt.Errorf("%w: bad json", ErrBadPayload)))
	assert.Equal(t, engine.DispositionFatal, Classify(fmt.Errorf("%w: weird", ErrUnhandledKind)))
}

func TestClassifyOffline(t *testing.T) {
	assert.Equal(t, engine.DispositionOffline, Classify(context.DeadlineExceeded))

	refused := &url.Error{Op: "Put", URL: "http://backend/api", Err: errors.New("connection refused")}
	assert.Equal(t, engine.DispositionOffline, Classify(refused))

	opErr := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("no route to host")}
	assert.Equal(t, engine.DispositionOffline, Classify(opErr))
}

func TestClassifyDefaultsToRetryable(t *testing.T) {
	assert.Equal(t, engine.DispositionRetryable, Classify(errors.New("something unexpected")))
}
