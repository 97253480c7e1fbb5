package ctxutil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBounded(t *testing.T) {
	var unset context.Context
	ctx, cancel := Bounded(unset, time.Minute)
	defer cancel()
	dl, ok := ctx.Deadline()
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(time.Minute), dl, 5*time.Second)

	parent, pcancel := context.WithTimeout(context.Background(), time.Second)
	defer pcancel()
	child, ccancel := Bounded(parent, time.Hour)
	defer ccancel()
	pdl, _ := parent.Deadline()
	cdl, _ := child.Deadline()
	assert.Equal(t, pdl, cdl)

	open, ocancel := Bounded(context.Background(), 0)
	_, ok = open.Deadline()
	assert.False(t, ok)
	ocancel()
	assert.Error(t, open.Err())
}

func TestTraceFields(t *testing.T) {
	assert.Nil(t, LogFields(context.Background()))
	ctx := WithTraceData(context.Background(), &TraceData{TraceID: "t1", Origin: "upload"})
	assert.Equal(t, []interface{}{"trace_id", "t1", "origin", "upload"}, LogFields(ctx))
}
