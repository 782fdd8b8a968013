package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/corestress/corestress/pkg/logger"
)

func TestSafeGroup_PanicBecomesError(t *testing.T) {
	g, _ := NewSafeGroup(context.Background(), logger.CreateLoggerWithOutput("debug", nil))

	g.Go(func() error { panic("core goroutine exploded") })
	g.Go(func() error { return nil })

	err := g.Wait()
	if assert.Error(t, err) {
		assert.Contains(t, err.Error(), "core goroutine exploded")
	}
}

func TestSafeGroup_FirstErrorCancelsContext(t *testing.T) {
	g, ctx := NewSafeGroup(context.Background(), logger.CreateLoggerWithOutput("debug", nil))
	boom := errors.New("boom")

	g.Go(func() error { return boom })
	g.Go(func() error {
		<-ctx.Done()
		return ctx.Err()
	})

	assert.ErrorIs(t, g.Wait(), boom)
}
