package json

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbanos/topiary/queue"
)

func TestEncodeDecode(t *testing.T) {
	ctx := context.Background()
	p := &queue.Problem{
		ID:          "p1",
		Dataset:     "sqlite3:///tmp/sets.db",
		Table:       "iris",
		SubsetRatio: 0.5,
		SubsetSeed:  3,
		Algorithm:   "strategy3",
		UpperBound:  12,
		Timeout:     90 * time.Second,
	}
	ed := New()
	data, err := ed.Encode(ctx, p)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"subsetRatio":0.5`)
	got, err := ed.Decode(ctx, data)
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestDecodeRejectsInvalid(t *testing.T) {
	ed := New()
	_, err := ed.Decode(context.Background(), []byte(`{"id":"p1"}`))
	assert.Error(t, err)
	_, err = ed.Decode(context.Background(), []byte(`{`))
	assert.Error(t, err)
}
