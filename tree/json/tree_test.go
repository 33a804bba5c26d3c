package json

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbanos/topiary/tree"
)

// twoSplits classifies x[0] <= 1 as true, then x[1] <= 3 as false, else true
func twoSplits() *tree.DecisionTree {
	t := tree.New(2)
	t.Root = 0
	t.Dim[0], t.Threshold[0], t.Left[0], t.Right[0] = 0, 1, 2, 1
	t.Dim[1], t.Threshold[1], t.Left[1], t.Right[1] = 1, 3, 3, 4
	t.Parent[1], t.Parent[2], t.Parent[3], t.Parent[4] = 0, 0, 1, 1
	t.Class[2], t.Class[3], t.Class[4] = true, false, true
	return t
}

func TestWriteAndReadJSONTree(t *testing.T) {
	ctx := context.Background()
	original := twoSplits()
	require.NoError(t, original.Validate())

	var buf bytes.Buffer
	require.NoError(t, WriteJSONTree(ctx, original, &buf))
	assert.True(t, strings.HasPrefix(buf.String(), `{"root":0,"inner":2,"nodes":[`))

	decoded, err := ReadJSONTree(ctx, &buf)
	require.NoError(t, err)
	assert.Equal(t, original, decoded)
}

func TestEncodeDecoder(t *testing.T) {
	ed := New()
	original := twoSplits()
	data, err := ed.Encode(original)
	require.NoError(t, err)
	decoded, err := ed.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, original.String(), decoded.String())
	assert.True(t, decoded.Classify([]float64{0, 9}))
	assert.False(t, decoded.Classify([]float64{2, 3}))

	leaf, err := ed.Decode([]byte(`{"root":0,"inner":0,"nodes":[{"id":0,"p":-1,"c":true}]}`))
	require.NoError(t, err)
	assert.True(t, leaf.Class[0])
}

func TestDecodeInvalid(t *testing.T) {
	tests := map[string]string{
		"malformed":      `{"root":`,
		"leaf no class":  `{"root":0,"inner":0,"nodes":[{"id":0,"p":-1}]}`,
		"missing leaves": `{"root":0,"inner":1,"nodes":[{"id":0,"p":-1,"l":1,"r":2,"d":0,"t":1}]}`,
		"out of range":   `{"root":0,"inner":0,"nodes":[{"id":5,"p":-1,"c":true}]}`,
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := New().Decode([]byte(doc))
			assert.Error(t, err)
		})
	}
}
