/*
Package json encodes experiment problems as JSON documents, the
representation queue backends store them in.
*/
package json

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pbanos/topiary/queue"
)

/*
ProblemEncodeDecoder is an interface for objects
that allow encoding problems as slices of bytes and
decoding them back to problems. It is used to
serialize problems into a representation to store on
redis.
*/
type ProblemEncodeDecoder interface {
	// Encode receives a *queue.Problem
	// and returns a slice of bytes with the problem encoded or an
	// error if the encoding could not be performed for
	// some reason.
	Encode(context.Context, *queue.Problem) ([]byte, error)

	// Decode receives a slice of bytes
	// and returns a *queue.Problem decoded from the slice of bytes
	// or an error if the decoding could not be performed
	// for some reason.
	Decode(context.Context, []byte) (*queue.Problem, error)
}

type jsonEncodeDecoder struct{}

// New returns a ProblemEncodeDecoder using JSON
func New() ProblemEncodeDecoder {
	return jsonEncodeDecoder{}
}

func (jsonEncodeDecoder) Encode(ctx context.Context, p *queue.Problem) ([]byte, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encoding problem %s as json: %w", p.ID, err)
	}
	return data, nil
}

func (jsonEncodeDecoder) Decode(ctx context.Context, data []byte) (*queue.Problem, error) {
	p := &queue.Problem{}
	if err := json.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("decoding problem from json: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("decoding problem from json: %w", err)
	}
	return p, nil
}
