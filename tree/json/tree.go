/*
Package json encodes decision trees as JSON documents and decodes them back.
*/
package json

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/pbanos/topiary/tree"
)

/*
EncodeDecoder is an interface for objects that allow encoding trees into
slices of bytes and decoding them back to trees.
*/
type EncodeDecoder interface {
	// Encode receives a *tree.DecisionTree and returns a slice of bytes with
	// the tree encoded or an error if the encoding could not be performed.
	Encode(*tree.DecisionTree) ([]byte, error)

	// Decode receives a slice of bytes and returns a *tree.DecisionTree
	// decoded from it or an error if the decoding could not be performed.
	Decode([]byte) (*tree.DecisionTree, error)
}

type node struct {
	ID        int      `json:"id"`
	Parent    int      `json:"p"`
	Left      *int     `json:"l,omitempty"`
	Right     *int     `json:"r,omitempty"`
	Dim       *int     `json:"d,omitempty"`
	Threshold *float64 `json:"t,omitempty"`
	Class     *bool    `json:"c,omitempty"`
}

type document struct {
	Root  int     `json:"root"`
	Inner int     `json:"inner"`
	Nodes []*node `json:"nodes"`
}

type encodeDecoder struct{}

// New returns an EncodeDecoder of trees into JSON documents
func New() EncodeDecoder {
	return encodeDecoder{}
}

func (encodeDecoder) Encode(t *tree.DecisionTree) ([]byte, error) {
	doc := &document{Root: t.Root, Inner: t.Inner()}
	err := t.Traverse(context.Background(), false, func(_ context.Context, v int) error {
		doc.Nodes = append(doc.Nodes, encodeNode(t, v))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return json.Marshal(doc)
}

func (encodeDecoder) Decode(data []byte) (*tree.DecisionTree, error) {
	doc := &document{}
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, err
	}
	return decodeDocument(doc)
}

func encodeNode(t *tree.DecisionTree, v int) *node {
	n := &node{ID: v, Parent: t.Parent[v]}
	if t.IsLeaf(v) {
		class := t.Class[v]
		n.Class = &class
		return n
	}
	left, right, dim, thr := t.Left[v], t.Right[v], t.Dim[v], t.Threshold[v]
	n.Left, n.Right, n.Dim, n.Threshold = &left, &right, &dim, &thr
	return n
}

func decodeDocument(doc *document) (*tree.DecisionTree, error) {
	if doc.Inner < 0 {
		return nil, fmt.Errorf("invalid inner vertex count %d", doc.Inner)
	}
	t := tree.New(doc.Inner)
	t.Root = doc.Root
	for _, n := range doc.Nodes {
		if n == nil || n.ID < 0 || n.ID >= t.Vertices() {
			return nil, fmt.Errorf("node out of range for a tree of %d vertices", t.Vertices())
		}
		t.Parent[n.ID] = n.Parent
		if t.IsLeaf(n.ID) {
			if n.Class == nil {
				return nil, fmt.Errorf("leaf %d has no class", n.ID)
			}
			t.Class[n.ID] = *n.Class
			continue
		}
		if n.Left == nil || n.Right == nil || n.Dim == nil || n.Threshold == nil {
			return nil, fmt.Errorf("inner vertex %d has no split", n.ID)
		}
		t.Left[n.ID], t.Right[n.ID] = *n.Left, *n.Right
		t.Dim[n.ID], t.Threshold[n.ID] = *n.Dim, *n.Threshold
	}
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("decoding tree: %w", err)
	}
	return t, nil
}

/*
WriteJSONTree takes a context.Context, a pointer to a tree.DecisionTree and
an io.Writer and serializes the given tree as JSON onto the io.Writer.
A tree is serialized as a JSON object with the following fields:
  - "root": the id of the vertex at the root of the tree
  - "inner": the number of inner vertices of the tree
  - "nodes": an array with the vertices of the tree in depth-first order.
    Inner vertices have their children ("l", "r") and split ("d", "t"),
    leaves their class ("c").

An error is returned if the tree cannot be traversed, serialized or written
onto the io.Writer.
*/
func WriteJSONTree(ctx context.Context, t *tree.DecisionTree, w io.Writer) error {
	header := fmt.Sprintf(`{"root":%d,"inner":%d,"nodes":[`, t.Root, t.Inner())
	if _, err := io.WriteString(w, header); err != nil {
		return err
	}
	var i int
	err := t.Traverse(ctx, false, func(ctx context.Context, v int) error {
		if i != 0 {
			if _, err := io.WriteString(w, ","); err != nil {
				return err
			}
		}
		i++
		jn, err := json.Marshal(encodeNode(t, v))
		if err != nil {
			return err
		}
		_, err = w.Write(jn)
		return err
	})
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, "]}")
	return err
}

/*
ReadJSONTree takes a context.Context and an io.Reader and returns the tree
read from it in the format WriteJSONTree writes. An error is returned if the
JSON cannot be read from the io.Reader or does not hold a valid tree.
*/
func ReadJSONTree(ctx context.Context, r io.Reader) (*tree.DecisionTree, error) {
	doc := &document{}
	if err := json.NewDecoder(r).Decode(doc); err != nil {
		return nil, fmt.Errorf("reading json tree: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return decodeDocument(doc)
}
