package scanner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const goSource = `package shop

// Cart holds items.
//
//index_for_vector_db
type Cart struct {
	Items []string
	owner string
	Total, Tax int
	Base
}

func (c *Cart) Add(item string) {}

func (c Cart) count() int { return 0 }

// Plain is not tagged.
type Plain struct{ A int }

type (
	// Store persists carts.
	// index_for_vector_db
	Store interface {
		Save(c *Cart) error
		Load() (*Cart, error)
	}
)

func (p Plain) Ignored() {}

func helper() {}
`

func TestGoParser_Parse(t *testing.T) {
	p := &goParser{marker: DefaultMarker}
	recs, err := p.Parse("shop/cart.go", []byte(goSource))
	require.NoError(t, err)
	require.Len(t, recs, 2)

	cart := recs[0]
	assert.Equal(t, "Cart", cart.ClassName)
	assert.Equal(t, 6, cart.Line)
	assert.Equal(t, "Cart holds items.", cart.Docstring)
	assert.Equal(t, []string{"Items", "Total", "Tax", "Base"}, cart.Attributes)
	assert.Equal(t, []string{"Add", "count"}, cart.Methods)

	store := recs[1]
	assert.Equal(t, "Store", store.ClassName)
	assert.Equal(t, 23, store.Line)
	assert.Equal(t, "Store persists carts.", store.Docstring)
	assert.Empty(t, store.Attributes)
	assert.Equal(t, []string{"Save", "Load"}, store.Methods)
}

func TestGoParser_SyntaxError(t *testing.T) {
	p := &goParser{marker: DefaultMarker}
	_, err := p.Parse("bad.go", []byte("package x\nfunc {"))
	assert.Error(t, err)
}

func TestReceiverName(t *testing.T) {
	src := `package g

//index_for_vector_db
type List[T any] struct{ Head *T }

func (l *List[T]) Push(v T) {}
`
	p := &goParser{marker: DefaultMarker}
	recs, err := p.Parse("g.go", []byte(src))
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, []string{"Head"}, recs[0].Attributes)
	assert.Equal(t, []string{"Push"}, recs[0].Methods)
}
