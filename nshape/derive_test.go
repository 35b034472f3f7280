package nshape_test

import (
	"testing"

	"github.com/muir/napi/nshape"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Base struct {
	ID int64 `json:"id"`
}

type Item struct {
	Base
	Name    string   `json:"name" nshape:"nonempty"`
	Tags    []string `json:"tags,omitempty"`
	Count   uint8    `json:"count"`
	Ratio   *float64 `json:"ratio"`
	Ignored string   `json:"-"`
	hidden  string
}

type Path struct {
	ID    int64   `json:"id" nshape:"fromstring,min=1"`
	Scale float64 `json:"scale" nshape:"fromstring"`
}

func TestDeriveStruct(t *testing.T) {
	s, err := nshape.For[Item]()
	require.NoError(t, err)
	assert.Equal(t, nshape.KindStruct, s.Kind())

	names := map[string]bool{}
	for _, f := range nshape.Fields(s) {
		names[f.Name] = f.Optional
	}
	assert.Equal(t, map[string]bool{
		"id":    false,
		"name":  false,
		"tags":  true,
		"count": false,
		"ratio": true,
	}, names)

	assert.NoError(t, nshape.Validate(s, map[string]interface{}{
		"id": int64(1), "name": "n", "count": int64(3),
	}))
	assert.Error(t, nshape.Validate(s, map[string]interface{}{
		"id": int64(1), "name": "", "count": int64(3),
	}), "nonempty")
	assert.Error(t, nshape.Validate(s, map[string]interface{}{
		"id": int64(1), "name": "n", "count": int64(-3),
	}), "unsigned")
}

func TestDeriveFromString(t *testing.T) {
	s, err := nshape.For[Path]()
	require.NoError(t, err)
	v, err := nshape.Decode(s, map[string]interface{}{"id": "12", "scale": "0.5"})
	require.NoError(t, err)

	var p Path
	require.NoError(t, nshape.ToGo(v, &p))
	assert.Equal(t, Path{ID: 12, Scale: 0.5}, p)

	_, err = nshape.Decode(s, map[string]interface{}{"id": "0", "scale": "1"})
	assert.Error(t, err, "min=1")
}

func TestDeriveErrors(t *testing.T) {
	type bad struct {
		C chan int `json:"c"`
	}
	_, err := nshape.For[bad]()
	assert.Error(t, err)

	type badTag struct {
		S string `json:"s" nshape:"fromstring"`
	}
	_, err = nshape.For[badTag]()
	assert.Error(t, err)

	type unknownTag struct {
		S string `json:"s" nshape:"shiny"`
	}
	_, err = nshape.For[unknownTag]()
	assert.Error(t, err)

	type loop struct {
		Next []loop `json:"next"`
	}
	_, err = nshape.For[loop]()
	assert.Error(t, err)

	assert.Panics(t, func() { nshape.MustFor[bad]() })
}

func TestFromGoToGo(t *testing.T) {
	s := nshape.MustFor[Item]()
	ratio := 0.25
	item := Item{
		Base:    Base{ID: 4},
		Name:    "widget",
		Count:   2,
		Ratio:   &ratio,
		Ignored: "dropped",
		hidden:  "dropped",
	}
	v, err := nshape.FromGo(item)
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{
		"id": int64(4), "name": "widget", "count": int64(2), "ratio": 0.25,
	}, v)
	require.NoError(t, nshape.Validate(s, v))

	var back Item
	require.NoError(t, nshape.ToGo(v, &back))
	item.Ignored = ""
	item.hidden = ""
	assert.Equal(t, item, back)

	list, err := nshape.FromGo([]Item(nil))
	require.NoError(t, err)
	assert.Equal(t, []interface{}{}, list, "nil slices encode as empty arrays")

	var small struct {
		N int8 `json:"n"`
	}
	assert.Error(t, nshape.ToGo(map[string]interface{}{"n": int64(300)}, &small))
	assert.Error(t, nshape.ToGo(map[string]interface{}{"n": "x"}, &small))
	assert.Error(t, nshape.ToGo(map[string]interface{}{}, small), "not a pointer")

	var anything interface{}
	require.NoError(t, nshape.ToGo("plain", &anything))
	assert.Equal(t, "plain", anything)
}
