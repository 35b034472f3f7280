package nvelope_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/muir/napi/nvelope"
	"github.com/muir/napi/nwire"

	"github.com/stretchr/testify/assert"
	"gopkg.in/yaml.v2"
)

func TestEncodeNegotiates(t *testing.T) {
	e := nvelope.MakeResponseEncoder()
	model := map[string]interface{}{"message": "hi"}

	rec := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/x", nil)
	e.Encode(nvelope.NewDeferredWriter(rec), r, nvelope.NoLogger(), 201, model)
	assert.Equal(t, 201, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"message":"hi"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	r = httptest.NewRequest("GET", "/x", nil)
	r.Header.Set("Accept", "application/yaml")
	e.Encode(nvelope.NewDeferredWriter(rec), r, nvelope.NoLogger(), 200, model)
	assert.Equal(t, "application/yaml", rec.Header().Get("Content-Type"))
	var back map[string]interface{}
	assert.NoError(t, yaml.Unmarshal(rec.Body.Bytes(), &back))
	assert.Equal(t, "hi", back["message"])
}

func TestEncodeMarshalFailure(t *testing.T) {
	e := nvelope.MakeResponseEncoder(
		nvelope.WithFormats(nwire.NewRegistry(nwire.JSON())),
		nvelope.WithErrorEncoder(func(nvelope.BasicLogger, error) []byte { return []byte("nope") }),
	)
	rec := httptest.NewRecorder()
	w := nvelope.NewDeferredWriter(rec)
	w.Header().Set("X-Leftover", "yes")
	r := httptest.NewRequest("GET", "/x", nil)
	e.Encode(w, r, nvelope.NoLogger(), 200, map[string]interface{}{"f": func() {}})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "nope", rec.Body.String())
	assert.Empty(t, rec.Header().Get("X-Leftover"))
	assert.True(t, w.Done())
}
