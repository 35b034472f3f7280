package nvelope_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/muir/napi/nvelope"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyWriter accepts at most chunk bytes per Write and then fails
// with err.
type flakyWriter struct {
	*httptest.ResponseRecorder
	chunk int
	err   error
}

func (w *flakyWriter) Write(b []byte) (int, error) {
	if w.err == nil || len(b) <= w.chunk {
		return w.ResponseRecorder.Write(b)
	}
	n, _ := w.ResponseRecorder.Write(b[:w.chunk])
	return n, w.err
}

func TestDeferredWriterBuffers(t *testing.T) {
	rec := httptest.NewRecorder()
	rec.Header().Set("X-Request-Id", "r1")
	w := nvelope.NewDeferredWriter(rec)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_, err := w.Write([]byte(`[{"id":1,"content":"milk"}]`))
	require.NoError(t, err)

	assert.Equal(t, "r1", w.Header().Get("X-Request-Id"), "starts from the underlying headers")
	assert.Empty(t, rec.Header().Get("Content-Type"), "nothing sent before Flush")
	assert.Zero(t, rec.Body.Len())
	assert.Equal(t, http.StatusCreated, w.Status())
	assert.False(t, w.Done())

	require.NoError(t, w.Flush())
	assert.True(t, w.Done())
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, `[{"id":1,"content":"milk"}]`, rec.Body.String())

	_, err = w.Write([]byte("\n"))
	require.NoError(t, err)
	assert.Equal(t, `[{"id":1,"content":"milk"}]`+"\n", rec.Body.String(), "writes after Flush go straight through")
	require.NoError(t, w.Flush(), "second Flush is a no-op")
}

func TestDeferredWriterReset(t *testing.T) {
	rec := httptest.NewRecorder()
	w := nvelope.NewDeferredWriter(rec)
	w.Header().Set("X-Request-Id", "r2")
	w.PreserveHeader()

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Request-Id", "changed")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"id":1}`))

	w.Reset()
	assert.Equal(t, http.StatusOK, w.Status(), "status back to the default")
	assert.Equal(t, "r2", w.Header().Get("X-Request-Id"), "preserved header restored")
	assert.Empty(t, w.Header().Get("Content-Type"), "unpreserved header dropped")

	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusInternalServerError)
	_, _ = w.Write([]byte("Internal server error"))
	require.NoError(t, w.Flush())

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal server error", rec.Body.String())
	assert.Equal(t, "r2", rec.Header().Get("X-Request-Id"))
	assert.Equal(t, "text/plain", rec.Header().Get("Content-Type"))

	w.Reset()
	assert.Equal(t, http.StatusInternalServerError, w.Status(), "Reset after Flush does nothing")
}

func TestDeferredWriterShortWrites(t *testing.T) {
	cases := []struct {
		name    string
		chunk   int
		err     error
		wantErr bool
		want    string
	}{
		{name: "short writes retried", chunk: 2, err: io.ErrShortWrite, want: "Deleted note"},
		{name: "zero progress fails", chunk: 0, err: io.ErrShortWrite, wantErr: true},
		{name: "other errors fail", chunk: 4, err: errors.New("connection reset"), wantErr: true, want: "Dele"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fw := &flakyWriter{ResponseRecorder: httptest.NewRecorder(), chunk: tc.chunk, err: tc.err}
			w := nvelope.NewDeferredWriter(fw)
			_, _ = w.Write([]byte("Deleted note"))
			err := w.Flush()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tc.want, fw.Body.String())
		})
	}
}
