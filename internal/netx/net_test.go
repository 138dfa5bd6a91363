package netx

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostStream(t *testing.T) {
	t.Run("success 200 OK", func(t *testing.T) {
		var gotBody, gotCT, gotMethod string

		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotMethod = r.Method
			gotCT = r.Header.Get("Content-Type")
			b, _ := io.ReadAll(r.Body)
			gotBody = string(b)
			_, _ = io.WriteString(w, "record-id\n")
		}))
		defer ts.Close()

		out, err := PostStream(context.Background(), ts.Client(), ts.URL+"/upload?s=x", strings.NewReader("hello"))
		require.NoError(t, err)
		assert.Equal(t, "record-id", out)
		assert.Equal(t, http.MethodPost, gotMethod)
		assert.Equal(t, "application/octet-stream", gotCT)
		assert.Equal(t, "hello", gotBody)
	})

	t.Run("non-200 -> StatusError", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", http.StatusUnauthorized)
		}))
		defer ts.Close()

		_, err := PostStream(context.Background(), nil, ts.URL, strings.NewReader("x"))
		var se *StatusError
		require.True(t, errors.As(err, &se))
		assert.Equal(t, http.StatusUnauthorized, se.Status)
		assert.Equal(t, "nope", se.Body)
		assert.Contains(t, err.Error(), "upload failed: 401")
	})

	t.Run("network error", func(t *testing.T) {
		ts := httptest.NewServer(http.NotFoundHandler())
		ts.Close()

		_, err := PostStream(context.Background(), nil, ts.URL, strings.NewReader("x"))
		require.Error(t, err)
		var se *StatusError
		assert.False(t, errors.As(err, &se))
	})
}
