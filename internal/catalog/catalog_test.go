package catalog_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"bidquiz-server/internal/catalog"
)

func TestIsCorrect(t *testing.T) {
	q := catalog.Question{Number: 1, Correct: "Paris"}

	require.True(t, q.IsCorrect("Paris"))
	require.True(t, q.IsCorrect("paris"))
	require.True(t, q.IsCorrect("  PARIS  "))
	require.False(t, q.IsCorrect("London"))
	require.False(t, q.IsCorrect(""))
}

func TestNewRejectsInvalidNumbers(t *testing.T) {
	_, err := catalog.New([]catalog.Question{{Number: 0, Correct: "x"}})
	require.Error(t, err)

	_, err = catalog.New([]catalog.Question{
		{Number: 1, Correct: "a"},
		{Number: 1, Correct: "b"},
	})
	require.Error(t, err)
}

func TestGetAndListOrdered(t *testing.T) {
	cat, err := catalog.New([]catalog.Question{
		{Number: 3, Correct: "c"},
		{Number: 1, Correct: "a"},
		{Number: 2, Correct: "b"},
	})
	require.NoError(t, err)
	require.Equal(t, 3, cat.Len())

	q, ok := cat.Get(2)
	require.True(t, ok)
	require.Equal(t, "b", q.Correct)

	_, ok = cat.Get(99)
	require.False(t, ok)

	list := cat.List()
	require.Equal(t, []int{1, 2, 3}, []int{list[0].Number, list[1].Number, list[2].Number})
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "questions.json")
	data := `[
		{"number": 1, "text": "Capital of France?", "options": ["Paris", "London"], "correct": "Paris", "timeLimit": 30},
		{"number": 2, "text": "2+2?", "options": ["3", "4"], "correct": "4"}
	]`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cat, err := catalog.LoadFile(path)
	require.NoError(t, err)
	require.Equal(t, 2, cat.Len())

	q, ok := cat.Get(1)
	require.True(t, ok)
	require.Equal(t, "Capital of France?", q.Text)
	require.Equal(t, 30, q.TimeLimit)

	_, err = catalog.LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}

func TestClientFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/questions", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"number": 1, "text": "q", "options": ["a", "b"], "correct": "a"}]`))
	}))
	defer srv.Close()

	client := catalog.NewClient(srv.URL, zap.NewNop())
	cat, err := client.Fetch(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, cat.Len())
}

func TestClientFetchServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := catalog.NewClient(srv.URL, zap.NewNop())
	_, err := client.Fetch(context.Background())
	require.Error(t, err)
}
