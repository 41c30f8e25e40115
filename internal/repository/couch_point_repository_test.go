package repository

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"sketchsync/internal/domain"

	"github.com/go-kivik/kivik/v4"
	_ "github.com/go-kivik/kivik/v4/couchdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCouch answers the document, _find and delete calls the point
// repository makes, for a single database.
type fakeCouch struct {
	mu          sync.Mutex
	docs        map[string]map[string]interface{}
	revs        int
	failDeletes bool
}

func (f *fakeCouch) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	parts := strings.SplitN(strings.TrimPrefix(r.URL.Path, "/"), "/", 2)
	if len(parts) != 2 {
		writeCouch(w, http.StatusOK, map[string]interface{}{"couchdb": "Welcome"})
		return
	}
	id := parts[1]

	switch {
	case id == "_find" && r.Method == http.MethodPost:
		var docs []map[string]interface{}
		for _, doc := range f.docs {
			if doc["kind"] == "point" {
				docs = append(docs, doc)
			}
		}
		if docs == nil {
			docs = []map[string]interface{}{}
		}
		writeCouch(w, http.StatusOK, map[string]interface{}{"docs": docs})

	case r.Method == http.MethodGet:
		doc, ok := f.docs[id]
		if !ok {
			writeCouch(w, http.StatusNotFound, map[string]string{"error": "not_found", "reason": "missing"})
			return
		}
		writeCouch(w, http.StatusOK, doc)

	case r.Method == http.MethodPut:
		var doc map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
			writeCouch(w, http.StatusBadRequest, map[string]string{"error": "bad_request", "reason": err.Error()})
			return
		}
		if existing, ok := f.docs[id]; ok && existing["_rev"] != doc["_rev"] {
			writeCouch(w, http.StatusConflict, map[string]string{"error": "conflict", "reason": "Document update conflict."})
			return
		}
		f.revs++
		doc["_id"] = id
		doc["_rev"] = fmt.Sprintf("%d-fake", f.revs)
		f.docs[id] = doc
		writeCouch(w, http.StatusCreated, map[string]interface{}{"ok": true, "id": id, "rev": doc["_rev"]})

	case r.Method == http.MethodDelete:
		if f.failDeletes {
			writeCouch(w, http.StatusInternalServerError, map[string]string{"error": "unknown_error", "reason": "disk full"})
			return
		}
		existing, ok := f.docs[id]
		if !ok {
			writeCouch(w, http.StatusNotFound, map[string]string{"error": "not_found", "reason": "deleted"})
			return
		}
		if existing["_rev"] != r.URL.Query().Get("rev") {
			writeCouch(w, http.StatusConflict, map[string]string{"error": "conflict", "reason": "Document update conflict."})
			return
		}
		delete(f.docs, id)
		writeCouch(w, http.StatusOK, map[string]interface{}{"ok": true, "id": id, "rev": "deleted"})

	default:
		writeCouch(w, http.StatusMethodNotAllowed, map[string]string{"error": "method_not_allowed", "reason": r.Method})
	}
}

func writeCouch(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func newFakeCouchRepository(t *testing.T) (PointRepository, *fakeCouch) {
	t.Helper()

	fake := &fakeCouch{docs: make(map[string]map[string]interface{})}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	client, err := kivik.New("couch", srv.URL)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	return NewCouchPointRepository(client, "sketchsync"), fake
}

func TestPointDoc_Point(t *testing.T) {
	x, y := 1.5, -2.0
	doc := pointDoc{ID: pointDocID(7), Rev: "1-a", Kind: "point", PointID: 7, X: &x, Y: &y}

	assert.True(t, doc.point().SameAs(domain.NewPoint(7, 1.5, -2)))

	sep := pointDoc{Kind: "point", PointID: 8, IsEndOfSegment: true}
	assert.True(t, sep.point().SameAs(domain.NewSeparator(8)))
}

func TestPointDocID_SortsLikeIDs(t *testing.T) {
	assert.Equal(t, "point:00000000000000000042", pointDocID(42))
	assert.Less(t, pointDocID(9), pointDocID(10))
}

func TestCouchPointRepository_PutOverwritesWithRev(t *testing.T) {
	repo, fake := newFakeCouchRepository(t)

	p := domain.NewPoint(1, 1, 1)
	require.NoError(t, repo.Put(&p))
	q := domain.NewPoint(1, 2, 2)
	require.NoError(t, repo.Put(&q))

	got, err := repo.FindByID(1)
	require.NoError(t, err)
	assert.True(t, got.SameAs(q))
	assert.Equal(t, 2, fake.revs)
}

func TestCouchPointRepository_DeleteAllFailure(t *testing.T) {
	repo, fake := newFakeCouchRepository(t)

	for _, id := range []int64{0, 1} {
		p := domain.NewPoint(id, 1, 1)
		require.NoError(t, repo.Put(&p))
	}
	fake.mu.Lock()
	fake.failDeletes = true
	fake.mu.Unlock()

	n, err := repo.DeleteAll()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to delete point")
	assert.Equal(t, 0, n)

	points, err := repo.List()
	require.NoError(t, err)
	assert.Len(t, points, 2)
}
