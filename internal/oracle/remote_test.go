package oracle

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRemoteOracle_Predict(t *testing.T) {
	var gotPath, gotContentType string
	var gotReq scoreRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotContentType = r.Header.Get("Content-Type")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(scoreResponse{Probabilities: [][]float64{{0.2, 0.8}}})
	}))
	defer srv.Close()

	o := NewRemoteOracle(srv.URL)
	rows, err := o.Predict(context.Background(), [][]float64{{100, 0.01, 5, 3, 0}})
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}

	if gotPath != "/v1/score" {
		t.Errorf("path = %q, want /v1/score", gotPath)
	}
	if gotContentType != "application/json" {
		t.Errorf("content type = %q", gotContentType)
	}
	if len(gotReq.Vectors) != 1 || len(gotReq.Vectors[0]) != 5 {
		t.Errorf("request vectors = %v", gotReq.Vectors)
	}
	if len(rows) != 1 || rows[0][1] != 0.8 {
		t.Errorf("rows = %v, want [[0.2 0.8]]", rows)
	}
}

func TestRemoteOracle_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model unavailable", http.StatusInternalServerError)
	}))
	defer srv.Close()

	o := NewRemoteOracle(srv.URL)
	if _, err := o.Predict(context.Background(), [][]float64{{1, 2, 3, 4, 5}}); err == nil {
		t.Fatal("expected error for 500 response")
	}
}

func TestRemoteOracle_RowCountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(scoreResponse{Probabilities: [][]float64{}})
	}))
	defer srv.Close()

	o := NewRemoteOracle(srv.URL)
	if _, err := o.Predict(context.Background(), [][]float64{{1, 2, 3, 4, 5}}); err == nil {
		t.Fatal("expected error for missing probability rows")
	}
}

func TestRemoteOracle_MalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("{not json"))
	}))
	defer srv.Close()

	o := NewRemoteOracle(srv.URL)
	if _, err := o.Predict(context.Background(), [][]float64{{1, 2, 3, 4, 5}}); err == nil {
		t.Fatal("expected error for malformed response")
	}
}

func TestRemoteOracle_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	o := NewRemoteOracle(srv.URL)
	if _, err := o.Predict(context.Background(), [][]float64{{1, 2, 3, 4, 5}}); err == nil {
		t.Fatal("expected error when scorer is unreachable")
	}
}
