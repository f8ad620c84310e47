package connectors

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/electwix/chartcache/internal/dataset"
)

func TestURLConnectorFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		_, _ = w.Write([]byte("city,population\nBerlin,3755251\nHamburg,1892122\n"))
	}))
	defer srv.Close()

	c := NewURLConnector(srv.URL, srv.Client())
	got, err := c.Fetch(context.Background(), c.Params())
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}

	want, err := dataset.New(
		dataset.Column{Name: "city", Kind: dataset.KindString, Values: []dataset.Value{
			dataset.String("Berlin"), dataset.String("Hamburg"),
		}},
		dataset.Column{Name: "population", Kind: dataset.KindNumber, Values: []dataset.Value{
			dataset.Number(3755251), dataset.Number(1892122),
		}},
	)
	if err != nil {
		t.Fatalf("building expectation: %v", err)
	}
	if !got.Equal(want) {
		t.Errorf("Fetch() = %#v, want %#v", got, want)
	}
}

func TestURLConnectorFetchStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewURLConnector(srv.URL, srv.Client())
	_, err := c.Fetch(context.Background(), c.Params())
	if err == nil {
		t.Fatal("Fetch() did not fail on 404")
	}
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("Fetch() error %T, want *FetchError", err)
	}
}

func TestURLConnectorFetchBadBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("a,b\n\"unbalanced\n"))
	}))
	defer srv.Close()

	c := NewURLConnector(srv.URL, srv.Client())
	if _, err := c.Fetch(context.Background(), c.Params()); err == nil {
		t.Fatal("Fetch() did not fail on a malformed body")
	}
}

func TestURLConnectorFetchConnectionRefused(t *testing.T) {
	c := NewURLConnector("http://127.0.0.1:1/data.csv", nil)
	_, err := c.Fetch(context.Background(), c.Params())
	if err == nil {
		t.Fatal("Fetch() did not fail on a refused connection")
	}
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("Fetch() error %T, want *FetchError", err)
	}
}

func TestURLConnectorSourceID(t *testing.T) {
	c := NewURLConnector("https://example.com/data.csv", nil)
	if got, want := c.SourceID(), "url:https://example.com/data.csv"; got != want {
		t.Errorf("SourceID() = %q, want %q", got, want)
	}
}
