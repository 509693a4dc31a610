package betsite

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

const historyPageHTML = `<!DOCTYPE html>
<html><body>
<h3>Head to Head</h3>
<table>
<tr><th>Date</th><th>Result</th></tr>
<tr><td>2026-05-01</td><td>Goias 2 - 1 Avai</td></tr>
<tr><td>2026-03-12</td><td>Avai 0 - 0 Goias</td></tr>
<tr><td>TBD</td><td>Goias vs Avai</td></tr>
<tr><td>2026-09-10 12:30</td><td>Postponed</td></tr>
</table>
<h3>Home - last matches</h3>
<table>
<tr><td>Goias 3 x 1 Vila Nova</td></tr>
</table>
<div class="card-header">Fora</div>
<table>
<tr><td>CRB 1:2 Avai</td></tr>
<tr><td>Avai 0:1 Sport</td></tr>
</table>
<h3>Standings</h3>
<table>
<tr><td>1. Goias 45pts</td></tr>
</table>
</body></html>`

func TestParseMatchHistory(t *testing.T) {
	mh, err := ParseMatchHistory([]byte(historyPageHTML))
	if err != nil {
		t.Fatalf("ParseMatchHistory: %v", err)
	}

	if len(mh.H2H) != 2 {
		t.Fatalf("h2h items = %d, want 2", len(mh.H2H))
	}
	if mh.H2H[0].Home != 2 || mh.H2H[0].Away != 1 || mh.H2H[0].Total != 3 {
		t.Fatalf("h2h[0] = %+v", mh.H2H[0])
	}
	if len(mh.Home) != 1 || mh.Home[0].Total != 4 {
		t.Fatalf("home items = %+v", mh.Home)
	}
	if len(mh.Away) != 2 || mh.Away[0].Home != 1 || mh.Away[0].Away != 2 {
		t.Fatalf("away items = %+v", mh.Away)
	}
}

func TestParseMatchHistoryNoSections(t *testing.T) {
	mh, err := ParseMatchHistory([]byte(`<html><body><table><tr><td>Corners</td><td>5</td><td>3</td></tr></table></body></html>`))
	if err != nil {
		t.Fatalf("ParseMatchHistory: %v", err)
	}
	if len(mh.H2H) != 0 || len(mh.Home) != 0 || len(mh.Away) != 0 {
		t.Fatalf("unexpected items from a stats-only page: %+v", mh)
	}
}

func TestFetchMatchHistory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/r/777" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(historyPageHTML))
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{BaseURL: srv.URL})
	mh, err := client.FetchMatchHistory(context.Background(), "777")
	if err != nil {
		t.Fatalf("FetchMatchHistory: %v", err)
	}
	if len(mh.H2H) != 2 {
		t.Fatalf("h2h items = %d, want 2", len(mh.H2H))
	}
}
