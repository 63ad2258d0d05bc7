package strategylab

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewClient(t *testing.T) {
	baseURL := "http://localhost:8080"
	c := NewClient(baseURL + "/")

	if c == nil {
		t.Fatal("expected non-nil client")
	}

	if c.baseURL != baseURL {
		t.Errorf("expected baseURL %q, got %q", baseURL, c.baseURL)
	}

	if c.httpClient == nil {
		t.Fatal("expected non-nil httpClient")
	}
}

func testServer(t *testing.T) *Client {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/backtests", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if body["symbol"] == "FAIL" {
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]string{"error": "saving failed", "resultId": "r-9"})
			return
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{
			"id": "r-1", "userId": body["userId"], "symbol": body["symbol"], "strategy": body["strategy"],
		})
	})
	mux.HandleFunc("GET /api/backtests/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "r-1" {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]string{"error": "not found"})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"id": "r-1", "finalBalance": 10500.5})
	})
	mux.HandleFunc("GET /api/backtests", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"count":   1,
			"results": []map[string]any{{"id": "r-1", "symbol": r.URL.Query().Get("symbol"), "userId": r.URL.Query().Get("userId")}},
		})
	})
	mux.HandleFunc("GET /api/strategies", func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"strategies": []map[string]string{{"type": "SMA_CROSSOVER", "description": "cross"}},
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL)
}

func TestRunBacktest(t *testing.T) {
	c := testServer(t)
	res, err := c.RunBacktest(context.Background(), "u1", StrategyConfig{Symbol: "AAPL", Strategy: "SMA_CROSSOVER"})
	if err != nil {
		t.Fatalf("RunBacktest returned error: %v", err)
	}
	if res.ID != "r-1" || res.UserID != "u1" || res.Symbol != "AAPL" || res.StrategyType != "SMA_CROSSOVER" {
		t.Errorf("RunBacktest = %+v", res)
	}

	_, err = c.RunBacktest(context.Background(), "", StrategyConfig{Symbol: "FAIL"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("RunBacktest error = %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusInternalServerError || apiErr.ResultID != "r-9" || apiErr.Message != "saving failed" {
		t.Errorf("APIError = %+v", apiErr)
	}
}

func TestGetBacktest(t *testing.T) {
	c := testServer(t)
	res, err := c.GetBacktest(context.Background(), "r-1")
	if err != nil {
		t.Fatalf("GetBacktest returned error: %v", err)
	}
	if res.FinalBalance != 10500.5 {
		t.Errorf("FinalBalance = %v, want 10500.5", res.FinalBalance)
	}

	_, err = c.GetBacktest(context.Background(), "nope")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusNotFound {
		t.Errorf("GetBacktest(nope) error = %v, want 404", err)
	}
}

func TestListBacktestsAndStrategies(t *testing.T) {
	c := testServer(t)
	rows, err := c.ListBacktests(context.Background(), ListOptions{UserID: "u1", Symbol: "MSFT", Limit: 3})
	if err != nil {
		t.Fatalf("ListBacktests returned error: %v", err)
	}
	if len(rows) != 1 || rows[0].Symbol != "MSFT" || rows[0].UserID != "u1" {
		t.Errorf("ListBacktests = %+v", rows)
	}

	strategies, err := c.ListStrategies(context.Background())
	if err != nil {
		t.Fatalf("ListStrategies returned error: %v", err)
	}
	if len(strategies) != 1 || strategies[0].Type != "SMA_CROSSOVER" {
		t.Errorf("ListStrategies = %+v", strategies)
	}
}
