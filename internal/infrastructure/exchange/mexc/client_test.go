package mexc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"duoleg/internal/application/port"
	"duoleg/internal/domain/model"
)

func testClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL, srv.URL, "test-token", []string{"WMTX_USDT"}, time.Second)
}

func TestDepth(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/contract/depth/WMTX_USDT" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Write([]byte(`{"data":{"asks":[[2.11,40,1],[2.12,90,2]],"bids":[[2.1,50,1]]}}`))
	})

	book, err := c.Depth(context.Background(), "WMTX_USDT")
	if err != nil {
		t.Fatalf("Depth: %v", err)
	}
	if book.Ask.Price != 2.11 || book.Ask.Size != 40 {
		t.Errorf("ask = %+v", book.Ask)
	}
	if book.Bid.Price != 2.1 || book.Bid.Size != 50 {
		t.Errorf("bid = %+v", book.Bid)
	}
}

func TestContractMetaFieldFallbacks(t *testing.T) {
	cases := []struct {
		body string
		want model.FuturesMeta
	}{
		{
			`{"data":{"priceScale":3,"volPrecision":1,"contractSize":100,"minVol":2}}`,
			model.FuturesMeta{PriceScale: 3, VolPrecision: 1, ContractSize: 100, MinContracts: 2},
		},
		{
			`{"data":[{"price_scale":5,"quantity_scale":0,"contract_value":20,"min_volume":1}]}`,
			model.FuturesMeta{PriceScale: 5, VolPrecision: 0, ContractSize: 20, MinContracts: 1},
		},
		{
			// Nothing recognizable: documented defaults.
			`{"data":{}}`,
			model.FuturesMeta{PriceScale: 4, VolPrecision: 0, ContractSize: 10, MinContracts: 1},
		},
	}
	for _, cse := range cases {
		c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(cse.body))
		})
		meta, err := c.ContractMeta(context.Background(), "WMTX_USDT")
		if err != nil {
			t.Fatalf("ContractMeta: %v", err)
		}
		if meta != cse.want {
			t.Errorf("meta = %+v, want %+v", meta, cse.want)
		}
	}
}

func TestSubmitOrderPayloadAndIDVariants(t *testing.T) {
	bodies := []string{
		`{"success":true,"data":{"orderId":102015012431}}`,
		`{"success":true,"data":102015012431}`,
		`{"success":true,"data":"102015012431"}`,
	}
	for _, respBody := range bodies {
		c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "test-token" {
				t.Error("web auth token missing")
			}
			var payload map[string]any
			json.NewDecoder(r.Body).Decode(&payload)
			if payload["side"] != float64(3) || payload["openType"] != float64(1) || payload["type"] != float64(1) {
				t.Errorf("payload = %v", payload)
			}
			if payload["vol"] != float64(15) || payload["leverage"] != float64(1) {
				t.Errorf("payload = %v", payload)
			}
			w.Write([]byte(respBody))
		})

		id, err := c.SubmitOrder(context.Background(), port.FuturesOrder{
			Symbol: "WMTX_USDT", Price: 2.31, Contracts: 15, Leverage: 1, SideCode: port.SideOpenShort,
		})
		if err != nil {
			t.Fatalf("SubmitOrder: %v", err)
		}
		if id != "102015012431" {
			t.Errorf("id = %q", id)
		}
	}
}

func TestSubmitOrderRejected(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":false,"code":2005,"msg":"insufficient margin"}`))
	})
	_, err := c.SubmitOrder(context.Background(), port.FuturesOrder{Symbol: "WMTX_USDT", Price: 1, Contracts: 1, SideCode: 3})
	if model.ErrKind(err) != model.KindBusiness {
		t.Errorf("kind = %s, want business", model.ErrKind(err))
	}
}

func TestOrderDetailPrechecks(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("precheck failures must not reach the venue")
	})

	if _, err := c.OrderDetail(context.Background(), "WMTX_USDT", "abc"); model.ErrKind(err) != model.KindBusiness {
		t.Errorf("non-numeric id: kind = %s", model.ErrKind(err))
	}
	if _, err := c.OrderDetail(context.Background(), "DOGE_USDT", "123"); model.ErrKind(err) != model.KindBusiness {
		t.Errorf("unsupported symbol: kind = %s", model.ErrKind(err))
	}
}

func TestOrderDetailParsing(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/private/order/get/123" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Write([]byte(`{"data":{"state":3,"vol":15,"dealVol":15,"dealAvgPrice":2.3}}`))
	})

	d, err := c.OrderDetail(context.Background(), "WMTX_USDT", "123")
	if err != nil {
		t.Fatalf("OrderDetail: %v", err)
	}
	if d.ID != "123" || d.Status != "3" || !d.IsFilled() || d.AvgPrice != 2.3 {
		t.Errorf("detail = %+v", d)
	}
}

func TestAvailableUSDT(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[{"currency":"USDT","availableBalance":512.5},{"currency":"BTC","availableBalance":1}]}`))
	})

	bal := c.AvailableUSDT(context.Background())
	if bal.Unknown || bal.Available != 512.5 {
		t.Errorf("balance = %+v", bal)
	}
}

func TestAvailableUSDTUnknownStates(t *testing.T) {
	// No token configured.
	noToken := New("http://127.0.0.1:0", "http://127.0.0.1:0", "", nil, time.Second)
	if bal := noToken.AvailableUSDT(context.Background()); !bal.Unknown || bal.Reason != "no_web_token" {
		t.Errorf("balance = %+v, want unknown no_web_token", bal)
	}

	// USDT row missing.
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[{"currency":"BTC","availableBalance":1}]}`))
	})
	if bal := c.AvailableUSDT(context.Background()); !bal.Unknown || bal.Reason != "not_found" {
		t.Errorf("balance = %+v, want unknown not_found", bal)
	}

	// Venue down.
	down := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`{"message":"upstream"}`))
	})
	if bal := down.AvailableUSDT(context.Background()); !bal.Unknown || bal.Reason != "request_error" {
		t.Errorf("balance = %+v, want unknown request_error", bal)
	}
}

func TestPrivateCallErrorNormalization(t *testing.T) {
	cases := []struct {
		status int
		body   string
		kind   model.ErrorKind
	}{
		{http.StatusUnauthorized, `{"msg":"token has expired"}`, model.KindAuth},
		{http.StatusBadRequest, `{"msg":"invalid params"}`, model.KindBusiness},
	}
	for _, cse := range cases {
		c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(cse.status)
			w.Write([]byte(cse.body))
		})
		err := c.CancelOrder(context.Background(), "WMTX_USDT", "123")
		if model.ErrKind(err) != cse.kind {
			t.Errorf("status %d: kind = %s, want %s", cse.status, model.ErrKind(err), cse.kind)
		}
	}
}

func TestPrivateCallNonJSONIsTransient(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("<html>login page</html>"))
	})
	err := c.CancelOrder(context.Background(), "WMTX_USDT", "123")
	if model.ErrKind(err) != model.KindTransient {
		t.Errorf("kind = %s, want transient", model.ErrKind(err))
	}
}
