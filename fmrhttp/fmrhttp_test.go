package fmrhttp_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nicholastmosher/flipper/carbon"
	"github.com/nicholastmosher/flipper/client"
	"github.com/nicholastmosher/flipper/fmr"
	"github.com/nicholastmosher/flipper/fmrhttp"
	"github.com/nicholastmosher/flipper/transport"
)

func feedReturn(m *transport.Mock, value uint64, errByte uint8) {
	buf := fmr.EncodeReturn(fmr.Return{Value: value, Error: errByte})
	m.Feed(buf[:])
}

func newTestServer() (*fmrhttp.Server, *transport.Mock, *transport.Mock) {
	atmegaMock := transport.NewMock()
	atsamMock := transport.NewMock()
	dev := carbon.NewFromClients(client.New(atmegaMock), client.New(atsamMock), carbon.DefaultATMEGAModules)
	return fmrhttp.NewServer(dev, nil), atmegaMock, atsamMock
}

func TestHandleState(t *testing.T) {
	srv, _, _ := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/state", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body["atmegau2"] != "idle" || body["atsam4s"] != "idle" {
		t.Errorf("body = %+v, want both idle", body)
	}
}

func TestHandleModulesEmptyInitially(t *testing.T) {
	srv, _, _ := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/modules", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	var body struct {
		Atmegau2 []string `json:"atmegau2"`
		Atsam4s  []string `json:"atsam4s"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(body.Atmegau2) != 0 || len(body.Atsam4s) != 0 {
		t.Errorf("body = %+v, want no modules loaded yet", body)
	}
}

func TestHandleRoutingReturnsYAML(t *testing.T) {
	srv, _, _ := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/routing", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if ct := rec.Header().Get("Content-Type"); ct != "application/x-yaml" {
		t.Errorf("content-type = %q, want application/x-yaml", ct)
	}
	if !bytes.Contains(rec.Body.Bytes(), []byte("led")) {
		t.Errorf("body = %q, want it to mention led", rec.Body.String())
	}
}

func TestHandleDebugInvoke(t *testing.T) {
	srv, atmegaMock, _ := newTestServer()
	feedReturn(atmegaMock, 0, 0) // dyld "led"
	feedReturn(atmegaMock, 42, 0) // call return

	body, _ := json.Marshal(map[string]interface{}{"args": []uint64{1, 2, 3}})
	req := httptest.NewRequest(http.MethodPost, "/debug/led/0", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Value uint64 `json:"value"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Value != 42 {
		t.Errorf("value = %d, want 42", resp.Value)
	}
}

func TestHandleDebugInvokeMapsInvocationErrorTo422(t *testing.T) {
	srv, atmegaMock, _ := newTestServer()
	feedReturn(atmegaMock, 0, 0) // dyld "led"
	feedReturn(atmegaMock, 0, 9) // call fails with firmware code 9

	req := httptest.NewRequest(http.MethodPost, "/debug/led/0", bytes.NewReader([]byte(`{"args":[]}`)))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
}
