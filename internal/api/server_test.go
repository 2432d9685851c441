package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dgnsrekt/chart_vault/internal/chart"
	"github.com/dgnsrekt/chart_vault/internal/chartimg"
	"github.com/dgnsrekt/chart_vault/internal/fault"
	"github.com/dgnsrekt/chart_vault/internal/images"
	"github.com/dgnsrekt/chart_vault/internal/objstore"
	"github.com/dgnsrekt/chart_vault/internal/store"
)

type fakeGenerator struct {
	err error
}

func (f *fakeGenerator) Generate(ctx context.Context, req chartimg.Request, opts ...chartimg.CallOption) (chartimg.Generation, error) {
	if f.err != nil {
		return chartimg.Generation{}, f.err
	}
	image := []byte("\x89PNG fake render")
	return chartimg.Generation{
		Image:       image,
		ContentType: "image/png",
		Size:        len(image),
		Meta: chartimg.Meta{
			Symbol:      req.Symbol,
			Interval:    req.Interval,
			Width:       req.Width,
			Height:      req.Height,
			Theme:       req.Theme,
			GeneratedAt: time.Now().UTC(),
		},
	}, nil
}

func newTestServer(t *testing.T, gen chart.Generator) (*httptest.Server, *objstore.MemBucket) {
	t.Helper()

	bucket := objstore.NewMemBucket()
	chartSvc := chart.NewService(gen, chart.Policy{
		MaxPixels:        1920 * 1080,
		AllowedExchanges: []string{"BINANCE", "DRIFT"},
		PopularTokens:    []string{"BTC", "SOL"},
		DefaultTimeout:   time.Second,
		FastTimeout:      time.Second,
	})
	storeSvc := store.NewService(bucket, "cdn.example.com")
	imageSvc := images.NewService(storeSvc)

	srv := httptest.NewServer(NewServer(chartSvc, storeSvc, imageSvc))
	t.Cleanup(srv.Close)
	return srv, bucket
}

func postJSON(t *testing.T, url string, payload string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", bytes.NewReader([]byte(payload)))
	if err != nil {
		t.Fatalf("POST %s failed: %v", url, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer func() {
		_ = resp.Body.Close()
	}()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode response body: %v", err)
	}
}

func TestCreateImageEndToEnd(t *testing.T) {
	srv, _ := newTestServer(t, &fakeGenerator{})

	resp := postJSON(t, srv.URL+"/image",
		`{"symbol":"DRIFT:SOL-PERP","interval":"1D","width":800,"height":600,"theme":"dark"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d; want 200", resp.StatusCode)
	}

	var body struct {
		Success bool `json:"success"`
		Data    struct {
			FileName  string `json:"fileName"`
			PublicURL string `json:"publicUrl"`
			Symbol    string `json:"symbol"`
			Size      int64  `json:"size"`
			ETag      string `json:"etag"`
		} `json:"data"`
	}
	decodeBody(t, resp, &body)

	if !body.Success {
		t.Fatal("success = false; want true")
	}
	if !strings.HasSuffix(body.Data.FileName, ".png") {
		t.Fatalf("fileName = %q; want .png suffix", body.Data.FileName)
	}
	if !strings.HasPrefix(body.Data.PublicURL, "https://") {
		t.Fatalf("publicUrl = %q; want https:// prefix", body.Data.PublicURL)
	}
	if body.Data.Symbol != "DRIFT:SOL-PERP" || body.Data.Size == 0 || body.Data.ETag == "" {
		t.Fatalf("data = %+v", body.Data)
	}
}

func TestCreateImageAppliesDefaults(t *testing.T) {
	srv, _ := newTestServer(t, &fakeGenerator{})

	resp := postJSON(t, srv.URL+"/image", `{}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d; want 200", resp.StatusCode)
	}

	var body struct {
		Data struct {
			Symbol   string `json:"symbol"`
			Interval string `json:"interval"`
			Width    int    `json:"width"`
			Height   int    `json:"height"`
			Theme    string `json:"theme"`
		} `json:"data"`
	}
	decodeBody(t, resp, &body)

	if body.Data.Symbol != "BINANCE:BTCUSDT" || body.Data.Interval != "1D" ||
		body.Data.Width != 800 || body.Data.Height != 600 || body.Data.Theme != "dark" {
		t.Fatalf("defaults = %+v", body.Data)
	}
}

func TestCreateImageBlocklistedSymbol(t *testing.T) {
	srv, _ := newTestServer(t, &fakeGenerator{})

	resp := postJSON(t, srv.URL+"/image", `{"symbol":"TEST:FOO"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d; want 400", resp.StatusCode)
	}

	var body struct {
		Success bool   `json:"success"`
		Message string `json:"error"`
	}
	decodeBody(t, resp, &body)

	if body.Success {
		t.Fatal("success = true; want false")
	}
	if !strings.Contains(body.Message, "TEST:FOO") || !strings.Contains(body.Message, "not supported") {
		t.Fatalf("error = %q; want unsupported-symbol message", body.Message)
	}
}

func TestListAndStatsEndpoints(t *testing.T) {
	srv, _ := newTestServer(t, &fakeGenerator{})

	resp := postJSON(t, srv.URL+"/image", `{"symbol":"DRIFT:SOL-PERP"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("create status = %d; want 200", resp.StatusCode)
	}
	_ = resp.Body.Close()

	listResp, err := http.Get(srv.URL + "/image/list?symbol=DRIFT:SOL-PERP")
	if err != nil {
		t.Fatalf("GET list failed: %v", err)
	}
	var listBody struct {
		Success bool `json:"success"`
		Data    struct {
			Images  []store.ImageDetails `json:"images"`
			Count   int                  `json:"count"`
			HasMore bool                 `json:"hasMore"`
		} `json:"data"`
	}
	decodeBody(t, listResp, &listBody)

	if !listBody.Success || listBody.Data.Count != 1 || len(listBody.Data.Images) != 1 {
		t.Fatalf("list body = %+v", listBody)
	}
	if listBody.Data.Images[0].Metadata == nil {
		t.Fatal("listed image missing metadata")
	}

	statsResp, err := http.Get(srv.URL + "/image/stats")
	if err != nil {
		t.Fatalf("GET stats failed: %v", err)
	}
	var statsBody struct {
		Success bool              `json:"success"`
		Data    images.Statistics `json:"data"`
	}
	decodeBody(t, statsResp, &statsBody)

	if !statsBody.Success || statsBody.Data.TotalImages != 1 {
		t.Fatalf("stats body = %+v", statsBody)
	}
}

func TestGetImageReturnsBytesAnd404(t *testing.T) {
	srv, _ := newTestServer(t, &fakeGenerator{})

	resp := postJSON(t, srv.URL+"/image", `{}`)
	var created struct {
		Data struct {
			FileName string `json:"fileName"`
		} `json:"data"`
	}
	decodeBody(t, resp, &created)

	imgResp, err := http.Get(srv.URL + "/image/" + created.Data.FileName)
	if err != nil {
		t.Fatalf("GET image failed: %v", err)
	}
	defer func() {
		_ = imgResp.Body.Close()
	}()
	if imgResp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d; want 200", imgResp.StatusCode)
	}
	if ct := imgResp.Header.Get("Content-Type"); ct != "image/png" {
		t.Fatalf("content type = %q; want image/png", ct)
	}

	missingResp, err := http.Get(srv.URL + "/image/missing.png")
	if err != nil {
		t.Fatalf("GET missing image failed: %v", err)
	}
	_ = missingResp.Body.Close()
	if missingResp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d; want 404", missingResp.StatusCode)
	}
}

func TestGetImageUsesStoredContentType(t *testing.T) {
	srv, bucket := newTestServer(t, &fakeGenerator{})

	_, err := bucket.Put(context.Background(), store.KeyPrefix+"legacy.jpeg", []byte("jpeg bytes"), objstore.PutOptions{
		ContentType: "image/jpeg",
	})
	if err != nil {
		t.Fatalf("Put() = %v; want nil", err)
	}

	resp, err := http.Get(srv.URL + "/image/legacy.jpeg")
	if err != nil {
		t.Fatalf("GET image failed: %v", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d; want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/jpeg" {
		t.Fatalf("content type = %q; want image/jpeg", ct)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	srv, _ := newTestServer(t, &fakeGenerator{})

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/image/never-existed.png", nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d; want 200", resp.StatusCode)
	}

	var body struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	decodeBody(t, resp, &body)
	if !body.Success || body.Message == "" {
		t.Fatalf("body = %+v", body)
	}
}

func TestCleanupEndpointDefaults(t *testing.T) {
	srv, _ := newTestServer(t, &fakeGenerator{})

	resp := postJSON(t, srv.URL+"/image/cleanup", `{}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d; want 200", resp.StatusCode)
	}

	var body struct {
		Success bool `json:"success"`
		Data    struct {
			DeletedCount  int `json:"deletedCount"`
			OlderThanDays int `json:"olderThanDays"`
		} `json:"data"`
	}
	decodeBody(t, resp, &body)

	if !body.Success || body.Data.OlderThanDays != 30 || body.Data.DeletedCount != 0 {
		t.Fatalf("body = %+v", body)
	}
}

func TestProviderFailureMapsTo502(t *testing.T) {
	srv, _ := newTestServer(t, &fakeGenerator{err: fault.New(fault.CodeProvider, "chart provider returned status 500")})

	resp := postJSON(t, srv.URL+"/image", `{"symbol":"BINANCE:ETHUSDT"}`)
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("status = %d; want 502", resp.StatusCode)
	}
}

func TestProviderTimeoutMapsTo504(t *testing.T) {
	srv, _ := newTestServer(t, &fakeGenerator{err: &fault.CodedError{
		Code:    fault.CodeProviderTimeout,
		Message: "chart generation timed out after 1s",
		Status:  http.StatusRequestTimeout,
	}})

	resp := postJSON(t, srv.URL+"/image", `{"symbol":"BINANCE:ETHUSDT"}`)
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusGatewayTimeout {
		t.Fatalf("status = %d; want 504", resp.StatusCode)
	}
}
