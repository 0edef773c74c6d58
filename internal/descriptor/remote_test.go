package descriptor

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/klauspost/compress/zstd"

	"github.com/tensorplex-labs/simsal/internal/config"
	"github.com/tensorplex-labs/simsal/internal/imaging"
)

func newTestRemote(t *testing.T, handler http.HandlerFunc, mutate func(*config.DescriptorEnvConfig)) *Remote {
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	cfg := &config.DescriptorEnvConfig{
		DescriptorURL:     ts.URL,
		DescriptorTimeout: 5 * time.Second,
	}
	if mutate != nil {
		mutate(cfg)
	}

	r, err := NewRemote(cfg)
	if err != nil {
		t.Fatalf("new remote: %v", err)
	}
	return r
}

func readDescribeRequest(t *testing.T, r *http.Request) DescribeRequest {
	t.Helper()

	var body io.Reader = r.Body
	if r.Header.Get("Content-Encoding") == "zstd" {
		dec, err := zstd.NewReader(r.Body)
		if err != nil {
			t.Errorf("zstd reader: %v", err)
			return DescribeRequest{}
		}
		defer dec.Close()
		body = dec
	}

	raw, err := io.ReadAll(body)
	if err != nil {
		t.Errorf("read body: %v", err)
		return DescribeRequest{}
	}

	var req DescribeRequest
	if err := sonic.Unmarshal(raw, &req); err != nil {
		t.Errorf("decode body: %v", err)
	}
	return req
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(body))
}

func TestNewRemote_NilConfig(t *testing.T) {
	_, err := NewRemote(nil)
	if err == nil {
		t.Fatalf("expected error when cfg is nil")
	}
}

func TestDescribe_Success(t *testing.T) {
	r := newTestRemote(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != DescribePath || r.Method != http.MethodPost {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		req := readDescribeRequest(t, r)
		if req.Height != 2 || req.Width != 1 || req.Channels != 1 || len(req.Pixels) != 2 {
			writeJSON(w, http.StatusBadRequest, `{"error":"bad shape"}`)
			return
		}
		writeJSON(w, http.StatusOK, `{"descriptor":[0.5,1.5,2.5]}`)
	}, nil)

	img := &imaging.Image{Height: 2, Width: 1, Channels: 1, Pix: []float64{1, 2}}
	got, err := r.Describe(context.Background(), img)
	if err != nil {
		t.Fatalf("Describe error: %v", err)
	}
	if len(got) != 3 || got[0] != 0.5 || got[2] != 2.5 {
		t.Fatalf("unexpected descriptor: %v", got)
	}
}

func TestDescribe_Zstd(t *testing.T) {
	var sawEncoding atomic.Bool
	r := newTestRemote(t, func(w http.ResponseWriter, r *http.Request) {
		sawEncoding.Store(r.Header.Get("Content-Encoding") == "zstd")
		req := readDescribeRequest(t, r)
		if len(req.Pixels) != 4 || req.Pixels[3] != 4 {
			writeJSON(w, http.StatusBadRequest, `{"error":"bad pixels"}`)
			return
		}
		writeJSON(w, http.StatusOK, `{"descriptor":[7]}`)
	}, func(cfg *config.DescriptorEnvConfig) { cfg.DescriptorZstd = true })

	img := &imaging.Image{Height: 2, Width: 2, Channels: 1, Pix: []float64{1, 2, 3, 4}}
	got, err := r.Describe(context.Background(), img)
	if err != nil {
		t.Fatalf("Describe error: %v", err)
	}
	if !sawEncoding.Load() {
		t.Fatalf("expected zstd content encoding")
	}
	if len(got) != 1 || got[0] != 7 {
		t.Fatalf("unexpected descriptor: %v", got)
	}
}

func TestDescribe_HTTPError(t *testing.T) {
	r := newTestRemote(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("bad"))
	}, nil)

	_, err := r.Describe(context.Background(), imaging.New(1, 1, 1))
	if err == nil {
		t.Fatalf("expected error")
	}
}

func TestDescribe_ResponseErrorField(t *testing.T) {
	r := newTestRemote(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"descriptor":[],"error":"model not loaded"}`)
	}, nil)

	_, err := r.Describe(context.Background(), imaging.New(1, 1, 1))
	if err == nil {
		t.Fatalf("expected error")
	}
}

func TestDescribe_EmptyDescriptor(t *testing.T) {
	r := newTestRemote(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"descriptor":[]}`)
	}, nil)

	_, err := r.Describe(context.Background(), imaging.New(1, 1, 1))
	if err == nil {
		t.Fatalf("expected error")
	}
}

func TestDescribe_InvalidImage(t *testing.T) {
	var calls atomic.Int32
	r := newTestRemote(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusOK, `{"descriptor":[1]}`)
	}, nil)

	_, err := r.Describe(context.Background(), &imaging.Image{Height: 2, Width: 2, Channels: 1, Pix: []float64{1}})
	if err == nil {
		t.Fatalf("expected error")
	}
	if calls.Load() != 0 {
		t.Fatalf("invalid image must not reach the service")
	}
}

func TestDescribe_RetriesServerError(t *testing.T) {
	var calls atomic.Int32
	r := newTestRemote(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, http.StatusOK, `{"descriptor":[3]}`)
	}, func(cfg *config.DescriptorEnvConfig) { cfg.DescriptorRetries = 2 })

	got, err := r.Describe(context.Background(), imaging.New(1, 1, 1))
	if err != nil {
		t.Fatalf("Describe error: %v", err)
	}
	if calls.Load() != 2 || got[0] != 3 {
		t.Fatalf("calls=%d descriptor=%v", calls.Load(), got)
	}
}

func TestRemoteGenerateArrays_Order(t *testing.T) {
	r := newTestRemote(t, func(w http.ResponseWriter, r *http.Request) {
		req := readDescribeRequest(t, r)
		raw, _ := sonic.MarshalString(DescribeResponse{Descriptor: []float64{req.Pixels[0]}})
		writeJSON(w, http.StatusOK, raw)
	}, nil)

	images := []*imaging.Image{
		imaging.NewFilled(1, 1, 1, 10),
		imaging.NewFilled(1, 1, 1, 20),
		imaging.NewFilled(1, 1, 1, 30),
	}

	var got []float64
	for descr, err := range r.GenerateArrays(context.Background(), Images(images...)) {
		if err != nil {
			t.Fatalf("GenerateArrays error: %v", err)
		}
		got = append(got, descr[0])
	}
	if len(got) != 3 || got[0] != 10 || got[1] != 20 || got[2] != 30 {
		t.Fatalf("unexpected order: %v", got)
	}
}
