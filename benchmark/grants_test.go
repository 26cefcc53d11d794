package benchmark

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/doodlesbykumbi/who-can-in-go/pkg/audit"
	"github.com/doodlesbykumbi/who-can-in-go/pkg/server"
	"github.com/doodlesbykumbi/who-can-in-go/pkg/server/endpoints"
	"github.com/doodlesbykumbi/who-can-in-go/pkg/store/memory"
	"github.com/doodlesbykumbi/who-can-in-go/pkg/whocan"
)

const checkBody = `{"identifier":"u1","action":"read","target":{"type":"doc","id":"1"}}`

func BenchmarkCheckHandler(b *testing.B) {
	mem := memory.New()
	w := whocan.New(mem, whocan.WithAudit(audit.Discard))
	if err := w.Allow(context.Background(), "u1", "read", "doc1"); err != nil {
		b.Fatal(err)
	}

	s := server.NewServer(w, mem, nil, nil, "127.0.0.1", "0")
	endpoints.RegisterAll(s)

	b.Run("in process: POST /grants/check", func(b *testing.B) {

		b.ReportAllocs()
		b.ResetTimer()

		for i := 0; i < b.N; i++ {
			r := httptest.NewRequest("POST", "/grants/check", strings.NewReader(checkBody))
			s.Router.ServeHTTP(httptest.NewRecorder(), r)
		}
	})

	b.Run("in process parallel: POST /grants/check", func(b *testing.B) {

		b.ReportAllocs()
		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			for pb.Next() {
				r := httptest.NewRequest("POST", "/grants/check", strings.NewReader(checkBody))
				s.Router.ServeHTTP(httptest.NewRecorder(), r)
			}
		})
	})
}

// BenchmarkCheckRemote targets a running server, e.g.
// WHOCAN_BENCH_URL=http://localhost:8000 go test -bench . ./benchmark
func BenchmarkCheckRemote(b *testing.B) {
	baseURL := os.Getenv("WHOCAN_BENCH_URL")
	if baseURL == "" {
		b.Skip("WHOCAN_BENCH_URL not set")
	}
	token := os.Getenv("WHOCAN_BENCH_TOKEN")

	b.Run("remote: POST /grants/check", func(b *testing.B) {

		b.ReportAllocs()
		b.ResetTimer()

		for i := 0; i < b.N; i++ {
			r, _ := http.NewRequest("POST", baseURL+"/grants/check", strings.NewReader(checkBody))
			if token != "" {
				r.Header.Add("Authorization", fmt.Sprintf("Bearer %s", token))
			}
			resp, err := http.DefaultClient.Do(r)
			if err == nil {
				_ = resp.Body.Close()
			}
		}
	})
}
