package probe

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rewritefailover/internal/job"
)

// splitServer 拆出 httptest 服务的主机和端口
func splitServer(t *testing.T, rawURL string) (string, int) {
	t.Helper()
	u, err := url.Parse(rawURL)
	require.NoError(t, err)
	host, portStr, err := net.SplitHostPort(u.Host)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return host, port
}

func TestHTTPCheckerStatusCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()
	host, port := splitServer(t, srv.URL)

	tests := []struct {
		name     string
		expected int
		want     bool
	}{
		{"状态码一致", http.StatusNoContent, true},
		{"状态码不一致", http.StatusOK, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewHTTPChecker(job.HTTPParams{
				Proto:      "http://",
				Port:       port,
				StatusCode: tt.expected,
				Timeout:    2 * time.Second,
			})
			result := c.Check(context.Background(), host)
			assert.Equal(t, tt.want, result.Success)
			assert.Equal(t, TypeHTTP, result.Type)
			assert.Equal(t, srv.URL, result.Target)
			if !tt.want {
				assert.Error(t, result.Error)
			}
		})
	}
}

func TestHTTPCheckerFollowsRedirect(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/login", http.StatusFound)
	})
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	host, port := splitServer(t, srv.URL)

	c := NewHTTPChecker(job.HTTPParams{Proto: "http://", Port: port, StatusCode: http.StatusOK})
	assert.True(t, c.Check(context.Background(), host).Success)
}

func TestHTTPCheckerTLSSkipVerify(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()
	host, port := splitServer(t, srv.URL)

	strict := NewHTTPChecker(job.HTTPParams{Proto: "https://", Port: port, StatusCode: http.StatusOK})
	assert.False(t, strict.Check(context.Background(), host).Success)

	relaxed := NewHTTPChecker(job.HTTPParams{Proto: "https://", Port: port, StatusCode: http.StatusOK, TLSSkipVerify: true})
	assert.True(t, relaxed.Check(context.Background(), host).Success)
}

func TestHTTPCheckerFailures(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	refused := NewHTTPChecker(job.HTTPParams{Proto: "http://", Port: port, Timeout: time.Second})
	result := refused.Check(context.Background(), "127.0.0.1")
	assert.False(t, result.Success)
	assert.Error(t, result.Error)

	badProto := NewHTTPChecker(job.HTTPParams{Proto: "ftp://", Port: 21})
	result = badProto.Check(context.Background(), "127.0.0.1")
	assert.False(t, result.Success)
	assert.Contains(t, result.Error.Error(), "不支持的协议")
}

func TestHTTPCheckerURL(t *testing.T) {
	c := NewHTTPChecker(job.HTTPParams{Proto: "https://", Port: 8443})
	assert.Equal(t, "https://10.0.0.1:8443", c.URL("10.0.0.1"))
	assert.Equal(t, "https://[fd00::1]:8443", c.URL("fd00::1"))
}

func TestTCPChecker(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()
	port := ln.Addr().(*net.TCPAddr).Port

	c := NewTCPChecker(job.TCPParams{Port: port, Timeout: time.Second})
	result := c.Check(context.Background(), "127.0.0.1")
	assert.True(t, result.Success)
	assert.Equal(t, TypeTCP, result.Type)
	assert.Equal(t, ln.Addr().String(), result.Target)

	closed, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	closedPort := closed.Addr().(*net.TCPAddr).Port
	require.NoError(t, closed.Close())

	c = NewTCPChecker(job.TCPParams{Port: closedPort, Timeout: time.Second})
	result = c.Check(context.Background(), "127.0.0.1")
	assert.False(t, result.Success)
	assert.Error(t, result.Error)
}

func TestPingCheckerBadHost(t *testing.T) {
	c := NewPingChecker(job.PingParams{Count: 1, Timeout: time.Second})
	result := c.Check(context.Background(), "bad host!")
	assert.False(t, result.Success)
	assert.Error(t, result.Error)
	assert.Equal(t, TypePing, result.Type)
}

func TestPingCheckerDefaults(t *testing.T) {
	c := NewPingChecker(job.PingParams{})
	assert.Equal(t, 2, c.count)
	assert.Equal(t, 2*time.Second, c.timeout)
	assert.Equal(t, 2300*time.Millisecond, c.runTimeout())
}

func TestForJob(t *testing.T) {
	tests := []struct {
		kind job.Kind
		want ProbeType
	}{
		{job.KindHTTP, TypeHTTP},
		{job.KindPing, TypePing},
		{job.KindTCP, TypeTCP},
	}
	for _, tt := range tests {
		c, err := ForJob(job.Descriptor{Kind: tt.kind})
		require.NoError(t, err)
		assert.Equal(t, tt.want, c.Type())
	}

	c, err := ForJob(job.Descriptor{Kind: job.KindStatic})
	require.NoError(t, err)
	assert.Nil(t, c)

	_, err = ForJob(job.Descriptor{Kind: "dns"})
	assert.Error(t, err)
}
