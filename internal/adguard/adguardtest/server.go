// Package adguardtest 提供内存版的 AdGuardHome 重写接口，用于测试
package adguardtest

import (
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"

	"github.com/gorilla/mux"

	"rewritefailover/internal/rewrite"
)

// Server 模拟 AdGuardHome 的 /control 接口
type Server struct {
	*httptest.Server

	Username string
	Password string

	mu       sync.Mutex
	entries  []rewrite.Entry
	status   int // 非 0 时所有接口都返回该状态码
	requests map[string]int
	adds     []rewrite.Entry
	deletes  []rewrite.Entry
}

// NewServer 启动模拟服务，调用方负责 Close
func NewServer(username, password string, entries ...rewrite.Entry) *Server {
	s := &Server{
		Username: username,
		Password: password,
		entries:  append([]rewrite.Entry(nil), entries...),
		requests: make(map[string]int),
	}

	r := mux.NewRouter()
	r.Use(s.middleware)
	r.HandleFunc("/control/status", s.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/control/rewrite/list", s.handleList).Methods(http.MethodGet)
	r.HandleFunc("/control/rewrite/add", s.handleAdd).Methods(http.MethodPost)
	r.HandleFunc("/control/rewrite/delete", s.handleDelete).Methods(http.MethodPost)

	s.Server = httptest.NewServer(r)
	return s
}

// HostPort 返回监听的主机和端口，用于构造客户端参数
func (s *Server) HostPort() (string, int) {
	u, err := url.Parse(s.URL)
	if err != nil {
		panic(err)
	}
	host, port, err := net.SplitHostPort(u.Host)
	if err != nil {
		panic(err)
	}
	p, err := strconv.Atoi(port)
	if err != nil {
		panic(err)
	}
	return host, p
}

// FailWith 让后续请求都返回指定状态码，传 0 恢复正常
func (s *Server) FailWith(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
}

// Entries 当前的重写列表
func (s *Server) Entries() []rewrite.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]rewrite.Entry(nil), s.entries...)
}

// SetEntries 替换重写列表（模拟人工修改）
func (s *Server) SetEntries(entries ...rewrite.Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append([]rewrite.Entry(nil), entries...)
}

// Adds 收到的添加请求
func (s *Server) Adds() []rewrite.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]rewrite.Entry(nil), s.adds...)
}

// Deletes 收到的删除请求
func (s *Server) Deletes() []rewrite.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]rewrite.Entry(nil), s.deletes...)
}

// Requests 某个路径收到的请求数
func (s *Server) Requests(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[path]
}

func (s *Server) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests[r.URL.Path]++
		status := s.status
		s.mu.Unlock()

		if status != 0 {
			w.WriteHeader(status)
			return
		}

		user, pass, ok := r.BasicAuth()
		if !ok || user != s.Username || pass != s.Password {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"running": true})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.Entries())
}

func (s *Server) handleAdd(w http.ResponseWriter, r *http.Request) {
	var e rewrite.Entry
	if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.adds = append(s.adds, e)
	if !rewrite.Contains(s.entries, e.Domain, e.Answer) {
		s.entries = append(s.entries, e)
	}
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	var e rewrite.Entry
	if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes = append(s.deletes, e)
	kept := s.entries[:0]
	for _, existing := range s.entries {
		if existing != e {
			kept = append(kept, existing)
		}
	}
	s.entries = kept
}
