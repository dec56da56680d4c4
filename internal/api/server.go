package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"rewritefailover/internal/logger"
	"rewritefailover/internal/monitor"
)

// Jobs 状态接口需要的调度器能力
type Jobs interface {
	IsRunning() bool
	Handles() []*monitor.Handle
	Handle(id string) (*monitor.Handle, bool)
	Trigger(id string) error
}

// Info 启动时确定的静态信息
type Info struct {
	Provider  string    `json:"provider"`
	Store     string    `json:"store"`
	Policy    string    `json:"entry_exist"`
	Source    string    `json:"config_source"`
	StartedAt time.Time `json:"started_at"`
}

// Server 状态 API 服务器，只读展示任务状态，不修改配置
type Server struct {
	jobs   Jobs
	info   Info
	router *mux.Router
	server *http.Server
}

// NewServer 创建 API 服务器
func NewServer(listen string, jobs Jobs, info Info) *Server {
	s := &Server{
		jobs:   jobs,
		info:   info,
		router: mux.NewRouter(),
	}

	s.registerRoutes()

	s.server = &http.Server{
		Addr:         listen,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	return s
}

// registerRoutes 注册路由
func (s *Server) registerRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/status", s.handleGetStatus).Methods("GET")
	api.HandleFunc("/jobs", s.handleGetJobs).Methods("GET")
	api.HandleFunc("/jobs/{id}", s.handleGetJob).Methods("GET")
	api.HandleFunc("/jobs/{id}/run", s.handleRunJob).Methods("POST")
	api.HandleFunc("/logs", s.handleGetLogs).Methods("GET")
	api.HandleFunc("/logs/clear", s.handleClearLogs).Methods("POST")
}

// Handler 返回带 CORS 的路由
// 预检请求不会匹配到任何路由，因此 CORS 包在路由外层
func (s *Server) Handler() http.Handler {
	return corsMiddleware(s.router)
}

// Start 启动 API 服务器，监听失败时立即返回错误
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("状态接口监听 %s 失败: %w", s.server.Addr, err)
	}

	logger.Infof("[API] 状态接口启动: http://%s/api/status", ln.Addr())
	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("[API] 服务器错误: %v", err)
		}
	}()
	return nil
}

// Stop 停止 API 服务器
func (s *Server) Stop(ctx context.Context) error {
	logger.Info("[API] 正在停止状态接口...")
	return s.server.Shutdown(ctx)
}

// corsMiddleware CORS 中间件
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// handleGetStatus 运行概况
func (s *Server) handleGetStatus(w http.ResponseWriter, r *http.Request) {
	counts := make(map[monitor.State]int)
	handles := s.jobs.Handles()
	for _, h := range handles {
		counts[h.State()]++
	}

	respondSuccess(w, "获取状态成功", map[string]interface{}{
		"running":   s.jobs.IsRunning(),
		"timestamp": time.Now().Unix(),
		"uptime":    time.Since(s.info.StartedAt).Round(time.Second).String(),
		"info":      s.info,
		"jobs":      len(handles),
		"states":    counts,
	})
}

// handleGetJobs 所有任务状态
func (s *Server) handleGetJobs(w http.ResponseWriter, r *http.Request) {
	handles := s.jobs.Handles()
	statuses := make([]monitor.Status, 0, len(handles))
	for _, h := range handles {
		statuses = append(statuses, h.Status())
	}
	respondSuccess(w, "获取任务成功", statuses)
}

// handleGetJob 单个任务状态
func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	h, ok := s.jobs.Handle(id)
	if !ok {
		respondError(w, "任务不存在", http.StatusNotFound)
		return
	}
	respondSuccess(w, "获取任务成功", h.Status())
}

// handleRunJob 立即执行一次检测
func (s *Server) handleRunJob(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, ok := s.jobs.Handle(id); !ok {
		respondError(w, "任务不存在", http.StatusNotFound)
		return
	}
	if err := s.jobs.Trigger(id); err != nil {
		respondError(w, err.Error(), http.StatusConflict)
		return
	}
	logger.Infof("[API] 手动触发任务: %s", id)
	respondSuccess(w, "已触发检测", nil)
}

// handleGetLogs 获取内存日志
func (s *Server) handleGetLogs(w http.ResponseWriter, r *http.Request) {
	linesStr := r.URL.Query().Get("lines")
	lines := 100 // 默认返回最后100行
	if linesStr != "" {
		fmt.Sscanf(linesStr, "%d", &lines)
	}
	if lines <= 0 {
		lines = 100
	}

	buffer := logger.GetBuffer()
	if buffer == nil {
		respondError(w, "日志缓冲区未初始化", http.StatusInternalServerError)
		return
	}

	logs := buffer.GetLogs(lines)

	var content string
	for _, log := range logs {
		content += fmt.Sprintf("[%s] [%s] %s\n",
			log.Timestamp.Format("2006-01-02 15:04:05"),
			log.Level,
			log.Message)
	}

	respondSuccess(w, "获取日志成功", map[string]interface{}{
		"content": content,
		"count":   len(logs),
		"lines":   lines,
	})
}

// handleClearLogs 清空内存日志
func (s *Server) handleClearLogs(w http.ResponseWriter, r *http.Request) {
	buffer := logger.GetBuffer()
	if buffer == nil {
		respondError(w, "日志缓冲区未初始化", http.StatusInternalServerError)
		return
	}

	buffer.Clear()
	logger.Info("[API] 内存日志已清空")
	respondSuccess(w, "日志清理成功", nil)
}

// respondSuccess 成功响应
func respondSuccess(w http.ResponseWriter, message string, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"message": message,
		"data":    data,
	})
}

// respondError 错误响应
func respondError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"message": message,
	})
}
