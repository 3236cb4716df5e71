// Package api はlotbookのAPIサーバー実装を提供します。
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/stsysd/lotbook/config"
	"github.com/stsysd/lotbook/heatmap"
	"github.com/stsysd/lotbook/model"
	"github.com/stsysd/lotbook/search"
	"github.com/stsysd/lotbook/store"
)

// Server はAPIサーバーの構造体です。
type Server struct {
	router   *http.ServeMux
	store    *store.Store
	resolver *search.Resolver
	config   *config.Config
	logger   *slog.Logger
	metrics  *metrics
}

// ErrorResponse はエラーレスポンスの構造体です。
type ErrorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

// writeJSONError はJSON形式でエラーレスポンスを返却します。
func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	resp := ErrorResponse{
		Error: message,
		Code:  statusCode,
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// writeJSON はJSON形式でレスポンスを返却します。
func (s *Server) writeJSON(w http.ResponseWriter, v any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

// writeStoreError はストアやリゾルバのエラーをHTTPステータスに対応付けて返却します。
// バリデーションと形式エラーは400、存在しない場合は404、それ以外は500です。
func (s *Server) writeStoreError(w http.ResponseWriter, r *http.Request, err error, action string) {
	var validationErr *model.ValidationError
	var formatErr *model.FormatError
	switch {
	case errors.As(err, &validationErr), errors.As(err, &formatErr):
		writeJSONError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, model.ErrLotNotFound):
		writeJSONError(w, "Lot not found", http.StatusNotFound)
	case errors.Is(err, model.ErrSampleNotFound):
		writeJSONError(w, "Sample not found", http.StatusNotFound)
	default:
		s.logger.Error("request failed", "action", action, "error", err, "request_id", requestID(r))
		writeJSONError(w, "Failed to "+action, http.StatusInternalServerError)
	}
}

// NewServer は新しいAPIサーバーインスタンスを生成します。
func NewServer(st *store.Store, cfg *config.Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Server{
		router:   http.NewServeMux(),
		store:    st,
		resolver: search.NewResolver(st),
		config:   cfg,
		logger:   logger,
		metrics:  newMetrics(st),
	}
	s.routes()
	return s
}

// routes はAPIエンドポイントのルーティングを設定します。
func (s *Server) routes() {
	// ヘルスチェックエンドポイントは認証不要
	s.router.HandleFunc("GET /healthz", s.handleHealthCheck)
	s.router.Handle("GET /metrics", s.metrics.handler())

	// すべての保護されたエンドポイントをまずセキュアなルータに登録
	securedHandler := http.NewServeMux()

	// Lot endpoints
	securedHandler.HandleFunc("GET /api/v0/lots", s.handleListLots)
	securedHandler.HandleFunc("POST /api/v0/lots", s.handleCreateLot)
	securedHandler.HandleFunc("GET /api/v0/lots/{lot_code}", s.handleGetLot)

	// Sample endpoints
	securedHandler.HandleFunc("GET /api/v0/lots/{lot_code}/samples", s.handleListSamples)
	securedHandler.HandleFunc("POST /api/v0/lots/{lot_code}/samples", s.handleCreateSample)
	securedHandler.HandleFunc("GET /api/v0/samples/{full_code}", s.handleGetSample)
	securedHandler.HandleFunc("PUT /api/v0/samples/{full_code}", s.handleUpdateSample)

	securedHandler.HandleFunc("GET /api/v0/search", s.handleSearch)
	securedHandler.HandleFunc("POST /api/v0/reload", s.handleReload)

	// 認証ミドルウェアを適用し、メインルータにマウント
	s.router.Handle("/api/", s.authMiddleware(securedHandler))

	// Graph endpoints - support both with and without .svg extension
	s.router.HandleFunc("GET /l/{lot_code}/graph.svg", s.handleGetGraph)
	s.router.HandleFunc("GET /l/{lot_code}/graph", s.handleGetGraph)
}

// ServeHTTP はServer構造体をhttp.Handlerとして実装します。
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.requestLogger(s.router).ServeHTTP(w, r)
}

// handleHealthCheck はヘルスチェックエンドポイントのハンドラーです。
func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}

// ListLotsParams represents parameters for listing lots.
type ListLotsParams struct {
	Name string
}

// NewListLotsParams creates parameters for lot listing from HTTP request.
func NewListLotsParams(r *http.Request) (*ListLotsParams, error) {
	return &ListLotsParams{Name: strings.TrimSpace(r.URL.Query().Get("name"))}, nil
}

// handleListLots はロット一覧を返すハンドラーです。
// nameが指定された場合は名前が一致するロットだけを返します。
func (s *Server) handleListLots(w http.ResponseWriter, r *http.Request) {
	params, err := NewListLotsParams(r)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if params.Name == "" {
		s.writeJSON(w, s.store.Lots(), http.StatusOK)
		return
	}

	lots := []*model.Lot{}
	lot, err := s.store.FindLotByName(params.Name)
	if err != nil && !errors.Is(err, model.ErrLotNotFound) {
		s.writeStoreError(w, r, err, "retrieve lots")
		return
	}
	if lot != nil {
		lots = append(lots, lot)
	}
	s.writeJSON(w, lots, http.StatusOK)
}

// CreateLotParams represents parameters for creating a lot.
type CreateLotParams struct {
	Name string
}

// NewCreateLotParams creates parameters for lot creation from HTTP request.
func NewCreateLotParams(r *http.Request) (*CreateLotParams, error) {
	var requestBody struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&requestBody); err != nil {
		return nil, fmt.Errorf("invalid request body: %w", err)
	}
	if strings.TrimSpace(requestBody.Name) == "" {
		return nil, fmt.Errorf("name is required")
	}
	return &CreateLotParams{Name: requestBody.Name}, nil
}

// handleCreateLot はロット作成エンドポイントのハンドラーです。
func (s *Server) handleCreateLot(w http.ResponseWriter, r *http.Request) {
	params, err := NewCreateLotParams(r)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	lot, err := s.store.CreateLot(r.Context(), params.Name)
	if err != nil {
		s.writeStoreError(w, r, err, "create lot")
		return
	}

	s.writeJSON(w, lot, http.StatusCreated)
}

// LotParams represents parameters identifying a lot by path.
type LotParams struct {
	LotCode model.LotCode
}

// NewLotParams creates lot parameters from the lot_code path value.
func NewLotParams(r *http.Request) (*LotParams, error) {
	lotCode, err := model.NewLotCode(r.PathValue("lot_code"))
	if err != nil {
		return nil, fmt.Errorf("invalid lot_code: %w", err)
	}
	return &LotParams{LotCode: lotCode}, nil
}

// handleGetLot は特定のロットを取得するハンドラーです。
func (s *Server) handleGetLot(w http.ResponseWriter, r *http.Request) {
	params, err := NewLotParams(r)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	lot, err := s.store.FindLot(params.LotCode.String())
	if err != nil {
		s.writeStoreError(w, r, err, "retrieve lot")
		return
	}

	s.writeJSON(w, lot, http.StatusOK)
}

// ListSamplesParams represents parameters for listing samples in a lot.
type ListSamplesParams struct {
	LotCode model.LotCode
	Name    string
	Serial  string
}

// NewListSamplesParams creates parameters for sample listing from HTTP request.
func NewListSamplesParams(r *http.Request) (*ListSamplesParams, error) {
	lotParams, err := NewLotParams(r)
	if err != nil {
		return nil, err
	}

	query := r.URL.Query()
	params := &ListSamplesParams{
		LotCode: lotParams.LotCode,
		Name:    strings.TrimSpace(query.Get("name")),
		Serial:  strings.TrimSpace(query.Get("serial")),
	}
	if params.Serial != "" {
		if _, err := model.NewSerialCode(params.Serial); err != nil {
			return nil, fmt.Errorf("invalid serial: %w", err)
		}
	}
	return params, nil
}

// handleListSamples はロットに属するサンプルを登録順で返すハンドラーです。
// nameまたはserialが指定された場合は一致するサンプルだけに絞り込みます。
func (s *Server) handleListSamples(w http.ResponseWriter, r *http.Request) {
	params, err := NewListSamplesParams(r)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	lotCode := params.LotCode.String()
	if _, err := s.store.FindLot(lotCode); err != nil {
		s.writeStoreError(w, r, err, "retrieve samples")
		return
	}

	var sample *model.Sample
	switch {
	case params.Serial != "":
		sample, err = s.store.FindSampleBySerial(lotCode, params.Serial)
	case params.Name != "":
		sample, err = s.store.FindSampleByName(lotCode, params.Name)
	default:
		s.writeJSON(w, s.store.FindSamplesByLot(lotCode), http.StatusOK)
		return
	}

	samples := []*model.Sample{}
	if err != nil && !errors.Is(err, model.ErrSampleNotFound) {
		s.writeStoreError(w, r, err, "retrieve samples")
		return
	}
	if sample != nil {
		samples = append(samples, sample)
	}
	s.writeJSON(w, samples, http.StatusOK)
}

// CreateSampleParams represents parameters for creating a sample.
type CreateSampleParams struct {
	LotCode model.LotCode
	Name    string
}

// NewCreateSampleParams creates parameters for sample creation from HTTP request.
func NewCreateSampleParams(r *http.Request) (*CreateSampleParams, error) {
	lotParams, err := NewLotParams(r)
	if err != nil {
		return nil, err
	}

	var requestBody struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&requestBody); err != nil {
		return nil, fmt.Errorf("invalid request body: %w", err)
	}
	if strings.TrimSpace(requestBody.Name) == "" {
		return nil, fmt.Errorf("name is required")
	}

	return &CreateSampleParams{LotCode: lotParams.LotCode, Name: requestBody.Name}, nil
}

// handleCreateSample はサンプル作成エンドポイントのハンドラーです。
func (s *Server) handleCreateSample(w http.ResponseWriter, r *http.Request) {
	params, err := NewCreateSampleParams(r)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	sample, err := s.store.CreateSample(r.Context(), params.LotCode.String(), params.Name)
	if err != nil {
		s.writeStoreError(w, r, err, "create sample")
		return
	}

	s.writeJSON(w, sample, http.StatusCreated)
}

// SampleParams represents parameters identifying a sample by path.
type SampleParams struct {
	FullCode model.FullCode
}

// NewSampleParams creates sample parameters from the full_code path value.
func NewSampleParams(r *http.Request) (*SampleParams, error) {
	fullCode, err := model.NewFullCode(r.PathValue("full_code"))
	if err != nil {
		return nil, fmt.Errorf("invalid full_code: %w", err)
	}
	return &SampleParams{FullCode: fullCode}, nil
}

// handleGetSample は特定のフルコードのサンプルを取得するハンドラーです。
func (s *Server) handleGetSample(w http.ResponseWriter, r *http.Request) {
	params, err := NewSampleParams(r)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	sample, err := s.store.FindSampleByFullCode(params.FullCode.String())
	if err != nil {
		s.writeStoreError(w, r, err, "retrieve sample")
		return
	}

	s.writeJSON(w, sample, http.StatusOK)
}

// UpdateSampleParams represents parameters for updating a sample.
// nil fields keep the current value.
type UpdateSampleParams struct {
	FullCode model.FullCode
	Notes    *string
	Active   *bool
}

// NewUpdateSampleParams creates parameters for sample update from HTTP request.
func NewUpdateSampleParams(r *http.Request) (*UpdateSampleParams, error) {
	sampleParams, err := NewSampleParams(r)
	if err != nil {
		return nil, err
	}

	var requestBody struct {
		Notes  *string `json:"notes"`
		Active *bool   `json:"active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&requestBody); err != nil {
		return nil, fmt.Errorf("invalid request body: %w", err)
	}

	return &UpdateSampleParams{
		FullCode: sampleParams.FullCode,
		Notes:    requestBody.Notes,
		Active:   requestBody.Active,
	}, nil
}

// handleUpdateSample はサンプルのメモとアクティブフラグを更新するハンドラーです。
func (s *Server) handleUpdateSample(w http.ResponseWriter, r *http.Request) {
	params, err := NewUpdateSampleParams(r)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	// 省略されたフィールドはストア側で現在の値を保持する
	sample, err := s.store.PatchSample(r.Context(), params.FullCode.String(), store.SampleUpdate{
		Notes:  params.Notes,
		Active: params.Active,
	})
	if err != nil {
		s.writeStoreError(w, r, err, "update sample")
		return
	}

	s.writeJSON(w, sample, http.StatusOK)
}

// handleSearch はフルコードまたは旧形式の行からロットとサンプルを引くハンドラーです。
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if strings.TrimSpace(q) == "" {
		writeJSONError(w, "q is required", http.StatusBadRequest)
		return
	}

	result, err := s.resolver.Resolve(q)
	if err != nil {
		s.writeStoreError(w, r, err, "search")
		return
	}

	s.writeJSON(w, result, http.StatusOK)
}

// handleReload は保存先を読み直すハンドラーです。
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	lots, samples, err := s.store.Load(r.Context())
	if err != nil {
		s.writeStoreError(w, r, err, "reload store")
		return
	}

	s.writeJSON(w, map[string]int{"lots": len(lots), "samples": len(samples)}, http.StatusOK)
}

// GetGraphParams represents parameters for getting a graph.
type GetGraphParams struct {
	LotCode   model.LotCode
	DateRange *model.DateRange
}

// NewGetGraphParams creates parameters for graph generation from HTTP request.
func NewGetGraphParams(r *http.Request) (*GetGraphParams, error) {
	lotParams, err := NewLotParams(r)
	if err != nil {
		return nil, err
	}

	query := r.URL.Query()
	dateRange, err := model.NewDateRange(query.Get("from"), query.Get("to"))
	if err != nil {
		return nil, err
	}

	return &GetGraphParams{
		LotCode:   lotParams.LotCode,
		DateRange: dateRange,
	}, nil
}

// handleGetGraph は指定ロットのサンプル登録数ヒートマップを生成・返却するハンドラーです。
func (s *Server) handleGetGraph(w http.ResponseWriter, r *http.Request) {
	params, err := NewGetGraphParams(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// ロットを取得（グラフ生成時のタイトル用）
	lot, err := s.store.FindLot(params.LotCode.String())
	if err != nil {
		http.Error(w, "Lot not found", http.StatusNotFound)
		return
	}

	var times []time.Time
	for _, sample := range s.store.FindSamplesByLot(lot.LotCode) {
		if params.DateRange.Contains(sample.CreatedAt) {
			times = append(times, sample.CreatedAt)
		}
	}

	opts := heatmap.DefaultOptions()
	opts.Title = lot.Name
	data := heatmap.CountByDay(times, params.DateRange.From(), params.DateRange.To())
	svg := heatmap.GenerateDailyHeatmapSVG(data, opts)

	w.Header().Set("Content-Type", "image/svg+xml")
	if _, err := io.WriteString(w, svg); err != nil {
		s.logger.Error("failed to write graph", "error", err)
	}
}

// Run はサーバーを指定されたアドレスで起動します。
func (s *Server) Run(addr string) error {
	s.logger.Info("server starting", "addr", addr)
	return http.ListenAndServe(addr, s)
}
