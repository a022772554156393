package api

import (
	"reverse-geo/internal/admin"
	"reverse-geo/internal/iploc"
	"reverse-geo/internal/revgeo"
)

// 文档注释：逆地理返回结构（对外）
// 背景：字段名沿用既有客户端约定（streetid 无下划线）；批量接口额外回填原始坐标串 location。
// 约束：approx/distance_km 仅在最近中心点兜底时出现。
type addressResponse struct {
	Province   string  `json:"province"`
	City       string  `json:"city"`
	District   string  `json:"district"`
	Street     string  `json:"street"`
	StreetID   string  `json:"streetid"`
	Location   string  `json:"location,omitempty"`
	Approx     bool    `json:"approx,omitempty"`
	DistanceKm float64 `json:"distance_km,omitempty"`
}

func newAddress(dir *admin.Directory, rec *revgeo.Record) *addressResponse {
	a := dir.Address(rec.ID)
	return &addressResponse{
		Province: a.Province,
		City:     a.City,
		District: a.District,
		Street:   rec.Name,
		StreetID: rec.ID,
	}
}

type coordRequest struct {
	Lng      *float64 `json:"lng"`
	Lat      *float64 `json:"lat"`
	CoordSys string   `json:"coord_sys"`
}

type ipResponse struct {
	IP      iploc.Info       `json:"ip"`
	Address *addressResponse `json:"address"`
}

type healthResponse struct {
	Status    string `json:"status"`
	Records   int    `json:"records"`
	Indexed   int    `json:"indexed"`
	Height    int    `json:"height"`
	NodeCap   int    `json:"node_capacity"`
	BatchMax  int    `json:"batch_max"`
	BuiltAt   string `json:"built_at"`
	Boundary  string `json:"boundary"`
	Fallback  bool   `json:"fallback"`
	RedisUsed bool   `json:"redis"`
}

type errorResponse struct {
	Error string `json:"error"`
}
