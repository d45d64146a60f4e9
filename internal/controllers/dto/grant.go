// Package dto 定义 HTTP 层的请求与响应结构。
package dto

import (
	"time"

	"github.com/bionicotaku/lingo-services-bonus/internal/models/vo"
)

// GrantResponse 表示发放接口的响应体。仅 granted 状态携带链接字段。
type GrantResponse struct {
	Status    string     `json:"status"`
	VideoID   string     `json:"video_id,omitempty"`
	Link      string     `json:"link,omitempty"`
	ExpiresAt *time.Time `json:"expiry,omitempty"`
}

// NewGrantResponse 将发放结果 VO 转换为响应体。
func NewGrantResponse(result *vo.GrantResult) GrantResponse {
	resp := GrantResponse{Status: string(result.Status)}
	if result.Status == vo.GrantStatusGranted {
		resp.VideoID = result.VideoID
		resp.Link = result.Link
		expiry := result.Expiry
		resp.ExpiresAt = &expiry
	}
	return resp
}

// AssignmentItem 表示历史记录条目。
type AssignmentItem struct {
	VideoID   string    `json:"video_id"`
	ClaimedAt time.Time `json:"claimed_at"`
}

// HistoryResponse 表示领取历史接口的响应体。
type HistoryResponse struct {
	Items []AssignmentItem `json:"items"`
}

// NewHistoryResponse 将历史记录 VO 列表转换为响应体。
func NewHistoryResponse(items []vo.AssignmentItem) HistoryResponse {
	resp := HistoryResponse{Items: make([]AssignmentItem, 0, len(items))}
	for _, item := range items {
		resp.Items = append(resp.Items, AssignmentItem{
			VideoID:   item.VideoID,
			ClaimedAt: item.ClaimedAt,
		})
	}
	return resp
}

// HealthResponse 表示健康检查响应体。
type HealthResponse struct {
	Status string `json:"status"`
}
