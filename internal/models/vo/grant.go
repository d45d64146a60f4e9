// Package vo 定义对控制层暴露的视图对象。
package vo

import (
	"time"

	"github.com/bionicotaku/lingo-services-bonus/internal/models/po"
)

// GrantStatus 表示一次领取请求的终态。
type GrantStatus string

// 领取终态常量。
const (
	// GrantStatusGranted 表示成功发放。
	GrantStatusGranted GrantStatus = "granted"
	// GrantStatusNotYetEligible 表示冷却期未过。
	GrantStatusNotYetEligible GrantStatus = "not_yet_eligible"
	// GrantStatusNoVideoAvailable 表示奖励池为空。
	GrantStatusNoVideoAvailable GrantStatus = "no_video_available"
)

// GrantResult 表示发放结果视图。仅 Granted 状态携带链接。
type GrantResult struct {
	Status  GrantStatus
	VideoID string
	Link    string
	Expiry  time.Time
}

// AssignmentItem 表示历史领取记录条目。
type AssignmentItem struct {
	VideoID   string
	ClaimedAt time.Time
}

// NewAssignmentItemFromPO 将领取记录 PO 转换为 VO。
func NewAssignmentItemFromPO(record *po.Assignment) AssignmentItem {
	return AssignmentItem{
		VideoID:   record.VideoID.String(),
		ClaimedAt: record.ClaimedAt(),
	}
}
