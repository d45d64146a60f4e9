// Package outboxevents 定义奖励服务写入 Outbox 的领域事件。
package outboxevents

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SchemaVersionV1 标识事件载荷的序列化版本。
const SchemaVersionV1 = "v1"

// Kind 标识领域事件类型。
type Kind int

// 领域事件类型常量。
const (
	// KindUnknown 表示未识别的事件类型。
	KindUnknown Kind = iota
	// KindBonusVideoGranted 表示奖励视频发放成功事件。
	KindBonusVideoGranted
	// KindBonusVideoRevoked 表示补偿回滚时撤销发放的事件。
	KindBonusVideoRevoked
)

func (k Kind) String() string {
	switch k {
	case KindBonusVideoGranted:
		return "bonus.video.granted"
	case KindBonusVideoRevoked:
		return "bonus.video.revoked"
	default:
		return "bonus.event.unknown"
	}
}

// DomainEvent 表示领域层生成的标准事件。
type DomainEvent struct {
	EventID       uuid.UUID
	Kind          Kind
	AggregateID   uuid.UUID
	AggregateType string
	OccurredAt    time.Time
	Payload       any
}

// BonusVideoGranted 描述发放成功事件载荷。
type BonusVideoGranted struct {
	UserID    uuid.UUID `json:"user_id"`
	VideoID   uuid.UUID `json:"video_id"`
	ClaimedAt time.Time `json:"claimed_at"`
	RunID     uuid.UUID `json:"run_id"`
}

// BonusVideoRevoked 描述撤销发放事件载荷。
type BonusVideoRevoked struct {
	UserID  uuid.UUID `json:"user_id"`
	VideoID uuid.UUID `json:"video_id"`
	RunID   uuid.UUID `json:"run_id"`
	Reason  string    `json:"reason"`
}

// NewBonusVideoGranted 构造发放成功事件，聚合根为用户。
func NewBonusVideoGranted(runID, userID, videoID uuid.UUID, claimedAt time.Time) *DomainEvent {
	return &DomainEvent{
		EventID:       uuid.New(),
		Kind:          KindBonusVideoGranted,
		AggregateID:   userID,
		AggregateType: "bonus_user",
		OccurredAt:    claimedAt,
		Payload: BonusVideoGranted{
			UserID:    userID,
			VideoID:   videoID,
			ClaimedAt: claimedAt,
			RunID:     runID,
		},
	}
}

// NewBonusVideoRevoked 构造撤销发放事件，用于补偿回滚时对冲已入队的发放事件。
func NewBonusVideoRevoked(runID, userID, videoID uuid.UUID, reason string) *DomainEvent {
	return &DomainEvent{
		EventID:       uuid.New(),
		Kind:          KindBonusVideoRevoked,
		AggregateID:   userID,
		AggregateType: "bonus_user",
		OccurredAt:    time.Now(),
		Payload: BonusVideoRevoked{
			UserID:  userID,
			VideoID: videoID,
			RunID:   runID,
			Reason:  reason,
		},
	}
}

// MarshalPayload 序列化事件载荷。
func MarshalPayload(evt *DomainEvent) ([]byte, error) {
	if evt == nil {
		return nil, fmt.Errorf("nil domain event")
	}
	data, err := json.Marshal(evt.Payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", evt.Kind, err)
	}
	return data, nil
}
