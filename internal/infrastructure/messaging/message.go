// Package messaging 提供基于 Redis Stream 的宿主事件投递
package messaging

import (
	"encoding/json"
	"fmt"
	"time"
)

// TypeAddAttachment 宿主新增附件事件
const TypeAddAttachment = "add_attachment"

// Message 消息结构
type Message struct {
	ID        string            `json:"id"`
	Type      string            `json:"type"`
	Payload   json.RawMessage   `json:"payload"`
	Metadata  map[string]string `json:"metadata"`
	CreatedAt time.Time         `json:"created_at"`
}

// NewMessage 创建新消息
func NewMessage(id, msgType string, payload interface{}) (*Message, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &Message{
		ID:        id,
		Type:      msgType,
		Payload:   payloadBytes,
		Metadata:  make(map[string]string),
		CreatedAt: time.Now(),
	}, nil
}

// SetMetadata 设置元数据
func (m *Message) SetMetadata(key, value string) {
	if m.Metadata == nil {
		m.Metadata = make(map[string]string)
	}
	m.Metadata[key] = value
}

// GetMetadata 获取元数据
func (m *Message) GetMetadata(key string) string {
	if m.Metadata == nil {
		return ""
	}
	return m.Metadata[key]
}

// UnmarshalPayload 解析消息载荷
func (m *Message) UnmarshalPayload(v interface{}) error {
	return json.Unmarshal(m.Payload, v)
}

// AttachmentEvent 新增附件事件载荷
type AttachmentEvent struct {
	AttachmentID uint64 `json:"attachment_id"`
}

// DecodeAttachmentEvent 解析并校验附件事件
func DecodeAttachmentEvent(m *Message) (*AttachmentEvent, error) {
	if m.Type != TypeAddAttachment {
		return nil, fmt.Errorf("unexpected message type %q", m.Type)
	}
	var ev AttachmentEvent
	if err := m.UnmarshalPayload(&ev); err != nil {
		return nil, fmt.Errorf("invalid attachment event payload: %w", err)
	}
	if ev.AttachmentID == 0 {
		return nil, fmt.Errorf("attachment event missing attachment_id")
	}
	return &ev, nil
}

// Stream 流定义
type Stream string

// StreamAttachmentAdded 默认的附件事件流
const StreamAttachmentAdded Stream = "stream:attachment:added"

// DLQStream 获取对应的死信队列流名称
func (s Stream) DLQStream() string {
	return "dlq:" + string(s)
}

// ConsumerGroup 消费者组定义
type ConsumerGroup string

// ConsumerGroupAltText 默认的生成器消费者组
const ConsumerGroupAltText ConsumerGroup = "cg-alt-text"
