// Package metadata 提供请求身份信息在 Context 中的存取工具，供控制器与服务层共享。
package metadata

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/uuid"
)

// Identity 描述从网关透传头解析出的调用方身份。
type Identity struct {
	UserID          string
	Email           string
	RawUserInfo     string
	InvalidUserInfo bool
}

// IsZero 判断身份信息是否为空。
func (id Identity) IsZero() bool {
	return id.UserID == "" &&
		id.Email == "" &&
		id.RawUserInfo == "" &&
		!id.InvalidUserInfo
}

// UserUUID 尝试解析用户标识为 UUID。
func (id Identity) UserUUID() (uuid.UUID, bool) {
	if strings.TrimSpace(id.UserID) == "" {
		return uuid.Nil, false
	}
	value, err := uuid.Parse(id.UserID)
	if err != nil {
		return uuid.Nil, false
	}
	return value, true
}

type ctxKey struct{}

// Inject 将身份信息注入 Context。
func Inject(ctx context.Context, id Identity) context.Context {
	if id.IsZero() {
		return ctx
	}
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext 读取上游注入的身份信息。
func FromContext(ctx context.Context) (Identity, bool) {
	if ctx == nil {
		return Identity{}, false
	}
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok
}

// ParseUserInfo 从 X-Apigateway-Api-Userinfo 头解析身份。
// 头缺失返回零值；头存在但无法解码时置 InvalidUserInfo。
func ParseUserInfo(raw string) Identity {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Identity{}
	}
	id := Identity{RawUserInfo: raw}
	payload, err := decodeUserInfo(raw)
	if err != nil {
		id.InvalidUserInfo = true
		return id
	}
	var claims map[string]any
	if err := json.Unmarshal(payload, &claims); err != nil {
		id.InvalidUserInfo = true
		return id
	}
	id.UserID = firstStringClaim(claims, "sub", "user_id", "uid")
	id.Email = firstStringClaim(claims, "email")
	return id
}

func firstStringClaim(claims map[string]any, keys ...string) string {
	for _, key := range keys {
		if value, ok := claims[key].(string); ok && strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}

func decodeUserInfo(raw string) ([]byte, error) {
	decoders := []func(string) ([]byte, error){
		func(s string) ([]byte, error) { return base64.RawURLEncoding.DecodeString(s) },
		func(s string) ([]byte, error) { return base64.URLEncoding.DecodeString(s) },
		func(s string) ([]byte, error) { return base64.StdEncoding.DecodeString(s) },
	}
	var err error
	for _, decode := range decoders {
		var payload []byte
		payload, err = decode(raw)
		if err == nil {
			return payload, nil
		}
	}
	return nil, errors.New("decode userinfo header failed")
}
