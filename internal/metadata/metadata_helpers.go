// Package metadata 提供 HandlerMetadata 在 Context 中的存取工具，供控制器与服务层共享。
package metadata

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/uuid"
)

// HandlerMetadata 描述从请求头或上游链路解析出的上下文信息。
type HandlerMetadata struct {
	IdempotencyKey  string
	UserID          string
	Roles           []string
	RawUserInfo     string
	InvalidUserInfo bool
}

// IsZero 判断 Metadata 是否为空。
func (m HandlerMetadata) IsZero() bool {
	return m.IdempotencyKey == "" &&
		m.UserID == "" &&
		len(m.Roles) == 0 &&
		m.RawUserInfo == "" &&
		!m.InvalidUserInfo
}

// UserUUID 尝试解析 user_id 为 UUID。
func (m HandlerMetadata) UserUUID() (uuid.UUID, bool) {
	if strings.TrimSpace(m.UserID) == "" {
		return uuid.Nil, false
	}
	value, err := uuid.Parse(m.UserID)
	if err != nil {
		return uuid.Nil, false
	}
	return value, true
}

// IsAdmin 判断请求者是否持有管理员角色。
func (m HandlerMetadata) IsAdmin() bool {
	for _, role := range m.Roles {
		if strings.EqualFold(strings.TrimSpace(role), "admin") {
			return true
		}
	}
	return false
}

type ctxKey struct{}

// Inject 将 HandlerMetadata 注入 Context。
func Inject(ctx context.Context, meta HandlerMetadata) context.Context {
	if meta.IsZero() {
		return ctx
	}
	return context.WithValue(ctx, ctxKey{}, meta)
}

// FromContext 读取上游注入的 HandlerMetadata。
func FromContext(ctx context.Context) (HandlerMetadata, bool) {
	if ctx == nil {
		return HandlerMetadata{}, false
	}
	meta, ok := ctx.Value(ctxKey{}).(HandlerMetadata)
	return meta, ok
}

// UserClaims 是 X-Apigateway-Api-Userinfo 头中业务关心的声明。
type UserClaims struct {
	UserID string
	Roles  []string
}

// ExtractClaimsFromUserInfo 尝试从 X-Apigateway-Api-Userinfo 头中解析用户标识与角色。
func ExtractClaimsFromUserInfo(raw string) (UserClaims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return UserClaims{}, nil
	}
	payload, err := decodeUserInfo(raw)
	if err != nil {
		return UserClaims{}, err
	}
	var claims map[string]any
	if err := json.Unmarshal(payload, &claims); err != nil {
		return UserClaims{}, err
	}
	out := UserClaims{UserID: extractSubject(claims), Roles: extractRoles(claims)}
	return out, nil
}

func extractSubject(claims map[string]any) string {
	for _, key := range []string{"sub", "user_id", "uid"} {
		if value, ok := claims[key].(string); ok && strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}

func extractRoles(claims map[string]any) []string {
	var roles []string
	switch value := claims["roles"].(type) {
	case []any:
		for _, item := range value {
			if role, ok := item.(string); ok && strings.TrimSpace(role) != "" {
				roles = append(roles, role)
			}
		}
	case string:
		for _, role := range strings.Split(value, ",") {
			if strings.TrimSpace(role) != "" {
				roles = append(roles, strings.TrimSpace(role))
			}
		}
	}
	if role, ok := claims["role"].(string); ok && strings.TrimSpace(role) != "" {
		roles = append(roles, role)
	}
	return roles
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
