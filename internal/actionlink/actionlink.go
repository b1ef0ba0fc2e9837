package actionlink

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sysu-ecnc-dev/task-manager/backend/internal/token"
	"github.com/sysu-ecnc-dev/task-manager/backend/internal/utils"
)

// ErrLinkNotFound 对应链接被篡改、已被消费或从未签发三种情况，
// 三者必须不可区分，防止外部探测
var ErrLinkNotFound = errors.New("链接不存在或已失效")

const paramLength = 32

// 多参数流程（比如改邮箱）会携带额外的业务参数，解析时要跳过
var reservedKeys = map[string]bool{
	"newEmail": true,
}

// KV 是 param -> ACTION 令牌存储需要的最小接口，
// 生产环境由 redis 实现，测试中用内存 map 代替
type KV interface {
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	// GetDel 原子地取出并删除，键不存在时返回 ErrLinkNotFound
	GetDel(ctx context.Context, key string) (string, error)
}

type redisKV struct {
	client *redis.Client
}

func NewRedisKV(client *redis.Client) KV {
	return &redisKV{client: client}
}

func (kv *redisKV) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	return kv.client.Set(ctx, key, value, ttl).Err()
}

func (kv *redisKV) GetDel(ctx context.Context, key string) (string, error) {
	value, err := kv.client.GetDel(ctx, key).Result()
	if err != nil {
		switch {
		case errors.Is(err, redis.Nil):
			return "", ErrLinkNotFound
		default:
			return "", err
		}
	}
	return value, nil
}

// Store 实现确认链接的一次性消费协议：
// 签发时生成随机参数 param 和 ACTION 令牌 token，链接形如 {base}?{param}={token}，
// param 同时充当 query key，猜对参数名和猜对参数值一样难
type Store struct {
	kv     KV
	tokens *token.Manager
}

func NewStore(kv KV, tokens *token.Manager) *Store {
	return &Store{
		kv:     kv,
		tokens: tokens,
	}
}

func key(param string) string {
	return fmt.Sprintf("actionlink_%s", param)
}

// Issue 为 subject 签发一条确认链接的 (param, token) 对并持久化
func (s *Store) Issue(ctx context.Context, subject string) (string, string, error) {
	param := utils.GenerateRandomParam(paramLength)

	tok, err := s.tokens.Generate(token.KindAction, subject)
	if err != nil {
		return "", "", err
	}

	// TTL 和令牌过期时长一致，过期的键由 redis 自行清理
	if err := s.kv.Set(ctx, key(param), tok, s.tokens.Expiration(token.KindAction)); err != nil {
		return "", "", err
	}

	return param, tok, nil
}

// BuildLink 构造发到邮件里的完整链接
func (s *Store) BuildLink(base string, path string, param string, tok string, extra url.Values) string {
	link := fmt.Sprintf("%s%s?%s=%s", base, path, url.QueryEscape(param), url.QueryEscape(tok))
	for k, vs := range extra {
		for _, v := range vs {
			link += fmt.Sprintf("&%s=%s", url.QueryEscape(k), url.QueryEscape(v))
		}
	}
	return link
}

// Consume 消费一条确认链接并返回 ACTION 令牌中的 subject。
// 取 query 中第一个非保留键作为 (param, token) 对；GETDEL 保证并发重复提交
// 至多一个请求看到成功。存储中的令牌才是权威令牌，校验以它为准
func (s *Store) Consume(ctx context.Context, query url.Values) (string, error) {
	var param, presented string
	for k, vs := range query {
		if reservedKeys[k] || len(vs) == 0 {
			continue
		}
		param, presented = k, vs[0]
		break
	}
	if param == "" {
		return "", ErrLinkNotFound
	}

	stored, err := s.kv.GetDel(ctx, key(param))
	if err != nil {
		return "", err
	}

	// 参数对得上但令牌对不上，说明链接被拼接过，和不存在同样处理
	if stored != presented {
		return "", ErrLinkNotFound
	}

	subject, err := s.tokens.Validate(token.KindAction, stored)
	if err != nil {
		// 过期（键还没被 redis 清理但令牌已过期）原样上抛，
		// 调用方要把它和 ErrLinkNotFound 区分开
		return "", err
	}

	return subject, nil
}
