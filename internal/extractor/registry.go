package extractor

import (
	"net/url"
	"strings"
)

// MatchFunc 判断 URL 是否属于某个平台
type MatchFunc func(rawURL string) bool

// Rule 平台规则
type Rule struct {
	Name      string
	Match     MatchFunc
	Extractor Extractor
}

// Registry 平台规则表, 按注册顺序匹配, 第一个命中的生效
type Registry struct {
	rules []Rule
}

// NewRegistry 创建规则表
func NewRegistry(rules ...Rule) *Registry {
	r := &Registry{}
	for _, rule := range rules {
		r.Register(rule)
	}
	return r
}

// Register 追加规则, 优先级低于已注册的规则
func (r *Registry) Register(rule Rule) {
	r.rules = append(r.rules, rule)
}

// Dispatch 返回第一个匹配的 Extractor
func (r *Registry) Dispatch(rawURL string) (Extractor, error) {
	for _, rule := range r.rules {
		if rule.Match(rawURL) {
			return rule.Extractor, nil
		}
	}
	return nil, ErrNoMatch
}

// Platforms 已注册的平台名称, 按优先级排列
func (r *Registry) Platforms() []string {
	names := make([]string, 0, len(r.rules))
	for _, rule := range r.rules {
		names = append(names, rule.Name)
	}
	return names
}

// HostMatcher 按域名匹配, 子域名也算
// 没有 scheme 的输入按 https 解析
func HostMatcher(domains ...string) MatchFunc {
	normalized := make([]string, 0, len(domains))
	for _, d := range domains {
		normalized = append(normalized, strings.ToLower(strings.TrimPrefix(d, ".")))
	}

	return func(rawURL string) bool {
		host := hostOf(rawURL)
		if host == "" {
			return false
		}
		for _, d := range normalized {
			if host == d || strings.HasSuffix(host, "."+d) {
				return true
			}
		}
		return false
	}
}

// SubstringMatcher 按子串匹配
func SubstringMatcher(substrings ...string) MatchFunc {
	return func(rawURL string) bool {
		for _, s := range substrings {
			if strings.Contains(rawURL, s) {
				return true
			}
		}
		return false
	}
}

func hostOf(rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return ""
	}
	if !strings.Contains(rawURL, "://") {
		rawURL = "https://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
