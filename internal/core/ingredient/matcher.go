package ingredient

import (
	"regexp"
	"sync"
	"sync/atomic"
)

// Matcher 成分匹配器
// 先做精確比對，再對每個成員做整詞比對。目標字串的正規表達式
// 只在第一次使用時編譯，之後重複使用（知識庫的成分清單是靜態的）。
type Matcher struct {
	mu       sync.RWMutex
	patterns map[string]*regexp.Regexp
	calls    int64
}

// NewMatcher 創建成分匹配器
func NewMatcher() *Matcher {
	return &Matcher{
		patterns: make(map[string]*regexp.Regexp),
	}
}

// HasIngredient 判斷集合是否含有目標成分
// 整詞比對：目標必須以非單詞字符或字串邊界為界出現在成員中，
// 因此 "stearyl alcohol" 含有 "alcohol"，而 "alcoholic" 不含。
func (m *Matcher) HasIngredient(set *Set, target string) bool {
	atomic.AddInt64(&m.calls, 1)

	token := Normalize(target)
	if token == "" || set == nil {
		return false
	}

	// 精確比對
	if set.Contains(token) {
		return true
	}

	// 整詞比對
	pattern := m.patternFor(token)
	for _, member := range set.Tokens() {
		if pattern.MatchString(member) {
			return true
		}
	}
	return false
}

// MatchesAny 判斷目標成分是否出現在 token 列表中（同樣的整詞語義）
func (m *Matcher) MatchesAny(tokens []string, target string) bool {
	atomic.AddInt64(&m.calls, 1)

	token := Normalize(target)
	if token == "" || len(tokens) == 0 {
		return false
	}

	pattern := m.patternFor(token)
	for _, member := range tokens {
		if member == token || pattern.MatchString(member) {
			return true
		}
	}
	return false
}

// Calls 回傳匹配呼叫次數（用於觀測快取是否避免了重算）
func (m *Matcher) Calls() int64 {
	return atomic.LoadInt64(&m.calls)
}

// ResetCalls 重置呼叫計數
func (m *Matcher) ResetCalls() {
	atomic.StoreInt64(&m.calls, 0)
}

// patternFor 取得目標 token 的整詞比對模式（帶快取）
func (m *Matcher) patternFor(token string) *regexp.Regexp {
	m.mu.RLock()
	pattern, ok := m.patterns[token]
	m.mu.RUnlock()
	if ok {
		return pattern
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if pattern, ok = m.patterns[token]; ok {
		return pattern
	}
	// token 以非單詞字符或字串邊界為界；\b 在 "denat." 這類
	// 以標點結尾的成分上會失效，所以不用 \b
	pattern = regexp.MustCompile(`(?:^|[^\w])` + regexp.QuoteMeta(token) + `(?:[^\w]|$)`)
	m.patterns[token] = pattern
	return pattern
}
