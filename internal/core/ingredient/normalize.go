package ingredient

import (
	"strings"
)

// 成分字串的分隔符：逗號、分號、換行
var sourceSplitter = func(r rune) bool {
	return r == ',' || r == ';' || r == '\n'
}

// bracketReplacer 移除括號類字符
var bracketReplacer = strings.NewReplacer("(", "", ")", "", "[", "", "]", "", "{", "", "}", "")

// Normalize 將原始成分字串正規化為可比較的 token
// 小寫、去頭尾空白、移除括號字符、內部連續空白壓成一格。
// 純函式，任何輸入（包括空字串）都不會失敗。
func Normalize(raw string) string {
	token := strings.ToLower(strings.TrimSpace(raw))
	token = bracketReplacer.Replace(token)
	return strings.Join(strings.Fields(token), " ")
}

// Set 正規化後的成分集合
// members 提供 O(1) 的精確查找，ordered 保留原始排列
// （前幾名成分視為高濃度訊號）。
type Set struct {
	members map[string]struct{}
	ordered []string
}

// NewSetFromString 由單一成分字串建立集合（以逗號/分號/換行切分）
func NewSetFromString(source string) *Set {
	return newSet(strings.FieldsFunc(source, sourceSplitter))
}

// NewSetFromList 由成分名稱列表建立集合
func NewSetFromList(items []string) *Set {
	return newSet(items)
}

func newSet(items []string) *Set {
	s := &Set{members: make(map[string]struct{}, len(items))}
	for _, item := range items {
		token := Normalize(item)
		if token == "" {
			continue
		}
		if _, exists := s.members[token]; exists {
			continue
		}
		s.members[token] = struct{}{}
		s.ordered = append(s.ordered, token)
	}
	return s
}

// Contains 精確查找正規化後的 token
func (s *Set) Contains(token string) bool {
	if s == nil {
		return false
	}
	_, ok := s.members[token]
	return ok
}

// Tokens 回傳保留順序的 token 列表
func (s *Set) Tokens() []string {
	if s == nil {
		return nil
	}
	return s.ordered
}

// FirstN 回傳前 N 個 token
func (s *Set) FirstN(n int) []string {
	if s == nil || n <= 0 {
		return nil
	}
	if n > len(s.ordered) {
		n = len(s.ordered)
	}
	return s.ordered[:n]
}

// Size 集合中不同 token 的數量
func (s *Set) Size() int {
	if s == nil {
		return 0
	}
	return len(s.members)
}
