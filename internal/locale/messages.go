package locale

import (
	"strings"
	"sync"
)

// messages holds the per-language reply catalog, ported from the original
// deployment's ko/en set.
var messages = map[string]map[string]string{
	"ko": {
		"thinking":         "⏳ Claude가 생각하는 중...",
		"approved_running": "⏳ 승인됨! Claude가 실행 중...",
		"no_response":      "🤔 Claude가 응답하지 않았습니다.",
		"reset_done":       "🔄 새 대화를 시작합니다!",
		"image_generated":  "📊 생성된 이미지",
		"image_referenced": "📎 참조된 이미지",
		"image_related":    "📎 관련 이미지",
		"security_warning": "⚠️ *보안 경고*\n\nAI가 다음 경로에 접근하려고 합니다:",
		"request_label":    "📝 요청:",
		"btn_approve_run":  "✅ 승인 및 실행",
		"btn_approve_perm": "✅ 승인 (영구)",
		"btn_deny":         "❌ 거절",
		"approved_by":      "✅ 승인함:",
		"denied_by":        "❌ 거절됨. 작업이 취소되었습니다:",
		"expired":          "⌛ 승인 요청이 만료되어 작업이 취소되었습니다.",
		"paths_title":      "📂 *신뢰 경로 목록*",
		"paths_empty":      "등록된 신뢰 경로가 없습니다.",
		"path_added":       "✅ 신뢰 경로 추가됨:",
		"path_already":     "ℹ️ 이미 신뢰 경로입니다:",
		"path_removed":     "🔒 신뢰 경로 제거됨:",
		"path_immutable":   "⚠️ 기본 작업 디렉토리는 제거할 수 없습니다.",
		"path_not_found":   "⚠️ 이미 제거된 경로입니다.",
		"trust_usage":      "사용법: `/trust /경로/이름`",
		"lang_set":         "✅ 언어가 변경되었습니다:",
		"lang_usage":       "사용법: `/lang ko` 또는 `/lang en`",
		"help_title":       "🤖 *Claude Code Bridge Bot*",
		"empty_message":    "무엇을 도와드릴까요? 🤔",
		"default_marker":   "(기본)",
		"limit_reached":    "🚫 사용량 한도에 도달했습니다. 플랜을 업그레이드해 주세요.",
		"agent_offline":    "🔌 Agent가 연결되어 있지 않습니다. 로컬에서 Agent를 실행해 주세요.",
		"welcome_key":      "👋 환영합니다! 발급된 API 키:",
	},
	"en": {
		"thinking":         "⏳ Claude is thinking...",
		"approved_running": "⏳ Approved! Claude is running...",
		"no_response":      "🤔 Claude did not respond.",
		"reset_done":       "🔄 Starting a new conversation!",
		"image_generated":  "📊 Generated image",
		"image_referenced": "📎 Referenced image",
		"image_related":    "📎 Related image",
		"security_warning": "⚠️ *Security Warning*\n\nAI is trying to access the following paths:",
		"request_label":    "📝 Request:",
		"btn_approve_run":  "✅ Approve & Run",
		"btn_approve_perm": "✅ Approve (Permanent)",
		"btn_deny":         "❌ Deny",
		"approved_by":      "✅ Approved by:",
		"denied_by":        "❌ Denied. Task cancelled by:",
		"expired":          "⌛ Approval request expired; the task was cancelled.",
		"paths_title":      "📂 *Trusted Paths*",
		"paths_empty":      "No trusted paths registered.",
		"path_added":       "✅ Trusted path added:",
		"path_already":     "ℹ️ Already a trusted path:",
		"path_removed":     "🔒 Trusted path removed:",
		"path_immutable":   "⚠️ The base work directory cannot be removed.",
		"path_not_found":   "⚠️ That path is no longer in the trusted list.",
		"trust_usage":      "Usage: `/trust /path/name`",
		"lang_set":         "✅ Language changed:",
		"lang_usage":       "Usage: `/lang ko` or `/lang en`",
		"help_title":       "🤖 *Claude Code Bridge Bot*",
		"empty_message":    "What can I help you with? 🤔",
		"default_marker":   "(default)",
		"limit_reached":    "🚫 Usage limit reached. Please upgrade your plan.",
		"agent_offline":    "🔌 No agent connected. Please start your agent locally.",
		"welcome_key":      "👋 Welcome! Your API key:",
	},
}

// Get returns the message for key in lang, falling back to English and then
// to the key itself.
func Get(key, lang string) string {
	if m, ok := messages[lang]; ok {
		if msg, ok := m[key]; ok {
			return msg
		}
	}
	if msg, ok := messages["en"][key]; ok {
		return msg
	}
	return key
}

// NormalizeLocale maps a platform locale string (ko-KR, en-US) onto a
// supported language code.
func NormalizeLocale(locale string) string {
	lang, _, _ := strings.Cut(locale, "-")
	lang = strings.ToLower(strings.TrimSpace(lang))
	if _, ok := messages[lang]; ok {
		return lang
	}
	return "en"
}

// Supported reports whether lang is a known language code.
func Supported(lang string) bool {
	_, ok := messages[lang]
	return ok
}

// Prefs tracks per-user language overrides set with the lang command.
type Prefs struct {
	// BotLang pins every reply to one language when not "auto".
	BotLang string

	mu        sync.Mutex
	overrides map[string]string
}

func NewPrefs(botLang string) *Prefs {
	if botLang == "" {
		botLang = "auto"
	}
	return &Prefs{BotLang: botLang, overrides: map[string]string{}}
}

// Set stores a user's explicit language choice. Returns false for unknown
// codes.
func (p *Prefs) Set(userID, lang string) bool {
	if !Supported(lang) {
		return false
	}
	p.mu.Lock()
	p.overrides[userID] = lang
	p.mu.Unlock()
	return true
}

// Resolve picks the reply language for a user: explicit override first, then
// the pinned bot language, then the platform locale.
func (p *Prefs) Resolve(userID, platformLocale string) string {
	p.mu.Lock()
	lang, ok := p.overrides[userID]
	p.mu.Unlock()
	if ok {
		return lang
	}
	if p.BotLang != "auto" && Supported(p.BotLang) {
		return p.BotLang
	}
	return NormalizeLocale(platformLocale)
}
