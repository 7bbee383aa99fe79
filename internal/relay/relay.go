// Package relay ties inbound chat events to the approval gate, the CLI
// executor, output cleanup, and outbound replies.
package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"vibebridge/bot/internal/approval"
	"vibebridge/bot/internal/chat"
	"vibebridge/bot/internal/claude"
	"vibebridge/bot/internal/cleaner"
	"vibebridge/bot/internal/images"
	"vibebridge/bot/internal/locale"
	"vibebridge/bot/internal/logging"
	"vibebridge/bot/internal/trust"
)

// Action ids carried by approval prompt buttons.
const (
	ActionApprove          = "approve_access"
	ActionApprovePermanent = "approve_permanent"
	ActionDeny             = "deny_access"
	ActionRemovePath       = "remove_trusted_path"
)

// Executor runs one instruction against the coding CLI. Satisfied by
// claude.Runner; tests substitute a fake.
type Executor interface {
	Run(ctx context.Context, message string, continueSession bool) claude.Result
	Reset()
}

// Options collects the relay's collaborators.
type Options struct {
	Logger    *slog.Logger
	Transport chat.Transport
	Gate      *approval.Gate
	Trust     *trust.Store
	Executor  Executor
	Commands  *locale.CommandSet
	Prefs     *locale.Prefs
	WorkDir   string
	MaxLen    int

	// PostsPerSecond throttles outbound chunk posts. Zero means unlimited.
	PostsPerSecond float64
}

// Relay dispatches chat events and approval actions.
type Relay struct {
	logger    *slog.Logger
	transport chat.Transport
	gate      *approval.Gate
	trust     *trust.Store
	exec      Executor
	uploader  *images.Uploader
	commands  *locale.CommandSet
	prefs     *locale.Prefs
	workDir   string
	maxLen    int
	limiter   *rate.Limiter
}

func New(opts Options) *Relay {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewLogger(logging.Options{Writer: io.Discard})
	}
	maxLen := opts.MaxLen
	if maxLen <= 0 {
		maxLen = cleaner.DefaultMaxLength
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.PostsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.PostsPerSecond), 1)
	}
	commands := opts.Commands
	if commands == nil {
		commands = locale.NewCommandSet(nil)
	}
	prefs := opts.Prefs
	if prefs == nil {
		prefs = locale.NewPrefs("auto")
	}
	return &Relay{
		logger:    logger,
		transport: opts.Transport,
		gate:      opts.Gate,
		trust:     opts.Trust,
		exec:      opts.Executor,
		uploader:  images.NewUploader(logger, opts.Transport),
		commands:  commands,
		prefs:     prefs,
		workDir:   opts.WorkDir,
		maxLen:    maxLen,
		limiter:   limiter,
	}
}

var mentionPattern = regexp.MustCompile(`<@[A-Z0-9]+>`)

// StripMention removes bot-mention markup from an inbound message.
func StripMention(text string) string {
	return strings.TrimSpace(mentionPattern.ReplaceAllString(text, ""))
}

// HandleEvent processes one inbound chat message end to end. Each event is
// an independent unit of work; callers run it on its own goroutine.
func (r *Relay) HandleEvent(ctx context.Context, ev chat.Event) {
	text := StripMention(ev.Text)
	lang := r.userLang(ctx, ev.UserID)

	if text == "" {
		r.post(ctx, ev.Dest, locale.Get("empty_message", lang))
		return
	}

	if cmd, ok := r.commands.Parse(text); ok {
		r.handleCommand(ctx, ev, cmd, lang)
		return
	}

	cls := r.gate.Classify(text)
	if cls.AutoApproved {
		r.runAndReply(ctx, ev.Dest, text, locale.Get("thinking", lang), lang)
		return
	}

	taskID := r.gate.CreatePending(text, ev.Dest, ev.UserID, cls.UntrustedPaths)
	prompt := buildApprovalPrompt(taskID, text, cls.UntrustedPaths, lang)
	ref, err := r.transport.PostPrompt(ctx, ev.Dest, prompt)
	if err != nil {
		r.logger.Error("approval prompt post failed", "task_id", taskID, "error", err)
		return
	}
	r.gate.SetPromptRef(taskID, ref)
}

// HandleAction processes a button click on a previously posted message.
func (r *Relay) HandleAction(ctx context.Context, act chat.Action) {
	lang := r.userLang(ctx, act.UserID)

	switch act.ActionID {
	case ActionApprove, ActionApprovePermanent:
		task, ok := r.gate.Resolve(act.Value)
		if !ok {
			return
		}
		if act.ActionID == ActionApprovePermanent {
			r.gate.ApprovePermanent(task)
		}
		r.rewritePrompt(ctx, act.Message, task.Dest,
			fmt.Sprintf("%s <@%s>", locale.Get("approved_by", lang), act.UserID))
		r.runAndReply(ctx, task.Dest, task.Message, locale.Get("approved_running", lang), lang)

	case ActionDeny:
		task, ok := r.gate.Resolve(act.Value)
		if !ok {
			// Stale click on an already-resolved task.
			return
		}
		r.rewritePrompt(ctx, act.Message, task.Dest,
			fmt.Sprintf("%s <@%s>", locale.Get("denied_by", lang), act.UserID))

	case ActionRemovePath:
		switch err := r.trust.Remove(act.Value); {
		case err == nil:
			r.post(ctx, act.Message.Dest, fmt.Sprintf("%s `%s`", locale.Get("path_removed", lang), act.Value))
		case errors.Is(err, trust.ErrImmutablePath):
			r.post(ctx, act.Message.Dest, locale.Get("path_immutable", lang))
		default:
			// Stale click on an entry that is already gone.
			r.post(ctx, act.Message.Dest, locale.Get("path_not_found", lang))
		}

	default:
		r.logger.Warn("unknown action", "action_id", act.ActionID)
	}
}

func (r *Relay) handleCommand(ctx context.Context, ev chat.Event, cmd locale.Command, lang string) {
	switch cmd.Kind {
	case locale.CmdReset:
		r.exec.Reset()
		r.post(ctx, ev.Dest, locale.Get("reset_done", lang))

	case locale.CmdHelp:
		r.post(ctx, ev.Dest, helpText(lang, r.workDir))

	case locale.CmdPaths:
		r.post(ctx, ev.Dest, r.pathsText(lang))

	case locale.CmdTrust:
		if cmd.Arg == "" {
			r.post(ctx, ev.Dest, locale.Get("trust_usage", lang))
			return
		}
		normalized := trust.Normalize(cmd.Arg)
		if r.trust.IsTrusted(normalized) {
			r.post(ctx, ev.Dest, fmt.Sprintf("%s `%s`", locale.Get("path_already", lang), normalized))
			return
		}
		r.trust.Add(cmd.Arg)
		r.post(ctx, ev.Dest, fmt.Sprintf("%s `%s`", locale.Get("path_added", lang), normalized))

	case locale.CmdLang:
		if cmd.Arg == "" || !r.prefs.Set(ev.UserID, cmd.Arg) {
			r.post(ctx, ev.Dest, locale.Get("lang_usage", lang))
			return
		}
		// Confirm in the language just chosen.
		r.post(ctx, ev.Dest, fmt.Sprintf("%s `%s`", locale.Get("lang_set", cmd.Arg), cmd.Arg))
	}
}

// runAndReply is the auto-approved execution path: working indicator, image
// snapshot, CLI run, cleanup, chunked replies, then three image-discovery
// passes each excluding files an earlier pass already sent.
func (r *Relay) runAndReply(ctx context.Context, dest chat.Destination, message, indicator, lang string) {
	indicatorRef, indicatorErr := r.transport.PostMessage(ctx, dest, indicator)
	if indicatorErr != nil {
		r.logger.Warn("working indicator post failed", "error", indicatorErr)
	}

	before := images.Snapshot(r.workDir)
	result := r.exec.Run(ctx, message, true)

	if indicatorErr == nil {
		if err := r.transport.DeleteMessage(ctx, indicatorRef); err != nil {
			r.logger.Warn("working indicator delete failed", "error", err)
		}
	}

	chunks := cleaner.CleanAndSplit(result.Output, r.maxLen)
	if len(chunks) == 0 {
		r.post(ctx, dest, locale.Get("no_response", lang))
	}
	for _, chunk := range chunks {
		r.post(ctx, dest, chunk)
	}

	if !result.Succeeded {
		return
	}

	sent := map[string]bool{}
	upload := func(paths []string, prefixKey string) {
		fresh := paths[:0:0]
		for _, p := range paths {
			if !sent[p] {
				sent[p] = true
				fresh = append(fresh, p)
			}
		}
		if len(fresh) > 0 {
			r.uploader.Upload(ctx, dest, fresh, locale.Get(prefixKey, lang), false)
		}
	}
	upload(images.FindNewOrModified(r.workDir, before), "image_generated")
	upload(images.ExtractReferenced(result.Output, r.workDir), "image_referenced")
	upload(images.FindContextual(message, result.Output, r.workDir), "image_related")
}

// StartSweeper expires pending tasks that never got a button click. It
// returns immediately; the sweep loop stops when ctx is cancelled. A zero
// ttl disables sweeping.
func (r *Relay) StartSweeper(ctx context.Context, ttl, interval time.Duration) {
	if ttl <= 0 {
		return
	}
	if interval <= 0 {
		interval = time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				for _, task := range r.gate.SweepExpired(ttl) {
					r.expireTask(ctx, task)
				}
			}
		}
	}()
}

func (r *Relay) expireTask(ctx context.Context, task approval.PendingTask) {
	lang := r.userLang(ctx, task.Requester)
	text := locale.Get("expired", lang)
	if task.PromptRef.ID != "" {
		r.rewritePrompt(ctx, task.PromptRef, task.Dest, text)
		return
	}
	r.post(ctx, task.Dest, text)
}

// rewritePrompt replaces an interactive prompt's body. When the update fails
// (message deleted, rate-limited) the text is posted as a fresh message so
// the outcome is still visible.
func (r *Relay) rewritePrompt(ctx context.Context, ref chat.MessageRef, dest chat.Destination, text string) {
	if err := r.transport.UpdateMessage(ctx, ref, text); err != nil {
		r.logger.Warn("prompt update failed, posting fallback", "error", err)
		r.post(ctx, dest, text)
	}
}

func (r *Relay) post(ctx context.Context, dest chat.Destination, text string) {
	if err := r.limiter.Wait(ctx); err != nil {
		return
	}
	if _, err := r.transport.PostMessage(ctx, dest, text); err != nil {
		r.logger.Error("message post failed", "error", err)
	}
}

func (r *Relay) userLang(ctx context.Context, userID string) string {
	platform := ""
	if loc, err := r.transport.UserLocale(ctx, userID); err == nil {
		platform = loc
	}
	return r.prefs.Resolve(userID, platform)
}

func buildApprovalPrompt(taskID, message string, untrustedPaths []string, lang string) chat.Prompt {
	var b strings.Builder
	b.WriteString(locale.Get("security_warning", lang))
	b.WriteString("\n")
	for _, p := range untrustedPaths {
		fmt.Fprintf(&b, "• `%s`\n", p)
	}
	preview := message
	if len(preview) > 100 {
		preview = preview[:100] + "..."
	}
	fmt.Fprintf(&b, "\n%s _%s_", locale.Get("request_label", lang), preview)

	return chat.Prompt{
		Text: b.String(),
		Buttons: []chat.Button{
			{Label: locale.Get("btn_approve_run", lang), ActionID: ActionApprove, Value: taskID, Style: "primary"},
			{Label: locale.Get("btn_approve_perm", lang), ActionID: ActionApprovePermanent, Value: taskID},
			{Label: locale.Get("btn_deny", lang), ActionID: ActionDeny, Value: taskID, Style: "danger"},
		},
	}
}

func (r *Relay) pathsText(lang string) string {
	paths := r.trust.List()
	var b strings.Builder
	b.WriteString(locale.Get("paths_title", lang))
	b.WriteString("\n")
	if len(paths) == 0 {
		b.WriteString(locale.Get("paths_empty", lang))
	}
	for _, p := range paths {
		fmt.Fprintf(&b, "📁 `%s`", p)
		if p == r.trust.Base() {
			b.WriteString(" " + locale.Get("default_marker", lang))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n" + locale.Get("trust_usage", lang))
	return b.String()
}

func helpText(lang, workDir string) string {
	if lang == "ko" {
		return locale.Get("help_title", lang) + "\n\n" +
			"*사용법:*\n" +
			"• 메시지를 보내면 Claude가 응답합니다\n" +
			"• 대화는 자동으로 이어집니다\n\n" +
			"*명령어:*\n" +
			"• `리셋` 또는 `/reset` - 새 대화 시작\n" +
			"• `/paths` - 신뢰 경로 목록\n" +
			"• `/trust /경로` - 신뢰 경로 추가\n" +
			"• `/lang ko|en` - 언어 설정\n" +
			"• `도움말` 또는 `/help` - 이 도움말\n\n" +
			"*작업 디렉토리:* `" + workDir + "`"
	}
	return locale.Get("help_title", lang) + "\n\n" +
		"*Usage:*\n" +
		"• Send a message and Claude replies\n" +
		"• The conversation continues automatically\n\n" +
		"*Commands:*\n" +
		"• `reset` or `/reset` - start a new conversation\n" +
		"• `/paths` - list trusted paths\n" +
		"• `/trust /path` - add a trusted path\n" +
		"• `/lang ko|en` - set reply language\n" +
		"• `help` or `/help` - this help\n\n" +
		"*Work directory:* `" + workDir + "`"
}
