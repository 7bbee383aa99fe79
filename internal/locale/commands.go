package locale

import "strings"

type CommandKind int

const (
	CmdNone CommandKind = iota
	CmdReset
	CmdHelp
	CmdPaths
	CmdTrust
	CmdLang
)

// Command is a parsed control command. Arg carries the path for CmdTrust and
// the language code for CmdLang.
type Command struct {
	Kind CommandKind
	Arg  string
}

// builtinAliases maps canonical command names to their accepted spellings.
// Synonyms are data, not code: operators can merge more per deployment.
var builtinAliases = map[string][]string{
	"reset": {"/reset", "reset", "리셋", "새대화"},
	"help":  {"/help", "help", "도움말"},
	"paths": {"/paths", "paths", "경로", "경로목록"},
}

var canonicalKinds = map[string]CommandKind{
	"reset": CmdReset,
	"help":  CmdHelp,
	"paths": CmdPaths,
	"trust": CmdTrust,
	"lang":  CmdLang,
}

// CommandSet resolves normalized lowercase input to a control command.
type CommandSet struct {
	exact map[string]CommandKind
}

// NewCommandSet builds the set from built-in aliases merged with extra
// operator-supplied ones, keyed by canonical name.
func NewCommandSet(extra map[string][]string) *CommandSet {
	exact := map[string]CommandKind{}
	add := func(name string, aliases []string) {
		kind, ok := canonicalKinds[name]
		if !ok {
			return
		}
		for _, a := range aliases {
			a = strings.ToLower(strings.TrimSpace(a))
			if a != "" {
				exact[a] = kind
			}
		}
	}
	for name, aliases := range builtinAliases {
		add(name, aliases)
	}
	for name, aliases := range extra {
		add(name, aliases)
	}
	return &CommandSet{exact: exact}
}

// Parse matches text against the command set. Argument-bearing commands
// (/trust, /lang) match on their prefix.
func (s *CommandSet) Parse(text string) (Command, bool) {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if kind, ok := s.exact[normalized]; ok {
		return Command{Kind: kind}, true
	}

	raw := strings.TrimSpace(text)
	if arg, ok := argCommand(raw, "/trust"); ok {
		return Command{Kind: CmdTrust, Arg: arg}, true
	}
	if arg, ok := argCommand(raw, "/lang"); ok {
		return Command{Kind: CmdLang, Arg: strings.ToLower(arg)}, true
	}
	return Command{}, false
}

func argCommand(text, prefix string) (string, bool) {
	if !strings.HasPrefix(strings.ToLower(text), prefix) {
		return "", false
	}
	if len(text) > len(prefix) && text[len(prefix)] != ' ' {
		return "", false
	}
	rest := strings.TrimSpace(text[len(prefix):])
	return rest, true
}
