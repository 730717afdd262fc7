package shell

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/ledzpl/syncstr/pkg/syncstr"
	"github.com/ledzpl/syncstr/pkg/syncstr/tokenize"
)

// Command lines are split on blanks; quotes group words and a backslash
// escapes the next byte.
var lineConfig = tokenize.Config{
	Delimiters: " \t",
	ZonePairs:  `""''`,
	Escapes:    `\`,
}

var errUsage = errors.New("usage")

type command struct {
	usage   string
	minArgs int
	mutates bool
	run     func(ws *Workspace, args []string) (string, error)
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"help":   {usage: "help", run: runHelp},
		"list":   {usage: "list", run: runList},
		"show":   {usage: "show NAME", minArgs: 1, run: runShow},
		"set":    {usage: "set NAME TEXT...", minArgs: 1, mutates: true, run: runSet},
		"append": {usage: "append NAME TEXT...", minArgs: 2, mutates: true, run: runAppend},
		"push":   {usage: "push NAME TEXT", minArgs: 2, mutates: true, run: runPush},
		"pop":    {usage: "pop NAME", minArgs: 1, mutates: true, run: runPop},
		"insert": {usage: "insert NAME INDEX CHAR", minArgs: 3, mutates: true, run: runInsert},
		"erase":  {usage: "erase NAME INDEX COUNT", minArgs: 3, mutates: true, run: runErase},
		"sub":    {usage: "sub NAME START LENGTH [DEST]", minArgs: 3, run: runSub},
		"find":   {usage: "find NAME TEXT", minArgs: 2, run: runFind},
		"upper":  {usage: "upper NAME", minArgs: 1, mutates: true, run: inPlace((*syncstr.Buffer).ToUpper)},
		"lower":  {usage: "lower NAME", minArgs: 1, mutates: true, run: inPlace((*syncstr.Buffer).ToLower)},
		"trim":   {usage: "trim NAME", minArgs: 1, mutates: true, run: runTrim},
		"shrink": {usage: "shrink NAME", minArgs: 1, mutates: true, run: inPlace((*syncstr.Buffer).ShrinkToFit)},
		"clear":  {usage: "clear NAME", minArgs: 1, mutates: true, run: inPlace((*syncstr.Buffer).Clear)},
		"resize": {usage: "resize NAME CAPACITY", minArgs: 2, mutates: true, run: runResize},
		"swap":   {usage: "swap NAME NAME", minArgs: 2, mutates: true, run: runSwap},
		"tokens": {usage: "tokens NAME DELIMS [ZONES [ESCAPES]]", minArgs: 2, run: runTokens},
		"drop":   {usage: "drop NAME", minArgs: 1, mutates: true, run: runDrop},
	}
}

// ParseLine splits a command line into unquoted arguments.
func ParseLine(line string) ([]string, error) {
	buf, err := syncstr.FromString(line, syncstr.WithEncoder(syncstr.UTF8()))
	if err != nil {
		return nil, err
	}
	defer func() { _ = buf.Destroy() }()

	raw, err := tokenize.All(buf, lineConfig)
	if err != nil {
		return nil, err
	}
	args := make([]string, len(raw))
	for i, tok := range raw {
		args[i] = tokenize.Unquote(tok, lineConfig.ZonePairs, lineConfig.Escapes)
	}
	return args, nil
}

// Execute runs one command line against the workspace. It returns the
// command output and whether the command changed shared state.
func (ws *Workspace) Execute(line string) (string, bool, error) {
	args, err := ParseLine(line)
	if err != nil {
		return "", false, err
	}
	if len(args) == 0 {
		return "", false, nil
	}

	name := strings.ToLower(args[0])
	cmd, ok := commands[name]
	if !ok {
		ws.metrics.observeCommand("unknown", errUsage)
		return "", false, fmt.Errorf("unknown command %q, try help", args[0])
	}
	if len(args)-1 < cmd.minArgs {
		ws.metrics.observeCommand(name, errUsage)
		return "", false, fmt.Errorf("%w: %s", errUsage, cmd.usage)
	}

	out, err := cmd.run(ws, args[1:])
	ws.metrics.observeCommand(name, err)
	if err != nil {
		return "", false, err
	}
	if cmd.mutates {
		ws.sampleCapacity()
	}
	return out, cmd.mutates, nil
}

func atoi(s, what string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q is not a number", syncstr.ErrInvalidArgument, what, s)
	}
	return n, nil
}

func describe(name string, b *syncstr.Buffer) string {
	// Length, capacity and content are read under one lock.
	b.Lock()
	defer b.Unlock()
	if b.LenLocked() == syncstr.Invalid {
		return fmt.Sprintf("%s <destroyed>", name)
	}
	return fmt.Sprintf("%s = %s (len %d, cap %d)", name, strconv.Quote(string(b.BytesLocked())), b.LenLocked(), b.CapLocked())
}

func runHelp(*Workspace, []string) (string, error) {
	usages := make([]string, 0, len(commands))
	for _, cmd := range commands {
		usages = append(usages, "  "+cmd.usage)
	}
	sort.Strings(usages)
	return "commands:\n" + strings.Join(usages, "\n"), nil
}

func runList(ws *Workspace, _ []string) (string, error) {
	names := ws.Names()
	if len(names) == 0 {
		return "no registers", nil
	}
	lines := make([]string, 0, len(names))
	for _, name := range names {
		b, err := ws.Lookup(name)
		if err != nil {
			continue
		}
		lines = append(lines, describe(name, b))
	}
	return strings.Join(lines, "\n"), nil
}

func runShow(ws *Workspace, args []string) (string, error) {
	b, err := ws.Lookup(args[0])
	if err != nil {
		return "", err
	}
	return describe(args[0], b), nil
}

func runSet(ws *Workspace, args []string) (string, error) {
	if err := ws.Set(args[0], []rune(strings.Join(args[1:], " "))); err != nil {
		return "", err
	}
	return runShow(ws, args[:1])
}

func runAppend(ws *Workspace, args []string) (string, error) {
	b, err := ws.Ensure(args[0])
	if err != nil {
		return "", err
	}
	if err := b.AppendWide([]rune(strings.Join(args[1:], " "))); err != nil {
		return "", err
	}
	return describe(args[0], b), nil
}

func runPush(ws *Workspace, args []string) (string, error) {
	b, err := ws.Ensure(args[0])
	if err != nil {
		return "", err
	}
	if err := b.AppendWide([]rune(args[1])); err != nil {
		return "", err
	}
	return describe(args[0], b), nil
}

func runPop(ws *Workspace, args []string) (string, error) {
	b, err := ws.Lookup(args[0])
	if err != nil {
		return "", err
	}
	if err := b.PopBack(); err != nil {
		return "", err
	}
	return describe(args[0], b), nil
}

func runInsert(ws *Workspace, args []string) (string, error) {
	b, err := ws.Lookup(args[0])
	if err != nil {
		return "", err
	}
	at, err := atoi(args[1], "index")
	if err != nil {
		return "", err
	}
	if len(args[2]) != 1 {
		return "", fmt.Errorf("%w: insert takes a single byte, got %q", syncstr.ErrInvalidArgument, args[2])
	}
	if err := b.Insert(at, args[2][0]); err != nil {
		return "", err
	}
	return describe(args[0], b), nil
}

func runErase(ws *Workspace, args []string) (string, error) {
	b, err := ws.Lookup(args[0])
	if err != nil {
		return "", err
	}
	at, err := atoi(args[1], "index")
	if err != nil {
		return "", err
	}
	n, err := atoi(args[2], "count")
	if err != nil {
		return "", err
	}
	if err := b.Erase(at, n); err != nil {
		return "", err
	}
	return describe(args[0], b), nil
}

func runSub(ws *Workspace, args []string) (string, error) {
	b, err := ws.Lookup(args[0])
	if err != nil {
		return "", err
	}
	start, err := atoi(args[1], "start")
	if err != nil {
		return "", err
	}
	n, err := atoi(args[2], "length")
	if err != nil {
		return "", err
	}
	sub, err := b.Substring(start, n)
	if err != nil {
		return "", err
	}
	if len(args) > 3 {
		out := strconv.Quote(sub.String())
		if err := ws.Store(args[3], sub); err != nil {
			return "", err
		}
		return fmt.Sprintf("%s -> %s", out, args[3]), nil
	}
	defer func() { _ = sub.Destroy() }()
	return strconv.Quote(sub.String()), nil
}

func runFind(ws *Workspace, args []string) (string, error) {
	b, err := ws.Lookup(args[0])
	if err != nil {
		return "", err
	}
	needle := strings.Join(args[1:], " ")
	at, err := b.FindWide([]rune(needle))
	if err != nil {
		return "", err
	}
	if at == syncstr.Invalid {
		return "", fmt.Errorf("%w: %q in %s", syncstr.ErrNotFound, needle, args[0])
	}
	return strconv.Itoa(at), nil
}

func inPlace(op func(*syncstr.Buffer) error) func(*Workspace, []string) (string, error) {
	return func(ws *Workspace, args []string) (string, error) {
		b, err := ws.Lookup(args[0])
		if err != nil {
			return "", err
		}
		if err := op(b); err != nil {
			return "", err
		}
		return describe(args[0], b), nil
	}
}

func runTrim(ws *Workspace, args []string) (string, error) {
	b, err := ws.Lookup(args[0])
	if err != nil {
		return "", err
	}
	changed, err := b.Trim()
	if err != nil {
		return "", err
	}
	if !changed {
		return describe(args[0], b) + " unchanged", nil
	}
	return describe(args[0], b), nil
}

func runResize(ws *Workspace, args []string) (string, error) {
	b, err := ws.Lookup(args[0])
	if err != nil {
		return "", err
	}
	n, err := atoi(args[1], "capacity")
	if err != nil {
		return "", err
	}
	if err := b.Resize(n); err != nil {
		return "", err
	}
	return describe(args[0], b), nil
}

func runSwap(ws *Workspace, args []string) (string, error) {
	a, err := ws.Lookup(args[0])
	if err != nil {
		return "", err
	}
	b, err := ws.Lookup(args[1])
	if err != nil {
		return "", err
	}
	if err := a.Swap(b); err != nil {
		return "", err
	}
	return describe(args[0], a) + "\n" + describe(args[1], b), nil
}

func runTokens(ws *Workspace, args []string) (string, error) {
	b, err := ws.Lookup(args[0])
	if err != nil {
		return "", err
	}
	cfg := tokenize.Config{Delimiters: args[1]}
	if len(args) > 2 {
		cfg.ZonePairs = args[2]
	}
	if len(args) > 3 {
		cfg.Escapes = args[3]
	}
	toks, err := tokenize.All(b, cfg)
	if err != nil {
		return "", err
	}
	if len(toks) == 0 {
		return "no tokens", nil
	}
	lines := make([]string, len(toks))
	for i, tok := range toks {
		lines[i] = fmt.Sprintf("%d: %s", i, strconv.Quote(tok))
	}
	return strings.Join(lines, "\n"), nil
}

func runDrop(ws *Workspace, args []string) (string, error) {
	if err := ws.Drop(args[0]); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s dropped", args[0]), nil
}
