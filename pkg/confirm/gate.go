package confirm

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/term"

	"github.com/launchforge/launchforge/pkg/errdefs"
)

const (
	// tokenTTL is how long a dry-run token stays valid.
	tokenTTL = 5 * time.Minute

	// minimumAge is how old a token must be before it is honored. A caller
	// that runs the dry run and immediately confirms has to wait, which is
	// the anti-automation property of the gate.
	minimumAge = 10 * time.Second

	tokenBytes = 4
)

// Options control a single pass through the gate.
type Options struct {
	// DryRun renders the summary, records a pending confirmation, and stops.
	DryRun bool

	// Token is the confirmation token from a prior dry run.
	Token string

	// Force bypasses the gate entirely. Only honored when the invoking
	// process has an interactive terminal attached.
	Force bool

	// Payload is free-form text carried from dry run to confirmation, e.g. a
	// prompt the confirm step should not have to re-enter.
	Payload string
}

// Outcome is the result of a pass through the gate.
type Outcome struct {
	// Proceed is true when the gated action may run now.
	Proceed bool

	// Token is the issued token when a dry run recorded a confirmation.
	Token string

	// FollowUp is the exact command to run to confirm the dry run.
	FollowUp string

	// Payload is the text attached at dry-run time, returned on confirmation.
	Payload string
}

// Gate gates irreversible operations behind a dry-run/confirm handshake.
type Gate struct {
	store store

	// now and interactive are swappable for tests.
	now         func() time.Time
	interactive func() bool
}

// NewGate creates a gate persisting pending confirmations at path.
func NewGate(path string) *Gate {
	return &Gate{
		store: store{path: path, now: time.Now},
		now:   time.Now,
		interactive: func() bool {
			return term.IsTerminal(int(os.Stdin.Fd()))
		},
	}
}

// Require runs the confirmation handshake for the given command and argument
// map. The summary is the human-readable description of what the command
// would do.
func (g *Gate) Require(command string, args map[string]string, summary string, opts Options) (*Outcome, error) {
	if opts.Force {
		if !g.interactive() {
			return nil, errdefs.NewAuthorizationError(
				"--force requires an interactive terminal; run with --dry-run and confirm instead", nil)
		}
		log.Warn().Str("command", command).Msg("confirmation gate bypassed with --force")
		return &Outcome{Proceed: true, Payload: opts.Payload}, nil
	}

	key := requestHash(command, args)

	if opts.DryRun {
		return g.recordDryRun(key, command, args, summary, opts.Payload)
	}

	if opts.Token != "" {
		return g.consume(key, command, opts.Token)
	}

	return nil, errdefs.NewAuthorizationError(
		fmt.Sprintf("%s is irreversible; run it with --dry-run first, then confirm with the issued token", command), nil).
		WithHint(followUpCommand(command, args, "<token>"))
}

// recordDryRun persists a pending confirmation and returns the token along
// with the exact follow-up command.
func (g *Gate) recordDryRun(key, command string, args map[string]string, summary, payload string) (*Outcome, error) {
	doc, err := g.store.load()
	if err != nil {
		return nil, err
	}

	now := g.now()
	token := randomToken()
	doc.Confirmations[key] = pending{
		Token:     token,
		CreatedAt: now,
		ExpiresAt: now.Add(tokenTTL),
		Command:   command,
		Summary:   summary,
		Prompt:    payload,
	}
	if err := g.store.save(doc); err != nil {
		return nil, err
	}

	log.Info().Str("command", command).Time("expires_at", now.Add(tokenTTL)).Msg("confirmation recorded")
	return &Outcome{
		Proceed:  false,
		Token:    token,
		FollowUp: followUpCommand(command, args, token),
	}, nil
}

// consume validates a presented token. Validation deletes the entry, making
// every token single-use.
func (g *Gate) consume(key, command, token string) (*Outcome, error) {
	doc, err := g.store.load()
	if err != nil {
		return nil, err
	}

	entry, ok := doc.Confirmations[key]
	if !ok {
		return nil, errdefs.NewAuthorizationError(
			fmt.Sprintf("no pending confirmation for %s; it may have expired or been consumed, run --dry-run again", command), nil)
	}
	if entry.Token != token {
		return nil, errdefs.NewAuthorizationError(
			fmt.Sprintf("confirmation token mismatch for %s", command), nil)
	}

	age := g.now().Sub(entry.CreatedAt)
	if age < minimumAge {
		return nil, errdefs.NewAuthorizationError(
			fmt.Sprintf("confirmation for %s is too recent (%s old, minimum %s); wait and retry", command, age.Round(time.Second), minimumAge), nil)
	}

	delete(doc.Confirmations, key)
	if err := g.store.save(doc); err != nil {
		return nil, err
	}

	log.Info().Str("command", command).Msg("confirmation accepted")
	return &Outcome{Proceed: true, Payload: entry.Prompt}, nil
}

// requestHash stably hashes a command name and its argument map.
func requestHash(command string, args map[string]string) string {
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := sha256.New()
	h.Write([]byte(command))
	for _, k := range keys {
		fmt.Fprintf(h, "\n%s=%s", k, args[k])
	}
	return hex.EncodeToString(h.Sum(nil))
}

// followUpCommand renders the exact invocation that confirms a dry run.
func followUpCommand(command string, args map[string]string, token string) string {
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("forge ")
	b.WriteString(command)
	for _, k := range keys {
		fmt.Fprintf(&b, " --%s %s", k, args[k])
	}
	fmt.Fprintf(&b, " --confirm %s", token)
	return b.String()
}

func randomToken() string {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return hex.EncodeToString(buf)
}
