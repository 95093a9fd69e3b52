package negotiate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

const (
	// Wildcard accepts any client token at the priority it is listed with.
	Wildcard = "*"

	// separator is the literal client-list separator. Quoted strings and
	// ";" parameters are not understood.
	separator = ", "
)

var (
	ErrEmptyOptionValue     = errors.New("option value is empty")
	ErrDuplicateOptionValue = errors.New("duplicate option value")
)

// Option is one acceptable value for a negotiable header. Higher priority wins.
type Option struct {
	Value    string `yaml:"value" mapstructure:"value"`
	Priority int    `yaml:"priority" mapstructure:"priority"`
}

// Options is a server-side priority list. It is never modified by Negotiate,
// so one list may be shared by any number of concurrent callers.
type Options []Option

// Result is the outcome of a single negotiation. The zero value means no match.
type Result struct {
	Value   string
	Matched bool
}

// Selected builds a matched Result.
func Selected(value string) Result {
	return Result{Value: value, Matched: true}
}

// NoMatch is returned when no client token is acceptable.
var NoMatch = Result{}

func (r Result) String() string {
	if !r.Matched {
		return "NoMatch"
	}

	return fmt.Sprintf("Selected(%q)", r.Value)
}

// Tokens splits a raw client header value into trimmed candidate tokens.
func Tokens(raw string) []string {
	parts := strings.Split(raw, separator)
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	return parts
}

// Negotiate picks the client token whose matching option has the strictly
// greatest priority. Ties keep the token seen first in raw.
func Negotiate(raw string, options Options) Result {
	var (
		best     Result
		bestPrio int
	)
	for _, token := range Tokens(raw) {
		prio, ok := options.lookup(token)
		if !ok {
			continue
		}
		if !best.Matched || prio > bestPrio {
			best = Selected(token)
			bestPrio = prio
		}
	}

	return best
}

// lookup prefers an exact option over the wildcard.
func (o Options) lookup(token string) (int, bool) {
	if token == "" {
		return 0, false
	}
	wildcardPrio, wildcard := 0, false
	for _, opt := range o {
		if opt.Value == token {
			return opt.Priority, true
		}
		if opt.Value == Wildcard && !wildcard {
			wildcardPrio, wildcard = opt.Priority, true
		}
	}

	return wildcardPrio, wildcard
}

// Validate reports empty and duplicate values.
func (o Options) Validate() error {
	seen := make(map[string]struct{}, len(o))
	for i, opt := range o {
		if strings.TrimSpace(opt.Value) == "" {
			return errors.Wrapf(ErrEmptyOptionValue, "option #%d", i)
		}
		if _, dup := seen[opt.Value]; dup {
			return errors.Wrapf(ErrDuplicateOptionValue, "option %q", opt.Value)
		}
		seen[opt.Value] = struct{}{}
	}

	return nil
}

// Values returns the option values ordered by priority, highest first.
func (o Options) Values() []string {
	sorted := make(Options, len(o))
	copy(sorted, o)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority > sorted[j].Priority
	})
	values := make([]string, 0, len(sorted))
	for _, opt := range sorted {
		values = append(values, opt.Value)
	}

	return values
}
