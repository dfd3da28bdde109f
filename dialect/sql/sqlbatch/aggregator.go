// Package sqlbatch merges independently built statements into one compound
// command with a single parameter set.
package sqlbatch

import (
	"log/slog"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/syssam/vellum"
	"github.com/syssam/vellum/dialect/sql"
	"github.com/syssam/vellum/dialect/sql/sqlquery"
)

// maxAliasAttempts bounds the search for a free parameter alias.
var maxAliasAttempts = 10000

// Aggregator collects statements and merges their parameters. Parameters
// of the same name and equal value are bound once; a parameter colliding
// with a different value is renamed to base+N and the statement text is
// rewritten accordingly.
//
// An Aggregator is not safe for concurrent use.
type Aggregator struct {
	provider sql.Provider
	log      *slog.Logger
	texts    []string
	params   *sql.ParameterSet
	// aliases maps a folded base name to the aliases created for it.
	aliases map[string][]string
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithLogger sets the logger used to report renamed parameters.
func WithLogger(l *slog.Logger) Option {
	return func(a *Aggregator) {
		if l != nil {
			a.log = l
		}
	}
}

// New returns an empty aggregator for the dialect of p.
func New(p sql.Provider, opts ...Option) *Aggregator {
	a := &Aggregator{
		provider: p,
		log:      slog.Default(),
		params:   sql.NewParameterSet(),
		aliases:  make(map[string][]string),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Len returns the number of statements added.
func (a *Aggregator) Len() int { return len(a.texts) }

// Parameters returns a copy of the merged parameters.
func (a *Aggregator) Parameters() *sql.ParameterSet { return a.params.Clone() }

// Reset removes all statements and parameters.
func (a *Aggregator) Reset() {
	a.texts = nil
	a.params = sql.NewParameterSet()
	clear(a.aliases)
}

// Add merges s into the aggregate. On error the aggregate is unchanged.
func (a *Aggregator) Add(s *sqlquery.Statement) error {
	if s == nil || strings.TrimSpace(s.Text) == "" {
		return vellum.NewInvalidArgumentError("statement", "statement must not be empty")
	}
	var (
		params  = a.params.Clone()
		aliases = make(map[string][]string, len(a.aliases))
		renames = make(map[string]string)
		origin  = make(map[string]string)
		used    = make(map[string]struct{})
	)
	for k, v := range a.aliases {
		aliases[k] = slices.Clone(v)
	}
	for _, name := range s.Params.Names() {
		used[sql.Fold(name)] = struct{}{}
	}
	for _, p := range s.Params.All() {
		cur, ok := params.Get(p.Name)
		if !ok {
			if err := params.Add(a.provider.CloneParameter(p)); err != nil {
				return err
			}
			continue
		}
		if a.provider.ParametersEqual(cur, p) {
			continue
		}
		base := sql.Fold(p.Name)
		alias := a.reuse(params, aliases[base], p)
		if alias == "" {
			var err error
			if alias, err = a.synthesize(params, used, p.Name); err != nil {
				return err
			}
			c := a.provider.CloneParameter(p)
			c.Name = alias
			if err := params.Add(c); err != nil {
				return err
			}
			aliases[base] = append(aliases[base], alias)
		}
		renames[base] = alias
		origin[base] = p.Name
	}

	prefix := a.provider.BindPrefix()
	text, counts := sql.RewriteTokens(s.Text, prefix, renames)
	for _, key := range slices.Sorted(maps.Keys(renames)) {
		if counts[key] == 0 {
			return &vellum.TokenReplaceError{Token: prefix + origin[key], Replacement: prefix + renames[key]}
		}
		a.log.Debug("parameter aliased", "parameter", origin[key], "alias", renames[key], "occurrences", counts[key])
	}

	a.texts = append(a.texts, a.trim(text))
	a.params = params
	a.aliases = aliases
	return nil
}

// reuse returns the first alias of a base name whose parameter equals p.
func (a *Aggregator) reuse(params *sql.ParameterSet, aliases []string, p *sql.Parameter) string {
	for _, alias := range aliases {
		if cur, ok := params.Get(alias); ok && a.provider.ParametersEqual(cur, p) {
			return alias
		}
	}
	return ""
}

// synthesize returns base+N for the lowest free N, with base truncated to
// the identifier limit. Names of the aggregate and of the incoming
// statement are taken.
func (a *Aggregator) synthesize(params *sql.ParameterSet, used map[string]struct{}, base string) (string, error) {
	for n := 1; n <= maxAliasAttempts; n++ {
		name := sql.FitName(a.provider, base, strconv.Itoa(n))
		if _, ok := used[sql.Fold(name)]; ok || params.Contains(name) {
			continue
		}
		return name, nil
	}
	return "", vellum.NewInvalidArgumentError(base, "no free parameter alias after %d attempts", maxAliasAttempts)
}

func (a *Aggregator) trim(text string) string {
	text = strings.TrimSpace(text)
	for term := a.provider.Terminator(); term != "" && strings.HasSuffix(text, term); {
		text = strings.TrimSpace(strings.TrimSuffix(text, term))
	}
	return text
}

// Statement returns the compound command. Statements are separated by the
// dialect terminator and wrapped in the dialect's compound block when it
// has one.
func (a *Aggregator) Statement() *sqlquery.Statement {
	term := a.provider.Terminator()
	begin, end := a.provider.CompoundBlock()
	var text string
	if begin == "" {
		text = strings.Join(a.texts, term+"\n")
	} else {
		var sb strings.Builder
		sb.WriteString(begin + "\n")
		for _, t := range a.texts {
			sb.WriteString(t + term + "\n")
		}
		sb.WriteString(end)
		text = sb.String()
	}
	return &sqlquery.Statement{Text: text, Params: a.params.Clone()}
}
