package bot

import (
	"sort"
	"strings"
)

// Registry indexes commands by name, alias and callback prefix.
type Registry struct {
	byName   map[string]*Command
	ordered  []*Command
	prefixes map[string]*Command
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byName:   map[string]*Command{},
		prefixes: map[string]*Command{},
	}
}

// Register adds the command. Duplicate names or prefixes are programmer
// errors and panic at startup.
func (r *Registry) Register(cmd *Command) {
	names := append([]string{cmd.Name}, cmd.Aliases...)
	for _, name := range names {
		name = strings.ToLower(name)
		if _, dup := r.byName[name]; dup {
			panic("bot: duplicate command " + name)
		}
		r.byName[name] = cmd
	}
	if cmd.CallbackPrefix != "" {
		if _, dup := r.prefixes[cmd.CallbackPrefix]; dup {
			panic("bot: duplicate callback prefix " + cmd.CallbackPrefix)
		}
		r.prefixes[cmd.CallbackPrefix] = cmd
	}
	r.ordered = append(r.ordered, cmd)
}

// Lookup resolves a command name or alias.
func (r *Registry) Lookup(name string) *Command {
	return r.byName[strings.ToLower(name)]
}

// LookupCallback routes callback data "prefix:a:b:c" to the owning command
// and returns the params after the prefix.
func (r *Registry) LookupCallback(data string) (*Command, []string) {
	prefix, rest, found := strings.Cut(data, ":")
	cmd, ok := r.prefixes[prefix]
	if !ok || cmd.HandleCallback == nil {
		return nil, nil
	}
	if !found || rest == "" {
		return cmd, nil
	}
	return cmd, strings.Split(rest, ":")
}

// Commands returns every registered command sorted by name, used by /help.
func (r *Registry) Commands() []*Command {
	out := make([]*Command, len(r.ordered))
	copy(out, r.ordered)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// MessageHooks returns the commands that accept plain messages, in
// registration order.
func (r *Registry) MessageHooks() []*Command {
	var out []*Command
	for _, cmd := range r.ordered {
		if cmd.HandleMessage != nil {
			out = append(out, cmd)
		}
	}
	return out
}

// InlineHooks returns the commands that answer inline queries, in
// registration order.
func (r *Registry) InlineHooks() []*Command {
	var out []*Command
	for _, cmd := range r.ordered {
		if cmd.HandleInline != nil {
			out = append(out, cmd)
		}
	}
	return out
}
