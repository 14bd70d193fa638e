package main

import (
	"github.com/spf13/pflag"
)

// flagArgs adapts a parsed flag set to operations.Args. IDs follow the order
// flags first appeared on the command line, which requires SortFlags=false.
type flagArgs struct {
	ids    []string
	values map[string][]string
	groups map[string]bool
}

func newFlagArgs(fs *pflag.FlagSet, groups ...string) *flagArgs {
	a := &flagArgs{values: make(map[string][]string), groups: make(map[string]bool)}
	for _, g := range groups {
		a.groups[g] = true
	}
	fs.Visit(func(f *pflag.Flag) {
		// --flip=false means the operation was not requested.
		if f.Value.Type() == "bool" && f.Value.String() == "false" {
			return
		}
		var vals []string
		switch v := f.Value.(type) {
		case pflag.SliceValue:
			vals = v.GetSlice()
		default:
			if f.Value.Type() != "bool" {
				vals = []string{f.Value.String()}
			}
		}
		a.ids = append(a.ids, f.Name)
		a.values[f.Name] = vals
	})
	return a
}

func (a *flagArgs) IDs() []string { return a.ids }

func (a *flagArgs) IsSet(id string) bool {
	_, ok := a.values[id]
	return ok
}

func (a *flagArgs) IsGroup(id string) bool { return a.groups[id] }

func (a *flagArgs) Values(id string) []string { return a.values[id] }
