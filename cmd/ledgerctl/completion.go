package main

import (
	"flag"

	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"
)

// completion describes every command and flag for shell completion.
// Install it with COMP_INSTALL=1 ledgerctl.
func completion(groups []group) *complete.Command {
	root := &complete.Command{
		Sub:   map[string]*complete.Command{"help": {}, "flags": {}, "commands": {}},
		Flags: map[string]complete.Predictor{},
	}
	flag.CommandLine.VisitAll(func(f *flag.Flag) {
		root.Flags[f.Name] = predictFlag("", f)
	})

	for _, g := range groups {
		for _, c := range g.commands {
			sub := &complete.Command{Flags: map[string]complete.Predictor{}}
			fs := flag.NewFlagSet(c.Name(), flag.ContinueOnError)
			c.SetFlags(fs)
			fs.VisitAll(func(f *flag.Flag) {
				sub.Flags[f.Name] = predictFlag(c.Name(), f)
			})
			root.Sub[c.Name()] = sub
		}
	}
	root.Sub["help"].Args = predict.Set(commandNames(groups))
	return root
}

func predictFlag(command string, f *flag.Flag) complete.Predictor {
	if b, ok := f.Value.(interface{ IsBoolFlag() bool }); ok && b.IsBoolFlag() {
		return predict.Nothing
	}
	switch {
	case f.Name == "type":
		return predict.Set{"Ingreso", "Gasto", "Inversion"}
	case command == "export" && f.Name == "format":
		return predict.Set{"csv", "pdf"}
	case command == "summary" && f.Name == "format":
		return predict.Set{"text", "markdown"}
	case f.Name == "o" || f.Name == "token-file":
		return predict.Files("*")
	}
	return predict.Something
}

func commandNames(groups []group) []string {
	var names []string
	for _, g := range groups {
		for _, c := range g.commands {
			names = append(names, c.Name())
		}
	}
	return names
}
