// Command svr 训练、加载并服务 ε-SVR 回归模型。
//
//	svr train   --config svr.toml --data train.csv [--mask mask.txt] [--kernel-matrix K.txt] --out model.txt
//	svr serve   --config svr.toml --model model.txt
//	svr predict --model model.txt --data query.csv
package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"github.com/gykovacs/vessel-sub003/kernel"
)

// version 由构建时 -ldflags 注入。
var version = "dev"

type command struct {
	name  string
	usage string
	run   func(args []string) error
}

var commands = []command{
	{"train", "train a model from a CSV dataset and save it", runTrain},
	{"serve", "serve a saved model over HTTP", runServe},
	{"predict", "print predictions of a saved model for a CSV dataset", runPredict},
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: svr <command> [flags]")
	fmt.Fprintln(os.Stderr)
	for _, c := range commands {
		fmt.Fprintf(os.Stderr, "  %-8s %s\n", c.name, c.usage)
	}
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "kernels:", strings.Join(kernel.Names(), ", "))
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	name := os.Args[1]
	for _, c := range commands {
		if c.name != name {
			continue
		}
		err := c.run(os.Args[2:])
		switch {
		case err == nil:
			return
		case errors.Is(err, pflag.ErrHelp):
			return
		default:
			fmt.Fprintf(os.Stderr, "svr %s: %v\n", name, err)
			os.Exit(1)
		}
	}
	usage()
	os.Exit(2)
}
