package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/kballard/go-shellquote"
	"github.com/spf13/pflag"

	"github.com/acksell/seekr/client"
	"github.com/acksell/seekr/schema/clusters"
)

// errExit ends the REPL.
var errExit = errors.New("exit")

const helpText = `Commands:
    create <name> <kind> [key=value ...]    create a cluster (kind: KAFKA, REDPANDA or a number)
    list [limit]                            list clusters in creation order
    get <id>                                show one cluster
    update <id> [--name NAME] [--clear-config] [key=value ...]
                                            rename a cluster or replace its config
    version                                 show server build information
    help                                    show this text
    exit                                    quit
`

// repl reads commands from in until EOF or exit and writes results to out.
// Command errors are printed and do not end the session.
func repl(ctx context.Context, c *client.Client, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		args, err := shellquote.Split(line)
		if err != nil {
			fmt.Fprintln(out, "parse error:", err)
			continue
		}

		err = execute(ctx, c, args, out)
		if errors.Is(err, errExit) {
			return nil
		}
		if err != nil {
			fmt.Fprintln(out, "error:", err)
		}
	}
}

func execute(ctx context.Context, c *client.Client, args []string, out io.Writer) error {
	cmd, args := args[0], args[1:]
	switch cmd {
	case "create":
		return createCmd(ctx, c, args, out)
	case "list", "ls":
		return listCmd(ctx, c, args, out)
	case "get":
		return getCmd(ctx, c, args, out)
	case "update":
		return updateCmd(ctx, c, args, out)
	case "version":
		info, err := c.Version(ctx)
		if err != nil {
			return err
		}
		return printJSON(out, info)
	case "help", "?":
		fmt.Fprint(out, helpText)
		return nil
	case "exit", "quit":
		return errExit
	default:
		return fmt.Errorf("unknown command %q, type 'help' for a list", cmd)
	}
}

func createCmd(ctx context.Context, c *client.Client, args []string, out io.Writer) error {
	if len(args) < 2 {
		return errors.New("usage: create <name> <kind> [key=value ...]")
	}
	kind, err := clusters.ParseKind(strings.ToUpper(args[1]))
	if err != nil {
		return err
	}
	config, err := parsePairs(args[2:])
	if err != nil {
		return err
	}

	created, err := c.CreateCluster(ctx, clusters.CreateClusterRequest{
		Name:   args[0],
		Kind:   kind,
		Config: config,
	})
	if err != nil {
		return err
	}
	return printJSON(out, created)
}

func listCmd(ctx context.Context, c *client.Client, args []string, out io.Writer) error {
	limit := 0
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 0 {
			return fmt.Errorf("invalid limit %q", args[0])
		}
		limit = n
	}

	list, err := c.ListClusters(ctx, limit)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(out, "(no clusters)")
		return nil
	}
	for _, cl := range list {
		fmt.Fprintf(out, "%s  %-10s  %s\n", cl.ID, cl.Kind, cl.Name)
	}
	fmt.Fprintf(out, "%d cluster(s)\n", len(list))
	return nil
}

func getCmd(ctx context.Context, c *client.Client, args []string, out io.Writer) error {
	if len(args) != 1 {
		return errors.New("usage: get <id>")
	}
	cl, ok, err := c.GetCluster(ctx, args[0])
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("cluster %s not found", args[0])
	}
	return printJSON(out, cl)
}

func updateCmd(ctx context.Context, c *client.Client, args []string, out io.Writer) error {
	fs := pflag.NewFlagSet("update", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	name := fs.String("name", "", "new cluster name")
	clearConfig := fs.Bool("clear-config", false, "replace the config with an empty one")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return errors.New("usage: update <id> [--name NAME] [--clear-config] [key=value ...]")
	}
	id := fs.Arg(0)

	var req clusters.UpdateClusterRequest
	if fs.Changed("name") {
		req.Name = name
	}
	if fs.NArg() > 1 || *clearConfig {
		config, err := parsePairs(fs.Args()[1:])
		if err != nil {
			return err
		}
		req.Config = config
	}
	if req.Name == nil && req.Config == nil {
		return errors.New("nothing to update")
	}

	updated, ok, err := c.UpdateCluster(ctx, id, req)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("cluster %s not found", id)
	}
	return printJSON(out, updated)
}

// parsePairs turns key=value arguments into a config map. The map is never
// nil.
func parsePairs(args []string) (map[string]string, error) {
	config := make(map[string]string, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid config entry %q, want key=value", arg)
		}
		config[key] = value
	}
	return config, nil
}

func printJSON(out io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(out, string(data))
	return nil
}
