package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/uci-go/uci/internal/uci"
)

// batchOp is one step of a batch run: a single CLI operation expressed as
// data instead of an argv line, so a caller can queue a whole transaction
// (e.g. several `set`s followed by one `commit`) in one process invocation.
type batchOp struct {
	Op      string `yaml:"op"`
	Pointer string `yaml:"pointer,omitempty"`
	Value   string `yaml:"value,omitempty"`
	Config  string `yaml:"config,omitempty"`
	Type    string `yaml:"type,omitempty"`
}

var flagScript string

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Run a sequence of set/del/rename/add_list/add/commit/revert operations from a script",
	Run:   runBatch,
}

func init() {
	batchCmd.Flags().StringVar(&flagScript, "script", "", "decode stdin as a YAML list of {op, pointer, value} records instead of the default plain pkg.sec.opt=value-per-line format")
	rootCmd.AddCommand(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) {
	r, closeFn, err := openInput()
	if err != nil {
		die(err)
	}
	defer closeFn()

	var ops []batchOp
	if flagScript != "" {
		ops, err = decodeBatch(r)
	} else {
		ops, err = decodeBatchLines(r)
	}
	if err != nil {
		die(err)
	}

	ctx, err := buildContext()
	if err != nil {
		die(err)
	}

	touched := map[string]bool{}
	for i, op := range ops {
		if err := applyBatchOp(ctx, op, touched); err != nil {
			die(fmt.Errorf("batch step %d (%s): %w", i+1, op.Op, err))
		}
	}
}

// decodeBatch parses the --script structured format: a YAML list of
// {op, pointer, value, config, type} records.
func decodeBatch(r io.Reader) ([]batchOp, error) {
	dec := yaml.NewDecoder(r)
	var ops []batchOp
	if err := dec.Decode(&ops); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, err
	}
	return ops, nil
}

// decodeBatchLines parses the default REPL-style batch format: one plain
// `pkg.sec.opt=value` assignment per line, each an implicit "set". Blank
// lines and lines starting with '#' are skipped, the same comment
// convention the config-file tokenizer applies.
func decodeBatchLines(r io.Reader) ([]batchOp, error) {
	var ops []batchOp
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		pointer, value, ok := splitAssignment(line)
		if !ok {
			return nil, fmt.Errorf("batch line %q: expected <pointer>=<value>", line)
		}
		ops = append(ops, batchOp{Op: "set", Pointer: pointer, Value: value})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return ops, nil
}

func applyBatchOp(ctx *uci.Context, op batchOp, touched map[string]bool) error {
	switch op.Op {
	case "set":
		if err := ctx.Set(op.Pointer, op.Value); err != nil {
			return err
		}
		touched[pointerPackage(op.Pointer)] = true
	case "del":
		if err := ctx.Delete(op.Pointer); err != nil {
			return err
		}
		touched[pointerPackage(op.Pointer)] = true
	case "rename":
		if err := ctx.Rename(op.Pointer, op.Value); err != nil {
			return err
		}
		touched[pointerPackage(op.Pointer)] = true
	case "add_list":
		if err := ctx.AddList(op.Pointer, op.Value); err != nil {
			return err
		}
		touched[pointerPackage(op.Pointer)] = true
	case "add":
		if _, err := ctx.Add(op.Config, op.Type); err != nil {
			return err
		}
		touched[op.Config] = true
	case "revert":
		if err := ctx.Revert(op.Pointer); err != nil {
			return err
		}
	case "commit":
		for name := range touched {
			if err := ctx.Commit(name, false); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("unknown batch op: %s", op.Op)
	}

	for name := range touched {
		if err := ctx.Save(name); err != nil {
			return err
		}
	}
	return nil
}
