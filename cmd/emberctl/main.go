// Command emberctl is an interactive shell for driving an in-process
// engine.Engine: it builds one primary table and one secondary index, then
// lets the operator fire off point workloads or whole commit-conflict
// scenarios against them and inspect what actually committed.
package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/google/uuid"

	"github.com/emberdb/ember/core/engine"
	"github.com/emberdb/ember/core/storage"
	"github.com/emberdb/ember/core/thread"
	"github.com/emberdb/ember/core/workload"
)

const (
	defaultRecordCount = 16
	defaultBucketCount = 4
)

type shell struct {
	eng       *engine.Engine
	primary   *storage.Array
	secondary *storage.Index
	buckets   uint64
}

func newShell() *shell {
	cfg := engine.DefaultConfig()
	return &shell{
		eng:     engine.New(cfg),
		buckets: defaultBucketCount,
	}
}

func (s *shell) start() error {
	if err := s.eng.Initialize(); err != nil {
		return fmt.Errorf("emberctl: engine initialize: %w", err)
	}
	s.primary = storage.NewArray("primary", 8, defaultRecordCount)
	s.secondary = storage.NewIndex("by_value_bucket")

	ctx := context.Background()
	if err := s.eng.Run(ctx, &workload.InitTask{Primary: s.primary}); err != nil {
		return fmt.Errorf("emberctl: init workload: %w", err)
	}
	return nil
}

func (s *shell) stop() error {
	return s.eng.Uninitialize()
}

func (s *shell) dump() error {
	out := make([]uint64, s.primary.Count())
	ctx := context.Background()
	if err := s.eng.Run(ctx, &workload.ReadAllTask{Primary: s.primary, Output: out}); err != nil {
		return err
	}
	for key, value := range out {
		fmt.Printf("  [%2d] = %d\n", key, value)
	}
	return nil
}

// scenarioAssign mirrors the original commit-conflict fixture's
// assign_func: it decides which primary record each of n concurrent
// increment tasks contends on.
func scenarioAssign(name string, n int) (func(i int) uint64, error) {
	switch name {
	case "noconflict":
		return func(i int) uint64 { return uint64(i) }, nil
	case "lightconflict":
		return func(i int) uint64 { return uint64(i) / 2 }, nil
	case "heavyconflict":
		return func(i int) uint64 { return uint64(i) / 5 }, nil
	case "extremeconflict":
		return func(i int) uint64 { return 0 }, nil
	default:
		return nil, fmt.Errorf("unknown scenario %q (want noconflict, lightconflict, heavyconflict, extremeconflict)", name)
	}
}

func (s *shell) runScenario(name string, n int) error {
	assign, err := scenarioAssign(name, n)
	if err != nil {
		return err
	}
	if n > s.primary.Count() {
		return fmt.Errorf("emberctl: %d tasks exceeds %d records", n, s.primary.Count())
	}
	pool := s.eng.Pool()
	if n > pool.Size() {
		return fmt.Errorf("emberctl: %d tasks exceeds %d pool workers", n, pool.Size())
	}

	gate := make(chan struct{})
	runID := uuid.New()
	sessions := make([]thread.Session, n)

	expected := make([]uint64, s.primary.Count())
	for i := 0; i < n; i++ {
		amount := uint64(i*20 + 4)
		key := assign(i)
		expected[key] += amount
		task := &workload.IncrementTask{
			Primary:   s.primary,
			Secondary: s.secondary,
			Buckets:   s.buckets,
			Offset:    key,
			Amount:    amount,
			StartGate: gate,
		}
		session := pool.Impersonate(task)
		if !session.Valid() {
			close(gate)
			return fmt.Errorf("emberctl: run %s: task %d: %w", runID, i, session.Err())
		}
		sessions[i] = session
	}

	start := time.Now()
	close(gate)
	for i, session := range sessions {
		if err := session.GetResult(); err != nil {
			return fmt.Errorf("emberctl: run %s: task %d: %w", runID, i, err)
		}
	}
	elapsed := time.Since(start)

	out := make([]uint64, s.primary.Count())
	if err := s.eng.Run(context.Background(), &workload.ReadAllTask{Primary: s.primary, Output: out}); err != nil {
		return err
	}

	fmt.Printf("scenario %s (%d tasks, run %s) finished in %s\n", name, n, runID, elapsed)
	mismatches := 0
	for key := range out {
		want := expected[key]
		if key < n || want != 0 {
			if out[key] != want {
				mismatches++
				fmt.Printf("  [%2d] = %d, want %d (MISMATCH)\n", key, out[key], want)
			} else {
				fmt.Printf("  [%2d] = %d\n", key, out[key])
			}
		}
	}
	if mismatches == 0 {
		fmt.Println("all records match expectations")
	}
	return nil
}

func (s *shell) increment(key, amount uint64) error {
	task := &workload.IncrementTask{Primary: s.primary, Secondary: s.secondary, Buckets: s.buckets, Offset: key, Amount: amount}
	return s.eng.Run(context.Background(), task)
}

func (s *shell) dispatch(line string) (exit bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	cmd := strings.ToLower(fields[0])
	args := fields[1:]

	switch cmd {
	case "help":
		printHelp()
	case "exit", "quit":
		return true
	case "dump":
		if err := s.dump(); err != nil {
			fmt.Println("error:", err)
		}
	case "increment":
		if len(args) < 2 {
			fmt.Println("usage: increment <key> <amount>")
			return false
		}
		key, err1 := strconv.ParseUint(args[0], 10, 64)
		amount, err2 := strconv.ParseUint(args[1], 10, 64)
		if err1 != nil || err2 != nil {
			fmt.Println("error: key and amount must be unsigned integers")
			return false
		}
		if err := s.increment(key, amount); err != nil {
			fmt.Println("error:", err)
		}
	case "scenario":
		if len(args) < 2 {
			fmt.Println("usage: scenario <noconflict|lightconflict|heavyconflict|extremeconflict> <tasks>")
			return false
		}
		n, err := strconv.Atoi(args[1])
		if err != nil {
			fmt.Println("error: tasks must be an integer")
			return false
		}
		if err := s.runScenario(args[0], n); err != nil {
			fmt.Println("error:", err)
		}
	case "status":
		fmt.Printf("pool size: %d workers\n", s.eng.Pool().Size())
	default:
		fmt.Printf("unknown command %q, type 'help' for a list\n", cmd)
	}
	return false
}

func printHelp() {
	fmt.Println("Commands:")
	fmt.Println("  increment <key> <amount>")
	fmt.Println("  scenario <noconflict|lightconflict|heavyconflict|extremeconflict> <tasks>")
	fmt.Println("  dump")
	fmt.Println("  status")
	fmt.Println("  help")
	fmt.Println("  exit / quit")
}

func main() {
	s := newShell()
	if err := s.start(); err != nil {
		fmt.Println("emberctl:", err)
		return
	}
	defer func() {
		if err := s.stop(); err != nil {
			fmt.Println("emberctl: shutdown:", err)
		}
	}()

	rl, err := readline.New("ember> ")
	if err != nil {
		fmt.Println("emberctl:", err)
		return
	}
	defer rl.Close()

	fmt.Println("ember engine shell. Type 'help' for commands, 'exit' or 'quit' to leave.")
	for {
		line, err := rl.Readline()
		if err != nil {
			if err == io.EOF || err == readline.ErrInterrupt {
				return
			}
			fmt.Println("emberctl:", err)
			continue
		}
		if exit := s.dispatch(line); exit {
			return
		}
	}
}
