package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/rickchristie/director"
	"github.com/rickchristie/director/evaluator"
	"github.com/rickchristie/director/scheduler"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorDim    = "\033[2m"
)

const (
	pollEvery      = 10 * time.Millisecond
	defaultWaitFor = 2 * time.Minute
)

var errUnknownCommand = errors.New("unknown command")

func newConsoleCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "console",
		Short: "Drive the engine by hand from an interactive prompt",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			// The prompt owns the loop.
			cfg.Evaluator.AutoEvaluate = false

			a, err := newApp(cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			rl, err := readline.NewEx(&readline.Config{
				Prompt:          colorCyan + "director> " + colorReset,
				InterruptPrompt: "^C",
				EOFPrompt:       "quit",
			})
			if err != nil {
				return fmt.Errorf("failed to create readline: %w", err)
			}
			defer rl.Close()

			c := newConsole(a, rl.Stdout())
			if cfg.Scheduler.InferenceTimeout > 0 {
				c.waitFor = cfg.Scheduler.InferenceTimeout + time.Second
			}
			c.help()

			for {
				line, err := rl.Readline()
				if errors.Is(err, readline.ErrInterrupt) {
					continue
				}
				if errors.Is(err, io.EOF) {
					return nil
				}
				if err != nil {
					return err
				}

				quit, err := c.exec(line)
				if err != nil {
					fmt.Fprintf(c.out, "%s%v%s\n", colorRed, err, colorReset)
				}
				if quit {
					return nil
				}
			}
		},
	}
}

// console interprets prompt commands against an app.
type console struct {
	app     *app
	out     io.Writer
	waitFor time.Duration
}

func newConsole(a *app, out io.Writer) *console {
	return &console{app: a, out: out, waitFor: defaultWaitFor}
}

// exec runs one command line. It reports whether the console should exit.
func (c *console) exec(line string) (quit bool, err error) {
	// Deliver anything that finished while the prompt was idle.
	c.app.sub.Tick()

	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}

	switch cmd, args := strings.ToLower(fields[0]), fields[1:]; cmd {
	case "help", "?":
		c.help()
	case "quit", "exit", "q":
		return true, nil
	case "scenario":
		return false, c.scenario(args)
	case "step":
		return false, c.step(args)
	case "eval":
		return false, c.evaluate(args)
	case "state":
		return false, c.state()
	case "reset":
		if err := c.app.sub.ResetDifficulty(); err != nil {
			return false, err
		}
		fmt.Fprintf(c.out, "%sbaseline restored%s\n", colorGreen, colorReset)
	case "busy":
		return false, c.busy()
	case "auto":
		return false, c.auto(args)
	default:
		return false, fmt.Errorf("%w %q, type help", errUnknownCommand, cmd)
	}
	return false, nil
}

func (c *console) help() {
	fmt.Fprintf(c.out, "%sCommands:%s\n", colorYellow, colorReset)
	for _, line := range [][2]string{
		{"scenario", "print the scenario the next evaluation would send"},
		{"scenario <hp> [dist...]", "set player health and enemy distances"},
		{"step <seconds>", "advance the simulated world and the engine"},
		{"eval [low|normal|high]", "request an evaluation and wait for the result"},
		{"state", "show the difficulty in effect"},
		{"reset", "restore the baseline now"},
		{"busy", "show scheduler activity"},
		{"auto on|off", "toggle interval evaluations during step"},
		{"quit", "leave"},
	} {
		fmt.Fprintf(c.out, "  %s%-24s%s %s\n", colorCyan, line[0], colorReset, line[1])
	}
}

func (c *console) scenario(args []string) error {
	if len(args) > 0 {
		hp, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return fmt.Errorf("hp: %w", err)
		}
		distances := make([]float64, 0, len(args)-1)
		for _, arg := range args[1:] {
			d, err := strconv.ParseFloat(arg, 64)
			if err != nil {
				return fmt.Errorf("distance %q: %w", arg, err)
			}
			distances = append(distances, d)
		}
		c.app.world.Set(hp, distances)
	}
	fmt.Fprintln(c.out, evaluator.BuildScenario(c.app.world).JSON())
	return nil
}

func (c *console) step(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: step <seconds>")
	}
	secs, err := strconv.ParseFloat(args[0], 64)
	if err != nil || secs <= 0 {
		return fmt.Errorf("invalid seconds %q", args[0])
	}

	total := time.Duration(secs * float64(time.Second))
	frame := c.app.cfg.Loop.TickRate
	for elapsed := time.Duration(0); elapsed < total; elapsed += frame {
		c.app.tick(min(frame, total-elapsed))
	}
	fmt.Fprintf(c.out, "%sadvanced %s, %d evaluations requested%s\n",
		colorDim, total, c.app.eval.Requested(), colorReset)
	return nil
}

func (c *console) evaluate(args []string) error {
	if len(args) > 1 {
		return errors.New("usage: eval [low|normal|high]")
	}
	priority := director.PriorityNormal
	if len(args) == 1 {
		p, err := director.ParsePriority(strings.ToLower(args[0]))
		if err != nil {
			return err
		}
		priority = p
	}

	before := c.app.sub.Current()
	if !c.app.eval.EvaluateAt(priority) {
		return errors.New("evaluation request rejected")
	}
	fmt.Fprintf(c.out, "%ssent %s at %s priority%s\n",
		colorDim, c.app.eval.LastScenario(), priority, colorReset)

	if !c.wait() {
		return fmt.Errorf("no result after %s", c.waitFor)
	}

	after := c.app.sub.Current()
	if after == before {
		fmt.Fprintf(c.out, "%sdifficulty unchanged%s\n", colorYellow, colorReset)
		return nil
	}
	fmt.Fprintf(c.out, "%s%s%s\n", colorGreen, after, colorReset)
	return nil
}

// wait ticks the engine until no request is in flight, then once more to deliver the
// last result.
func (c *console) wait() bool {
	deadline := time.Now().Add(c.waitFor)
	for c.app.sub.IsBusy() {
		if time.Now().After(deadline) {
			return false
		}
		c.app.sub.Tick()
		time.Sleep(pollEvery)
	}
	c.app.sub.Tick()
	return true
}

type stateView struct {
	Phase    string              `yaml:"phase"`
	Current  director.Difficulty `yaml:"current"`
	Baseline director.Difficulty `yaml:"baseline"`
	RevertIn string              `yaml:"revert_in,omitempty"`
}

func (c *console) state() error {
	v := stateView{
		Phase:    c.app.sub.Phase().String(),
		Current:  c.app.sub.Current(),
		Baseline: c.app.sub.Baseline(),
	}
	if d, ok := c.app.sub.RevertIn(); ok {
		v.RevertIn = d.Round(time.Second).String()
	}
	return c.dump(v)
}

type busyView struct {
	Busy  bool            `yaml:"busy"`
	Stats scheduler.Stats `yaml:"stats"`
}

func (c *console) busy() error {
	return c.dump(busyView{Busy: c.app.sub.IsBusy(), Stats: c.app.sub.Stats()})
}

func (c *console) auto(args []string) error {
	if len(args) == 1 {
		switch strings.ToLower(args[0]) {
		case "on":
			c.app.eval.SetAutoEvaluate(true)
		case "off":
			c.app.eval.SetAutoEvaluate(false)
		default:
			return errors.New("usage: auto on|off")
		}
	}
	fmt.Fprintf(c.out, "auto evaluate: %t (every %s)\n", c.app.eval.AutoEvaluate(), c.app.eval.Interval())
	return nil
}

func (c *console) dump(v any) error {
	enc := yaml.NewEncoder(c.out)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
