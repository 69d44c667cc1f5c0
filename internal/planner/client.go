// Package planner drives the external planner command line tools on behalf
// of a workflow: planning, starting, monitoring and reporting on runs.
package planner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/me/wfkit/pkg/workflow"
)

// BraindumpFile is the file the planner leaves in every submit directory.
const BraindumpFile = "braindump.yml"

// Client implements workflow.Planner by running the planner tools.
type Client struct {
	bin    string
	runner CommandRunner
	logger *slog.Logger
}

var _ workflow.Planner = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithRunner replaces the command runner.
func WithRunner(r CommandRunner) Option {
	return func(c *Client) { c.runner = r }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New creates a Client. When bin is empty the tools are looked up on PATH.
func New(bin string, opts ...Option) *Client {
	c := &Client{
		bin:    bin,
		runner: &osCommandRunner{},
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	c.logger = c.logger.With("component", "planner")
	return c
}

func (c *Client) tool(name string) string {
	if c.bin == "" {
		return name
	}
	return filepath.Join(c.bin, name)
}

// invoke runs a tool and turns a nonzero exit into a *ToolError.
func (c *Client) invoke(ctx context.Context, name string, args []string) (string, error) {
	cmd := c.tool(name)
	c.logger.Debug("exec", "cmd", cmd, "args", strings.Join(args, " "))

	start := time.Now()
	stdout, stderr, exitCode, err := c.runner.Run(ctx, cmd, args...)
	if err != nil {
		return "", fmt.Errorf("%s: %w", name, err)
	}
	c.logger.Debug("exec done", "cmd", name, "exit_code", exitCode, "duration", time.Since(start))
	if exitCode != 0 {
		return stdout, &ToolError{Tool: name, ExitCode: exitCode, Stdout: stdout, Stderr: stderr}
	}
	return stdout, nil
}

// Plan plans the document and loads the braindump of the new submit
// directory.
func (c *Client) Plan(ctx context.Context, documentPath string, opts workflow.PlanOptions) (*workflow.PlanResult, error) {
	out, err := c.invoke(ctx, toolPlan, planArgs(documentPath, opts))
	if err != nil {
		return nil, err
	}

	var planned struct {
		SubmitDir string `json:"submit_dir"`
	}
	if err := decodeFirstObject(out, &planned); err != nil {
		return nil, fmt.Errorf("%s output: %w", toolPlan, err)
	}
	if planned.SubmitDir == "" {
		return nil, fmt.Errorf("%s output has no submit_dir", toolPlan)
	}

	bd, err := ReadBraindump(planned.SubmitDir)
	if err != nil {
		return nil, err
	}
	c.logger.Info("planned", "submit_dir", planned.SubmitDir, "wf_uuid", bd.WfUUID)
	return &workflow.PlanResult{SubmitDir: planned.SubmitDir, Braindump: bd}, nil
}

// ReadBraindump reads and checks the braindump file of a submit directory.
func ReadBraindump(submitDir string) (*workflow.Braindump, error) {
	data, err := os.ReadFile(filepath.Join(submitDir, BraindumpFile))
	if err != nil {
		return nil, fmt.Errorf("read braindump: %w", err)
	}
	var bd workflow.Braindump
	if err := yaml.Unmarshal(data, &bd); err != nil {
		return nil, fmt.Errorf("parse braindump: %w", err)
	}
	for field, v := range map[string]string{"root_wf_uuid": bd.RootWfUUID, "wf_uuid": bd.WfUUID} {
		if _, err := uuid.Parse(v); err != nil {
			return nil, fmt.Errorf("braindump %s %q: %w", field, v, err)
		}
	}
	if bd.SubmitDir == "" {
		bd.SubmitDir = submitDir
	}
	return &bd, nil
}

// Run starts a planned workflow.
func (c *Client) Run(ctx context.Context, submitDir string, opts workflow.RunOptions) error {
	_, err := c.invoke(ctx, toolRun, runArgs(submitDir, opts))
	return err
}

type dagStatus struct {
	Unready     int     `json:"unready"`
	Ready       int     `json:"ready"`
	Pre         int     `json:"pre"`
	Queued      int     `json:"queued"`
	Post        int     `json:"post"`
	Succeeded   int     `json:"succeeded"`
	Failed      int     `json:"failed"`
	PercentDone float64 `json:"percent_done"`
	State       string  `json:"state"`
}

// Status reports the progress of the root workflow. A submit directory
// without a root entry yet reports StateUnknown.
func (c *Client) Status(ctx context.Context, submitDir string, opts workflow.StatusOptions) (*workflow.Status, error) {
	out, err := c.invoke(ctx, toolStatus, statusArgs(submitDir, opts))
	if err != nil {
		return nil, err
	}
	return parseStatus(out)
}

func parseStatus(out string) (*workflow.Status, error) {
	var report struct {
		DAGs map[string]dagStatus `json:"dags"`
	}
	if err := decodeFirstObject(out, &report); err != nil {
		return nil, fmt.Errorf("%s output: %w", toolStatus, err)
	}
	root, ok := report.DAGs["root"]
	if !ok {
		return &workflow.Status{State: workflow.StateUnknown}, nil
	}
	st := &workflow.Status{
		State:       root.State,
		PercentDone: root.PercentDone,
		Succeeded:   root.Succeeded,
		Failed:      root.Failed,
		Running:     root.Pre + root.Post,
		Queued:      root.Ready + root.Queued,
		Unready:     root.Unready,
	}
	if st.State == "" {
		st.State = workflow.StateUnknown
	}
	return st, nil
}

// Wait polls Status every delay until the workflow is done or ctx ends.
func (c *Client) Wait(ctx context.Context, submitDir string, delay time.Duration) (*workflow.Status, error) {
	if delay <= 0 {
		delay = 5 * time.Second
	}
	ticker := time.NewTicker(delay)
	defer ticker.Stop()

	for {
		st, err := c.Status(ctx, submitDir, workflow.StatusOptions{})
		if err != nil {
			return nil, err
		}
		c.logger.Debug("progress", "submit_dir", submitDir, "state", st.State, "percent_done", st.PercentDone)
		if st.Done() {
			return st, nil
		}
		select {
		case <-ctx.Done():
			return st, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Remove stops a running workflow.
func (c *Client) Remove(ctx context.Context, submitDir string, verbose int) error {
	_, err := c.invoke(ctx, toolRemove, dirArgs(submitDir, verbose))
	return err
}

// Analyze returns the analyzer report. The analyzer exits nonzero when it
// finds failed jobs, so its report is returned along with the error.
func (c *Client) Analyze(ctx context.Context, submitDir string, verbose int) (string, error) {
	return c.invoke(ctx, toolAnalyzer, dirArgs(submitDir, verbose))
}

// Statistics returns the statistics summary of a run.
func (c *Client) Statistics(ctx context.Context, submitDir string, verbose int) (string, error) {
	return c.invoke(ctx, toolStatistics, dirArgs(submitDir, verbose))
}

// Graph renders a workflow document with the graphviz tool.
func (c *Client) Graph(ctx context.Context, documentPath string, opts workflow.GraphOptions) (string, error) {
	return c.invoke(ctx, toolGraphviz, graphArgs(documentPath, opts))
}

// decodeFirstObject decodes the first JSON object in out. The tools print
// log lines around their JSON report.
func decodeFirstObject(out string, v any) error {
	i := strings.IndexByte(out, '{')
	if i < 0 {
		return errors.New("no JSON object found")
	}
	return json.NewDecoder(strings.NewReader(out[i:])).Decode(v)
}
