package planner

import (
	"fmt"
	"sort"
	"strings"

	"github.com/me/wfkit/pkg/workflow"
)

// Tool names, resolved against the configured bin directory.
const (
	toolPlan       = "pegasus-plan"
	toolRun        = "pegasus-run"
	toolStatus     = "pegasus-status"
	toolRemove     = "pegasus-remove"
	toolAnalyzer   = "pegasus-analyzer"
	toolStatistics = "pegasus-statistics"
	toolGraphviz   = "pegasus-graphviz"
)

func verbosity(n int) []string {
	if n <= 0 {
		return nil
	}
	return []string{"-" + strings.Repeat("v", n)}
}

func planArgs(documentPath string, o workflow.PlanOptions) []string {
	var args []string
	if o.Conf != "" {
		args = append(args, "--conf", o.Conf)
	}
	if len(o.Sites) > 0 {
		args = append(args, "--sites", strings.Join(o.Sites, ","))
	}
	if len(o.OutputSites) > 0 {
		args = append(args, "--output-sites", strings.Join(o.OutputSites, ","))
	}
	if len(o.StagingSites) > 0 {
		sites := make([]string, 0, len(o.StagingSites))
		for exec := range o.StagingSites {
			sites = append(sites, exec)
		}
		sort.Strings(sites)
		pairs := make([]string, 0, len(sites))
		for _, s := range sites {
			pairs = append(pairs, s+"="+o.StagingSites[s])
		}
		args = append(args, "--staging-site", strings.Join(pairs, ","))
	}
	if len(o.InputDirs) > 0 {
		args = append(args, "--input-dir", strings.Join(o.InputDirs, ","))
	}
	if o.OutputDir != "" {
		args = append(args, "--output-dir", o.OutputDir)
	}
	if o.Dir != "" {
		args = append(args, "--dir", o.Dir)
	}
	if o.RelativeDir != "" {
		args = append(args, "--relative-dir", o.RelativeDir)
	}
	switch o.RandomDir {
	case "":
	case ".":
		args = append(args, "--randomdir")
	default:
		args = append(args, "--randomdir="+o.RandomDir)
	}
	if o.Cleanup != "" {
		args = append(args, "--cleanup", o.Cleanup)
	}
	args = append(args, verbosity(o.Verbose)...)
	if o.Force {
		args = append(args, "--force")
	}
	if o.Submit {
		args = append(args, "--submit")
	}
	return append(args, "--json", documentPath)
}

func runArgs(submitDir string, o workflow.RunOptions) []string {
	args := verbosity(o.Verbose)
	if o.JSON {
		args = append(args, "--json")
	}
	return append(args, submitDir)
}

func statusArgs(submitDir string, o workflow.StatusOptions) []string {
	var args []string
	if o.Long {
		args = append(args, "--long")
	}
	args = append(args, verbosity(o.Verbose)...)
	return append(args, "--jsonrv", submitDir)
}

func dirArgs(submitDir string, verbose int) []string {
	return append(verbosity(verbose), submitDir)
}

func graphArgs(documentPath string, o workflow.GraphOptions) []string {
	args := []string{documentPath}
	if !o.Simplify {
		args = append(args, "--nosimplify")
	}
	if o.Label != "" {
		args = append(args, "--label="+o.Label)
	}
	if o.Output != "" {
		args = append(args, "--output="+o.Output)
	}
	for _, r := range o.Remove {
		args = append(args, "--remove="+r)
	}
	if o.Width > 0 {
		args = append(args, fmt.Sprintf("--width=%d", o.Width))
	}
	if o.Height > 0 {
		args = append(args, fmt.Sprintf("--height=%d", o.Height))
	}
	return args
}
