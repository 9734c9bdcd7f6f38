// Package debugrun executes a single dry-run iteration of a scenario
// with a verbose, ANSI-colored trace of every request, response, and
// assertion outcome, adapted from the teacher's internal/debug package
// and built directly on internal/httpclient, internal/substitution,
// internal/fieldpath and internal/assertion instead of the teacher's
// attacker.Engine.
package debugrun

import (
	"context"
	"encoding/json"
	"fmt"
	neturl "net/url"
	"sort"
	"strings"
	"time"

	"github.com/Amr-9/saylrun/internal/assertion"
	"github.com/Amr-9/saylrun/internal/fieldpath"
	"github.com/Amr-9/saylrun/internal/httpclient"
	"github.com/Amr-9/saylrun/internal/substitution"
	"github.com/Amr-9/saylrun/pkg/models"
)

const (
	colorReset   = "\033[0m"
	colorRed     = "\033[31m"
	colorGreen   = "\033[32m"
	colorYellow  = "\033[33m"
	colorMagenta = "\033[35m"
	colorCyan    = "\033[36m"
	colorBold    = "\033[1m"
	colorDim     = "\033[2m"
)

// Run executes one dry-run iteration of sc against host, printing a
// verbose trace of each step's request, response, extracted variables,
// and assertion results. It shares the same variable-scope and
// substitution semantics as the real scenario engine so the trace is
// representative of an actual run.
func Run(ctx context.Context, sc models.Scenario, host models.HostConfig) error {
	fmt.Println()
	fmt.Printf("%s%s DEBUG MODE (single dry run) %s\n", colorBold, colorCyan, colorReset)
	fmt.Printf("%sscenario: %s, host: %s%s\n\n", colorDim, sc.Name, host.BaseURL, colorReset)

	client := httpclient.NewClient(host)
	sub := substitution.New()

	variables := make(map[string]any, len(sc.Variables))
	for k, v := range sc.Variables {
		variables[k] = v
	}

	allSuccess := true
	for i, step := range sc.Steps {
		printStepHeader(i+1, len(sc.Steps), step.Name)

		ok, err := runStep(ctx, client, sub, step, variables, host)
		if err != nil {
			fmt.Printf("\n%s step aborted: %v%s\n", colorRed, err, colorReset)
			allSuccess = false
			break
		}
		if !ok {
			allSuccess = false
			if !step.SkipOnFailure {
				break
			}
		}
	}

	printSeparator()
	if allSuccess {
		fmt.Printf("%s%sdebug run completed, all steps passed%s\n\n", colorBold, colorGreen, colorReset)
	} else {
		fmt.Printf("%s%sdebug run completed with failures%s\n\n", colorBold, colorRed, colorReset)
	}
	return nil
}

func runStep(ctx context.Context, client *httpclient.Client, sub *substitution.Processor, step models.Step, variables map[string]any, host models.HostConfig) (bool, error) {
	if step.DelayBefore > 0 {
		time.Sleep(step.DelayBefore)
	}

	url := strings.TrimRight(host.BaseURL, "/") + sub.Process(step.Path, variables)
	if len(step.QueryParams) > 0 {
		q := neturl.Values{}
		for k, v := range step.QueryParams {
			q.Set(k, fmt.Sprint(sub.ProcessValue(v, variables)))
		}
		url += "?" + q.Encode()
	}
	headers := sub.ProcessHeaders(mergedHeaders(host.Headers, step.Headers), variables)
	body := sub.ProcessValue(step.Body, variables)

	req := httpclient.Request{Method: step.Method, URL: url, Headers: headers, Body: body}
	printRequest(req)

	reqCtx := ctx
	if step.Timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, step.Timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := client.Do(reqCtx, req)
	latency := time.Since(start)
	if err != nil {
		printResponseError(err, latency)
		return false, nil
	}

	printResponse(resp, latency)

	extracted := make(map[string]string)
	values := make(map[string]any)
	for name, path := range step.Extract {
		if strings.HasPrefix(path, "header:") {
			headerName := strings.TrimPrefix(path, "header:")
			if v, ok := fieldpath.ResolveHeader(resp.Headers, headerName); ok {
				values[name] = v
				extracted[name] = v
			}
			continue
		}
		fullPath := path
		if !strings.HasPrefix(path, "body") {
			fullPath = "body." + path
		}
		if v, ok := fieldpath.Resolve(map[string]any{"body": resp.Body}, fullPath); ok && v != nil {
			s := fmt.Sprint(v)
			values[name] = v
			extracted[name] = s
		}
	}
	printExtractedVariables(extracted, step.Extract)

	tree := fieldpath.NewTree(resp.StatusCode, resp.Body)
	passed := printAssertions(tree, step.Assertions)
	if passed {
		for k, v := range values {
			variables[k] = v
		}
	}

	return passed, nil
}

func mergedHeaders(hostHeaders, stepHeaders map[string]string) map[string]string {
	merged := make(map[string]string, len(hostHeaders)+len(stepHeaders))
	for k, v := range hostHeaders {
		merged[k] = v
	}
	for k, v := range stepHeaders {
		merged[k] = v
	}
	return merged
}

func printStepHeader(stepNum, total int, name string) {
	printSeparator()
	fmt.Printf("%s%sstep %d/%d: %s%s\n", colorBold, colorMagenta, stepNum, total, name, colorReset)
	printSeparator()
}

func printSeparator() {
	fmt.Printf("%s----------------------------------------------------%s\n", colorDim, colorReset)
}

func printRequest(req httpclient.Request) {
	fmt.Printf("\n%s[request]%s\n", colorBold, colorReset)
	fmt.Printf("%s%s%s %s%s%s\n", colorBold, colorGreen, req.Method, colorCyan, req.URL, colorReset)

	if len(req.Headers) > 0 {
		fmt.Printf("%sheaders:%s\n", colorDim, colorReset)
		keys := sortedKeys(req.Headers)
		for _, k := range keys {
			fmt.Printf("  %s%s:%s %s\n", colorYellow, k, colorReset, req.Headers[k])
		}
	}

	if req.Body != nil {
		fmt.Printf("%sbody:%s\n", colorDim, colorReset)
		printFormattedJSON(req.Body, "  ")
	}
}

func printResponse(resp httpclient.Response, latency time.Duration) {
	fmt.Printf("\n%s[response]%s\n", colorBold, colorReset)
	fmt.Printf("%sprotocol:%s %s\n", colorDim, colorReset, resp.Proto)

	statusColor := colorGreen
	if resp.StatusCode >= 400 {
		statusColor = colorRed
	} else if resp.StatusCode >= 300 {
		statusColor = colorYellow
	}
	fmt.Printf("%sstatus:%s %s%d%s %s(%s)%s\n",
		colorDim, colorReset, statusColor, resp.StatusCode, colorReset,
		colorDim, latency.Round(time.Millisecond), colorReset)

	if len(resp.RawBody) > 0 {
		fmt.Printf("%sbody:%s\n", colorDim, colorReset)
		printFormattedJSON(resp.Body, "  ")
	}
}

func printResponseError(err error, latency time.Duration) {
	fmt.Printf("\n%s[response]%s\n", colorBold, colorReset)
	fmt.Printf("%srequest failed%s %s(%s)%s\n", colorRed, colorReset, colorDim, latency.Round(time.Millisecond), colorReset)
	fmt.Printf("  %serror:%s %v\n", colorRed, colorReset, err)
}

func printExtractedVariables(vars map[string]string, extract map[string]string) {
	if len(extract) == 0 {
		return
	}
	fmt.Printf("\n%s[variables extracted]%s\n", colorBold, colorReset)
	if len(vars) == 0 {
		fmt.Printf("  %sno variables extracted, paths may not match the response%s\n", colorYellow, colorReset)
		return
	}
	for _, k := range sortedKeys(vars) {
		fmt.Printf("  %s%s%s = %s%q%s  %s(from %s)%s\n",
			colorGreen, k, colorReset, colorCyan, vars[k], colorReset,
			colorDim, extract[k], colorReset)
	}
}

func printAssertions(tree any, assertions []models.Assertion) bool {
	if len(assertions) == 0 {
		return true
	}
	fmt.Printf("\n%s[assertions]%s\n", colorBold, colorReset)

	_, _, details := assertion.EvaluateAll(tree, assertions)
	allPassed := true
	for _, d := range details {
		if !d.Passed {
			allPassed = false
			fmt.Printf("  %sfailed%s %s %s %v (actual: %v)\n", colorRed, colorReset, d.Field, d.Operator, d.Expected, d.Actual)
		} else {
			fmt.Printf("  %spassed%s  %s %s %v\n", colorGreen, colorReset, d.Field, d.Operator, d.Expected)
		}
	}
	return allPassed
}

func printFormattedJSON(v any, prefix string) {
	if s, ok := v.(string); ok {
		for _, line := range strings.Split(s, "\n") {
			fmt.Printf("%s%s\n", prefix, line)
		}
		return
	}
	pretty, err := json.MarshalIndent(v, prefix, "  ")
	if err != nil {
		fmt.Printf("%s%v\n", prefix, v)
		return
	}
	fmt.Printf("%s%s\n", prefix, string(pretty))
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
