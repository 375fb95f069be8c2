package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/spigell/outreach-composer/internal/ai"
)

const unknownRole = "(unknown role)"

// Result holds every composed message and every per-job failure of a run, both in job order.
type Result struct {
	Messages []Composed   `json:"messages" yaml:"messages"`
	Failures []JobFailure `json:"failures" yaml:"failures"`
}

// Composed pairs a job with its outreach message.
type Composed struct {
	Index      int             `json:"index" yaml:"index"`
	Job        ai.ExtractedJob `json:"job" yaml:"job"`
	References []string        `json:"references" yaml:"references"`
	Message    string          `json:"message" yaml:"message"`
}

// JobFailure records why a single job produced no message.
type JobFailure struct {
	Index  int             `json:"index" yaml:"index"`
	Job    ai.ExtractedJob `json:"job" yaml:"job"`
	Stage  Stage           `json:"stage" yaml:"stage"`
	Kind   ai.ErrorKind    `json:"kind,omitempty" yaml:"kind,omitempty"`
	Reason string          `json:"reason" yaml:"reason"`
	Err    error           `json:"-" yaml:"-"`
}

// Partial reports whether some jobs failed while others succeeded.
func (r *Result) Partial() bool {
	return len(r.Failures) > 0 && len(r.Messages) > 0
}

// ReportByRole groups messages and failures by job role for display.
func (r *Result) ReportByRole() map[string][]map[string]string {
	report := make(map[string][]map[string]string)
	for _, msg := range r.Messages {
		key := roleKey(msg.Job.Role)
		report[key] = append(report[key], map[string]string{
			"status":     "composed",
			"experience": msg.Job.Experience,
			"skills":     strings.Join(msg.Job.Skills, ", "),
			"references": strings.Join(msg.References, ", "),
		})
	}
	for _, failure := range r.Failures {
		key := roleKey(failure.Job.Role)
		report[key] = append(report[key], map[string]string{
			"status":     "failed at " + string(failure.Stage),
			"experience": failure.Job.Experience,
			"skills":     strings.Join(failure.Job.Skills, ", "),
			"reason":     failure.Reason,
		})
	}
	return report
}

// DumpToTmpFile writes the result to a temporary file in the given format (json or yaml)
// and returns its path.
func (r *Result) DumpToTmpFile(format string) (string, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = "json"
	}
	if format == "yml" {
		format = "yaml"
	}
	if format != "json" && format != "yaml" {
		return "", fmt.Errorf("unsupported dump format %q", format)
	}

	file, err := os.CreateTemp("", "outreach_*."+format)
	if err != nil {
		return "", err
	}
	defer file.Close()

	switch format {
	case "yaml":
		enc := yaml.NewEncoder(file)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return "", err
		}
		if err := enc.Close(); err != nil {
			return "", err
		}
	default:
		enc := json.NewEncoder(file)
		enc.SetIndent("", "  ")
		if err := enc.Encode(r); err != nil {
			return "", err
		}
	}

	return file.Name(), nil
}

func roleKey(role string) string {
	if role = strings.TrimSpace(role); role != "" {
		return role
	}
	return unknownRole
}
