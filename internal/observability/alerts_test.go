package observability

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

type alertRule struct {
	Alert       string            `yaml:"alert"`
	Expr        string            `yaml:"expr"`
	For         string            `yaml:"for"`
	Labels      map[string]string `yaml:"labels"`
	Annotations map[string]string `yaml:"annotations"`
}

type alertGroup struct {
	Name  string      `yaml:"name"`
	Rules []alertRule `yaml:"rules"`
}

type alertSpec struct {
	Groups []alertGroup `yaml:"groups"`
}

func TestAlertRules(t *testing.T) {
	path := filepath.Join("..", "..", "deploy", "prometheus", "alerts", "pactum.yml")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read alert file: %v", err)
	}

	var spec alertSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		t.Fatalf("failed to unmarshal alert file: %v", err)
	}
	if len(spec.Groups) != 1 || spec.Groups[0].Name != "pactum-web" {
		t.Fatalf("expected a single pactum-web group, got %+v", spec.Groups)
	}

	expected := map[string]string{
		"HighErrorRate":        "critical",
		"PactumAPIUnavailable": "critical",
		"ForcedLogoutSpike":    "warning",
		"EventBusDrops":        "warning",
	}
	rules := spec.Groups[0].Rules
	if len(rules) != len(expected) {
		t.Fatalf("expected %d rules, got %d", len(expected), len(rules))
	}

	runbook, err := os.ReadFile(filepath.Join("..", "..", "docs", "runbook.md"))
	if err != nil {
		t.Fatalf("failed to read runbook: %v", err)
	}

	for _, rule := range rules {
		severity, ok := expected[rule.Alert]
		if !ok {
			t.Fatalf("unexpected rule %q", rule.Alert)
		}
		if rule.Labels["severity"] != severity {
			t.Fatalf("rule %s severity mismatch: %s", rule.Alert, rule.Labels["severity"])
		}
		if rule.Annotations["summary"] == "" || rule.Annotations["description"] == "" {
			t.Fatalf("rule %s must include summary and description annotations", rule.Alert)
		}
		if rule.Expr == "" || !strings.Contains(rule.Expr, "pactum_") {
			t.Fatalf("rule %s must query pactum metrics", rule.Alert)
		}
		if rule.For == "" {
			t.Fatalf("rule %s must define a hold duration", rule.Alert)
		}
		anchor := strings.TrimPrefix(rule.Annotations["runbook"], "docs/runbook.md#")
		if anchor == rule.Annotations["runbook"] || !strings.Contains(strings.ToLower(string(runbook)), "## "+strings.ReplaceAll(anchor, "-", " ")) {
			t.Fatalf("rule %s runbook anchor %q has no section", rule.Alert, rule.Annotations["runbook"])
		}
	}
}

var seriesName = regexp.MustCompile(`pactum_[a-z_]+`)

// TestAlertRulesQueryExportedSeries keeps the rules in step with the
// collectors: every series an expression names must be exported.
func TestAlertRulesQueryExportedSeries(t *testing.T) {
	m := NewMetrics()
	m.requestsTotal.WithLabelValues("/", "200").Inc()
	m.requestDuration.WithLabelValues("/").Observe(0.1)
	m.ObserveAPICall("auth.me", "network", time.Millisecond)
	m.IncForcedLogout()
	m.ObserveBusEvent("tenant_scope", "dropped")

	families, err := m.registry.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	exported := map[string]bool{}
	for _, family := range families {
		exported[family.GetName()] = true
	}

	data, err := os.ReadFile(filepath.Join("..", "..", "deploy", "prometheus", "alerts", "pactum.yml"))
	if err != nil {
		t.Fatalf("failed to read alert file: %v", err)
	}
	var spec alertSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		t.Fatalf("failed to unmarshal alert file: %v", err)
	}
	for _, group := range spec.Groups {
		for _, rule := range group.Rules {
			for _, name := range seriesName.FindAllString(rule.Expr, -1) {
				base := strings.TrimSuffix(strings.TrimSuffix(strings.TrimSuffix(name, "_bucket"), "_count"), "_sum")
				if !exported[name] && !exported[base] {
					t.Errorf("rule %s queries %s which is not exported", rule.Alert, name)
				}
			}
		}
	}
}
